// Package main runs the forms command line.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	formscmd "github.com/louisbranch/formledger/internal/cmd/forms"
	"github.com/louisbranch/formledger/internal/platform/config"
)

func main() {
	cfg, err := formscmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		config.Exitf("Error: %v", err)
	}
	log.SetPrefix("[FORMS] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := formscmd.Run(ctx, cfg, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, formscmd.ErrFailed) {
			os.Exit(1)
		}
		config.Exitf("Error: %v", err)
	}
}
