// Package forms parses forms command configuration and dispatches its
// subcommands.
package forms

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/louisbranch/formledger/internal/ledger"
	"github.com/louisbranch/formledger/internal/ledger/sui"
	entrypoint "github.com/louisbranch/formledger/internal/platform/cmd"
	apperrors "github.com/louisbranch/formledger/internal/platform/errors"
	"github.com/louisbranch/formledger/internal/services/forms/analytics"
	"github.com/louisbranch/formledger/internal/services/forms/contract"
	"github.com/louisbranch/formledger/internal/services/forms/events"
	"github.com/louisbranch/formledger/internal/services/forms/i18n"
	"github.com/louisbranch/formledger/internal/services/forms/service"
)

// Config holds forms command configuration.
type Config struct {
	RPCURL         string        `env:"FORMLEDGER_RPC_URL" envDefault:"https://fullnode.testnet.sui.io:443"`
	WSURL          string        `env:"FORMLEDGER_WS_URL"`
	PackageID      string        `env:"FORMLEDGER_PACKAGE_ID"`
	RegistryID     string        `env:"FORMLEDGER_REGISTRY_ID"`
	SecretKey      string        `env:"FORMLEDGER_SECRET_KEY"`
	GasBudget      uint64        `env:"FORMLEDGER_GAS_BUDGET" envDefault:"10000000"`
	Fanout         int           `env:"FORMLEDGER_FANOUT" envDefault:"16"`
	Locale         string        `env:"FORMLEDGER_LOCALE" envDefault:"en-US"`
	DialTimeout    time.Duration `env:"FORMLEDGER_DIAL_TIMEOUT" envDefault:"2s"`
	RequestTimeout time.Duration `env:"FORMLEDGER_REQUEST_TIMEOUT" envDefault:"30s"`
	HealthPort     int           `env:"FORMLEDGER_HEALTH_PORT" envDefault:"8095"`
	JournalPath    string        `env:"FORMLEDGER_JOURNAL_PATH"`
	Verbose        bool          `env:"FORMLEDGER_VERBOSE"`

	// Command is the subcommand name and Args its arguments.
	Command string
	Args    []string
}

// ErrFailed is returned when a command ran but its operation failed. The
// failure has already been printed.
var ErrFailed = errors.New("command failed")

// ParseConfig parses environment and global flags into Config. The first
// positional argument selects the subcommand.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	fs.StringVar(&cfg.RPCURL, "rpc-url", cfg.RPCURL, "ledger JSON-RPC endpoint")
	fs.StringVar(&cfg.WSURL, "ws-url", cfg.WSURL, "ledger websocket endpoint (default: derived from -rpc-url)")
	fs.StringVar(&cfg.PackageID, "package", cfg.PackageID, "forms package id")
	fs.StringVar(&cfg.RegistryID, "registry", cfg.RegistryID, "form registry object id")
	fs.Uint64Var(&cfg.GasBudget, "gas-budget", cfg.GasBudget, "gas budget per transaction, in MIST")
	fs.IntVar(&cfg.Fanout, "fanout", cfg.Fanout, "max concurrent form reads")
	fs.StringVar(&cfg.Locale, "locale", cfg.Locale, "locale for user messages")
	fs.DurationVar(&cfg.DialTimeout, "dial-timeout", cfg.DialTimeout, "ledger connection probe timeout")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "timeout per ledger request")
	fs.IntVar(&cfg.HealthPort, "health-port", cfg.HealthPort, "watcher health port")
	fs.StringVar(&cfg.JournalPath, "journal", cfg.JournalPath, "activity journal sqlite path (empty disables the journal)")
	fs.BoolVar(&cfg.Verbose, "v", cfg.Verbose, "log ledger and service activity to stderr")
	fs.Usage = func() { usage(fs) }
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	if fs.NArg() == 0 {
		return Config{}, fmt.Errorf("command is required (one of %s)", strings.Join(commandNames(), ", "))
	}
	cfg.Command = fs.Arg(0)
	cfg.Args = fs.Args()[1:]
	if cfg.GasBudget > sui.MaxGasBudget {
		return Config{}, fmt.Errorf("gas budget %d exceeds max %d", cfg.GasBudget, sui.MaxGasBudget)
	}
	return cfg, nil
}

// Gateway is the ledger connection the commands run against.
type Gateway interface {
	ledger.Gateway
	Close()
}

// nodeInfo is implemented by gateways that can describe the network.
type nodeInfo interface {
	ChainID() string
	Balance(ctx context.Context, owner string) (uint64, error)
}

// dialGateway connects to the configured ledger node.
var dialGateway = func(ctx context.Context, cfg Config, logger *slog.Logger) (Gateway, error) {
	opts := sui.Options{
		RPCURL:         cfg.RPCURL,
		WSURL:          cfg.WSURL,
		GasBudget:      cfg.GasBudget,
		DialTimeout:    cfg.DialTimeout,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
	}
	if strings.TrimSpace(cfg.SecretKey) != "" {
		signer, err := sui.ParsePrivateKey(cfg.SecretKey)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.CodeConfiguration, "invalid FORMLEDGER_SECRET_KEY", err)
		}
		opts.Signer = signer
	}
	client, err := sui.Dial(ctx, opts)
	if err != nil {
		return nil, err
	}
	return client, nil
}

// command runs one subcommand.
type command struct {
	name    string
	usage   string
	summary string
	// unbound commands work without a package and registry.
	unbound bool
	// offline commands never dial the ledger.
	offline bool
	run     func(ctx context.Context, env *runEnv, args []string) error
}

var commands = []command{
	{name: "status", summary: "show configuration, wallet, chain and contract status", unbound: true, run: runStatus},
	{name: "list-forms", usage: "[-sort key] [-search term] [-state all|active|inactive] [-author addr] [-mine]", summary: "list registered forms", run: runListForms},
	{name: "show", usage: "<form-id>", summary: "show a form with its results and recent activity", run: runShow},
	{name: "stats", summary: "show registry statistics", run: runStats},
	{name: "create", usage: "-title t -description d", summary: "create a form", run: runCreate},
	{name: "add-question", usage: "-form id -title t -description d -option o...", summary: "add a question to a form", run: runAddQuestion},
	{name: "list", usage: "<form-id>", summary: "make a form public", run: formOp("list")},
	{name: "delist", usage: "<form-id>", summary: "hide a public form", run: formOp("delist")},
	{name: "relist", usage: "<form-id>", summary: "make a delisted form public again", run: formOp("relist")},
	{name: "transfer", usage: "<form-id>", summary: "return a form to its creator", run: formOp("transfer")},
	{name: "vote", usage: "-form id -question n -option n", summary: "vote on a question", run: runVote},
	{name: "events", usage: "[-form id] [-limit n] [-type t...]", summary: "show recent form events", run: runEvents},
	{name: "journal", usage: "[-filter expr] [-limit n] [-page-token t]", summary: "read the activity journal", offline: true, run: runJournal},
	{name: "watch", usage: "[-type t...]", summary: "journal live events and serve health", run: runWatch},
	{name: "health", usage: "[-addr host:port]", summary: "probe a running watcher", offline: true, run: runHealth},
}

func commandNames() []string {
	names := make([]string, 0, len(commands))
	for _, c := range commands {
		names = append(names, c.name)
	}
	sort.Strings(names)
	return names
}

func lookupCommand(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func usage(fs *flag.FlagSet) {
	out := fs.Output()
	fmt.Fprintf(out, "Usage: forms [flags] <command> [command flags]\n\nCommands:\n")
	for _, c := range commands {
		fmt.Fprintf(out, "  %-13s %s\n", c.name, c.summary)
		if c.usage != "" {
			fmt.Fprintf(out, "  %-13s   %s %s\n", "", c.name, c.usage)
		}
	}
	fmt.Fprintf(out, "\nFlags:\n")
	fs.PrintDefaults()
}

// runEnv is the state shared by the subcommands of one run.
type runEnv struct {
	cfg       Config
	out       io.Writer
	errOut    io.Writer
	logger    *slog.Logger
	localizer analytics.Localizer
	now       func() time.Time

	gateway Gateway
	binding contract.Binding
	bound   bool
}

func (e *runEnv) service() *service.Service {
	return service.New(e.gateway, e.binding,
		service.WithLogger(e.logger),
		service.WithFanout(e.cfg.Fanout),
		service.WithLocalizer(e.localizer),
	)
}

func (e *runEnv) stream() *events.Stream {
	return events.NewStream(e.gateway, e.binding, e.logger)
}

// Run executes the configured subcommand.
func Run(ctx context.Context, cfg Config, out io.Writer, errOut io.Writer) error {
	if out == nil {
		out = io.Discard
	}
	if errOut == nil {
		errOut = io.Discard
	}
	cmd, ok := lookupCommand(cfg.Command)
	if !ok {
		return fmt.Errorf("unknown command %q (one of %s)", cfg.Command, strings.Join(commandNames(), ", "))
	}

	level := slog.LevelWarn
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	env := &runEnv{
		cfg:       cfg,
		out:       out,
		errOut:    errOut,
		logger:    slog.New(slog.NewTextHandler(errOut, &slog.HandlerOptions{Level: level})),
		localizer: analytics.NewLocalizer(i18n.Match(cfg.Locale)),
		now:       time.Now,
	}

	telemetryName := entrypoint.ServiceForms
	if cmd.name == "watch" {
		telemetryName = entrypoint.ServiceFormsWatch
	}
	return entrypoint.RunWithTelemetry(ctx, telemetryName, func(ctx context.Context) error {
		if !cmd.offline {
			if err := env.connect(ctx, !cmd.unbound); err != nil {
				return env.fail(err)
			}
			defer env.gateway.Close()
		}
		return cmd.run(ctx, env, cfg.Args)
	})
}

// connect dials the ledger and, when required, binds the forms contract.
func (e *runEnv) connect(ctx context.Context, requireBinding bool) error {
	pkg := strings.TrimSpace(e.cfg.PackageID)
	reg := strings.TrimSpace(e.cfg.RegistryID)
	if pkg != "" || reg != "" || requireBinding {
		b, err := contract.NewBinding(pkg, reg)
		if err != nil {
			if requireBinding {
				return err
			}
		} else {
			e.binding = b
			e.bound = true
		}
	}
	gw, err := dialGateway(ctx, e.cfg, e.logger)
	if err != nil {
		if apperrors.CodeOf(err) != apperrors.CodeUnknown {
			return err
		}
		return apperrors.Wrap(apperrors.CodeNetworkError, "network error: "+err.Error(), err)
	}
	e.gateway = gw
	return nil
}
