package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DefaultEnvFile is the dotenv file read from the working directory when no
// explicit path is configured.
const DefaultEnvFile = ".env"

// EnvFileVar names the variable that points at an alternate dotenv file.
const EnvFileVar = "FORMLEDGER_ENV_FILE"

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadDotEnv merges a dotenv file into the process environment. Variables that
// are already set win over file values. A missing default file is not an
// error; a missing explicit file is.
func LoadDotEnv(path string) error {
	explicit := strings.TrimSpace(path) != ""
	if !explicit {
		path = strings.TrimSpace(os.Getenv(EnvFileVar))
		explicit = path != ""
	}
	if path == "" {
		path = DefaultEnvFile
	}
	if err := godotenv.Load(path); err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

// Load reads the dotenv file and then parses the environment into target.
func Load(target any, envFile string) error {
	if err := LoadDotEnv(envFile); err != nil {
		return err
	}
	return ParseEnv(target)
}
