// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/mia-platform/molog"
)

var (
	ErrEnvVariablesNotValid = errors.New("environment variables not valid")
)

// EnvConfig is the environment-driven configuration of the root logger, for
// services that do not ship a configuration file.
type EnvConfig struct {
	Level      string `env:"MOLOG_LEVEL" envDefault:"WARNING"`
	Format     string `env:"MOLOG_FORMAT"`
	DateFormat string `env:"MOLOG_DATE_FORMAT"`
	Style      string `env:"MOLOG_STYLE" envDefault:"percent"`
	Output     string `env:"MOLOG_OUTPUT" envDefault:"stderr"`
}

// LoadEnvConfig parses and validates the MOLOG_* environment variables.
func LoadEnvConfig() (*EnvConfig, error) {
	envVars, err := env.ParseAs[EnvConfig]()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrEnvVariablesNotValid, err.Error())
	}

	if err := validateEnvironmentVariables(&envVars); err != nil {
		return nil, err
	}
	return &envVars, nil
}

func validateEnvironmentVariables(envVars *EnvConfig) error {
	envError := make([]string, 0)

	if _, err := molog.ParseLevel(envVars.Level); err != nil {
		envError = append(envError, "MOLOG_LEVEL is not a known level name")
	}

	style, err := molog.ParseStyle(envVars.Style)
	if err != nil {
		envError = append(envError, "MOLOG_STYLE is not a known placeholder style")
	} else if envVars.Format != "" {
		if _, err := molog.NewTextFormatter(envVars.Format, style); err != nil {
			envError = append(envError, "MOLOG_FORMAT is not a valid pattern")
		}
	}

	if len(envError) > 0 {
		return fmt.Errorf("%w: %s", ErrEnvVariablesNotValid, strings.Join(envError, ", "))
	}
	return nil
}

// Apply configures the root logger from the environment configuration. The
// previous root handlers are replaced.
func (c *EnvConfig) Apply() error {
	level, err := molog.ParseLevel(c.Level)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrEnvVariablesNotValid, err.Error())
	}
	style, err := molog.ParseStyle(c.Style)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrEnvVariablesNotValid, err.Error())
	}

	options := molog.BasicOptions{
		Format:     c.Format,
		DateFormat: c.DateFormat,
		Style:      style,
		Level:      level,
		Force:      true,
	}

	switch c.Output {
	case OutputStderr:
		options.Writer = os.Stderr
	case OutputStdout:
		options.Writer = os.Stdout
	default:
		options.Filename = c.Output
	}

	return molog.BasicConfig(options)
}

// ApplyEnv loads the MOLOG_* environment variables and configures the root
// logger with them.
func ApplyEnv() error {
	envConfig, err := LoadEnvConfig()
	if err != nil {
		return err
	}
	return envConfig.Apply()
}
