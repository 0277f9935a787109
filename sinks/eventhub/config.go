// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package eventhub

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingEnvVariable reports missing mandatory environment variables.
	ErrMissingEnvVariable = errors.New("missing environment variable")
	// ErrInvalidEnvVariable reports malformed environment variable values.
	ErrInvalidEnvVariable = errors.New("invalid environment value")
)

// config holds all the configuration needed to connect to an Event Hub.
type config struct {
	ConnectionString string `env:"AZURE_EVENT_HUB_CONNECTION_STRING"`
	Namespace        string `env:"AZURE_EVENT_HUB_NAMESPACE"`
	Name             string `env:"AZURE_EVENT_HUB_NAME"`
}

// validate checks if the configuration is enough to build a producer client.
func (c config) validate() error {
	switch {
	case len(c.ConnectionString) == 0 && len(c.Namespace) == 0:
		return fmt.Errorf("%w: %s", ErrInvalidEnvVariable, "one of AZURE_EVENT_HUB_CONNECTION_STRING or AZURE_EVENT_HUB_NAMESPACE must be present")
	case len(c.Namespace) > 0 && len(c.Name) == 0:
		return fmt.Errorf("%w: %s", ErrMissingEnvVariable, "AZURE_EVENT_HUB_NAME")
	}

	return nil
}

func (c config) fullyQualifiedNamespace() string {
	if strings.Contains(c.Namespace, ".servicebus.windows.net") {
		return c.Namespace
	}

	return c.Namespace + ".servicebus.windows.net"
}
