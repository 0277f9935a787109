// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package azblob

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

// config holds all the configuration needed to connect to the blob storage.
type config struct {
	ConnectionString string `env:"AZURE_STORAGE_BLOB_CONNECTION_STRING"`
	StorageAccount   string `env:"AZURE_STORAGE_BLOB_ACCOUNT_NAME"`
	ContainerName    string `env:"AZURE_STORAGE_BLOB_CONTAINER_NAME"`
	BlobPrefix       string `env:"AZURE_STORAGE_BLOB_PREFIX" envDefault:"logs"`
	BatchSize        int    `env:"AZURE_STORAGE_BLOB_BATCH_SIZE" envDefault:"100"`
}

// validate checks if the configuration is enough to build a blob client.
func (c config) validate() error {
	switch {
	case len(c.ConnectionString) == 0 && len(c.StorageAccount) == 0:
		return fmt.Errorf("%w: %s", ErrInvalidEnvVariable, "one of AZURE_STORAGE_BLOB_CONNECTION_STRING or AZURE_STORAGE_BLOB_ACCOUNT_NAME must be present")
	case len(c.ContainerName) == 0:
		return fmt.Errorf("%w: %s", ErrMissingEnvVariable, "AZURE_STORAGE_BLOB_CONTAINER_NAME")
	case c.BatchSize <= 0:
		return fmt.Errorf("%w: %s", ErrInvalidEnvVariable, "AZURE_STORAGE_BLOB_BATCH_SIZE must be a positive number")
	}

	return nil
}

func (c config) serviceURL() string {
	if strings.Contains(c.StorageAccount, ".blob.core.windows.net") {
		return c.StorageAccount
	}

	return fmt.Sprintf("https://%s.blob.core.windows.net/", c.StorageAccount)
}
