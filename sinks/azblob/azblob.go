// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package azblob archives log records on an Azure Blob Storage container.
// Records accumulate in memory and every full batch is uploaded as a new
// blob, so a single log line never costs a network round trip.
package azblob

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"

	"github.com/mia-platform/molog"
)

var (
	// ErrBlobSink is the sentinel error for all blob storage sink errors.
	ErrBlobSink = errors.New("blob storage sink")
)

const defaultUploadTimeout = 30 * time.Second

// Handler archives batches of records as blobs.
type Handler struct {
	*molog.FuncHandler
	config

	client        atomic.Pointer[azblob.Client]
	uploadTimeout time.Duration

	mu    sync.Mutex
	lines []string
}

// NewHandler creates a blob storage handler reading the needed configuration
// from the env variables. The connection is established lazily, on the first
// uploaded batch.
func NewHandler() (*Handler, error) {
	config, err := env.ParseAs[config]()
	if err != nil {
		return nil, handleError(err)
	}
	if err := config.validate(); err != nil {
		return nil, handleError(err)
	}

	h := &Handler{
		config:        config,
		uploadTimeout: defaultUploadTimeout,
	}
	h.FuncHandler = molog.NewFuncHandler(molog.NOTSET, h.emitRecord).
		OnFlush(h.uploadPending).
		OnClose(h.uploadPending)
	h.SetFormatter(&molog.JSONFormatter{})
	return h, nil
}

// SetUploadTimeout bounds the upload of a single batch.
func (h *Handler) SetUploadTimeout(timeout time.Duration) {
	h.uploadTimeout = timeout
}

func (h *Handler) emitRecord(_ *molog.Record, formatted string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lines = append(h.lines, formatted)
	if len(h.lines) < h.BatchSize {
		return nil
	}
	return h.uploadLocked()
}

// uploadPending uploads whatever accumulated so far, a short batch included.
func (h *Handler) uploadPending() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.uploadLocked()
}

func (h *Handler) uploadLocked() error {
	if len(h.lines) == 0 {
		return nil
	}

	client, err := h.initClient()
	if err != nil {
		return handleError(err)
	}

	name, err := h.blobName()
	if err != nil {
		return handleError(err)
	}
	content := strings.Join(h.lines, "\n") + "\n"

	ctx, cancel := context.WithTimeout(context.Background(), h.uploadTimeout)
	defer cancel()
	if _, err := client.UploadBuffer(ctx, h.ContainerName, name, []byte(content), nil); err != nil {
		return handleError(err)
	}

	h.lines = nil
	return nil
}

// blobName builds a unique name for the next batch. The timestamp keeps the
// container listing in rough chronological order.
func (h *Handler) blobName() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}

	timestamp := time.Now().UTC().Format("20060102T150405")
	return fmt.Sprintf("%s/%s-%s.log", h.BlobPrefix, timestamp, id.String()), nil
}

// initClient initializes the blob client once and reuses it afterwards.
func (h *Handler) initClient() (*azblob.Client, error) {
	if client := h.client.Load(); client != nil {
		return client, nil
	}

	client, err := h.newBlobClient()
	if err != nil {
		return nil, err
	}

	h.client.Store(client)
	return client, nil
}

func (h *Handler) newBlobClient() (*azblob.Client, error) {
	if h.ConnectionString != "" {
		return azblob.NewClientFromConnectionString(h.ConnectionString, nil)
	}

	azureCredentials, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	return azblob.NewClient(h.serviceURL(), azureCredentials, nil)
}

// handleError always wraps the given error with ErrBlobSink. It also unwraps
// some errors to cleanup the error message and removing unnecessary layers.
func handleError(err error) error {
	if err == nil {
		return nil
	}

	switch u := errors.Unwrap(err); u != nil {
	case errors.Is(u, ErrMissingEnvVariable):
	case errors.Is(u, ErrInvalidEnvVariable):
	default:
		err = u
	}

	return fmt.Errorf("%w: %w", ErrBlobSink, err)
}
