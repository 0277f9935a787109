// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package eventhub ships log records to an Azure Event Hub, one event per
// record. The handler performs a network round trip on every emit; wrap it in
// a molog.AsyncHandler to keep the latency away from the logging call sites.
package eventhub

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azeventhubs/v2"
	"github.com/caarlos0/env/v11"

	"github.com/mia-platform/molog"
)

var (
	// ErrEventHubSink is the sentinel error for all Event Hub sink errors.
	ErrEventHubSink = errors.New("event hub sink")
)

const defaultSendTimeout = 10 * time.Second

// Handler delivers records to an Azure Event Hub.
type Handler struct {
	*molog.FuncHandler
	config

	client      atomic.Pointer[azeventhubs.ProducerClient]
	sendTimeout time.Duration
}

// NewHandler creates an Event Hub handler reading the needed configuration
// from the env variables. The connection is established lazily, on the first
// record.
func NewHandler() (*Handler, error) {
	config, err := env.ParseAs[config]()
	if err != nil {
		return nil, handleError(err)
	}
	if err := config.validate(); err != nil {
		return nil, handleError(err)
	}

	h := &Handler{
		config:      config,
		sendTimeout: defaultSendTimeout,
	}
	h.FuncHandler = molog.NewFuncHandler(molog.NOTSET, h.emitRecord).OnClose(h.closeClient)
	h.SetFormatter(&molog.JSONFormatter{})
	return h, nil
}

// SetSendTimeout bounds the delivery of a single record.
func (h *Handler) SetSendTimeout(timeout time.Duration) {
	h.sendTimeout = timeout
}

func (h *Handler) emitRecord(_ *molog.Record, formatted string) error {
	client, err := h.initClient()
	if err != nil {
		return handleError(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.sendTimeout)
	defer cancel()

	batch, err := client.NewEventDataBatch(ctx, nil)
	if err != nil {
		return handleError(err)
	}
	if err := batch.AddEventData(&azeventhubs.EventData{Body: []byte(formatted)}, nil); err != nil {
		return handleError(err)
	}
	return handleError(client.SendEventDataBatch(ctx, batch, nil))
}

// initClient initializes the producer client once and reuses it afterwards.
func (h *Handler) initClient() (*azeventhubs.ProducerClient, error) {
	if client := h.client.Load(); client != nil {
		return client, nil
	}

	client, err := h.newProducerClient()
	if err != nil {
		return nil, err
	}

	h.client.Store(client)
	return client, nil
}

func (h *Handler) newProducerClient() (*azeventhubs.ProducerClient, error) {
	if h.ConnectionString != "" {
		return azeventhubs.NewProducerClientFromConnectionString(h.ConnectionString, h.Name, nil)
	}

	azureCredentials, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, err
	}
	return azeventhubs.NewProducerClient(h.fullyQualifiedNamespace(), h.Name, azureCredentials, nil)
}

// closeClient closes the producer client when it was previously initialized.
func (h *Handler) closeClient() error {
	client := h.client.Swap(nil)
	if client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.sendTimeout)
	defer cancel()
	return handleError(client.Close(ctx))
}

// handleError always wraps the given error with ErrEventHubSink. It also
// unwraps some errors to cleanup the error message and removing unnecessary
// layers.
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

	return fmt.Errorf("%w: %w", ErrEventHubSink, err)
}
