// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package pubsub publishes log records on a Google Cloud Pub/Sub topic, one
// message per record. Publishing is asynchronous inside the client itself,
// records are batched by the library before hitting the wire.
package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/caarlos0/env/v11"
	"google.golang.org/api/option"
	"google.golang.org/grpc/status"

	"github.com/mia-platform/molog"
)

var (
	// ErrMissingEnvVariable reports missing mandatory environment variables.
	ErrMissingEnvVariable = errors.New("missing environment variable")
	// ErrPubSubSink wraps errors emitted by the Pub/Sub sink implementation.
	ErrPubSubSink = errors.New("pub/sub sink")
)

const defaultPublishTimeout = 10 * time.Second

// config holds all the configuration needed to connect to Pub/Sub.
type config struct {
	ProjectID       string `env:"GOOGLE_CLOUD_PUBSUB_PROJECT"`
	TopicID         string `env:"GOOGLE_CLOUD_PUBSUB_TOPIC"`
	CredentialsFile string `env:"GOOGLE_CLOUD_PUBSUB_CREDENTIALS_FILE"`
}

// checkConfig validates the required configuration for the publisher.
func checkConfig(cfg config) error {
	missingEnvs := make([]string, 0)
	if cfg.ProjectID == "" {
		missingEnvs = append(missingEnvs, "GOOGLE_CLOUD_PUBSUB_PROJECT")
	}
	if cfg.TopicID == "" {
		missingEnvs = append(missingEnvs, "GOOGLE_CLOUD_PUBSUB_TOPIC")
	}

	if len(missingEnvs) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingEnvVariable, strings.Join(missingEnvs, ", "))
	}

	return nil
}

// Handler publishes records on a Pub/Sub topic.
type Handler struct {
	*molog.FuncHandler
	config

	client         atomic.Pointer[pubsub.Client]
	publisher      atomic.Pointer[pubsub.Publisher]
	publishTimeout time.Duration
}

// NewHandler creates a Pub/Sub handler reading the needed configuration from
// the env variables. The connection is established lazily, on the first
// record.
func NewHandler() (*Handler, error) {
	config, err := env.ParseAs[config]()
	if err != nil {
		return nil, handleError(err)
	}
	if err := checkConfig(config); err != nil {
		return nil, handleError(err)
	}

	h := &Handler{
		config:         config,
		publishTimeout: defaultPublishTimeout,
	}
	h.FuncHandler = molog.NewFuncHandler(molog.NOTSET, h.emitRecord).
		OnFlush(h.flushPublisher).
		OnClose(h.closeClient)
	h.SetFormatter(&molog.JSONFormatter{})
	return h, nil
}

// SetPublishTimeout bounds the confirmation wait for a single record.
func (h *Handler) SetPublishTimeout(timeout time.Duration) {
	h.publishTimeout = timeout
}

func (h *Handler) emitRecord(record *molog.Record, formatted string) error {
	publisher, err := h.initPublisher(context.Background())
	if err != nil {
		return handleError(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.publishTimeout)
	defer cancel()

	result := publisher.Publish(ctx, &pubsub.Message{
		Data: []byte(formatted),
		Attributes: map[string]string{
			"logger": record.LoggerName,
			"level":  record.LevelName,
		},
	})
	_, err = result.Get(ctx)
	return handleError(err)
}

// initPublisher initializes the Pub/Sub client once and reuses it afterwards.
func (h *Handler) initPublisher(ctx context.Context) (*pubsub.Publisher, error) {
	if publisher := h.publisher.Load(); publisher != nil {
		return publisher, nil
	}

	opts := make([]option.ClientOption, 0, 1)
	if h.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(h.CredentialsFile))
	}

	client, err := pubsub.NewClient(ctx, h.ProjectID, opts...)
	if err != nil {
		return nil, err
	}

	publisher := client.Publisher(h.TopicID)
	h.client.Store(client)
	h.publisher.Store(publisher)
	return publisher, nil
}

// flushPublisher waits for the in-flight messages to be confirmed.
func (h *Handler) flushPublisher() error {
	if publisher := h.publisher.Load(); publisher != nil {
		publisher.Flush()
	}
	return nil
}

// closeClient stops the publisher and closes the client when they were
// previously initialized.
func (h *Handler) closeClient() error {
	if publisher := h.publisher.Swap(nil); publisher != nil {
		publisher.Stop()
	}
	if client := h.client.Swap(nil); client != nil {
		return handleError(client.Close())
	}
	return nil
}

// handleError always wraps the given error with ErrPubSubSink. It also
// unwraps some errors to cleanup the error message and removing unnecessary
// layers.
func handleError(err error) error {
	if err == nil {
		return nil
	}

	switch u := errors.Unwrap(err); u != nil {
	case errors.Is(u, ErrMissingEnvVariable):
	default:
		err = u
	}

	if statusErr, ok := status.FromError(err); ok {
		err = errors.New(statusErr.Message())
	}

	return fmt.Errorf("%w: %w", ErrPubSubSink, err)
}
