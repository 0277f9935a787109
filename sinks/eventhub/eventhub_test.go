// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package eventhub

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mia-platform/molog"
)

func TestNewHandler(t *testing.T) {
	tests := map[string]struct {
		envs          map[string]string
		expectedError string
	}{
		"no configuration at all": {
			expectedError: "event hub sink: invalid environment value: one of AZURE_EVENT_HUB_CONNECTION_STRING or AZURE_EVENT_HUB_NAMESPACE must be present",
		},
		"namespace without event hub name": {
			envs: map[string]string{
				"AZURE_EVENT_HUB_NAMESPACE": "testing-namespace",
			},
			expectedError: "event hub sink: missing environment variable: AZURE_EVENT_HUB_NAME",
		},
		"connection string is enough": {
			envs: map[string]string{
				"AZURE_EVENT_HUB_CONNECTION_STRING": "Endpoint=sb://testing.servicebus.windows.net/;EntityPath=logs",
			},
		},
		"namespace and name": {
			envs: map[string]string{
				"AZURE_EVENT_HUB_NAMESPACE": "testing-namespace",
				"AZURE_EVENT_HUB_NAME":      "logs",
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv("AZURE_EVENT_HUB_CONNECTION_STRING", test.envs["AZURE_EVENT_HUB_CONNECTION_STRING"])
			t.Setenv("AZURE_EVENT_HUB_NAMESPACE", test.envs["AZURE_EVENT_HUB_NAMESPACE"])
			t.Setenv("AZURE_EVENT_HUB_NAME", test.envs["AZURE_EVENT_HUB_NAME"])

			handler, err := NewHandler()
			if len(test.expectedError) > 0 {
				assert.ErrorIs(t, err, ErrEventHubSink)
				assert.ErrorContains(t, err, test.expectedError)
				assert.Nil(t, handler)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, handler)
			assert.Equal(t, molog.NOTSET, handler.Level())
			assert.IsType(t, &molog.JSONFormatter{}, handler.Formatter())
			assert.NoError(t, handler.Close())
		})
	}
}

func TestFullyQualifiedNamespace(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		config   config
		expected string
	}{
		"bare namespace name": {
			config:   config{Namespace: "testing-namespace"},
			expected: "testing-namespace.servicebus.windows.net",
		},
		"already qualified namespace": {
			config:   config{Namespace: "testing-namespace.servicebus.windows.net"},
			expected: "testing-namespace.servicebus.windows.net",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, test.expected, test.config.fullyQualifiedNamespace())
		})
	}
}

func TestCloseWithoutClient(t *testing.T) {
	t.Setenv("AZURE_EVENT_HUB_CONNECTION_STRING", "Endpoint=sb://testing.servicebus.windows.net/;EntityPath=logs")
	t.Setenv("AZURE_EVENT_HUB_NAMESPACE", "")
	t.Setenv("AZURE_EVENT_HUB_NAME", "")

	handler, err := NewHandler()
	require.NoError(t, err)

	// Close must not fail when no record ever forced the client to connect.
	assert.NoError(t, handler.Close())
	assert.NoError(t, handler.Close())
}
