// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

package molog

import "sync"

// globalMu serializes access to the shared package structures: the logger
// registry, the handler registries and the record factory.
var globalMu sync.RWMutex
