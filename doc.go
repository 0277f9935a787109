// Copyright Mia srl
// SPDX-License-Identifier: AGPL-3.0-only or Commercial

// Package molog is a refined, typed and documented logging library.
//
// Loggers are organized in a dot-separated namespace hierarchy ("api",
// "api.http", "api.http.router"). A record emitted on a logger travels up
// the hierarchy and is delivered to every handler attached along the way,
// unless a logger disables propagation. Handlers format records with a
// Formatter and write them to their destination: an io.Writer, a file, an
// in-memory buffer, an HTTP endpoint, or one of the cloud sinks in the
// sinks subpackages.
package molog
