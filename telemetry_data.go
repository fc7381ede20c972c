// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package gziptext

import (
	"context"
	"encoding/json"
	"time"
)

// TelemetryData holds all telemetry data of a parse.
type TelemetryData struct {
	// CompressedBytes is the total size of the compressed payloads
	CompressedBytes int64 `json:"compressed_bytes"`

	// InputSize is the size of the input
	InputSize int64 `json:"input_size"`

	// LastParseError is the last error during parsing
	LastParseError error `json:"last_parse_error"`

	// Members is the number of parsed members
	Members int64 `json:"members"`

	// ParseDuration is the time it took to parse the stream
	ParseDuration time.Duration `json:"parse_duration"`

	// ParseErrors is the number of errors during parsing
	ParseErrors int64 `json:"parse_errors"`

	// UncompressedBytes is the total decompressed size of all members
	UncompressedBytes int64 `json:"uncompressed_bytes"`
}

// String returns a string representation of [TelemetryData].
func (td TelemetryData) String() string {
	b, _ := json.Marshal(td)
	return string(b)
}

// MarshalJSON implements the [encoding/json.Marshaler] interface.
func (td TelemetryData) MarshalJSON() ([]byte, error) {
	var lastError string
	if td.LastParseError != nil {
		lastError = td.LastParseError.Error()
	}

	type Alias TelemetryData
	return json.Marshal(&struct {
		LastParseError string `json:"last_parse_error"`
		*Alias
	}{
		LastParseError: lastError,
		Alias:          (*Alias)(&td),
	})
}

// TelemetryHook is a function type that performs operations on
// [TelemetryData] after a parse has finished. It can be used to submit
// the [TelemetryData] to a telemetry service, for example.
type TelemetryHook func(context.Context, *TelemetryData)

// NoopTelemetryHook is a no operation telemetry hook
func NoopTelemetryHook(ctx context.Context, td *TelemetryData) {
	// noop
}
