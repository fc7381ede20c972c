// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package gziptext

import (
	"io"
	"log/slog"

	"github.com/klauspost/compress/flate"
)

// ConfigOption is a function pointer to implement the option pattern
type ConfigOption func(*Config)

// Config is a struct type that holds all config options
type Config struct {
	// capturePayload decides if the decompressed payload of each member
	// is retained on the Member. The payload is always scanned either
	// way, because the member boundary is only discoverable by driving
	// the deflate decoder to its end.
	capturePayload bool

	// chunkSize is the buffer size used when driving the deflate
	// decoder. A performance tunable, not semantically significant.
	chunkSize int

	// compressionLevel is the deflate level used when re-assembling
	// members whose XFL byte carries no hint.
	compressionLevel int

	// logger stream for parsing diagnostics
	logger *slog.Logger

	// maxInputSize is the maximum size of the input.
	// Set value to -1 to disable the check.
	maxInputSize int64

	// maxPayloadSize is the maximum decompressed size of a single
	// member. Set value to -1 to disable the check.
	maxPayloadSize int64

	// strictCRC decides if header (FHCRC) and footer (CRC32/ISIZE)
	// checksum mismatches fail the parse instead of logging a warning.
	strictCRC bool

	// telemetryHook is a function pointer to consume telemetry data after
	// a finished parse
	// Important: do not adjust this value after parsing started
	telemetryHook TelemetryHook
}

// NewConfig is a generator option that takes opts as adjustments of the
// default configuration in an option pattern style
func NewConfig(opts ...ConfigOption) *Config {
	const (
		capturePayload   = true
		chunkSize        = 4096
		compressionLevel = flate.DefaultCompression
		maxInputSize     = -1
		maxPayloadSize   = -1
		strictCRC        = false
	)

	// disable logging by default
	logger := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{}))

	// setup default values
	config := &Config{
		capturePayload:   capturePayload,
		chunkSize:        chunkSize,
		compressionLevel: compressionLevel,
		logger:           logger,
		maxInputSize:     maxInputSize,
		maxPayloadSize:   maxPayloadSize,
		strictCRC:        strictCRC,
	}

	// Loop through each option
	for _, opt := range opts {
		opt(config)
	}

	return config
}

// WithPayload options pattern function to enable/disable payload capture
// on parsed members. Disabling it bounds memory for metadata-only scans.
func WithPayload(capture bool) ConfigOption {
	return func(c *Config) {
		c.capturePayload = capture
	}
}

// WithChunkSize options pattern function to set the deflate read buffer size
func WithChunkSize(size int) ConfigOption {
	return func(c *Config) {
		if size > 0 {
			c.chunkSize = size
		}
	}
}

// WithCompressionLevel options pattern function to set the deflate level
// used for members without an XFL hint
func WithCompressionLevel(level int) ConfigOption {
	return func(c *Config) {
		c.compressionLevel = level
	}
}

// WithLogger options pattern function to set a custom logger
func WithLogger(logger *slog.Logger) ConfigOption {
	return func(c *Config) {
		c.logger = logger
	}
}

// WithMaxInputSize options pattern function to set MaxInputSize in the
// config (-1 to disable check)
func WithMaxInputSize(maxInputSize int64) ConfigOption {
	return func(c *Config) {
		c.maxInputSize = maxInputSize
	}
}

// WithMaxPayloadSize options pattern function to set MaxPayloadSize in the
// config (-1 to disable check)
func WithMaxPayloadSize(maxPayloadSize int64) ConfigOption {
	return func(c *Config) {
		c.maxPayloadSize = maxPayloadSize
	}
}

// WithStrictCRC options pattern function to fail on checksum mismatches
// instead of logging them
func WithStrictCRC(strict bool) ConfigOption {
	return func(c *Config) {
		c.strictCRC = strict
	}
}

// WithTelemetryHook options pattern function to set a telemetry hook
func WithTelemetryHook(hook TelemetryHook) ConfigOption {
	return func(c *Config) {
		c.telemetryHook = hook
	}
}

// CapturePayload returns true if parsed members retain their payload
func (c *Config) CapturePayload() bool {
	return c.capturePayload
}

// ChunkSize returns the deflate read buffer size
func (c *Config) ChunkSize() int {
	return c.chunkSize
}

// CompressionLevel returns the deflate level for re-assembly
func (c *Config) CompressionLevel() int {
	return c.compressionLevel
}

// Logger returns the configured logger
func (c *Config) Logger() *slog.Logger {
	return c.logger
}

// MaxInputSize returns the maximum size of the input
func (c *Config) MaxInputSize() int64 {
	return c.maxInputSize
}

// MaxPayloadSize returns the maximum decompressed size of a single member
func (c *Config) MaxPayloadSize() int64 {
	return c.maxPayloadSize
}

// StrictCRC returns true if checksum mismatches fail the parse
func (c *Config) StrictCRC() bool {
	return c.strictCRC
}

// TelemetryHook returns the telemetry hook
func (c *Config) TelemetryHook() TelemetryHook {
	if c.telemetryHook == nil {
		return NoopTelemetryHook
	}
	return c.telemetryHook
}

// CheckPayloadSize checks if size exceeds the MaxPayloadSize of the config
func (c *Config) CheckPayloadSize(size int64) error {
	// check if disabled
	if c.MaxPayloadSize() == -1 {
		return nil
	}

	// check value
	if size > c.MaxPayloadSize() {
		return ErrPayloadLimit
	}
	return nil
}
