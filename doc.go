// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package gziptext decodes gzip files (RFC 1952) into an explicit,
// editable representation and re-assembles that representation into
// valid gzip binaries.
//
// A gzip file is a sequence of concatenated members, each consisting of
// a flag-driven variable-length header, a raw deflate payload and an
// 8-byte footer. The [Parser] walks the members lazily and yields one
// [Member] per call; the member boundary inside the stream is located
// by driving the deflate decoder to its end-of-stream marker, since the
// format carries no explicit length for the compressed data. The
// [Writer] performs the inverse and emits byte-exact headers from the
// decoded fields.
//
// Configuration is done using the [Config], which can be used to set
// payload capture, size limits, the logger and the telemetry hook.
// Telemetry data is captured during parsing as [TelemetryData].
package gziptext
