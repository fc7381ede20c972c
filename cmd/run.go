// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	"github.com/pkg/errors"

	gziptext "github.com/hashicorp/go-gziptext"
)

// CLI are the cli parameters for the gziptext binary
type CLI struct {
	Files          []string         `arg:"" optional:"" name:"files" help:"Input files. (\"-\" or none for STDIN)"`
	Humanize       bool             `short:"H" help:"Humanize codes, flags and timestamps in the output."`
	MaxInputSize   int64            `optional:"" default:"-1" help:"Maximum input size per file (in bytes). (disable check: -1)"`
	MaxPayloadSize int64            `optional:"" default:"-1" help:"Maximum decompressed size per member (in bytes). (disable check: -1)"`
	NoData         bool             `short:"n" help:"Omit the decompressed payload from the output."`
	Output         string           `short:"o" default:"-" help:"Output file path. (\"-\" for STDOUT)"`
	Reverse        bool             `short:"R" help:"Reverse operation: read records and write gzip binary."`
	Strict         bool             `short:"s" help:"Treat checksum mismatches as errors."`
	Telemetry      bool             `short:"T" optional:"" default:"false" help:"Print telemetry to log after parsing."`
	Verbose        bool             `short:"v" optional:"" help:"Verbose logging."`
	Version        kong.VersionFlag `short:"V" optional:"" help:"Print release version information."`
}

// Run the entrypoint into gziptext as a cli tool
func Run(version, commit, date string) {
	ctx := context.Background()
	var cli CLI
	kong.Parse(&cli,
		kong.Description("Convert gzip files into an editable record form and back"),
		kong.UsageOnError(),
		kong.Vars{
			"version": fmt.Sprintf("%s (%s), commit %s, built at %s", filepath.Base(os.Args[0]), version, commit, date),
		},
	)

	// Check for verbose output
	logLevel := slog.LevelError
	if cli.Verbose {
		logLevel = slog.LevelDebug
	}

	// setup logger
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	// setup telemetry hook
	telemetryToLog := func(ctx context.Context, td *gziptext.TelemetryData) {
		if cli.Telemetry {
			logger.Info("parse finished", "telemetry", td)
		}
	}

	// process cli params
	cfg := gziptext.NewConfig(
		gziptext.WithLogger(logger),
		gziptext.WithMaxInputSize(cli.MaxInputSize),
		gziptext.WithMaxPayloadSize(cli.MaxPayloadSize),
		gziptext.WithPayload(!cli.NoData),
		gziptext.WithStrictCRC(cli.Strict),
		gziptext.WithTelemetryHook(telemetryToLog),
	)

	// open output
	out := io.Writer(os.Stdout)
	if cli.Output != "-" {
		f, err := os.Create(cli.Output)
		if err != nil {
			logger.Error("opening output failed", "err", err)
			os.Exit(-1)
		}
		defer f.Close()
		out = f
	}

	inputs := cli.Files
	if len(inputs) == 0 {
		inputs = []string{"-"}
	}

	var run func(context.Context, io.Writer, string, *gziptext.Config, *CLI) error
	if cli.Reverse {
		if cli.Humanize {
			logger.Error("humanized records cannot be re-assembled, -H and -R are exclusive")
			os.Exit(-1)
		}
		run = assemble
	} else {
		run = disassemble
	}

	// failures are isolated per input, one corrupt file does not stop
	// the remaining ones
	failed := false
	for _, input := range inputs {
		if err := run(ctx, out, input, cfg, &cli); err != nil {
			logger.Error("processing failed", "input", input, "err", err)
			failed = true
		}
	}
	if failed {
		os.Exit(-1)
	}
}

// openInput opens the named input file, with "-" meaning STDIN.
func openInput(name string) (io.Reader, func() error, error) {
	if name == "-" {
		return bufio.NewReader(os.Stdin), func() error { return nil }, nil
	}
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, errors.Wrap(err, "cannot open input")
	}
	return f, f.Close, nil
}

// disassemble parses one gzip input and writes each member as one JSON
// object per line.
func disassemble(ctx context.Context, out io.Writer, input string, cfg *gziptext.Config, cli *CLI) error {
	src, closeInput, err := openInput(input)
	if err != nil {
		return err
	}
	defer closeInput()

	members, err := gziptext.Parse(ctx, src, cfg)

	// members decoded before a failure are still emitted
	enc := json.NewEncoder(out)
	for _, m := range members {
		if encErr := enc.Encode(gziptext.NewRecord(m, cli.Humanize)); encErr != nil {
			return errors.Wrap(encErr, "cannot write record")
		}
	}
	return errors.Wrap(err, "cannot parse gzip stream")
}

// assemble reads JSON-line records from one input and writes the
// re-assembled gzip binary.
func assemble(ctx context.Context, out io.Writer, input string, cfg *gziptext.Config, cli *CLI) error {
	src, closeInput, err := openInput(input)
	if err != nil {
		return err
	}
	defer closeInput()

	dec := json.NewDecoder(src)
	dec.UseNumber()

	w := gziptext.NewWriter(out, cfg)
	line := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var rec gziptext.Record
		if err := dec.Decode(&rec); err == io.EOF {
			return nil
		} else if err != nil {
			return errors.Wrapf(err, "cannot decode record %d", line)
		}

		m, err := rec.Member()
		if err != nil {
			return errors.Wrapf(err, "cannot convert record %d", line)
		}
		if err := w.WriteMember(m); err != nil {
			return errors.Wrapf(err, "cannot write member %d", line)
		}
		line++
	}
}
