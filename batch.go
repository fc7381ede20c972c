// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package gziptext

import (
	"context"
	"os"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// FileResult is the outcome of parsing one input file.
type FileResult struct {
	// Name is the path of the input file
	Name string

	// Members holds the members parsed before the first error, if any
	Members []*Member

	// Err is the first error encountered for this file
	Err error
}

// ParseFiles parses several independent gzip files concurrently.
// Failures are isolated per file: a corrupt file yields a FileResult
// with Err set and does not abort processing of the others. Results are
// returned in input order.
func ParseFiles(ctx context.Context, paths []string, cfg *Config) []FileResult {
	if cfg == nil {
		cfg = NewConfig()
	}

	results := make([]FileResult, len(paths))
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(runtime.GOMAXPROCS(0))

	for i, path := range paths {
		i, path := i, path
		eg.Go(func() error {
			results[i] = parseFile(ctx, path, cfg)
			return nil
		})
	}

	// the group never carries an error, failures live in the results
	_ = eg.Wait()
	return results
}

func parseFile(ctx context.Context, path string, cfg *Config) FileResult {
	f, err := os.Open(path)
	if err != nil {
		return FileResult{Name: path, Err: errors.Wrap(err, "cannot open input")}
	}
	defer f.Close()

	members, err := Parse(ctx, f, cfg)
	return FileResult{
		Name:    path,
		Members: members,
		Err:     errors.Wrap(err, "cannot parse input"),
	}
}
