package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"schemagen/internal/config"
	"schemagen/internal/descriptor"
	"schemagen/internal/generator"
	"schemagen/internal/metrics"
	"schemagen/internal/schema"
	"schemagen/internal/storage"
)

// errInvalidTypes is returned when at least one record type fails
// validation. The individual failures have already been printed.
var errInvalidTypes = errors.New("invalid record types")

// report summarises one run.
type report struct {
	Types   []string
	Files   []string
	Applied []string
}

// run executes a job: load descriptors, validate, generate, write files and
// optionally apply the DDL. Validation failures are written to stderr as
// "error: <element>: <message>".
func run(ctx context.Context, j config.Job, stderr io.Writer, verbose bool) (report, error) {
	var rep report

	types, err := step(j.Job, "load", func() ([]*schema.RecordType, error) {
		return loadTypes(j.Descriptors)
	})
	if err != nil {
		return rep, err
	}

	types, err = step(j.Job, "validate", func() ([]*schema.RecordType, error) {
		valid, errs := validateTypes(types)
		for _, e := range errs {
			fmt.Fprintf(stderr, "error: %v\n", e)
		}
		for _, w := range unknownTypes(valid) {
			fmt.Fprintf(stderr, "warning: %s\n", w)
		}
		metrics.RecordCount(j.Job, "invalid", int64(len(errs)))
		if len(errs) > 0 {
			return nil, errInvalidTypes
		}
		return valid, nil
	})
	if err != nil {
		return rep, err
	}

	workers := j.Runtime.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	results, err := step(j.Job, "generate", func() ([]generator.Result, error) {
		return generator.GenerateAll(ctx, types, workers)
	})
	if err != nil {
		return rep, err
	}
	columns := 0
	for _, res := range results {
		rep.Types = append(rep.Types, res.Type.Name)
		columns += len(res.Rules)
	}
	metrics.RecordCount(j.Job, "types", int64(len(results)))
	metrics.RecordCount(j.Job, "columns", int64(columns))

	rep.Files, err = step(j.Job, "write", func() ([]string, error) {
		return writeOutputs(ctx, j.Output, results, workers)
	})
	if err != nil {
		return rep, err
	}
	metrics.RecordCount(j.Job, "files", int64(len(rep.Files)))
	if verbose {
		log.Printf("wrote %d files to %s", len(rep.Files), j.Output.Dir)
	}

	if j.Storage.Kind != "" && j.Storage.AutoCreateTable {
		rep.Applied, err = step(j.Job, "apply", func() ([]string, error) {
			return applyDDL(ctx, j.Storage, results)
		})
		if err != nil {
			return rep, err
		}
		if verbose {
			log.Printf("applied %d tables to %s", len(rep.Applied), j.Storage.Kind)
		}
	}
	return rep, nil
}

// step runs fn and records its duration and outcome.
func step[T any](job, name string, fn func() (T, error)) (T, error) {
	start := time.Now()
	v, err := fn()
	metrics.RecordStep(job, name, err, time.Since(start))
	return v, err
}

// loadTypes reads each descriptor file in order. A type name may only be
// declared once across all files.
func loadTypes(paths []string) ([]*schema.RecordType, error) {
	var (
		out  []*schema.RecordType
		seen = map[string]string{}
	)
	for _, p := range paths {
		cat, err := descriptor.LoadFile(p)
		if err != nil {
			return nil, err
		}
		for _, rt := range cat.Types {
			if prev, dup := seen[rt.Name]; dup {
				return nil, fmt.Errorf("%s: type %s already declared in %s", p, rt.Name, prev)
			}
			seen[rt.Name] = p
			out = append(out, rt)
		}
	}
	return out, nil
}

// validateTypes drops abstract types and validates the rest.
func validateTypes(types []*schema.RecordType) ([]*schema.RecordType, []error) {
	var (
		out  []*schema.RecordType
		errs []error
	)
	for _, rt := range types {
		if rt.Abstract {
			continue
		}
		if err := descriptor.Validate(rt); err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, rt)
	}
	return out, errs
}

// unknownTypes lists the columns whose semantic type is not recognised.
// They are still generated, as TEXT columns read with the string reader.
func unknownTypes(types []*schema.RecordType) []string {
	var out []string
	for _, rt := range types {
		for _, f := range schema.Columns(rt) {
			if !f.Type.Known() {
				out = append(out, fmt.Sprintf("%s.%s: unknown type %q, stored as TEXT", rt.Name, f.Name, f.Type))
			}
		}
	}
	return out
}

// writeOutputs emits one helper per result, plus the DDL file when
// configured. File names are returned sorted.
func writeOutputs(ctx context.Context, out config.Output, results []generator.Result, workers int) ([]string, error) {
	if err := os.MkdirAll(out.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	files := make([]string, len(results))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, res := range results {
		i, res := i, res
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			src, err := generator.Emit(out.Package, res)
			if err != nil {
				return err
			}
			path := filepath.Join(out.Dir, generator.FileName(res.Type))
			if err := os.WriteFile(path, src, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			files[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if out.DDLFile != "" {
		path := filepath.Join(out.Dir, out.DDLFile)
		if err := os.WriteFile(path, generator.EmitDDL(results...), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		files = append(files, path)
	}
	sort.Strings(files)
	return files, nil
}

// applyDDL opens the configured store and creates every table.
func applyDDL(ctx context.Context, s config.Storage, results []generator.Result) ([]string, error) {
	repo, err := storage.New(ctx, storage.Config{Kind: s.Kind, DSN: s.DSN})
	if err != nil {
		return nil, fmt.Errorf("apply: %w", err)
	}
	defer repo.Close()

	stmts := make([]string, len(results))
	tables := make([]string, len(results))
	for i, res := range results {
		stmts[i] = res.Schema.DDL
		tables[i] = res.Schema.Table
	}
	if err := storage.EnsureTables(ctx, repo, stmts...); err != nil {
		return nil, fmt.Errorf("apply: %w", err)
	}
	return tables, nil
}
