// Command schemagen generates SQLite table schemas and Go marshalling helpers
// from record type descriptors.
//
// Usage:
//
//	schemagen -config configs/jobs/sample.json [-validate] [-v]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"schemagen/internal/config"
	"schemagen/internal/metrics"
	"schemagen/internal/metrics/datadog"
	"schemagen/internal/metrics/prompush"

	// register all backends with the storage factory.
	_ "schemagen/internal/storage/all"
)

func main() {
	var (
		cfgPath           string
		metricsBackendFlg string
		pushGatewayURLFlg string
		statsdAddrFlg     string
		validate          bool
	)

	flag.StringVar(&cfgPath, "config", "configs/jobs/sample.json", "job config JSON path")
	flag.StringVar(&metricsBackendFlg, "metrics-backend", "", "metrics backend to use (pushgateway, datadog, none); falls back to env METRICS_BACKEND")
	flag.StringVar(&pushGatewayURLFlg, "pushgateway-url", "", "Pushgateway base URL (overrides env PUSHGATEWAY_URL)")
	flag.StringVar(&statsdAddrFlg, "statsd-addr", "", "DogStatsD address (overrides env DD_DOGSTATSD_ADDR)")
	flag.BoolVar(&validate, "validate", false, "validate the configuration and exit")
	verbose := flag.Bool("v", false, "enable verbose logs")

	flag.Parse()

	j, err := config.Load(cfgPath)
	if err != nil {
		fatalf("%v", err)
	}

	issues := config.ValidateJob(j)
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		log.Printf("Configuration is invalid: %v", cfgPath)
		os.Exit(1)
	}
	if validate {
		log.Printf("Configuration is valid: %v", cfgPath)
		os.Exit(0)
	}

	flush := setupMetrics(j.Job, metricsBackendFlg, pushGatewayURLFlg, statsdAddrFlg, *verbose)

	ctx := context.Background()
	start := time.Now()

	rep, err := run(ctx, j, os.Stderr, *verbose)
	flush()
	if errors.Is(err, errInvalidTypes) {
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("%v", err)
	}

	if *verbose {
		log.Printf("generated %s in %s", strings.Join(rep.Types, ", "), time.Since(start).Truncate(time.Millisecond))
	}
}

// setupMetrics installs the selected backend (flag, then env) and returns a
// function that flushes it.
func setupMetrics(job, backendName, gwURL, statsdAddr string, verbose bool) func() {
	if backendName == "" {
		backendName = os.Getenv("METRICS_BACKEND")
	}
	if job == "" {
		job = "schemagen"
	}

	var (
		b   metrics.Backend
		err error
	)
	switch backendName {
	case "pushgateway":
		if gwURL == "" {
			gwURL = os.Getenv("PUSHGATEWAY_URL")
		}
		if gwURL == "" {
			gwURL = "http://localhost:9091"
		}
		b, err = prompush.NewBackend(job, gwURL)
		if err == nil {
			log.Printf("metrics: url=%v, backend=%v, job_name=%v", gwURL, backendName, job)
		}

	case "datadog":
		if statsdAddr == "" {
			statsdAddr = os.Getenv("DD_DOGSTATSD_ADDR")
		}
		if statsdAddr == "" {
			statsdAddr = "127.0.0.1:8125"
		}
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       statsdAddr,
			Namespace:  "schemagen.",
			GlobalTags: []string{"job:" + job},
		})
		if err == nil {
			log.Printf("metrics: addr=%v, backend=%v", statsdAddr, backendName)
		}

	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", backendName)
		}
		return func() {}

	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", backendName)
		return func() {}
	}

	if err != nil {
		log.Printf("metrics: failed to init %s backend: %v; using nop", backendName, err)
		return func() {}
	}
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Printf("metrics: flush error: %v", err)
		}
	}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
