// Command schemagen-web serves the schema generation API.
//
// Configuration is read from the environment and an optional .env file:
//
//	SERVER_ADDR=:8080
//	SERVER_WORKERS=0
//	STORAGE_KIND=sqlite
//	STORAGE_DSN=file:app.db
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	configLoader "github.com/andiksetyawan/config"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"schemagen/internal/httpapi"
	"schemagen/internal/metrics"
	"schemagen/internal/metrics/prompush"
	"schemagen/internal/storage"
	_ "schemagen/internal/storage/all"
)

// AppConfig is populated from the environment.
type AppConfig struct {
	Server  ServerConfig  `envPrefix:"SERVER_"`
	Storage StorageConfig `envPrefix:"STORAGE_"`
}

type ServerConfig struct {
	Addr         string `env:"ADDR" envDefault:":8080"`
	Workers      int    `env:"WORKERS" envDefault:"0"`
	MaxBodyBytes int64  `env:"MAX_BODY_BYTES" envDefault:"1048576"`
}

// StorageConfig enables POST /v1/apply when Kind is set.
type StorageConfig struct {
	Kind string `env:"KIND"`
	DSN  string `env:"DSN"`
}

func main() {
	log.Println("Loading configuration...")

	cfg := &AppConfig{}
	loader := configLoader.New(
		configLoader.WithEnvPath(".env"),
	)
	if err := loader.Load(cfg); err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	opts := httpapi.Options{
		Job:          "schemagen-web",
		Workers:      cfg.Server.Workers,
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	}
	if cfg.Storage.Kind != "" {
		repo, err := storage.New(context.Background(), storage.Config{Kind: cfg.Storage.Kind, DSN: cfg.Storage.DSN})
		if err != nil {
			log.Fatalf("Failed to open storage: %v", err)
		}
		opts.Repo = repo
		log.Printf("storage: kind=%s", cfg.Storage.Kind)
	}

	err := serve(cfg.Server.Addr, opts)
	if opts.Repo != nil {
		opts.Repo.Close()
	}
	if err != nil {
		log.Fatalf("error: %v", err)
	}
}

// serve runs the API until SIGINT or SIGTERM and returns once the server has
// shut down.
func serve(addr string, opts httpapi.Options) error {
	handler, err := newHandler(opts, prometheus.DefaultRegisterer, prometheus.DefaultGatherer)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	log.Printf("listening on %s", addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}

// newHandler installs a Prometheus scrape backend on reg and mounts g on
// /metrics next to the API routes.
func newHandler(opts httpapi.Options, reg prometheus.Registerer, g prometheus.Gatherer) (http.Handler, error) {
	b, err := prompush.NewScrapeBackend(opts.Job, reg)
	if err != nil {
		return nil, err
	}
	metrics.SetBackend(b)

	mux := httpapi.NewRouter(opts)
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return mux, nil
}
