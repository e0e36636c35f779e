// Package httpapi serves schema generation over HTTP.
//
//	GET  /health
//	POST /v1/schema           descriptor document -> table schemas and rules
//	POST /v1/emit?package=x   descriptor document -> generated Go sources
//	POST /v1/apply            descriptor document -> CREATE TABLE on the store
package httpapi

import (
	"errors"
	"fmt"
	"go/token"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	"schemagen/internal/descriptor"
	"schemagen/internal/generator"
	"schemagen/internal/marshal"
	"schemagen/internal/metrics"
	"schemagen/internal/storage"
	"schemagen/internal/storage/sqlite/ddl"
)

// Options configures the router.
type Options struct {
	// Job labels recorded metrics.
	Job string
	// Workers bounds concurrent generation; 0 means one per CPU.
	Workers int
	// Repo, when set, enables POST /v1/apply.
	Repo storage.Repository
	// MaxBodyBytes caps request bodies; 0 means 1 MiB.
	MaxBodyBytes int64
}

type handler struct {
	opts Options
}

// NewRouter builds the chi router for the API.
func NewRouter(opts Options) *chi.Mux {
	if opts.Job == "" {
		opts.Job = "schemagen-web"
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 1 << 20
	}
	h := &handler{opts: opts}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/health", h.health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/schema", h.schema)
		r.Post("/emit", h.emit)
		r.Post("/apply", h.apply)
	})
	return r
}

// TypeSchema is the /v1/schema view of one record type.
type TypeSchema struct {
	Type        string                 `json:"type"`
	Table       string                 `json:"table"`
	DDL         string                 `json:"ddl"`
	Fingerprint string                 `json:"fingerprint"`
	Columns     []ddl.ColumnDefinition `json:"columns"`
	Rules       []marshal.Rule         `json:"rules"`
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	success(w, r, "ok", map[string]any{"storage": h.opts.Repo != nil})
}

func (h *handler) schema(w http.ResponseWriter, r *http.Request) {
	results, ok := h.generate(w, r)
	if !ok {
		return
	}
	out := make([]TypeSchema, len(results))
	for i, res := range results {
		out[i] = TypeSchema{
			Type:        res.Type.Name,
			Table:       res.Schema.Table,
			DDL:         res.Schema.DDL,
			Fingerprint: generator.Fingerprint(res.Schema.DDL),
			Columns:     res.Schema.Columns,
			Rules:       res.Rules,
		}
	}
	success(w, r, "generated", out)
}

func (h *handler) emit(w http.ResponseWriter, r *http.Request) {
	pkg := r.URL.Query().Get("package")
	if pkg == "" {
		pkg = "model"
	}
	if !token.IsIdentifier(pkg) {
		fail(w, r, http.StatusBadRequest, fmt.Sprintf("invalid package name %q", pkg), nil)
		return
	}

	results, ok := h.generate(w, r)
	if !ok {
		return
	}

	start := time.Now()
	files := make(map[string]string, len(results)+1)
	for _, res := range results {
		src, err := generator.Emit(pkg, res)
		if err != nil {
			metrics.RecordStep(h.opts.Job, "emit", err, time.Since(start))
			fail(w, r, http.StatusUnprocessableEntity, err.Error(), nil)
			return
		}
		files[generator.FileName(res.Type)] = string(src)
	}
	files["schema.sql"] = string(generator.EmitDDL(results...))
	metrics.RecordStep(h.opts.Job, "emit", nil, time.Since(start))
	metrics.RecordCount(h.opts.Job, "files", int64(len(files)))

	success(w, r, "emitted", files)
}

func (h *handler) apply(w http.ResponseWriter, r *http.Request) {
	if h.opts.Repo == nil {
		fail(w, r, http.StatusServiceUnavailable, "no storage configured", nil)
		return
	}
	results, ok := h.generate(w, r)
	if !ok {
		return
	}

	start := time.Now()
	stmts := make([]string, len(results))
	tables := make([]string, len(results))
	for i, res := range results {
		stmts[i] = res.Schema.DDL
		tables[i] = res.Schema.Table
	}
	err := storage.EnsureTables(r.Context(), h.opts.Repo, stmts...)
	metrics.RecordStep(h.opts.Job, "apply", err, time.Since(start))
	if err != nil {
		fail(w, r, http.StatusInternalServerError, err.Error(), nil)
		return
	}
	success(w, r, "applied", tables)
}

// generate decodes the descriptor document in the body, validates it and
// runs the generator. On failure it writes the response and returns false.
func (h *handler) generate(w http.ResponseWriter, r *http.Request) ([]generator.Result, bool) {
	start := time.Now()
	body := http.MaxBytesReader(w, r.Body, h.opts.MaxBodyBytes)

	cat, err := descriptor.Load(body)
	metrics.RecordStep(h.opts.Job, "load", err, time.Since(start))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			fail(w, r, http.StatusRequestEntityTooLarge, err.Error(), nil)
			return nil, false
		}
		fail(w, r, http.StatusBadRequest, err.Error(), nil)
		return nil, false
	}

	types, errs := descriptor.Concrete(cat)
	metrics.RecordCount(h.opts.Job, "invalid", int64(len(errs)))
	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		fail(w, r, http.StatusBadRequest, msgs[0], msgs)
		return nil, false
	}
	if len(types) == 0 {
		fail(w, r, http.StatusBadRequest, "document declares no concrete record types", nil)
		return nil, false
	}

	start = time.Now()
	results, err := generator.GenerateAll(r.Context(), types, h.opts.Workers)
	metrics.RecordStep(h.opts.Job, "generate", err, time.Since(start))
	if err != nil {
		fail(w, r, http.StatusInternalServerError, err.Error(), nil)
		return nil, false
	}
	metrics.RecordCount(h.opts.Job, "types", int64(len(results)))
	return results, true
}
