// Package config defines the JSON job file read by the schemagen CLI.
//
// Example:
//
//	{
//	  "job": "notes",
//	  "descriptors": ["schemas/notes.json"],
//	  "output":  { "dir": "gen", "package": "model", "ddl_file": "schema.sql" },
//	  "storage": { "kind": "sqlite", "dsn": "file:notes.db", "auto_create_table": true },
//	  "runtime": { "workers": 4, "batch_size": 500 }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"os"
)

// Defaults applied by WithDefaults.
const (
	DefaultPackage   = "model"
	DefaultBatchSize = 500
)

// Job is the top-level object decoded from a job file.
type Job struct {
	// Job names the run; it labels metrics.
	Job string `json:"job"`

	// Descriptors lists descriptor documents to load, in order.
	Descriptors []string `json:"descriptors"`

	Output  Output        `json:"output"`
	Storage Storage       `json:"storage"`
	Runtime RuntimeConfig `json:"runtime"`
}

// Output controls where generated files go.
type Output struct {
	// Dir receives one <snake>_helper.go per record type.
	Dir string `json:"dir"`
	// Package is the Go package name of the generated helpers.
	Package string `json:"package"`
	// DDLFile, when set, is written under Dir with every CREATE TABLE
	// statement.
	DDLFile string `json:"ddl_file"`
}

// Storage optionally applies the generated DDL to a database.
type Storage struct {
	// Kind selects a registered backend ("sqlite", "gorm-sqlite"). Empty
	// disables the storage step.
	Kind string `json:"kind"`
	DSN  string `json:"dsn"`

	// AutoCreateTable runs the generated CREATE TABLE statements.
	AutoCreateTable bool `json:"auto_create_table"`
}

// RuntimeConfig controls concurrency and batching.
type RuntimeConfig struct {
	// Workers bounds concurrent generation; 0 means one per CPU.
	Workers   int `json:"workers"`
	BatchSize int `json:"batch_size"`
}

// Load reads and decodes the job file at path. Unknown keys are rejected.
func Load(path string) (Job, error) {
	f, err := os.Open(path)
	if err != nil {
		return Job{}, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	var j Job
	dec := json.NewDecoder(f)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&j); err != nil {
		return Job{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return j.WithDefaults(), nil
}

// WithDefaults fills unset optional fields.
func (j Job) WithDefaults() Job {
	if j.Output.Package == "" {
		j.Output.Package = DefaultPackage
	}
	if j.Runtime.BatchSize == 0 {
		j.Runtime.BatchSize = DefaultBatchSize
	}
	return j
}
