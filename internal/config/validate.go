package config

import (
	"fmt"
	"go/token"
	"path/filepath"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is reported but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path is a dotted path into
// the job file, e.g. "output.package" or "descriptors[1]".
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether issues contains at least one SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// ValidateJob performs static validation of j. It does not mutate j.
func ValidateJob(j Job) []Issue {
	var issues []Issue

	if strings.TrimSpace(j.Job) == "" {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "job",
			Message:  "job must not be empty; it is used for metrics labeling and identifying runs",
		})
	}

	if len(j.Descriptors) == 0 {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "descriptors",
			Message:  "at least one descriptor file is required",
		})
	}
	seen := map[string]int{}
	for i, d := range j.Descriptors {
		path := fmt.Sprintf("descriptors[%d]", i)
		if strings.TrimSpace(d) == "" {
			issues = append(issues, Issue{Severity: SeverityError, Path: path, Message: "descriptor path must not be empty"})
			continue
		}
		clean := filepath.Clean(d)
		if prev, dup := seen[clean]; dup {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     path,
				Message:  fmt.Sprintf("duplicate of descriptors[%d]", prev),
			})
			continue
		}
		seen[clean] = i
	}

	issues = append(issues, validateOutput(j.Output)...)
	issues = append(issues, validateStorage(j.Storage)...)
	issues = append(issues, validateRuntime(j.Runtime)...)
	return issues
}

func validateOutput(o Output) []Issue {
	var issues []Issue

	if strings.TrimSpace(o.Dir) == "" {
		issues = append(issues, Issue{Severity: SeverityError, Path: "output.dir", Message: "output.dir must not be empty"})
	}
	if o.Package != "" && !token.IsIdentifier(o.Package) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Path:     "output.package",
			Message:  fmt.Sprintf("%q is not a valid Go package name", o.Package),
		})
	}
	if o.DDLFile != "" {
		if filepath.IsAbs(o.DDLFile) || strings.Contains(filepath.ToSlash(o.DDLFile), "/") {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "output.ddl_file",
				Message:  "ddl_file must be a bare file name; it is written under output.dir",
			})
		} else if filepath.Ext(o.DDLFile) != ".sql" {
			issues = append(issues, Issue{
				Severity: SeverityWarning,
				Path:     "output.ddl_file",
				Message:  fmt.Sprintf("ddl_file %q does not end in .sql", o.DDLFile),
			})
		}
	}
	return issues
}

func validateStorage(s Storage) []Issue {
	var issues []Issue

	if s.Kind == "" {
		if s.AutoCreateTable {
			issues = append(issues, Issue{
				Severity: SeverityError,
				Path:     "storage.kind",
				Message:  "auto_create_table requires a storage kind",
			})
		}
		return issues
	}

	known := map[string]struct{}{
		"sqlite":      {},
		"gorm-sqlite": {},
	}
	if _, ok := known[s.Kind]; !ok {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.kind",
			Message:  fmt.Sprintf("unknown storage kind %q; ensure a matching backend is registered", s.Kind),
		})
	}
	if strings.TrimSpace(s.DSN) == "" {
		issues = append(issues, Issue{Severity: SeverityError, Path: "storage.dsn", Message: "storage.dsn must not be empty"})
	}
	if !s.AutoCreateTable {
		issues = append(issues, Issue{
			Severity: SeverityWarning,
			Path:     "storage.auto_create_table",
			Message:  "storage is configured but auto_create_table is false; nothing will be applied",
		})
	}
	return issues
}

func validateRuntime(r RuntimeConfig) []Issue {
	var issues []Issue
	if r.Workers < 0 {
		issues = append(issues, Issue{Severity: SeverityError, Path: "runtime.workers", Message: "workers must be >= 0"})
	}
	if r.BatchSize < 0 {
		issues = append(issues, Issue{Severity: SeverityError, Path: "runtime.batch_size", Message: "batch_size must be >= 0"})
	}
	return issues
}
