package config

import (
	"strings"
	"testing"
)

// hasIssue reports whether issues contains an Issue with the given severity,
// path, and a Message containing msgSubstr.
func hasIssue(t *testing.T, issues []Issue, sev IssueSeverity, path, msgSubstr string) bool {
	t.Helper()
	for _, iss := range issues {
		if iss.Severity == sev && iss.Path == path && strings.Contains(iss.Message, msgSubstr) {
			return true
		}
	}
	return false
}

func validJob() Job {
	return Job{
		Job:         "notes",
		Descriptors: []string{"schemas/notes.json"},
		Output:      Output{Dir: "gen", Package: "model", DDLFile: "schema.sql"},
		Storage:     Storage{Kind: "sqlite", DSN: "file:notes.db", AutoCreateTable: true},
		Runtime:     RuntimeConfig{Workers: 2, BatchSize: 100},
	}
}

func TestValidateJob_ValidMinimal(t *testing.T) {
	t.Parallel()

	if issues := ValidateJob(validJob()); len(issues) != 0 {
		t.Fatalf("expected no issues, got %+v", issues)
	}

	j := validJob()
	j.Storage = Storage{}
	j.Output.DDLFile = ""
	if issues := ValidateJob(j); len(issues) != 0 {
		t.Fatalf("expected no issues without storage, got %+v", issues)
	}
}

func TestValidateJob_Issues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(j *Job)
		sev    IssueSeverity
		path   string
		msg    string
	}{
		{"missing job", func(j *Job) { j.Job = " " }, SeverityError, "job", "job must not be empty"},
		{"no descriptors", func(j *Job) { j.Descriptors = nil }, SeverityError, "descriptors", "at least one"},
		{"blank descriptor", func(j *Job) { j.Descriptors = []string{"a.json", ""} }, SeverityError, "descriptors[1]", "must not be empty"},
		{"duplicate descriptor", func(j *Job) { j.Descriptors = []string{"a.json", "./a.json"} }, SeverityWarning, "descriptors[1]", "duplicate of descriptors[0]"},
		{"missing output dir", func(j *Job) { j.Output.Dir = "" }, SeverityError, "output.dir", "must not be empty"},
		{"bad package", func(j *Job) { j.Output.Package = "my-model" }, SeverityError, "output.package", "not a valid Go package name"},
		{"nested ddl file", func(j *Job) { j.Output.DDLFile = "sql/schema.sql" }, SeverityError, "output.ddl_file", "bare file name"},
		{"ddl extension", func(j *Job) { j.Output.DDLFile = "schema.txt" }, SeverityWarning, "output.ddl_file", "does not end in .sql"},
		{"auto create without kind", func(j *Job) { j.Storage.Kind = "" }, SeverityError, "storage.kind", "requires a storage kind"},
		{"unknown kind", func(j *Job) { j.Storage.Kind = "postgres" }, SeverityWarning, "storage.kind", "unknown storage kind"},
		{"missing dsn", func(j *Job) { j.Storage.DSN = "" }, SeverityError, "storage.dsn", "must not be empty"},
		{"nothing applied", func(j *Job) { j.Storage.AutoCreateTable = false }, SeverityWarning, "storage.auto_create_table", "nothing will be applied"},
		{"negative workers", func(j *Job) { j.Runtime.Workers = -1 }, SeverityError, "runtime.workers", ">= 0"},
		{"negative batch", func(j *Job) { j.Runtime.BatchSize = -5 }, SeverityError, "runtime.batch_size", ">= 0"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			j := validJob()
			tt.mutate(&j)
			issues := ValidateJob(j)
			if !hasIssue(t, issues, tt.sev, tt.path, tt.msg) {
				t.Fatalf("expected %s at %s containing %q; got %+v", tt.sev, tt.path, tt.msg, issues)
			}
		})
	}
}

func TestHasErrorsAndIssueError(t *testing.T) {
	t.Parallel()

	warn := Issue{Severity: SeverityWarning, Path: "storage.kind", Message: "m"}
	if HasErrors([]Issue{warn}) {
		t.Fatalf("HasErrors(warning only) = true")
	}
	if !HasErrors([]Issue{warn, {Severity: SeverityError, Path: "job", Message: "x"}}) {
		t.Fatalf("HasErrors(with error) = false")
	}
	if got, want := warn.Error(), "warning at storage.kind: m"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}
