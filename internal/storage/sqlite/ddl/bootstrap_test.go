package ddl

import (
	"context"
	"errors"
	"strings"
	"testing"

	"schemagen/internal/storage"
)

// fakeRepository is a test double for storage.Repository used to verify
// EnsureTable behavior without hitting a real database.
type fakeRepository struct {
	storage.Repository
	execCalls int
	lastSQL   string
	err       error
}

func (f *fakeRepository) Exec(ctx context.Context, sql string) error {
	f.execCalls++
	f.lastSQL = sql
	return f.err
}

// TestEnsureTableExecutesSQL verifies that EnsureTable builds a CREATE TABLE
// statement and passes it to the repository's Exec method.
func TestEnsureTableExecutesSQL(t *testing.T) {
	t.Parallel()

	var repo fakeRepository
	ts, err := EnsureTable(context.Background(), &repo, simpleBean())
	if err != nil {
		t.Fatalf("EnsureTable() error = %v", err)
	}

	if repo.execCalls != 1 {
		t.Fatalf("repo.Exec called %d times, want 1", repo.execCalls)
	}
	if repo.lastSQL != ts.DDL {
		t.Fatalf("repo.Exec SQL = %q, want %q", repo.lastSQL, ts.DDL)
	}
	if !strings.HasPrefix(repo.lastSQL, "create table if not exists SimpleBean(") {
		t.Fatalf("repo.Exec SQL does not start with create table if not exists:\n%s", repo.lastSQL)
	}
}

// TestEnsureTablePropagatesExecError verifies Exec failures are wrapped with
// the table name.
func TestEnsureTablePropagatesExecError(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("disk full")
	repo := fakeRepository{err: wantErr}

	_, err := EnsureTable(context.Background(), &repo, simpleBean())
	if !errors.Is(err, wantErr) {
		t.Fatalf("EnsureTable() error = %v, want %v", err, wantErr)
	}
	if !strings.Contains(err.Error(), "SimpleBean") {
		t.Fatalf("EnsureTable() error %q does not name the table", err)
	}
}
