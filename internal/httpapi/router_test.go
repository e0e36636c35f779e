package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"schemagen/internal/storage"
	_ "schemagen/internal/storage/sqlite"
)

const simpleBeanDoc = `{"types":[
  {"name":"Entity","abstract":true,"fields":[
    {"name":"id","type":"int","primary_key":true,"auto_increment":true}]},
  {"name":"SimpleBean","parent":"Entity","fields":[
    {"name":"active","type":"bool"},
    {"name":"str","type":"string"},
    {"name":"date","type":"date"}]}
]}`

const simpleBeanDDL = "create table if not exists SimpleBean(id INTEGER primary key autoincrement, active BOOLEAN, str TEXT, date INTEGER)"

type envelope struct {
	Status int             `json:"status"`
	Msg    string          `json:"msg"`
	Data   json.RawMessage `json:"data"`
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return rec, env
}

func TestHealth(t *testing.T) {
	rec, env := do(t, NewRouter(Options{}), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, env.Status)
	assert.JSONEq(t, `{"storage":false}`, string(env.Data))
}

func TestSchema(t *testing.T) {
	rec, env := do(t, NewRouter(Options{Workers: 2}), http.MethodPost, "/v1/schema", simpleBeanDoc)
	require.Equal(t, http.StatusOK, rec.Code, env.Msg)

	var got []TypeSchema
	require.NoError(t, json.Unmarshal(env.Data, &got))
	require.Len(t, got, 1, "abstract types produce no table")

	ts := got[0]
	assert.Equal(t, "SimpleBean", ts.Type)
	assert.Equal(t, "SimpleBean", ts.Table)
	assert.Equal(t, simpleBeanDDL, ts.DDL)
	assert.True(t, strings.HasPrefix(ts.Fingerprint, "xxh3:"))
	require.Len(t, ts.Rules, 4)
	assert.Equal(t, "isActive", ts.Rules[1].Accessor)
	assert.Equal(t, "setActive", ts.Rules[1].Setter)
	assert.Equal(t, 3, ts.Rules[3].Column)
}

func TestSchemaRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		body string
		msg  string
	}{
		{"malformed", `{"types":`, "decode"},
		{"unknown parent", `{"types":[{"name":"A","parent":"Nope","fields":[]}]}`, "Nope"},
		{"unexported", `{"types":[{"name":"bean","fields":[{"name":"x","type":"int"}]}]}`, "The type bean is not exported."},
		{"no concrete types", `{"types":[{"name":"Base","abstract":true,"fields":[]}]}`, "no concrete record types"},
	}

	h := NewRouter(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, h, http.MethodPost, "/v1/schema", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, http.StatusBadRequest, env.Status)
			assert.Contains(t, env.Msg, tt.msg)
		})
	}
}

func TestSchemaBodyLimit(t *testing.T) {
	rec, env := do(t, NewRouter(Options{MaxBodyBytes: 16}), http.MethodPost, "/v1/schema", simpleBeanDoc)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, env.Msg)
}

func TestEmit(t *testing.T) {
	rec, env := do(t, NewRouter(Options{}), http.MethodPost, "/v1/emit?package=beans", simpleBeanDoc)
	require.Equal(t, http.StatusOK, rec.Code, env.Msg)

	var files map[string]string
	require.NoError(t, json.Unmarshal(env.Data, &files))

	src, ok := files["simple_bean_helper.go"]
	require.True(t, ok, "files: %v", files)
	assert.Contains(t, src, "package beans")
	assert.Contains(t, src, "type SimpleBeanHelper struct{}")
	assert.Contains(t, src, "data.IsActive()")
	assert.Contains(t, src, "SetStr(")

	assert.Contains(t, files["schema.sql"], simpleBeanDDL+";")
}

func TestEmitRejectsBadPackage(t *testing.T) {
	rec, env := do(t, NewRouter(Options{}), http.MethodPost, "/v1/emit?package=my-beans", simpleBeanDoc)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, env.Msg, "invalid package name")
}

func TestApply(t *testing.T) {
	rec, env := do(t, NewRouter(Options{}), http.MethodPost, "/v1/apply", simpleBeanDoc)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code, env.Msg)

	repo, err := storage.New(context.Background(), storage.Config{Kind: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	defer repo.Close()

	h := NewRouter(Options{Repo: repo})
	for i := 0; i < 2; i++ {
		rec, env = do(t, h, http.MethodPost, "/v1/apply", simpleBeanDoc)
		require.Equal(t, http.StatusOK, rec.Code, env.Msg)
		assert.JSONEq(t, `["SimpleBean"]`, string(env.Data))
	}

	n, err := repo.Insert(context.Background(), "SimpleBean", []string{"active", "str"}, [][]any{{true, "x"}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}
