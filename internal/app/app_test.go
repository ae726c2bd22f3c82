package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/querycore/internal/executor"
	"github.com/specialistvlad/querycore/internal/hcl_adapter"
	"github.com/specialistvlad/querycore/internal/operation"
	"github.com/specialistvlad/querycore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// setupApp writes the blog models plus the given datasource HCL and builds
// an App on them.
func setupApp(t *testing.T, datasourceHCL string, request string, transactional bool) (*App, *testutil.SafeBuffer) {
	t.Helper()

	dir := testutil.WriteFiles(t, map[string]string{
		"datasource.hcl": datasourceHCL,
		"models.hcl":     testutil.BlogHCL,
	})
	out := &testutil.SafeBuffer{}
	cfg, err := NewConfig(Config{
		ConfigPath:    dir,
		Request:       []byte(request),
		Transactional: transactional,
		LogFormat:     "text",
		LogLevel:      "debug",
	})
	require.NoError(t, err)

	a, err := NewApp(out, cfg, hcl_adapter.NewLoader())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })
	return a, out
}

const memoryDatasource = `
datasource {
  provider  = "memory"
  pool_size = 2
}
`

func TestApp_RunSingle(t *testing.T) {
	a, out := setupApp(t, memoryDatasource, `{
		"action": "createOne",
		"model": "User",
		"data": {"email": "a@example.com"},
		"nested": [{"field": "posts", "action": "createOne", "data": {"title": "Hello"}}]
	}`, false)

	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), `"email":"a@example.com"`)
	assert.Contains(t, out.String(), `"title":"Hello"`)
	assert.Contains(t, out.String(), "Operation executed.")
}

func TestApp_RunBatch(t *testing.T) {
	t.Run("independent", func(t *testing.T) {
		a, out := setupApp(t, memoryDatasource, `[
			{"action": "createOne", "model": "User", "data": {"email": "a@example.com"}},
			{"action": "createOne", "model": "User", "data": {"email": "a@example.com"}}
		]`, false)

		require.NoError(t, a.Run(context.Background()))
		assert.Contains(t, out.String(), `{"data":{"email":"a@example.com"`)
		assert.Contains(t, out.String(), `"error":"`)
	})

	t.Run("transactional", func(t *testing.T) {
		a, out := setupApp(t, memoryDatasource, `[
			{"action": "createOne", "model": "User", "data": {"email": "a@example.com"}},
			{"action": "createOne", "model": "User", "data": {"email": "a@example.com"}}
		]`, true)

		err := a.Run(context.Background())
		var batchErr *executor.BatchError
		require.ErrorAs(t, err, &batchErr)
		assert.Equal(t, 1, batchErr.Index)
		assert.Contains(t, out.String(), "operation 0 not applied")

		users, err := a.Executor().Execute(context.Background(), executor.NoTx,
			operation.Operation{Action: operation.FindMany, Model: "User"}, a.Schema())
		require.NoError(t, err)
		assert.Empty(t, users.Items)
	})
}

func TestApp_RunWithoutRequest(t *testing.T) {
	a, out := setupApp(t, memoryDatasource, "", false)
	require.NoError(t, a.Run(context.Background()))
	assert.Contains(t, out.String(), "No operations requested")
}

func TestApp_RunInvalidRequest(t *testing.T) {
	a, _ := setupApp(t, memoryDatasource, `{"action": "upsert"}`, false)
	err := a.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid request")
}

func TestApp_BoltDatasource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blog.db")
	a, _ := setupApp(t, `
datasource {
  provider = "bolt"
  url      = "`+path+`"
}
`, "", false)
	assert.Equal(t, "bolt", a.Executor().PrimaryConnector().Name())

	ctx := context.Background()
	_, err := a.Executor().Execute(ctx, executor.NoTx, operation.Operation{
		Action: operation.CreateOne,
		Model:  "User",
		Data:   map[string]cty.Value{"email": cty.StringVal("a@example.com")},
	}, a.Schema())
	require.NoError(t, err)

	users, err := a.Executor().Execute(ctx, executor.NoTx,
		operation.Operation{Action: operation.FindMany, Model: "User"}, a.Schema())
	require.NoError(t, err)
	require.Len(t, users.Items, 1)
}

func TestApp_HealthAndMetrics(t *testing.T) {
	a, _ := setupApp(t, memoryDatasource, `{"action": "findMany", "model": "User"}`, false)
	require.NoError(t, a.Run(context.Background()))

	rec := httptest.NewRecorder()
	a.handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK\n", rec.Body.String())

	rec = httptest.NewRecorder()
	a.handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `querycore_operations_total{mode="implicit",status="ok"} 1`)
}

func TestNewApp_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name:    "invalid hcl",
			files:   map[string]string{"a.hcl": `model "A" {`},
			wantErr: "failed to load configuration",
		},
		{
			name: "invalid schema",
			files: map[string]string{"a.hcl": `
model "A" {
  field "name" {
    type = String
  }
}
`},
			wantErr: "has no primary key",
		},
		{
			name: "unreachable bolt file",
			files: map[string]string{"a.hcl": `
datasource {
  provider = "bolt"
  url      = "/nonexistent/dir/blog.db"
}
`},
			wantErr: "opening bolt datasource",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			dir := testutil.WriteFiles(t, tc.files)
			_, err := NewApp(&testutil.SafeBuffer{}, &Config{ConfigPath: dir}, hcl_adapter.NewLoader())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestNewConfig(t *testing.T) {
	_, err := NewConfig(Config{})
	assert.Error(t, err)

	cfg, err := NewConfig(Config{ConfigPath: "engine.hcl"})
	require.NoError(t, err)
	assert.Equal(t, "engine.hcl", cfg.ConfigPath)
}
