package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/formflow"
	"github.com/aretw0/formflow/internal/config"
	"github.com/aretw0/formflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Database.Path = filepath.Join(t.TempDir(), "app.db")
	cfg.Log.Level = "error"
	return &cfg
}

func startDemo(t *testing.T, a *app) int {
	t.Helper()
	form, err := a.admin.SeedDemo(context.Background())
	require.NoError(t, err)

	body := strings.NewReader(`{"user_id": 1, "form_id": ` + strconv.FormatInt(form.ID, 10) + `}`)
	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/start", body))
	return rec.Code
}

func TestNewApp_Memory(t *testing.T) {
	a, err := newApp(context.Background(), testConfig(t))
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, http.StatusOK, startDemo(t, a))

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/forms", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestNewApp_RedisAndNoAdmin(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig(t)
	cfg.Cache.Driver = config.CacheRedis
	cfg.Redis.Addr = mr.Addr()
	cfg.Redis.Lock = true
	cfg.Server.Admin = false

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, http.StatusOK, startDemo(t, a))
	assert.NotEmpty(t, mr.Keys(), "session state is published to redis")

	rec := httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/forms", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	mr.Close()
	rec = httptest.NewRecorder()
	a.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCommands(t *testing.T) {
	db := filepath.Join(t.TempDir(), "cli.db")
	blueprint := filepath.Join(t.TempDir(), "extra.yaml")
	require.NoError(t, os.WriteFile(blueprint, []byte(`
forms:
  - code: extra
    title: Extra
    steps:
      - {code: only, title: Only, type: review, is_terminal: true}
  - code: stub
    title: Stub
    steps:
      - {code: lonely, title: Lonely, type: questionnaire}
`), 0o600))

	execute := func(args ...string) (string, error) {
		var out bytes.Buffer
		rootCmd.SetOut(&out)
		rootCmd.SetErr(&out)
		rootCmd.SetArgs(args)
		err := rootCmd.Execute()
		return out.String(), err
	}
	run := func(args ...string) string {
		out, err := execute(args...)
		require.NoError(t, err, out)
		return out
	}

	out := run("migrate", "--db", db, "--log-level", "error", "--demo", "--blueprint", blueprint)
	assert.Contains(t, out, "schema version 1")
	assert.Contains(t, out, `demo form "dev_survey"`)
	assert.Contains(t, out, `form "extra" created`)

	out = run("validate", "--db", db, "dev_survey", "extra")
	assert.Contains(t, out, `form "dev_survey" is valid`)
	assert.Contains(t, out, `form "extra" is valid`)

	out, err := execute("validate", "--db", db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 3 forms have problems")
	assert.Contains(t, out, "step 'lonely' is not terminal")

	_, err = execute("graph", "--db", db, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	out = run("graph", "--db", db, "dev_survey")
	assert.Contains(t, out, "graph TD")
	assert.Contains(t, out, `step_1_intro -- "p10: Developer = yes" --> step_2_dev`)
	assert.NotContains(t, out, "classDef")

	ctx := context.Background()
	eng, err := formflow.Open(ctx, db)
	require.NoError(t, err)
	form, err := eng.Store().GetFormByCode(ctx, "dev_survey")
	require.NoError(t, err)
	inst, err := eng.StartInstance(ctx, form.ID, "cli-user")
	require.NoError(t, err)
	_, err = eng.SubmitStep(ctx, inst.ID, []domain.AnswerInput{{FieldCode: "is_dev", Value: true}})
	require.NoError(t, err)
	require.NoError(t, eng.Close())

	out = run("graph", "--db", db, "dev_survey", "--instance", strconv.FormatInt(inst.ID, 10))
	assert.Contains(t, out, "class step_1_intro completed;")
	assert.Contains(t, out, "class step_2_dev current;")

	out = run("version")
	assert.Contains(t, out, "formflow version ")
}
