package cmd

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rexolve-ai/rexolve/internal/config"
	"github.com/rexolve-ai/rexolve/internal/provider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testEnv isolates a CLI run: HOME, config file and storage all live in a
// temp dir, and no host variables leak in.
type testEnv struct {
	dir        string
	configPath string
}

func newTestEnv(t *testing.T, apiBase string) *testEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	for _, k := range []string{
		"REXOLVE_BACKEND", "REXOLVE_API_BASE", "REXOLVE_STORAGE", "REXOLVE_LOG_LEVEL",
		"LLM_API_KEY", "LLM_BASE_URL", "LLM_MODEL", "ANTHROPIC_API_KEY",
	} {
		t.Setenv(k, "")
	}

	cfg := config.DefaultConfig()
	cfg.APIBase = apiBase
	cfg.Storage = config.StorageConfig{Driver: config.DriverFile, Path: filepath.Join(dir, "sessions.json")}
	cfg.Log = config.LogConfig{Level: "debug", File: filepath.Join(dir, "rexolve.log")}
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.Save(path, cfg))
	return &testEnv{dir: dir, configPath: path}
}

func (e *testEnv) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--config", e.configPath}, args...))
	err := root.Execute()
	return out.String(), err
}

func (e *testEnv) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	out, err := e.run(t, "", args...)
	require.NoError(t, err, out)
	return out
}

// doubtServer answers every /ask-doubt with answer and counts the calls.
func doubtServer(t *testing.T, status int, answer string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if status != http.StatusOK {
			w.WriteHeader(status)
			io.WriteString(w, "upstream exploded")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"answer": answer})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestAsk_PersistsExchange(t *testing.T) {
	srv, calls := doubtServer(t, http.StatusOK, "Consider your timeline...")
	env := newTestEnv(t, srv.URL)

	out := env.mustRun(t, "ask", "Rent", "or", "buy?")
	assert.Equal(t, "Consider your timeline...\n", out)
	assert.Equal(t, int32(1), calls.Load())

	list := env.mustRun(t, "sessions", "list")
	assert.Contains(t, list, "Rent or buy")

	data, err := os.ReadFile(filepath.Join(env.dir, "sessions.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), `"version":2`)
	assert.Contains(t, string(data), "Consider your timeline...")
}

func TestAsk_FailureReturnsGenericMessage(t *testing.T) {
	srv, _ := doubtServer(t, http.StatusInternalServerError, "")
	env := newTestEnv(t, srv.URL)

	_, err := env.run(t, "", "ask", "Rent or buy?")
	require.Error(t, err)
	assert.Equal(t, "Something went wrong. Try again.", err.Error())

	data, err := os.ReadFile(filepath.Join(env.dir, "sessions.json"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Rent or buy?", "the question survives a failed send")
}

func TestAsk_NewAndSessionFlags(t *testing.T) {
	srv, _ := doubtServer(t, http.StatusOK, "ok")
	env := newTestEnv(t, srv.URL)

	id := strings.TrimSpace(env.mustRun(t, "sessions", "new", "Career"))
	env.mustRun(t, "ask", "--new", "Something else")
	env.mustRun(t, "ask", "--session", id, "Stay or go?")

	show := env.mustRun(t, "sessions", "show", id)
	assert.Contains(t, show, "Career")
	assert.Contains(t, show, "You: Stay or go?")
	assert.Contains(t, show, "Assistant: ok")

	_, err := env.run(t, "", "ask", "--session", "missing", "hi")
	assert.ErrorContains(t, err, `no session "missing"`)
	_, err = env.run(t, "", "ask", "--new", "--session", id, "hi")
	assert.ErrorContains(t, err, "mutually exclusive")
}

func TestAsk_Ephemeral(t *testing.T) {
	srv, _ := doubtServer(t, http.StatusOK, "ok")
	env := newTestEnv(t, srv.URL)

	env.mustRun(t, "--ephemeral", "ask", "Nothing is written")
	_, err := os.Stat(filepath.Join(env.dir, "sessions.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestSessions_RenameDeleteClear(t *testing.T) {
	srv, _ := doubtServer(t, http.StatusOK, "ok")
	env := newTestEnv(t, srv.URL)

	id := strings.TrimSpace(env.mustRun(t, "sessions", "new"))
	env.mustRun(t, "ask", "--session", id, "Move cities?")
	env.mustRun(t, "sessions", "rename", id, "Relocation", "plan")
	assert.Contains(t, env.mustRun(t, "sessions", "show", id), "Relocation plan")

	_, err := env.run(t, "", "sessions", "rename", id, "   ")
	assert.Error(t, err)

	out, err := env.run(t, "n\n", "sessions", "clear", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted.")
	assert.Contains(t, env.mustRun(t, "sessions", "show", id), "Move cities?")

	out, err = env.run(t, "y\n", "sessions", "clear", id)
	require.NoError(t, err)
	show := env.mustRun(t, "sessions", "show", id)
	assert.NotContains(t, show, "Move cities?")
	assert.Contains(t, show, "Relocation plan", "clear keeps the title")

	env.mustRun(t, "sessions", "delete", "--yes", id)
	_, err = env.run(t, "", "sessions", "show", id)
	assert.ErrorContains(t, err, "no session")
}

func TestSessions_ExportImport(t *testing.T) {
	srv, _ := doubtServer(t, http.StatusOK, "ok")
	src := newTestEnv(t, srv.URL)
	src.mustRun(t, "ask", "Should I learn Go?")
	export := src.mustRun(t, "sessions", "export")

	dst := newTestEnv(t, srv.URL)
	file := filepath.Join(dst.dir, "export.json")
	require.NoError(t, os.WriteFile(file, []byte(export), 0644))

	out := dst.mustRun(t, "sessions", "import", file)
	assert.Contains(t, out, "Imported 1 of 1 sessions.")
	assert.Contains(t, dst.mustRun(t, "sessions", "list"), "Should I learn Go")

	out = dst.mustRun(t, "sessions", "import", file)
	assert.Contains(t, out, "Imported 0 of 1 sessions.")
}

func TestSessions_ImportLegacyArray(t *testing.T) {
	env := newTestEnv(t, "http://unused")
	file := filepath.Join(env.dir, "legacy.json")
	legacy := `[{"id":"old-1","title":"Old one","createdAt":1700000000000,
		"messages":[{"role":"user","text":"hi"},{"role":"assistant","text":"hello"}]}]`
	require.NoError(t, os.WriteFile(file, []byte(legacy), 0644))

	assert.Contains(t, env.mustRun(t, "sessions", "import", file), "Imported 1 of 1")
	assert.Contains(t, env.mustRun(t, "sessions", "show", "old-1"), "Assistant: hello")

	require.NoError(t, os.WriteFile(file, []byte("not json"), 0644))
	_, err := env.run(t, "", "sessions", "import", file)
	assert.Error(t, err)
}

func TestChat_PlainMode(t *testing.T) {
	srv, calls := doubtServer(t, http.StatusOK, "Take the job.")
	env := newTestEnv(t, srv.URL)

	out, err := env.run(t, "Take the job?\n/list\n/quit\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Take the job.")
	assert.Contains(t, out, "1. Take the job")
	assert.Equal(t, int32(1), calls.Load())
}

func TestInitConfig_FlagsOverride(t *testing.T) {
	env := newTestEnv(t, "http://from-file")

	_, err := env.run(t, "", "--storage", "redis", "sessions", "list")
	assert.ErrorContains(t, err, "unknown storage driver")

	_, err = env.run(t, "", "--backend", "anthropic", "ask", "hi")
	assert.ErrorContains(t, err, "API key not configured")
}

func TestBuildAnswerer(t *testing.T) {
	cfg := config.DefaultConfig()
	a, err := buildAnswerer(cfg)
	require.NoError(t, err)
	assert.IsType(t, &provider.DoubtClient{}, a)

	cfg.Backend = "anthropic"
	_, err = buildAnswerer(cfg)
	assert.ErrorContains(t, err, "API key not configured")
	cfg.Providers["anthropic"] = &config.ProviderConfig{APIKey: "sk-ant"}
	a, err = buildAnswerer(cfg)
	require.NoError(t, err)
	assert.Equal(t, "anthropic", a.Name())

	cfg.Backend = "deepseek"
	cfg.Providers["deepseek"] = &config.ProviderConfig{APIKey: "sk-ds"}
	a, err = buildAnswerer(cfg)
	require.NoError(t, err)
	assert.Equal(t, "deepseek", a.Name())

	cfg.Backend = "mystery"
	cfg.Providers["mystery"] = &config.ProviderConfig{APIKey: "k"}
	_, err = buildAnswerer(cfg)
	assert.ErrorContains(t, err, "set providers.mystery.base_url")
}

func TestBuildRecognizer(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.NotNil(t, buildRecognizer(cfg))
	cfg.OCR = false
	assert.Nil(t, buildRecognizer(cfg))
}

func TestInitWizard(t *testing.T) {
	env := newTestEnv(t, "http://unused")
	path := filepath.Join(env.dir, "fresh", "config.yaml")

	// backend 4 (deepseek), default service URL, API key
	out, err := env.run(t, "4\n\nsk-wizard\n", "--config", path, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Config saved to "+path)

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "deepseek", cfg.Backend)
	assert.Equal(t, config.DefaultAPIBase, cfg.APIBase)
	assert.Equal(t, "sk-wizard", cfg.GetProviderConfig("deepseek").APIKey)

	out, err = env.run(t, "1\n\nn\n", "--config", path, "init")
	require.NoError(t, err)
	assert.Contains(t, out, "Aborted.")
	cfg, err = config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "deepseek", cfg.Backend, "declining overwrite keeps the old file")
}

func TestVersion(t *testing.T) {
	appVersion, appCommit, appDate = "1.2.3", "abcdef1", "2026-10-16"
	t.Cleanup(func() { appVersion, appCommit, appDate = "", "", "" })

	env := newTestEnv(t, "http://unused")
	out := env.mustRun(t, "version")
	assert.Contains(t, out, "rexolve v1.2.3 (abcdef1)")
	assert.Contains(t, out, "built 2026-10-16")
}
