package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"plugin-server/internal/app"
	"plugin-server/internal/config"
	"plugin-server/internal/logger"
)

// TestServer holds the in-memory test server and dependencies.
type TestServer struct {
	Server  *httptest.Server
	App     *app.ServerApp
	Config  *config.AppConfig
	Root    string
	TempDir string
}

// Setup creates a fully wired test server over an empty plugins directory.
// mutate, when non-nil, adjusts the configuration before the app is built.
func Setup(t testing.TB, mutate func(cfg *config.AppConfig)) *TestServer {
	t.Helper()

	logger.Init(logger.Config{Output: io.Discard, MinLevel: logger.ERROR, UseColor: false})

	tempDir, err := os.MkdirTemp("", "plugin-server-test-*")
	if err != nil {
		t.Fatalf("create temp dir: %v", err)
	}

	cfg := config.Defaults(tempDir)
	cfg.Env = "test"
	cfg.LogLevel = "error"
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		t.Fatalf("create root: %v", err)
	}
	if mutate != nil {
		mutate(&cfg)
	}

	a, err := app.New(&cfg)
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	router, err := a.Router()
	if err != nil {
		t.Fatalf("build router: %v", err)
	}

	return &TestServer{
		Server:  httptest.NewServer(router),
		App:     a,
		Config:  &cfg,
		Root:    a.Resolver.Root(),
		TempDir: tempDir,
	}
}

// Cleanup stops server resources and removes temp artifacts.
func (ts *TestServer) Cleanup() {
	if ts.Server != nil {
		ts.Server.Close()
	}
	if ts.App != nil && ts.App.Limiter != nil {
		ts.App.Limiter.Stop()
	}
	if ts.TempDir != "" {
		_ = os.RemoveAll(ts.TempDir)
	}
}

// WriteFile creates rel under the served root.
func (ts *TestServer) WriteFile(t testing.TB, rel, content string) string {
	t.Helper()
	return WriteFile(t, filepath.Join(ts.Root, filepath.FromSlash(rel)), content)
}

// WriteFile creates path and its parent directories.
func WriteFile(t testing.TB, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("create dir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// Do sends method to rawPath exactly as written, without client side
// cleaning, and returns the response with its body read.
func (ts *TestServer) Do(t testing.TB, method, rawPath string, header http.Header) (*http.Response, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, ts.Server.URL+rawPath, nil)
	if err != nil {
		t.Fatalf("build request %s %s: %v", method, rawPath, err)
	}
	for k, v := range header {
		req.Header[k] = v
	}

	resp, err := ts.Server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, rawPath, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, body
}

// SupportsSymlinks reports whether the temp filesystem allows symlinks.
func SupportsSymlinks(dir string) bool {
	link := filepath.Join(dir, ".symlink-probe")
	if err := os.Symlink(dir, link); err != nil {
		return false
	}
	_ = os.Remove(link)
	return true
}
