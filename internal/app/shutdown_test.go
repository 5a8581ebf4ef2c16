package app

import (
	"context"
	"io"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plugin-server/internal/config"
)

func TestServe_StopsOnContextCancel(t *testing.T) {
	a, h := newTestApp(t, func(cfg *config.AppConfig) {
		cfg.Port = 0
		cfg.MaxConnections = 4
	})
	writeFile(t, filepath.Join(a.Config.Root, "plugin.js"), "ok")

	ln, err := a.Listen()
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Serve(ctx, ln, h) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/plugin.js")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
