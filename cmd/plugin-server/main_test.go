package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "plugin-server dev", strings.TrimSpace(out.String()))
}

func TestOverridesOnlyChangedFlags(t *testing.T) {
	cmd := newRootCmd()
	serve, _, err := cmd.Find([]string{"serve"})
	require.NoError(t, err)

	require.NoError(t, serve.ParseFlags([]string{"--port", "8080", "--watch"}))

	flags := &serveFlags{}
	f := serve.Flags()
	flags.port, _ = f.GetInt("port")
	flags.watch, _ = f.GetBool("watch")

	o := overridesFrom(serve, flags)
	require.NotNil(t, o.Port)
	assert.Equal(t, 8080, *o.Port)
	require.NotNil(t, o.Watch)
	assert.True(t, *o.Watch)
	assert.Nil(t, o.Root)
	assert.Nil(t, o.Host)
	assert.Nil(t, o.LogLevel)
}

func TestServeFailsOnMissingRoot(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"serve", "--root", t.TempDir() + "/missing"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "root")
}
