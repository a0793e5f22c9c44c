package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	assert.NotNil(t, rootCmd)
	assert.Equal(t, "pagetext", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRootCommandHelp(t *testing.T) {
	cmd := GetRootCommand()

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--help"})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "Available Commands:")
	assert.Contains(t, output, "extract")
	assert.Contains(t, output, "serve")
	assert.Contains(t, output, "Usage:")
}

func TestRootCommandVersion(t *testing.T) {
	cmd := GetRootCommand()

	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--version"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "pagetext version")
}

func TestRootCommandSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, sub := range rootCmd.Commands() {
		names[sub.Name()] = true
	}
	assert.True(t, names["extract"])
	assert.True(t, names["serve"])
}

func TestExtractCommandFlags(t *testing.T) {
	for _, flag := range []string{"format", "output", "pages", "dpi", "color-mode", "language", "workers", "page-timeout", "fail-fast", "no-cache", "progress", "labs"} {
		assert.NotNil(t, extractCmd.Flags().Lookup(flag), flag)
	}
}

func TestServeCommandFlags(t *testing.T) {
	for _, flag := range []string{"host", "port", "cors-origin", "max-upload-size", "timeout", "shutdown-timeout", "workers"} {
		assert.NotNil(t, serveCmd.Flags().Lookup(flag), flag)
	}
}
