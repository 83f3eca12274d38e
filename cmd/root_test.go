package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRootCmd(t *testing.T) {
	cmd := NewRootCmd()

	require.Equal(t, "pantrybot", cmd.Use)
	require.NotNil(t, cmd.PersistentFlags().Lookup("verbose"))
	require.NotNil(t, cmd.PersistentFlags().Lookup("config"))

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"bot", "scan", "inventory", "version"} {
		require.True(t, names[want], "missing subcommand %s", want)
	}
}

func TestNewVersionCmd(t *testing.T) {
	require.NotEmpty(t, getVersion())
	require.NotEmpty(t, getCommit())

	var buf bytes.Buffer
	cmd := NewVersionCmd()
	cmd.SetOut(&buf)
	require.NoError(t, cmd.Execute())
	require.Contains(t, buf.String(), "pantrybot version")
	require.Contains(t, buf.String(), "commit:")
}
