package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "attendance-kiosk", cmd.Use)
	assert.Contains(t, cmd.Long, "absence list")
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand()
	for _, name := range []string{"serve", "reconcile", "token", "hash-password"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand()
	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestReconcileCommandFlags(t *testing.T) {
	cmd := NewRootCommand()
	sub, _, err := cmd.Find([]string{"reconcile"})
	require.NoError(t, err)

	for _, name := range []string{"roster", "attendance", "out", "upload"} {
		assert.NotNil(t, sub.Flags().Lookup(name), name)
	}
	assert.Equal(t, "o", sub.Flags().Lookup("out").Shorthand)
	assert.Equal(t, "false", sub.Flags().Lookup("upload").DefValue)
}

func TestInvalidFormatIsCommandError(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "yaml", "token"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, ExitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitFailure, ExitCode(errors.New("boom")))
	assert.Equal(t, ExitCommandError, ExitCode(exitErr(ExitCommandError, errors.New("bad flag"))))
	assert.Nil(t, exitErr(ExitFailure, nil))
}
