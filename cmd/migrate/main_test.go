package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestList_Embedded(t *testing.T) {
	out, err := execute(t, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "000001  unified_schema")
}

func TestCreateThenList(t *testing.T) {
	dir := t.TempDir()

	out, err := execute(t, "--dir", dir, "create", "add source index")
	require.NoError(t, err)
	assert.Contains(t, out, "created version 1")

	_, err = execute(t, "--dir", dir, "create", "widen notes")
	require.NoError(t, err)

	out, err = execute(t, "--dir", dir, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "000001  add_source_index")
	assert.Contains(t, out, "000002  widen_notes")
}

func TestList_EmptyDir(t *testing.T) {
	out, err := execute(t, "--dir", t.TempDir(), "list")
	require.NoError(t, err)
	assert.Equal(t, "no migrations found\n", out)
}

func TestMigrator_RejectsSQLite(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("[database]\ndriver = \"sqlite\"\n"), 0o600))

	_, err := execute(t, "--config", cfg, "--log-level", "error", "up")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "migrations target postgres")
}

func TestStep_InvalidCount(t *testing.T) {
	_, err := execute(t, "step")
	assert.Error(t, err)
}
