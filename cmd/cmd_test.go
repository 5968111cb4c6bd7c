package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"risk-register-backup/internal/config"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"formatVersion":"3.0"}`), 0600))

	data, err := readInput(strings.NewReader("ignored"), path)
	require.NoError(t, err)
	assert.Equal(t, `{"formatVersion":"3.0"}`, string(data))

	data, err = readInput(strings.NewReader("from stdin"), "-")
	require.NoError(t, err)
	assert.Equal(t, "from stdin", string(data))

	_, err = readInput(nil, filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read backup file")
}

func TestOutputPath(t *testing.T) {
	dir := t.TempDir()
	name := "risk-register-backup-manual-2024-03-01T08-00-00Z.json"

	assert.Equal(t, name, outputPath("", name))
	assert.Equal(t, filepath.Join(dir, name), outputPath(dir, name))
	assert.Equal(t, filepath.Join(dir, "latest.json"), outputPath(filepath.Join(dir, "latest.json"), name))
}

func TestRunRestore_StdinRequiresYes(t *testing.T) {
	restoreDryRun, restoreYes = false, false

	err := runRestore(&cobra.Command{}, []string{"-"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires --yes")
}

func TestRunConfigInit(t *testing.T) {
	t.Cleanup(func() {
		configInitOutput, configInitForce, configInitStdout = "", false, false
	})

	path := filepath.Join(t.TempDir(), "conf", "backup.yaml")
	configInitOutput, configInitForce, configInitStdout = path, false, false

	var out bytes.Buffer
	c := &cobra.Command{}
	c.SetOut(&out)

	require.NoError(t, runConfigInit(c, nil))
	assert.Contains(t, out.String(), "Configuration written to "+path)

	loaded, err := config.Load(config.NewViper(), path)
	require.NoError(t, err)
	assert.Equal(t, config.Sample().Database.Path, loaded.Database.Path)

	err = runConfigInit(c, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	out.Reset()
	configInitStdout = true
	require.NoError(t, runConfigInit(c, nil))
	assert.Contains(t, out.String(), "database:")
}
