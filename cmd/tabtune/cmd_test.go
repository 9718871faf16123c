package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestInspectCommand(t *testing.T) {
	out, err := executeCommand(t, "inspect")
	require.NoError(t, err)
	assert.Contains(t, out, "506 rows")
	assert.Contains(t, out, "medv summary")
	assert.Contains(t, out, "no missing values")
}

func TestRunCommandWithConfig(t *testing.T) {
	dir := t.TempDir()
	config := `
seed: 3
train_fraction: 0.7
families:
  - family: random-forest
    grid:
      trees: [25]
    resampling:
      method: oob
`
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(config), 0o644))
	outDir := filepath.Join(dir, "plots")

	out, err := executeCommand(t, "run", "-c", configPath, "-o", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "FAMILY")
	assert.Contains(t, out, "random-forest")
	assert.Contains(t, out, "predicted_vs_actual.png")

	_, err = os.Stat(filepath.Join(outDir, "target_histogram.png"))
	assert.NoError(t, err)
}

func TestRunCommandBadConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("train_fraction: 2.0\n"), 0o644))

	_, err := executeCommand(t, "run", "-c", configPath)
	require.Error(t, err)
}
