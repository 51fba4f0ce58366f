package kernel

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/core-tools/hsu-kernel-go/pkg/errors"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()
	assert.Equal(t, DefaultLogLevel, config.Kernel.LogLevel)
	assert.Equal(t, DefaultInitProgram, config.Kernel.InitProgram)
	assert.Empty(t, config.Programs.Manifests)
	require.NoError(t, ValidateConfig(config))
}

func TestLoadConfigFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kernel.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
kernel:
  log_level: debug
  init_program: shell
programs:
  manifests:
    - programs/base.yaml
`), 0644))

	config, err := LoadConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", config.Kernel.LogLevel)
	assert.Equal(t, "shell", config.Kernel.InitProgram)
	assert.Equal(t, []string{"programs/base.yaml"}, config.Programs.Manifests)
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "kernel.yaml")
	require.NoError(t, os.WriteFile(path, []byte("kernel: {}\n"), 0644))

	config, err := LoadConfigFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultLogLevel, config.Kernel.LogLevel)
	assert.Equal(t, DefaultInitProgram, config.Kernel.InitProgram)
}

func TestLoadConfigErrors(t *testing.T) {
	_, err := LoadConfigFromFile("/nonexistent/kernel.yaml")
	assert.True(t, errors.IsIOError(err))

	dir := t.TempDir()
	path := filepath.Join(dir, "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("kernel: {not yaml"), 0644))
	_, err = LoadConfigFromFile(path)
	assert.True(t, errors.IsValidationError(err))
}

func TestValidateConfig(t *testing.T) {
	assert.True(t, errors.IsValidationError(ValidateConfig(nil)))

	config := DefaultConfig()
	config.Kernel.LogLevel = "verbose"
	assert.True(t, errors.IsValidationError(ValidateConfig(config)))

	config = DefaultConfig()
	config.Kernel.InitProgram = ""
	assert.True(t, errors.IsValidationError(ValidateConfig(config)))
}
