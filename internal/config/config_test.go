package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test Plan for Config System:
// - Default() returns valid configuration with all expected defaults
// - Load() uses defaults when no config file exists
// - Load() loads from .codeatlas/config.yml when present
// - Load() merges config file with defaults
// - Environment variables override config file values
// - Load() returns error for malformed YAML
// - Load() returns error for invalid configuration values
// - Validate() rejects negative worker counts and blank patterns
// - GetSourceExtensions() derives extensions from code patterns
// - GraphDir() resolves relative directories against the project root

func TestDefault_ReturnsValidConfiguration(t *testing.T) {
	// Test: Default() returns valid configuration
	cfg := Default()

	require.NotNil(t, cfg)

	assert.Equal(t, DataDirName, cfg.Graph.Dir)
	assert.NotEmpty(t, cfg.Scan.Code)
	assert.NotEmpty(t, cfg.Scan.Ignore)
	assert.Zero(t, cfg.Scan.Workers)

	// Verify default config passes validation
	err := Validate(cfg)
	assert.NoError(t, err)
}

func TestLoadConfig_UsesDefaultsWhenNoConfigFile(t *testing.T) {
	// Test: Load from directory with no config file returns defaults
	tempDir := t.TempDir()

	loader := NewLoader(tempDir)
	cfg, err := loader.Load()

	require.NoError(t, err)
	require.NotNil(t, cfg)

	expected := Default()
	assert.Equal(t, expected.Graph.Dir, cfg.Graph.Dir)
	assert.Equal(t, expected.Scan.Code, cfg.Scan.Code)
}

func TestLoadConfig_LoadsFromConfigYml(t *testing.T) {
	// Test: Load from .codeatlas/config.yml
	tempDir := t.TempDir()
	atlasDir := filepath.Join(tempDir, DataDirName)
	require.NoError(t, os.MkdirAll(atlasDir, 0755))

	configContent := `
graph:
  dir: .graphdata

scan:
  code:
    - "**/*.go"
    - "**/*.py"
  ignore:
    - "vendor/**"
  workers: 2
`

	configPath := filepath.Join(atlasDir, "config.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(configContent), 0644))

	loader := NewLoader(tempDir)
	cfg, err := loader.Load()

	require.NoError(t, err)
	assert.Equal(t, ".graphdata", cfg.Graph.Dir)
	assert.Equal(t, []string{"**/*.go", "**/*.py"}, cfg.Scan.Code)
	assert.Equal(t, []string{"vendor/**"}, cfg.Scan.Ignore)
	assert.Equal(t, 2, cfg.Scan.Workers)
}

func TestLoadConfig_EnvOverridesFile(t *testing.T) {
	// Test: CODEATLAS_* environment variables win over the config file
	tempDir := t.TempDir()
	atlasDir := filepath.Join(tempDir, DataDirName)
	require.NoError(t, os.MkdirAll(atlasDir, 0755))

	configContent := `
graph:
  dir: .from-file
`
	require.NoError(t, os.WriteFile(filepath.Join(atlasDir, "config.yml"), []byte(configContent), 0644))

	t.Setenv("CODEATLAS_GRAPH_DIR", ".from-env")
	t.Setenv("CODEATLAS_SCAN_WORKERS", "4")

	cfg, err := NewLoader(tempDir).Load()
	require.NoError(t, err)
	assert.Equal(t, ".from-env", cfg.Graph.Dir)
	assert.Equal(t, 4, cfg.Scan.Workers)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	// Test: malformed YAML is a load error, not silently ignored
	tempDir := t.TempDir()
	atlasDir := filepath.Join(tempDir, DataDirName)
	require.NoError(t, os.MkdirAll(atlasDir, 0755))

	require.NoError(t, os.WriteFile(filepath.Join(atlasDir, "config.yml"), []byte("graph: [unclosed"), 0644))

	_, err := NewLoader(tempDir).Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_InvalidValues(t *testing.T) {
	// Test: validation failures surface through Load
	tempDir := t.TempDir()
	atlasDir := filepath.Join(tempDir, DataDirName)
	require.NoError(t, os.MkdirAll(atlasDir, 0755))

	configContent := `
scan:
  workers: -3
`
	require.NoError(t, os.WriteFile(filepath.Join(atlasDir, "config.yml"), []byte(configContent), 0644))

	_, err := NewLoader(tempDir).Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidWorkers)
}

func TestValidate_MultipleErrors(t *testing.T) {
	cfg := &Config{
		Graph: GraphConfig{Dir: "  "},
		Scan:  ScanConfig{Workers: -1, Code: []string{"**/*.go", " "}},
	}

	err := Validate(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed:")
	assert.Contains(t, err.Error(), "graph.dir is required")
	assert.Contains(t, err.Error(), "workers cannot be negative")
	assert.Contains(t, err.Error(), "blank entry in scan.code")
}

func TestGetSourceExtensions(t *testing.T) {
	cfg := &Config{
		Scan: ScanConfig{
			Code: []string{"**/*.go", "**/*.py", "src/**/*.ts", "Makefile"},
		},
	}

	exts := cfg.GetSourceExtensions()
	assert.ElementsMatch(t, []string{".go", ".py", ".ts"}, exts)
}

func TestGraphDir_Resolution(t *testing.T) {
	cfg := Default()
	assert.Equal(t, filepath.Join("/repo", DataDirName), cfg.GraphDir("/repo"))

	cfg.Graph.Dir = "/var/lib/atlas"
	assert.Equal(t, "/var/lib/atlas", cfg.GraphDir("/repo"))
}
