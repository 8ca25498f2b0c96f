package config

// DataDirName is the per-project directory holding the graph document and
// optional config file.
const DataDirName = ".codeatlas"

// Config represents the complete codeatlas configuration.
// It can be loaded from .codeatlas/config.yml with environment variable overrides.
type Config struct {
	Graph GraphConfig `yaml:"graph" mapstructure:"graph"`
	Scan  ScanConfig  `yaml:"scan" mapstructure:"scan"`
}

// GraphConfig locates the persisted graph document.
type GraphConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"` // directory holding graph.json, relative to the project root
}

// ScanConfig defines which files the scanner visits.
type ScanConfig struct {
	Code    []string `yaml:"code" mapstructure:"code"`       // glob patterns for source files
	Ignore  []string `yaml:"ignore" mapstructure:"ignore"`   // glob patterns to skip
	Workers int      `yaml:"workers" mapstructure:"workers"` // parallel parser count, 0 picks NumCPU
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Graph: GraphConfig{
			Dir: DataDirName,
		},
		Scan: ScanConfig{
			Code: []string{
				"**/*.go",
				"**/*.py",
				"**/*.ts",
				"**/*.tsx",
				"**/*.js",
				"**/*.jsx",
			},
			Ignore: []string{
				"node_modules/**",
				"vendor/**",
				".git/**",
				"dist/**",
				"build/**",
				"target/**",
				"__pycache__/**",
				"venv/**",
				".venv/**",
				".idea/**",
				".codeatlas/**",
				"*.test",
				"*.pyc",
			},
			Workers: 0,
		},
	}
}

// GetSourceExtensions extracts unique file extensions from the code
// patterns. Returns extensions with leading dot (e.g., []string{".go", ".py"}).
func (c *Config) GetSourceExtensions() []string {
	extMap := make(map[string]bool)

	for _, pattern := range c.Scan.Code {
		if ext := extractExtension(pattern); ext != "" {
			extMap[ext] = true
		}
	}

	extensions := make([]string, 0, len(extMap))
	for ext := range extMap {
		extensions = append(extensions, ext)
	}

	return extensions
}

// extractExtension extracts the file extension from a glob pattern.
// Returns empty string if pattern doesn't match a simple extension pattern.
// Examples: "**/*.go" -> ".go", "*.ts" -> ".ts", "**/*.tsx" -> ".tsx"
func extractExtension(pattern string) string {
	// Find the last occurrence of *.ext pattern
	for i := len(pattern) - 1; i >= 1; i-- {
		if pattern[i] == '.' && pattern[i-1] == '*' {
			return pattern[i:]
		}
	}
	return ""
}
