package scanner

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"

	"github.com/codeatlas-io/codeatlas/internal/config"
)

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// FileDiscovery handles source file discovery with glob patterns and ignore rules.
type FileDiscovery struct {
	rootDir        string
	codePatterns   []compiledPattern
	ignorePatterns []compiledPattern
}

// NewFileDiscovery creates a new file discovery instance rooted at rootDir.
func NewFileDiscovery(rootDir string, codePatterns, ignorePatterns []string) (*FileDiscovery, error) {
	fd := &FileDiscovery{
		rootDir: rootDir,
	}

	// Compile glob patterns
	for _, pattern := range codePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid code pattern %q: %w", pattern, err)
		}
		fd.codePatterns = append(fd.codePatterns, compiledPattern{pattern: pattern, glob: g})
	}

	for _, pattern := range ignorePatterns {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("invalid ignore pattern %q: %w", pattern, err)
		}
		fd.ignorePatterns = append(fd.ignorePatterns, compiledPattern{pattern: pattern, glob: g})
	}

	return fd, nil
}

// DiscoverFiles walks the directory tree and returns absolute paths of all
// files matching the code patterns, in walk order. Ignored directories are
// pruned without descending into them.
func (fd *FileDiscovery) DiscoverFiles() ([]string, error) {
	files := []string{}

	err := filepath.Walk(fd.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Get relative path for pattern matching
		relPath, err := filepath.Rel(fd.rootDir, path)
		if err != nil {
			return err
		}

		// Normalize path separators for glob matching
		relPath = filepath.ToSlash(relPath)

		if info.IsDir() {
			if relPath != "." && fd.ShouldIgnore(relPath) {
				return filepath.SkipDir
			}
			return nil
		}

		// Check ignore patterns
		if fd.ShouldIgnore(relPath) {
			return nil
		}

		// Check code patterns
		if fd.matchesAnyPattern(relPath, fd.codePatterns) {
			files = append(files, path)
		}

		return nil
	})

	return files, err
}

// ShouldIgnore checks if a slash-separated relative path matches any ignore
// pattern. The graph data directory is always ignored.
func (fd *FileDiscovery) ShouldIgnore(relPath string) bool {
	// Always ignore the graph data directory
	if strings.HasPrefix(relPath, config.DataDirName+"/") || relPath == config.DataDirName {
		return true
	}

	// Check if the path matches any ignore pattern
	if fd.matchesAnyPattern(relPath, fd.ignorePatterns) {
		return true
	}

	// Also check if this is a directory that would match with /** suffix
	// For example, "node_modules" should match pattern "node_modules/**"
	pathWithSuffix := relPath + "/**"
	return fd.matchesAnyPattern(pathWithSuffix, fd.ignorePatterns)
}

// matchesAnyPattern checks if a path matches any of the given patterns.
func (fd *FileDiscovery) matchesAnyPattern(path string, patterns []compiledPattern) bool {
	for _, cp := range patterns {
		if cp.glob.Match(path) {
			return true
		}
	}

	// Special handling: if path is in root (no slash), also try matching against
	// patterns with **/ prefix removed. This makes "**/*.py" match both "main.py"
	// and "pkg/util.py" as users would expect.
	if !strings.Contains(path, "/") {
		for _, cp := range patterns {
			// If pattern starts with **/, try matching without it
			if strings.HasPrefix(cp.pattern, "**/") {
				simplified := strings.TrimPrefix(cp.pattern, "**/")
				if simplifiedGlob, err := glob.Compile(simplified, '/'); err == nil {
					if simplifiedGlob.Match(path) {
						return true
					}
				}
			}
		}
	}

	return false
}
