package cli

import (
	"fmt"
	"path/filepath"

	"github.com/codeatlas-io/codeatlas/internal/config"
	"github.com/codeatlas-io/codeatlas/internal/graph"
)

// resolveRoot turns the --dir flag into an absolute project root.
func resolveRoot() (string, error) {
	root, err := filepath.Abs(projectDir)
	if err != nil {
		return "", fmt.Errorf("failed to resolve project directory: %w", err)
	}
	return root, nil
}

// openStore loads the project configuration and opens the store backed by
// the project's graph document. Opening an uninitialized project yields an
// empty graph.
func openStore(rootDir string, opts ...graph.StoreOption) (graph.Store, *config.Config, error) {
	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	st, err := graph.NewStorage(cfg.GraphDir(rootDir))
	if err != nil {
		return nil, nil, err
	}

	store, err := graph.NewStore(st, opts...)
	if err != nil {
		return nil, nil, err
	}
	return store, cfg, nil
}

// documentPath returns the full path of the project's graph document.
func documentPath(cfg *config.Config, rootDir string) string {
	return filepath.Join(cfg.GraphDir(rootDir), graph.DocumentFileName)
}
