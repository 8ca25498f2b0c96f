package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/codeatlas-io/codeatlas/internal/config"
	"github.com/codeatlas-io/codeatlas/internal/graph"
	"github.com/codeatlas-io/codeatlas/internal/scanner"
	"github.com/codeatlas-io/codeatlas/internal/watcher"
)

var (
	quietFlag bool
	watchFlag bool
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan [path]",
	Short: "Scan a repository and build its code graph",
	Long: `Scan parses the source files of a repository and upserts the extracted
structure into the graph document.

The scanner:
  - Discovers source files (Go, Python, TypeScript, JavaScript)
  - Extracts file, class and function nodes with their metadata
  - Records contains, inherit and invokes edges between them
  - Writes the result to .codeatlas/graph.json

Node ids are derived from file paths and declaration names, so rescanning
updates entities in place. Highlights survive rescans.

Examples:
  # Scan the current directory
  codeatlas scan

  # Scan a specific directory
  codeatlas scan /path/to/project

  # Scan with progress bars disabled
  codeatlas scan --quiet

  # Keep watching for changes and rescan on each batch
  codeatlas scan --watch
`,
	Args: cobra.MaximumNArgs(1),
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "Disable progress bars and non-error output")
	scanCmd.Flags().BoolVarP(&watchFlag, "watch", "w", false, "Watch for file changes and rescan")
}

func runScan(cmd *cobra.Command, args []string) error {
	// Set up context with cancellation for Ctrl+C
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nInterrupted! Cancelling scan...")
		cancel()
	}()

	rootDir, err := resolveRoot()
	if err != nil {
		return err
	}
	if len(args) == 1 {
		rootDir, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("failed to resolve scan path: %w", err)
		}
	}

	// One explicit save per scan instead of one per mutation batch.
	store, cfg, err := openStore(rootDir, graph.WithoutAutosave())
	if err != nil {
		return err
	}

	if err := scanOnce(ctx, rootDir, cfg, store, quietFlag); err != nil {
		return err
	}
	if !quietFlag {
		fmt.Printf("Graph written to %s\n", documentPath(cfg, rootDir))
	}

	if watchFlag {
		return watchAndRescan(ctx, rootDir, cfg, store)
	}
	return nil
}

// scanOnce runs a single scan of rootDir and applies the result to the
// store through the ordinary upsert operations, then persists.
func scanOnce(ctx context.Context, rootDir string, cfg *config.Config, store graph.Store, quiet bool) error {
	s := scanner.NewScanner(rootDir, cfg, scanner.WithProgress(NewScanProgress(quiet)))

	res, err := s.Scan(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("scan cancelled")
		}
		return fmt.Errorf("scan failed: %w", err)
	}

	if _, err := store.AddNodes(res.Nodes); err != nil {
		return fmt.Errorf("failed to apply nodes: %w", err)
	}
	if _, err := store.AddEdges(res.Edges); err != nil {
		return fmt.Errorf("failed to apply edges: %w", err)
	}
	if err := store.Flush(); err != nil {
		return err
	}

	if len(res.Skipped) > 0 && !quiet {
		fmt.Printf("  %d file(s) could not be parsed\n", len(res.Skipped))
	}
	// The progress reporter already printed a summary in non-quiet mode.
	if quiet {
		fmt.Printf("Scan complete: %d nodes, %d edges from %d files\n",
			len(res.Nodes), len(res.Edges), res.Files)
	}
	return nil
}

// watchAndRescan blocks, rescanning the tree whenever the watcher reports a
// batch of changes. The watcher is paused during a rescan so changes made
// while scanning are delivered afterwards instead of being lost.
func watchAndRescan(ctx context.Context, rootDir string, cfg *config.Config, store graph.Store) error {
	fd, err := scanner.NewFileDiscovery(rootDir, cfg.Scan.Code, cfg.Scan.Ignore)
	if err != nil {
		return err
	}

	w, err := watcher.NewFileWatcher(rootDir, cfg.GetSourceExtensions(), fd.ShouldIgnore)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer w.Stop()

	// The callback only signals; scans run on this goroutine so the
	// watcher's event loop never blocks behind a scan.
	changes := make(chan []string, 1)
	err = w.Start(ctx, func(files []string) {
		select {
		case changes <- files:
		default:
		}
	})
	if err != nil {
		return err
	}

	if !quietFlag {
		log.Println("Watching for changes (Ctrl+C to stop)...")
	}

	for {
		select {
		case <-ctx.Done():
			if !quietFlag {
				log.Println("Watch mode stopped")
			}
			return nil

		case files := <-changes:
			if !quietFlag {
				log.Printf("Change detected in %d file(s), rescanning...", len(files))
			}
			w.Pause()
			if err := scanOnce(ctx, rootDir, cfg, store, quietFlag); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				log.Printf("Warning: rescan failed: %v", err)
			}
			w.Resume()
		}
	}
}
