package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/codeatlas-io/codeatlas/internal/config"
	"github.com/codeatlas-io/codeatlas/internal/graph"
)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an empty graph document for this project",
	Long: `Init creates the .codeatlas/ data directory and writes an empty graph
document into it. Running init in an already initialized project is a no-op.

Initialization is optional: every other command creates the document on
first write. Init exists so a fresh project has a well-formed document
before anything scans or amends it.

Examples:
  # Initialize the current directory
  codeatlas init

  # Initialize another project
  codeatlas init --dir /path/to/project
`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	rootDir, err := resolveRoot()
	if err != nil {
		return err
	}
	return initGraph(rootDir)
}

// initGraph bootstraps the graph document for the project at rootDir.
func initGraph(rootDir string) error {
	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	st, err := graph.NewStorage(cfg.GraphDir(rootDir))
	if err != nil {
		return err
	}

	docPath := documentPath(cfg, rootDir)
	if st.Exists() {
		fmt.Printf("Graph document already exists at %s\n", docPath)
		return nil
	}

	store, err := graph.NewStore(st, graph.WithoutAutosave())
	if err != nil {
		return err
	}
	if err := store.Flush(); err != nil {
		return err
	}

	fmt.Printf("✓ Initialized empty graph at %s\n", docPath)
	return nil
}
