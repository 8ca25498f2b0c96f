package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var showPretty bool

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the whole graph as JSON",
	Long: `Show writes a point-in-time snapshot of the graph to stdout in the same
JSON shape as the persisted document: document metadata, every node and
edge in insertion order, and the highlight questions.

Examples:
  # Dump the graph for piping into jq
  codeatlas show | jq '.nodes[].id'

  # Human-readable output
  codeatlas show --pretty
`,
	Args: cobra.NoArgs,
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
	showCmd.Flags().BoolVarP(&showPretty, "pretty", "p", false, "Indent the JSON output")
}

func runShow(cmd *cobra.Command, args []string) error {
	rootDir, err := resolveRoot()
	if err != nil {
		return err
	}

	store, _, err := openStore(rootDir)
	if err != nil {
		return err
	}

	snap := store.ReadGraph()

	var out []byte
	if showPretty {
		out, err = json.MarshalIndent(snap, "", "  ")
	} else {
		out, err = json.Marshal(snap)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal graph: %w", err)
	}

	fmt.Println(string(out))
	return nil
}
