package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/codeatlas-io/codeatlas/internal/graph"
)

var checkJSON bool

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report edges whose endpoints are missing",
	Long: `Check runs a referential integrity pass over the graph and reports every
edge with an endpoint that does not resolve to a node.

Dangling edges are allowed - edges may be added before their endpoints, and
scans record inheritance from types defined outside the scanned tree. Check
makes them visible; it never fails or repairs anything.

Examples:
  # Human-readable report
  codeatlas check

  # Machine-readable report
  codeatlas check --json
`,
	Args: cobra.NoArgs,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Output as JSON")
}

func runCheck(cmd *cobra.Command, args []string) error {
	rootDir, err := resolveRoot()
	if err != nil {
		return err
	}

	store, _, err := openStore(rootDir)
	if err != nil {
		return err
	}

	report := store.CheckIntegrity()

	if checkJSON {
		jsonBytes, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(jsonBytes))
		return nil
	}

	printIntegrityReport(report)
	return nil
}

// printIntegrityReport renders the report for human consumption.
func printIntegrityReport(report *graph.IntegrityReport) {
	if report.Clean() {
		fmt.Println("✓ Graph integrity OK: every edge endpoint resolves")
		return
	}

	fmt.Printf("Found %d dangling edge(s) referencing %d missing node(s):\n",
		len(report.DanglingEdges), len(report.MissingNodes))
	for _, d := range report.DanglingEdges {
		fmt.Printf("  %s: missing %s\n", d.EdgeID, strings.Join(d.Missing, ", "))
	}
}
