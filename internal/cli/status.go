package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/codeatlas-io/codeatlas/internal/graph"
)

var statusJSON bool

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize the graph document",
	Long: `Status prints a summary of the project's graph: where the document
lives, when it was last written, and node/edge counts broken down by type.

Examples:
  # Human-readable summary
  codeatlas status

  # Machine-readable summary
  codeatlas status --json
`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().BoolVar(&statusJSON, "json", false, "Output as JSON")
}

func runStatus(cmd *cobra.Command, args []string) error {
	rootDir, err := resolveRoot()
	if err != nil {
		return err
	}

	store, cfg, err := openStore(rootDir)
	if err != nil {
		return err
	}

	stats := store.Stats()

	if statusJSON {
		jsonBytes, err := json.MarshalIndent(stats, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal JSON: %w", err)
		}
		fmt.Println(string(jsonBytes))
		return nil
	}

	formatStats(stats, store.ReadGraph().Meta, documentPath(cfg, rootDir))
	return nil
}

// formatStats renders the summary for human consumption.
func formatStats(stats graph.Stats, meta graph.GraphMeta, docPath string) {
	fmt.Println("Graph Status:")
	fmt.Printf("  Graph ID:   %s\n", meta.GraphID)
	fmt.Printf("  Document:   %s%s\n", docPath, documentSize(docPath))
	fmt.Printf("  Last saved: %s\n", formatTimeSince(meta.GeneratedAt))
	fmt.Println()

	fmt.Printf("  Nodes: %s\n", formatNumber(stats.Nodes))
	for _, nt := range []graph.NodeType{graph.NodeFile, graph.NodeClass, graph.NodeFunction} {
		if count := stats.NodesByType[nt]; count > 0 {
			fmt.Printf("    %-9s %s\n", string(nt)+":", formatNumber(count))
		}
	}

	fmt.Printf("  Edges: %s\n", formatNumber(stats.Edges))
	for _, et := range []graph.EdgeType{graph.EdgeContains, graph.EdgeInherit, graph.EdgeInvokes} {
		if count := stats.EdgesByType[et]; count > 0 {
			fmt.Printf("    %-9s %s\n", string(et)+":", formatNumber(count))
		}
	}
	fmt.Println()

	fmt.Printf("  Highlighted: %s node(s), %s edge(s)\n",
		formatNumber(stats.HighlightedNodes), formatNumber(stats.HighlightedEdges))
	fmt.Printf("  Questions:   %d\n", stats.Questions)
	if stats.DanglingEdges > 0 {
		fmt.Printf("  Dangling edges: %s (run 'codeatlas check' for details)\n",
			formatNumber(stats.DanglingEdges))
	}
}

// documentSize renders the document's on-disk size, or nothing when the
// document does not exist yet.
func documentSize(path string) string {
	info, err := os.Stat(path)
	if err != nil {
		return ""
	}
	return fmt.Sprintf(" (%s)", formatSize(info.Size()))
}

// formatSize formats a byte count in KB or MB.
// Examples: "0.4 KB", "12.8 KB", "3.5 MB"
func formatSize(bytes int64) string {
	if bytes >= 1024*1024 {
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	}
	return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
}

// formatTimeSince formats a timestamp as time ago.
// Examples: "5m ago", "2h ago", "3d ago"
func formatTimeSince(t time.Time) string {
	if t.IsZero() {
		return "never"
	}

	since := time.Since(t)

	days := int(since.Hours() / 24)
	hours := int(since.Hours()) % 24
	minutes := int(since.Minutes()) % 60

	if days > 0 {
		if hours > 0 {
			return fmt.Sprintf("%dd %dh ago", days, hours)
		}
		return fmt.Sprintf("%dd ago", days)
	}

	if hours > 0 {
		if minutes > 0 {
			return fmt.Sprintf("%dh %dm ago", hours, minutes)
		}
		return fmt.Sprintf("%dh ago", hours)
	}

	if minutes > 0 {
		return fmt.Sprintf("%dm ago", minutes)
	}

	return fmt.Sprintf("%ds ago", int(since.Seconds()))
}

// formatNumber formats integer with thousand separators.
// Examples: 1234 -> "1,234", 1234567 -> "1,234,567"
func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}

	// Simple implementation for thousands/millions
	str := fmt.Sprintf("%d", n)
	var result string
	for i, c := range str {
		if i > 0 && (len(str)-i)%3 == 0 {
			result += ","
		}
		result += string(c)
	}
	return result
}
