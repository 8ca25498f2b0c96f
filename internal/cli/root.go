package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var projectDir string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "codeatlas",
	Short: "CodeAtlas - a code structure graph for coding agents",
	Long: `CodeAtlas maintains a graph of the files, classes and functions in a
repository, persisted as a single JSON document under .codeatlas/.

Populate it with 'codeatlas scan', amend it with 'codeatlas add', and mark
the elements relevant to a question with 'codeatlas highlight'.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", ".", "project root directory")
}
