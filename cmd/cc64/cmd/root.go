package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags).
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var includePaths []string

var rootCmd = &cobra.Command{
	Use:   "cc64",
	Short: "A batch compiler for a subset of C targeting x86-64",
	Long: `cc64 lexes, preprocesses, parses, type-checks, and lowers a small
subset of C to x86-64 assembly in Intel syntax for the Microsoft x64
calling convention.

It does not invoke an external assembler or linker: each subcommand
stops at a pipeline stage (tokens, AST, or assembly) and prints or
writes that stage's output.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(`{{with .Name}}{{printf "%%s " .}}{{end}}{{printf "version %%s" .Version}}
Commit: %s
Built:  %s
`, GitCommit, BuildDate))

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "accepted but not read by any subcommand")
	rootCmd.PersistentFlags().StringArrayVarP(&includePaths, "include-dir", "I", nil, "directory to search for <...> includes (repeatable)")
}
