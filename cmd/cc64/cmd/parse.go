package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse [file]",
	Short: "Parse a source file and print its abstract syntax tree",
	Long: `Run the lexer, includer, and parser over a source file and print
the resulting abstract syntax tree as source-like text. Reads from
stdin if no file is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

func runParse(cmd *cobra.Command, args []string) error {
	source, filename, err := readSource(args)
	if err != nil {
		return err
	}

	prog, errs := parseProgram(source, filename)
	if err := reportErrors(errs); err != nil {
		return err
	}

	fmt.Print(prog.String())
	return nil
}
