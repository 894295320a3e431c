package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Type-check a source file without generating code",
	Long: `Run the full front end (lexer, includer, parser, type checker) over
a source file and report any errors. On success, prints a confirmation
and exits 0.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	source, filename, err := readSource(args)
	if err != nil {
		return err
	}

	_, errs := checkProgram(source, filename)
	if err := reportErrors(errs); err != nil {
		return err
	}

	fmt.Println("ok")
	return nil
}
