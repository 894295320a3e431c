package cmd

import (
	"fmt"

	"cc64/internal/lexer"
	"cc64/internal/token"

	"github.com/spf13/cobra"
)

var lexShowType bool

var lexCmd = &cobra.Command{
	Use:   "lex [file]",
	Short: "Tokenize a source file and print the resulting tokens",
	Long: `Tokenize a cc64 source file and print each token with its source
location, one per line. Reads from stdin if no file is given.

This command runs only the lexer — #include expansion and parsing are
not performed, so tokens inside an included file are never seen.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLex,
}

func init() {
	rootCmd.AddCommand(lexCmd)
	lexCmd.Flags().BoolVar(&lexShowType, "show-type", false, "show token kind names")
}

func runLex(cmd *cobra.Command, args []string) error {
	source, filename, err := readSource(args)
	if err != nil {
		return err
	}

	toks, errs := lexer.Tokenize(source, filename)
	for _, tok := range toks {
		printToken(tok)
	}

	return reportErrors(withSource(errs, source))
}

func printToken(tok token.Token) {
	if lexShowType {
		fmt.Printf("[%-10s] %-12q @%s\n", tok.Kind, tok.Literal, tok.Pos)
		return
	}
	fmt.Printf("%-12q @%s\n", tok.Literal, tok.Pos)
}
