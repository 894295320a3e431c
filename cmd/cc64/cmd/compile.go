package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cc64/internal/codegen"

	"github.com/spf13/cobra"
)

var compileOutput string

var compileCmd = &cobra.Command{
	Use:   "compile [file]",
	Short: "Compile a source file to x86-64 assembly",
	Long: `Run the full pipeline (lexer, includer, parser, type checker, code
generator) over a source file and write the resulting assembly to a
file. Assembly is accumulated entirely in memory and written once at
the end (spec's resource-discipline note); cc64 never invokes an
external assembler or linker — run the host toolchain over the
produced .s file yourself.

With no -o, the output path is the input's base name with its
extension replaced by .s; reading from stdin requires -o.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)
	compileCmd.Flags().StringVarP(&compileOutput, "output", "o", "", "output assembly file path")
}

func runCompile(cmd *cobra.Command, args []string) error {
	source, filename, err := readSource(args)
	if err != nil {
		return err
	}

	prog, errs := checkProgram(source, filename)
	if err := reportErrors(errs); err != nil {
		return err
	}

	asm, cgErrs := codegen.Generate(prog)
	if err := reportErrors(cgErrs); err != nil {
		return err
	}

	outPath := compileOutput
	if outPath == "" {
		if filename == "<stdin>" {
			return fmt.Errorf("reading from stdin requires -o to name the output file")
		}
		base := filepath.Base(filename)
		outPath = strings.TrimSuffix(base, filepath.Ext(base)) + ".s"
	}

	if err := os.WriteFile(outPath, []byte(asm), 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", outPath, err)
	}

	fmt.Printf("wrote %s\n", outPath)
	return nil
}
