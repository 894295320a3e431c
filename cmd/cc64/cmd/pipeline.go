package cmd

import (
	"fmt"
	"io"
	"os"

	"cc64/internal/ast"
	"cc64/internal/ccerrors"
	"cc64/internal/includer"
	"cc64/internal/lexer"
	"cc64/internal/parser"
	"cc64/internal/token"
	"cc64/internal/typecheck"
)

// readSource returns the input text and its display filename: args[0]
// if given, otherwise stdin under the name "<stdin>".
func readSource(args []string) (source, filename string, err error) {
	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return "", "", fmt.Errorf("failed to read file %s: %w", args[0], err)
		}
		return string(data), args[0], nil
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return "", "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), "<stdin>", nil
}

// lexAndExpand runs the lexer followed by the includer, returning the
// fully expanded token stream. If the lexer reports errors they are
// returned and the includer does not run; otherwise the includer's
// errors are returned. Either way they carry the source for context.
func lexAndExpand(source, filename string) ([]token.Token, []*ccerrors.CompilerError) {
	toks, errs := lexer.Tokenize(source, filename)
	if len(errs) > 0 {
		return toks, withSource(errs, source)
	}

	in := includer.New(includePaths, 200)
	expanded := in.Expand(toks)
	expanded = append(expanded, token.Token{Kind: token.EOF})
	return expanded, withSource(in.Errors(), source)
}

func withSource(errs []*ccerrors.CompilerError, source string) []*ccerrors.CompilerError {
	for _, e := range errs {
		e.WithSource(source)
	}
	return errs
}

// parseProgram runs lexAndExpand followed by the parser.
func parseProgram(source, filename string) (*ast.Program, []*ccerrors.CompilerError) {
	toks, errs := lexAndExpand(source, filename)
	if len(errs) > 0 {
		return nil, errs
	}
	prog, perrs := parser.ParseProgram(toks)
	return prog, withSource(perrs, source)
}

// checkProgram runs parseProgram followed by the type checker.
func checkProgram(source, filename string) (*ast.Program, []*ccerrors.CompilerError) {
	prog, errs := parseProgram(source, filename)
	if len(errs) > 0 {
		return nil, errs
	}
	terrs := typecheck.Check(prog)
	return prog, withSource(terrs, source)
}

func reportErrors(errs []*ccerrors.CompilerError) error {
	if len(errs) == 0 {
		return nil
	}
	fmt.Fprintln(os.Stderr, ccerrors.FormatAll(errs, true))
	return fmt.Errorf("%d error(s)", len(errs))
}
