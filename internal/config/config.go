// Package config holds the options that drive a single compilation.
// No package imports it: cmd/cc64 keeps its flags in package-level
// variables and passes the include paths and depth cap directly.
package config

// Stage selects how far the pipeline runs before the result is printed.
type Stage string

const (
	StageTokens Stage = "tokens"
	StageAST    Stage = "ast"
	StageAsm    Stage = "asm"
)

// Config is the set of options shared by every cc64 subcommand.
type Config struct {
	// InputFile is the path to the translation unit to compile, or ""
	// to read from stdin.
	InputFile string

	// IncludePaths is searched, in order, for an angle-bracket
	// `#include <path>`; the quoted form is resolved relative to the
	// including file instead.
	IncludePaths []string

	// Emit selects the pipeline stage whose output is printed.
	Emit Stage

	// MaxIncludeDepth bounds recursive #include nesting (spec §9 open
	// question, decided in favor of a fixed cap rather than unbounded
	// recursion).
	MaxIncludeDepth int

	Verbose bool
}

// Default returns a Config holding cc64's default settings.
func Default() Config {
	return Config{
		Emit:            StageAsm,
		MaxIncludeDepth: 200,
	}
}
