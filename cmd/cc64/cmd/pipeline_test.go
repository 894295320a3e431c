package cmd

import (
	"os"
	"testing"
)

func fixture(t *testing.T, name string) string {
	t.Helper()
	path := "../../../testdata/fixtures/" + name
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading fixture %s: %v", path, err)
	}
	return string(data)
}

// The six concrete scenarios from spec §8 must lex, expand, parse, and
// type-check cleanly.
func TestCheckProgramConcreteScenariosSucceed(t *testing.T) {
	scenarios := []string{
		"return_zero.c",
		"precedence.c",
		"for_loop_sum.c",
		"logical_and.c",
		"pointer_assignment.c",
		"include_scenario.c",
	}
	for _, name := range scenarios {
		t.Run(name, func(t *testing.T) {
			src := fixture(t, name)
			_, errs := checkProgram(src, "../../../testdata/fixtures/"+name)
			if len(errs) != 0 {
				t.Fatalf("unexpected errors: %v", errs)
			}
		})
	}
}

func TestCheckProgramUndefinedVariableIsTypeError(t *testing.T) {
	src := fixture(t, "undefined_variable.c")
	_, errs := checkProgram(src, "undefined_variable.c")
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(errs), errs)
	}
}

func TestCheckProgramArgumentCountMismatchIsTypeError(t *testing.T) {
	src := fixture(t, "arg_count_mismatch.c")
	_, errs := checkProgram(src, "arg_count_mismatch.c")
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(errs), errs)
	}
}

func TestLexAndExpandUnterminatedCommentIsLexicalError(t *testing.T) {
	src := fixture(t, "unterminated_comment.c")
	_, errs := lexAndExpand(src, "unterminated_comment.c")
	if len(errs) == 0 {
		t.Fatal("expected a lexical error for the unterminated comment")
	}
}

func TestParseProgramUnsupportedMemberAccessIsSyntaxError(t *testing.T) {
	src := fixture(t, "unsupported_member_access.c")
	_, errs := parseProgram(src, "unsupported_member_access.c")
	if len(errs) == 0 {
		t.Fatal("expected a syntax error for struct member access")
	}
}
