package codegen

import (
	"strings"
	"testing"

	"cc64/internal/ast"
	"cc64/internal/lexer"
	"cc64/internal/parser"
	"cc64/internal/typecheck"

	"github.com/gkampitakis/go-snaps/snaps"
)

func compile(t *testing.T, src string) (string, []string) {
	t.Helper()
	toks, lexErrs := lexer.Tokenize(src, "test.c")
	if len(lexErrs) != 0 {
		t.Fatalf("unexpected lex errors: %v", lexErrs)
	}
	prog, parseErrs := parser.ParseProgram(toks)
	if len(parseErrs) != 0 {
		t.Fatalf("unexpected parse errors: %v", parseErrs)
	}
	if checkErrs := typecheck.Check(prog); len(checkErrs) != 0 {
		t.Fatalf("unexpected type errors: %v", checkErrs)
	}
	asm, genErrs := Generate(prog)
	var msgs []string
	for _, e := range genErrs {
		msgs = append(msgs, e.Error())
	}
	return asm, msgs
}

// Scenario 1 from spec §8: a trivial program that returns 0.
func TestGenerateReturnZero(t *testing.T) {
	asm, errs := compile(t, "int main() { return 0; }")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	snaps.MatchSnapshot(t, asm)
}

// Scenario 2 from spec §8: operator precedence, 2 + 3 * 4 -> exit 14.
func TestGeneratePrecedence(t *testing.T) {
	asm, errs := compile(t, "int main() { return 2 + 3 * 4; }")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	snaps.MatchSnapshot(t, asm)
}

// Scenario 3 from spec §8: for-loop summation, 1..9 -> exit 45.
func TestGenerateForLoopSum(t *testing.T) {
	asm, errs := compile(t, `
int main() {
    int sum;
    int i;
    sum = 0;
    for (i = 1; i < 10; i = i + 1) {
        sum = sum + i;
    }
    return sum;
}`)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	snaps.MatchSnapshot(t, asm)
}

// Scenario 4 from spec §8: short-circuit logical-and, exit 1.
func TestGenerateLogicalAnd(t *testing.T) {
	asm, errs := compile(t, "int main() { return 1 && 2; }")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	snaps.MatchSnapshot(t, asm)
}

// Scenario 5 from spec §8: pointer dereference and assignment, exit 42.
func TestGeneratePointerAssignment(t *testing.T) {
	asm, errs := compile(t, `
int main() {
    int x;
    int *p;
    p = &x;
    *p = 42;
    return x;
}`)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	snaps.MatchSnapshot(t, asm)
}

func TestGenerateFunctionCall(t *testing.T) {
	asm, errs := compile(t, `
int add(int a, int b) { return a + b; }
int main() { return add(3, 4); }`)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	snaps.MatchSnapshot(t, asm)
}

func TestGenerateSignedDivisionUsesIdivNotDiv(t *testing.T) {
	asm, errs := compile(t, "int main() { return 7 / -2; }")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if !strings.Contains(asm, "cqo") || !strings.Contains(asm, "idiv") {
		t.Errorf("expected signed division to use cqo+idiv, got:\n%s", asm)
	}
	if strings.Contains(asm, "\n    div ") {
		t.Errorf("unsigned div instruction must not be emitted, got:\n%s", asm)
	}
}

func TestGenerateStringLiteralsAreNeverInterned(t *testing.T) {
	asm, errs := compile(t, `
int puts(char *s);
int main() {
    puts("hi");
    puts("hi");
    return 0;
}`)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if got := strings.Count(asm, ".ascii \"hi\""); got != 2 {
		t.Errorf("got %d .ascii entries for \"hi\", want 2 (no interning)", got)
	}
}

func TestGenerateEveryFunctionHasOnePrologueEpilogueLabelPair(t *testing.T) {
	asm, errs := compile(t, `
int add(int a, int b) { return a + b; }
int main() { return add(1, 2); }`)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if strings.Count(asm, ".addret:") != 1 {
		t.Errorf("expected exactly one .addret: label")
	}
	if strings.Count(asm, ".mainret:") != 1 {
		t.Errorf("expected exactly one .mainret: label")
	}
}

func TestGenerateSizeofIsCompileTimeConstant(t *testing.T) {
	asm, errs := compile(t, "int main() { return sizeof(long); }")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if !strings.Contains(asm, "mov rax, 8") {
		t.Errorf("expected sizeof(long) to fold to an immediate 8, got:\n%s", asm)
	}
}

func TestGenerateUndeclaredReturnOutsideFunctionIsUnreachableViaParser(t *testing.T) {
	// genReturn's "outside of function" guard can only be hit by
	// constructing a tree the parser itself could never produce.
	g := New()
	g.genStmt(&ast.ReturnStmt{Value: &ast.IntLiteral{Value: 1}})
	if len(g.Errors()) != 1 {
		t.Fatalf("got %d errors, want 1", len(g.Errors()))
	}
}

func TestGenerateGlobalConstantInitializerIsSeeded(t *testing.T) {
	asm, errs := compile(t, "int x = 5;")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if !strings.Contains(asm, ".long 5") {
		t.Errorf("expected global initializer 5 to be seeded into .data, got:\n%s", asm)
	}
}

func TestGenerateGlobalNegativeConstantInitializerIsSeeded(t *testing.T) {
	asm, errs := compile(t, "int x = -5;")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if !strings.Contains(asm, ".long -5") {
		t.Errorf("expected global initializer -5 to be seeded into .data, got:\n%s", asm)
	}
}

func TestGenerateGlobalNonConstantInitializerIsCodegenError(t *testing.T) {
	toks, _ := lexer.Tokenize("int y; int x = y;", "test.c")
	prog, _ := parser.ParseProgram(toks)
	if errs := typecheck.Check(prog); len(errs) != 0 {
		t.Fatalf("unexpected type errors: %v", errs)
	}
	_, genErrs := Generate(prog)
	if len(genErrs) != 1 {
		t.Fatalf("got %d codegen errors, want 1 (non-constant global initializer): %v", len(genErrs), genErrs)
	}
}

func TestGenerateStackParameterLimitIsAnError(t *testing.T) {
	_, errs := compile(t, "int f(int a, int b, int c, int d, int e) { return a; }")
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1 (5th parameter exceeds register budget): %v", len(errs), errs)
	}
}
