package lexer

import (
	"testing"

	"cc64/internal/token"
)

func TestNextTokenPunctuatorsAndOperators(t *testing.T) {
	input := `int x = 2 + 3 * (4 - 1) / 2 % 3;
x += 1; x -= 1; x *= 1; x /= 1; x %= 1;
x == x != x <= x >= x && x || !x;
x <<= 1; x >>= 1; x << 1; x >> 1;
f(a, b, ...);`

	want := []token.Kind{
		token.INT_KW, token.IDENT, token.ASSIGN, token.INT, token.PLUS, token.INT,
		token.STAR, token.LPAREN, token.INT, token.MINUS, token.INT, token.RPAREN,
		token.SLASH, token.INT, token.PERCENT, token.INT, token.SEMI,
		token.IDENT, token.ADD_ASSN, token.INT, token.SEMI,
		token.IDENT, token.SUB_ASSN, token.INT, token.SEMI,
		token.IDENT, token.MUL_ASSN, token.INT, token.SEMI,
		token.IDENT, token.DIV_ASSN, token.INT, token.SEMI,
		token.IDENT, token.MOD_ASSN, token.INT, token.SEMI,
		token.IDENT, token.EQ, token.IDENT, token.NEQ, token.IDENT, token.LE, token.IDENT,
		token.GE, token.IDENT, token.AND_AND, token.IDENT, token.OR_OR, token.NOT, token.IDENT, token.SEMI,
		token.IDENT, token.SHL_ASSN, token.INT, token.SEMI,
		token.IDENT, token.SHR_ASSN, token.INT, token.SEMI,
		token.IDENT, token.SHL, token.INT, token.SEMI,
		token.IDENT, token.SHR, token.INT, token.SEMI,
		token.IDENT, token.LPAREN, token.IDENT, token.COMMA, token.IDENT, token.COMMA, token.ELLIPSIS, token.RPAREN, token.SEMI,
		token.EOF,
	}

	toks, errs := Tokenize(input, "test.c")
	if len(errs) != 0 {
		t.Fatalf("unexpected lexer errors: %v", errs)
	}
	if len(toks) != len(want) {
		t.Fatalf("got %d tokens, want %d", len(toks), len(want))
	}
	for i, w := range want {
		if toks[i].Kind != w {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Kind, w)
		}
	}
}

func TestNextTokenIntegerLiterals(t *testing.T) {
	tests := []struct {
		input string
		want  int64
	}{
		{"42", 42},
		{"0", 0},
		{"0x2A", 42},
		{"0X2a", 42},
		{"052", 42},
		{"0", 0},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			toks, errs := Tokenize(tt.input, "test.c")
			if len(errs) != 0 {
				t.Fatalf("unexpected errors: %v", errs)
			}
			if toks[0].Kind != token.INT {
				t.Fatalf("got kind %s, want INT", toks[0].Kind)
			}
			if toks[0].IntValue != tt.want {
				t.Errorf("got value %d, want %d", toks[0].IntValue, tt.want)
			}
		})
	}
}

func TestNextTokenCharAndStringLiterals(t *testing.T) {
	toks, errs := Tokenize(`'a' '\n' "hello\nworld"`, "test.c")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	if toks[0].Kind != token.CHAR || toks[0].IntValue != int64('a') {
		t.Errorf("char literal: got %v", toks[0])
	}
	if toks[1].Kind != token.CHAR || toks[1].IntValue != int64('\n') {
		t.Errorf("char escape: got %v", toks[1])
	}
	if toks[2].Kind != token.STRING || toks[2].Literal != "hello\nworld" {
		t.Errorf("string literal: got %v", toks[2])
	}
}

func TestNextTokenKeywordsAndIdentifiers(t *testing.T) {
	toks, _ := Tokenize("int char void long struct sizeof myVar _private2", "test.c")
	want := []token.Kind{
		token.INT_KW, token.CHAR_KW, token.VOID, token.LONG, token.STRUCT,
		token.SIZEOF, token.IDENT, token.IDENT, token.EOF,
	}
	for i, w := range want {
		if toks[i].Kind != w {
			t.Errorf("token %d: got %s, want %s", i, toks[i].Kind, w)
		}
	}
}

func TestNextTokenErrorsUnterminatedComment(t *testing.T) {
	_, errs := Tokenize("int x; /* unterminated", "test.c")
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1", len(errs))
	}
}

func TestNextTokenSkipsLineAndBlockComments(t *testing.T) {
	toks, errs := Tokenize("int x; // trailing comment\nint y; /* block\ncomment */ int z;", "test.c")
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	count := 0
	for _, tok := range toks {
		if tok.Kind == token.INT_KW {
			count++
		}
	}
	if count != 3 {
		t.Errorf("got %d 'int' tokens, want 3", count)
	}
}

func TestPositionTracking(t *testing.T) {
	toks, _ := Tokenize("int x;\nint y;", "test.c")
	if toks[0].Pos.Line != 1 || toks[0].Pos.Column != 1 {
		t.Errorf("first token position: got %v", toks[0].Pos)
	}

	var secondInt token.Token
	seen := 0
	for _, tok := range toks {
		if tok.Kind == token.INT_KW {
			seen++
			if seen == 2 {
				secondInt = tok
			}
		}
	}
	if secondInt.Pos.Line != 2 {
		t.Errorf("second 'int' line: got %d, want 2", secondInt.Pos.Line)
	}
}
