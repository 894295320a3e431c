// Package includer implements textual inclusion over an already-lexed
// token stream: `#include` directives are replaced by the tokens of
// the referenced file, re-lexed and expanded recursively. Every other
// `#`-directive is recognized only well enough to be skipped.
package includer

import (
	"os"
	"path/filepath"
	"strings"

	"cc64/internal/ccerrors"
	"cc64/internal/lexer"
	"cc64/internal/token"
)

// Includer expands #include directives over a token stream.
type Includer struct {
	// paths is searched, in order, for the angle-bracket include form.
	paths []string
	// maxDepth bounds recursive expansion (spec §9 open question).
	maxDepth int

	errors []*ccerrors.CompilerError
}

// New creates an Includer that searches includePaths for `<...>`
// includes and refuses to nest more than maxDepth files deep.
func New(includePaths []string, maxDepth int) *Includer {
	return &Includer{paths: includePaths, maxDepth: maxDepth}
}

// Errors returns every preprocessor error accumulated so far.
func (in *Includer) Errors() []*ccerrors.CompilerError { return in.errors }

func (in *Includer) addError(pos token.Position, format string, args ...any) {
	in.errors = append(in.errors, ccerrors.NewPreprocessor(pos, format, args...))
}

// Expand walks toks, replacing each #include directive with the
// (recursively expanded) tokens of the resolved file. The trailing EOF
// sentinel of included files is dropped; the outer stream's EOF is
// preserved as the final token.
func (in *Includer) Expand(toks []token.Token) []token.Token {
	return in.expand(toks, 0)
}

func (in *Includer) expand(toks []token.Token, depth int) []token.Token {
	if depth > in.maxDepth {
		pos := token.Position{}
		if len(toks) > 0 {
			pos = toks[0].Pos
		}
		in.addError(pos, "include depth exceeds limit of %d (possible cyclic inclusion)", in.maxDepth)
		return nil
	}

	out := make([]token.Token, 0, len(toks))
	i := 0
	for i < len(toks) {
		tok := toks[i]

		if tok.Kind != token.HASH {
			out = append(out, tok)
			i++
			continue
		}

		// Directive: '#' followed by an identifier naming it.
		if i+1 >= len(toks) || toks[i+1].Kind == token.EOF {
			in.addError(tok.Pos, "unexpected end of file after '#'")
			i++
			continue
		}

		directive := toks[i+1]
		// `if` and `else` lex as keywords, not identifiers.
		if directive.Kind != token.IDENT && directive.Kind != token.IF && directive.Kind != token.ELSE {
			// Not a recognizable directive name; drop '#' and move on.
			i++
			continue
		}

		switch directive.Literal {
		case "include":
			expanded, next := in.processInclude(toks, i+2, depth)
			out = append(out, expanded...)
			i = next
		default:
			// #define, #if, #ifdef, #else, #endif, #undef, #pragma,
			// #error, stringification and ## are all recognized only
			// as directive bodies to skip (spec §4.2): consume up to
			// (but not including) the next line-start token or EOF.
			i = in.skipDirectiveBody(toks, i+2)
		}
	}

	return out
}

// skipDirectiveBody advances past a directive's body, which this
// includer never expands. Directive bodies run to end-of-line; since
// the lexer does not preserve newlines as tokens, we approximate by
// skipping to the next token carrying a different source line than
// the directive name, matching the original preprocessor's per-line
// directive skipping.
func (in *Includer) skipDirectiveBody(toks []token.Token, start int) int {
	if start >= len(toks) {
		return start
	}
	line := toks[start-1].Pos.Line
	i := start
	for i < len(toks) && toks[i].Kind != token.EOF && toks[i].Pos.Line == line {
		i++
	}
	return i
}

func (in *Includer) processInclude(toks []token.Token, i int, depth int) ([]token.Token, int) {
	if i >= len(toks) {
		in.addError(toks[len(toks)-1].Pos, "unexpected end of file after #include")
		return nil, i
	}

	directivePos := toks[i-1].Pos

	var filename string
	var angled bool

	switch toks[i].Kind {
	case token.STRING:
		filename = toks[i].Literal
		i++
	case token.LT:
		i++
		var sb strings.Builder
		for i < len(toks) && toks[i].Kind != token.GT {
			switch toks[i].Kind {
			case token.IDENT:
				sb.WriteString(toks[i].Literal)
			case token.DOT:
				sb.WriteByte('.')
			case token.SLASH:
				sb.WriteByte('/')
			default:
				in.addError(toks[i].Pos, "invalid character in include filename")
				return nil, i + 1
			}
			i++
		}
		if i >= len(toks) {
			in.addError(directivePos, "unterminated include filename")
			return nil, i
		}
		filename = sb.String()
		angled = true
		i++ // consume '>'
	default:
		in.addError(directivePos, "expected filename after #include")
		return nil, i
	}

	path, err := in.resolve(filename, angled, directivePos.File)
	if err != "" {
		in.addError(directivePos, "%s", err)
		return nil, i
	}

	content, readErr := os.ReadFile(path)
	if readErr != nil {
		in.addError(directivePos, "failed to read include file %q: %s", path, readErr)
		return nil, i
	}

	fileToks, lexErrs := lexer.Tokenize(string(content), path)
	in.errors = append(in.errors, lexErrs...)

	// Drop the included file's own EOF before expanding its body.
	if n := len(fileToks); n > 0 && fileToks[n-1].Kind == token.EOF {
		fileToks = fileToks[:n-1]
	}

	return in.expand(fileToks, depth+1), i
}

func (in *Includer) resolve(filename string, angled bool, fromFile string) (string, string) {
	if !angled {
		dir := filepath.Dir(fromFile)
		full := filepath.Join(dir, filename)
		if _, err := os.Stat(full); err == nil {
			return full, ""
		}
		return "", "cannot find include file: " + filename
	}

	for _, dir := range in.paths {
		full := filepath.Join(dir, filename)
		if _, err := os.Stat(full); err == nil {
			return full, ""
		}
	}
	return "", "cannot find include file: " + filename
}
