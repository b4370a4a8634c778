// Package lexer turns raw SQL text into a flat list of leaf tokens. It knows
// nothing about clause structure — grouping quoted identifiers into
// Identifier nodes, recognizing a WHERE body, etc. is engine/parser's job.
// The split (and the position-tracking tokenizer struct below) mirrors the
// teacher's engine/lexer.Tokenizer, narrowed to the SQL dialect in
// SPEC_FULL.md instead of OmniQL's ":"-prefixed DSL.
package lexer

import (
	"strings"
	"unicode"

	"github.com/sqlmongo-go/sqlmongo/engine/ast"
)

// dmlWords are always classified as ast.KindDML regardless of position —
// in this narrow dialect they only ever open a statement (top-level or a
// single-level nested SELECT inside an IN (...) list).
var dmlWords = map[string]bool{
	"SELECT": true, "INSERT": true, "UPDATE": true,
	"DELETE": true, "CREATE": true, "ALTER": true, "DROP": true,
}

var keywordWords = map[string]bool{
	"FROM": true, "WHERE": true, "AND": true, "OR": true, "NOT": true,
	"IN": true, "INNER": true, "LEFT": true, "OUTER": true, "JOIN": true,
	"ON": true, "ORDER": true, "BY": true, "ASC": true, "DESC": true,
	"LIMIT": true, "DISTINCT": true, "AS": true, "INTO": true,
	"VALUES": true, "SET": true, "TABLE": true, "DATABASE": true,
	"ADD": true, "CONSTRAINT": true, "UNIQUE": true, "PRIMARY": true,
	"KEY": true, "AUTOINCREMENT": true,
}

type tokenizer struct {
	input []rune
	pos   int
}

// Tokenize scans sql into a flat sequence of leaf tokens. Whitespace is
// consumed, not emitted: nothing downstream needs it once the clause
// grouper has byte offsets it doesn't (we group by token index, not by
// source position).
func Tokenize(sql string) ([]*ast.Token, error) {
	t := &tokenizer{input: []rune(sql)}
	var out []*ast.Token

	for {
		t.skipSpace()
		if t.pos >= len(t.input) {
			break
		}
		tok, err := t.next()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
	}
	return out, nil
}

func (t *tokenizer) skipSpace() {
	for t.pos < len(t.input) && unicode.IsSpace(t.input[t.pos]) {
		t.pos++
	}
}

func (t *tokenizer) peek() rune {
	if t.pos >= len(t.input) {
		return 0
	}
	return t.input[t.pos]
}

func (t *tokenizer) next() (*ast.Token, error) {
	start := t.pos
	ch := t.peek()

	switch ch {
	case '(', ')', ',', '.', ';':
		t.pos++
		return ast.Leaf(ast.KindPunctuation, string(ch)), nil
	case '*':
		t.pos++
		return ast.Leaf(ast.KindWildcard, "*"), nil
	case '=':
		t.pos++
		return ast.Leaf(ast.KindOperator, "="), nil
	case '<':
		t.pos++
		if t.peek() == '=' {
			t.pos++
			return ast.Leaf(ast.KindOperator, "<="), nil
		}
		return ast.Leaf(ast.KindOperator, "<"), nil
	case '>':
		t.pos++
		if t.peek() == '=' {
			t.pos++
			return ast.Leaf(ast.KindOperator, ">="), nil
		}
		return ast.Leaf(ast.KindOperator, ">"), nil
	case '"':
		return t.scanQuotedName()
	case '\'':
		return t.scanString()
	case '%':
		return t.scanPlaceholder()
	}

	if unicode.IsDigit(ch) {
		return t.scanNumber(), nil
	}
	if unicode.IsLetter(ch) || ch == '_' {
		return t.scanWord(), nil
	}

	return nil, &LexError{Message: "unexpected character " + string(ch), Pos: start}
}

func (t *tokenizer) scanQuotedName() (*ast.Token, error) {
	start := t.pos
	t.pos++ // opening quote
	var b strings.Builder
	for {
		if t.pos >= len(t.input) {
			return nil, &LexError{Message: "unterminated quoted identifier", Pos: start}
		}
		ch := t.input[t.pos]
		if ch == '"' {
			t.pos++
			break
		}
		b.WriteRune(ch)
		t.pos++
	}
	return ast.Leaf(ast.KindName, b.String()), nil
}

func (t *tokenizer) scanString() (*ast.Token, error) {
	start := t.pos
	t.pos++ // opening quote
	var b strings.Builder
	for {
		if t.pos >= len(t.input) {
			return nil, &LexError{Message: "unterminated string literal", Pos: start}
		}
		ch := t.input[t.pos]
		if ch == '\'' {
			t.pos++
			break
		}
		b.WriteRune(ch)
		t.pos++
	}
	return ast.Leaf(ast.KindString, b.String()), nil
}

// scanPlaceholder accepts both the pre-binding "%s" shape and the
// post-binding "%(N)s" shape, so the grouper can run on either.
func (t *tokenizer) scanPlaceholder() (*ast.Token, error) {
	start := t.pos
	rest := string(t.input[t.pos:])
	if strings.HasPrefix(rest, "%s") {
		t.pos += 2
		return ast.Leaf(ast.KindPlaceholder, "%s"), nil
	}
	if strings.HasPrefix(rest, "%(") {
		i := 2
		for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
			i++
		}
		if i > 2 && strings.HasPrefix(rest[i:], ")s") {
			t.pos += i + 2
			return ast.Leaf(ast.KindPlaceholder, rest[:i+2]), nil
		}
	}
	return nil, &LexError{Message: "malformed placeholder", Pos: start}
}

func (t *tokenizer) scanNumber() *ast.Token {
	start := t.pos
	for t.pos < len(t.input) && (unicode.IsDigit(t.input[t.pos]) || t.input[t.pos] == '.') {
		t.pos++
	}
	return ast.Leaf(ast.KindNumber, string(t.input[start:t.pos]))
}

func (t *tokenizer) scanWord() *ast.Token {
	start := t.pos
	for t.pos < len(t.input) && (unicode.IsLetter(t.input[t.pos]) || unicode.IsDigit(t.input[t.pos]) || t.input[t.pos] == '_') {
		t.pos++
	}
	word := string(t.input[start:t.pos])
	upper := strings.ToUpper(word)

	switch {
	case dmlWords[upper]:
		return ast.Leaf(ast.KindDML, upper)
	case upper == "NULL":
		return ast.Leaf(ast.KindNull, "NULL")
	case keywordWords[upper]:
		return ast.Leaf(ast.KindKeyword, upper)
	default:
		return ast.Leaf(ast.KindName, word)
	}
}
