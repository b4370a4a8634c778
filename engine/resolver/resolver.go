// Package resolver is the identifier view described in spec.md §4.2: a
// thin, lazily-evaluated adapter over one ast.Token (Identifier, Comparison
// or Parenthesis) that knows how to pull table/column/alias/order
// information out of it and resolve a qualifier through the query's alias
// table. It owns no token; SQLToken is a value type wrapping a pointer.
package resolver

import (
	"regexp"
	"strconv"

	"github.com/sqlmongo-go/sqlmongo/engine/ast"
	"github.com/sqlmongo-go/sqlmongo/engine/qctx"
	"github.com/sqlmongo-go/sqlmongo/internal/errorkinds"
)

var placeholderRe = regexp.MustCompile(`(?i)^%\(([0-9]+)\)s$`)

// SQLToken adapts one token, resolving qualifiers through ctx's alias
// table. ctx may be nil for tokens that never need alias resolution (e.g.
// a bare INSERT column name).
type SQLToken struct {
	tok *ast.Token
	ctx *qctx.Context
}

func New(tok *ast.Token, ctx *qctx.Context) SQLToken {
	return SQLToken{tok: tok, ctx: ctx}
}

func (s SQLToken) names() []*ast.Token {
	var out []*ast.Token
	for _, c := range s.tok.Children {
		if c.Kind == ast.KindName {
			out = append(out, c)
			continue
		}
		if c.Kind == ast.KindPunctuation && c.Value == "." {
			continue
		}
		break
	}
	return out
}

// Table returns the identifier's table qualifier, resolved through the
// alias table: an explicit qualifier ("t.c") is looked up first; if it
// isn't a known alias, the qualifier is returned literally. An unqualified
// identifier ("c") returns its own real name as the table, matching
// sqlparse's Identifier.get_parent_name()-falls-back-to-get_real_name()
// behavior that SQLToken.table mirrors in the original source.
func (s SQLToken) Table() (string, error) {
	if !s.tok.Is(ast.KindIdentifier) {
		return "", errorkinds.MalformedSQL.New("expected identifier")
	}
	ns := s.names()
	if len(ns) == 0 {
		return "", errorkinds.MalformedSQL.New("identifier has no name")
	}
	qualifier := ns[0].Value
	if s.ctx != nil {
		return s.ctx.ResolveTable(qualifier), nil
	}
	return qualifier, nil
}

// Column returns the identifier's real (rightmost) name.
func (s SQLToken) Column() (string, error) {
	if !s.tok.Is(ast.KindIdentifier) {
		return "", errorkinds.MalformedSQL.New("expected identifier")
	}
	ns := s.names()
	if len(ns) == 0 {
		return "", errorkinds.MalformedSQL.New("identifier has no name")
	}
	return ns[len(ns)-1].Value, nil
}

// Alias returns the "AS x" alias name, or "" if none is present. An
// implicit alias ("users u") is grouped by engine/parser as "users AS u".
func (s SQLToken) Alias() (string, error) {
	if !s.tok.Is(ast.KindIdentifier) {
		return "", errorkinds.MalformedSQL.New("expected identifier")
	}
	children := s.tok.Children
	for i := 0; i+1 < len(children); i++ {
		if children[i].MatchKeyword("AS") {
			return children[i+1].Value, nil
		}
	}
	return "", nil
}

// Order returns +1 for ASC and -1 for DESC. It fails if no explicit
// direction keyword is present — matching the original's
// get_ordering()-returns-None-is-an-error behavior (spec.md §4.4 Order).
func (s SQLToken) Order() (int, error) {
	if !s.tok.Is(ast.KindIdentifier) {
		return 0, errorkinds.MalformedSQL.New("expected identifier")
	}
	for _, c := range s.tok.Children {
		if c.MatchKeyword("ASC") {
			return 1, nil
		}
		if c.MatchKeyword("DESC") {
			return -1, nil
		}
	}
	return 0, errorkinds.MalformedSQL.New("ORDER BY column has no ASC/DESC")
}

// IsFunctionCall reports whether the identifier wraps a Function (e.g.
// COUNT(*)), and returns the function name if so.
func (s SQLToken) IsFunctionCall() (name string, ok bool) {
	first := s.tok.First()
	if first != nil && first.Is(ast.KindFunction) && len(first.Children) > 0 {
		return first.Children[0].Value, true
	}
	return "", false
}

// comparison accessors

func (s SQLToken) comparisonSide(index int) (*ast.Token, error) {
	if !s.tok.Is(ast.KindComparison) || len(s.tok.Children) != 3 {
		return nil, errorkinds.MalformedSQL.New("expected comparison")
	}
	return s.tok.Children[index], nil
}

func (s SQLToken) LeftTable() (string, error) {
	left, err := s.comparisonSide(0)
	if err != nil {
		return "", err
	}
	return New(left, s.ctx).Table()
}

func (s SQLToken) LeftColumn() (string, error) {
	left, err := s.comparisonSide(0)
	if err != nil {
		return "", err
	}
	return New(left, s.ctx).Column()
}

func (s SQLToken) RightTable() (string, error) {
	right, err := s.comparisonSide(2)
	if err != nil {
		return "", err
	}
	return New(right, s.ctx).Table()
}

func (s SQLToken) RightColumn() (string, error) {
	right, err := s.comparisonSide(2)
	if err != nil {
		return "", err
	}
	return New(right, s.ctx).Column()
}

// LHSColumn is the SET clause's left-hand column name ("a" in "a"=%s).
func (s SQLToken) LHSColumn() (string, error) {
	return s.LeftColumn()
}

// RHSIndex is the SET/Cmp clause's right-hand placeholder index. It fails
// if the right side isn't a placeholder.
func (s SQLToken) RHSIndex() (int, error) {
	right, err := s.comparisonSide(2)
	if err != nil {
		return 0, err
	}
	if !right.Is(ast.KindPlaceholder) {
		return 0, errorkinds.MalformedSQL.New("right-hand side is not a parameter")
	}
	return PlaceholderIndex(right)
}

// RightIsIdentifier reports whether a Comparison's right-hand side is an
// Identifier rather than a placeholder — the "join predicate in WHERE"
// shape spec.md §4.3 rejects with JoinInWhereUnsupported.
func (s SQLToken) RightIsIdentifier() bool {
	right, err := s.comparisonSide(2)
	if err != nil {
		return false
	}
	return right.Is(ast.KindIdentifier)
}

// PlaceholderIndex parses the integer k out of a "%(k)s" placeholder token.
func PlaceholderIndex(tok *ast.Token) (int, error) {
	if !tok.Is(ast.KindPlaceholder) {
		return 0, errorkinds.ParameterBindingError.New("not a placeholder")
	}
	m := placeholderRe.FindStringSubmatch(tok.Value)
	if m == nil {
		return 0, errorkinds.ParameterBindingError.New("placeholder does not match %(N)s: " + tok.Value)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, errorkinds.ParameterBindingError.New("bad placeholder index: " + tok.Value)
	}
	return n, nil
}

// ValueListItem is one entry of a parenthesized value list: either a bound
// parameter index or an explicit NULL.
type ValueListItem struct {
	Index  int
	IsNull bool
}

// ValueList iterates a "(...)" group's contents as a flat list of
// placeholders and/or NULLs, matching SQLToken.__iter__ in spec.md §4.2: a
// single placeholder, a single NULL, or a comma-separated run of either.
// Any other content fails with errorkinds.UnsupportedSQL.
func ValueList(paren *ast.Token) ([]ValueListItem, error) {
	if !paren.Is(ast.KindParenthesis) {
		return nil, errorkinds.MalformedSQL.New("expected parenthesis")
	}
	inner := paren.Inner()

	var items []ValueListItem
	expectValue := true
	for _, tok := range inner {
		if expectValue {
			switch {
			case tok.Is(ast.KindPlaceholder):
				idx, err := PlaceholderIndex(tok)
				if err != nil {
					return nil, err
				}
				items = append(items, ValueListItem{Index: idx})
			case tok.Is(ast.KindNull):
				items = append(items, ValueListItem{IsNull: true})
			default:
				return nil, errorkinds.UnsupportedSQL.New("unsupported value in IN (...) list")
			}
			expectValue = false
			continue
		}
		if tok.Kind == ast.KindPunctuation && tok.Value == "," {
			expectValue = true
			continue
		}
		return nil, errorkinds.UnsupportedSQL.New("unsupported value in IN (...) list")
	}
	if len(items) == 0 {
		return nil, errorkinds.UnsupportedSQL.New("empty IN (...) list")
	}
	return items, nil
}

// IsNestedSelect reports whether a "(...)" group's first significant token
// is a DML keyword (a nested SELECT), per spec.md §4.3's IN construction
// rule.
func IsNestedSelect(paren *ast.Token) bool {
	inner := paren.Inner()
	if len(inner) == 0 {
		return false
	}
	return inner[0].Is(ast.KindDML)
}
