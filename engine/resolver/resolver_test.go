package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlmongo-go/sqlmongo/engine/ast"
	"github.com/sqlmongo-go/sqlmongo/engine/parser"
	"github.com/sqlmongo-go/sqlmongo/engine/qctx"
)

func mustParse(t *testing.T, sql string) *ast.Token {
	t.Helper()
	stmt, err := parser.Parse(sql)
	require.NoError(t, err)
	return stmt
}

func TestTableColumnAliasQualified(t *testing.T) {
	stmt := mustParse(t, "SELECT u.id AS uid FROM users u")
	col := stmt.Children[1]

	ctx := qctx.New(nil)
	ctx.Aliases["u"] = "users"
	s := New(col, ctx)

	table, err := s.Table()
	require.NoError(t, err)
	assert.Equal(t, "users", table)

	column, err := s.Column()
	require.NoError(t, err)
	assert.Equal(t, "id", column)

	alias, err := s.Alias()
	require.NoError(t, err)
	assert.Equal(t, "uid", alias)
}

func TestTableUnqualifiedFallsBackToRealName(t *testing.T) {
	stmt := mustParse(t, "SELECT id FROM t")
	col := stmt.Children[1]

	s := New(col, nil)
	table, err := s.Table()
	require.NoError(t, err)
	assert.Equal(t, "id", table)

	alias, err := s.Alias()
	require.NoError(t, err)
	assert.Equal(t, "", alias)
}

func TestTableColumnNonIdentifierErrors(t *testing.T) {
	notIdent := ast.Leaf(ast.KindName, "x")
	s := New(notIdent, nil)

	_, err := s.Table()
	assert.Error(t, err)
	_, err = s.Column()
	assert.Error(t, err)
	_, err = s.Alias()
	assert.Error(t, err)
	_, err = s.Order()
	assert.Error(t, err)
}

func TestOrderAscDesc(t *testing.T) {
	asc := mustParse(t, "SELECT * FROM t ORDER BY a ASC")
	ascCol := asc.Children[len(asc.Children)-1]
	dir, err := New(ascCol, nil).Order()
	require.NoError(t, err)
	assert.Equal(t, 1, dir)

	desc := mustParse(t, "SELECT * FROM t ORDER BY a DESC")
	descCol := desc.Children[len(desc.Children)-1]
	dir, err = New(descCol, nil).Order()
	require.NoError(t, err)
	assert.Equal(t, -1, dir)
}

func TestOrderMissingDirectionErrors(t *testing.T) {
	stmt := mustParse(t, "SELECT * FROM t ORDER BY a")
	col := stmt.Children[len(stmt.Children)-1]
	_, err := New(col, nil).Order()
	assert.Error(t, err)
}

func TestIsFunctionCall(t *testing.T) {
	stmt := mustParse(t, "SELECT COUNT(*) FROM t")
	col := stmt.Children[1]

	name, ok := New(col, nil).IsFunctionCall()
	assert.True(t, ok)
	assert.Equal(t, "COUNT", name)

	plain := mustParse(t, "SELECT id FROM t")
	_, ok = New(plain.Children[1], nil).IsFunctionCall()
	assert.False(t, ok)
}

func findWhereComparison(t *testing.T, stmt *ast.Token) *ast.Token {
	t.Helper()
	for _, c := range stmt.Children {
		if c.Kind == ast.KindWhere {
			for _, wc := range c.Children {
				if wc.Kind == ast.KindComparison {
					return wc
				}
			}
		}
	}
	t.Fatal("no comparison found in WHERE")
	return nil
}

func TestComparisonAccessors(t *testing.T) {
	stmt := mustParse(t, "SELECT * FROM t WHERE a = %(0)s")
	cmp := findWhereComparison(t, stmt)

	s := New(cmp, nil)
	table, err := s.LeftTable()
	require.NoError(t, err)
	assert.Equal(t, "a", table)

	col, err := s.LeftColumn()
	require.NoError(t, err)
	assert.Equal(t, "a", col)

	idx, err := s.RHSIndex()
	require.NoError(t, err)
	assert.Equal(t, 0, idx)

	assert.False(t, s.RightIsIdentifier())
}

func TestComparisonNonComparisonErrors(t *testing.T) {
	notCmp := ast.Leaf(ast.KindName, "x")
	s := New(notCmp, nil)

	_, err := s.LeftTable()
	assert.Error(t, err)
	_, err = s.LeftColumn()
	assert.Error(t, err)
	_, err = s.RightTable()
	assert.Error(t, err)
	_, err = s.RightColumn()
	assert.Error(t, err)
	_, err = s.RHSIndex()
	assert.Error(t, err)
}

func TestPlaceholderIndex(t *testing.T) {
	tok := ast.Leaf(ast.KindPlaceholder, "%(7)s")
	idx, err := PlaceholderIndex(tok)
	require.NoError(t, err)
	assert.Equal(t, 7, idx)

	_, err = PlaceholderIndex(ast.Leaf(ast.KindPlaceholder, "%(x)s"))
	assert.Error(t, err)

	_, err = PlaceholderIndex(ast.Leaf(ast.KindName, "a"))
	assert.Error(t, err)
}

func TestValueListPlaceholders(t *testing.T) {
	stmt := mustParse(t, "SELECT * FROM t WHERE id IN (%(0)s, %(1)s)")
	where := stmt.Children[len(stmt.Children)-1]

	var paren *ast.Token
	for _, c := range where.Children {
		if c.Kind == ast.KindParenthesis {
			paren = c
		}
	}
	require.NotNil(t, paren)

	items, err := ValueList(paren)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, 0, items[0].Index)
	assert.Equal(t, 1, items[1].Index)
	assert.False(t, items[0].IsNull)
}

func TestValueListRejectsNonParenthesis(t *testing.T) {
	_, err := ValueList(ast.Leaf(ast.KindName, "x"))
	assert.Error(t, err)
}

func TestValueListEmptyErrors(t *testing.T) {
	empty := ast.Composite(ast.KindParenthesis,
		ast.Leaf(ast.KindPunctuation, "("),
		ast.Leaf(ast.KindPunctuation, ")"),
	)
	_, err := ValueList(empty)
	assert.Error(t, err)
}

func TestIsNestedSelect(t *testing.T) {
	nested := ast.Composite(ast.KindParenthesis,
		ast.Leaf(ast.KindPunctuation, "("),
		ast.Leaf(ast.KindDML, "SELECT"),
		ast.Leaf(ast.KindPunctuation, ")"),
	)
	assert.True(t, IsNestedSelect(nested))

	plain := ast.Composite(ast.KindParenthesis,
		ast.Leaf(ast.KindPunctuation, "("),
		ast.Leaf(ast.KindPlaceholder, "%(0)s"),
		ast.Leaf(ast.KindPunctuation, ")"),
	)
	assert.False(t, IsNestedSelect(plain))
}
