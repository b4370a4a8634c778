package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sqlmongo-go/sqlmongo/engine/ast"
)

func TestParseSimpleSelect(t *testing.T) {
	stmt, err := Parse("SELECT id, name FROM users WHERE id = %(0)s")
	require.NoError(t, err)
	require.Equal(t, ast.KindStatement, stmt.Kind)

	children := stmt.Children
	require.True(t, len(children) >= 4)
	assert.True(t, children[0].MatchKeyword("SELECT"))
	assert.Equal(t, ast.KindIdentifierList, children[1].Kind)
	assert.True(t, children[2].MatchKeyword("FROM"))
	assert.Equal(t, ast.KindIdentifier, children[3].Kind)

	last := children[len(children)-1]
	assert.Equal(t, ast.KindWhere, last.Kind)
}

func TestParseQualifiedColumnAndAlias(t *testing.T) {
	stmt, err := Parse("SELECT u.id AS uid FROM users u")
	require.NoError(t, err)

	col := stmt.Children[1]
	require.Equal(t, ast.KindIdentifier, col.Kind)
	require.Len(t, col.Children, 5) // u . id AS uid
	assert.Equal(t, "u", col.Children[0].Value)
	assert.Equal(t, "id", col.Children[2].Value)
	assert.Equal(t, "uid", col.Children[4].Value)
}

func TestParseFunctionCall(t *testing.T) {
	stmt, err := Parse("SELECT COUNT(*) FROM t")
	require.NoError(t, err)

	col := stmt.Children[1]
	require.Equal(t, ast.KindIdentifier, col.Kind)
	require.Len(t, col.Children, 1)
	assert.Equal(t, ast.KindFunction, col.Children[0].Kind)
}

func TestParseJoinKeywordsMerged(t *testing.T) {
	stmt, err := Parse("SELECT * FROM a INNER JOIN b ON a.id = b.id")
	require.NoError(t, err)

	var sawInnerJoin bool
	for _, tok := range stmt.Children {
		if tok.MatchKeyword("INNER JOIN") {
			sawInnerJoin = true
		}
	}
	assert.True(t, sawInnerJoin)
}

func TestParseCommaRunGroupsColumnList(t *testing.T) {
	stmt, err := Parse("INSERT INTO t (a, b) VALUES (%s, %s)")
	require.NoError(t, err)
	require.True(t, stmt.Children[0].MatchKeyword("INSERT"))
	require.Equal(t, ast.KindParenthesis, stmt.Children[3].Kind)
	inner := stmt.Children[3].Inner()
	require.Len(t, inner, 1)
	assert.Equal(t, ast.KindIdentifierList, inner[0].Kind)
}

func TestParseWhereWindowStopsAtOrder(t *testing.T) {
	stmt, err := Parse("SELECT * FROM t WHERE a = %s ORDER BY a")
	require.NoError(t, err)

	var where *ast.Token
	var orderIdx = -1
	for i, tok := range stmt.Children {
		if tok.Kind == ast.KindWhere {
			where = tok
		}
		if tok.MatchKeyword("ORDER") {
			orderIdx = i
		}
	}
	require.NotNil(t, where)
	assert.True(t, orderIdx >= 0)
	for _, c := range where.Children {
		assert.False(t, c.MatchKeyword("ORDER"))
	}
}

func TestParseNestedParenthesis(t *testing.T) {
	stmt, err := Parse("SELECT * FROM t WHERE id IN (%s, %s)")
	require.NoError(t, err)

	where := stmt.Children[len(stmt.Children)-1]
	require.Equal(t, ast.KindWhere, where.Kind)

	var sawParen bool
	for _, c := range where.Children {
		if c.Kind == ast.KindParenthesis {
			sawParen = true
		}
	}
	assert.True(t, sawParen)
}

func TestParseEmptyStatement(t *testing.T) {
	_, err := Parse("")
	assert.Error(t, err)
}

func TestParseMultipleStatementsRejected(t *testing.T) {
	_, err := Parse("SELECT * FROM t; SELECT * FROM u")
	assert.Error(t, err)
}

func TestParseTrailingSemicolonAllowed(t *testing.T) {
	stmt, err := Parse("SELECT * FROM t;")
	require.NoError(t, err)
	assert.Equal(t, ast.KindStatement, stmt.Kind)
}

func TestParseLexErrorWrapped(t *testing.T) {
	_, err := Parse("SELECT @ FROM t")
	assert.Error(t, err)
}
