package clause

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/sqlmongo-go/sqlmongo/engine/ast"
	"github.com/sqlmongo-go/sqlmongo/engine/parser"
	"github.com/sqlmongo-go/sqlmongo/engine/qctx"
)

// columnTokens parses sql and returns the token run between SELECT and FROM.
func columnTokens(t *testing.T, sql string) []*ast.Token {
	t.Helper()
	stmt, err := parser.Parse(sql)
	require.NoError(t, err)
	for i, c := range stmt.Children {
		if c.MatchKeyword("FROM") {
			return stmt.Children[1:i]
		}
	}
	t.Fatalf("no FROM in %q", sql)
	return nil
}

func TestParseColumnSelectWildcard(t *testing.T) {
	cs, err := ParseColumnSelect(columnTokens(t, "SELECT * FROM t"), qctx.New(nil))
	require.NoError(t, err)
	assert.True(t, cs.Wildcard)
}

func TestParseColumnSelectPlainColumns(t *testing.T) {
	cs, err := ParseColumnSelect(columnTokens(t, "SELECT a, b FROM t"), qctx.New(nil))
	require.NoError(t, err)
	require.Len(t, cs.Columns, 2)
	assert.Equal(t, "a", cs.Columns[0].Column)
	assert.Equal(t, "b", cs.Columns[1].Column)
}

func TestParseColumnSelectSingleColumnNoList(t *testing.T) {
	cs, err := ParseColumnSelect(columnTokens(t, "SELECT a FROM t"), qctx.New(nil))
	require.NoError(t, err)
	require.Len(t, cs.Columns, 1)
	assert.Equal(t, "a", cs.Columns[0].Column)
}

func TestParseColumnSelectAliasedColumn(t *testing.T) {
	cs, err := ParseColumnSelect(columnTokens(t, "SELECT a AS aa FROM t"), qctx.New(nil))
	require.NoError(t, err)
	require.Len(t, cs.Columns, 1)
	assert.Equal(t, "aa", cs.Columns[0].Alias)
}

func TestParseColumnSelectDistinct(t *testing.T) {
	cs, err := ParseColumnSelect(columnTokens(t, "SELECT DISTINCT a FROM t"), qctx.New(nil))
	require.NoError(t, err)
	require.NotNil(t, cs.Distinct)
	assert.Equal(t, "a", cs.Distinct.Column)
}

func TestParseColumnSelectDistinctOverFunctionUnsupported(t *testing.T) {
	_, err := ParseColumnSelect(columnTokens(t, "SELECT DISTINCT COUNT(*) FROM t"), qctx.New(nil))
	assert.Error(t, err)
}

func TestParseColumnSelectCountStar(t *testing.T) {
	cs, err := ParseColumnSelect(columnTokens(t, "SELECT COUNT(*) FROM t"), qctx.New(nil))
	require.NoError(t, err)
	assert.True(t, cs.CountStar)
	assert.Equal(t, "", cs.CountAlias)
}

func TestParseColumnSelectCountStarAliased(t *testing.T) {
	cs, err := ParseColumnSelect(columnTokens(t, "SELECT COUNT(*) AS total FROM t"), qctx.New(nil))
	require.NoError(t, err)
	assert.True(t, cs.CountStar)
	assert.Equal(t, "total", cs.CountAlias)
}

func TestParseColumnSelectReturnConst(t *testing.T) {
	cs, err := ParseColumnSelect(columnTokens(t, "SELECT (1) FROM t"), qctx.New(nil))
	require.NoError(t, err)
	assert.True(t, cs.HasConst)
	assert.Equal(t, int64(1), cs.ReturnConst)
}

func TestParseColumnSelectReturnConstString(t *testing.T) {
	cs, err := ParseColumnSelect(columnTokens(t, "SELECT ('x') FROM t"), qctx.New(nil))
	require.NoError(t, err)
	assert.True(t, cs.HasConst)
	assert.Equal(t, "x", cs.ReturnConst)
}

func TestParseColumnSelectEmptyErrors(t *testing.T) {
	_, err := ParseColumnSelect(nil, qctx.New(nil))
	assert.Error(t, err)
}

func TestParseColumnSelectUnsupportedFunction(t *testing.T) {
	// SUM isn't a recognized function name, so it lexes as a plain name and
	// "SUM(x)" groups the same way COUNT(*) does: an Identifier wrapping a
	// Function token.
	_, err := ParseColumnSelect(columnTokens(t, "SELECT SUM(x) FROM t"), qctx.New(nil))
	assert.Error(t, err)
}

func TestColumnSelectProjectionWildcardIsNil(t *testing.T) {
	cs := &ColumnSelect{Wildcard: true}
	assert.Nil(t, cs.Projection(qctx.New(nil)))
}

func TestColumnSelectProjectionColumns(t *testing.T) {
	qc := qctx.New(nil)
	qc.LeftTable = "t"
	cs := &ColumnSelect{Columns: []ColumnRef{{Table: "t", Column: "a"}}}
	assert.Equal(t, bson.M{"a": 1}, cs.Projection(qc))
}

func TestColumnSelectProjectStageSuppressesID(t *testing.T) {
	qc := qctx.New(nil)
	qc.LeftTable = "t"
	cs := &ColumnSelect{Columns: []ColumnRef{{Table: "t", Column: "a"}}}
	stage := cs.ProjectStage(qc)
	proj := stage["$project"].(bson.M)
	assert.Equal(t, 0, proj["_id"])
	assert.Equal(t, 1, proj["a"])
}

func TestColumnSelectProjectStageNilForWildcard(t *testing.T) {
	cs := &ColumnSelect{Wildcard: true}
	assert.Nil(t, cs.ProjectStage(qctx.New(nil)))
}
