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

func joinTestTokens(t *testing.T, sql string) ([]*ast.Token, int) {
	t.Helper()
	stmt, err := parser.Parse(sql)
	require.NoError(t, err)
	for i, c := range stmt.Children {
		if c.MatchKeyword("INNER JOIN") || c.MatchKeyword("LEFT OUTER JOIN") {
			return stmt.Children, i
		}
	}
	t.Fatalf("no JOIN in %q", sql)
	return nil, 0
}

func TestParseJoinInner(t *testing.T) {
	children, i := joinTestTokens(t, "SELECT * FROM a INNER JOIN b ON a.id = b.aid")
	qc := qctx.New(nil)
	qc.LeftTable = "a"

	j, next, err := ParseJoin(children, i, qc)
	require.NoError(t, err)
	assert.False(t, j.Outer)
	assert.Equal(t, "b", j.Table)
	assert.Equal(t, "b", j.As)
	assert.Equal(t, "id", j.LocalField)
	assert.Equal(t, "aid", j.ForeignField)
	assert.Greater(t, next, i)
}

func TestParseJoinOuterWithAlias(t *testing.T) {
	children, i := joinTestTokens(t, "SELECT * FROM a LEFT OUTER JOIN b bb ON a.id = bb.aid")
	qc := qctx.New(nil)
	qc.LeftTable = "a"

	j, _, err := ParseJoin(children, i, qc)
	require.NoError(t, err)
	assert.True(t, j.Outer)
	assert.Equal(t, "b", j.Table)
	assert.Equal(t, "bb", j.Alias)
	assert.Equal(t, "bb", j.As)
	assert.Equal(t, "b", qc.Aliases["bb"])
}

func TestParseJoinOnReversedSides(t *testing.T) {
	children, i := joinTestTokens(t, "SELECT * FROM a INNER JOIN b ON b.aid = a.id")
	qc := qctx.New(nil)
	qc.LeftTable = "a"

	j, _, err := ParseJoin(children, i, qc)
	require.NoError(t, err)
	assert.Equal(t, "id", j.LocalField)
	assert.Equal(t, "aid", j.ForeignField)
}

func TestParseJoinOnMustCompareTwoColumns(t *testing.T) {
	children, i := joinTestTokens(t, "SELECT * FROM a INNER JOIN b ON a.id = %(0)s")
	qc := qctx.New(nil)
	qc.LeftTable = "a"

	_, _, err := ParseJoin(children, i, qc)
	assert.Error(t, err)
}

func TestParseJoinOnUnrelatedToLeftTable(t *testing.T) {
	children, i := joinTestTokens(t, "SELECT * FROM a INNER JOIN b ON c.id = b.cid")
	qc := qctx.New(nil)
	qc.LeftTable = "a"

	_, _, err := ParseJoin(children, i, qc)
	assert.Error(t, err)
}

func TestJoinStagesInner(t *testing.T) {
	j := &Join{Table: "b", LocalField: "id", ForeignField: "aid", As: "b"}
	stages := j.Stages()
	require.Len(t, stages, 3)
	match := stages[0]["$match"].(bson.M)
	assert.Equal(t, bson.M{"$ne": nil, "$exists": true}, match["id"])
}

func TestJoinStagesOuter(t *testing.T) {
	j := &Join{Outer: true, Table: "b", LocalField: "id", ForeignField: "aid", As: "b"}
	stages := j.Stages()
	require.Len(t, stages, 2)
	assert.Contains(t, stages[1], "$unwind")
}
