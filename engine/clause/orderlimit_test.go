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

func orderByToken(t *testing.T, sql string) *ast.Token {
	t.Helper()
	stmt, err := parser.Parse(sql)
	require.NoError(t, err)
	for i, c := range stmt.Children {
		if c.MatchKeyword("BY") {
			return stmt.Children[i+1]
		}
	}
	t.Fatalf("no ORDER BY in %q", sql)
	return nil
}

func TestParseOrderSingleColumn(t *testing.T) {
	o, err := ParseOrder([]*ast.Token{orderByToken(t, "SELECT * FROM t ORDER BY a ASC")}, qctx.New(nil))
	require.NoError(t, err)
	require.Len(t, o.Fields, 1)
	assert.Equal(t, "a", o.Fields[0].Column)
	assert.Equal(t, 1, o.Fields[0].Direction)
}

func TestParseOrderMultiColumn(t *testing.T) {
	o, err := ParseOrder([]*ast.Token{orderByToken(t, "SELECT * FROM t ORDER BY a ASC, b DESC")}, qctx.New(nil))
	require.NoError(t, err)
	require.Len(t, o.Fields, 2)
	assert.Equal(t, "a", o.Fields[0].Column)
	assert.Equal(t, 1, o.Fields[0].Direction)
	assert.Equal(t, "b", o.Fields[1].Column)
	assert.Equal(t, -1, o.Fields[1].Direction)
}

func TestParseOrderNoColumnsErrors(t *testing.T) {
	_, err := ParseOrder(nil, qctx.New(nil))
	assert.Error(t, err)
}

func TestOrderSortAndSortStage(t *testing.T) {
	qc := qctx.New(nil)
	qc.LeftTable = "t"
	o := &Order{Fields: []OrderField{{Table: "t", Column: "a", Direction: 1}, {Table: "t", Column: "b", Direction: -1}}}

	sort := o.Sort(qc)
	assert.Equal(t, bson.D{{Key: "a", Value: 1}, {Key: "b", Value: -1}}, sort)

	stage := o.SortStage(qc)
	assert.Equal(t, bson.M{"$sort": sort}, stage)
}

func TestParseLimit(t *testing.T) {
	l, err := ParseLimit(ast.Leaf(ast.KindNumber, "10"))
	require.NoError(t, err)
	assert.Equal(t, int64(10), l.N)
}

func TestParseLimitRejectsNonNumber(t *testing.T) {
	_, err := ParseLimit(ast.Leaf(ast.KindName, "ten"))
	assert.Error(t, err)

	_, err = ParseLimit(nil)
	assert.Error(t, err)
}

func TestLimitStage(t *testing.T) {
	l := &Limit{N: 5}
	assert.Equal(t, bson.M{"$limit": int64(5)}, l.LimitStage())
}
