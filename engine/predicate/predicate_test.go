package predicate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/sqlmongo-go/sqlmongo/engine/ast"
	"github.com/sqlmongo-go/sqlmongo/engine/parser"
	"github.com/sqlmongo-go/sqlmongo/engine/qctx"
)

// whereContent parses sql and returns the WHERE token's children with the
// leading WHERE keyword dropped, mirroring clause.ParseWhere's own slicing.
func whereContent(t *testing.T, sql string) []*ast.Token {
	t.Helper()
	stmt, err := parser.Parse(sql)
	require.NoError(t, err)
	for _, c := range stmt.Children {
		if c.Kind == ast.KindWhere {
			return c.Children[1:]
		}
	}
	t.Fatalf("no WHERE clause in %q", sql)
	return nil
}

func buildFilter(t *testing.T, sql string, params []interface{}) (bson.M, error) {
	t.Helper()
	content := whereContent(t, sql)
	b := NewBuilder(qctx.New(params), nil)
	root, err := b.Build(content)
	require.NoError(t, err)

	if err := Resolve(context.Background(), b.Tree(), root, params); err != nil {
		return nil, err
	}
	if err := Evaluate(b.Tree(), root); err != nil {
		return nil, err
	}
	return Emit(b.Tree(), root)
}

func TestSimpleEquality(t *testing.T) {
	filter, err := buildFilter(t, "SELECT * FROM t WHERE a = %(0)s", []interface{}{"x"})
	require.NoError(t, err)
	assert.Equal(t, bson.M{"a": bson.M{"$eq": "x"}}, filter)
}

func TestComparisonOperators(t *testing.T) {
	cases := []struct {
		op      string
		mongoOp string
	}{
		{">", "$gt"}, {"<", "$lt"}, {">=", "$gte"}, {"<=", "$lte"},
	}
	for _, c := range cases {
		sql := "SELECT * FROM t WHERE a " + c.op + " %(0)s"
		filter, err := buildFilter(t, sql, []interface{}{1})
		require.NoError(t, err)
		assert.Equal(t, bson.M{"a": bson.M{c.mongoOp: 1}}, filter)
	}
}

func TestAndOfTwoComparisons(t *testing.T) {
	filter, err := buildFilter(t, "SELECT * FROM t WHERE a = %(0)s AND b = %(1)s", []interface{}{1, 2})
	require.NoError(t, err)
	assert.Equal(t, bson.M{"$and": []bson.M{
		{"a": bson.M{"$eq": 1}}, {"b": bson.M{"$eq": 2}},
	}}, filter)
}

func TestOrOfTwoComparisons(t *testing.T) {
	filter, err := buildFilter(t, "SELECT * FROM t WHERE a = %(0)s OR b = %(1)s", []interface{}{1, 2})
	require.NoError(t, err)
	assert.Equal(t, bson.M{"$or": []bson.M{
		{"a": bson.M{"$eq": 1}}, {"b": bson.M{"$eq": 2}},
	}}, filter)
}

func TestAndChainFlattensToSingleAnd(t *testing.T) {
	filter, err := buildFilter(t, "SELECT * FROM t WHERE a = %(0)s AND b = %(1)s AND c = %(2)s", []interface{}{1, 2, 3})
	require.NoError(t, err)
	and, ok := filter["$and"].([]bson.M)
	require.True(t, ok)
	assert.Len(t, and, 3)
}

func TestNotNegatesComparison(t *testing.T) {
	filter, err := buildFilter(t, "SELECT * FROM t WHERE NOT a = %(0)s", []interface{}{1})
	require.NoError(t, err)
	assert.Equal(t, bson.M{"a": bson.M{"$not": bson.M{"$eq": 1}}}, filter)
}

func TestInOperator(t *testing.T) {
	filter, err := buildFilter(t, "SELECT * FROM t WHERE id IN (%(0)s, %(1)s)", []interface{}{1, 2})
	require.NoError(t, err)
	assert.Equal(t, bson.M{"id": bson.M{"$in": []interface{}{1, 2}}}, filter)
}

func TestNotInOperator(t *testing.T) {
	filter, err := buildFilter(t, "SELECT * FROM t WHERE id NOT IN (%(0)s, %(1)s)", []interface{}{1, 2})
	require.NoError(t, err)
	assert.Equal(t, bson.M{"id": bson.M{"$nin": []interface{}{1, 2}}}, filter)
}

func TestNegatedInIsUnsupported(t *testing.T) {
	_, err := buildFilter(t, "SELECT * FROM t WHERE NOT id IN (%(0)s, %(1)s)", []interface{}{1, 2})
	assert.Error(t, err)
}

func TestNestedParenthesesPromoteInnerResult(t *testing.T) {
	filter, err := buildFilter(t, "SELECT * FROM t WHERE ((a = %(0)s))", []interface{}{1})
	require.NoError(t, err)
	assert.Equal(t, bson.M{"a": bson.M{"$eq": 1}}, filter)
}

func TestParenOperandInAndOr(t *testing.T) {
	filter, err := buildFilter(t, "SELECT * FROM t WHERE (a = %(0)s) AND b = %(1)s", []interface{}{1, 2})
	require.NoError(t, err)
	assert.Equal(t, bson.M{"$and": []bson.M{
		{"a": bson.M{"$eq": 1}}, {"b": bson.M{"$eq": 2}},
	}}, filter)
}

func TestJoinPredicateInWhereIsUnsupported(t *testing.T) {
	b := NewBuilder(qctx.New(nil), nil)
	_, err := b.Build(whereContent(t, "SELECT * FROM t WHERE a = b"))
	assert.Error(t, err)
}

func TestMissingBoundParameterErrors(t *testing.T) {
	_, err := buildFilter(t, "SELECT * FROM t WHERE a = %(0)s", nil)
	assert.Error(t, err)
}

func TestEmptyWhereClauseErrors(t *testing.T) {
	b := NewBuilder(qctx.New(nil), nil)
	_, err := b.Build(nil)
	assert.Error(t, err)
}
