package clause

import (
	"github.com/sqlmongo-go/sqlmongo/engine/ast"
	"github.com/sqlmongo-go/sqlmongo/engine/qctx"
	"github.com/sqlmongo-go/sqlmongo/engine/resolver"
	"github.com/sqlmongo-go/sqlmongo/internal/errorkinds"
	"go.mongodb.org/mongo-driver/bson"
)

// Join is one INNER/LEFT OUTER JOIN, resolved to the $lookup/$unwind pair
// spec.md §4.4 describes. as names the array $lookup produces before
// $unwind flattens it back to a single embedded document per row; it's the
// joined table's alias if one was given, otherwise the table name itself,
// so multiple joins in one statement don't collide on a literal "right".
type Join struct {
	Outer        bool
	Table        string
	Alias        string
	As           string
	LocalField   string
	ForeignField string
}

// ParseJoin parses one join starting at the merged "INNER JOIN"/
// "LEFT OUTER JOIN" keyword at tokens[i] (produced by the parser's
// mergeJoinKeywords) and returns the join plus the index just past its ON
// comparison. ctx.LeftTable and any earlier joins' aliases must already be
// registered, since the ON comparison may reference either side by alias.
func ParseJoin(tokens []*ast.Token, i int, ctx *qctx.Context) (*Join, int, error) {
	kw := tokens[i]
	outer := kw.MatchKeyword("LEFT OUTER JOIN")
	if !outer && !kw.MatchKeyword("INNER JOIN") {
		return nil, i, errorkinds.MalformedSQL.New("expected JOIN keyword")
	}
	i++

	if i >= len(tokens) || !tokens[i].Is(ast.KindIdentifier) {
		return nil, i, errorkinds.MalformedSQL.New("JOIN must be followed by a table name")
	}
	tr := resolver.New(tokens[i], nil)
	table, err := tr.Table()
	if err != nil {
		return nil, i, err
	}
	alias, err := tr.Alias()
	if err != nil {
		return nil, i, err
	}
	i++

	if i >= len(tokens) || !tokens[i].MatchKeyword("ON") {
		return nil, i, errorkinds.MalformedSQL.New("JOIN must be followed by ON")
	}
	i++

	if i >= len(tokens) || !tokens[i].Is(ast.KindComparison) {
		return nil, i, errorkinds.MalformedSQL.New("JOIN ON must be a comparison")
	}
	cmpTok := tokens[i]
	i++

	if alias != "" {
		ctx.Aliases[alias] = table
	}

	cr := resolver.New(cmpTok, ctx)
	if !cr.RightIsIdentifier() {
		return nil, i, errorkinds.UnsupportedSQL.New("JOIN ON must compare two columns")
	}
	leftTable, err := cr.LeftTable()
	if err != nil {
		return nil, i, err
	}
	leftCol, err := cr.LeftColumn()
	if err != nil {
		return nil, i, err
	}
	rightTable, err := cr.RightTable()
	if err != nil {
		return nil, i, err
	}
	rightCol, err := cr.RightColumn()
	if err != nil {
		return nil, i, err
	}

	var local, foreign string
	switch ctx.LeftTable {
	case leftTable:
		local, foreign = leftCol, rightCol
	case rightTable:
		local, foreign = rightCol, leftCol
	default:
		return nil, i, errorkinds.UnsupportedSQL.New("JOIN ON does not reference the query's left table")
	}

	as := alias
	if as == "" {
		as = table
	}

	return &Join{
		Outer:        outer,
		Table:        table,
		Alias:        alias,
		As:           as,
		LocalField:   local,
		ForeignField: foreign,
	}, i, nil
}

func (j *Join) lookup() bson.M {
	return bson.M{
		"$lookup": bson.M{
			"from":         j.Table,
			"localField":   j.LocalField,
			"foreignField": j.ForeignField,
			"as":           j.As,
		},
	}
}

// Stages emits the pipeline fragment for this join: InnerJoin additionally
// drops rows whose local field is missing or null before the $lookup, since
// an inner join never wants to $unwind a row down to nothing.
func (j *Join) Stages() []bson.M {
	if j.Outer {
		return []bson.M{
			j.lookup(),
			{"$unwind": bson.M{"path": "$" + j.As, "preserveNullAndEmptyArrays": true}},
		}
	}
	return []bson.M{
		{"$match": bson.M{j.LocalField: bson.M{"$ne": nil, "$exists": true}}},
		j.lookup(),
		{"$unwind": "$" + j.As},
	}
}
