package planner

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sqlmongo-go/sqlmongo/engine/ast"
	"github.com/sqlmongo-go/sqlmongo/engine/clause"
	"github.com/sqlmongo-go/sqlmongo/engine/predicate"
	"github.com/sqlmongo-go/sqlmongo/engine/qctx"
	"github.com/sqlmongo-go/sqlmongo/engine/resolver"
	"github.com/sqlmongo-go/sqlmongo/internal/errorkinds"
)

// planSelect implements spec.md §4.5's Select driver: pipeline mode runs
// whenever the statement has at least one JOIN, find mode otherwise, per the
// two-emission-functions-per-converter design note in spec.md §9. allowNested
// permits one nested "IN (SELECT ...)"; the inner SELECT this resolves
// passes allowNested=false, since a second level of nesting is out of scope.
func (d *Driver) planSelect(ctx context.Context, stmt *ast.Token, params []interface{}, allowNested bool, sql string) (*Cursor, error) {
	children := stmt.Children
	qc := qctx.New(params)

	fromIdx := findKeyword(children, 1, "FROM")
	if fromIdx < 0 {
		return nil, errorkinds.MalformedSQL.New("SELECT without FROM")
	}
	collectAliases(children, qc)

	cs, err := clause.ParseColumnSelect(children[1:fromIdx], qc)
	if err != nil {
		return nil, err
	}

	from, err := clause.ParseFrom(children[fromIdx+1], qc)
	if err != nil {
		return nil, err
	}

	i := fromIdx + 2
	var joins []*clause.Join
	for i < len(children) && (children[i].MatchKeyword("INNER JOIN") || children[i].MatchKeyword("LEFT OUTER JOIN")) {
		j, next, err := clause.ParseJoin(children, i, qc)
		if err != nil {
			return nil, err
		}
		joins = append(joins, j)
		i = next
	}

	var where *clause.Where
	if i < len(children) && children[i].Is(ast.KindWhere) {
		var nested predicate.NestedFactory
		if allowNested {
			nested = d.nestedFactory(ctx, params, sql)
		}
		where, err = clause.ParseWhere(children[i], qc, nested)
		if err != nil {
			return nil, err
		}
		if err := where.Resolve(ctx, params); err != nil {
			return nil, err
		}
		i++
	}

	var order *clause.Order
	if idx := findKeyword(children, i, "ORDER"); idx == i {
		byIdx := idx + 1
		if byIdx >= len(children) || !children[byIdx].MatchKeyword("BY") {
			return nil, errorkinds.MalformedSQL.New("ORDER without BY")
		}
		order, err = clause.ParseOrder([]*ast.Token{children[byIdx+1]}, qc)
		if err != nil {
			return nil, err
		}
		i = byIdx + 2
	}

	var limit *clause.Limit
	if idx := findKeyword(children, i, "LIMIT"); idx == i {
		if i+1 >= len(children) {
			return nil, errorkinds.MalformedSQL.New("LIMIT without a value")
		}
		limit, err = clause.ParseLimit(children[i+1])
		if err != nil {
			return nil, err
		}
		i += 2
	}

	coll := d.DB.Collection(from.Table)

	if len(joins) == 0 {
		return d.buildFindCursor(coll, qc, cs, where, order, limit, sql)
	}
	return d.buildAggregateCursor(coll, qc, cs, joins, where, order, limit, sql)
}

func (d *Driver) buildFindCursor(coll *mongo.Collection, qc *qctx.Context, cs *clause.ColumnSelect, where *clause.Where, order *clause.Order, limit *clause.Limit, sql string) (*Cursor, error) {
	c := &Cursor{coll: coll, sql: sql}

	if where != nil {
		filter, err := where.Filter()
		if err != nil {
			return nil, err
		}
		c.filter = filter
	}
	if order != nil {
		c.sort = order.Sort(qc)
	}
	if limit != nil {
		c.limit, c.hasLimit = limit.N, true
	}

	switch {
	case cs.CountStar:
		c.kind = kindCountFind
		c.countAlias = countAlias(cs)
	case cs.HasConst:
		c.kind = kindConstFind
		c.constValue = cs.ReturnConst
		c.constAlias = "const"
	case cs.Distinct != nil:
		c.kind = kindDistinctFind
		c.distinctField = qc.Qualify(cs.Distinct.Table, cs.Distinct.Column)
		c.distinctAlias = cs.Distinct.Column
		if cs.Distinct.Alias != "" {
			c.distinctAlias = cs.Distinct.Alias
		}
	default:
		c.kind = kindFind
		c.projection = cs.Projection(qc)
		c.columns = selectColumns(cs)
	}
	return c, nil
}

func (d *Driver) buildAggregateCursor(coll *mongo.Collection, qc *qctx.Context, cs *clause.ColumnSelect, joins []*clause.Join, where *clause.Where, order *clause.Order, limit *clause.Limit, sql string) (*Cursor, error) {
	if cs.Distinct != nil {
		return nil, errorkinds.UnsupportedSQL.New("DISTINCT with JOIN is not supported")
	}

	var pipeline mongo.Pipeline
	for _, j := range joins {
		for _, stage := range j.Stages() {
			pipeline = append(pipeline, toD(stage))
		}
	}
	if where != nil {
		match, err := where.MatchStage()
		if err != nil {
			return nil, err
		}
		pipeline = append(pipeline, toD(match))
	}
	if order != nil {
		pipeline = append(pipeline, toD(order.SortStage(qc)))
	}
	if limit != nil {
		pipeline = append(pipeline, toD(limit.LimitStage()))
	}
	if proj := cs.ProjectStage(qc); proj != nil {
		pipeline = append(pipeline, toD(proj))
	}

	c := &Cursor{coll: coll, pipeline: pipeline, sql: sql}
	switch {
	case cs.CountStar:
		c.kind = kindCountAggregate
		c.countAlias = countAlias(cs)
	case cs.HasConst:
		c.kind = kindConstAggregate
		c.constValue = cs.ReturnConst
		c.constAlias = "const"
	default:
		c.kind = kindAggregate
		c.columns = selectColumns(cs)
	}
	return c, nil
}

func countAlias(cs *clause.ColumnSelect) string {
	if cs.CountAlias != "" {
		return cs.CountAlias
	}
	return "count"
}

func selectColumns(cs *clause.ColumnSelect) []string {
	if cs.Wildcard {
		return nil
	}
	out := make([]string, 0, len(cs.Columns))
	for _, c := range cs.Columns {
		name := c.Column
		if c.Alias != "" {
			name = c.Alias
		}
		out = append(out, name)
	}
	return out
}

func toD(m bson.M) bson.D {
	d := make(bson.D, 0, len(m))
	for k, v := range m {
		d = append(d, bson.E{Key: k, Value: v})
	}
	return d
}

// collectAliases registers every FROM/JOIN table alias before any clause
// resolves a qualified column, so a SELECT list item referencing the FROM
// alias (which appears later in token order) still resolves correctly.
func collectAliases(children []*ast.Token, qc *qctx.Context) {
	fromIdx := findKeyword(children, 0, "FROM")
	if fromIdx >= 0 && fromIdx+1 < len(children) {
		registerAlias(children[fromIdx+1], qc)
	}
	for i := 0; i < len(children); i++ {
		if children[i].MatchKeyword("INNER JOIN") || children[i].MatchKeyword("LEFT OUTER JOIN") {
			if i+1 < len(children) {
				registerAlias(children[i+1], qc)
			}
		}
	}
}

func registerAlias(tok *ast.Token, qc *qctx.Context) {
	if !tok.Is(ast.KindIdentifier) {
		return
	}
	r := resolver.New(tok, nil)
	table, err := r.Table()
	if err != nil {
		return
	}
	alias, err := r.Alias()
	if err != nil || alias == "" {
		return
	}
	qc.Aliases[alias] = table
}
