package clause

import (
	"strconv"

	"github.com/sqlmongo-go/sqlmongo/engine/ast"
	"github.com/sqlmongo-go/sqlmongo/engine/qctx"
	"github.com/sqlmongo-go/sqlmongo/engine/resolver"
	"github.com/sqlmongo-go/sqlmongo/internal/errorkinds"
	"go.mongodb.org/mongo-driver/bson"
)

// ColumnRef is one resolved projection column: its source table (already
// alias-resolved), its real name, and an optional "AS alias" it was
// requested under.
type ColumnRef struct {
	Table  string
	Column string
	Alias  string
}

// ColumnSelect is the projector described in spec.md §4.4: the column list
// between SELECT and FROM, which may instead be a bare "*", a single
// DISTINCT column, a COUNT(*), or a parenthesized constant the driver
// returns once per matching row without fetching any document.
type ColumnSelect struct {
	Wildcard    bool
	Columns     []ColumnRef
	CountStar   bool
	CountAlias  string
	Distinct    *ColumnRef
	ReturnConst interface{}
	HasConst    bool
}

// ParseColumnSelect parses the token run between SELECT and FROM.
func ParseColumnSelect(tokens []*ast.Token, ctx *qctx.Context) (*ColumnSelect, error) {
	cs := &ColumnSelect{}

	if len(tokens) == 0 {
		return nil, errorkinds.MalformedSQL.New("SELECT has no columns")
	}

	if len(tokens) == 1 && tokens[0].Kind == ast.KindWildcard {
		cs.Wildcard = true
		return cs, nil
	}

	if tokens[0].MatchKeyword("DISTINCT") {
		if len(tokens) < 2 {
			return nil, errorkinds.MalformedSQL.New("DISTINCT has no column")
		}
		ref, isFn, err := parseColumnItem(tokens[1], ctx)
		if err != nil {
			return nil, err
		}
		if isFn {
			return nil, errorkinds.UnsupportedSQL.New("DISTINCT over a function call is not supported")
		}
		cs.Distinct = ref
		return cs, nil
	}

	items := columnItems(tokens)
	for _, item := range items {
		if item.Is(ast.KindParenthesis) {
			val, err := parseReturnConst(item)
			if err != nil {
				return nil, err
			}
			cs.HasConst = true
			cs.ReturnConst = val
			continue
		}

		ref, isFn, err := parseColumnItem(item, ctx)
		if err != nil {
			return nil, err
		}
		if isFn {
			cs.CountStar = true
			if ref != nil {
				cs.CountAlias = ref.Alias
			}
			continue
		}
		cs.Columns = append(cs.Columns, *ref)
	}

	if len(cs.Columns) == 0 && !cs.CountStar && !cs.HasConst {
		return nil, errorkinds.MalformedSQL.New("SELECT has no usable columns")
	}
	return cs, nil
}

// columnItems flattens a single Identifier or an IdentifierList's
// comma-separated children into a plain item slice.
func columnItems(tokens []*ast.Token) []*ast.Token {
	if len(tokens) == 1 && tokens[0].Is(ast.KindIdentifierList) {
		var out []*ast.Token
		for _, c := range tokens[0].Children {
			if c.Kind == ast.KindPunctuation {
				continue
			}
			out = append(out, c)
		}
		return out
	}
	return tokens
}

// parseColumnItem resolves one Identifier item, reporting isFn=true for a
// COUNT(...)-style function call instead of a plain column.
func parseColumnItem(item *ast.Token, ctx *qctx.Context) (ref *ColumnRef, isFn bool, err error) {
	if !item.Is(ast.KindIdentifier) {
		return nil, false, errorkinds.MalformedSQL.New("expected a column in SELECT list")
	}
	r := resolver.New(item, ctx)
	if name, ok := r.IsFunctionCall(); ok {
		if name != "COUNT" {
			return nil, false, errorkinds.UnsupportedSQL.New("unsupported function in SELECT list: " + name)
		}
		alias, _ := r.Alias()
		return &ColumnRef{Alias: alias}, true, nil
	}
	table, err := r.Table()
	if err != nil {
		return nil, false, err
	}
	col, err := r.Column()
	if err != nil {
		return nil, false, err
	}
	alias, err := r.Alias()
	if err != nil {
		return nil, false, err
	}
	return &ColumnRef{Table: table, Column: col, Alias: alias}, false, nil
}

// parseReturnConst reads a "(1)" or "('x')" style parenthesized literal,
// returned verbatim for every matching row without fetching any document.
func parseReturnConst(paren *ast.Token) (interface{}, error) {
	inner := paren.Inner()
	if len(inner) != 1 {
		return nil, errorkinds.UnsupportedSQL.New("unsupported parenthesized expression in SELECT list")
	}
	tok := inner[0]
	switch tok.Kind {
	case ast.KindNumber:
		if n, err := strconv.ParseInt(tok.Value, 10, 64); err == nil {
			return n, nil
		}
		return nil, errorkinds.MalformedSQL.New("bad integer literal: " + tok.Value)
	case ast.KindString:
		return tok.Value, nil
	case ast.KindNull:
		return nil, nil
	default:
		return nil, errorkinds.UnsupportedSQL.New("unsupported constant in SELECT list")
	}
}

// Projection emits the find-mode fragment. Wildcard, COUNT(*) and a
// return-const selection need no projection document at all: the driver
// either reads whole documents or only counts matching documents.
func (cs *ColumnSelect) Projection(ctx *qctx.Context) bson.M {
	if cs.Wildcard || cs.CountStar || cs.HasConst {
		return nil
	}
	if cs.Distinct != nil {
		return bson.M{ctx.Qualify(cs.Distinct.Table, cs.Distinct.Column): 1}
	}
	proj := bson.M{}
	for _, c := range cs.Columns {
		proj[ctx.Qualify(c.Table, c.Column)] = 1
	}
	return proj
}

// ProjectStage emits the aggregation-pipeline-mode $project fragment. Unlike
// Projection, it explicitly suppresses "_id" when the column list didn't ask
// for it: find-mode rows are plucked by field name, so an extra "_id" MongoDB
// always returns is simply ignored, but pipeline-mode wants every produced
// document to align exactly with the requested columns with no such
// heuristic needed downstream.
func (cs *ColumnSelect) ProjectStage(ctx *qctx.Context) bson.M {
	proj := cs.Projection(ctx)
	if proj == nil {
		return nil
	}
	if _, ok := proj["_id"]; !ok {
		proj["_id"] = 0
	}
	return bson.M{"$project": proj}
}
