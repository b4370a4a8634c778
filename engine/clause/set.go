package clause

import (
	"github.com/sqlmongo-go/sqlmongo/engine/ast"
	"github.com/sqlmongo-go/sqlmongo/engine/qctx"
	"github.com/sqlmongo-go/sqlmongo/engine/resolver"
	"github.com/sqlmongo-go/sqlmongo/internal/errorkinds"
	"go.mongodb.org/mongo-driver/bson"
)

// Set is UPDATE's SET clause: a comma-separated run of "column = %(k)s"
// comparisons, resolved straight to bound values since ctx.Params is already
// known by the time UPDATE parses its own clauses (unlike WHERE, which may
// run before or in the same pass as parameter binding).
type Set struct {
	Assignments bson.M
}

// ParseSet reads the comparison list following "SET".
func ParseSet(tokens []*ast.Token, ctx *qctx.Context) (*Set, error) {
	items := columnItems(tokens)
	if len(items) == 0 {
		return nil, errorkinds.MalformedSQL.New("SET has no assignments")
	}
	s := &Set{Assignments: bson.M{}}
	for _, item := range items {
		if !item.Is(ast.KindComparison) {
			return nil, errorkinds.MalformedSQL.New("SET item must be \"column = value\"")
		}
		r := resolver.New(item, ctx)
		col, err := r.LHSColumn()
		if err != nil {
			return nil, err
		}
		idx, err := r.RHSIndex()
		if err != nil {
			return nil, err
		}
		val, ok := ctx.Param(idx)
		if !ok {
			return nil, errorkinds.ParameterBindingError.New("missing bound parameter for SET column " + col)
		}
		s.Assignments[col] = val
	}
	return s, nil
}

// UpdateDoc emits the {$set: {...}} document passed to UpdateMany.
func (s *Set) UpdateDoc() bson.M {
	return bson.M{"$set": s.Assignments}
}
