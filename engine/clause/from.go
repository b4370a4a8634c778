// Package clause implements the statement converters from spec.md §4.4:
// ColumnSelect, From, Where, InnerJoin, OuterJoin, Limit, Order and Set. Each
// converter parses one clause from a token and exposes both a find-mode and
// an aggregation-pipeline-mode emission, selected by the Select driver
// depending on whether the statement has joins — mirroring the teacher's
// engine/builders/mongodb bson.M construction style, generalized from a
// single dialect-specific builder file into typed per-clause converters.
package clause

import (
	"github.com/sqlmongo-go/sqlmongo/engine/ast"
	"github.com/sqlmongo-go/sqlmongo/engine/qctx"
	"github.com/sqlmongo-go/sqlmongo/engine/resolver"
	"github.com/sqlmongo-go/sqlmongo/internal/errorkinds"
)

// From records the query's primary table and registers its alias, per
// spec.md §4.4's From converter. It must run before any converter that
// resolves an aliased column (WHERE, JOIN, ORDER BY, projection).
type From struct {
	Table string
	Alias string
}

// ParseFrom reads the Identifier immediately following FROM and installs it
// as ctx.LeftTable, registering any "AS alias" into ctx.Aliases.
func ParseFrom(tok *ast.Token, ctx *qctx.Context) (*From, error) {
	if !tok.Is(ast.KindIdentifier) {
		return nil, errorkinds.MalformedSQL.New("FROM must be followed by a table name")
	}
	r := resolver.New(tok, nil)
	table, err := r.Table()
	if err != nil {
		return nil, err
	}
	alias, err := r.Alias()
	if err != nil {
		return nil, err
	}
	ctx.LeftTable = table
	if alias != "" {
		ctx.Aliases[alias] = table
	}
	return &From{Table: table, Alias: alias}, nil
}
