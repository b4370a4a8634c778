package planner

import "github.com/sqlmongo-go/sqlmongo/engine/ast"

// flattenLeaves recursively expands composite tokens back into their
// original flat leaf sequence. Grouping (engine/parser) only ever nests a
// contiguous run of tokens into a composite without reordering anything, so
// flattening any grouped token slice reconstructs the exact pre-grouping
// token order. The DDL shims need that: CREATE/ALTER TABLE's raw
// "column TYPE CONSTRAINT..." syntax was never a target of the grouper's
// identifier/comma-run rules (those exist for real SQL expressions), so
// scanning the flattened leaves is the Go analogue of djongo's raw
// substring scan over the column-definition text.
func flattenLeaves(tokens []*ast.Token) []*ast.Token {
	var out []*ast.Token
	for _, t := range tokens {
		if len(t.Children) > 0 {
			out = append(out, flattenLeaves(t.Children)...)
			continue
		}
		out = append(out, t)
	}
	return out
}

// splitTopLevelCommas splits a flat leaf token slice on "," punctuation.
func splitTopLevelCommas(leaves []*ast.Token) [][]*ast.Token {
	var groups [][]*ast.Token
	var cur []*ast.Token
	for _, t := range leaves {
		if t.Kind == ast.KindPunctuation && t.Value == "," {
			groups = append(groups, cur)
			cur = nil
			continue
		}
		cur = append(cur, t)
	}
	if len(cur) > 0 {
		groups = append(groups, cur)
	}
	return groups
}

func hasKeyword(leaves []*ast.Token, word string) bool {
	for _, l := range leaves {
		if l.MatchKeyword(word) {
			return true
		}
	}
	return false
}
