// Package parser groups the flat leaf tokens from engine/lexer into the
// composite token tree described in spec.md §3/§4.3: qualified identifiers,
// identifier lists, comparisons, parenthesis groups and the WHERE clause
// window. Everything else (predicate construction, clause conversion)
// operates on the tree this package builds.
package parser

import (
	"github.com/sqlmongo-go/sqlmongo/engine/ast"
	"github.com/sqlmongo-go/sqlmongo/engine/lexer"
	"github.com/sqlmongo-go/sqlmongo/internal/errorkinds"
)

// Parse lexes and groups one SQL statement into its root ast.Token
// (KindStatement). It fails with errorkinds.UnsupportedSQL if sql contains
// more than one statement.
func Parse(sql string) (*ast.Token, error) {
	leaves, err := lexer.Tokenize(sql)
	if err != nil {
		return nil, errorkinds.MalformedSQL.New(err.Error())
	}

	stmts := splitStatements(leaves)
	if len(stmts) == 0 {
		return nil, errorkinds.MalformedSQL.New("empty statement")
	}
	if len(stmts) > 1 {
		return nil, errorkinds.UnsupportedSQL.New("multiple statements in one call")
	}

	grouped, err := groupLevel(stmts[0], true)
	if err != nil {
		return nil, err
	}
	return ast.Composite(ast.KindStatement, grouped...), nil
}

// splitStatements splits a leaf stream on top-level ";" punctuation,
// dropping a single trailing empty statement produced by a terminal ";".
func splitStatements(leaves []*ast.Token) [][]*ast.Token {
	var out [][]*ast.Token
	var cur []*ast.Token
	for _, tok := range leaves {
		if tok.Kind == ast.KindPunctuation && tok.Value == ";" {
			out = append(out, cur)
			cur = nil
			continue
		}
		cur = append(cur, tok)
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

// groupLevel runs the full grouping pipeline over one nesting level: first
// recursively group parentheses (so inner levels are fully grouped before
// their container is examined), then fold qualified names/aliases/function
// calls/order suffixes into Identifier tokens, then comparisons, then
// comma-separated runs into IdentifierList. topLevel additionally carves out
// the WHERE window and merges multi-word JOIN keywords, since those only
// make sense at statement scope.
func groupLevel(tokens []*ast.Token, topLevel bool) ([]*ast.Token, error) {
	tokens = groupParens(tokens)
	if topLevel {
		tokens = mergeJoinKeywords(tokens)
	}

	var err error
	tokens, err = groupParensInner(tokens)
	if err != nil {
		return nil, err
	}

	tokens = groupIdentifiers(tokens)
	tokens = groupComparisons(tokens)
	tokens = groupCommaRuns(tokens)

	if topLevel {
		tokens = groupWhere(tokens)
	}
	return tokens, nil
}

// groupParens pairs up "(" / ")" punctuation into KindParenthesis tokens
// without yet grouping their contents (that happens in groupParensInner, so
// identifier/comparison grouping inside a parenthesis sees the same pipeline
// as the top level).
func groupParens(tokens []*ast.Token) []*ast.Token {
	out, _ := groupParensFrom(tokens, 0)
	return out
}

func groupParensFrom(tokens []*ast.Token, start int) ([]*ast.Token, int) {
	var out []*ast.Token
	i := start
	for i < len(tokens) {
		tok := tokens[i]
		if tok.Kind == ast.KindPunctuation && tok.Value == "(" {
			inner, next := collectParen(tokens, i)
			out = append(out, inner)
			i = next
			continue
		}
		out = append(out, tok)
		i++
	}
	return out, i
}

// collectParen consumes tokens[open:] starting at "(" through its matching
// ")" (tracking nesting depth) and returns an ungrouped KindParenthesis
// token plus the index just past the close paren.
func collectParen(tokens []*ast.Token, open int) (*ast.Token, int) {
	depth := 0
	i := open
	var body []*ast.Token
	for i < len(tokens) {
		tok := tokens[i]
		if tok.Kind == ast.KindPunctuation && tok.Value == "(" {
			depth++
		} else if tok.Kind == ast.KindPunctuation && tok.Value == ")" {
			depth--
			if depth == 0 {
				body = append(body, tok)
				i++
				break
			}
		}
		body = append(body, tok)
		i++
	}
	return ast.Composite(ast.KindParenthesis, body...), i
}

// groupParensInner recursively applies the full grouping pipeline to the
// interior of every Parenthesis token produced by groupParens. A nested
// SELECT is grouped like a top-level statement, so its own JOIN and WHERE
// clauses are recognized.
func groupParensInner(tokens []*ast.Token) ([]*ast.Token, error) {
	out := make([]*ast.Token, len(tokens))
	for i, tok := range tokens {
		if tok.Kind != ast.KindParenthesis {
			out[i] = tok
			continue
		}
		inner := tok.Inner()
		grouped, err := groupLevel(inner, len(inner) > 0 && inner[0].Kind == ast.KindDML)
		if err != nil {
			return nil, err
		}
		children := make([]*ast.Token, 0, len(grouped)+2)
		children = append(children, ast.Leaf(ast.KindPunctuation, "("))
		children = append(children, grouped...)
		children = append(children, ast.Leaf(ast.KindPunctuation, ")"))
		out[i] = ast.Composite(ast.KindParenthesis, children...)
	}
	return out, nil
}

func mergeJoinKeywords(tokens []*ast.Token) []*ast.Token {
	var out []*ast.Token
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.MatchKeyword("INNER") && i+1 < len(tokens) && tokens[i+1].MatchKeyword("JOIN") {
			out = append(out, ast.Leaf(ast.KindKeyword, "INNER JOIN"))
			i++
			continue
		}
		if tok.MatchKeyword("LEFT") && i+2 < len(tokens) && tokens[i+1].MatchKeyword("OUTER") && tokens[i+2].MatchKeyword("JOIN") {
			out = append(out, ast.Leaf(ast.KindKeyword, "LEFT OUTER JOIN"))
			i += 2
			continue
		}
		out = append(out, tok)
	}
	return out
}

// groupIdentifiers folds Name [. Name] [AS Name | Name] [ASC|DESC] and Name
// Parenthesis (function call) runs into single Identifier/Function tokens.
// An implicit alias ("users u") is stored as if written "users AS u". A
// table name right after INTO or TABLE is not a function call: the
// Parenthesis after it (the column list) is left standing on its own.
// A bare Parenthesis that isn't a function call's argument list is left
// untouched: it might be a value list, a nested SELECT, or a return-const
// literal, all of which are handled by their own callers.
func groupIdentifiers(tokens []*ast.Token) []*ast.Token {
	var out []*ast.Token
	i := 0
	for i < len(tokens) {
		tok := tokens[i]

		if tok.Kind == ast.KindName {
			afterTableKeyword := len(out) > 0 && (out[len(out)-1].MatchKeyword("INTO") || out[len(out)-1].MatchKeyword("TABLE"))
			children := []*ast.Token{tok}
			i++
			isFn := false
			if i+1 < len(tokens) && tokens[i].Kind == ast.KindPunctuation && tokens[i].Value == "." && tokens[i+1].Kind == ast.KindName {
				children = append(children, tokens[i], tokens[i+1])
				i += 2
			} else if !afterTableKeyword && i < len(tokens) && tokens[i].Kind == ast.KindParenthesis {
				fn := ast.Composite(ast.KindFunction, tok, tokens[i])
				children = []*ast.Token{fn}
				isFn = true
				i++
			}

			if i+1 < len(tokens) && tokens[i].MatchKeyword("AS") && tokens[i+1].Kind == ast.KindName {
				children = append(children, tokens[i], tokens[i+1])
				i += 2
			} else if !isFn && i < len(tokens) && (tokens[i].MatchKeyword("ASC") || tokens[i].MatchKeyword("DESC")) {
				children = append(children, tokens[i])
				i++
			} else if i < len(tokens) && tokens[i].Kind == ast.KindName {
				children = append(children, ast.Leaf(ast.KindKeyword, "AS"), tokens[i])
				i++
			}

			out = append(out, ast.Composite(ast.KindIdentifier, children...))
			continue
		}

		out = append(out, tok)
		i++
	}
	return out
}

// groupComparisons folds "<operand> <op> <operand>" runs (operand is an
// Identifier or a Placeholder) into a single Comparison token.
func groupComparisons(tokens []*ast.Token) []*ast.Token {
	var out []*ast.Token
	i := 0
	for i < len(tokens) {
		if i+2 < len(tokens) &&
			isOperand(tokens[i]) &&
			tokens[i+1].Kind == ast.KindOperator &&
			isOperand(tokens[i+2]) {
			out = append(out, ast.Composite(ast.KindComparison, tokens[i], tokens[i+1], tokens[i+2]))
			i += 3
			continue
		}
		out = append(out, tokens[i])
		i++
	}
	return out
}

func isOperand(tok *ast.Token) bool {
	return tok.Kind == ast.KindIdentifier || tok.Kind == ast.KindPlaceholder
}

// groupCommaRuns folds "X (, X)+" runs, where X is an Identifier or
// Comparison, into a single IdentifierList token.
func groupCommaRuns(tokens []*ast.Token) []*ast.Token {
	var out []*ast.Token
	i := 0
	for i < len(tokens) {
		if !isListItem(tokens[i]) {
			out = append(out, tokens[i])
			i++
			continue
		}
		j := i
		var run []*ast.Token
		for j < len(tokens) && isListItem(tokens[j]) {
			run = append(run, tokens[j])
			j++
			if j+1 < len(tokens) && tokens[j].Kind == ast.KindPunctuation && tokens[j].Value == "," && isListItem(tokens[j+1]) {
				run = append(run, tokens[j])
				j++
				continue
			}
			break
		}
		if len(run) == 1 {
			out = append(out, run[0])
		} else {
			out = append(out, ast.Composite(ast.KindIdentifierList, run...))
		}
		i = j
	}
	return out
}

func isListItem(tok *ast.Token) bool {
	return tok.Kind == ast.KindIdentifier || tok.Kind == ast.KindComparison
}

// groupWhere carves the WHERE keyword and everything up to the next
// top-level ORDER/LIMIT keyword (or end of statement) into a single Where
// token, exactly the window WhereConverter parses in spec.md §4.4.
func groupWhere(tokens []*ast.Token) []*ast.Token {
	for i, tok := range tokens {
		if tok.MatchKeyword("WHERE") {
			end := len(tokens)
			for j := i + 1; j < len(tokens); j++ {
				if tokens[j].MatchKeyword("ORDER") || tokens[j].MatchKeyword("LIMIT") {
					end = j
					break
				}
			}
			where := ast.Composite(ast.KindWhere, tokens[i:end]...)
			out := make([]*ast.Token, 0, len(tokens)-(end-i)+1)
			out = append(out, tokens[:i]...)
			out = append(out, where)
			out = append(out, tokens[end:]...)
			return out
		}
	}
	return tokens
}
