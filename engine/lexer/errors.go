package lexer

import "fmt"

// LexError is a position-annotated failure from Tokenize. The parser wraps
// it in errorkinds.MalformedSQL before it reaches a caller.
type LexError struct {
	Message string
	Pos     int
}

func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at offset %d: %s", e.Pos, e.Message)
}
