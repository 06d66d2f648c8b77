package tokenizer

import (
	"errors"
	"fmt"
)

// Lexical errors.
var (
	// ErrUnterminatedQuote indicates a quoted word that is still open at end
	// of input.
	ErrUnterminatedQuote = errors.New("unterminated quoted word")

	// ErrUnterminatedComment indicates a bracketed comment that is still open
	// at end of input.
	ErrUnterminatedComment = errors.New("unterminated comment")
)

// LexError is a fatal tokenization error. The input cannot be parsed beyond
// the reported offset; callers must discard the document.
type LexError struct {
	// Offset is the byte offset of the construct that failed to terminate.
	Offset int
	// Err is the underlying error, one of the sentinel values above.
	Err error
}

// Error returns a formatted message with the byte offset.
func (e *LexError) Error() string {
	return fmt.Sprintf("lex error at offset %d: %v", e.Offset, e.Err)
}

// Unwrap returns the underlying error.
func (e *LexError) Unwrap() error {
	return e.Err
}
