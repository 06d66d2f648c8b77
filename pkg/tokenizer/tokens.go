// Package tokenizer provides lexical analysis for the NEXUS file format.
//
// NEXUS is tokenized in a single left-to-right pass into a flat sequence of
// typed tokens. The tokenizer has no knowledge of commands or blocks; those
// are assembled by the nexus package from the token stream.
//
// Tokens re-render themselves exactly: a quoted word re-quotes its text and
// doubles embedded quotes, a comment re-wraps its text in brackets. This is
// what makes byte-exact round-tripping of parsed documents possible.
package tokenizer

import "strings"

// Type classifies a token.
type Type int

const (
	// Word is a run of dark characters bounded by whitespace or punctuation.
	Word Type = iota
	// QuotedWord is a word delimited by quote characters. Its Text holds the
	// un-escaped content; embedded doubled quotes are already collapsed.
	QuotedWord
	// Comment is a bracketed comment. Its Text holds the content between the
	// outermost brackets, which may itself contain balanced brackets.
	Comment
	// Punctuation is a single punctuation character.
	Punctuation
	// Whitespace is a run of blanks, tabs and newlines.
	Whitespace
)

// String returns the name of the token type.
func (t Type) String() string {
	switch t {
	case Word:
		return "Word"
	case QuotedWord:
		return "QuotedWord"
	case Comment:
		return "Comment"
	case Punctuation:
		return "Punctuation"
	case Whitespace:
		return "Whitespace"
	default:
		return "Unknown"
	}
}

const (
	// DefaultQuote is the quote character delimiting quoted words.
	DefaultQuote = '\''

	// PunctuationChars are the characters considered punctuation by the
	// NEXUS standard. Brackets are not listed: they delimit comments and
	// never surface as punctuation tokens.
	PunctuationChars = `(){}/\,;:=*"+-<>`

	// WhitespaceChars are the characters coalesced into whitespace tokens.
	WhitespaceChars = " \t\r\n"
)

// Token is one lexical unit of a NEXUS file. Tokens are immutable; mutation
// of a document happens by splicing command lists, never by editing tokens.
type Token struct {
	Text string
	Type Type

	// Quote is the delimiter a QuotedWord was lexed with, so re-rendering
	// uses the same character the input did. Zero means the default quote;
	// other token types leave it unset.
	Quote rune
}

// String re-renders the token as NEXUS text.
func (t Token) String() string {
	switch t.Type {
	case Comment:
		return "[" + t.Text + "]"
	case QuotedWord:
		quote := t.Quote
		if quote == 0 {
			quote = DefaultQuote
		}
		q := string(quote)
		return q + strings.ReplaceAll(t.Text, q, q+q) + q
	default:
		return t.Text
	}
}

// IsSemicolon reports whether the token is the command terminator.
func (t Token) IsSemicolon() bool {
	return t.Type == Punctuation && t.Text == ";"
}

// IsWhitespace reports whether the token is a whitespace run.
func (t Token) IsWhitespace() bool {
	return t.Type == Whitespace
}

// IsNewline reports whether the token is a whitespace run containing a line
// break. Newlines are only semantically significant inside interleaved
// matrices.
func (t Token) IsNewline() bool {
	return t.IsWhitespace() && strings.ContainsAny(t.Text, "\r\n")
}

// IsPunctuation reports whether the token is a punctuation character.
func (t Token) IsPunctuation() bool {
	return t.Type == Punctuation
}

// Render concatenates the exact text rendering of a token sequence.
func Render(tokens []Token) string {
	var sb strings.Builder
	for _, t := range tokens {
		sb.WriteString(t.String())
	}
	return sb.String()
}
