package tokenizer

import (
	"strings"
	"unicode/utf8"
)

// Options configures the tokenizer behavior.
type Options struct {
	// Quote is the character delimiting quoted words. Zero means the NEXUS
	// default, a single quote.
	Quote rune

	// PunctuationAsText lists punctuation characters that are lexed as
	// ordinary dark word characters instead. NEXUS dialects disagree about
	// "-" (minus sign vs. punctuation) and "*" (wildcard label vs.
	// punctuation); callers opt in per character, e.g. "-*". Characters not
	// in PunctuationChars are ignored.
	PunctuationAsText string
}

// DefaultOptions returns default tokenizer options.
func DefaultOptions() Options {
	return Options{Quote: DefaultQuote}
}

// scanner is a one-token-lookahead reader over the input. The lookahead is
// needed only to disambiguate doubled quotes inside quoted words.
type scanner struct {
	input string
	pos   int
}

func (s *scanner) next() (rune, bool) {
	if s.pos >= len(s.input) {
		return 0, false
	}
	r, size := utf8.DecodeRuneInString(s.input[s.pos:])
	s.pos += size
	return r, true
}

func (s *scanner) peek() (rune, bool) {
	if s.pos >= len(s.input) {
		return 0, false
	}
	r, _ := utf8.DecodeRuneInString(s.input[s.pos:])
	return r, true
}

// Tokenize splits input into a flat sequence of tokens in one pass.
//
// Whitespace runs coalesce into single tokens. A quoted word consumes
// everything up to the next unpaired quote; a doubled quote inside is an
// escaped literal quote. A comment starts at "[" and ends at the bracket
// that returns the nesting depth to zero. Each punctuation character is its
// own token and terminates any pending word. Everything else accumulates
// into words.
//
// An unterminated quote or comment yields a *LexError; the token stream up
// to that point is not returned since a document with a lexical error must
// be discarded, not resumed.
//
// Example:
//
//	tokens, err := tokenizer.Tokenize("TREE 'John''s' = (a,b);", tokenizer.DefaultOptions())
func Tokenize(input string, opts Options) ([]Token, error) {
	quote := opts.Quote
	if quote == 0 {
		quote = DefaultQuote
	}

	var (
		tokens      []Token
		pending     strings.Builder
		pendingType Type
	)
	flush := func() {
		if pending.Len() > 0 {
			tokens = append(tokens, Token{Text: pending.String(), Type: pendingType})
			pending.Reset()
		}
	}

	s := &scanner{input: input}
	for {
		start := s.pos
		r, ok := s.next()
		if !ok {
			break
		}

		switch {
		case r == quote:
			flush()
			var text strings.Builder
			for {
				c, ok := s.next()
				if !ok {
					return nil, &LexError{Offset: start, Err: ErrUnterminatedQuote}
				}
				if c != quote {
					text.WriteRune(c)
					continue
				}
				if n, ok := s.peek(); ok && n == quote {
					// Doubled quote: an escaped literal.
					s.next()
					text.WriteRune(quote)
					continue
				}
				break
			}
			tokens = append(tokens, Token{Text: text.String(), Type: QuotedWord, Quote: quote})

		case r == '[':
			flush()
			depth := 1
			var text strings.Builder
			for depth > 0 {
				c, ok := s.next()
				if !ok {
					return nil, &LexError{Offset: start, Err: ErrUnterminatedComment}
				}
				switch c {
				case '[':
					depth++
				case ']':
					depth--
				}
				if depth > 0 {
					text.WriteRune(c)
				}
			}
			tokens = append(tokens, Token{Text: text.String(), Type: Comment})

		case strings.ContainsRune(WhitespaceChars, r):
			if pending.Len() > 0 && pendingType != Whitespace {
				flush()
			}
			pendingType = Whitespace
			pending.WriteRune(r)

		case strings.ContainsRune(PunctuationChars, r) && !strings.ContainsRune(opts.PunctuationAsText, r):
			flush()
			tokens = append(tokens, Token{Text: string(r), Type: Punctuation})

		default:
			if pending.Len() > 0 && pendingType != Word {
				flush()
			}
			pendingType = Word
			pending.WriteRune(r)
		}
	}
	flush()
	return tokens, nil
}
