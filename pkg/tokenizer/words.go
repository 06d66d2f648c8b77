package tokenizer

import "strings"

// Item is one element of the word/punctuation view over a token sequence.
// Payload sub-languages (DIMENSIONS, FORMAT, matrix rows) operate on this
// view rather than on raw tokens: adjacent word tokens merge into one word,
// comments inside words are dropped, quoted words pass through verbatim, and
// whitespace only separates.
type Item struct {
	Text string
	// IsWord distinguishes words from punctuation marks. Quoted words count
	// as words regardless of their content.
	IsWord bool
	// Quoted reports whether the word came from a quoted token. Some payload
	// sub-languages (FORMAT SYMBOLS) require quoting in strict mode.
	Quoted bool
}

// Punct reports whether the item is the given punctuation mark.
func (it Item) Punct(s string) bool {
	return !it.IsWord && it.Text == s
}

// Items flattens tokens into words and punctuation.
//
// punctAsWord lists punctuation characters that are merged into the
// surrounding word instead of being emitted on their own, e.g. "-" when
// hyphens are state symbols. The NEXUS spec allows comments inside words
// ("Bembidion[\i]_velox" is one word), so comment tokens never break a word.
func Items(tokens []Token, punctAsWord string) []Item {
	var (
		items []Item
		word  strings.Builder
	)
	flush := func() {
		if word.Len() > 0 {
			items = append(items, Item{Text: word.String(), IsWord: true})
			word.Reset()
		}
	}
	for _, t := range tokens {
		switch t.Type {
		case QuotedWord:
			flush()
			items = append(items, Item{Text: t.Text, IsWord: true, Quoted: true})
		case Word:
			word.WriteString(t.Text)
		case Whitespace:
			flush()
		case Punctuation:
			if strings.Contains(punctAsWord, t.Text) {
				word.WriteString(t.Text)
			} else {
				flush()
				items = append(items, Item{Text: t.Text})
			}
		}
	}
	flush()
	return items
}

// SplitLines splits tokens into physical lines, the only place where line
// breaks are semantically significant (interleaved matrices). Lines holding
// nothing but whitespace and comments are skipped.
func SplitLines(tokens []Token) [][]Token {
	hasContent := func(line []Token) bool {
		for _, t := range line {
			if t.Type != Whitespace && t.Type != Comment {
				return true
			}
		}
		return false
	}
	var (
		lines [][]Token
		line  []Token
	)
	for _, t := range tokens {
		if t.IsNewline() {
			if hasContent(line) {
				lines = append(lines, line)
			}
			line = nil
			continue
		}
		line = append(line, t)
	}
	if hasContent(line) {
		lines = append(lines, line)
	}
	return lines
}

// WordsEqual compares two NEXUS words treating underscores and blanks as
// equivalent: "B._zephyrum" and "'B. zephyrum'" denote the same taxon.
func WordsEqual(a, b string) bool {
	return strings.ReplaceAll(a, " ", "_") == strings.ReplaceAll(b, " ", "_")
}

// QuoteIfNeeded renders s as a NEXUS word, quoting it when it contains
// whitespace, punctuation, brackets or quotes. Embedded quotes are doubled.
func QuoteIfNeeded(s string) string {
	if s != "" && !strings.ContainsAny(s, WhitespaceChars+PunctuationChars+"[]"+string(DefaultQuote)) {
		return s
	}
	q := string(DefaultQuote)
	return q + strings.ReplaceAll(s, q, q+q) + q
}
