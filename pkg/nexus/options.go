package nexus

import (
	"fmt"

	"github.com/dlce-eva/commonnexus/pkg/tokenizer"
)

// Config controls parsing and decoding behavior. The zero value is usable
// and equals DefaultConfig() except for the quote character, which falls
// back to the NEXUS default when unset.
type Config struct {
	// Quote is the character delimiting quoted words. Zero means the NEXUS
	// default, a single quote.
	Quote rune

	// Strict makes recoverable problems fatal: structural irregularities,
	// entry-count mismatches, undeclared taxa and symbols. In the default
	// lenient mode these degrade to warnings with last-write-wins or
	// warn-and-prune recovery.
	Strict bool

	// Tolerant suppresses UnsupportedFeatureError when reading a FORMAT
	// command that uses unimplemented options (CONTINUOUS, TOKENS,
	// non-default STATESFORMAT/ITEMS). The payload stays accessible as raw
	// tokens; matrix decoding still fails.
	Tolerant bool

	// HyphenAsText lexes "-" as an ordinary word character instead of
	// punctuation. Needed for files using hyphens inside unquoted labels.
	HyphenAsText bool

	// AsteriskAsText lexes "*" as an ordinary word character.
	AsteriskAsText bool

	// Warn receives lenient-mode degradation messages. Nil discards them.
	Warn func(msg string)
}

// DefaultConfig returns the default lenient configuration.
func DefaultConfig() Config {
	return Config{Quote: tokenizer.DefaultQuote}
}

// tokenizerOptions translates the document configuration into tokenizer
// options.
func (c Config) tokenizerOptions() tokenizer.Options {
	opts := tokenizer.Options{Quote: c.Quote}
	if c.HyphenAsText {
		opts.PunctuationAsText += "-"
	}
	if c.AsteriskAsText {
		opts.PunctuationAsText += "*"
	}
	return opts
}

func (c Config) warnf(format string, args ...interface{}) {
	if c.Warn != nil {
		c.Warn(fmt.Sprintf(format, args...))
	}
}
