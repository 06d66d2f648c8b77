package nexus

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dlce-eva/commonnexus/pkg/tokenizer"
)

// Payload is the raw view over a command's tokens between name and
// terminating semicolon. Typed accessors on the block wrappers parse
// payloads on demand; commands no wrapper knows about stay accessible here.
type Payload struct {
	tokens []tokenizer.Token
	doc    *Document
}

// Tokens returns the payload's tokens. The slice must not be modified.
func (p *Payload) Tokens() []tokenizer.Token { return p.tokens }

// String renders the payload exactly as it appeared in the input.
func (p *Payload) String() string { return tokenizer.Render(p.tokens) }

// Items returns the word/punctuation view of the payload. punctAsWord lists
// punctuation characters merged into words, on top of what the document
// configuration already merges at the lexical level.
func (p *Payload) Items(punctAsWord string) []tokenizer.Item {
	return tokenizer.Items(p.tokens, punctAsWord)
}

// itemScanner walks an item sequence with one-item lookahead.
type itemScanner struct {
	items []tokenizer.Item
	pos   int
}

func (s *itemScanner) next() (tokenizer.Item, bool) {
	if s.pos >= len(s.items) {
		return tokenizer.Item{}, false
	}
	it := s.items[s.pos]
	s.pos++
	return it, true
}

func (s *itemScanner) peek() (tokenizer.Item, bool) {
	if s.pos >= len(s.items) {
		return tokenizer.Item{}, false
	}
	return s.items[s.pos], true
}

// valueAfterEquals consumes "= value" and returns the value text.
func (s *itemScanner) valueAfterEquals() (string, error) {
	it, err := s.itemAfterEquals()
	return it.Text, err
}

// itemAfterEquals consumes "= value" and returns the value item, for callers
// that need to know whether the value was quoted.
func (s *itemScanner) itemAfterEquals() (tokenizer.Item, error) {
	eq, ok := s.next()
	if !ok || !eq.Punct("=") {
		return tokenizer.Item{}, fmt.Errorf("expected '=', got %q", eq.Text)
	}
	v, ok := s.next()
	if !ok {
		return tokenizer.Item{}, fmt.Errorf("missing value after '='")
	}
	return v, nil
}

// delimited collects the items between a pair of '"' marks, the standard
// delimiter for multi-word FORMAT values (SYMBOLS, EQUATE). It reports
// whether the scanner was positioned at an opening '"' at all; when it was
// not, the scanner is left untouched.
func (s *itemScanner) delimited() ([]tokenizer.Item, bool, error) {
	if open, ok := s.peek(); !ok || !open.Punct(`"`) {
		return nil, false, nil
	}
	s.next()
	var inner []tokenizer.Item
	for {
		it, ok := s.next()
		if !ok {
			return nil, true, fmt.Errorf(`unterminated '"'-delimited value`)
		}
		if it.Punct(`"`) {
			return inner, true, nil
		}
		inner = append(inner, it)
	}
}

// Dimensions is the parsed DIMENSIONS payload of a TAXA, CHARACTERS,
// UNALIGNED or DISTANCES block.
type Dimensions struct {
	// NewTaxa reports whether the block defines its own taxa.
	NewTaxa bool
	// Ntax is the number of taxa, 0 if not given.
	Ntax int
	// Nchar is the number of characters, 0 if not given.
	Nchar int
}

func parseDimensions(p *Payload) (*Dimensions, error) {
	d := &Dimensions{}
	s := &itemScanner{items: p.Items("")}
	for {
		it, ok := s.next()
		if !ok {
			return d, nil
		}
		if !it.IsWord {
			continue
		}
		switch strings.ToUpper(it.Text) {
		case "NEWTAXA":
			d.NewTaxa = true
		case "NTAX", "NCHAR":
			v, err := s.valueAfterEquals()
			if err != nil {
				return nil, &DataError{Block: "DIMENSIONS", Err: err}
			}
			n, err := strconv.Atoi(v)
			if err != nil {
				return nil, &DataError{Block: "DIMENSIONS", Err: fmt.Errorf("%s=%q is not a number", it.Text, v)}
			}
			if strings.ToUpper(it.Text) == "NTAX" {
				d.Ntax = n
			} else {
				d.Nchar = n
			}
		}
	}
}

// Taxlabels is the parsed TAXLABELS payload: taxon names in definition
// order. Taxon numbers are 1-based positions in this order.
type Taxlabels struct {
	Labels []string
}

func parseTaxlabels(p *Payload) (*Taxlabels, error) {
	t := &Taxlabels{}
	for _, it := range p.Items("") {
		if it.IsWord {
			t.Labels = append(t.Labels, it.Text)
		}
	}
	return t, nil
}

// Label returns the 1-based taxon label, or "" when out of range.
func (t *Taxlabels) Label(n int) string {
	if n < 1 || n > len(t.Labels) {
		return ""
	}
	return t.Labels[n-1]
}

// CharStateLabel names one character and optionally its states.
// A "_" state entry means the state at that position is unnamed.
type CharStateLabel struct {
	Number int
	Name   string
	States []string
}

// Charstatelabels is the parsed CHARSTATELABELS (or CHARLABELS/STATELABELS)
// payload.
type Charstatelabels struct {
	Characters []CharStateLabel
}

// ByNumber returns the label entry for a 1-based character number, or nil.
func (c *Charstatelabels) ByNumber(n int) *CharStateLabel {
	for i := range c.Characters {
		if c.Characters[i].Number == n {
			return &c.Characters[i]
		}
	}
	return nil
}

// parseCharstatelabels parses "number [name] [/state ...]" groups separated
// by commas.
func parseCharstatelabels(p *Payload) (*Charstatelabels, error) {
	c := &Charstatelabels{}
	s := &itemScanner{items: p.Items("")}
	for {
		it, ok := s.next()
		if !ok {
			return c, nil
		}
		if !it.IsWord {
			continue
		}
		n, err := strconv.Atoi(it.Text)
		if err != nil {
			return nil, &DataError{Block: "CHARSTATELABELS", Err: fmt.Errorf("character number expected, got %q", it.Text)}
		}
		entry := CharStateLabel{Number: n}
		if nxt, ok := s.peek(); ok && nxt.IsWord {
			s.next()
			entry.Name = nxt.Text
		}
		if nxt, ok := s.peek(); ok && nxt.Punct("/") {
			s.next()
			for {
				nxt, ok := s.peek()
				if !ok || nxt.Punct(",") {
					break
				}
				s.next()
				if nxt.IsWord {
					entry.States = append(entry.States, nxt.Text)
				}
			}
		}
		if nxt, ok := s.peek(); ok && nxt.Punct(",") {
			s.next()
		}
		c.Characters = append(c.Characters, entry)
	}
}

// parseCharlabels parses consecutive character names; character numbers are
// implicit positions.
func parseCharlabels(p *Payload) (*Charstatelabels, error) {
	c := &Charstatelabels{}
	n := 0
	for _, it := range p.Items("") {
		if it.IsWord {
			n++
			c.Characters = append(c.Characters, CharStateLabel{Number: n, Name: it.Text})
		}
	}
	return c, nil
}

// parseStatelabels parses "number state ..." groups separated by commas;
// characters stay unnamed.
func parseStatelabels(p *Payload) (*Charstatelabels, error) {
	c := &Charstatelabels{}
	s := &itemScanner{items: p.Items("")}
	for {
		it, ok := s.next()
		if !ok {
			return c, nil
		}
		if !it.IsWord {
			continue
		}
		n, err := strconv.Atoi(it.Text)
		if err != nil {
			return nil, &DataError{Block: "STATELABELS", Err: fmt.Errorf("character number expected, got %q", it.Text)}
		}
		entry := CharStateLabel{Number: n}
		for {
			nxt, ok := s.peek()
			if !ok || nxt.Punct(",") {
				break
			}
			s.next()
			if nxt.IsWord {
				entry.States = append(entry.States, nxt.Text)
			}
		}
		if nxt, ok := s.peek(); ok && nxt.Punct(",") {
			s.next()
		}
		c.Characters = append(c.Characters, entry)
	}
}

// Translate is the parsed TRANSLATE payload of a TREES block: an ordered
// alias → taxon label table.
type Translate struct {
	aliases []string
	mapping map[string]string
}

// Lookup resolves an alias; ok is false for unknown aliases.
func (t *Translate) Lookup(alias string) (string, bool) {
	label, ok := t.mapping[alias]
	return label, ok
}

// Aliases returns the aliases in declaration order.
func (t *Translate) Aliases() []string { return t.aliases }

func parseTranslate(p *Payload) (*Translate, error) {
	t := &Translate{mapping: map[string]string{}}
	s := &itemScanner{items: p.Items("")}
	for {
		alias, ok := s.next()
		if !ok {
			return t, nil
		}
		if !alias.IsWord {
			continue
		}
		label, ok := s.next()
		if !ok || !label.IsWord {
			return nil, &DataError{Block: "TRANSLATE", Err: fmt.Errorf("missing label for alias %q", alias.Text)}
		}
		t.aliases = append(t.aliases, alias.Text)
		t.mapping[alias.Text] = label.Text
		if nxt, ok := s.peek(); ok && nxt.Punct(",") {
			s.next()
		}
	}
}
