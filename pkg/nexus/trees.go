package nexus

import (
	"fmt"
	"strings"

	"github.com/dlce-eva/commonnexus/pkg/tokenizer"
)

// TreesBlock is the typed view over a TREES block: an optional TRANSLATE
// table and any number of TREE commands holding Newick definitions.
type TreesBlock struct {
	*Block
}

// Tree is one TREE command: its name, the optional [&R]/[&U] rooting
// comment, and the Newick definition as tokens.
type Tree struct {
	name      string
	rooted    *bool
	isDefault bool
	newick    []tokenizer.Token
}

// Name returns the tree's name.
func (t *Tree) Name() string { return t.name }

// Rooted returns true for [&R] trees, false for [&U] trees, and nil when the
// definition carries no rooting comment.
func (t *Tree) Rooted() *bool { return t.rooted }

// IsDefault reports whether the tree was marked with "*" as the default
// tree of its block.
func (t *Tree) IsDefault() bool { return t.isDefault }

// Newick renders the Newick definition, without the terminating semicolon.
func (t *Tree) Newick() string {
	return strings.TrimSpace(tokenizer.Render(t.newick))
}

// NewickTokens returns the raw Newick tokens. The slice must not be
// modified.
func (t *Tree) NewickTokens() []tokenizer.Token { return t.newick }

// parseTree splits a TREE payload into name, rooting comment and Newick
// tokens. The rooting comment sits between "=" and the opening parenthesis.
func parseTree(p *Payload) (*Tree, error) {
	tokens := p.Tokens()
	t := &Tree{}
	i := 0
	for ; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.IsPunctuation() && tok.Text == "*" {
			t.isDefault = true
			continue
		}
		if tok.IsPunctuation() && tok.Text == "=" {
			i++
			break
		}
		if (tok.Type == tokenizer.Word || tok.Type == tokenizer.QuotedWord) && t.name == "" {
			t.name = tok.Text
		}
	}
	for ; i < len(tokens); i++ {
		tok := tokens[i]
		if tok.Type == tokenizer.Comment {
			switch strings.ToUpper(strings.TrimSpace(tok.Text)) {
			case "&R":
				v := true
				t.rooted = &v
			case "&U":
				v := false
				t.rooted = &v
			}
			continue
		}
		if tok.IsPunctuation() && tok.Text == "(" {
			t.newick = tokens[i:]
			break
		}
	}
	if t.newick == nil {
		return nil, &DataError{Block: "TREES", Err: fmt.Errorf("tree %q has no Newick definition", t.name)}
	}
	return t, nil
}

// Translate returns the parsed TRANSLATE command, or nil when absent.
func (b *TreesBlock) Translate() (*Translate, error) {
	p := b.Command("TRANSLATE")
	if p == nil {
		return nil, nil
	}
	return parseTranslate(p)
}

// Trees returns every TREE (and legacy UTREE) command of the block, in
// order. UTREE trees default to unrooted.
func (b *TreesBlock) Trees() ([]*Tree, error) {
	var trees []*Tree
	for _, p := range b.Commands("TREE") {
		t, err := parseTree(p)
		if err != nil {
			return nil, err
		}
		trees = append(trees, t)
	}
	for _, p := range b.Commands("UTREE") {
		t, err := parseTree(p)
		if err != nil {
			return nil, err
		}
		if t.rooted == nil {
			v := false
			t.rooted = &v
		}
		trees = append(trees, t)
	}
	return trees, nil
}

// Tree returns the named tree, or nil.
func (b *TreesBlock) Tree(name string) (*Tree, error) {
	trees, err := b.Trees()
	if err != nil {
		return nil, err
	}
	for _, t := range trees {
		if tokenizer.WordsEqual(t.name, name) {
			return t, nil
		}
	}
	return nil, nil
}

// Translated returns a copy of the tree with TRANSLATE aliases replaced by
// taxon labels. Node names are word tokens not preceded by a colon; branch
// lengths follow a colon and are left alone. Without a TRANSLATE command the
// tree is returned unchanged.
func (b *TreesBlock) Translated(t *Tree) (*Tree, error) {
	tr, err := b.Translate()
	if err != nil {
		return nil, err
	}
	if tr == nil {
		return t, nil
	}
	out := make([]tokenizer.Token, len(t.newick))
	afterColon := false
	for i, tok := range t.newick {
		cur := tok
		switch tok.Type {
		case tokenizer.Word, tokenizer.QuotedWord:
			if !afterColon {
				if label, ok := tr.Lookup(tok.Text); ok {
					cur = tokenizer.Token{Text: label, Type: tokenizer.Word}
					if tokenizer.QuoteIfNeeded(label) != label {
						cur.Type = tokenizer.QuotedWord
					}
				}
			}
			afterColon = false
		case tokenizer.Punctuation:
			afterColon = tok.Text == ":"
		}
		out[i] = cur
	}
	return &Tree{name: t.name, rooted: t.rooted, isDefault: t.isDefault, newick: out}, nil
}

// TreesBlockSpec builds the commands of a TREES block holding the given
// trees.
func TreesBlockSpec(trees []*Tree) BlockSpec {
	spec := BlockSpec{Name: "TREES"}
	for _, t := range trees {
		var sb strings.Builder
		if t.isDefault {
			sb.WriteString("* ")
		}
		sb.WriteString(tokenizer.QuoteIfNeeded(t.name))
		sb.WriteString(" = ")
		if t.rooted != nil {
			if *t.rooted {
				sb.WriteString("[&R] ")
			} else {
				sb.WriteString("[&U] ")
			}
		}
		sb.WriteString(t.Newick())
		spec.Commands = append(spec.Commands, CommandSpec{Name: "TREE", Payload: sb.String()})
	}
	return spec
}
