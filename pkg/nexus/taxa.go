package nexus

import (
	"fmt"
	"strings"

	"github.com/dlce-eva/commonnexus/pkg/tokenizer"
)

// TaxaBlock is the typed view over a TAXA block, the canonical declaration
// of taxon labels and their order.
type TaxaBlock struct {
	*Block
}

// Dimensions returns the parsed DIMENSIONS command, or nil when absent.
func (b *TaxaBlock) Dimensions() (*Dimensions, error) {
	p := b.Command("DIMENSIONS")
	if p == nil {
		return nil, nil
	}
	return parseDimensions(p)
}

// Taxlabels returns the parsed TAXLABELS command, or nil when absent.
func (b *TaxaBlock) Taxlabels() (*Taxlabels, error) {
	p := b.Command("TAXLABELS")
	if p == nil {
		return nil, nil
	}
	return parseTaxlabels(p)
}

// Labels returns the taxon labels in declaration order. A declared NTAX that
// disagrees with the label count is an error in strict mode and a warning
// otherwise.
func (b *TaxaBlock) Labels() ([]string, error) {
	t, err := b.Taxlabels()
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, nil
	}
	if d, err := b.Dimensions(); err == nil && d != nil && d.Ntax != 0 && d.Ntax != len(t.Labels) {
		err := &DataError{Block: b.Name(),
			Err: fmt.Errorf("NTAX=%d but %d taxon labels", d.Ntax, len(t.Labels))}
		if b.doc.cfg.Strict {
			return nil, err
		}
		b.doc.cfg.warnf("%v", err)
	}
	return t.Labels, nil
}

// ContainsTaxon reports whether the given label is declared, compared
// underscore-blind.
func (b *TaxaBlock) ContainsTaxon(label string) bool {
	labels, err := b.Labels()
	if err != nil {
		return false
	}
	_, ok := matchLabel(labels, label)
	return ok
}

// TaxaBlockSpec builds the commands of a TAXA block declaring the given
// labels.
func TaxaBlockSpec(labels []string) BlockSpec {
	quoted := make([]string, len(labels))
	for i, l := range labels {
		quoted[i] = tokenizer.QuoteIfNeeded(l)
	}
	return BlockSpec{
		Name: "TAXA",
		Commands: []CommandSpec{
			{Name: "DIMENSIONS", Payload: fmt.Sprintf("NTAX=%d", len(labels))},
			{Name: "TAXLABELS", Payload: strings.Join(quoted, " ")},
		},
	}
}
