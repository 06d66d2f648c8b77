// Package tools provides batch operations composing the nexus package:
// normalising documents into a canonical shape, combining several documents
// into one, and converting character matrices between binary and multistate
// codings.
package tools

import (
	"fmt"
	"sort"

	"github.com/dlce-eva/commonnexus/pkg/nexus"
)

// Normalise rewrites a document into canonical shape: the character matrix
// becomes non-transposed, non-interleaved and labeled with all equates
// resolved; the distance matrix becomes a full square with diagonal; trees
// are translated and their TRANSLATE table dropped; a TAXA block declaring
// every referenced taxon leads the document. The input document is left
// untouched.
func Normalise(doc *nexus.Document) (*nexus.Document, error) {
	out := nexus.NewDocument(doc.Config())

	var (
		taxa []string
		seen = map[string]bool{}
	)
	addTaxa := func(labels []string) {
		for _, l := range labels {
			if !seen[l] {
				seen[l] = true
				taxa = append(taxa, l)
			}
		}
	}
	if tb := doc.Taxa(); tb != nil {
		labels, err := tb.Labels()
		if err != nil {
			return nil, err
		}
		addTaxa(labels)
	}

	var specs []nexus.BlockSpec
	if cb := doc.Characters(); cb != nil {
		m, err := cb.GetMatrix()
		if err != nil {
			return nil, err
		}
		addTaxa(m.Taxa())
		specs = append(specs, nexus.CharactersBlockSpec(m))
	}
	if db := doc.Distances(); db != nil {
		m, err := db.GetMatrix()
		if err != nil {
			return nil, err
		}
		addTaxa(m.Taxa())
		specs = append(specs, nexus.DistancesBlockSpec(m))
	}
	if tb := doc.Trees(); tb != nil {
		trees, err := tb.Trees()
		if err != nil {
			return nil, err
		}
		translated := make([]*nexus.Tree, len(trees))
		for i, tree := range trees {
			tr, err := tb.Translated(tree)
			if err != nil {
				return nil, err
			}
			translated[i] = tr
		}
		if len(translated) > 0 {
			specs = append(specs, nexus.TreesBlockSpec(translated))
		}
	}

	if len(taxa) > 0 {
		if err := out.AppendBlock(nexus.TaxaBlockSpec(taxa)); err != nil {
			return nil, err
		}
	}
	for _, spec := range specs {
		if err := out.AppendBlock(spec); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Combine merges several documents into one. Taxa are unioned in order of
// first appearance; character matrices are aggregated side by side with
// their columns renamed "<i>.<label>" after the 1-based input document;
// trees are translated and collected. Character blocks must agree on their
// datatype.
func Combine(docs ...*nexus.Document) (*nexus.Document, error) {
	if len(docs) == 0 {
		return nil, fmt.Errorf("nothing to combine")
	}

	var (
		taxa []string
		seen = map[string]bool{}
	)
	addTaxa := func(labels []string) {
		for _, l := range labels {
			if !seen[l] {
				seen[l] = true
				taxa = append(taxa, l)
			}
		}
	}

	type column struct {
		name   string
		states map[string]nexus.State // taxon -> state
	}
	var (
		columns  []column
		datatype nexus.Datatype
		typed    bool
		trees    []*nexus.Tree
	)
	for i, doc := range docs {
		if tb := doc.Taxa(); tb != nil {
			labels, err := tb.Labels()
			if err != nil {
				return nil, err
			}
			addTaxa(labels)
		}
		if cb := doc.Characters(); cb != nil {
			f, err := cb.Format()
			if err != nil {
				return nil, err
			}
			if typed && f.Datatype != datatype {
				return nil, fmt.Errorf("cannot combine %s characters with %s", f.Datatype, datatype)
			}
			datatype, typed = f.Datatype, true

			m, err := cb.GetMatrix()
			if err != nil {
				return nil, err
			}
			addTaxa(m.Taxa())
			for _, char := range m.Characters() {
				col := column{
					name:   fmt.Sprintf("%d.%s", i+1, char),
					states: map[string]nexus.State{},
				}
				for _, taxon := range m.Taxa() {
					if s, ok := m.Get(taxon, char); ok {
						col.states[taxon] = s
					}
				}
				columns = append(columns, col)
			}
		}
		if tb := doc.Trees(); tb != nil {
			ts, err := tb.Trees()
			if err != nil {
				return nil, err
			}
			for _, tree := range ts {
				tr, err := tb.Translated(tree)
				if err != nil {
					return nil, err
				}
				trees = append(trees, tr)
			}
		}
	}

	out := nexus.NewDocument(docs[0].Config())
	if len(taxa) > 0 {
		if err := out.AppendBlock(nexus.TaxaBlockSpec(taxa)); err != nil {
			return nil, err
		}
	}
	if len(columns) > 0 {
		chars := make([]string, len(columns))
		for i, col := range columns {
			chars[i] = col.name
		}
		m := nexus.NewMatrix(taxa, chars)
		for _, col := range columns {
			for taxon, s := range col.states {
				if err := m.Set(taxon, col.name, s); err != nil {
					return nil, err
				}
			}
		}
		if err := out.AppendBlock(nexus.CharactersBlockSpec(m)); err != nil {
			return nil, err
		}
	}
	if len(trees) > 0 {
		if err := out.AppendBlock(nexus.TreesBlockSpec(trees)); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Binarise turns a multistate STANDARD character matrix into a binary one
// with one character per (character, observed state) pair, named
// "<char>_<state>". A taxon scores 1 for every state it carries (atomic,
// polymorphic or uncertain membership), 0 for observed states it lacks;
// missing and gap cells stay missing across all derived characters.
func Binarise(doc *nexus.Document) (*nexus.Document, error) {
	cb := doc.Characters()
	if cb == nil {
		return nil, fmt.Errorf("no CHARACTERS block to binarise")
	}
	f, err := cb.Format()
	if err != nil {
		return nil, err
	}
	if f.Datatype != nexus.DatatypeStandard {
		return nil, fmt.Errorf("can only binarise STANDARD data, got %s", f.Datatype)
	}
	m, err := cb.GetMatrix()
	if err != nil {
		return nil, err
	}

	type derived struct {
		name   string
		char   string
		symbol string
	}
	var cols []derived
	for _, char := range m.Characters() {
		observed := map[string]bool{}
		for _, taxon := range m.Taxa() {
			s, _ := m.Get(taxon, char)
			for _, sym := range s.Symbols {
				observed[sym] = true
			}
		}
		symbols := make([]string, 0, len(observed))
		for sym := range observed {
			symbols = append(symbols, sym)
		}
		sort.Strings(symbols)
		for _, sym := range symbols {
			cols = append(cols, derived{name: char + "_" + sym, char: char, symbol: sym})
		}
	}

	chars := make([]string, len(cols))
	for i, col := range cols {
		chars[i] = col.name
	}
	bin := nexus.NewMatrix(m.Taxa(), chars)
	for _, taxon := range m.Taxa() {
		for _, col := range cols {
			s, _ := m.Get(taxon, col.char)
			var v nexus.State
			switch {
			case s.IsMissing() || s.IsGap():
				v = nexus.Missing()
			case containsSymbol(s, col.symbol):
				v = nexus.Atomic("1")
			default:
				v = nexus.Atomic("0")
			}
			if err := bin.Set(taxon, col.name, v); err != nil {
				return nil, err
			}
		}
	}

	out := nexus.NewDocument(doc.Config())
	if err := out.AppendBlock(nexus.TaxaBlockSpec(m.Taxa())); err != nil {
		return nil, err
	}
	if err := out.AppendBlock(nexus.CharactersBlockSpec(bin)); err != nil {
		return nil, err
	}
	return out, nil
}

// multistateSymbols is the symbol pool for derived multistate characters, in
// assignment order.
const multistateSymbols = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

// Multistatise is the inverse direction of Binarise: it collapses a binary
// STANDARD matrix into a single multistate character whose states stand for
// the input characters, assigned symbols from a fixed pool in column order.
// A taxon's cell holds the states of the characters it scores 1 for,
// polymorphic when there are several, and stays missing when it scores none.
func Multistatise(doc *nexus.Document) (*nexus.Document, error) {
	cb := doc.Characters()
	if cb == nil {
		return nil, fmt.Errorf("no CHARACTERS block to multistatise")
	}
	f, err := cb.Format()
	if err != nil {
		return nil, err
	}
	if f.Datatype != nexus.DatatypeStandard {
		return nil, fmt.Errorf("can only multistatise STANDARD data, got %s", f.Datatype)
	}
	m, err := cb.GetMatrix()
	if err != nil {
		return nil, err
	}
	chars := m.Characters()
	if len(chars) > len(multistateSymbols) {
		return nil, fmt.Errorf("%d characters exceed the %d available state symbols",
			len(chars), len(multistateSymbols))
	}

	multi := nexus.NewMatrix(m.Taxa(), []string{"1"})
	for _, taxon := range m.Taxa() {
		var states []string
		for i, char := range chars {
			s, _ := m.Get(taxon, char)
			if containsSymbol(s, "1") {
				states = append(states, string(multistateSymbols[i]))
			}
		}
		var v nexus.State
		switch len(states) {
		case 0:
			continue // cell stays missing
		case 1:
			v = nexus.Atomic(states[0])
		default:
			v = nexus.Polymorphic(states...)
		}
		if err := multi.Set(taxon, "1", v); err != nil {
			return nil, err
		}
	}

	out := nexus.NewDocument(doc.Config())
	if err := out.AppendBlock(nexus.TaxaBlockSpec(m.Taxa())); err != nil {
		return nil, err
	}
	if err := out.AppendBlock(nexus.CharactersBlockSpec(multi)); err != nil {
		return nil, err
	}
	return out, nil
}

func containsSymbol(s nexus.State, symbol string) bool {
	for _, sym := range s.Symbols {
		if sym == symbol {
			return true
		}
	}
	return false
}
