package nexus

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/dlce-eva/commonnexus/pkg/tokenizer"
)

// CharactersBlock is the typed view over a CHARACTERS or DATA block.
// Decoding errors (unsupported formats, bad symbols, count mismatches)
// surface here, not at parse time: a document with an undecodable matrix
// still parses, renders and mutates normally.
type CharactersBlock struct {
	*Block
}

// Dimensions returns the parsed DIMENSIONS command, or nil without error
// when the block has none.
func (b *CharactersBlock) Dimensions() (*Dimensions, error) {
	p := b.Command("DIMENSIONS")
	if p == nil {
		return nil, nil
	}
	return parseDimensions(p)
}

// Format returns the interpreted FORMAT command, with NEXUS defaults applied
// when the block has none. Unsupported FORMAT features are an error unless
// the document was parsed with Config.Tolerant; the returned format is still
// populated then, but GetMatrix will refuse it.
func (b *CharactersBlock) Format() (*Format, error) {
	return parseFormat(b.Command("FORMAT"), b.doc.cfg)
}

// Charstatelabels returns character and state names, merged from
// CHARSTATELABELS, CHARLABELS and STATELABELS. Nil without error when the
// block names nothing.
func (b *CharactersBlock) Charstatelabels() (*Charstatelabels, error) {
	if p := b.Command("CHARSTATELABELS"); p != nil {
		return parseCharstatelabels(p)
	}
	var merged *Charstatelabels
	if p := b.Command("CHARLABELS"); p != nil {
		c, err := parseCharlabels(p)
		if err != nil {
			return nil, err
		}
		merged = c
	}
	if p := b.Command("STATELABELS"); p != nil {
		c, err := parseStatelabels(p)
		if err != nil {
			return nil, err
		}
		if merged == nil {
			return c, nil
		}
		for _, entry := range c.Characters {
			if prev := merged.ByNumber(entry.Number); prev != nil {
				prev.States = entry.States
			} else {
				merged.Characters = append(merged.Characters, entry)
			}
		}
	}
	return merged, nil
}

// Taxlabels returns the block's own TAXLABELS, or nil when it has none.
func (b *CharactersBlock) Taxlabels() (*Taxlabels, error) {
	p := b.Command("TAXLABELS")
	if p == nil {
		return nil, nil
	}
	return parseTaxlabels(p)
}

// taxonOrder returns the taxa governing this block: its own TAXLABELS first,
// then the document's TAXA block. Nil when neither exists.
func (b *CharactersBlock) taxonOrder() []string {
	if t, err := b.Taxlabels(); err == nil && t != nil && len(t.Labels) > 0 {
		return t.Labels
	}
	if taxa := b.doc.Taxa(); taxa != nil {
		if t, err := taxa.Taxlabels(); err == nil && t != nil {
			return t.Labels
		}
	}
	return nil
}

// charOrder returns the character labels in matrix column order: declared
// names where given, 1-based numbers otherwise.
func (b *CharactersBlock) charOrder(nchar int) ([]string, error) {
	labels := make([]string, nchar)
	for i := range labels {
		labels[i] = strconv.Itoa(i + 1)
	}
	csl, err := b.Charstatelabels()
	if err != nil {
		return nil, err
	}
	if csl != nil {
		for _, e := range csl.Characters {
			if e.Number >= 1 && e.Number <= nchar && e.Name != "" && e.Name != "_" {
				labels[e.Number-1] = e.Name
			}
		}
	}
	return labels, nil
}

// matchLabel resolves a written row label against declared labels, first
// exactly, then underscore-blind.
func matchLabel(labels []string, s string) (string, bool) {
	for _, l := range labels {
		if l == s {
			return l, true
		}
	}
	for _, l := range labels {
		if tokenizer.WordsEqual(l, s) {
			return l, true
		}
	}
	return "", false
}

// GetMatrix decodes the MATRIX command into a character matrix.
//
// The decode honors the block's FORMAT in full: datatype alphabets and
// equates, TRANSPOSE, INTERLEAVE, the LABELS tri-state (auto-detected when
// unspecified), MISSING, GAP, MATCHCHAR and RESPECTCASE. Formats declaring
// unsupported features fail with *UnsupportedFeatureError even under
// Config.Tolerant.
func (b *CharactersBlock) GetMatrix() (*Matrix, error) {
	cfg := b.doc.cfg
	f, err := parseFormat(b.Command("FORMAT"), cfg)
	if err != nil {
		return nil, err
	}
	if f.Unsupported() != "" {
		return nil, &UnsupportedFeatureError{Feature: f.Unsupported()}
	}
	dims, err := b.Dimensions()
	if err != nil {
		return nil, err
	}
	if dims == nil || dims.Nchar == 0 {
		return nil, &DataError{Block: b.Name(), Err: fmt.Errorf("DIMENSIONS NCHAR is required")}
	}
	nchar := dims.Nchar
	taxa := b.taxonOrder()
	ntax := dims.Ntax
	if ntax == 0 {
		ntax = len(taxa)
	}
	chars, err := b.charOrder(nchar)
	if err != nil {
		return nil, err
	}
	p := b.Command("MATRIX")
	if p == nil {
		return nil, &DataError{Block: b.Name(), Err: fmt.Errorf("no MATRIX command")}
	}

	rowLen := nchar
	cycle := taxa
	if f.Transpose {
		if ntax == 0 {
			return nil, &DataError{Block: b.Name(), Err: fmt.Errorf("transposed matrix without known NTAX")}
		}
		rowLen = ntax
		cycle = chars
	}
	labeled := true
	if f.Labels != nil {
		labeled = *f.Labels
	} else if len(cycle) > 0 {
		// Auto-detect: rows are labeled iff the first word is a declared
		// label.
		if items := p.Items(""); len(items) > 0 && items[0].IsWord {
			_, labeled = matchLabel(cycle, items[0].Text)
		}
	}

	d := &matrixDecoder{cfg: cfg, f: f, block: b.Name(), rowLen: rowLen, labeled: labeled, cycle: cycle}
	var rows []rawRow
	if f.Interleave {
		rows, err = d.scanInterleaved(p.Tokens())
	} else {
		rows, err = d.scanRows(p.Items(""))
	}
	if err != nil {
		return nil, err
	}
	states, err := d.resolveRows(rows)
	if err != nil {
		return nil, err
	}

	if f.Transpose {
		return b.assembleTransposed(rows, states, taxa, chars, cfg)
	}
	return b.assemble(rows, states, taxa, chars, cfg)
}

// assemble maps row-per-taxon results into a matrix. Unknown row labels are
// fatal in strict mode and pruned with a warning otherwise.
func (b *CharactersBlock) assemble(rows []rawRow, states [][]State, taxa, chars []string, cfg Config) (*Matrix, error) {
	if len(taxa) == 0 {
		for _, row := range rows {
			taxa = append(taxa, row.label)
		}
	}
	m := NewMatrix(taxa, chars)
	for i, row := range rows {
		taxon, ok := matchLabel(taxa, row.label)
		if !ok {
			err := &DataError{Block: b.Name(), Row: i + 1,
				Err: fmt.Errorf("%w: %q", ErrUnknownTaxon, row.label)}
			if cfg.Strict {
				return nil, err
			}
			cfg.warnf("%v", err)
			continue
		}
		for j, c := range chars {
			m.cells[taxon][c] = states[i][j]
		}
	}
	return m, nil
}

// assembleTransposed maps row-per-character results into a matrix.
func (b *CharactersBlock) assembleTransposed(rows []rawRow, states [][]State, taxa, chars []string, cfg Config) (*Matrix, error) {
	if len(taxa) == 0 {
		return nil, &DataError{Block: b.Name(), Err: fmt.Errorf("transposed matrix without known taxa")}
	}
	m := NewMatrix(taxa, chars)
	for i, row := range rows {
		char, ok := matchLabel(chars, row.label)
		if !ok {
			err := &DataError{Block: b.Name(), Row: i + 1,
				Err: fmt.Errorf("unknown character %q", row.label)}
			if cfg.Strict {
				return nil, err
			}
			cfg.warnf("%v", err)
			continue
		}
		for j, t := range taxa {
			m.cells[t][char] = states[i][j]
		}
	}
	return m, nil
}

// GetMatrixLabeled decodes the matrix and substitutes declared state names
// for state symbols wherever STATELABELS or CHARSTATELABELS name them. The
// n-th declared state name belongs to the n-th declared symbol; "_" leaves a
// position unnamed.
func (b *CharactersBlock) GetMatrixLabeled() (*Matrix, error) {
	m, err := b.GetMatrix()
	if err != nil {
		return nil, err
	}
	csl, err := b.Charstatelabels()
	if err != nil {
		return nil, err
	}
	if csl == nil {
		return m, nil
	}
	f, err := b.Format()
	if err != nil {
		return nil, err
	}
	for i, c := range m.chars {
		entry := csl.ByNumber(i + 1)
		if entry == nil || len(entry.States) == 0 {
			continue
		}
		names := make(map[string]string, len(entry.States))
		for j, sym := range f.Symbols {
			if j < len(entry.States) && entry.States[j] != "_" {
				names[sym] = entry.States[j]
			}
		}
		for _, t := range m.taxa {
			m.cells[t][c] = renameState(m.cells[t][c], names)
		}
	}
	return m, nil
}

func renameState(s State, names map[string]string) State {
	if len(s.Symbols) == 0 || len(names) == 0 {
		return s
	}
	renamed := make([]string, len(s.Symbols))
	for i, sym := range s.Symbols {
		if name, ok := names[sym]; ok {
			renamed[i] = name
		} else {
			renamed[i] = sym
		}
	}
	switch s.Kind {
	case KindAtomic:
		return Atomic(renamed[0])
	case KindPolymorphic:
		return Polymorphic(renamed...)
	case KindUncertain:
		return Uncertain(renamed...)
	default:
		return s
	}
}

// CharactersBlockSpec builds the commands of a CHARACTERS block encoding the
// matrix: DIMENSIONS, a STANDARD FORMAT declaring the used alphabet,
// CHARSTATELABELS when character labels are not plain numbers, and the
// labeled MATRIX.
func CharactersBlockSpec(m *Matrix) BlockSpec {
	used := map[string]bool{}
	for _, t := range m.taxa {
		for _, c := range m.chars {
			s := m.cells[t][c]
			if s.Kind == KindMissing || s.Kind == KindGap {
				continue
			}
			for _, sym := range s.Symbols {
				used[sym] = true
			}
		}
	}
	symbols := make([]string, 0, len(used))
	for sym := range used {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	spec := BlockSpec{Name: "CHARACTERS"}
	spec.Commands = append(spec.Commands, CommandSpec{
		Name:    "DIMENSIONS",
		Payload: fmt.Sprintf("NCHAR=%d", len(m.chars)),
	})
	spec.Commands = append(spec.Commands, CommandSpec{
		Name: "FORMAT",
		Payload: fmt.Sprintf(`DATATYPE=STANDARD MISSING=? GAP=- SYMBOLS="%s"`,
			strings.Join(symbols, "")),
	})
	if labels := charstatelabelsPayload(m.chars); labels != "" {
		spec.Commands = append(spec.Commands, CommandSpec{Name: "CHARSTATELABELS", Payload: labels})
	}
	var sb strings.Builder
	for _, t := range m.taxa {
		sb.WriteString("\n\t\t")
		sb.WriteString(tokenizer.QuoteIfNeeded(t))
		sb.WriteString(" ")
		for _, c := range m.chars {
			sb.WriteString(m.cells[t][c].String())
		}
	}
	spec.Commands = append(spec.Commands, CommandSpec{Name: "MATRIX", Payload: sb.String()})
	return spec
}

// charstatelabelsPayload renders character labels, or "" when they are all
// plain 1-based numbers and need no declaration.
func charstatelabelsPayload(chars []string) string {
	allNumeric := true
	for i, c := range chars {
		if c != strconv.Itoa(i+1) {
			allNumeric = false
			break
		}
	}
	if allNumeric {
		return ""
	}
	parts := make([]string, len(chars))
	for i, c := range chars {
		parts[i] = fmt.Sprintf("%d %s", i+1, tokenizer.QuoteIfNeeded(c))
	}
	return strings.Join(parts, ", ")
}
