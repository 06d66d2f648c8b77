package nexus

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dlce-eva/commonnexus/pkg/tokenizer"
)

// DistancesBlock is the typed view over a DISTANCES block.
//
// The written matrix may be a lower or upper triangle or the full square
// (TRIANGLE=LOWER/UPPER/BOTH), with or without the diagonal; GetMatrix
// always mirrors it into a full square DistanceMatrix.
type DistancesBlock struct {
	*Block
}

// Dimensions returns the parsed DIMENSIONS command, or nil when absent.
func (b *DistancesBlock) Dimensions() (*Dimensions, error) {
	p := b.Command("DIMENSIONS")
	if p == nil {
		return nil, nil
	}
	return parseDimensions(p)
}

// Format returns the interpreted FORMAT command with DISTANCES defaults:
// TRIANGLE=LOWER, DIAGONAL.
func (b *DistancesBlock) Format() (*Format, error) {
	return parseFormat(b.Command("FORMAT"), b.doc.cfg)
}

// Taxlabels returns the block's own TAXLABELS, or nil when it has none.
func (b *DistancesBlock) Taxlabels() (*Taxlabels, error) {
	p := b.Command("TAXLABELS")
	if p == nil {
		return nil, nil
	}
	return parseTaxlabels(p)
}

func (b *DistancesBlock) taxonOrder() []string {
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

// requiredCols returns how many values row i (1-based) carries.
func requiredCols(t Triangle, diagonal bool, i, ntax int) int {
	switch t {
	case TriangleLower:
		if diagonal {
			return i
		}
		return i - 1
	case TriangleUpper:
		if diagonal {
			return ntax - i + 1
		}
		return ntax - i
	default:
		if diagonal {
			return ntax
		}
		return ntax - 1
	}
}

// colIndices returns the 1-based column index of each value in row i.
func colIndices(t Triangle, diagonal bool, i, ntax int) []int {
	var cols []int
	switch t {
	case TriangleLower:
		last := i
		if !diagonal {
			last = i - 1
		}
		for j := 1; j <= last; j++ {
			cols = append(cols, j)
		}
	case TriangleUpper:
		first := i
		if !diagonal {
			first = i + 1
		}
		for j := first; j <= ntax; j++ {
			cols = append(cols, j)
		}
	default:
		for j := 1; j <= ntax; j++ {
			if !diagonal && j == i {
				continue
			}
			cols = append(cols, j)
		}
	}
	return cols
}

// distDecoder carries the decode configuration for one DISTANCES MATRIX.
type distDecoder struct {
	cfg     Config
	f       *Format
	block   string
	ntax    int
	labeled bool
	taxa    []string // declared taxa, nil when rows define them
}

// readValues reads n distance values. A value is a number word, the MISSING
// character (nil entry), or a minus sign followed by a number word.
func (d *distDecoder) readValues(s *itemScanner, n, rowNum int) ([]*float64, error) {
	values := make([]*float64, 0, n)
	for len(values) < n {
		it, ok := s.next()
		if !ok {
			err := &DataError{Block: d.block, Row: rowNum,
				Err: fmt.Errorf("%w: got %d values, want %d", ErrEntryCount, len(values), n)}
			if d.cfg.Strict {
				return nil, err
			}
			d.cfg.warnf("%v", err)
			for len(values) < n {
				values = append(values, nil)
			}
			return values, nil
		}
		v, err := d.parseValue(it, s, rowNum)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

func (d *distDecoder) parseValue(it tokenizer.Item, s *itemScanner, rowNum int) (*float64, error) {
	negative := false
	if it.Punct("-") {
		negative = true
		var ok bool
		it, ok = s.next()
		if !ok || !it.IsWord {
			return nil, &DataError{Block: d.block, Row: rowNum,
				Err: fmt.Errorf("dangling minus sign")}
		}
	}
	if !it.IsWord {
		return nil, &DataError{Block: d.block, Row: rowNum,
			Err: fmt.Errorf("distance value expected, got %q", it.Text)}
	}
	if d.f.matchesControl(it.Text, d.f.Missing) {
		return nil, nil
	}
	text := it.Text
	// A signed exponent splits at the sign ("1e-5" lexes as three items);
	// rejoin it before conversion.
	if len(text) > 1 && (strings.HasSuffix(text, "e") || strings.HasSuffix(text, "E")) &&
		s.pos+1 < len(s.items) {
		sign, exp := s.items[s.pos], s.items[s.pos+1]
		if (sign.Punct("-") || sign.Punct("+")) && exp.IsWord {
			text += sign.Text + exp.Text
			s.pos += 2
		}
	}
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return nil, &DataError{Block: d.block, Row: rowNum,
			Err: fmt.Errorf("bad distance value %q", text)}
	}
	if negative {
		v = -v
	}
	return &v, nil
}

// GetMatrix decodes the MATRIX command into a full square distance matrix.
//
// Triangle values are mirrored across the diagonal; with TRIANGLE=BOTH the
// two triangles must agree. An absent diagonal reads as distance zero.
func (b *DistancesBlock) GetMatrix() (*DistanceMatrix, error) {
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
	taxa := b.taxonOrder()
	ntax := 0
	if dims != nil {
		ntax = dims.Ntax
	}
	if ntax == 0 {
		ntax = len(taxa)
	}
	if ntax == 0 {
		return nil, &DataError{Block: b.Name(), Err: fmt.Errorf("DIMENSIONS NTAX is required")}
	}
	p := b.Command("MATRIX")
	if p == nil {
		return nil, &DataError{Block: b.Name(), Err: fmt.Errorf("no MATRIX command")}
	}

	labeled := true
	if f.Labels != nil {
		labeled = *f.Labels
	} else if len(taxa) > 0 {
		if items := p.Items(""); len(items) > 0 && items[0].IsWord {
			_, labeled = matchLabel(taxa, items[0].Text)
		}
	}
	d := &distDecoder{cfg: cfg, f: f, block: b.Name(), ntax: ntax, labeled: labeled, taxa: taxa}

	var (
		labels [][]string // one optional label per row
		values [][]*float64
	)
	if f.Interleave {
		labels, values, err = d.scanInterleaved(p.Tokens())
	} else {
		labels, values, err = d.scanRows(p.Items(""))
	}
	if err != nil {
		return nil, err
	}
	return d.assemble(labels, values)
}

// scanRows reads ntax consecutive rows, each with its triangle-dependent
// value count.
func (d *distDecoder) scanRows(items []tokenizer.Item) ([][]string, [][]*float64, error) {
	s := &itemScanner{items: items}
	labels := make([][]string, d.ntax)
	values := make([][]*float64, d.ntax)
	for i := 1; i <= d.ntax; i++ {
		if d.labeled {
			it, ok := s.next()
			if !ok || !it.IsWord {
				return nil, nil, &DataError{Block: d.block, Row: i,
					Err: fmt.Errorf("row label expected")}
			}
			labels[i-1] = []string{it.Text}
		}
		vals, err := d.readValues(s, requiredCols(d.f.Triangle, d.f.Diagonal, i, d.ntax), i)
		if err != nil {
			return nil, nil, err
		}
		values[i-1] = vals
	}
	return labels, values, nil
}

// scanInterleaved accumulates row sections line by line; unlabeled lines
// cycle through row order.
func (d *distDecoder) scanInterleaved(tokens []tokenizer.Token) ([][]string, [][]*float64, error) {
	lines := tokenizer.SplitLines(tokens)
	labels := make([][]string, d.ntax)
	values := make([][]*float64, d.ntax)
	rowOf := func(li int, label string) int {
		if label != "" && len(d.taxa) > 0 {
			if taxon, ok := matchLabel(d.taxa, label); ok {
				for i, t := range d.taxa {
					if t == taxon {
						return i
					}
				}
			}
		}
		return li % d.ntax
	}
	for li, line := range lines {
		items := tokenizer.Items(line, d.cfg.tokenizerOptions().PunctuationAsText)
		if len(items) == 0 {
			continue
		}
		s := &itemScanner{items: items}
		label := ""
		if d.labeled {
			it, _ := s.next()
			if !it.IsWord {
				return nil, nil, &DataError{Block: d.block, Row: li + 1,
					Err: fmt.Errorf("row label expected, got %q", it.Text)}
			}
			label = it.Text
		}
		row := rowOf(li, label)
		if label != "" {
			labels[row] = append(labels[row], label)
		}
		for {
			it, ok := s.next()
			if !ok {
				break
			}
			v, err := d.parseValue(it, s, row+1)
			if err != nil {
				return nil, nil, err
			}
			values[row] = append(values[row], v)
		}
	}
	for i := 1; i <= d.ntax; i++ {
		want := requiredCols(d.f.Triangle, d.f.Diagonal, i, d.ntax)
		if len(values[i-1]) != want {
			err := &DataError{Block: d.block, Row: i,
				Err: fmt.Errorf("%w: got %d values, want %d", ErrEntryCount, len(values[i-1]), want)}
			if d.cfg.Strict {
				return nil, nil, err
			}
			d.cfg.warnf("%v", err)
			for len(values[i-1]) < want {
				values[i-1] = append(values[i-1], nil)
			}
			values[i-1] = values[i-1][:want]
		}
	}
	return labels, values, nil
}

// assemble verifies row labels against the taxon order, places the declared
// values, checks triangle agreement under TRIANGLE=BOTH and mirrors the
// result into a full square.
func (d *distDecoder) assemble(labels [][]string, values [][]*float64) (*DistanceMatrix, error) {
	taxa := d.taxa
	if len(taxa) == 0 {
		taxa = make([]string, d.ntax)
		for i := range taxa {
			taxa[i] = strconv.Itoa(i + 1)
			if len(labels[i]) > 0 {
				taxa[i] = labels[i][0]
			}
		}
	} else {
		for i, rowLabels := range labels {
			for _, label := range rowLabels {
				if i < len(taxa) && !tokenizer.WordsEqual(taxa[i], label) {
					err := &DataError{Block: d.block, Row: i + 1,
						Err: fmt.Errorf("%w: row labeled %q, expected %q", ErrUnknownTaxon, label, taxa[i])}
					if d.cfg.Strict {
						return nil, err
					}
					d.cfg.warnf("%v", err)
				}
			}
		}
	}
	if len(taxa) > d.ntax {
		taxa = taxa[:d.ntax]
	}

	m := NewDistanceMatrix(taxa)
	for i := 1; i <= d.ntax; i++ {
		cols := colIndices(d.f.Triangle, d.f.Diagonal, i, d.ntax)
		for k, j := range cols {
			if k >= len(values[i-1]) {
				break
			}
			v := values[i-1][k]
			if v == nil {
				continue
			}
			if d.f.Triangle == TriangleBoth {
				if prev := m.at(j-1, i-1); prev != nil && i != j && *prev != *v {
					err := &DataError{Block: d.block, Row: i,
						Err: fmt.Errorf("triangle disagreement at (%d,%d): %v vs %v", i, j, *prev, *v)}
					if d.cfg.Strict {
						return nil, err
					}
					d.cfg.warnf("%v", err)
				}
			}
			m.setAt(i-1, j-1, *v)
		}
	}
	// Mirror and settle the diagonal.
	for i := 0; i < d.ntax; i++ {
		if m.at(i, i) == nil {
			m.setAt(i, i, 0)
		}
		for j := i + 1; j < d.ntax; j++ {
			switch {
			case m.at(i, j) == nil && m.at(j, i) != nil:
				m.setAt(i, j, *m.at(j, i))
			case m.at(j, i) == nil && m.at(i, j) != nil:
				m.setAt(j, i, *m.at(i, j))
			}
		}
	}
	return m, nil
}

// DistancesBlockSpec builds the commands of a DISTANCES block encoding the
// matrix as a full square with diagonal and row labels.
func DistancesBlockSpec(m *DistanceMatrix) BlockSpec {
	spec := BlockSpec{Name: "DISTANCES"}
	spec.Commands = append(spec.Commands, CommandSpec{
		Name:    "DIMENSIONS",
		Payload: fmt.Sprintf("NTAX=%d", len(m.taxa)),
	})
	spec.Commands = append(spec.Commands, CommandSpec{
		Name:    "FORMAT",
		Payload: "TRIANGLE=BOTH DIAGONAL MISSING=?",
	})
	var sb strings.Builder
	for i, t := range m.taxa {
		sb.WriteString("\n\t\t")
		sb.WriteString(tokenizer.QuoteIfNeeded(t))
		for j := range m.taxa {
			sb.WriteString(" ")
			if v := m.cells[i][j]; v != nil {
				sb.WriteString(strconv.FormatFloat(*v, 'g', -1, 64))
			} else {
				sb.WriteString("?")
			}
		}
	}
	spec.Commands = append(spec.Commands, CommandSpec{Name: "MATRIX", Payload: sb.String()})
	return spec
}
