package nexus

import (
	"fmt"

	"github.com/dlce-eva/commonnexus/pkg/tokenizer"
)

// The matrix decoder turns a MATRIX payload into rows of resolved states in
// two stages: first the token stream is scanned into raw entries (one symbol,
// or a parenthesized/braced group of symbols), honoring row labels,
// transposition and interleaving; then every raw symbol runs through the
// resolution pipeline: equate, missing, gap, matchchar, declared-symbol
// case folding, and finally the undeclared-symbol policy.

type groupKind byte

const (
	groupNone      groupKind = 0
	groupPoly      groupKind = '('
	groupUncertain groupKind = '{'
)

// rawEntry is one matrix entry before symbol resolution.
type rawEntry struct {
	kind    groupKind
	symbols []string
}

// rawRow is one written matrix row: its label (possibly assigned from the
// taxon cycle when rows are unlabeled) and its raw entries.
type rawRow struct {
	label   string
	entries []rawEntry
}

// matrixDecoder carries the decode configuration for one MATRIX payload.
type matrixDecoder struct {
	cfg     Config
	f       *Format
	block   string
	rowLen  int      // entries per written row
	labeled bool     // rows start with a label word
	cycle   []string // row labels in order, for unlabeled rows
}

// scanRows reads non-interleaved rows. Rows are delimited by entry count,
// not by line breaks.
func (d *matrixDecoder) scanRows(items []tokenizer.Item) ([]rawRow, error) {
	s := &itemScanner{items: items}
	var rows []rawRow
	for {
		if _, ok := s.peek(); !ok {
			return rows, nil
		}
		row := rawRow{}
		if d.labeled {
			it, _ := s.next()
			if !it.IsWord {
				return nil, &DataError{Block: d.block, Row: len(rows) + 1,
					Err: fmt.Errorf("row label expected, got %q", it.Text)}
			}
			row.label = it.Text
		} else {
			if len(d.cycle) == 0 {
				return nil, &DataError{Block: d.block,
					Err: fmt.Errorf("unlabeled matrix without known taxa")}
			}
			row.label = d.cycle[len(rows)%len(d.cycle)]
		}
		entries, err := d.readEntries(s, d.rowLen, len(rows)+1)
		if err != nil {
			return nil, err
		}
		row.entries = entries
		rows = append(rows, row)
	}
}

// scanInterleaved reads an interleaved matrix line by line, concatenating the
// sections of each row. Unlabeled lines cycle through the taxon order.
func (d *matrixDecoder) scanInterleaved(tokens []tokenizer.Token) ([]rawRow, error) {
	lines := tokenizer.SplitLines(tokens)
	var order []string
	acc := map[string][]rawEntry{}
	for li, line := range lines {
		items := tokenizer.Items(line, d.cfg.tokenizerOptions().PunctuationAsText)
		if len(items) == 0 {
			continue
		}
		s := &itemScanner{items: items}
		var label string
		if d.labeled {
			it, _ := s.next()
			if !it.IsWord {
				return nil, &DataError{Block: d.block, Row: li + 1,
					Err: fmt.Errorf("row label expected, got %q", it.Text)}
			}
			label = it.Text
		} else {
			if len(d.cycle) == 0 {
				return nil, &DataError{Block: d.block,
					Err: fmt.Errorf("unlabeled interleaved matrix without known taxa")}
			}
			label = d.cycle[li%len(d.cycle)]
		}
		entries, err := d.readLineEntries(s, li+1)
		if err != nil {
			return nil, err
		}
		if _, seen := acc[label]; !seen {
			order = append(order, label)
		}
		acc[label] = append(acc[label], entries...)
	}
	rows := make([]rawRow, 0, len(order))
	for _, label := range order {
		rows = append(rows, rawRow{label: label, entries: acc[label]})
	}
	return rows, nil
}

// readEntries reads exactly n entries. A word expands to one entry per rune;
// running out of input or overshooting within a word is an entry-count
// problem, fatal in strict mode.
func (d *matrixDecoder) readEntries(s *itemScanner, n, rowNum int) ([]rawEntry, error) {
	var entries []rawEntry
	for len(entries) < n {
		it, ok := s.next()
		if !ok {
			err := &DataError{Block: d.block, Row: rowNum,
				Err: fmt.Errorf("%w: got %d entries, want %d", ErrEntryCount, len(entries), n)}
			if d.cfg.Strict {
				return nil, err
			}
			d.cfg.warnf("%v", err)
			return entries, nil
		}
		var err error
		entries, err = d.appendItem(entries, it, s, n, rowNum)
		if err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// readLineEntries reads every entry left on an interleaved line.
func (d *matrixDecoder) readLineEntries(s *itemScanner, rowNum int) ([]rawEntry, error) {
	var entries []rawEntry
	for {
		it, ok := s.next()
		if !ok {
			return entries, nil
		}
		var err error
		entries, err = d.appendItem(entries, it, s, -1, rowNum)
		if err != nil {
			return nil, err
		}
	}
}

// appendItem expands one item into entries. limit < 0 means unbounded.
func (d *matrixDecoder) appendItem(entries []rawEntry, it tokenizer.Item, s *itemScanner, limit, rowNum int) ([]rawEntry, error) {
	switch {
	case it.Punct("("):
		e, err := d.readGroup(s, groupPoly, ")", rowNum)
		if err != nil {
			return nil, err
		}
		return append(entries, e), nil
	case it.Punct("{"):
		e, err := d.readGroup(s, groupUncertain, "}", rowNum)
		if err != nil {
			return nil, err
		}
		return append(entries, e), nil
	case it.IsWord:
		for _, r := range it.Text {
			if limit >= 0 && len(entries) >= limit {
				err := &DataError{Block: d.block, Row: rowNum,
					Err: fmt.Errorf("%w: row longer than %d entries", ErrEntryCount, limit)}
				if d.cfg.Strict {
					return nil, err
				}
				d.cfg.warnf("%v", err)
				return entries, nil
			}
			entries = append(entries, rawEntry{symbols: []string{string(r)}})
		}
		return entries, nil
	default:
		// Stray punctuation is a single-symbol entry; "-" (gap) is the
		// common case.
		return append(entries, rawEntry{symbols: []string{it.Text}}), nil
	}
}

func (d *matrixDecoder) readGroup(s *itemScanner, kind groupKind, closing string, rowNum int) (rawEntry, error) {
	e := rawEntry{kind: kind}
	for {
		it, ok := s.next()
		if !ok {
			return e, &DataError{Block: d.block, Row: rowNum,
				Err: fmt.Errorf("unclosed state group")}
		}
		if it.Punct(closing) {
			if len(e.symbols) == 0 {
				return e, &DataError{Block: d.block, Row: rowNum,
					Err: fmt.Errorf("empty state group")}
			}
			return e, nil
		}
		if it.IsWord {
			for _, r := range it.Text {
				e.symbols = append(e.symbols, string(r))
			}
		} else {
			e.symbols = append(e.symbols, it.Text)
		}
	}
}

// resolveRows runs the resolution pipeline over every row. Matchchar
// substitution copies the resolved state of the same column in the first
// written row, so the first row resolves before all others.
func (d *matrixDecoder) resolveRows(rows []rawRow) ([][]State, error) {
	resolved := make([][]State, len(rows))
	var first []State
	for i, row := range rows {
		if len(row.entries) != d.rowLen {
			err := &DataError{Block: d.block, Row: i + 1,
				Err: fmt.Errorf("%w: row %q has %d entries, want %d",
					ErrEntryCount, row.label, len(row.entries), d.rowLen)}
			if d.cfg.Strict {
				return nil, err
			}
			d.cfg.warnf("%v", err)
		}
		states := make([]State, d.rowLen)
		for j := range states {
			states[j] = Missing()
		}
		for j, e := range row.entries {
			if j >= d.rowLen {
				break
			}
			st, err := d.resolveEntry(e, i, j, first)
			if err != nil {
				return nil, err
			}
			states[j] = st
		}
		resolved[i] = states
		if i == 0 {
			first = states
		}
	}
	return resolved, nil
}

// resolveEntry resolves one raw entry against the format.
func (d *matrixDecoder) resolveEntry(e rawEntry, rowIdx, colIdx int, first []State) (State, error) {
	if e.kind == groupNone {
		sym := e.symbols[0]
		if st, ok := d.f.Equate[sym]; ok {
			return st, nil
		}
		if d.f.matchesControl(sym, d.f.Missing) {
			return Missing(), nil
		}
		if d.f.matchesControl(sym, d.f.Gap) {
			return Gap(), nil
		}
		if d.f.matchesControl(sym, d.f.MatchChar) {
			if rowIdx == 0 {
				return State{}, &DataError{Block: d.block, Row: 1,
					Err: fmt.Errorf("matchchar in first row")}
			}
			if colIdx >= len(first) {
				return State{}, &DataError{Block: d.block, Row: rowIdx + 1,
					Err: fmt.Errorf("matchchar beyond first row length")}
			}
			return first[colIdx], nil
		}
		declared, err := d.resolveSymbol(sym, rowIdx)
		if err != nil {
			return State{}, err
		}
		return Atomic(declared), nil
	}

	symbols := make([]string, 0, len(e.symbols))
	for _, sym := range e.symbols {
		if st, ok := d.f.Equate[sym]; ok {
			// An equate inside a group flattens into the group.
			symbols = append(symbols, st.Symbols...)
			continue
		}
		declared, err := d.resolveSymbol(sym, rowIdx)
		if err != nil {
			return State{}, err
		}
		symbols = append(symbols, declared)
	}
	if e.kind == groupPoly {
		return Polymorphic(symbols...), nil
	}
	return Uncertain(symbols...), nil
}

// resolveSymbol maps a raw symbol onto the declared alphabet and applies the
// undeclared-symbol policy: strict mode rejects, lenient mode passes the
// symbol through for STANDARD data only.
func (d *matrixDecoder) resolveSymbol(sym string, rowIdx int) (string, error) {
	if declared, ok := d.f.resolveSymbol(sym); ok {
		return declared, nil
	}
	err := &DataError{Block: d.block, Row: rowIdx + 1,
		Err: fmt.Errorf("%w: %q not in %v", ErrInvalidSymbol, sym, d.f.Symbols)}
	if d.cfg.Strict || d.f.Datatype != DatatypeStandard {
		return "", err
	}
	d.cfg.warnf("%v", err)
	return sym, nil
}
