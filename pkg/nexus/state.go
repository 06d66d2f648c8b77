package nexus

import (
	"fmt"
	"sort"
	"strings"
)

// StateKind discriminates the variants of a matrix cell value.
type StateKind int

const (
	// KindMissing is an unknown observation, written with the MISSING
	// character ("?" by default).
	KindMissing StateKind = iota
	// KindGap is an alignment gap, written with the GAP character.
	KindGap
	// KindAtomic is a single resolved state symbol.
	KindAtomic
	// KindPolymorphic is an ordered set of states all present in the taxon,
	// written "(AB)".
	KindPolymorphic
	// KindUncertain is an unordered set of candidate states, written "{AB}"
	// and canonicalized to sorted symbol order.
	KindUncertain
)

// String returns the kind name.
func (k StateKind) String() string {
	switch k {
	case KindMissing:
		return "missing"
	case KindGap:
		return "gap"
	case KindAtomic:
		return "atomic"
	case KindPolymorphic:
		return "polymorphic"
	case KindUncertain:
		return "uncertain"
	default:
		return fmt.Sprintf("StateKind(%d)", int(k))
	}
}

// State is one cell of a character matrix. Missing and gap states carry no
// symbols; an atomic state carries exactly one; polymorphic and uncertain
// states carry two or more. Polymorphic symbol order is significant and
// preserved; uncertain symbols are canonicalized to sorted order, so
// Polymorphic("A","B") and Uncertain("A","B") never compare equal.
type State struct {
	Kind    StateKind
	Symbols []string
}

// Missing returns the missing state.
func Missing() State { return State{Kind: KindMissing} }

// Gap returns the gap state.
func Gap() State { return State{Kind: KindGap} }

// Atomic returns a single-symbol state.
func Atomic(symbol string) State {
	return State{Kind: KindAtomic, Symbols: []string{symbol}}
}

// Polymorphic returns an ordered multi-state value.
func Polymorphic(symbols ...string) State {
	return State{Kind: KindPolymorphic, Symbols: append([]string(nil), symbols...)}
}

// Uncertain returns an unordered multi-state value. The symbols are stored
// sorted, making equality independent of input order.
func Uncertain(symbols ...string) State {
	s := append([]string(nil), symbols...)
	sort.Strings(s)
	return State{Kind: KindUncertain, Symbols: s}
}

// IsMissing reports whether the state is the missing value.
func (s State) IsMissing() bool { return s.Kind == KindMissing }

// IsGap reports whether the state is a gap.
func (s State) IsGap() bool { return s.Kind == KindGap }

// Equal reports deep equality of two states.
func (s State) Equal(o State) bool {
	if s.Kind != o.Kind || len(s.Symbols) != len(o.Symbols) {
		return false
	}
	for i := range s.Symbols {
		if s.Symbols[i] != o.Symbols[i] {
			return false
		}
	}
	return true
}

// String renders the state in matrix entry notation.
func (s State) String() string {
	switch s.Kind {
	case KindMissing:
		return "?"
	case KindGap:
		return "-"
	case KindAtomic:
		return s.Symbols[0]
	case KindPolymorphic:
		return "(" + strings.Join(s.Symbols, "") + ")"
	case KindUncertain:
		return "{" + strings.Join(s.Symbols, "") + "}"
	default:
		return "?"
	}
}

// Matrix is a decoded character matrix: taxa and characters in declaration
// order, with one state per cell.
type Matrix struct {
	taxa  []string
	chars []string
	cells map[string]map[string]State
}

// NewMatrix returns an empty matrix over the given taxa and characters.
func NewMatrix(taxa, chars []string) *Matrix {
	m := &Matrix{
		taxa:  append([]string(nil), taxa...),
		chars: append([]string(nil), chars...),
		cells: make(map[string]map[string]State, len(taxa)),
	}
	for _, t := range m.taxa {
		row := make(map[string]State, len(chars))
		for _, c := range m.chars {
			row[c] = Missing()
		}
		m.cells[t] = row
	}
	return m
}

// Taxa returns the taxon labels in declaration order.
func (m *Matrix) Taxa() []string { return m.taxa }

// Characters returns the character labels in declaration order.
func (m *Matrix) Characters() []string { return m.chars }

// Get returns the state for a taxon/character pair; ok is false when either
// label is unknown.
func (m *Matrix) Get(taxon, char string) (State, bool) {
	row, ok := m.cells[taxon]
	if !ok {
		return State{}, false
	}
	s, ok := row[char]
	return s, ok
}

// Set stores a state; unknown labels return an error.
func (m *Matrix) Set(taxon, char string, s State) error {
	row, ok := m.cells[taxon]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTaxon, taxon)
	}
	if _, ok := row[char]; !ok {
		return fmt.Errorf("unknown character %q", char)
	}
	row[char] = s
	return nil
}

// Row returns the states of one taxon in character order.
func (m *Matrix) Row(taxon string) ([]State, bool) {
	row, ok := m.cells[taxon]
	if !ok {
		return nil, false
	}
	res := make([]State, len(m.chars))
	for i, c := range m.chars {
		res[i] = row[c]
	}
	return res, true
}

// DistanceMatrix is a decoded distance matrix in full square form. A nil
// entry means the distance was not given.
type DistanceMatrix struct {
	taxa  []string
	index map[string]int
	cells [][]*float64
}

// NewDistanceMatrix returns an empty distance matrix over the given taxa.
func NewDistanceMatrix(taxa []string) *DistanceMatrix {
	m := &DistanceMatrix{
		taxa:  append([]string(nil), taxa...),
		index: make(map[string]int, len(taxa)),
		cells: make([][]*float64, len(taxa)),
	}
	for i, t := range m.taxa {
		m.index[t] = i
		m.cells[i] = make([]*float64, len(taxa))
	}
	return m
}

// Taxa returns the taxon labels in declaration order.
func (m *DistanceMatrix) Taxa() []string { return m.taxa }

// Get returns the distance between two taxa; ok is false when either taxon
// is unknown or the distance was not given.
func (m *DistanceMatrix) Get(a, b string) (float64, bool) {
	i, okA := m.index[a]
	j, okB := m.index[b]
	if !okA || !okB || m.cells[i][j] == nil {
		return 0, false
	}
	return *m.cells[i][j], true
}

// Set stores a distance in both triangle positions.
func (m *DistanceMatrix) Set(a, b string, d float64) error {
	i, okA := m.index[a]
	j, okB := m.index[b]
	if !okA {
		return fmt.Errorf("%w: %s", ErrUnknownTaxon, a)
	}
	if !okB {
		return fmt.Errorf("%w: %s", ErrUnknownTaxon, b)
	}
	m.cells[i][j] = &d
	v := d
	m.cells[j][i] = &v
	return nil
}

func (m *DistanceMatrix) setAt(i, j int, d float64) {
	m.cells[i][j] = &d
}

func (m *DistanceMatrix) at(i, j int) *float64 { return m.cells[i][j] }
