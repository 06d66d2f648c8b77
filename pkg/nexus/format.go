package nexus

import (
	"fmt"
	"strings"

	"github.com/dlce-eva/commonnexus/pkg/tokenizer"
)

// Datatype enumerates the DATATYPE values of a FORMAT command.
type Datatype int

const (
	DatatypeStandard Datatype = iota
	DatatypeDNA
	DatatypeRNA
	DatatypeNucleotide
	DatatypeProtein
	DatatypeContinuous
)

// String returns the NEXUS spelling of the datatype.
func (d Datatype) String() string {
	switch d {
	case DatatypeStandard:
		return "STANDARD"
	case DatatypeDNA:
		return "DNA"
	case DatatypeRNA:
		return "RNA"
	case DatatypeNucleotide:
		return "NUCLEOTIDE"
	case DatatypeProtein:
		return "PROTEIN"
	case DatatypeContinuous:
		return "CONTINUOUS"
	default:
		return fmt.Sprintf("Datatype(%d)", int(d))
	}
}

// Triangle enumerates the TRIANGLE values of a DISTANCES FORMAT command.
type Triangle int

const (
	TriangleLower Triangle = iota
	TriangleUpper
	TriangleBoth
)

// String returns the NEXUS spelling of the triangle mode.
func (t Triangle) String() string {
	switch t {
	case TriangleLower:
		return "LOWER"
	case TriangleUpper:
		return "UPPER"
	case TriangleBoth:
		return "BOTH"
	default:
		return fmt.Sprintf("Triangle(%d)", int(t))
	}
}

// Format is the interpreted FORMAT command of a CHARACTERS, DATA or
// DISTANCES block. A zero value has no meaning; obtain one through
// defaultFormat or a block's Format method, which apply the NEXUS defaults.
type Format struct {
	Datatype    Datatype
	RespectCase bool
	Missing     string
	Gap         string
	MatchChar   string

	// Symbols is the declared state alphabet in declaration order.
	Symbols []string
	// Equate maps aliases to states. Lookup is case-sensitive.
	Equate map[string]State

	// Labels is nil when the FORMAT command leaves labeling unspecified;
	// the matrix decoder then auto-detects row labels.
	Labels *bool

	Transpose  bool
	Interleave bool
	Tokens     bool

	// Triangle and Diagonal only apply to DISTANCES blocks.
	Triangle Triangle
	Diagonal bool

	// unsupported names the first declared feature the decoder cannot
	// handle, "" when the format is fully supported.
	unsupported string
}

// Unsupported returns the name of the first unsupported FORMAT feature, or
// "" when the matrix can be decoded.
func (f *Format) Unsupported() string { return f.unsupported }

// HasSymbol reports whether s is a declared symbol, honoring RESPECTCASE.
func (f *Format) HasSymbol(s string) bool {
	_, ok := f.resolveSymbol(s)
	return ok
}

// resolveSymbol maps s onto the declared alphabet: an exact match wins, and
// without RESPECTCASE a case-folded match resolves to the declared casing.
func (f *Format) resolveSymbol(s string) (string, bool) {
	for _, sym := range f.Symbols {
		if sym == s {
			return sym, true
		}
	}
	if !f.RespectCase {
		for _, sym := range f.Symbols {
			if strings.EqualFold(sym, s) {
				return sym, true
			}
		}
	}
	return "", false
}

// matchesControl compares an entry symbol against MISSING, GAP or MATCHCHAR,
// case-insensitively unless RESPECTCASE.
func (f *Format) matchesControl(s, control string) bool {
	if control == "" {
		return false
	}
	if f.RespectCase {
		return s == control
	}
	return strings.EqualFold(s, control)
}

// defaultFormat returns the format in force when a block has no FORMAT
// command.
func defaultFormat() *Format {
	f := &Format{
		Missing:  "?",
		Diagonal: true,
		Equate:   map[string]State{},
	}
	f.applyDatatype(DatatypeStandard)
	return f
}

// applyDatatype installs the symbol alphabet and equate table of a datatype.
func (f *Format) applyDatatype(d Datatype) {
	f.Datatype = d
	switch d {
	case DatatypeStandard:
		f.Symbols = []string{"0", "1"}
		f.Equate = map[string]State{}
	case DatatypeDNA:
		f.Symbols = []string{"A", "C", "G", "T"}
		f.Equate = ambiguityEquates("T")
	case DatatypeRNA:
		f.Symbols = []string{"A", "C", "G", "U"}
		f.Equate = ambiguityEquates("U")
	case DatatypeNucleotide:
		f.Symbols = []string{"A", "C", "G", "T"}
		f.Equate = ambiguityEquates("T")
		// U is read as T for NUCLEOTIDE data.
		f.Equate["U"] = Atomic("T")
		f.Equate["u"] = Atomic("T")
	case DatatypeProtein:
		f.Symbols = strings.Split("A C D E F G H I K L M N P Q R S T V W Y *", " ")
		f.Equate = map[string]State{
			"B": Uncertain("D", "N"),
			"b": Uncertain("D", "N"),
			"Z": Uncertain("E", "Q"),
			"z": Uncertain("E", "Q"),
		}
	}
}

// ambiguityEquates builds the IUPAC ambiguity table for DNA-like data; t is
// "T" for DNA and NUCLEOTIDE, "U" for RNA.
func ambiguityEquates(t string) map[string]State {
	table := map[string][]string{
		"R": {"A", "G"},
		"Y": {"C", t},
		"M": {"A", "C"},
		"K": {"G", t},
		"S": {"C", "G"},
		"W": {"A", t},
		"H": {"A", "C", t},
		"B": {"C", "G", t},
		"V": {"A", "C", "G"},
		"D": {"A", "G", t},
		"N": {"A", "C", "G", t},
		"X": {"A", "C", "G", t},
	}
	eq := make(map[string]State, 2*len(table))
	for alias, symbols := range table {
		eq[alias] = Uncertain(symbols...)
		eq[strings.ToLower(alias)] = Uncertain(symbols...)
	}
	return eq
}

// parseFormat interprets a FORMAT payload. Options are applied in payload
// order, so DATATYPE installs its defaults before SYMBOLS or EQUATE modify
// them. The returned format is usable even when the error is an
// *UnsupportedFeatureError; decoding must still refuse it.
func parseFormat(p *Payload, cfg Config) (*Format, error) {
	f := defaultFormat()
	if p == nil {
		return f, nil
	}
	s := &itemScanner{items: p.Items("")}
	for {
		it, ok := s.next()
		if !ok {
			break
		}
		if !it.IsWord {
			continue
		}
		var err error
		switch strings.ToUpper(it.Text) {
		case "DATATYPE":
			err = f.readDatatype(s)
		case "RESPECTCASE":
			f.RespectCase = true
		case "MISSING":
			f.Missing, err = s.valueAfterEquals()
		case "GAP":
			f.Gap, err = s.valueAfterEquals()
		case "MATCHCHAR":
			f.MatchChar, err = s.valueAfterEquals()
		case "SYMBOLS":
			err = f.readSymbols(s, cfg)
		case "EQUATE":
			err = f.readEquate(s)
		case "LABELS":
			v := true
			f.Labels = &v
			if nxt, ok := s.peek(); ok && nxt.Punct("=") {
				s.next()
				s.next()
			}
		case "NOLABELS":
			v := false
			f.Labels = &v
		case "TRANSPOSE":
			f.Transpose = true
		case "INTERLEAVE":
			f.Interleave = true
			if nxt, ok := s.peek(); ok && nxt.Punct("=") {
				s.next()
				s.next()
			}
		case "TOKENS":
			f.Tokens = true
			f.noteUnsupported("TOKENS")
		case "NOTOKENS":
			f.Tokens = false
		case "TRIANGLE":
			err = f.readTriangle(s)
		case "DIAGONAL":
			f.Diagonal = true
		case "NODIAGONAL":
			f.Diagonal = false
		case "STATESFORMAT":
			v, verr := s.valueAfterEquals()
			err = verr
			if err == nil && !strings.EqualFold(v, "STATESPRESENT") {
				f.noteUnsupported("STATESFORMAT=" + strings.ToUpper(v))
			}
		case "ITEMS":
			v, verr := s.valueAfterEquals()
			err = verr
			if err == nil && !strings.EqualFold(v, "STATES") {
				f.noteUnsupported("ITEMS=" + strings.ToUpper(v))
			}
		}
		if err != nil {
			return nil, err
		}
	}
	if err := f.checkDisjoint(); err != nil {
		return nil, err
	}
	if f.unsupported != "" && !cfg.Tolerant {
		return f, &UnsupportedFeatureError{Feature: f.unsupported}
	}
	return f, nil
}

func (f *Format) noteUnsupported(feature string) {
	if f.unsupported == "" {
		f.unsupported = feature
	}
}

func (f *Format) readDatatype(s *itemScanner) error {
	v, err := s.valueAfterEquals()
	if err != nil {
		return &ConfigError{Option: "DATATYPE", Err: err}
	}
	switch strings.ToUpper(v) {
	case "STANDARD":
		f.applyDatatype(DatatypeStandard)
	case "DNA":
		f.applyDatatype(DatatypeDNA)
	case "RNA":
		f.applyDatatype(DatatypeRNA)
	case "NUCLEOTIDE":
		f.applyDatatype(DatatypeNucleotide)
	case "PROTEIN":
		f.applyDatatype(DatatypeProtein)
	case "CONTINUOUS":
		f.Datatype = DatatypeContinuous
		f.noteUnsupported("DATATYPE=CONTINUOUS")
	default:
		return &ConfigError{Option: "DATATYPE", Err: fmt.Errorf("unknown datatype %q", v)}
	}
	return nil
}

// readSymbols parses SYMBOLS="0 1 2". For STANDARD data the declared symbols
// replace the default alphabet; for molecular datatypes they extend it. The
// standard delimits the value with '"' marks; an unquoted single word is a
// lenient extension.
func (f *Format) readSymbols(s *itemScanner, cfg Config) error {
	if eq, ok := s.next(); !ok || !eq.Punct("=") {
		return &ConfigError{Option: "SYMBOLS", Err: fmt.Errorf("expected '=', got %q", eq.Text)}
	}
	var symbols []string
	addWord := func(w string) {
		for _, r := range w {
			symbols = append(symbols, string(r))
		}
	}
	inner, delim, err := s.delimited()
	if err != nil {
		return &ConfigError{Option: "SYMBOLS", Err: err}
	}
	if delim {
		for _, it := range inner {
			if it.IsWord {
				addWord(it.Text)
			} else {
				// Literal punctuation like "+" counts as a symbol here.
				symbols = append(symbols, it.Text)
			}
		}
	} else {
		v, ok := s.next()
		if !ok {
			return &ConfigError{Option: "SYMBOLS", Err: fmt.Errorf("missing value after '='")}
		}
		if !v.IsWord {
			return &ConfigError{Option: "SYMBOLS", Err: fmt.Errorf("unexpected %q in symbol list", v.Text)}
		}
		if !v.Quoted {
			if cfg.Strict {
				return &ConfigError{Option: "SYMBOLS", Err: fmt.Errorf("unquoted symbol list %q", v.Text)}
			}
			cfg.warnf("FORMAT: unquoted SYMBOLS value %q", v.Text)
		}
		for _, field := range strings.Fields(v.Text) {
			addWord(field)
		}
	}
	if len(symbols) == 0 {
		return &ConfigError{Option: "SYMBOLS", Err: fmt.Errorf("empty symbol list")}
	}
	if f.Datatype == DatatypeStandard {
		f.Symbols = symbols
	} else {
		f.Symbols = append(f.Symbols, symbols...)
	}
	return nil
}

// readEquate parses EQUATE alias=state pairs; the state is a bare symbol, a
// "(...)" polymorphic group or a "{...}" uncertain group. The standard form
// delimits the whole table with '"' marks (EQUATE="E=(012)"); a table inside
// a quoted word is re-lexed; the unquoted lenient form reads pairs straight
// from the payload.
func (f *Format) readEquate(s *itemScanner) error {
	if eq, ok := s.peek(); ok && eq.Punct("=") {
		s.next()
		inner, delim, err := s.delimited()
		if err != nil {
			return &ConfigError{Option: "EQUATE", Err: err}
		}
		if delim {
			return f.readEquatePairs(&itemScanner{items: inner})
		}
		if v, ok := s.peek(); ok && v.IsWord && strings.Contains(v.Text, "=") {
			s.next()
			tokens, err := tokenizer.Tokenize(v.Text, tokenizer.DefaultOptions())
			if err != nil {
				return &ConfigError{Option: "EQUATE", Err: err}
			}
			return f.readEquatePairs(&itemScanner{items: tokenizer.Items(tokens, "")})
		}
	}
	return f.readEquatePairs(s)
}

func (f *Format) readEquatePairs(s *itemScanner) error {
	for {
		alias, ok := s.peek()
		if !ok || !alias.IsWord {
			return nil
		}
		nxt := s.pos + 1
		if nxt >= len(s.items) || !s.items[nxt].Punct("=") {
			return nil
		}
		s.next()
		s.next()
		state, err := readEquateState(s)
		if err != nil {
			return &ConfigError{Option: "EQUATE", Err: err}
		}
		if f.Equate == nil {
			f.Equate = map[string]State{}
		}
		f.Equate[alias.Text] = state
	}
}

func readEquateState(s *itemScanner) (State, error) {
	it, ok := s.next()
	if !ok {
		return State{}, fmt.Errorf("missing state after '='")
	}
	switch {
	case it.Punct("("):
		symbols, err := readGroupSymbols(s, ")")
		if err != nil {
			return State{}, err
		}
		return Polymorphic(symbols...), nil
	case it.Punct("{"):
		symbols, err := readGroupSymbols(s, "}")
		if err != nil {
			return State{}, err
		}
		return Uncertain(symbols...), nil
	case it.IsWord:
		runes := []rune(it.Text)
		if len(runes) != 1 {
			return State{}, fmt.Errorf("equate state %q is not a single symbol", it.Text)
		}
		return Atomic(it.Text), nil
	default:
		return State{}, fmt.Errorf("unexpected %q in equate state", it.Text)
	}
}

func readGroupSymbols(s *itemScanner, closing string) ([]string, error) {
	var symbols []string
	for {
		it, ok := s.next()
		if !ok {
			return nil, fmt.Errorf("unclosed state group")
		}
		if it.Punct(closing) {
			if len(symbols) == 0 {
				return nil, fmt.Errorf("empty state group")
			}
			return symbols, nil
		}
		if it.IsWord {
			for _, r := range it.Text {
				symbols = append(symbols, string(r))
			}
		} else {
			symbols = append(symbols, it.Text)
		}
	}
}

func (f *Format) readTriangle(s *itemScanner) error {
	v, err := s.valueAfterEquals()
	if err != nil {
		return &ConfigError{Option: "TRIANGLE", Err: err}
	}
	switch strings.ToUpper(v) {
	case "LOWER":
		f.Triangle = TriangleLower
	case "UPPER":
		f.Triangle = TriangleUpper
	case "BOTH":
		f.Triangle = TriangleBoth
	default:
		return &ConfigError{Option: "TRIANGLE", Err: fmt.Errorf("unknown triangle %q", v)}
	}
	return nil
}

// checkDisjoint verifies that MISSING, GAP, MATCHCHAR, the symbol alphabet
// and the equate aliases do not overlap.
func (f *Format) checkDisjoint() error {
	seen := map[string]string{}
	claim := func(role, value string) error {
		if value == "" {
			return nil
		}
		key := value
		if !f.RespectCase {
			key = strings.ToUpper(value)
		}
		if prev, ok := seen[key]; ok && prev != role {
			return &ConfigError{
				Option: role,
				Err:    fmt.Errorf("%w: %q already used by %s", ErrSymbolCollision, value, prev),
			}
		}
		seen[key] = role
		return nil
	}
	if err := claim("MISSING", f.Missing); err != nil {
		return err
	}
	if err := claim("GAP", f.Gap); err != nil {
		return err
	}
	if err := claim("MATCHCHAR", f.MatchChar); err != nil {
		return err
	}
	for _, sym := range f.Symbols {
		if err := claim("SYMBOLS", sym); err != nil {
			return err
		}
	}
	for alias := range f.Equate {
		if err := claim("EQUATE", alias); err != nil {
			return err
		}
	}
	return nil
}
