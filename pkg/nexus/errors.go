package nexus

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is matching.
var (
	// ErrNoMarker indicates input that does not start with #NEXUS.
	ErrNoMarker = errors.New("input does not start with #NEXUS")

	// ErrUnmatchedBegin indicates a BEGIN command without a closing END.
	ErrUnmatchedBegin = errors.New("BEGIN without matching END")

	// ErrUnmatchedEnd indicates an END command without an opening BEGIN.
	ErrUnmatchedEnd = errors.New("END without matching BEGIN")

	// ErrDuplicateCommand indicates a second occurrence of a command that a
	// block allows only once.
	ErrDuplicateCommand = errors.New("duplicate singleton command")

	// ErrSymbolCollision indicates FORMAT values that are not pairwise
	// disjoint (missing/gap/matchchar/equate aliases/symbols).
	ErrSymbolCollision = errors.New("colliding FORMAT symbols")

	// ErrInvalidSymbol indicates a matrix entry symbol not declared in
	// SYMBOLS (after equate expansion and case folding).
	ErrInvalidSymbol = errors.New("undeclared state symbol")

	// ErrEntryCount indicates a matrix row with the wrong number of entries.
	ErrEntryCount = errors.New("wrong number of matrix entries")

	// ErrUnknownTaxon indicates a matrix row referencing a taxon absent from
	// the authoritative taxon list.
	ErrUnknownTaxon = errors.New("reference to undeclared taxon")

	// ErrBlockNotFound indicates a mutation referencing a block that is not
	// (or no longer) part of the document.
	ErrBlockNotFound = errors.New("block not found in document")
)

// StructuralError reports a malformed command/block structure: a missing
// #NEXUS marker, unmatched BEGIN/END, or a duplicate singleton command.
// Structural errors are fatal in strict mode; in lenient mode some degrade
// to warnings with last-write-wins recovery.
type StructuralError struct {
	// Block names the block the error occurred in, if any.
	Block string
	// Err is the underlying error.
	Err error
}

func (e *StructuralError) Error() string {
	if e.Block != "" {
		return fmt.Sprintf("structural error in block %s: %v", e.Block, e.Err)
	}
	return fmt.Sprintf("structural error: %v", e.Err)
}

func (e *StructuralError) Unwrap() error { return e.Err }

// ConfigError reports conflicting FORMAT values. Always fatal.
type ConfigError struct {
	// Option is the FORMAT subcommand that caused the conflict.
	Option string
	// Err is the underlying error.
	Err error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid FORMAT %s: %v", e.Option, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// UnsupportedFeatureError reports a valid but unimplemented FORMAT option
// (DATATYPE=CONTINUOUS, TOKENS, non-default STATESFORMAT or ITEMS). Fatal by
// default; under Config.Tolerant the payload remains accessible as raw
// tokens, but decoding still fails with this error.
type UnsupportedFeatureError struct {
	// Feature names the option, e.g. "DATATYPE=CONTINUOUS".
	Feature string
}

func (e *UnsupportedFeatureError) Error() string {
	return "unsupported FORMAT feature: " + e.Feature
}

// DataError reports inconsistent matrix data: entry-count or dimension
// mismatches, undeclared taxon/character/symbol references. Fatal in strict
// mode; in lenient mode some degrade to warn-and-prune.
type DataError struct {
	// Block names the block being decoded.
	Block string
	// Row is the 1-based matrix row, 0 if not row-specific.
	Row int
	// Err is the underlying error.
	Err error
}

func (e *DataError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("data error in %s row %d: %v", e.Block, e.Row, e.Err)
	}
	return fmt.Sprintf("data error in %s: %v", e.Block, e.Err)
}

func (e *DataError) Unwrap() error { return e.Err }
