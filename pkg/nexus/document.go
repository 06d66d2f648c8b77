// Package nexus parses, validates and serializes files in the NEXUS format,
// a line-oriented text format for phylogenetic and taxonomic data (character
// matrices, distance matrices, trees, taxon lists).
//
// A Document owns the ordered command list of a file. Parsing never loses
// information: tokens re-render themselves exactly, so Render reproduces the
// input byte for byte unless the document was mutated.
//
//	doc, err := nexus.Parse(text, nexus.DefaultConfig())
//	if err != nil {
//	    // handle error
//	}
//	chars := doc.Characters()
//	matrix, err := chars.GetMatrix()
//
// Blocks are derived views over the command list, recomputed on access;
// block values obtained before a mutation must not be reused afterwards.
package nexus

import (
	"strings"

	"github.com/dlce-eva/commonnexus/pkg/tokenizer"
)

// Marker is the case-insensitive token every NEXUS file starts with.
const Marker = "#NEXUS"

// Document is a parsed NEXUS file: the marker as written, the ordered
// command list, and any surrounding non-command token runs.
type Document struct {
	cfg      Config
	leading  []tokenizer.Token // whitespace before the marker
	marker   string            // the marker as written, e.g. "#nexus"
	commands []*Command
	trailing []tokenizer.Token // tokens after the last semicolon
	version  int
}

// CommandSpec names a command to be built from text, e.g. {"DIMENSIONS",
// "NCHAR=3"}. An empty payload produces a bare command.
type CommandSpec struct {
	Name    string
	Payload string
}

// BlockSpec describes a block to be built from text commands.
type BlockSpec struct {
	Name     string
	Commands []CommandSpec
}

// NewDocument returns an empty document holding only the #NEXUS marker.
func NewDocument(cfg Config) *Document {
	return &Document{cfg: cfg, marker: Marker}
}

// Parse parses NEXUS text into a Document.
//
// The input must begin with the case-insensitive #NEXUS marker, optionally
// preceded by whitespace. Lexical errors (*tokenizer.LexError) and a missing
// marker (*StructuralError) are always fatal. In strict mode an unmatched
// BEGIN or END is fatal too; in lenient mode it degrades to a warning and
// the unterminated span is not visible as a block.
func Parse(text string, cfg Config) (*Document, error) {
	tokens, err := tokenizer.Tokenize(text, cfg.tokenizerOptions())
	if err != nil {
		return nil, err
	}

	d := &Document{cfg: cfg}
	i := 0
	for i < len(tokens) && tokens[i].IsWhitespace() {
		i++
	}
	d.leading = tokens[:i]
	if i >= len(tokens) || tokens[i].Type != tokenizer.Word ||
		!strings.EqualFold(tokens[i].Text, Marker) {
		return nil, &StructuralError{Err: ErrNoMarker}
	}
	d.marker = tokens[i].Text
	i++

	var span []tokenizer.Token
	for ; i < len(tokens); i++ {
		span = append(span, tokens[i])
		if tokens[i].IsSemicolon() {
			d.commands = append(d.commands, newCommand(span))
			span = nil
		}
	}
	d.trailing = span

	if err := d.checkBlockStructure(); err != nil {
		if cfg.Strict {
			return nil, err
		}
		cfg.warnf("%v", err)
	}
	return d, nil
}

// checkBlockStructure verifies that BEGIN and END commands pair up.
func (d *Document) checkBlockStructure() error {
	open := false
	for _, cmd := range d.commands {
		switch {
		case cmd.IsBeginBlock():
			if open {
				return &StructuralError{Err: ErrUnmatchedBegin}
			}
			open = true
		case cmd.IsEndBlock():
			if !open {
				return &StructuralError{Err: ErrUnmatchedEnd}
			}
			open = false
		}
	}
	if open {
		return &StructuralError{Err: ErrUnmatchedBegin}
	}
	return nil
}

// Config returns the configuration the document was parsed with.
func (d *Document) Config() Config { return d.cfg }

// Commands returns the live command list. The returned slice must not be
// modified; use the block mutation methods instead.
func (d *Document) Commands() []*Command { return d.commands }

// Render serializes the document. For an unmutated document this reproduces
// the parsed input exactly.
func (d *Document) Render() string {
	var sb strings.Builder
	sb.WriteString(tokenizer.Render(d.leading))
	sb.WriteString(d.marker)
	for _, cmd := range d.commands {
		sb.WriteString(cmd.String())
	}
	sb.WriteString(tokenizer.Render(d.trailing))
	return sb.String()
}

// Comments returns the text of every comment token in the document, in
// order.
func (d *Document) Comments() []string {
	var res []string
	for _, cmd := range d.commands {
		for _, t := range cmd.tokens {
			if t.Type == tokenizer.Comment {
				res = append(res, t.Text)
			}
		}
	}
	return res
}

// Blocks returns all BEGIN…END spans in document order. The view is
// recomputed on every call and always reflects the live command list.
func (d *Document) Blocks() []*Block {
	var (
		blocks []*Block
		span   []*Command
		open   bool
	)
	for _, cmd := range d.commands {
		switch {
		case cmd.IsBeginBlock():
			open = true
			span = []*Command{cmd}
		case cmd.IsEndBlock():
			if open {
				span = append(span, cmd)
				blocks = append(blocks, newBlock(d, span))
				open, span = false, nil
			}
		default:
			if open {
				span = append(span, cmd)
			}
		}
	}
	return blocks
}

// BlocksNamed returns all blocks with the given (case-insensitive) name, or
// an empty slice.
func (d *Document) BlocksNamed(name string) []*Block {
	name = strings.ToUpper(name)
	var res []*Block
	for _, b := range d.Blocks() {
		if b.Name() == name {
			res = append(res, b)
		}
	}
	return res
}

// BlockNamed returns the first block with the given name, or nil.
func (d *Document) BlockNamed(name string) *Block {
	if blocks := d.BlocksNamed(name); len(blocks) > 0 {
		return blocks[0]
	}
	return nil
}

// Characters returns the first CHARACTERS (or DATA) block, or nil.
func (d *Document) Characters() *CharactersBlock {
	for _, b := range d.Blocks() {
		if b.Name() == "CHARACTERS" || b.Name() == "DATA" {
			return &CharactersBlock{b}
		}
	}
	return nil
}

// Distances returns the first DISTANCES block, or nil.
func (d *Document) Distances() *DistancesBlock {
	if b := d.BlockNamed("DISTANCES"); b != nil {
		return &DistancesBlock{b}
	}
	return nil
}

// Taxa returns the first TAXA block, or nil.
func (d *Document) Taxa() *TaxaBlock {
	if b := d.BlockNamed("TAXA"); b != nil {
		return &TaxaBlock{b}
	}
	return nil
}

// Trees returns the first TREES block, or nil.
func (d *Document) Trees() *TreesBlock {
	if b := d.BlockNamed("TREES"); b != nil {
		return &TreesBlock{b}
	}
	return nil
}

// Validate checks every block against its registered validator. In strict
// mode the first problem is returned as an error; in lenient mode problems
// are reported through Config.Warn and nil is returned.
func (d *Document) Validate() error {
	for _, b := range d.Blocks() {
		for _, err := range b.validate() {
			if d.cfg.Strict {
				return err
			}
			d.cfg.warnf("%v", err)
		}
	}
	return nil
}

// indexOf locates a command by identity.
func (d *Document) indexOf(cmd *Command) int {
	for i, c := range d.commands {
		if c == cmd {
			return i
		}
	}
	return -1
}

func buildCommands(spec BlockSpec) ([]*Command, error) {
	begin, err := NewCommand("BEGIN", spec.Name, false)
	if err != nil {
		return nil, err
	}
	cmds := []*Command{begin}
	for _, cs := range spec.Commands {
		cmd, err := NewCommand(cs.Name, cs.Payload, true)
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
	end, err := NewCommand("END", "", false)
	if err != nil {
		return nil, err
	}
	return append(cmds, end), nil
}

// AppendBlock builds the given block from text commands and appends it to
// the document.
func (d *Document) AppendBlock(spec BlockSpec) error {
	cmds, err := buildCommands(spec)
	if err != nil {
		return err
	}
	d.commands = append(d.commands, cmds...)
	d.version++
	return nil
}

// PrependBlock builds the given block and inserts it before the first
// command.
func (d *Document) PrependBlock(spec BlockSpec) error {
	cmds, err := buildCommands(spec)
	if err != nil {
		return err
	}
	d.commands = append(cmds, d.commands...)
	d.version++
	return nil
}

// ReplaceBlock replaces the body of block with the given commands. The
// original BEGIN and END commands are kept, so the block delimiters keep
// their exact formatting; only the interior is rebuilt. The block value is
// stale afterwards and must be re-fetched.
func (d *Document) ReplaceBlock(block *Block, commands []CommandSpec) error {
	if block.version != d.version {
		return ErrBlockNotFound
	}
	i := d.indexOf(block.commands[0])
	if i < 0 {
		return ErrBlockNotFound
	}
	var body []*Command
	for _, cs := range commands {
		cmd, err := NewCommand(cs.Name, cs.Payload, true)
		if err != nil {
			return err
		}
		body = append(body, cmd)
	}
	end := block.commands[len(block.commands)-1]
	j := d.indexOf(end)
	if j < 0 {
		return ErrBlockNotFound
	}
	spliced := make([]*Command, 0, len(d.commands)-(j-i-1)+len(body))
	spliced = append(spliced, d.commands[:i+1]...)
	spliced = append(spliced, body...)
	spliced = append(spliced, d.commands[j:]...)
	d.commands = spliced
	d.version++
	return nil
}

// RemoveBlock removes every command of block from the document.
func (d *Document) RemoveBlock(block *Block) error {
	if block.version != d.version {
		return ErrBlockNotFound
	}
	if d.indexOf(block.commands[0]) < 0 {
		return ErrBlockNotFound
	}
	member := make(map[*Command]bool, len(block.commands))
	for _, cmd := range block.commands {
		member[cmd] = true
	}
	kept := d.commands[:0]
	for _, cmd := range d.commands {
		if !member[cmd] {
			kept = append(kept, cmd)
		}
	}
	d.commands = kept
	d.version++
	return nil
}

// AppendCommand inserts a command built from name and payload before the
// END command of block.
func (d *Document) AppendCommand(block *Block, name, payload string) error {
	if block.version != d.version {
		return ErrBlockNotFound
	}
	end := block.commands[len(block.commands)-1]
	j := d.indexOf(end)
	if j < 0 {
		return ErrBlockNotFound
	}
	cmd, err := NewCommand(name, payload, true)
	if err != nil {
		return err
	}
	d.commands = append(d.commands[:j], append([]*Command{cmd}, d.commands[j:]...)...)
	d.version++
	return nil
}
