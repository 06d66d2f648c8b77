package nexus

import (
	"fmt"
	"strings"
)

// Block is a BEGIN…END span of commands. Blocks are derived views: they are
// rebuilt from the live command list on every Document.Blocks call and hold
// a snapshot of the commands they were built from.
type Block struct {
	doc      *Document // non-owning back-reference
	commands []*Command
	name     string
	version  int                   // doc.version at construction, for staleness checks
	payloads map[string][]*Payload // lazily built command-name multimap
}

func newBlock(doc *Document, commands []*Command) *Block {
	return &Block{
		doc:      doc,
		commands: commands,
		name:     commandName(commands[0].PayloadTokens()),
		version:  doc.version,
	}
}

// Name returns the upper-cased block name from the BEGIN payload.
func (b *Block) Name() string { return b.name }

// Document returns the owning document.
func (b *Block) Document() *Document { return b.doc }

// BlockCommands returns the block's commands including BEGIN and END.
func (b *Block) BlockCommands() []*Command { return b.commands }

// String renders the block exactly.
func (b *Block) String() string {
	var sb strings.Builder
	for _, cmd := range b.commands {
		sb.WriteString(cmd.String())
	}
	return sb.String()
}

func (b *Block) payloadMap() map[string][]*Payload {
	if b.payloads == nil {
		b.payloads = make(map[string][]*Payload)
		for _, cmd := range b.commands[1 : len(b.commands)-1] {
			p := &Payload{tokens: cmd.PayloadTokens(), doc: b.doc}
			b.payloads[cmd.Name()] = append(b.payloads[cmd.Name()], p)
		}
	}
	return b.payloads
}

// Command returns the payload of the first command with the given name, or
// nil if the block has no such command.
func (b *Block) Command(name string) *Payload {
	if ps := b.payloadMap()[strings.ToUpper(name)]; len(ps) > 0 {
		return ps[0]
	}
	return nil
}

// Commands returns the payloads of every command with the given name, in
// order. Multiple occurrences are legal for some commands (e.g. TREE).
func (b *Block) Commands(name string) []*Payload {
	return b.payloadMap()[strings.ToUpper(name)]
}

// Title returns the block's Mesquite TITLE, or "".
func (b *Block) Title() string {
	if p := b.Command("TITLE"); p != nil {
		if items := p.Items(""); len(items) > 0 {
			return strings.ToUpper(items[0].Text)
		}
	}
	return ""
}

// ID returns the block's Mesquite ID, or "".
func (b *Block) ID() string {
	if p := b.Command("ID"); p != nil {
		if items := p.Items(""); len(items) > 0 {
			return items[0].Text
		}
	}
	return ""
}

// Links returns the block's Mesquite LINK table: linked block name → title.
func (b *Block) Links() map[string]string {
	res := map[string]string{}
	for _, p := range b.Commands("LINK") {
		items := p.Items("")
		// LINK <block> = <title>
		if len(items) == 3 && items[1].Punct("=") {
			res[strings.ToUpper(items[0].Text)] = strings.ToUpper(items[2].Text)
		}
	}
	return res
}

// singletonCommands lists command names allowed at most once per block, by
// block name. The registry is populated at init time; unknown block names
// fall back to the generic entry.
var singletonCommands = map[string][]string{
	"TAXA":       {"DIMENSIONS", "TAXLABELS"},
	"CHARACTERS": {"DIMENSIONS", "FORMAT", "ELIMINATE", "TAXLABELS", "CHARSTATELABELS", "CHARLABELS", "STATELABELS", "MATRIX"},
	"DATA":       {"DIMENSIONS", "FORMAT", "ELIMINATE", "TAXLABELS", "CHARSTATELABELS", "CHARLABELS", "STATELABELS", "MATRIX"},
	"UNALIGNED":  {"DIMENSIONS", "FORMAT", "TAXLABELS", "MATRIX"},
	"DISTANCES":  {"DIMENSIONS", "FORMAT", "TAXLABELS", "MATRIX"},
	"TREES":      {"TRANSLATE"},
}

// validate returns every problem found in the block. Callers decide whether
// problems are fatal (strict) or warnings (lenient).
func (b *Block) validate() []error {
	var errs []error
	for _, name := range singletonCommands[b.name] {
		if len(b.Commands(name)) > 1 {
			errs = append(errs, &StructuralError{
				Block: b.name,
				Err:   fmt.Errorf("%w: %s", ErrDuplicateCommand, name),
			})
		}
	}
	if b.name == "TREES" {
		// TRANSLATE must precede the trees it translates.
		seenTree := false
		for _, cmd := range b.commands {
			switch cmd.Name() {
			case "TREE":
				seenTree = true
			case "TRANSLATE":
				if seenTree {
					errs = append(errs, &StructuralError{
						Block: b.name,
						Err:   fmt.Errorf("TRANSLATE after TREE"),
					})
				}
			}
		}
	}
	return errs
}
