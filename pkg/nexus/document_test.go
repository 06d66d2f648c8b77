package nexus

import (
	"errors"
	"strings"
	"testing"
)

const fixtureBasic = `#NEXUS
BEGIN TAXA;
	DIMENSIONS NTAX=3;
	TAXLABELS t1 t2 'John''s taxon';
END;
BEGIN CHARACTERS;
	DIMENSIONS NCHAR=3;
	FORMAT DATATYPE=STANDARD;
	MATRIX
		t1 100
		t2 010
		'John''s taxon' 001;
END;
`

func TestParseRenderRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"basic", fixtureBasic},
		{"lowercase marker", "#nexus\nbegin taxa;\ntaxlabels a b;\nend;\n"},
		{"leading whitespace", "\n\n  #NEXUS\nBEGIN TAXA;\nEND;\n"},
		{"odd spacing", "#NEXUS\r\nBEGIN  TAXA ;\n\tTAXLABELS\ta  b ;\nEND ;"},
		{"comments everywhere", "#NEXUS\n[header [nested [deep]] comment]\nBEGIN TAXA;\n\tTAXLABELS a[?] b;\nEND;\n"},
		{"quoted words", "#NEXUS\nBEGIN TAXA;\n\tTAXLABELS 'John''s' 'two words';\nEND;\n"},
		{"trailing garbage", "#NEXUS\nBEGIN TAXA;\nEND;\nleftover without semicolon"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse(tt.input, DefaultConfig())
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if got := doc.Render(); got != tt.input {
				t.Errorf("Render() = %q, want %q", got, tt.input)
			}
		})
	}
}

func TestParseRenderCustomQuote(t *testing.T) {
	input := "#NEXUS\nBEGIN TAXA;\n\tTAXLABELS \"two words\" b;\nEND;\n"
	cfg := DefaultConfig()
	cfg.Quote = '"'
	doc, err := Parse(input, cfg)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if got := doc.Render(); got != input {
		t.Errorf("Render() = %q, want %q", got, input)
	}
	labels, err := doc.Taxa().Labels()
	if err != nil {
		t.Fatalf("Labels() error = %v", err)
	}
	if len(labels) != 2 || labels[0] != "two words" {
		t.Errorf("Labels() = %v", labels)
	}
}

func TestParseNoMarker(t *testing.T) {
	for _, input := range []string{"", "BEGIN TAXA;\nEND;", "NEXUS\n", "[#NEXUS]\n"} {
		_, err := Parse(input, DefaultConfig())
		if !errors.Is(err, ErrNoMarker) {
			t.Errorf("Parse(%q) error = %v, want ErrNoMarker", input, err)
		}
		var serr *StructuralError
		if !errors.As(err, &serr) {
			t.Errorf("Parse(%q) error type = %T, want *StructuralError", input, err)
		}
	}
}

func TestParseUnmatchedBlocks(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"begin without end", "#NEXUS\nBEGIN TAXA;\nTAXLABELS a;\n", ErrUnmatchedBegin},
		{"end without begin", "#NEXUS\nEND;\n", ErrUnmatchedEnd},
		{"nested begin", "#NEXUS\nBEGIN TAXA;\nBEGIN TREES;\nEND;\n", ErrUnmatchedBegin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Strict = true
			if _, err := Parse(tt.input, cfg); !errors.Is(err, tt.want) {
				t.Errorf("strict Parse() error = %v, want %v", err, tt.want)
			}

			var warnings []string
			cfg = DefaultConfig()
			cfg.Warn = func(msg string) { warnings = append(warnings, msg) }
			doc, err := Parse(tt.input, cfg)
			if err != nil {
				t.Fatalf("lenient Parse() error = %v", err)
			}
			if len(warnings) == 0 {
				t.Error("lenient Parse() produced no warning")
			}
			if got := doc.Render(); got != tt.input {
				t.Errorf("lenient Render() = %q, want %q", got, tt.input)
			}
		})
	}
}

func TestBlocks(t *testing.T) {
	doc, err := Parse(fixtureBasic, DefaultConfig())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	blocks := doc.Blocks()
	if len(blocks) != 2 {
		t.Fatalf("Blocks() returned %d blocks, want 2", len(blocks))
	}
	if blocks[0].Name() != "TAXA" || blocks[1].Name() != "CHARACTERS" {
		t.Errorf("block names = %s, %s", blocks[0].Name(), blocks[1].Name())
	}
	if doc.BlockNamed("taxa") == nil {
		t.Error("BlockNamed() is not case-insensitive")
	}
	if doc.BlockNamed("TREES") != nil {
		t.Error("BlockNamed(TREES) = non-nil for absent block")
	}
	if doc.Characters() == nil {
		t.Error("Characters() = nil")
	}
	if doc.Taxa() == nil {
		t.Error("Taxa() = nil")
	}
}

func TestDataBlockAsCharacters(t *testing.T) {
	input := "#NEXUS\nBEGIN DATA;\n\tDIMENSIONS NCHAR=2;\n\tMATRIX t1 01;\nEND;\n"
	doc, err := Parse(input, DefaultConfig())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if doc.Characters() == nil {
		t.Fatal("Characters() = nil for DATA block")
	}
}

func TestComments(t *testing.T) {
	input := "#NEXUS\n[outer [inner] rest]\nBEGIN TAXA;\n\tTAXLABELS a[note] b;\nEND;\n"
	doc, err := Parse(input, DefaultConfig())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	got := doc.Comments()
	want := []string{"outer [inner] rest", "note"}
	if len(got) != len(want) {
		t.Fatalf("Comments() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Comments()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestAppendBlock(t *testing.T) {
	doc := NewDocument(DefaultConfig())
	err := doc.AppendBlock(BlockSpec{
		Name: "TAXA",
		Commands: []CommandSpec{
			{Name: "DIMENSIONS", Payload: "NTAX=2"},
			{Name: "TAXLABELS", Payload: "a b"},
		},
	})
	if err != nil {
		t.Fatalf("AppendBlock() error = %v", err)
	}
	rendered := doc.Render()
	reparsed, err := Parse(rendered, DefaultConfig())
	if err != nil {
		t.Fatalf("Parse(rendered) error = %v: %q", err, rendered)
	}
	taxa := reparsed.Taxa()
	if taxa == nil {
		t.Fatal("appended TAXA block not found after reparse")
	}
	labels, err := taxa.Labels()
	if err != nil || len(labels) != 2 {
		t.Errorf("Labels() = %v, %v", labels, err)
	}
}

func TestReplaceBlockKeepsDelimiters(t *testing.T) {
	input := "#NEXUS\nBegin  Taxa ;\n\tTAXLABELS a b;\nEnd ;\n"
	doc, err := Parse(input, DefaultConfig())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	block := doc.BlockNamed("TAXA")
	if err := doc.ReplaceBlock(block, []CommandSpec{{Name: "TAXLABELS", Payload: "x y z"}}); err != nil {
		t.Fatalf("ReplaceBlock() error = %v", err)
	}
	rendered := doc.Render()
	// The oddly spaced BEGIN and END commands survive verbatim.
	if !strings.Contains(rendered, "Begin  Taxa ;") || !strings.Contains(rendered, "End ;") {
		t.Errorf("delimiters not preserved: %q", rendered)
	}
	if !strings.Contains(rendered, "x y z") {
		t.Errorf("new body missing: %q", rendered)
	}
	if strings.Contains(rendered, "a b") {
		t.Errorf("old body still present: %q", rendered)
	}
}

func TestRemoveBlock(t *testing.T) {
	doc, err := Parse(fixtureBasic, DefaultConfig())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if err := doc.RemoveBlock(doc.BlockNamed("TAXA")); err != nil {
		t.Fatalf("RemoveBlock() error = %v", err)
	}
	if doc.BlockNamed("TAXA") != nil {
		t.Error("TAXA block still present after removal")
	}
	if doc.BlockNamed("CHARACTERS") == nil {
		t.Error("CHARACTERS block lost by removal")
	}
}

func TestStaleBlockMutation(t *testing.T) {
	doc, err := Parse(fixtureBasic, DefaultConfig())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	block := doc.BlockNamed("TAXA")
	if err := doc.AppendBlock(BlockSpec{Name: "TREES"}); err != nil {
		t.Fatalf("AppendBlock() error = %v", err)
	}
	// The block value predates the mutation and must be re-fetched.
	if err := doc.RemoveBlock(block); !errors.Is(err, ErrBlockNotFound) {
		t.Errorf("RemoveBlock(stale) error = %v, want ErrBlockNotFound", err)
	}
	if err := doc.RemoveBlock(doc.BlockNamed("TAXA")); err != nil {
		t.Errorf("RemoveBlock(fresh) error = %v", err)
	}
}

func TestAppendCommand(t *testing.T) {
	doc, err := Parse(fixtureBasic, DefaultConfig())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	block := doc.BlockNamed("TAXA")
	if err := doc.AppendCommand(block, "TITLE", "my_taxa"); err != nil {
		t.Fatalf("AppendCommand() error = %v", err)
	}
	if got := doc.BlockNamed("TAXA").Title(); got != "MY_TAXA" {
		t.Errorf("Title() = %q, want MY_TAXA", got)
	}
}

func TestValidateDuplicateSingleton(t *testing.T) {
	input := "#NEXUS\nBEGIN TAXA;\n\tTAXLABELS a;\n\tTAXLABELS b;\nEND;\n"
	cfg := DefaultConfig()
	cfg.Strict = true
	doc, err := Parse(input, cfg)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if err := doc.Validate(); !errors.Is(err, ErrDuplicateCommand) {
		t.Errorf("strict Validate() error = %v, want ErrDuplicateCommand", err)
	}

	var warnings []string
	cfg = DefaultConfig()
	cfg.Warn = func(msg string) { warnings = append(warnings, msg) }
	doc, err = Parse(input, cfg)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if err := doc.Validate(); err != nil {
		t.Errorf("lenient Validate() error = %v", err)
	}
	if len(warnings) != 1 {
		t.Errorf("lenient Validate() warnings = %v, want one", warnings)
	}
}

func TestMesquiteTitleLink(t *testing.T) {
	input := "#NEXUS\nBEGIN TAXA;\n\tTITLE primates;\n\tTAXLABELS a b;\nEND;\n" +
		"BEGIN CHARACTERS;\n\tTITLE morph;\n\tLINK TAXA = primates;\n\tDIMENSIONS NCHAR=1;\n\tMATRIX a 0 b 1;\nEND;\n"
	doc, err := Parse(input, DefaultConfig())
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	chars := doc.Characters()
	if got := chars.Title(); got != "MORPH" {
		t.Errorf("Title() = %q", got)
	}
	links := chars.Links()
	if links["TAXA"] != "PRIMATES" {
		t.Errorf("Links() = %v", links)
	}
}
