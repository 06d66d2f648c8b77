package tools

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dlce-eva/commonnexus/pkg/nexus"
)

func parse(t *testing.T, input string) *nexus.Document {
	t.Helper()
	doc, err := nexus.Parse(input, nexus.DefaultConfig())
	require.NoError(t, err)
	return doc
}

func TestNormalise(t *testing.T) {
	// Interleaved, unlabeled, equate-laden input.
	input := "#NEXUS\nBEGIN TAXA;\n\tTAXLABELS t1 t2;\nEND;\n" +
		"BEGIN CHARACTERS;\n\tDIMENSIONS NCHAR=4;\n" +
		"\tFORMAT DATATYPE=DNA INTERLEAVE NOLABELS;\n" +
		"\tMATRIX\n\t\tAC\n\t\tGT\n\t\tRT\n\t\tAA;\nEND;\n" +
		"BEGIN TREES;\n\tTRANSLATE 1 t1, 2 t2;\n\tTREE best = (1,2);\nEND;\n"
	doc := parse(t, input)

	norm, err := Normalise(doc)
	require.NoError(t, err)
	rendered := norm.Render()

	// The normalised document parses back and decodes to the same states.
	again := parse(t, rendered)
	m, err := again.Characters().GetMatrix()
	require.NoError(t, err, rendered)
	got, ok := m.Get("t1", "3")
	require.True(t, ok)
	assert.True(t, got.Equal(nexus.Uncertain("A", "G")), "t1/3 = %v", got)

	// Trees come out translated, without a TRANSLATE table.
	trees, err := again.Trees().Trees()
	require.NoError(t, err)
	require.Len(t, trees, 1)
	assert.Contains(t, trees[0].Newick(), "t2")
	tr, err := again.Trees().Translate()
	require.NoError(t, err)
	assert.Nil(t, tr)

	// A TAXA block leads the document.
	blocks := again.Blocks()
	require.NotEmpty(t, blocks)
	assert.Equal(t, "TAXA", blocks[0].Name())

	// The input document is untouched.
	assert.Equal(t, input, doc.Render())
}

func TestNormaliseDistances(t *testing.T) {
	input := "#NEXUS\nBEGIN DISTANCES;\n\tDIMENSIONS NTAX=3;\n" +
		"\tFORMAT TRIANGLE=UPPER NODIAGONAL;\n" +
		"\tMATRIX\n\t\tt1 1.0 2.0\n\t\tt2 3.0\n\t\tt3;\nEND;\n"
	norm, err := Normalise(parse(t, input))
	require.NoError(t, err)

	again := parse(t, norm.Render())
	m, err := again.Distances().GetMatrix()
	require.NoError(t, err, norm.Render())
	d, ok := m.Get("t3", "t1")
	require.True(t, ok)
	assert.Equal(t, 2.0, d)
	d, ok = m.Get("t2", "t2")
	require.True(t, ok)
	assert.Equal(t, 0.0, d)
}

func TestCombine(t *testing.T) {
	a := parse(t, "#NEXUS\nBEGIN CHARACTERS;\n\tDIMENSIONS NCHAR=2;\n"+
		"\tMATRIX\n\t\tt1 01\n\t\tt2 10;\nEND;\n")
	b := parse(t, "#NEXUS\nBEGIN CHARACTERS;\n\tDIMENSIONS NCHAR=1;\n"+
		"\tMATRIX\n\t\tt2 1\n\t\tt3 0;\nEND;\n")

	combined, err := Combine(a, b)
	require.NoError(t, err)

	again := parse(t, combined.Render())
	m, err := again.Characters().GetMatrix()
	require.NoError(t, err, combined.Render())

	assert.Equal(t, []string{"t1", "t2", "t3"}, m.Taxa())
	assert.Equal(t, []string{"1.1", "1.2", "2.1"}, m.Characters())

	got, ok := m.Get("t2", "2.1")
	require.True(t, ok)
	assert.True(t, got.Equal(nexus.Atomic("1")))

	// t3 never appeared in the first matrix: its cells there are missing.
	got, ok = m.Get("t3", "1.1")
	require.True(t, ok)
	assert.True(t, got.IsMissing())
}

func TestCombineDatatypeMismatch(t *testing.T) {
	a := parse(t, "#NEXUS\nBEGIN CHARACTERS;\n\tDIMENSIONS NCHAR=1;\n"+
		"\tFORMAT DATATYPE=DNA;\n\tMATRIX t1 A;\nEND;\n")
	b := parse(t, "#NEXUS\nBEGIN CHARACTERS;\n\tDIMENSIONS NCHAR=1;\n"+
		"\tMATRIX t1 0;\nEND;\n")
	_, err := Combine(a, b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "combine")
}

func TestBinarise(t *testing.T) {
	input := "#NEXUS\nBEGIN CHARACTERS;\n\tDIMENSIONS NCHAR=2;\n" +
		"\tFORMAT SYMBOLS=\"012\";\n" +
		"\tMATRIX\n\t\tt1 0(12)\n\t\tt2 2?;\nEND;\n"
	bin, err := Binarise(parse(t, input))
	require.NoError(t, err)

	again := parse(t, bin.Render())
	m, err := again.Characters().GetMatrix()
	require.NoError(t, err, bin.Render())

	// Character 1 observed states 0 and 2; character 2 observed 1 and 2.
	assert.Equal(t, []string{"1_0", "1_2", "2_1", "2_2"}, m.Characters())

	check := func(taxon, char, want string) {
		t.Helper()
		got, ok := m.Get(taxon, char)
		require.True(t, ok, "%s/%s", taxon, char)
		assert.True(t, got.Equal(nexus.Atomic(want)), "%s/%s = %v, want %s", taxon, char, got, want)
	}
	check("t1", "1_0", "1")
	check("t1", "1_2", "0")
	check("t2", "1_2", "1")
	// Polymorphic (12) scores 1 for both derived characters.
	check("t1", "2_1", "1")
	check("t1", "2_2", "1")
	// Missing stays missing.
	got, ok := m.Get("t2", "2_1")
	require.True(t, ok)
	assert.True(t, got.IsMissing())
}

func TestMultistatise(t *testing.T) {
	input := "#NEXUS\nBEGIN CHARACTERS;\n\tDIMENSIONS NCHAR=3;\n" +
		"\tMATRIX\n\t\tt1 110\n\t\tt2 010\n\t\tt3 000;\nEND;\n"
	multi, err := Multistatise(parse(t, input))
	require.NoError(t, err)

	again := parse(t, multi.Render())
	m, err := again.Characters().GetMatrix()
	require.NoError(t, err, multi.Render())

	require.Equal(t, []string{"1"}, m.Characters())
	got, ok := m.Get("t1", "1")
	require.True(t, ok)
	assert.True(t, got.Equal(nexus.Polymorphic("0", "1")), "t1 = %v", got)
	got, ok = m.Get("t2", "1")
	require.True(t, ok)
	assert.True(t, got.Equal(nexus.Atomic("1")), "t2 = %v", got)
	// A taxon with no presences stays missing.
	got, ok = m.Get("t3", "1")
	require.True(t, ok)
	assert.True(t, got.IsMissing(), "t3 = %v", got)
}

func TestMultistatiseRejectsMolecular(t *testing.T) {
	input := "#NEXUS\nBEGIN CHARACTERS;\n\tDIMENSIONS NCHAR=1;\n" +
		"\tFORMAT DATATYPE=DNA;\n\tMATRIX t1 A;\nEND;\n"
	_, err := Multistatise(parse(t, input))
	require.Error(t, err)
	assert.Contains(t, strings.ToLower(err.Error()), "standard")
}

func TestBinariseRejectsMolecular(t *testing.T) {
	input := "#NEXUS\nBEGIN CHARACTERS;\n\tDIMENSIONS NCHAR=1;\n" +
		"\tFORMAT DATATYPE=DNA;\n\tMATRIX t1 A;\nEND;\n"
	_, err := Binarise(parse(t, input))
	require.Error(t, err)
	assert.Contains(t, strings.ToLower(err.Error()), "standard")
}
