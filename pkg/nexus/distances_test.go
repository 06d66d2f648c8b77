package nexus

import (
	"errors"
	"math"
	"testing"
)

func mustDistances(t *testing.T, input string, cfg Config) *DistanceMatrix {
	t.Helper()
	doc := mustParse(t, input, cfg)
	dist := doc.Distances()
	if dist == nil {
		t.Fatal("no DISTANCES block")
	}
	m, err := dist.GetMatrix()
	if err != nil {
		t.Fatalf("GetMatrix() error = %v", err)
	}
	return m
}

func checkDistance(t *testing.T, m *DistanceMatrix, a, b string, want float64) {
	t.Helper()
	got, ok := m.Get(a, b)
	if !ok {
		t.Fatalf("Get(%s, %s) missing", a, b)
	}
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Get(%s, %s) = %v, want %v", a, b, got, want)
	}
}

func TestDistancesLowerDefault(t *testing.T) {
	// TRIANGLE=LOWER DIAGONAL is the default: row i carries i values.
	input := "#NEXUS\nBEGIN DISTANCES;\n\tDIMENSIONS NTAX=3;\n" +
		"\tMATRIX\n\t\tt1 0\n\t\tt2 1.5 0\n\t\tt3 2.5 3.5 0;\nEND;\n"
	m := mustDistances(t, input, DefaultConfig())
	checkDistance(t, m, "t1", "t1", 0)
	checkDistance(t, m, "t2", "t1", 1.5)
	// Mirrored into the upper triangle.
	checkDistance(t, m, "t1", "t2", 1.5)
	checkDistance(t, m, "t3", "t2", 3.5)
	checkDistance(t, m, "t2", "t3", 3.5)
}

func TestDistancesUpper(t *testing.T) {
	input := "#NEXUS\nBEGIN DISTANCES;\n\tDIMENSIONS NTAX=3;\n" +
		"\tFORMAT TRIANGLE=UPPER;\n" +
		"\tMATRIX\n\t\tt1 0 1.0 2.0\n\t\tt2 0 3.0\n\t\tt3 0;\nEND;\n"
	m := mustDistances(t, input, DefaultConfig())
	checkDistance(t, m, "t1", "t3", 2.0)
	checkDistance(t, m, "t3", "t1", 2.0)
	checkDistance(t, m, "t2", "t3", 3.0)
	checkDistance(t, m, "t2", "t2", 0)
}

func TestDistancesScientificNotation(t *testing.T) {
	// A signed exponent splits the value into three items at the lexical
	// level; the decoder rejoins it. A negated value keeps its own leading
	// minus on top of that.
	input := "#NEXUS\nBEGIN DISTANCES;\n\tDIMENSIONS NTAX=3;\n" +
		"\tMATRIX\n\t\tt1 0\n\t\tt2 1e-5 0\n\t\tt3 -2.5E+2 1E6 0;\nEND;\n"
	m := mustDistances(t, input, DefaultConfig())
	checkDistance(t, m, "t2", "t1", 1e-5)
	checkDistance(t, m, "t3", "t1", -250)
	checkDistance(t, m, "t3", "t2", 1e6)
}

func TestDistancesNoDiagonal(t *testing.T) {
	// Without the diagonal the first LOWER row carries no values; the
	// diagonal reads as zero.
	input := "#NEXUS\nBEGIN DISTANCES;\n\tDIMENSIONS NTAX=3;\n" +
		"\tFORMAT TRIANGLE=LOWER NODIAGONAL;\n" +
		"\tMATRIX\n\t\tt1\n\t\tt2 1.0\n\t\tt3 2.0 3.0;\nEND;\n"
	m := mustDistances(t, input, DefaultConfig())
	checkDistance(t, m, "t1", "t1", 0)
	checkDistance(t, m, "t3", "t3", 0)
	checkDistance(t, m, "t2", "t1", 1.0)
	checkDistance(t, m, "t1", "t3", 2.0)
}

func TestDistancesBoth(t *testing.T) {
	input := "#NEXUS\nBEGIN DISTANCES;\n\tDIMENSIONS NTAX=2;\n" +
		"\tFORMAT TRIANGLE=BOTH;\n" +
		"\tMATRIX\n\t\tt1 0 1.0\n\t\tt2 1.0 0;\nEND;\n"
	m := mustDistances(t, input, DefaultConfig())
	checkDistance(t, m, "t1", "t2", 1.0)
	checkDistance(t, m, "t2", "t1", 1.0)
}

func TestDistancesBothDisagreement(t *testing.T) {
	input := "#NEXUS\nBEGIN DISTANCES;\n\tDIMENSIONS NTAX=2;\n" +
		"\tFORMAT TRIANGLE=BOTH;\n" +
		"\tMATRIX\n\t\tt1 0 1.0\n\t\tt2 9.0 0;\nEND;\n"
	cfg := DefaultConfig()
	cfg.Strict = true
	doc := mustParse(t, input, cfg)
	var derr *DataError
	if _, err := doc.Distances().GetMatrix(); !errors.As(err, &derr) {
		t.Errorf("strict GetMatrix() error = %v, want *DataError", err)
	}

	var warnings []string
	cfg = DefaultConfig()
	cfg.Warn = func(msg string) { warnings = append(warnings, msg) }
	doc = mustParse(t, input, cfg)
	if _, err := doc.Distances().GetMatrix(); err != nil {
		t.Fatalf("lenient GetMatrix() error = %v", err)
	}
	if len(warnings) == 0 {
		t.Error("lenient decode produced no warning")
	}
}

func TestDistancesMissingValues(t *testing.T) {
	input := "#NEXUS\nBEGIN DISTANCES;\n\tDIMENSIONS NTAX=2;\n" +
		"\tMATRIX\n\t\tt1 0\n\t\tt2 ? 0;\nEND;\n"
	m := mustDistances(t, input, DefaultConfig())
	if _, ok := m.Get("t2", "t1"); ok {
		t.Error("missing distance reported as present")
	}
	checkDistance(t, m, "t2", "t2", 0)
}

func TestDistancesTaxaFromDocument(t *testing.T) {
	// With a TAXA block the rows must follow its order.
	input := "#NEXUS\nBEGIN TAXA;\n\tTAXLABELS a b;\nEND;\n" +
		"BEGIN DISTANCES;\n\tMATRIX\n\t\ta 0\n\t\tb 1.0 0;\nEND;\n"
	m := mustDistances(t, input, DefaultConfig())
	checkDistance(t, m, "a", "b", 1.0)
}

func TestDistancesInterleaved(t *testing.T) {
	input := "#NEXUS\nBEGIN TAXA;\n\tTAXLABELS t1 t2 t3;\nEND;\n" +
		"BEGIN DISTANCES;\n\tFORMAT TRIANGLE=BOTH INTERLEAVE;\n" +
		"\tMATRIX\n\t\tt1 0 1.0\n\t\tt2 1.0 0\n\t\tt3 2.0 3.0\n\n\t\tt1 2.0\n\t\tt2 3.0\n\t\tt3 0;\nEND;\n"
	m := mustDistances(t, input, DefaultConfig())
	checkDistance(t, m, "t1", "t3", 2.0)
	checkDistance(t, m, "t2", "t3", 3.0)
	checkDistance(t, m, "t3", "t3", 0)
}

func TestDistancesRoundTrip(t *testing.T) {
	input := "#NEXUS\nBEGIN DISTANCES;\n\tDIMENSIONS NTAX=3;\n" +
		"\tMATRIX\n\t\tt1 0\n\t\tt2 1.5 0\n\t\tt3 2.25 3.125 0;\nEND;\n"
	m := mustDistances(t, input, DefaultConfig())

	doc := NewDocument(DefaultConfig())
	if err := doc.AppendBlock(DistancesBlockSpec(m)); err != nil {
		t.Fatalf("AppendBlock() error = %v", err)
	}
	again, err := Parse(doc.Render(), DefaultConfig())
	if err != nil {
		t.Fatalf("Parse(rendered) error = %v:\n%s", err, doc.Render())
	}
	m2, err := again.Distances().GetMatrix()
	if err != nil {
		t.Fatalf("GetMatrix() error = %v:\n%s", err, doc.Render())
	}
	for _, a := range m.Taxa() {
		for _, b := range m.Taxa() {
			want, _ := m.Get(a, b)
			got, ok := m2.Get(a, b)
			if !ok || got != want {
				t.Errorf("round trip (%s, %s) = %v, want %v", a, b, got, want)
			}
		}
	}
}
