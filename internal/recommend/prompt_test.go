package recommend

import (
	"strings"
	"testing"

	"tagrec-backend/internal/taxonomy"
)

func TestCompileIncludesTaxonomyAndScenario(t *testing.T) {
	model := testModel(t)
	prompt := Compile(model, Scenario{Text: "I was charged twice"}, "", 0)

	if prompt.Truncated {
		t.Fatalf("small taxonomy should not be truncated")
	}
	if !strings.Contains(prompt.User, "[billing/refund/partial]") {
		t.Fatalf("outline missing node id:\n%s", prompt.User)
	}
	if !strings.Contains(prompt.User, "Customer requests money back") {
		t.Fatalf("outline missing description:\n%s", prompt.User)
	}
	if !strings.Contains(prompt.User, "I was charged twice") {
		t.Fatalf("scenario missing:\n%s", prompt.User)
	}
	if !strings.Contains(prompt.System, "JSON only") {
		t.Fatalf("system prompt missing schema instruction:\n%s", prompt.System)
	}
}

func TestCompileAppendsExtractedText(t *testing.T) {
	model := testModel(t)
	prompt := Compile(model, Scenario{Text: "see attached invoice"}, "Invoice #42, total $99", 0)

	if !strings.Contains(prompt.User, "Invoice #42, total $99") {
		t.Fatalf("extracted text missing:\n%s", prompt.User)
	}
}

func TestCompileTruncatesDeterministically(t *testing.T) {
	rows := make([][]string, 0, 200)
	for i := 0; i < 200; i++ {
		rows = append(rows, []string{"Topic " + strings.Repeat("x", i%7+1), "Subtopic " + strings.Repeat("y", i%5+1), "A long description that pads out the outline for this particular tag"})
	}
	model, err := taxonomy.Build(taxonomy.Extract{Sheets: []taxonomy.Sheet{{Name: "Big", Rows: rows}}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	first := Compile(model, Scenario{Text: "anything"}, "", 2000)
	second := Compile(model, Scenario{Text: "anything"}, "", 2000)

	if !first.Truncated {
		t.Fatalf("expected truncation with tight budget")
	}
	if first.User != second.User {
		t.Fatalf("truncation is not deterministic")
	}
	if !strings.Contains(first.User, "taxonomy truncated") {
		t.Fatalf("truncation marker missing:\n%s", first.User)
	}
}
