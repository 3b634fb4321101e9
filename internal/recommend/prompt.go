package recommend

import (
	"fmt"
	"strings"

	"tagrec-backend/internal/taxonomy"
)

// DefaultPromptBudget caps how many bytes of the taxonomy outline are sent
// with each request. Large workbooks get truncated rather than blowing up
// the context.
const DefaultPromptBudget = 8000

const systemPrompt = "You are a support tag recommendation engine. Respond with JSON only. No markdown. " +
	"Output must match this schema exactly: " +
	`{"tagId": string, "confidence": "low"|"medium"|"high", "reasoning": string, "references": [string]}. ` +
	"tagId must be one of the ids listed in the taxonomy, or an empty string when no tag applies. " +
	"references lists the taxonomy ids you considered while deciding."

const truncationMarker = "... (taxonomy truncated, deepest tags omitted)"

// Prompt is a compiled request ready to hand to a backend.
type Prompt struct {
	System    string
	User      string
	Truncated bool
}

// Compile renders the taxonomy outline and the scenario into backend
// prompts. The outline is produced in taxonomy walk order, so the same
// model and budget always compile to the same bytes.
func Compile(model *taxonomy.Model, scenario Scenario, extractedText string, budget int) Prompt {
	if budget <= 0 {
		budget = DefaultPromptBudget
	}
	outline, truncated := renderOutline(model, budget)

	var b strings.Builder
	b.WriteString("Available tags:\n")
	b.WriteString(outline)
	b.WriteString("\n\nScenario:\n")
	b.WriteString(strings.TrimSpace(scenario.Text))
	if extracted := strings.TrimSpace(extractedText); extracted != "" {
		b.WriteString("\n\nText extracted from attached documents:\n")
		b.WriteString(extracted)
	}

	return Prompt{
		System:    systemPrompt,
		User:      b.String(),
		Truncated: truncated,
	}
}

// Outline content is shed in stages when the budget runs out: leaf
// descriptions go first, then every description, then the deepest levels
// of the hierarchy. Ids and labels are the last thing to disappear
// because the validator needs the model to answer with ids it was shown.
type outlineOpts struct {
	leafDescriptions   bool
	branchDescriptions bool
	maxDepth           int
}

func renderOutline(model *taxonomy.Model, budget int) (string, bool) {
	full := outlineOpts{leafDescriptions: true, branchDescriptions: true, maxDepth: maxDepth(model)}
	if out := renderOutlineWith(model, full); len(out) <= budget {
		return out, false
	}

	stages := []outlineOpts{
		{leafDescriptions: false, branchDescriptions: true, maxDepth: full.maxDepth},
		{leafDescriptions: false, branchDescriptions: false, maxDepth: full.maxDepth},
	}
	for depth := full.maxDepth - 1; depth >= 0; depth-- {
		stages = append(stages, outlineOpts{maxDepth: depth})
	}

	for _, opts := range stages {
		out := renderOutlineWith(model, opts)
		if len(out)+len(truncationMarker)+1 <= budget {
			return out + "\n" + truncationMarker, true
		}
	}

	// Even the root labels alone exceed the budget. Cut at a line
	// boundary as a last resort.
	out := renderOutlineWith(model, outlineOpts{maxDepth: 0})
	cut := budget - len(truncationMarker) - 1
	if cut < 0 {
		cut = 0
	}
	if idx := strings.LastIndexByte(out[:min(cut, len(out))], '\n'); idx > 0 {
		out = out[:idx]
	} else {
		out = out[:min(cut, len(out))]
	}
	return out + "\n" + truncationMarker, true
}

func renderOutlineWith(model *taxonomy.Model, opts outlineOpts) string {
	var b strings.Builder
	lastSheet := ""

	model.Walk(func(n *taxonomy.Node) {
		if n.Depth > opts.maxDepth {
			return
		}
		if n.Sheet != lastSheet {
			fmt.Fprintf(&b, "# %s\n", n.Sheet)
			lastSheet = n.Sheet
		}
		b.WriteString(strings.Repeat("  ", n.Depth))
		fmt.Fprintf(&b, "- %s [%s]", n.Label, n.ID)
		withDesc := opts.branchDescriptions
		if model.IsLeaf(n.ID) {
			withDesc = opts.leafDescriptions
		}
		if desc := strings.TrimSpace(n.Description); withDesc && desc != "" {
			b.WriteString(": ")
			b.WriteString(strings.ReplaceAll(desc, "\n", " "))
		}
		b.WriteString("\n")
	})

	return strings.TrimRight(b.String(), "\n")
}

func maxDepth(model *taxonomy.Model) int {
	deepest := 0
	model.Walk(func(n *taxonomy.Node) {
		if n.Depth > deepest {
			deepest = n.Depth
		}
	})
	return deepest
}
