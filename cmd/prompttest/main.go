package main

// Try a taxonomy extract and scenario against the recommendation engine:
//   go run ./cmd/prompttest -extract taxonomy.json -scenario "I was charged twice"
// Pass -dry to print the compiled prompt without calling the backend.

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"tagrec-backend/internal/llm"
	"tagrec-backend/internal/llm/gemini"
	"tagrec-backend/internal/recommend"
	"tagrec-backend/internal/shared/config"
	"tagrec-backend/internal/taxonomy"
)

func main() {
	cfg := config.Load()

	extractPath := flag.String("extract", "", "Path to taxonomy extract JSON ({\"sheets\":[{\"name\",\"rows\"}]})")
	scenarioText := flag.String("scenario", "", "Scenario text")
	scenarioPath := flag.String("scenario-file", "", "Path to a file with the scenario text")
	model := flag.String("model", cfg.GeminiModel, "Gemini model")
	budget := flag.Int("budget", cfg.PromptBudget, "Prompt byte budget")
	dry := flag.Bool("dry", false, "Print the compiled prompt instead of calling the backend")
	outPath := flag.String("out", "", "Path to write raw JSON output (optional)")
	flag.Parse()

	if strings.TrimSpace(*extractPath) == "" {
		exitErr("extract path is required")
	}

	extractBytes, err := os.ReadFile(*extractPath)
	if err != nil {
		exitErr(fmt.Sprintf("read extract: %v", err))
	}
	var extract taxonomy.Extract
	if err := json.Unmarshal(extractBytes, &extract); err != nil {
		exitErr(fmt.Sprintf("parse extract: %v", err))
	}

	taxModel, err := taxonomy.Build(extract)
	if err != nil {
		exitErr(fmt.Sprintf("build taxonomy: %v", err))
	}

	scenario := strings.TrimSpace(*scenarioText)
	if scenario == "" && strings.TrimSpace(*scenarioPath) != "" {
		scenarioBytes, err := os.ReadFile(*scenarioPath)
		if err != nil {
			exitErr(fmt.Sprintf("read scenario: %v", err))
		}
		scenario = strings.TrimSpace(string(scenarioBytes))
	}
	if scenario == "" {
		exitErr("scenario text is required")
	}

	prompt := recommend.Compile(taxModel, recommend.Scenario{Text: scenario}, "", *budget)

	if *dry {
		fmt.Printf("--- system ---\n%s\n--- user (truncated=%v) ---\n%s\n", prompt.System, prompt.Truncated, prompt.User)
		return
	}

	client, err := gemini.NewClient(cfg.GeminiAPIKey, *model, cfg.GeminiTimeout)
	if err != nil {
		exitErr(err.Error())
	}
	invoker := recommend.NewInvoker([]llm.Client{client}, cfg.LLMMaxAttempts)

	raw, usedModel, err := invoker.Invoke(context.Background(), llm.RecommendInput{
		SystemPrompt: prompt.System,
		UserPrompt:   prompt.User,
	})
	if err != nil {
		exitErr(fmt.Sprintf("backend: %v", err))
	}

	rec, err := recommend.Validate(taxModel, raw)
	if err != nil {
		exitErr(fmt.Sprintf("validate: %v", err))
	}
	rec.Model = usedModel

	pretty, err := prettyJSON(raw)
	if err != nil {
		exitErr(fmt.Sprintf("format json: %v", err))
	}
	if *outPath != "" {
		if err := os.WriteFile(*outPath, pretty, 0o644); err != nil {
			exitErr(fmt.Sprintf("write output: %v", err))
		}
	}

	fmt.Printf("tag: %s (confidence %s, model %s)\n", displayTag(rec), rec.Confidence, rec.Model)
	if rec.Reasoning != "" {
		fmt.Printf("reasoning: %s\n", rec.Reasoning)
	}
	if _, err := os.Stdout.Write(pretty); err != nil {
		exitErr(fmt.Sprintf("write stdout: %v", err))
	}
	if len(pretty) == 0 || pretty[len(pretty)-1] != '\n' {
		_, _ = os.Stdout.Write([]byte("\n"))
	}
}

func displayTag(rec recommend.Recommendation) string {
	if rec.NoMatch() {
		return "(no match)"
	}
	return rec.TagID
}

func prettyJSON(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func exitErr(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
