package orchestrator

import (
	"fmt"
	"math"
	"strings"

	"github.com/loomkit/loom/internal/artifact"
	"github.com/loomkit/loom/internal/knowledge"
)

// systemInstructions is the fixed preamble of every generation prompt. The
// generator is stateless: everything it may rely on is in the prompt.
const systemInstructions = `You are an AI website builder.
You are stateless.
PROJECT STATE is authoritative.
GLOBAL REFERENCES are advisory.
Modify only explicitly allowed files.
Output full updated files only.
`

// outputFormat tells the generator the block contract the parser expects.
const outputFormat = "FILE: <file_path>\n<full file content>\n"

// costPerThousandTokens is the billing estimate applied to prompt sizing.
const costPerThousandTokens = 0.001

// Section is one titled part of a generation prompt, sized independently
// so previews can show where the tokens go.
type Section struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Tokens  int    `json:"tokens"`
}

// Prompt is a fully assembled generation prompt with its size estimates.
type Prompt struct {
	Sections     []Section `json:"sections"`
	Text         string    `json:"text"`
	Tokens       int       `json:"total_tokens"`
	Cost         float64   `json:"estimated_cost"`
	ContextPaths []string  `json:"context_paths"`
}

// tokenCount approximates tokens at four characters each. Good enough for
// previews and budgeting; never used for hard limits.
func tokenCount(text string) int {
	n := len(text) / 4
	if n < 1 {
		return 1
	}
	return n
}

func estimateCost(tokens int) float64 {
	cost := float64(tokens) / 1000 * costPerThousandTokens
	return math.Round(cost*1e6) / 1e6
}

// buildPrompt assembles the six prompt sections in their fixed order:
// system instructions, authoritative project state, advisory references,
// allowed files, the user request, and the output contract.
func buildPrompt(instruction string, context []artifact.Artifact, refs []knowledge.Result, allowedPaths []string) Prompt {
	var state strings.Builder
	paths := make([]string, 0, len(context))
	for _, a := range context {
		fmt.Fprintf(&state, "--- %s (%s, v%d, %s) ---\n", a.Path, a.Type, a.Version, a.Ownership)
		state.WriteString(a.Content)
		state.WriteString("\n")
		paths = append(paths, a.Path)
	}
	stateText := state.String()
	if stateText == "" {
		stateText = "(No project artifacts selected.)"
	}

	refText := knowledge.Format(refs)
	if refText == "" {
		refText = "(No global references retrieved.)"
	}

	var allowed strings.Builder
	for _, p := range allowedPaths {
		fmt.Fprintf(&allowed, "- %s\n", p)
	}

	sections := []Section{
		section("System Instructions", systemInstructions),
		section("Project State (Authoritative)", stateText),
		section("Global References (Advisory)", refText),
		section("Allowed Files", allowed.String()),
		section("User Request", instruction),
		section("Output Format", outputFormat),
	}

	parts := make([]string, 0, len(sections))
	total := 0
	for _, s := range sections {
		parts = append(parts, s.Title+":\n"+s.Content)
		total += s.Tokens
	}

	return Prompt{
		Sections:     sections,
		Text:         strings.Join(parts, "\n\n"),
		Tokens:       total,
		Cost:         estimateCost(total),
		ContextPaths: paths,
	}
}

func section(title, content string) Section {
	return Section{Title: title, Content: content, Tokens: tokenCount(content)}
}
