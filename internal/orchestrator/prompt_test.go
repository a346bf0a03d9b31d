package orchestrator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomkit/loom/internal/artifact"
	"github.com/loomkit/loom/internal/knowledge"
)

func TestTokenCount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		text string
		want int
	}{
		{name: "empty counts as one", text: "", want: 1},
		{name: "short counts as one", text: "abc", want: 1},
		{name: "four chars per token", text: strings.Repeat("x", 40), want: 10},
		{name: "remainder truncates", text: strings.Repeat("x", 43), want: 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tokenCount(tt.text))
		})
	}
}

func TestEstimateCost(t *testing.T) {
	t.Parallel()

	assert.InDelta(t, 0.001, estimateCost(1000), 1e-9)
	assert.InDelta(t, 0.0025, estimateCost(2500), 1e-9)
	// Rounded to six decimal places.
	assert.InDelta(t, 0.000001, estimateCost(1), 1e-9)
}

func TestBuildPrompt_SectionOrderAndTotals(t *testing.T) {
	t.Parallel()

	arts := []artifact.Artifact{{
		Path:      "src/App.tsx",
		Type:      artifact.TypePage,
		Version:   2,
		Ownership: artifact.OwnershipUser,
		Content:   "export default function App() {}",
	}}
	refs := []knowledge.Result{{Entry: knowledge.Entry{
		ID:      "kb-1",
		Title:   "Styling",
		Content: "Prefer utility classes.",
	}}}

	p := buildPrompt("restyle the app", arts, refs, []string{"src/App.tsx"})

	require.Len(t, p.Sections, 6)
	assert.Equal(t, "System Instructions", p.Sections[0].Title)
	assert.Equal(t, "Project State (Authoritative)", p.Sections[1].Title)
	assert.Equal(t, "Global References (Advisory)", p.Sections[2].Title)
	assert.Equal(t, "Allowed Files", p.Sections[3].Title)
	assert.Equal(t, "User Request", p.Sections[4].Title)
	assert.Equal(t, "Output Format", p.Sections[5].Title)

	assert.Contains(t, p.Sections[1].Content, "--- src/App.tsx (page, v2, user_modified) ---")
	assert.Contains(t, p.Sections[2].Content, "### Styling")
	assert.Equal(t, "- src/App.tsx\n", p.Sections[3].Content)
	assert.Equal(t, "restyle the app", p.Sections[4].Content)

	total := 0
	for _, sec := range p.Sections {
		total += sec.Tokens
	}
	assert.Equal(t, total, p.Tokens)
	assert.InDelta(t, estimateCost(total), p.Cost, 1e-9)
	assert.Equal(t, []string{"src/App.tsx"}, p.ContextPaths)

	// The rendered text is the sections joined in order, each introduced
	// by its title.
	assert.True(t, strings.HasPrefix(p.Text, "System Instructions:\n"))
	assert.Contains(t, p.Text, "\n\nUser Request:\nrestyle the app\n\n")
}

func TestBuildPrompt_EmptyPlaceholders(t *testing.T) {
	t.Parallel()

	p := buildPrompt("start a site", nil, nil, []string{"*"})

	assert.Equal(t, "(No project artifacts selected.)", p.Sections[1].Content)
	assert.Equal(t, "(No global references retrieved.)", p.Sections[2].Content)
	assert.Equal(t, "- *\n", p.Sections[3].Content)
	assert.Empty(t, p.ContextPaths)
}
