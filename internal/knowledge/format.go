package knowledge

import "strings"

const (
	// maxEntryRunes caps each entry's contribution to the advisory block.
	maxEntryRunes = 300

	// maxBlockRunes caps the whole advisory block. Reference material must
	// never crowd out authoritative project state in the prompt.
	maxBlockRunes = 1200
)

// Format renders retrieval results as the advisory references block for
// prompts. Entries appear best match first; each is truncated to
// maxEntryRunes and the block stops growing at maxBlockRunes.
//
// An empty result set formats to "", which prompts render as an omitted
// section.
func Format(results []Result) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	for _, r := range results {
		title := r.Entry.Title
		if title == "" {
			title = r.Entry.ID
		}
		block := "### " + title + "\n" + truncateRunes(strings.TrimSpace(r.Entry.Content), maxEntryRunes)

		if utf8Len(b.String())+utf8Len(block)+2 > maxBlockRunes {
			break
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(block)
	}
	return b.String()
}

// truncateRunes shortens s to at most n runes, marking the cut.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}

func utf8Len(s string) int {
	return len([]rune(s))
}
