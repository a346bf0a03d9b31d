package llm

import (
	"fmt"
	"strings"

	"github.com/loomkit/loom/internal/artifact"
)

// Marker is the line prefix that introduces one file block in generator
// output. Each block carries the full replacement content for its path and
// runs until the next marker or end of text.
const Marker = "FILE:"

// ParseArtifacts parses raw generator output into proposed artifacts.
//
// A response with zero markers, an empty marker path, or empty content for
// a marker fails with ErrMalformedOutput; it never reaches the validation
// chain. Paths are normalized, .jsx files are rewritten to .tsx, and each
// block gets its language and structural type inferred from the path.
func ParseArtifacts(output string) ([]artifact.Proposed, error) {
	lines := strings.Split(output, "\n")
	var out []artifact.Proposed

	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if !strings.HasPrefix(line, Marker) {
			i++
			continue
		}

		rawPath := cleanMarkerPath(strings.TrimPrefix(line, Marker))
		if rawPath == "" {
			return nil, fmt.Errorf("%w: marker with empty path", ErrMalformedOutput)
		}

		content, next := collectBlock(lines, i+1)
		if content == "" {
			return nil, fmt.Errorf("%w: empty content for %s", ErrMalformedOutput, rawPath)
		}

		p, err := buildProposed(rawPath, content)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
		i = next
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no %s markers found", ErrMalformedOutput, Marker)
	}
	return out, nil
}

// cleanMarkerPath strips whitespace and decoration the model tends to wrap
// around the path (backticks, asterisks, quotes).
func cleanMarkerPath(raw string) string {
	return strings.Trim(strings.TrimSpace(raw), "`*\"'")
}

// collectBlock gathers content lines until the next marker or EOF.
// It returns the block with any wrapping code fence removed and the index
// to resume scanning from.
func collectBlock(lines []string, start int) (string, int) {
	i := start
	var block []string
	for i < len(lines) {
		if strings.HasPrefix(strings.TrimSpace(lines[i]), Marker) {
			break
		}
		block = append(block, lines[i])
		i++
	}
	return strings.TrimSpace(strings.Join(stripFence(block), "\n")), i
}

// stripFence removes a wrapping markdown code fence when the first and last
// non-blank lines of the block are fence markers.
func stripFence(lines []string) []string {
	first, last := -1, -1
	for idx, l := range lines {
		if strings.TrimSpace(l) != "" {
			if first == -1 {
				first = idx
			}
			last = idx
		}
	}
	if first == -1 {
		return nil
	}
	if last > first &&
		strings.HasPrefix(strings.TrimSpace(lines[first]), "```") &&
		strings.TrimSpace(lines[last]) == "```" {
		return lines[first+1 : last]
	}
	return lines[first : last+1]
}

// buildProposed normalizes the path, applies the .jsx rewrite, infers
// language and type, and validates the result.
func buildProposed(rawPath, content string) (artifact.Proposed, error) {
	p := artifact.NormalizePath(rawPath)

	// Generators frequently emit .jsx for React files; the project
	// standard is .tsx.
	if strings.HasSuffix(p, ".jsx") {
		p = strings.TrimSuffix(p, ".jsx") + ".tsx"
	}

	if err := artifact.ValidatePath(p); err != nil {
		return artifact.Proposed{}, fmt.Errorf("%w: %s", ErrMalformedOutput, err)
	}

	lang := artifact.LanguageForPath(p)
	if lang == "" {
		return artifact.Proposed{}, fmt.Errorf("%w: unsupported file type %q", ErrMalformedOutput, p)
	}

	return artifact.Proposed{
		Path:     p,
		Content:  content,
		Language: lang,
		Type:     artifact.InferType(p),
	}, nil
}
