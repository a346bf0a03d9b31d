package orchestrator

import (
	"fmt"
	"strings"

	"github.com/loomkit/loom/internal/artifact"
	"github.com/loomkit/loom/internal/validate"
)

// reactEntrySuffixes are the file names accepted as a React entrypoint.
var reactEntrySuffixes = []string{
	"app.tsx", "app.jsx", "main.tsx", "main.jsx", "index.tsx", "index.jsx",
}

// mergeForRuntime overlays the proposed artifacts onto the active set so
// the runtime check sees the project as it would look after commit.
func mergeForRuntime(activeByPath map[string]artifact.Artifact, proposed []artifact.Artifact) []artifact.Artifact {
	merged := make(map[string]artifact.Artifact, len(activeByPath)+len(proposed))
	for p, a := range activeByPath {
		merged[p] = a
	}
	for _, a := range proposed {
		merged[a.Path] = a
	}
	out := make([]artifact.Artifact, 0, len(merged))
	for _, a := range merged {
		out = append(out, a)
	}
	return out
}

// checkRuntime verifies the merged project would render a preview: an HTML
// project needs <html> and <body> in its HTML files, a React project needs
// a recognizable entrypoint that exports a component or calls createRoot.
// Nothing is executed. Failures are validation-class errors.
func checkRuntime(artifacts []artifact.Artifact) error {
	if len(artifacts) == 0 {
		return fmt.Errorf("%w: runtime: no artifacts available", validate.ErrRejected)
	}

	var htmlFiles, entryFiles []artifact.Artifact
	hasHTML, hasReact := false, false
	for _, a := range artifacts {
		p := strings.ToLower(a.Path)
		switch {
		case strings.HasSuffix(p, ".html"):
			hasHTML = true
			htmlFiles = append(htmlFiles, a)
		case strings.HasSuffix(p, ".tsx"), strings.HasSuffix(p, ".jsx"),
			strings.HasSuffix(p, ".ts"), strings.HasSuffix(p, ".js"):
			hasReact = true
			if isReactEntry(p) {
				entryFiles = append(entryFiles, a)
			}
		}
	}

	var reasons []string
	if hasHTML {
		if !anyContains(htmlFiles, "<html") {
			reasons = append(reasons, "HTML output missing <html> tag")
		}
		if !anyContains(htmlFiles, "<body") {
			reasons = append(reasons, "HTML output missing <body> tag")
		}
	}
	if hasReact {
		if len(entryFiles) == 0 {
			reasons = append(reasons, "React output missing entrypoint (expected App.tsx or main.tsx)")
		} else if !anyContains(entryFiles, "export default") && !anyContains(entryFiles, "createroot") {
			reasons = append(reasons, "React entrypoint missing export default or createRoot call")
		}
	}
	if !hasHTML && !hasReact {
		reasons = append(reasons, "no HTML or React entrypoints found")
	}

	if len(reasons) > 0 {
		return fmt.Errorf("%w: runtime: %s", validate.ErrRejected, strings.Join(reasons, "; "))
	}
	return nil
}

func isReactEntry(lowerPath string) bool {
	for _, s := range reactEntrySuffixes {
		if strings.HasSuffix(lowerPath, s) {
			return true
		}
	}
	return false
}

func anyContains(arts []artifact.Artifact, lowerSubstr string) bool {
	for _, a := range arts {
		if strings.Contains(strings.ToLower(a.Content), lowerSubstr) {
			return true
		}
	}
	return false
}
