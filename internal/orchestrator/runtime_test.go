package orchestrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomkit/loom/internal/artifact"
	"github.com/loomkit/loom/internal/validate"
)

func art(path, content string) artifact.Artifact {
	return artifact.Artifact{Path: path, Content: content}
}

func TestCheckRuntime(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		artifacts []artifact.Artifact
		wantErr   string
	}{
		{
			name:    "empty set",
			wantErr: "no artifacts available",
		},
		{
			name: "valid html page",
			artifacts: []artifact.Artifact{
				art("index.html", "<!DOCTYPE html>\n<HTML>\n<BODY>hello</BODY>\n</HTML>"),
			},
		},
		{
			name: "html missing body",
			artifacts: []artifact.Artifact{
				art("index.html", "<html><head></head></html>"),
			},
			wantErr: "missing <body>",
		},
		{
			name: "react app with default export",
			artifacts: []artifact.Artifact{
				art("src/App.tsx", "export default function App() { return null }"),
				art("src/components/Button.tsx", "export function Button() {}"),
			},
		},
		{
			name: "react main with createRoot",
			artifacts: []artifact.Artifact{
				art("src/main.tsx", "import { createRoot } from 'react-dom/client'\ncreateRoot(el).render(<App />)"),
			},
		},
		{
			name: "react without entrypoint",
			artifacts: []artifact.Artifact{
				art("src/components/Button.tsx", "export function Button() {}"),
			},
			wantErr: "missing entrypoint",
		},
		{
			name: "react entrypoint without export",
			artifacts: []artifact.Artifact{
				art("src/App.tsx", "function App() { return null }"),
			},
			wantErr: "export default or createRoot",
		},
		{
			name: "neither html nor react",
			artifacts: []artifact.Artifact{
				art("src/index.css", "body { margin: 0 }"),
			},
			wantErr: "no HTML or React entrypoints",
		},
		{
			name: "mixed project reports every gap",
			artifacts: []artifact.Artifact{
				art("index.html", "<div>fragment</div>"),
				art("src/components/Button.tsx", "export function Button() {}"),
			},
			wantErr: "missing <html> tag; HTML output missing <body> tag; React output missing entrypoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := checkRuntime(tt.artifacts)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, validate.ErrRejected)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestMergeForRuntime_ProposedWins(t *testing.T) {
	t.Parallel()

	active := map[string]artifact.Artifact{
		"index.html":  art("index.html", "<html><body>old</body></html>"),
		"src/App.tsx": art("src/App.tsx", "export default function App() {}"),
	}
	proposed := []artifact.Artifact{
		art("index.html", "<html><body>new</body></html>"),
		art("src/index.css", "body {}"),
	}

	merged := mergeForRuntime(active, proposed)
	require.Len(t, merged, 3)

	byPath := make(map[string]string, len(merged))
	for _, a := range merged {
		byPath[a.Path] = a.Content
	}
	assert.Equal(t, "<html><body>new</body></html>", byPath["index.html"])
	assert.Contains(t, byPath, "src/App.tsx")
	assert.Contains(t, byPath, "src/index.css")
}
