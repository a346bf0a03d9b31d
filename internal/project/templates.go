package project

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/loomkit/loom/internal/artifact"
)

// Template names accepted at project creation.
const (
	TemplateReact = "react"
	TemplateHTML  = "html"
)

// Templates returns the known template names.
func Templates() []string {
	return []string{TemplateHTML, TemplateReact}
}

// ValidTemplate reports whether name is a known template.
func ValidTemplate(name string) bool {
	return name == TemplateReact || name == TemplateHTML
}

const reactIndexHTML = `<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="UTF-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1.0" />
    <title>New Project</title>
  </head>
  <body>
    <div id="root"></div>
    <script type="module" src="/src/main.tsx"></script>
  </body>
</html>
`

const reactMainTSX = `import React from 'react'
import { createRoot } from 'react-dom/client'
import App from './App'
import './index.css'

createRoot(document.getElementById('root')!).render(
  <React.StrictMode>
    <App />
  </React.StrictMode>,
)
`

const reactAppTSX = `export default function App() {
  return (
    <main className="container mx-auto px-4 py-16 text-center">
      <h1 className="text-3xl font-bold">Your project is ready</h1>
      <p className="mt-4 text-gray-600">Describe what to build and the generator takes it from here.</p>
    </main>
  )
}
`

const reactIndexCSS = `:root {
  font-family: system-ui, sans-serif;
}

body {
  margin: 0;
}
`

const plainIndexHTML = `<!DOCTYPE html>
<html lang="en">
  <head>
    <meta charset="UTF-8" />
    <title>New Project</title>
  </head>
  <body>
    <main>
      <h1>Your project is ready</h1>
      <p>Describe what to build and the generator takes it from here.</p>
    </main>
  </body>
</html>
`

// TemplateArtifacts returns the starter batch for a template as commit
// candidates, system-owned and dependency-linked so the first generation
// request already has a graph to expand. An empty name seeds nothing.
func TemplateArtifacts(name string) ([]artifact.Artifact, error) {
	switch name {
	case "":
		return nil, nil
	case TemplateHTML:
		return []artifact.Artifact{
			seedArtifact("index.html", plainIndexHTML, artifact.TypeLayout),
		}, nil
	case TemplateReact:
		css := seedArtifact("src/index.css", reactIndexCSS, artifact.TypeConfig)
		app := seedArtifact("src/App.tsx", reactAppTSX, artifact.TypePage)
		entry := seedArtifact("src/main.tsx", reactMainTSX, artifact.TypeConfig,
			app.ID, css.ID)
		index := seedArtifact("index.html", reactIndexHTML, artifact.TypeLayout,
			entry.ID)
		return []artifact.Artifact{css, app, entry, index}, nil
	default:
		return nil, fmt.Errorf("unknown template %q", name)
	}
}

func seedArtifact(path, content string, typ artifact.Type, deps ...uuid.UUID) artifact.Artifact {
	return artifact.FromProposed(artifact.Proposed{
		Path:     path,
		Content:  content,
		Language: artifact.LanguageForPath(path),
		Type:     typ,
	}, artifact.OwnershipSystem, deps)
}
