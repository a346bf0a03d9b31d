package artifact

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Type classifies an artifact's structural role within the project.
type Type string

const (
	TypeComponent Type = "component"
	TypePage      Type = "page"
	TypeLayout    Type = "layout"
	TypeConfig    Type = "config"
)

// Ownership records who authored the currently active content of a path.
// It is the basis of the authority rule: user-owned paths are never
// overwritten by automated edits unless the caller explicitly allows it.
type Ownership string

const (
	OwnershipUser        Ownership = "user_modified"
	OwnershipAIGenerated Ownership = "ai_generated"
	OwnershipAIModified  Ownership = "ai_modified"
	OwnershipSystem      Ownership = "system_generated"
)

// Language is the declared source language of an artifact's content.
type Language string

const (
	LangTSX  Language = "tsx"
	LangTS   Language = "ts"
	LangJS   Language = "js"
	LangJSX  Language = "jsx"
	LangCSS  Language = "css"
	LangJSON Language = "json"
	LangHTML Language = "html"
)

// extensions maps each known language to its file extension.
var extensions = map[Language]string{
	LangTSX:  ".tsx",
	LangTS:   ".ts",
	LangJS:   ".js",
	LangJSX:  ".jsx",
	LangCSS:  ".css",
	LangJSON: ".json",
	LangHTML: ".html",
}

// Valid reports whether l is one of the known languages.
func (l Language) Valid() bool {
	_, ok := extensions[l]
	return ok
}

// Extension returns the file extension implied by the language,
// or "" for an unknown language.
func (l Language) Extension() string {
	return extensions[l]
}

// LanguageForPath derives the language from a path's extension.
// Returns "" when the extension maps to no known language.
func LanguageForPath(path string) Language {
	idx := strings.LastIndexByte(path, '.')
	if idx < 0 {
		return ""
	}
	ext := path[idx:]
	for lang, e := range extensions {
		if e == ext {
			return lang
		}
	}
	return ""
}

// Artifact is one versioned file record in a project's authoritative state.
//
// Each commit creates a new Artifact with a fresh ID; ids are not preserved
// across versions of the same path. At most one Artifact per path is active
// at any time. Version numbers per path start at 1 and increase strictly
// with no gaps. Timestamps are set by the store, never by the caller.
//
// The JSON form is the durable storage contract: one record per artifact in
// the project's state file, which must stay hand-editable.
type Artifact struct {
	ID           uuid.UUID   `json:"id"`
	Path         string      `json:"path"`
	Type         Type        `json:"type"`
	Language     Language    `json:"language"`
	Content      string      `json:"content"`
	Version      int         `json:"version"`
	Active       bool        `json:"is_active"`
	Ownership    Ownership   `json:"ownership"`
	Dependencies []uuid.UUID `json:"dependencies,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Proposed is an ephemeral, unversioned candidate parsed from generator
// output. It is never persisted directly; it becomes an Artifact only after
// passing the validation chain and being committed.
type Proposed struct {
	Path     string
	Content  string
	Language Language
	Type     Type
}

// FromProposed builds an Artifact from a validated candidate.
// Version, activity, and timestamps are assigned by the store at commit.
func FromProposed(p Proposed, owner Ownership, deps []uuid.UUID) Artifact {
	return Artifact{
		ID:           uuid.New(),
		Path:         p.Path,
		Type:         p.Type,
		Language:     p.Language,
		Content:      p.Content,
		Ownership:    owner,
		Dependencies: deps,
	}
}

// InferType derives the structural role of a path from its location.
// Entry HTML files are layouts, files under components/ are components,
// files under app/ or pages/ are pages, and everything else is config.
func InferType(path string) Type {
	switch {
	case strings.HasSuffix(path, "index.html"):
		return TypeLayout
	case strings.Contains(path, "components/"):
		return TypeComponent
	case strings.Contains(path, "app/"), strings.Contains(path, "pages/"):
		return TypePage
	default:
		return TypeConfig
	}
}

// RoleDescription returns a short structural description of the type,
// used when embedding artifacts for semantic retrieval.
func (t Type) RoleDescription() string {
	switch t {
	case TypeComponent:
		return "reusable interface component"
	case TypePage:
		return "application page"
	case TypeLayout:
		return "top-level page layout"
	default:
		return "project configuration file"
	}
}
