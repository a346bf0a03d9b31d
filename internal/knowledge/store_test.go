package knowledge_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomkit/loom/internal/knowledge"
	"github.com/loomkit/loom/internal/testutil"
)

// memStore builds an in-memory store with keyword-controlled similarity.
func memStore(t *testing.T, keywords ...string) *knowledge.Store {
	t.Helper()
	s, err := knowledge.New("", testutil.KeywordEmbeddingFunc(keywords...), testutil.DiscardLogger())
	require.NoError(t, err)
	return s
}

func TestStore_AddAndSearch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := memStore(t, "button", "navbar", "pricing")

	entries := []knowledge.Entry{
		{ID: "e1", Title: "Buttons", Content: "Primary button with hover state"},
		{ID: "e2", Title: "Navigation", Content: "Navbar with links aligned right"},
		{ID: "e3", Title: "Pricing", Content: "Pricing table with three tiers"},
	}
	for _, e := range entries {
		require.NoError(t, s.Add(ctx, e))
	}
	require.Equal(t, 3, s.Count())

	results, err := s.Search(ctx, "button hover states", knowledge.WithLimit(2))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "e1", results[0].Entry.ID, "closest entry first")
	assert.Greater(t, results[0].Similarity, results[1].Similarity)
}

func TestStore_Add_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := memStore(t)

	require.Error(t, s.Add(ctx, knowledge.Entry{Content: "no id"}))
	require.Error(t, s.Add(ctx, knowledge.Entry{ID: "empty", Content: "   "}))
}

func TestStore_Search_TagFilter(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := memStore(t, "button")

	require.NoError(t, s.Add(ctx, knowledge.Entry{
		ID: "react-btn", Title: "React buttons",
		Content: "react button component with props",
		Tags:    []string{"react"},
	}))
	require.NoError(t, s.Add(ctx, knowledge.Entry{
		ID: "html-btn", Title: "HTML buttons",
		Content: "plain html button markup",
		Tags:    []string{"html"},
	}))

	// Both entries rank equally on "button"; the tag filter must still
	// return the html one thanks to over-fetching.
	results, err := s.Search(ctx, "button", knowledge.WithLimit(1), knowledge.WithTags("html"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "html-btn", results[0].Entry.ID)
	assert.Equal(t, []string{"html"}, results[0].Entry.Tags)
}

func TestStore_Search_EmptyStore(t *testing.T) {
	t.Parallel()

	s := memStore(t)

	results, err := s.Search(context.Background(), "anything")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestStore_Seed_OnlyWhenEmpty(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	s := memStore(t, "grid")

	first := []knowledge.Entry{
		{ID: "s1", Title: "One", Content: "grid layouts"},
		{ID: "s2", Title: "Two", Content: "more grid layouts"},
	}
	require.NoError(t, s.Seed(ctx, first))
	assert.Equal(t, 2, s.Count())

	// A second seed run must not disturb the existing collection.
	again := []knowledge.Entry{
		{ID: "s3", Title: "Three", Content: "even more grids"},
	}
	require.NoError(t, s.Seed(ctx, again))
	assert.Equal(t, 2, s.Count())
}

func TestStore_Persistence(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	dir := t.TempDir()
	embed := testutil.HashEmbeddingFunc(16)

	s1, err := knowledge.New(dir, embed, testutil.DiscardLogger())
	require.NoError(t, err)
	require.NoError(t, s1.Add(ctx, knowledge.Entry{
		ID: "k1", Title: "Persisted", Content: "content that must survive reopening",
	}))

	s2, err := knowledge.New(dir, embed, testutil.DiscardLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, s2.Count())
}

func TestLoadSeedFile(t *testing.T) {
	t.Parallel()

	raw := `entries:
  - id: react-structure
    title: React component structure
    tags: [react, structure]
    content: |
      One component per file. Export default from the file named after it.
  - id: css-layout
    title: CSS layout
    content: Flexbox for one-dimensional layouts, grid for two.
`
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))

	entries, err := knowledge.LoadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "react-structure", entries[0].ID)
	assert.Equal(t, []string{"react", "structure"}, entries[0].Tags)
	assert.Contains(t, entries[1].Content, "Flexbox")
}

func TestLoadSeedFile_Errors(t *testing.T) {
	t.Parallel()

	_, err := knowledge.LoadSeedFile(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("entries: [unclosed"), 0o600))
	_, err = knowledge.LoadSeedFile(bad)
	require.Error(t, err)
}
