package state

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	chromem "github.com/philippgille/chromem-go"

	"github.com/loomkit/loom/internal/artifact"
)

// embedExcerptRunes caps the content excerpt included in embedding text,
// bounding embedding cost per artifact.
const embedExcerptRunes = 1000

// index is the lazy, process-local semantic index over active artifacts.
//
// It is not built until the first semantic query. Commits and external
// state-file changes only mark it stale; the rebuild happens at the start
// of the next query, from that query's own snapshot. Commit latency is
// never spent on embeddings.
type index struct {
	embed chromem.EmbeddingFunc

	mu    sync.Mutex
	col   *chromem.Collection
	built bool
	stale atomic.Bool
}

func newIndex(embed chromem.EmbeddingFunc) *index {
	return &index{embed: embed}
}

// markStale schedules a rebuild before the next semantic query.
func (ix *index) markStale() {
	ix.stale.Store(true)
}

// rank returns every indexed artifact scored against query, best first.
// The index is rebuilt from active when missing or stale.
func (ix *index) rank(ctx context.Context, active []artifact.Artifact, query string) ([]chromem.Result, error) {
	ix.mu.Lock()
	defer ix.mu.Unlock()

	if !ix.built || ix.stale.Load() {
		if err := ix.rebuild(ctx, active); err != nil {
			return nil, err
		}
	}

	count := ix.col.Count()
	if count == 0 {
		return nil, nil
	}

	hits, err := ix.col.Query(ctx, query, count, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("semantic query: %w", err)
	}
	return hits, nil
}

// rebuild replaces the collection wholesale. In-memory collections are
// cheap; incremental upkeep is not worth the bookkeeping.
func (ix *index) rebuild(ctx context.Context, active []artifact.Artifact) error {
	db := chromem.NewDB()
	col, err := db.CreateCollection("artifacts", nil, ix.embed)
	if err != nil {
		return fmt.Errorf("creating index collection: %w", err)
	}

	for _, a := range active {
		err := col.AddDocument(ctx, chromem.Document{
			ID:      a.ID.String(),
			Content: embedText(a),
		})
		if err != nil {
			return fmt.Errorf("indexing %s: %w", a.Path, err)
		}
	}

	ix.col = col
	ix.built = true
	ix.stale.Store(false)
	return nil
}

// embedText builds the text embedded for one artifact: type, path, and a
// structural role description, followed by a bounded content excerpt.
func embedText(a artifact.Artifact) string {
	excerpt := []rune(a.Content)
	if len(excerpt) > embedExcerptRunes {
		excerpt = excerpt[:embedExcerptRunes]
	}
	return fmt.Sprintf("%s %s %s\n%s", a.Type, a.Path, a.Type.RoleDescription(), string(excerpt))
}
