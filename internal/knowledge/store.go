package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	chromem "github.com/philippgille/chromem-go"
)

const (
	collectionName = "knowledge"

	// DefaultLimit is the result count when no WithLimit option is given.
	DefaultLimit = 5

	// overfetchFactor compensates for post-search tag filtering: the vector
	// query returns this multiple of the requested limit before tags apply.
	overfetchFactor = 2
)

// Store is the global knowledge base: a vector collection of reference
// entries shared by every project. Entries persist under the data
// directory and survive restarts; an empty directory keeps the collection
// in memory only.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	db         *chromem.DB
	collection *chromem.Collection
	logger     *slog.Logger
}

// New opens or creates the knowledge base at dir. An empty dir yields an
// in-memory store.
func New(dir string, embed chromem.EmbeddingFunc, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	var (
		db  *chromem.DB
		err error
	)
	if dir == "" {
		db = chromem.NewDB()
	} else {
		db, err = chromem.NewPersistentDB(dir, false)
		if err != nil {
			return nil, fmt.Errorf("opening knowledge db: %w", err)
		}
	}

	col, err := db.GetOrCreateCollection(collectionName, nil, embed)
	if err != nil {
		return nil, fmt.Errorf("opening knowledge collection: %w", err)
	}

	return &Store{db: db, collection: col, logger: logger}, nil
}

// Add embeds and stores one entry. Re-adding an existing ID replaces it.
func (s *Store) Add(ctx context.Context, e Entry) error {
	if e.ID == "" {
		return fmt.Errorf("entry id is required")
	}
	if strings.TrimSpace(e.Content) == "" {
		return fmt.Errorf("entry %q has no content", e.ID)
	}

	meta := map[string]string{
		"title": e.Title,
		"tags":  strings.Join(e.Tags, ","),
	}
	if !e.CreatedAt.IsZero() {
		meta["created_at"] = e.CreatedAt.Format(time.RFC3339)
	}

	err := s.collection.AddDocument(ctx, chromem.Document{
		ID:       e.ID,
		Metadata: meta,
		Content:  e.Content,
	})
	if err != nil {
		return fmt.Errorf("adding entry %q: %w", e.ID, err)
	}

	s.logger.Debug("knowledge entry added", "id", e.ID, "tags", e.Tags)
	return nil
}

// Search returns the entries most similar to query, best first.
//
// Tag filtering happens after the vector search: the store fetches twice
// the requested limit, drops entries sharing no tag with the filter, and
// truncates to the limit.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Result, error) {
	cfg := buildSearchConfig(opts)

	count := s.collection.Count()
	if count == 0 {
		return nil, nil
	}

	// chromem rejects nResults beyond the collection size.
	n := cfg.limit * overfetchFactor
	if n > count {
		n = count
	}

	hits, err := s.collection.Query(ctx, query, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying knowledge base: %w", err)
	}

	results := make([]Result, 0, len(hits))
	for _, h := range hits {
		entry := entryFromResult(h)
		if len(cfg.tags) > 0 && !hasAnyTag(entry.Tags, cfg.tags) {
			continue
		}
		results = append(results, Result{Entry: entry, Similarity: h.Similarity})
		if len(results) == cfg.limit {
			break
		}
	}
	return results, nil
}

// Count returns the number of stored entries.
func (s *Store) Count() int {
	return s.collection.Count()
}

// entryFromResult rebuilds an Entry from its stored document form.
func entryFromResult(r chromem.Result) Entry {
	e := Entry{
		ID:      r.ID,
		Title:   r.Metadata["title"],
		Content: r.Content,
	}
	if tags := r.Metadata["tags"]; tags != "" {
		e.Tags = strings.Split(tags, ",")
	}
	if raw := r.Metadata["created_at"]; raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			e.CreatedAt = t
		}
	}
	return e
}

// hasAnyTag reports whether have and want share at least one tag,
// compared case-insensitively.
func hasAnyTag(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if strings.EqualFold(h, w) {
				return true
			}
		}
	}
	return false
}
