package knowledge

import "time"

// Entry is one reference document in the global knowledge base: a pattern,
// guideline, or snippet that informs generation across all projects.
// Entries are advisory; they shape prompts but never become project state.
//
// The YAML tags define the seed file format; the JSON tags the API shape.
type Entry struct {
	ID        string    `json:"id"         yaml:"id"`
	Title     string    `json:"title"      yaml:"title"`
	Content   string    `json:"content"    yaml:"content"`
	Tags      []string  `json:"tags,omitempty" yaml:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
}

// Result is a single retrieval hit with its similarity score.
type Result struct {
	Entry      Entry   `json:"entry"`
	Similarity float32 `json:"similarity"` // cosine similarity, 0-1
}

// SearchOption configures retrieval using the functional options pattern.
type SearchOption func(*searchConfig)

// searchConfig holds internal search configuration.
type searchConfig struct {
	limit int
	tags  []string
}

// WithLimit caps the number of results. Default is DefaultLimit.
func WithLimit(n int) SearchOption {
	return func(c *searchConfig) {
		if n > 0 {
			c.limit = n
		}
	}
}

// WithTags restricts results to entries carrying at least one of the given
// tags. Filtering happens after the vector search, so the store over-fetches
// to keep the result set full.
func WithTags(tags ...string) SearchOption {
	return func(c *searchConfig) {
		c.tags = append(c.tags, tags...)
	}
}

// buildSearchConfig applies search options and returns the final configuration.
func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{limit: DefaultLimit}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}
