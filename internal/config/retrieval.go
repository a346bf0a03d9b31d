package config

const (
	// DefaultRetrievalLimit is how many artifacts a request retrieves as
	// generation context when no explicit paths are given.
	DefaultRetrievalLimit = 10

	// MaxRetrievalLimit is the absolute ceiling for retrieval.limit.
	MaxRetrievalLimit = 50

	// DefaultMinSimilarity is the cosine similarity floor for semantic
	// retrieval; hits below it fall back to layouts.
	DefaultMinSimilarity = 0.30

	// DefaultKeepInactive is how many superseded versions per path survive
	// retention cleanup.
	DefaultKeepInactive = 5

	// DefaultCleanupEvery runs retention cleanup after every Nth commit.
	DefaultCleanupEvery = 10
)

// RetrievalConfig tunes how much project state a request pulls into its
// prompt and how strict the semantic ranker is.
type RetrievalConfig struct {
	Limit         int     `mapstructure:"limit" json:"limit"`
	MinSimilarity float32 `mapstructure:"min_similarity" json:"min_similarity"`
}

// RetentionConfig tunes superseded-version cleanup in the state store.
type RetentionConfig struct {
	KeepInactive int `mapstructure:"keep_inactive" json:"keep_inactive"`
	CleanupEvery int `mapstructure:"cleanup_every" json:"cleanup_every"`
}
