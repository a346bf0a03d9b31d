package config

const (
	// DefaultKnowledgeLimit is how many advisory entries a prompt carries.
	DefaultKnowledgeLimit = 3

	// MaxKnowledgeLimit is the absolute ceiling for knowledge.limit.
	MaxKnowledgeLimit = 10
)

// KnowledgeConfig tunes the advisory knowledge base.
type KnowledgeConfig struct {
	// Limit is how many advisory entries each prompt may carry.
	Limit int `mapstructure:"limit" json:"limit"`

	// SeedFile is an optional YAML file of entries ingested on first start
	// when the knowledge base is empty.
	SeedFile string `mapstructure:"seed_file" json:"seed_file"`
}
