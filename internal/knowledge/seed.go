package knowledge

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// seedFile is the YAML shape of a knowledge seed file:
//
//	entries:
//	  - id: react-component-structure
//	    title: React component structure
//	    tags: [react, component]
//	    content: |
//	      Keep one component per file...
type seedFile struct {
	Entries []Entry `yaml:"entries"`
}

// LoadSeedFile reads knowledge entries from a YAML file.
func LoadSeedFile(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}

	var sf seedFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parsing seed file %s: %w", path, err)
	}
	return sf.Entries, nil
}

// Seed ingests entries into an empty store. A store that already holds
// entries is left untouched so user additions survive restarts.
func (s *Store) Seed(ctx context.Context, entries []Entry) error {
	if n := s.Count(); n > 0 {
		s.logger.Debug("knowledge base already populated, skipping seed", "count", n)
		return nil
	}

	for _, e := range entries {
		if err := s.Add(ctx, e); err != nil {
			return fmt.Errorf("seeding knowledge base: %w", err)
		}
	}
	if len(entries) > 0 {
		s.logger.Info("knowledge base seeded", "entries", len(entries))
	}
	return nil
}
