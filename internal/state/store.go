package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	chromem "github.com/philippgille/chromem-go"

	"github.com/loomkit/loom/internal/artifact"
)

const (
	// DefaultKeepInactive is how many superseded versions per path survive
	// retention cleanup.
	DefaultKeepInactive = 5

	// DefaultCleanupEvery runs retention cleanup after every Nth commit.
	DefaultCleanupEvery = 10

	// DefaultMinSimilarity is the cosine similarity floor for semantic
	// retrieval; hits below it are discarded.
	DefaultMinSimilarity float32 = 0.30

	// lockRetryDelay is the poll interval while waiting on the file lock.
	lockRetryDelay = 25 * time.Millisecond
)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger. Nil keeps the default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithEmbeddingFunc enables semantic retrieval. Without it, queries fall
// back to deterministic path ordering.
func WithEmbeddingFunc(embed chromem.EmbeddingFunc) Option {
	return func(s *Store) {
		s.index = newIndex(embed)
	}
}

// WithRetention overrides the retention policy. Non-positive values keep
// the defaults.
func WithRetention(keepInactive, cleanupEvery int) Option {
	return func(s *Store) {
		if keepInactive > 0 {
			s.keepInactive = keepInactive
		}
		if cleanupEvery > 0 {
			s.cleanupEvery = cleanupEvery
		}
	}
}

// WithMinSimilarity overrides the semantic similarity floor.
func WithMinSimilarity(min float32) Option {
	return func(s *Store) {
		s.minSim = min
	}
}

// Store is one project's versioned artifact state.
//
// Store is safe for concurrent use by multiple goroutines, and the file
// lock discipline makes it safe across processes sharing the same state
// file.
type Store struct {
	path   string
	flk    *flock.Flock
	logger *slog.Logger

	keepInactive int
	cleanupEvery int
	minSim       float32

	mu      sync.Mutex // serializes in-process commits and the counter
	commits int

	index *index // nil when semantic retrieval is not configured
}

// Open prepares a store for the state file at path. The file itself is
// created by the first commit; a missing file reads as an empty state.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("state file path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}

	s := &Store{
		path:         path,
		flk:          flock.New(path + ".lock"),
		logger:       slog.Default(),
		keepInactive: DefaultKeepInactive,
		cleanupEvery: DefaultCleanupEvery,
		minSim:       DefaultMinSimilarity,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the state file location.
func (s *Store) Path() string {
	return s.path
}

// stateFile is the on-disk JSON shape: the full artifact list, indented so
// the file stays hand-editable.
type stateFile struct {
	Artifacts []artifact.Artifact `json:"artifacts"`
}

// read loads the artifact list. The caller must hold the file lock.
// Corruption is non-fatal: a file that does not parse reads as empty.
func (s *Store) read() ([]artifact.Artifact, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state file: %w", err)
	}

	var sf stateFile
	if err := json.Unmarshal(data, &sf); err != nil {
		s.logger.Warn("state file corrupted, treating as empty",
			"path", s.path,
			"error", err,
		)
		return nil, nil
	}
	return sf.Artifacts, nil
}

// write replaces the whole state file. The caller must hold the exclusive
// lock. The write goes through a temp file and rename, so a crash can
// never leave a half-written state behind.
func (s *Store) write(arts []artifact.Artifact) error {
	data, err := json.MarshalIndent(stateFile{Artifacts: arts}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".state-*.json")
	if err != nil {
		return fmt.Errorf("creating temp state file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing state file: %w", err)
	}
	return nil
}

// withShared runs fn on a consistent snapshot under the shared file lock.
func (s *Store) withShared(ctx context.Context, fn func(arts []artifact.Artifact) error) error {
	locked, err := s.flk.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquiring shared lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("acquiring shared lock: not acquired")
	}
	defer s.flk.Unlock()

	arts, err := s.read()
	if err != nil {
		return err
	}
	return fn(arts)
}

// withExclusive runs fn as a read-modify-write under the exclusive file
// lock. fn returns the replacement artifact list, which is persisted
// before the lock is released.
func (s *Store) withExclusive(ctx context.Context, fn func(arts []artifact.Artifact) ([]artifact.Artifact, error)) error {
	locked, err := s.flk.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquiring exclusive lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("acquiring exclusive lock: not acquired")
	}
	defer s.flk.Unlock()

	arts, err := s.read()
	if err != nil {
		return err
	}
	next, err := fn(arts)
	if err != nil {
		return err
	}
	return s.write(next)
}

// Artifacts returns every record in the state file, active and inactive.
func (s *Store) Artifacts(ctx context.Context) ([]artifact.Artifact, error) {
	var out []artifact.Artifact
	err := s.withShared(ctx, func(arts []artifact.Artifact) error {
		out = arts
		return nil
	})
	return out, err
}

// Active returns the active artifacts, at most one per path.
func (s *Store) Active(ctx context.Context) ([]artifact.Artifact, error) {
	var out []artifact.Artifact
	err := s.withShared(ctx, func(arts []artifact.Artifact) error {
		for _, a := range arts {
			if a.Active {
				out = append(out, a)
			}
		}
		return nil
	})
	return out, err
}

// ActiveByPath returns the active artifacts keyed by path. This is the
// shape both the validation chain and the orchestrator's authority
// pre-check consume.
func (s *Store) ActiveByPath(ctx context.Context) (map[string]artifact.Artifact, error) {
	active, err := s.Active(ctx)
	if err != nil {
		return nil, err
	}
	byPath := make(map[string]artifact.Artifact, len(active))
	for _, a := range active {
		byPath[a.Path] = a
	}
	return byPath, nil
}

// Get returns the artifact with the given id, active or not.
// Fails with artifact.ErrNotFound when no record has that id.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (artifact.Artifact, error) {
	var out artifact.Artifact
	found := false
	err := s.withShared(ctx, func(arts []artifact.Artifact) error {
		for _, a := range arts {
			if a.ID == id {
				out = a
				found = true
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return artifact.Artifact{}, err
	}
	if !found {
		return artifact.Artifact{}, fmt.Errorf("artifact %s: %w", id, artifact.ErrNotFound)
	}
	return out, nil
}

// History returns every version recorded for a path, newest first.
func (s *Store) History(ctx context.Context, path string) ([]artifact.Artifact, error) {
	path = artifact.NormalizePath(path)
	var out []artifact.Artifact
	err := s.withShared(ctx, func(arts []artifact.Artifact) error {
		for _, a := range arts {
			if a.Path == path {
				out = append(out, a)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}
