package state

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
)

// Pool hands out one Store per project, created on first use. All stores
// share the same options, so every project gets the same embedding
// function, retention policy, and logger.
type Pool struct {
	baseDir string
	opts    []Option

	mu       sync.Mutex
	stores   map[string]*Store
	watchCtx context.Context // non-nil once Watch has been called
}

// NewPool creates a pool rooted at baseDir.
func NewPool(baseDir string, opts ...Option) *Pool {
	return &Pool{
		baseDir: baseDir,
		opts:    opts,
		stores:  make(map[string]*Store),
	}
}

// Get returns the store for a project id, opening it on first use.
func (p *Pool) Get(projectID string) (*Store, error) {
	if projectID == "" {
		return nil, errors.New("project id is required")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if s, ok := p.stores[projectID]; ok {
		return s, nil
	}
	s, err := Open(p.StatePath(projectID), p.opts...)
	if err != nil {
		return nil, err
	}
	if p.watchCtx != nil {
		if werr := s.Watch(p.watchCtx); werr != nil {
			// The index rebuilds lazily without a watcher, so keep going.
			s.logger.Warn("state watcher failed to start", "project", projectID, "error", werr)
		}
	}
	p.stores[projectID] = s
	return s, nil
}

// Watch starts a file watcher on every store the pool has opened and on
// every store it opens later, so state files edited outside the process
// stay visible to semantic retrieval. Watchers stop when ctx is canceled.
func (p *Pool) Watch(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.watchCtx = ctx
	var errs []error
	for id, s := range p.stores {
		if err := s.Watch(ctx); err != nil {
			errs = append(errs, fmt.Errorf("watching project %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

// StatePath returns where a project's state file lives.
func (p *Pool) StatePath(projectID string) string {
	return filepath.Join(p.baseDir, "projects", projectID, "state.json")
}
