// Package project maintains the project registry: the durable list of
// projects the server knows about, each owning one artifact state file.
// Starter templates for new projects live here too.
package project

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// ErrNotFound is returned when no project has the requested id.
var ErrNotFound = errors.New("project not found")

// lockRetryDelay is the poll interval while waiting on the registry lock.
const lockRetryDelay = 25 * time.Millisecond

// Project is one registry entry. The JSON form is the durable storage
// contract for the registry file, which must stay hand-editable.
type Project struct {
	ID        uuid.UUID `json:"project_id"`
	Name      string    `json:"name"`
	Template  string    `json:"template,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Registry is the flock-guarded project list. Every project's state file
// lives under the registry's base directory, so deleting a project removes
// its whole directory.
//
// Registry is safe for concurrent use by multiple goroutines, and the file
// lock discipline makes it safe across processes sharing the same file.
type Registry struct {
	baseDir string
	path    string
	flk     *flock.Flock
	logger  *slog.Logger

	mu sync.Mutex
}

// NewRegistry opens the registry rooted at baseDir. The registry file is
// created by the first write; a missing file reads as an empty list.
func NewRegistry(baseDir string, logger *slog.Logger) (*Registry, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("registry base directory is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	path := filepath.Join(baseDir, "projects", "projects.json")
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating projects directory: %w", err)
	}

	return &Registry{
		baseDir: baseDir,
		path:    path,
		flk:     flock.New(path + ".lock"),
		logger:  logger,
	}, nil
}

// Dir returns the directory holding one project's files.
func (r *Registry) Dir(id uuid.UUID) string {
	return filepath.Join(r.baseDir, "projects", id.String())
}

// Create registers a new project and returns it. The template name is
// validated here so a registry entry never references a template that
// cannot be seeded; the caller seeds the project's state separately.
func (r *Registry) Create(ctx context.Context, name, template string) (Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Project{}, fmt.Errorf("project name is required")
	}
	if template != "" && !ValidTemplate(template) {
		return Project{}, fmt.Errorf("unknown template %q", template)
	}

	now := time.Now().UTC()
	p := Project{
		ID:        uuid.New(),
		Name:      name,
		Template:  template,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := r.withExclusive(ctx, func(projects []Project) ([]Project, error) {
		return append(projects, p), nil
	})
	if err != nil {
		return Project{}, err
	}

	r.logger.Info("project created", "project_id", p.ID, "name", p.Name, "template", p.Template)
	return p, nil
}

// List returns every registered project, oldest first.
func (r *Registry) List(ctx context.Context) ([]Project, error) {
	var out []Project
	err := r.withShared(ctx, func(projects []Project) error {
		out = projects
		return nil
	})
	return out, err
}

// Get returns the project with the given id.
// Fails with ErrNotFound when no entry has that id.
func (r *Registry) Get(ctx context.Context, id uuid.UUID) (Project, error) {
	var out Project
	found := false
	err := r.withShared(ctx, func(projects []Project) error {
		for _, p := range projects {
			if p.ID == id {
				out = p
				found = true
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return Project{}, err
	}
	if !found {
		return Project{}, fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return out, nil
}

// Touch bumps a project's updated_at, marking activity such as a commit.
func (r *Registry) Touch(ctx context.Context, id uuid.UUID) error {
	found := false
	err := r.withExclusive(ctx, func(projects []Project) ([]Project, error) {
		for i := range projects {
			if projects[i].ID == id {
				projects[i].UpdatedAt = time.Now().UTC()
				found = true
				break
			}
		}
		return projects, nil
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}
	return nil
}

// Delete removes a project's registry entry and its whole directory,
// state file included. Fails with ErrNotFound when no entry has that id.
func (r *Registry) Delete(ctx context.Context, id uuid.UUID) error {
	found := false
	err := r.withExclusive(ctx, func(projects []Project) ([]Project, error) {
		next := projects[:0]
		for _, p := range projects {
			if p.ID == id {
				found = true
				continue
			}
			next = append(next, p)
		}
		return next, nil
	})
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("project %s: %w", id, ErrNotFound)
	}

	if err := os.RemoveAll(r.Dir(id)); err != nil {
		return fmt.Errorf("removing project directory: %w", err)
	}
	r.logger.Info("project deleted", "project_id", id)
	return nil
}

// read loads the project list. The caller must hold the file lock.
// Corruption is non-fatal: a file that does not parse reads as empty.
func (r *Registry) read() ([]Project, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading registry file: %w", err)
	}

	var projects []Project
	if err := json.Unmarshal(data, &projects); err != nil {
		r.logger.Warn("registry file corrupted, treating as empty",
			"path", r.path,
			"error", err,
		)
		return nil, nil
	}
	return projects, nil
}

// write replaces the whole registry file through a temp file and rename,
// so a crash can never leave a half-written registry behind. The caller
// must hold the exclusive lock.
func (r *Registry) write(projects []Project) error {
	if projects == nil {
		projects = []Project{}
	}
	data, err := json.MarshalIndent(projects, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding registry: %w", err)
	}

	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, ".projects-*.json")
	if err != nil {
		return fmt.Errorf("creating temp registry file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing registry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp registry file: %w", err)
	}
	if err := os.Rename(tmpName, r.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replacing registry file: %w", err)
	}
	return nil
}

// withShared runs fn on a consistent snapshot under the shared file lock.
func (r *Registry) withShared(ctx context.Context, fn func(projects []Project) error) error {
	locked, err := r.flk.TryRLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquiring shared lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("acquiring shared lock: not acquired")
	}
	defer r.flk.Unlock()

	projects, err := r.read()
	if err != nil {
		return err
	}
	return fn(projects)
}

// withExclusive runs fn as a read-modify-write under the exclusive file
// lock. fn returns the replacement list, which is persisted before the
// lock is released.
func (r *Registry) withExclusive(ctx context.Context, fn func(projects []Project) ([]Project, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	locked, err := r.flk.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquiring exclusive lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("acquiring exclusive lock: not acquired")
	}
	defer r.flk.Unlock()

	projects, err := r.read()
	if err != nil {
		return err
	}
	next, err := fn(projects)
	if err != nil {
		return err
	}
	return r.write(next)
}
