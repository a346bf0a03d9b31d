package project_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomkit/loom/internal/artifact"
	"github.com/loomkit/loom/internal/project"
	"github.com/loomkit/loom/internal/state"
	"github.com/loomkit/loom/internal/testutil"
)

func newRegistry(t *testing.T) (*project.Registry, string) {
	t.Helper()
	dir := t.TempDir()
	r, err := project.NewRegistry(dir, testutil.DiscardLogger())
	require.NoError(t, err)
	return r, dir
}

func TestNewRegistry_RequiresBaseDir(t *testing.T) {
	t.Parallel()

	_, err := project.NewRegistry("", testutil.DiscardLogger())
	require.Error(t, err)
}

func TestRegistry_CreateAndGet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, _ := newRegistry(t)

	p, err := r.Create(ctx, "landing-page", project.TemplateReact)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, "landing-page", p.Name)
	assert.Equal(t, "react", p.Template)
	assert.False(t, p.CreatedAt.IsZero())
	assert.Equal(t, p.CreatedAt, p.UpdatedAt)

	got, err := r.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Equal(t, "landing-page", got.Name)
}

func TestRegistry_Create_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, _ := newRegistry(t)

	_, err := r.Create(ctx, "   ", "")
	require.Error(t, err)

	_, err = r.Create(ctx, "site", "vue")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown template")

	// No template at all is fine.
	_, err = r.Create(ctx, "site", "")
	require.NoError(t, err)
}

func TestRegistry_List_SurvivesReopen(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, dir := newRegistry(t)

	first, err := r.Create(ctx, "one", "")
	require.NoError(t, err)
	second, err := r.Create(ctx, "two", project.TemplateHTML)
	require.NoError(t, err)

	reopened, err := project.NewRegistry(dir, testutil.DiscardLogger())
	require.NoError(t, err)
	projects, err := reopened.List(ctx)
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, first.ID, projects[0].ID)
	assert.Equal(t, second.ID, projects[1].ID)
}

func TestRegistry_Get_NotFound(t *testing.T) {
	t.Parallel()

	r, _ := newRegistry(t)
	_, err := r.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, project.ErrNotFound)
}

func TestRegistry_Touch(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, _ := newRegistry(t)

	p, err := r.Create(ctx, "site", "")
	require.NoError(t, err)

	require.NoError(t, r.Touch(ctx, p.ID))
	got, err := r.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, got.UpdatedAt.Before(p.UpdatedAt))

	require.ErrorIs(t, r.Touch(ctx, uuid.New()), project.ErrNotFound)
}

func TestRegistry_Delete_RemovesProjectDirectory(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, dir := newRegistry(t)

	p, err := r.Create(ctx, "doomed", "")
	require.NoError(t, err)

	// Give the project some on-disk state, the way the server would.
	pool := state.NewPool(dir, state.WithLogger(testutil.DiscardLogger()))
	s, err := pool.Get(p.ID.String())
	require.NoError(t, err)
	_, err = s.Commit(ctx, artifact.FromProposed(artifact.Proposed{
		Path:     "index.html",
		Content:  "<html><body>doomed</body></html>",
		Language: artifact.LangHTML,
		Type:     artifact.TypeLayout,
	}, artifact.OwnershipSystem, nil))
	require.NoError(t, err)

	stateDir := filepath.Join(dir, "projects", p.ID.String())
	_, err = os.Stat(stateDir)
	require.NoError(t, err)

	require.NoError(t, r.Delete(ctx, p.ID))

	_, err = r.Get(ctx, p.ID)
	require.ErrorIs(t, err, project.ErrNotFound)
	_, err = os.Stat(stateDir)
	require.ErrorIs(t, err, os.ErrNotExist)

	require.ErrorIs(t, r.Delete(ctx, p.ID), project.ErrNotFound)
}

func TestRegistry_CorruptFileReadsEmpty(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	r, dir := newRegistry(t)

	_, err := r.Create(ctx, "site", "")
	require.NoError(t, err)

	path := filepath.Join(dir, "projects", "projects.json")
	require.NoError(t, os.WriteFile(path, []byte("[not json"), 0o600))

	projects, err := r.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, projects)
}
