package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomkit/loom/internal/artifact"
	"github.com/loomkit/loom/internal/knowledge"
	"github.com/loomkit/loom/internal/orchestrator"
	"github.com/loomkit/loom/internal/project"
	"github.com/loomkit/loom/internal/state"
	"github.com/loomkit/loom/internal/testutil"
)

const generatedApp = "FILE: src/App.tsx\n" +
	"export default function App() {\n" +
	"  return <h1>Generated</h1>;\n" +
	"}\n"

type testServer struct {
	handler  http.Handler
	registry *project.Registry
	pool     *state.Pool
	gen      *testutil.ScriptedGenerator
}

// newTestServer wires a full server against temp-dir storage and a
// scripted generator.
func newTestServer(t *testing.T, responses ...string) *testServer {
	t.Helper()

	dir := t.TempDir()
	logger := testutil.DiscardLogger()

	registry, err := project.NewRegistry(dir, logger)
	require.NoError(t, err)

	pool := state.NewPool(dir, state.WithLogger(logger))

	gen := testutil.NewScriptedGenerator(responses...)
	orch, err := orchestrator.New(orchestrator.Config{Generator: gen, Logger: logger})
	require.NoError(t, err)

	kb, err := knowledge.New("", testutil.HashEmbeddingFunc(8), logger)
	require.NoError(t, err)

	srv, err := NewServer(Config{
		Logger:       logger,
		Orchestrator: orch,
		Pool:         pool,
		Registry:     registry,
		Knowledge:    kb,
		Version:      "test",
	})
	require.NoError(t, err)

	return &testServer{handler: srv.Handler(), registry: registry, pool: pool, gen: gen}
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func (ts *testServer) createProject(t *testing.T, name, template string) project.Project {
	t.Helper()

	w := ts.do(t, http.MethodPost, "/v1/projects", map[string]string{
		"name":     name,
		"template": template,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var p project.Project
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	return p
}

func TestNewServer_RequiresDependencies(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger := testutil.DiscardLogger()
	registry, err := project.NewRegistry(dir, logger)
	require.NoError(t, err)
	pool := state.NewPool(dir)
	orch, err := orchestrator.New(orchestrator.Config{
		Generator: testutil.NewScriptedGenerator(),
		Logger:    logger,
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		cfg  Config
	}{
		{"missing orchestrator", Config{Pool: pool, Registry: registry}},
		{"missing pool", Config{Orchestrator: orch, Registry: registry}},
		{"missing registry", Config{Orchestrator: orch, Pool: pool}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewServer(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestServer_Healthz(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/healthz", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body healthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "test", body.Version)
}

func TestServer_Metrics(t *testing.T) {
	ts := newTestServer(t)

	w := ts.do(t, http.MethodGet, "/metrics", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "loom_")
}

func TestServer_ProjectLifecycle(t *testing.T) {
	ts := newTestServer(t)

	p := ts.createProject(t, "demo", project.TemplateReact)
	assert.Equal(t, "demo", p.Name)
	assert.Equal(t, project.TemplateReact, p.Template)
	assert.NotEqual(t, uuid.Nil, p.ID)

	t.Run("get", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/v1/projects/"+p.ID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code)

		var got project.Project
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, p.ID, got.ID)
	})

	t.Run("list", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/v1/projects", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Projects []project.Project `json:"projects"`
			Total    int               `json:"total"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Total)
		require.Len(t, body.Projects, 1)
		assert.Equal(t, p.ID, body.Projects[0].ID)
	})

	t.Run("template seeded state", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/v1/projects/"+p.ID.String()+"/state", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Artifacts []artifact.Artifact `json:"artifacts"`
			Total     int                 `json:"total"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 4, body.Total)
		for _, a := range body.Artifacts {
			assert.Equal(t, artifact.OwnershipSystem, a.Ownership)
			assert.Equal(t, 1, a.Version)
			assert.True(t, a.Active)
		}
	})

	t.Run("delete", func(t *testing.T) {
		w := ts.do(t, http.MethodDelete, "/v1/projects/"+p.ID.String(), nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		w = ts.do(t, http.MethodGet, "/v1/projects/"+p.ID.String(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)

		w = ts.do(t, http.MethodDelete, "/v1/projects/"+p.ID.String(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestServer_CreateProject_Validation(t *testing.T) {
	ts := newTestServer(t)

	t.Run("undecodable body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/projects", bytes.NewReader([]byte("{not json")))
		w := httptest.NewRecorder()
		ts.handler.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("missing name", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/v1/projects", map[string]string{"name": "   "})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "name is required")
	})

	t.Run("unknown template", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/v1/projects", map[string]string{
			"name":     "demo",
			"template": "vue",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "unknown template")
		assert.Contains(t, w.Body.String(), "html, react")
	})

	t.Run("no template creates empty project", func(t *testing.T) {
		p := ts.createProject(t, "blank", "")

		w := ts.do(t, http.MethodGet, "/v1/projects/"+p.ID.String()+"/state", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"total":0`)
	})
}

func TestServer_Generate(t *testing.T) {
	ts := newTestServer(t, generatedApp)
	p := ts.createProject(t, "demo", "")

	w := ts.do(t, http.MethodPost, "/v1/projects/"+p.ID.String()+"/generate", map[string]any{
		"instruction": "build a hello page",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp orchestrator.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Artifacts, 1)
	assert.Equal(t, "src/App.tsx", resp.Artifacts[0].Path)
	assert.Equal(t, artifact.OwnershipAIGenerated, resp.Artifacts[0].Ownership)
	assert.Equal(t, 1, resp.Artifacts[0].Version)
	assert.Positive(t, resp.PromptTokens)
	assert.Equal(t, 1, ts.gen.CallCount())

	t.Run("committed state visible", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/v1/projects/"+p.ID.String()+"/state", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "src/App.tsx")
		assert.Contains(t, w.Body.String(), "Generated")
	})

	t.Run("project touched", func(t *testing.T) {
		got, err := ts.registry.Get(context.Background(), p.ID)
		require.NoError(t, err)
		assert.False(t, got.UpdatedAt.Before(p.UpdatedAt))
	})
}

func TestServer_Generate_Validation(t *testing.T) {
	ts := newTestServer(t)
	p := ts.createProject(t, "demo", "")

	t.Run("missing instruction", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/v1/projects/"+p.ID.String()+"/generate", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "instruction is required")
		assert.Zero(t, ts.gen.CallCount())
	})

	t.Run("malformed project id", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/v1/projects/not-a-uuid/generate", map[string]any{
			"instruction": "anything",
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("unknown project", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/v1/projects/"+uuid.NewString()+"/generate", map[string]any{
			"instruction": "anything",
		})
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestServer_Generate_AuthorityConflict(t *testing.T) {
	// The generator proposes a user-owned path the request never allowed.
	ts := newTestServer(t, generatedApp)
	p := ts.createProject(t, "demo", "")

	store, err := ts.pool.Get(p.ID.String())
	require.NoError(t, err)
	_, err = store.Commit(context.Background(), artifact.FromProposed(artifact.Proposed{
		Path:     "src/App.tsx",
		Content:  "// hand-written\nexport default function App() { return null; }\n",
		Language: artifact.LangTSX,
		Type:     artifact.TypePage,
	}, artifact.OwnershipUser, nil))
	require.NoError(t, err)

	w := ts.do(t, http.MethodPost, "/v1/projects/"+p.ID.String()+"/generate", map[string]any{
		"instruction":   "restyle something else",
		"allowed_paths": []string{"src/Other.tsx"},
	})

	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "authority_conflict", body.Error)
	assert.Contains(t, body.Message, "user-owned")

	// Nothing committed: the hand-written file is still v1.
	history, err := store.History(context.Background(), "src/App.tsx")
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Contains(t, history[0].Content, "hand-written")
}

func TestServer_Generate_ScopeViolation(t *testing.T) {
	ts := newTestServer(t, generatedApp)
	p := ts.createProject(t, "demo", "")

	w := ts.do(t, http.MethodPost, "/v1/projects/"+p.ID.String()+"/generate", map[string]any{
		"instruction":   "build the app",
		"allowed_paths": []string{"src/Other.tsx"},
	})

	require.Equal(t, http.StatusUnprocessableEntity, w.Code, w.Body.String())
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "validation_failed", body.Error)
	assert.Contains(t, body.Message, "outside the allowed set")
}

func TestServer_Generate_MalformedOutput(t *testing.T) {
	ts := newTestServer(t, "chatty response with no file blocks at all")
	p := ts.createProject(t, "demo", "")

	w := ts.do(t, http.MethodPost, "/v1/projects/"+p.ID.String()+"/generate", map[string]any{
		"instruction": "build the app",
	})

	require.Equal(t, http.StatusBadGateway, w.Code, w.Body.String())
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "generation_malformed", body.Error)
}

func TestServer_Preview(t *testing.T) {
	ts := newTestServer(t, generatedApp)
	p := ts.createProject(t, "demo", project.TemplateHTML)

	w := ts.do(t, http.MethodPost, "/v1/projects/"+p.ID.String()+"/prompt", map[string]any{
		"instruction": "make it prettier",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var prompt orchestrator.Prompt
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &prompt))
	assert.Len(t, prompt.Sections, 6)
	assert.Positive(t, prompt.Tokens)
	assert.Contains(t, prompt.Text, "make it prettier")
	assert.Contains(t, prompt.ContextPaths, "index.html")

	// Preview never reaches the model.
	assert.Zero(t, ts.gen.CallCount())
}

func TestServer_State_QueryModes(t *testing.T) {
	ts := newTestServer(t, generatedApp)
	p := ts.createProject(t, "demo", "")

	store, err := ts.pool.Get(p.ID.String())
	require.NoError(t, err)

	seed := func(content string) {
		t.Helper()
		_, err := store.Commit(context.Background(), artifact.FromProposed(artifact.Proposed{
			Path:     "src/App.tsx",
			Content:  content,
			Language: artifact.LangTSX,
			Type:     artifact.TypePage,
		}, artifact.OwnershipAIGenerated, nil))
		require.NoError(t, err)
	}
	seed("// v1")
	seed("// v2")

	t.Run("active only by default", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/v1/projects/"+p.ID.String()+"/state", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Artifacts []artifact.Artifact `json:"artifacts"`
			Total     int                 `json:"total"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Equal(t, 1, body.Total)
		assert.Equal(t, 2, body.Artifacts[0].Version)
		assert.True(t, body.Artifacts[0].Active)
	})

	t.Run("scope=all includes history", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/v1/projects/"+p.ID.String()+"/state?scope=all", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"total":2`)
	})

	t.Run("path history", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/v1/projects/"+p.ID.String()+"/state?path=src/App.tsx", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Artifacts []artifact.Artifact `json:"artifacts"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		require.Len(t, body.Artifacts, 2)
		assert.Equal(t, 1, body.Artifacts[0].Version)
		assert.Equal(t, 2, body.Artifacts[1].Version)
	})

	t.Run("semantic query", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/v1/projects/"+p.ID.String()+"/state?q=app&limit=1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "src/App.tsx")
	})
}

func TestServer_Knowledge(t *testing.T) {
	ts := newTestServer(t)

	t.Run("add", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/v1/knowledge", map[string]any{
			"title":   "Styling",
			"content": "Prefer utility classes over inline styles.",
			"tags":    []string{"css"},
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var entry knowledge.Entry
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entry))
		assert.NotEmpty(t, entry.ID)
		assert.Equal(t, "Styling", entry.Title)
	})

	t.Run("add requires content", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/v1/knowledge", map[string]any{"title": "empty"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("search", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/v1/knowledge?q=styling", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var body struct {
			Results []knowledge.Result `json:"results"`
			Total   int                `json:"total"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, 1, body.Total)
	})

	t.Run("search requires query", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/v1/knowledge", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestServer_KnowledgeDisabled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger := testutil.DiscardLogger()
	registry, err := project.NewRegistry(dir, logger)
	require.NoError(t, err)
	orch, err := orchestrator.New(orchestrator.Config{
		Generator: testutil.NewScriptedGenerator(),
		Logger:    logger,
	})
	require.NoError(t, err)

	srv, err := NewServer(Config{
		Logger:       logger,
		Orchestrator: orch,
		Pool:         state.NewPool(dir),
		Registry:     registry,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/v1/knowledge?q=anything", nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_RequestIDEcho(t *testing.T) {
	ts := newTestServer(t)

	id := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/v1/projects", nil)
	req.Header.Set("X-Request-ID", id)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, w.Header().Get("X-Request-ID"))
}

func TestServer_Run_GracefulShutdown(t *testing.T) {
	ts := newTestServer(t)

	dir := t.TempDir()
	logger := testutil.DiscardLogger()
	registry, err := project.NewRegistry(dir, logger)
	require.NoError(t, err)
	orch, err := orchestrator.New(orchestrator.Config{
		Generator: ts.gen,
		Logger:    logger,
	})
	require.NoError(t, err)

	srv, err := NewServer(Config{
		Logger:       logger,
		Orchestrator: orch,
		Pool:         state.NewPool(dir),
		Registry:     registry,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())

	// Find an available port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	_ = listener.Close()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Run(ctx, addr)
	}()

	// Poll for server readiness instead of fixed sleep
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			_ = conn.Close()
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}

func TestServer_DefaultAddr(t *testing.T) {
	assert.Equal(t, "127.0.0.1:3400", DefaultAddr)
}

func TestServer_MethodRouting(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodPut, "/v1/projects", http.StatusMethodNotAllowed},
		{http.MethodGet, "/v1/projects/" + uuid.NewString() + "/generate", http.StatusMethodNotAllowed},
		{http.MethodGet, "/v1/nothing", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s %s", tt.method, tt.path), func(t *testing.T) {
			w := ts.do(t, tt.method, tt.path, nil)
			assert.Equal(t, tt.want, w.Code)
		})
	}
}
