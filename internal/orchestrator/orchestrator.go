// Package orchestrator sequences one generation request end to end:
// retrieve project state, pre-check authority, gather advisory references,
// build the prompt, call the generator with retry, parse and validate the
// output, and commit the surviving batch. The pipeline is strictly
// sequential; concurrency exists only across requests.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/loomkit/loom/internal/artifact"
	"github.com/loomkit/loom/internal/knowledge"
	"github.com/loomkit/loom/internal/llm"
	"github.com/loomkit/loom/internal/observability"
	"github.com/loomkit/loom/internal/state"
	"github.com/loomkit/loom/internal/validate"
)

// defaultKnowledgeLimit is how many advisory entries a prompt carries.
const defaultKnowledgeLimit = 3

// Config contains all required parameters for the orchestrator.
type Config struct {
	Generator llm.Generator    // required; wrap with llm.NewRetrier for backoff
	Knowledge *knowledge.Store // optional; nil disables advisory references
	Logger    *slog.Logger     // nil falls back to slog.Default()
	Events    EventFunc        // optional lifecycle observer

	RuntimeCheck   bool // gate commits behind the runtime sanity check
	KnowledgeLimit int  // advisory entries per request (default 3)
	RetrieveLimit  int  // context artifacts per request (default state.DefaultRetrieveLimit)
}

func (cfg Config) validate() error {
	if cfg.Generator == nil {
		return errors.New("generator is required")
	}
	return nil
}

// Orchestrator runs generation requests. It is stateless across requests:
// the per-project store is passed into every call, so one orchestrator
// serves every project.
type Orchestrator struct {
	gen     llm.Generator
	kb      *knowledge.Store
	logger  *slog.Logger
	events  EventFunc
	runtime bool
	kLimit  int
	rLimit  int
	tracer  trace.Tracer
}

// New creates an orchestrator from required configuration.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	kLimit := cfg.KnowledgeLimit
	if kLimit <= 0 {
		kLimit = defaultKnowledgeLimit
	}
	rLimit := cfg.RetrieveLimit
	if rLimit <= 0 {
		rLimit = state.DefaultRetrieveLimit
	}

	return &Orchestrator{
		gen:     cfg.Generator,
		kb:      cfg.Knowledge,
		logger:  logger,
		events:  cfg.Events,
		runtime: cfg.RuntimeCheck,
		kLimit:  kLimit,
		rLimit:  rLimit,
		tracer:  otel.Tracer("github.com/loomkit/loom/internal/orchestrator"),
	}, nil
}

// Request is one user generation request against one project.
type Request struct {
	ProjectID    string
	Instruction  string
	AllowedPaths []string // empty means everything ("*")
}

func (r Request) validate() error {
	if strings.TrimSpace(r.Instruction) == "" {
		return errors.New("instruction is required")
	}
	return nil
}

// Response is the outcome of a completed request.
type Response struct {
	RequestID    uuid.UUID           `json:"request_id"`
	Artifacts    []artifact.Artifact `json:"artifacts"`
	PromptTokens int                 `json:"prompt_tokens"`
	PromptCost   float64             `json:"prompt_cost"`
	Elapsed      time.Duration       `json:"elapsed"`
}

// Run executes the full pipeline for one request. On any phase failure the
// whole request fails with nothing committed; commit itself is a single
// all-or-nothing batch.
func (o *Orchestrator) Run(ctx context.Context, store *state.Store, req Request) (*Response, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	reqID := uuid.New()
	start := time.Now()
	allowedPaths := req.AllowedPaths
	if len(allowedPaths) == 0 {
		allowedPaths = []string{validate.Wildcard}
	}
	allowed := validate.NewPathSet(allowedPaths)

	ctx, span := o.tracer.Start(ctx, "loom.generate", trace.WithAttributes(
		attribute.String("loom.project_id", req.ProjectID),
		attribute.String("loom.request_id", reqID.String()),
	))
	defer span.End()
	defer func() {
		observability.GenerationSeconds.Observe(time.Since(start).Seconds())
	}()

	log := o.logger.With("request_id", reqID, "project_id", req.ProjectID)
	o.emit(Event{Type: EventStart, RequestID: reqID, Meta: map[string]any{"project_id": req.ProjectID}})

	resp, err := o.run(ctx, log, store, reqID, req.Instruction, allowedPaths, allowed)
	if err != nil {
		observability.Generations.WithLabelValues(outcomeLabel(err)).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.emit(Event{Type: EventFailed, RequestID: reqID, Err: err})
		log.Error("generation request failed", "error", err, "elapsed", time.Since(start))
		return nil, err
	}

	resp.RequestID = reqID
	resp.Elapsed = time.Since(start)
	span.SetAttributes(attribute.Int("loom.artifacts", len(resp.Artifacts)))
	observability.Generations.WithLabelValues("ok").Inc()
	o.emit(Event{Type: EventCompleted, RequestID: reqID, Meta: map[string]any{"artifacts": len(resp.Artifacts)}})
	log.Info("generation request completed", "artifacts", len(resp.Artifacts), "elapsed", resp.Elapsed)
	return resp, nil
}

func (o *Orchestrator) run(ctx context.Context, log *slog.Logger, store *state.Store, reqID uuid.UUID, instruction string, allowedPaths []string, allowed validate.PathSet) (*Response, error) {
	targets, contextArts, err := o.buildContext(ctx, store, instruction, allowedPaths, allowed)
	if err != nil {
		return nil, err
	}
	activeByPath, err := store.ActiveByPath(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading active artifacts: %w", err)
	}
	o.emit(Event{Type: EventStateRetrieved, RequestID: reqID, Meta: map[string]any{"count": len(contextArts)}})
	log.Debug("project state retrieved", "targets", len(targets), "context", len(contextArts))

	// Authority pre-check over the retrieval targets, using the same
	// predicate the validation chain applies later. Saves the generation
	// call when the request is doomed.
	if p, found := validate.FirstAuthorityViolation(artifactPaths(targets), activeByPath, allowed); found {
		return nil, fmt.Errorf("%w: %s is user-owned and outside the allowed set; allow the path explicitly to permit changes", validate.ErrAuthority, p)
	}
	o.emit(Event{Type: EventAuthorityChecked, RequestID: reqID})

	refs := o.lookupKnowledge(ctx, log, instruction)
	o.emit(Event{Type: EventKnowledgeRetrieved, RequestID: reqID, Meta: map[string]any{"count": len(refs)}})

	prompt := buildPrompt(instruction, contextArts, refs, allowedPaths)
	o.emit(Event{Type: EventPromptBuilt, RequestID: reqID, Meta: map[string]any{"tokens": prompt.Tokens}})
	log.Debug("prompt built", "tokens", prompt.Tokens, "sections", len(prompt.Sections))

	raw, err := o.generate(ctx, prompt.Text)
	if err != nil {
		return nil, err
	}
	o.emit(Event{Type: EventGenerated, RequestID: reqID})

	proposed, err := llm.ParseArtifacts(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing generator output: %w", err)
	}
	o.emit(Event{Type: EventParsed, RequestID: reqID, Meta: map[string]any{"count": len(proposed)}})

	result := validate.Chain(validate.Input{
		Proposed:     proposed,
		ActiveByPath: activeByPath,
		Allowed:      allowed,
	})
	if err := result.Err(); err != nil {
		return nil, err
	}
	o.emit(Event{Type: EventValidated, RequestID: reqID, Meta: map[string]any{"count": len(proposed)}})

	candidates := o.buildCandidates(proposed, activeByPath)

	if o.runtime {
		if err := checkRuntime(mergeForRuntime(activeByPath, candidates)); err != nil {
			return nil, err
		}
		o.emit(Event{Type: EventRuntimeChecked, RequestID: reqID})
	}

	committed, err := store.CommitAll(ctx, candidates)
	if err != nil {
		return nil, fmt.Errorf("committing batch: %w", err)
	}
	observability.CommittedArtifacts.Add(float64(len(committed)))
	o.emit(Event{Type: EventCommitted, RequestID: reqID, Meta: map[string]any{"count": len(committed)}})
	log.Debug("batch committed", "count", len(committed))

	return &Response{
		Artifacts:    committed,
		PromptTokens: prompt.Tokens,
		PromptCost:   prompt.Cost,
	}, nil
}

// Preview assembles the prompt a request would send, with per-section
// token counts and the cost estimate, without calling the generator.
func (o *Orchestrator) Preview(ctx context.Context, store *state.Store, req Request) (*Prompt, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	allowedPaths := req.AllowedPaths
	if len(allowedPaths) == 0 {
		allowedPaths = []string{validate.Wildcard}
	}
	allowed := validate.NewPathSet(allowedPaths)

	_, contextArts, err := o.buildContext(ctx, store, req.Instruction, allowedPaths, allowed)
	if err != nil {
		return nil, err
	}
	refs := o.lookupKnowledge(ctx, o.logger, req.Instruction)
	prompt := buildPrompt(req.Instruction, contextArts, refs, allowedPaths)
	return &prompt, nil
}

// buildContext retrieves the artifacts a request may touch (targets) and
// enriches them with their active dependency closure (context). A literal
// allowed set retrieves exactly those paths so the generator always sees
// the current content of every file it may rewrite; the wildcard retrieves
// the semantically closest artifacts for the instruction instead.
func (o *Orchestrator) buildContext(ctx context.Context, store *state.Store, instruction string, allowedPaths []string, allowed validate.PathSet) (targets, contextArts []artifact.Artifact, err error) {
	if allowed.Allows(validate.Wildcard) {
		targets, err = store.Retrieve(ctx, state.WithQuery(instruction), state.WithLimit(o.rLimit))
	} else {
		targets, err = store.Retrieve(ctx, state.WithPaths(allowedPaths...), state.WithLimit(o.rLimit))
	}
	if err != nil {
		return nil, nil, fmt.Errorf("retrieving project state: %w", err)
	}

	contextArts, err = store.ExpandDependencies(ctx, targets)
	if err != nil {
		return nil, nil, fmt.Errorf("expanding dependencies: %w", err)
	}
	return targets, contextArts, nil
}

// lookupKnowledge fetches advisory references. Advisory means advisory: a
// lookup failure is logged and the request continues without references.
func (o *Orchestrator) lookupKnowledge(ctx context.Context, log *slog.Logger, instruction string) []knowledge.Result {
	if o.kb == nil {
		return nil
	}
	refs, err := o.kb.Search(ctx, instruction, knowledge.WithLimit(o.kLimit))
	if err != nil {
		log.Warn("advisory knowledge lookup failed", "error", err)
		return nil
	}
	return refs
}

func (o *Orchestrator) generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := o.tracer.Start(ctx, "loom.llm.generate")
	defer span.End()

	raw, err := o.gen.Generate(ctx, prompt)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", fmt.Errorf("generating: %w", err)
	}
	return raw, nil
}

// buildCandidates turns validated proposals into commit candidates,
// carrying ownership forward: a superseded user-owned artifact keeps
// user_modified (the edit was explicitly permitted or it would not have
// passed validation), other superseded artifacts become ai_modified, and
// brand-new paths start as ai_generated. Dependency edges survive the
// rewrite.
func (o *Orchestrator) buildCandidates(proposed []artifact.Proposed, activeByPath map[string]artifact.Artifact) []artifact.Artifact {
	candidates := make([]artifact.Artifact, 0, len(proposed))
	for _, p := range proposed {
		owner := artifact.OwnershipAIGenerated
		var deps []uuid.UUID
		if old, ok := activeByPath[p.Path]; ok {
			owner = artifact.OwnershipAIModified
			if old.Ownership == artifact.OwnershipUser {
				owner = artifact.OwnershipUser
			}
			deps = old.Dependencies
		}
		candidates = append(candidates, artifact.FromProposed(p, owner, deps))
	}
	return candidates
}

func (o *Orchestrator) emit(e Event) {
	if o.events == nil {
		return
	}
	o.events(e)
}

func artifactPaths(arts []artifact.Artifact) []string {
	paths := make([]string, len(arts))
	for i, a := range arts {
		paths[i] = a.Path
	}
	return paths
}

// outcomeLabel classifies a pipeline failure for metrics.
func outcomeLabel(err error) string {
	switch {
	case errors.Is(err, validate.ErrAuthority):
		return "authority"
	case errors.Is(err, validate.ErrRejected):
		return "validation"
	case errors.Is(err, llm.ErrMalformedOutput):
		return "parse"
	default:
		return "error"
	}
}
