package orchestrator

import "github.com/google/uuid"

// EventType identifies a phase boundary in the request pipeline.
type EventType int

const (
	EventStart EventType = iota
	EventStateRetrieved
	EventAuthorityChecked
	EventKnowledgeRetrieved
	EventPromptBuilt
	EventGenerated
	EventParsed
	EventValidated
	EventRuntimeChecked
	EventCommitted
	EventCompleted
	EventFailed
)

// String returns the snake_case event name used in logs and API payloads.
func (t EventType) String() string {
	switch t {
	case EventStart:
		return "request_started"
	case EventStateRetrieved:
		return "state_retrieved"
	case EventAuthorityChecked:
		return "authority_prevalidated"
	case EventKnowledgeRetrieved:
		return "knowledge_retrieved"
	case EventPromptBuilt:
		return "prompt_built"
	case EventGenerated:
		return "generation_completed"
	case EventParsed:
		return "output_parsed"
	case EventValidated:
		return "validation_completed"
	case EventRuntimeChecked:
		return "runtime_checked"
	case EventCommitted:
		return "commit_completed"
	case EventCompleted:
		return "request_completed"
	case EventFailed:
		return "request_failed"
	default:
		return "unknown"
	}
}

// Event is emitted at each phase boundary. Events are observational only:
// no consumer can affect control flow through them.
type Event struct {
	Type      EventType
	RequestID uuid.UUID
	Err       error          // set only for EventFailed
	Meta      map[string]any // small per-phase details (counts, paths)
}

// EventFunc receives pipeline events. Callbacks must be fast; the pipeline
// calls them synchronously.
type EventFunc func(Event)
