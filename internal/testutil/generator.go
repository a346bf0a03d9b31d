package testutil

import (
	"context"
	"sync"
)

// ScriptedGenerator returns queued responses in order and records every
// prompt it receives. It satisfies the orchestrator's Generator dependency
// without importing it, so tests can script multi-attempt flows:
//
//	gen := testutil.NewScriptedGenerator(
//	    "not parseable at all",
//	    "FILE: src/App.tsx\nexport default function App() { return null; }",
//	)
//
// When the queue runs dry the last response repeats. Err, when set, is
// returned for every call instead.
//
// Thread-safe for concurrent use.
type ScriptedGenerator struct {
	mu        sync.Mutex
	responses []string
	next      int
	prompts   []string

	Err error
}

// NewScriptedGenerator creates a generator that replays responses in order.
func NewScriptedGenerator(responses ...string) *ScriptedGenerator {
	return &ScriptedGenerator{responses: responses}
}

// Generate returns the next scripted response.
func (s *ScriptedGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prompts = append(s.prompts, prompt)
	if s.Err != nil {
		return "", s.Err
	}
	if len(s.responses) == 0 {
		return "", nil
	}

	r := s.responses[s.next]
	if s.next < len(s.responses)-1 {
		s.next++
	}
	return r, nil
}

// Prompts returns a copy of all prompts seen so far.
func (s *ScriptedGenerator) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]string, len(s.prompts))
	copy(cp, s.prompts)
	return cp
}

// CallCount returns how many times Generate ran.
func (s *ScriptedGenerator) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}
