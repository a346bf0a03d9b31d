// Package validate implements the rule chain that gates every commit.
//
// Four independent rules run in a fixed order against the full proposed
// batch: syntax, authority, scope, consistency. The first failure
// short-circuits the rest and becomes the result. The authority rule and
// the orchestrator's pre-generation check share one predicate
// (FirstAuthorityViolation) so the two call sites can never diverge.
package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/loomkit/loom/internal/artifact"
)

// ErrRejected is the sentinel for a failed validation chain.
// Authority failures wrap ErrAuthority instead; check that first.
var ErrRejected = errors.New("validation rejected")

// ErrAuthority is the ownership sentinel, re-exported so callers of this
// package can match authority failures without importing artifact.
var ErrAuthority = artifact.ErrAuthority

// Wildcard allows every path when present in an allowed-path set.
const Wildcard = "*"

// PathSet is a caller-declared set of paths permitted to change in one
// request. An empty set permits nothing; the Wildcard entry permits
// everything.
type PathSet map[string]struct{}

// NewPathSet builds a PathSet from a list of paths, normalizing each entry.
func NewPathSet(paths []string) PathSet {
	s := make(PathSet, len(paths))
	for _, p := range paths {
		if p == Wildcard {
			s[Wildcard] = struct{}{}
			continue
		}
		s[artifact.NormalizePath(p)] = struct{}{}
	}
	return s
}

// Allows reports whether path may change under this set.
func (s PathSet) Allows(path string) bool {
	if _, ok := s[Wildcard]; ok {
		return true
	}
	_, ok := s[path]
	return ok
}

// Input is one proposed batch together with the context the rules need:
// the current active artifact per path and the caller's allowed-path set.
type Input struct {
	Proposed     []artifact.Proposed
	ActiveByPath map[string]artifact.Artifact
	Allowed      PathSet
}

// Result is the outcome of the chain: a pass, or the first rule failure
// with its rule name and a human-readable reason. On a pass the proposed
// batch is untouched and ready for commit.
type Result struct {
	OK     bool
	Rule   string
	Reason string
}

// Err converts a failed Result into an error. Authority failures wrap
// artifact.ErrAuthority so callers can distinguish them with errors.Is;
// other failures wrap ErrRejected. Returns nil for a pass.
func (r Result) Err() error {
	if r.OK {
		return nil
	}
	if r.Rule == RuleAuthority {
		return fmt.Errorf("%w: %s", artifact.ErrAuthority, r.Reason)
	}
	return fmt.Errorf("%w: %s: %s", ErrRejected, r.Rule, r.Reason)
}

// Rule names, in chain order.
const (
	RuleSyntax      = "syntax"
	RuleAuthority   = "authority"
	RuleScope       = "scope"
	RuleConsistency = "consistency"
)

type rule struct {
	name  string
	check func(Input) (reason string, ok bool)
}

// chain is the fixed, ordered rule list. There is no registration API:
// the observed behavior needs exactly these four rules in this order.
var chain = []rule{
	{RuleSyntax, checkSyntax},
	{RuleAuthority, checkAuthority},
	{RuleScope, checkScope},
	{RuleConsistency, checkConsistency},
}

// Chain evaluates the rules in order against the full batch and returns
// the first failure, or a passing Result.
func Chain(in Input) Result {
	for _, r := range chain {
		if reason, ok := r.check(in); !ok {
			return Result{Rule: r.name, Reason: reason}
		}
	}
	return Result{OK: true}
}

// extensionChecked lists the languages whose path extension must match the
// declaration. css and html artifacts pass through the syntax rule
// unchecked.
var extensionChecked = map[artifact.Language]bool{
	artifact.LangTSX:  true,
	artifact.LangTS:   true,
	artifact.LangJS:   true,
	artifact.LangJSON: true,
}

// checkSyntax requires non-empty trimmed content and, for the checked
// languages, a path extension matching the declared language.
func checkSyntax(in Input) (string, bool) {
	for _, p := range in.Proposed {
		if strings.TrimSpace(p.Content) == "" {
			return fmt.Sprintf("empty content for %s", p.Path), false
		}
		if extensionChecked[p.Language] && !strings.HasSuffix(p.Path, p.Language.Extension()) {
			return fmt.Sprintf("%s declares language %q but lacks the %s extension",
				p.Path, p.Language, p.Language.Extension()), false
		}
	}
	return "", true
}

// checkAuthority rejects the batch when any proposed path has an active
// user-owned artifact and is not in the allowed set. This is the rule that
// keeps regeneration from clobbering hand-written files.
func checkAuthority(in Input) (string, bool) {
	paths := make([]string, len(in.Proposed))
	for i, p := range in.Proposed {
		paths[i] = p.Path
	}
	if p, found := FirstAuthorityViolation(paths, in.ActiveByPath, in.Allowed); found {
		return fmt.Sprintf("%s is user-owned and outside the allowed set", p), false
	}
	return "", true
}

// checkScope requires every proposed path to be in the allowed set,
// regardless of ownership.
func checkScope(in Input) (string, bool) {
	for _, p := range in.Proposed {
		if !in.Allowed.Allows(p.Path) {
			return fmt.Sprintf("%s is outside the allowed set", p.Path), false
		}
	}
	return "", true
}

// checkConsistency rejects batches that propose the same path twice.
func checkConsistency(in Input) (string, bool) {
	seen := make(map[string]struct{}, len(in.Proposed))
	for _, p := range in.Proposed {
		if _, dup := seen[p.Path]; dup {
			return fmt.Sprintf("%s proposed more than once", p.Path), false
		}
		seen[p.Path] = struct{}{}
	}
	return "", true
}
