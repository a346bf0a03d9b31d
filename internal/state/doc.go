// Package state implements the versioned artifact store: the authoritative
// record of a project's files, with authority-aware commits,
// dependency-aware retrieval, and a process-local semantic index.
//
// Each project's state is a single hand-editable JSON file guarded by a
// companion <file>.lock advisory lock. Every operation re-reads the file
// under that lock: reads take a shared lock, commits take the exclusive
// lock for the whole read-modify-write, so version numbers are always
// computed against whatever state the previous writer left behind, in this
// process or another. A file that no longer parses degrades to an empty
// state with a warning instead of failing callers.
//
// Commits enforce the ownership invariant as the last line of defense: an
// active user_modified artifact is only superseded by a candidate that is
// itself user_modified. The validation chain in internal/validate rejects
// such writes much earlier; the store check is what makes the guarantee
// hold even for callers that bypass the chain.
//
// The semantic index is lazy and advisory. It is first built when a
// semantic query arrives, marked stale by commits and by the optional file
// watcher, and rebuilt at the start of the next semantic query. It is
// never consulted for correctness, only for relevance ordering.
package state
