// Package knowledge implements the global reference base: a persistent
// vector collection of patterns, guidelines, and snippets shared across
// every project.
//
// Entries are strictly advisory. They are retrieved per request, formatted
// into a size-bounded prompt block, and never committed to any project's
// state. The collection is backed by chromem-go, persisted under the data
// directory, and seeded once on first run from a YAML file; entries added
// later survive restarts and take precedence over re-seeding.
//
// Retrieval over-fetches and then filters by tags, because the vector
// index itself has no tag awareness:
//
//	results, err := store.Search(ctx, "responsive navigation",
//	    knowledge.WithLimit(3),
//	    knowledge.WithTags("react"))
package knowledge
