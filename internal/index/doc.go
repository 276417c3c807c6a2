// Package index owns the lifecycle of the persistent similarity-search index
// built over manual chunks.
//
// # Overview
//
// The index is an embedded chromem-go database persisted under a configured
// directory. Manager is the single owner: it loads the persisted index on
// first use, rebuilds it from the manuals corpus when the persisted copy is
// absent or unreadable, and hands out read-only *Handle values to consumers.
//
// # Lifecycle
//
//	Get      -> cached handle | load persisted | full rebuild | nil (empty corpus)
//	Rebuild  -> always regenerates from the corpus, then swaps atomically
//
// A rebuild constructs the new index in a sibling temp directory and only
// replaces the persisted copy and the cached handle once the build succeeds.
// Handles obtained before the swap keep serving the old index in full; they
// are never mutated in place.
//
// Storage read or deserialization failures are treated as "index absent" and
// trigger a rebuild. They are never surfaced as fatal errors. An empty corpus
// yields a nil handle, which consumers must treat as "knowledge base
// unavailable".
package index
