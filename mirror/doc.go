// Package mirror maintains an in-memory mirror of a remote vault's document
// content and modification times, so that read-heavy operations such as
// searching across thousands of documents do not pay a network round-trip per
// document.
//
// # Synchronization
//
// A Mirror is populated once by a full build, which enumerates every document
// path under the store root and fetches each document. After a successful
// build the mirror reports ready. Subsequent refresh cycles re-enumerate the
// remote paths, remove cached entries for paths that no longer exist, and
// re-fetch only documents whose remote mtime is strictly newer than the
// cached one. Equal mtimes never cause a re-fetch.
//
// Only one build-or-refresh cycle runs at a time. A cycle started while
// another is in flight returns immediately without touching the remote store.
// A failed refresh never clears readiness: the previous cache remains
// available as a stale but usable fallback.
//
// # Proactive updates
//
// A caller that has just written a document to the remote store can call
// NotifyChanged to resynchronize that single path immediately instead of
// waiting for the next refresh. The fetch is retried through transient
// not-found responses, since a store read issued right after a write may lag
// behind the write. A not-found that survives all retries means the document
// was deleted, and its entry is removed.
//
// NotifyChanged deliberately runs outside the cycle guard. It may race with a
// refresh over the same path; both converge to the same remote truth, so the
// last write to the table wins.
//
// # Reads
//
// The read methods never fail and never block on synchronization. Readers get
// no snapshot isolation: during an active cycle a reader can observe a table
// to which some but not all of the cycle's changes have been applied.
package mirror
