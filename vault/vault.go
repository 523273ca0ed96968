// Package vault defines the remote document store that the mirror
// synchronizes against, and provides an HTTP client implementation of it.
package vault

import (
	"context"
)

// DirEntry is one row of a directory listing. Name is relative to the listed
// directory. A directory entry is reported with a trailing slash on the wire;
// Dir reflects that.
type DirEntry struct {
	Name string
	Dir  bool
}

// Document is the full state of one remote document: its text content and
// last-modification time in epoch milliseconds.
type Document struct {
	Content string
	Mtime   int64
}

// Store is the interface to a remote document store. Implementations report
// failures as apierror values so that callers can distinguish not-found and
// transient faults from unexpected ones.
type Store interface {
	// ListDirectory returns the entries directly under dirpath. The root of
	// the store is the empty path.
	ListDirectory(ctx context.Context, dirpath string) ([]DirEntry, error)
	// Content fetches the full content and mtime of the document at path.
	Content(ctx context.Context, path string) (Document, error)
	// String returns a description of the store.
	String() string
}

// MetadataStore is an optional capability of a Store: fetching only the
// mtime of a document, without its content. Stores that support it let the
// mirror skip content downloads for unchanged documents.
type MetadataStore interface {
	// Mtime returns the last-modification time of the document at path, in
	// epoch milliseconds.
	Mtime(ctx context.Context, path string) (int64, error)
}
