package interfaces

import (
	"context"
	"errors"
)

// ErrDocumentNotFound is returned when no document matches the lookup.
var ErrDocumentNotFound = errors.New("documents: not found")

// Document is a markdown note owned by the host.
type Document struct {
	ID    string
	Title string
	Body  string
}

// DocumentStore exposes the note currently open in the host and lets callers
// replace its markdown body.
type DocumentStore interface {
	CurrentDocument(ctx context.Context) (*Document, error)
	ReplaceDocumentBody(ctx context.Context, id, body string) error
}

// DocumentReader resolves arbitrary documents by id.
type DocumentReader interface {
	Document(ctx context.Context, id string) (*Document, error)
}

// Workspace is the editing surface of the host.
type Workspace interface {
	// InsertText inserts markdown at the current cursor position.
	InsertText(ctx context.Context, text string) error
}
