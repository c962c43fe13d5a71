package interfaces

import (
	"context"
	"errors"
	"time"
)

// ErrAttachmentNotFound is returned by stores when the requested attachment id is unknown.
var ErrAttachmentNotFound = errors.New("attachments: not found")

// AttachmentStore is the host-owned resource store. Attachments are always
// created from a file on disk so hosts that only accept uploads by path can
// implement it directly.
type AttachmentStore interface {
	// Create persists the file at filePath under the supplied id. An empty id
	// lets the store mint one. The effective id is returned.
	Create(ctx context.Context, id, title, filePath string) (string, error)
	// Update replaces the content of an existing attachment in place.
	Update(ctx context.Context, id, title, filePath string) error
	// Metadata returns descriptive fields for the attachment. Stores may
	// restrict the lookup to the named fields; id and title are always filled.
	Metadata(ctx context.Context, id string, fields ...string) (*AttachmentMetadata, error)
	// Bytes returns the raw attachment content.
	Bytes(ctx context.Context, id string) ([]byte, error)
}

// AttachmentDeleter is implemented by stores that can remove attachments.
type AttachmentDeleter interface {
	Delete(ctx context.Context, id string) error
}

// AttachmentMetadata describes a stored attachment.
type AttachmentMetadata struct {
	ID        string
	Title     string
	MimeType  string
	Size      int64
	UpdatedAt time.Time
}
