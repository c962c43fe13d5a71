// Package attachments provides attachment stores for hosts that do not bring
// their own: an in-memory store and a Bun-backed SQL store.
package attachments

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goliatone/go-excalidraw/internal/identity"
	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

// ErrFileRequired is returned when a write names no source file.
var ErrFileRequired = errors.New("attachments: source file path is required")

// ErrAlreadyExists is returned when Create reuses an existing id.
var ErrAlreadyExists = errors.New("attachments: id already exists")

// ChangeType enumerates attachment change events.
type ChangeType string

const (
	ChangeCreated ChangeType = "created"
	ChangeUpdated ChangeType = "updated"
	ChangeDeleted ChangeType = "deleted"
)

// ChangeEvent reports an attachment mutation.
type ChangeEvent struct {
	Type      ChangeType
	ID        string
	Title     string
	UpdatedAt time.Time
}

// Store is an attachment store that also publishes change events.
type Store interface {
	interfaces.AttachmentStore
	interfaces.AttachmentDeleter
	Subscribe(ctx context.Context) (<-chan ChangeEvent, error)
}

type upload struct {
	id       string
	title    string
	mimeType string
	data     []byte
}

func readUpload(id, title, filePath string) (upload, error) {
	if strings.TrimSpace(filePath) == "" {
		return upload{}, ErrFileRequired
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return upload{}, fmt.Errorf("attachments: read %s: %w", filePath, err)
	}
	if strings.TrimSpace(title) == "" {
		title = filepath.Base(filePath)
	}
	return upload{
		id:       strings.TrimSpace(id),
		title:    title,
		mimeType: mimeTypeFor(filePath),
		data:     data,
	}, nil
}

func newAttachmentID(id string) string {
	if id != "" {
		return id
	}
	return identity.NewResourceID()
}

func mimeTypeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".svg":
		return "image/svg+xml"
	case ".json":
		return "application/json"
	}
	if guessed := mime.TypeByExtension(ext); guessed != "" {
		return guessed
	}
	return "application/octet-stream"
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", interfaces.ErrAttachmentNotFound, id)
}
