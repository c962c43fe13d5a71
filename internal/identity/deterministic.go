package identity

import (
	"strings"

	hashid "github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// UUID derives a deterministic UUID from a stable key using go-hashid.
//
// Callers must ensure key construction prevents cross-entity collisions (prefix by domain/type).
func UUID(key string) uuid.UUID {
	trimmed := strings.TrimSpace(key)
	if trimmed == "" {
		return uuid.Nil
	}
	uid, err := hashid.NewUUID(trimmed, hashid.WithHashAlgorithm(hashid.SHA256), hashid.WithNormalization(true))
	if err != nil || uid == uuid.Nil {
		return uuid.NewSHA1(uuid.NameSpaceOID, []byte(trimmed))
	}
	return uid
}

// DocumentID derives the note id of a notebook file from its path relative to
// the notebook root. The id has the attachment id shape so notes and
// resources share one reference syntax.
func DocumentID(relPath string) string {
	key := strings.ReplaceAll(strings.TrimSpace(relPath), "\\", "/")
	if key == "" {
		return ""
	}
	return Compact(UUID("go-excalidraw:document:" + key))
}

// NewResourceID mints a random attachment id: a v4 UUID without dashes.
func NewResourceID() string {
	return Compact(uuid.New())
}

// Compact renders a UUID as 32 lowercase hex characters.
func Compact(id uuid.UUID) string {
	return strings.ReplaceAll(id.String(), "-", "")
}

// IsResourceID reports whether value has the shape of an attachment id.
func IsResourceID(value string) bool {
	if value == "" {
		return false
	}
	for _, r := range value {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
