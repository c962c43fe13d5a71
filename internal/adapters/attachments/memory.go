package attachments

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

type memoryRecord struct {
	title     string
	mimeType  string
	data      []byte
	updatedAt time.Time
}

// MemoryStore keeps attachments in process memory.
type MemoryStore struct {
	mu          sync.RWMutex
	records     map[string]*memoryRecord
	now         func() time.Time
	broadcaster *changeBroadcaster
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records:     map[string]*memoryRecord{},
		now:         time.Now,
		broadcaster: newChangeBroadcaster(),
	}
}

func (s *MemoryStore) Create(_ context.Context, id, title, filePath string) (string, error) {
	up, err := readUpload(id, title, filePath)
	if err != nil {
		return "", err
	}
	id = newAttachmentID(up.id)
	now := s.now().UTC()

	s.mu.Lock()
	if _, exists := s.records[id]; exists {
		s.mu.Unlock()
		return "", ErrAlreadyExists
	}
	s.records[id] = &memoryRecord{title: up.title, mimeType: up.mimeType, data: up.data, updatedAt: now}
	s.mu.Unlock()

	s.broadcaster.Broadcast(ChangeEvent{Type: ChangeCreated, ID: id, Title: up.title, UpdatedAt: now})
	return id, nil
}

func (s *MemoryStore) Update(_ context.Context, id, title, filePath string) error {
	up, err := readUpload(id, title, filePath)
	if err != nil {
		return err
	}
	now := s.now().UTC()

	s.mu.Lock()
	record, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return notFound(id)
	}
	record.title = up.title
	record.mimeType = up.mimeType
	record.data = up.data
	record.updatedAt = now
	s.mu.Unlock()

	s.broadcaster.Broadcast(ChangeEvent{Type: ChangeUpdated, ID: id, Title: up.title, UpdatedAt: now})
	return nil
}

func (s *MemoryStore) Metadata(_ context.Context, id string, _ ...string) (*interfaces.AttachmentMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, notFound(id)
	}
	return &interfaces.AttachmentMetadata{
		ID:        id,
		Title:     record.title,
		MimeType:  record.mimeType,
		Size:      int64(len(record.data)),
		UpdatedAt: record.updatedAt,
	}, nil
}

func (s *MemoryStore) Bytes(_ context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return nil, notFound(id)
	}
	return append([]byte(nil), record.data...), nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	record, ok := s.records[id]
	if !ok {
		s.mu.Unlock()
		return notFound(id)
	}
	delete(s.records, id)
	s.mu.Unlock()

	s.broadcaster.Broadcast(ChangeEvent{Type: ChangeDeleted, ID: id, Title: record.title, UpdatedAt: s.now().UTC()})
	return nil
}

// Subscribe delivers change events until the context is cancelled.
func (s *MemoryStore) Subscribe(ctx context.Context) (<-chan ChangeEvent, error) {
	return s.broadcaster.Subscribe(ctx)
}
