package di

import (
	"context"
	"fmt"
	"sync"

	"github.com/goliatone/go-excalidraw/pkg/interfaces"
)

// attachmentStoreProxy routes calls to the current attachment store so the
// codec and resolver keep working across a swap.
type attachmentStoreProxy struct {
	mu    sync.RWMutex
	store interfaces.AttachmentStore
}

var (
	_ interfaces.AttachmentStore   = (*attachmentStoreProxy)(nil)
	_ interfaces.AttachmentDeleter = (*attachmentStoreProxy)(nil)
)

func newAttachmentStoreProxy(store interfaces.AttachmentStore) *attachmentStoreProxy {
	return &attachmentStoreProxy{store: store}
}

func (p *attachmentStoreProxy) swap(store interfaces.AttachmentStore) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if store != nil {
		p.store = store
	}
}

func (p *attachmentStoreProxy) current() interfaces.AttachmentStore {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.store
}

func (p *attachmentStoreProxy) Create(ctx context.Context, id, title, filePath string) (string, error) {
	return p.current().Create(ctx, id, title, filePath)
}

func (p *attachmentStoreProxy) Update(ctx context.Context, id, title, filePath string) error {
	return p.current().Update(ctx, id, title, filePath)
}

func (p *attachmentStoreProxy) Metadata(ctx context.Context, id string, fields ...string) (*interfaces.AttachmentMetadata, error) {
	return p.current().Metadata(ctx, id, fields...)
}

func (p *attachmentStoreProxy) Bytes(ctx context.Context, id string) ([]byte, error) {
	return p.current().Bytes(ctx, id)
}

func (p *attachmentStoreProxy) Delete(ctx context.Context, id string) error {
	deleter, ok := p.current().(interfaces.AttachmentDeleter)
	if !ok {
		return fmt.Errorf("di: attachment store %T cannot delete", p.current())
	}
	return deleter.Delete(ctx, id)
}
