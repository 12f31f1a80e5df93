package objectstore

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
)

// PreviewStore stores renderable copies of uploaded documents under a
// previews/ prefix and hands out presigned URLs. It satisfies the extraction
// pipeline's preview contract: Allocate returns a (url, key) handle, Release
// deletes the underlying object.
type PreviewStore struct {
	store ObjectStore
}

func NewPreviewStore(store ObjectStore) *PreviewStore {
	return &PreviewStore{store: store}
}

func (p *PreviewStore) Allocate(ctx context.Context, name string, data []byte, contentType string) (string, string, error) {
	key := fmt.Sprintf("previews/%s%s", uuid.NewString(), filepath.Ext(name))

	if _, err := p.store.UploadFile(ctx, key, data, contentType); err != nil {
		return "", "", fmt.Errorf("upload preview: %w", err)
	}

	url, err := p.store.PresignGet(ctx, key)
	if err != nil {
		_ = p.store.DeleteFile(ctx, key)
		return "", "", fmt.Errorf("presign preview: %w", err)
	}
	return url, key, nil
}

func (p *PreviewStore) Release(ctx context.Context, key string) error {
	return p.store.DeleteFile(ctx, key)
}
