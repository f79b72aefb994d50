// Package media stores the files behind Image and File blocks.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"

	"inkwell/api/internal/block"
	"inkwell/api/internal/util"
)

var (
	ErrTooLarge    = errors.New("media too large")
	ErrEmpty       = errors.New("media empty")
	ErrNotAnImage  = errors.New("media is not an image")
	ErrUnavailable = errors.New("media storage not configured")
)

// Object describes one stored upload.
type Object struct {
	Key         string `json:"key"`
	URL         string `json:"url"`
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Size        int64  `json:"size"`
}

// Upload is a file on its way into storage.
type Upload struct {
	WorkspaceID string
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Store is the object storage backend.
type Store interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	Remove(ctx context.Context, key string) error
}

// Service validates uploads and assigns their keys.
type Service struct {
	store   Store
	maxSize int64
}

func NewService(store Store, maxSize int64) *Service {
	return &Service{store: store, maxSize: maxSize}
}

// Save stores the upload for a block of the given kind. Image blocks only
// accept image content types.
func (s *Service) Save(ctx context.Context, kind block.Kind, up Upload) (Object, error) {
	if s == nil || s.store == nil {
		return Object{}, ErrUnavailable
	}
	if up.Size <= 0 {
		return Object{}, ErrEmpty
	}
	if s.maxSize > 0 && up.Size > s.maxSize {
		return Object{}, fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, up.Size, s.maxSize)
	}
	contentType := up.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if kind == block.KindImage && !strings.HasPrefix(contentType, "image/") {
		return Object{}, fmt.Errorf("%w: %s", ErrNotAnImage, contentType)
	}

	key := ObjectKey(up.WorkspaceID, up.Name)
	url, err := s.store.Put(ctx, key, up.Body, up.Size, contentType)
	if err != nil {
		return Object{}, fmt.Errorf("put object %s: %w", key, err)
	}
	return Object{
		Key:         key,
		URL:         url,
		Name:        path.Base(up.Name),
		ContentType: contentType,
		Size:        up.Size,
	}, nil
}

func (s *Service) Remove(ctx context.Context, key string) error {
	if s == nil || s.store == nil {
		return ErrUnavailable
	}
	return s.store.Remove(ctx, key)
}

// ObjectKey namespaces uploads by workspace and keeps a cleaned extension.
func ObjectKey(workspaceID, name string) string {
	ext := strings.ToLower(path.Ext(path.Base(name)))
	clean := make([]rune, 0, len(ext))
	for _, r := range ext {
		if r == '.' || (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			clean = append(clean, r)
		}
	}
	if len(clean) > 10 {
		clean = clean[:10]
	}
	return workspaceID + "/" + util.NewID("obj") + string(clean)
}

// MemoryStore keeps objects in process.
type MemoryStore struct {
	mu      sync.Mutex
	baseURL string
	objects map[string][]byte
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{baseURL: strings.TrimRight(baseURL, "/"), objects: map[string][]byte{}}
}

func (m *MemoryStore) Put(_ context.Context, key string, body io.Reader, _ int64, _ string) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	m.objects[key] = data
	m.mu.Unlock()
	return m.baseURL + "/" + key, nil
}

func (m *MemoryStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.objects, key)
	m.mu.Unlock()
	return nil
}

// Get returns a stored object's bytes.
func (m *MemoryStore) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.objects[key]
	return data, ok
}
