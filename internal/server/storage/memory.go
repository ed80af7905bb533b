package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/gemdeck/internal/server/models"
)

// MemoryStore keeps blobs in process memory. It backs development runs and
// tests.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]*models.Object
	now     func() time.Time
}

var _ ObjectStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objects: make(map[string]*models.Object), now: time.Now}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (*models.Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	cp.Body = append([]byte(nil), o.Body...)
	return &cp, nil
}

func (s *MemoryStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	body := append([]byte(nil), data...)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.objects[key] = &models.Object{
		ObjectInfo: models.ObjectInfo{
			Key:         key,
			Size:        int64(len(body)),
			Uploaded:    s.now().UTC(),
			ContentType: contentType,
			ETag:        ComputeETag(body),
		},
		Body: body,
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.objects, key)
	return nil
}

func (s *MemoryStore) List(ctx context.Context, prefix string, limit int) ([]models.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.ObjectInfo
	for k, o := range s.objects {
		if strings.HasPrefix(k, prefix) {
			out = append(out, o.ObjectInfo)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
