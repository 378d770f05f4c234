package repo

import (
	"context"
	"sync"

	"github.com/meta-secret/meta-secret-go/internal/model"
)

// MemRepo is an in-memory Repository, used by tests and by the CLI's
// one-shot "dry run" mode. It is safe for concurrent use.
type MemRepo struct {
	mu    sync.RWMutex
	store map[string][]byte
}

func NewMemRepo() *MemRepo {
	return &MemRepo{store: make(map[string][]byte)}
}

func (r *MemRepo) Save(_ context.Context, id model.ArtifactId, payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := id.Key()
	if _, exists := r.store[key]; exists {
		return ErrAlreadyExists
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	r.store[key] = cp
	return nil
}

func (r *MemRepo) FindOne(_ context.Context, id model.ArtifactId) ([]byte, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	payload, ok := r.store[id.Key()]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	return cp, true, nil
}

func (r *MemRepo) Delete(_ context.Context, id model.ArtifactId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.store, id.Key())
	return nil
}

func (r *MemRepo) Close() error {
	return nil
}
