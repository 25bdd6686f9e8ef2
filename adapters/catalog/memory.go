package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"deview/domain/core"
	"deview/domain/upload"
	"deview/ports"
)

// memoryRepository keeps the catalog in process memory. It is used when no
// DATABASE_URL is configured, so records do not survive a restart.
type memoryRepository struct {
	mu      sync.RWMutex
	uploads map[core.UploadID]upload.Upload
}

// NewMemoryRepository creates an empty in-memory upload repository
func NewMemoryRepository() ports.UploadRepository {
	return &memoryRepository{uploads: make(map[core.UploadID]upload.Upload)}
}

func (r *memoryRepository) Create(ctx context.Context, u *upload.Upload) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.uploads[u.ID]; ok {
		return fmt.Errorf("failed to create upload: duplicate id %s", u.ID)
	}
	r.uploads[u.ID] = *u
	return nil
}

func (r *memoryRepository) GetByID(ctx context.Context, id core.UploadID) (*upload.Upload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.uploads[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUploadNotFound, id)
	}
	return &u, nil
}

func (r *memoryRepository) FindByHash(ctx context.Context, hash core.Hash) (*upload.Upload, error) {
	matches := r.list(func(u upload.Upload) bool { return u.Hash == hash }, 1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: hash %s", core.ErrUploadNotFound, hash.Short())
	}
	return matches[0], nil
}

func (r *memoryRepository) ListRecent(ctx context.Context, limit int) ([]*upload.Upload, error) {
	return r.list(func(upload.Upload) bool { return true }, limit), nil
}

func (r *memoryRepository) ListBySession(ctx context.Context, session core.SessionID, limit int) ([]*upload.Upload, error) {
	return r.list(func(u upload.Upload) bool { return u.SessionID == session }, limit), nil
}

func (r *memoryRepository) Delete(ctx context.Context, id core.UploadID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.uploads[id]; !ok {
		return fmt.Errorf("%w: %s", core.ErrUploadNotFound, id)
	}
	delete(r.uploads, id)
	return nil
}

// list returns matching uploads newest first, ties broken by id descending
// to match the sql ordering.
func (r *memoryRepository) list(keep func(upload.Upload) bool, limit int) []*upload.Upload {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := []*upload.Upload{}
	for _, u := range r.uploads {
		u := u
		if keep(u) {
			out = append(out, &u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit := normalizeLimit(limit); len(out) > limit {
		out = out[:limit]
	}
	return out
}
