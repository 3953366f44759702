package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"rolegate/internal/rbac/model"
)

type MemoryResourceRepository[P any] struct {
	mu      sync.RWMutex
	records map[int64]*model.Resource[P]
}

func NewMemoryResourceRepository[P any]() *MemoryResourceRepository[P] {
	return &MemoryResourceRepository[P]{records: make(map[int64]*model.Resource[P])}
}

func (r *MemoryResourceRepository[P]) EnsureIndexes(ctx context.Context) error {
	return nil
}

func (r *MemoryResourceRepository[P]) Insert(ctx context.Context, res *model.Resource[P]) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[res.ID]; ok {
		return ErrDuplicate
	}
	if r.byXidLocked(res.Xid) != nil {
		return ErrDuplicate
	}
	now := time.Now()
	res.CreatedAt = now
	res.UpdatedAt = now
	res.Version = 1
	res.RoleXids = res.ReferencedRoles()
	r.records[res.ID] = res.Clone()
	return nil
}

func (r *MemoryResourceRepository[P]) Update(ctx context.Context, res *model.Resource[P], expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.records[res.ID]
	if !ok {
		return ErrNotFound
	}
	if existing.Version != expectedVersion {
		return ErrVersionConflict
	}
	if other := r.byXidLocked(res.Xid); other != nil && other.ID != res.ID {
		return ErrDuplicate
	}
	res.CreatedAt = existing.CreatedAt
	res.UpdatedAt = time.Now()
	res.Version = expectedVersion + 1
	res.RoleXids = res.ReferencedRoles()
	r.records[res.ID] = res.Clone()
	return nil
}

func (r *MemoryResourceRepository[P]) Delete(ctx context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return ErrNotFound
	}
	delete(r.records, id)
	return nil
}

func (r *MemoryResourceRepository[P]) GetByID(ctx context.Context, id int64) (*model.Resource[P], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return res.Clone(), nil
}

func (r *MemoryResourceRepository[P]) GetByXid(ctx context.Context, xid string) (*model.Resource[P], error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := r.byXidLocked(xid)
	if res == nil {
		return nil, ErrNotFound
	}
	return res.Clone(), nil
}

func (r *MemoryResourceRepository[P]) byXidLocked(xid string) *model.Resource[P] {
	for _, res := range r.records {
		if res.Xid == xid {
			return res
		}
	}
	return nil
}

func (r *MemoryResourceRepository[P]) List(ctx context.Context) ([]*model.Resource[P], error) {
	return r.filter(func(*model.Resource[P]) bool { return true }), nil
}

func (r *MemoryResourceRepository[P]) FindByRole(ctx context.Context, roleXid string) ([]*model.Resource[P], error) {
	return r.filter(func(res *model.Resource[P]) bool {
		return containsString(res.RoleXids, roleXid)
	}), nil
}

func (r *MemoryResourceRepository[P]) CountByRole(ctx context.Context, roleXid string) (int64, error) {
	found, _ := r.FindByRole(ctx, roleXid)
	return int64(len(found)), nil
}

func (r *MemoryResourceRepository[P]) filter(keep func(*model.Resource[P]) bool) []*model.Resource[P] {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.Resource[P], 0, len(r.records))
	for _, res := range r.records {
		if keep(res) {
			out = append(out, res.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
