package repository

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"rolegate/internal/rbac/model"
)

type MemoryHistoryRepository struct {
	mu      sync.RWMutex
	records []*model.PermissionHistory
}

func NewMemoryHistoryRepository() *MemoryHistoryRepository {
	return &MemoryHistoryRepository{}
}

func (r *MemoryHistoryRepository) EnsureHistoryIndexes(ctx context.Context) error {
	return nil
}

func (r *MemoryHistoryRepository) CreateHistory(ctx context.Context, history *model.PermissionHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if history.CreatedAt.IsZero() {
		history.CreatedAt = time.Now()
	}
	c := *history
	c.ID = strconv.Itoa(len(r.records) + 1)
	r.records = append(r.records, &c)
	return nil
}

// FindHistory returns matches newest first.
func (r *MemoryHistoryRepository) FindHistory(ctx context.Context, req model.GetPermissionHistoryReq) ([]*model.PermissionHistory, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*model.PermissionHistory
	for i := len(r.records) - 1; i >= 0; i-- {
		if historyMatches(r.records[i], req) {
			c := *r.records[i]
			matched = append(matched, &c)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	page, size := req.Page, req.Size
	if page <= 0 {
		page = model.DefaultPage
	}
	if size <= 0 {
		size = model.DefaultSize
	}
	start := (page - 1) * size
	if start >= len(matched) {
		return []*model.PermissionHistory{}, total, nil
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], total, nil
}
