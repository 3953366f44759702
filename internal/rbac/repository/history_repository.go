package repository

import (
	"context"
	"time"

	"rolegate/internal/rbac/model"
)

// HistoryRepository defines the interface for permission audit records
type HistoryRepository interface {
	// CreateHistory creates a new history record (append-only)
	CreateHistory(ctx context.Context, history *model.PermissionHistory) error
	// FindHistory finds history records with pagination and filtering
	FindHistory(ctx context.Context, req model.GetPermissionHistoryReq) ([]*model.PermissionHistory, int64, error)
	EnsureHistoryIndexes(ctx context.Context) error
}

// HistoryEntry is a helper struct for creating history records
type HistoryEntry struct {
	Operation   string
	CallerID    string
	EntityType  string
	EntityXid   string
	EntityID    int64
	Role        string
	Permissions map[string]*model.MangoPermission
	Roles       []string
}

// ToPermissionHistory converts HistoryEntry to PermissionHistory with timestamp
func (e *HistoryEntry) ToPermissionHistory() *model.PermissionHistory {
	return &model.PermissionHistory{
		Operation:   e.Operation,
		CallerID:    e.CallerID,
		EntityType:  e.EntityType,
		EntityXid:   e.EntityXid,
		EntityID:    e.EntityID,
		Role:        e.Role,
		Permissions: e.Permissions,
		Roles:       e.Roles,
		CreatedAt:   time.Now(),
	}
}

// historyMatches applies req's filters to h. Shared by the memory store.
func historyMatches(h *model.PermissionHistory, req model.GetPermissionHistoryReq) bool {
	if req.EntityType != "" && h.EntityType != req.EntityType {
		return false
	}
	if req.EntityXid != "" && h.EntityXid != req.EntityXid {
		return false
	}
	if req.CallerID != "" && h.CallerID != req.CallerID {
		return false
	}
	if req.Operation != "" && h.Operation != req.Operation {
		return false
	}
	if req.StartTime != nil && h.CreatedAt.Before(*req.StartTime) {
		return false
	}
	if req.EndTime != nil && h.CreatedAt.After(*req.EndTime) {
		return false
	}
	return true
}
