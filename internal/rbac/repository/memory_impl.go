package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"rolegate/internal/rbac/model"
)

// MemoryStore keeps everything in process. Used by tests and by the
// memory store driver.
type MemoryStore struct {
	mu          sync.RWMutex
	sequences   map[string]int64
	roles       map[int64]*model.Role
	mappings    []model.PermissionMapping
	systemPerms map[string]*model.SystemPermission
	assignments map[string]*model.RoleAssignment
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sequences:   make(map[string]int64),
		roles:       make(map[int64]*model.Role),
		systemPerms: make(map[string]*model.SystemPermission),
		assignments: make(map[string]*model.RoleAssignment),
	}
}

func (s *MemoryStore) EnsureIndexes(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) NextID(ctx context.Context, sequence string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sequences[sequence]++
	return s.sequences[sequence], nil
}

func (s *MemoryStore) InsertRole(ctx context.Context, role *model.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[role.ID]; ok {
		return ErrDuplicate
	}
	if s.roleByXidLocked(role.Xid) != nil {
		return ErrDuplicate
	}
	now := time.Now()
	if role.CreatedAt.IsZero() {
		role.CreatedAt = now
	}
	role.UpdatedAt = now
	c := *role
	s.roles[role.ID] = &c
	return nil
}

func (s *MemoryStore) UpdateRole(ctx context.Context, role *model.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.roles[role.ID]
	if !ok {
		return ErrNotFound
	}
	if other := s.roleByXidLocked(role.Xid); other != nil && other.ID != role.ID {
		return ErrDuplicate
	}
	role.UpdatedAt = time.Now()
	existing.Xid = role.Xid
	existing.Name = role.Name
	existing.UpdatedAt = role.UpdatedAt
	existing.UpdatedBy = role.UpdatedBy
	return nil
}

func (s *MemoryStore) DeleteRole(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.roles[id]; !ok {
		return ErrNotFound
	}
	delete(s.roles, id)
	return nil
}

func (s *MemoryStore) GetRoleByID(ctx context.Context, id int64) (*model.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	role, ok := s.roles[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *role
	return &c, nil
}

func (s *MemoryStore) GetRoleByXid(ctx context.Context, xid string) (*model.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	role := s.roleByXidLocked(xid)
	if role == nil {
		return nil, ErrNotFound
	}
	c := *role
	return &c, nil
}

func (s *MemoryStore) roleByXidLocked(xid string) *model.Role {
	for _, role := range s.roles {
		if role.Xid == xid {
			return role
		}
	}
	return nil
}

func (s *MemoryStore) ListRoles(ctx context.Context) ([]*model.Role, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.Role, 0, len(s.roles))
	for _, role := range s.roles {
		c := *role
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) ReplaceMappings(ctx context.Context, resourceType string, resourceID int64, rows []model.PermissionMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings = filterMappings(s.mappings, func(m model.PermissionMapping) bool {
		return !(m.ResourceType == resourceType && m.ResourceID == resourceID)
	})
	s.mappings = append(s.mappings, stampMappings(resourceType, resourceID, rows)...)
	return nil
}

func (s *MemoryStore) DeleteResourceMappings(ctx context.Context, resourceType string, resourceID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mappings = filterMappings(s.mappings, func(m model.PermissionMapping) bool {
		return !(m.ResourceType == resourceType && m.ResourceID == resourceID)
	})
	return nil
}

func (s *MemoryStore) DeleteRoleMappings(ctx context.Context, roleXid string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := len(s.mappings)
	s.mappings = filterMappings(s.mappings, func(m model.PermissionMapping) bool {
		return m.RoleXid != roleXid
	})
	return int64(before - len(s.mappings)), nil
}

func (s *MemoryStore) FindRoleMappings(ctx context.Context, roleXid string) ([]model.PermissionMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterMappings(s.mappings, func(m model.PermissionMapping) bool {
		return m.RoleXid == roleXid
	}), nil
}

func (s *MemoryStore) FindResourceMappings(ctx context.Context, resourceType string, resourceID int64) ([]model.PermissionMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return filterMappings(s.mappings, func(m model.PermissionMapping) bool {
		return m.ResourceType == resourceType && m.ResourceID == resourceID
	}), nil
}

// filterMappings returns a new slice holding the rows keep accepts.
func filterMappings(rows []model.PermissionMapping, keep func(model.PermissionMapping) bool) []model.PermissionMapping {
	out := make([]model.PermissionMapping, 0, len(rows))
	for _, m := range rows {
		if keep(m) {
			out = append(out, m)
		}
	}
	return out
}

func (s *MemoryStore) GetSystemPermission(ctx context.Context, name string) (*model.SystemPermission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.systemPerms[name]
	if !ok {
		return nil, ErrNotFound
	}
	c := *sp
	return &c, nil
}

func (s *MemoryStore) ListSystemPermissions(ctx context.Context) ([]*model.SystemPermission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*model.SystemPermission, 0, len(s.systemPerms))
	for _, sp := range s.systemPerms {
		c := *sp
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryStore) UpsertSystemPermission(ctx context.Context, sp *model.SystemPermission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sp.UpdatedAt.IsZero() {
		sp.UpdatedAt = time.Now()
	}
	c := *sp
	s.systemPerms[sp.Name] = &c
	return nil
}

func (s *MemoryStore) GetAssignment(ctx context.Context, userID string) (*model.RoleAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return copyAssignment(a), nil
}

func (s *MemoryStore) UpsertAssignment(ctx context.Context, a *model.RoleAssignment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	a.UpdatedAt = now
	if existing, ok := s.assignments[a.UserID]; ok {
		a.CreatedAt = existing.CreatedAt
	} else {
		a.CreatedAt = now
	}
	s.assignments[a.UserID] = copyAssignment(a)
	return nil
}

func (s *MemoryStore) CountAssignmentsByRole(ctx context.Context, roleXid string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, a := range s.assignments {
		if containsString(a.Roles, roleXid) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) RemoveRoleFromAssignments(ctx context.Context, roleXid string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, a := range s.assignments {
		if !containsString(a.Roles, roleXid) {
			continue
		}
		kept := make([]string, 0, len(a.Roles)-1)
		for _, r := range a.Roles {
			if r != roleXid {
				kept = append(kept, r)
			}
		}
		a.Roles = kept
		a.UpdatedAt = time.Now()
		n++
	}
	return n, nil
}

func copyAssignment(a *model.RoleAssignment) *model.RoleAssignment {
	c := *a
	c.Roles = append([]string(nil), a.Roles...)
	return &c
}

func containsString(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
