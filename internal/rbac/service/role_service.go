package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"rolegate/internal/rbac/lock"
	"rolegate/internal/rbac/metrics"
	"rolegate/internal/rbac/model"
	"rolegate/internal/rbac/repository"
	"rolegate/internal/rbac/util"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/errgroup"
)

const roleSequence = "roles"

type RoleServiceOptions struct {
	CacheSize      int
	CacheTTL       time.Duration
	CascadeRetries int
	RetryBackoff   time.Duration
}

// RoleService owns the role lifecycle, including the deletion cascade into
// every registered Cascader.
type RoleService struct {
	Repo      repository.RoleRepository
	Sequences repository.SequenceRepository
	Mappings  repository.MappingRepository
	History   repository.HistoryRepository
	Guard     lock.Guard
	Metrics   *metrics.Metrics
	Logger    *slog.Logger

	cache   *expirable.LRU[string, *model.Role]
	retries int
	backoff time.Duration

	mu        sync.RWMutex
	cascaders []Cascader
}

func NewRoleService(store repository.Store, history repository.HistoryRepository, guard lock.Guard, m *metrics.Metrics, opts RoleServiceOptions) *RoleService {
	if opts.CacheSize <= 0 {
		opts.CacheSize = 512
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = 100 * time.Millisecond
	}
	if guard == nil {
		guard = lock.NewLocalGuard()
	}
	return &RoleService{
		Repo:      store,
		Sequences: store,
		Mappings:  store,
		History:   history,
		Guard:     guard,
		Metrics:   m,
		Logger:    util.GetLogger(),
		cache:     expirable.NewLRU[string, *model.Role](opts.CacheSize, nil, opts.CacheTTL),
		retries:   opts.CascadeRetries,
		backoff:   opts.RetryBackoff,
	}
}

// RegisterCascader adds c to the set notified on role deletion.
func (s *RoleService) RegisterCascader(c Cascader) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cascaders = append(s.cascaders, c)
}

func (s *RoleService) registered() []Cascader {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Cascader(nil), s.cascaders...)
}

// EnsureSystemRoles seeds superadmin, user and anonymous when missing.
func (s *RoleService) EnsureSystemRoles(ctx context.Context) error {
	for _, xid := range model.SystemRoles {
		_, err := s.Repo.GetRoleByXid(ctx, xid)
		if err == nil {
			continue
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		id, err := s.Sequences.NextID(ctx, roleSequence)
		if err != nil {
			return err
		}
		role := &model.Role{ID: id, Xid: xid, Name: xid, CreatedBy: "system"}
		// another instance may have seeded it first
		if err := s.Repo.InsertRole(ctx, role); err != nil && !errors.Is(err, repository.ErrDuplicate) {
			return err
		}
		s.Logger.Info("seeded system role", "xid", xid)
	}
	return nil
}

func (s *RoleService) Get(ctx context.Context, xid string) (*model.Role, error) {
	if role, ok := s.cache.Get(xid); ok {
		s.Metrics.RecordCacheLookup(true)
		c := *role
		return &c, nil
	}
	s.Metrics.RecordCacheLookup(false)
	role, err := s.Repo.GetRoleByXid(ctx, xid)
	if err != nil {
		return nil, translate(err)
	}
	c := *role
	s.cache.Add(xid, &c)
	return role, nil
}

func (s *RoleService) GetByID(ctx context.Context, id int64) (*model.Role, error) {
	role, err := s.Repo.GetRoleByID(ctx, id)
	if err != nil {
		return nil, translate(err)
	}
	return role, nil
}

func (s *RoleService) List(ctx context.Context) ([]*model.Role, error) {
	return s.Repo.ListRoles(ctx)
}

// MappingReport lists the resource permissions the role is attached to,
// from the mapping side table. Superadmin only.
func (s *RoleService) MappingReport(ctx context.Context, holder model.PermissionHolder, xid string) ([]model.PermissionMapping, error) {
	if holder == nil || !holder.IsSuperadmin() {
		return nil, model.ErrPermissionDenied
	}
	if _, err := s.Repo.GetRoleByXid(ctx, xid); err != nil {
		return nil, translate(err)
	}
	rows, err := s.Mappings.FindRoleMappings(ctx, xid)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.PermissionMapping{}
	}
	return rows, nil
}

// MissingRoles implements RoleLookup. Writes call it under the shared guard,
// so it reads the store: another replica may have deleted a role that is
// still in this replica's cache.
func (s *RoleService) MissingRoles(ctx context.Context, xids []string) ([]string, error) {
	var missing []string
	for _, xid := range xids {
		exists, err := s.xidExists(ctx, xid)
		if err != nil {
			return nil, err
		}
		if !exists {
			s.cache.Remove(xid)
			missing = append(missing, xid)
		}
	}
	return missing, nil
}

func (s *RoleService) Insert(ctx context.Context, holder model.PermissionHolder, req model.CreateRoleReq) (*model.Role, error) {
	if holder == nil || !holder.IsSuperadmin() {
		return nil, model.ErrPermissionDenied
	}

	if req.Xid == "" {
		req.Xid = model.RoleXidPrefix + uuid.NewString()
	}

	result := model.NewProcessResult()
	s.validateName(result, req.Name)
	if len(req.Xid) > model.XidMaxLength {
		result.AddContextualMessage("xid", model.CodeTooLong, "xid is too long")
	} else if used, err := s.xidExists(ctx, req.Xid); err != nil {
		return nil, err
	} else if used {
		result.AddContextualMessage("xid", model.CodeXidUsed, "xid "+req.Xid+" is already in use")
	}
	if result.HasErrors() {
		s.Metrics.RecordValidationFailures(model.EntityRole, result.Keys())
		return nil, result.Err()
	}

	id, err := s.Sequences.NextID(ctx, roleSequence)
	if err != nil {
		return nil, err
	}
	role := &model.Role{
		ID:        id,
		Xid:       req.Xid,
		Name:      req.Name,
		CreatedBy: holder.HolderName(),
		UpdatedBy: holder.HolderName(),
	}
	if err := s.Repo.InsertRole(ctx, role); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, xidUsed(req.Xid)
		}
		return nil, err
	}

	recordHistory(s.History, repository.HistoryEntry{
		Operation:  model.OpRoleCreate,
		CallerID:   holder.HolderName(),
		EntityType: model.EntityRole,
		EntityXid:  role.Xid,
		EntityID:   role.ID,
	})
	s.Logger.Info("role created", "xid", role.Xid, "caller", holder.HolderName())
	return role, nil
}

// Update changes the xid and name of the role currently keyed by xid.
func (s *RoleService) Update(ctx context.Context, holder model.PermissionHolder, xid string, req model.UpdateRoleReq) (*model.Role, error) {
	existing, err := s.Repo.GetRoleByXid(ctx, xid)
	if err != nil {
		return nil, translate(err)
	}

	newXid := req.Xid
	if newXid == "" {
		newXid = existing.Xid
	}

	if existing.IsSystem() && (newXid != existing.Xid || req.Name != existing.Name) {
		return nil, systemRoleError(existing.Xid)
	}
	if holder == nil || !holder.IsSuperadmin() {
		return nil, model.ErrPermissionDenied
	}
	if existing.IsSystem() {
		return existing, nil
	}

	result := model.NewProcessResult()
	s.validateName(result, req.Name)

	renamed := newXid != existing.Xid
	if renamed {
		// hold off writers so no new reference to the old xid appears
		// between the check and the rename
		lease, release, err := s.Guard.Exclusive(ctx)
		if err != nil {
			return nil, err
		}
		defer release()
		ctx = lease

		if len(newXid) > model.XidMaxLength {
			result.AddContextualMessage("xid", model.CodeTooLong, "xid is too long")
		} else if used, err := s.xidExists(ctx, newXid); err != nil {
			return nil, err
		} else if used {
			result.AddContextualMessage("xid", model.CodeXidUsed, "xid "+newXid+" is already in use")
		}
		referenced, err := s.referenced(ctx, existing.Xid)
		if err != nil {
			return nil, err
		}
		if referenced {
			result.AddContextualMessage("xid", model.CodeXidImmutable, "xid cannot change once the role is referenced")
		}
	}
	if result.HasErrors() {
		s.Metrics.RecordValidationFailures(model.EntityRole, result.Keys())
		return nil, result.Err()
	}

	updated := *existing
	updated.Xid = newXid
	updated.Name = req.Name
	updated.UpdatedBy = holder.HolderName()
	if err := s.Repo.UpdateRole(ctx, &updated); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, xidUsed(newXid)
		}
		return nil, translate(err)
	}
	s.cache.Remove(existing.Xid)
	s.cache.Remove(newXid)

	recordHistory(s.History, repository.HistoryEntry{
		Operation:  model.OpRoleUpdate,
		CallerID:   holder.HolderName(),
		EntityType: model.EntityRole,
		EntityXid:  updated.Xid,
		EntityID:   updated.ID,
		Role:       existing.Xid,
	})
	return &updated, nil
}

// Delete removes a role after rewriting every stored reference to it. When
// the cascade cannot complete the role is kept and ErrCascadeFailed is
// returned.
func (s *RoleService) Delete(ctx context.Context, holder model.PermissionHolder, xid string) error {
	if model.IsSystemRole(xid) {
		return systemRoleError(xid)
	}
	if holder == nil || !holder.IsSuperadmin() {
		return model.ErrPermissionDenied
	}

	role, err := s.Repo.GetRoleByXid(ctx, xid)
	if err != nil {
		return translate(err)
	}

	lease, release, err := s.Guard.Exclusive(ctx)
	if err != nil {
		return err
	}
	defer release()

	err = s.cascade(lease, role.Xid)
	if err == nil {
		// cascaders that ignore the context still finish after the lock
		// lapsed; writers may already have resumed
		err = lease.Err()
	}
	if err != nil {
		s.Metrics.RecordCascade(false)
		s.Logger.Error("role deletion aborted", "xid", role.Xid, "error", err)
		return fmt.Errorf("%w: role %s: %w", model.ErrCascadeFailed, role.Xid, err)
	}

	if _, err := s.Mappings.DeleteRoleMappings(lease, role.Xid); err != nil {
		s.Metrics.RecordCascade(false)
		return fmt.Errorf("%w: role %s: %w", model.ErrCascadeFailed, role.Xid, err)
	}
	if err := s.Repo.DeleteRole(lease, role.ID); err != nil {
		s.Metrics.RecordCascade(false)
		return translate(err)
	}
	s.cache.Remove(role.Xid)
	s.Metrics.RecordCascade(true)

	recordHistory(s.History, repository.HistoryEntry{
		Operation:  model.OpRoleDelete,
		CallerID:   holder.HolderName(),
		EntityType: model.EntityRole,
		EntityXid:  role.Xid,
		EntityID:   role.ID,
		Role:       role.Xid,
	})
	s.Logger.Info("role deleted", "xid", role.Xid, "caller", holder.HolderName())
	return nil
}

// cascade runs every cascader, retrying the whole round on failure. Each
// round is safe to repeat since removing an absent role changes nothing.
func (s *RoleService) cascade(ctx context.Context, xid string) error {
	var err error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			s.Logger.Warn("retrying role cascade", "xid", xid, "attempt", attempt, "error", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * s.backoff):
			}
		}
		if err = s.cascadeOnce(ctx, xid); err == nil {
			return nil
		}
	}
	return err
}

func (s *RoleService) cascadeOnce(ctx context.Context, xid string) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range s.registered() {
		g.Go(func() error {
			n, err := c.RemoveRole(gctx, xid)
			if err != nil {
				return fmt.Errorf("%s: %w", c.CascadeName(), err)
			}
			s.Metrics.RecordRewrites(c.CascadeName(), n)
			if n > 0 {
				s.Logger.Info("cascade rewrite", "target", c.CascadeName(), "role", xid, "records", n)
			}
			return nil
		})
	}
	return g.Wait()
}

func (s *RoleService) referenced(ctx context.Context, xid string) (bool, error) {
	for _, c := range s.registered() {
		ok, err := c.ReferencesRole(ctx, xid)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

func (s *RoleService) xidExists(ctx context.Context, xid string) (bool, error) {
	_, err := s.Repo.GetRoleByXid(ctx, xid)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	return false, err
}

func (s *RoleService) validateName(result *model.ProcessResult, name string) {
	switch {
	case name == "":
		result.AddContextualMessage("name", model.CodeRequired, "name is required")
	case len(name) > model.NameMaxLength:
		result.AddContextualMessage("name", model.CodeTooLong, "name is too long")
	}
}

func systemRoleError(xid string) error {
	result := model.NewProcessResult()
	result.AddContextualMessage("xid", model.CodeSystemRole, "system role "+xid+" cannot be changed or deleted")
	return result.Err()
}
