package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rolegate/internal/rbac/model"
	"rolegate/internal/rbac/permission"
	"rolegate/internal/rbac/repository"
)

// SystemPermissionService reads and edits the system permission registry.
// Stored rows override the embedded defaults. Every replica keeps its own
// registry, so rows are re-read from the store before they are evaluated or
// rewritten.
type SystemPermissionService struct {
	Repo repository.SystemPermissionRepository
	deps Deps
}

func NewSystemPermissionService(repo repository.SystemPermissionRepository, deps Deps) *SystemPermissionService {
	return &SystemPermissionService{Repo: repo, deps: deps.withDefaults()}
}

func (s *SystemPermissionService) registry() *permission.Registry {
	return s.deps.Evaluator.Registry()
}

// Load copies stored overrides into the registry. Call once at startup after
// every resource type has registered its defaults.
func (s *SystemPermissionService) Load(ctx context.Context) error {
	n, err := s.sync(ctx)
	if err != nil {
		return err
	}
	s.deps.logger().Info("system permissions loaded", "stored", n, "total", len(s.registry().List()))
	return nil
}

// Refresh implements PermissionRefresher. A name without a stored row keeps
// its default.
func (s *SystemPermissionService) Refresh(ctx context.Context, name string) error {
	sp, err := s.Repo.GetSystemPermission(ctx, name)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("refresh system permission %s: %w", name, err)
	}
	s.registry().Set(sp)
	return nil
}

// sync copies every stored row into the registry and returns how many there
// were.
func (s *SystemPermissionService) sync(ctx context.Context) (int, error) {
	stored, err := s.Repo.ListSystemPermissions(ctx)
	if err != nil {
		return 0, fmt.Errorf("load system permissions: %w", err)
	}
	for _, sp := range stored {
		s.registry().Set(sp)
	}
	return len(stored), nil
}

func (s *SystemPermissionService) List(ctx context.Context, holder model.PermissionHolder) ([]*model.SystemPermission, error) {
	ok, err := s.canManage(ctx, holder)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrPermissionDenied
	}
	if _, err := s.sync(ctx); err != nil {
		return nil, err
	}
	return s.registry().List(), nil
}

func (s *SystemPermissionService) Get(ctx context.Context, holder model.PermissionHolder, name string) (*model.SystemPermission, error) {
	if err := s.Refresh(ctx, name); err != nil {
		return nil, err
	}
	sp, ok := s.registry().Get(name)
	if !ok {
		return nil, model.ErrNotFound
	}
	ok, err := s.canManage(ctx, holder)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, model.ErrPermissionDenied
	}
	return sp, nil
}

// Update replaces the expression of an existing system permission.
func (s *SystemPermissionService) Update(ctx context.Context, holder model.PermissionHolder, name string, req model.UpdateSystemPermissionReq) (*model.SystemPermission, error) {
	release, err := s.deps.guard().Shared(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := s.Refresh(ctx, name); err != nil {
		return nil, err
	}
	existing, ok := s.registry().Get(name)
	if !ok {
		return nil, model.ErrNotFound
	}
	allowed, err := s.canManage(ctx, holder)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, model.ErrPermissionDenied
	}

	const field = "permission"
	result := model.NewProcessResult()
	// only the manage permission itself can lock its editor out
	readField := name == model.PermSystemPermissionsManage
	s.deps.Validator.ValidatePermission(result, field, holder, existing.Permission, req.Permission, readField)
	if err := checkRolesExist(ctx, s.deps.Roles, result, field, req.Permission); err != nil {
		return nil, err
	}
	if result.HasErrors() {
		s.deps.Metrics.RecordValidationFailures(model.EntitySystemPermission, result.Keys())
		return nil, result.Err()
	}

	updated := &model.SystemPermission{
		Name:        existing.Name,
		Description: existing.Description,
		Permission:  req.Permission,
		UpdatedAt:   time.Now(),
		UpdatedBy:   holderID(holder),
	}
	if err := s.Repo.UpsertSystemPermission(ctx, updated); err != nil {
		return nil, err
	}
	s.registry().Set(updated)

	recordHistory(s.deps.History, repository.HistoryEntry{
		Operation:   model.OpSystemPermissionUpdate,
		CallerID:    holderID(holder),
		EntityType:  model.EntitySystemPermission,
		EntityXid:   name,
		Permissions: map[string]*model.MangoPermission{field: req.Permission},
	})
	return updated, nil
}

func (s *SystemPermissionService) canManage(ctx context.Context, holder model.PermissionHolder) (bool, error) {
	if err := s.Refresh(ctx, model.PermSystemPermissionsManage); err != nil {
		return false, err
	}
	ok := s.deps.Evaluator.HasCreatePermission(holder, model.PermSystemPermissionsManage)
	s.deps.Metrics.RecordDecision(model.EntitySystemPermission, opEdit, ok)
	return ok, nil
}

func (s *SystemPermissionService) CascadeName() string {
	return model.EntitySystemPermission
}

func (s *SystemPermissionService) ReferencesRole(ctx context.Context, roleXid string) (bool, error) {
	if _, err := s.sync(ctx); err != nil {
		return false, err
	}
	for _, sp := range s.registry().List() {
		if sp.Permission.ContainsRole(roleXid) {
			return true, nil
		}
	}
	return false, nil
}

// RemoveRole rewrites every system permission referencing roleXid. Stored
// rows are reloaded first so edits made through another replica are kept.
// The registry entry changes only after the row is stored.
func (s *SystemPermissionService) RemoveRole(ctx context.Context, roleXid string) (int, error) {
	if _, err := s.sync(ctx); err != nil {
		return 0, err
	}
	changed := 0
	for _, sp := range s.registry().List() {
		if !sp.Permission.ContainsRole(roleXid) {
			continue
		}
		next := *sp
		next.Permission = sp.Permission.WithoutRole(roleXid)
		next.UpdatedAt = time.Now()
		next.UpdatedBy = "system"
		if err := s.Repo.UpsertSystemPermission(ctx, &next); err != nil {
			return changed, fmt.Errorf("rewrite system permission %s: %w", sp.Name, err)
		}
		s.registry().Set(&next)
		changed++
		recordHistory(s.deps.History, repository.HistoryEntry{
			Operation:   model.OpSystemPermissionUpdate,
			CallerID:    "system",
			EntityType:  model.EntitySystemPermission,
			EntityXid:   sp.Name,
			Role:        roleXid,
			Permissions: map[string]*model.MangoPermission{"permission": next.Permission},
		})
	}
	return changed, nil
}
