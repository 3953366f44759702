package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rolegate/internal/rbac/model"
	"rolegate/internal/rbac/repository"
)

// AssignmentService stores the explicit roles of each user and resolves the
// PermissionHolder for a request.
type AssignmentService struct {
	Repo repository.AssignmentRepository
	deps Deps
}

func NewAssignmentService(repo repository.AssignmentRepository, deps Deps) *AssignmentService {
	return &AssignmentService{Repo: repo, deps: deps.withDefaults()}
}

// Resolve returns the holder for userID. An empty id is anonymous; a user
// without an assignment holds only the implicit user role.
func (s *AssignmentService) Resolve(ctx context.Context, userID string) (model.PermissionHolder, error) {
	if userID == "" {
		return model.AnonymousHolder(), nil
	}
	a, err := s.Repo.GetAssignment(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return &model.User{ID: userID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve holder %s: %w", userID, err)
	}
	return a.Holder(), nil
}

// GetRoles returns the effective roles of userID. Callers may read their own
// roles; reading anyone else's needs superadmin.
func (s *AssignmentService) GetRoles(ctx context.Context, holder model.PermissionHolder, userID string) ([]string, error) {
	if holder == nil || (holder.HolderName() != userID && !holder.IsSuperadmin()) {
		return nil, model.ErrPermissionDenied
	}
	h, err := s.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	return h.RoleXids(), nil
}

// SetRoles replaces the explicit roles of userID.
func (s *AssignmentService) SetRoles(ctx context.Context, holder model.PermissionHolder, userID string, req model.SetUserRolesReq) (*model.RoleAssignment, error) {
	if holder == nil || !holder.IsSuperadmin() {
		return nil, model.ErrPermissionDenied
	}
	release, err := s.deps.guard().Shared(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	result := model.NewProcessResult()
	if userID == "" {
		result.AddContextualMessage("user_id", model.CodeRequired, "user id is required")
	}
	explicit := make([]string, 0, len(req.Roles))
	for _, xid := range req.Roles {
		if xid == model.RoleUser || xid == model.RoleAnonymous {
			result.AddContextualMessage("roles", model.CodeImplicitRole, xid+" is implicit and cannot be assigned")
			continue
		}
		explicit = append(explicit, xid)
	}
	if s.deps.Roles != nil && len(explicit) > 0 {
		missing, err := s.deps.Roles.MissingRoles(ctx, explicit)
		if err != nil {
			return nil, err
		}
		for _, xid := range missing {
			result.AddContextualMessage("roles", model.CodeRoleNotFound, "role "+xid+" does not exist")
		}
	}
	if result.HasErrors() {
		s.deps.Metrics.RecordValidationFailures(model.EntityAssignment, result.Keys())
		return nil, result.Err()
	}

	a := &model.RoleAssignment{
		UserID:    userID,
		Roles:     explicit,
		UpdatedAt: time.Now(),
		UpdatedBy: holderID(holder),
	}
	if err := s.Repo.UpsertAssignment(ctx, a); err != nil {
		return nil, err
	}

	recordHistory(s.deps.History, repository.HistoryEntry{
		Operation:  model.OpAssignmentUpdate,
		CallerID:   holderID(holder),
		EntityType: model.EntityAssignment,
		EntityXid:  userID,
		Roles:      explicit,
	})
	return a, nil
}

// Bootstrap grants superadmin to each of userIDs, keeping their other roles.
// It runs at startup without a caller.
func (s *AssignmentService) Bootstrap(ctx context.Context, userIDs []string) error {
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		a, err := s.Repo.GetAssignment(ctx, id)
		switch {
		case errors.Is(err, repository.ErrNotFound):
			a = &model.RoleAssignment{UserID: id}
		case err != nil:
			return fmt.Errorf("bootstrap %s: %w", id, err)
		}
		if a.Holder().IsSuperadmin() {
			continue
		}
		a.Roles = append(a.Roles, model.RoleSuperadmin)
		a.UpdatedAt = time.Now()
		a.UpdatedBy = "system"
		if err := s.Repo.UpsertAssignment(ctx, a); err != nil {
			return fmt.Errorf("bootstrap %s: %w", id, err)
		}
		s.deps.logger().Info("granted superadmin", "user_id", id)
	}
	return nil
}

func (s *AssignmentService) CascadeName() string {
	return "assignments"
}

func (s *AssignmentService) ReferencesRole(ctx context.Context, roleXid string) (bool, error) {
	n, err := s.Repo.CountAssignmentsByRole(ctx, roleXid)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (s *AssignmentService) RemoveRole(ctx context.Context, roleXid string) (int, error) {
	n, err := s.Repo.RemoveRoleFromAssignments(ctx, roleXid)
	if err != nil {
		return 0, fmt.Errorf("remove %s from assignments: %w", roleXid, err)
	}
	return int(n), nil
}
