package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"rolegate/internal/rbac/lock"
	"rolegate/internal/rbac/metrics"
	"rolegate/internal/rbac/model"
	"rolegate/internal/rbac/permission"
	"rolegate/internal/rbac/repository"
	"rolegate/internal/rbac/util"
)

// Cascader is implemented by every component that stores role references.
// RoleService calls RemoveRole on each before a role row is deleted.
// Removing a role that is already absent must be a no-op.
type Cascader interface {
	CascadeName() string
	ReferencesRole(ctx context.Context, roleXid string) (bool, error)
	// RemoveRole rewrites every stored reference to roleXid and returns how
	// many records changed.
	RemoveRole(ctx context.Context, roleXid string) (int, error)
}

// RoleLookup reports which of a set of role xids do not exist.
type RoleLookup interface {
	MissingRoles(ctx context.Context, xids []string) ([]string, error)
}

// PermissionRefresher copies the stored row of a system permission into the
// evaluator's registry. Another replica may have changed it.
type PermissionRefresher interface {
	Refresh(ctx context.Context, name string) error
}

// Deps are the collaborators shared by the resource, system permission and
// assignment services.
type Deps struct {
	Evaluator   *permission.Evaluator
	Validator   *permission.Validator
	Roles       RoleLookup
	Permissions PermissionRefresher
	Mappings    repository.MappingRepository
	Sequences   repository.SequenceRepository
	History     repository.HistoryRepository
	Guard       lock.Guard
	Metrics     *metrics.Metrics
	Logger      *slog.Logger
}

// withDefaults fills the optional collaborators. Services call it once in
// their constructor.
func (d Deps) withDefaults() Deps {
	if d.Logger == nil {
		d.Logger = util.GetLogger()
	}
	if d.Guard == nil {
		d.Guard = lock.NewLocalGuard()
	}
	return d
}

func (d *Deps) logger() *slog.Logger {
	return d.Logger
}

func (d *Deps) guard() lock.Guard {
	return d.Guard
}

// recordHistory writes an audit record asynchronously (fire-and-forget)
func recordHistory(repo repository.HistoryRepository, entry repository.HistoryEntry) {
	if repo == nil {
		return
	}
	history := entry.ToPermissionHistory()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := repo.CreateHistory(ctx, history); err != nil {
			util.GetLogger().Warn("failed to record history", "operation", history.Operation, "error", err)
		}
	}()
}

// checkRolesExist adds a not-found message on field for every role in p
// that does not exist.
func checkRolesExist(ctx context.Context, roles RoleLookup, result *model.ProcessResult, field string, p *model.MangoPermission) error {
	if roles == nil || p == nil {
		return nil
	}
	missing, err := roles.MissingRoles(ctx, p.Roles())
	if err != nil {
		return err
	}
	for _, xid := range missing {
		result.AddContextualMessage(field, model.CodeRoleNotFound, "role "+xid+" does not exist")
	}
	return nil
}

// holderID is the caller id recorded in history.
func holderID(h model.PermissionHolder) string {
	if h == nil {
		return model.RoleAnonymous
	}
	return h.HolderName()
}

// translate maps repository errors onto the public taxonomy.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return model.ErrNotFound
	case errors.Is(err, repository.ErrVersionConflict):
		return model.ErrConflict
	}
	return err
}

// xidUsed builds the validation error for a unique key clash found at write
// time.
func xidUsed(xid string) error {
	result := model.NewProcessResult()
	result.AddContextualMessage("xid", model.CodeXidUsed, "xid "+xid+" is already in use")
	return result.Err()
}
