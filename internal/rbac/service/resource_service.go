package service

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"rolegate/internal/rbac/model"
	"rolegate/internal/rbac/repository"

	"github.com/google/uuid"
)

const (
	opCreate = "create"
	opRead   = "read"
	opEdit   = "edit"
	opDelete = "delete"
	opSet    = "set"
)

// ResourceService enforces permissions on one resource type. Writes hold the
// shared guard from load to persist, so a role deletion cascade never runs
// between a check and the write it allowed.
type ResourceService[P any] struct {
	def  Definition[P]
	repo repository.ResourceRepository[P]
	deps Deps
}

// NewResourceService registers def's create permission with the evaluator's
// registry and returns the service. def.Fields.Read and def.Fields.Edit must
// be set.
func NewResourceService[P any](def Definition[P], repo repository.ResourceRepository[P], deps Deps) *ResourceService[P] {
	if def.Fields.Read == "" || def.Fields.Edit == "" {
		panic("resource type " + def.TypeName + " must declare read and edit fields")
	}
	if def.CreatePermissionType != "" {
		deps.Evaluator.Registry().Register(def.CreatePermissionType, def.CreatePermissionDesc, def.DefaultCreatePermission)
	}
	return &ResourceService[P]{def: def, repo: repo, deps: deps.withDefaults()}
}

func (s *ResourceService[P]) TypeName() string {
	return s.def.TypeName
}

func (s *ResourceService[P]) Definition() Definition[P] {
	return s.def
}

func (s *ResourceService[P]) Insert(ctx context.Context, holder model.PermissionHolder, r *model.Resource[P]) (*model.Resource[P], error) {
	release, err := s.deps.guard().Shared(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	if s.deps.Permissions != nil && s.def.CreatePermissionType != "" {
		if err := s.deps.Permissions.Refresh(ctx, s.def.CreatePermissionType); err != nil {
			return nil, err
		}
	}
	if !s.allowCreate(holder) {
		return nil, model.ErrPermissionDenied
	}

	res := r.Clone()
	if res.Xid == "" {
		res.Xid = s.def.XidPrefix + uuid.NewString()
	}

	result := model.NewProcessResult()
	if err := s.validate(ctx, holder, nil, res, result); err != nil {
		return nil, err
	}
	if result.HasErrors() {
		s.deps.Metrics.RecordValidationFailures(s.def.TypeName, result.Keys())
		return nil, result.Err()
	}

	id, err := s.deps.Sequences.NextID(ctx, s.def.TypeName)
	if err != nil {
		return nil, err
	}
	res.ID = id
	if err := s.repo.Insert(ctx, res); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, xidUsed(res.Xid)
		}
		return nil, err
	}
	s.replaceMappings(ctx, res)

	s.audit(model.OpResourceCreate, holder, res)
	return res, nil
}

func (s *ResourceService[P]) Get(ctx context.Context, holder model.PermissionHolder, id int64) (*model.Resource[P], error) {
	return s.get(ctx, holder, func() (*model.Resource[P], error) {
		return s.repo.GetByID(ctx, id)
	})
}

func (s *ResourceService[P]) GetByXid(ctx context.Context, holder model.PermissionHolder, xid string) (*model.Resource[P], error) {
	return s.get(ctx, holder, func() (*model.Resource[P], error) {
		return s.repo.GetByXid(ctx, xid)
	})
}

// get loads first so a missing record is NotFound whatever the caller holds.
func (s *ResourceService[P]) get(ctx context.Context, holder model.PermissionHolder, load func() (*model.Resource[P], error)) (*model.Resource[P], error) {
	res, err := load()
	if err != nil {
		return nil, translate(err)
	}
	if !s.allow(holder, opRead, res.Permission(s.def.Fields.Read)) {
		return nil, model.ErrPermissionDenied
	}
	return res, nil
}

// List returns the records holder can read.
func (s *ResourceService[P]) List(ctx context.Context, holder model.PermissionHolder) ([]*model.Resource[P], error) {
	all, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*model.Resource[P], 0, len(all))
	for _, res := range all {
		if s.deps.Evaluator.HasPermission(holder, res.Permission(s.def.Fields.Read)) {
			out = append(out, res)
		}
	}
	return out, nil
}

// MappingReport lists the mapping rows of one record. It needs the same
// access as reading the record.
func (s *ResourceService[P]) MappingReport(ctx context.Context, holder model.PermissionHolder, xid string) ([]model.PermissionMapping, error) {
	res, err := s.GetByXid(ctx, holder, xid)
	if err != nil {
		return nil, err
	}
	rows, err := s.deps.Mappings.FindResourceMappings(ctx, s.def.TypeName, res.ID)
	if err != nil {
		return nil, err
	}
	if rows == nil {
		rows = []model.PermissionMapping{}
	}
	return rows, nil
}

func (s *ResourceService[P]) Update(ctx context.Context, holder model.PermissionHolder, id int64, r *model.Resource[P]) (*model.Resource[P], error) {
	return s.update(ctx, holder, r, func() (*model.Resource[P], error) {
		return s.repo.GetByID(ctx, id)
	})
}

func (s *ResourceService[P]) UpdateByXid(ctx context.Context, holder model.PermissionHolder, xid string, r *model.Resource[P]) (*model.Resource[P], error) {
	return s.update(ctx, holder, r, func() (*model.Resource[P], error) {
		return s.repo.GetByXid(ctx, xid)
	})
}

func (s *ResourceService[P]) update(ctx context.Context, holder model.PermissionHolder, r *model.Resource[P], load func() (*model.Resource[P], error)) (*model.Resource[P], error) {
	release, err := s.deps.guard().Shared(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	existing, err := load()
	if err != nil {
		return nil, translate(err)
	}
	if !s.allow(holder, opEdit, existing.Permission(s.def.Fields.Edit)) {
		return nil, model.ErrPermissionDenied
	}
	if r.Version != 0 && r.Version != existing.Version {
		return nil, model.ErrConflict
	}

	res := r.Clone()
	res.ID = existing.ID
	res.CreatedAt = existing.CreatedAt
	if res.Xid == "" {
		res.Xid = existing.Xid
	}

	result := model.NewProcessResult()
	if err := s.validate(ctx, holder, existing, res, result); err != nil {
		return nil, err
	}
	if result.HasErrors() {
		s.deps.Metrics.RecordValidationFailures(s.def.TypeName, result.Keys())
		return nil, result.Err()
	}

	if err := s.repo.Update(ctx, res, existing.Version); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, xidUsed(res.Xid)
		}
		return nil, translate(err)
	}
	s.replaceMappings(ctx, res)

	s.audit(model.OpResourceUpdate, holder, res)
	return res, nil
}

func (s *ResourceService[P]) Delete(ctx context.Context, holder model.PermissionHolder, id int64) error {
	return s.delete(ctx, holder, func() (*model.Resource[P], error) {
		return s.repo.GetByID(ctx, id)
	})
}

func (s *ResourceService[P]) DeleteByXid(ctx context.Context, holder model.PermissionHolder, xid string) error {
	return s.delete(ctx, holder, func() (*model.Resource[P], error) {
		return s.repo.GetByXid(ctx, xid)
	})
}

func (s *ResourceService[P]) delete(ctx context.Context, holder model.PermissionHolder, load func() (*model.Resource[P], error)) error {
	release, err := s.deps.guard().Shared(ctx)
	if err != nil {
		return err
	}
	defer release()

	existing, err := load()
	if err != nil {
		return translate(err)
	}
	if !s.allow(holder, opDelete, existing.Permission(s.def.Fields.deleteField())) {
		return model.ErrPermissionDenied
	}

	// mapping rows go first: a leftover row without its record is harmless,
	// a record without rows would under-report
	if err := s.deps.Mappings.DeleteResourceMappings(ctx, s.def.TypeName, existing.ID); err != nil {
		return fmt.Errorf("delete mappings for %s %s: %w", s.def.TypeName, existing.Xid, err)
	}
	if err := s.repo.Delete(ctx, existing.ID); err != nil {
		return translate(err)
	}

	s.audit(model.OpResourceDelete, holder, existing)
	return nil
}

// Set applies an operational write to the payload. Only the set permission
// is checked; read and edit do not apply.
func (s *ResourceService[P]) Set(ctx context.Context, holder model.PermissionHolder, xid string, mutate func(*P) error) (*model.Resource[P], error) {
	if s.def.Fields.Set == "" {
		return nil, model.ErrNotSettable
	}
	release, err := s.deps.guard().Shared(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	existing, err := s.repo.GetByXid(ctx, xid)
	if err != nil {
		return nil, translate(err)
	}
	if !s.allow(holder, opSet, existing.Permission(s.def.Fields.Set)) {
		return nil, model.ErrPermissionDenied
	}

	res := existing.Clone()
	if err := mutate(&res.Payload); err != nil {
		return nil, err
	}
	if s.def.Validate != nil {
		result := model.NewProcessResult()
		s.def.Validate(res.Payload, result)
		if result.HasErrors() {
			s.deps.Metrics.RecordValidationFailures(s.def.TypeName, result.Keys())
			return nil, result.Err()
		}
	}

	if err := s.repo.Update(ctx, res, existing.Version); err != nil {
		return nil, translate(err)
	}
	s.audit(model.OpResourceSet, holder, res)
	return res, nil
}

// validate collects every message for writing next over old. old is nil on
// insert.
func (s *ResourceService[P]) validate(ctx context.Context, holder model.PermissionHolder, old, next *model.Resource[P], result *model.ProcessResult) error {
	switch {
	case next.Name == "":
		result.AddContextualMessage("name", model.CodeRequired, "name is required")
	case len(next.Name) > model.NameMaxLength:
		result.AddContextualMessage("name", model.CodeTooLong, "name is too long")
	}

	if len(next.Xid) > model.XidMaxLength {
		result.AddContextualMessage("xid", model.CodeTooLong, "xid is too long")
	} else if old == nil || old.Xid != next.Xid {
		other, err := s.repo.GetByXid(ctx, next.Xid)
		switch {
		case err == nil && (old == nil || other.ID != old.ID):
			result.AddContextualMessage("xid", model.CodeXidUsed, "xid "+next.Xid+" is already in use")
		case err != nil && !errors.Is(err, repository.ErrNotFound):
			return err
		}
	}

	undeclared := make([]string, 0)
	for field := range next.Permissions {
		if !s.def.Fields.has(field) {
			undeclared = append(undeclared, field)
		}
	}
	sort.Strings(undeclared)
	for _, field := range undeclared {
		result.AddContextualMessage(field, model.CodeInvalidValue, s.def.TypeName+" has no permission "+field)
	}

	if s.def.Validate != nil {
		s.def.Validate(next.Payload, result)
	}

	for _, field := range s.def.Fields.Declared() {
		newPerm := next.Permission(field)
		var oldPerm *model.MangoPermission
		if old != nil {
			oldPerm = old.Permission(field)
			if newPerm != nil && newPerm.Equal(oldPerm) {
				continue
			}
		}
		s.deps.Validator.ValidatePermission(result, field, holder, oldPerm, newPerm, field == s.def.Fields.Read)
		if err := checkRolesExist(ctx, s.deps.Roles, result, field, newPerm); err != nil {
			return err
		}
	}
	return nil
}

func (s *ResourceService[P]) allowCreate(holder model.PermissionHolder) bool {
	ok := s.deps.Evaluator.HasCreatePermission(holder, s.def.CreatePermissionType)
	s.deps.Metrics.RecordDecision(s.def.TypeName, opCreate, ok)
	return ok
}

func (s *ResourceService[P]) allow(holder model.PermissionHolder, op string, p *model.MangoPermission) bool {
	ok := s.deps.Evaluator.HasPermission(holder, p)
	s.deps.Metrics.RecordDecision(s.def.TypeName, op, ok)
	return ok
}

// replaceMappings rewrites the reporting rows. The expression on the record
// is authoritative, so a failure here is logged and does not fail the write.
func (s *ResourceService[P]) replaceMappings(ctx context.Context, res *model.Resource[P]) {
	rows := model.MappingsFor(s.def.TypeName, res)
	if err := s.deps.Mappings.ReplaceMappings(ctx, s.def.TypeName, res.ID, rows); err != nil {
		s.deps.logger().Warn("failed to replace permission mappings",
			"resource_type", s.def.TypeName, "xid", res.Xid, "error", err)
	}
}

func (s *ResourceService[P]) audit(op string, holder model.PermissionHolder, res *model.Resource[P]) {
	recordHistory(s.deps.History, repository.HistoryEntry{
		Operation:   op,
		CallerID:    holderID(holder),
		EntityType:  s.def.TypeName,
		EntityXid:   res.Xid,
		EntityID:    res.ID,
		Permissions: res.Permissions,
	})
}

// CascadeName implements Cascader.
func (s *ResourceService[P]) CascadeName() string {
	return s.def.TypeName
}

func (s *ResourceService[P]) ReferencesRole(ctx context.Context, roleXid string) (bool, error) {
	n, err := s.repo.CountByRole(ctx, roleXid)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// RemoveRole strips roleXid from every permission field of every record that
// references it. Each record is one write. It runs under the exclusive guard
// held by the role deletion and does not take the guard itself.
func (s *ResourceService[P]) RemoveRole(ctx context.Context, roleXid string) (int, error) {
	records, err := s.repo.FindByRole(ctx, roleXid)
	if err != nil {
		return 0, err
	}
	changed := 0
	for _, res := range records {
		next := res.Clone()
		for field, p := range next.Permissions {
			next.Permissions[field] = p.WithoutRole(roleXid)
		}
		if err := s.repo.Update(ctx, next, res.Version); err != nil {
			return changed, fmt.Errorf("rewrite %s %s: %w", s.def.TypeName, res.Xid, err)
		}
		if err := s.deps.Mappings.ReplaceMappings(ctx, s.def.TypeName, next.ID, model.MappingsFor(s.def.TypeName, next)); err != nil {
			return changed, fmt.Errorf("rewrite mappings for %s %s: %w", s.def.TypeName, res.Xid, err)
		}
		changed++
		recordHistory(s.deps.History, repository.HistoryEntry{
			Operation:   model.OpResourceCascade,
			CallerID:    "system",
			EntityType:  s.def.TypeName,
			EntityXid:   next.Xid,
			EntityID:    next.ID,
			Role:        roleXid,
			Permissions: next.Permissions,
		})
	}
	return changed, nil
}
