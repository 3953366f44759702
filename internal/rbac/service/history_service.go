package service

import (
	"context"

	"rolegate/internal/rbac/model"
	"rolegate/internal/rbac/repository"
)

type HistoryService struct {
	Repo repository.HistoryRepository
}

func NewHistoryService(repo repository.HistoryRepository) *HistoryService {
	return &HistoryService{Repo: repo}
}

// Find returns one page of the audit log. Superadmin only.
func (s *HistoryService) Find(ctx context.Context, holder model.PermissionHolder, req model.GetPermissionHistoryReq) (*model.GetPermissionHistoryResp, error) {
	if holder == nil || !holder.IsSuperadmin() {
		return nil, model.ErrPermissionDenied
	}
	records, total, err := s.Repo.FindHistory(ctx, req)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []*model.PermissionHistory{}
	}
	return &model.GetPermissionHistoryResp{
		Data:       records,
		Page:       req.Page,
		Size:       req.Size,
		TotalCount: total,
	}, nil
}
