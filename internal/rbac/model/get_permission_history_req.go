package model

import (
	"strings"
	"time"
)

// GetPermissionHistoryReq filters the audit log.
type GetPermissionHistoryReq struct {
	EntityType string `query:"entity_type" validate:"omitempty,max=50"`
	EntityXid  string `query:"entity_xid" validate:"omitempty,max=100"`
	CallerID   string `query:"caller_id" validate:"omitempty,max=100"`
	Operation  string `query:"operation" validate:"omitempty,max=50"`

	StartTime *time.Time `query:"start_time"`
	EndTime   *time.Time `query:"end_time"`

	Page int `query:"page" validate:"omitempty,min=1"`
	Size int `query:"size" validate:"omitempty,min=1,max=1000"`
}

func (r *GetPermissionHistoryReq) Validate() error {
	r.EntityType = strings.ToLower(strings.TrimSpace(r.EntityType))
	r.EntityXid = strings.TrimSpace(r.EntityXid)
	r.CallerID = strings.TrimSpace(r.CallerID)
	r.Operation = strings.ToLower(strings.TrimSpace(r.Operation))

	if r.Page <= 0 {
		r.Page = DefaultPage
	}
	if r.Size <= 0 {
		r.Size = DefaultSize
	}
	if r.Size > MaxHistorySize {
		r.Size = MaxHistorySize
	}

	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}

	if r.StartTime != nil && r.EndTime != nil && r.EndTime.Before(*r.StartTime) {
		return &ErrorDetail{Code: "bad_request", Message: "end_time must not be before start_time"}
	}
	return nil
}

type GetPermissionHistoryResp struct {
	Data       []*PermissionHistory `json:"data"`
	Page       int                  `json:"page"`
	Size       int                  `json:"size"`
	TotalCount int64                `json:"total_count"`
}
