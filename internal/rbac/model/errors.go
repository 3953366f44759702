package model

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrPermissionDenied = errors.New("permission denied")
	ErrValidationFailed = errors.New("validation failed")
	ErrConflict         = errors.New("conflict: resource was modified concurrently")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotSettable      = errors.New("resource type has no set permission")
	ErrCascadeFailed    = errors.New("role deletion cascade failed")
)
