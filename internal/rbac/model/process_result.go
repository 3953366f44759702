package model

import (
	"errors"
	"fmt"
	"strings"
)

// Message codes attached to field keys in a ProcessResult.
const (
	CodeRequired             = "validate.required"
	CodeInvalidValue         = "validate.invalidValue"
	CodeTooLong              = "validate.tooLong"
	CodeXidUsed              = "validate.xidUsed"
	CodeXidImmutable         = "validate.xidImmutable"
	CodeMustRetainPermission = "validate.mustRetainPermission"
	CodeRoleNotHeld          = "validate.role.notHeld"
	CodeRoleNotFound         = "validate.role.notFound"
	CodeSystemRole           = "validate.role.systemRole"
	CodeImplicitRole         = "validate.role.implicit"
)

// ProcessMessage is one field-level violation.
type ProcessMessage struct {
	Key     string `json:"key"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}

// ProcessResult collects every violation found during a single write.
type ProcessResult struct {
	Messages []ProcessMessage `json:"messages"`
}

func NewProcessResult() *ProcessResult {
	return &ProcessResult{}
}

func (r *ProcessResult) AddContextualMessage(key, code, message string) {
	r.Messages = append(r.Messages, ProcessMessage{Key: key, Code: code, Message: message})
}

func (r *ProcessResult) HasErrors() bool {
	return r != nil && len(r.Messages) > 0
}

// HasMessage reports whether key carries a message with code. An empty
// code matches any message on key.
func (r *ProcessResult) HasMessage(key, code string) bool {
	if r == nil {
		return false
	}
	for _, m := range r.Messages {
		if m.Key == key && (code == "" || m.Code == code) {
			return true
		}
	}
	return false
}

// Keys returns the distinct keys in insertion order.
func (r *ProcessResult) Keys() []string {
	if r == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(r.Messages))
	var keys []string
	for _, m := range r.Messages {
		if _, ok := seen[m.Key]; ok {
			continue
		}
		seen[m.Key] = struct{}{}
		keys = append(keys, m.Key)
	}
	return keys
}

// Err returns a *ValidationError when the result has messages.
func (r *ProcessResult) Err() error {
	if !r.HasErrors() {
		return nil
	}
	return &ValidationError{Result: r}
}

// ValidationError carries an aggregated ProcessResult. It matches
// ErrValidationFailed with errors.Is.
type ValidationError struct {
	Result *ProcessResult
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Result.Messages))
	for _, m := range e.Result.Messages {
		parts = append(parts, m.Key+": "+m.Code)
	}
	return fmt.Sprintf("%s (%s)", ErrValidationFailed, strings.Join(parts, ", "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// AsValidationError unwraps err into a *ValidationError when possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
