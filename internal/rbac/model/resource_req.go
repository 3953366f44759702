package model

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// ResourceReq is the JSON body for inserting or updating a resource. The
// payload is decoded by the concrete resource type. Permissions stay raw
// until ToResource so a malformed expression is reported on its own field.
type ResourceReq struct {
	Xid         string                     `json:"xid" validate:"omitempty,max=100"`
	Name        string                     `json:"name" validate:"required,max=255"`
	Permissions map[string]json.RawMessage `json:"permissions"`
	Payload     json.RawMessage            `json:"payload"`
	Version     int64                      `json:"version"`
}

func (r *ResourceReq) Validate() error {
	r.Xid = strings.TrimSpace(r.Xid)
	r.Name = strings.TrimSpace(r.Name)
	if err := GetValidator().Struct(r); err != nil {
		return FormatValidationError(err)
	}
	return nil
}

// ToResource decodes the permissions and the payload into P. A missing
// payload leaves the zero value; a null permission stays nil. Every
// expression that fails to decode is reported under its field key.
func ToResource[P any](req *ResourceReq) (*Resource[P], error) {
	r := &Resource[P]{
		Xid:     req.Xid,
		Name:    req.Name,
		Version: req.Version,
	}

	if req.Permissions != nil {
		fields := make([]string, 0, len(req.Permissions))
		for field := range req.Permissions {
			fields = append(fields, field)
		}
		sort.Strings(fields)

		result := NewProcessResult()
		r.Permissions = make(map[string]*MangoPermission, len(fields))
		for _, field := range fields {
			raw := bytes.TrimSpace(req.Permissions[field])
			if len(raw) == 0 || string(raw) == "null" {
				r.Permissions[field] = nil
				continue
			}
			p := &MangoPermission{}
			if err := json.Unmarshal(raw, p); err != nil {
				result.AddContextualMessage(field, CodeInvalidValue, err.Error())
				continue
			}
			r.Permissions[field] = p
		}
		if result.HasErrors() {
			return nil, result.Err()
		}
	}

	if len(req.Payload) > 0 && string(req.Payload) != "null" {
		if err := json.Unmarshal(req.Payload, &r.Payload); err != nil {
			return nil, &ErrorDetail{Code: "bad_request", Message: "invalid payload"}
		}
	}
	return r, nil
}
