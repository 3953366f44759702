package permission

import (
	"embed"
	"encoding/json"
	"fmt"

	"rolegate/internal/rbac/model"
)

//go:embed defaults/system_permissions.json
var defaultsFS embed.FS

type defaultsFile struct {
	Permissions []struct {
		Name        string                `json:"name"`
		Description string                `json:"description"`
		Permission  model.MangoPermission `json:"permission"`
	} `json:"permissions"`
}

// LoadDefaults registers the built-in system permissions.
func LoadDefaults(r *Registry) error {
	data, err := defaultsFS.ReadFile("defaults/system_permissions.json")
	if err != nil {
		return fmt.Errorf("failed to read system permission defaults: %w", err)
	}

	var file defaultsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse system permission defaults: %w", err)
	}

	for _, p := range file.Permissions {
		perm := p.Permission
		r.Register(p.Name, p.Description, &perm)
	}
	return nil
}

// NewDefaultRegistry returns a registry preloaded with the built-in defaults.
func NewDefaultRegistry() (*Registry, error) {
	r := NewRegistry()
	if err := LoadDefaults(r); err != nil {
		return nil, err
	}
	return r, nil
}
