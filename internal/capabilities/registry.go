// Package capabilities holds the role policy: which wiki roles may perform which actions.
package capabilities

import (
	"embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed config/*.yaml
var configFiles embed.FS

const policyFile = "config/roles.yaml"

// Registry answers role/action questions from the embedded policy
type Registry struct {
	roles map[string]*RolePolicy
	order []string
	mu    sync.RWMutex
}

// NewRegistry creates a registry loaded from the embedded roles.yaml
func NewRegistry() (*Registry, error) {
	data, err := configFiles.ReadFile(policyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", policyFile, err)
	}
	return NewRegistryFromYAML(data)
}

// NewRegistryFromYAML builds a registry from an explicit policy document
func NewRegistryFromYAML(data []byte) (*Registry, error) {
	var file PolicyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to unmarshal role policy: %w", err)
	}
	if len(file.Roles) == 0 {
		return nil, fmt.Errorf("role policy defines no roles")
	}

	r := &Registry{roles: make(map[string]*RolePolicy, len(file.Roles))}
	for i := range file.Roles {
		role := &file.Roles[i]
		r.roles[role.Name] = role
		r.order = append(r.order, role.Name)
	}
	return r, nil
}

// Can reports whether role may perform action. Unknown roles may do nothing.
func (r *Registry) Can(role string, action Action) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	policy, ok := r.roles[role]
	if !ok {
		return false
	}
	return policy.Allows(action)
}

// GetRole returns one role's policy
func (r *Registry) GetRole(role string) (*RolePolicy, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	policy, ok := r.roles[role]
	if !ok {
		return nil, fmt.Errorf("unknown role: %s", role)
	}
	return policy, nil
}

// ListRoles returns every role in policy-file order
func (r *Registry) ListRoles() []RolePolicy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	roles := make([]RolePolicy, 0, len(r.order))
	for _, name := range r.order {
		roles = append(roles, *r.roles[name])
	}
	return roles
}
