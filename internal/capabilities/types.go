package capabilities

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Action is something a role may be permitted to do
type Action string

const (
	ActionRead       Action = "read"       // view trees, pages and batches
	ActionWrite      Action = "write"      // edit the live tree directly
	ActionContribute Action = "contribute" // propose changes through batches
	ActionReview     Action = "review"     // review and merge other people's batches
)

// AllActions lists every action the policy may grant
var AllActions = []Action{ActionRead, ActionWrite, ActionContribute, ActionReview}

// Valid reports whether a is a known action
func (a Action) Valid() bool {
	for _, known := range AllActions {
		if a == known {
			return true
		}
	}
	return false
}

// RolePolicy is one role's entry in the policy file
type RolePolicy struct {
	Name        string   `yaml:"-" json:"name"`
	Description string   `yaml:"description" json:"description"`
	Actions     []Action `yaml:"actions" json:"actions"`
}

// Allows reports whether the role grants action
func (p *RolePolicy) Allows(action Action) bool {
	for _, a := range p.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// PolicyFile is the decoded roles.yaml
type PolicyFile struct {
	Roles []RolePolicy `yaml:"-" json:"roles"` // Ordered slice, populated by custom unmarshaler
}

// UnmarshalYAML keeps roles in file order and rejects unknown actions
func (f *PolicyFile) UnmarshalYAML(node *yaml.Node) error {
	type rolesOnly struct {
		Roles map[string]RolePolicy `yaml:"roles"`
	}
	var m rolesOnly
	if err := node.Decode(&m); err != nil {
		return err
	}

	for i := 0; i < len(node.Content); i += 2 {
		if node.Content[i].Value != "roles" {
			continue
		}
		// rolesNode.Content alternates: key, value, key, value...
		rolesNode := node.Content[i+1]
		for j := 0; j < len(rolesNode.Content); j += 2 {
			name := rolesNode.Content[j].Value
			role, ok := m.Roles[name]
			if !ok {
				continue
			}
			for _, a := range role.Actions {
				if !a.Valid() {
					return fmt.Errorf("role %s: unknown action %q", name, a)
				}
			}
			role.Name = name
			f.Roles = append(f.Roles, role)
		}
		break
	}
	return nil
}
