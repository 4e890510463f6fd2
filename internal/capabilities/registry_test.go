package capabilities

import "testing"

func TestRegistryCan(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	tests := []struct {
		role   string
		action Action
		want   bool
	}{
		{"admin", ActionReview, true},
		{"manager", ActionWrite, true},
		{"editor", ActionWrite, true},
		{"editor", ActionReview, false},
		{"reviewer", ActionReview, true},
		{"reviewer", ActionWrite, false},
		{"contributor", ActionContribute, true},
		{"contributor", ActionWrite, false},
		{"contributor", ActionReview, false},
		{"viewer", ActionRead, true},
		{"viewer", ActionContribute, false},
		{"stranger", ActionRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.role+"/"+string(tt.action), func(t *testing.T) {
			if got := r.Can(tt.role, tt.action); got != tt.want {
				t.Errorf("Can(%q, %q) = %v, want %v", tt.role, tt.action, got, tt.want)
			}
		})
	}
}

func TestListRolesKeepsFileOrder(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}

	want := []string{"admin", "manager", "editor", "reviewer", "contributor", "viewer"}
	roles := r.ListRoles()
	if len(roles) != len(want) {
		t.Fatalf("ListRoles() returned %d roles, want %d", len(roles), len(want))
	}
	for i, role := range roles {
		if role.Name != want[i] {
			t.Errorf("roles[%d] = %s, want %s", i, role.Name, want[i])
		}
	}
}

func TestNewRegistryFromYAMLRejectsUnknownAction(t *testing.T) {
	data := []byte("roles:\n  odd:\n    actions: [read, fly]\n")
	if _, err := NewRegistryFromYAML(data); err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestNewRegistryFromYAMLRejectsEmptyPolicy(t *testing.T) {
	if _, err := NewRegistryFromYAML([]byte("roles: {}\n")); err == nil {
		t.Fatal("expected error for empty policy")
	}
}
