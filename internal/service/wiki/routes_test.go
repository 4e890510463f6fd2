package wiki

import (
	"strings"
	"testing"

	models "wikiflow/internal/domain/models/wiki"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		title string
		want  string
	}{
		{"Getting Started", "getting-started"},
		{"  API / v2 -- Reference  ", "api-v2-reference"},
		{"Ünïcödé", "n-c-d"},
		{"???", "page"},
		{"", "page"},
		{strings.Repeat("a", 150), strings.Repeat("a", 100)},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			if got := Slugify(tt.title); got != tt.want {
				t.Errorf("Slugify(%q) = %q, want %q", tt.title, got, tt.want)
			}
		})
	}
}

func TestUniqueSlug(t *testing.T) {
	siblings := []models.Node{
		{Route: "docs/intro"},
		{Route: "docs/intro-2"},
		{Route: "docs/setup"},
	}
	if got := uniqueSlug(siblings, "intro"); got != "intro-3" {
		t.Errorf("uniqueSlug(intro) = %q, want intro-3", got)
	}
	if got := uniqueSlug(siblings, "faq"); got != "faq" {
		t.Errorf("uniqueSlug(faq) = %q, want faq", got)
	}
}

func TestNormalizeRoute(t *testing.T) {
	if got := NormalizeRoute(" /docs/guide/ "); got != "docs/guide" {
		t.Errorf("NormalizeRoute() = %q, want docs/guide", got)
	}
}
