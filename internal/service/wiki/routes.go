package wiki

import (
	"fmt"
	"regexp"
	"strings"

	"wikiflow/internal/config"
	models "wikiflow/internal/domain/models/wiki"
)

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a title into a route segment: lowercase ASCII letters and
// digits joined by single hyphens
func Slugify(title string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(title), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > config.MaxSlugLength {
		slug = strings.TrimRight(slug[:config.MaxSlugLength], "-")
	}
	if slug == "" {
		return "page"
	}
	return slug
}

// NormalizeRoute strips surrounding slashes and whitespace
func NormalizeRoute(route string) string {
	return strings.Trim(strings.TrimSpace(route), "/")
}

func joinRoute(parentRoute, slug string) string {
	if parentRoute == "" {
		return slug
	}
	return parentRoute + "/" + slug
}

func lastSegment(route string) string {
	if i := strings.LastIndex(route, "/"); i >= 0 {
		return route[i+1:]
	}
	return route
}

// uniqueSlug appends -2, -3, ... until slug is unused among siblings
func uniqueSlug(siblings []models.Node, slug string) string {
	taken := make(map[string]bool, len(siblings))
	for _, s := range siblings {
		taken[lastSegment(s.Route)] = true
	}
	candidate := slug
	for i := 2; taken[candidate]; i++ {
		candidate = fmt.Sprintf("%s-%d", slug, i)
	}
	return candidate
}
