package config

const (
	// MaxTitleLength is the maximum length for page, group and batch titles.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxTitleLength = 255

	// MaxSpaceNameLength is the maximum length for space names.
	MaxSpaceNameLength = 255

	// MaxSlugLength is the maximum length of one route segment.
	MaxSlugLength = 100

	// MaxRouteLength is the maximum length of a full route. Longer routes
	// indicate overly deep hierarchies.
	MaxRouteLength = 500

	// MaxReorderSiblings caps the sibling list accepted by one reorder request.
	MaxReorderSiblings = 1000

	// MaxReviewCommentLength caps reviewer comments on approve/reject.
	MaxReviewCommentLength = 4000
)
