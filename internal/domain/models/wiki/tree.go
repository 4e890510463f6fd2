package wiki

// TreeNode is a live node with nested children, content omitted.
type TreeNode struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	IsGroup     bool        `json:"is_group"`
	IsPublished bool        `json:"is_published"`
	Route       string      `json:"route"`
	Children    []*TreeNode `json:"children"`
}

// PreviewStatus tags a node in a merged-tree preview.
type PreviewStatus string

const (
	PreviewLive      PreviewStatus = "live"
	PreviewNew       PreviewStatus = "new"
	PreviewModified  PreviewStatus = "modified"
	PreviewDeleted   PreviewStatus = "deleted"
	PreviewMoved     PreviewStatus = "moved"
	PreviewReordered PreviewStatus = "reordered"
)

// PreviewNode is a node of the virtual tree a batch would produce.
type PreviewNode struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	IsGroup  bool           `json:"is_group"`
	Status   PreviewStatus  `json:"status"`
	Children []*PreviewNode `json:"children"`
}
