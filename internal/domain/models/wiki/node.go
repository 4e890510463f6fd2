package wiki

import (
	"time"
)

// Node is a page or group in a space's hierarchy.
// Lft/Rgt are nested-set bounds owned by the tree rebuilder.
type Node struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Content     *string   `json:"content" db:"content"` // NULL for groups
	IsGroup     bool      `json:"is_group" db:"is_group"`
	IsPublished bool      `json:"is_published" db:"is_published"`
	ParentID    *string   `json:"parent_id" db:"parent_id"` // NULL = root group of a space
	SortOrder   int       `json:"sort_order" db:"sort_order"`
	Lft         int       `json:"lft" db:"lft"`
	Rgt         int       `json:"rgt" db:"rgt"`
	Route       string    `json:"route" db:"route"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	ModifiedAt  time.Time `json:"modified_at" db:"modified_at"`
}

// ParentIs reports whether the node's parent equals id.
func (n *Node) ParentIs(id string) bool {
	return n.ParentID != nil && *n.ParentID == id
}

// Contains reports whether other lies inside this node's nested-set range.
func (n *Node) Contains(other *Node) bool {
	return n.Lft < other.Lft && other.Rgt < n.Rgt
}

// Space is a workspace with its own root group.
type Space struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Route       string    `json:"route" db:"route"`
	RootGroupID string    `json:"root_group_id" db:"root_group_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Breadcrumb is one ancestor on the path to a node.
type Breadcrumb struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Route string `json:"route"`
}
