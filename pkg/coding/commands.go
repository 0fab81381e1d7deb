package coding

import "github.com/kodexlab/kodex/pkg/domain"

// Approval categories for the trust gate.
const (
	CategoryWrite       = "coding.write"
	CategoryDestructive = "coding.destructive"
)

// CreateCode requests a new code. CodeID may be supplied to restore a
// previously deleted code (undo); when empty the deriver generates one.
type CreateCode struct {
	Meta       domain.Meta `json:"meta"`
	CodeID     string      `json:"code_id,omitempty"`
	Name       string      `json:"name"`
	Color      string      `json:"color,omitempty"`
	CategoryID string      `json:"category_id,omitempty"`
}

func (CreateCode) CommandType() string { return "coding.create_code" }
func (CreateCode) Category() string    { return CategoryWrite }

// RenameCode requests a name change for an existing code.
type RenameCode struct {
	Meta    domain.Meta `json:"meta"`
	CodeID  string      `json:"code_id"`
	NewName string      `json:"new_name"`
}

func (RenameCode) CommandType() string { return "coding.rename_code" }
func (RenameCode) Category() string    { return CategoryWrite }

// RecolorCode changes the display color of a code. An empty NewColor
// clears it.
type RecolorCode struct {
	Meta     domain.Meta `json:"meta"`
	CodeID   string      `json:"code_id"`
	NewColor string      `json:"new_color,omitempty"`
}

func (RecolorCode) CommandType() string { return "coding.recolor_code" }
func (RecolorCode) Category() string    { return CategoryWrite }

// MoveCodeToCategory files a code under a category. An empty CategoryID
// moves it to the root.
type MoveCodeToCategory struct {
	Meta       domain.Meta `json:"meta"`
	CodeID     string      `json:"code_id"`
	CategoryID string      `json:"category_id,omitempty"`
}

func (MoveCodeToCategory) CommandType() string { return "coding.move_code" }
func (MoveCodeToCategory) Category() string    { return CategoryWrite }

// DeleteCode requests removal of a code.
type DeleteCode struct {
	Meta   domain.Meta `json:"meta"`
	CodeID string      `json:"code_id"`
}

func (DeleteCode) CommandType() string { return "coding.delete_code" }
func (DeleteCode) Category() string    { return CategoryDestructive }

// CreateCategory requests a new category, optionally under a parent.
type CreateCategory struct {
	Meta       domain.Meta `json:"meta"`
	CategoryID string      `json:"category_id,omitempty"`
	Name       string      `json:"name"`
	ParentID   string      `json:"parent_id,omitempty"`
}

func (CreateCategory) CommandType() string { return "coding.create_category" }
func (CreateCategory) Category() string    { return CategoryWrite }

// MoveCategory re-parents a category within the tree. An empty
// NewParentID moves it to the root.
type MoveCategory struct {
	Meta        domain.Meta `json:"meta"`
	CategoryID  string      `json:"category_id"`
	NewParentID string      `json:"new_parent_id,omitempty"`
}

func (MoveCategory) CommandType() string { return "coding.move_category" }
func (MoveCategory) Category() string    { return CategoryWrite }

// DeleteCategory requests removal of an empty category.
type DeleteCategory struct {
	Meta       domain.Meta `json:"meta"`
	CategoryID string      `json:"category_id"`
}

func (DeleteCategory) CommandType() string { return "coding.delete_category" }
func (DeleteCategory) Category() string    { return CategoryDestructive }
