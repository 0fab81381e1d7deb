package cases

import "github.com/kodexlab/kodex/pkg/domain"

// Operation categories for trust-level resolution.
const (
	CategoryWrite       = "cases.write"
	CategoryDestructive = "cases.destructive"
)

// CreateCase creates a case. CaseID is normally empty and assigned by
// the deriver; undo supplies the original ID to restore it.
type CreateCase struct {
	Meta      domain.Meta `json:"meta"`
	CaseID    string      `json:"case_id,omitempty"`
	Name      string      `json:"name"`
	SourceIDs []string    `json:"source_ids,omitempty"`
}

func (CreateCase) CommandType() string { return "cases.create_case" }
func (CreateCase) Category() string    { return CategoryWrite }

// RenameCase changes a case name.
type RenameCase struct {
	Meta    domain.Meta `json:"meta"`
	CaseID  string      `json:"case_id"`
	NewName string      `json:"new_name"`
}

func (RenameCase) CommandType() string { return "cases.rename_case" }
func (RenameCase) Category() string    { return CategoryWrite }

// DeleteCase removes a case and its links. The sources themselves are
// untouched.
type DeleteCase struct {
	Meta   domain.Meta `json:"meta"`
	CaseID string      `json:"case_id"`
}

func (DeleteCase) CommandType() string { return "cases.delete_case" }
func (DeleteCase) Category() string    { return CategoryDestructive }

// LinkSource attaches a source to a case.
type LinkSource struct {
	Meta     domain.Meta `json:"meta"`
	CaseID   string      `json:"case_id"`
	SourceID string      `json:"source_id"`
}

func (LinkSource) CommandType() string { return "cases.link_source" }
func (LinkSource) Category() string    { return CategoryWrite }

// UnlinkSource detaches a source from a case.
type UnlinkSource struct {
	Meta     domain.Meta `json:"meta"`
	CaseID   string      `json:"case_id"`
	SourceID string      `json:"source_id"`
}

func (UnlinkSource) CommandType() string { return "cases.unlink_source" }
func (UnlinkSource) Category() string    { return CategoryWrite }

// UnlinkSourceEverywhere detaches a source from every case that links
// it. It is the cascade command issued when a source is deleted;
// unlinking from zero cases is a success.
type UnlinkSourceEverywhere struct {
	Meta     domain.Meta `json:"meta"`
	SourceID string      `json:"source_id"`
}

func (UnlinkSourceEverywhere) CommandType() string { return "cases.unlink_source_everywhere" }
func (UnlinkSourceEverywhere) Category() string    { return CategoryWrite }
