// Package coding is the bounded context for codes and code categories:
// the labels researchers define and organize before applying them to
// source segments.
package coding

import "golang.org/x/text/cases"

// Code is a label that can be applied to source segments.
type Code struct {
	ID         string
	Name       string
	Color      string
	CategoryID string
}

// Category groups codes into a tree. ParentID is empty for roots.
type Category struct {
	ID       string
	Name     string
	ParentID string
}

// Snapshot is an immutable, read-only view of the coding state, assembled
// fresh from the repository for every command invocation. It is owned by
// the command handler call stack and never mutated or shared.
type Snapshot struct {
	Codes      []Code
	Categories []Category
}

// CodeByID returns the code with the given ID, if present.
func (s *Snapshot) CodeByID(id string) (Code, bool) {
	for _, c := range s.Codes {
		if c.ID == id {
			return c, true
		}
	}
	return Code{}, false
}

// CategoryByID returns the category with the given ID, if present.
func (s *Snapshot) CategoryByID(id string) (Category, bool) {
	for _, c := range s.Categories {
		if c.ID == id {
			return c, true
		}
	}
	return Category{}, false
}

// foldName normalizes a name for case-insensitive comparison, so that
// "Anxiety" and "anxiety" collide.
func foldName(name string) string {
	return cases.Fold().String(name)
}
