package coding

import (
	"unicode/utf8"

	"github.com/asaskevich/govalidator"
)

// MaxNameLength bounds code and category names, in runes.
const MaxNameLength = 120

// Invariants are pure, total predicates encoding one business rule each.
// Derivers compose them cheapest-first; the first failing invariant
// determines the failure event.

// NameProvided reports whether a name is non-empty.
func NameProvided(name string) bool {
	return name != ""
}

// NameWithinLimit reports whether a name fits the length bound.
func NameWithinLimit(name string) bool {
	return utf8.RuneCountInString(name) <= MaxNameLength
}

// CodeNameIsUnique reports whether no other code uses the name,
// compared case-insensitively. excludeID skips the code being renamed.
func CodeNameIsUnique(name string, snap *Snapshot, excludeID string) bool {
	folded := foldName(name)
	for _, c := range snap.Codes {
		if c.ID == excludeID {
			continue
		}
		if foldName(c.Name) == folded {
			return false
		}
	}
	return true
}

// CategoryNameIsUnique reports whether no other category uses the name,
// compared case-insensitively.
func CategoryNameIsUnique(name string, snap *Snapshot, excludeID string) bool {
	folded := foldName(name)
	for _, c := range snap.Categories {
		if c.ID == excludeID {
			continue
		}
		if foldName(c.Name) == folded {
			return false
		}
	}
	return true
}

// ColorIsValid reports whether a color is empty (no color assigned) or a
// hex color like #1F77B4.
func ColorIsValid(color string) bool {
	return color == "" || govalidator.IsHexcolor(color)
}

// CodeExists reports whether a code with the ID is present.
func CodeExists(id string, snap *Snapshot) bool {
	_, ok := snap.CodeByID(id)
	return ok
}

// CategoryExists reports whether a category with the ID is present.
func CategoryExists(id string, snap *Snapshot) bool {
	_, ok := snap.CategoryByID(id)
	return ok
}

// CategoryIsEmpty reports whether the category has no child categories
// and no codes assigned to it.
func CategoryIsEmpty(id string, snap *Snapshot) bool {
	for _, c := range snap.Categories {
		if c.ParentID == id {
			return false
		}
	}
	for _, c := range snap.Codes {
		if c.CategoryID == id {
			return false
		}
	}
	return true
}

// MoveKeepsTreeAcyclic reports whether re-parenting categoryID under
// newParentID keeps the category tree a forest. Moving under one's own
// descendant (or self) would create a cycle.
func MoveKeepsTreeAcyclic(categoryID, newParentID string, snap *Snapshot) bool {
	if newParentID == "" {
		return true
	}
	// Walk up from the new parent; hitting categoryID means newParentID
	// is a descendant of (or equal to) the moved category.
	cur := newParentID
	for steps := 0; cur != "" && steps <= len(snap.Categories); steps++ {
		if cur == categoryID {
			return false
		}
		parent, ok := snap.CategoryByID(cur)
		if !ok {
			return true
		}
		cur = parent.ParentID
	}
	return true
}
