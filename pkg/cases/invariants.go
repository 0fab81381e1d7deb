package cases

import "unicode/utf8"

// MaxNameLength bounds case names, in runes.
const MaxNameLength = 120

// NameProvided checks that a name is non-empty.
func NameProvided(name string) bool { return name != "" }

// NameWithinLimit checks the rune-length bound on names.
func NameWithinLimit(name string) bool {
	return utf8.RuneCountInString(name) <= MaxNameLength
}

// CaseNameIsUnique checks name uniqueness case-insensitively, skipping
// excludeID so a case may be renamed to a casing variant of itself.
func CaseNameIsUnique(name string, snap *Snapshot, excludeID string) bool {
	folded := foldName(name)
	for _, c := range snap.Cases {
		if c.ID == excludeID {
			continue
		}
		if foldName(c.Name) == folded {
			return false
		}
	}
	return true
}
