package sources

import "unicode/utf8"

// MaxNameLength bounds source names, in runes.
const MaxNameLength = 120

// NameProvided checks that a name is non-empty.
func NameProvided(name string) bool { return name != "" }

// NameWithinLimit checks the rune-length bound on names.
func NameWithinLimit(name string) bool {
	return utf8.RuneCountInString(name) <= MaxNameLength
}

// PathIsUnique checks that no other source already claims the path.
// Paths compare exactly; the filesystem decides case sensitivity, not us.
func PathIsUnique(path string, snap *Snapshot, excludeID string) bool {
	for _, src := range snap.Sources {
		if src.ID == excludeID {
			continue
		}
		if src.Path == path {
			return false
		}
	}
	return true
}

// SpanIsValid checks the half-open span shape: a non-negative start
// strictly before the end.
func SpanIsValid(start, end int64) bool {
	return start >= 0 && end > start
}

// SpanWithinSource checks the span against the source extent. Sources
// with unknown length (zero) accept any valid span.
func SpanWithinSource(end int64, src Source) bool {
	return src.Length == 0 || end <= src.Length
}
