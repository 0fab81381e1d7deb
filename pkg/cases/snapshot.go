// Package cases is the bounded context for cases: named groupings of
// sources (a participant, a site, a cohort) used to slice analysis.
package cases

import "golang.org/x/text/cases"

// Case groups sources under a name. SourceIDs holds the linked sources
// in link order.
type Case struct {
	ID        string
	Name      string
	SourceIDs []string
}

// HasSource reports whether the case links the given source.
func (c Case) HasSource(sourceID string) bool {
	for _, id := range c.SourceIDs {
		if id == sourceID {
			return true
		}
	}
	return false
}

// Snapshot is an immutable view of the cases state, assembled fresh
// from the repository per command. SourceIDs lists the identifiers
// known to the sources context so linking can check its reference.
type Snapshot struct {
	Cases     []Case
	SourceIDs []string
}

// CaseByID returns the case with the given ID, if present.
func (s *Snapshot) CaseByID(id string) (Case, bool) {
	for _, c := range s.Cases {
		if c.ID == id {
			return c, true
		}
	}
	return Case{}, false
}

// HasSource reports whether the sources context knows the given ID.
func (s *Snapshot) HasSource(id string) bool {
	for _, src := range s.SourceIDs {
		if src == id {
			return true
		}
	}
	return false
}

func foldName(name string) string {
	return cases.Fold().String(name)
}
