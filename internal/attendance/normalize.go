package attendance

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName produces the roster key for a raw name.
func NormalizeName(raw string) string {
	return strings.ToUpper(norm.NFC.String(strings.TrimSpace(raw)))
}

// NameSet is a set of normalised names.
type NameSet map[string]struct{}

// NewNameSet builds a set from already normalised names.
func NewNameSet(names ...string) NameSet {
	set := make(NameSet, len(names))
	for _, name := range names {
		set[name] = struct{}{}
	}
	return set
}

// Has reports membership.
func (s NameSet) Has(name string) bool {
	_, ok := s[name]
	return ok
}
