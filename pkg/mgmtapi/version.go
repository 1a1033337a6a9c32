package mgmtapi

import (
	"sort"
	"strconv"
	"strings"
)

// Version implements the lenient dotted-numeric ordering the appliance uses
// for its API versions. Numeric components compare numerically, alphabetic
// suffixes compare lexically, and a numeric component always sorts before an
// alphabetic one. When one version is a prefix of the other, the longer one
// is greater, so "2.0.0-pre" sorts after "2.0.0".
type Version struct {
	raw    string
	tokens []versionToken
}

type versionToken struct {
	num     int
	str     string
	numeric bool
}

// ParseVersion parses a version string. Parsing is lenient and never fails;
// separators ('.', '-', '_', '+') are dropped and the remaining digit and
// letter runs become comparison tokens.
func ParseVersion(s string) Version {
	v := Version{raw: s}

	var run strings.Builder

	runNumeric := false

	flush := func() {
		if run.Len() == 0 {
			return
		}

		tok := versionToken{str: run.String(), numeric: runNumeric}
		if runNumeric {
			tok.num, _ = strconv.Atoi(tok.str)
		}

		v.tokens = append(v.tokens, tok)
		run.Reset()
	}

	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			if run.Len() > 0 && !runNumeric {
				flush()
			}

			runNumeric = true

			run.WriteRune(r)
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
			if run.Len() > 0 && runNumeric {
				flush()
			}

			runNumeric = false

			run.WriteRune(r)
		default:
			flush()
		}
	}

	flush()

	return v
}

// String returns the original version string.
func (v Version) String() string {
	return v.raw
}

// IsZero reports whether the version was parsed from an empty string.
func (v Version) IsZero() bool {
	return len(v.tokens) == 0
}

// Compare returns -1, 0, or 1 depending on whether v is less than, equal to,
// or greater than other.
func (v Version) Compare(other Version) int {
	limit := len(v.tokens)
	if len(other.tokens) < limit {
		limit = len(other.tokens)
	}

	for i := 0; i < limit; i++ {
		if c := v.tokens[i].compare(other.tokens[i]); c != 0 {
			return c
		}
	}

	switch {
	case len(v.tokens) < len(other.tokens):
		return -1
	case len(v.tokens) > len(other.tokens):
		return 1
	default:
		return 0
	}
}

func (t versionToken) compare(other versionToken) int {
	switch {
	case t.numeric && other.numeric:
		switch {
		case t.num < other.num:
			return -1
		case t.num > other.num:
			return 1
		default:
			return 0
		}
	case t.numeric && !other.numeric:
		// Numeric tokens sort before alphabetic ones.
		return -1
	case !t.numeric && other.numeric:
		return 1
	default:
		return strings.Compare(t.str, other.str)
	}
}

// Equal reports whether v and other compare equal.
func (v Version) Equal(other Version) bool {
	return v.Compare(other) == 0
}

// Less reports whether v sorts before other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

// AtLeast reports whether v is greater than or equal to the given version
// string.
func (v Version) AtLeast(s string) bool {
	return v.Compare(ParseVersion(s)) >= 0
}

// InSeries reports whether v belongs to the given release series, e.g.
// "1.1.5" is in series "1.1" but "1.10" is not.
func (v Version) InSeries(series string) bool {
	prefix := ParseVersion(series)
	if len(prefix.tokens) > len(v.tokens) {
		return false
	}

	for i, tok := range prefix.tokens {
		if tok.compare(v.tokens[i]) != 0 {
			return false
		}
	}

	return true
}

// hrefIdentityBoundary is the version at which entities switch from numeric
// id identity to href identity.
var hrefIdentityBoundary = ParseVersion("2.0.0")

// NewIDBehaviour reports whether entities are identified by href rather than
// by numeric id under this API version.
func (v Version) NewIDBehaviour() bool {
	return v.Compare(hrefIdentityBoundary) >= 0
}

// SortVersionNames sorts version names in descending loose-version order, so
// the newest version comes first.
func SortVersionNames(names []string) {
	sort.Slice(names, func(i, j int) bool {
		return ParseVersion(names[j]).Less(ParseVersion(names[i]))
	})
}
