package mgmtapi

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// FilterDialect identifies one of the two server-side filter query encodings.
type FilterDialect int

const (
	// DialectSQLFilter is the legacy encoding: a single sqlfilter parameter
	// holding "<key> = '<value>'" predicates joined by " AND ".
	DialectSQLFilter FilterDialect = iota

	// DialectFilterExpr is the current encoding: one repeated "filter[]"
	// parameter per "<key>=<value>" predicate.
	DialectFilterExpr
)

// String implements fmt.Stringer.
func (d FilterDialect) String() string {
	switch d {
	case DialectSQLFilter:
		return "sqlfilter"
	case DialectFilterExpr:
		return "filter[]"
	default:
		return fmt.Sprintf("FilterDialect(%d)", int(d))
	}
}

// DialectPlan is the attempt sequence for encoding a filtered search against
// a given server version: the preferred dialect is tried first, and when
// HasFallback is set a remote error envelope from the preferred attempt
// triggers exactly one retry with the fallback dialect.
type DialectPlan struct {
	Preferred   FilterDialect
	Fallback    FilterDialect
	HasFallback bool
}

// preRelease200 is the one version that may speak either dialect.
var preRelease200 = ParseVersion("2.0.0-pre")

// PlanForVersion resolves the filter dialect plan for a server version.
// The 1.1 series and 2.0.0 onwards speak only the filter[] encoding; the
// 2.0.0 pre-release may speak either, so the modern encoding is tried first
// with the legacy one as fallback; everything older speaks only sqlfilter.
func PlanForVersion(v Version) DialectPlan {
	switch {
	case v.Equal(preRelease200):
		return DialectPlan{
			Preferred:   DialectFilterExpr,
			Fallback:    DialectSQLFilter,
			HasFallback: true,
		}
	case v.InSeries("1.1") || v.AtLeast("2.0.0"):
		return DialectPlan{Preferred: DialectFilterExpr}
	default:
		return DialectPlan{Preferred: DialectSQLFilter}
	}
}

// EncodeFilters serializes filter pairs into query parameters using the
// given dialect. Keys are emitted in sorted order so the encoding is stable.
func EncodeFilters(dialect FilterDialect, filters map[string]any) url.Values {
	keys := make([]string, 0, len(filters))
	for key := range filters {
		keys = append(keys, key)
	}

	sort.Strings(keys)

	values := url.Values{}

	switch dialect {
	case DialectSQLFilter:
		predicates := make([]string, 0, len(keys))
		for _, key := range keys {
			predicates = append(predicates, fmt.Sprintf("%s = '%v'", key, filters[key]))
		}

		if len(predicates) > 0 {
			values.Set("sqlfilter", strings.Join(predicates, " AND "))
		}
	case DialectFilterExpr:
		for _, key := range keys {
			values.Add("filter[]", fmt.Sprintf("%s=%v", key, filters[key]))
		}
	}

	return values
}
