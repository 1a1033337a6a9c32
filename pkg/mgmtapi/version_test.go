package mgmtapi_test

import (
	"testing"

	"github.com/appliance-io/mgmtapi/pkg/mgmtapi"
	"github.com/stretchr/testify/assert"
)

func TestVersionCompare(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		left     string
		right    string
		expected int
	}{
		{name: "equal", left: "2.0.0", right: "2.0.0", expected: 0},
		{name: "numeric ordering", left: "1.9", right: "1.10", expected: -1},
		{name: "major difference", left: "1.1.5", right: "2.0.0", expected: -1},
		{name: "longer wins on equal prefix", left: "2.0.0", right: "2.0.0-pre", expected: -1},
		{name: "pre-release sorts after release", left: "2.0.0-pre", right: "2.0.0", expected: 1},
		{name: "numeric before alphabetic", left: "2.0.1", right: "2.0.pre", expected: -1},
		{name: "alphabetic lexical", left: "2.0.0-alpha", right: "2.0.0-beta", expected: -1},
		{name: "separators irrelevant", left: "2.0.0.pre", right: "2.0.0-pre", expected: 0},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			left := mgmtapi.ParseVersion(testCase.left)
			right := mgmtapi.ParseVersion(testCase.right)

			assert.Equal(t, testCase.expected, left.Compare(right))
			assert.Equal(t, -testCase.expected, right.Compare(left))
		})
	}
}

func TestVersionPredicates(t *testing.T) {
	t.Parallel()

	t.Run("at least", func(t *testing.T) {
		t.Parallel()

		assert.True(t, mgmtapi.ParseVersion("2.1.0").AtLeast("2.0.0"))
		assert.True(t, mgmtapi.ParseVersion("2.0.0").AtLeast("2.0.0"))
		assert.True(t, mgmtapi.ParseVersion("2.0.0-pre").AtLeast("2.0.0"))
		assert.False(t, mgmtapi.ParseVersion("1.9.9").AtLeast("2.0.0"))
	})

	t.Run("in series", func(t *testing.T) {
		t.Parallel()

		assert.True(t, mgmtapi.ParseVersion("1.1.5").InSeries("1.1"))
		assert.True(t, mgmtapi.ParseVersion("1.1").InSeries("1.1"))
		assert.False(t, mgmtapi.ParseVersion("1.10").InSeries("1.1"))
		assert.False(t, mgmtapi.ParseVersion("2.1.0").InSeries("1.1"))
	})

	t.Run("zero value", func(t *testing.T) {
		t.Parallel()

		assert.True(t, mgmtapi.ParseVersion("").IsZero())
		assert.False(t, mgmtapi.ParseVersion("1.0").IsZero())
	})

	t.Run("string keeps original", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "2.0.0-pre", mgmtapi.ParseVersion("2.0.0-pre").String())
	})
}

func TestVersionNewIDBehaviour(t *testing.T) {
	t.Parallel()

	tests := []struct {
		version  string
		expected bool
	}{
		{version: "1.1.5", expected: false},
		{version: "1.9.9", expected: false},
		{version: "2.0.0", expected: true},
		{version: "2.0.0-pre", expected: true},
		{version: "2.4.1", expected: true},
		{version: "3.0.0", expected: true},
	}

	for _, testCase := range tests {
		testCase := testCase
		t.Run(testCase.version, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, testCase.expected, mgmtapi.ParseVersion(testCase.version).NewIDBehaviour())
		})
	}
}

func TestSortVersionNames(t *testing.T) {
	t.Parallel()

	names := []string{"1.1", "2.0.0", "2.0.0-pre", "1.10", "1.9"}
	mgmtapi.SortVersionNames(names)

	assert.Equal(t, []string{"2.0.0-pre", "2.0.0", "1.10", "1.9", "1.1"}, names)
}
