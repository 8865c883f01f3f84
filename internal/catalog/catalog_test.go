package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogListsDefaults(t *testing.T) {
	t.Parallel()

	c := Default()
	require.True(t, Has(c.Sports, "baseball"))
	require.True(t, Has(c.Styles, "short_sleeve_tshirt"))
	require.True(t, Has(c.NameStyles, "english"))
	require.True(t, Has(c.NumberSizes, "medium"))
	require.False(t, Has(c.Sports, "curling"))
}

func TestPlayerNameConstraint(t *testing.T) {
	t.Parallel()

	cons := Default().Constraint("player_name")

	cases := []struct {
		value string
		want  Violation
		ok    bool
	}{
		{value: "", ok: true},
		{value: "Smith", ok: true},
		{value: "O'Neil Jr.", ok: true},
		{value: "손흥민", ok: true},
		{value: "Smith23", want: PatternMismatch},
		{value: "Bartholomewson", want: TooLong},
	}
	for _, tc := range cases {
		got, ok := cons.Check(tc.value)
		require.Equal(t, tc.ok, ok, "value %q", tc.value)
		require.Equal(t, tc.want, got, "value %q", tc.value)
	}
}

func TestPlayerNumberConstraint(t *testing.T) {
	t.Parallel()

	cons := Default().Constraint("player_number")

	v, ok := cons.Check("")
	require.False(t, ok)
	require.Equal(t, ValueMissing, v)
	require.Equal(t, "Please fill out this field.", cons.Message(v))

	_, ok = cons.Check("23")
	require.True(t, ok)

	v, ok = cons.Check("123")
	require.False(t, ok)
	require.Equal(t, RangeOverflow, v)
	require.Equal(t, "Value must be less than or equal to 99.", cons.Message(v))

	v, ok = cons.Check("-1")
	require.False(t, ok)
	require.Equal(t, RangeUnderflow, v)

	v, ok = cons.Check("ab")
	require.False(t, ok)
	require.Equal(t, PatternMismatch, v)

	// in range, but not the one or two digits the pattern allows
	v, ok = cons.Check("+7")
	require.False(t, ok)
	require.Equal(t, PatternMismatch, v)

	require.True(t, cons.Numeric())
	require.Empty(t, cons.HTMLPattern())
	require.Equal(t, "[A-Za-z가-힣 .'\\-]*", Default().Constraint("player_name").HTMLPattern())
}

func TestParseRejectsBadPattern(t *testing.T) {
	t.Parallel()

	_, err := Parse([]byte("constraints:\n  x:\n    pattern: \"[\"\n"))
	require.Error(t, err)
}

func TestRangeMessages(t *testing.T) {
	t.Parallel()

	min, max := 1, 10
	cons := Constraint{Min: &min, Max: &max}
	v, ok := cons.Check("11")
	require.False(t, ok)
	require.Equal(t, RangeOverflow, v)
	require.Equal(t, "Value must be less than or equal to 10.", cons.Message(v))

	v, ok = cons.Check("0")
	require.False(t, ok)
	require.Equal(t, RangeUnderflow, v)
}
