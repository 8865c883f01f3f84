package nav

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func labels(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Label)
	}
	return out
}

func TestMenuEntriesByLoginState(t *testing.T) {
	t.Parallel()

	require.Equal(t, []string{"My Page", "My Saved Designs", "Design Sharing Board"}, labels(Menu(true)))
	require.Equal(t, []string{"Log In", "Sign Up", "Design Sharing Board"}, labels(Menu(false)))
}

func TestMenuReturnsFreshSlice(t *testing.T) {
	t.Parallel()

	first := Menu(false)
	first[0].Label = "mutated"
	second := Menu(false)
	require.Equal(t, "Log In", second[0].Label)
	require.Len(t, second, 3)
}

func TestLocalizeKeepsFallbackForMissingKeys(t *testing.T) {
	t.Parallel()

	dict := map[string]string{"nav.login": "로그인"}
	out := Localize(Menu(false), func(key string) string {
		if v, ok := dict[key]; ok {
			return v
		}
		return key
	})
	require.Equal(t, []string{"로그인", "Sign Up", "Design Sharing Board"}, labels(out))
}
