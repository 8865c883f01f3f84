package uniform

import (
	"encoding/json"
	"errors"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"finitefield.org/uniform-studio/internal/catalog"
)

func tigersForm() FormState {
	return FormState{
		Keyword:      Given("tigers"),
		PlayerName:   Given("Smith"),
		PlayerNumber: Given("23"),
	}
}

func TestBuildPayloadScenarioClosedDisclosure(t *testing.T) {
	t.Parallel()

	got := BuildPayload(tigersForm()).Map()
	want := map[string]string{
		"keyword":         "tigers",
		"style":           "short_sleeve_tshirt",
		"sport":           "baseball",
		"player_name":     "Smith",
		"player_number":   "23",
		"name_style":      "english",
		"name_position":   "back",
		"name_uppercase":  "on",
		"number_size":     "medium",
		"number_position": "back",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("payload mismatch (-want +got):\n%s", diff)
	}

	raw, err := json.Marshal(BuildPayload(tigersForm()))
	require.NoError(t, err)
	require.NotContains(t, string(raw), "name_shadow")
}

func TestBuildPayloadIgnoresAdvancedFieldsWhileClosed(t *testing.T) {
	t.Parallel()

	form := tigersForm()
	form.Advanced = Advanced{
		NameStyle:      Given("korean"),
		NamePosition:   Given("front"),
		NameUppercase:  false,
		NameShadow:     true,
		NumberSize:     Given("large"),
		NumberPosition: Given("both"),
	}

	req := BuildPayload(form)
	for _, key := range OptionKeys {
		got, gotOK := req.Option(key)
		def, defOK := Defaults()[key]
		require.Equal(t, defOK, gotOK, "key %s", key)
		require.Equal(t, def.Text, got, "key %s", key)
		if gotOK {
			require.Equal(t, SourceDefault, req.Options[key].Source, "key %s", key)
		}
	}
}

func TestBuildPayloadNameShadowOmittedUnlessChecked(t *testing.T) {
	t.Parallel()

	form := tigersForm()
	form.AdvancedOpen = true

	unchecked := BuildPayload(form).Map()
	_, ok := unchecked[KeyNameShadow]
	require.False(t, ok, "unchecked toggle must be omitted, not false")

	form.Advanced.NameShadow = true
	checked := BuildPayload(form).Map()
	require.Equal(t, "on", checked[KeyNameShadow])
}

func TestBuildPayloadUncheckedUppercaseKeepsDefault(t *testing.T) {
	t.Parallel()

	form := tigersForm()
	form.AdvancedOpen = true
	form.Advanced.NameUppercase = false

	req := BuildPayload(form)
	v, ok := req.Option(KeyNameUppercase)
	require.True(t, ok)
	require.Equal(t, "on", v)
	require.Equal(t, SourceDefault, req.Options[KeyNameUppercase].Source)
}

func TestBuildPayloadOpenDisclosureOverrides(t *testing.T) {
	t.Parallel()

	form := tigersForm()
	form.AdvancedOpen = true
	form.Advanced = Advanced{
		NameStyle:     Given("korean"),
		NumberSize:    Given("large"),
		NameUppercase: true,
	}

	req := BuildPayload(form)
	require.Equal(t, Override("korean"), req.Options[KeyNameStyle])
	require.Equal(t, Override("large"), req.Options[KeyNumberSize])
	require.Equal(t, Override("on"), req.Options[KeyNameUppercase])
	// absent text fields fall back to the default value but count as collected
	require.Equal(t, Override("back"), req.Options[KeyNamePosition])
}

func TestBuildPayloadIsDeterministic(t *testing.T) {
	t.Parallel()

	form := tigersForm()
	form.AdvancedOpen = true
	form.Advanced.NameShadow = true

	first := BuildPayload(form)
	second := BuildPayload(form)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("payload not deterministic:\n%s", diff)
	}
}

func TestBuildPayloadTrimsAndFallsBack(t *testing.T) {
	t.Parallel()

	form := FormState{
		Keyword:      Given("  lions "),
		Sport:        Given("soccer"),
		PlayerName:   Given(" Kim "),
		PlayerNumber: Given("7"),
	}
	req := BuildPayload(form)
	require.Equal(t, "lions", req.Keyword)
	require.Equal(t, "soccer", req.Sport)
	require.Equal(t, DefaultStyle, req.Style)
	require.Equal(t, "Kim", req.PlayerName)
}

func TestMergePrecedence(t *testing.T) {
	t.Parallel()

	req := Merge(
		Required{Keyword: "k"},
		Options{KeyNameStyle: Defaulted("english"), KeyNumberSize: Defaulted("medium")},
		Options{KeyNameStyle: Override("korean"), KeyNumberSize: Value{}},
	)
	require.Equal(t, Override("korean"), req.Options[KeyNameStyle])
	require.Equal(t, Defaulted("medium"), req.Options[KeyNumberSize])
}

func TestParseFormKeepsAbsentAndEmptyApart(t *testing.T) {
	t.Parallel()

	values := url.Values{
		"keyword":        {"tigers"},
		"uniform_style":  {""},
		"player_number":  {"23"},
		"advanced_open":  {"1"},
		"name_shadow":    {"on"},
		"number_size":    {"small"},
		"name_uppercase": {"on"},
	}
	form := ParseForm(values)
	require.True(t, form.AdvancedOpen)
	require.True(t, form.Style.Present)
	require.False(t, form.Sport.Present)
	require.True(t, form.Advanced.NameShadow)

	req := BuildPayload(form)
	require.Equal(t, "", req.Style, "present but empty select keeps empty value")
	require.Equal(t, DefaultSport, req.Sport)
	require.Equal(t, "small", req.Map()[KeyNumberSize])

	back := ParseForm(form.Values())
	if diff := cmp.Diff(form, back); diff != "" {
		t.Fatalf("values round trip mismatch:\n%s", diff)
	}
}

func TestRequestUnmarshalTreatsWireOptionsAsOverrides(t *testing.T) {
	t.Parallel()

	var req Request
	err := json.Unmarshal([]byte(`{"keyword":"tigers","style":"sleeveless","player_number":23,"name_shadow":"on"}`), &req)
	require.NoError(t, err)
	require.Equal(t, "tigers", req.Keyword)
	require.Equal(t, "23", req.PlayerNumber)
	require.Equal(t, Override("on"), req.Options[KeyNameShadow])
	_, ok := req.Option(KeyNameStyle)
	require.False(t, ok)
}

func TestValidateOrder(t *testing.T) {
	t.Parallel()

	cat := catalog.Default()

	err := Validate(FormState{Keyword: Given("   "), PlayerNumber: Given("")}, cat)
	require.ErrorIs(t, err, ErrKeywordRequired)

	err = Validate(FormState{Keyword: Given("tigers"), PlayerName: Given("R2D2"), PlayerNumber: Given("")}, cat)
	var fe *FieldError
	require.True(t, errors.As(err, &fe))
	require.Equal(t, FieldPlayerName, fe.Field)

	err = Validate(FormState{Keyword: Given("tigers"), PlayerName: Given("Smith")}, cat)
	require.True(t, errors.As(err, &fe))
	require.Equal(t, FieldPlayerNumber, fe.Field)
	require.Equal(t, catalog.ValueMissing, fe.Violation)

	require.NoError(t, Validate(tigersForm(), cat))
}

func TestResponseOK(t *testing.T) {
	t.Parallel()

	require.True(t, Response{Status: 200, ImageURL: "http://x/y.png"}.OK())
	require.False(t, Response{Status: 200}.OK())
	require.False(t, Response{Status: 500, ImageURL: "http://x/y.png"}.OK())
}
