package uniform

import (
	"net/url"
	"strings"
)

// Form field names, shared by the HTML form and the CLI flags.
const (
	FieldKeyword      = "keyword"
	FieldSport        = "sport"
	FieldUniformStyle = "uniform_style"
	FieldPlayerName   = "player_name"
	FieldPlayerNumber = "player_number"
	FieldAdvancedOpen = "advanced_open"
)

// Field is a submitted form value that remembers whether the key was present at all.
type Field struct {
	Value   string
	Present bool
}

// Given returns a present field.
func Given(v string) Field { return Field{Value: v, Present: true} }

// Or returns the value, or fallback when the field was not submitted.
func (f Field) Or(fallback string) string {
	if !f.Present {
		return fallback
	}
	return f.Value
}

// Advanced holds the fields inside the advanced options disclosure.
type Advanced struct {
	NameStyle      Field
	NamePosition   Field
	NameUppercase  bool
	NameShadow     bool
	NumberSize     Field
	NumberPosition Field
}

// FormState is a snapshot of the design form at submission time.
type FormState struct {
	Keyword      Field
	Sport        Field
	Style        Field
	PlayerName   Field
	PlayerNumber Field

	// AdvancedOpen mirrors the open state of the advanced options disclosure.
	AdvancedOpen bool
	Advanced     Advanced
}

// BlankForm is the form as first rendered: empty inputs with the uppercase
// toggle checked.
func BlankForm() FormState {
	return FormState{Advanced: Advanced{NameUppercase: true}}
}

// ParseForm builds a FormState from submitted form values.
func ParseForm(values url.Values) FormState {
	get := func(key string) Field {
		vs, ok := values[key]
		if !ok || len(vs) == 0 {
			return Field{}
		}
		return Given(vs[0])
	}
	has := func(key string) bool {
		_, ok := values[key]
		return ok
	}
	return FormState{
		Keyword:      get(FieldKeyword),
		Sport:        get(FieldSport),
		Style:        get(FieldUniformStyle),
		PlayerName:   get(FieldPlayerName),
		PlayerNumber: get(FieldPlayerNumber),
		AdvancedOpen: isTruthy(get(FieldAdvancedOpen).Value),
		Advanced: Advanced{
			NameStyle:      get(KeyNameStyle),
			NamePosition:   get(KeyNamePosition),
			NameUppercase:  has(KeyNameUppercase),
			NameShadow:     has(KeyNameShadow),
			NumberSize:     get(KeyNumberSize),
			NumberPosition: get(KeyNumberPosition),
		},
	}
}

// Values converts the form state back into form values.
func (f FormState) Values() url.Values {
	v := url.Values{}
	set := func(key string, field Field) {
		if field.Present {
			v.Set(key, field.Value)
		}
	}
	set(FieldKeyword, f.Keyword)
	set(FieldSport, f.Sport)
	set(FieldUniformStyle, f.Style)
	set(FieldPlayerName, f.PlayerName)
	set(FieldPlayerNumber, f.PlayerNumber)
	if f.AdvancedOpen {
		v.Set(FieldAdvancedOpen, "1")
	}
	set(KeyNameStyle, f.Advanced.NameStyle)
	set(KeyNamePosition, f.Advanced.NamePosition)
	set(KeyNumberSize, f.Advanced.NumberSize)
	set(KeyNumberPosition, f.Advanced.NumberPosition)
	if f.Advanced.NameUppercase {
		v.Set(KeyNameUppercase, FlagOn)
	}
	if f.Advanced.NameShadow {
		v.Set(KeyNameShadow, FlagOn)
	}
	return v
}

// BuildPayload turns the current form state into the generation request.
// Advanced fields are only collected while the disclosure is open; edits made
// while it is closed are ignored.
func BuildPayload(f FormState) Request {
	required := Required{
		Keyword:      strings.TrimSpace(f.Keyword.Or("")),
		Style:        f.Style.Or(DefaultStyle),
		Sport:        f.Sport.Or(DefaultSport),
		PlayerName:   strings.TrimSpace(f.PlayerName.Or("")),
		PlayerNumber: f.PlayerNumber.Or(""),
	}
	defaults := Defaults()

	var overrides Options
	if f.AdvancedOpen {
		overrides = collectAdvanced(f.Advanced, defaults)
	}
	return Merge(required, defaults, overrides)
}

func collectAdvanced(a Advanced, defaults Options) Options {
	text := func(field Field, key string) Value {
		return Override(field.Or(defaults[key].Text))
	}
	toggle := func(checked bool) Value {
		if !checked {
			return Value{}
		}
		return Override(FlagOn)
	}
	return Options{
		KeyNameStyle:      text(a.NameStyle, KeyNameStyle),
		KeyNamePosition:   text(a.NamePosition, KeyNamePosition),
		KeyNameUppercase:  toggle(a.NameUppercase),
		KeyNameShadow:     toggle(a.NameShadow),
		KeyNumberSize:     text(a.NumberSize, KeyNumberSize),
		KeyNumberPosition: text(a.NumberPosition, KeyNumberPosition),
	}
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "open", "yes":
		return true
	default:
		return false
	}
}
