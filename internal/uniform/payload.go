package uniform

import (
	"encoding/json"
	"strconv"
)

// Wire keys of the generation request.
const (
	KeyKeyword        = "keyword"
	KeyStyle          = "style"
	KeySport          = "sport"
	KeyPlayerName     = "player_name"
	KeyPlayerNumber   = "player_number"
	KeyNameStyle      = "name_style"
	KeyNamePosition   = "name_position"
	KeyNameUppercase  = "name_uppercase"
	KeyNameShadow     = "name_shadow"
	KeyNumberSize     = "number_size"
	KeyNumberPosition = "number_position"
)

const (
	DefaultSport = "baseball"
	DefaultStyle = "short_sleeve_tshirt"

	// FlagOn is the value a checked toggle submits.
	FlagOn = "on"
)

// OptionKeys lists the advanced option keys in payload order.
var OptionKeys = []string{
	KeyNameStyle,
	KeyNamePosition,
	KeyNameUppercase,
	KeyNameShadow,
	KeyNumberSize,
	KeyNumberPosition,
}

// Source records where an optional value came from.
type Source int

const (
	// SourceUnset means the key is omitted and the consumer applies its own default.
	SourceUnset Source = iota
	// SourceDefault means the documented default was used.
	SourceDefault
	// SourceOverride means the value was supplied by the user.
	SourceOverride
)

func (s Source) String() string {
	switch s {
	case SourceDefault:
		return "default"
	case SourceOverride:
		return "override"
	default:
		return "unset"
	}
}

// Value is a tri-state optional field.
type Value struct {
	Text   string
	Source Source
}

// Present reports whether the value is emitted in the payload.
func (v Value) Present() bool { return v.Source != SourceUnset }

// Defaulted returns a value sourced from the documented defaults.
func Defaulted(text string) Value { return Value{Text: text, Source: SourceDefault} }

// Override returns a user supplied value.
func Override(text string) Value { return Value{Text: text, Source: SourceOverride} }

// Options holds the advanced option set keyed by wire key. Missing keys are unset.
type Options map[string]Value

// Defaults returns the fixed default map for the advanced options.
// name_shadow is deliberately absent: it is only sent when toggled on.
func Defaults() Options {
	return Options{
		KeyNameStyle:      Defaulted("english"),
		KeyNamePosition:   Defaulted("back"),
		KeyNameUppercase:  Defaulted(FlagOn),
		KeyNumberSize:     Defaulted("medium"),
		KeyNumberPosition: Defaulted("back"),
	}
}

// Required carries the top-level fields that are always sent.
type Required struct {
	Keyword      string
	Style        string
	Sport        string
	PlayerName   string
	PlayerNumber string
}

// Request is the outbound generation payload.
type Request struct {
	Required
	Options Options
}

// Merge combines the payload layers with precedence required < defaults < overrides.
// An unset override never clears a lower layer.
func Merge(required Required, defaults Options, overrides Options) Request {
	out := Request{Required: required, Options: Options{}}
	for _, layer := range []Options{defaults, overrides} {
		for key, val := range layer {
			if !val.Present() {
				continue
			}
			out.Options[key] = val
		}
	}
	return out
}

// Option returns the value stored for key.
func (r Request) Option(key string) (string, bool) {
	v, ok := r.Options[key]
	if !ok || !v.Present() {
		return "", false
	}
	return v.Text, true
}

// Map flattens the request into the key/value object sent on the wire.
func (r Request) Map() map[string]string {
	m := map[string]string{
		KeyKeyword:      r.Keyword,
		KeyStyle:        r.Style,
		KeySport:        r.Sport,
		KeyPlayerName:   r.PlayerName,
		KeyPlayerNumber: r.PlayerNumber,
	}
	for _, key := range OptionKeys {
		if v, ok := r.Option(key); ok {
			m[key] = v
		}
	}
	return m
}

// MarshalJSON encodes the flat payload object.
func (r Request) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}

// UnmarshalJSON decodes a flat payload object; option keys present on the wire are overrides.
func (r *Request) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	str := func(key string) string {
		switch v := raw[key].(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			if v {
				return FlagOn
			}
		}
		return ""
	}
	*r = Request{
		Required: Required{
			Keyword:      str(KeyKeyword),
			Style:        str(KeyStyle),
			Sport:        str(KeySport),
			PlayerName:   str(KeyPlayerName),
			PlayerNumber: str(KeyPlayerNumber),
		},
		Options: Options{},
	}
	for _, key := range OptionKeys {
		if _, ok := raw[key]; ok {
			r.Options[key] = Override(str(key))
		}
	}
	return nil
}
