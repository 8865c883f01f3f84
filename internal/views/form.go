package views

import (
	"sort"
	"strconv"

	"github.com/a-h/templ"

	"finitefield.org/uniform-studio/internal/catalog"
	"finitefield.org/uniform-studio/internal/uniform"
)

// FormErrorsID is the id of the list that receives field validation messages.
const FormErrorsID = "form-errors"

// FormView carries what the design form needs to render.
type FormView struct {
	Catalog   *catalog.Catalog
	State     uniform.FormState
	CSRFToken string
	// Errors maps a field name to its validation message.
	Errors map[string]string
	T      func(string) string
}

func (f FormView) t(key string) string {
	if f.T == nil {
		return key
	}
	return f.T(key)
}

type inputField struct {
	Type        string
	Name        string
	Label       string
	Value       string
	Placeholder string
	InputMode   string
	Required    bool
	MaxLength   int
	MinLength   int
	Pattern     string
	Min         string
	Max         string
}

type selectOption struct {
	Value    string
	Label    string
	Selected bool
}

type selectField struct {
	Name    string
	Label   string
	Options []selectOption
}

type checkboxField struct {
	Name    string
	Label   string
	Value   string
	Checked bool
}

type fieldError struct {
	Field   string
	Message string
}

type formData struct {
	CSRFToken         string
	GeneratingCaption string
	SubmitLabel       string

	Keyword      inputField
	Sport        selectField
	Style        selectField
	PlayerName   inputField
	PlayerNumber inputField

	AdvancedFlag   string
	AdvancedOpen   bool
	AdvancedLabel  string
	NameStyle      selectField
	NamePosition   selectField
	NameUppercase  checkboxField
	NameShadow     checkboxField
	NumberSize     selectField
	NumberPosition selectField

	Errors []fieldError
}

// Form renders the design form. It posts to /design and swaps the result area.
// The browser runs the native field constraints before htmx sends anything.
func Form(f FormView) templ.Component {
	return component("form", formDataFor(f))
}

// FieldErrors renders the validation messages as list items for the form's
// error list, ordered by field name.
func FieldErrors(errs map[string]string) templ.Component {
	return component("field-errors", sortedErrors(errs))
}

func formDataFor(f FormView) formData {
	cat := f.Catalog
	if cat == nil {
		cat = catalog.Default()
	}
	defaults := uniform.Defaults()
	adv := f.State.Advanced

	choose := func(name, labelKey string, options []catalog.Option, selected string) selectField {
		s := selectField{Name: name, Label: f.t(labelKey)}
		for _, opt := range options {
			s.Options = append(s.Options, selectOption{
				Value:    opt.Value,
				Label:    f.t(opt.LabelKey),
				Selected: opt.Value == selected,
			})
		}
		return s
	}
	toggle := func(name, labelKey string, checked bool) checkboxField {
		return checkboxField{Name: name, Label: f.t(labelKey), Value: uniform.FlagOn, Checked: checked}
	}

	number := constrained(inputField{
		Type:      "number",
		InputMode: "numeric",
		Name:      uniform.FieldPlayerNumber,
		Label:     f.t("form.player_number"),
		Value:     f.State.PlayerNumber.Value,
	}, cat.Constraint(uniform.FieldPlayerNumber))

	return formData{
		CSRFToken:         f.CSRFToken,
		GeneratingCaption: f.t("caption.generating"),
		SubmitLabel:       f.t("form.submit"),

		Keyword: inputField{
			Type:        "text",
			Name:        uniform.FieldKeyword,
			Label:       f.t("form.keyword"),
			Value:       f.State.Keyword.Value,
			Placeholder: f.t("form.keyword.placeholder"),
		},
		Sport: choose(uniform.FieldSport, "form.sport", cat.Sports, f.State.Sport.Or(uniform.DefaultSport)),
		Style: choose(uniform.FieldUniformStyle, "form.style", cat.Styles, f.State.Style.Or(uniform.DefaultStyle)),
		PlayerName: constrained(inputField{
			Type:  "text",
			Name:  uniform.FieldPlayerName,
			Label: f.t("form.player_name"),
			Value: f.State.PlayerName.Value,
		}, cat.Constraint(uniform.FieldPlayerName)),
		PlayerNumber: number,

		AdvancedFlag:   uniform.FieldAdvancedOpen,
		AdvancedOpen:   f.State.AdvancedOpen,
		AdvancedLabel:  f.t("form.advanced"),
		NameStyle:      choose(uniform.KeyNameStyle, "form.name_style", cat.NameStyles, adv.NameStyle.Or(defaults[uniform.KeyNameStyle].Text)),
		NamePosition:   choose(uniform.KeyNamePosition, "form.name_position", cat.NamePositions, adv.NamePosition.Or(defaults[uniform.KeyNamePosition].Text)),
		NameUppercase:  toggle(uniform.KeyNameUppercase, "form.name_uppercase", adv.NameUppercase),
		NameShadow:     toggle(uniform.KeyNameShadow, "form.name_shadow", adv.NameShadow),
		NumberSize:     choose(uniform.KeyNumberSize, "form.number_size", cat.NumberSizes, adv.NumberSize.Or(defaults[uniform.KeyNumberSize].Text)),
		NumberPosition: choose(uniform.KeyNumberPosition, "form.number_position", cat.NumberPositions, adv.NumberPosition.Or(defaults[uniform.KeyNumberPosition].Text)),

		Errors: sortedErrors(f.Errors),
	}
}

func constrained(in inputField, c catalog.Constraint) inputField {
	in.Required = c.Required
	in.MaxLength = c.MaxLength
	in.MinLength = c.MinLength
	in.Pattern = c.HTMLPattern()
	if c.Min != nil {
		in.Min = strconv.Itoa(*c.Min)
	}
	if c.Max != nil {
		in.Max = strconv.Itoa(*c.Max)
	}
	return in
}

func sortedErrors(errs map[string]string) []fieldError {
	out := make([]fieldError, 0, len(errs))
	for field, msg := range errs {
		out = append(out, fieldError{Field: field, Message: msg})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Field < out[j].Field })
	return out
}
