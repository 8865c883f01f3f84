package views

import (
	"html/template"

	"github.com/a-h/templ"

	"finitefield.org/uniform-studio/internal/nav"
)

// Page is the full design page.
type Page struct {
	Lang      string
	Title     string
	Lead      string
	NavLabel  string
	Menu      []nav.Entry
	CSRFToken string
	Form      FormView
	Result    ResultView
	TipsTitle string
	// TipsHTML is sanitized markup.
	TipsHTML string
	LoggedIn bool
	Logout   string
}

type tipsData struct {
	Title string
	HTML  template.HTML
}

type layoutData struct {
	Lang      string
	Title     string
	Lead      string
	CSRFToken string
	Logout    string
	Nav       navData
	Form      formData
	Result    resultData
	Tips      *tipsData
}

// Layout renders the whole document.
func Layout(p Page) templ.Component {
	data := layoutData{
		Lang:      p.Lang,
		Title:     p.Title,
		Lead:      p.Lead,
		CSRFToken: p.CSRFToken,
		Nav:       navData{Label: p.NavLabel, Entries: p.Menu},
		Form:      formDataFor(p.Form),
		Result:    resultDataFor(p.Result),
	}
	if p.LoggedIn {
		data.Logout = p.Logout
	}
	if p.TipsHTML != "" {
		data.Tips = &tipsData{Title: p.TipsTitle, HTML: template.HTML(p.TipsHTML)}
	}
	return component("layout", data)
}
