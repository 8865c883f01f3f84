package views

import (
	"github.com/a-h/templ"

	"finitefield.org/uniform-studio/internal/nav"
)

// MenuID is the id of the menu container element.
const MenuID = "nav-menu"

type navData struct {
	Label   string
	Entries []nav.Entry
}

// Nav renders the menu entries as the full contents of the menu container.
// Rendering replaces whatever the container held, so repeated renders never
// duplicate entries.
func Nav(entries []nav.Entry, label string) templ.Component {
	return component("nav", navData{Label: label, Entries: entries})
}
