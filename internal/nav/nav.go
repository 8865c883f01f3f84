package nav

// Entry is a rendered menu item.
type Entry struct {
	LabelKey string // i18n key, e.g. "nav.login"
	Label    string // English fallback label
	Href     string
}

var (
	memberMenu = []Entry{
		{LabelKey: "nav.mypage", Label: "My Page", Href: "#"},
		{LabelKey: "nav.designs", Label: "My Saved Designs", Href: "#"},
		{LabelKey: "nav.board", Label: "Design Sharing Board", Href: "#"},
	}
	guestMenu = []Entry{
		{LabelKey: "nav.login", Label: "Log In", Href: "#"},
		{LabelKey: "nav.signup", Label: "Sign Up", Href: "#"},
		{LabelKey: "nav.board", Label: "Design Sharing Board", Href: "#"},
	}
)

// Menu returns the ordered menu entries for the given login state.
// The returned slice is freshly allocated on every call.
func Menu(loggedIn bool) []Entry {
	src := guestMenu
	if loggedIn {
		src = memberMenu
	}
	out := make([]Entry, len(src))
	copy(out, src)
	return out
}

// Localize resolves each entry label through translate, keeping the fallback
// label when translate returns the key itself.
func Localize(entries []Entry, translate func(key string) string) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = e
		if translate == nil {
			continue
		}
		if label := translate(e.LabelKey); label != "" && label != e.LabelKey {
			out[i].Label = label
		}
	}
	return out
}
