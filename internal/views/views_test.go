package views

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/a-h/templ"
	"github.com/stretchr/testify/require"

	"finitefield.org/uniform-studio/internal/nav"
	"finitefield.org/uniform-studio/internal/uniform"
)

func render(t *testing.T, c templ.Component) *goquery.Document {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	doc, err := goquery.NewDocumentFromReader(&buf)
	require.NoError(t, err)
	return doc
}

func menuLabels(doc *goquery.Document) []string {
	var out []string
	doc.Find("#nav-menu li a").Each(func(_ int, s *goquery.Selection) {
		out = append(out, strings.TrimSpace(s.Text()))
	})
	return out
}

func TestNavRendersEntriesInOrder(t *testing.T) {
	t.Parallel()

	doc := render(t, Nav(nav.Menu(true), "Main menu"))
	require.Equal(t, []string{"My Page", "My Saved Designs", "Design Sharing Board"}, menuLabels(doc))
	href, _ := doc.Find("#nav-menu li a").First().Attr("href")
	require.Equal(t, "#", href)

	doc = render(t, Nav(nav.Menu(false), "Main menu"))
	require.Equal(t, []string{"Log In", "Sign Up", "Design Sharing Board"}, menuLabels(doc))
}

func TestNavRenderReplacesContainer(t *testing.T) {
	t.Parallel()

	// swapping the fragment into a page twice must leave exactly one menu
	page := render(t, Layout(Page{Menu: nav.Menu(false)}))
	frag := render(t, Nav(nav.Menu(false), ""))
	html, err := goquery.OuterHtml(frag.Find("#nav-menu"))
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		page.Find("#nav-menu").ReplaceWithHtml(html)
	}
	require.Equal(t, 1, page.Find("#nav-menu").Length())
	require.Len(t, menuLabels(page), 3)
}

func TestNavEscapesLabels(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	require.NoError(t, Nav([]nav.Entry{{Label: "<b>x</b>", Href: "#"}}, "").Render(context.Background(), &buf))
	require.Contains(t, buf.String(), "&lt;b&gt;x&lt;/b&gt;")
}

func TestFormRendersCatalogAndConstraints(t *testing.T) {
	t.Parallel()

	doc := render(t, Form(FormView{State: uniform.BlankForm(), CSRFToken: "tok"}))

	require.Equal(t, 4, doc.Find(`select[name="sport"] option`).Length())
	selected, _ := doc.Find(`select[name="uniform_style"] option[selected]`).Attr("value")
	require.Equal(t, uniform.DefaultStyle, selected)

	name := doc.Find(`input[name="player_name"]`)
	maxLen, _ := name.Attr("maxlength")
	require.Equal(t, "12", maxLen)

	number := doc.Find(`input[name="player_number"]`)
	_, required := number.Attr("required")
	require.True(t, required)
	_, pattern := number.Attr("pattern")
	require.False(t, pattern, "number inputs take no pattern attribute")
	lo, _ := number.Attr("min")
	hi, _ := number.Attr("max")
	require.Equal(t, "0", lo)
	require.Equal(t, "99", hi)
	namePattern, _ := name.Attr("pattern")
	require.NotEmpty(t, namePattern)

	_, open := doc.Find("details#advanced").Attr("open")
	require.False(t, open)
	flag, _ := doc.Find(`input[name="advanced_open"]`).Attr("value")
	require.Equal(t, "false", flag)

	_, upper := doc.Find(`input[name="name_uppercase"]`).Attr("checked")
	require.True(t, upper)
	_, shadow := doc.Find(`input[name="name_shadow"]`).Attr("checked")
	require.False(t, shadow)

	token, _ := doc.Find(`input[name="csrf_token"]`).Attr("value")
	require.Equal(t, "tok", token)
}

func TestFormLeavesValidationToBrowserAndAnnouncesGenerating(t *testing.T) {
	t.Parallel()

	tr := func(key string) string {
		if key == "caption.generating" {
			return "Generating image... please wait a moment."
		}
		return key
	}
	doc := render(t, Form(FormView{State: uniform.BlankForm(), T: tr}))

	form := doc.Find("form#uniform-form")
	_, novalidate := form.Attr("novalidate")
	require.False(t, novalidate)
	generating, _ := form.Attr("data-generating-caption")
	require.Equal(t, "Generating image... please wait a moment.", generating)
	require.Equal(t, 1, form.Find("#"+FormErrorsID).Length())
	require.Equal(t, 0, form.Find(".field-error").Length())
}

func TestFormListsFieldErrors(t *testing.T) {
	t.Parallel()

	doc := render(t, Form(FormView{
		State:  uniform.BlankForm(),
		Errors: map[string]string{"player_number": "Value is too large.", "player_name": "Please shorten this text."},
	}))
	items := doc.Find("#form-errors .field-error")
	require.Equal(t, 2, items.Length())
	first, _ := items.First().Attr("data-field")
	require.Equal(t, "player_name", first)
	require.Equal(t, "Value is too large.", items.Last().Text())
}

func TestFormKeepsSubmittedState(t *testing.T) {
	t.Parallel()

	state := uniform.FormState{
		Keyword:      uniform.Given("tigers"),
		Sport:        uniform.Given("soccer"),
		AdvancedOpen: true,
		Advanced:     uniform.Advanced{NumberSize: uniform.Given("large"), NameShadow: true},
	}
	doc := render(t, Form(FormView{State: state}))

	kw, _ := doc.Find("#keyword").Attr("value")
	require.Equal(t, "tigers", kw)
	sport, _ := doc.Find(`select[name="sport"] option[selected]`).Attr("value")
	require.Equal(t, "soccer", sport)
	size, _ := doc.Find(`select[name="number_size"] option[selected]`).Attr("value")
	require.Equal(t, "large", size)
	_, open := doc.Find("details#advanced").Attr("open")
	require.True(t, open)
	_, shadow := doc.Find(`input[name="name_shadow"]`).Attr("checked")
	require.True(t, shadow)
}

func TestResultDisplayDefersReadyPhase(t *testing.T) {
	t.Parallel()

	d := NewResultDisplay("idle")
	d.SetCaption("Generating image... please wait a moment.")
	d.HideImage()
	d.LoadImage("http://x/y.png", func() {
		d.RevealImage()
		d.SetCaption("Here is your generated design!")
	})

	v := d.View()
	require.Equal(t, "Generating image... please wait a moment.", v.Caption)
	require.False(t, v.ImageVisible)
	require.True(t, v.RevealOnLoad)

	doc := render(t, Result(v))
	img := doc.Find("#uniform-image")
	src, _ := img.Attr("src")
	require.Equal(t, "http://x/y.png", src)
	ready, _ := img.Attr("data-ready-caption")
	require.Equal(t, "Here is your generated design!", ready)
	_, hidden := img.Attr("hidden")
	require.True(t, hidden)
	require.Equal(t, "Generating image... please wait a moment.", doc.Find("#image-caption").Text())
}

func TestResultDisplayErrorKeepsImageHidden(t *testing.T) {
	t.Parallel()

	d := NewResultDisplay("")
	d.SetCaption("Error: bad style")
	d.HideImage()
	d.ReportValidity("player_number", " Please fill out this field. ")

	doc := render(t, Result(d.View()))
	_, hidden := doc.Find("#uniform-image").Attr("hidden")
	require.True(t, hidden)
	_, hasSrc := doc.Find("#uniform-image").Attr("src")
	require.False(t, hasSrc)
	require.Equal(t, "Error: bad style", doc.Find("#image-caption").Text())
	require.Equal(t, 0, doc.Find(".field-error").Length(), "field messages stay out of the result area")

	errs := render(t, FieldErrors(d.View().FieldErrors))
	require.Equal(t, "Please fill out this field.", errs.Find(`.field-error[data-field="player_number"]`).Text())
}

func TestResultKeepsInlineImageData(t *testing.T) {
	t.Parallel()

	src := "data:image/svg+xml;base64,PHN2Zy8+"
	doc := render(t, Result(ResultView{ImageSrc: src, ImageVisible: true}))
	got, _ := doc.Find("#uniform-image").Attr("src")
	require.Equal(t, src, got)
	_, hidden := doc.Find("#uniform-image").Attr("hidden")
	require.False(t, hidden)

	doc = render(t, Result(ResultView{ImageSrc: "javascript:alert(1)"}))
	got, _ = doc.Find("#uniform-image").Attr("src")
	require.NotContains(t, got, "javascript")
}

func TestLayoutIncludesTipsAndLogout(t *testing.T) {
	t.Parallel()

	doc := render(t, Layout(Page{
		Lang:      "en",
		Title:     "Design",
		Menu:      nav.Menu(true),
		CSRFToken: "tok",
		TipsTitle: "Tips",
		TipsHTML:  "<ul><li>Pick bold colors</li></ul>",
		LoggedIn:  true,
		Logout:    "Log Out",
		Form:      FormView{State: uniform.BlankForm()},
	}))
	lang, _ := doc.Find("html").Attr("lang")
	require.Equal(t, "en", lang)
	meta, _ := doc.Find(`meta[name="csrf-token"]`).Attr("content")
	require.Equal(t, "tok", meta)
	require.Equal(t, "Pick bold colors", doc.Find(".tips li").Text())
	require.Equal(t, 1, doc.Find(`form[action="/logout"]`).Length())
	require.Equal(t, 1, doc.Find("#result").Length())
}

func TestAssetsEmbedded(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"app.css", "app.js"} {
		f, err := Assets().Open(name)
		require.NoError(t, err, name)
		require.NoError(t, f.Close())
	}
}
