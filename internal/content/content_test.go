package content

import (
	"strings"
	"testing"
	"testing/fstest"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func TestTipsRenderPerLanguage(t *testing.T) {
	t.Parallel()

	lib := Tips("ko")

	ko, err := lib.Page("ko")
	require.NoError(t, err)
	require.Equal(t, "디자인 팁", ko.Title)

	en, err := lib.Page("en")
	require.NoError(t, err)
	require.Equal(t, "Design tips", en.Title)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(en.HTML))
	require.NoError(t, err)
	require.Equal(t, 4, doc.Find("li").Length())
	require.Equal(t, "keyword", doc.Find("strong").First().Text())
}

func TestPageFallsBackToDefaultLanguage(t *testing.T) {
	t.Parallel()

	page, err := Tips("ko").Page("fr")
	require.NoError(t, err)
	require.Equal(t, "ko", page.Lang)
}

func TestPageSanitizesMarkup(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"docs/en.md": {Data: []byte("Hello <script>alert(1)</script> [site](https://example.com)\n")},
	}
	page, err := NewLibrary(fsys, "docs", "en").Page("en")
	require.NoError(t, err)
	require.NotContains(t, page.HTML, "<script>")
	require.Contains(t, page.HTML, `rel="nofollow`)
	require.Empty(t, page.Title)
}

func TestPageMissingEverywhere(t *testing.T) {
	t.Parallel()

	_, err := NewLibrary(fstest.MapFS{}, "docs", "en").Page("ko")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPageBadFrontMatter(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{"docs/en.md": {Data: []byte("---\ntitle: [unclosed\n---\nbody\n")}}
	_, err := NewLibrary(fsys, "docs", "en").Page("en")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound)
}
