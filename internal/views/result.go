package views

import (
	"html/template"
	"strings"

	"github.com/a-h/templ"
)

// ResultID is the id of the swappable result area.
const ResultID = "result"

type resultData struct {
	SubmissionID string
	Busy         bool
	Src          any
	RevealOnLoad bool
	ReadyCaption string
	Hidden       bool
	Caption      string
}

// Result renders the caption and image area. A pending image stays hidden
// until app.js sees its load event and applies data-ready-caption.
func Result(v ResultView) templ.Component {
	return component("result", resultDataFor(v))
}

func resultDataFor(v ResultView) resultData {
	d := resultData{
		SubmissionID: v.SubmissionID,
		Busy:         v.Busy,
		RevealOnLoad: v.RevealOnLoad,
		ReadyCaption: v.ReadyCaption,
		Hidden:       !v.ImageVisible,
		Caption:      v.Caption,
	}
	if v.ImageSrc != "" {
		d.Src = imageSource(v.ImageSrc)
	}
	return d
}

// imageSource lets inline image data through the template's URL filter.
// Other schemes are filtered as usual.
func imageSource(src string) any {
	if strings.HasPrefix(strings.ToLower(src), "data:image/") {
		return template.URL(src)
	}
	return src
}
