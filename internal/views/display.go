package views

import "strings"

// ResultView is the state of the result area after a submission.
type ResultView struct {
	SubmissionID string
	Caption      string
	ImageSrc     string
	ImageVisible bool
	// ReadyCaption replaces Caption once the browser finished loading ImageSrc.
	ReadyCaption string
	RevealOnLoad bool
	FieldErrors  map[string]string
	Busy         bool
}

// ResultDisplay records workflow updates for rendering. The browser performs
// the image load, so the ready callback runs immediately in capture mode: the
// caption and reveal it requests are deferred to the embedded script.
type ResultDisplay struct {
	view      ResultView
	capturing bool
}

// NewResultDisplay starts from the given caption with the image hidden.
func NewResultDisplay(caption string) *ResultDisplay {
	return &ResultDisplay{view: ResultView{Caption: caption, FieldErrors: map[string]string{}}}
}

// SetCaption updates the caption text.
func (d *ResultDisplay) SetCaption(text string) {
	if d.capturing {
		d.view.ReadyCaption = text
		return
	}
	d.view.Caption = text
}

// HideImage hides and clears the image.
func (d *ResultDisplay) HideImage() {
	d.view.ImageVisible = false
	d.view.ImageSrc = ""
	d.view.RevealOnLoad = false
	d.view.ReadyCaption = ""
}

// LoadImage assigns the source and captures the ready transition.
func (d *ResultDisplay) LoadImage(src string, onReady func()) {
	d.view.ImageSrc = src
	d.view.ImageVisible = false
	d.capturing = true
	defer func() { d.capturing = false }()
	if onReady != nil {
		onReady()
	}
}

// RevealImage shows the image, or marks it to be shown on load.
func (d *ResultDisplay) RevealImage() {
	if d.capturing {
		d.view.RevealOnLoad = true
		return
	}
	d.view.ImageVisible = true
}

// ReportValidity attaches a field message.
func (d *ResultDisplay) ReportValidity(field, message string) {
	d.view.FieldErrors[field] = strings.TrimSpace(message)
}

// MarkBusy flags the view as a rejected concurrent submission.
func (d *ResultDisplay) MarkBusy(id string) {
	d.view.Busy = true
	d.view.SubmissionID = id
}

// SetSubmissionID tags the view with the submission id.
func (d *ResultDisplay) SetSubmissionID(id string) { d.view.SubmissionID = id }

// View returns a copy of the recorded state.
func (d *ResultDisplay) View() ResultView {
	v := d.view
	v.FieldErrors = make(map[string]string, len(d.view.FieldErrors))
	for k, msg := range d.view.FieldErrors {
		v.FieldErrors[k] = msg
	}
	return v
}
