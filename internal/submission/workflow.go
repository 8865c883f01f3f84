package submission

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"finitefield.org/uniform-studio/internal/catalog"
	"finitefield.org/uniform-studio/internal/uniform"
)

// State is a step of the submission workflow.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
	StateSuccess
	StateApplicationError
	StateTransportError
	StateBusy
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	case StateSuccess:
		return "success"
	case StateApplicationError:
		return "application_error"
	case StateTransportError:
		return "transport_error"
	case StateBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// ImagePhase tracks how far the result image has progressed.
type ImagePhase int

const (
	ImageHidden ImagePhase = iota
	// ImageAssigned means the source was set and decoding is pending.
	ImageAssigned
	// ImageReady means the image finished loading and is visible.
	ImageReady
)

func (p ImagePhase) String() string {
	switch p {
	case ImageAssigned:
		return "assigned"
	case ImageReady:
		return "ready"
	default:
		return "hidden"
	}
}

// Display is the surface the workflow drives: a caption, an image and the form fields.
type Display interface {
	SetCaption(text string)
	HideImage()
	// LoadImage assigns src and must call onReady once the image has loaded.
	LoadImage(src string, onReady func())
	RevealImage()
	ReportValidity(field, message string)
}

// Generator sends one request to the image generation endpoint.
type Generator interface {
	Generate(ctx context.Context, req uniform.Request) (uniform.Response, error)
}

// Result describes one submission attempt.
type Result struct {
	ID       string
	State    State
	Request  *uniform.Request
	Response *uniform.Response
	Err      error
	// Trail lists every state entered, starting with StateValidating.
	Trail []State

	mu    sync.Mutex
	image ImagePhase
}

// Image reports the current image phase. It may advance after Submit returns.
func (r *Result) Image() ImagePhase {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.image
}

func (r *Result) setImage(p ImagePhase) {
	r.mu.Lock()
	r.image = p
	r.mu.Unlock()
}

func (r *Result) enter(s State) {
	r.State = s
	r.Trail = append(r.Trail, s)
}

// Called reports whether the generator was invoked.
func (r *Result) Called() bool {
	for _, s := range r.Trail {
		if s == StateSubmitting {
			return true
		}
	}
	return false
}

// Workflow validates a form, sends it and drives a Display with the outcome.
type Workflow struct {
	gen      Generator
	catalog  *catalog.Catalog
	messages Messages
	logger   *zap.Logger
	guard    *Guard
	newID    func() string
}

// Option customises a Workflow.
type Option func(*Workflow)

// WithCatalog overrides the field constraints used during validation.
func WithCatalog(c *catalog.Catalog) Option {
	return func(w *Workflow) {
		if c != nil {
			w.catalog = c
		}
	}
}

// WithMessages sets the caption texts.
func WithMessages(m Messages) Option {
	return func(w *Workflow) {
		w.messages = m
	}
}

// WithLogger sets the logger used for transport failures.
func WithLogger(l *zap.Logger) Option {
	return func(w *Workflow) {
		if l != nil {
			w.logger = l
		}
	}
}

// WithGuard shares a busy guard between workflows.
func WithGuard(g *Guard) Option {
	return func(w *Workflow) {
		if g != nil {
			w.guard = g
		}
	}
}

// WithIDGenerator replaces the ULID submission id source.
func WithIDGenerator(fn func() string) Option {
	return func(w *Workflow) {
		if fn != nil {
			w.newID = fn
		}
	}
}

// NewWorkflow constructs a Workflow around gen.
func NewWorkflow(gen Generator, opts ...Option) *Workflow {
	w := &Workflow{
		gen:      gen,
		catalog:  catalog.Default(),
		messages: DefaultMessages(),
		logger:   zap.NewNop(),
		guard:    NewGuard(),
		newID:    func() string { return ulid.Make().String() },
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Messages returns the captions in use.
func (w *Workflow) Messages() Messages { return w.messages }

// Submit runs one submission for the given session key. A submission arriving
// while another one for the same key is in flight is ignored and reported as
// StateBusy without touching the generator.
func (w *Workflow) Submit(ctx context.Context, key string, form uniform.FormState, d Display) *Result {
	res := &Result{ID: w.newID()}
	release, err := w.guard.Acquire(key)
	if err != nil {
		res.Err = err
		res.enter(StateBusy)
		d.SetCaption(w.messages.Busy)
		return res
	}
	defer release()

	res.enter(StateValidating)
	if err := uniform.Validate(form, w.catalog); err != nil {
		res.Err = err
		var fieldErr *uniform.FieldError
		switch {
		case errors.As(err, &fieldErr):
			d.ReportValidity(fieldErr.Field, w.messages.validity(fieldErr))
		default:
			d.SetCaption(w.messages.Prompt)
			d.HideImage()
		}
		res.enter(StateIdle)
		return res
	}

	req := uniform.BuildPayload(form)
	res.Request = &req
	res.enter(StateSubmitting)
	d.SetCaption(w.messages.Generating)
	d.HideImage()

	resp, err := w.gen.Generate(ctx, req)
	if err != nil {
		res.Err = err
		res.enter(StateTransportError)
		w.logger.Error("uniform generation request failed",
			zap.String("submission_id", res.ID),
			zap.String("sport", req.Sport),
			zap.Error(err),
		)
		d.SetCaption(w.messages.Retry)
		d.HideImage()
		return res
	}
	res.Response = &resp

	if !resp.OK() {
		res.enter(StateApplicationError)
		detail := strings.TrimSpace(resp.Error)
		if detail == "" {
			detail = w.messages.Failure
		}
		w.logger.Warn("uniform generation rejected",
			zap.String("submission_id", res.ID),
			zap.Int("status", resp.Status),
			zap.String("error", resp.Error),
		)
		d.SetCaption(w.messages.errorCaption(detail))
		d.HideImage()
		return res
	}

	res.enter(StateSuccess)
	caption := strings.TrimSpace(resp.Caption)
	if caption == "" {
		caption = w.messages.Success
	}
	var once sync.Once
	res.setImage(ImageAssigned)
	d.LoadImage(resp.ImageURL, func() {
		once.Do(func() {
			d.RevealImage()
			d.SetCaption(caption)
			res.setImage(ImageReady)
		})
	})
	return res
}
