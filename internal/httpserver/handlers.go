package httpserver

import (
	"net/http"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	custommw "finitefield.org/uniform-studio/internal/middleware"
	"finitefield.org/uniform-studio/internal/nav"
	"finitefield.org/uniform-studio/internal/observability"
	"finitefield.org/uniform-studio/internal/submission"
	"finitefield.org/uniform-studio/internal/uniform"
	"finitefield.org/uniform-studio/internal/views"
)

// authChangedEvent asks htmx to re-fetch the menu.
const authChangedEvent = "auth-changed"

type handlers struct {
	cfg Config
}

func (h *handlers) lang(r *http.Request) string {
	return custommw.Lang(r.Context(), h.cfg.Bundle.Fallback())
}

func (h *handlers) menu(r *http.Request, tr func(string) string) []nav.Entry {
	return nav.Localize(nav.Menu(custommw.LoggedIn(r.Context())), tr)
}

func (h *handlers) page(w http.ResponseWriter, r *http.Request) {
	tr := h.cfg.Bundle.Translator(h.lang(r))
	display := views.NewResultDisplay(tr("caption.idle"))
	h.renderPage(w, r, uniform.BlankForm(), display.View())
}

func (h *handlers) nav(w http.ResponseWriter, r *http.Request) {
	tr := h.cfg.Bundle.Translator(h.lang(r))
	render(w, r, http.StatusOK, views.Nav(h.menu(r, tr), tr("nav.label")))
}

func (h *handlers) design(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang := h.lang(r)
	tr := h.cfg.Bundle.Translator(lang)

	if err := r.ParseForm(); err != nil {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	form := uniform.ParseForm(r.PostForm)

	key := ""
	if sess, ok := custommw.SessionFromContext(ctx); ok {
		key = sess.ID()
	}

	workflow := submission.NewWorkflow(h.cfg.Generator,
		submission.WithCatalog(h.cfg.Catalog),
		submission.WithMessages(submission.MessagesFor(h.cfg.Bundle, lang)),
		submission.WithGuard(h.cfg.Guard),
		submission.WithLogger(observability.FromContext(ctx)),
	)
	display := views.NewResultDisplay(tr("caption.idle"))
	res := workflow.Submit(ctx, key, form, display)
	display.SetSubmissionID(res.ID)
	if res.State == submission.StateBusy {
		display.MarkBusy(res.ID)
	}
	w.Header().Set("X-Submission-State", res.State.String())
	observability.FromContext(ctx).Debug("design submitted",
		zap.String("submission_id", res.ID),
		zap.String("state", res.State.String()),
	)

	view := display.View()
	if custommw.IsHTMXRequest(ctx) {
		// A field message belongs to the form; the last design stays on screen.
		if len(view.FieldErrors) > 0 {
			custommw.Retarget(w, "#"+views.FormErrorsID, "innerHTML")
			render(w, r, http.StatusOK, views.FieldErrors(view.FieldErrors))
			return
		}
		render(w, r, http.StatusOK, views.Result(view))
		return
	}
	h.renderPage(w, r, form, view)
}

func (h *handlers) logout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := custommw.SessionFromContext(r.Context()); ok {
		sess.SetUser(nil)
	}
	http.SetCookie(w, &http.Cookie{Name: "__session", Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	if custommw.IsHTMXRequest(r.Context()) {
		custommw.TriggerEvent(w, authChangedEvent)
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *handlers) renderPage(w http.ResponseWriter, r *http.Request, form uniform.FormState, result views.ResultView) {
	lang := h.lang(r)
	tr := h.cfg.Bundle.Translator(lang)
	token := custommw.CSRFTokenFromContext(r.Context())

	page := views.Page{
		Lang:      lang,
		Title:     tr("page.title"),
		Lead:      tr("page.lead"),
		NavLabel:  tr("nav.label"),
		Menu:      h.menu(r, tr),
		CSRFToken: token,
		Form: views.FormView{
			Catalog:   h.cfg.Catalog,
			State:     form,
			CSRFToken: token,
			Errors:    result.FieldErrors,
			T:         tr,
		},
		Result:   result,
		LoggedIn: custommw.LoggedIn(r.Context()),
		Logout:   tr("nav.logout"),
	}
	if tips, err := h.cfg.Tips.Page(lang); err == nil {
		page.TipsTitle = tips.Title
		page.TipsHTML = tips.HTML
	} else {
		observability.FromContext(r.Context()).Warn("tips unavailable", zap.String("lang", lang), zap.Error(err))
	}
	render(w, r, http.StatusOK, views.Layout(page))
}

func render(w http.ResponseWriter, r *http.Request, status int, component templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := component.Render(r.Context(), w); err != nil {
		observability.FromContext(r.Context()).Error("render failed", zap.Error(err))
	}
}
