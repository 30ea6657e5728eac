package ui

import (
	"fmt"
	"log"
	"net/http"

	"trialdesk/domain/session"
	"trialdesk/domain/trial"
	"trialdesk/internal/errors"
	sessionmw "trialdesk/ui/middleware"
	"trialdesk/ui/services"
)

func requestSession(w http.ResponseWriter, r *http.Request) *session.Session {
	sess, ok := sessionmw.SessionFrom(r.Context())
	if !ok {
		http.Error(w, "no session", http.StatusInternalServerError)
		return nil
	}
	return sess
}

func (a *App) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := requestSession(w, r)
	if sess == nil {
		return
	}
	a.renderTemplate(w, "index.html", services.NewPageView(sess))
}

func (a *App) handleNavigate(page session.Page) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := requestSession(w, r)
		if sess == nil {
			return
		}

		if _, err := a.controller.Navigate(r.Context(), sess.ID, page); err != nil {
			a.pageError(w, r, err)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
	}
}

func (a *App) handleReset(w http.ResponseWriter, r *http.Request) {
	sess := requestSession(w, r)
	if sess == nil {
		return
	}

	fresh, err := a.controller.Reset(r.Context(), sess.ID)
	if err != nil {
		a.pageError(w, r, err)
		return
	}
	sessionmw.SetSessionCookie(w, fresh.ID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (a *App) handleRiskSubmit(w http.ResponseWriter, r *http.Request) {
	sess := requestSession(w, r)
	if sess == nil {
		return
	}

	attrs := trial.TrialAttributes{
		Title:       r.PostFormValue("title"),
		Eligibility: r.PostFormValue("eligibility"),
		Description: r.PostFormValue("description"),
	}

	updated, err := a.controller.SubmitRisk(r.Context(), sess.ID, attrs)
	if err != nil {
		a.pageError(w, r, err)
		return
	}
	a.respondRisk(w, r, updated)
}

func (a *App) handleRiskApply(undo bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := requestSession(w, r)
		if sess == nil {
			return
		}

		updated, err := a.controller.ApplySuggestions(r.Context(), sess.ID, undo)
		if err != nil {
			a.pageError(w, r, err)
			return
		}
		a.respondRisk(w, r, updated)
	}
}

func (a *App) handleRiskPanel(w http.ResponseWriter, r *http.Request) {
	sess := requestSession(w, r)
	if sess == nil {
		return
	}
	a.renderTemplate(w, "risk_panel", services.NewRiskView(sess.Risk))
}

func (a *App) handleFinderSubmit(w http.ResponseWriter, r *http.Request) {
	sess := requestSession(w, r)
	if sess == nil {
		return
	}

	query := trial.PatientQuery{
		Condition:   r.PostFormValue("condition"),
		Preferences: r.PostFormValue("preferences"),
	}

	updated, err := a.controller.SubmitFinder(r.Context(), sess.ID, query)
	if err != nil {
		a.pageError(w, r, err)
		return
	}

	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	a.renderTemplate(w, "finder_panel", services.NewFinderView(updated.Finder))
}

func (a *App) handleFinderPanel(w http.ResponseWriter, r *http.Request) {
	sess := requestSession(w, r)
	if sess == nil {
		return
	}
	a.renderTemplate(w, "finder_panel", services.NewFinderView(sess.Finder))
}

func (a *App) handleFinderExport(w http.ResponseWriter, r *http.Request) {
	sess := requestSession(w, r)
	if sess == nil {
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="trial-matches-%s.xlsx"`, sess.ID.String()[:8]))
	if err := a.controller.ExportResults(r.Context(), sess.ID, w); err != nil {
		log.Printf("[Export] Failed to export results for session %s: %v", sess.ID, err)
		http.Error(w, "export failed", http.StatusInternalServerError)
	}
}

func (a *App) respondRisk(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if !isHTMX(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	a.renderTemplate(w, "risk_panel", services.NewRiskView(sess.Risk))
}

func (a *App) pageError(w http.ResponseWriter, r *http.Request, err error) {
	appErr := toAppError(err)
	log.Printf("[App] %s %s failed: %v", r.Method, r.URL.Path, err)
	http.Error(w, appErr.Error(), errors.HTTPStatus(appErr))
}
