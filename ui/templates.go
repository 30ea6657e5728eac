package ui

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"

	"trialdesk/ui/services"
)

//go:embed templates/*.html static
var embeddedFiles embed.FS

// staticFS returns the embedded static assets rooted at static/
func staticFS() (fs.FS, error) {
	return fs.Sub(embeddedFiles, "static")
}

// parseTemplates parses every page and fragment template
func parseTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"markdown": services.Markdown,
		"ticks":    func() []int { return []int{0, 20, 40, 60, 80, 100} },
	}

	templates, err := template.New("").Funcs(funcMap).ParseFS(embeddedFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	return templates, nil
}

// writeTemplate renders to a buffer first so a template error never leaves a
// half-written page behind
func writeTemplate(w http.ResponseWriter, templates *template.Template, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.Printf("Template error for %s: %v", name, err)
		log.Printf("Template data type: %T", data)
		http.Error(w, "Template rendering failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Printf("Error writing template response: %v", err)
	}
}

// HTMX helpers
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}
