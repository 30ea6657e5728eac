package ui

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"trialdesk/adapters/excel"
	"trialdesk/domain/core"
	"trialdesk/internal/config"
	"trialdesk/internal/container"
	apperrors "trialdesk/internal/errors"
	"trialdesk/ui/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	excelize "github.com/xuri/excelize/v2"
)

func newTestContainer(t *testing.T) *container.Container {
	t.Helper()
	cfg := config.Default()
	cfg.Demo.StageDelay = 0
	cfg.Demo.SuggestionDelay = 0
	cfg.Server.SubmitRatePerSec = 100
	cfg.Server.SubmitBurst = 100

	c, err := container.New(cfg)
	require.NoError(t, err)
	require.NoError(t, c.InitWithMemory())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = c.Shutdown(ctx)
	})
	return c
}

type browser struct {
	t      *testing.T
	base   string
	client *http.Client
}

func newBrowser(t *testing.T, handler http.Handler) *browser {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &browser{t: t, base: server.URL, client: &http.Client{Jar: jar, Timeout: 5 * time.Second}}
}

func newGinBrowser(t *testing.T) *browser {
	t.Helper()
	gin.SetMode(gin.TestMode)
	server, err := NewServer(newTestContainer(t))
	require.NoError(t, err)
	return newBrowser(t, server.Handler())
}

func (b *browser) do(req *http.Request) (int, string) {
	b.t.Helper()
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(b.t, err)
	return resp.StatusCode, string(body)
}

func (b *browser) get(path string) (int, string) {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodGet, b.base+path, nil)
	require.NoError(b.t, err)
	return b.do(req)
}

func (b *browser) post(path string, form url.Values, htmx bool) (int, string) {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(form.Encode()))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return b.do(req)
}

func (b *browser) postJSON(path string, body string) (int, map[string]interface{}) {
	b.t.Helper()
	req, err := http.NewRequest(http.MethodPost, b.base+path, strings.NewReader(body))
	require.NoError(b.t, err)
	req.Header.Set("Content-Type", "application/json")
	status, raw := b.do(req)

	var decoded map[string]interface{}
	require.NoError(b.t, json.Unmarshal([]byte(raw), &decoded), raw)
	return status, decoded
}

func (b *browser) sessionCookie() string {
	u, _ := url.Parse(b.base)
	for _, cookie := range b.client.Jar.Cookies(u) {
		if cookie.Name == middleware.CookieName {
			return cookie.Value
		}
	}
	return ""
}

// waitFor polls path until its body contains every want string
func (b *browser) waitFor(path string, want ...string) string {
	b.t.Helper()
	var body string
	require.Eventually(b.t, func() bool {
		_, body = b.get(path)
		for _, w := range want {
			if !strings.Contains(body, w) {
				return false
			}
		}
		return true
	}, 3*time.Second, 20*time.Millisecond, "waiting for %v", want)
	return body
}

func TestLandingPage(t *testing.T) {
	b := newGinBrowser(t)

	status, body := b.get("/")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Choose one of the options below to get started.")
	assert.Contains(t, body, "Go to Trial Design")
	assert.Contains(t, body, "Go to Trial Search")
	assert.Contains(t, body, "Predict the risk of low enrollment and improve your trial design.")
	assert.NotEmpty(t, b.sessionCookie())
}

func TestNavigationIsOneWay(t *testing.T) {
	b := newGinBrowser(t)
	b.get("/")

	status, body := b.post("/navigate/risk", nil, false)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "🏗️ Trial Design")
	assert.Contains(t, body, "Fill out trial details in the sidebar, then click <strong>Submit</strong> to see results.")
	assert.NotContains(t, body, "Go to Trial Search")

	_, body = b.post("/navigate/finder", nil, false)
	assert.Contains(t, body, "🏗️ Trial Design")
	assert.NotContains(t, body, "Patient Trial Finder")
}

func TestRiskFlow(t *testing.T) {
	b := newGinBrowser(t)
	b.post("/navigate/risk", nil, false)

	status, body := b.post("/risk/submit", url.Values{"title": {""}, "eligibility": {""}, "description": {""}}, true)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, `id="risk-panel"`)
	assert.NotContains(t, body, "<html")

	body = b.waitFor("/risk/panel", "76%", "Suggestions to improve enrollment:", "Apply all")
	assert.Contains(t, body, "Use RECIST or imaging-based response")
	assert.NotContains(t, body, `hx-trigger="every 500ms"`)

	b.post("/risk/apply", nil, true)
	body = b.waitFor("/risk/panel", "42%", "Suggestions applied:", "Undo suggestions")
	assert.Contains(t, body, `fill-opacity="0.25"`)

	b.post("/risk/undo", nil, true)
	body = b.waitFor("/risk/panel", "42%", "Suggestions applied:", "Undo suggestions")
	assert.NotContains(t, body, "Apply all")
}

func TestRiskApplyBeforeSubmitIsIgnored(t *testing.T) {
	b := newGinBrowser(t)
	b.post("/navigate/risk", nil, false)

	status, body := b.post("/risk/apply", nil, true)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, body, "Fill out trial details in the sidebar")
}

func TestFinderFlow(t *testing.T) {
	b := newGinBrowser(t)
	b.post("/navigate/finder", nil, false)

	_, page := b.get("/")
	assert.Contains(t, page, "🔍 Patient Trial Finder")
	assert.Contains(t, page, "Enter your description in the sidebar, then click <strong>Submit</strong> to see matching trials.")

	status, _ := b.post("/finder/submit", url.Values{"condition": {"metastatic EGFR+ NSCLC"}, "preferences": {"immunotherapy only"}}, true)
	assert.Equal(t, http.StatusOK, status)

	body := b.waitFor("/finder/panel", "4 matches for your description • preferences applied")
	for _, nct := range []string{"NCT05321044", "NCT04711856", "NCT05190010", "NCT05900123"} {
		assert.Contains(t, body, nct)
	}
	assert.Contains(t, body, `value="86"`)
	assert.Contains(t, body, "Match scores: top 86% • median 71% • mean 73%")
	assert.Contains(t, body, "Why this matches (AI rationale)")
	assert.Contains(t, body, `href="https://clinicaltrials.gov/study/NCT05321044" target="_blank" rel="noopener"`)
	assert.Contains(t, body, "Phase III")
	assert.Contains(t, body, "Single-arm")
	assert.Less(t, strings.Index(body, "NCT05321044"), strings.Index(body, "NCT05900123"))
}

func TestFinderExport(t *testing.T) {
	b := newGinBrowser(t)
	b.post("/navigate/finder", nil, false)
	b.post("/finder/submit", url.Values{}, true)
	b.waitFor("/finder/panel", "4 matches")

	req, err := http.NewRequest(http.MethodGet, b.base+"/finder/export.xlsx", nil)
	require.NoError(t, err)
	resp, err := b.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(excel.SheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
}

func TestResetReturnsToLanding(t *testing.T) {
	b := newGinBrowser(t)
	b.post("/navigate/finder", nil, false)
	before := b.sessionCookie()

	_, body := b.post("/session/reset", nil, false)
	assert.Contains(t, body, "Choose one of the options below to get started.")
	assert.NotEqual(t, before, b.sessionCookie())
}

func TestJSONAPI(t *testing.T) {
	b := newGinBrowser(t)

	status, resp := b.postJSON("/api/risk/apply", "")
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "CONFLICT", resp["code"])

	status, resp = b.postJSON("/api/risk", `{"title":"Phase II melanoma"}`)
	require.Equal(t, http.StatusOK, status)
	risk := resp["session"].(map[string]interface{})["risk"].(map[string]interface{})
	assert.Equal(t, float64(76), risk["risk"])
	assert.Equal(t, true, risk["submitted"])

	for _, path := range []string{"/api/risk/apply", "/api/risk/undo"} {
		status, resp = b.postJSON(path, "")
		require.Equal(t, http.StatusOK, status)
		risk = resp["session"].(map[string]interface{})["risk"].(map[string]interface{})
		assert.Equal(t, float64(42), risk["risk"], path)
		assert.Equal(t, true, risk["applied"], path)
		assert.Equal(t, float64(76), risk["baseline_risk"], path)
	}

	status, resp = b.postJSON("/api/finder", `{"condition":"","preferences":""}`)
	require.Equal(t, http.StatusOK, status)
	summary := resp["finder_summary"].(map[string]interface{})
	assert.Equal(t, float64(4), summary["count"])
	assert.Equal(t, 0.86, summary["max"])

	status, resp = b.postJSON("/api/finder", `{"condition":`)
	assert.Equal(t, http.StatusBadRequest, status)

	status, raw := b.get("/api/session")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, raw, `"nct_id":"NCT05321044"`)
}

func TestHealth(t *testing.T) {
	b := newGinBrowser(t)
	status, body := b.get("/healthz")
	assert.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"status":"ok"}`, body)
}

func TestChiAppServesSamePages(t *testing.T) {
	app, err := NewApp(Config{Container: newTestContainer(t)})
	require.NoError(t, err)
	b := newBrowser(t, app)

	_, body := b.get("/")
	assert.Contains(t, body, "Choose one of the options below to get started.")

	_, body = b.post("/navigate/finder", nil, false)
	assert.Contains(t, body, "🔍 Patient Trial Finder")

	status, _ := b.post("/finder/submit", url.Values{"condition": {"melanoma"}}, false)
	assert.Equal(t, http.StatusOK, status)

	body = b.waitFor("/", "4 matches for your description")
	assert.Contains(t, body, `value="86"`)

	status, css := b.get("/static/css/app.css")
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, css, ".chip")
}

func TestShutdownEndsEventStreams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := newTestContainer(t)
	server, err := NewServer(c)
	require.NoError(t, err)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	httpServer := server.HTTPServer(listener.Addr().String())
	served := make(chan error, 1)
	go func() { served <- httpServer.Serve(listener) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/api/events?session_id=abc")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	require.Eventually(t, func() bool { return c.SSEHub.GetClientCount("abc") == 1 },
		2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, httpServer.Shutdown(ctx))
	assert.ErrorIs(t, <-served, http.ErrServerClosed)

	_, err = io.Copy(io.Discard, resp.Body)
	assert.NoError(t, err)
}

func TestToAppError(t *testing.T) {
	tests := []struct {
		err    error
		code   string
		status int
	}{
		{core.ErrSessionNotFound, apperrors.CodeNotFound, http.StatusNotFound},
		{core.ErrTaskPending, apperrors.CodeConflict, http.StatusConflict},
		{core.ErrNotSubmitted, apperrors.CodeConflict, http.StatusConflict},
		{core.ErrUnknownIntent, apperrors.CodeInvalidInput, http.StatusBadRequest},
		{context.Canceled, apperrors.CodeInternalError, http.StatusInternalServerError},
		{apperrors.ExternalServiceError("risk model", io.ErrUnexpectedEOF), apperrors.CodeExternalService, http.StatusBadGateway},
		{io.ErrUnexpectedEOF, apperrors.CodeInternalError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		appErr := toAppError(tt.err)
		assert.Equal(t, tt.code, appErr.Code, tt.err.Error())
		assert.Equal(t, tt.status, apperrors.HTTPStatus(appErr), tt.err.Error())
	}
}

func TestChiAppHTTPServerShutsDown(t *testing.T) {
	app, err := NewApp(Config{Port: "8099", Container: newTestContainer(t)})
	require.NoError(t, err)
	srv := app.HTTPServer()
	assert.Equal(t, ":8099", srv.Addr)

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	served := make(chan error, 1)
	go func() { served <- srv.Serve(listener) }()

	resp, err := http.Get("http://" + listener.Addr().String() + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))
	assert.ErrorIs(t, <-served, http.ErrServerClosed)
}
