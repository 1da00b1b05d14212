package handler

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testcraft-academy/courseflow/internal/domain"
)

func TestRenderer_LoadsEmbeddedPages(t *testing.T) {
	r := newTestRenderer(t)

	assert.ElementsMatch(t, []string{
		"public/subscribe",
		"public/subscribe_result",
		"public/confirm",
		"public/not_found",
	}, r.ListTemplates())
}

func TestRenderer_RenderSubscribe(t *testing.T) {
	r := newTestRenderer(t)
	course, _ := domain.DefaultCatalog().Get("playwright-mastery")

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, "public/subscribe", SubscribePageData{
		Title:     course.Name,
		Course:    course,
		CSRFToken: `tok"en`,
		Error:     "Please enter a valid email address",
	}))

	html := buf.String()
	assert.Contains(t, html, "<title>Playwright Mastery | Courseflow</title>")
	assert.Contains(t, html, `name="csrf_token" value="tok&#34;en"`)
	assert.Contains(t, html, `name="course_id" value="playwright-mastery"`)
	assert.Contains(t, html, "Intermediate")
	assert.Contains(t, html, "Please enter a valid email address")
}

func TestRenderer_UnknownTemplate(t *testing.T) {
	r := newTestRenderer(t)

	rec := httptest.NewRecorder()
	r.RenderHTTP(rec, "public/missing", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRenderer_RenderHTTPStatus(t *testing.T) {
	r := newTestRenderer(t)

	rec := httptest.NewRecorder()
	r.RenderHTTPStatus(rec, http.StatusBadRequest, "public/confirm", ConfirmPageData{
		Title:   "Confirmation failed",
		Message: domain.MsgInvalidLink,
	})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), domain.MsgInvalidLink)
}

func TestNewRendererFromFS_BrokenPage(t *testing.T) {
	fsys := fstest.MapFS{
		"layouts/public.html":      {Data: []byte(`{{define "public"}}{{template "content" .}}{{end}}`)},
		"pages/public/broken.html": {Data: []byte(`{{define "content"}}{{.Missing`)},
	}

	_, err := NewRendererFromFS(fsys, discardLogger(), false)
	assert.ErrorContains(t, err, "broken.html")
}
