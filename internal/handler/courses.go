package handler

import (
	"log/slog"
	"net/http"

	"github.com/testcraft-academy/courseflow/internal/domain"
)

// CourseHandler serves the catalog search used by the site's search dialog.
type CourseHandler struct {
	catalog *domain.Catalog
	logger  *slog.Logger
}

// NewCourseHandler creates a new CourseHandler.
func NewCourseHandler(catalog *domain.Catalog, logger *slog.Logger) *CourseHandler {
	return &CourseHandler{
		catalog: catalog,
		logger:  logger,
	}
}

// CourseListResponse is the JSON body returned by GET /api/courses.
type CourseListResponse struct {
	Query   string          `json:"query"`
	Count   int             `json:"count"`
	Courses []domain.Course `json:"courses"`
}

// RegisterRoutes registers the catalog routes on the mux.
func (h *CourseHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/courses", h.Search)
}

// Search returns catalog courses matching ?q=. An empty query lists everything.
func (h *CourseHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	courses := h.catalog.Search(query)
	if courses == nil {
		courses = []domain.Course{}
	}

	h.logger.Debug("course search", "query", query, "results", len(courses))

	writeJSON(w, http.StatusOK, CourseListResponse{
		Query:   query,
		Count:   len(courses),
		Courses: courses,
	})
}
