package handlers

import (
	"net/http"

	"github.com/bookshelf-app/server/internal/logger"
	"github.com/bookshelf-app/server/internal/services"
	"github.com/bookshelf-app/server/types"
)

// DashboardResponse is the body of GET /dash.
type DashboardResponse struct {
	Name  string             `json:"name"`
	Stats types.LibraryStats `json:"stats"`
}

// DashboardHandler greets the signed-in user with library statistics.
type DashboardHandler struct {
	books *services.BookService
	log   *logger.Logger
}

func NewDashboardHandler(books *services.BookService, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{books: books, log: log}
}

func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	claims, ok := ClaimsFromContext(r.Context())
	if !ok {
		redirect(w, r, loginPath)
		return
	}

	stats, err := h.books.Stats(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to load statistics")
		return
	}
	writeJSON(w, http.StatusOK, DashboardResponse{Name: claims.Name, Stats: stats})
}
