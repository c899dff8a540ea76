package handlers

import (
	"net/http"

	"github.com/bookshelf-app/server/internal/logger"
	"github.com/bookshelf-app/server/internal/services"
	"github.com/go-chi/chi/v5"
)

const genresPath = "/genres"

// GenreHandler provides HTTP handlers for genres.
type GenreHandler struct {
	genres *services.GenreService
	log    *logger.Logger
}

func NewGenreHandler(genres *services.GenreService, log *logger.Logger) *GenreHandler {
	return &GenreHandler{genres: genres, log: log}
}

// GenreRouter registers genre routes on the given router.
func GenreRouter(r chi.Router, h *GenreHandler) {
	r.Get("/", h.ListGenres)
	r.Post("/", h.CreateGenre)
	r.Delete("/{genreID}", h.DeleteGenre)
	r.Post("/{genreID}/delete", h.DeleteGenre)
}

func (h *GenreHandler) ListGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := h.genres.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to list genres")
		return
	}
	writeJSON(w, http.StatusOK, genres)
}

func (h *GenreHandler) CreateGenre(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		if isFormTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, codeValidation, errFormTooLarge.Error())
			return
		}
		writeError(w, http.StatusBadRequest, codeValidation, "invalid form body")
		return
	}

	genre, err := h.genres.Create(r.Context(), r.PostForm.Get("name"))
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to create genre")
		return
	}
	if wantsHTML(r) {
		redirect(w, r, genresPath)
		return
	}
	writeJSON(w, http.StatusCreated, genre)
}

// DeleteGenre removes an unused genre. Genres still assigned to books are
// rejected with 409.
func (h *GenreHandler) DeleteGenre(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "genreID")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	if err := h.genres.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, h.log, err, "failed to delete genre")
		return
	}
	if wantsHTML(r) {
		redirect(w, r, genresPath)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
