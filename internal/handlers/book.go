package handlers

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/bookshelf-app/server/internal/logger"
	"github.com/bookshelf-app/server/internal/services"
	"github.com/bookshelf-app/server/types"
	"github.com/go-chi/chi/v5"
)

const booksPath = "/books"

// BookListResponse is the body of GET /books.
type BookListResponse struct {
	Items []types.Book `json:"items"`
}

// BookHandler provides HTTP handlers for books.
type BookHandler struct {
	books *services.BookService
	log   *logger.Logger
}

func NewBookHandler(books *services.BookService, log *logger.Logger) *BookHandler {
	return &BookHandler{books: books, log: log}
}

// BookRouter registers book routes on the given router. POST aliases exist
// for update and delete because HTML forms cannot send PUT or DELETE.
func BookRouter(r chi.Router, h *BookHandler) {
	r.Get("/", h.ListBooks)
	r.Post("/", h.CreateBook)
	r.Get("/statuses", h.ListStatuses)
	r.Route("/{bookID}", func(r chi.Router) {
		r.Get("/", h.GetBook)
		r.Put("/", h.UpdateBook)
		r.Post("/", h.UpdateBook)
		r.Delete("/", h.DeleteBook)
		r.Post("/delete", h.DeleteBook)
		r.Post("/finish", h.FinishBook)
		r.Put("/cover", h.UploadCover)
		r.Post("/cover", h.UploadCover)
	})
}

func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	books, err := h.books.List(r.Context(), query.Get("search"), query.Get("genre"))
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to list books")
		return
	}
	writeJSON(w, http.StatusOK, BookListResponse{Items: books})
}

func (h *BookHandler) ListStatuses(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.books.Statuses())
}

func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "bookID")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	book, err := h.books.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to fetch book")
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	in, err := parseBookForm(w, r)
	if errors.Is(err, errFormTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, codeValidation, err.Error())
		return
	}
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to parse book")
		return
	}

	book, err := h.books.Create(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to create book")
		return
	}
	h.respondMutation(w, r, http.StatusCreated, book)
}

func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "bookID")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	in, err := parseBookForm(w, r)
	if errors.Is(err, errFormTooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, codeValidation, err.Error())
		return
	}
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to parse book")
		return
	}

	book, err := h.books.Update(r.Context(), id, in)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to update book")
		return
	}
	h.respondMutation(w, r, http.StatusOK, book)
}

// FinishBook marks a book as read.
func (h *BookHandler) FinishBook(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "bookID")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	book, err := h.books.Finish(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to finish book")
		return
	}
	h.respondMutation(w, r, http.StatusOK, book)
}

func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "bookID")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	if err := h.books.Delete(r.Context(), id); err != nil {
		writeServiceError(w, r, h.log, err, "failed to delete book")
		return
	}
	if wantsHTML(r) {
		redirect(w, r, booksPath)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UploadCover stores a multipart "cover" image for the book.
func (h *BookHandler) UploadCover(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "bookID")
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxCoverFormMemory)
	if err := r.ParseMultipartForm(maxFormMemory); err != nil {
		if isFormTooLarge(err) {
			writeError(w, http.StatusRequestEntityTooLarge, codeValidation, "cover must be at most 5 MiB")
			return
		}
		writeError(w, http.StatusBadRequest, codeValidation, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile(formFieldCover)
	if err != nil {
		writeServiceError(w, r, h.log, errNoCover, "failed to read cover")
		return
	}
	defer file.Close()

	contentType, err := detectContentType(file, header.Header.Get("Content-Type"))
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to read cover")
		return
	}

	book, err := h.books.SetCover(r.Context(), id, header.Filename, contentType, file, header.Size)
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to store cover")
		return
	}
	h.respondMutation(w, r, http.StatusOK, book)
}

// ServeCover streams a stored cover image.
func (h *BookHandler) ServeCover(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "bookID")
	if err != nil {
		writeError(w, http.StatusNotFound, codeNotFound, "cover not found")
		return
	}

	obj, err := h.books.OpenCover(r.Context(), id, chi.URLParam(r, "name"))
	if err != nil {
		writeServiceError(w, r, h.log, err, "failed to open cover")
		return
	}
	defer obj.Body.Close()

	if obj.ContentType != "" {
		w.Header().Set("Content-Type", obj.ContentType)
	}
	if obj.Size > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(obj.Size, 10))
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, obj.Body); err != nil {
		h.log.Warn("stream cover", "book_id", id, "error", err)
	}
}

// respondMutation redirects browser forms back to the list and answers API
// clients with the book.
func (h *BookHandler) respondMutation(w http.ResponseWriter, r *http.Request, status int, book types.Book) {
	if wantsHTML(r) {
		redirect(w, r, booksPath)
		return
	}
	writeJSON(w, status, book)
}

// detectContentType trusts a declared image type and sniffs otherwise. The
// reader is rewound after sniffing.
func detectContentType(file io.ReadSeeker, declared string) (string, error) {
	if declared != "" && declared != "application/octet-stream" {
		return declared, nil
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}
