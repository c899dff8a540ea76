package services

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/bookshelf-app/server/internal/logger"
	"github.com/bookshelf-app/server/internal/storage"
	"github.com/bookshelf-app/server/internal/store"
	"github.com/bookshelf-app/server/types"
	"github.com/google/uuid"
)

// MaxCoverBytes is the largest accepted cover image.
const MaxCoverBytes = 5 << 20

// allGenres is the genre filter value meaning "no filter".
const allGenres = "all"

// BookRepository defines persistence operations for books.
type BookRepository interface {
	List(ctx context.Context, filter types.BookFilter) ([]types.Book, error)
	GetByID(ctx context.Context, id uuid.UUID) (types.Book, error)
	Exists(ctx context.Context, title, author string) (bool, error)
	Create(ctx context.Context, book types.Book) (types.Book, error)
	Update(ctx context.Context, id uuid.UUID, input types.BookInput) (types.Book, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Stats(ctx context.Context) (types.LibraryStats, error)
}

// CoverStore keeps uploaded cover images.
type CoverStore interface {
	PutCover(ctx context.Context, bookID uuid.UUID, name string, r io.Reader, size int64, contentType string) (string, error)
	OpenCover(ctx context.Context, bookID uuid.UUID, name string) (storage.Object, error)
	Delete(ctx context.Context, key string) error
}

// BookService encapsulates catalog queries and mutations.
type BookService struct {
	repo     BookRepository
	covers   CoverStore
	notifier Notifier
	log      *logger.Logger
}

// NewBookService wires the service. covers and notifier may be nil, which
// disables cover uploads and invalidation notices respectively.
func NewBookService(repo BookRepository, covers CoverStore, notifier Notifier, log *logger.Logger) *BookService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if log == nil {
		log = logger.Noop()
	}
	return &BookService{repo: repo, covers: covers, notifier: notifier, log: log}
}

// Statuses returns the selectable reading statuses.
func (s *BookService) Statuses() []types.ReadingStatus {
	return append([]types.ReadingStatus(nil), types.ReadingStatuses...)
}

// List returns books whose title or author contains search, restricted to
// genre unless it is empty or "all". Newest books come first.
func (s *BookService) List(ctx context.Context, search, genre string) ([]types.Book, error) {
	filter := types.BookFilter{Search: strings.TrimSpace(search)}

	genre = strings.TrimSpace(genre)
	if genre != "" && !strings.EqualFold(genre, allGenres) {
		id, err := uuid.Parse(genre)
		if err != nil {
			return nil, invalid("genre", "genre must be a valid id")
		}
		filter.GenreID = &id
	}

	books, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, unavailable(err)
	}
	return books, nil
}

func (s *BookService) Get(ctx context.Context, id uuid.UUID) (types.Book, error) {
	book, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return types.Book{}, mapBookErr(err)
	}
	return book, nil
}

// Stats aggregates the whole library.
func (s *BookService) Stats(ctx context.Context) (types.LibraryStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return types.LibraryStats{}, unavailable(err)
	}
	return stats, nil
}

// Create validates input, applies defaults and stores a new book.
func (s *BookService) Create(ctx context.Context, in types.BookInput) (types.Book, error) {
	book, err := newBook(in)
	if err != nil {
		return types.Book{}, err
	}

	created, err := s.repo.Create(ctx, book)
	if err != nil {
		return types.Book{}, mapBookErr(err)
	}
	s.notifier.Invalidate(ctx, bookPaths(created.ID)...)
	return created, nil
}

// CreateIfMissing creates the book unless one with the same title and
// author exists. created reports which happened.
func (s *BookService) CreateIfMissing(ctx context.Context, in types.BookInput) (types.Book, bool, error) {
	book, err := newBook(in)
	if err != nil {
		return types.Book{}, false, err
	}
	exists, err := s.repo.Exists(ctx, book.Title, book.Author)
	if err != nil {
		return types.Book{}, false, unavailable(err)
	}
	if exists {
		return types.Book{}, false, nil
	}
	created, err := s.Create(ctx, in)
	if err != nil {
		return types.Book{}, false, err
	}
	return created, true, nil
}

// Update changes only the fields present in input.
func (s *BookService) Update(ctx context.Context, id uuid.UUID, in types.BookInput) (types.Book, error) {
	in, err := validateBookInput(in, false)
	if err != nil {
		return types.Book{}, err
	}

	updated, err := s.repo.Update(ctx, id, in)
	if err != nil {
		return types.Book{}, mapBookErr(err)
	}
	s.notifier.Invalidate(ctx, bookPaths(id)...)
	return updated, nil
}

// Finish marks a book as read. When the page count is known the progress
// is moved to the last page.
func (s *BookService) Finish(ctx context.Context, id uuid.UUID) (types.Book, error) {
	book, err := s.Get(ctx, id)
	if err != nil {
		return types.Book{}, err
	}

	status := types.StatusFinished
	in := types.BookInput{Status: &status}
	if book.Pages != nil {
		page := *book.Pages
		in.CurrentPage = &page
	}
	return s.Update(ctx, id, in)
}

// Delete removes a book and, best-effort, its uploaded cover.
func (s *BookService) Delete(ctx context.Context, id uuid.UUID) error {
	book, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return mapBookErr(err)
	}
	s.removeCover(ctx, book)
	s.notifier.Invalidate(ctx, bookPaths(id)...)
	return nil
}

// SetCover stores an uploaded image and points the book's cover at it.
func (s *BookService) SetCover(ctx context.Context, id uuid.UUID, name, contentType string, r io.Reader, size int64) (types.Book, error) {
	if s.covers == nil {
		return types.Book{}, ErrCoversDisabled
	}
	if !strings.HasPrefix(strings.ToLower(contentType), "image/") {
		return types.Book{}, invalid("cover", "cover must be an image")
	}
	if size <= 0 || size > MaxCoverBytes {
		return types.Book{}, invalid("cover", "cover must be between 1 byte and 5 MiB")
	}

	book, err := s.Get(ctx, id)
	if err != nil {
		return types.Book{}, err
	}

	key, err := s.covers.PutCover(ctx, id, name, r, size, contentType)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidKey) {
			return types.Book{}, invalid("cover", "cover file name is invalid")
		}
		return types.Book{}, unavailable(err)
	}

	url := storage.CoverURL(key)
	updated, err := s.Update(ctx, id, types.BookInput{Cover: &url})
	if err != nil {
		return types.Book{}, err
	}
	if book.Cover != url {
		s.removeCover(ctx, book)
	}
	return updated, nil
}

// OpenCover opens a previously uploaded cover. Callers close the body.
func (s *BookService) OpenCover(ctx context.Context, id uuid.UUID, name string) (storage.Object, error) {
	if s.covers == nil {
		return storage.Object{}, ErrCoversDisabled
	}
	obj, err := s.covers.OpenCover(ctx, id, name)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) || errors.Is(err, storage.ErrInvalidKey) {
			return storage.Object{}, ErrNotFound
		}
		return storage.Object{}, unavailable(err)
	}
	return obj, nil
}

func (s *BookService) removeCover(ctx context.Context, book types.Book) {
	if s.covers == nil {
		return
	}
	key, ok := storage.KeyFromCoverURL(book.ID, book.Cover)
	if !ok {
		return
	}
	if err := s.covers.Delete(ctx, key); err != nil {
		s.log.Warn("delete cover failed", "book_id", book.ID, "key", key, "error", err)
	}
}

func mapBookErr(err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrReferenced):
		return invalid("genre", "genre does not exist")
	case errors.Is(err, store.ErrInvalidValue):
		return invalid("", "a value is out of the accepted range")
	default:
		return unavailable(err)
	}
}

// newBook validates a full input and fills in defaults.
func newBook(in types.BookInput) (types.Book, error) {
	in, err := validateBookInput(in, true)
	if err != nil {
		return types.Book{}, err
	}

	book := types.Book{
		Title:       *in.Title,
		Author:      *in.Author,
		Synopsis:    stringOrEmpty(in.Synopsis),
		Cover:       stringOrEmpty(in.Cover),
		ISBN:        stringOrEmpty(in.ISBN),
		Notes:       stringOrEmpty(in.Notes),
		Year:        in.Year.Value,
		Pages:       in.Pages.Value,
		Rating:      in.Rating.Value,
		Status:      types.StatusWantToRead,
		GenreID:     in.GenreID.Value,
		CurrentPage: 0,
	}
	if in.CurrentPage != nil {
		book.CurrentPage = *in.CurrentPage
	}
	if in.Status != nil {
		book.Status = *in.Status
	}
	return book, nil
}

// validateBookInput trims title and author and checks ranges. With
// requireAll set, title and author must be present.
func validateBookInput(in types.BookInput, requireAll bool) (types.BookInput, error) {
	if in.Title != nil {
		title := strings.TrimSpace(*in.Title)
		in.Title = &title
	}
	if in.Author != nil {
		author := strings.TrimSpace(*in.Author)
		in.Author = &author
	}

	if (requireAll && in.Title == nil) || (in.Title != nil && *in.Title == "") {
		return in, invalid("title", "title is required")
	}
	if (requireAll && in.Author == nil) || (in.Author != nil && *in.Author == "") {
		return in, invalid("author", "author is required")
	}
	if v := in.Rating.Value; in.Rating.Set && v != nil && (*v < 1 || *v > 5) {
		return in, invalid("rating", "rating must be between 1 and 5")
	}
	if v := in.Pages.Value; in.Pages.Set && v != nil && *v < 0 {
		return in, invalid("pages", "pages must not be negative")
	}
	if in.CurrentPage != nil && *in.CurrentPage < 0 {
		return in, invalid("current_page", "current page must not be negative")
	}
	if in.Status != nil && !in.Status.Valid() {
		return in, invalid("status", "unknown reading status")
	}
	return in, nil
}

func stringOrEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
