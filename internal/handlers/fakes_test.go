package handlers

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bookshelf-app/server/internal/auth"
	"github.com/bookshelf-app/server/internal/logger"
	"github.com/bookshelf-app/server/internal/services"
	"github.com/bookshelf-app/server/internal/storage"
	"github.com/bookshelf-app/server/internal/store"
	"github.com/bookshelf-app/server/internal/views"
	"github.com/bookshelf-app/server/types"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const (
	testSecret = "handlers-test-secret"
	testCookie = "session"
)

type memoryUsers struct {
	mu    sync.Mutex
	users map[string]types.User
}

func (m *memoryUsers) GetByID(_ context.Context, id uuid.UUID) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memoryUsers) GetByEmail(_ context.Context, email string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memoryUsers) Create(_ context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Email]; ok {
		return types.User{}, store.ErrDuplicate
	}
	user.ID = uuid.New()
	m.users[user.Email] = user
	return user, nil
}

func (m *memoryUsers) Upsert(ctx context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	existing, ok := m.users[user.Email]
	m.mu.Unlock()
	if ok {
		user.ID = existing.ID
		m.mu.Lock()
		m.users[user.Email] = user
		m.mu.Unlock()
		return user, nil
	}
	return m.Create(ctx, user)
}

type memoryGenres struct {
	genres map[uuid.UUID]types.Genre
	inUse  map[uuid.UUID]bool
}

func (m *memoryGenres) List(context.Context) ([]types.Genre, error) {
	out := []types.Genre{}
	for _, g := range m.genres {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memoryGenres) Create(_ context.Context, genre types.Genre) (types.Genre, error) {
	for _, g := range m.genres {
		if g.Name == genre.Name {
			return types.Genre{}, store.ErrDuplicate
		}
	}
	genre.ID = uuid.New()
	m.genres[genre.ID] = genre
	return genre, nil
}

func (m *memoryGenres) Ensure(ctx context.Context, name string) (types.Genre, error) {
	for _, g := range m.genres {
		if g.Name == name {
			return g, nil
		}
	}
	return m.Create(ctx, types.Genre{Name: name})
}

func (m *memoryGenres) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.genres[id]; !ok {
		return store.ErrNotFound
	}
	if m.inUse[id] {
		return store.ErrReferenced
	}
	delete(m.genres, id)
	return nil
}

type memoryBooks struct {
	books map[uuid.UUID]types.Book
	clock time.Time
	err   error
}

func (m *memoryBooks) List(_ context.Context, filter types.BookFilter) ([]types.Book, error) {
	if m.err != nil {
		return nil, m.err
	}
	term := strings.ToLower(filter.Search)
	out := []types.Book{}
	for _, b := range m.books {
		if filter.GenreID != nil && (b.GenreID == nil || *b.GenreID != *filter.GenreID) {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(b.Title), term) && !strings.Contains(strings.ToLower(b.Author), term) {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memoryBooks) GetByID(_ context.Context, id uuid.UUID) (types.Book, error) {
	if m.err != nil {
		return types.Book{}, m.err
	}
	b, ok := m.books[id]
	if !ok {
		return types.Book{}, store.ErrNotFound
	}
	return b, nil
}

func (m *memoryBooks) Exists(_ context.Context, title, author string) (bool, error) {
	for _, b := range m.books {
		if b.Title == title && b.Author == author {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryBooks) Create(_ context.Context, book types.Book) (types.Book, error) {
	if m.err != nil {
		return types.Book{}, m.err
	}
	m.clock = m.clock.Add(time.Minute)
	book.ID = uuid.New()
	book.CreatedAt = m.clock
	book.UpdatedAt = m.clock
	m.books[book.ID] = book
	return book, nil
}

func (m *memoryBooks) Update(_ context.Context, id uuid.UUID, in types.BookInput) (types.Book, error) {
	b, ok := m.books[id]
	if !ok {
		return types.Book{}, store.ErrNotFound
	}
	if in.Title != nil {
		b.Title = *in.Title
	}
	if in.Author != nil {
		b.Author = *in.Author
	}
	if in.Cover != nil {
		b.Cover = *in.Cover
	}
	if in.Pages.Set {
		b.Pages = in.Pages.Value
	}
	if in.Rating.Set {
		b.Rating = in.Rating.Value
	}
	if in.CurrentPage != nil {
		b.CurrentPage = *in.CurrentPage
	}
	if in.Status != nil {
		b.Status = *in.Status
	}
	if in.GenreID.Set {
		b.GenreID = in.GenreID.Value
	}
	m.books[id] = b
	return b, nil
}

func (m *memoryBooks) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.books[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.books, id)
	return nil
}

func (m *memoryBooks) Stats(context.Context) (types.LibraryStats, error) {
	if m.err != nil {
		return types.LibraryStats{}, m.err
	}
	var stats types.LibraryStats
	for _, b := range m.books {
		stats.TotalBooks++
		switch b.Status {
		case types.StatusReading:
			stats.Reading++
		case types.StatusFinished:
			stats.Finished++
			if b.Pages != nil {
				stats.PagesRead += int64(*b.Pages)
			}
		}
	}
	return stats, nil
}

type memoryCovers struct {
	objects map[string][]byte
	types   map[string]string
}

func (m *memoryCovers) PutCover(_ context.Context, bookID uuid.UUID, name string, r io.Reader, _ int64, contentType string) (string, error) {
	key, err := storage.CoverKey(bookID, name)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.objects[key] = data
	m.types[key] = contentType
	return key, nil
}

func (m *memoryCovers) OpenCover(_ context.Context, bookID uuid.UUID, name string) (storage.Object, error) {
	key, err := storage.CoverKey(bookID, name)
	if err != nil {
		return storage.Object{}, err
	}
	data, ok := m.objects[key]
	if !ok {
		return storage.Object{}, storage.ErrObjectNotFound
	}
	return storage.Object{
		Body:        io.NopCloser(bytes.NewReader(data)),
		ContentType: m.types[key],
		Size:        int64(len(data)),
	}, nil
}

func (m *memoryCovers) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

// testApp is a fully wired router backed by in-memory repositories.
type testApp struct {
	router   *chi.Mux
	sessions *auth.Sessions
	users    *services.UserService
	books    *memoryBooks
	genres   *memoryGenres
	covers   *memoryCovers
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	sessions, err := auth.NewSessions(testSecret, time.Hour)
	require.NoError(t, err)
	renderer, err := views.New()
	require.NoError(t, err)

	app := &testApp{
		sessions: sessions,
		books:    &memoryBooks{books: map[uuid.UUID]types.Book{}, clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		genres:   &memoryGenres{genres: map[uuid.UUID]types.Genre{}, inUse: map[uuid.UUID]bool{}},
		covers:   &memoryCovers{objects: map[string][]byte{}, types: map[string]string{}},
	}
	log := logger.Noop()
	app.users = services.NewUserService(&memoryUsers{users: map[string]types.User{}}, auth.NewPasswordHasher(0), sessions)
	bookService := services.NewBookService(app.books, app.covers, nil, log)
	genreService := services.NewGenreService(app.genres, nil)

	books := NewBookHandler(bookService, log)
	r := chi.NewRouter()
	r.Use(NewGuard(sessions, testCookie).Middleware)
	AuthRouter(r, NewAuthHandler(app.users, renderer, CookieConfig{Name: testCookie}, log))
	r.Get("/dash", NewDashboardHandler(bookService, log).Dashboard)
	r.Route("/books", func(r chi.Router) { BookRouter(r, books) })
	r.Route("/genres", func(r chi.Router) { GenreRouter(r, NewGenreHandler(genreService, log)) })
	r.Get("/covers/{bookID}/{name}", books.ServeCover)
	app.router = r
	return app
}

// cookie returns a valid session cookie for a fresh user id.
func (a *testApp) cookie(t *testing.T, name string) *http.Cookie {
	t.Helper()
	token, _, err := a.sessions.Issue(uuid.New(), name)
	require.NoError(t, err)
	return &http.Cookie{Name: testCookie, Value: token}
}

func (a *testApp) do(req *http.Request, cookie *http.Cookie) *httptest.ResponseRecorder {
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func formRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func (a *testApp) addBook(title, author string, status types.ReadingStatus) types.Book {
	b, _ := a.books.Create(context.Background(), types.Book{Title: title, Author: author, Status: status})
	return b
}
