package services

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bookshelf-app/server/internal/storage"
	"github.com/bookshelf-app/server/internal/store"
	"github.com/bookshelf-app/server/types"
	"github.com/google/uuid"
)

type fakeUserRepo struct {
	mu      sync.Mutex
	byEmail map[string]types.User
	err     error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{byEmail: map[string]types.User{}}
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uuid.UUID) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return types.User{}, r.err
	}
	for _, user := range r.byEmail {
		if user.ID == id {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return types.User{}, r.err
	}
	user, ok := r.byEmail[email]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return types.User{}, r.err
	}
	if _, ok := r.byEmail[user.Email]; ok {
		return types.User{}, store.ErrDuplicate
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	r.byEmail[user.Email] = user
	return user, nil
}

func (r *fakeUserRepo) Upsert(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.byEmail[user.Email]; ok {
		user.ID = existing.ID
	} else {
		user.ID = uuid.New()
	}
	r.byEmail[user.Email] = user
	return user, nil
}

type fakeGenreRepo struct {
	genres     map[uuid.UUID]types.Genre
	referenced map[uuid.UUID]bool
	err        error
}

func newFakeGenreRepo() *fakeGenreRepo {
	return &fakeGenreRepo{genres: map[uuid.UUID]types.Genre{}, referenced: map[uuid.UUID]bool{}}
}

func (r *fakeGenreRepo) List(context.Context) ([]types.Genre, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := []types.Genre{}
	for _, g := range r.genres {
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *fakeGenreRepo) Create(_ context.Context, genre types.Genre) (types.Genre, error) {
	if r.err != nil {
		return types.Genre{}, r.err
	}
	for _, g := range r.genres {
		if g.Name == genre.Name {
			return types.Genre{}, store.ErrDuplicate
		}
	}
	genre.ID = uuid.New()
	r.genres[genre.ID] = genre
	return genre, nil
}

func (r *fakeGenreRepo) Ensure(ctx context.Context, name string) (types.Genre, error) {
	for _, g := range r.genres {
		if g.Name == name {
			return g, nil
		}
	}
	return r.Create(ctx, types.Genre{Name: name})
}

func (r *fakeGenreRepo) Delete(_ context.Context, id uuid.UUID) error {
	if r.err != nil {
		return r.err
	}
	if _, ok := r.genres[id]; !ok {
		return store.ErrNotFound
	}
	if r.referenced[id] {
		return store.ErrReferenced
	}
	delete(r.genres, id)
	return nil
}

type fakeBookRepo struct {
	books      map[uuid.UUID]types.Book
	genres     map[uuid.UUID]types.Genre
	lastFilter types.BookFilter
	clock      time.Time
	err        error
}

func newFakeBookRepo() *fakeBookRepo {
	return &fakeBookRepo{
		books:  map[uuid.UUID]types.Book{},
		genres: map[uuid.UUID]types.Genre{},
		clock:  time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (r *fakeBookRepo) addGenre(name string) types.Genre {
	genre := types.Genre{ID: uuid.New(), Name: name}
	r.genres[genre.ID] = genre
	return genre
}

func (r *fakeBookRepo) withGenre(book types.Book) types.Book {
	book.Genre = nil
	if book.GenreID != nil {
		genre := r.genres[*book.GenreID]
		book.Genre = &genre
	}
	return book
}

func (r *fakeBookRepo) List(_ context.Context, filter types.BookFilter) ([]types.Book, error) {
	r.lastFilter = filter
	if r.err != nil {
		return nil, r.err
	}
	term := strings.ToLower(filter.Search)
	out := []types.Book{}
	for _, book := range r.books {
		if filter.GenreID != nil && (book.GenreID == nil || *book.GenreID != *filter.GenreID) {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(book.Title), term) && !strings.Contains(strings.ToLower(book.Author), term) {
			continue
		}
		out = append(out, r.withGenre(book))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeBookRepo) GetByID(_ context.Context, id uuid.UUID) (types.Book, error) {
	if r.err != nil {
		return types.Book{}, r.err
	}
	book, ok := r.books[id]
	if !ok {
		return types.Book{}, store.ErrNotFound
	}
	return r.withGenre(book), nil
}

func (r *fakeBookRepo) Exists(_ context.Context, title, author string) (bool, error) {
	for _, book := range r.books {
		if book.Title == title && book.Author == author {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeBookRepo) Create(_ context.Context, book types.Book) (types.Book, error) {
	if r.err != nil {
		return types.Book{}, r.err
	}
	if book.GenreID != nil {
		if _, ok := r.genres[*book.GenreID]; !ok {
			return types.Book{}, store.ErrReferenced
		}
	}
	r.clock = r.clock.Add(time.Minute)
	book.ID = uuid.New()
	book.CreatedAt = r.clock
	book.UpdatedAt = r.clock
	r.books[book.ID] = book
	return book, nil
}

func (r *fakeBookRepo) Update(_ context.Context, id uuid.UUID, in types.BookInput) (types.Book, error) {
	if r.err != nil {
		return types.Book{}, r.err
	}
	book, ok := r.books[id]
	if !ok {
		return types.Book{}, store.ErrNotFound
	}
	if in.GenreID.Set && in.GenreID.Value != nil {
		if _, ok := r.genres[*in.GenreID.Value]; !ok {
			return types.Book{}, store.ErrReferenced
		}
	}
	apply := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&book.Title, in.Title)
	apply(&book.Author, in.Author)
	apply(&book.Synopsis, in.Synopsis)
	apply(&book.Cover, in.Cover)
	apply(&book.ISBN, in.ISBN)
	apply(&book.Notes, in.Notes)
	if in.Year.Set {
		book.Year = in.Year.Value
	}
	if in.Pages.Set {
		book.Pages = in.Pages.Value
	}
	if in.Rating.Set {
		book.Rating = in.Rating.Value
	}
	if in.CurrentPage != nil {
		book.CurrentPage = *in.CurrentPage
	}
	if in.Status != nil {
		book.Status = *in.Status
	}
	if in.GenreID.Set {
		book.GenreID = in.GenreID.Value
	}
	r.books[id] = book
	return r.withGenre(book), nil
}

func (r *fakeBookRepo) Delete(_ context.Context, id uuid.UUID) error {
	if r.err != nil {
		return r.err
	}
	if _, ok := r.books[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.books, id)
	return nil
}

func (r *fakeBookRepo) Stats(context.Context) (types.LibraryStats, error) {
	if r.err != nil {
		return types.LibraryStats{}, r.err
	}
	var stats types.LibraryStats
	for _, book := range r.books {
		stats.TotalBooks++
		switch book.Status {
		case types.StatusReading:
			stats.Reading++
		case types.StatusFinished:
			stats.Finished++
			if book.Pages != nil {
				stats.PagesRead += int64(*book.Pages)
			}
		}
	}
	return stats, nil
}

type recordingNotifier struct {
	calls [][]string
}

func (n *recordingNotifier) Invalidate(_ context.Context, paths ...string) {
	n.calls = append(n.calls, paths)
}

type fakeCoverStore struct {
	objects map[string][]byte
	deleted []string
}

func newFakeCoverStore() *fakeCoverStore {
	return &fakeCoverStore{objects: map[string][]byte{}}
}

func (f *fakeCoverStore) PutCover(_ context.Context, bookID uuid.UUID, name string, r io.Reader, _ int64, _ string) (string, error) {
	key, err := storage.CoverKey(bookID, name)
	if err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	f.objects[key] = data
	return key, nil
}

func (f *fakeCoverStore) OpenCover(_ context.Context, bookID uuid.UUID, name string) (storage.Object, error) {
	key, err := storage.CoverKey(bookID, name)
	if err != nil {
		return storage.Object{}, err
	}
	data, ok := f.objects[key]
	if !ok {
		return storage.Object{}, storage.ErrObjectNotFound
	}
	return storage.Object{Body: io.NopCloser(bytes.NewReader(data)), ContentType: "image/png", Size: int64(len(data))}, nil
}

func (f *fakeCoverStore) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return nil
}

func ptr[T any](v T) *T {
	return &v
}

func optInt(v int) types.OptionalInt {
	return types.OptionalInt{Set: true, Value: &v}
}
