package services

import (
	"context"
	"errors"
	"strings"

	"github.com/bookshelf-app/server/internal/store"
	"github.com/bookshelf-app/server/types"
	"github.com/google/uuid"
)

// GenreRepository defines persistence operations for genres.
type GenreRepository interface {
	List(ctx context.Context) ([]types.Genre, error)
	Create(ctx context.Context, genre types.Genre) (types.Genre, error)
	Ensure(ctx context.Context, name string) (types.Genre, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// GenreService encapsulates genre use-cases.
type GenreService struct {
	repo     GenreRepository
	notifier Notifier
}

func NewGenreService(repo GenreRepository, notifier Notifier) *GenreService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &GenreService{repo: repo, notifier: notifier}
}

// List returns all genres ordered by name.
func (s *GenreService) List(ctx context.Context) ([]types.Genre, error) {
	genres, err := s.repo.List(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	return genres, nil
}

func (s *GenreService) Create(ctx context.Context, name string) (types.Genre, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Genre{}, invalid("name", "name is required")
	}

	genre, err := s.repo.Create(ctx, types.Genre{Name: name})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return types.Genre{}, ErrDuplicateName
		}
		return types.Genre{}, unavailable(err)
	}
	s.notifier.Invalidate(ctx, pathGenres, pathBooks)
	return genre, nil
}

// Ensure returns the named genre, creating it when missing.
func (s *GenreService) Ensure(ctx context.Context, name string) (types.Genre, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return types.Genre{}, invalid("name", "name is required")
	}
	genre, err := s.repo.Ensure(ctx, name)
	if err != nil {
		return types.Genre{}, unavailable(err)
	}
	return genre, nil
}

// Delete removes a genre. Genres still assigned to books are kept and
// ErrGenreInUse is returned.
func (s *GenreService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return ErrNotFound
		case errors.Is(err, store.ErrReferenced):
			return ErrGenreInUse
		default:
			return unavailable(err)
		}
	}
	s.notifier.Invalidate(ctx, pathGenres, pathBooks)
	return nil
}
