package store

import (
	"context"
	"errors"
	"time"

	"github.com/bookshelf-app/server/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GenreRepository handles persistence for genres.
type GenreRepository struct {
	db *gorm.DB
}

func NewGenreRepository(db *gorm.DB) *GenreRepository {
	return &GenreRepository{db: db}
}

// List returns all genres ordered by name.
func (r *GenreRepository) List(ctx context.Context) ([]types.Genre, error) {
	genres := []types.Genre{}
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&genres).Error; err != nil {
		return nil, err
	}
	return genres, nil
}

func (r *GenreRepository) GetByID(ctx context.Context, id uuid.UUID) (types.Genre, error) {
	var genre types.Genre
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&genre).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.Genre{}, ErrNotFound
		}
		return types.Genre{}, err
	}
	return genre, nil
}

// Create inserts a genre. A taken name is reported as ErrDuplicate.
func (r *GenreRepository) Create(ctx context.Context, genre types.Genre) (types.Genre, error) {
	if genre.ID == uuid.Nil {
		genre.ID = uuid.New()
	}
	genre.CreatedAt = time.Now().UTC()
	if err := r.db.WithContext(ctx).Create(&genre).Error; err != nil {
		return types.Genre{}, translate(err)
	}
	return genre, nil
}

// Ensure returns the genre with the given name, creating it when missing.
func (r *GenreRepository) Ensure(ctx context.Context, name string) (types.Genre, error) {
	genre := types.Genre{ID: uuid.New(), Name: name, CreatedAt: time.Now().UTC()}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&genre).Error
	if err != nil {
		return types.Genre{}, err
	}

	var stored types.Genre
	if err := r.db.WithContext(ctx).Where("name = ?", name).Take(&stored).Error; err != nil {
		return types.Genre{}, err
	}
	return stored, nil
}

// Delete removes a genre. Genres still referenced by books yield ErrReferenced.
func (r *GenreRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&types.Genre{})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
