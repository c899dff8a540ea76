package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bookshelf-app/server/types"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BookRepository handles persistence for books.
type BookRepository struct {
	db *gorm.DB
}

func NewBookRepository(db *gorm.DB) *BookRepository {
	return &BookRepository{db: db}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes term match literally inside a LIKE pattern.
func escapeLike(term string) string {
	return likeEscaper.Replace(term)
}

// List returns books matching filter, newest first, each with its genre.
func (r *BookRepository) List(ctx context.Context, filter types.BookFilter) ([]types.Book, error) {
	query := r.db.WithContext(ctx).Model(&types.Book{}).Preload("Genre")

	if filter.GenreID != nil {
		query = query.Where("genre_id = ?", *filter.GenreID)
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		pattern := "%" + escapeLike(term) + "%"
		query = query.Where("(title ILIKE ? OR author ILIKE ?)", pattern, pattern)
	}

	books := []types.Book{}
	if err := query.Order("created_at DESC").Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

func (r *BookRepository) GetByID(ctx context.Context, id uuid.UUID) (types.Book, error) {
	var book types.Book
	err := r.db.WithContext(ctx).Preload("Genre").Where("id = ?", id).Take(&book).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return types.Book{}, ErrNotFound
		}
		return types.Book{}, err
	}
	return book, nil
}

// Exists reports whether a book with exactly this title and author is stored.
func (r *BookRepository) Exists(ctx context.Context, title, author string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&types.Book{}).
		Where("title = ? AND author = ?", title, author).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Create inserts a fully defaulted book. An unknown genre is reported as
// ErrReferenced.
func (r *BookRepository) Create(ctx context.Context, book types.Book) (types.Book, error) {
	if book.ID == uuid.Nil {
		book.ID = uuid.New()
	}
	now := time.Now().UTC()
	book.CreatedAt = now
	book.UpdatedAt = now
	book.Genre = nil

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(&book).Error; err != nil {
		return types.Book{}, translate(err)
	}
	return book, nil
}

// Update writes only the fields present in input and returns the stored book.
func (r *BookRepository) Update(ctx context.Context, id uuid.UUID, input types.BookInput) (types.Book, error) {
	result := r.db.WithContext(ctx).Model(&types.Book{}).
		Where("id = ?", id).
		Updates(updateColumns(input))
	if result.Error != nil {
		return types.Book{}, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return types.Book{}, ErrNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *BookRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&types.Book{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats aggregates the library in a single query.
func (r *BookRepository) Stats(ctx context.Context) (types.LibraryStats, error) {
	var stats types.LibraryStats
	err := r.db.WithContext(ctx).Model(&types.Book{}).
		Select(`COUNT(*) AS total_books,
			COUNT(*) FILTER (WHERE status = ?) AS reading,
			COUNT(*) FILTER (WHERE status = ?) AS finished,
			COALESCE(SUM(pages) FILTER (WHERE status = ?), 0) AS pages_read`,
			types.StatusReading, types.StatusFinished, types.StatusFinished).
		Scan(&stats).Error
	if err != nil {
		return types.LibraryStats{}, err
	}
	return stats, nil
}

func updateColumns(input types.BookInput) map[string]any {
	columns := map[string]any{"updated_at": time.Now().UTC()}

	setString := func(column string, value *string) {
		if value != nil {
			columns[column] = *value
		}
	}
	setOptional := func(column string, value types.OptionalInt) {
		if !value.Set {
			return
		}
		if value.Value == nil {
			columns[column] = gorm.Expr("NULL")
			return
		}
		columns[column] = *value.Value
	}

	setString("title", input.Title)
	setString("author", input.Author)
	setString("synopsis", input.Synopsis)
	setString("cover", input.Cover)
	setString("isbn", input.ISBN)
	setString("notes", input.Notes)
	setOptional("year", input.Year)
	setOptional("pages", input.Pages)
	setOptional("rating", input.Rating)

	if input.CurrentPage != nil {
		columns["current_page"] = *input.CurrentPage
	}
	if input.Status != nil {
		columns["status"] = string(*input.Status)
	}
	if input.GenreID.Set {
		if input.GenreID.Value == nil {
			columns["genre_id"] = gorm.Expr("NULL")
		} else {
			columns["genre_id"] = *input.GenreID.Value
		}
	}
	return columns
}
