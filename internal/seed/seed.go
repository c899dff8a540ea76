// Package seed loads the default genres, a test account and sample books.
package seed

import (
	"context"
	"fmt"

	"github.com/bookshelf-app/server/internal/logger"
	"github.com/bookshelf-app/server/internal/services"
	"github.com/bookshelf-app/server/types"
	"github.com/google/uuid"
)

// Genres is the default genre list.
var Genres = []string{
	"Literatura Brasileira",
	"Ficção Científica",
	"Realismo Mágico",
	"Ficção",
	"Fantasia",
	"Romance",
	"Biografia",
	"História",
	"Autoajuda",
	"Tecnologia",
	"Programação",
	"Negócios",
	"Psicologia",
	"Filosofia",
	"Poesia",
}

// TestUser is the account created for local development.
var TestUser = services.SignupInput{
	Name:     "Usuário de Teste",
	Email:    "admin@admin.com.br",
	Password: "P@ssword123",
}

// SampleBook is a book plus the name of its genre.
type SampleBook struct {
	Genre       string
	Title       string
	Author      string
	Synopsis    string
	Cover       string
	Year        int
	Pages       int
	Rating      int
	CurrentPage int
	Status      types.ReadingStatus
}

var SampleBooks = []SampleBook{
	{
		Genre: "Fantasia", Title: "O Senhor dos Anéis", Author: "J.R.R. Tolkien",
		Year: 1954, Pages: 1216, Rating: 5, CurrentPage: 1216, Status: types.StatusFinished,
		Synopsis: "Uma jornada épica para destruir um anel maligno e salvar a Terra Média.",
		Cover:    "https://example.com/tolkien-cover.jpg",
	},
	{
		Genre: "Ficção Científica", Title: "1984", Author: "George Orwell",
		Year: 1949, Pages: 328, Rating: 4, CurrentPage: 150, Status: types.StatusReading,
		Synopsis: "Um futuro distópico onde o Grande Irmão vigia a todos.",
		Cover:    "https://example.com/orwell-cover.jpg",
	},
	{
		Genre: "Literatura Brasileira", Title: "Dom Casmurro", Author: "Machado de Assis",
		Year: 1899, Pages: 256, Rating: 4, CurrentPage: 0, Status: types.StatusWantToRead,
		Synopsis: "A história de Bento Santiago e a suspeita sobre Capitu.",
		Cover:    "https://example.com/machado-cover.jpg",
	},
	{
		Genre: "Programação", Title: "Clean Code", Author: "Robert C. Martin",
		Year: 2008, Pages: 464, Rating: 5, CurrentPage: 50, Status: types.StatusReading,
		Synopsis: "Um guia fundamental para escrever código limpo e legível.",
		Cover:    "https://example.com/cleancode-cover.jpg",
	},
	{
		Genre: "Ficção", Title: "A Revolução dos Bichos", Author: "George Orwell",
		Year: 1945, Pages: 152, Rating: 5, CurrentPage: 152, Status: types.StatusFinished,
		Synopsis: "Uma sátira política em forma de fábula sobre animais que se rebelam.",
		Cover:    "https://example.com/revolucao-bichos-cover.jpg",
	},
}

type GenreEnsurer interface {
	Ensure(ctx context.Context, name string) (types.Genre, error)
}

type UserEnsurer interface {
	Ensure(ctx context.Context, in services.SignupInput) (types.User, error)
}

type BookCreator interface {
	CreateIfMissing(ctx context.Context, in types.BookInput) (types.Book, bool, error)
}

// Result counts what a run touched.
type Result struct {
	Genres       int
	BooksCreated int
	BooksSkipped int
}

// Run is idempotent: genres and the user are upserted and books already
// present (same title and author) are skipped.
func Run(ctx context.Context, genres GenreEnsurer, users UserEnsurer, books BookCreator, log *logger.Logger) (Result, error) {
	var res Result

	genreIDs := make(map[string]uuid.UUID, len(Genres))
	for _, name := range Genres {
		genre, err := genres.Ensure(ctx, name)
		if err != nil {
			return res, fmt.Errorf("ensure genre %q: %w", name, err)
		}
		genreIDs[name] = genre.ID
		res.Genres++
	}
	log.Info("genres seeded", "count", res.Genres)

	if _, err := users.Ensure(ctx, TestUser); err != nil {
		return res, fmt.Errorf("ensure test user: %w", err)
	}
	log.Info("test user seeded", "email", TestUser.Email)

	for _, sample := range SampleBooks {
		_, created, err := books.CreateIfMissing(ctx, sample.input(genreIDs))
		if err != nil {
			return res, fmt.Errorf("seed book %q: %w", sample.Title, err)
		}
		if created {
			res.BooksCreated++
		} else {
			res.BooksSkipped++
		}
	}
	log.Info("books seeded", "created", res.BooksCreated, "skipped", res.BooksSkipped)
	return res, nil
}

func (b SampleBook) input(genreIDs map[string]uuid.UUID) types.BookInput {
	title, author, synopsis, cover := b.Title, b.Author, b.Synopsis, b.Cover
	year, pages, rating, current := b.Year, b.Pages, b.Rating, b.CurrentPage
	status := b.Status

	in := types.BookInput{
		Title:       &title,
		Author:      &author,
		Synopsis:    &synopsis,
		Cover:       &cover,
		Year:        types.OptionalInt{Set: true, Value: &year},
		Pages:       types.OptionalInt{Set: true, Value: &pages},
		Rating:      types.OptionalInt{Set: true, Value: &rating},
		CurrentPage: &current,
		Status:      &status,
	}
	if id, ok := genreIDs[b.Genre]; ok {
		in.GenreID = types.OptionalID{Set: true, Value: &id}
	}
	return in
}
