package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReadingStatus is the reading progress state of a book.
type ReadingStatus string

const (
	StatusWantToRead ReadingStatus = "WANT_TO_READ"
	StatusReading    ReadingStatus = "READING"
	StatusFinished   ReadingStatus = "FINISHED"
)

// ReadingStatuses lists every valid status in display order.
var ReadingStatuses = []ReadingStatus{StatusWantToRead, StatusReading, StatusFinished}

var legacyStatusNames = map[string]ReadingStatus{
	"QUERO_LER": StatusWantToRead,
	"LENDO":     StatusReading,
	"LIDO":      StatusFinished,
}

// ParseReadingStatus converts external input into a ReadingStatus. Matching
// is case-insensitive and also accepts the legacy Portuguese names.
func ParseReadingStatus(raw string) (ReadingStatus, error) {
	value := strings.ToUpper(strings.TrimSpace(raw))
	for _, status := range ReadingStatuses {
		if value == string(status) {
			return status, nil
		}
	}
	if status, ok := legacyStatusNames[value]; ok {
		return status, nil
	}
	return "", fmt.Errorf("unknown reading status %q", raw)
}

// Valid reports whether s is one of the known statuses.
func (s ReadingStatus) Valid() bool {
	for _, status := range ReadingStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Book is a catalogued title in the reader's library.
type Book struct {
	// ID is the unique identifier of the book.
	ID uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`

	// Title is the book title. Never empty.
	Title string `json:"title"`

	// Author is the book author. Never empty.
	Author string `json:"author"`

	// Synopsis is a free-text summary.
	Synopsis string `json:"synopsis"`

	// Cover is the URL of the cover image. Covers uploaded through the
	// server point at /covers/{book id}/{name}.
	Cover string `json:"cover"`

	// ISBN is the book's ISBN as entered by the user.
	ISBN string `json:"isbn" gorm:"column:isbn"`

	// Notes holds the reader's personal notes.
	Notes string `json:"notes"`

	// Year is the publication year, if known.
	Year *int `json:"year"`

	// Pages is the total page count, if known.
	Pages *int `json:"pages"`

	// Rating is the reader's score from 1 to 5, if rated.
	Rating *int `json:"rating"`

	// CurrentPage is the reader's progress. Zero means not started.
	CurrentPage int `json:"current_page"`

	// Status is the reading state of the book.
	Status ReadingStatus `json:"status"`

	// GenreID references the book's genre. A book may have no genre.
	GenreID *uuid.UUID `json:"genre_id" gorm:"type:uuid"`

	// Genre is the referenced genre when loaded alongside the book.
	Genre *Genre `json:"genre,omitempty" gorm:"foreignKey:GenreID"`

	// CreatedAt is the timestamp at which the book was catalogued. Lists are
	// ordered by it, newest first.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the timestamp of the most recent change to the book.
	UpdatedAt time.Time `json:"updated_at"`
}

// OptionalInt is a nullable integer field of a partial update. Set reports
// whether the field was supplied at all; a supplied field with a nil Value
// clears the stored value.
type OptionalInt struct {
	Set   bool
	Value *int
}

// OptionalID is the nullable-reference counterpart of OptionalInt.
type OptionalID struct {
	Set   bool
	Value *uuid.UUID
}

// BookInput is a typed, parsed set of book fields. Nil pointers and unset
// optionals mean "not supplied".
type BookInput struct {
	Title       *string
	Author      *string
	Synopsis    *string
	Cover       *string
	ISBN        *string
	Notes       *string
	Year        OptionalInt
	Pages       OptionalInt
	Rating      OptionalInt
	CurrentPage *int
	Status      *ReadingStatus
	GenreID     OptionalID
}

// BookFilter narrows a book listing. Zero values mean "no constraint".
type BookFilter struct {
	// Search matches title or author, case-insensitively.
	Search string

	// GenreID restricts results to a single genre.
	GenreID *uuid.UUID
}

// LibraryStats summarises the whole library for the dashboard.
type LibraryStats struct {
	TotalBooks int64 `json:"total_books"`
	Reading    int64 `json:"reading"`
	Finished   int64 `json:"finished"`

	// PagesRead is the sum of page counts of finished books.
	PagesRead int64 `json:"pages_read"`
}
