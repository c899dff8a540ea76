package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/bookshelf-app/server/internal/services"
	"github.com/bookshelf-app/server/types"
	"github.com/google/uuid"
)

const (
	maxFormMemory      = 1 << 20
	maxCoverFormMemory = services.MaxCoverBytes + 1<<20

	formFieldTitle       = "title"
	formFieldAuthor      = "author"
	formFieldSynopsis    = "synopsis"
	formFieldCover       = "cover"
	formFieldISBN        = "isbn"
	formFieldNotes       = "notes"
	formFieldYear        = "year"
	formFieldPages       = "pages"
	formFieldRating      = "rating"
	formFieldCurrentPage = "current_page"
	formFieldStatus      = "status"
	formFieldGenre       = "genre_id"
)

// errFormTooLarge is returned for form bodies over maxFormMemory.
var errFormTooLarge = errors.New("form body too large")

// parseForm parses urlencoded and multipart bodies alike, capped at
// maxFormMemory.
func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormMemory)
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return r.ParseMultipartForm(maxFormMemory)
	}
	return r.ParseForm()
}

// parseBookForm turns submitted form values into a typed BookInput. Fields
// absent from the form stay unset; empty numeric and genre fields clear the
// stored value.
func parseBookForm(w http.ResponseWriter, r *http.Request) (types.BookInput, error) {
	if err := parseForm(w, r); err != nil {
		if isFormTooLarge(err) {
			return types.BookInput{}, errFormTooLarge
		}
		return types.BookInput{}, &services.ValidationError{Message: "invalid form body"}
	}
	return bookInputFromValues(r.PostForm)
}

func bookInputFromValues(form url.Values) (types.BookInput, error) {
	var (
		in  types.BookInput
		err error
	)

	in.Title = optionalString(form, formFieldTitle)
	in.Author = optionalString(form, formFieldAuthor)
	in.Synopsis = optionalString(form, formFieldSynopsis)
	in.Cover = optionalString(form, formFieldCover)
	in.ISBN = optionalString(form, formFieldISBN)
	in.Notes = optionalString(form, formFieldNotes)

	if in.Year, err = parseOptionalInt(form, formFieldYear); err != nil {
		return types.BookInput{}, err
	}
	if in.Pages, err = parseOptionalInt(form, formFieldPages); err != nil {
		return types.BookInput{}, err
	}
	if in.Rating, err = parseOptionalInt(form, formFieldRating); err != nil {
		return types.BookInput{}, err
	}

	currentPage, err := parseOptionalInt(form, formFieldCurrentPage)
	if err != nil {
		return types.BookInput{}, err
	}
	in.CurrentPage = currentPage.Value

	if raw := strings.TrimSpace(form.Get(formFieldStatus)); raw != "" {
		status, err := types.ParseReadingStatus(raw)
		if err != nil {
			return types.BookInput{}, &services.ValidationError{Field: formFieldStatus, Message: "unknown reading status"}
		}
		in.Status = &status
	}

	if in.GenreID, err = parseOptionalID(form, formFieldGenre); err != nil {
		return types.BookInput{}, err
	}
	return in, nil
}

func optionalString(form url.Values, key string) *string {
	if _, ok := form[key]; !ok {
		return nil
	}
	value := form.Get(key)
	return &value
}

func parseOptionalInt(form url.Values, key string) (types.OptionalInt, error) {
	if _, ok := form[key]; !ok {
		return types.OptionalInt{}, nil
	}
	value := strings.TrimSpace(form.Get(key))
	if value == "" {
		return types.OptionalInt{Set: true}, nil
	}
	parsed, err := strconv.ParseInt(value, 10, 32)
	if errors.Is(err, strconv.ErrRange) {
		return types.OptionalInt{}, &services.ValidationError{Field: key, Message: key + " is out of range"}
	}
	if err != nil {
		return types.OptionalInt{}, &services.ValidationError{Field: key, Message: key + " must be a whole number"}
	}
	n := int(parsed)
	return types.OptionalInt{Set: true, Value: &n}, nil
}

func parseOptionalID(form url.Values, key string) (types.OptionalID, error) {
	if _, ok := form[key]; !ok {
		return types.OptionalID{}, nil
	}
	value := strings.TrimSpace(form.Get(key))
	if value == "" {
		return types.OptionalID{Set: true}, nil
	}
	id, err := uuid.Parse(value)
	if err != nil {
		return types.OptionalID{}, &services.ValidationError{Field: key, Message: "genre must be a valid id"}
	}
	return types.OptionalID{Set: true, Value: &id}, nil
}

// errNoCover is returned when the cover upload form has no file.
var errNoCover = &services.ValidationError{Field: formFieldCover, Message: "cover file is required"}

func isFormTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}
