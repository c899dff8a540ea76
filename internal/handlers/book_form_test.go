package handlers

import (
	"net/url"
	"testing"

	"github.com/bookshelf-app/server/internal/services"
	"github.com/bookshelf-app/server/types"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBookInputFromValues_AbsentFieldsStayUnset(t *testing.T) {
	in, err := bookInputFromValues(url.Values{"title": {"Dune"}})
	require.NoError(t, err)

	require.NotNil(t, in.Title)
	assert.Equal(t, "Dune", *in.Title)
	assert.Nil(t, in.Author)
	assert.False(t, in.Pages.Set)
	assert.False(t, in.Rating.Set)
	assert.False(t, in.GenreID.Set)
	assert.Nil(t, in.CurrentPage)
	assert.Nil(t, in.Status)
}

func TestBookInputFromValues_EmptyValuesClear(t *testing.T) {
	in, err := bookInputFromValues(url.Values{
		"pages":    {""},
		"rating":   {"  "},
		"genre_id": {""},
		"notes":    {""},
	})
	require.NoError(t, err)

	assert.True(t, in.Pages.Set)
	assert.Nil(t, in.Pages.Value)
	assert.True(t, in.Rating.Set)
	assert.Nil(t, in.Rating.Value)
	assert.True(t, in.GenreID.Set)
	assert.Nil(t, in.GenreID.Value)
	require.NotNil(t, in.Notes)
	assert.Empty(t, *in.Notes)
}

func TestBookInputFromValues_ParsesValues(t *testing.T) {
	genre := uuid.New()
	in, err := bookInputFromValues(url.Values{
		"title":        {"Dom Casmurro"},
		"author":       {"Machado de Assis"},
		"year":         {"1899"},
		"pages":        {" 256 "},
		"rating":       {"5"},
		"current_page": {"12"},
		"status":       {"lendo"},
		"genre_id":     {genre.String()},
	})
	require.NoError(t, err)

	require.NotNil(t, in.Year.Value)
	assert.Equal(t, 1899, *in.Year.Value)
	require.NotNil(t, in.Pages.Value)
	assert.Equal(t, 256, *in.Pages.Value)
	require.NotNil(t, in.CurrentPage)
	assert.Equal(t, 12, *in.CurrentPage)
	require.NotNil(t, in.Status)
	assert.Equal(t, types.StatusReading, *in.Status)
	require.NotNil(t, in.GenreID.Value)
	assert.Equal(t, genre, *in.GenreID.Value)
}

func TestBookInputFromValues_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		form  url.Values
		field string
	}{
		{"non numeric pages", url.Values{"pages": {"many"}}, "pages"},
		{"fractional rating", url.Values{"rating": {"4.5"}}, "rating"},
		{"year beyond int32", url.Values{"year": {"3000000000"}}, "year"},
		{"negative pages beyond int32", url.Values{"pages": {"-2147483649"}}, "pages"},
		{"non numeric current page", url.Values{"current_page": {"x"}}, "current_page"},
		{"unknown status", url.Values{"status": {"ABANDONED"}}, "status"},
		{"malformed genre", url.Values{"genre_id": {"fantasy"}}, "genre_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := bookInputFromValues(tt.form)
			require.ErrorIs(t, err, services.ErrValidation)

			var verr *services.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}
