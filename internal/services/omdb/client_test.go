package omdb

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaumene/tamilarr/internal/config"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(&config.Config{OMDbAPIKey: "key"}, zerolog.Nop(), WithBaseURL(server.URL+"/"))
}

func TestSearchTitle(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "Leo", q.Get("s"))
		assert.Equal(t, "2023", q.Get("y"))
		assert.Equal(t, "movie", q.Get("type"))
		assert.Equal(t, "key", q.Get("apikey"))
		_, _ = io.WriteString(w, `{"Response":"True","Search":[
			{"Title":"Leo","Year":"2023","imdbID":"tt15654328","Type":"movie","Poster":"https://img/leo.jpg"},
			{"Title":"Leo","Year":"2023","imdbID":"tt14979052","Type":"movie","Poster":"N/A"}
		]}`)
	})

	results, err := client.SearchTitle(context.Background(), "Leo", 2023, "movie")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "tt15654328", results[0].IMDbID)
}

func TestSearchTitleNoResults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"Response":"False","Error":"Movie not found!"}`)
	})

	results, err := client.SearchTitle(context.Background(), "Nothing", 0, "")
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestGetByID(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("i") != "tt15654328" {
			_, _ = io.WriteString(w, `{"Response":"False","Error":"Incorrect IMDb ID."}`)
			return
		}
		_, _ = io.WriteString(w, `{"Response":"True","imdbID":"tt15654328","Title":"Leo","Year":"2023","Type":"movie",
			"Genre":"Action, Crime, Drama","Plot":"N/A","Poster":"https://img/leo.jpg"}`)
	})

	title, err := client.GetByID(context.Background(), "tt15654328")
	require.NoError(t, err)
	assert.Equal(t, "Leo", title.Title)
	assert.Equal(t, []string{"Action", "Crime", "Drama"}, List(title.Genre))
	assert.Equal(t, "", Value(title.Plot))

	_, err = client.GetByID(context.Background(), "tt0000000")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNoCredential(t *testing.T) {
	client := NewClient(&config.Config{}, zerolog.Nop())
	assert.False(t, client.Enabled())

	_, err := client.SearchTitle(context.Background(), "Leo", 0, "")
	assert.ErrorIs(t, err, ErrNoCredential)
}

func TestStartYear(t *testing.T) {
	assert.Equal(t, 2019, StartYear("2019–2023"))
	assert.Equal(t, 2023, StartYear("2023"))
	assert.Equal(t, 0, StartYear("N/A"))
}
