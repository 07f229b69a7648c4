package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/imagevault/backend/internal/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockSearchService is a mock implementation of SearchService
type mockSearchService struct {
	docs      []search.Document
	err       error
	lastQuery string
	lastLimit int
}

func (m *mockSearchService) Search(ctx context.Context, text string, limit int) ([]search.Document, error) {
	m.lastQuery = text
	m.lastLimit = limit
	return m.docs, m.err
}

func newSearchRouter(svc SearchService) chi.Router {
	logger, _ := zap.NewDevelopment()
	r := chi.NewRouter()
	NewSearchHandler(svc, logger).RegisterRoutes(r)
	return r
}

func TestSearchHandler_Search(t *testing.T) {
	svc := &mockSearchService{
		docs: []search.Document{{ID: "a1", Name: "Mountain"}, {ID: "a2", Name: "Mountain lake"}},
	}
	router := newSearchRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=mountain&limit=10", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "mountain", svc.lastQuery)
	assert.Equal(t, 10, svc.lastLimit)

	var resp struct {
		Query   string            `json:"query"`
		Total   int               `json:"total"`
		Results []search.Document `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "mountain", resp.Query)
	assert.Equal(t, 2, resp.Total)
	require.Len(t, resp.Results, 2)
	assert.Equal(t, "a1", resp.Results[0].ID)
}

func TestSearchHandler_SearchNoResults(t *testing.T) {
	svc := &mockSearchService{}
	router := newSearchRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=nothing", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Total   int               `json:"total"`
		Results []search.Document `json:"results"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Total)
	assert.NotNil(t, resp.Results)
}

func TestSearchHandler_SearchEmptyQuery(t *testing.T) {
	svc := &mockSearchService{}
	router := newSearchRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	// An empty query is not an error; it matches nothing.
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Total)
}

func TestSearchHandler_SearchValidation(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{name: "invalid limit", url: "/api/v1/search?q=x&limit=abc"},
		{name: "negative limit", url: "/api/v1/search?q=x&limit=-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := newSearchRouter(&mockSearchService{})

			req := httptest.NewRequest(http.MethodGet, tt.url, nil)
			rec := httptest.NewRecorder()

			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestSearchHandler_SearchFailure(t *testing.T) {
	svc := &mockSearchService{err: errors.New("index unavailable")}
	router := newSearchRouter(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=x", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
