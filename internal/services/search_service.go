package services

import (
	"context"
	"fmt"

	"github.com/imagevault/backend/internal/search"
	"go.uber.org/zap"
)

// SearchQuerier defines the interface for querying the search projection
type SearchQuerier interface {
	// Query runs a relevance-ranked search over indexed assets.
	Query(ctx context.Context, text string, limit int) ([]search.Document, error)
}

// searchService exposes asset search to the transport layer
type searchService struct {
	index  SearchQuerier
	logger *zap.Logger
}

// NewSearchService creates a new search service
func NewSearchService(index SearchQuerier, logger *zap.Logger) *searchService {
	return &searchService{
		index:  index,
		logger: logger,
	}
}

// Search runs a relevance-ranked query over the index. A non-positive limit
// falls back to the default page size.
func (s *searchService) Search(ctx context.Context, text string, limit int) ([]search.Document, error) {
	if limit <= 0 {
		limit = search.DefaultLimit
	}

	docs, err := s.index.Query(ctx, text, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query search index: %w", err)
	}

	s.logger.Debug("search executed",
		zap.String("query", text),
		zap.Int("results", len(docs)),
	)
	return docs, nil
}
