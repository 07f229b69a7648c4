package search

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

// bleveIndex implements the search index on an embedded bleve index
type bleveIndex struct {
	idx bleve.Index
}

// New opens the bleve index at path, creating it with the asset document
// mapping if it does not exist yet
func New(path string) (*bleveIndex, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, buildIndexMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open search index: %w", err)
	}
	return &bleveIndex{idx: idx}, nil
}

// NewInMemory creates a non-persistent index, used in tests
func NewInMemory() (*bleveIndex, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory search index: %w", err)
	}
	return &bleveIndex{idx: idx}, nil
}

// buildIndexMapping defines how asset documents are analyzed: name and
// description as analyzed text, tags as analyzed text, the rest stored
// verbatim for result reconstruction
func buildIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	textField := func() *mapping.FieldMapping {
		fm := bleve.NewTextFieldMapping()
		fm.Store = true
		return fm
	}
	keywordField := func() *mapping.FieldMapping {
		fm := bleve.NewKeywordFieldMapping()
		fm.Store = true
		return fm
	}

	docMapping.AddFieldMappingsAt("name", textField())
	docMapping.AddFieldMappingsAt("description", textField())
	docMapping.AddFieldMappingsAt("tags", textField())
	docMapping.AddFieldMappingsAt("url", keywordField())
	docMapping.AddFieldMappingsAt("thumbnail_url", keywordField())
	docMapping.AddFieldMappingsAt("content_hash", keywordField())

	dateField := bleve.NewDateTimeFieldMapping()
	dateField.Store = true
	docMapping.AddFieldMappingsAt("uploaded_at", dateField)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = docMapping
	return im
}

// Upsert indexes the document under its asset identifier, replacing any
// previous version
func (b *bleveIndex) Upsert(ctx context.Context, doc Document) error {
	fields := map[string]interface{}{
		"name":          doc.Name,
		"description":   doc.Description,
		"tags":          doc.Tags,
		"url":           doc.URL,
		"thumbnail_url": doc.ThumbnailURL,
		"content_hash":  doc.ContentHash,
		"uploaded_at":   doc.UploadedAt,
	}
	if err := b.idx.Index(doc.ID, fields); err != nil {
		return fmt.Errorf("failed to index document: %w", err)
	}
	return nil
}

// Query runs a weighted fuzzy search over name, description and tags, with
// prefix matching on name and description for autocomplete. Results are
// ranked by relevance, then recency.
func (b *bleveIndex) Query(ctx context.Context, text string, limit int) ([]Document, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return []Document{}, nil
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	fields := []struct {
		name   string
		boost  float64
		prefix bool
	}{
		{"name", 3.0, true},
		{"description", 2.0, true},
		{"tags", 2.0, false},
	}

	var subqueries []query.Query
	for _, f := range fields {
		mq := bleve.NewMatchQuery(text)
		mq.SetField(f.name)
		mq.SetBoost(f.boost)
		mq.SetFuzziness(1)
		subqueries = append(subqueries, mq)

		if f.prefix {
			// the standard analyzer lowercases indexed terms
			pq := bleve.NewPrefixQuery(strings.ToLower(text))
			pq.SetField(f.name)
			pq.SetBoost(f.boost)
			subqueries = append(subqueries, pq)
		}
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(subqueries...), limit, 0, false)
	req.Fields = []string{"*"}
	req.SortBy([]string{"-_score", "-uploaded_at"})

	res, err := b.idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}

	docs := make([]Document, 0, len(res.Hits))
	for _, hit := range res.Hits {
		docs = append(docs, documentFromFields(hit.ID, hit.Fields))
	}
	return docs, nil
}

// Delete removes the document for the given asset identifier. Deleting an
// absent document is not an error.
func (b *bleveIndex) Delete(ctx context.Context, id string) error {
	if err := b.idx.Delete(id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return nil
}

// Close releases the underlying index
func (b *bleveIndex) Close() error {
	return b.idx.Close()
}

// documentFromFields rebuilds a Document from the stored fields of a hit
func documentFromFields(id string, fields map[string]interface{}) Document {
	doc := Document{
		ID:           id,
		Name:         fieldString(fields, "name"),
		Description:  fieldString(fields, "description"),
		Tags:         fieldStrings(fields, "tags"),
		URL:          fieldString(fields, "url"),
		ThumbnailURL: fieldString(fields, "thumbnail_url"),
		ContentHash:  fieldString(fields, "content_hash"),
	}
	if raw := fieldString(fields, "uploaded_at"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			doc.UploadedAt = ts
		}
	}
	return doc
}

func fieldString(fields map[string]interface{}, name string) string {
	switch v := fields[name].(type) {
	case string:
		return v
	case []interface{}:
		if len(v) > 0 {
			if s, ok := v[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

// fieldStrings handles bleve returning a single string for one-element
// arrays and []interface{} for longer ones
func fieldStrings(fields map[string]interface{}, name string) []string {
	switch v := fields[name].(type) {
	case string:
		if v == "" {
			return []string{}
		}
		return []string{v}
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return []string{}
}
