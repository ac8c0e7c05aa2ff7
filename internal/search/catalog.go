/*
Package search implements keyword search over the tool catalog.

Tools are indexed in an in-memory Bleve index. Description search uses a
BM25-scored match query; name lookup uses a fuzzy query so near-miss tool
names still find their target.
*/
package search

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
	"go.uber.org/zap"
)

// MaxFuzziness is the largest edit distance Bleve fuzzy queries accept.
const MaxFuzziness = 2

// ToolDoc is a tool as stored in the catalog.
type ToolDoc struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Params      []string `json:"params,omitempty"`
}

// Result is a single search hit.
type Result struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Category    string  `json:"category"`
	Score       float64 `json:"score"`
}

// Catalog is a searchable index of tools.
type Catalog struct {
	index  bleve.Index
	mu     sync.RWMutex
	logger *zap.Logger
}

// NewCatalog creates an empty in-memory catalog.
func NewCatalog(logger *zap.Logger) (*Catalog, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	index, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create bleve index: %w", err)
	}
	return &Catalog{index: index, logger: logger}, nil
}

// buildIndexMapping creates the tool document mapping.
func buildIndexMapping() mapping.IndexMapping {
	toolMapping := bleve.NewDocumentMapping()

	// Name is indexed whole so fuzzy lookups compare complete tool names.
	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = keyword.Name
	toolMapping.AddFieldMappingsAt("name", nameFieldMapping)

	// Words is the name split on underscores, for keyword search.
	toolMapping.AddFieldMappingsAt("words", bleve.NewTextFieldMapping())
	toolMapping.AddFieldMappingsAt("description", bleve.NewTextFieldMapping())

	categoryFieldMapping := bleve.NewTextFieldMapping()
	categoryFieldMapping.Analyzer = keyword.Name
	toolMapping.AddFieldMappingsAt("category", categoryFieldMapping)

	paramsFieldMapping := bleve.NewTextFieldMapping()
	paramsFieldMapping.IncludeInAll = false
	toolMapping.AddFieldMappingsAt("params", paramsFieldMapping)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", toolMapping)
	return indexMapping
}

// Index adds or replaces tools in one batch. Documents are keyed by name.
func (c *Catalog) Index(docs []ToolDoc) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	batch := c.index.NewBatch()
	for _, doc := range docs {
		fields := map[string]interface{}{
			"name":        doc.Name,
			"words":       strings.ReplaceAll(doc.Name, "_", " "),
			"description": doc.Description,
			"category":    doc.Category,
			"params":      strings.Join(doc.Params, " "),
		}
		if err := batch.Index(doc.Name, fields); err != nil {
			c.logger.Warn("Failed to index tool", zap.String("tool", doc.Name), zap.Error(err))
		}
	}

	if err := c.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to batch index tools: %w", err)
	}
	return nil
}

// Remove deletes a tool from the catalog.
func (c *Catalog) Remove(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.index.Delete(name); err != nil {
		return fmt.Errorf("failed to remove tool %s: %w", name, err)
	}
	return nil
}

// Search runs a BM25 match query over names, descriptions and parameters.
func (c *Catalog) Search(text string, limit int) ([]Result, error) {
	return c.search(bleve.NewMatchQuery(text), limit)
}

// SearchCategory scopes Search to one category.
func (c *Catalog) SearchCategory(text, category string, limit int) ([]Result, error) {
	categoryQuery := bleve.NewTermQuery(category)
	categoryQuery.SetField("category")
	return c.search(bleve.NewConjunctionQuery(bleve.NewMatchQuery(text), categoryQuery), limit)
}

// Similar finds tools whose full name is within MaxFuzziness edits of name.
func (c *Catalog) Similar(name string, limit int) ([]Result, error) {
	fuzzy := bleve.NewFuzzyQuery(strings.ToLower(name))
	fuzzy.SetField("name")
	fuzzy.SetFuzziness(MaxFuzziness)
	return c.search(fuzzy, limit)
}

// All returns every tool, sorted by name.
func (c *Catalog) All(limit int) ([]Result, error) {
	if limit <= 0 {
		limit = 100
	}
	results, err := c.search(bleve.NewMatchAllQuery(), limit)
	if err != nil {
		return nil, err
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results, nil
}

func (c *Catalog) search(q query.Query, limit int) ([]Result, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if limit <= 0 {
		limit = 10
	}

	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{"name", "description", "category"}

	res, err := c.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("bleve search failed: %w", err)
	}

	out := make([]Result, 0, len(res.Hits))
	for _, hit := range res.Hits {
		name, _ := hit.Fields["name"].(string)
		description, _ := hit.Fields["description"].(string)
		category, _ := hit.Fields["category"].(string)
		if name == "" {
			name = hit.ID
		}
		out = append(out, Result{Name: name, Description: description, Category: category, Score: hit.Score})
	}
	return out, nil
}

// Count returns the number of indexed tools.
func (c *Catalog) Count() (uint64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n, err := c.index.DocCount()
	if err != nil {
		return 0, fmt.Errorf("failed to get doc count: %w", err)
	}
	return n, nil
}

// Close releases the index.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.index != nil {
		return c.index.Close()
	}
	return nil
}
