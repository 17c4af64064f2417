// Package bleve implements engine.Index on an embedded bleve index, for
// deployments without an Elasticsearch cluster.
package bleve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"

	"github.com/Daption-ciray/proapp/internal/domain"
	"github.com/Daption-ciray/proapp/internal/engine"
)

const (
	docType = "product"

	// keywordSuffix names the exact-match companion of a text field.
	keywordSuffix = "_kw"

	suggestScanSize = 50
)

// Engine is a bleve-backed implementation of engine.Index.
type Engine struct {
	index  bleve.Index
	logger *slog.Logger
}

var (
	_ engine.Index  = (*Engine)(nil)
	_ engine.Loader = (*Engine)(nil)
)

// Open opens the index at path, creating it when it does not exist. An empty
// path creates a memory-only index.
func Open(path string, logger *slog.Logger) (*Engine, error) {
	idx, err := openOrCreate(path)
	if err != nil {
		return nil, err
	}
	return &Engine{index: idx, logger: logger}, nil
}

func openOrCreate(path string) (bleve.Index, error) {
	if path == "" {
		idx, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("bleve: create memory index: %w", err)
		}
		return idx, nil
	}

	idx, err := bleve.Open(path)
	if err == nil {
		return idx, nil
	}
	if !errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		return nil, fmt.Errorf("bleve: open index: %w", err)
	}

	idx, err = bleve.New(path, buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("bleve: create index: %w", err)
	}
	return idx, nil
}

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	productMapping := bleve.NewDocumentMapping()

	textWithKeyword := func(field string) {
		text := bleve.NewTextFieldMapping()
		text.Analyzer = standard.Name
		text.Store = true

		kw := bleve.NewTextFieldMapping()
		kw.Name = field + keywordSuffix
		kw.Analyzer = keyword.Name
		kw.Store = false
		kw.IncludeTermVectors = false

		productMapping.AddFieldMappingsAt(field, text, kw)
	}

	for _, f := range []string{domain.FieldBrand, domain.FieldModel, domain.FieldCategory, domain.FieldTargetAudience, domain.FieldColor} {
		textWithKeyword(f)
	}

	desc := bleve.NewTextFieldMapping()
	desc.Analyzer = standard.Name
	desc.Store = true
	productMapping.AddFieldMappingsAt(domain.FieldDescription, desc)

	price := bleve.NewNumericFieldMapping()
	price.Store = true
	productMapping.AddFieldMappingsAt(domain.FieldPrice, price)

	indexMapping.AddDocumentMapping(docType, productMapping)
	indexMapping.DefaultType = docType
	indexMapping.DefaultAnalyzer = standard.Name

	return indexMapping
}

// Close releases the index.
func (e *Engine) Close() error {
	return e.index.Close()
}

// Ping reports whether the index can still answer queries.
func (e *Engine) Ping(context.Context) error {
	if _, err := e.index.DocCount(); err != nil {
		return fmt.Errorf("bleve ping: %w", err)
	}
	return nil
}

// BulkIndex adds or updates products in a single batch.
func (e *Engine) BulkIndex(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	batch := e.index.NewBatch()
	for i := range products {
		if err := batch.Index(products[i].ID, toDocument(products[i])); err != nil {
			return fmt.Errorf("bleve bulk index: id=%s: %w", products[i].ID, err)
		}
	}
	if err := e.index.Batch(batch); err != nil {
		return fmt.Errorf("bleve bulk index: %w", err)
	}

	e.logger.InfoContext(ctx, "bulk indexed products", slog.Int("count", len(products)))
	return nil
}

// Search runs q against the index. Terms and the price range are
// conjunctive; boosts are optional clauses.
func (e *Engine) Search(ctx context.Context, q domain.StructuredQuery) ([]domain.Hit, int, error) {
	size := q.Size
	if size <= 0 {
		size = domain.DefaultResultSize
	}
	if size > domain.MaxResultSize {
		size = domain.MaxResultSize
	}

	req := bleve.NewSearchRequestOptions(buildQuery(q), size, 0, false)
	req.Fields = []string{"*"}
	req.SortBy([]string{"-_score", domain.FieldPrice})

	res, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, 0, fmt.Errorf("bleve search: %w", err)
	}

	hits := make([]domain.Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		hits = append(hits, domain.Hit{
			Product: fromFields(h.ID, h.Fields),
			Score:   h.Score,
		})
	}

	return hits, int(res.Total), nil
}

// Suggest returns brand, model and category values starting with prefix.
func (e *Engine) Suggest(ctx context.Context, prefix string, limit int) ([]string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return []string{}, nil
	}
	limit = engine.SuggestLimit(limit)

	fields := []string{domain.FieldBrand, domain.FieldModel, domain.FieldCategory}
	clauses := make([]query.Query, 0, len(fields))
	for _, f := range fields {
		pq := bleve.NewPrefixQuery(prefix)
		pq.SetField(f)
		clauses = append(clauses, pq)
	}

	req := bleve.NewSearchRequestOptions(bleve.NewDisjunctionQuery(clauses...), suggestScanSize, 0, false)
	req.Fields = fields

	res, err := e.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("bleve suggest: %w", err)
	}

	seen := make(map[string]struct{})
	out := []string{}
	for _, h := range res.Hits {
		for _, f := range fields {
			v, _ := h.Fields[f].(string)
			if v == "" || !strings.HasPrefix(strings.ToLower(v), prefix) {
				continue
			}
			if _, dup := seen[v]; dup {
				continue
			}
			seen[v] = struct{}{}
			out = append(out, v)
		}
	}

	sort.Strings(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func buildQuery(q domain.StructuredQuery) query.Query {
	var text query.Query
	if q.MatchAll() {
		text = bleve.NewMatchAllQuery()
	} else {
		fieldQueries := make([]query.Query, 0, len(q.Fields))
		for _, f := range q.Fields {
			fieldQueries = append(fieldQueries, fieldQuery(q, f))
		}
		text = bleve.NewDisjunctionQuery(fieldQueries...)
	}

	// Filters carry zero boost so they restrict the hits without changing
	// their scores.
	must := []query.Query{text}
	for _, t := range q.Terms {
		tq := bleve.NewTermQuery(t.Value)
		tq.SetField(t.Field + keywordSuffix)
		tq.SetBoost(0)
		must = append(must, tq)
	}
	if r := q.PriceRange; r != nil && (r.Min != nil || r.Max != nil) {
		inclusive := true
		rq := bleve.NewNumericRangeInclusiveQuery(r.Min, r.Max, &inclusive, &inclusive)
		rq.SetField(domain.FieldPrice)
		rq.SetBoost(0)
		must = append(must, rq)
	}

	bq := bleve.NewBooleanQuery()
	bq.AddMust(must...)

	for _, b := range q.Boosts {
		for _, v := range b.Values {
			tq := bleve.NewTermQuery(v)
			tq.SetField(b.Field + keywordSuffix)
			tq.SetBoost(b.Boost)
			bq.AddShould(tq)
		}
	}

	return bq
}

// fieldQuery matches q.Text against one weighted field. With fuzziness each
// term gets its own edit distance from domain.AutoEdits, and any matching
// term is enough.
func fieldQuery(q domain.StructuredQuery, f domain.FieldBoost) query.Query {
	if q.Fuzziness == "" {
		mq := bleve.NewMatchQuery(q.Text)
		mq.SetField(f.Field)
		mq.SetBoost(f.Boost)
		return mq
	}

	terms := queryTerms(q.Text)
	termQueries := make([]query.Query, 0, len(terms))
	for _, term := range terms {
		mq := bleve.NewMatchQuery(term)
		mq.SetField(f.Field)
		mq.SetBoost(f.Boost)
		if edits := domain.AutoEdits(term); edits > 0 {
			mq.SetFuzziness(edits)
			mq.SetPrefix(1)
		}
		termQueries = append(termQueries, mq)
	}
	return bleve.NewDisjunctionQuery(termQueries...)
}

// queryTerms splits text the way the standard analyzer tokenizes it.
func queryTerms(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func toDocument(p domain.Product) map[string]interface{} {
	return map[string]interface{}{
		domain.FieldBrand:          p.Brand,
		domain.FieldModel:          p.Model,
		domain.FieldCategory:       p.Category,
		domain.FieldTargetAudience: p.TargetAudience,
		domain.FieldColor:          p.Color,
		domain.FieldDescription:    p.Description,
		domain.FieldPrice:          p.Price,
	}
}

func fromFields(id string, fields map[string]interface{}) domain.Product {
	str := func(name string) string {
		s, _ := fields[name].(string)
		return s
	}
	price, _ := fields[domain.FieldPrice].(float64)

	return domain.Product{
		ID:             id,
		Brand:          str(domain.FieldBrand),
		Model:          str(domain.FieldModel),
		Price:          price,
		Category:       str(domain.FieldCategory),
		TargetAudience: str(domain.FieldTargetAudience),
		Color:          str(domain.FieldColor),
		Description:    str(domain.FieldDescription),
	}
}
