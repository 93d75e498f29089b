package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/simple"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the Bleve index mapping for search documents.
//
// Names and titles use the English analyzer with term vectors for highlighting.
// Type and genre are keywords for exact filters; ids, year and duration are
// numeric for range filters and sorting.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	// --- Text fields ---

	nameFieldMapping := bleve.NewTextFieldMapping()
	nameFieldMapping.Analyzer = en.AnalyzerName
	nameFieldMapping.Store = true
	nameFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("name", nameFieldMapping)

	gameNameFieldMapping := bleve.NewTextFieldMapping()
	gameNameFieldMapping.Analyzer = en.AnalyzerName
	gameNameFieldMapping.Store = true
	gameNameFieldMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("game_name", gameNameFieldMapping)

	// Summary is searchable but not stored.
	summaryFieldMapping := bleve.NewTextFieldMapping()
	summaryFieldMapping.Analyzer = en.AnalyzerName
	summaryFieldMapping.Store = false
	docMapping.AddFieldMappingsAt("summary", summaryFieldMapping)

	// Company names without stemming.
	companiesFieldMapping := bleve.NewTextFieldMapping()
	companiesFieldMapping.Analyzer = simple.Name
	companiesFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("companies", companiesFieldMapping)

	// --- Keyword fields ---

	typeFieldMapping := bleve.NewTextFieldMapping()
	typeFieldMapping.Analyzer = keyword.Name
	typeFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("type", typeFieldMapping)

	idFieldMapping := bleve.NewTextFieldMapping()
	idFieldMapping.Analyzer = keyword.Name
	docMapping.AddFieldMappingsAt("id", idFieldMapping)

	genresFieldMapping := bleve.NewTextFieldMapping()
	genresFieldMapping.Analyzer = keyword.Name
	genresFieldMapping.Store = true
	docMapping.AddFieldMappingsAt("genres", genresFieldMapping)

	// --- Numeric fields ---

	for _, field := range []string{"game_id", "album_id", "position", "duration", "release_year", "rating", "created_at"} {
		numeric := bleve.NewNumericFieldMapping()
		numeric.Store = true
		docMapping.AddFieldMappingsAt(field, numeric)
	}

	indexMapping.AddDocumentMapping("_default", docMapping)

	return indexMapping
}
