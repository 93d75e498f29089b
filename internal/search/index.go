package search

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"

	"github.com/aresapp/ares-server/internal/logger"
)

// SearchIndex wraps a Bleve index with catalog-specific operations.
//
// All public methods are safe for concurrent use. The mutex keeps readers
// out while Rebuild swaps the underlying index.
type SearchIndex struct {
	index  bleve.Index
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
}

// Options configures the search index.
type Options struct {
	DataPath string       // Directory for index storage; empty keeps the index in memory
	Logger   *slog.Logger // Uses a discard logger if nil
}

// mappingVersion is bumped whenever the index mapping changes, which
// triggers a rebuild on startup.
const mappingVersion = "1"

// NewSearchIndex creates or opens a search index.
// A corrupted index or one built with an older mapping is removed and recreated.
func NewSearchIndex(opts Options) (*SearchIndex, error) {
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}

	if opts.DataPath == "" {
		index, err := bleve.NewMemOnly(buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create memory index: %w", err)
		}
		return &SearchIndex{index: index, logger: log}, nil
	}

	if err := os.MkdirAll(opts.DataPath, 0o755); err != nil {
		return nil, fmt.Errorf("create search dir: %w", err)
	}
	indexPath := filepath.Join(opts.DataPath, "catalog.bleve")
	versionPath := filepath.Join(opts.DataPath, "catalog.version")

	var index bleve.Index
	needsRebuild := false

	_, statErr := os.Stat(indexPath)
	indexExists := statErr == nil

	if indexExists {
		existingVersion, readErr := os.ReadFile(versionPath)
		switch {
		case readErr != nil:
			log.Info("search index has no version file, will rebuild",
				slog.String("new_version", mappingVersion))
			needsRebuild = true
		case string(existingVersion) != mappingVersion:
			log.Info("search index mapping version changed, will rebuild",
				slog.String("old_version", string(existingVersion)),
				slog.String("new_version", mappingVersion))
			needsRebuild = true
		}
	}

	if !needsRebuild && indexExists {
		var err error
		index, err = bleve.Open(indexPath)
		if err != nil {
			log.Warn("failed to open existing index, will recreate",
				slog.String("path", indexPath),
				slog.Any("error", err))
			needsRebuild = true
		}
	}

	if needsRebuild {
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, fmt.Errorf("remove old index: %w", err)
		}
		index = nil
	}

	if index == nil {
		var err error
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
		if err := os.WriteFile(versionPath, []byte(mappingVersion), 0o644); err != nil {
			log.Warn("failed to write search version file", slog.Any("error", err))
		}
		log.Info("created new search index",
			slog.String("path", indexPath),
			slog.String("mapping_version", mappingVersion))
	} else {
		log.Info("opened existing search index", slog.String("path", indexPath))
	}

	return &SearchIndex{
		index:  index,
		path:   indexPath,
		logger: log,
	}, nil
}

// Close closes the index and releases resources.
func (s *SearchIndex) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index.Close()
}

// IndexDocument indexes a single document.
func (s *SearchIndex) IndexDocument(doc *SearchDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.Index(doc.ID, doc.ToMap())
}

// IndexDocuments indexes documents in batches of 500.
func (s *SearchIndex) IndexDocuments(docs []*SearchDocument) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	const batchSize = 500

	for i := 0; i < len(docs); i += batchSize {
		end := min(i+batchSize, len(docs))

		batch := s.index.NewBatch()
		for _, doc := range docs[i:end] {
			if err := batch.Index(doc.ID, doc.ToMap()); err != nil {
				return fmt.Errorf("batch index %s: %w", doc.ID, err)
			}
		}
		if err := s.index.Batch(batch); err != nil {
			return fmt.Errorf("commit batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// DeleteDocuments removes documents from the index.
func (s *SearchIndex) DeleteDocuments(ids []string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	batch := s.index.NewBatch()
	for _, id := range ids {
		batch.Delete(id)
	}
	return s.index.Batch(batch)
}

// DeleteGame removes a game document and all of its track documents.
func (s *SearchIndex) DeleteGame(ctx context.Context, gameID int64) error {
	ids, err := s.documentsOfGame(ctx, gameID)
	if err != nil {
		return err
	}
	return s.DeleteDocuments(append(ids, GameDocID(gameID)))
}

func (s *SearchIndex) documentsOfGame(ctx context.Context, gameID int64) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var ids []string
	const page = 1000
	for from := 0; ; from += page {
		req := bleve.NewSearchRequestOptions(gameFilter(gameID), page, from, false)
		res, err := s.index.SearchInContext(ctx, req)
		if err != nil {
			return nil, fmt.Errorf("find documents of game %d: %w", gameID, err)
		}
		for _, hit := range res.Hits {
			ids = append(ids, hit.ID)
		}
		if len(res.Hits) < page {
			return ids, nil
		}
	}
}

// DocumentCount returns the total number of indexed documents.
func (s *SearchIndex) DocumentCount() (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index.DocCount()
}

// Rebuild drops the existing index and creates an empty one.
// It holds an exclusive lock for the duration.
func (s *SearchIndex) Rebuild() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.index.Close(); err != nil {
		return fmt.Errorf("close index: %w", err)
	}

	var (
		index bleve.Index
		err   error
	)
	if s.path == "" {
		index, err = bleve.NewMemOnly(buildIndexMapping())
	} else {
		if err := os.RemoveAll(s.path); err != nil {
			return fmt.Errorf("remove index: %w", err)
		}
		index, err = bleve.New(s.path, buildIndexMapping())
	}
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}

	s.index = index
	s.logger.Info("rebuilt search index", slog.String("path", s.path))
	return nil
}
