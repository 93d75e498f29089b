package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/aresapp/ares-server/internal/config"
	"github.com/aresapp/ares-server/internal/logger"
	"github.com/aresapp/ares-server/internal/search"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.SearchIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the Bleve search index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewSearchIndex(search.Options{
		DataPath: cfg.SearchDir(),
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{SearchIndex: index}, nil
}

// ProvideIndexer provides the catalog indexer.
func ProvideIndexer(i do.Injector) (*search.Indexer, error) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return search.NewIndexer(indexHandle.SearchIndex, storeHandle.Store, log.Logger), nil
}

// TriggerSearchReindexIfNeeded rebuilds an empty index from the catalog in
// the background. Should be called after all services are wired.
func TriggerSearchReindexIfNeeded(i do.Injector) {
	indexer := do.MustInvoke[*search.Indexer](i)
	log := do.MustInvoke[*logger.Logger](i)

	go func() {
		if err := indexer.ReindexIfEmpty(context.Background()); err != nil {
			log.Error("Initial search reindex failed", "error", err)
			return
		}
		count, _ := indexer.Index().DocumentCount()
		log.Info("Search index ready", "documents", count)
	}()
}
