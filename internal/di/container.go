// Package di provides dependency injection configuration for the Ares server.
package di

import (
	"github.com/samber/do/v2"

	"github.com/aresapp/ares-server/internal/aligner"
	"github.com/aresapp/ares-server/internal/config"
	"github.com/aresapp/ares-server/internal/di/providers"
	"github.com/aresapp/ares-server/internal/downloader"
	"github.com/aresapp/ares-server/internal/extractor"
	"github.com/aresapp/ares-server/internal/logger"
	"github.com/aresapp/ares-server/internal/matcher"
	"github.com/aresapp/ares-server/internal/media/ffmpeg"
	"github.com/aresapp/ares-server/internal/media/images"
	"github.com/aresapp/ares-server/internal/search"
	"github.com/aresapp/ares-server/internal/segmenter"
	"github.com/aresapp/ares-server/internal/tasks"
	"github.com/aresapp/ares-server/internal/wizard"
)

// NewContainer creates and configures the DI container with all providers.
// Nothing is constructed until a service is invoked.
func NewContainer() *do.RootScope {
	injector := do.New()

	// Core infrastructure
	do.Provide(injector, providers.ProvideConfig)
	do.Provide(injector, providers.ProvideLogger)

	// Storage layer
	do.Provide(injector, providers.ProvideSSEManager)
	do.Provide(injector, providers.ProvideStore)
	do.Provide(injector, providers.ProvideTaskTracker)
	do.Provide(injector, providers.ProvideImageStorage)
	do.Provide(injector, providers.ProvideImageCache)
	do.Provide(injector, providers.ProvideReports)
	do.Provide(injector, providers.ProvideCache)

	// Search layer
	do.Provide(injector, providers.ProvideSearchIndex)
	do.Provide(injector, providers.ProvideIndexer)

	// External clients
	do.Provide(injector, providers.ProvideYouTubeClient)
	do.Provide(injector, providers.ProvideIGDBClient)
	do.Provide(injector, providers.ProvideFFmpegTools)

	// Pipeline stages
	do.Provide(injector, providers.ProvideMatcher)
	do.Provide(injector, providers.ProvideExtractor)
	do.Provide(injector, providers.ProvideDownloader)
	do.Provide(injector, providers.ProvideAligner)
	do.Provide(injector, providers.ProvideSegmenter)
	do.Provide(injector, providers.ProvideWizard)
	do.Provide(injector, providers.ProvideBatch)

	// Server
	do.Provide(injector, providers.ProvideWizardLimiter)
	do.Provide(injector, providers.ProvideAPIServer)
	do.Provide(injector, providers.ProvideHTTPServer)

	return injector
}

// BootstrapPipeline initializes the wizard and everything it depends on,
// without the HTTP surface.
func BootstrapPipeline(injector *do.RootScope) error {
	services := []func(do.Injector) error{
		invoke[*config.Config],
		invoke[*logger.Logger],
		invoke[*providers.SSEManagerHandle],
		invoke[*providers.StoreHandle],
		invoke[*tasks.Tracker],
		invoke[*providers.ImageStorageHandle],
		invoke[*images.Cache],
		invoke[*wizard.Reports],
		invoke[*providers.CacheHandle],
		invoke[*providers.SearchIndexHandle],
		invoke[*search.Indexer],
		invoke[*providers.YouTubeClientHandle],
		invoke[*providers.IGDBClientHandle],
		invoke[*ffmpeg.Tools],
		invoke[*matcher.Matcher],
		invoke[*extractor.Extractor],
		invoke[*downloader.Downloader],
		invoke[*aligner.Aligner],
		invoke[*segmenter.Segmenter],
		invoke[*wizard.Wizard],
		invoke[*wizard.Batch],
	}
	for _, fn := range services {
		if err := fn(injector); err != nil {
			return err
		}
	}

	// Trigger search reindex if needed
	providers.TriggerSearchReindexIfNeeded(injector)

	return nil
}

// Bootstrap initializes all services, starts the HTTP server and returns
// once it is listening in the background.
func Bootstrap(injector *do.RootScope) error {
	if err := BootstrapPipeline(injector); err != nil {
		return err
	}
	for _, fn := range []func(do.Injector) error{
		invoke[*providers.WizardLimiterHandle],
		invoke[*providers.APIServerHandle],
		invoke[*providers.HTTPServerHandle],
	} {
		if err := fn(injector); err != nil {
			return err
		}
	}
	return nil
}

func invoke[T any](i do.Injector) error {
	_, err := do.Invoke[T](i)
	return err
}
