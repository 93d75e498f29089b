package providers

import (
	"github.com/samber/do/v2"

	"github.com/aresapp/ares-server/internal/aligner"
	"github.com/aresapp/ares-server/internal/config"
	"github.com/aresapp/ares-server/internal/downloader"
	"github.com/aresapp/ares-server/internal/extractor"
	"github.com/aresapp/ares-server/internal/logger"
	"github.com/aresapp/ares-server/internal/matcher"
	"github.com/aresapp/ares-server/internal/media/ffmpeg"
	"github.com/aresapp/ares-server/internal/media/images"
	"github.com/aresapp/ares-server/internal/retry"
	"github.com/aresapp/ares-server/internal/search"
	"github.com/aresapp/ares-server/internal/segmenter"
	"github.com/aresapp/ares-server/internal/tasks"
	"github.com/aresapp/ares-server/internal/wizard"
)

// ProvideFFmpegTools provides the ffmpeg, ffprobe and yt-dlp wrappers.
func ProvideFFmpegTools(i do.Injector) (*ffmpeg.Tools, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return ffmpeg.New(ffmpeg.Paths{
		FFmpeg:  cfg.Tools.FFmpeg,
		FFprobe: cfg.Tools.FFprobe,
		YtDlp:   cfg.Tools.YtDlp,
	}, nil, log.Logger), nil
}

// ProvideMatcher provides the soundtrack matcher.
func ProvideMatcher(i do.Injector) (*matcher.Matcher, error) {
	yt := do.MustInvoke[*YouTubeClientHandle](i)
	c := do.MustInvoke[*CacheHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return matcher.New(yt.Client, c.Cache, log.Logger), nil
}

// ProvideExtractor provides the chapter extractor.
func ProvideExtractor(i do.Injector) (*extractor.Extractor, error) {
	cfg := do.MustInvoke[*config.Config](i)
	yt := do.MustInvoke[*YouTubeClientHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return extractor.New(yt.Client, cfg.ChaptersDir(), log.Logger), nil
}

// ProvideDownloader provides the audio downloader.
func ProvideDownloader(i do.Injector) (*downloader.Downloader, error) {
	cfg := do.MustInvoke[*config.Config](i)
	tools := do.MustInvoke[*ffmpeg.Tools](i)
	log := do.MustInvoke[*logger.Logger](i)

	return downloader.New(tools, downloader.Config{
		AudioDir:      cfg.AudioDir(),
		ChaptersDir:   cfg.ChaptersDir(),
		Concurrency:   int64(cfg.Pipeline.DownloadConcurrency),
		PlaylistRetry: retry.Attempts(cfg.Pipeline.DownloadRetries),
		SingleRetry:   retry.Attempts(cfg.Pipeline.SingleRetries),
	}, log.Logger), nil
}

// ProvideAligner provides the chapter aligner.
func ProvideAligner(i do.Injector) (*aligner.Aligner, error) {
	cfg := do.MustInvoke[*config.Config](i)
	tools := do.MustInvoke[*ffmpeg.Tools](i)
	log := do.MustInvoke[*logger.Logger](i)

	return aligner.New(tools, aligner.Config{
		ChaptersDir: cfg.ChaptersDir(),
		Workers:     cfg.Pipeline.CPUWorkers,
		DebugPlots:  cfg.Pipeline.DebugPlots,
	}, log.Logger), nil
}

// ProvideSegmenter provides the track segmenter.
func ProvideSegmenter(i do.Injector) (*segmenter.Segmenter, error) {
	cfg := do.MustInvoke[*config.Config](i)
	tools := do.MustInvoke[*ffmpeg.Tools](i)
	log := do.MustInvoke[*logger.Logger](i)

	return segmenter.New(tools, segmenter.Config{
		ChaptersDir: cfg.ChaptersDir(),
		MediaDir:    cfg.MediaDir(),
		PublicURL:   cfg.Server.PublicURL,
		Workers:     cfg.Pipeline.CPUWorkers,
	}, log.Logger), nil
}

// ProvideWizard provides the wizard with every pipeline stage wired in.
func ProvideWizard(i do.Injector) (*wizard.Wizard, error) {
	log := do.MustInvoke[*logger.Logger](i)

	return wizard.New(wizard.Deps{
		Metadata:   do.MustInvoke[*IGDBClientHandle](i).Client,
		Catalog:    do.MustInvoke[*StoreHandle](i).Store,
		Matcher:    do.MustInvoke[*matcher.Matcher](i),
		Extractor:  do.MustInvoke[*extractor.Extractor](i),
		Downloader: do.MustInvoke[*downloader.Downloader](i),
		Aligner:    do.MustInvoke[*aligner.Aligner](i),
		Segmenter:  do.MustInvoke[*segmenter.Segmenter](i),
		Covers:     do.MustInvoke[*images.Cache](i),
		Indexer:    do.MustInvoke[*search.Indexer](i),
		Emitter:    do.MustInvoke[*SSEManagerHandle](i).Manager,
	}, log.Logger), nil
}

// ProvideBatch provides the batch wizard driver.
func ProvideBatch(i do.Injector) (*wizard.Batch, error) {
	w := do.MustInvoke[*wizard.Wizard](i)
	reports := do.MustInvoke[*wizard.Reports](i)
	tracker := do.MustInvoke[*tasks.Tracker](i)
	log := do.MustInvoke[*logger.Logger](i)

	return wizard.NewBatch(w, reports, tracker, log.Logger), nil
}
