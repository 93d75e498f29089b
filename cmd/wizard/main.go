// Command wizard runs the soundtrack pipeline from the command line, without
// the HTTP server.
//
// Usage:
//
//	wizard [flags] name...
//	wizard -resume-game 1033 [-media PLxxxx -type playlist]
//
// Every configuration flag of the server is accepted as well.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/samber/do/v2"

	"github.com/aresapp/ares-server/internal/di"
	"github.com/aresapp/ares-server/internal/domain"
	"github.com/aresapp/ares-server/internal/logger"
	"github.com/aresapp/ares-server/internal/tasks"
	"github.com/aresapp/ares-server/internal/validation"
	"github.com/aresapp/ares-server/internal/wizard"
)

var (
	resumeGame = flag.Int64("resume-game", 0, "Resume the pipeline for this IGDB game id")
	mediaID    = flag.String("media", "", "Use this video or playlist id instead of matching")
	mediaType  = flag.String("type", "", "Media type of -media: video or playlist")
)

func main() {
	injector := di.NewContainer()

	// Config parses the command line, so flag.Args is only valid afterwards.
	if err := di.BootstrapPipeline(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap pipeline: %v\n", err)
		_ = injector.Shutdown()
		os.Exit(1)
	}

	code := run(injector)
	_ = injector.Shutdown()
	os.Exit(code)
}

func run(injector do.Injector) int {
	log := do.MustInvoke[*logger.Logger](injector)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	media, err := mediaFromFlags()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}

	if *resumeGame > 0 {
		return resume(ctx, injector, media)
	}
	if media != nil {
		fmt.Fprintln(os.Stderr, "-media requires -resume-game")
		return 2
	}

	names := make([]string, 0, flag.NArg())
	for _, arg := range flag.Args() {
		if name := strings.TrimSpace(arg); name != "" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		fmt.Fprintln(os.Stderr, "usage: wizard [flags] name... | wizard -resume-game ID [-media ID -type video|playlist]")
		return 2
	}

	tracker := do.MustInvoke[*tasks.Tracker](injector)
	batch := do.MustInvoke[*wizard.Batch](injector)
	reports := do.MustInvoke[*wizard.Reports](injector)

	task, err := tracker.Create(tasks.TypeWizardBatch, domain.TaskKindPercent, fmt.Sprintf("%d games", len(names)))
	if err != nil {
		log.Error("create task", "error", err)
		return 1
	}

	report, err := batch.Run(ctx, task.ID, names)
	if report != nil {
		fmt.Printf("%d/%d games added, report: %s\n", report.NSuccess, report.NTotal, reports.Path(report.ReportID))
	}
	if err != nil {
		log.Error("batch interrupted", "error", err)
		return 1
	}
	if report.NError > 0 {
		return 1
	}
	return 0
}

func resume(ctx context.Context, injector do.Injector, media *domain.MediaReference) int {
	w := do.MustInvoke[*wizard.Wizard](injector)

	res, err := w.Resume(ctx, wizard.ResumeRequest{GameID: *resumeGame, Media: media})
	if err != nil {
		if res != nil {
			fmt.Fprintln(os.Stderr, res.Message())
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return 1
	}
	if res.Warning != "" {
		fmt.Println(res.Warning)
		return 0
	}
	fmt.Printf("%s: album %d with %d tracks\n", res.GameName, res.AlbumID, len(res.Tracks))
	return 0
}

func mediaFromFlags() (*domain.MediaReference, error) {
	if *mediaID == "" && *mediaType == "" {
		return nil, nil
	}
	if *mediaID == "" || *mediaType == "" {
		return nil, errors.New("-media and -type must be given together")
	}

	ref := &domain.MediaReference{MediaID: *mediaID, MediaType: domain.MediaType(*mediaType)}
	switch ref.MediaType {
	case domain.MediaVideo:
		if !validation.IsVideoID(ref.MediaID) {
			return nil, fmt.Errorf("invalid video id %q", ref.MediaID)
		}
	case domain.MediaPlaylist:
		if !validation.IsPlaylistID(ref.MediaID) {
			return nil, fmt.Errorf("invalid playlist id %q", ref.MediaID)
		}
	default:
		return nil, fmt.Errorf("unknown media type %q", *mediaType)
	}
	return ref, nil
}
