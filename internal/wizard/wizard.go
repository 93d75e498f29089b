// Package wizard sequences the soundtrack pipeline for one game, from the
// name to persisted tracks, and drives batches of games.
package wizard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aresapp/ares-server/internal/domain"
	"github.com/aresapp/ares-server/internal/errors"
	"github.com/aresapp/ares-server/internal/metadata/igdb"
	"github.com/aresapp/ares-server/internal/segmenter"
	"github.com/aresapp/ares-server/internal/sse"
)

// DefaultMaxCandidates bounds the chapter extraction attempts of one run.
const DefaultMaxCandidates = 10

// Metadata is the game metadata provider.
type Metadata interface {
	Search(ctx context.Context, name string) ([]igdb.Match, error)
	FetchDetails(ctx context.Context, id int64) (*igdb.Game, error)
	FetchCompanies(ctx context.Context, ids []int64) ([]igdb.Company, error)
}

// Catalog is the persistent store of games, albums and tracks.
type Catalog interface {
	CheckExistence(ctx context.Context, gameID int64) (domain.Existence, error)
	CheckAlbumExists(ctx context.Context, gameID int64) (int64, bool, error)
	PersistGame(ctx context.Context, g *domain.Game) error
	GetGame(ctx context.Context, gameID int64) (*domain.Game, error)
	DeleteGame(ctx context.Context, gameID int64) error
	NextAlbumID(ctx context.Context) (int64, error)
	PersistTracks(ctx context.Context, gameID, albumID int64, tracks []domain.Track, source domain.MediaReference) error
}

// Matcher ranks soundtrack candidates for a game.
type Matcher interface {
	Match(ctx context.Context, name string, releaseYear int) (domain.MatchResult, error)
}

// Extractor writes the chapters file of a media and reads it back.
type Extractor interface {
	Extract(ctx context.Context, ref domain.MediaReference, gameID int64) ([]domain.Chapter, error)
	Saved(mediaID string, gameID int64) ([]domain.Chapter, error)
}

// Downloader fetches the audio of a media.
type Downloader interface {
	Download(ctx context.Context, ref domain.MediaReference) (string, error)
}

// Aligner corrects chapter timestamps against the audio.
type Aligner interface {
	Align(ctx context.Context, mediaID, audioPath string) ([]domain.Chapter, error)
}

// Segmenter cuts the aligned audio into tracks.
type Segmenter interface {
	Segment(ctx context.Context, mediaID, audioPath string, albumID int64) (*segmenter.Result, error)
}

// Covers computes cover placeholders.
type Covers interface {
	CoverBlurhash(ctx context.Context, imageID string) (string, error)
}

// Indexer mirrors catalog changes into search.
type Indexer interface {
	IndexGame(ctx context.Context, gameID int64) error
	RemoveGame(ctx context.Context, gameID int64) error
}

// Emitter publishes progress events.
type Emitter interface {
	Emit(event sse.Event)
}

// Deps are the collaborators of a Wizard. Covers, Indexer and Emitter are
// optional.
type Deps struct {
	Metadata   Metadata
	Catalog    Catalog
	Matcher    Matcher
	Extractor  Extractor
	Downloader Downloader
	Aligner    Aligner
	Segmenter  Segmenter
	Covers     Covers
	Indexer    Indexer
	Emitter    Emitter
}

// Wizard runs the pipeline. It holds no per-run state and may serve
// concurrent runs for different games.
type Wizard struct {
	deps          Deps
	maxCandidates int
	logger        *slog.Logger
}

// New creates a wizard.
func New(deps Deps, logger *slog.Logger) *Wizard {
	return &Wizard{deps: deps, maxCandidates: DefaultMaxCandidates, logger: logger}
}

// Request selects the entry mode of a run. With only Name set the game and
// media are discovered; GameID skips game matching and Media skips media
// matching.
type Request struct {
	Name   string
	GameID int64
	Media  *domain.MediaReference
	// TaskID tags the emitted stage events.
	TaskID string
}

// ResumeRequest restarts the pipeline for a known game, optionally with a
// known media.
type ResumeRequest struct {
	GameID int64
	Media  *domain.MediaReference
}

// Result is the outcome of a run.
type Result struct {
	State    State
	Stage    State // last state entered before Failed
	GameID   int64
	GameName string
	Media    *domain.MediaReference
	AlbumID  int64
	Tracks   []domain.Track
	Attempts int
	Warning  string
	Err      error
}

// Message returns the failure tagged with its stage, or "".
func (r *Result) Message() string {
	if r.Err == nil {
		return ""
	}
	return fmt.Sprintf("[%s] %v", r.Stage, r.Err)
}

// run is the mutable state of one invocation.
type run struct {
	Result
	taskID     string
	year       int
	candidates []domain.MediaReference
	resumed    bool // candidates came from the request
	audioPath  string
	persisted  bool
	log        *slog.Logger
}

// Run discovers the game and media from a name and builds its album.
func (w *Wizard) Run(ctx context.Context, name string) (*Result, error) {
	return w.Execute(ctx, Request{Name: name})
}

// Resume builds the album of a known game.
func (w *Wizard) Resume(ctx context.Context, req ResumeRequest) (*Result, error) {
	if req.GameID <= 0 {
		return nil, errors.Validationf("invalid game id %d", req.GameID)
	}
	return w.Execute(ctx, Request{GameID: req.GameID, Media: req.Media})
}

// Execute runs the state machine to Success or Failed. The returned error
// is the failure cause, also available as Result.Err.
func (w *Wizard) Execute(ctx context.Context, req Request) (*Result, error) {
	if req.Name == "" && req.GameID <= 0 {
		return nil, errors.Validation("a game name or game id is required")
	}
	if req.Media != nil {
		if req.Media.MediaID == "" {
			return nil, errors.Validation("media id is required")
		}
		if req.Media.MediaType != domain.MediaVideo && req.Media.MediaType != domain.MediaPlaylist {
			return nil, errors.Validationf("unknown media type %q", req.Media.MediaType)
		}
	}

	r := &run{
		Result: Result{State: NotStarted, GameID: req.GameID, GameName: req.Name},
		taskID: req.TaskID,
		log:    w.logger.With(slog.String("game", req.Name)),
	}
	if req.Media != nil {
		ref := *req.Media
		r.candidates = []domain.MediaReference{ref}
		r.resumed = true
	}

	r.log.Info("wizard started", slog.Int64("game_id", req.GameID))

	for !r.State.Terminal() {
		next, err := w.step(ctx, r)
		if err != nil {
			w.fail(ctx, r, err)
			w.emitStage(r)
			break
		}
		r.State = next
		if !next.Terminal() {
			r.Stage = next
		}
		w.emitStage(r)
	}

	if r.State == Success {
		r.log.Info("wizard finished",
			slog.Int64("game_id", r.GameID),
			slog.Int64("album_id", r.AlbumID),
			slog.Int("tracks", len(r.Tracks)))
	}
	return &r.Result, r.Err
}

func (w *Wizard) step(ctx context.Context, r *run) (State, error) {
	switch r.State {
	case NotStarted:
		if r.GameID > 0 {
			return AddingGameData, nil
		}
		return MatchingGame, nil
	case MatchingGame:
		return w.matchGame(ctx, r)
	case AddingGameData:
		return w.addGameData(ctx, r)
	case MatchingMedia:
		return w.matchMedia(ctx, r)
	case ExtractingChapters:
		return w.extractChapters(ctx, r)
	case DownloadingMedia:
		path, err := w.deps.Downloader.Download(ctx, *r.Media)
		if err != nil {
			return Failed, err
		}
		r.audioPath = path
		return AligningChapters, nil
	case AligningChapters:
		if _, err := w.deps.Aligner.Align(ctx, r.Media.MediaID, r.audioPath); err != nil {
			return Failed, err
		}
		return SegmentingAudio, nil
	case SegmentingAudio:
		return w.segment(ctx, r)
	case PersistingTracks:
		return w.persistTracks(ctx, r)
	default:
		return Failed, errors.Internalf("no transition from state %s", r.State)
	}
}

func (w *Wizard) matchGame(ctx context.Context, r *run) (State, error) {
	matches, err := w.deps.Metadata.Search(ctx, r.GameName)
	if err != nil {
		return Failed, metadataError(err, "game search failed")
	}
	if len(matches) == 0 {
		return Failed, errors.NoMatch("no matching game found")
	}

	r.GameID = matches[0].ID
	r.log = r.log.With(slog.Int64("game_id", r.GameID))
	r.log.Info("game matched", slog.String("match", matches[0].Name), slog.Int("score", matches[0].Score))
	return AddingGameData, nil
}

func (w *Wizard) addGameData(ctx context.Context, r *run) (State, error) {
	existence, err := w.deps.Catalog.CheckExistence(ctx, r.GameID)
	if err != nil {
		return Failed, err
	}

	switch existence {
	case domain.ExistenceComplete:
		albumID, exists, err := w.deps.Catalog.CheckAlbumExists(ctx, r.GameID)
		if err != nil {
			return Failed, err
		}
		if exists {
			return Failed, errors.AlreadyExistsf("album %d already exists for game %d", albumID, r.GameID)
		}
		r.Warning = "game already exists in catalog"
		r.log.Info("game already in catalog, building album")
	case domain.ExistencePartial:
		r.log.Warn("game partially persisted, completing it")
		fallthrough
	default:
		if err := w.persistGame(ctx, r); err != nil {
			return Failed, err
		}
	}

	g, err := w.deps.Catalog.GetGame(ctx, r.GameID)
	if err != nil {
		return Failed, err
	}
	r.GameName = g.Name
	if g.ReleaseDate != nil {
		r.year = g.ReleaseDate.Year()
	}

	if len(r.candidates) > 0 {
		return ExtractingChapters, nil
	}
	return MatchingMedia, nil
}

func (w *Wizard) persistGame(ctx context.Context, r *run) error {
	details, err := w.deps.Metadata.FetchDetails(ctx, r.GameID)
	if err != nil {
		return metadataError(err, "game details lookup failed")
	}
	companies, err := w.deps.Metadata.FetchCompanies(ctx, details.CompanyIDs())
	if err != nil {
		return metadataError(err, "company lookup failed")
	}

	g := details.ToDomain(companies)
	if g.CoverImageID != "" && w.deps.Covers != nil {
		hash, err := w.deps.Covers.CoverBlurhash(ctx, g.CoverImageID)
		if err != nil {
			r.log.Warn("cover placeholder unavailable", slog.String("image_id", g.CoverImageID), slog.Any("error", err))
		} else {
			g.CoverBlurhash = hash
		}
	}

	// Mark before writing: a half-written game must be rolled back too.
	r.persisted = true
	return w.deps.Catalog.PersistGame(ctx, &g)
}

func (w *Wizard) matchMedia(ctx context.Context, r *run) (State, error) {
	res, err := w.deps.Matcher.Match(ctx, r.GameName, r.year)
	if err != nil {
		return Failed, err
	}
	r.candidates = res.References()
	if len(r.candidates) == 0 {
		return Failed, errors.InfoExtraction("", "no matching media found")
	}
	return ExtractingChapters, nil
}

// extractChapters walks the ranked candidates until one yields chapters or
// the next one falls below the score floor.
func (w *Wizard) extractChapters(ctx context.Context, r *run) (State, error) {
	if r.resumed {
		ref := r.candidates[0]
		chs, err := w.deps.Extractor.Saved(ref.MediaID, r.GameID)
		if err == nil {
			r.Media = &ref
			r.log = r.log.With(slog.String("media_id", ref.MediaID))
			r.log.Info("reusing saved chapters", slog.Int("chapters", len(chs)))
			return DownloadingMedia, nil
		}
		r.log.Debug("no reusable chapters file", slog.String("media_id", ref.MediaID), slog.Any("error", err))
	}

	floor := Floor{StartScore: r.candidates[0].Score}

	var lastErr error
	for i, ref := range r.candidates {
		if r.Attempts >= w.maxCandidates {
			break
		}
		if i > 0 && !floor.Accepts(ref.Score) {
			r.log.Info("next candidate below score floor",
				slog.String("media_id", ref.MediaID),
				slog.Int("score", ref.Score),
				slog.Int("start_score", floor.StartScore))
			break
		}

		r.Attempts++
		if _, err := w.deps.Extractor.Extract(ctx, ref, r.GameID); err != nil {
			r.log.Warn("no chapters for candidate",
				slog.String("media_id", ref.MediaID),
				slog.String("media_type", string(ref.MediaType)),
				slog.Int("attempt", r.Attempts),
				slog.Any("error", err))
			lastErr = err
			continue
		}

		r.Media = &ref
		r.log = r.log.With(slog.String("media_id", ref.MediaID))
		return DownloadingMedia, nil
	}

	if lastErr == nil {
		lastErr = errors.ChapterExtraction("", "no candidate left to try")
	}
	return Failed, lastErr
}

func (w *Wizard) segment(ctx context.Context, r *run) (State, error) {
	albumID, err := w.deps.Catalog.NextAlbumID(ctx)
	if err != nil {
		return Failed, err
	}
	res, err := w.deps.Segmenter.Segment(ctx, r.Media.MediaID, r.audioPath, albumID)
	if err != nil {
		return Failed, err
	}
	r.AlbumID = albumID
	r.Tracks = res.Tracks
	return PersistingTracks, nil
}

func (w *Wizard) persistTracks(ctx context.Context, r *run) (State, error) {
	if err := w.deps.Catalog.PersistTracks(ctx, r.GameID, r.AlbumID, r.Tracks, *r.Media); err != nil {
		return Failed, err
	}

	if w.deps.Indexer != nil {
		if err := w.deps.Indexer.IndexGame(ctx, r.GameID); err != nil {
			r.log.Warn("search indexing failed", slog.Any("error", err))
		}
	}
	w.emit(sse.NewGameAddedEvent(r.GameID, r.GameName, r.AlbumID, len(r.Tracks)))
	return Success, nil
}

// fail records err and rolls back a game persisted by this run.
func (w *Wizard) fail(ctx context.Context, r *run, err error) {
	r.State = Failed
	r.Err = err
	r.log.Error("wizard failed",
		slog.String("stage", r.Stage.String()),
		slog.String("code", errors.UserCode(err)),
		slog.Any("error", err))

	if !r.persisted {
		return
	}

	// The run context may be the reason for the failure.
	cleanup := context.WithoutCancel(ctx)
	if derr := w.deps.Catalog.DeleteGame(cleanup, r.GameID); derr != nil && !errors.Is(derr, errors.ErrNotFound) {
		r.log.Error("rollback failed", slog.Any("error", derr))
		return
	}
	if w.deps.Indexer != nil {
		if ierr := w.deps.Indexer.RemoveGame(cleanup, r.GameID); ierr != nil {
			r.log.Warn("search rollback failed", slog.Any("error", ierr))
		}
	}
	r.log.Info("game rolled back")
	w.emit(sse.NewGameDeletedEvent(r.GameID))
}

func (w *Wizard) emitStage(r *run) {
	data := sse.WizardStageEventData{
		TaskID:   r.taskID,
		GameName: r.GameName,
		GameID:   r.GameID,
		Stage:    r.State.String(),
	}
	if r.Media != nil {
		data.MediaID = r.Media.MediaID
	}
	w.emit(sse.NewWizardStageEvent(data))
}

func (w *Wizard) emit(event sse.Event) {
	if w.deps.Emitter != nil {
		w.deps.Emitter.Emit(event)
	}
}

func metadataError(err error, msg string) error {
	if errors.Is(err, igdb.ErrNotFound) {
		return errors.NoMatch(msg).WithCause(err)
	}
	return errors.Wrap(err, errors.CodeUpstream, msg)
}
