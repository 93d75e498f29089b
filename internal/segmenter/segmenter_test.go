package segmenter

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aresapp/ares-server/internal/chapters"
	"github.com/aresapp/ares-server/internal/domain"
	apperrors "github.com/aresapp/ares-server/internal/errors"
	"github.com/aresapp/ares-server/internal/logger"
	"github.com/aresapp/ares-server/internal/media/ffmpeg"
)

type fakeTools struct {
	mu       sync.Mutex
	total    float64
	failAt   float64
	info     ffmpeg.StreamInfo
	segments [][2]float64
}

func (f *fakeTools) Duration(context.Context, string) (float64, error) { return f.total, nil }

func (f *fakeTools) StreamInfo(context.Context, string) (ffmpeg.StreamInfo, error) { return f.info, nil }

func (f *fakeTools) Segment(_ context.Context, _ string, start, end float64, seconds int, pattern string) error {
	f.mu.Lock()
	f.segments = append(f.segments, [2]float64{start, end})
	f.mu.Unlock()

	if f.failAt != 0 && start == f.failAt {
		return errors.New("ffmpeg failed: exit status 1")
	}
	n := int(math.Ceil((end - start) / float64(seconds)))
	for i := range n {
		if err := os.WriteFile(fmt.Sprintf(pattern, i), []byte("x"), 0o644); err != nil {
			return err
		}
	}
	return nil
}

func corrected(v float64) *float64 { return &v }

func setup(t *testing.T, chs []domain.Chapter) Config {
	t.Helper()
	dir := t.TempDir()
	cfg := Config{
		ChaptersDir: filepath.Join(dir, "chapters"),
		MediaDir:    filepath.Join(dir, "media"),
		PublicURL:   "https://ares.example.com/",
		Workers:     2,
	}
	require.NoError(t, chapters.Save(cfg.ChaptersDir, "vid", domain.ChaptersFile{GameID: 77, Chapters: chs}))
	return cfg
}

func TestPlan(t *testing.T) {
	chs := []domain.Chapter{
		{Title: "A", Timestamp: 0, CorrectedTimestamp: corrected(0.5)},
		{Title: "B", Timestamp: 60},
		{Title: "C", Timestamp: 120, CorrectedTimestamp: corrected(118.75)},
	}
	jobs, err := Plan(1, 2, "src.opus", chs, 200)
	require.NoError(t, err)

	require.Len(t, jobs, 3)
	assert.Equal(t, Job{GameID: 1, AlbumID: 2, TrackIndex: 0, Title: "A", Start: 0, End: 60, Source: "src.opus"}, jobs[0])
	assert.Equal(t, 118.75, jobs[1].End)
	assert.Equal(t, 200.0, jobs[2].End)
	assert.InDelta(t, 81.25, jobs[2].Duration(), 1e-9)

	_, err = Plan(1, 2, "src", chs, 100)
	assert.ErrorContains(t, err, "empty window")
}

func TestPlan_TilesWholeSource(t *testing.T) {
	chs := []domain.Chapter{
		{Title: "Intro", Timestamp: 0, CorrectedTimestamp: corrected(3.2)},
		{Title: "Field", Timestamp: 60, CorrectedTimestamp: corrected(61)},
	}
	jobs, err := Plan(1, 2, "src.opus", chs, 120)
	require.NoError(t, err)

	require.Len(t, jobs, 2)
	assert.Zero(t, jobs[0].Start)
	assert.Equal(t, jobs[0].End, jobs[1].Start)

	var sum float64
	for _, j := range jobs {
		sum += j.Duration()
	}
	assert.InDelta(t, 120, sum, 1e-9)
}

func TestSegment_BuildsTracksAndManifests(t *testing.T) {
	chs := []domain.Chapter{
		{Title: "Opening Theme", Timestamp: 0, CorrectedTimestamp: corrected(0)},
		{Title: "Forest (Night)", Timestamp: 30, CorrectedTimestamp: corrected(31.5)},
		{Title: "???", Timestamp: 90, CorrectedTimestamp: corrected(89)},
	}
	cfg := setup(t, chs)
	tools := &fakeTools{total: 100, info: ffmpeg.StreamInfo{SampleRate: 48000, Bitrate: 96000}}
	s := New(tools, cfg, logger.Discard())

	stale := filepath.Join(s.AlbumDir(77, 5), "9", "old.webm")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0o755))
	require.NoError(t, os.WriteFile(stale, nil, 0o644))

	res, err := s.Segment(context.Background(), "vid", "/audio/vid.opus", 5)
	require.NoError(t, err)

	require.Len(t, res.Tracks, 3)
	assert.Equal(t, domain.Track{ID: 0, Title: "Opening Theme", Slug: "opening-theme", Duration: 31.5, SourceRef: "77/5/0/manifest.mpd"}, res.Tracks[0])
	assert.Equal(t, "track-2", res.Tracks[2].Slug)
	assert.InDelta(t, 11, res.Tracks[2].Duration, 1e-9)

	assert.Equal(t, 11, res.Manifests[0].SegmentCount)
	assert.Equal(t, 4, res.Manifests[2].SegmentCount)
	assert.Equal(t, 96000, res.Manifests[1].Bitrate)

	_, err = os.Stat(stale)
	assert.True(t, os.IsNotExist(err), "album directory is wiped first")

	data, err := os.ReadFile(filepath.Join(s.AlbumDir(77, 5), "1", ManifestName))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "<?xml"))

	var mpd MPD
	require.NoError(t, xml.Unmarshal(data, &mpd))
	assert.Equal(t, "static", mpd.Type)
	assert.Equal(t, "PT57.500S", mpd.MediaPresentationDuration)
	tmpl := mpd.Period.AdaptationSet.SegmentTemplate
	assert.Equal(t, 1, tmpl.StartNumber)
	assert.Equal(t, 3, tmpl.Duration)
	assert.Equal(t, "https://ares.example.com/media/77/5/1/segment_0000.webm", tmpl.Initialization)
	assert.Equal(t, "https://ares.example.com/media/77/5/1/segment_$Number%04d$.webm", tmpl.Media)
	rep := mpd.Period.AdaptationSet.Representation
	assert.Equal(t, "opus", rep.Codecs)
	assert.Equal(t, 48000, rep.AudioSamplingRate)
	assert.Equal(t, "2", rep.ChannelConfig.Value)
}

func TestSegment_FailedTrackFailsAlbum(t *testing.T) {
	chs := []domain.Chapter{
		{Title: "A", Timestamp: 0},
		{Title: "B", Timestamp: 10},
		{Title: "C", Timestamp: 20},
	}
	cfg := setup(t, chs)
	s := New(&fakeTools{total: 30, failAt: 10}, cfg, logger.Discard())

	_, err := s.Segment(context.Background(), "vid", "x", 1)
	require.Error(t, err)
	assert.True(t, apperrors.Is(err, apperrors.ErrSegmentation))
	assert.Equal(t, "ARESx04x05xvid", apperrors.UserCode(err))
}
