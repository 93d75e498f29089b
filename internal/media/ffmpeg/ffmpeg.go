package ffmpeg

import (
	"context"
	"encoding/binary"
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
)

// PCM decode parameters for waveform analysis.
const (
	SampleRate = 48000
	Channels   = 2
)

// Stream defaults used when ffprobe omits a value.
const (
	DefaultSampleRate = 48000
	DefaultBitrate    = 128000
)

// Paths locates the external programs. Empty values are resolved on PATH.
type Paths struct {
	FFmpeg  string
	FFprobe string
	YtDlp   string
}

// Tools runs ffmpeg and ffprobe through a Runner.
type Tools struct {
	paths  Paths
	runner Runner
	logger *slog.Logger
}

// New resolves program paths and returns a Tools. A missing program is
// logged, not fatal: only the stages that need it will fail.
func New(paths Paths, runner Runner, logger *slog.Logger) *Tools {
	if runner == nil {
		runner = ExecRunner{}
	}
	paths.FFmpeg = resolve(paths.FFmpeg, "ffmpeg", logger)
	paths.FFprobe = resolve(paths.FFprobe, "ffprobe", logger)
	paths.YtDlp = resolve(paths.YtDlp, "yt-dlp", logger)
	return &Tools{paths: paths, runner: runner, logger: logger}
}

func resolve(configured, name string, logger *slog.Logger) string {
	if configured != "" {
		return configured
	}
	path, err := exec.LookPath(name)
	if err != nil {
		logger.Warn("program not found on PATH", slog.String("program", name))
		return name
	}
	logger.Debug("using program", slog.String("program", name), slog.String("path", path))
	return path
}

// Paths returns the resolved program paths.
func (t *Tools) Paths() Paths { return t.paths }

// Runner returns the runner used for every subprocess.
func (t *Tools) Runner() Runner { return t.runner }

// FFmpeg runs ffmpeg with args.
func (t *Tools) FFmpeg(ctx context.Context, args ...string) error {
	t.logger.Debug("executing ffmpeg", slog.Any("args", args))
	_, err := t.runner.Run(ctx, t.paths.FFmpeg, args...)
	return err
}

// YtDlp runs yt-dlp with args.
func (t *Tools) YtDlp(ctx context.Context, args ...string) error {
	t.logger.Debug("executing yt-dlp", slog.Any("args", args))
	_, err := t.runner.Run(ctx, t.paths.YtDlp, args...)
	return err
}

// Duration returns the container duration of path in seconds.
func (t *Tools) Duration(ctx context.Context, path string) (float64, error) {
	out, err := t.runner.Run(ctx, t.paths.FFprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	if err != nil {
		return 0, fmt.Errorf("probe duration of %s: %w", path, err)
	}

	d, err := strconv.ParseFloat(strings.TrimSpace(string(out)), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration of %s: %w", path, err)
	}
	return d, nil
}

// StreamInfo holds the codec parameters of the first audio stream.
type StreamInfo struct {
	SampleRate int
	Bitrate    int
}

type probeStreams struct {
	Streams []struct {
		SampleRate string `json:"sample_rate"`
		BitRate    string `json:"bit_rate"`
	} `json:"streams"`
}

// StreamInfo probes the sample rate and bitrate of path. Missing fields fall
// back to DefaultSampleRate and DefaultBitrate; a file with no streams is an
// error.
func (t *Tools) StreamInfo(ctx context.Context, path string) (StreamInfo, error) {
	out, err := t.runner.Run(ctx, t.paths.FFprobe,
		"-v", "error",
		"-show_entries", "stream=bit_rate,sample_rate",
		"-of", "json",
		path,
	)
	if err != nil {
		return StreamInfo{}, fmt.Errorf("probe streams of %s: %w", path, err)
	}

	var probe probeStreams
	if err := json.Unmarshal(out, &probe); err != nil {
		return StreamInfo{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(probe.Streams) == 0 {
		return StreamInfo{}, fmt.Errorf("no audio stream in %s", path)
	}

	info := StreamInfo{SampleRate: DefaultSampleRate, Bitrate: DefaultBitrate}
	if sr, err := strconv.Atoi(probe.Streams[0].SampleRate); err == nil && sr > 0 {
		info.SampleRate = sr
	}
	if br, err := strconv.Atoi(probe.Streams[0].BitRate); err == nil && br > 0 {
		info.Bitrate = br
	}
	return info, nil
}

// DecodeWindow decodes [start, start+length) seconds of path to interleaved
// 48 kHz stereo samples. The window is clipped by the end of the file.
func (t *Tools) DecodeWindow(ctx context.Context, path string, start, length float64) ([]int16, error) {
	out, err := t.runner.Run(ctx, t.paths.FFmpeg,
		"-v", "error",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(length),
		"-i", path,
		"-f", "s16le",
		"-acodec", "pcm_s16le",
		"-ac", strconv.Itoa(Channels),
		"-ar", strconv.Itoa(SampleRate),
		"pipe:1",
	)
	if err != nil {
		return nil, fmt.Errorf("decode %s at %.3fs: %w", path, start, err)
	}

	samples := make([]int16, len(out)/2)
	for i := range samples {
		samples[i] = int16(binary.LittleEndian.Uint16(out[2*i:]))
	}
	return samples, nil
}

// Transcode re-encodes in to Opus at out, overwriting it.
func (t *Tools) Transcode(ctx context.Context, in, out string) error {
	return t.FFmpeg(ctx, "-i", in, "-c:a", "libopus", "-loglevel", "error", "-y", out)
}

// Concat joins the files listed in an ffmpeg concat list. Streams are copied
// unless reencode is set.
func (t *Tools) Concat(ctx context.Context, listFile, out string, reencode bool) error {
	codec := "copy"
	if reencode {
		codec = "libopus"
	}
	return t.FFmpeg(ctx,
		"-f", "concat",
		"-loglevel", "error",
		"-safe", "0",
		"-y",
		"-i", listFile,
		"-c", codec,
		out,
	)
}

// Segment cuts [start, end) of source into fixed-length Opus WebM segments
// named by pattern.
func (t *Tools) Segment(ctx context.Context, source string, start, end float64, segmentSeconds int, pattern string) error {
	return t.FFmpeg(ctx,
		"-loglevel", "error",
		"-y",
		"-ss", formatSeconds(start),
		"-to", formatSeconds(end),
		"-i", source,
		"-acodec", "libopus",
		"-f", "segment",
		"-segment_time", strconv.Itoa(segmentSeconds),
		pattern,
	)
}

func formatSeconds(s float64) string {
	return strconv.FormatFloat(s, 'f', 3, 64)
}
