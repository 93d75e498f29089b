// Package config loads Ares configuration from command-line flags, environment variables and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App      AppConfig
	Logger   LoggerConfig
	Server   ServerConfig
	IGDB     IGDBConfig
	YouTube  YouTubeConfig
	Tools    ToolsConfig
	Pipeline PipelineConfig
	Cache    CacheConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
	// DataDir is the root of every path the pipeline writes.
	DataDir string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string
	Port         string
	PublicURL    string // base URL baked into generated manifests
	// WizardRPS bounds wizard starts per client IP; zero disables the limit.
	WizardRPS    float64
	WizardBurst  int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// IGDBConfig holds Twitch/IGDB API credentials.
type IGDBConfig struct {
	ClientID     string
	ClientSecret string
}

// YouTubeConfig controls the scraping client.
type YouTubeConfig struct {
	Timeout time.Duration
	// RequestsPerSecond is the per-host request budget.
	RequestsPerSecond float64
}

// ToolsConfig overrides auto-detection of external binaries.
type ToolsConfig struct {
	FFmpeg  string
	FFprobe string
	YtDlp   string
}

// PipelineConfig holds concurrency and retry bounds of the pipeline stages.
type PipelineConfig struct {
	DownloadConcurrency int
	DownloadRetries     int
	SingleRetries       int
	CPUWorkers          int
	DebugPlots          bool
}

// CacheConfig holds the optional shared cache.
type CacheConfig struct {
	RedisURL string
	TTL      time.Duration
}

// Paths derived from App.DataDir.

// AudioDir is where full-length downloads land.
func (c *Config) AudioDir() string { return filepath.Join(c.App.DataDir, "audio", "tmp") }

// ChaptersDir holds chapters files keyed by media ID.
func (c *Config) ChaptersDir() string { return filepath.Join(c.App.DataDir, "chapters") }

// MediaDir holds segmented tracks and manifests.
func (c *Config) MediaDir() string { return filepath.Join(c.App.DataDir, "media") }

// ReportsDir holds batch wizard reports.
func (c *Config) ReportsDir() string { return filepath.Join(c.App.DataDir, "reports", "wizard") }

// ImagesDir holds the image cache database.
func (c *Config) ImagesDir() string { return filepath.Join(c.App.DataDir, "images") }

// SearchDir holds the catalog search index.
func (c *Config) SearchDir() string { return filepath.Join(c.App.DataDir, "search") }

// DatabasePath is the catalog SQLite file.
func (c *Config) DatabasePath() string { return filepath.Join(c.App.DataDir, "ares.db") }

// LoadConfig loads configuration using the process flag set and arguments.
func LoadConfig() (*Config, error) {
	return Load(flag.CommandLine, os.Args[1:])
}

// Load registers the configuration flags on fs, parses args and resolves values with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
//
// Callers may register their own flags on fs before calling Load.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	dataDir := fs.String("data-dir", "", "Root directory for audio, chapters, media and reports")
	envFile := fs.String("env-file", ".env", "Path to .env file")

	host := fs.String("host", "", "Server host (default: 0.0.0.0)")
	port := fs.String("port", "", "Server port (default: 8080)")
	publicURL := fs.String("public-url", "", "Public base URL used in manifests")

	ffmpegPath := fs.String("ffmpeg-path", "", "Path to ffmpeg binary (default: auto-detect)")
	ffprobePath := fs.String("ffprobe-path", "", "Path to ffprobe binary (default: auto-detect)")
	ytdlpPath := fs.String("ytdlp-path", "", "Path to yt-dlp binary (default: auto-detect)")

	downloadConcurrency := fs.String("download-concurrency", "", "Concurrent playlist downloads (default: 8)")
	cpuWorkers := fs.String("cpu-workers", "", "Workers for alignment and segmentation (default: NumCPU/2)")
	debugPlots := fs.String("debug-plots", "", "Render alignment plots (default: false)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	_ = loadEnvFile(*envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
			DataDir:     getConfigValue(*dataDir, "ARES_DATA_DIR", ""),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Server: ServerConfig{
			Host:        getConfigValue(*host, "SERVER_HOST", "0.0.0.0"),
			Port:        getConfigValue(*port, "SERVER_PORT", "8080"),
			PublicURL:   strings.TrimRight(getConfigValue(*publicURL, "PUBLIC_URL", "http://localhost:8080"), "/"),
			WizardRPS:   getFloatConfigValue("", "WIZARD_RPS", 0.2),
			WizardBurst: getIntConfigValue("", "WIZARD_BURST", 3),
		},
		IGDB: IGDBConfig{
			ClientID:     getConfigValue("", "IGDB_CLIENT_ID", ""),
			ClientSecret: getConfigValue("", "IGDB_CLIENT_SECRET", ""),
		},
		YouTube: YouTubeConfig{
			RequestsPerSecond: getFloatConfigValue("", "YOUTUBE_RPS", 5),
		},
		Tools: ToolsConfig{
			FFmpeg:  getConfigValue(*ffmpegPath, "FFMPEG_PATH", ""),
			FFprobe: getConfigValue(*ffprobePath, "FFPROBE_PATH", ""),
			YtDlp:   getConfigValue(*ytdlpPath, "YTDLP_PATH", ""),
		},
		Pipeline: PipelineConfig{
			DownloadConcurrency: getIntConfigValue(*downloadConcurrency, "DOWNLOAD_CONCURRENCY", 8),
			DownloadRetries:     getIntConfigValue("", "DOWNLOAD_RETRIES", 3),
			SingleRetries:       getIntConfigValue("", "SINGLE_DOWNLOAD_RETRIES", 5),
			CPUWorkers:          getIntConfigValue(*cpuWorkers, "CPU_WORKERS", max(1, runtime.NumCPU()/2)),
			DebugPlots:          getBoolConfigValue(*debugPlots, "ALIGN_DEBUG_PLOTS", false),
		},
		Cache: CacheConfig{
			RedisURL: getConfigValue("", "REDIS_URL", ""),
		},
	}

	durations := []struct {
		dst      *time.Duration
		envKey   string
		fallback string
	}{
		{&cfg.Server.ReadTimeout, "SERVER_READ_TIMEOUT", "15s"},
		{&cfg.Server.WriteTimeout, "SERVER_WRITE_TIMEOUT", "30s"},
		{&cfg.Server.IdleTimeout, "SERVER_IDLE_TIMEOUT", "60s"},
		{&cfg.YouTube.Timeout, "YOUTUBE_TIMEOUT", "15s"},
		{&cfg.Cache.TTL, "CACHE_TTL", "24h"},
	}
	for _, d := range durations {
		raw := getConfigValue("", d.envKey, d.fallback)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.envKey, raw, err)
		}
		*d.dst = parsed
	}

	if err := cfg.expandDataDir(); err != nil {
		return nil, fmt.Errorf("invalid data dir: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.App.DataDir == "" {
		return errors.New("data dir cannot be empty after expansion")
	}

	if c.Pipeline.DownloadConcurrency < 1 {
		return fmt.Errorf("download concurrency must be positive, got %d", c.Pipeline.DownloadConcurrency)
	}
	if c.Pipeline.CPUWorkers < 1 {
		return fmt.Errorf("cpu workers must be positive, got %d", c.Pipeline.CPUWorkers)
	}
	if c.Server.WizardRPS < 0 || c.Server.WizardBurst < 1 {
		return errors.New("wizard rate limit must be non-negative with a positive burst")
	}
	if c.Pipeline.DownloadRetries < 1 || c.Pipeline.SingleRetries < 1 {
		return errors.New("download retries must be positive")
	}

	return nil
}

// RequireIGDB reports an error when IGDB credentials are missing.
// Only the components that talk to IGDB need them.
func (c *Config) RequireIGDB() error {
	if c.IGDB.ClientID == "" || c.IGDB.ClientSecret == "" {
		return errors.New("IGDB_CLIENT_ID and IGDB_CLIENT_SECRET are required")
	}
	return nil
}

// EnsureDirs creates every derived directory.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.AudioDir(), c.ChaptersDir(), c.MediaDir(), c.ReportsDir(), c.ImagesDir(), c.SearchDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

func (c *Config) expandDataDir() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	expanded, err := expandPath(c.App.DataDir, filepath.Join(homeDir, ".ares"))
	if err != nil {
		return err
	}
	c.App.DataDir = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result float64
	if _, err := fmt.Sscanf(strValue, "%g", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Env vars take precedence over .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
