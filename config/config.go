package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"leetcode-video-pipeline/types"
)

// MaxConcurrency caps in-flight scenes per topic (one browser tab + one
// encoder process each)
const MaxConcurrency = 4

// MinScenesFloor is the fewest scenes a script may have; config can only raise it
const MinScenesFloor = 6

type Config struct {
	Gemini    GeminiConfig    `yaml:"gemini"`
	Video     VideoConfig     `yaml:"video"`
	Audio     AudioConfig     `yaml:"audio"`
	Render    RenderConfig    `yaml:"render"`
	Batch     BatchConfig     `yaml:"batch"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Thumbnail ThumbnailConfig `yaml:"thumbnail"`
	Upload    UploadConfig    `yaml:"upload"`
	Paths     PathsConfig     `yaml:"paths"`

	// Credentials are read from the environment only, never from YAML.
	Credentials Credentials `yaml:"-"`
}

type GeminiConfig struct {
	Model           string  `yaml:"model"`
	BaseURL         string  `yaml:"base_url"`
	Temperature     float64 `yaml:"temperature"`
	TopK            int     `yaml:"top_k"`
	TopP            float64 `yaml:"top_p"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
	TimeoutSec      int     `yaml:"timeout_sec"`
}

type VideoConfig struct {
	Width           int     `yaml:"width"`
	Height          int     `yaml:"height"`
	FPS             int     `yaml:"fps"`
	MinSceneSec     float64 `yaml:"min_scene_sec"`
	DefaultSceneSec float64 `yaml:"default_scene_sec"`
	ZoomEnabled     bool    `yaml:"zoom_enabled"`
	ZoomMax         float64 `yaml:"zoom_max"`
	Preset          string  `yaml:"preset"`
	CRF             int     `yaml:"crf"`
}

type AudioConfig struct {
	TTSCommand     string `yaml:"tts_command"`
	Voice          string `yaml:"voice"`
	SampleRate     int    `yaml:"sample_rate"`
	WordsPerMinute int    `yaml:"words_per_minute"`
}

type RenderConfig struct {
	TimeoutSec int    `yaml:"timeout_sec"`
	SettleMS   int    `yaml:"settle_ms"`
	ChromePath string `yaml:"chrome_path"`
}

type BatchConfig struct {
	Concurrency int `yaml:"concurrency"`
}

type PipelineConfig struct {
	InterTopicDelaySec float64 `yaml:"inter_topic_delay_sec"`
	MinScenes          int     `yaml:"min_scenes"`
	SkipCompleted      bool    `yaml:"skip_completed"`
}

type ThumbnailConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type UploadConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Visibility        string `yaml:"visibility"`
	CategoryID        string `yaml:"category_id"`
	DefaultLanguage   string `yaml:"default_language"`
	MadeForKids       bool   `yaml:"made_for_kids"`
	NotifySubscribers bool   `yaml:"notify_subscribers"`
}

type PathsConfig struct {
	Output  string `yaml:"output"`
	Ledger  string `yaml:"ledger"`
	Metrics string `yaml:"metrics"`
	Temp    string `yaml:"temp"`
}

// Credentials holds secrets taken from the environment
type Credentials struct {
	GeminiAPIKey        string
	YouTubeClientID     string
	YouTubeClientSecret string
	YouTubeRefreshToken string
}

// Default returns the settings used when config.yaml omits a value
func Default() Config {
	return Config{
		Gemini: GeminiConfig{
			Model:           "gemini-1.5-flash-latest",
			BaseURL:         "https://generativelanguage.googleapis.com/v1beta/models",
			Temperature:     0.8,
			TopK:            40,
			TopP:            0.9,
			MaxOutputTokens: 8192,
			TimeoutSec:      120,
		},
		Video: VideoConfig{
			Width:           1920,
			Height:          1080,
			FPS:             30,
			MinSceneSec:     5,
			DefaultSceneSec: 15,
			ZoomEnabled:     true,
			ZoomMax:         1.2,
			Preset:          "fast",
			CRF:             23,
		},
		Audio: AudioConfig{
			Voice:          "en-US-GuyNeural",
			SampleRate:     44100,
			WordsPerMinute: 150,
		},
		Render: RenderConfig{
			TimeoutSec: 45,
			SettleMS:   3000,
		},
		Batch: BatchConfig{
			Concurrency: 2,
		},
		Pipeline: PipelineConfig{
			InterTopicDelaySec: 3,
			MinScenes:          6,
		},
		Thumbnail: ThumbnailConfig{
			Width:  1280,
			Height: 720,
		},
		Upload: UploadConfig{
			Visibility:      "private",
			CategoryID:      "27", // Education
			DefaultLanguage: "en",
		},
		Paths: PathsConfig{
			Output:  "generated_problems",
			Ledger:  "generated_problems/ledger.db",
			Metrics: "generated_problems/metrics.prom",
		},
	}
}

// Load reads config.yaml over the defaults. A missing file at path yields the
// defaults when allowMissing is set.
func Load(path string, allowMissing bool) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if allowMissing && errors.Is(err, os.ErrNotExist) {
			return &cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadCredentials fills Credentials from the environment
func (c *Config) LoadCredentials() {
	c.Credentials = Credentials{
		GeminiAPIKey:        strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		YouTubeClientID:     strings.TrimSpace(os.Getenv("YOUTUBE_CLIENT_ID")),
		YouTubeClientSecret: strings.TrimSpace(os.Getenv("YOUTUBE_CLIENT_SECRET")),
		YouTubeRefreshToken: strings.TrimSpace(os.Getenv("YOUTUBE_REFRESH_TOKEN")),
	}
}

// CheckCredentials reports the credentials the run cannot start without
func (c *Config) CheckCredentials() error {
	var missing []string
	if c.Credentials.GeminiAPIKey == "" {
		missing = append(missing, "GEMINI_API_KEY")
	}
	if c.Upload.Enabled {
		if c.Credentials.YouTubeClientID == "" {
			missing = append(missing, "YOUTUBE_CLIENT_ID")
		}
		if c.Credentials.YouTubeClientSecret == "" {
			missing = append(missing, "YOUTUBE_CLIENT_SECRET")
		}
		if c.Credentials.YouTubeRefreshToken == "" {
			missing = append(missing, "YOUTUBE_REFRESH_TOKEN")
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s not set", types.ErrMissingCredential, strings.Join(missing, ", "))
	}
	return nil
}

// Validate checks credentials first, then value ranges
func (c *Config) Validate() error {
	if err := c.CheckCredentials(); err != nil {
		return err
	}
	var errs []error
	if c.Video.Width <= 0 || c.Video.Height <= 0 {
		errs = append(errs, fmt.Errorf("video resolution must be positive, got %dx%d", c.Video.Width, c.Video.Height))
	}
	if c.Video.FPS <= 0 {
		errs = append(errs, fmt.Errorf("video fps must be positive, got %d", c.Video.FPS))
	}
	if c.Video.MinSceneSec <= 0 {
		errs = append(errs, fmt.Errorf("video min_scene_sec must be positive, got %g", c.Video.MinSceneSec))
	}
	if c.Video.ZoomEnabled && c.Video.ZoomMax < 1 {
		errs = append(errs, fmt.Errorf("video zoom_max must be >= 1, got %g", c.Video.ZoomMax))
	}
	if c.Batch.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("batch concurrency must be >= 1, got %d", c.Batch.Concurrency))
	}
	if c.Pipeline.MinScenes < MinScenesFloor {
		errs = append(errs, fmt.Errorf("pipeline min_scenes must be >= %d, got %d", MinScenesFloor, c.Pipeline.MinScenes))
	}
	if c.Pipeline.InterTopicDelaySec < 0 {
		errs = append(errs, fmt.Errorf("pipeline inter_topic_delay_sec must be >= 0, got %g", c.Pipeline.InterTopicDelaySec))
	}
	if c.Render.TimeoutSec <= 0 {
		errs = append(errs, fmt.Errorf("render timeout_sec must be positive, got %d", c.Render.TimeoutSec))
	}
	if c.Thumbnail.Width <= 0 || c.Thumbnail.Height <= 0 {
		errs = append(errs, fmt.Errorf("thumbnail size must be positive, got %dx%d", c.Thumbnail.Width, c.Thumbnail.Height))
	}
	if c.Paths.Output == "" {
		errs = append(errs, errors.New("paths output must be set"))
	}
	return errors.Join(errs...)
}

// Concurrency returns the scene worker limit bounded by CPU count and MaxConcurrency
func (c *Config) Concurrency() int {
	return ClampConcurrency(c.Batch.Concurrency, runtime.NumCPU())
}

// ClampConcurrency bounds a requested limit to [1, min(cpus, MaxConcurrency)]
func ClampConcurrency(requested, cpus int) int {
	limit := requested
	if cpus > 0 && limit > cpus {
		limit = cpus
	}
	if limit > MaxConcurrency {
		limit = MaxConcurrency
	}
	if limit < 1 {
		limit = 1
	}
	return limit
}

// InterTopicDelay is the pause between topics
func (c *Config) InterTopicDelay() time.Duration {
	return time.Duration(c.Pipeline.InterTopicDelaySec * float64(time.Second))
}

// RenderTimeout bounds one page load + screenshot
func (c *Config) RenderTimeout() time.Duration {
	return time.Duration(c.Render.TimeoutSec) * time.Second
}

// LoadTopics reads a YAML (or JSON) list of topics
func LoadTopics(path string) ([]types.Topic, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var topics []types.Topic
	if err := yaml.Unmarshal(data, &topics); err != nil {
		return nil, fmt.Errorf("parse topics %s: %w", path, err)
	}
	for i, t := range topics {
		if strings.TrimSpace(t.Title) == "" {
			return nil, fmt.Errorf("topic %d has no title", i+1)
		}
	}
	return topics, nil
}
