package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"leetcode-video-pipeline/01_content"
	"leetcode-video-pipeline/02_render"
	"leetcode-video-pipeline/03_audio"
	"leetcode-video-pipeline/04_clips"
	"leetcode-video-pipeline/06_concat"
	"leetcode-video-pipeline/08_upload"
	"leetcode-video-pipeline/config"
	"leetcode-video-pipeline/driver"
	"leetcode-video-pipeline/ffmpeg"
	"leetcode-video-pipeline/ledger"
	"leetcode-video-pipeline/metrics"
)

type runOptions struct {
	topicsPath  string
	outDir      string
	concurrency int
	delaySec    float64
	upload      bool
	verbose     bool
}

func newRootCommand() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "leetvid",
		Short:         "Turn coding-interview problems into narrated tutorial videos",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Configuration file path")

	root.AddCommand(newRunCommand(&configPath))
	root.AddCommand(newHistoryCommand(&configPath))
	return root
}

func loadConfig(path string) (*config.Config, error) {
	cfg, err := config.Load(path, true)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.LoadCredentials()
	return cfg, nil
}

func newRunCommand(configPath *string) *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Produce a video for every topic in the topics file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			if flags.Changed("out") {
				cfg.Paths.Output = opts.outDir
			}
			if flags.Changed("concurrency") {
				cfg.Batch.Concurrency = opts.concurrency
			}
			if flags.Changed("delay") {
				cfg.Pipeline.InterTopicDelaySec = opts.delaySec
			}
			if flags.Changed("upload") {
				cfg.Upload.Enabled = opts.upload
			}
			return runPipeline(cmd.Context(), cfg, opts)
		},
	}
	cmd.Flags().StringVarP(&opts.topicsPath, "topics", "t", "topics.yaml", "YAML list of topics to produce")
	cmd.Flags().StringVarP(&opts.outDir, "out", "o", "", "Output directory (overrides paths.output)")
	cmd.Flags().IntVar(&opts.concurrency, "concurrency", 0, "Scenes processed at once (overrides batch.concurrency)")
	cmd.Flags().Float64Var(&opts.delaySec, "delay", 0, "Seconds to wait between topics")
	cmd.Flags().BoolVar(&opts.upload, "upload", false, "Upload finished videos to YouTube")
	cmd.Flags().BoolVarP(&opts.verbose, "verbose", "v", false, "Show ffmpeg output")
	return cmd
}

func runPipeline(ctx context.Context, cfg *config.Config, opts runOptions) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	topics, err := config.LoadTopics(opts.topicsPath)
	if err != nil {
		return fmt.Errorf("load topics: %w", err)
	}
	if len(topics) == 0 {
		return errors.New("no topics to process")
	}
	if err := os.MkdirAll(cfg.Paths.Output, 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	lock := flock.New(filepath.Join(cfg.Paths.Output, ".leetvid.lock"))
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("another run is already writing to %s", cfg.Paths.Output)
	}
	defer func() { _ = lock.Unlock() }()

	runner := &ffmpeg.Exec{Verbose: opts.verbose}
	if err := runner.Available(ctx); err != nil {
		return err
	}

	deps, cleanup, err := buildDeps(cfg, runner)
	if err != nil {
		return err
	}
	defer cleanup()

	log.Printf("🎬 LeetCode video pipeline, run %s", deps.RunID)
	log.Printf("📁 Output dir: %s", cfg.Paths.Output)
	started := time.Now()

	results, err := driver.New(cfg, deps).Run(ctx, topics)
	if werr := deps.Metrics.WriteFile(cfg.Paths.Metrics); werr != nil {
		log.Printf("Warning: %v", werr)
	}
	printSummary(os.Stdout, results, time.Since(started))
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		if !r.Success {
			failed++
		}
	}
	if failed == len(results) {
		return fmt.Errorf("all %d topic(s) failed", failed)
	}
	return nil
}

// buildDeps wires the production stages. cleanup closes the ledger.
func buildDeps(cfg *config.Config, runner ffmpeg.Runner) (driver.Deps, func(), error) {
	client, err := content.NewClient(content.ClientConfig{
		APIKey:          cfg.Credentials.GeminiAPIKey,
		BaseURL:         cfg.Gemini.BaseURL,
		Model:           cfg.Gemini.Model,
		Temperature:     cfg.Gemini.Temperature,
		TopK:            cfg.Gemini.TopK,
		TopP:            cfg.Gemini.TopP,
		MaxOutputTokens: cfg.Gemini.MaxOutputTokens,
		Timeout:         time.Duration(cfg.Gemini.TimeoutSec) * time.Second,
	})
	if err != nil {
		return driver.Deps{}, nil, err
	}
	gen := content.NewGenerator(client, content.Rules{
		MinScenes:       cfg.Pipeline.MinScenes,
		MinSceneSec:     cfg.Video.MinSceneSec,
		DefaultSceneSec: cfg.Video.DefaultSceneSec,
	}, cfg.Video.Width, cfg.Video.Height, cfg.Thumbnail.Width, cfg.Thumbnail.Height)

	renderOpts := render.Options{
		Width:      cfg.Video.Width,
		Height:     cfg.Video.Height,
		Timeout:    cfg.RenderTimeout(),
		Settle:     time.Duration(cfg.Render.SettleMS) * time.Millisecond,
		ChromePath: cfg.Render.ChromePath,
		TempDir:    cfg.Paths.Temp,
	}

	deps := driver.Deps{
		Provider: gen,
		Designer: gen,
		OpenSession: func(ctx context.Context) (driver.Session, error) {
			s, err := render.Open(ctx, renderOpts)
			if err != nil {
				return nil, err
			}
			return s, nil
		},
		Synthesizer: audio.New(audio.ResolveTTS(cfg.Audio.TTSCommand, cfg.Audio.Voice), runner, cfg.Audio.WordsPerMinute, cfg.Audio.SampleRate),
		Assembler: clips.New(runner, clips.Profile{
			Width:       cfg.Video.Width,
			Height:      cfg.Video.Height,
			FPS:         cfg.Video.FPS,
			ZoomEnabled: cfg.Video.ZoomEnabled,
			ZoomMax:     cfg.Video.ZoomMax,
			Preset:      cfg.Video.Preset,
			CRF:         cfg.Video.CRF,
			SampleRate:  cfg.Audio.SampleRate,
		}),
		Concatenator: concat.New(runner),
		Metrics:      metrics.New(),
		RunID:        uuid.NewString()[:8],
	}

	if cfg.Upload.Enabled {
		up, err := upload.New(cfg.Upload, cfg.Credentials)
		if err != nil {
			return driver.Deps{}, nil, err
		}
		deps.Publisher = up
	}

	cleanup := func() {}
	if cfg.Paths.Ledger != "" {
		l, err := ledger.Open(cfg.Paths.Ledger)
		if err != nil {
			log.Printf("⚠️  Ledger unavailable, history will not be recorded: %v", err)
		} else {
			deps.Ledger = l
			cleanup = func() { _ = l.Close() }
		}
	}
	return deps, cleanup, nil
}

func newHistoryCommand(configPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded topic runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if cfg.Paths.Ledger == "" {
				return errors.New("paths.ledger is not set")
			}
			l, err := ledger.Open(cfg.Paths.Ledger)
			if err != nil {
				return err
			}
			defer l.Close()

			entries, err := l.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printHistory(cmd.OutOrStdout(), entries)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show (0 for all)")
	return cmd
}
