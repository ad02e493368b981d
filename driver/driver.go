// Package driver runs the whole pipeline over a list of topics, one topic at
// a time. A failing topic is recorded and the run moves on; only a missing
// credential stops the run, and it does so before any topic starts.
package driver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"leetcode-video-pipeline/05_batch"
	"leetcode-video-pipeline/06_concat"
	"leetcode-video-pipeline/07_thumbnail"
	"leetcode-video-pipeline/config"
	"leetcode-video-pipeline/metrics"
	"leetcode-video-pipeline/scratch"
	"leetcode-video-pipeline/types"
)

// Provider produces the script and the scene markup of a topic
type Provider interface {
	GenerateScript(ctx context.Context, topic types.Topic) (*types.Script, error)
	GenerateVisuals(ctx context.Context, script *types.Script) (*types.VisualSet, error)
}

// Session is an open browser: scenes and thumbnails render through it
type Session interface {
	batch.Renderer
	thumbnail.DocumentRenderer
	Close() error
}

// SessionOpener starts one browser session for a topic
type SessionOpener func(ctx context.Context) (Session, error)

// Joiner concatenates clips into the final video
type Joiner interface {
	Join(ctx context.Context, clips []string, outPath string) (concat.Result, error)
}

// Publisher uploads a finished video and returns its URL
type Publisher interface {
	Publish(ctx context.Context, videoPath, thumbPath string, script *types.Script, clips []types.SceneArtifact) (string, error)
}

// Ledger remembers topic outcomes across runs
type Ledger interface {
	Record(ctx context.Context, runID string, r types.PipelineResult) error
	Completed(ctx context.Context, topic string) (bool, error)
}

// Deps are the collaborators of a run. Designer, Publisher, Ledger and
// Metrics are optional.
type Deps struct {
	Provider     Provider
	Designer     thumbnail.Designer
	OpenSession  SessionOpener
	Synthesizer  batch.Synthesizer
	Assembler    batch.Assembler
	Concatenator Joiner
	Publisher    Publisher
	Ledger       Ledger
	Metrics      *metrics.Metrics
	RunID        string

	// Wait pauses between topics. Default: a timer that ends early on ctx.
	Wait func(ctx context.Context, d time.Duration) error
}

// Driver sequences topics through the pipeline
type Driver struct {
	cfg   *config.Config
	deps  Deps
	limit func() int        // scene concurrency, cfg.Concurrency by default
	dirs  map[string]string // directory name -> topic title, per run
}

// New returns a Driver. The config is used as given; credentials are
// checked when Run starts.
func New(cfg *config.Config, deps Deps) *Driver {
	if deps.Wait == nil {
		deps.Wait = sleepContext
	}
	return &Driver{cfg: cfg, deps: deps, limit: cfg.Concurrency}
}

// Run processes topics in order and returns one result per attempted topic.
// A missing credential returns ErrMissingCredential and no results. A
// cancelled ctx stops the run between topics and returns ctx.Err() with the
// results so far.
func (d *Driver) Run(ctx context.Context, topics []types.Topic) ([]types.PipelineResult, error) {
	if err := d.cfg.CheckCredentials(); err != nil {
		return nil, err
	}
	if d.deps.Provider == nil || d.deps.OpenSession == nil || d.deps.Synthesizer == nil || d.deps.Assembler == nil || d.deps.Concatenator == nil {
		return nil, fmt.Errorf("driver: provider, session, synthesizer, assembler and concatenator are required")
	}
	if err := os.MkdirAll(d.cfg.Paths.Output, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	log.Printf("🎬 Pipeline starting: %d topic(s), run %s", len(topics), d.deps.RunID)
	results := make([]types.PipelineResult, 0, len(topics))
	d.dirs = make(map[string]string, len(topics))
	resultsPath := filepath.Join(d.cfg.Paths.Output, "pipeline_results.json")
	delay := d.cfg.InterTopicDelay()

	for i, topic := range topics {
		if i > 0 && delay > 0 {
			log.Printf("⏳ Waiting %s before next topic...", delay)
			if err := d.deps.Wait(ctx, delay); err != nil {
				break
			}
		}
		if ctx.Err() != nil {
			break
		}

		log.Printf("\n━━━ Topic %d/%d: %s ━━━", i+1, len(topics), topic.Title)
		results = append(results, d.runTopic(ctx, topic))
		saveJSON(resultsPath, results)
	}

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

func (d *Driver) runTopic(ctx context.Context, topic types.Topic) (res types.PipelineResult) {
	res.Topic = topic.Title
	res.StartedAt = time.Now().UTC().Format(time.RFC3339)

	defer func() {
		res.CompletedAt = time.Now().UTC().Format(time.RFC3339)
		outcome := "failed"
		switch {
		case res.Skipped:
			outcome = "skipped"
		case res.Success:
			outcome = "success"
		}
		d.deps.Metrics.TopicFinished(outcome)
		if d.deps.Ledger != nil && !res.Skipped {
			if err := d.deps.Ledger.Record(context.WithoutCancel(ctx), d.deps.RunID, res); err != nil {
				log.Printf("Warning: could not record %q in ledger: %v", topic.Title, err)
			}
		}
	}()

	if d.cfg.Pipeline.SkipCompleted && d.deps.Ledger != nil {
		done, err := d.deps.Ledger.Completed(ctx, topic.Title)
		if err != nil {
			log.Printf("Warning: ledger lookup failed for %q: %v", topic.Title, err)
		} else if done {
			log.Printf("⏭️  %q already produced, skipping", topic.Title)
			res.Skipped = true
			res.Success = true
			return res
		}
	}

	res.OutputDir = d.topicDir(topic.Title)
	if err := d.produce(ctx, topic, &res); err != nil {
		res.Error = err.Error()
		log.Printf("❌ %s failed: %v", topic.Title, err)
		return res
	}
	res.Success = true
	log.Printf("✅ %s complete: %s", topic.Title, res.VideoPath)
	return res
}

// produce runs every stage for one topic, filling res as it goes
func (d *Driver) produce(ctx context.Context, topic types.Topic, res *types.PipelineResult) error {
	script, err := d.deps.Provider.GenerateScript(ctx, topic)
	if err != nil {
		return fmt.Errorf("script: %w", err)
	}
	visuals, err := d.deps.Provider.GenerateVisuals(ctx, script)
	if err != nil {
		return fmt.Errorf("visuals: %w", err)
	}
	res.Scenes = len(script.Scenes)

	if err := os.MkdirAll(res.OutputDir, 0755); err != nil {
		return fmt.Errorf("create topic dir: %w", err)
	}
	saveJSON(filepath.Join(res.OutputDir, "script.json"), script)
	saveJSON(filepath.Join(res.OutputDir, "video_code.json"), visuals)

	pairs, unmatched := batch.Pair(script, visuals)

	work, err := scratch.New(d.cfg.Paths.Temp, "scenes-*")
	if err != nil {
		return err
	}
	defer work.Close()

	session, err := d.deps.OpenSession(ctx)
	if err != nil {
		return fmt.Errorf("open renderer: %w", err)
	}
	defer session.Close()

	sched := &batch.Scheduler{
		Renderer:         session,
		Synthesizer:      d.deps.Synthesizer,
		Assembler:        d.deps.Assembler,
		Limit:            d.limit(),
		MinSceneDuration: d.cfg.Video.MinSceneSec,
		Metrics:          d.deps.Metrics,
	}
	br, err := sched.Run(ctx, pairs, unmatched, work.Path())
	if br != nil {
		res.Batches = br.Batches
		res.FailedScenes = br.FailedIDs()
		res.SceneFailures = br.Failures
	}
	if err != nil {
		return fmt.Errorf("scenes: %w", err)
	}

	contentDir := filepath.Join(res.OutputDir, "content")
	joined, err := d.deps.Concatenator.Join(ctx, br.ClipPaths(), filepath.Join(contentDir, "final_video.mp4"))
	if err != nil {
		return fmt.Errorf("concatenate: %w", err)
	}
	res.VideoPath = joined.Output
	res.Clips = len(joined.Included)

	maker := thumbnail.New(d.deps.Designer, session, d.cfg.Thumbnail.Width, d.cfg.Thumbnail.Height)
	thumb, err := maker.Make(ctx, script, contentDir)
	if err != nil {
		return fmt.Errorf("thumbnail: %w", err)
	}
	res.ThumbnailPath = thumb

	if d.deps.Publisher != nil {
		url, err := d.deps.Publisher.Publish(ctx, res.VideoPath, res.ThumbnailPath, script, includedClips(br.Clips, joined))
		if err != nil {
			log.Printf("⚠️  Upload failed for %s: %v", topic.Title, err)
			res.UploadError = err.Error()
		} else {
			res.VideoURL = url
		}
	}
	return nil
}

// topicDir returns the output directory for title. Distinct titles of one run
// that sanitize to the same name get a numeric suffix instead of sharing it.
func (d *Driver) topicDir(title string) string {
	base := SanitizeName(title)
	name := base
	for n := 2; ; n++ {
		owner, taken := d.dirs[name]
		if !taken || owner == title {
			break
		}
		name = fmt.Sprintf("%s_%d", base, n)
	}
	if name != base {
		log.Printf("⚠️  %q and %q both map to %q, writing %q instead", title, d.dirs[base], base, name)
	}
	d.dirs[name] = title
	return filepath.Join(d.cfg.Paths.Output, name)
}

// includedClips keeps the artifacts whose clip made it into the video
func includedClips(clips []types.SceneArtifact, joined concat.Result) []types.SceneArtifact {
	in := make(map[string]bool, len(joined.Included))
	for _, p := range joined.Included {
		in[p] = true
	}
	var out []types.SceneArtifact
	for _, c := range clips {
		if in[c.ClipPath] {
			out = append(out, c)
		}
	}
	return out
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func saveJSON(path string, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Printf("Warning: could not marshal JSON for %s: %v", path, err)
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Printf("Warning: could not save %s: %v", path, err)
	}
}
