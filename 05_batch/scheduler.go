// Package batch runs the scenes of one topic through render, narration and
// clip assembly with bounded concurrency, and returns the clips in scene
// order together with every scene that failed.
package batch

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"time"

	"leetcode-video-pipeline/metrics"
	"leetcode-video-pipeline/pool"
	"leetcode-video-pipeline/scratch"
	"leetcode-video-pipeline/types"
)

// Renderer captures scene markup as a still image
type Renderer interface {
	Render(ctx context.Context, markup, outPath string) error
}

// Synthesizer writes narration of at least minDuration seconds and returns its length
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, minDuration float64, outPath string) (float64, error)
}

// Assembler combines one still and one narration track into a clip
type Assembler interface {
	Assemble(ctx context.Context, imagePath, audioPath string, duration float64, outPath string) error
}

// Scheduler processes scenes in sequential batches of at most Limit
type Scheduler struct {
	Renderer         Renderer
	Synthesizer      Synthesizer
	Assembler        Assembler
	Limit            int
	MinSceneDuration float64
	Metrics          *metrics.Metrics
}

type sceneOutcome struct {
	done     bool
	artifact types.SceneArtifact
	failure  *types.SceneFailure
}

// Run processes pairs and writes the clips into workDir. unmatched failures
// are carried into the result without any work being done for them. When no
// scene yields a clip the result is returned with ErrNoArtifactsProduced.
func (s *Scheduler) Run(ctx context.Context, pairs []types.ScenePair, unmatched []types.SceneFailure, workDir string) (*types.BatchResult, error) {
	if s.Renderer == nil || s.Synthesizer == nil || s.Assembler == nil {
		return nil, errors.New("scheduler: renderer, synthesizer and assembler are required")
	}
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return nil, fmt.Errorf("create scene dir: %w", err)
	}

	for _, f := range unmatched {
		log.Printf("[batch] ⚠️ Scene %d skipped: %v", f.SceneID, f.Err)
		s.Metrics.SceneSkipped(f.Reason())
	}

	p := pool.New(s.Limit)
	total := pool.Batches(len(pairs), p.Limit())
	p.OnBatch = func(batch, size int) {
		log.Printf("[batch] Batch %d/%d: %d scene(s)", batch+1, total, size)
		s.Metrics.BatchStarted()
	}

	log.Printf("[batch] Processing %d scene(s), %d at a time...", len(pairs), p.Limit())
	outcomes := make([]sceneOutcome, len(pairs))
	batches := p.Run(ctx, len(pairs), func(ctx context.Context, i int) {
		outcomes[i] = s.processScene(ctx, pairs[i], workDir)
	})

	result := &types.BatchResult{Batches: batches}
	result.Failures = append(result.Failures, unmatched...)
	for i, o := range outcomes {
		switch {
		case !o.done:
			result.Failures = append(result.Failures, types.SceneFailure{
				SceneID: pairs[i].Plan.SceneID,
				Err:     fmt.Errorf("%w: not attempted: %w", types.ErrSceneRenderFailed, context.Cause(ctx)),
			})
		case o.failure != nil:
			result.Failures = append(result.Failures, *o.failure)
		default:
			result.Clips = append(result.Clips, o.artifact)
		}
	}
	sort.Slice(result.Clips, func(i, j int) bool { return result.Clips[i].SceneID < result.Clips[j].SceneID })
	sortFailures(result.Failures)

	if err := ctx.Err(); err != nil {
		return result, err
	}
	if len(result.Clips) == 0 {
		return result, fmt.Errorf("%w: all %d scene(s) failed", types.ErrNoArtifactsProduced, len(result.Failures))
	}
	log.Printf("[batch] ✅ %d/%d scene(s) produced clips in %d batch(es)", len(result.Clips), len(result.Clips)+len(result.Failures), batches)
	return result, nil
}

// processScene is the single-attempt unit of work for one scene. The still
// and the narration are released on every path; only the clip survives.
func (s *Scheduler) processScene(ctx context.Context, pair types.ScenePair, workDir string) (out sceneOutcome) {
	id := pair.Plan.SceneID
	start := time.Now()
	s.Metrics.SceneStarted()

	var scope scratch.Scope
	defer func() {
		if err := scope.Release(); err != nil {
			log.Printf("[batch] Warning: scene %d cleanup: %v", id, err)
		}
		reason := "success"
		if out.failure != nil {
			reason = out.failure.Reason()
		}
		s.Metrics.SceneFinished(reason, time.Since(start).Seconds())
	}()

	fail := func(kind error, err error) sceneOutcome {
		f := types.SceneFailure{SceneID: id, Err: fmt.Errorf("%w: %w", kind, err)}
		log.Printf("[batch] ❌ Scene %d failed: %v", id, f.Err)
		return sceneOutcome{done: true, failure: &f}
	}

	image := scope.Track(filepath.Join(workDir, fmt.Sprintf("scene_%d.png", id)))
	if err := s.Renderer.Render(ctx, pair.Visual.HTML, image); err != nil {
		return fail(types.ErrSceneRenderFailed, err)
	}

	narration := scope.Track(filepath.Join(workDir, fmt.Sprintf("scene_%d.wav", id)))
	floor := max(s.MinSceneDuration, pair.Plan.DurationSec)
	duration, err := s.Synthesizer.Synthesize(ctx, pair.Plan.Script, floor, narration)
	if err != nil {
		return fail(types.ErrSceneAudioFailed, err)
	}
	if duration <= 0 {
		return fail(types.ErrSceneAudioFailed, fmt.Errorf("narration has no duration"))
	}

	clip := filepath.Join(workDir, fmt.Sprintf("scene_%d.mp4", id))
	if err := s.Assembler.Assemble(ctx, image, narration, duration, clip); err != nil {
		os.Remove(clip)
		return fail(types.ErrSceneAssemblyFailed, err)
	}

	log.Printf("[batch] ✅ Scene %d completed (%.1fs)", id, duration)
	return sceneOutcome{done: true, artifact: types.SceneArtifact{
		SceneID:     id,
		Title:       pair.Plan.Title,
		ClipPath:    clip,
		DurationSec: duration,
	}}
}
