package driver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"leetcode-video-pipeline/01_content"
	"leetcode-video-pipeline/03_audio"
	"leetcode-video-pipeline/06_concat"
	"leetcode-video-pipeline/config"
	"leetcode-video-pipeline/testsupport"
	"leetcode-video-pipeline/types"
)

type fakeProvider struct {
	scenes map[string]int
	fail   map[string]error
	calls  []string
}

func (p *fakeProvider) GenerateScript(ctx context.Context, topic types.Topic) (*types.Script, error) {
	p.calls = append(p.calls, topic.Title)
	if err := p.fail[topic.Title]; err != nil {
		return nil, err
	}
	n := p.scenes[topic.Title]
	if n == 0 {
		n = 6
	}
	s := &types.Script{Metadata: types.ScriptMetadata{Title: topic.Title, Difficulty: "Easy", Topic: "Array"}}
	for i := 1; i <= n; i++ {
		s.Scenes = append(s.Scenes, types.ScenePlan{SceneID: i, Title: fmt.Sprintf("Part %d", i), Script: "narration", DurationSec: 5})
	}
	return s, nil
}

func (p *fakeProvider) GenerateVisuals(ctx context.Context, script *types.Script) (*types.VisualSet, error) {
	v := &types.VisualSet{}
	for _, sc := range script.Scenes {
		v.Scenes = append(v.Scenes, types.SceneVisual{SceneID: sc.SceneID, HTML: fmt.Sprintf("<div>%d</div>", sc.SceneID)})
	}
	return v, nil
}

type fakeSession struct {
	mu       sync.Mutex
	closed   bool
	renders  int
	docFails bool
}

func (s *fakeSession) Render(ctx context.Context, markup, out string) error {
	s.mu.Lock()
	s.renders++
	s.mu.Unlock()
	return os.WriteFile(out, []byte("png"), 0o644)
}

func (s *fakeSession) RenderDocument(ctx context.Context, doc string, w, h int, out string) error {
	if s.docFails {
		return errors.New("tab crashed")
	}
	f, err := os.Create(out)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, image.NewRGBA(image.Rect(0, 0, w, h)))
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

type fakeSynth struct{}

func (fakeSynth) Synthesize(ctx context.Context, text string, minDuration float64, out string) (float64, error) {
	return minDuration, os.WriteFile(out, []byte("wav"), 0o644)
}

type fakeAssembler struct{}

func (fakeAssembler) Assemble(ctx context.Context, img, audio string, d float64, out string) error {
	return os.WriteFile(out, []byte("mp4"), 0o644)
}

type fakeLedger struct {
	done     map[string]bool
	recorded []types.PipelineResult
}

func (l *fakeLedger) Record(ctx context.Context, runID string, r types.PipelineResult) error {
	l.recorded = append(l.recorded, r)
	return nil
}

func (l *fakeLedger) Completed(ctx context.Context, topic string) (bool, error) {
	return l.done[topic], nil
}

type harness struct {
	provider *fakeProvider
	sessions []*fakeSession
	deps     Deps
}

func newHarness() *harness {
	h := &harness{provider: &fakeProvider{scenes: map[string]int{}, fail: map[string]error{}}}
	h.deps = Deps{
		Provider: h.provider,
		OpenSession: func(ctx context.Context) (Session, error) {
			s := &fakeSession{}
			h.sessions = append(h.sessions, s)
			return s, nil
		},
		Synthesizer:  fakeSynth{},
		Assembler:    fakeAssembler{},
		Concatenator: concat.New(&testsupport.FakeFFmpeg{}),
		RunID:        "run-test",
	}
	return h
}

func TestRunContinuesAfterTopicFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness()
	h.provider.fail["Broken"] = errors.New("gemini http 429: quota")
	h.provider.scenes["Two Sum"] = 8

	cfg.Batch.Concurrency = 2
	d := New(cfg, h.deps)
	d.limit = func() int { return config.ClampConcurrency(cfg.Batch.Concurrency, 8) }

	results, err := d.Run(context.Background(), []types.Topic{{Title: "Broken"}, {Title: "Two Sum"}})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	if results[0].Success || !strings.Contains(results[0].Error, "quota") {
		t.Errorf("first result = %+v", results[0])
	}

	ok := results[1]
	if !ok.Success || ok.Scenes != 8 || ok.Clips != 8 || len(ok.FailedScenes) != 0 {
		t.Fatalf("second result = %+v", ok)
	}
	if ok.Batches != 4 {
		t.Errorf("batches = %d, want 4 for 8 scenes at 2 per batch", ok.Batches)
	}
	dir := filepath.Join(cfg.Paths.Output, "two_sum")
	for _, name := range []string{"script.json", "video_code.json", "content/final_video.mp4", "content/thumbnail.html", "content/thumbnail.png"} {
		if !testsupport.Exists(filepath.Join(dir, name)) {
			t.Errorf("missing %s", name)
		}
	}
	if len(h.sessions) != 1 || !h.sessions[0].closed || h.sessions[0].renders != 8 {
		t.Errorf("session state = %+v", h.sessions)
	}

	data, err := os.ReadFile(filepath.Join(cfg.Paths.Output, "pipeline_results.json"))
	if err != nil {
		t.Fatal(err)
	}
	var saved []types.PipelineResult
	if err := json.Unmarshal(data, &saved); err != nil || len(saved) != 2 {
		t.Fatalf("saved results = %v, %v", saved, err)
	}
}

func TestRunClipListInSceneOrder(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness()
	h.provider.scenes["Two Sum"] = 8
	ff := &testsupport.FakeFFmpeg{}
	var list string
	ff.Fail = func(args []string) error {
		data, err := os.ReadFile(testsupport.ArgAfter(args, "-i"))
		if err == nil {
			list = string(data)
		}
		return nil
	}
	h.deps.Concatenator = concat.New(ff)

	if _, err := New(cfg, h.deps).Run(context.Background(), []types.Topic{{Title: "Two Sum"}}); err != nil {
		t.Fatal(err)
	}
	last := -1
	for i := 1; i <= 8; i++ {
		idx := strings.Index(list, fmt.Sprintf("scene_%d.mp4", i))
		if idx <= last {
			t.Fatalf("scene %d out of order in list:\n%s", i, list)
		}
		last = idx
	}
}

func TestRunMissingCredential(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Credentials.GeminiAPIKey = ""
	h := newHarness()

	results, err := New(cfg, h.deps).Run(context.Background(), []types.Topic{{Title: "Two Sum"}})
	if !errors.Is(err, types.ErrMissingCredential) {
		t.Fatalf("Run() error = %v, want ErrMissingCredential", err)
	}
	if results != nil || len(h.provider.calls) != 0 {
		t.Errorf("work done without credentials: %v %v", results, h.provider.calls)
	}
}

func TestRunWaitsBetweenTopics(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Pipeline.InterTopicDelaySec = 3
	h := newHarness()
	var waits []time.Duration
	h.deps.Wait = func(ctx context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	if _, err := New(cfg, h.deps).Run(context.Background(), []types.Topic{{Title: "A"}, {Title: "B"}, {Title: "C"}}); err != nil {
		t.Fatal(err)
	}
	if len(waits) != 2 || waits[0] != 3*time.Second {
		t.Errorf("waits = %v, want two of 3s", waits)
	}
	if strings.Join(h.provider.calls, ",") != "A,B,C" {
		t.Errorf("topic order = %v", h.provider.calls)
	}
}

func TestRunStopsWhenCancelledDuringWait(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Pipeline.InterTopicDelaySec = 1
	h := newHarness()
	ctx, cancel := context.WithCancel(context.Background())
	h.deps.Wait = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	results, err := New(cfg, h.deps).Run(ctx, []types.Topic{{Title: "A"}, {Title: "B"}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Run() error = %v", err)
	}
	if len(results) != 1 {
		t.Errorf("results = %d, want 1", len(results))
	}
}

func TestRunThumbnailFailureFailsTopic(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness()
	h.deps.OpenSession = func(ctx context.Context) (Session, error) {
		return &fakeSession{docFails: true}, nil
	}

	results, err := New(cfg, h.deps).Run(context.Background(), []types.Topic{{Title: "Two Sum"}})
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Success || !strings.Contains(results[0].Error, "thumbnail") {
		t.Errorf("result = %+v", results[0])
	}
	if results[0].VideoPath == "" {
		t.Error("video path not kept after thumbnail failure")
	}
}

func TestRunSessionOpenFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness()
	h.deps.OpenSession = func(ctx context.Context) (Session, error) {
		return nil, errors.New("chrome not found")
	}

	results, err := New(cfg, h.deps).Run(context.Background(), []types.Topic{{Title: "Two Sum"}})
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Success || !strings.Contains(results[0].Error, "chrome not found") {
		t.Errorf("result = %+v", results[0])
	}
}

func TestRunSkipsCompletedTopics(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Pipeline.SkipCompleted = true
	h := newHarness()
	ledger := &fakeLedger{done: map[string]bool{"Two Sum": true}}
	h.deps.Ledger = ledger

	results, err := New(cfg, h.deps).Run(context.Background(), []types.Topic{{Title: "Two Sum"}, {Title: "Valid Parentheses"}})
	if err != nil {
		t.Fatal(err)
	}
	if !results[0].Skipped || !results[0].Success {
		t.Errorf("first result = %+v", results[0])
	}
	if strings.Join(h.provider.calls, ",") != "Valid Parentheses" {
		t.Errorf("provider calls = %v", h.provider.calls)
	}
	if len(ledger.recorded) != 1 || ledger.recorded[0].Topic != "Valid Parentheses" {
		t.Errorf("recorded = %+v", ledger.recorded)
	}
}

type fakePublisher struct{ err error }

func (p fakePublisher) Publish(ctx context.Context, video, thumb string, script *types.Script, clips []types.SceneArtifact) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return fmt.Sprintf("https://youtube.com/watch?v=%d", len(clips)), nil
}

func TestRunPublish(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness()
	h.deps.Publisher = fakePublisher{}
	results, err := New(cfg, h.deps).Run(context.Background(), []types.Topic{{Title: "Two Sum"}})
	if err != nil {
		t.Fatal(err)
	}
	if results[0].VideoURL != "https://youtube.com/watch?v=6" {
		t.Errorf("url = %q", results[0].VideoURL)
	}

	h.deps.Publisher = fakePublisher{err: errors.New("quota exceeded")}
	results, err = New(cfg, h.deps).Run(context.Background(), []types.Topic{{Title: "Two Sum"}})
	if err != nil {
		t.Fatal(err)
	}
	if !results[0].Success || results[0].UploadError != "quota exceeded" {
		t.Errorf("upload failure result = %+v", results[0])
	}
}

type responseProvider struct {
	script  string
	visuals string
}

func (p responseProvider) GenerateScript(ctx context.Context, topic types.Topic) (*types.Script, error) {
	return content.ParseScript(p.script, content.DefaultRules())
}

func (p responseProvider) GenerateVisuals(ctx context.Context, script *types.Script) (*types.VisualSet, error) {
	return content.ParseVisuals(p.visuals, content.DefaultRules())
}

func TestRunBlankNarrationGetsSilentClip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	var scenes, visuals []string
	for i := 1; i <= 8; i++ {
		narration := fmt.Sprintf("Narration for scene %d.", i)
		if i == 3 {
			narration = ""
		}
		scenes = append(scenes, fmt.Sprintf(`{"scene_id": %d, "timestamp": "00:00-00:10", "title": "Scene %d", "script": %q}`, i, i, narration))
		visuals = append(visuals, fmt.Sprintf(`{"scene_id": %d, "html": "<div>%d</div>"}`, i, i))
	}
	h := newHarness()
	h.deps.Provider = responseProvider{
		script:  fmt.Sprintf(`{"metadata": {"title": "Two Sum", "difficulty": "Easy", "topic": "Array"}, "scenes": [%s]}`, strings.Join(scenes, ",")),
		visuals: fmt.Sprintf(`{"metadata": {}, "scenes": [%s]}`, strings.Join(visuals, ",")),
	}
	runner := &testsupport.FakeFFmpeg{}
	h.deps.Synthesizer = audio.New(nil, runner, 150, 44100)

	results, err := New(cfg, h.deps).Run(context.Background(), []types.Topic{{Title: "Two Sum"}})
	if err != nil {
		t.Fatal(err)
	}
	r := results[0]
	if !r.Success || r.Clips != 8 || len(r.FailedScenes) != 0 {
		t.Fatalf("result = %+v", r)
	}
	if runner.CallsContaining("anullsrc") != 8 {
		t.Errorf("silent tracks = %d, want 8", runner.CallsContaining("anullsrc"))
	}
}

func TestRunRecordsSceneFailureReasons(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness()
	h.deps.Provider = &droppingProvider{fakeProvider: h.provider, drop: 4}

	results, err := New(cfg, h.deps).Run(context.Background(), []types.Topic{{Title: "Two Sum"}})
	if err != nil {
		t.Fatal(err)
	}
	r := results[0]
	if len(r.SceneFailures) != 1 || r.SceneFailures[0].SceneID != 4 || r.SceneFailures[0].Reason() != "UnmatchedScene" {
		t.Fatalf("scene failures = %+v", r.SceneFailures)
	}

	data, err := os.ReadFile(filepath.Join(cfg.Paths.Output, "pipeline_results.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), `"reason": "UnmatchedScene"`) {
		t.Errorf("saved results lack the failure reason:\n%s", data)
	}
}

// droppingProvider omits the visual of one scene
type droppingProvider struct {
	*fakeProvider
	drop int
}

func (p *droppingProvider) GenerateVisuals(ctx context.Context, script *types.Script) (*types.VisualSet, error) {
	v, err := p.fakeProvider.GenerateVisuals(ctx, script)
	if err != nil {
		return nil, err
	}
	kept := v.Scenes[:0]
	for _, sc := range v.Scenes {
		if sc.SceneID != p.drop {
			kept = append(kept, sc)
		}
	}
	v.Scenes = kept
	return v, nil
}

func TestRunCollidingTitlesGetDistinctDirs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	h := newHarness()

	results, err := New(cfg, h.deps).Run(context.Background(), []types.Topic{{Title: "Two Sum"}, {Title: "Two Sum!"}, {Title: "Two Sum"}})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"two_sum", "two_sum_2", "two_sum"}
	for i, r := range results {
		if got := filepath.Base(r.OutputDir); got != want[i] {
			t.Errorf("topic %d dir = %q, want %q", i, got, want[i])
		}
		if !testsupport.Exists(filepath.Join(r.OutputDir, "content", "final_video.mp4")) {
			t.Errorf("topic %d video missing", i)
		}
	}
}

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Two Sum", "two_sum"},
		{"  Longest   Substring Without-Repeating  ", "longest_substring_without-repeating"},
		{"3Sum (Closest)!", "3sum_closest"},
		{"???", "topic"},
		{strings.Repeat("ab ", 30), strings.Repeat("ab_", 16) + "ab"},
	}
	for _, tt := range tests {
		if got := SanitizeName(tt.in); got != tt.want {
			t.Errorf("SanitizeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
