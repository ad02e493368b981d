package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.SceneStarted()
	m.SceneFinished("success", 1)
	m.SceneSkipped("UnmatchedScene")
	m.BatchStarted()
	m.TopicFinished("failed")
	if err := m.WriteFile(filepath.Join(t.TempDir(), "m.prom")); err != nil {
		t.Fatalf("WriteFile() on nil = %v", err)
	}
}

func TestWriteFile(t *testing.T) {
	m := New()
	m.BatchStarted()
	m.SceneStarted()
	m.SceneFinished("success", 2.5)
	m.SceneStarted()
	m.SceneFinished("SceneRenderFailed", 0.5)
	m.SceneSkipped("UnmatchedScene")
	m.TopicFinished("success")

	path := filepath.Join(t.TempDir(), "metrics", "run.prom")
	if err := m.WriteFile(path); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	text := string(data)
	for _, want := range []string{
		`leetvid_scenes_total{outcome="success"} 1`,
		`leetvid_scenes_total{outcome="SceneRenderFailed"} 1`,
		`leetvid_scenes_total{outcome="UnmatchedScene"} 1`,
		`leetvid_topics_total{outcome="success"} 1`,
		`leetvid_scenes_in_flight 0`,
		`leetvid_scene_batches_total 1`,
		`leetvid_scene_processing_seconds_count 2`,
	} {
		if !strings.Contains(text, want) {
			t.Errorf("metrics output missing %q\n%s", want, text)
		}
	}
}
