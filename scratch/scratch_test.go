package scratch

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDirClose(t *testing.T) {
	parent := filepath.Join(t.TempDir(), "nested")
	d, err := New(parent, "topic-*")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := os.WriteFile(d.File("scene_1.png"), []byte("png"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := os.Stat(d.Path()); !os.IsNotExist(err) {
		t.Fatalf("expected %s removed, stat err = %v", d.Path(), err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}
}

func TestScopeRelease(t *testing.T) {
	dir := t.TempDir()
	var s Scope
	img := s.Track(filepath.Join(dir, "scene.png"))
	never := s.Track(filepath.Join(dir, "never-written.wav"))
	keep := filepath.Join(dir, "clip.mp4")
	for _, p := range []string{img, keep} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if got := len(s.Tracked()); got != 2 {
		t.Fatalf("Tracked() = %d paths, want 2", got)
	}

	if err := s.Release(); err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if _, err := os.Stat(img); !os.IsNotExist(err) {
		t.Errorf("%s still present", img)
	}
	if _, err := os.Stat(never); !os.IsNotExist(err) {
		t.Errorf("%s unexpectedly present", never)
	}
	if _, err := os.Stat(keep); err != nil {
		t.Errorf("untracked file removed: %v", err)
	}
	if len(s.Tracked()) != 0 {
		t.Error("scope not emptied after Release")
	}
}
