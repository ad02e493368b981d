package thumbnail

import (
	"context"
	"errors"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/disintegration/imaging"

	"leetcode-video-pipeline/types"
)

type fakeDesigner struct {
	doc string
	err error
}

func (f *fakeDesigner) GenerateThumbnailHTML(ctx context.Context, script *types.Script) (string, error) {
	return f.doc, f.err
}

// pngRenderer writes a solid image of its own size and remembers the document
type pngRenderer struct {
	w, h int
	doc  string
	err  error
}

func (r *pngRenderer) RenderDocument(ctx context.Context, doc string, width, height int, outPath string) error {
	r.doc = doc
	if r.err != nil {
		return r.err
	}
	return imaging.Save(imaging.New(r.w, r.h, color.NRGBA{R: 20, G: 30, B: 40, A: 255}), outPath)
}

func testScript() *types.Script {
	return &types.Script{
		Metadata: types.ScriptMetadata{Title: "Two Sum", Difficulty: "Easy", Topic: "Hash Table"},
		Scenes:   []types.ScenePlan{{SceneID: 1, Title: "Problem Overview", Script: "x"}},
	}
}

func TestMakeUsesProviderDesign(t *testing.T) {
	dir := t.TempDir()
	renderer := &pngRenderer{w: 1280, h: 720}
	designer := &fakeDesigner{doc: "<!DOCTYPE html><html><body>custom</body></html>"}

	out, err := New(designer, renderer, 1280, 720).Make(context.Background(), testScript(), dir)
	if err != nil {
		t.Fatalf("Make() error = %v", err)
	}
	if out != filepath.Join(dir, "thumbnail.png") {
		t.Errorf("out = %s", out)
	}
	saved, err := os.ReadFile(filepath.Join(dir, "thumbnail.html"))
	if err != nil || !strings.Contains(string(saved), "custom") {
		t.Errorf("thumbnail.html = %q, %v", saved, err)
	}
	if _, err := os.Stat(filepath.Join(dir, "thumbnail.raw.png")); !os.IsNotExist(err) {
		t.Error("raw render not removed")
	}
}

func TestMakeNormalizesSize(t *testing.T) {
	dir := t.TempDir()
	renderer := &pngRenderer{w: 1300, h: 900}

	out, err := New(nil, renderer, 1280, 720).Make(context.Background(), testScript(), dir)
	if err != nil {
		t.Fatalf("Make() error = %v", err)
	}
	img, err := imaging.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 1280 || b.Dy() != 720 {
		t.Errorf("thumbnail = %dx%d, want 1280x720", b.Dx(), b.Dy())
	}
}

func TestMakeFallsBackToTemplate(t *testing.T) {
	renderer := &pngRenderer{w: 1280, h: 720}
	designer := &fakeDesigner{err: errors.New("malformed provider response")}

	if _, err := New(designer, renderer, 1280, 720).Make(context.Background(), testScript(), t.TempDir()); err != nil {
		t.Fatalf("Make() error = %v", err)
	}
	for _, want := range []string{"Two Sum", "Hash Table", `difficulty easy`, "// Problem Overview", "width: 1280px"} {
		if !strings.Contains(renderer.doc, want) {
			t.Errorf("fallback document missing %q", want)
		}
	}
}

func TestMakeRenderFailure(t *testing.T) {
	renderer := &pngRenderer{err: errors.New("render timed out")}
	_, err := New(nil, renderer, 1280, 720).Make(context.Background(), testScript(), t.TempDir())
	if err == nil || !strings.Contains(err.Error(), "render timed out") {
		t.Fatalf("Make() error = %v", err)
	}
}

func TestFallbackHTMLEscapes(t *testing.T) {
	script := testScript()
	script.Metadata.Title = "<script>alert(1)</script>"
	script.Metadata.Difficulty = ""
	doc, err := FallbackHTML(script, 1280, 720)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(doc, "<script>alert") {
		t.Error("title not escaped")
	}
	if !strings.Contains(doc, "difficulty medium") {
		t.Error("default difficulty class missing")
	}
}
