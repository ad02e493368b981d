// Package thumbnail produces the cover image of a topic video.
package thumbnail

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"

	"leetcode-video-pipeline/types"
)

// Designer supplies thumbnail markup for a script
type Designer interface {
	GenerateThumbnailHTML(ctx context.Context, script *types.Script) (string, error)
}

// DocumentRenderer captures a full HTML document as a PNG
type DocumentRenderer interface {
	RenderDocument(ctx context.Context, doc string, width, height int, outPath string) error
}

// Maker writes thumbnail.html and thumbnail.png into a topic's content dir
type Maker struct {
	Designer Designer // nil always uses the built-in design
	Renderer DocumentRenderer
	Width    int
	Height   int
}

// New returns a Maker for a width x height thumbnail
func New(designer Designer, renderer DocumentRenderer, width, height int) *Maker {
	if width <= 0 || height <= 0 {
		width, height = 1280, 720
	}
	return &Maker{Designer: designer, Renderer: renderer, Width: width, Height: height}
}

// Make returns the path of the saved PNG, normalized to exactly Width x Height
func (m *Maker) Make(ctx context.Context, script *types.Script, contentDir string) (string, error) {
	log.Printf("[thumbnail] Generating thumbnail for %q...", script.Metadata.Title)
	if err := os.MkdirAll(contentDir, 0755); err != nil {
		return "", fmt.Errorf("create content dir: %w", err)
	}

	doc, err := m.design(ctx, script)
	if err != nil {
		return "", err
	}
	htmlPath := filepath.Join(contentDir, "thumbnail.html")
	if err := os.WriteFile(htmlPath, []byte(doc), 0644); err != nil {
		return "", fmt.Errorf("save thumbnail html: %w", err)
	}

	raw := filepath.Join(contentDir, "thumbnail.raw.png")
	defer os.Remove(raw)
	if err := m.Renderer.RenderDocument(ctx, doc, m.Width, m.Height, raw); err != nil {
		return "", fmt.Errorf("render thumbnail: %w", err)
	}

	img, err := imaging.Open(raw)
	if err != nil {
		return "", fmt.Errorf("decode thumbnail: %w", err)
	}
	if b := img.Bounds(); b.Dx() != m.Width || b.Dy() != m.Height {
		img = imaging.Fill(img, m.Width, m.Height, imaging.Center, imaging.Lanczos)
	}

	out := filepath.Join(contentDir, "thumbnail.png")
	if err := imaging.Save(img, out); err != nil {
		return "", fmt.Errorf("save thumbnail: %w", err)
	}
	log.Printf("[thumbnail] ✅ Thumbnail ready: %s", out)
	return out, nil
}

func (m *Maker) design(ctx context.Context, script *types.Script) (string, error) {
	if m.Designer != nil {
		doc, err := m.Designer.GenerateThumbnailHTML(ctx, script)
		if err == nil {
			return doc, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		log.Printf("[thumbnail] Warning: provider design failed, using built-in template: %v", err)
	}
	doc, err := FallbackHTML(script, m.Width, m.Height)
	if err != nil {
		return "", fmt.Errorf("thumbnail template: %w", err)
	}
	return doc, nil
}
