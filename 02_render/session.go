package render

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// Options configure the headless browser and every page it renders
type Options struct {
	Width      int
	Height     int
	Timeout    time.Duration // bound on one page: load, settle and capture
	Settle     time.Duration // wait after load for fonts and layout
	ChromePath string        // empty uses chromedp's lookup
	TempDir    string        // where page documents are written
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 1920
	}
	if o.Height <= 0 {
		o.Height = 1080
	}
	if o.Timeout <= 0 {
		o.Timeout = 45 * time.Second
	}
	if o.Settle < 0 {
		o.Settle = 0
	}
	if o.TempDir == "" {
		o.TempDir = os.TempDir()
	}
	return o
}

// Session is one headless browser shared by all scenes of a topic. Each
// render gets its own tab.
type Session struct {
	opts        Options
	browserCtx  context.Context
	cancelAlloc context.CancelFunc
	cancelTab   context.CancelFunc
	closeOnce   sync.Once
}

var errSessionClosed = errors.New("render session closed")

// Open launches the browser. Close must be called on every path.
func Open(ctx context.Context, opts Options) (*Session, error) {
	opts = opts.withDefaults()
	if err := os.MkdirAll(opts.TempDir, 0o755); err != nil {
		return nil, fmt.Errorf("render temp dir: %w", err)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-web-security", true),
		chromedp.Flag("allow-running-insecure-content", true),
		chromedp.Flag("disable-features", "VizDisplayCompositor"),
		chromedp.WindowSize(opts.Width, opts.Height),
	)
	if opts.ChromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(opts.ChromePath))
	}

	// the browser outlives any single caller context; Close tears it down
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)
	browserCtx, cancelTab := chromedp.NewContext(allocCtx)

	err := chromedp.Run(browserCtx)
	if err != nil {
		cancelTab()
		cancelAlloc()
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	log.Printf("[render] ✅ Browser ready (%dx%d)", opts.Width, opts.Height)
	return &Session{opts: opts, browserCtx: browserCtx, cancelAlloc: cancelAlloc, cancelTab: cancelTab}, nil
}

// Render captures one scene's markup as a PNG at the session's canvas size
func (s *Session) Render(ctx context.Context, markup, outPath string) error {
	if s.browserCtx.Err() != nil {
		return errSessionClosed
	}
	doc, err := WrapScene(markup, s.opts.Width, s.opts.Height)
	if err != nil {
		return err
	}
	return s.RenderDocument(ctx, doc, s.opts.Width, s.opts.Height, outPath)
}

// RenderDocument captures a complete HTML document at width x height
func (s *Session) RenderDocument(ctx context.Context, doc string, width, height int, outPath string) error {
	if s.browserCtx.Err() != nil {
		return errSessionClosed
	}

	page, err := os.CreateTemp(s.opts.TempDir, "page-*.html")
	if err != nil {
		return fmt.Errorf("write page: %w", err)
	}
	pagePath := page.Name()
	defer os.Remove(pagePath)
	if _, err := page.WriteString(doc); err != nil {
		page.Close()
		return fmt.Errorf("write page: %w", err)
	}
	if err := page.Close(); err != nil {
		return fmt.Errorf("write page: %w", err)
	}
	abs, err := filepath.Abs(pagePath)
	if err != nil {
		return err
	}
	pageURL := (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()

	tabCtx, closeTab := chromedp.NewContext(s.browserCtx)
	defer closeTab()
	stop := context.AfterFunc(ctx, closeTab)
	defer stop()
	runCtx, cancel := context.WithTimeout(tabCtx, s.opts.Timeout)
	defer cancel()

	var shot []byte
	err = chromedp.Run(runCtx,
		chromedp.EmulateViewport(int64(width), int64(height)),
		chromedp.Navigate(pageURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(s.opts.Settle),
		chromedp.CaptureScreenshot(&shot),
	)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return fmt.Errorf("render timed out after %s", s.opts.Timeout)
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("render page: %w", err)
	}
	if len(shot) == 0 {
		return fmt.Errorf("render produced an empty screenshot")
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	if err := os.WriteFile(outPath, shot, 0o644); err != nil {
		return fmt.Errorf("save screenshot: %w", err)
	}
	return nil
}

// Close shuts the browser down. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.cancelTab()
		s.cancelAlloc()
		log.Printf("[render] Browser closed")
	})
	return nil
}
