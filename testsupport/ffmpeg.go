package testsupport

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"leetcode-video-pipeline/ffmpeg"
)

// FakeFFmpeg stands in for the encoder. Every Run writes a small file to its
// last argument (the output path) unless Fail matches the arguments.
type FakeFFmpeg struct {
	mu    sync.Mutex
	calls [][]string

	// Fail returns a non-nil error to make an invocation fail.
	Fail func(args []string) error
	// Output returns the bytes to write for an invocation. Default: "clip".
	Output func(args []string) []byte
	// DurationSec is returned by Duration. Default: 1.
	DurationSec float64
	// DurationErr makes Duration fail.
	DurationErr error
}

var _ ffmpeg.Runner = (*FakeFFmpeg)(nil)

func (f *FakeFFmpeg) Run(ctx context.Context, args ...string) ffmpeg.ExecResult {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), args...))
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return ffmpeg.ExecResult{Err: err}
	}
	if f.Fail != nil {
		if err := f.Fail(args); err != nil {
			return ffmpeg.ExecResult{Stderr: err.Error(), Err: err}
		}
	}
	if len(args) == 0 {
		return ffmpeg.ExecResult{Err: errors.New("no arguments")}
	}
	out := args[len(args)-1]
	data := []byte("clip")
	if f.Output != nil {
		data = f.Output(args)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return ffmpeg.ExecResult{Err: err}
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return ffmpeg.ExecResult{Err: err}
	}
	return ffmpeg.ExecResult{}
}

func (f *FakeFFmpeg) Duration(ctx context.Context, path string) (float64, error) {
	if f.DurationErr != nil {
		return 0, f.DurationErr
	}
	if f.DurationSec == 0 {
		return 1, nil
	}
	return f.DurationSec, nil
}

// Calls returns a copy of every argument list seen so far
func (f *FakeFFmpeg) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallsContaining counts invocations whose joined arguments contain substr
func (f *FakeFFmpeg) CallsContaining(substr string) int {
	n := 0
	for _, c := range f.Calls() {
		if strings.Contains(strings.Join(c, " "), substr) {
			n++
		}
	}
	return n
}

// ArgAfter returns the argument following flag in args, or ""
func ArgAfter(args []string, flag string) string {
	for i := 0; i+1 < len(args); i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}
