// Package ffmpeg runs the external encoder and prober as short-lived
// subprocesses. Every encoder operation in the pipeline goes through a
// [Runner] so stages can be exercised without ffmpeg installed.
package ffmpeg

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Runner executes one ffmpeg invocation and one ffprobe duration query.
type Runner interface {
	Run(ctx context.Context, args ...string) ExecResult
	Duration(ctx context.Context, path string) (float64, error)
}

// ExecResult holds the outcome of a single ffmpeg invocation.
type ExecResult struct {
	Stderr string
	Err    error
}

// Exec is the Runner backed by the ffmpeg and ffprobe binaries on PATH.
type Exec struct {
	Binary      string // Default: "ffmpeg".
	ProbeBinary string // Default: "ffprobe".
	Verbose     bool   // Tee stderr to os.Stderr.
}

// Run invokes ffmpeg with -y prepended. Stderr is captured for error
// reporting and tee'd to os.Stderr when Verbose is set.
func (e *Exec) Run(ctx context.Context, args ...string) ExecResult {
	bin := e.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	cmd := exec.CommandContext(ctx, bin, append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)...)

	var stderrBuf bytes.Buffer
	if e.Verbose {
		cmd.Stderr = io.MultiWriter(&stderrBuf, os.Stderr)
	} else {
		cmd.Stderr = &stderrBuf
	}

	err := cmd.Run()
	if err != nil {
		err = fmt.Errorf("%s: %w: %s", bin, err, lastLine(stderrBuf.String()))
	}
	return ExecResult{
		Stderr: stderrBuf.String(),
		Err:    err,
	}
}

// Duration uses ffprobe to get the container duration in seconds
func (e *Exec) Duration(ctx context.Context, path string) (float64, error) {
	bin := e.ProbeBinary
	if bin == "" {
		bin = "ffprobe"
	}
	out, err := exec.CommandContext(ctx, bin,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	).Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return ParseDuration(string(out))
}

// Available reports whether the ffmpeg binary can be executed
func (e *Exec) Available(ctx context.Context) error {
	bin := e.Binary
	if bin == "" {
		bin = "ffmpeg"
	}
	if err := exec.CommandContext(ctx, bin, "-version").Run(); err != nil {
		return fmt.Errorf("%s not available: %w", bin, err)
	}
	return nil
}

// ParseDuration reads the single number ffprobe prints for format=duration
func ParseDuration(s string) (float64, error) {
	s = strings.TrimSpace(s)
	dur, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return dur, nil
}

// OutputSize returns the size of a produced file, failing on missing or empty output
func OutputSize(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if fi.IsDir() {
		return 0, fmt.Errorf("%s is a directory", path)
	}
	if fi.Size() == 0 {
		return 0, fmt.Errorf("%s is empty", path)
	}
	return fi.Size(), nil
}

func lastLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
