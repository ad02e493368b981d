// Package concat joins scene clips into the final video without re-encoding.
package concat

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"leetcode-video-pipeline/ffmpeg"
	"leetcode-video-pipeline/types"
)

// Result lists which clips made it into the output
type Result struct {
	Output   string
	Included []string
	Dropped  []string
	Size     int64
}

// Concatenator runs the ffmpeg concat demuxer with stream copy
type Concatenator struct {
	FFmpeg ffmpeg.Runner
}

// New returns a Concatenator using runner
func New(runner ffmpeg.Runner) *Concatenator {
	return &Concatenator{FFmpeg: runner}
}

// Join concatenates clips in the given order into outPath. Missing or empty
// clips are dropped and logged. Every error wraps ErrConcatenationFailed.
func (c *Concatenator) Join(ctx context.Context, clips []string, outPath string) (Result, error) {
	res := Result{Output: outPath}
	for _, clip := range clips {
		if _, err := ffmpeg.OutputSize(clip); err != nil {
			log.Printf("[concat] ⚠️ Dropping clip %s: %v", clip, err)
			res.Dropped = append(res.Dropped, clip)
			continue
		}
		res.Included = append(res.Included, clip)
	}
	if len(res.Included) == 0 {
		return res, fmt.Errorf("%w: no usable clips (%d dropped)", types.ErrConcatenationFailed, len(res.Dropped))
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0755); err != nil {
		return res, fmt.Errorf("%w: %w", types.ErrConcatenationFailed, err)
	}
	listFile := outPath + ".concat.txt"
	defer os.Remove(listFile)
	if err := os.WriteFile(listFile, []byte(listContent(res.Included)), 0644); err != nil {
		return res, fmt.Errorf("%w: write list: %w", types.ErrConcatenationFailed, err)
	}

	log.Printf("[concat] Concatenating %d clip(s)...", len(res.Included))
	out := c.FFmpeg.Run(ctx,
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		"-movflags", "+faststart",
		outPath,
	)
	if out.Err != nil {
		os.Remove(outPath)
		return res, fmt.Errorf("%w: %w", types.ErrConcatenationFailed, out.Err)
	}
	size, err := ffmpeg.OutputSize(outPath)
	if err != nil {
		return res, fmt.Errorf("%w: %w", types.ErrConcatenationFailed, err)
	}
	res.Size = size

	log.Printf("[concat] ✅ Final video: %s (%dKB)", outPath, size/1024)
	return res, nil
}

// listContent builds a concat demuxer list with absolute, quoted paths
func listContent(clips []string) string {
	var sb strings.Builder
	for _, clip := range clips {
		if abs, err := filepath.Abs(clip); err == nil {
			clip = abs
		}
		sb.WriteString("file '")
		sb.WriteString(strings.ReplaceAll(clip, "'", `'\''`))
		sb.WriteString("'\n")
	}
	return sb.String()
}
