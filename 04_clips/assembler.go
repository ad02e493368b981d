// Package clips turns a rendered still and its narration into one scene clip.
// Every clip shares a single encoding profile so the concatenator can join
// them without re-encoding.
package clips

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"leetcode-video-pipeline/ffmpeg"
)

// Profile is the fixed output encoding of every scene clip
type Profile struct {
	Width       int
	Height      int
	FPS         int
	ZoomEnabled bool
	ZoomMax     float64
	Preset      string
	CRF         int
	SampleRate  int
}

// DefaultProfile is 1920x1080 at 30 fps with a slow zoom to 1.2
func DefaultProfile() Profile {
	return Profile{Width: 1920, Height: 1080, FPS: 30, ZoomEnabled: true, ZoomMax: 1.2, Preset: "fast", CRF: 23, SampleRate: 44100}
}

// Assembler encodes scene clips through an ffmpeg Runner
type Assembler struct {
	FFmpeg  ffmpeg.Runner
	Profile Profile
}

// New returns an Assembler for the given profile
func New(runner ffmpeg.Runner, p Profile) *Assembler {
	return &Assembler{FFmpeg: runner, Profile: p}
}

// Assemble writes outPath: the still held for duration seconds with the
// narration muxed in. The silent intermediate is always removed.
func (a *Assembler) Assemble(ctx context.Context, imagePath, audioPath string, duration float64, outPath string) error {
	if duration <= 0 {
		return fmt.Errorf("invalid clip duration %.3f", duration)
	}
	if _, err := ffmpeg.OutputSize(imagePath); err != nil {
		return fmt.Errorf("scene image: %w", err)
	}
	if _, err := ffmpeg.OutputSize(audioPath); err != nil {
		return fmt.Errorf("scene audio: %w", err)
	}

	silent := strings.TrimSuffix(outPath, ".mp4") + ".silent.mp4"
	defer os.Remove(silent)

	if res := a.FFmpeg.Run(ctx, a.stillArgs(imagePath, duration, silent)...); res.Err != nil {
		return fmt.Errorf("encode still: %w", res.Err)
	}
	if _, err := ffmpeg.OutputSize(silent); err != nil {
		return fmt.Errorf("encode still: %w", err)
	}

	if res := a.FFmpeg.Run(ctx, a.muxArgs(silent, audioPath, outPath)...); res.Err != nil {
		os.Remove(outPath)
		return fmt.Errorf("mux narration: %w", res.Err)
	}
	if _, err := ffmpeg.OutputSize(outPath); err != nil {
		return fmt.Errorf("mux narration: %w", err)
	}
	return nil
}

// videoFilter scales to the canvas and, when enabled, adds a slow
// centered zoom from 1.0 to ZoomMax across the clip
func (a *Assembler) videoFilter(duration float64) string {
	p := a.Profile
	scale := fmt.Sprintf("scale=%d:%d", p.Width, p.Height)
	if !p.ZoomEnabled || p.ZoomMax <= 1 {
		return scale + ",format=yuv420p"
	}
	frames := max(1, int(duration*float64(p.FPS)))
	step := (p.ZoomMax - 1.0) / float64(frames)
	return fmt.Sprintf(
		"scale=%d:%d,zoompan=z='min(zoom+%.6f,%.3f)':x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':d=%d:s=%dx%d:fps=%d,format=yuv420p",
		p.Width*2, p.Height*2, step, p.ZoomMax, frames, p.Width, p.Height, p.FPS,
	)
}

func (a *Assembler) stillArgs(imagePath string, duration float64, out string) []string {
	p := a.Profile
	preset := p.Preset
	if preset == "" {
		preset = "fast"
	}
	return []string{
		"-loop", "1",
		"-i", imagePath,
		"-vf", a.videoFilter(duration),
		"-t", strconv.FormatFloat(duration, 'f', 3, 64),
		"-r", strconv.Itoa(p.FPS),
		"-c:v", "libx264",
		"-preset", preset,
		"-crf", strconv.Itoa(p.CRF),
		"-pix_fmt", "yuv420p",
		"-an",
		out,
	}
}

func (a *Assembler) muxArgs(video, audio, out string) []string {
	rate := a.Profile.SampleRate
	if rate <= 0 {
		rate = 44100
	}
	return []string{
		"-i", video,
		"-i", audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-ar", strconv.Itoa(rate),
		"-ac", "2",
		"-shortest",
		"-movflags", "+faststart",
		out,
	}
}
