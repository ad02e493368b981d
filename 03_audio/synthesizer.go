// Package audio produces one narration track per scene. Speech comes from an
// external TTS engine; silence of the planned length stands in when speech
// cannot be produced.
package audio

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"leetcode-video-pipeline/ffmpeg"
)

// Synthesizer writes scene audio in one fixed profile: PCM WAV at
// SampleRate Hz, stereo
type Synthesizer struct {
	TTS            TTS // nil means silence only
	FFmpeg         ffmpeg.Runner
	WordsPerMinute int
	SampleRate     int
}

// New builds a Synthesizer with the 150 wpm, 44.1 kHz defaults filled in
func New(tts TTS, runner ffmpeg.Runner, wordsPerMinute, sampleRate int) *Synthesizer {
	if wordsPerMinute <= 0 {
		wordsPerMinute = 150
	}
	if sampleRate <= 0 {
		sampleRate = 44100
	}
	return &Synthesizer{TTS: tts, FFmpeg: runner, WordsPerMinute: wordsPerMinute, SampleRate: sampleRate}
}

// TargetDuration is the narration length at the speaking rate, floored at minDuration
func (s *Synthesizer) TargetDuration(text string, minDuration float64) float64 {
	wpm := s.WordsPerMinute
	if wpm <= 0 {
		wpm = 150
	}
	words := len(strings.Fields(text))
	return max(minDuration, float64(words)/float64(wpm)*60)
}

// Synthesize writes the narration for text to outPath and returns its
// duration in seconds. A TTS failure falls back to silence; only a failed
// silence track is an error.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, minDuration float64, outPath string) (float64, error) {
	target := s.TargetDuration(text, minDuration)

	if s.TTS != nil && strings.TrimSpace(text) != "" {
		dur, err := s.speak(ctx, text, target, outPath)
		if err == nil {
			return dur, nil
		}
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		log.Printf("[audio] TTS failed, using %.1fs of silence: %v", target, err)
	}

	if err := s.silence(ctx, target, outPath); err != nil {
		return 0, fmt.Errorf("silent track: %w", err)
	}
	return target, nil
}

// speak runs the engine into a raw file, then pads it to the target length
// in the fixed profile. The raw file is removed on every path.
func (s *Synthesizer) speak(ctx context.Context, text string, target float64, outPath string) (float64, error) {
	raw := outPath + ".tts.mp3"
	defer os.Remove(raw)

	if err := s.TTS.Speak(ctx, text, raw); err != nil {
		return 0, err
	}
	if _, err := ffmpeg.OutputSize(raw); err != nil {
		return 0, fmt.Errorf("tts output: %w", err)
	}

	dur := target
	if measured, err := s.FFmpeg.Duration(ctx, raw); err != nil {
		log.Printf("[audio] Warning: could not measure TTS duration, using estimate: %v", err)
	} else {
		dur = max(target, measured)
	}

	d := seconds(dur)
	res := s.FFmpeg.Run(ctx,
		"-i", raw,
		"-af", "apad=whole_dur="+d,
		"-t", d,
		"-ar", strconv.Itoa(s.rate()),
		"-ac", "2",
		"-c:a", "pcm_s16le",
		outPath,
	)
	if res.Err != nil {
		os.Remove(outPath)
		return 0, fmt.Errorf("fit narration: %w", res.Err)
	}
	if _, err := ffmpeg.OutputSize(outPath); err != nil {
		return 0, err
	}
	return dur, nil
}

func (s *Synthesizer) silence(ctx context.Context, dur float64, outPath string) error {
	res := s.FFmpeg.Run(ctx,
		"-f", "lavfi",
		"-i", fmt.Sprintf("anullsrc=r=%d:cl=stereo", s.rate()),
		"-t", seconds(dur),
		"-c:a", "pcm_s16le",
		outPath,
	)
	if res.Err != nil {
		os.Remove(outPath)
		return res.Err
	}
	_, err := ffmpeg.OutputSize(outPath)
	return err
}

func (s *Synthesizer) rate() int {
	if s.SampleRate <= 0 {
		return 44100
	}
	return s.SampleRate
}

func seconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}
