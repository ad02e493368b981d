package audio

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"leetcode-video-pipeline/testsupport"
)

type fakeTTS struct {
	err   error
	empty bool
	calls int
}

func (f *fakeTTS) Speak(ctx context.Context, text, outPath string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	data := []byte("mp3")
	if f.empty {
		data = nil
	}
	return os.WriteFile(outPath, data, 0o644)
}

func TestTargetDuration(t *testing.T) {
	s := New(nil, nil, 150, 0)
	if got := s.TargetDuration("one two three", 5); got != 5 {
		t.Errorf("short text = %v, want floor 5", got)
	}
	text := strings.Repeat("word ", 150)
	if got := s.TargetDuration(text, 5); got != 60 {
		t.Errorf("150 words = %v, want 60", got)
	}
}

func TestSynthesizeSpeech(t *testing.T) {
	dir := t.TempDir()
	runner := &testsupport.FakeFFmpeg{DurationSec: 8.5}
	tts := &fakeTTS{}
	s := New(tts, runner, 150, 44100)
	out := filepath.Join(dir, "scene_1.wav")

	dur, err := s.Synthesize(context.Background(), "short narration", 5, out)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if dur != 8.5 {
		t.Errorf("duration = %v, want measured 8.5", dur)
	}
	if !testsupport.Exists(out) {
		t.Error("narration not written")
	}
	if testsupport.Exists(out + ".tts.mp3") {
		t.Error("raw tts file not removed")
	}
	if runner.CallsContaining("apad=whole_dur=8.500") != 1 {
		t.Errorf("expected one padded encode, calls = %v", runner.Calls())
	}
	if runner.CallsContaining("anullsrc") != 0 {
		t.Error("silence used despite working TTS")
	}
}

func TestSynthesizePadsShortSpeech(t *testing.T) {
	runner := &testsupport.FakeFFmpeg{DurationSec: 2}
	s := New(&fakeTTS{}, runner, 150, 44100)
	dur, err := s.Synthesize(context.Background(), "hi", 5, filepath.Join(t.TempDir(), "a.wav"))
	if err != nil {
		t.Fatal(err)
	}
	if dur != 5 {
		t.Errorf("duration = %v, want floor 5", dur)
	}
}

func TestSynthesizeFallsBackToSilence(t *testing.T) {
	tests := []struct {
		name string
		tts  TTS
	}{
		{"no engine", nil},
		{"engine error", &fakeTTS{err: errors.New("network down")}},
		{"empty output", &fakeTTS{empty: true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			runner := &testsupport.FakeFFmpeg{}
			s := New(tt.tts, runner, 150, 44100)
			out := filepath.Join(dir, "scene.wav")

			dur, err := s.Synthesize(context.Background(), "narration text", 7, out)
			if err != nil {
				t.Fatalf("Synthesize() error = %v", err)
			}
			if dur != 7 {
				t.Errorf("duration = %v, want 7", dur)
			}
			if runner.CallsContaining("anullsrc=r=44100:cl=stereo") != 1 {
				t.Errorf("expected silence encode, calls = %v", runner.Calls())
			}
			if testsupport.Exists(out + ".tts.mp3") {
				t.Error("raw tts file left behind")
			}
		})
	}
}

func TestSynthesizeBlankNarrationIsSilent(t *testing.T) {
	tts := &fakeTTS{}
	runner := &testsupport.FakeFFmpeg{}
	s := New(tts, runner, 150, 44100)
	out := filepath.Join(t.TempDir(), "scene.wav")

	dur, err := s.Synthesize(context.Background(), "  ", 6, out)
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if dur != 6 || tts.calls != 0 {
		t.Errorf("duration = %v, tts calls = %d", dur, tts.calls)
	}
	if runner.CallsContaining("anullsrc") != 1 || !testsupport.Exists(out) {
		t.Errorf("expected a silent track, calls = %v", runner.Calls())
	}
}

func TestSynthesizeSilenceFailure(t *testing.T) {
	runner := &testsupport.FakeFFmpeg{Fail: func(args []string) error { return errors.New("lavfi missing") }}
	s := New(nil, runner, 150, 44100)
	out := filepath.Join(t.TempDir(), "scene.wav")
	if _, err := s.Synthesize(context.Background(), "text", 5, out); err == nil {
		t.Fatal("expected error when silence fails")
	}
	if testsupport.Exists(out) {
		t.Error("partial output left behind")
	}
}

func TestCommandTTSArgs(t *testing.T) {
	tests := []struct {
		cmd      string
		wantName string
		wantFlag string
	}{
		{"edge-tts", "edge-tts", "--write-media"},
		{"/opt/tts/speak.py", "python3", "--output"},
		{"piper-say", "piper-say", "--output"},
	}
	for _, tt := range tests {
		c := &CommandTTS{Command: tt.cmd}
		name, args := c.args("hello", "/tmp/out.mp3")
		if name != tt.wantName {
			t.Errorf("%s: name = %q, want %q", tt.cmd, name, tt.wantName)
		}
		if testsupport.ArgAfter(args, tt.wantFlag) != "/tmp/out.mp3" {
			t.Errorf("%s: args = %v", tt.cmd, args)
		}
		if testsupport.ArgAfter(args, "--text") != "hello" {
			t.Errorf("%s: text missing: %v", tt.cmd, args)
		}
	}
	name, args := (&CommandTTS{Command: "edge-tts"}).args("x", "o")
	if name != "edge-tts" || testsupport.ArgAfter(args, "--voice") != "en-US-GuyNeural" {
		t.Errorf("default voice missing: %v", args)
	}
}
