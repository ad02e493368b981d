package audio

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os/exec"
	"strings"
)

// TTS turns narration text into an audio file at outPath
type TTS interface {
	Speak(ctx context.Context, text, outPath string) error
}

// CommandTTS runs an external speech engine. "edge-tts" uses its own flags,
// a .py path runs under python3, anything else gets --text/--output.
type CommandTTS struct {
	Command string
	Voice   string
}

// ResolveTTS picks the configured engine, or edge-tts when it is on PATH.
// It returns nil when no engine is available; narration then falls back to
// silence.
func ResolveTTS(command, voice string) TTS {
	command = strings.TrimSpace(command)
	if command == "" {
		if _, err := exec.LookPath("edge-tts"); err != nil {
			log.Println("[audio] No TTS engine found (set audio.tts_command or install edge-tts); scenes will be silent")
			return nil
		}
		command = "edge-tts"
		log.Println("[audio] Using edge-tts as TTS engine")
	}
	return &CommandTTS{Command: command, Voice: voice}
}

func (c *CommandTTS) args(text, outPath string) (string, []string) {
	switch {
	case c.Command == "edge-tts":
		voice := c.Voice
		if voice == "" {
			voice = "en-US-GuyNeural"
		}
		return "edge-tts", []string{"--voice", voice, "--text", text, "--write-media", outPath}
	case strings.HasSuffix(c.Command, ".py"):
		return "python3", []string{c.Command, "--text", text, "--output", outPath}
	default:
		return c.Command, []string{"--text", text, "--output", outPath}
	}
}

func (c *CommandTTS) Speak(ctx context.Context, text, outPath string) error {
	name, args := c.args(text, outPath)
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return nil
}
