package testsupport

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"leetcode-video-pipeline/config"
)

// WriteFile fills path with size bytes. A size of 0 creates an empty file.
func WriteFile(t testing.TB, path string, size int) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, bytes.Repeat([]byte{'x'}, size), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// Exists reports whether path is present on disk
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// NewConfig returns defaults with a test credential and temp output paths
func NewConfig(t testing.TB) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Credentials.GeminiAPIKey = "test"
	cfg.Paths.Output = filepath.Join(base, "out")
	cfg.Paths.Ledger = ""
	cfg.Paths.Metrics = ""
	cfg.Paths.Temp = filepath.Join(base, "tmp")
	cfg.Pipeline.InterTopicDelaySec = 0
	return &cfg
}
