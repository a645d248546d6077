//go:build integration

package itest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/reelsmith/reelsmith/internal/pipeline"
	"github.com/reelsmith/reelsmith/internal/ports/adapters/ffprobe"
)

func TestE2E(t *testing.T) {
	if os.Getenv("OPENROUTER_API_KEY") == "" {
		t.Fatalf("OPENROUTER_API_KEY is required for itest")
	}
	if os.Getenv("FAL_KEY") == "" {
		t.Fatalf("FAL_KEY is required for itest")
	}

	tmp := t.TempDir()
	script := filepath.Join(tmp, "script.txt")
	text := "Lighthouses were the internet of the nineteenth century. " +
		"Each one flashed a unique pattern so sailors could tell them apart in the dark. " +
		"A captain with a good chart could read the whole coastline at night."
	if err := os.WriteFile(script, []byte(text), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}

	outDir := filepath.Join(tmp, "out")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	cfg := pipeline.Config{
		ScriptPath:        script,
		OutDir:            outDir,
		CacheDir:          filepath.Join(tmp, "cache"),
		FPS:               30,
		Width:             540,
		Height:            960,
		FadeSeconds:       0.4,
		WindowSize:        5,
		Workers:           4,
		Seed:              1,
		FFmpegPath:        "ffmpeg",
		FFprobePath:       "ffprobe",
		WhisperBin:        ".cache/bin/whisper.cpp",
		WhisperModel:      ".cache/models/ggml-base.bin",
		OpenRouterAPIKey:  os.Getenv("OPENROUTER_API_KEY"),
		OpenRouterModel:   os.Getenv("OPENROUTER_MODEL"),
		OpenRouterBaseURL: os.Getenv("OPENROUTER_BASE_URL"),
		FalAPIKey:         os.Getenv("FAL_KEY"),
	}
	if cfg.OpenRouterModel == "" {
		cfg.OpenRouterModel = "anthropic/claude-3.5-sonnet"
	}
	if cfg.OpenRouterBaseURL == "" {
		cfg.OpenRouterBaseURL = "https://openrouter.ai"
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}

	if err := pipeline.Run(ctx, cfg); err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}

	runs, err := os.ReadDir(outDir)
	if err != nil || len(runs) != 1 {
		t.Fatalf("expected one run dir in %s: %v", outDir, err)
	}
	runDir := filepath.Join(outDir, runs[0].Name())

	if _, err := os.Stat(filepath.Join(runDir, "manifest.json")); err != nil {
		t.Fatalf("missing manifest: %v", err)
	}
	final := filepath.Join(runDir, "final.mp4")
	if _, err := os.Stat(final); err != nil {
		t.Fatalf("missing final video: %v", err)
	}
	sec, err := ffprobe.New("ffprobe").Duration(ctx, final)
	if err != nil {
		t.Fatalf("probe final: %v", err)
	}
	if sec < 5 {
		t.Fatalf("final video suspiciously short: %.2fs", sec)
	}
}
