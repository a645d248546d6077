package cli

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/reelsmith/reelsmith/internal/pipeline"
)

func run(cmd *cobra.Command, script string) error {
	outDir, _ := cmd.Flags().GetString("out")
	fps, _ := cmd.Flags().GetInt("fps")
	size, _ := cmd.Flags().GetString("size")
	fade, _ := cmd.Flags().GetFloat64("fade")
	window, _ := cmd.Flags().GetInt("window")
	workers, _ := cmd.Flags().GetInt("workers")
	publish, _ := cmd.Flags().GetBool("publish")
	seed, _ := cmd.Flags().GetInt64("seed")

	w, h, err := parseSize(size)
	if err != nil {
		return err
	}

	openrouterKey := os.Getenv("OPENROUTER_API_KEY")
	if openrouterKey == "" {
		return errors.New("OPENROUTER_API_KEY is required (set it in .env)")
	}
	falKey := os.Getenv("FAL_KEY")
	if falKey == "" {
		return errors.New("FAL_KEY is required (set it in .env)")
	}

	absScript, err := filepath.Abs(script)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Hour)
	defer cancel()

	cfg := pipeline.Config{
		ScriptPath:  absScript,
		OutDir:      outDir,
		FPS:         fps,
		Width:       w,
		Height:      h,
		FadeSeconds: fade,
		WindowSize:  window,
		Workers:     workers,
		Seed:        seed,
		Publish:     publish,
		Voice:       os.Getenv("TTS_VOICE"),
		Logf:        log.Printf,

		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",

		WhisperBin:   getenvDefault("WHISPER_BIN", ".cache/bin/whisper.cpp"),
		WhisperModel: getenvDefault("WHISPER_MODEL", ".cache/models/ggml-base.bin"),

		OpenRouterAPIKey:  openrouterKey,
		OpenRouterModel:   getenvDefault("OPENROUTER_MODEL", "anthropic/claude-3.5-sonnet"),
		OpenRouterBaseURL: getenvDefault("OPENROUTER_BASE_URL", "https://openrouter.ai"),

		FalAPIKey: falKey,

		YouTubeServiceAccount: os.Getenv("YOUTUBE_SERVICE_ACCOUNT"),
		YouTubePrivacy:        os.Getenv("YOUTUBE_PRIVACY"),
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return pipeline.Run(ctx, cfg)
}

func runJoin(cmd *cobra.Command, inputs []string) error {
	output, _ := cmd.Flags().GetString("output")
	fade, _ := cmd.Flags().GetFloat64("fade")
	fps, _ := cmd.Flags().GetInt("fps")

	ctx, cancel := context.WithTimeout(context.Background(), time.Hour)
	defer cancel()

	cfg := pipeline.JoinConfig{
		Inputs:      inputs,
		Output:      output,
		FadeSeconds: fade,
		FPS:         fps,
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		Logf:        log.Printf,
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return pipeline.Join(ctx, cfg)
}

func parseSize(s string) (int, int, error) {
	ws, hs, found := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !found {
		return 0, 0, fmt.Errorf("invalid size %q, want WxH", s)
	}
	w, err := strconv.Atoi(ws)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	h, err := strconv.Atoi(hs)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if w <= 0 || h <= 0 {
		return 0, 0, fmt.Errorf("invalid size %q: dimensions must be positive", s)
	}
	return w, h, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
