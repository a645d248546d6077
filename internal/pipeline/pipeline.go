// Package pipeline assembles the adapters into a runnable job.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/reelsmith/reelsmith/internal/ports/adapters/falai"
	"github.com/reelsmith/reelsmith/internal/ports/adapters/ffmpeg"
	"github.com/reelsmith/reelsmith/internal/ports/adapters/ffprobe"
	"github.com/reelsmith/reelsmith/internal/ports/adapters/openrouter"
	"github.com/reelsmith/reelsmith/internal/ports/adapters/whispercpp"
	"github.com/reelsmith/reelsmith/internal/ports/adapters/youtube"
	"github.com/reelsmith/reelsmith/internal/usecase"
)

type Config struct {
	ScriptPath  string
	OutDir      string
	FPS         int
	Width       int
	Height      int
	FadeSeconds float64
	WindowSize  int
	Workers     int
	Seed        int64
	Publish     bool
	Voice       string
	Logf        func(format string, args ...any)

	// CacheDir is the base directory for reusable artifacts (audio,
	// images, transcripts). If empty, defaults to ".cache".
	CacheDir string

	FFmpegPath  string
	FFprobePath string

	WhisperBin   string
	WhisperModel string

	OpenRouterAPIKey  string
	OpenRouterModel   string
	OpenRouterBaseURL string

	FalAPIKey string

	YouTubeServiceAccount string
	YouTubePrivacy        string
}

func (c Config) Validate() error {
	if c.ScriptPath == "" {
		return errors.New("script path is empty")
	}
	if _, err := os.Stat(c.ScriptPath); err != nil {
		return fmt.Errorf("stat script: %w", err)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be > 0")
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("frame size must be positive")
	}
	if c.Width%2 != 0 || c.Height%2 != 0 {
		return fmt.Errorf("frame size must be even for yuv420p output")
	}
	if c.FadeSeconds < 0 {
		return fmt.Errorf("fade must be >= 0")
	}
	if c.WhisperModel == "" {
		return fmt.Errorf("whisper model path is required")
	}
	if c.OpenRouterAPIKey == "" {
		return fmt.Errorf("openrouter api key is required")
	}
	if c.FalAPIKey == "" {
		return fmt.Errorf("fal api key is required")
	}
	if c.Publish && c.YouTubeServiceAccount == "" {
		return fmt.Errorf("youtube service account file is required to publish")
	}
	return openrouter.ValidateBaseURL(c.OpenRouterBaseURL)
}

func Run(ctx context.Context, cfg Config) error {
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}

	script, err := os.ReadFile(cfg.ScriptPath)
	if err != nil {
		return fmt.Errorf("read script: %w", err)
	}
	if strings.TrimSpace(string(script)) == "" {
		return fmt.Errorf("script %s is empty", cfg.ScriptPath)
	}

	baseCache := cfg.CacheDir
	if baseCache == "" {
		baseCache = ".cache"
	}
	cacheDir := filepath.Join(baseCache, "runs", hash(cfg.ScriptPath))
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return err
	}
	logf("cache: %s", cacheDir)

	outDir := cfg.OutDir
	if outDir == "" {
		outDir = "out"
	}
	runOutDir := buildRunOutDir(outDir, cfg.ScriptPath, time.Now().UTC())
	if err := os.MkdirAll(runOutDir, 0o755); err != nil {
		return err
	}
	logf("output run dir: %s", runOutDir)

	renderer := ffmpeg.New(cfg.FFmpegPath)
	probe := ffprobe.New(cfg.FFprobePath)
	asr := whispercpp.New(cfg.WhisperBin, cfg.WhisperModel)
	asr.Logf = logf
	model := openrouter.New(cfg.OpenRouterAPIKey, cfg.OpenRouterModel, cfg.OpenRouterBaseURL)
	model.Logf = logf
	fal, err := falai.New(cfg.FalAPIKey, cfg.Voice, filepath.Join(baseCache, "assets"))
	if err != nil {
		return err
	}
	fal.Logf = logf

	deps := usecase.Deps{
		Model:    model,
		Speech:   fal,
		Images:   fal,
		ASR:      asr,
		Renderer: renderer,
		Joiner:   renderer,
		Probe:    probe,
		Logf:     logf,
	}
	if cfg.Publish {
		pub, err := youtube.New(ctx, cfg.YouTubeServiceAccount, cfg.YouTubePrivacy)
		if err != nil {
			return err
		}
		pub.Logf = logf
		deps.Pub = pub
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	uc := usecase.New(deps)
	res, err := uc.Run(ctx, usecase.Input{
		Script:      string(script),
		OutDir:      runOutDir,
		CacheDir:    cacheDir,
		FPS:         cfg.FPS,
		Width:       cfg.Width,
		Height:      cfg.Height,
		FadeSeconds: cfg.FadeSeconds,
		WindowSize:  cfg.WindowSize,
		Workers:     cfg.Workers,
		Seed:        seed,
		Publish:     cfg.Publish,
	})
	if err != nil {
		return err
	}

	b, err := json.MarshalIndent(res.Manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	manifestPath := filepath.Join(runOutDir, "manifest.json")
	if err := os.WriteFile(manifestPath, b, 0o644); err != nil {
		return err
	}
	logf("manifest written (%d scenes): %s", len(res.Manifest.Scenes), manifestPath)
	logf("final video: %s", res.Manifest.Output)
	return nil
}

// JoinConfig drives the standalone join mode: finished audio+video
// clips chained with matched crossfades, no model calls involved.
// A negative FadeSeconds derives the fade from the clip durations.
type JoinConfig struct {
	Inputs      []string
	Output      string
	FadeSeconds float64
	FPS         int
	FFmpegPath  string
	FFprobePath string
	Logf        func(format string, args ...any)
}

func (c JoinConfig) Validate() error {
	if len(c.Inputs) == 0 {
		return errors.New("no input clips")
	}
	for _, p := range c.Inputs {
		if _, err := os.Stat(p); err != nil {
			return fmt.Errorf("stat input: %w", err)
		}
	}
	if c.Output == "" {
		return errors.New("output path is empty")
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be > 0")
	}
	return nil
}

func Join(ctx context.Context, cfg JoinConfig) error {
	logf := cfg.Logf
	if logf == nil {
		logf = func(string, ...any) {}
	}
	renderer := ffmpeg.New(cfg.FFmpegPath)
	uc := usecase.New(usecase.Deps{
		Renderer: renderer,
		Joiner:   renderer,
		Probe:    ffprobe.New(cfg.FFprobePath),
		Logf:     logf,
	})
	if err := uc.JoinAV(ctx, cfg.Inputs, cfg.FadeSeconds, cfg.FPS, cfg.Output); err != nil {
		return err
	}
	logf("joined %d clips: %s", len(cfg.Inputs), cfg.Output)
	return nil
}

func buildRunOutDir(outRoot, scriptPath string, now time.Time) string {
	name := strings.TrimSuffix(filepath.Base(scriptPath), filepath.Ext(scriptPath))
	name = normalizePathSegment(name)
	if name == "" {
		name = "script"
	}
	ts := now.UTC().Format("20060102-150405Z")
	runSeed := fmt.Sprintf("%s|%d", scriptPath, now.UTC().UnixNano())
	suffix := hash(runSeed)[:6]
	return filepath.Join(outRoot, fmt.Sprintf("%s-%s-%s", name, ts, suffix))
}

func normalizePathSegment(s string) string {
	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r):
			b.WriteRune(r)
			prevDash = false
		default:
			if !prevDash {
				b.WriteByte('-')
				prevDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

func hash(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])[:12]
}
