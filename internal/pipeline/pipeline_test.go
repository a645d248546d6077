package pipeline

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestBuildRunOutDir(t *testing.T) {
	now := time.Date(2026, 8, 12, 10, 30, 45, 1234, time.UTC)
	got := buildRunOutDir("out", "/tmp/My Cool.Script.txt", now)
	base := filepath.Base(got)
	if filepath.Dir(got) != "out" {
		t.Fatalf("unexpected parent dir: %s", got)
	}
	if !strings.HasPrefix(base, "my-cool-script-20260812-103045Z-") {
		t.Fatalf("unexpected run dir format: %s", base)
	}
	if len(base) != len("my-cool-script-20260812-103045Z-")+6 {
		t.Fatalf("unexpected run dir suffix length: %s", base)
	}
}

func TestNormalizePathSegment(t *testing.T) {
	tests := map[string]string{
		"  My Cool.Script  ": "my-cool-script",
		"___":                "",
		"abc123":             "abc123",
		"Name (v2)!":         "name-v2",
	}
	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			if got := normalizePathSegment(in); got != want {
				t.Fatalf("normalizePathSegment(%q) = %q, want %q", in, got, want)
			}
		})
	}
}

func validConfig(t *testing.T) Config {
	t.Helper()
	script := filepath.Join(t.TempDir(), "script.txt")
	if err := os.WriteFile(script, []byte("a story"), 0o644); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return Config{
		ScriptPath:       script,
		FPS:              60,
		Width:            1080,
		Height:           1920,
		FadeSeconds:      0.4,
		WhisperModel:     "model.bin",
		OpenRouterAPIKey: "or-key",
		FalAPIKey:        "fal-key",
	}
}

func TestConfigValidate(t *testing.T) {
	if err := validConfig(t).Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing script", func(c *Config) { c.ScriptPath = filepath.Join(t.TempDir(), "nope.txt") }},
		{"zero fps", func(c *Config) { c.FPS = 0 }},
		{"odd width", func(c *Config) { c.Width = 1081 }},
		{"negative fade", func(c *Config) { c.FadeSeconds = -1 }},
		{"no whisper model", func(c *Config) { c.WhisperModel = "" }},
		{"no openrouter key", func(c *Config) { c.OpenRouterAPIKey = "" }},
		{"no fal key", func(c *Config) { c.FalAPIKey = "" }},
		{"publish without account", func(c *Config) { c.Publish = true }},
		{"http base url", func(c *Config) { c.OpenRouterBaseURL = "http://openrouter.ai" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig(t)
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestJoinConfigValidate(t *testing.T) {
	clip := filepath.Join(t.TempDir(), "a.mp4")
	if err := os.WriteFile(clip, []byte("x"), 0o644); err != nil {
		t.Fatalf("write clip: %v", err)
	}
	for _, fade := range []float64{0.5, 0, -1} {
		ok := JoinConfig{Inputs: []string{clip}, Output: "out.mp4", FadeSeconds: fade, FPS: 60}
		if err := ok.Validate(); err != nil {
			t.Fatalf("valid join config (fade %v) rejected: %v", fade, err)
		}
	}

	bad := []JoinConfig{
		{Output: "out.mp4", FPS: 60},
		{Inputs: []string{clip}, FPS: 60},
		{Inputs: []string{clip}, Output: "o.mp4"},
		{Inputs: []string{filepath.Join(t.TempDir(), "missing.mp4")}, Output: "o.mp4", FPS: 60},
	}
	for i, cfg := range bad {
		if err := cfg.Validate(); err == nil {
			t.Errorf("bad config %d accepted", i)
		}
	}
}
