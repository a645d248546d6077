// Package whispercpp runs whisper.cpp for word-level transcription.
package whispercpp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/reelsmith/reelsmith/internal/cache"
	"github.com/reelsmith/reelsmith/internal/domain/transcript"
	"github.com/reelsmith/reelsmith/internal/ports"
	"github.com/reelsmith/reelsmith/internal/types"
)

type Adapter struct {
	bin   string
	model string
	Logf  func(format string, args ...any)
}

var _ ports.Transcriber = (*Adapter)(nil)

func New(binPath, modelPath string) *Adapter {
	return &Adapter{bin: binPath, model: modelPath, Logf: func(string, ...any) {}}
}

// Transcribe runs whisper.cpp with word timestamps and flattens the
// result. The raw JSON is cached keyed by media content and model path,
// so re-runs over the same narration skip the transcription pass.
func (a *Adapter) Transcribe(ctx context.Context, mediaPath, cacheDir string) ([]types.TimedWord, error) {
	c, err := cache.New(cacheDir)
	if err != nil {
		return nil, err
	}
	key, err := cache.FileKey(mediaPath, a.model)
	if err != nil {
		return nil, err
	}

	if jb, ok, err := c.GetBytes(key, ".json"); err == nil && ok {
		a.Logf("transcript cache hit for %s", filepath.Base(mediaPath))
		return parse(jb)
	}

	outPrefix := filepath.Join(cacheDir, "whisper-"+key[:12])
	args := []string{
		"-m", a.model,
		"-f", mediaPath,
		"-oj",
		"-ml", "1",
		"-of", outPrefix,
	}
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("whisper.cpp failed: %w\n%s", err, string(b))
	}

	jb, err := os.ReadFile(outPrefix + ".json")
	if err != nil {
		return nil, err
	}
	defer os.Remove(outPrefix + ".json")

	words, err := parse(jb)
	if err != nil {
		return nil, err
	}
	if _, err := c.PutBytes(key, ".json", jb); err != nil {
		a.Logf("transcript cache write failed: %v", err)
	}
	return words, nil
}

func parse(jb []byte) ([]types.TimedWord, error) {
	var tr types.Transcript
	if err := json.Unmarshal(jb, &tr); err != nil {
		return nil, fmt.Errorf("parse whisper output: %w", err)
	}
	return transcript.Flatten(tr), nil
}
