//go:build integration

package itest

import (
	"context"
	"math"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/reelsmith/reelsmith/internal/domain/motion"
	"github.com/reelsmith/reelsmith/internal/ports/adapters/ffmpeg"
	"github.com/reelsmith/reelsmith/internal/ports/adapters/ffprobe"
	"github.com/reelsmith/reelsmith/internal/usecase"
)

// Requires ffmpeg and ffprobe on PATH; no network or API keys.
func TestMotionRenderAndCombine(t *testing.T) {
	tmp := t.TempDir()
	img := filepath.Join(tmp, "still.png")
	gen := exec.Command("ffmpeg", "-y",
		"-f", "lavfi",
		"-i", "gradients=s=1600x2400:n=4",
		"-frames:v", "1",
		img,
	)
	if b, err := gen.CombinedOutput(); err != nil {
		t.Fatalf("ffmpeg fixture failed: %v\n%s", err, string(b))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	renderer := ffmpeg.New("ffmpeg")
	probe := ffprobe.New("ffprobe")

	w, h, err := probe.Dimensions(ctx, img)
	if err != nil {
		t.Fatalf("probe image: %v", err)
	}
	if w != 1600 || h != 2400 {
		t.Fatalf("image dims = %dx%d", w, h)
	}

	const fps = 30
	planner := motion.New(1080, 1920, fps)
	frames := []int{60, 45}
	clips := make([]string, len(frames))
	for i, n := range frames {
		pl, err := planner.Plan(img, w, h, n, int64(i+1))
		if err != nil {
			t.Fatalf("plan clip %d: %v", i, err)
		}
		clips[i] = filepath.Join(tmp, "clip"+string(rune('a'+i))+".mp4")
		if err := renderer.RenderMotion(ctx, pl, clips[i]); err != nil {
			t.Fatalf("render clip %d: %v", i, err)
		}
		got, err := probe.FrameCount(ctx, clips[i])
		if err != nil {
			t.Fatalf("probe clip %d: %v", i, err)
		}
		if got != n {
			t.Fatalf("clip %d has %d frames, want %d", i, got, n)
		}
	}

	uc := usecase.New(usecase.Deps{
		Renderer: renderer,
		Joiner:   renderer,
		Probe:    probe,
		Logf:     t.Logf,
	})
	out := filepath.Join(tmp, "combined.mp4")
	const fade = 15
	if err := uc.Combine(ctx, clips, frames, fade, fps, out); err != nil {
		t.Fatalf("combine: %v", err)
	}

	got, err := probe.FrameCount(ctx, out)
	if err != nil {
		t.Fatalf("probe combined: %v", err)
	}
	want := frames[0] + frames[1] - fade
	if got != want {
		t.Fatalf("combined has %d frames, want %d", got, want)
	}

	sec, err := probe.Duration(ctx, out)
	if err != nil {
		t.Fatalf("probe duration: %v", err)
	}
	if math.Abs(sec-float64(want)/fps) > 0.1 {
		t.Fatalf("combined duration %.3fs, want %.3fs", sec, float64(want)/fps)
	}
}
