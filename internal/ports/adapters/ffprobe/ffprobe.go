// Package ffprobe implements media inspection over the ffprobe CLI.
package ffprobe

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/reelsmith/reelsmith/internal/ports"
)

type Adapter struct {
	bin string
}

var _ ports.Prober = (*Adapter)(nil)

func New(ffprobePath string) *Adapter {
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{bin: ffprobePath}
}

// FrameCount tries the cheap container metadata first and falls back to
// decoding the stream when the muxer did not record nb_frames.
func (a *Adapter) FrameCount(ctx context.Context, path string) (int, error) {
	out, err := a.probe(ctx,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=nb_frames",
		"-of", "default=nokey=1:noprint_wrappers=1",
		path,
	)
	if err != nil {
		return 0, err
	}
	if n := ParseCount(out); n > 0 {
		return n, nil
	}

	out, err = a.probe(ctx,
		"-v", "error",
		"-select_streams", "v:0",
		"-count_frames",
		"-show_entries", "stream=nb_read_frames",
		"-of", "default=nokey=1:noprint_wrappers=1",
		path,
	)
	if err != nil {
		return 0, err
	}
	return ParseCount(out), nil
}

func (a *Adapter) FPS(ctx context.Context, path string) (float64, error) {
	out, err := a.probe(ctx,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=r_frame_rate",
		"-of", "default=nokey=1:noprint_wrappers=1",
		path,
	)
	if err != nil {
		return 0, err
	}
	return ParseRate(out), nil
}

func (a *Adapter) Duration(ctx context.Context, path string) (float64, error) {
	out, err := a.probe(ctx,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=nokey=1:noprint_wrappers=1",
		path,
	)
	if err != nil {
		return 0, err
	}
	return ParseSeconds(out), nil
}

// StreamDuration prefers the frame-exact duration and falls back to the
// container duration when frames or rate are unknown.
func (a *Adapter) StreamDuration(ctx context.Context, path string) (float64, error) {
	frames, err := a.FrameCount(ctx, path)
	if err != nil {
		return 0, err
	}
	if frames > 0 {
		fps, err := a.FPS(ctx, path)
		if err != nil {
			return 0, err
		}
		if fps > 0 {
			return float64(frames) / fps, nil
		}
	}
	return a.Duration(ctx, path)
}

func (a *Adapter) Dimensions(ctx context.Context, path string) (int, int, error) {
	out, err := a.probe(ctx,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-of", "csv=s=x:p=0",
		path,
	)
	if err != nil {
		return 0, 0, err
	}
	w, h := ParseDimensions(out)
	return w, h, nil
}

func (a *Adapter) probe(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, a.bin, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ffprobe %s: %w\n%s", args[len(args)-1], err, string(b))
	}
	return strings.TrimSpace(string(b)), nil
}

// ParseCount reads an integer field, treating "N/A" and garbage as
// unknown.
func ParseCount(s string) int {
	s = strings.TrimSpace(s)
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// ParseRate reads an r_frame_rate value such as "60/1" or "30000/1001".
func ParseRate(s string) float64 {
	s = strings.TrimSpace(s)
	num, den, found := strings.Cut(s, "/")
	if !found {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || v <= 0 {
			return 0
		}
		return v
	}
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	r := n / d
	if r <= 0 {
		return 0
	}
	return r
}

// ParseSeconds reads a duration field; "N/A" maps to 0.
func ParseSeconds(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// ParseDimensions reads a "WxH" pair.
func ParseDimensions(s string) (int, int) {
	w, h, found := strings.Cut(strings.TrimSpace(s), "x")
	if !found {
		return 0, 0
	}
	wi, err := strconv.Atoi(strings.TrimSpace(w))
	if err != nil {
		return 0, 0
	}
	hi, err := strconv.Atoi(strings.TrimSpace(h))
	if err != nil {
		return 0, 0
	}
	if wi <= 0 || hi <= 0 {
		return 0, 0
	}
	return wi, hi
}
