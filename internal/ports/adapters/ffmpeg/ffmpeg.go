// Package ffmpeg implements the rendering backend on top of the ffmpeg
// CLI. Filter graphs are assembled with ffmpeg-go and executed through
// exec so calls honor the caller's context and failures carry stderr.
package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	ffmpego "github.com/u2takey/ffmpeg-go"

	"github.com/reelsmith/reelsmith/internal/domain/motion"
	"github.com/reelsmith/reelsmith/internal/ports"
)

type Adapter struct {
	bin string
}

var (
	_ ports.ClipRenderer = (*Adapter)(nil)
	_ ports.Concatenator = (*Adapter)(nil)
)

func New(ffmpegPath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	return &Adapter{bin: ffmpegPath}
}

// encodeArgs is the single parameter set shared by every encode path.
// Segments joined by the concat demuxer must agree on codec, profile,
// level, pixel format, frame rate and timescale; diverging any of these
// between cut and transition renders breaks the lossless join.
func encodeArgs(fps int) ffmpego.KwArgs {
	return ffmpego.KwArgs{
		"c:v":                   "libx264",
		"preset":                "ultrafast",
		"crf":                   "20",
		"profile:v":             "baseline",
		"level:v":               "4.2",
		"fps_mode":              "cfr",
		"r":                     strconv.Itoa(fps),
		"pix_fmt":               "yuv420p",
		"movflags":              "+faststart",
		"video_track_timescale": "15360",
	}
}

func audioArgs() ffmpego.KwArgs {
	return ffmpego.KwArgs{"c:a": "aac", "ar": "48000", "ac": "2"}
}

func merge(sets ...ffmpego.KwArgs) ffmpego.KwArgs {
	out := ffmpego.KwArgs{}
	for _, kw := range sets {
		for k, v := range kw {
			out[k] = v
		}
	}
	return out
}

func (a *Adapter) RenderMotion(ctx context.Context, plan motion.Plan, outPath string) error {
	stream := ffmpego.Input(plan.ImagePath, ffmpego.KwArgs{"loop": "1"}).
		Output(outPath, merge(encodeArgs(plan.FPS), ffmpego.KwArgs{
			"vf":       plan.Filter(),
			"frames:v": strconv.Itoa(plan.Frames),
			"an":       "",
		}))
	return a.run(ctx, stream, fmt.Sprintf("render motion %s", plan.ImagePath))
}

// CutSegment extracts frames [startFrame, startFrame+frames) by index
// and rebases their timestamps so the segment starts at zero.
func (a *Adapter) CutSegment(ctx context.Context, src, dst string, startFrame, frames, fps int) error {
	if frames < 1 {
		frames = 1
	}
	endFrame := startFrame + frames - 1
	vf := fmt.Sprintf(
		"select='between(n,%d,%d)',settb=AVTB,setpts=N/(%d*TB),fps=%d,format=yuv420p",
		startFrame, endFrame, fps, fps,
	)
	stream := ffmpego.Input(src).
		Output(dst, merge(encodeArgs(fps), ffmpego.KwArgs{
			"vf":       vf,
			"frames:v": strconv.Itoa(frames),
			"an":       "",
		}))
	return a.run(ctx, stream, fmt.Sprintf("cut %s [%d,%d)", src, startFrame, startFrame+frames))
}

// RenderTransition cross-dissolves the last fadeFrames of a into the
// first fadeFrames of b. Both sides are rebased to t=0, so the xfade
// offset is always zero and the filtergraph dictates the frame count.
func (a *Adapter) RenderTransition(ctx context.Context, aPath, bPath, dst string, aFrames, fadeFrames, fps int) error {
	startA := aFrames - fadeFrames
	if startA < 0 {
		startA = 0
	}
	endA := aFrames - 1
	if endA < 0 {
		endA = 0
	}
	endB := fadeFrames - 1
	if endB < 0 {
		endB = 0
	}
	fadeSeconds := float64(maxInt(1, fadeFrames)) / float64(fps)

	va := selectFrames(ffmpego.Input(aPath), startA, endA, fps)
	vb := selectFrames(ffmpego.Input(bPath), 0, endB, fps)
	blended := ffmpego.Filter([]*ffmpego.Stream{va, vb}, "xfade",
		ffmpego.Args{fmt.Sprintf("transition=fade:duration=%.9f:offset=0", fadeSeconds)}).
		Filter("format", ffmpego.Args{"yuv420p"})

	stream := blended.Output(dst, merge(encodeArgs(fps), ffmpego.KwArgs{"an": ""}))
	return a.run(ctx, stream, fmt.Sprintf("transition %s -> %s", aPath, bPath))
}

func selectFrames(in *ffmpego.Stream, start, end, fps int) *ffmpego.Stream {
	return in.
		Filter("select", ffmpego.Args{fmt.Sprintf("between(n,%d,%d)", start, end)}).
		Filter("settb", ffmpego.Args{"AVTB"}).
		Filter("setpts", ffmpego.Args{fmt.Sprintf("N/(%d*TB)", fps)}).
		Filter("fps", ffmpego.Args{strconv.Itoa(fps)})
}

// CrossfadeAV blends video with xfade and audio with acrossfade of the
// same duration, offset seconds into the first clip.
func (a *Adapter) CrossfadeAV(ctx context.Context, aPath, bPath, dst string, fadeSeconds, offsetSeconds float64, fps int) error {
	inA := ffmpego.Input(aPath)
	inB := ffmpego.Input(bPath)

	v := ffmpego.Filter([]*ffmpego.Stream{inA.Video(), inB.Video()}, "xfade",
		ffmpego.Args{fmt.Sprintf("transition=fade:duration=%.9f:offset=%.9f", fadeSeconds, offsetSeconds)}).
		Filter("fps", ffmpego.Args{strconv.Itoa(fps)}).
		Filter("format", ffmpego.Args{"yuv420p"})
	aud := ffmpego.Filter([]*ffmpego.Stream{inA.Audio(), inB.Audio()}, "acrossfade",
		ffmpego.Args{fmt.Sprintf("d=%.9f:c1=tri:c2=tri", fadeSeconds)})

	stream := ffmpego.Output([]*ffmpego.Stream{v, aud}, dst, merge(encodeArgs(fps), audioArgs()))
	return a.run(ctx, stream, fmt.Sprintf("crossfade av %s -> %s", aPath, bPath))
}

// ConcatAV joins clips through the concat demuxer with a normalizing
// re-encode; used when no fade is requested but stream parameters may
// differ.
func (a *Adapter) ConcatAV(ctx context.Context, srcs []string, dst string, fps int) error {
	list, err := writeConcatList(srcs)
	if err != nil {
		return err
	}
	defer os.Remove(list)

	stream := ffmpego.Input(list, ffmpego.KwArgs{"f": "concat", "safe": "0"}).
		Output(dst, merge(encodeArgs(fps), audioArgs()))
	return a.run(ctx, stream, fmt.Sprintf("concat av %d clips", len(srcs)))
}

func (a *Adapter) MuxAudio(ctx context.Context, videoIn, audioIn, dst string, audioOffsetSeconds float64) error {
	inV := ffmpego.Input(videoIn)
	aud := ffmpego.Input(audioIn).Audio()
	if audioOffsetSeconds > 0 {
		delayMs := int(audioOffsetSeconds*1000 + 0.5)
		aud = aud.Filter("adelay", ffmpego.Args{fmt.Sprintf("%d:all=1", delayMs)})
	}
	stream := ffmpego.Output([]*ffmpego.Stream{inV.Video(), aud}, dst,
		merge(ffmpego.KwArgs{"c:v": "copy", "movflags": "+faststart"}, audioArgs()))
	return a.run(ctx, stream, fmt.Sprintf("mux audio onto %s", videoIn))
}

func (a *Adapter) BurnCaptions(ctx context.Context, videoIn, assPath, dst string) error {
	inV := ffmpego.Input(videoIn)
	v := inV.Video().Filter("ass", ffmpego.Args{EscapeFilterPath(assPath)})
	stream := ffmpego.Output([]*ffmpego.Stream{v, inV.Audio()}, dst, ffmpego.KwArgs{
		"c:v":      "libx264",
		"preset":   "medium",
		"crf":      "18",
		"pix_fmt":  "yuv420p",
		"c:a":      "copy",
		"movflags": "+faststart",
	})
	return a.run(ctx, stream, fmt.Sprintf("burn captions onto %s", videoIn))
}

func (a *Adapter) CopyClip(ctx context.Context, src, dst string) error {
	stream := ffmpego.Input(src).Output(dst, ffmpego.KwArgs{"c": "copy"})
	return a.run(ctx, stream, fmt.Sprintf("copy %s", src))
}

// Concat implements the lossless join over the concat demuxer. Inputs
// must already share encoding parameters; nothing is re-encoded here.
func (a *Adapter) Concat(ctx context.Context, segments []string, dst string) error {
	list, err := writeConcatList(segments)
	if err != nil {
		return err
	}
	defer os.Remove(list)

	stream := ffmpego.Input(list, ffmpego.KwArgs{"f": "concat", "safe": "0"}).
		Output(dst, ffmpego.KwArgs{"c": "copy"})
	return a.run(ctx, stream, fmt.Sprintf("concat %d segments", len(segments)))
}

// run compiles the graph to argv and executes it under ctx.
func (a *Adapter) run(ctx context.Context, s *ffmpego.Stream, op string) error {
	compiled := s.OverWriteOutput().Compile()
	args := compiled.Args
	if len(args) == 0 {
		return fmt.Errorf("ffmpeg %s: empty command", op)
	}
	cmd := exec.CommandContext(ctx, a.bin, args[1:]...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg %s: %w\n%s", op, err, string(b))
	}
	return nil
}

func writeConcatList(paths []string) (string, error) {
	f, err := os.CreateTemp("", "concat-*.txt")
	if err != nil {
		return "", err
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = p
		}
		// Concat demuxer list syntax: a quote inside the quoted path is
		// written as '\''.
		quoted := strings.ReplaceAll(filepath.ToSlash(abs), "'", `'\''`)
		if _, err := fmt.Fprintf(f, "file '%s'\n", quoted); err != nil {
			f.Close()
			os.Remove(f.Name())
			return "", err
		}
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// EscapeFilterPath escapes a path for use inside a filter argument.
func EscapeFilterPath(p string) string {
	p = filepath.ToSlash(p)
	p = strings.ReplaceAll(p, "\\", "\\\\")
	p = strings.ReplaceAll(p, ":", "\\:")
	return p
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
