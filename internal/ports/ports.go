package ports

import (
	"context"

	"github.com/reelsmith/reelsmith/internal/domain/motion"
	"github.com/reelsmith/reelsmith/internal/types"
)

// ClipRenderer is the video backend. Implementations must produce CFR
// output with the exact requested frame count and identical encoding
// parameters on every encode path, so segments concatenate losslessly.
type ClipRenderer interface {
	// RenderMotion materializes a motion plan as an encoded clip of
	// exactly plan.Frames frames.
	RenderMotion(ctx context.Context, plan motion.Plan, outPath string) error
	// CutSegment extracts frames [startFrame, startFrame+frames) of src
	// with a frame-indexed cut, re-encoded only for format
	// normalization.
	CutSegment(ctx context.Context, src, dst string, startFrame, frames, fps int) error
	// RenderTransition blends the last fadeFrames of a against the
	// first fadeFrames of b with a time-based cross-dissolve.
	RenderTransition(ctx context.Context, a, b, dst string, aFrames, fadeFrames, fps int) error
	// CrossfadeAV joins two clips with a video cross-dissolve and an
	// audio crossfade of identical duration, starting at offset seconds
	// into a.
	CrossfadeAV(ctx context.Context, a, b, dst string, fadeSeconds, offsetSeconds float64, fps int) error
	// ConcatAV re-encodes the inputs into one normalized file; used for
	// the zero-fade AV join where stream parameters may differ.
	ConcatAV(ctx context.Context, srcs []string, dst string, fps int) error
	// MuxAudio attaches an audio track to a video without touching
	// video timing; audioOffsetSeconds prepends silence when positive.
	MuxAudio(ctx context.Context, videoIn, audioIn, dst string, audioOffsetSeconds float64) error
	// BurnCaptions renders an ASS subtitle track onto the video.
	BurnCaptions(ctx context.Context, videoIn, assPath, dst string) error
	// CopyClip stream-copies src to dst.
	CopyClip(ctx context.Context, src, dst string) error
}

// Concatenator losslessly joins segments that share identical encoding
// parameters. It must not re-encode.
type Concatenator interface {
	Concat(ctx context.Context, segments []string, dst string) error
}

// Prober inspects media files. A field unavailable in the container is
// reported as zero, never as an error, so callers can walk the fallback
// chain.
type Prober interface {
	// FrameCount returns the video stream's frame count, trying stream
	// metadata first and a full frame count second; 0 when unknown.
	FrameCount(ctx context.Context, path string) (int, error)
	FPS(ctx context.Context, path string) (float64, error)
	// Duration is the container-level duration in seconds.
	Duration(ctx context.Context, path string) (float64, error)
	// StreamDuration prefers frame count over fps and falls back to the
	// container duration.
	StreamDuration(ctx context.Context, path string) (float64, error)
	Dimensions(ctx context.Context, path string) (w, h int, err error)
}

// Transcriber produces the flat, time-ordered word list for a media
// file. A zero-word result is legitimate (silence).
type Transcriber interface {
	Transcribe(ctx context.Context, mediaPath, cacheDir string) ([]types.TimedWord, error)
}

// SpeechSynth turns narration text into an audio file and returns its
// path. previousText carries prosody continuity between sections.
type SpeechSynth interface {
	Synthesize(ctx context.Context, text, previousText string) (string, error)
}

// ImageGenerator produces a still image for a scene description and
// returns its path.
type ImageGenerator interface {
	Generate(ctx context.Context, description, aspect string) (string, error)
}

// ScriptModel is the language-model collaborator: it rewrites a long
// script into short narration, plans scenes, and drafts upload
// metadata.
type ScriptModel interface {
	Narration(ctx context.Context, script string) (string, error)
	PlanScenes(ctx context.Context, narration string) ([]types.ScenePlan, error)
	Metadata(ctx context.Context, narration string) (types.Metadata, error)
}

// Publisher uploads a finished video.
type Publisher interface {
	Publish(ctx context.Context, videoPath string, meta types.Metadata) (string, error)
}
