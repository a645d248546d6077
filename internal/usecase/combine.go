package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/reelsmith/reelsmith/internal/domain/timeline"
)

// Combine stitches silent clips into one video with frame-exact
// crossfades. Cut and transition segments share one encode parameter
// set, so the final join is a lossless concat. Segment temporaries live
// in a scratch dir that is removed whether or not the join succeeds.
func (u Usecase) Combine(ctx context.Context, clips []string, clipFrames []int, fadeFrames, fps int, dst string) error {
	if len(clips) == 0 {
		return fmt.Errorf("combine: no clips")
	}
	if len(clips) != len(clipFrames) {
		return fmt.Errorf("combine: %d clips but %d frame counts", len(clips), len(clipFrames))
	}
	if len(clips) == 1 || fadeFrames <= 0 {
		return u.combinePlain(ctx, clips, dst)
	}

	plan, err := timeline.PlanSegments(clipFrames, fadeFrames, nil)
	if err != nil {
		return fmt.Errorf("combine: %w", err)
	}

	scratch, err := os.MkdirTemp(filepath.Dir(dst), "segments-")
	if err != nil {
		return fmt.Errorf("combine: scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	paths := make([]string, 0, len(plan.Segments))
	for i, seg := range plan.Segments {
		segPath := filepath.Join(scratch, fmt.Sprintf("seg-%03d.mp4", i))
		switch seg.Kind {
		case timeline.Passthrough:
			err = u.d.Renderer.CutSegment(ctx, clips[seg.Clip], segPath, seg.Start, seg.Frames, fps)
		case timeline.Transition:
			err = u.d.Renderer.RenderTransition(ctx, clips[seg.Clip], clips[seg.Clip+1], segPath,
				clipFrames[seg.Clip], seg.Frames, fps)
		default:
			err = fmt.Errorf("unknown segment kind %v", seg.Kind)
		}
		if err != nil {
			return fmt.Errorf("combine segment %d: %w", i, err)
		}
		paths = append(paths, segPath)
	}

	if err := u.d.Joiner.Concat(ctx, paths, dst); err != nil {
		return fmt.Errorf("combine concat: %w", err)
	}
	u.d.Logf("combined %d clips into %d segments (%d frames)", len(clips), len(plan.Segments), plan.TotalFrames())
	return nil
}

// combinePlain handles the degenerate cases: one clip is copied,
// several clips with no fade are joined losslessly since every clip
// already carries the shared encode parameters.
func (u Usecase) combinePlain(ctx context.Context, clips []string, dst string) error {
	if len(clips) == 1 {
		if err := u.d.Renderer.CopyClip(ctx, clips[0], dst); err != nil {
			return fmt.Errorf("combine copy: %w", err)
		}
		return nil
	}
	if err := u.d.Joiner.Concat(ctx, clips, dst); err != nil {
		return fmt.Errorf("combine concat: %w", err)
	}
	return nil
}

// JoinAV chains finished audio+video clips with matched video and
// audio crossfades. The fade for each pair is capped by the shorter
// neighbor, and the xfade offset is taken from the probed duration of
// the accumulated left side. A negative fadeSeconds picks a duration
// from the clip lengths; zero means a plain join.
func (u Usecase) JoinAV(ctx context.Context, clips []string, fadeSeconds float64, fps int, dst string) error {
	switch {
	case len(clips) == 0:
		return fmt.Errorf("join: no clips")
	case len(clips) == 1:
		if err := u.d.Renderer.CopyClip(ctx, clips[0], dst); err != nil {
			return fmt.Errorf("join copy: %w", err)
		}
		return nil
	}
	if fadeSeconds < 0 {
		durs := make([]float64, len(clips))
		for i, c := range clips {
			d, err := u.d.Probe.StreamDuration(ctx, c)
			if err != nil {
				return fmt.Errorf("join: probe %s: %w", c, err)
			}
			durs[i] = d
		}
		fadeSeconds = timeline.DefaultCrossfade(durs)
		u.d.Logf("auto crossfade: %.2fs", fadeSeconds)
	}
	if fadeSeconds == 0 {
		if err := u.d.Renderer.ConcatAV(ctx, clips, dst, fps); err != nil {
			return fmt.Errorf("join concat: %w", err)
		}
		return nil
	}

	scratch, err := os.MkdirTemp(filepath.Dir(dst), "join-")
	if err != nil {
		return fmt.Errorf("join: scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	acc := clips[0]
	for i := 1; i < len(clips); i++ {
		durA, err := u.d.Probe.StreamDuration(ctx, acc)
		if err != nil {
			return fmt.Errorf("join: probe %s: %w", acc, err)
		}
		durB, err := u.d.Probe.StreamDuration(ctx, clips[i])
		if err != nil {
			return fmt.Errorf("join: probe %s: %w", clips[i], err)
		}
		if durA <= 0 || durB <= 0 {
			return fmt.Errorf("join: unknown duration for pair %d (%f, %f)", i, durA, durB)
		}

		fade := fadeSeconds
		if durA < fade {
			fade = durA
		}
		if durB < fade {
			fade = durB
		}
		offset := durA - fade

		out := dst
		if i < len(clips)-1 {
			out = filepath.Join(scratch, fmt.Sprintf("acc-%03d.mp4", i))
		}
		if err := u.d.Renderer.CrossfadeAV(ctx, acc, clips[i], out, fade, offset, fps); err != nil {
			return fmt.Errorf("join pair %d: %w", i, err)
		}
		acc = out
	}
	return nil
}
