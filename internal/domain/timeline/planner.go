// Package timeline plans frame-exact segment decompositions for
// stitching clips with crossfades. All arithmetic is integer frames at
// a shared fps; seconds only appear at the conversion boundary.
package timeline

import (
	"fmt"
	"math"
)

type SegmentKind int

const (
	// Passthrough segments are frame ranges cut from one source clip
	// and normalized without a blend.
	Passthrough SegmentKind = iota
	// Transition segments blend the tail of Clip against the head of
	// Clip+1 over Frames frames.
	Transition
)

func (k SegmentKind) String() string {
	if k == Transition {
		return "transition"
	}
	return "passthrough"
}

// Segment is a planned frame range in timeline order. For Passthrough,
// Start/Frames address the source clip. For Transition, Frames is the
// fade length; the blend covers the last Frames of Clip and the first
// Frames of Clip+1.
type Segment struct {
	Kind   SegmentKind
	Clip   int
	Start  int
	Frames int
}

// Plan is a full decomposition of an N-clip timeline.
type Plan struct {
	ClipFrames []int
	Fades      []int
	Segments   []Segment
}

// Frames converts seconds to an exact frame count at fps.
func Frames(seconds float64, fps int) int {
	return int(math.Round(seconds * float64(fps)))
}

// RequestedFadeFrames converts a crossfade duration to frames, never
// below one frame.
func RequestedFadeFrames(fadeSeconds float64, fps int) int {
	f := Frames(fadeSeconds, fps)
	if f < 1 {
		f = 1
	}
	return f
}

// FadeFrames resolves the per-pair fade lengths: the requested length
// capped by the shorter of each adjoining pair, never below one frame.
func FadeFrames(requested int, clipFrames []int) []int {
	if len(clipFrames) < 2 {
		return nil
	}
	fades := make([]int, len(clipFrames)-1)
	for i := range fades {
		f := requested
		if clipFrames[i] < f {
			f = clipFrames[i]
		}
		if clipFrames[i+1] < f {
			f = clipFrames[i+1]
		}
		if f < 1 {
			f = 1
		}
		fades[i] = f
	}
	return fades
}

// PlanSegments decomposes the timeline into pass-through and transition
// segments, in strict order. overrides, when its length matches the
// pair count, replaces the computed fades (used when upstream timing
// already fixed transition lengths). Planning is pure: identical inputs
// always yield identical boundaries.
func PlanSegments(clipFrames []int, requestedFade int, overrides []int) (Plan, error) {
	n := len(clipFrames)
	if n < 2 {
		return Plan{}, fmt.Errorf("timeline: need at least 2 clips, got %d", n)
	}
	for i, f := range clipFrames {
		if f <= 0 {
			// A zero-length clip inside a multi-clip timeline would
			// silently swallow a transition; stop instead.
			return Plan{}, fmt.Errorf("timeline: clip %d has no frames", i)
		}
	}

	var fades []int
	if len(overrides) == n-1 {
		fades = make([]int, n-1)
		for i, v := range overrides {
			if v < 1 {
				v = 1
			}
			fades[i] = v
		}
	} else {
		fades = FadeFrames(requestedFade, clipFrames)
	}

	plan := Plan{ClipFrames: clipFrames, Fades: fades}

	add := func(s Segment) {
		if s.Frames > 0 {
			plan.Segments = append(plan.Segments, s)
		}
	}

	// Pre of the first clip.
	add(Segment{Kind: Passthrough, Clip: 0, Start: 0, Frames: clipFrames[0] - fades[0]})

	for i := 0; i < n-1; i++ {
		add(Segment{Kind: Transition, Clip: i, Frames: fades[i]})

		// Mid of the following clip when it is interior.
		j := i + 1
		if j < n-1 {
			add(Segment{
				Kind:   Passthrough,
				Clip:   j,
				Start:  fades[i],
				Frames: clipFrames[j] - fades[i] - fades[j],
			})
		}
	}

	// Post of the last clip.
	add(Segment{
		Kind:   Passthrough,
		Clip:   n - 1,
		Start:  fades[n-2],
		Frames: clipFrames[n-1] - fades[n-2],
	})

	return plan, nil
}

// TotalFrames is the combined timeline length: the clips minus the
// overlapped fade windows.
func (p Plan) TotalFrames() int {
	total := 0
	for _, f := range p.ClipFrames {
		total += f
	}
	for _, f := range p.Fades {
		total -= f
	}
	return total
}

// SegmentFrames sums the planned segments. It must equal TotalFrames;
// a mismatch means a planning bug upstream.
func (p Plan) SegmentFrames() int {
	total := 0
	for _, s := range p.Segments {
		total += s.Frames
	}
	return total
}
