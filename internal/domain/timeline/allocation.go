package timeline

import (
	"math"
	"sort"
)

// Boundaries turns per-scene narration start times into strictly
// increasing cut frames. Each cut lands at or after the scene's start
// (ceil, so a cut never fires early); the final boundary holds the last
// scene past its narration end by hold seconds.
func Boundaries(starts []float64, lastEnd, hold float64, fps int) []int {
	if len(starts) == 0 {
		return nil
	}
	b := make([]int, 0, len(starts)+1)
	b = append(b, 0)
	for k := 1; k < len(starts); k++ {
		next := int(math.Ceil(starts[k] * float64(fps)))
		if next < b[len(b)-1]+1 {
			next = b[len(b)-1] + 1
		}
		b = append(b, next)
	}
	last := int(math.Ceil((lastEnd + hold) * float64(fps)))
	if last < b[len(b)-1]+1 {
		last = b[len(b)-1] + 1
	}
	return append(b, last)
}

// Spans converts boundaries to per-scene frame spans.
func Spans(boundaries []int) []int {
	if len(boundaries) < 2 {
		return nil
	}
	spans := make([]int, len(boundaries)-1)
	for i := range spans {
		s := boundaries[i+1] - boundaries[i]
		if s < 1 {
			s = 1
		}
		spans[i] = s
	}
	return spans
}

// AllocateWithFades sizes each clip so that after crossfading, every
// blend begins exactly on the next scene's span boundary. Working
// backwards: the last clip renders exactly its span, and each earlier
// clip absorbs its outgoing fade, n_i = span_i + min(fade, n_{i+1}).
// Every clip gets at least two frames so the renderer always has a
// trajectory to interpolate.
func AllocateWithFades(spans []int, fadeFrames int) []int {
	n := len(spans)
	if n == 0 {
		return nil
	}
	if fadeFrames < 1 {
		fadeFrames = 1
	}
	out := make([]int, n)
	out[n-1] = atLeast(spans[n-1], 2)
	for i := n - 2; i >= 0; i-- {
		f := fadeFrames
		if out[i+1] < f {
			f = out[i+1]
		}
		out[i] = atLeast(spans[i]+f, 2)
	}
	return out
}

// SplitFrames distributes round(sum(durations)*fps) frames over the
// durations by floor plus largest fractional remainder, so per-item
// rounding never drifts the total.
func SplitFrames(durations []float64, fps int) []int {
	n := len(durations)
	if n == 0 {
		return nil
	}
	exact := make([]float64, n)
	base := make([]int, n)
	sum := 0.0
	baseSum := 0
	for i, d := range durations {
		exact[i] = d * float64(fps)
		base[i] = int(math.Floor(exact[i]))
		sum += exact[i]
		baseSum += base[i]
	}
	deficit := int(math.Round(sum)) - baseSum

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		ra := exact[order[a]] - float64(base[order[a]])
		rb := exact[order[b]] - float64(base[order[b]])
		return ra > rb
	})
	for k := 0; k < deficit && k < n; k++ {
		base[order[k]]++
	}
	return base
}

// DefaultCrossfade picks a crossfade duration from the scene durations:
// a quarter of the shortest scene, clamped to [0.1s, 0.5s].
func DefaultCrossfade(durations []float64) float64 {
	if len(durations) == 0 {
		return 0.5
	}
	min := durations[0]
	for _, d := range durations[1:] {
		if d < min {
			min = d
		}
	}
	return math.Min(0.5, math.Max(0.1, min/4))
}

func atLeast(v, floor int) int {
	if v < floor {
		return floor
	}
	return v
}
