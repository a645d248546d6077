// Package captions computes word-synchronized caption display windows
// from a flat narration transcript and renders them as an ASS overlay
// track.
package captions

import (
	"strings"

	"github.com/reelsmith/reelsmith/internal/types"
)

const (
	DefaultWindowSize = 5
	DefaultPreRoll    = 0.02
	DefaultPostRoll   = 0.10
)

// terminalRunes end a sentence when they appear anywhere in a word.
const terminalRunes = ".!?…"

type Config struct {
	// WindowSize caps how many words are visible at once.
	WindowSize int
	// PreRoll lets a window appear slightly before its first word.
	PreRoll float64
	// PostRoll lets a window linger slightly past its last word.
	PostRoll float64
}

func DefaultConfig() Config {
	return Config{WindowSize: DefaultWindowSize, PreRoll: DefaultPreRoll, PostRoll: DefaultPostRoll}
}

// Window is one caption snapshot: the visible words, which of them is
// highlighted, and the exact display span in seconds.
type Window struct {
	Words     []types.TimedWord
	Highlight int
	Start     float64
	End       float64
}

type sentence struct {
	start int // first word index
	end   int // one past the last word index
}

// SplitSentences finds sentence spans: a sentence ends at a word
// carrying terminal punctuation, or at the final word.
func SplitSentences(words []types.TimedWord) [][2]int {
	var out [][2]int
	start := 0
	for i, w := range words {
		if strings.ContainsAny(w.Text, terminalRunes) || i == len(words)-1 {
			if i+1 > start {
				out = append(out, [2]int{start, i + 1})
			}
			start = i + 1
		}
	}
	return out
}

// Windows produces the full caption timeline. Within each sentence the
// visible window slides only after every word in it has been
// highlighted, and windows never straddle a sentence boundary. Window
// spans are monotone and gap-free: each window starts exactly where the
// previous one ended.
//
// An empty word list yields nil; captioning is a no-op, not an error.
func Windows(words []types.TimedWord, totalDuration float64, cfg Config) []Window {
	if len(words) == 0 {
		return nil
	}
	windowSize := cfg.WindowSize
	if windowSize < 1 {
		windowSize = 1
	}

	bounds := SplitSentences(words)
	sentences := make([]sentence, len(bounds))
	for i, b := range bounds {
		sentences[i] = sentence{start: b[0], end: b[1]}
	}

	var out []Window
	prevEnd := 0.0

	for si, s := range sentences {
		for idx := s.start; idx < s.end; {
			winStart := idx
			winEnd := winStart + windowSize
			if winEnd > s.end {
				winEnd = s.end
			}
			snippet := words[winStart:winEnd]

			for wi := winStart; wi < winEnd; wi++ {
				w := words[wi]

				var start float64
				if wi == winStart && len(out) == 0 {
					// Only the very first window may open before its
					// word; all later windows start exactly where the
					// previous one ended so the spans tile the
					// narration with no gap and no overlap.
					desired := w.Start - cfg.PreRoll
					if desired < 0 {
						desired = 0
					}
					start = max64(prevEnd, desired)
				} else {
					start = prevEnd
				}

				var next float64
				if wi < winEnd-1 {
					next = words[wi+1].Start
				} else {
					// Last word of the window: hold until the next
					// window in this sentence, else the next sentence's
					// first word, else the end of narration. This
					// precedence decides on-screen hold times; keep it.
					switch {
					case winEnd < s.end:
						next = words[winEnd].Start
					case si+1 < len(sentences):
						next = words[sentences[si+1].start].Start
					default:
						next = totalDuration
					}
					next = min64(next, w.End+cfg.PostRoll)
					next = min64(next, totalDuration)
				}

				end := min64(totalDuration, next)
				if end < start {
					end = start
				}
				if end-start <= 0 {
					continue
				}

				out = append(out, Window{
					Words:     snippet,
					Highlight: wi - winStart,
					Start:     start,
					End:       end,
				})
				prevEnd = end
			}

			idx = winEnd
		}
	}
	return out
}

func max64(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
