// Package transcript flattens ASR output into the timeline word model
// and locates narration phrases inside it.
package transcript

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/reelsmith/reelsmith/internal/types"
)

var tokenRe = regexp.MustCompile(`[A-Za-z0-9']+`)
var stripRe = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize reduces a token to lowercase alphanumerics so punctuation
// and casing differences between script text and ASR output never
// break matching.
func Normalize(s string) string {
	return stripRe.ReplaceAllString(strings.ToLower(s), "")
}

// Flatten turns a segmented transcript into the flat, time-ordered word
// list the caption and alignment layers consume. Segments without word
// timestamps contribute a single segment-level pseudo-word so the
// pipeline stays functional on degraded ASR output.
func Flatten(tr types.Transcript) []types.TimedWord {
	var out []types.TimedWord
	for _, seg := range tr.Segments {
		if len(seg.Words) == 0 {
			text := strings.TrimSpace(seg.Text)
			if text == "" {
				continue
			}
			out = append(out, types.TimedWord{Text: text, Start: seg.Start, End: seg.End})
			continue
		}
		for _, w := range seg.Words {
			text := strings.TrimSpace(w.Word)
			if text == "" {
				continue
			}
			out = append(out, types.TimedWord{Text: text, Start: w.Start, End: w.End})
		}
	}
	return out
}

// Span is a located phrase's time range in the narration.
type Span struct {
	Start float64
	End   float64
}

// Locate finds the time span of phrase within words. Exact match on
// normalized tokens is tried first; failing that, the best-ratio fuzzy
// window of length m-2..m+2 wins. The fuzzy path always returns a span,
// so a slightly misheard word cannot sink a whole scene.
func Locate(words []types.TimedWord, phrase string) (Span, error) {
	var target []string
	for _, tok := range tokenRe.FindAllString(phrase, -1) {
		if n := Normalize(tok); n != "" {
			target = append(target, n)
		}
	}
	if len(target) == 0 {
		return Span{}, fmt.Errorf("transcript: phrase %q yields no tokens", phrase)
	}
	if len(words) == 0 {
		return Span{}, fmt.Errorf("transcript: no words to search")
	}

	vocab := make([]string, len(words))
	for i, w := range words {
		vocab[i] = Normalize(w.Text)
	}
	m := len(target)

	// Exact sliding-window match.
	for i := 0; i+m <= len(vocab); i++ {
		if equal(vocab[i:i+m], target) {
			return Span{Start: words[i].Start, End: words[i+m-1].End}, nil
		}
	}

	// Fuzzy: best similarity over windows around the target length.
	targetJoin := strings.Join(target, " ")
	bestRatio := -1.0
	bestLo, bestHi := 0, 0

	minLen := m - 2
	if minLen < 1 {
		minLen = 1
	}
	maxLen := m + 2
	if maxLen > len(vocab) {
		maxLen = len(vocab)
	}
	for l := minLen; l <= maxLen; l++ {
		for i := 0; i+l <= len(vocab); i++ {
			cand := strings.Join(vocab[i:i+l], " ")
			if r := ratio(cand, targetJoin); r > bestRatio {
				bestRatio = r
				bestLo, bestHi = i, i+l-1
			}
		}
	}
	return Span{Start: words[bestLo].Start, End: words[bestHi].End}, nil
}

// TotalDuration is the end of the last word, or zero for an empty list.
func TotalDuration(words []types.TimedWord) float64 {
	if len(words) == 0 {
		return 0
	}
	return words[len(words)-1].End
}

func equal(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ratio is a similarity in [0,1]: twice the longest common subsequence
// over the combined length.
func ratio(a, b string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 1
	}
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	lcs := prev[len(rb)]
	return 2 * float64(lcs) / float64(len(ra)+len(rb))
}
