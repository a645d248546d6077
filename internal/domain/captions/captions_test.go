package captions

import (
	"math"
	"strings"
	"testing"

	"github.com/reelsmith/reelsmith/internal/types"
)

// evenly spaced words, 0.5s apart, 0.4s long each.
func makeWords(texts ...string) []types.TimedWord {
	words := make([]types.TimedWord, len(texts))
	for i, txt := range texts {
		start := float64(i) * 0.5
		words[i] = types.TimedWord{Text: txt, Start: start, End: start + 0.4}
	}
	return words
}

func TestWindows_SevenWordSentence(t *testing.T) {
	t.Parallel()

	// window_size=5, one 7-word sentence: a 5-word window with 5
	// highlight steps, then a 2-word window with 2 steps.
	words := makeWords("one", "two", "three", "four", "five", "six", "seven.")
	wins := Windows(words, 4.0, Config{WindowSize: 5, PreRoll: 0.02, PostRoll: 0.10})

	if len(wins) != 7 {
		t.Fatalf("expected 7 highlight events, got %d", len(wins))
	}
	for i, w := range wins[:5] {
		if len(w.Words) != 5 {
			t.Fatalf("window %d has %d words, want 5", i, len(w.Words))
		}
		if w.Highlight != i {
			t.Fatalf("window %d highlight = %d", i, w.Highlight)
		}
	}
	for i, w := range wins[5:] {
		if len(w.Words) != 2 {
			t.Fatalf("window %d has %d words, want 2", 5+i, len(w.Words))
		}
		if w.Highlight != i {
			t.Fatalf("window %d highlight = %d", 5+i, w.Highlight)
		}
	}
}

func TestWindows_SpansTileWithoutGaps(t *testing.T) {
	t.Parallel()

	words := makeWords("alpha", "beta", "gamma.", "delta", "epsilon", "zeta", "eta", "theta.", "iota")
	total := 4.45 // last word ends at 4.4; narration tail within post-roll
	wins := Windows(words, total, DefaultConfig())
	if len(wins) == 0 {
		t.Fatalf("no windows produced")
	}

	for k := 0; k+1 < len(wins); k++ {
		if wins[k].End != wins[k+1].Start {
			t.Fatalf("window %d end %.4f != window %d start %.4f", k, wins[k].End, k+1, wins[k+1].Start)
		}
	}
	last := wins[len(wins)-1]
	if math.Abs(last.End-total) > 1e-9 {
		t.Fatalf("final window ends at %.4f, want total duration %.4f", last.End, total)
	}
	for k, w := range wins {
		if w.End < w.Start {
			t.Fatalf("window %d has negative span [%.4f, %.4f)", k, w.Start, w.End)
		}
	}
}

func TestWindows_NeverCrossSentenceBoundary(t *testing.T) {
	t.Parallel()

	// Three words, then a terminator: the second window must restart at
	// the sentence break even though window_size is 5.
	words := makeWords("a", "b", "c.", "d", "e")
	wins := Windows(words, 4.0, DefaultConfig())

	for _, w := range wins {
		texts := make([]string, len(w.Words))
		for i, tw := range w.Words {
			texts[i] = tw.Text
		}
		joined := strings.Join(texts, " ")
		if strings.Contains(joined, "c.") && strings.Contains(joined, "d") {
			t.Fatalf("window crosses sentence boundary: %q", joined)
		}
	}
}

func TestWindows_EmptyInputIsNoOp(t *testing.T) {
	t.Parallel()

	if wins := Windows(nil, 10.0, DefaultConfig()); wins != nil {
		t.Fatalf("expected nil windows for empty transcript, got %d", len(wins))
	}
}

func TestWindows_LastWordHoldPrecedence(t *testing.T) {
	t.Parallel()

	// Sentence-local next window wins over the next sentence and over
	// total duration: the hold of "b." must stop at "c"'s start (capped
	// by post-roll), not run to the end of narration.
	words := []types.TimedWord{
		{Text: "a", Start: 0.0, End: 0.4},
		{Text: "b.", Start: 0.5, End: 0.9},
		{Text: "c", Start: 2.0, End: 2.4},
	}
	wins := Windows(words, 10.0, Config{WindowSize: 5, PreRoll: 0.02, PostRoll: 0.10})
	if len(wins) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(wins))
	}
	// "b." is the last word of its sentence; its hold is capped by
	// end+post-roll = 1.0, well before "c" starts.
	if got := wins[1].End; math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("sentence-final hold ends at %.4f, want 1.0", got)
	}
	// "c" is the last word overall; it holds to min(total, end+post).
	if got := wins[2].End; math.Abs(got-2.5) > 1e-9 {
		t.Fatalf("final hold ends at %.4f, want 2.5", got)
	}
	// The gap between sentences is covered by the next window starting
	// exactly at the previous end.
	if wins[2].Start != wins[1].End {
		t.Fatalf("window 2 start %.4f != window 1 end %.4f", wins[2].Start, wins[1].End)
	}
}

func TestWindows_CapsAtTotalDuration(t *testing.T) {
	t.Parallel()

	words := []types.TimedWord{{Text: "word", Start: 0.0, End: 5.0}}
	wins := Windows(words, 2.0, DefaultConfig())
	if len(wins) != 1 {
		t.Fatalf("expected 1 window, got %d", len(wins))
	}
	if wins[0].End != 2.0 {
		t.Fatalf("window end %.4f exceeds total duration", wins[0].End)
	}
}

func TestSplitSentences(t *testing.T) {
	t.Parallel()

	words := makeWords("hello", "world!", "next", "one?", "tail")
	got := SplitSentences(words)
	want := [][2]int{{0, 2}, {2, 4}, {4, 5}}
	if len(got) != len(want) {
		t.Fatalf("sentences = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sentence %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestRenderASS(t *testing.T) {
	t.Parallel()

	words := makeWords("first", "second.")
	wins := Windows(words, 2.0, DefaultConfig())
	out := RenderASS(wins, 1080, 1920)

	if !strings.Contains(out, "PlayResX: 1080") || !strings.Contains(out, "PlayResY: 1920") {
		t.Fatalf("missing play resolution:\n%s", out)
	}
	if got := strings.Count(out, "Dialogue: "); got != len(wins) {
		t.Fatalf("%d dialogue events for %d windows", got, len(wins))
	}
	// Exactly one highlighted word per event.
	for _, line := range strings.Split(out, "\n") {
		if !strings.HasPrefix(line, "Dialogue: ") {
			continue
		}
		if strings.Count(line, "\\b1") != 1 {
			t.Fatalf("event does not highlight exactly one word: %q", line)
		}
	}
}

func TestRenderASS_SanitizesBraces(t *testing.T) {
	t.Parallel()

	words := []types.TimedWord{{Text: "{weird}", Start: 0, End: 0.5}}
	out := RenderASS(Windows(words, 1.0, DefaultConfig()), 1080, 1920)
	if strings.Contains(out, "{weird}") {
		t.Fatalf("braces not sanitized:\n%s", out)
	}
	if !strings.Contains(out, "(weird)") {
		t.Fatalf("sanitized text missing:\n%s", out)
	}
}
