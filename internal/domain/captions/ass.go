package captions

import (
	"fmt"
	"strings"
	"time"
)

// highlightColor is FFD60A in ASS BGR order.
const highlightColor = "&H0AD6FF&"

// RenderASS serializes caption windows as an ASS track sized for the
// given frame. Every window becomes one Dialogue event showing the full
// snippet with exactly one word emphasized; moving the emphasis within
// a window emits a new event with a different span.
func RenderASS(windows []Window, frameW, frameH int) string {
	var b strings.Builder
	b.WriteString(header(frameW, frameH))
	b.WriteString("\n[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, win := range windows {
		b.WriteString("Dialogue: 0,")
		b.WriteString(assTime(secs(win.Start)))
		b.WriteString(",")
		b.WriteString(assTime(secs(win.End)))
		b.WriteString(",Reel,,0,0,0,,")
		for i, w := range win.Words {
			if i > 0 {
				b.WriteString(" ")
			}
			text := sanitize(w.Text)
			if i == win.Highlight {
				b.WriteString(fmt.Sprintf("{\\c%s\\b1}%s{\\r}", highlightColor, text))
			} else {
				b.WriteString(text)
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

func header(frameW, frameH int) string {
	return fmt.Sprintf(strings.TrimSpace(`
[Script Info]
ScriptType: v4.00+
PlayResX: %d
PlayResY: %d
ScaledBorderAndShadow: yes

[V4+ Styles]
Format: Name, Fontname, Fontsize, PrimaryColour, SecondaryColour, OutlineColour, BackColour, Bold, Italic, Underline, StrikeOut, ScaleX, ScaleY, Spacing, Angle, BorderStyle, Outline, Shadow, Alignment, MarginL, MarginR, MarginV, Encoding
Style: Reel, Inter, 72, &H00FFFFFF, &H000AD6FF, &H00000000, &H64000000, 1,0,0,0,100,100,0,0,1,8,0,2, 80,80,%d,1
`), frameW, frameH, frameH/4)
}

func assTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	hs := int(d / time.Hour)
	d -= time.Duration(hs) * time.Hour
	ms := int(d / time.Minute)
	d -= time.Duration(ms) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	cs := int(d / (10 * time.Millisecond))
	return fmt.Sprintf("%d:%02d:%02d.%02d", hs, ms, s, cs)
}

func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "{", "(")
	s = strings.ReplaceAll(s, "}", ")")
	return strings.TrimSpace(s)
}

func secs(sec float64) time.Duration { return time.Duration(sec * float64(time.Second)) }
