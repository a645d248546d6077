package types

// Transcript is the whisper.cpp JSON shape: segments with optional
// per-word timestamps.
type Transcript struct {
	Segments []Segment `json:"segments"`
}

type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
	Words []Word  `json:"words,omitempty"`
}

type Word struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Word  string  `json:"word"`
}

// TimedWord is one narration word on the flat timeline, seconds-based
// and ordered by start time.
type TimedWord struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// ScenePlan pairs an image description with the narration slice it
// should cover, as returned by the planning model.
type ScenePlan struct {
	Description string `json:"description"`
	VO          string `json:"vo"`
}

// SceneAsset is a fully prepared scene: the generated image plus the
// located narration span.
type SceneAsset struct {
	ImagePath string
	Start     float64
	End       float64
}

// Metadata describes the finished video for publishing.
type Metadata struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// Manifest records what a run produced.
type Manifest struct {
	Script    string       `json:"script"`
	Narration string       `json:"narration"`
	Output    string       `json:"output"`
	Scenes    []SceneEntry `json:"scenes"`
	VideoID   string       `json:"video_id,omitempty"`
}

type SceneEntry struct {
	Description string  `json:"description"`
	VO          string  `json:"vo"`
	Image       string  `json:"image"`
	StartSec    float64 `json:"start_sec"`
	EndSec      float64 `json:"end_sec"`
	Frames      int     `json:"frames"`
}
