package motion

import (
	"fmt"
	"math"
	"math/rand"
)

// Default tuning for Ken Burns shots. Zoom stays subtle so generated
// stills read as camera movement rather than an effect.
const (
	DefaultZoomStart = 1.05
	DefaultZoomEnd   = 1.15
	DefaultOverscale = 1.25
	DefaultPanMaxPx  = 60.0

	// edgeMargin keeps the crop a couple of source pixels away from the
	// image border to absorb rounding in the scaler.
	edgeMargin = 2.0

	maxTravelTries = 8
)

// Planner derives pan/zoom trajectories for still images. The zero
// value is not usable; construct with New.
type Planner struct {
	TargetW   int
	TargetH   int
	FPS       int
	ZoomStart float64
	ZoomEnd   float64
	Overscale float64
	// PanMaxPx is a soft cap on screen-pixel travel. Geometry still
	// wins: the safe pan box is never exceeded.
	PanMaxPx float64
}

func New(targetW, targetH, fps int) Planner {
	return Planner{
		TargetW:   targetW,
		TargetH:   targetH,
		FPS:       fps,
		ZoomStart: DefaultZoomStart,
		ZoomEnd:   DefaultZoomEnd,
		Overscale: DefaultOverscale,
		PanMaxPx:  DefaultPanMaxPx,
	}
}

// Plan is a fully resolved motion trajectory for one image. Offsets are
// source-plane pixels measured from the centered position.
type Plan struct {
	ImagePath string
	ImageW    int
	ImageH    int
	TargetW   int
	TargetH   int
	FPS       int
	Frames    int

	ZoomStart float64
	ZoomEnd   float64

	// CoverScale*Overscale applied to the source, rounded to even
	// dimensions for the pre-scale plane zoompan operates on.
	BaseW int
	BaseH int

	// Largest target-aspect window inside the base plane. zoompan's
	// crop window keeps its input aspect, so the pan happens inside
	// this plane rather than the full overscan.
	CropW int
	CropH int

	StartX float64
	StartY float64
	EndX   float64
	EndY   float64
}

// Plan computes a safe trajectory for the image. The rendered crop
// never reaches outside the source at any frame: the smaller of the two
// zoom endpoints' footprints bounds the pan box, and the zoom between
// them is monotonic. The seed fully determines the result.
func (p Planner) Plan(imagePath string, imgW, imgH, frames int, seed int64) (Plan, error) {
	if imgW <= 0 || imgH <= 0 {
		return Plan{}, fmt.Errorf("motion: invalid image dimensions %dx%d for %s", imgW, imgH, imagePath)
	}
	if p.TargetW <= 0 || p.TargetH <= 0 || p.FPS <= 0 {
		return Plan{}, fmt.Errorf("motion: planner not configured (target %dx%d fps %d)", p.TargetW, p.TargetH, p.FPS)
	}
	if frames < 2 {
		frames = 2
	}

	rng := rand.New(rand.NewSource(seed))

	// zoompan evaluates z inside [1, 10]; the overscan ratio is folded
	// into the filter's z, so the planned zoom needs headroom below 10.
	zoomStart := math.Min(8, math.Max(1, p.ZoomStart))
	zoomEnd := math.Min(8, math.Max(1, p.ZoomEnd))
	// Randomize zoom direction half the time for shot variety.
	if rng.Float64() < 0.5 {
		zoomStart, zoomEnd = zoomEnd, zoomStart
	}

	tw, th := float64(p.TargetW), float64(p.TargetH)
	coverScale := math.Max(tw/float64(imgW), th/float64(imgH))

	baseScale := coverScale * p.Overscale
	baseW := 2 * int(math.Round(float64(imgW)*baseScale/2))
	baseH := 2 * int(math.Round(float64(imgH)*baseScale/2))

	// Largest target-aspect window inside the base plane, floored to
	// even dimensions so the crop never reaches outside it.
	cropW, cropH := baseW, 2*int(float64(baseW)*th/tw/2)
	if cropH > baseH {
		cropH = baseH
		cropW = 2 * int(float64(baseH)*tw/th/2)
	}

	// Smallest framed dimensions across the shot; the binding
	// constraint for edge reveal at every intermediate zoom.
	zoomMin := math.Min(zoomStart, zoomEnd)
	minFrameW := float64(cropW) * zoomMin
	minFrameH := float64(cropH) * zoomMin

	maxPanX := math.Max(0, (minFrameW-tw)/2-edgeMargin)
	maxPanY := math.Max(0, (minFrameH-th)/2-edgeMargin)

	if p.PanMaxPx > 0 {
		maxPanX = math.Min(maxPanX, p.PanMaxPx*(minFrameW/math.Max(1, tw)))
		maxPanY = math.Min(maxPanY, p.PanMaxPx*(minFrameH/math.Max(1, th)))
	}

	randOffset := func() (float64, float64) {
		var ox, oy float64
		if maxPanX > 0 {
			ox = rng.Float64()*2*maxPanX - maxPanX
		}
		if maxPanY > 0 {
			oy = rng.Float64()*2*maxPanY - maxPanY
		}
		return ox, oy
	}

	startX, startY := randOffset()

	minTravel := 0.25 * math.Hypot(maxPanX, maxPanY)
	if minTravel == 0 {
		minTravel = 10.0
	}
	var endX, endY float64
	tries := 0
	for {
		endX, endY = randOffset()
		if math.Hypot(endX-startX, endY-startY) >= minTravel || tries > maxTravelTries {
			break
		}
		tries++
	}
	// Too many rejections: mirror the start so travel is guaranteed.
	if tries > maxTravelTries && maxPanX+maxPanY > 0 {
		endX, endY = -startX, -startY
	}

	return Plan{
		ImagePath: imagePath,
		ImageW:    imgW,
		ImageH:    imgH,
		TargetW:   p.TargetW,
		TargetH:   p.TargetH,
		FPS:       p.FPS,
		Frames:    frames,
		ZoomStart: zoomStart,
		ZoomEnd:   zoomEnd,
		BaseW:     baseW,
		BaseH:     baseH,
		CropW:     cropW,
		CropH:     cropH,
		StartX:    startX,
		StartY:    startY,
		EndX:      endX,
		EndY:      endY,
	}, nil
}

// WithoutPan is the zoom-only fallback used when the renderer rejects
// the panned trajectory.
func (pl Plan) WithoutPan() Plan {
	pl.StartX, pl.StartY, pl.EndX, pl.EndY = 0, 0, 0, 0
	return pl
}

func (pl Plan) HasPan() bool {
	return pl.StartX != 0 || pl.StartY != 0 || pl.EndX != 0 || pl.EndY != 0
}

func smoothstep(p float64) float64 { return p * p * (3 - 2*p) }

// At samples the trajectory at frame i: the zoom level and the eased
// pan offsets in source-plane pixels. Zoom follows a multiplicative
// interpolation so perceived zoom speed is constant; pan offsets are
// smoothstep-eased.
func (pl Plan) At(i int) (zoom, offX, offY float64) {
	progress := float64(i) / float64(pl.Frames-1)
	zoom = pl.ZoomStart * math.Pow(pl.ZoomEnd/pl.ZoomStart, progress)
	ease := smoothstep(progress)
	offX = pl.StartX*(1-ease) + pl.EndX*ease
	offY = pl.StartY*(1-ease) + pl.EndY*ease
	return zoom, offX, offY
}

// FrameExtent returns the pannable plane dimensions at frame i: the
// target-aspect crop of the base plane under the current zoom. Pan
// offsets at that frame must keep the target viewport inside it.
func (pl Plan) FrameExtent(i int) (w, h float64) {
	zoom, _, _ := pl.At(i)
	return float64(pl.CropW) * zoom, float64(pl.CropH) * zoom
}
