package motion

import (
	"fmt"
	"strconv"
)

// Filter renders the plan as an ffmpeg video filter chain. zoompan
// crops a window of iw/zoom with its input's aspect, so the base plane
// is first cropped to the plan's target-aspect window and the planned
// zoom is multiplied by CropW/TargetW: the filter's window is then
// exactly the plan's TargetW/zoom footprint, x/y recenter it and add
// the smoothstep-eased offset converted to plane pixels, and both stay
// inside zoompan's [0, iw-iw/zoom] clamp for every frame At visits.
func (pl Plan) Filter() string {
	denom := pl.Frames - 1

	pExpr := fmt.Sprintf("(on/%d)", denom)
	easeExpr := fmt.Sprintf("(%s*%s*(3-2*%s))", pExpr, pExpr, pExpr)

	xNum := fmt.Sprintf("((%s)*(1-%s) + (%s)*%s)", ftoa(pl.StartX), easeExpr, ftoa(pl.EndX), easeExpr)
	yNum := fmt.Sprintf("((%s)*(1-%s) + (%s)*%s)", ftoa(pl.StartY), easeExpr, ftoa(pl.EndY), easeExpr)

	zPlan := fmt.Sprintf("(%s*pow(%s/%s, on/%d))", ftoa(pl.ZoomStart), ftoa(pl.ZoomEnd), ftoa(pl.ZoomStart), denom)
	zRatio := ftoa(float64(pl.CropW) / float64(pl.TargetW))

	return fmt.Sprintf(
		"format=rgba,"+
			"scale=%d:%d:flags=lanczos+accurate_rnd+full_chroma_int,"+
			"crop=%d:%d,"+
			"gblur=sigma=0.30,"+
			"zoompan=z='(%s*%s)':"+
			"x='(iw-iw/zoom)/2+(%s)/%s':"+
			"y='(ih-ih/zoom)/2+(%s)/%s':"+
			"d=%d:s=%dx%d:fps=%d,"+
			"format=yuv444p",
		pl.BaseW, pl.BaseH,
		pl.CropW, pl.CropH,
		zPlan, zRatio,
		xNum, zPlan,
		yNum, zPlan,
		pl.Frames, pl.TargetW, pl.TargetH, pl.FPS,
	)
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
