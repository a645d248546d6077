// Package usecase wires the domain planners to the rendering and model
// ports and runs a script all the way to a published video.
package usecase

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/reelsmith/reelsmith/internal/domain/captions"
	"github.com/reelsmith/reelsmith/internal/domain/motion"
	"github.com/reelsmith/reelsmith/internal/domain/timeline"
	"github.com/reelsmith/reelsmith/internal/domain/transcript"
	"github.com/reelsmith/reelsmith/internal/ports"
	"github.com/reelsmith/reelsmith/internal/types"
)

type Deps struct {
	Model    ports.ScriptModel
	Speech   ports.SpeechSynth
	Images   ports.ImageGenerator
	ASR      ports.Transcriber
	Renderer ports.ClipRenderer
	Joiner   ports.Concatenator
	Probe    ports.Prober
	Pub      ports.Publisher // nil disables publishing
	Logf     func(format string, args ...any)
}

type Usecase struct{ d Deps }

func New(d Deps) Usecase {
	if d.Logf == nil {
		d.Logf = func(string, ...any) {}
	}
	return Usecase{d: d}
}

type Input struct {
	Script      string
	OutDir      string
	CacheDir    string
	FPS         int
	Width       int
	Height      int
	FadeSeconds float64
	WindowSize  int
	Workers     int
	Seed        int64
	Publish     bool
}

type Result struct {
	Manifest types.Manifest
}

// holdSeconds extends the last scene past the final spoken word so the
// video does not cut off on the last syllable.
const holdSeconds = 1.0

func (u Usecase) Run(ctx context.Context, in Input) (Result, error) {
	if in.Workers < 1 {
		in.Workers = 1
	}

	narration, err := u.d.Model.Narration(ctx, in.Script)
	if err != nil {
		return Result{}, fmt.Errorf("narration: %w", err)
	}
	u.d.Logf("narration ready (%d chars)", len(narration))

	plans, err := u.d.Model.PlanScenes(ctx, narration)
	if err != nil {
		return Result{}, fmt.Errorf("plan scenes: %w", err)
	}
	u.d.Logf("planned %d scenes", len(plans))

	audioPath, err := u.d.Speech.Synthesize(ctx, narration, "")
	if err != nil {
		return Result{}, fmt.Errorf("synthesize narration: %w", err)
	}

	words, err := u.d.ASR.Transcribe(ctx, audioPath, in.CacheDir)
	if err != nil {
		return Result{}, fmt.Errorf("transcribe narration: %w", err)
	}
	if len(words) == 0 {
		return Result{}, fmt.Errorf("transcribe narration: no words in %s", audioPath)
	}

	total, err := u.d.Probe.Duration(ctx, audioPath)
	if err != nil || total <= 0 {
		total = transcript.TotalDuration(words)
	}

	scenes, err := u.prepareScenes(ctx, plans, words, in.Workers)
	if err != nil {
		return Result{}, err
	}

	clipFrames := u.allocateFrames(scenes, total, in.FPS, in.FadeSeconds)
	clips, err := u.renderScenes(ctx, scenes, clipFrames, in)
	if err != nil {
		return Result{}, err
	}

	silent := filepath.Join(in.OutDir, "silent.mp4")
	if err := u.Combine(ctx, clips, clipFrames, fadeFrames(in), in.FPS, silent); err != nil {
		return Result{}, err
	}

	muxed := filepath.Join(in.OutDir, "assembled.mp4")
	if err := u.d.Renderer.MuxAudio(ctx, silent, audioPath, muxed, 0); err != nil {
		return Result{}, fmt.Errorf("mux audio: %w", err)
	}

	final, err := u.burnCaptions(ctx, muxed, total, in)
	if err != nil {
		return Result{}, err
	}

	m := types.Manifest{
		Script:    in.Script,
		Narration: narration,
		Output:    final,
	}
	for i, s := range scenes {
		m.Scenes = append(m.Scenes, types.SceneEntry{
			Description: s.plan.Description,
			VO:          s.plan.VO,
			Image:       s.imagePath,
			StartSec:    s.span.Start,
			EndSec:      s.span.End,
			Frames:      clipFrames[i],
		})
	}

	if in.Publish && u.d.Pub != nil {
		meta, err := u.d.Model.Metadata(ctx, narration)
		if err != nil {
			return Result{}, fmt.Errorf("metadata: %w", err)
		}
		id, err := u.d.Pub.Publish(ctx, final, meta)
		if err != nil {
			return Result{}, fmt.Errorf("publish: %w", err)
		}
		m.VideoID = id
		u.d.Logf("published video %s", id)
	}

	return Result{Manifest: m}, nil
}

type scene struct {
	plan      types.ScenePlan
	imagePath string
	span      transcript.Span
}

// prepareScenes locates each scene's narration span and generates its
// still, images in parallel under a bounded worker group.
func (u Usecase) prepareScenes(ctx context.Context, plans []types.ScenePlan, words []types.TimedWord, workers int) ([]scene, error) {
	scenes := make([]scene, len(plans))
	for i, p := range plans {
		span, err := transcript.Locate(words, p.VO)
		if err != nil {
			return nil, fmt.Errorf("locate scene %d %q: %w", i, p.VO, err)
		}
		scenes[i] = scene{plan: p, span: span}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range scenes {
		g.Go(func() error {
			p, err := u.d.Images.Generate(gctx, scenes[i].plan.Description, "9:16")
			if err != nil {
				return fmt.Errorf("scene %d image: %w", i, err)
			}
			scenes[i].imagePath = p
			u.d.Logf("scene %d image ready: %s", i, p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return scenes, nil
}

// fadeFrames maps the configured crossfade to whole frames; zero means
// hard cuts.
func fadeFrames(in Input) int {
	if in.FadeSeconds <= 0 {
		return 0
	}
	return timeline.RequestedFadeFrames(in.FadeSeconds, in.FPS)
}

// allocateFrames turns scene spans into per-clip frame counts, with
// fade compensation so crossfades start on scene boundaries.
func (u Usecase) allocateFrames(scenes []scene, total float64, fps int, fadeSeconds float64) []int {
	starts := make([]float64, len(scenes))
	for i, s := range scenes {
		starts[i] = s.span.Start
	}
	lastEnd := total
	if n := len(scenes); n > 0 && scenes[n-1].span.End > 0 {
		lastEnd = scenes[n-1].span.End
	}
	bounds := timeline.Boundaries(starts, lastEnd, holdSeconds, fps)
	spans := timeline.Spans(bounds)
	fade := 0
	if fadeSeconds > 0 {
		fade = timeline.RequestedFadeFrames(fadeSeconds, fps)
	}
	return timeline.AllocateWithFades(spans, fade)
}

func (u Usecase) renderScenes(ctx context.Context, scenes []scene, clipFrames []int, in Input) ([]string, error) {
	planner := motion.New(in.Width, in.Height, in.FPS)
	clips := make([]string, len(scenes))
	for i, s := range scenes {
		w, h, err := u.d.Probe.Dimensions(ctx, s.imagePath)
		if err != nil {
			return nil, fmt.Errorf("probe scene %d image: %w", i, err)
		}
		pl, err := planner.Plan(s.imagePath, w, h, clipFrames[i], in.Seed+int64(i))
		if err != nil {
			return nil, fmt.Errorf("motion plan scene %d: %w", i, err)
		}

		out := filepath.Join(in.OutDir, fmt.Sprintf("scene-%03d.mp4", i))
		if err := u.renderMotion(ctx, pl, out); err != nil {
			return nil, fmt.Errorf("render scene %d: %w", i, err)
		}

		got, err := u.d.Probe.FrameCount(ctx, out)
		if err != nil {
			return nil, fmt.Errorf("probe scene %d clip: %w", i, err)
		}
		if got != clipFrames[i] {
			return nil, fmt.Errorf("scene %d rendered %d frames, want %d", i, got, clipFrames[i])
		}
		clips[i] = out
	}
	return clips, nil
}

// renderMotion retries once without panning; a pan that leaves the
// source plane is the usual reason a zoompan render fails.
func (u Usecase) renderMotion(ctx context.Context, pl motion.Plan, out string) error {
	err := u.d.Renderer.RenderMotion(ctx, pl, out)
	if err == nil {
		return nil
	}
	if !pl.HasPan() {
		return err
	}
	u.d.Logf("motion render failed, retrying without pan: %v", err)
	return u.d.Renderer.RenderMotion(ctx, pl.WithoutPan(), out)
}

func (u Usecase) burnCaptions(ctx context.Context, muxed string, total float64, in Input) (string, error) {
	words, err := u.d.ASR.Transcribe(ctx, muxed, in.CacheDir)
	if err != nil {
		return "", fmt.Errorf("transcribe assembled video: %w", err)
	}
	if len(words) == 0 {
		u.d.Logf("no words in assembled video, skipping captions")
		return muxed, nil
	}

	cfg := captions.DefaultConfig()
	if in.WindowSize > 0 {
		cfg.WindowSize = in.WindowSize
	}
	wins := captions.Windows(words, total, cfg)
	ass := captions.RenderASS(wins, in.Width, in.Height)

	assPath := filepath.Join(in.OutDir, "captions.ass")
	if err := os.WriteFile(assPath, []byte(ass), 0o644); err != nil {
		return "", fmt.Errorf("write captions: %w", err)
	}

	final := filepath.Join(in.OutDir, "final.mp4")
	if err := u.d.Renderer.BurnCaptions(ctx, muxed, assPath, final); err != nil {
		return "", fmt.Errorf("burn captions: %w", err)
	}
	return final, nil
}
