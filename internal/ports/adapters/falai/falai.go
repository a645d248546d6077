// Package falai calls fal.run model endpoints for speech synthesis and
// still image generation. Results are content-cached on disk, so
// re-running a script does not re-bill unchanged scenes.
package falai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/reelsmith/reelsmith/internal/cache"
	"github.com/reelsmith/reelsmith/internal/ports"
)

const (
	ttsRoute   = "/fal-ai/elevenlabs/tts/turbo-v2.5"
	imageRoute = "/fal-ai/recraft-v3"

	defaultVoice = "Callum"
	defaultStyle = "realistic_image"
)

type Adapter struct {
	key     string
	voice   string
	baseURL string
	client  *http.Client
	store   *cache.Cache
	Logf    func(format string, args ...any)
}

var (
	_ ports.SpeechSynth    = (*Adapter)(nil)
	_ ports.ImageGenerator = (*Adapter)(nil)
)

func New(apiKey, voice, cacheDir string) (*Adapter, error) {
	if voice == "" {
		voice = defaultVoice
	}
	store, err := cache.New(cacheDir)
	if err != nil {
		return nil, err
	}
	return &Adapter{
		key:     apiKey,
		voice:   voice,
		baseURL: "https://fal.run",
		client:  &http.Client{Timeout: 5 * time.Minute},
		store:   store,
		Logf:    func(string, ...any) {},
	}, nil
}

// Synthesize narrates text and returns the cached mp3 path.
// previousText feeds the voice model's prosody context so consecutive
// sections read as one continuous take.
func (a *Adapter) Synthesize(ctx context.Context, text, previousText string) (string, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("falai: empty narration text")
	}

	key := cache.Key("tts", a.voice, previousText, text)
	if p, ok := a.store.Lookup(key, ".mp3"); ok {
		a.Logf("tts cache hit: %s", p)
		return p, nil
	}

	payload := map[string]any{
		"text":  text,
		"voice": a.voice,
	}
	if previousText != "" {
		payload["previous_text"] = previousText
	}

	var result struct {
		Audio struct {
			URL string `json:"url"`
		} `json:"audio"`
	}
	if err := a.post(ctx, ttsRoute, payload, &result); err != nil {
		return "", fmt.Errorf("falai tts: %w", err)
	}
	if result.Audio.URL == "" {
		return "", errors.New("falai tts: no audio URL in response")
	}
	return a.download(ctx, result.Audio.URL, key, ".mp3")
}

// Generate renders a scene still and returns the cached image path.
// aspect accepts ratio shorthand ("9:16") or a fal size enum verbatim.
func (a *Adapter) Generate(ctx context.Context, description, aspect string) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", errors.New("falai: empty image description")
	}
	size := imageSize(aspect)

	key := cache.Key("image", defaultStyle, size, description)
	if p, ok := a.store.Lookup(key, ".png"); ok {
		a.Logf("image cache hit: %s", p)
		return p, nil
	}

	payload := map[string]any{
		"prompt":                description,
		"style":                 defaultStyle,
		"image_size":            size,
		"enable_safety_checker": false,
	}

	var result struct {
		Images []struct {
			URL string `json:"url"`
		} `json:"images"`
	}
	if err := a.post(ctx, imageRoute, payload, &result); err != nil {
		return "", fmt.Errorf("falai image: %w", err)
	}
	if len(result.Images) == 0 || result.Images[0].URL == "" {
		return "", errors.New("falai image: no images in response")
	}
	return a.download(ctx, result.Images[0].URL, key, ".png")
}

func imageSize(aspect string) string {
	switch strings.TrimSpace(aspect) {
	case "", "9:16":
		return "portrait_16_9"
	case "16:9":
		return "landscape_16_9"
	case "1:1":
		return "square_hd"
	default:
		return aspect
	}
}

func (a *Adapter) post(ctx context.Context, route string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+route, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Key "+a.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(rb)))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (a *Adapter) download(ctx context.Context, url, key, ext string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", err
	}
	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("falai download: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("falai download: status %d", resp.StatusCode)
	}
	return a.store.Put(key, ext, resp.Body)
}
