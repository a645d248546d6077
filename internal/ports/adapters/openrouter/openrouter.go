// Package openrouter drives the script model through the OpenRouter
// chat completions API with schema-constrained JSON responses.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/reelsmith/reelsmith/internal/ports"
	"github.com/reelsmith/reelsmith/internal/types"
)

type Adapter struct {
	key     string
	model   string
	baseURL string
	client  *http.Client
	backoff time.Duration
	Logf    func(format string, args ...any)
}

var _ ports.ScriptModel = (*Adapter)(nil)

const (
	requestTimeout = 90 * time.Second
	maxAttempts    = 3
)

func New(apiKey, model, baseURL string) *Adapter {
	if model == "" {
		model = "anthropic/claude-3.5-sonnet"
	}
	return &Adapter{
		key:     apiKey,
		model:   model,
		baseURL: normalizeBaseURL(baseURL),
		client:  &http.Client{Timeout: 5 * time.Minute},
		backoff: 2 * time.Second,
		Logf:    func(string, ...any) {},
	}
}

const narrationPrompt = "Rewrite the script below as narration for a short vertical video. " +
	"Keep it under 60 seconds when read aloud, hook the viewer in the first sentence, " +
	"use short plain sentences, and end on the strongest point. " +
	"Return strictly valid JSON matching the schema.\n\nScript:\n"

func (a *Adapter) Narration(ctx context.Context, script string) (string, error) {
	schema := objectSchema(map[string]any{
		"narration": map[string]any{"type": "string"},
	}, "narration")

	var out struct {
		Narration string `json:"narration"`
	}
	if err := a.completeJSON(ctx, "narration", narrationPrompt+script, schema, &out); err != nil {
		return "", err
	}
	n := strings.TrimSpace(out.Narration)
	if n == "" {
		return "", errors.New("openrouter: empty narration")
	}
	return n, nil
}

const scenesPrompt = "Split the narration below into visual scenes. " +
	"For each scene give a vivid image description (photographic style, vertical composition, no text in image) " +
	"and vo: the exact contiguous excerpt of the narration the scene should cover. " +
	"The vo excerpts must appear in the narration verbatim, in order, and cover it completely. " +
	"Use 4 to 8 scenes. Return strictly valid JSON matching the schema.\n\nNarration:\n"

func (a *Adapter) PlanScenes(ctx context.Context, narration string) ([]types.ScenePlan, error) {
	schema := objectSchema(map[string]any{
		"scenes": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"description": map[string]any{"type": "string"},
					"vo":          map[string]any{"type": "string"},
				},
				"required": []string{"description", "vo"},
			},
		},
	}, "scenes")

	var out struct {
		Scenes []types.ScenePlan `json:"scenes"`
	}
	if err := a.completeJSON(ctx, "plan_scenes", scenesPrompt+narration, schema, &out); err != nil {
		return nil, err
	}

	scenes := out.Scenes[:0]
	for _, s := range out.Scenes {
		s.Description = strings.TrimSpace(s.Description)
		s.VO = strings.TrimSpace(s.VO)
		if s.Description == "" || s.VO == "" {
			continue
		}
		scenes = append(scenes, s)
	}
	if len(scenes) == 0 {
		return nil, errors.New("openrouter: model returned no usable scenes")
	}
	return scenes, nil
}

const metadataPrompt = "Write upload metadata for a short vertical video with the narration below. " +
	"Title under 90 characters, description 2-3 sentences, 5-10 keywords. " +
	"Return strictly valid JSON matching the schema.\n\nNarration:\n"

func (a *Adapter) Metadata(ctx context.Context, narration string) (types.Metadata, error) {
	schema := objectSchema(map[string]any{
		"title":       map[string]any{"type": "string"},
		"description": map[string]any{"type": "string"},
		"keywords":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
	}, "title", "description", "keywords")

	var out types.Metadata
	if err := a.completeJSON(ctx, "metadata", metadataPrompt+narration, schema, &out); err != nil {
		return types.Metadata{}, err
	}
	out.Title = strings.TrimSpace(out.Title)
	if out.Title == "" {
		return types.Metadata{}, errors.New("openrouter: empty title")
	}
	return out, nil
}

// completeJSON runs one schema-constrained completion with bounded
// retries. Transport and 5xx failures back off and retry; a response
// that fails to parse gets one retry with a stricter prompt before
// giving up.
func (a *Adapter) completeJSON(ctx context.Context, name, prompt string, schema map[string]any, out any) error {
	rewritten := false
	backoff := a.backoff

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		content, retryable, err := a.chat(ctx, name, prompt, schema)
		if err == nil {
			clean, jerr := extractJSONObject(content)
			if jerr == nil {
				if uerr := json.Unmarshal([]byte(clean), out); uerr == nil {
					return nil
				} else {
					jerr = uerr
				}
			}
			err = fmt.Errorf("openrouter %s: %w", name, jerr)
			if !rewritten {
				rewritten = true
				prompt += "\n\nThe previous reply was not valid JSON. Reply with the JSON object only, no prose, no code fences."
				retryable = true
			}
		}
		lastErr = err
		if !retryable || attempt == maxAttempts {
			break
		}
		a.Logf("openrouter %s attempt %d failed, retrying in %s: %v", name, attempt, backoff, err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return lastErr
}

func (a *Adapter) chat(ctx context.Context, name, prompt string, schema map[string]any) (content string, retryable bool, err error) {
	payload := map[string]any{
		"model":  a.model,
		"stream": false,
		"messages": []map[string]any{
			{"role": "user", "content": prompt},
		},
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   "reelsmith_" + name,
				"schema": schema,
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", false, fmt.Errorf("marshal request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, "POST", a.baseURL+"/api/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", false, err
	}
	req.Header.Set("Authorization", "Bearer "+a.key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		if errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
			return "", true, fmt.Errorf("openrouter timeout after %s (model=%s)", requestTimeout, a.model)
		}
		return "", true, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		rb, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return "", resp.StatusCode >= 500, fmt.Errorf("openrouter status %d and read body failed: %v", resp.StatusCode, readErr)
		}
		retry := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
		return "", retry, fmt.Errorf("openrouter status %d: %s", resp.StatusCode, truncate(redactSecrets(string(rb), a.key), 400))
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content any `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return "", true, err
	}
	if len(raw.Choices) == 0 {
		return "", true, errors.New("openrouter: no choices in response")
	}
	content, err = messageContentToString(raw.Choices[0].Message.Content)
	if err != nil {
		return "", true, err
	}
	return content, false, nil
}

func objectSchema(props map[string]any, required ...string) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func messageContentToString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []any:
		// Some providers return an array of {type,text} parts.
		var b strings.Builder
		for _, it := range x {
			m, ok := it.(map[string]any)
			if !ok {
				continue
			}
			if t, ok := m["text"].(string); ok {
				b.WriteString(t)
			}
		}
		s := b.String()
		if strings.TrimSpace(s) == "" {
			return "", errors.New("openrouter: empty content")
		}
		return s, nil
	default:
		return "", fmt.Errorf("openrouter: unexpected content type %T", v)
	}
}

func extractJSONObject(s string) (string, error) {
	t := strings.TrimSpace(s)
	if t == "" {
		return "", errors.New("openrouter: empty content")
	}

	if strings.HasPrefix(t, "```") {
		if i := strings.Index(t, "\n"); i >= 0 {
			t = t[i+1:]
		}
		if j := strings.LastIndex(t, "```"); j >= 0 {
			t = t[:j]
		}
		t = strings.TrimSpace(t)
	}

	start := strings.Index(t, "{")
	end := strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		return t[start : end+1], nil
	}
	return "", fmt.Errorf("openrouter: could not locate JSON object in: %q", truncate(t, 200))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

var (
	bearerTokenRE = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9._-]+\b`)
	authHeaderRE  = regexp.MustCompile(`(?i)(authorization\s*[:=]\s*)([^\n\r,;]+)`)
	apiKeyFieldRE = regexp.MustCompile(`(?i)(api[_-]?key\s*[:=]\s*)([^\n\r,;]+)`)
)

func redactSecrets(s, apiKey string) string {
	if s == "" {
		return s
	}
	out := s
	if apiKey != "" {
		out = strings.ReplaceAll(out, apiKey, "[REDACTED]")
	}
	out = bearerTokenRE.ReplaceAllString(out, "Bearer [REDACTED]")
	out = authHeaderRE.ReplaceAllString(out, "${1}[REDACTED]")
	out = apiKeyFieldRE.ReplaceAllString(out, "${1}[REDACTED]")
	return out
}
