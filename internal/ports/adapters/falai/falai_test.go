package falai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"sync/atomic"
	"testing"
)

func newTestAdapter(t *testing.T, url string) *Adapter {
	t.Helper()
	a, err := New("test-key", "", t.TempDir())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	a.baseURL = url
	return a
}

func TestSynthesizeDownloadsAndCaches(t *testing.T) {
	var ttsCalls atomic.Int32
	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc(ttsRoute, func(w http.ResponseWriter, r *http.Request) {
		ttsCalls.Add(1)
		if got := r.Header.Get("Authorization"); got != "Key test-key" {
			t.Errorf("auth header = %q", got)
		}
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload["voice"] != defaultVoice {
			t.Errorf("voice = %v", payload["voice"])
		}
		if payload["previous_text"] != "earlier line." {
			t.Errorf("previous_text = %v", payload["previous_text"])
		}
		fmt.Fprintf(w, `{"audio":{"url":"%s/media/out.mp3"}}`, srvURL)
	})
	mux.HandleFunc("/media/out.mp3", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("mp3-bytes"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	a := newTestAdapter(t, srv.URL)
	p, err := a.Synthesize(context.Background(), "Hello there.", "earlier line.")
	if err != nil {
		t.Fatalf("Synthesize: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil || string(b) != "mp3-bytes" {
		t.Fatalf("cached audio = %q, err %v", b, err)
	}

	p2, err := a.Synthesize(context.Background(), "Hello there.", "earlier line.")
	if err != nil {
		t.Fatalf("Synthesize (cached): %v", err)
	}
	if p2 != p {
		t.Errorf("cache miss on identical request: %q vs %q", p2, p)
	}
	if ttsCalls.Load() != 1 {
		t.Errorf("tts calls = %d, want 1", ttsCalls.Load())
	}
}

func TestGenerateImage(t *testing.T) {
	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc(imageRoute, func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		if payload["image_size"] != "portrait_16_9" {
			t.Errorf("image_size = %v", payload["image_size"])
		}
		fmt.Fprintf(w, `{"images":[{"url":"%s/media/img.png"}]}`, srvURL)
	})
	mux.HandleFunc("/media/img.png", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("png-bytes"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	a := newTestAdapter(t, srv.URL)
	p, err := a.Generate(context.Background(), "a lighthouse at dawn", "9:16")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if b, _ := os.ReadFile(p); string(b) != "png-bytes" {
		t.Errorf("cached image = %q", b)
	}
}

func TestGenerateErrorSurfacesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"prompt rejected"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	a := newTestAdapter(t, srv.URL)
	_, err := a.Generate(context.Background(), "something", "9:16")
	if err == nil {
		t.Fatal("expected error")
	}
	if want := "prompt rejected"; !contains(err.Error(), want) {
		t.Errorf("error %q does not mention %q", err, want)
	}
}

func TestImageSize(t *testing.T) {
	cases := map[string]string{
		"":              "portrait_16_9",
		"9:16":          "portrait_16_9",
		"16:9":          "landscape_16_9",
		"1:1":           "square_hd",
		"landscape_4_3": "landscape_4_3",
	}
	for in, want := range cases {
		if got := imageSize(in); got != want {
			t.Errorf("imageSize(%q) = %q, want %q", in, got, want)
		}
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}
