// Package youtube uploads finished videos through the YouTube Data API
// using a service account.
package youtube

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/reelsmith/reelsmith/internal/ports"
	"github.com/reelsmith/reelsmith/internal/types"
)

type Adapter struct {
	service *yt.Service
	privacy string
	Logf    func(format string, args ...any)
}

var _ ports.Publisher = (*Adapter)(nil)

// New builds an uploader from a service account JSON file. privacy is
// one of "public", "unlisted", "private"; empty defaults to unlisted so
// a misconfigured run cannot publish by accident.
func New(ctx context.Context, serviceAccountFile, privacy string) (*Adapter, error) {
	if privacy == "" {
		privacy = "unlisted"
	}
	data, err := os.ReadFile(serviceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	config, err := google.JWTConfigFromJSON(data, yt.YoutubeUploadScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account: %w", err)
	}
	service, err := yt.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}
	return &Adapter{service: service, privacy: privacy, Logf: func(string, ...any) {}}, nil
}

func (a *Adapter) Publish(ctx context.Context, videoPath string, meta types.Metadata) (string, error) {
	file, err := os.Open(videoPath)
	if err != nil {
		return "", fmt.Errorf("open video: %w", err)
	}
	defer file.Close()

	st, err := file.Stat()
	if err != nil {
		return "", fmt.Errorf("stat video: %w", err)
	}
	a.Logf("uploading %s (%.2f MB)", videoPath, float64(st.Size())/(1024*1024))

	title := meta.Title
	if len(title) > 100 {
		title = title[:97] + "..."
	}
	video := &yt.Video{
		Snippet: &yt.VideoSnippet{
			Title:       title,
			Description: meta.Description,
			Tags:        meta.Keywords,
			CategoryId:  "22",
		},
		Status: &yt.VideoStatus{
			PrivacyStatus:           a.privacy,
			SelfDeclaredMadeForKids: false,
		},
	}

	call := a.service.Videos.Insert([]string{"snippet", "status"}, video).
		Media(file).
		Context(ctx)
	resp, err := call.Do()
	if err != nil {
		return "", fmt.Errorf("upload video: %w", err)
	}
	a.Logf("uploaded: https://youtube.com/shorts/%s", resp.Id)
	return resp.Id, nil
}
