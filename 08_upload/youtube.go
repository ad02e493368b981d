// Package upload publishes finished videos to YouTube through the Data API v3.
package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"leetcode-video-pipeline/config"
	"leetcode-video-pipeline/types"
)

// Uploader inserts a video with its metadata and sets its thumbnail
type Uploader struct {
	cfg   config.UploadConfig
	creds config.Credentials
}

// New checks the OAuth credentials are present; they are needed on first use
func New(cfg config.UploadConfig, creds config.Credentials) (*Uploader, error) {
	if creds.YouTubeClientID == "" || creds.YouTubeClientSecret == "" || creds.YouTubeRefreshToken == "" {
		return nil, fmt.Errorf("%w: YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET or YOUTUBE_REFRESH_TOKEN not set", types.ErrMissingCredential)
	}
	return &Uploader{cfg: cfg, creds: creds}, nil
}

// Publish uploads videoPath with metadata built from the script and clips,
// sets the thumbnail when one exists, and returns the watch URL
func (u *Uploader) Publish(ctx context.Context, videoPath, thumbPath string, script *types.Script, clips []types.SceneArtifact) (string, error) {
	meta := BuildMetadata(script, clips)
	meta.CategoryID = u.cfg.CategoryID
	meta.Visibility = u.cfg.Visibility

	svc, err := u.service(ctx)
	if err != nil {
		return "", err
	}
	videoID, err := u.insert(ctx, svc, videoPath, meta)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("https://www.youtube.com/watch?v=%s", videoID)

	if thumbPath != "" {
		if err := setThumbnail(ctx, svc, videoID, thumbPath); err != nil {
			log.Printf("[upload] Warning: thumbnail not set: %v", err)
		}
	}
	if err := logUpload(videoID, url, videoPath, filepath.Dir(videoPath), meta); err != nil {
		log.Printf("[upload] Warning: upload log not saved: %v", err)
	}
	return url, nil
}

func (u *Uploader) service(ctx context.Context) (*youtube.Service, error) {
	log.Println("[upload] Authenticating with YouTube API...")
	conf := &oauth2.Config{
		ClientID:     u.creds.YouTubeClientID,
		ClientSecret: u.creds.YouTubeClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeScope},
	}
	token := &oauth2.Token{
		RefreshToken: u.creds.YouTubeRefreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}
	svc, err := youtube.NewService(ctx, option.WithHTTPClient(conf.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}
	return svc, nil
}

func (u *Uploader) insert(ctx context.Context, svc *youtube.Service, videoPath string, meta Metadata) (string, error) {
	log.Printf("[upload] Uploading: %q", meta.Title)

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                meta.Title,
			Description:          meta.Description,
			Tags:                 meta.Tags,
			CategoryId:           meta.CategoryID,
			DefaultLanguage:      u.cfg.DefaultLanguage,
			DefaultAudioLanguage: u.cfg.DefaultLanguage,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           meta.Visibility,
			SelfDeclaredMadeForKids: u.cfg.MadeForKids,
		},
	}

	f, err := os.Open(videoPath)
	if err != nil {
		return "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()
	if fi, err := f.Stat(); err == nil {
		log.Printf("[upload] File size: %.1f MB", float64(fi.Size())/1024/1024)
	}

	call := svc.Videos.Insert([]string{"snippet", "status"}, video).
		NotifySubscribers(u.cfg.NotifySubscribers).
		Media(f).
		Context(ctx)
	uploaded, err := call.Do()
	if err != nil {
		return "", fmt.Errorf("youtube upload: %w", err)
	}
	log.Printf("[upload] ✅ Uploaded: video ID %s", uploaded.Id)
	return uploaded.Id, nil
}

func setThumbnail(ctx context.Context, svc *youtube.Service, videoID, thumbPath string) error {
	f, err := os.Open(thumbPath)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := svc.Thumbnails.Set(videoID).Media(f).Context(ctx).Do(); err != nil {
		return fmt.Errorf("youtube thumbnail: %w", err)
	}
	return nil
}

// logUpload saves the upload result next to the video
func logUpload(videoID, videoURL, videoFile, outputDir string, meta Metadata) error {
	entry := map[string]any{
		"video_id":    videoID,
		"video_url":   videoURL,
		"title":       meta.Title,
		"visibility":  meta.Visibility,
		"uploaded_at": time.Now().UTC().Format(time.RFC3339),
		"video_file":  videoFile,
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}
	logFile := filepath.Join(outputDir, fmt.Sprintf("upload_%s.json", time.Now().Format("20060102_150405")))
	if err := os.WriteFile(logFile, data, 0644); err != nil {
		return err
	}
	log.Printf("[upload] Upload log saved: %s", logFile)
	return nil
}
