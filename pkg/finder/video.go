package finder

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"bee-finder/pkg/apperr"
	"bee-finder/pkg/genai"
	"bee-finder/pkg/storage"
)

// Video statuses.
const (
	VideoCompleted   = "completed"
	VideoUnavailable = "unavailable"
	VideoFailed      = "failed"
)

const (
	msgVideoReady       = "Your bee animation is ready!"
	msgVideoUnavailable = "All of our video bees are busy right now. Please try again in a little while."
	msgVideoNotSaved    = "The animation was made but could not be saved. Please try again."
	msgUnsupportedImage = "The 'imageUrl' must be a data URI or the address of a Bee Finder picture."
	msgNotAnImage       = "The 'imageUrl' does not point to an image."
	msgImageTooLarge    = "The image is too large."

	maxImageBytes = 20 << 20
)

// VideoRequest is the input of the single-request video endpoint.
type VideoRequest struct {
	ImageURL     string `json:"imageUrl"`
	Duration     int    `json:"duration"`
	Prompt       string `json:"prompt"`
	GenerationID string `json:"generationId,omitempty"`
}

type VideoResult struct {
	VideoURL *string `json:"videoUrl"`
	Duration int     `json:"duration"`
	Status   string  `json:"status"`
	Message  string  `json:"message"`
}

// Video animates a previously generated image. Capacity exhaustion on every model
// is reported as an "unavailable" result rather than an error.
func (s *Service) Video(ctx context.Context, req VideoRequest, sendStatus StatusCallback) (*VideoResult, error) {
	if sendStatus == nil {
		sendStatus = noStatus
	}
	if strings.TrimSpace(req.ImageURL) == "" {
		return nil, apperr.New(apperr.InvalidArgument, "The request must include an 'imageUrl' string.")
	}
	if err := s.checkImageURL(req.ImageURL); err != nil {
		return nil, err
	}
	duration := genai.ClampDuration(req.Duration)
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		prompt = s.Picker.MotionPrompt()
	}

	vreq := genai.VideoRequest{
		Prompt:          prompt,
		DurationSeconds: duration,
		Progress:        func(m string) { sendStatus(EventProgress, m) },
	}
	if gcsURI, ok := gcsURIFromPublicURL(req.ImageURL); ok && s.UseGCSURIs {
		vreq.ImageGCSURI = gcsURI
	} else {
		img, err := s.loadImage(ctx, req.ImageURL)
		if err != nil {
			return nil, err
		}
		vreq.Image = img
	}

	s.logger.Info("animating image", "image", req.ImageURL, "duration", duration)
	v, err := s.GenAI.Animate(ctx, vreq)
	if errors.Is(err, genai.ErrResourceExhausted) {
		s.logger.Warn("all video models exhausted", "error", err)
		return &VideoResult{Duration: duration, Status: VideoUnavailable, Message: msgVideoUnavailable}, nil
	}
	if err != nil {
		return nil, apperr.From(err)
	}

	videoURL, err := s.publishVideo(ctx, v)
	if err != nil {
		s.logger.Error("video upload failed", "error", err)
		return &VideoResult{Duration: duration, Status: VideoFailed, Message: msgVideoNotSaved}, nil
	}
	s.recordVideo(ctx, req.GenerationID, videoURL)

	return &VideoResult{VideoURL: &videoURL, Duration: duration, Status: VideoCompleted, Message: msgVideoReady}, nil
}

// publishVideo returns a public URL for v, uploading its bytes when it has no URI.
func (s *Service) publishVideo(ctx context.Context, v *genai.Video) (string, error) {
	if v.URI != "" {
		return v.URI, nil
	}
	if s.Storage == nil {
		return "", errors.New("no storage configured")
	}
	obj, err := s.Storage.Put(ctx, storage.VideoPath(s.now(), v.MIMEType), v.Data, v.MIMEType)
	if err != nil {
		return "", err
	}
	return obj.URL, nil
}

// gcsURIFromPublicURL maps https://storage.googleapis.com/bucket/path back to gs://bucket/path.
func gcsURIFromPublicURL(u string) (string, bool) {
	if strings.HasPrefix(u, "gs://") {
		return u, true
	}
	rest, ok := strings.CutPrefix(u, "https://storage.googleapis.com/")
	if !ok || !strings.Contains(rest, "/") {
		return "", false
	}
	return "gs://" + rest, true
}

// checkImageURL accepts data URIs, /media/ objects and URLs under ImageOrigins.
func (s *Service) checkImageURL(u string) error {
	switch {
	case strings.HasPrefix(u, "data:"), strings.HasPrefix(u, storage.MediaPrefix):
		return nil
	case strings.HasPrefix(u, "gs://"):
		if s.published("https://storage.googleapis.com/" + strings.TrimPrefix(u, "gs://")) {
			return nil
		}
	case strings.HasPrefix(u, "http://"), strings.HasPrefix(u, "https://"):
		if s.published(u) {
			return nil
		}
	}
	return apperr.New(apperr.InvalidArgument, msgUnsupportedImage)
}

func (s *Service) published(u string) bool {
	parsed, err := url.Parse(u)
	if err != nil || parsed.User != nil || slices.Contains(strings.Split(parsed.Path, "/"), "..") {
		return false
	}
	for _, origin := range s.ImageOrigins {
		if origin != "" && strings.HasPrefix(u, origin) {
			return true
		}
	}
	return false
}

// loadImage reads a data URI, a /media/ object from the store, or an http(s) URL.
func (s *Service) loadImage(ctx context.Context, u string) (*genai.Image, error) {
	switch {
	case strings.HasPrefix(u, "data:"):
		return decodeDataURI(u)
	case strings.HasPrefix(u, storage.MediaPrefix):
		if s.Storage == nil {
			return nil, apperr.New(apperr.NotFound, "The image could not be found.")
		}
		data, mime, err := s.Storage.Get(ctx, strings.TrimPrefix(u, storage.MediaPrefix))
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperr.New(apperr.NotFound, "The image could not be found.")
		}
		if err != nil {
			return nil, apperr.Wrap(apperr.Unavailable, "Could not fetch the image.", err)
		}
		return &genai.Image{Data: data, MIMEType: mime}, nil
	case strings.HasPrefix(u, "http://"), strings.HasPrefix(u, "https://"):
		return fetchImage(ctx, u)
	default:
		return nil, apperr.New(apperr.InvalidArgument, msgUnsupportedImage)
	}
}

func decodeDataURI(u string) (*genai.Image, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(u, "data:"), ",")
	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if !ok || !isBase64 || !strings.HasPrefix(mime, "image/") {
		return nil, apperr.New(apperr.InvalidArgument, "The 'imageUrl' data URI must be a base64 image.")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidArgument, "The 'imageUrl' data URI must be a base64 image.", err)
	}
	return &genai.Image{Data: data, MIMEType: mime}, nil
}

var imageHTTPClient = &http.Client{
	Timeout:       30 * time.Second,
	CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

func fetchImage(ctx context.Context, u string) (*genai.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.InvalidArgument, "The 'imageUrl' is not a valid URL.", err)
	}
	resp, err := imageHTTPClient.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "Could not fetch the image.", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, apperr.New(apperr.NotFound, "The image could not be found.")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Wrap(apperr.Unavailable, "Could not fetch the image.", fmt.Errorf("status %d", resp.StatusCode))
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, apperr.Wrap(apperr.Unavailable, "Could not fetch the image.", err)
	}
	if len(data) > maxImageBytes {
		return nil, apperr.New(apperr.InvalidArgument, msgImageTooLarge)
	}
	mime := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(mime, "image/") {
		mime = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mime, "image/") {
		return nil, apperr.New(apperr.InvalidArgument, msgNotAnImage)
	}
	return &genai.Image{Data: data, MIMEType: mime}, nil
}
