package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"bee-finder/pkg/apperr"
)

const (
	DefaultDurationSeconds = 8
	MinDurationSeconds     = 4
	MaxDurationSeconds     = 8

	msgVideoFailed = "The animation failed. The bee might be camera shy!"

	maxPollFailures = 3
)

// ProgressMessages rotate through the progress callback while a video renders.
var ProgressMessages = []string{
	"Waking up the bee's wings...",
	"Warming up the hive projector...",
	"Teaching the bee its best flight path...",
	"Adding a little buzz to every frame...",
	"Polishing the pollen for its close-up...",
	"The bee is rehearsing its waggle dance...",
}

// VideoRequest describes one animation.
type VideoRequest struct {
	Image           *Image
	ImageGCSURI     string
	Prompt          string
	DurationSeconds int
	OutputGCSURI    string
	Progress        func(message string)
}

// Video is a finished animation. Data may be empty when only a public URI is available.
type Video struct {
	Data     []byte
	MIMEType string
	URI      string
	Model    string
}

// ClampDuration applies the default and bounds to a requested duration.
func ClampDuration(seconds int) int {
	switch {
	case seconds <= 0:
		return DefaultDurationSeconds
	case seconds < MinDurationSeconds:
		return MinDurationSeconds
	case seconds > MaxDurationSeconds:
		return MaxDurationSeconds
	default:
		return seconds
	}
}

// GenerateVideo animates the request with the primary model only.
func (s *Service) GenerateVideo(ctx context.Context, req VideoRequest) (*Video, error) {
	return s.generateVideo(ctx, s.videoModel, req)
}

// Animate tries the primary model, then the fallback model when the primary is
// out of capacity. ErrResourceExhausted means both were.
func (s *Service) Animate(ctx context.Context, req VideoRequest) (*Video, error) {
	v, err := s.generateVideo(ctx, s.videoModel, req)
	if err == nil || !errors.Is(err, ErrResourceExhausted) {
		return v, err
	}
	if s.videoFallbackModel == "" || s.videoFallbackModel == s.videoModel {
		return nil, err
	}

	s.logger.Warn("primary video model exhausted, using fallback", "primary", s.videoModel, "fallback", s.videoFallbackModel)
	return s.generateVideo(ctx, s.videoFallbackModel, req)
}

func (s *Service) generateVideo(ctx context.Context, model string, req VideoRequest) (*Video, error) {
	progress := req.Progress
	if progress == nil {
		progress = func(string) {}
	}

	image := &genai.Image{GCSURI: req.ImageGCSURI}
	if req.Image != nil {
		image = &genai.Image{ImageBytes: req.Image.Data, MIMEType: req.Image.MIMEType}
	}
	if len(image.ImageBytes) == 0 && image.GCSURI == "" {
		return nil, apperr.New(apperr.InvalidArgument, "An image is required to create an animation.")
	}

	duration := int32(ClampDuration(req.DurationSeconds))
	cfg := &genai.GenerateVideosConfig{
		NumberOfVideos:  1,
		DurationSeconds: &duration,
		OutputGCSURI:    req.OutputGCSURI,
	}

	s.logger.Info("starting video generation", "model", model, "duration", duration)
	op, err := s.models.GenerateVideos(ctx, model, req.Prompt, image, cfg)
	if err != nil {
		s.logger.Error("GenerateVideos failed", "model", model, "error", err)
		if isExhausted(err) {
			return nil, fmt.Errorf("%s: %w: %v", model, ErrResourceExhausted, err)
		}
		return nil, apperr.Wrap(apperr.Internal, msgVideoFailed, fmt.Errorf("veo error: %w", err))
	}

	tick := 0
	progress(ProgressMessages[0])

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	failures := 0
	for !op.Done {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during polling: %w", ctx.Err())
		case <-ticker.C:
		}

		tick++
		progress(ProgressMessages[tick%len(ProgressMessages)])

		next, err := s.operations.GetVideosOperation(ctx, op, nil)
		if err != nil {
			failures++
			s.logger.Warn("video operation poll failed", "operation", op.Name, "attempt", failures, "error", err)
			if failures >= maxPollFailures {
				return nil, apperr.Wrap(apperr.Internal, msgVideoFailed, fmt.Errorf("polling failed: %w", err))
			}
			continue
		}
		failures = 0
		op = next
		s.logger.Debug("still polling video operation", "operation", op.Name)
	}

	return s.finishVideo(ctx, model, op)
}

func (s *Service) finishVideo(ctx context.Context, model string, op *genai.GenerateVideosOperation) (*Video, error) {
	if op.Error != nil {
		msg, _ := op.Error["message"].(string)
		if msg == "" {
			msg = fmt.Sprintf("%v", op.Error)
		}
		s.logger.Error("video operation failed", "model", model, "message", msg)
		if operationExhausted(op.Error, msg) {
			return nil, fmt.Errorf("%s: %w: %s", model, ErrResourceExhausted, msg)
		}
		return nil, apperr.Wrap(apperr.Internal, msg, errors.New("video operation failed"))
	}
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 || op.Response.GeneratedVideos[0].Video == nil {
		return nil, apperr.Wrap(apperr.Internal, msgVideoFailed, errors.New("operation done but no videos found"))
	}

	v := op.Response.GeneratedVideos[0].Video
	out := &Video{Data: v.VideoBytes, MIMEType: orDefault(v.MIMEType, "video/mp4"), Model: model}

	switch {
	case len(v.VideoBytes) > 0:
	case strings.HasPrefix(v.URI, "gs://"):
		out.URI = PublicGCSURL(v.URI)
	case v.URI != "" && s.files != nil:
		data, err := s.files.Download(ctx, genai.NewDownloadURIFromVideo(v), nil)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, msgVideoFailed, fmt.Errorf("failed to download video: %w", err))
		}
		out.Data = data
	case v.URI != "":
		out.URI = v.URI
	default:
		return nil, apperr.Wrap(apperr.Internal, msgVideoFailed, errors.New("video generated but carries neither bytes nor URI"))
	}

	s.logger.Info("video generated", "model", model, "bytes", len(out.Data), "uri", out.URI)
	return out, nil
}

func operationExhausted(opErr map[string]any, msg string) bool {
	switch code := opErr["code"].(type) {
	case float64:
		if code == 8 || code == 429 {
			return true
		}
	case int:
		if code == 8 || code == 429 {
			return true
		}
	}
	return exhaustedMessage(msg)
}

// PublicGCSURL turns gs://bucket/path into its public HTTPS form.
func PublicGCSURL(uri string) string {
	rest, ok := strings.CutPrefix(uri, "gs://")
	if !ok {
		return uri
	}
	return "https://storage.googleapis.com/" + rest
}
