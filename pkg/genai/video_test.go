package genai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"bee-finder/pkg/apperr"
)

func doneWithVideo(v *genai.Video) *genai.GenerateVideosOperation {
	return &genai.GenerateVideosOperation{
		Name:     "operations/done",
		Done:     true,
		Response: &genai.GenerateVideosResponse{GeneratedVideos: []*genai.GeneratedVideo{{Video: v}}},
	}
}

func pending(name string) *genai.GenerateVideosOperation {
	return &genai.GenerateVideosOperation{Name: name}
}

var testImage = &Image{Data: []byte("img"), MIMEType: "image/png"}

func TestClampDuration(t *testing.T) {
	require.Equal(t, 8, ClampDuration(0))
	require.Equal(t, 4, ClampDuration(1))
	require.Equal(t, 4, ClampDuration(4))
	require.Equal(t, 6, ClampDuration(6))
	require.Equal(t, 8, ClampDuration(30))
}

func TestGenerateVideoPollsWithRotatingMessages(t *testing.T) {
	models := &MockModels{videoOps: map[string]*genai.GenerateVideosOperation{
		"veo-3.1-fast-generate-preview": pending("operations/1"),
	}}
	ops := &MockOperations{states: []*genai.GenerateVideosOperation{
		pending("operations/1"),
		pending("operations/1"),
		doneWithVideo(&genai.Video{VideoBytes: []byte("mp4"), MIMEType: "video/mp4"}),
	}}
	s := newTestService(models, ops, nil, Options{})

	var messages []string
	v, err := s.GenerateVideo(context.Background(), VideoRequest{
		Image:           testImage,
		Prompt:          "buzz",
		DurationSeconds: 12,
		Progress:        func(m string) { messages = append(messages, m) },
	})
	require.NoError(t, err)
	require.Equal(t, []byte("mp4"), v.Data)
	require.Equal(t, "video/mp4", v.MIMEType)
	require.Equal(t, 3, ops.polls)

	require.Equal(t, ProgressMessages[:4], messages)

	require.Len(t, models.videoCalls, 1)
	require.Equal(t, int32(8), *models.videoCalls[0].cfg.DurationSeconds)
	require.Equal(t, []byte("img"), models.videoCalls[0].image.ImageBytes)
}

func TestGenerateVideoOperationError(t *testing.T) {
	models := &MockModels{videoOps: map[string]*genai.GenerateVideosOperation{
		"veo-3.1-fast-generate-preview": {Name: "operations/2", Done: true, Error: map[string]any{"code": float64(3), "message": "Prompt was blocked."}},
	}}
	s := newTestService(models, &MockOperations{}, nil, Options{})

	_, err := s.GenerateVideo(context.Background(), VideoRequest{Image: testImage})
	require.True(t, apperr.Is(err, apperr.Internal))
	require.Equal(t, "Prompt was blocked.", apperr.MessageOf(err))
}

func TestGenerateVideoNoVideos(t *testing.T) {
	models := &MockModels{videoOps: map[string]*genai.GenerateVideosOperation{
		"veo-3.1-fast-generate-preview": {Name: "operations/3", Done: true, Response: &genai.GenerateVideosResponse{}},
	}}
	s := newTestService(models, &MockOperations{}, nil, Options{})

	_, err := s.GenerateVideo(context.Background(), VideoRequest{Image: testImage})
	require.Error(t, err)
	require.Equal(t, "The animation failed. The bee might be camera shy!", apperr.MessageOf(err))
}

func TestGenerateVideoRequiresImage(t *testing.T) {
	s := newTestService(&MockModels{}, &MockOperations{}, nil, Options{})
	_, err := s.GenerateVideo(context.Background(), VideoRequest{})
	require.True(t, apperr.Is(err, apperr.InvalidArgument))
}

func TestGenerateVideoURIs(t *testing.T) {
	t.Run("gcs uri becomes public url", func(t *testing.T) {
		models := &MockModels{videoOps: map[string]*genai.GenerateVideosOperation{
			"veo-3.1-fast-generate-preview": doneWithVideo(&genai.Video{URI: "gs://bees/videos/1.mp4"}),
		}}
		s := newTestService(models, &MockOperations{}, nil, Options{})
		v, err := s.GenerateVideo(context.Background(), VideoRequest{ImageGCSURI: "gs://bees/images/1.png"})
		require.NoError(t, err)
		require.Equal(t, "https://storage.googleapis.com/bees/videos/1.mp4", v.URI)
		require.Equal(t, "gs://bees/images/1.png", models.videoCalls[0].image.GCSURI)
	})

	t.Run("file uri is downloaded", func(t *testing.T) {
		models := &MockModels{videoOps: map[string]*genai.GenerateVideosOperation{
			"veo-3.1-fast-generate-preview": doneWithVideo(&genai.Video{URI: "https://generativelanguage.googleapis.com/v1beta/files/abc:download"}),
		}}
		s := newTestService(models, &MockOperations{}, &MockFiles{data: []byte("downloaded")}, Options{})
		v, err := s.GenerateVideo(context.Background(), VideoRequest{Image: testImage})
		require.NoError(t, err)
		require.Equal(t, []byte("downloaded"), v.Data)
		require.Empty(t, v.URI)
	})
}

func TestAnimateFallsBackOnExhaustion(t *testing.T) {
	models := &MockModels{
		videoErrs: map[string]error{"veo-primary": genai.APIError{Code: 429, Status: "RESOURCE_EXHAUSTED", Message: "Quota exceeded"}},
		videoOps:  map[string]*genai.GenerateVideosOperation{"veo-fallback": doneWithVideo(&genai.Video{VideoBytes: []byte("fallback")})},
	}
	s := newTestService(models, &MockOperations{}, nil, Options{VideoModel: "veo-primary", VideoFallbackModel: "veo-fallback"})

	v, err := s.Animate(context.Background(), VideoRequest{Image: testImage})
	require.NoError(t, err)
	require.Equal(t, "veo-fallback", v.Model)
	require.Len(t, models.videoCalls, 2)
}

func TestAnimateBothModelsExhausted(t *testing.T) {
	models := &MockModels{
		videoErrs: map[string]error{"veo-primary": errors.New("model is temporarily unavailable")},
		videoOps: map[string]*genai.GenerateVideosOperation{"veo-fallback": {
			Name: "operations/4", Done: true, Error: map[string]any{"code": float64(8), "message": "Resource has been exhausted."},
		}},
	}
	s := newTestService(models, &MockOperations{}, nil, Options{VideoModel: "veo-primary", VideoFallbackModel: "veo-fallback"})

	_, err := s.Animate(context.Background(), VideoRequest{Image: testImage})
	require.ErrorIs(t, err, ErrResourceExhausted)
}

func TestAnimateDoesNotFallBackOnOtherErrors(t *testing.T) {
	models := &MockModels{videoErrs: map[string]error{"veo-primary": errors.New("invalid argument")}}
	s := newTestService(models, &MockOperations{}, nil, Options{VideoModel: "veo-primary", VideoFallbackModel: "veo-fallback"})

	_, err := s.Animate(context.Background(), VideoRequest{Image: testImage})
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrResourceExhausted)
	require.Len(t, models.videoCalls, 1)
}

func TestPublicGCSURL(t *testing.T) {
	require.Equal(t, "https://storage.googleapis.com/b/p/x.mp4", PublicGCSURL("gs://b/p/x.mp4"))
	require.Equal(t, "https://example.com/x", PublicGCSURL("https://example.com/x"))
}
