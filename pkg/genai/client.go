package genai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"google.golang.org/genai"

	"bee-finder/pkg/apperr"
	"bee-finder/pkg/config"
)

type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateVideos(ctx context.Context, model string, prompt string, image *genai.Image, config *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error)
}

type operationsAPI interface {
	GetVideosOperation(ctx context.Context, op *genai.GenerateVideosOperation, config *genai.GetOperationConfig) (*genai.GenerateVideosOperation, error)
}

type filesAPI interface {
	Download(ctx context.Context, uri genai.DownloadURI, config *genai.DownloadFileConfig) ([]byte, error)
}

// Options configures a Service.
type Options struct {
	Backend   string
	APIKey    string
	ProjectID string
	Location  string

	ImageModel            string
	TextModel             string
	VideoModel            string
	VideoFallbackModel    string
	ImageResponseMIMEType string

	Logger *slog.Logger
}

// OptionsFromConfig maps the loaded configuration onto Options.
func OptionsFromConfig(cfg config.GenAIConfig, logger *slog.Logger) Options {
	return Options{
		Backend:               cfg.Backend,
		APIKey:                cfg.APIKey,
		ProjectID:             cfg.ProjectID,
		Location:              cfg.Location,
		ImageModel:            cfg.ImageModel,
		TextModel:             cfg.TextModel,
		VideoModel:            cfg.VideoModel,
		VideoFallbackModel:    cfg.VideoFallbackModel,
		ImageResponseMIMEType: cfg.ImageResponseMIMEType,
		Logger:                logger,
	}
}

// Service wraps the image, text and video models.
type Service struct {
	models     modelsAPI
	operations operationsAPI
	files      filesAPI

	imageModel            string
	textModel             string
	videoModel            string
	videoFallbackModel    string
	imageResponseMIMEType string

	pollInterval time.Duration
	logger       *slog.Logger
}

// NewService builds the underlying client. Missing credentials fail here rather than on first use.
func NewService(ctx context.Context, opts Options) (*Service, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	cc := &genai.ClientConfig{}
	switch opts.Backend {
	case config.BackendVertex:
		if opts.ProjectID == "" {
			return nil, apperr.New(apperr.Internal, "Server configuration error: Google Cloud project is missing.")
		}
		cc.Backend = genai.BackendVertexAI
		cc.Project = opts.ProjectID
		cc.Location = opts.Location
	case config.BackendGemini, "":
		if opts.APIKey == "" {
			return nil, apperr.New(apperr.Internal, "Server configuration error: Gemini API Key is missing.")
		}
		cc.Backend = genai.BackendGeminiAPI
		cc.APIKey = opts.APIKey
	default:
		return nil, apperr.New(apperr.Internal, fmt.Sprintf("Server configuration error: unknown GenAI backend %q.", opts.Backend))
	}

	opts.Logger.Info("initializing genai service", "backend", opts.Backend, "project", opts.ProjectID, "location", opts.Location)

	c, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "Server configuration error: could not create the GenAI client.", err)
	}

	return newService(c.Models, c.Operations, c.Files, opts), nil
}

func newService(models modelsAPI, operations operationsAPI, files filesAPI, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Service{
		models:                models,
		operations:            operations,
		files:                 files,
		imageModel:            orDefault(opts.ImageModel, "gemini-2.5-flash-image"),
		textModel:             orDefault(opts.TextModel, "gemini-2.5-flash"),
		videoModel:            orDefault(opts.VideoModel, "veo-3.1-fast-generate-preview"),
		videoFallbackModel:    opts.VideoFallbackModel,
		imageResponseMIMEType: opts.ImageResponseMIMEType,
		pollInterval:          10 * time.Second,
		logger:                opts.Logger.With("component", "genai"),
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// ErrResourceExhausted is returned when every configured video model reports exhaustion.
var ErrResourceExhausted = errors.New("video models are out of capacity")

// isExhausted reports whether err looks like quota or capacity exhaustion.
func isExhausted(err error) bool {
	if err == nil {
		return false
	}
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && (apiErr.Code == 429 || apiErr.Status == "RESOURCE_EXHAUSTED") {
		return true
	}
	return exhaustedMessage(err.Error())
}

func exhaustedMessage(msg string) bool {
	m := strings.ToLower(msg)
	return strings.Contains(m, "resource_exhausted") ||
		strings.Contains(m, "resource exhausted") ||
		strings.Contains(m, "429") ||
		strings.Contains(m, "temporarily unavailable")
}
