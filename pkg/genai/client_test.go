package genai

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"bee-finder/pkg/apperr"
)

type contentCall struct {
	model string
	cfg   *genai.GenerateContentConfig
}

type videoCall struct {
	model string
	image *genai.Image
	cfg   *genai.GenerateVideosConfig
}

type result struct {
	resp *genai.GenerateContentResponse
	err  error
}

// MockModels replays queued responses in order.
type MockModels struct {
	mu           sync.Mutex
	contents     []result
	contentCalls []contentCall
	videoOps     map[string]*genai.GenerateVideosOperation
	videoErrs    map[string]error
	videoCalls   []videoCall
}

func (m *MockModels) GenerateContent(_ context.Context, model string, _ []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contentCalls = append(m.contentCalls, contentCall{model: model, cfg: cfg})
	if len(m.contents) == 0 {
		return nil, errors.New("unexpected call")
	}
	r := m.contents[0]
	m.contents = m.contents[1:]
	return r.resp, r.err
}

func (m *MockModels) GenerateVideos(_ context.Context, model string, _ string, image *genai.Image, cfg *genai.GenerateVideosConfig) (*genai.GenerateVideosOperation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.videoCalls = append(m.videoCalls, videoCall{model: model, image: image, cfg: cfg})
	if err := m.videoErrs[model]; err != nil {
		return nil, err
	}
	return m.videoOps[model], nil
}

// MockOperations returns the queued states one poll at a time.
type MockOperations struct {
	mu     sync.Mutex
	states []*genai.GenerateVideosOperation
	polls  int
}

func (m *MockOperations) GetVideosOperation(_ context.Context, op *genai.GenerateVideosOperation, _ *genai.GetOperationConfig) (*genai.GenerateVideosOperation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.polls++
	if len(m.states) == 0 {
		return op, nil
	}
	next := m.states[0]
	m.states = m.states[1:]
	return next, nil
}

type MockFiles struct {
	data []byte
}

func (m *MockFiles) Download(context.Context, genai.DownloadURI, *genai.DownloadFileConfig) ([]byte, error) {
	return m.data, nil
}

func newTestService(models *MockModels, ops *MockOperations, files *MockFiles, opts Options) *Service {
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	var f filesAPI
	if files != nil {
		f = files
	}
	s := newService(models, ops, f, opts)
	s.pollInterval = time.Millisecond
	return s
}

func imageResponse(mime string, data []byte) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "Here is your bee."},
				{InlineData: &genai.Blob{MIMEType: mime, Data: data}},
			}},
		}},
	}
}

func emptyResponse() *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{}}}}
}

func TestNewServiceRequiresCredentials(t *testing.T) {
	_, err := NewService(context.Background(), Options{Backend: "gemini"})
	require.True(t, apperr.Is(err, apperr.Internal))
	require.Contains(t, apperr.MessageOf(err), "Server configuration error")

	_, err = NewService(context.Background(), Options{Backend: "vertex"})
	require.True(t, apperr.Is(err, apperr.Internal))

	_, err = NewService(context.Background(), Options{Backend: "carrier-pigeon", APIKey: "k"})
	require.True(t, apperr.Is(err, apperr.Internal))
}

func TestGenerateImageFirstTry(t *testing.T) {
	models := &MockModels{contents: []result{{resp: imageResponse("image/png", []byte("png"))}}}
	s := newTestService(models, nil, nil, Options{})

	img, err := s.GenerateImage(context.Background(), "a bee")
	require.NoError(t, err)
	require.Equal(t, &Image{Data: []byte("png"), MIMEType: "image/png"}, img)
	require.Len(t, models.contentCalls, 1)
	require.Equal(t, "gemini-2.5-flash-image", models.contentCalls[0].model)
	require.Equal(t, []string{"IMAGE", "TEXT"}, models.contentCalls[0].cfg.ResponseModalities)
}

func TestGenerateImageRetriesOnceWhenNoImage(t *testing.T) {
	models := &MockModels{contents: []result{
		{resp: &genai.GenerateContentResponse{}},
		{resp: imageResponse("image/jpeg", []byte("retried"))},
		{resp: imageResponse("image/jpeg", []byte("never"))},
	}}
	s := newTestService(models, nil, nil, Options{})

	img, err := s.GenerateImage(context.Background(), "a bee")
	require.NoError(t, err)
	require.Equal(t, []byte("retried"), img.Data)
	require.Len(t, models.contentCalls, 2)
	require.Equal(t, models.contentCalls[0].cfg, models.contentCalls[1].cfg)
}

func TestGenerateImageGivesUpAfterOneRetry(t *testing.T) {
	models := &MockModels{contents: []result{
		{resp: emptyResponse()},
		{resp: emptyResponse()},
		{resp: imageResponse("image/png", []byte("too late"))},
	}}
	s := newTestService(models, nil, nil, Options{})

	_, err := s.GenerateImage(context.Background(), "a bee")
	require.Error(t, err)
	require.Equal(t, "Our artist bee is taking a nap. Could not generate image.", apperr.MessageOf(err))
	require.Len(t, models.contentCalls, 2)
}

func TestGenerateImageRelaxesRejectedMIMEType(t *testing.T) {
	models := &MockModels{contents: []result{
		{err: errors.New("Error 400, Message: response_mime_type image/png is not supported")},
		{resp: imageResponse("image/png", []byte("ok"))},
	}}
	s := newTestService(models, nil, nil, Options{ImageResponseMIMEType: "image/png"})

	img, err := s.GenerateImage(context.Background(), "a bee")
	require.NoError(t, err)
	require.Equal(t, []byte("ok"), img.Data)
	require.Len(t, models.contentCalls, 2)
	require.Equal(t, "image/png", models.contentCalls[0].cfg.ResponseMIMEType)
	require.Equal(t, "text/plain", models.contentCalls[1].cfg.ResponseMIMEType)
}

func TestGenerateImageOtherErrorsFailImmediately(t *testing.T) {
	models := &MockModels{contents: []result{
		{err: errors.New("permission denied")},
		{resp: imageResponse("image/png", []byte("unreachable"))},
	}}
	s := newTestService(models, nil, nil, Options{})

	_, err := s.GenerateImage(context.Background(), "a bee")
	require.True(t, apperr.Is(err, apperr.Internal))
	require.Len(t, models.contentCalls, 1)
}

func TestFirstImageSkipsNonImageBlobs(t *testing.T) {
	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: &genai.Content{Parts: []*genai.Part{
		{InlineData: &genai.Blob{MIMEType: "text/plain", Data: []byte("nope")}},
		{InlineData: &genai.Blob{MIMEType: "image/webp", Data: []byte("webp")}},
	}}}}}
	require.Equal(t, &Image{Data: []byte("webp"), MIMEType: "image/webp"}, firstImage(resp))
	require.Nil(t, firstImage(nil))
}

func TestGenerateFacts(t *testing.T) {
	models := &MockModels{contents: []result{{resp: &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []*genai.Part{{Text: `{"speciesName":"Eastern Bumble Bee","fact":"It can fly in the rain."}`}}},
	}}}}}}
	s := newTestService(models, nil, nil, Options{})

	facts, err := s.GenerateFacts(context.Background(), "a bee on a rose")
	require.NoError(t, err)
	require.Equal(t, Facts{SpeciesName: "Eastern Bumble Bee", Fact: "It can fly in the rain."}, facts)
	require.Equal(t, "gemini-2.5-flash", models.contentCalls[0].model)
	require.Equal(t, "application/json", models.contentCalls[0].cfg.ResponseMIMEType)
	require.NotNil(t, models.contentCalls[0].cfg.ResponseSchema)
}

func TestParseFacts(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		want        Facts
		wantLenient bool
		wantErr     bool
	}{
		{
			name: "strict",
			text: `{"speciesName":"Mason Bee","fact":"It nests in hollow stems."}`,
			want: Facts{SpeciesName: "Mason Bee", Fact: "It nests in hollow stems."},
		},
		{
			name:        "fenced",
			text:        "```json\n{\"speciesName\":\"Sweat Bee\",\"fact\":\"It likes salt.\"}\n```",
			want:        Facts{SpeciesName: "Sweat Bee", Fact: "It likes salt."},
			wantLenient: true,
		},
		{
			name:        "surrounded by chatter",
			text:        "Sure! Here you go: {\"speciesName\":\"Carpenter Bee\",\"fact\":\"It drills wood.\"} Enjoy.",
			want:        Facts{SpeciesName: "Carpenter Bee", Fact: "It drills wood."},
			wantLenient: true,
		},
		{name: "garbage", text: "no json here", wantLenient: true, wantErr: true},
		{name: "missing fact", text: `{"speciesName":"Leafcutter Bee"}`, wantLenient: true, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, lenient, err := parseFacts(tt.text)
			require.Equal(t, tt.wantLenient, lenient)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}
