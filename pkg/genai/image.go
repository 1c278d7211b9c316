package genai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"bee-finder/pkg/apperr"
)

const msgImageFailed = "Our artist bee is taking a nap. Could not generate image."

// relaxedMIMEType replaces a response MIME type the model rejected.
const relaxedMIMEType = "text/plain"

// Image is raw generated image bytes.
type Image struct {
	Data     []byte
	MIMEType string
}

// GenerateImage renders prompt. It retries at most once: an identical request when the
// response carried no image, or a request with a relaxed response MIME type when the
// model rejected the configured one. Any other error is returned immediately.
func (s *Service) GenerateImage(ctx context.Context, prompt string) (*Image, error) {
	s.logger.Info("generating image", "model", s.imageModel)

	img, err := s.generateImage(ctx, prompt, s.imageResponseMIMEType)
	if err == nil && img != nil {
		return img, nil
	}

	retryMIME := s.imageResponseMIMEType
	switch {
	case err != nil && isMIMETypeRejection(err):
		s.logger.Warn("image model rejected response mime type, retrying relaxed", "mime_type", s.imageResponseMIMEType, "error", err)
		retryMIME = relaxedMIMEType
	case err != nil:
		s.logger.Error("image generation failed", "error", err)
		return nil, apperr.Wrap(apperr.Internal, msgImageFailed, err)
	default:
		s.logger.Warn("no image part in response, retrying once")
	}

	img, err = s.generateImage(ctx, prompt, retryMIME)
	if err != nil {
		s.logger.Error("image retry failed", "error", err)
		return nil, apperr.Wrap(apperr.Internal, msgImageFailed, err)
	}
	if img == nil {
		s.logger.Error("image retry returned no image part")
		return nil, apperr.New(apperr.Internal, msgImageFailed)
	}
	return img, nil
}

// generateImage returns (nil, nil) when the call succeeded but held no image.
func (s *Service) generateImage(ctx context.Context, prompt, responseMIMEType string) (*Image, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseModalities: []string{"IMAGE", "TEXT"},
		ResponseMIMEType:   responseMIMEType,
	}
	resp, err := s.models.GenerateContent(ctx, s.imageModel, genai.Text(prompt), cfg)
	if err != nil {
		return nil, fmt.Errorf("genai error: %w", err)
	}
	return firstImage(resp), nil
}

func firstImage(resp *genai.GenerateContentResponse) *Image {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.InlineData == nil || len(part.InlineData.Data) == 0 {
			continue
		}
		if strings.HasPrefix(part.InlineData.MIMEType, "image/") {
			return &Image{Data: part.InlineData.Data, MIMEType: part.InlineData.MIMEType}
		}
	}
	return nil
}

func isMIMETypeRejection(err error) bool {
	m := strings.ToLower(err.Error())
	return strings.Contains(m, "response_mime_type") ||
		strings.Contains(m, "responsemimetype") ||
		strings.Contains(m, "response mime type")
}
