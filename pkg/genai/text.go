package genai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"bee-finder/pkg/apperr"
)

const speciesInstruction = "From the preceding prompt, identify the bee species. Return a JSON object with two keys: " +
	"'speciesName' (the common name of the bee) and 'fact' (a surprising, one-sentence fact about that bee)."

// Facts is the species identification returned by the text model.
type Facts struct {
	SpeciesName string `json:"speciesName"`
	Fact        string `json:"fact"`
}

var factsSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"speciesName": {Type: genai.TypeString, Description: "The common name of the bee."},
		"fact":        {Type: genai.TypeString, Description: "A surprising, one-sentence fact about the bee."},
	},
	Required: []string{"speciesName", "fact"},
}

// GenerateFacts asks the text model which bee the image prompt describes.
func (s *Service) GenerateFacts(ctx context.Context, prompt string) (Facts, error) {
	s.logger.Info("generating species facts", "model", s.textModel)

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromText(speciesInstruction),
		}, genai.RoleUser),
	}
	resp, err := s.models.GenerateContent(ctx, s.textModel, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   factsSchema,
	})
	if err != nil {
		s.logger.Error("text generation failed", "error", err)
		return Facts{}, apperr.Wrap(apperr.Internal, apperr.GenericMessage, fmt.Errorf("genai error: %w", err))
	}

	facts, lenient, err := parseFacts(resp.Text())
	if err != nil {
		s.logger.Error("could not parse species facts", "error", err)
		return Facts{}, apperr.Wrap(apperr.Internal, apperr.GenericMessage, err)
	}
	if lenient {
		s.logger.Warn("species facts needed lenient parsing")
	}
	return facts, nil
}

// parseFacts decodes strict JSON first, then retries after stripping Markdown fences
// or cutting out the first {...} object. lenient reports whether the fallback was used.
func parseFacts(text string) (facts Facts, lenient bool, err error) {
	if err := json.Unmarshal([]byte(strings.TrimSpace(text)), &facts); err == nil && facts.SpeciesName != "" && facts.Fact != "" {
		return facts, false, nil
	}

	cleaned := strings.ReplaceAll(text, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.TrimSpace(cleaned)
	if start, end := strings.Index(cleaned, "{"), strings.LastIndex(cleaned, "}"); start >= 0 && end > start {
		cleaned = cleaned[start : end+1]
	}

	facts = Facts{}
	if err := json.Unmarshal([]byte(cleaned), &facts); err != nil {
		return Facts{}, true, fmt.Errorf("failed to parse facts JSON: %w", err)
	}
	if facts.SpeciesName == "" || facts.Fact == "" {
		return Facts{}, true, fmt.Errorf("facts JSON missing fields: %q", cleaned)
	}
	return facts, true, nil
}
