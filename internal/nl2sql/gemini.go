package nl2sql

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/vitebski/mysql-nl-query/internal/metrics"
	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-1.5-flash"

// contentGenerator is the part of genai.Models the synthesizer uses
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiSynthesizer sends [prompt, question] to a Gemini model as one user turn
type GeminiSynthesizer struct {
	models contentGenerator
	model  string
}

func NewGeminiSynthesizer(ctx context.Context, cfg Config) (*GeminiSynthesizer, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, errors.New("gemini api key is required (set GOOGLE_API_KEY)")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create gemini client")
	}
	return newGeminiSynthesizer(client.Models, cfg.Model), nil
}

func newGeminiSynthesizer(models contentGenerator, model string) *GeminiSynthesizer {
	model = strings.TrimSpace(model)
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiSynthesizer{models: models, model: model}
}

func (g *GeminiSynthesizer) Provider() string { return ProviderGemini }

func (g *GeminiSynthesizer) Model() string { return g.model }

func (g *GeminiSynthesizer) Synthesize(ctx context.Context, question, prompt string) (string, error) {
	text, err := g.generate(ctx, question, prompt)
	metrics.ObserveSynthesis(ProviderGemini, err)
	return text, err
}

func (g *GeminiSynthesizer) generate(ctx context.Context, question, prompt string) (string, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromText(question),
		}, genai.RoleUser),
	}

	resp, err := g.models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return "", errors.Wrapf(err, "generate content with %s", g.model)
	}
	if resp == nil {
		return "", errors.Errorf("empty response from %s", g.model)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.Errorf("model %s returned no text", g.model)
	}
	return text, nil
}
