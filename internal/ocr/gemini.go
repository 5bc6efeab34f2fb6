package ocr

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/cli2468/Vision-sub000/internal/domain"
	"github.com/cli2468/Vision-sub000/internal/logging"
)

const DefaultModel = "gemini-2.5-flash"

const orderPrompt = `This image is a screenshot or photo of an order confirmation, receipt or listing for items bought to resell.
Return the item name, the total amount paid in dollars for the whole order, and the number of units.
If the image shows several different items, describe the most prominent one.
Use an empty name, cost 0 and quantity 1 for anything you cannot read.`

// generator is the slice of the genai client the extractor calls.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini extracts order data with a multimodal Gemini model.
type Gemini struct {
	models generator
	model  string
	logger *logging.Logger
}

type GeminiOption func(*Gemini)

func WithModel(model string) GeminiOption {
	return func(g *Gemini) {
		if strings.TrimSpace(model) != "" {
			g.model = strings.TrimSpace(model)
		}
	}
}

func WithLogger(logger *logging.Logger) GeminiOption {
	return func(g *Gemini) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGemini creates a Gemini API client for apiKey.
func NewGemini(ctx context.Context, apiKey string, opts ...GeminiOption) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return newGemini(client.Models, opts...), nil
}

func newGemini(models generator, opts ...GeminiOption) *Gemini {
	g := &Gemini{
		models: models,
		model:  DefaultModel,
		logger: logging.NewSilentLogger(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gemini) Extract(ctx context.Context, image []byte, mimeType string, progress Progress) (domain.OrderData, error) {
	if progress == nil {
		progress = func(string, float64) {}
	}
	if err := checkImage(image); err != nil {
		return domain.OrderData{}, err
	}
	mimeType, err := DetectType(image, mimeType)
	if err != nil {
		return domain.OrderData{}, err
	}
	progress("uploading", 0.1)

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(image, mimeType),
			genai.NewPartFromText(orderPrompt),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   orderSchema,
	}

	g.logger.Debug().Str("model", g.model).Str("mime", mimeType).Int("bytes", len(image)).Msg("extracting order data")
	progress("recognizing", 0.4)
	result, err := g.models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return domain.OrderData{}, fmt.Errorf("failed to generate content: %w", err)
	}

	progress("parsing", 0.9)
	text, err := responseText(result)
	if err != nil {
		return domain.OrderData{}, err
	}
	data, err := parseOrder(text)
	if err != nil {
		return domain.OrderData{}, err
	}
	progress("done", 1)
	return data, nil
}

var orderSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"name":     {Type: genai.TypeString, Description: "Item name as shown on the order"},
		"cost":     {Type: genai.TypeNumber, Description: "Total paid in dollars"},
		"quantity": {Type: genai.TypeInteger, Description: "Number of units"},
	},
	Required: []string{"name", "cost", "quantity"},
}

func responseText(result *genai.GenerateContentResponse) (string, error) {
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", ErrNoData
	}
	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}
