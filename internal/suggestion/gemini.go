package suggestion

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.5-flash"

// Gemini implements the Suggester interface using Google Gemini
type Gemini struct {
	client  *genai.Client
	model   *genai.GenerativeModel
	timeout time.Duration
}

// NewGemini creates a new Gemini Suggester instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = defaultGeminiModel
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}

	model := client.GenerativeModel(modelName)
	configureModel(model)

	return &Gemini{
		client:  client,
		model:   model,
		timeout: GeminiTimeout,
	}, nil
}

// configureModel asks the model for JSON output constrained to the suggestion shape
func configureModel(model *genai.GenerativeModel) {
	model.SystemInstruction = genai.NewUserContent(genai.Text(systemInstruction))
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = suggestionSchema()
	model.SetTemperature(0.7)
}

// suggestionSchema describes {inclusions: string, details: [string]}
func suggestionSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"inclusions": {
				Type:        genai.TypeString,
				Description: "Resumen de lo que incluye el viaje",
			},
			"details": {
				Type:        genai.TypeArray,
				Description: "Detalles sugeridos para el pasajero",
				Items:       &genai.Schema{Type: genai.TypeString},
			},
		},
		Required: []string{"inclusions", "details"},
	}
}

// Suggest asks Gemini for trip inclusions and details
func (g *Gemini) Suggest(ctx context.Context, description, month string) (*Suggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.model.GenerateContent(ctx, genai.Text(buildPrompt(description, month)))
	if err != nil {
		return nil, fmt.Errorf("generating content: %w", err)
	}

	text, err := responseText(resp)
	if err != nil {
		return nil, err
	}

	s, err := parseSuggestionJSON(text)
	if err != nil {
		return nil, fmt.Errorf("parsing suggestion: %w", err)
	}
	return s, nil
}

// responseText concatenates the text parts of the first candidate
func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil ||
		len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: no response from gemini", ErrMalformedSuggestion)
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	return g.client.Close()
}
