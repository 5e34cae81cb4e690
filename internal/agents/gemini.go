package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when no model is configured
const DefaultGeminiModel = "gemini-2.5-flash"

// GeminiOracle generates turns with Google's Gemini API
type GeminiOracle struct {
	client *genai.Client
	model  string
}

// NewGeminiOracle creates a Gemini oracle. An empty key yields an
// unconfigured oracle rather than an error.
func NewGeminiOracle(ctx context.Context, apiKey, model string) (*GeminiOracle, error) {
	if model == "" {
		model = DefaultGeminiModel
	}
	g := &GeminiOracle{model: model}
	if apiKey == "" {
		return g, nil
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	g.client = client
	return g, nil
}

// Configured reports whether a client was created
func (g *GeminiOracle) Configured() bool {
	return g.client != nil
}

// Generate asks the model for a JSON answer matching req.Shape
func (g *GeminiOracle) Generate(ctx context.Context, req OracleRequest) ([]byte, error) {
	if g.client == nil {
		return nil, ErrMissingCredential
	}

	model := g.client.GenerativeModel(g.model)
	model.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = toGenaiSchema(req.Shape)
	model.SetTemperature(0.8)
	model.SetTopP(0.9)

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	text := strings.TrimSpace(getText(resp))
	if text == "" {
		return nil, fmt.Errorf("%w: empty gemini response", ErrMalformedResponse)
	}
	return []byte(text), nil
}

// Close releases the underlying client
func (g *GeminiOracle) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

func getText(resp *genai.GenerateContentResponse) string {
	var text string
	if resp != nil && len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				text += string(txt)
			}
		}
	}
	return text
}

func toGenaiSchema(s *Shape) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{
		Description: s.Description,
		Required:    s.Required,
		Enum:        s.Enum,
		Nullable:    s.Nullable,
		Items:       toGenaiSchema(s.Items),
	}
	switch s.Type {
	case ShapeObject:
		out.Type = genai.TypeObject
	case ShapeArray:
		out.Type = genai.TypeArray
	case ShapeNumber:
		out.Type = genai.TypeNumber
	case ShapeInteger:
		out.Type = genai.TypeInteger
	case ShapeBoolean:
		out.Type = genai.TypeBoolean
	default:
		out.Type = genai.TypeString
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = toGenaiSchema(p)
		}
	}
	return out
}
