package agents

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	// DefaultOpenRouterURL is the public OpenRouter endpoint
	DefaultOpenRouterURL = "https://openrouter.ai/api/v1"
	// DefaultOpenRouterModel is used when no model is configured
	DefaultOpenRouterModel = "google/gemini-2.5-flash"
)

// OpenRouterClient handles communication with OpenRouter API
type OpenRouterClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOpenRouterClient creates a new OpenRouter client. Empty model and
// baseURL fall back to the defaults.
func NewOpenRouterClient(apiKey, model, baseURL string) *OpenRouterClient {
	if model == "" {
		model = DefaultOpenRouterModel
	}
	if baseURL == "" {
		baseURL = DefaultOpenRouterURL
	}

	return &OpenRouterClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Message represents a chat message
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ResponseFormat asks the model for schema-conforming JSON
type ResponseFormat struct {
	Type       string          `json:"type"`
	JSONSchema *JSONSchemaSpec `json:"json_schema,omitempty"`
}

// JSONSchemaSpec names the schema sent in a response format
type JSONSchemaSpec struct {
	Name   string                 `json:"name"`
	Strict bool                   `json:"strict"`
	Schema map[string]interface{} `json:"schema"`
}

// CompletionRequest is the request to OpenRouter API
type CompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	Temperature    float64         `json:"temperature,omitempty"`
	TopP           float64         `json:"top_p,omitempty"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
}

// CompletionResponse is the response from OpenRouter API
type CompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index   int     `json:"index"`
		Message Message `json:"message"`
		Reason  string  `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Configured reports whether an API key is set
func (c *OpenRouterClient) Configured() bool {
	return c.apiKey != ""
}

// Generate runs one chat completion constrained to req.Shape
func (c *OpenRouterClient) Generate(ctx context.Context, req OracleRequest) ([]byte, error) {
	completion := &CompletionRequest{
		Model:       c.model,
		Temperature: 0.8,
		TopP:        0.9,
		Messages: []Message{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
	}
	if req.Shape != nil {
		completion.ResponseFormat = &ResponseFormat{
			Type: "json_schema",
			JSONSchema: &JSONSchemaSpec{
				Name:   "turn_result",
				Schema: req.Shape.JSONSchema(),
			},
		}
	}

	resp, err := c.CreateCompletion(ctx, completion)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, fmt.Errorf("%w: empty completion", ErrMalformedResponse)
	}
	return []byte(content), nil
}

// CreateCompletion calls the OpenRouter API
func (c *OpenRouterClient) CreateCompletion(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
	if c.apiKey == "" {
		return nil, ErrMissingCredential
	}

	if req.Model == "" {
		req.Model = c.model
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = 2048
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("X-Title", "Grand Line RPG")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var completionResp CompletionResponse
	if err := json.Unmarshal(respBody, &completionResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	if completionResp.Error != nil {
		return nil, fmt.Errorf("API error: %s (%s)", completionResp.Error.Message, completionResp.Error.Type)
	}

	if len(completionResp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", ErrMalformedResponse)
	}

	return &completionResp, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
