package agents

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"
)

// TestOpenRouterGenerate tests the request and response handling against a local server
func TestOpenRouterGenerate(t *testing.T) {
	var got CompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Expected /chat/completions, got %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("Expected bearer key, got %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id": "gen-1",
			"choices": []map[string]interface{}{
				{"index": 0, "message": map[string]string{"role": "assistant", "content": validAnswer}},
			},
		})
	}))
	defer server.Close()

	client := NewOpenRouterClient("test-key", "test/model", server.URL)
	raw, err := client.Generate(context.Background(), OracleRequest{
		System: "sys",
		Prompt: "go",
		Shape:  turnResultShape,
	})
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if got.Model != "test/model" || len(got.Messages) != 2 || got.Messages[0].Role != "system" {
		t.Errorf("Unexpected request %+v", got)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_schema" {
		t.Fatal("Expected json_schema response format")
	}
	if _, err := decodeTurnResult(raw); err != nil {
		t.Errorf("Expected decodable answer, got %v", err)
	}
}

// TestOpenRouterErrors tests missing key and HTTP failures
func TestOpenRouterErrors(t *testing.T) {
	if _, err := NewOpenRouterClient("", "", "").Generate(context.Background(), OracleRequest{}); !errors.Is(err, ErrMissingCredential) {
		t.Errorf("Expected ErrMissingCredential, got %v", err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"rate limited"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	if _, err := NewOpenRouterClient("k", "", server.URL).Generate(context.Background(), OracleRequest{}); err == nil {
		t.Error("Expected error for non-200 status")
	}
}

// TestOpenRouterNarratorIntegration tests a real turn through OpenRouter
func TestOpenRouterNarratorIntegration(t *testing.T) {
	apiKey := os.Getenv("OPENROUTER_API_KEY")
	if apiKey == "" {
		t.Skip("OPENROUTER_API_KEY not set, skipping integration test")
	}

	n := NewNarrator(NewOpenRouterClient(apiKey, os.Getenv("OPENROUTER_MODEL"), ""), NarratorOptions{Timeout: 60 * time.Second})
	result := n.Resolve(context.Background(), createTestRequest())

	if result.Degraded {
		t.Fatalf("Expected a real turn, got fallback %q", result.Narrative)
	}
	t.Logf("Narrative: %s", result.Narrative)
}
