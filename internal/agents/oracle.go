package agents

import (
	"context"
	"errors"
)

var (
	// ErrMissingCredential is returned when an oracle has no API key
	ErrMissingCredential = errors.New("oracle credential not configured")
	// ErrMalformedResponse is returned when the oracle answer is not a usable turn
	ErrMalformedResponse = errors.New("malformed oracle response")
)

// Oracle is a generative-language backend that answers with JSON
type Oracle interface {
	Generate(ctx context.Context, req OracleRequest) ([]byte, error)
	Configured() bool
}

// OracleRequest is one structured generation call
type OracleRequest struct {
	System string
	Prompt string
	Shape  *Shape
}

// ShapeType is a JSON value type in a response shape
type ShapeType string

const (
	ShapeObject  ShapeType = "object"
	ShapeArray   ShapeType = "array"
	ShapeString  ShapeType = "string"
	ShapeNumber  ShapeType = "number"
	ShapeInteger ShapeType = "integer"
	ShapeBoolean ShapeType = "boolean"
)

// Shape describes the expected answer independently of the provider
type Shape struct {
	Type        ShapeType
	Description string
	Properties  map[string]*Shape
	Required    []string
	Items       *Shape
	Enum        []string
	Nullable    bool
}

// JSONSchema renders the shape as a JSON Schema document
func (s *Shape) JSONSchema() map[string]interface{} {
	if s == nil {
		return nil
	}
	out := map[string]interface{}{"type": string(s.Type)}
	if s.Nullable {
		out["type"] = []string{string(s.Type), "null"}
	}
	if s.Description != "" {
		out["description"] = s.Description
	}
	if len(s.Enum) > 0 {
		out["enum"] = s.Enum
	}
	if s.Items != nil {
		out["items"] = s.Items.JSONSchema()
	}
	if len(s.Properties) > 0 {
		props := make(map[string]interface{}, len(s.Properties))
		for name, p := range s.Properties {
			props[name] = p.JSONSchema()
		}
		out["properties"] = props
	}
	if len(s.Required) > 0 {
		out["required"] = s.Required
	}
	return out
}
