package suggestion

import (
	"context"
	"errors"
	"time"
)

// Request timeouts per backend. Local models can be slow on first load.
const (
	GeminiTimeout = 30 * time.Second
	OllamaTimeout = 120 * time.Second

	// MaxTimeout is the longest any suggester waits for a model
	MaxTimeout = OllamaTimeout
)

// ErrMalformedSuggestion is returned when a model response does not match the expected shape
var ErrMalformedSuggestion = errors.New("malformed suggestion")

// Suggestion contains AI proposed content for a trip receipt
type Suggestion struct {
	Inclusions string   `json:"inclusions"`
	Details    []string `json:"details"`
}

// Suggester defines the interface for trip suggestion operations
type Suggester interface {
	// Suggest proposes trip inclusions and details for a description and travel month.
	// Callers must not pass an empty description.
	Suggest(ctx context.Context, description, month string) (*Suggestion, error)

	// Close closes the suggester and releases resources
	Close() error
}
