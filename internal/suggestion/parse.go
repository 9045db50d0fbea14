package suggestion

import (
	"encoding/json"
	"fmt"
	"strings"
)

// rawSuggestion keeps pointers so that missing fields can be told apart from empty ones
type rawSuggestion struct {
	Inclusions *string   `json:"inclusions"`
	Details    *[]string `json:"details"`
}

// parseSuggestionJSON parses and validates a model response
func parseSuggestionJSON(text string) (*Suggestion, error) {
	text = stripCodeFence(text)

	// Find the JSON object boundaries - look for first { and last }
	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("%w: no JSON object found in response", ErrMalformedSuggestion)
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx < startIdx {
		return nil, fmt.Errorf("%w: invalid JSON object in response", ErrMalformedSuggestion)
	}

	text = text[startIdx : endIdx+1]

	var raw rawSuggestion
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("%w: unmarshaling json: %v", ErrMalformedSuggestion, err)
	}

	if raw.Inclusions == nil {
		return nil, fmt.Errorf("%w: missing inclusions", ErrMalformedSuggestion)
	}
	if raw.Details == nil {
		return nil, fmt.Errorf("%w: missing details", ErrMalformedSuggestion)
	}

	details := make([]string, 0, len(*raw.Details))
	for _, d := range *raw.Details {
		if d = strings.TrimSpace(d); d != "" {
			details = append(details, d)
		}
	}

	return &Suggestion{
		Inclusions: strings.TrimSpace(*raw.Inclusions),
		Details:    details,
	}, nil
}

// stripCodeFence removes markdown code blocks models sometimes wrap JSON in
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
