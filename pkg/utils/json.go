// Package utils provides token counting and LLM response parsing helpers.
package utils

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSONObject pulls the first JSON object out of raw LLM output, handling
// the common formatting issues: fenced ```json blocks, leading prose, and
// trailing commentary. Returns the raw JSON text.
func ExtractJSONObject(text string) (string, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return "", fmt.Errorf("empty response text")
	}

	// Direct parse first.
	if json.Valid([]byte(trimmed)) && strings.HasPrefix(trimmed, "{") {
		return trimmed, nil
	}

	// Fenced code block.
	if idx := strings.Index(trimmed, "```json"); idx != -1 {
		rest := trimmed[idx+len("```json"):]
		if end := strings.Index(rest, "```"); end != -1 {
			candidate := strings.TrimSpace(rest[:end])
			if json.Valid([]byte(candidate)) {
				return candidate, nil
			}
		}
	}

	// First '{' to last '}' slice.
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		candidate := trimmed[start : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("no valid JSON object found in response")
}

// UnmarshalLLMJSON extracts a JSON object from raw LLM output and decodes it
// into dest.
func UnmarshalLLMJSON(text string, dest any) error {
	raw, err := ExtractJSONObject(text)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return fmt.Errorf("failed to decode response JSON: %w", err)
	}
	return nil
}

// CountWords returns the number of whitespace-separated words in text.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
