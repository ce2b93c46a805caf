package usecase

import (
	"fmt"
	"strings"
)

// Models wrap JSON in prose or code fences often enough that a direct
// unmarshal is not reliable. These helpers slice out the outermost JSON
// value as a second parsing attempt.

func extractJSONObject(raw string) (string, error) {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")

	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object in response")
	}

	return raw[start : end+1], nil
}

func extractJSONArray(raw string) (string, error) {
	start := strings.Index(raw, "[")
	end := strings.LastIndex(raw, "]")

	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON array in response")
	}

	return raw[start : end+1], nil
}
