package utils

import (
	"encoding/json"
	"fmt"
	"strings"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// RepairJSON fixes common defects in model output: unquoted keys, single
// quotes, trailing commas, comments and unclosed brackets.
func RepairJSON(malformed string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformed)
	if err != nil {
		return "", fmt.Errorf("json repair failed: %w", err)
	}
	return repaired, nil
}

// ParseHJSON parses Hjson and returns the equivalent standard JSON.
func ParseHJSON(data string) (string, error) {
	var result interface{}
	if err := hjson.Unmarshal([]byte(data), &result); err != nil {
		return "", fmt.Errorf("hjson parse failed: %w", err)
	}
	out, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("json marshal failed: %w", err)
	}
	return string(out), nil
}

// SmartParse decodes input into target, trying in order: the JSON payload of
// a fenced code block or the first {...} span, plain JSON, repaired JSON and
// Hjson. It returns the JSON text that was accepted.
func SmartParse(input string, target interface{}) (string, error) {
	candidate := ExtractJSON(input)

	if err := json.Unmarshal([]byte(candidate), target); err == nil {
		return candidate, nil
	}

	if repaired, err := RepairJSON(candidate); err == nil {
		if err := json.Unmarshal([]byte(repaired), target); err == nil {
			return repaired, nil
		}
	}

	if converted, err := ParseHJSON(candidate); err == nil {
		if err := json.Unmarshal([]byte(converted), target); err == nil {
			return converted, nil
		}
	}

	return "", fmt.Errorf("smart parse failed: no strategy produced valid JSON")
}

// ExtractJSON returns the most likely JSON payload inside a model reply: the
// first fenced code block if any, otherwise the outermost {...} span,
// otherwise the trimmed input.
func ExtractJSON(input string) string {
	if block, ok := ExtractFencedBlock(input); ok {
		input = block
	}
	trimmed := strings.TrimSpace(input)
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		return trimmed[start : end+1]
	}
	return trimmed
}
