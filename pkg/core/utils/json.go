package utils

import (
	"encoding/json"
	"errors"
	"fmt"

	jsonrepair "github.com/RealAlexandreAI/json-repair"
	hjson "github.com/hjson/hjson-go/v4"
)

// ErrUnparseable is returned by SmartParse when no strategy yields JSON that
// decodes into the target.
var ErrUnparseable = errors.New("no parsing strategy produced valid JSON")

// RepairJSON fixes the usual model output defects: unquoted keys, single
// quotes, trailing commas, comments, unclosed brackets and code fences.
func RepairJSON(malformed string) (string, error) {
	repaired, err := jsonrepair.RepairJSON(malformed)
	if err != nil {
		return "", fmt.Errorf("json repair failed: %w", err)
	}
	return repaired, nil
}

// ParseHJSON parses Hjson and re-encodes it as standard JSON.
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

// SmartParse decodes input into target, trying plain JSON first, then a
// repaired copy, then Hjson. It returns the JSON text that succeeded.
func SmartParse(input string, target interface{}) (string, error) {
	input = CleanMarkdown(input)

	if err := json.Unmarshal([]byte(input), target); err == nil {
		return input, nil
	}

	if repaired, err := RepairJSON(input); err == nil {
		if err := json.Unmarshal([]byte(repaired), target); err == nil {
			return repaired, nil
		}
	}

	if converted, err := ParseHJSON(input); err == nil {
		if err := json.Unmarshal([]byte(converted), target); err == nil {
			return converted, nil
		}
	}

	return "", ErrUnparseable
}
