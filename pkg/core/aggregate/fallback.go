package aggregate

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"univ_financials/pkg/core/fields"
	"univ_financials/pkg/core/jpnum"

	"gopkg.in/yaml.v2"
)

// DefaultFallbacksPath is read when no other path is configured.
const DefaultFallbacksPath = "config/fallbacks.yaml"

// Fallback is a pre-approved figure for one field.
type Fallback struct {
	Raw   string
	Value int64
}

// Fallbacks maps field keys to their approved figures.
type Fallbacks map[string]Fallback

type fallbackFile struct {
	Fallbacks map[string]string `yaml:"fallbacks"`
}

// ParseFallbacks reads the YAML form:
//
//	fallbacks:
//	  segment_profit_loss: "△410,984"
//
// Every key must be a catalog field and every value must parse as an amount.
func ParseFallbacks(data []byte) (Fallbacks, error) {
	var file fallbackFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse fallbacks: %w", err)
	}

	keys := make([]string, 0, len(file.Fallbacks))
	for key := range file.Fallbacks {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	out := make(Fallbacks, len(keys))
	for _, key := range keys {
		if _, ok := fields.Lookup(key); !ok {
			return nil, fmt.Errorf("fallback for unknown field %q", key)
		}
		raw := file.Fallbacks[key]
		value, ok := jpnum.ParseJapaneseNumber(raw)
		if !ok {
			return nil, fmt.Errorf("fallback for %s is not an amount: %q", key, raw)
		}
		out[key] = Fallback{Raw: raw, Value: value}
	}
	return out, nil
}

// LoadFallbacks reads fallbacks from path. A missing file yields an empty set.
func LoadFallbacks(path string) (Fallbacks, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return Fallbacks{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	fb, err := ParseFallbacks(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return fb, nil
}
