// Package extract asks the model for one figure at a time and turns the
// answer into an ExtractionResult.
package extract

import (
	"errors"
	"strings"

	"univ_financials/pkg/core/jpnum"
	"univ_financials/pkg/core/utils"
)

// Source records where a result came from.
type Source string

const (
	SourceLLM      Source = "llm"
	SourceCache    Source = "cache"
	SourceFallback Source = "fallback"
)

var (
	ErrEmptyAnswer = errors.New("model returned an empty answer")
	ErrNoDigits    = errors.New("answer contains no digits")
)

// ExtractionResult is the outcome of extracting one field. Success implies
// NumericValue is set; a failure always carries Error.
type ExtractionResult struct {
	Field        string  `json:"field,omitempty"`
	RawString    *string `json:"raw_string"`
	NumericValue *int64  `json:"numeric_value"`
	Success      bool    `json:"success"`
	Error        string  `json:"error,omitempty"`
	Source       Source  `json:"source,omitempty"`
}

// Succeeded builds a successful result.
func Succeeded(field, raw string, value int64, source Source) ExtractionResult {
	return ExtractionResult{
		Field:        field,
		RawString:    &raw,
		NumericValue: &value,
		Success:      true,
		Source:       source,
	}
}

// Failed builds a failed result. raw may be nil when the model was never
// reached.
func Failed(field string, raw *string, err error) ExtractionResult {
	msg := "extraction failed"
	if err != nil {
		msg = err.Error()
	}
	r := ExtractionResult{Field: field, Error: msg}
	if raw != nil {
		s := *raw
		r.RawString = &s
	}
	return r
}

// FromFallback builds the result substituted for a field the model could not
// deliver. cause is the original failure, kept for the log.
func FromFallback(field, raw string, value int64, cause string) ExtractionResult {
	r := Succeeded(field, raw, value, SourceFallback)
	r.Error = cause
	return r
}

// Value returns the numeric value and whether it is usable.
func (r ExtractionResult) Value() (int64, bool) {
	if !r.Success || r.NumericValue == nil {
		return 0, false
	}
	return *r.NumericValue, true
}

// Raw returns the raw answer or "".
func (r ExtractionResult) Raw() string {
	if r.RawString == nil {
		return ""
	}
	return *r.RawString
}

// Interpret parses a model answer. Markdown decoration is removed, the first
// non-blank line is taken and the first figure on it (with any sign marker
// directly before it) is parsed.
func Interpret(field, answer string, source Source) ExtractionResult {
	raw := strings.TrimSpace(answer)
	if raw == "" {
		return Failed(field, &raw, ErrEmptyAnswer)
	}

	value, ok := jpnum.ParseJapaneseNumber(figure(utils.FirstLine(utils.PlainText(raw))))
	if !ok {
		// rendering dropped every digit; retry on the undecorated text
		value, ok = jpnum.ParseJapaneseNumber(figure(utils.FirstLine(utils.CleanMarkdown(raw))))
	}
	if !ok {
		return Failed(field, &raw, ErrNoDigits)
	}
	if value > 0 && leadingSign(raw) {
		// "- 500" renders as a list item and loses its marker
		value = -value
	}
	return Succeeded(field, raw, value, source)
}

// leadingSign reports whether the first undecorated line opens with a
// negative marker.
func leadingSign(raw string) bool {
	line := jpnum.Normalize(utils.FirstLine(utils.CleanMarkdown(raw)))
	return strings.IndexFunc(line, jpnum.IsNegativeMarker) == 0
}

// figure narrows a line like "業務損益は△410,984千円です" down to "△410,984".
// Lines without digits are returned unchanged.
func figure(line string) string {
	runes := []rune(jpnum.Normalize(line))

	start := -1
	for i, r := range runes {
		if isDigit(r) {
			start = i
			break
		}
	}
	if start < 0 {
		return line
	}

	end := start
	for end < len(runes) && (isDigit(runes[end]) || runes[end] == ',') {
		end++
	}

	begin := start
	switch {
	case start > 0 && jpnum.IsNegativeMarker(runes[start-1]):
		begin = start - 1
	case start > 1 && runes[start-1] == ' ' && jpnum.IsNegativeMarker(runes[start-2]):
		begin = start - 2
	}
	return string(runes[begin:end])
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}
