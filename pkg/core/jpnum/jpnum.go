// Package jpnum parses and formats amounts the way Japanese financial
// statements print them: thousands separators, full-width digits and the
// △ marker in place of a minus sign.
package jpnum

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/width"
)

// NegativeMarker is the accounting marker for a negative figure.
const NegativeMarker = "△"

// negativeMarkers are checked in order against the start of the trimmed text.
// ▲ and U+2212 show up in some statements and OCR output alongside △.
var negativeMarkers = []string{NegativeMarker, "-", "▲", "−"}

var printer = message.NewPrinter(language.Japanese)

// Normalize folds full-width digits and punctuation to ASCII and trims.
func Normalize(text string) string {
	return strings.TrimSpace(width.Narrow.String(text))
}

// IsNegativeMarker reports whether r is one of the accepted sign markers.
func IsNegativeMarker(r rune) bool {
	switch r {
	case '△', '-', '▲', '−':
		return true
	}
	return false
}

// ParseJapaneseNumber converts free text such as "△410,984" into a signed
// integer. A single leading negative marker sets the sign, every other
// non-digit character is discarded. ok is false when no digits remain or the
// digits do not fit in an int64.
func ParseJapaneseNumber(text string) (value int64, ok bool) {
	s := Normalize(text)

	negative := false
	for _, marker := range negativeMarkers {
		if strings.HasPrefix(s, marker) {
			negative = true
			s = s[len(marker):]
			break
		}
	}

	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if digits.Len() == 0 {
		return 0, false
	}

	n, err := strconv.ParseInt(digits.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		n = -n
	}
	return n, true
}

// FormatJapaneseNumber prints n the way a statement would: △ for negatives
// and, when grouped is set, comma thousands grouping.
func FormatJapaneseNumber(n int64, grouped bool) string {
	var abs uint64
	if n < 0 {
		abs = uint64(-(n + 1)) + 1
	} else {
		abs = uint64(n)
	}

	var s string
	if grouped {
		s = printer.Sprintf("%d", abs)
	} else {
		s = strconv.FormatUint(abs, 10)
	}

	if n < 0 {
		return NegativeMarker + s
	}
	return s
}

// Amount is an integer amount that decodes from either a JSON number or a
// Japanese numeric string ("△410,984"). Model replies mix both.
type Amount int64

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*a = 0
		return nil
	}

	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, ok := ParseJapaneseNumber(s)
		if !ok {
			return fmt.Errorf("jpnum: no digits in %q", s)
		}
		*a = Amount(n)
		return nil
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*a = Amount(n)
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("jpnum: invalid amount %s: %w", raw, err)
	}
	*a = Amount(math.Round(f))
	return nil
}

// String formats the amount with grouping.
func (a Amount) String() string {
	return FormatJapaneseNumber(int64(a), true)
}
