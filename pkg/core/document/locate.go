package document

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

// tocMarker identifies table-of-contents pages, which list every statement
// title and would otherwise win every search.
const tocMarker = "目次"

// FindPages returns, for each keyword, the first page whose text contains it.
// Whitespace and middle dots are ignored when matching, so
// キャッシュフロー計算書 finds the printed キャッシュ・フロー計算書. Pages whose text cannot be extracted are skipped; scanned
// statements simply yield no matches.
func FindPages(path string, keywords ...string) (map[string]int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	found := make(map[string]int)
	for pageNum := 1; pageNum <= r.NumPage(); pageNum++ {
		if len(found) == len(keywords) {
			break
		}

		text, err := pageText(r, pageNum)
		if err != nil {
			slog.Debug("document.locate.skip", "page", pageNum, "error", err)
			continue
		}
		text = compact(text)
		if strings.Contains(text, tocMarker) {
			continue
		}

		for _, kw := range keywords {
			if _, done := found[kw]; done {
				continue
			}
			if strings.Contains(text, compact(kw)) {
				found[kw] = pageNum
			}
		}
	}
	return found, nil
}

func pageText(r *pdf.Reader, pageNum int) (text string, err error) {
	// malformed content streams can panic inside the reader
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic extracting page %d: %v", pageNum, rec)
		}
	}()

	page := r.Page(pageNum)
	if page.V.IsNull() {
		return "", fmt.Errorf("invalid page %d", pageNum)
	}
	return page.GetPlainText(nil)
}

func compact(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '　', '・', '･':
			return -1
		}
		return r
	}, s)
}
