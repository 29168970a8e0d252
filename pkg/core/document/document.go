// Package document loads the statement PDF that is sent to the model and
// rejects files that are missing, empty, oversized or not readable as PDF.
package document

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"univ_financials/pkg/core/llm"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

const (
	// DefaultPath is the statement PDF used when none is given.
	DefaultPath = "./b67155c2806c76359d1b3637d7ff2ac7.pdf"

	// DefaultMaxFileSize caps what we inline into a single request.
	DefaultMaxFileSize = 50 * 1024 * 1024

	MIMEType = "application/pdf"
)

var (
	ErrNotFound = errors.New("document: file not found")
	ErrNotFile  = errors.New("document: path is not a regular file")
	ErrNotPDF   = errors.New("document: not a PDF file")
	ErrEmpty    = errors.New("document: file is empty")
	ErrTooLarge = errors.New("document: file exceeds size limit")
)

var pdfcpuConfigOnce sync.Once

// Document is a loaded PDF.
type Document struct {
	Path   string
	Data   []byte
	SHA256 string
	Pages  int
}

// Name is the file's base name.
func (d *Document) Name() string {
	return filepath.Base(d.Path)
}

// ForLLM converts the document into the provider payload.
func (d *Document) ForLLM() llm.Document {
	return llm.Document{Name: d.Name(), MIMEType: MIMEType, Data: d.Data}
}

// Loader validates and reads PDFs, memoising them by path, size and mtime so
// that a run with many fields reads the file once.
type Loader struct {
	maxFileSize int64
	cache       *lru.Cache[string, *Document]
}

// NewLoader creates a loader. maxFileSize <= 0 uses DefaultMaxFileSize.
func NewLoader(maxFileSize int64, cacheSize int) (*Loader, error) {
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	if cacheSize <= 0 {
		cacheSize = 4
	}
	cache, err := lru.New[string, *Document](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create document cache: %w", err)
	}

	// pdfcpu writes a config dir under the user's home unless told not to.
	pdfcpuConfigOnce.Do(api.DisableConfigDir)

	return &Loader{maxFileSize: maxFileSize, cache: cache}, nil
}

// Preflight checks the path without reading the whole file.
func (l *Loader) Preflight(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotFile, path)
	}
	if !strings.EqualFold(filepath.Ext(path), ".pdf") {
		return nil, fmt.Errorf("%w: %s", ErrNotPDF, path)
	}
	if info.Size() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmpty, path)
	}
	if info.Size() > l.maxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes (limit %d)", ErrTooLarge, path, info.Size(), l.maxFileSize)
	}
	return info, nil
}

// Load preflights, reads and structurally checks the PDF.
func (l *Loader) Load(path string) (*Document, error) {
	info, err := l.Preflight(path)
	if err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())
	if doc, ok := l.cache.Get(key); ok {
		return doc, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	pages, err := pageCount(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrNotPDF, path, err)
	}

	sum := sha256.Sum256(data)
	doc := &Document{
		Path:   path,
		Data:   data,
		SHA256: hex.EncodeToString(sum[:]),
		Pages:  pages,
	}
	l.cache.Add(key, doc)
	return doc, nil
}

func pageCount(data []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return 0, fmt.Errorf("failed to ensure page count: %w", err)
	}
	if ctx.PageCount < 1 {
		return 0, errors.New("document has no pages")
	}
	return ctx.PageCount, nil
}
