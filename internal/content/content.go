// Package content implements Content Extraction (§4.9) and
// Make-PDF-Searchable (§4.10), grounded on the original implementation's
// core/content.rs and core/ocr.rs, adapted to the teacher's library
// choices (ledongthuc/pdf, pdfcpu) where the original used Rust-only
// crates.
package content

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/filedispatch/agent/internal/domain"
)

// Recognizer is the OCR engine boundary: a black box the caller wires in,
// since no pack repo or maintained ecosystem Go library bundles an OCR
// model the way the original's oar_ocr crate does. A Recognizer
// implementation might shell out to tesseract, call a local ONNX
// runtime, or hit a remote OCR service — content doesn't need to know.
type Recognizer interface {
	// RecognizeImage returns the text found in a raster image file.
	RecognizeImage(ctx context.Context, imagePath string, timeout time.Duration) (string, error)

	// RecognizePDFPage rasterizes one page of a PDF to targetWidth pixels
	// and returns its recognized text. Rendering is the Recognizer's
	// responsibility (e.g. via a pdfium binding or `pdftoppm`) since no
	// pack dependency rasterizes PDF pages to images in pure Go.
	RecognizePDFPage(ctx context.Context, pdfPath string, pageIndex, targetWidth int, timeout time.Duration) (string, error)
}

// ContentCache memoizes Text/OCR extraction per file for the lifetime of
// one evaluation pass: a source that extracted successfully is not
// extracted again across repeated Auto/Text/Ocr lookups for the same file
// within one rule evaluation. A failed extraction is not cached and is
// attempted again on the next lookup.
type ContentCache struct {
	mu     sync.Mutex
	text   *string
	ocr    *string
	textAt bool
	ocrAt  bool
}

// Resolver resolves a FileInfo's textual content per §4.9.
type Resolver struct {
	settings   func() domain.Settings
	recognizer Recognizer
}

func NewResolver(settings func() domain.Settings, recognizer Recognizer) *Resolver {
	return &Resolver{settings: settings, recognizer: recognizer}
}

// Resolve returns the content for info under source, using and populating
// cache. An empty result with no error means "no content" (empty file,
// unsupported type, or OCR unavailable) rather than failure.
func (r *Resolver) Resolve(ctx context.Context, info domain.FileInfo, source domain.ContentSource, cache *ContentCache) (string, error) {
	settings := r.settings()

	switch source {
	case domain.ContentText:
		return r.resolveText(info, settings, cache)
	case domain.ContentOCR:
		return r.resolveOCR(ctx, info, settings, cache)
	case domain.ContentAuto:
		text, err := r.resolveText(info, settings, cache)
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(text) != "" {
			return text, nil
		}
		return r.resolveOCR(ctx, info, settings, cache)
	default:
		return "", nil
	}
}

func (r *Resolver) resolveText(info domain.FileInfo, settings domain.Settings, cache *ContentCache) (string, error) {
	cache.mu.Lock()
	if cache.textAt {
		text := ""
		if cache.text != nil {
			text = *cache.text
		}
		cache.mu.Unlock()
		return text, nil
	}
	cache.mu.Unlock()

	text, err := extractText(info, settings)
	if err != nil {
		return "", err
	}

	cache.mu.Lock()
	cache.textAt = true
	cache.text = &text
	cache.mu.Unlock()
	return text, nil
}

func (r *Resolver) resolveOCR(ctx context.Context, info domain.FileInfo, settings domain.Settings, cache *ContentCache) (string, error) {
	cache.mu.Lock()
	if cache.ocrAt {
		text := ""
		if cache.ocr != nil {
			text = *cache.ocr
		}
		cache.mu.Unlock()
		return text, nil
	}
	cache.mu.Unlock()

	if !settings.OCREnabled || r.recognizer == nil {
		cache.mu.Lock()
		cache.ocrAt = true
		cache.mu.Unlock()
		return "", nil
	}

	text, err := r.extractOCR(ctx, info, settings)
	if err != nil {
		return "", err
	}

	cache.mu.Lock()
	cache.ocrAt = true
	cache.ocr = &text
	cache.mu.Unlock()
	return text, nil
}

// extractText dispatches text extraction by extension, respecting the
// content byte-size cap and skipping kinds that are never text-bearing.
func extractText(info domain.FileInfo, settings domain.Settings) (string, error) {
	if settings.ContentMaxBytes > 0 && info.Size > settings.ContentMaxBytes {
		return "", nil
	}
	switch info.Kind {
	case domain.KindImage, domain.KindVideo, domain.KindAudio, domain.KindArchive, domain.KindFolder:
		return "", nil
	}

	switch info.Ext {
	case "pdf":
		return extractPDFText(info.Path, settings.OCRMaxPages)
	case "docx":
		return extractDocxText(info.Path)
	default:
		return extractPlainText(info.Path)
	}
}

func extractPlainText(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	text := strings.ToValidUTF8(string(data), "�")
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	return text, nil
}
