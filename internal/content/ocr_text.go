package content

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/filedispatch/agent/internal/domain"
	"github.com/ledongthuc/pdf"
)

// ocrTargetWidthPx is the page raster width §4.9 specifies for PDF OCR.
const ocrTargetWidthPx = 2000

// extractOCR dispatches OCR by kind: images go straight to the
// Recognizer with a per-image deadline; PDFs are OCR'd page by page
// under one shared deadline for the whole document, grounded on the
// original's ocr_pdf_pages sharing a single Instant-based timeout across
// all pages rather than per-page.
func (r *Resolver) extractOCR(ctx context.Context, info domain.FileInfo, settings domain.Settings) (string, error) {
	if settings.OCRMaxBytes > 0 && info.Size > settings.OCRMaxBytes {
		return "", nil
	}

	if info.Kind == domain.KindImage {
		timeout := time.Duration(settings.OCRImageTimeoutMS) * time.Millisecond
		text, err := r.recognizer.RecognizeImage(ctx, info.Path, timeout)
		if err != nil {
			return "", fmt.Errorf("ocr image %s: %w", info.Path, err)
		}
		return text, nil
	}

	if info.Ext == "pdf" {
		return r.extractOCRPDF(ctx, info.Path, settings)
	}

	return "", nil
}

func (r *Resolver) extractOCRPDF(ctx context.Context, path string, settings domain.Settings) (string, error) {
	pageCount, err := pdfPageCount(path)
	if err != nil {
		return "", fmt.Errorf("reading pdf page count %s: %w", path, err)
	}

	maxPages := settings.OCRMaxPages
	if maxPages <= 0 || maxPages > pageCount {
		maxPages = pageCount
	}

	deadline := time.Now().Add(time.Duration(settings.OCRPDFTimeoutMS) * time.Millisecond)
	var sb strings.Builder
	for i := 1; i <= maxPages; i++ {
		if time.Now().After(deadline) {
			break
		}
		remaining := time.Until(deadline)
		text, err := r.recognizer.RecognizePDFPage(ctx, path, i, ocrTargetWidthPx, remaining)
		if err != nil {
			continue // a failed page does not abort the remaining pages
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}

	result := sb.String()
	if strings.TrimSpace(result) == "" {
		return "", nil
	}
	return result, nil
}

func pdfPageCount(path string) (int, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return r.NumPage(), nil
}
