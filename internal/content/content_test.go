package content

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/filedispatch/agent/internal/domain"
	"github.com/filedispatch/agent/internal/fileinfo"
)

type stubRecognizer struct {
	imageText string
	pdfText   string
	calls     int
}

func (s *stubRecognizer) RecognizeImage(ctx context.Context, imagePath string, timeout time.Duration) (string, error) {
	s.calls++
	return s.imageText, nil
}

func (s *stubRecognizer) RecognizePDFPage(ctx context.Context, pdfPath string, pageIndex, targetWidth int, timeout time.Duration) (string, error) {
	s.calls++
	return s.pdfText, nil
}

func TestResolverTextExtractsPlainFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("hello world"), 0644); err != nil {
		t.Fatal(err)
	}
	info, err := fileinfo.FromPath(path)
	if err != nil {
		t.Fatal(err)
	}

	settings := domain.DefaultSettings()
	r := NewResolver(func() domain.Settings { return settings }, nil)
	cache := &ContentCache{}

	text, err := r.Resolve(context.Background(), info, domain.ContentText, cache)
	if err != nil {
		t.Fatal(err)
	}
	if text != "hello world" {
		t.Errorf("expected extracted text, got %q", text)
	}
}

func TestResolverTextCachesAcrossCalls(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(path, []byte("first"), 0644); err != nil {
		t.Fatal(err)
	}
	info, err := fileinfo.FromPath(path)
	if err != nil {
		t.Fatal(err)
	}

	settings := domain.DefaultSettings()
	r := NewResolver(func() domain.Settings { return settings }, nil)
	cache := &ContentCache{}

	first, err := r.Resolve(context.Background(), info, domain.ContentText, cache)
	if err != nil {
		t.Fatal(err)
	}

	// Mutate the file on disk; the cache should still return the first
	// read rather than re-extracting.
	if err := os.WriteFile(path, []byte("second"), 0644); err != nil {
		t.Fatal(err)
	}
	second, err := r.Resolve(context.Background(), info, domain.ContentText, cache)
	if err != nil {
		t.Fatal(err)
	}
	if first != second {
		t.Errorf("expected cached result %q, got %q", first, second)
	}
}

func TestResolverAutoFallsBackToOCR(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.png")
	if err := os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0644); err != nil {
		t.Fatal(err)
	}
	info, err := fileinfo.FromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	info.Kind = domain.KindImage

	settings := domain.DefaultSettings()
	settings.OCREnabled = true
	recognizer := &stubRecognizer{imageText: "scanned text"}
	r := NewResolver(func() domain.Settings { return settings }, recognizer)
	cache := &ContentCache{}

	text, err := r.Resolve(context.Background(), info, domain.ContentAuto, cache)
	if err != nil {
		t.Fatal(err)
	}
	if text != "scanned text" {
		t.Errorf("expected OCR fallback text, got %q", text)
	}
	if recognizer.calls != 1 {
		t.Errorf("expected exactly one OCR call, got %d", recognizer.calls)
	}
}

func TestResolverOCRDisabledReturnsEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan.png")
	if err := os.WriteFile(path, []byte{0x89, 'P', 'N', 'G'}, 0644); err != nil {
		t.Fatal(err)
	}
	info, err := fileinfo.FromPath(path)
	if err != nil {
		t.Fatal(err)
	}
	info.Kind = domain.KindImage

	settings := domain.DefaultSettings() // OCREnabled defaults false
	r := NewResolver(func() domain.Settings { return settings }, &stubRecognizer{imageText: "unused"})
	cache := &ContentCache{}

	text, err := r.Resolve(context.Background(), info, domain.ContentOCR, cache)
	if err != nil {
		t.Fatal(err)
	}
	if text != "" {
		t.Errorf("expected empty text when OCR disabled, got %q", text)
	}
}
