package content

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDFText concatenates each page's plain text, up to maxPages (0
// or negative means unlimited), grounded on the original's pdfium-backed
// extract_pdf_text but using the teacher-adjacent ledongthuc/pdf library
// instead (pdfium has no pure-Go binding).
func extractPDFText(path string, maxPages int) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf %s: %w", path, err)
	}
	defer f.Close()

	total := r.NumPage()
	if maxPages > 0 && total > maxPages {
		total = maxPages
	}

	var sb strings.Builder
	for i := 1; i <= total; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue // a malformed page should not abort the whole extraction
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

// docxRun/docxParagraph mirror just enough of the WordprocessingML schema
// to read run text, grounded on the original's quick-xml streaming
// extraction of word/document.xml.
type docxText struct {
	XMLName xml.Name    `xml:"document"`
	Body    docxBody    `xml:"body"`
}

type docxBody struct {
	Paragraphs []docxParagraph `xml:"p"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Text []docxTextRun `xml:"t"`
}

type docxTextRun struct {
	Value string `xml:",chardata"`
}

// extractDocxText unzips the docx container and concatenates <w:t> runs
// with spaces, <w:p> paragraphs with newlines, matching §4.9.
func extractDocxText(path string) (string, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("opening docx %s: %w", path, err)
	}
	defer zr.Close()

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return "", nil
	}

	rc, err := docFile.Open()
	if err != nil {
		return "", fmt.Errorf("reading word/document.xml: %w", err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("reading word/document.xml: %w", err)
	}

	var doc docxText
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return "", fmt.Errorf("parsing word/document.xml: %w", err)
	}

	var sb strings.Builder
	for _, p := range doc.Body.Paragraphs {
		for _, r := range p.Runs {
			for _, t := range r.Text {
				sb.WriteString(t.Value)
				sb.WriteString(" ")
			}
		}
		sb.WriteString("\n")
	}

	result := sb.String()
	if strings.TrimSpace(result) == "" {
		return "", nil
	}
	return result, nil
}
