package content

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/filedispatch/agent/internal/domain"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// Searchabler implements executor.PDFSearchabler (§4.10): it OCRs a PDF's
// pages and rewrites the document with an invisible text layer so the
// original raster content still renders but the text becomes selectable
// and searchable.
type Searchabler struct {
	settings   func() domain.Settings
	recognizer Recognizer
}

func NewSearchabler(settings func() domain.Settings, recognizer Recognizer) *Searchabler {
	return &Searchabler{settings: settings, recognizer: recognizer}
}

// MakeSearchable matches the executor.PDFSearchabler contract: returns
// (skipped=true, nil) for SkippedAlreadyText, an error for anything that
// should surface as an Error action outcome, or (false, nil) on success.
func (s *Searchabler) MakeSearchable(ctx context.Context, sourcePath, outputPath string, overwrite, skipIfText bool) (bool, error) {
	if !strings.EqualFold(filepath.Ext(sourcePath), ".pdf") {
		return false, fmt.Errorf("make pdf searchable: %s is not a pdf", sourcePath)
	}

	settings := s.settings()
	if settings.OCRMaxBytes > 0 {
		stat, err := os.Stat(sourcePath)
		if err != nil {
			return false, fmt.Errorf("stating %s: %w", sourcePath, err)
		}
		if stat.Size() > settings.OCRMaxBytes {
			return false, fmt.Errorf("%s exceeds the OCR size limit", sourcePath)
		}
	}

	if skipIfText {
		existing, err := extractPDFText(sourcePath, settings.OCRMaxPages)
		if err == nil && strings.TrimSpace(existing) != "" {
			return true, nil
		}
	}

	if !settings.OCREnabled || s.recognizer == nil {
		return false, fmt.Errorf("OCR is disabled in settings")
	}

	pageTexts, err := s.ocrAllPages(ctx, sourcePath, settings)
	if err != nil {
		return false, err
	}
	if len(pageTexts) == 0 {
		return false, fmt.Errorf("no OCR text extracted from %s", sourcePath)
	}

	pdfCtx, err := api.ReadContextFile(sourcePath)
	if err != nil {
		return false, fmt.Errorf("reading pdf structure of %s: %w", sourcePath, err)
	}
	if err := addInvisibleTextLayer(pdfCtx, pageTexts); err != nil {
		return false, fmt.Errorf("adding text layer to %s: %w", sourcePath, err)
	}

	target := outputPath
	writeToTemp := outputPath == sourcePath
	if writeToTemp {
		target = sourcePath + ".tmp"
	}
	if err := api.WriteContextFile(pdfCtx, target); err != nil {
		return false, fmt.Errorf("writing %s: %w", target, err)
	}
	if writeToTemp {
		if err := os.Rename(target, outputPath); err != nil {
			return false, fmt.Errorf("finalizing write to %s: %w", outputPath, err)
		}
	}
	return false, nil
}

// ocrAllPages OCRs every page up to the configured cap under one shared
// deadline, matching the original's single-Instant-based timeout for the
// whole document rather than a fresh timeout per page.
func (s *Searchabler) ocrAllPages(ctx context.Context, path string, settings domain.Settings) (map[int]string, error) {
	pageCount, err := pdfPageCount(path)
	if err != nil {
		return nil, fmt.Errorf("reading pdf page count: %w", err)
	}
	maxPages := settings.OCRMaxPages
	if maxPages <= 0 || maxPages > pageCount {
		maxPages = pageCount
	}

	deadline := time.Now().Add(time.Duration(settings.OCRPDFTimeoutMS) * time.Millisecond)
	out := make(map[int]string, maxPages)
	for i := 1; i <= maxPages; i++ {
		if time.Now().After(deadline) {
			break
		}
		text, err := s.recognizer.RecognizePDFPage(ctx, path, i, ocrTargetWidthPx, time.Until(deadline))
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}
		out[i] = text
	}
	return out, nil
}

// helveticaFontResourceName is the resource name placed in each modified
// page's /Resources /Font dict (§4.10: "resource font F1").
const helveticaFontResourceName = "F1"

// addInvisibleTextLayer implements §4.10's structural rewrite: for every
// page with OCR text, it builds an invisible (render mode 3) text-mode
// content stream, merges a Helvetica Type1 font into the page's
// Resources, and appends the new stream to /Contents (converting a
// single-stream Contents into an array first if needed).
func addInvisibleTextLayer(ctx *model.Context, pageTexts map[int]string) error {
	xRefTable := ctx.XRefTable

	fontRef, err := ensureHelveticaFont(xRefTable)
	if err != nil {
		return fmt.Errorf("creating Helvetica font resource: %w", err)
	}

	for pageNr, text := range pageTexts {
		pageDict, _, _, err := xRefTable.PageDict(pageNr, false)
		if err != nil {
			return fmt.Errorf("locating page %d: %w", pageNr, err)
		}

		if err := mergeFontResource(xRefTable, pageDict, fontRef); err != nil {
			return fmt.Errorf("merging font resource on page %d: %w", pageNr, err)
		}

		streamRef, err := newInvisibleTextStream(xRefTable, text)
		if err != nil {
			return fmt.Errorf("building text stream for page %d: %w", pageNr, err)
		}

		if err := appendPageContents(xRefTable, pageDict, streamRef); err != nil {
			return fmt.Errorf("appending content stream on page %d: %w", pageNr, err)
		}
	}

	return nil
}

// ensureHelveticaFont creates one shared Type1/Helvetica font object and
// returns an indirect reference to it, reused across every modified page.
func ensureHelveticaFont(xRefTable *model.XRefTable) (*types.IndirectRef, error) {
	fontDict := types.Dict{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("Type1"),
		"BaseFont": types.Name("Helvetica"),
		"Encoding": types.Name("WinAnsiEncoding"),
	}
	return xRefTable.IndRefForNewObject(fontDict)
}

// mergeFontResource installs F1 -> fontRef into the page's /Resources
// /Font dict, creating either dict as needed.
func mergeFontResource(xRefTable *model.XRefTable, pageDict types.Dict, fontRef *types.IndirectRef) error {
	resources, err := ensureDict(xRefTable, pageDict, "Resources")
	if err != nil {
		return err
	}
	fontDict, err := ensureDict(xRefTable, resources, "Font")
	if err != nil {
		return err
	}
	fontDict[helveticaFontResourceName] = *fontRef
	return nil
}

// ensureDict returns the dict stored at key in parent, dereferencing an
// indirect reference if present, or creating and installing a fresh dict
// if the key is absent.
func ensureDict(xRefTable *model.XRefTable, parent types.Dict, key string) (types.Dict, error) {
	obj, found := parent.Find(key)
	if found {
		d, err := xRefTable.DereferenceDict(obj)
		if err != nil {
			return nil, err
		}
		if d != nil {
			return d, nil
		}
	}
	d := types.Dict{}
	parent[key] = d
	return d, nil
}

// newInvisibleTextStream builds and registers the per-page content
// stream described in §4.10: enter text mode, select F1 at 10pt, set
// render mode 3 (invisible), place text at the page top with 12pt
// leading, and show each OCR line advancing with T*.
func newInvisibleTextStream(xRefTable *model.XRefTable, text string) (*types.IndirectRef, error) {
	var buf bytes.Buffer
	buf.WriteString("BT\n")
	fmt.Fprintf(&buf, "/%s 10 Tf\n", helveticaFontResourceName)
	buf.WriteString("3 Tr\n")
	buf.WriteString("12 TL\n")
	buf.WriteString("36 756 Td\n")

	lines := strings.Split(text, "\n")
	first := true
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !first {
			buf.WriteString("T*\n")
		}
		first = false
		fmt.Fprintf(&buf, "(%s) Tj\n", escapePDFString(line))
	}
	buf.WriteString("ET\n")

	sd, err := xRefTable.NewStreamDictForBuf(buf.Bytes())
	if err != nil {
		return nil, err
	}
	if err := sd.Encode(); err != nil {
		return nil, err
	}
	return xRefTable.IndRefForNewObject(sd)
}

// escapePDFString backslash-escapes the characters PDF literal strings
// require ('(' ')' '\\'), dropping bytes outside WinAnsiEncoding's safe
// printable range.
func escapePDFString(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '(', ')', '\\':
			sb.WriteByte('\\')
			sb.WriteRune(r)
		default:
			if r < 0x20 || r > 0xFF {
				continue
			}
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// appendPageContents merges streamRef into the page's /Contents,
// converting a single-stream Contents into an array first if needed
// (§4.10: "Merge content streams by converting single-stream /Contents
// into an array if needed").
func appendPageContents(xRefTable *model.XRefTable, pageDict types.Dict, streamRef *types.IndirectRef) error {
	contents, found := pageDict.Find("Contents")
	if !found {
		pageDict["Contents"] = types.Array{*streamRef}
		return nil
	}

	if arr, ok := contents.(types.Array); ok {
		arr = append(arr, *streamRef)
		pageDict["Contents"] = arr
		return nil
	}

	// Single indirect reference to one content stream: wrap it and the
	// new stream in an array.
	pageDict["Contents"] = types.Array{contents, *streamRef}
	return nil
}
