// Package fileinfo computes the File Metadata Extractor's FileInfo record
// (§4 item 2) from a filesystem path, grounded on the original
// implementation's utils/file_info.rs.
package fileinfo

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/filedispatch/agent/internal/domain"
	"github.com/h2non/filetype"
)

// codeExtensions is the fixed code-extension allowlist from §4.3 Kind
// classification, preserved verbatim from the original.
var codeExtensions = map[string]bool{
	"rs": true, "js": true, "ts": true, "tsx": true, "jsx": true, "py": true,
	"go": true, "java": true, "kt": true, "swift": true, "cpp": true, "c": true,
	"h": true, "hpp": true, "cs": true, "rb": true, "php": true, "html": true,
	"css": true, "scss": true, "json": true, "yaml": true, "yml": true, "toml": true,
}

// FromPath builds a FileInfo from a path on disk.
func FromPath(path string) (domain.FileInfo, error) {
	meta, err := os.Stat(path)
	if err != nil {
		return domain.FileInfo{}, err
	}

	isDir := meta.IsDir()
	fullName := filepath.Base(path)
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fullName), "."))
	stem := strings.TrimSuffix(fullName, filepath.Ext(fullName))

	var size int64
	if !isDir {
		size = meta.Size()
	}

	modified := meta.ModTime()
	created := creationTime(meta, modified)

	kind := classifyKind(path, isDir, ext)

	parent := ""
	if p := filepath.Dir(path); p != "." {
		parent = filepath.Base(p)
	}

	return domain.FileInfo{
		Path:      path,
		Stem:      stem,
		Ext:       ext,
		FullName:  fullName,
		Size:      size,
		Created:   created,
		Modified:  modified,
		Added:     created,
		Kind:      kind,
		ParentDir: parent,
		IsDir:     isDir,
	}, nil
}

func classifyKind(path string, isDir bool, ext string) domain.FileKind {
	if isDir {
		return domain.KindFolder
	}

	if buf, err := readHead(path, 8192); err == nil {
		if kind, ok := sniffKind(buf); ok {
			return kind
		}
	}

	if codeExtensions[ext] {
		return domain.KindCode
	}
	if ext == "" {
		return domain.KindFile
	}
	return domain.KindOther
}

func sniffKind(buf []byte) (domain.FileKind, bool) {
	kind, err := filetype.Match(buf)
	if err != nil || kind == filetype.Unknown {
		return "", false
	}
	switch {
	case strings.HasPrefix(kind.MIME.Value, "image/"):
		return domain.KindImage, true
	case strings.HasPrefix(kind.MIME.Value, "video/"):
		return domain.KindVideo, true
	case strings.HasPrefix(kind.MIME.Value, "audio/"):
		return domain.KindAudio, true
	case strings.HasPrefix(kind.MIME.Value, "text/") || kind.MIME.Value == "application/pdf":
		return domain.KindDocument, true
	case strings.Contains(kind.MIME.Value, "zip") || strings.Contains(kind.MIME.Value, "archive") || strings.Contains(kind.MIME.Value, "tar"):
		return domain.KindArchive, true
	default:
		return "", false
	}
}

func readHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	buf := make([]byte, n)
	read, err := f.Read(buf)
	if err != nil && read == 0 {
		return nil, err
	}
	return buf[:read], nil
}

// creationTime falls back to modified time on platforms/filesystems that
// don't report birth time via Stat (mirrors the original's fallback to
// last-modification time).
func creationTime(meta os.FileInfo, modified time.Time) time.Time {
	if ct, ok := platformCreationTime(meta); ok {
		return ct
	}
	return modified
}
