// Package pattern implements the Pattern Engine (§4.4 "Pattern Engine"):
// resolving {token[:format]} placeholders in action parameters, grounded on
// the original implementation's core/patterns.rs.
package pattern

import (
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/filedispatch/agent/internal/domain"
	"github.com/google/uuid"
	"github.com/ncruces/go-strftime"
)

// Engine resolves pattern strings against a FileInfo, regex captures, and
// its own monotonic counter. The counter is process-wide per Engine
// instance and advances once per Resolve call (§4.4).
type Engine struct {
	counter atomic.Uint32
}

// New creates a pattern Engine with its counter starting at 1.
func New() *Engine {
	e := &Engine{}
	e.counter.Store(0)
	return e
}

// Resolve expands every {token} or {token:format} placeholder in pattern.
// Unknown tokens resolve to empty; they never fail resolution (§4.4).
func (e *Engine) Resolve(pattern string, info domain.FileInfo, captures map[string]string) string {
	now := time.Now().UTC()
	counter := e.counter.Add(1)

	var out strings.Builder
	runes := []rune(pattern)
	for i := 0; i < len(runes); i++ {
		if runes[i] != '{' {
			out.WriteRune(runes[i])
			continue
		}
		j := i + 1
		for j < len(runes) && runes[j] != '}' {
			j++
		}
		token := string(runes[i+1 : min(j, len(runes))])
		out.WriteString(resolveToken(token, info, captures, now, counter))
		i = j
	}
	return out.String()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func resolveToken(token string, info domain.FileInfo, captures map[string]string, now time.Time, counter uint32) string {
	if _, err := strconv.Atoi(token); err == nil {
		return captures[token]
	}

	key, format, _ := strings.Cut(token, ":")

	switch key {
	case "name":
		return info.Stem
	case "ext":
		return info.Ext
	case "fullname":
		return info.FullName
	case "parent":
		return info.ParentDir
	case "size":
		return formatSize(info.Size, format)
	case "created":
		return formatDate(info.Created, format)
	case "modified":
		return formatDate(info.Modified, format)
	case "added":
		return formatDate(info.Added, format)
	case "now":
		return formatDate(now, format)
	case "date":
		return info.Modified.Format("2006-01-02")
	case "time":
		return info.Modified.Format("15-04-05")
	case "year":
		return info.Modified.Format("2006")
	case "month":
		return info.Modified.Format("01")
	case "day":
		return info.Modified.Format("02")
	case "hour":
		return info.Modified.Format("15")
	case "minute":
		return info.Modified.Format("04")
	case "second":
		return info.Modified.Format("05")
	case "week":
		_, week := info.Modified.ISOWeek()
		return fmt.Sprintf("%02d", week)
	case "weekday":
		return formatWeekday(info.Modified, format)
	case "monthname":
		return formatMonthname(info.Modified, format)
	case "counter":
		return formatCounter(counter, format)
	case "random":
		return formatRandom(format)
	default:
		return ""
	}
}

func formatWeekday(t time.Time, format string) string {
	switch format {
	case "long":
		return t.Weekday().String()
	default: // "short" or ""
		return t.Weekday().String()[:3]
	}
}

func formatMonthname(t time.Time, format string) string {
	switch format {
	case "long":
		return t.Month().String()
	default: // "short" or ""
		return t.Month().String()[:3]
	}
}

func formatDate(t time.Time, format string) string {
	if format == "" {
		return t.Format("2006-01-02")
	}
	return strftime.Format(format, t)
}

func formatSize(size int64, format string) string {
	if format == "bytes" {
		return strconv.FormatInt(size, 10)
	}

	const (
		kb = 1024.0
		mb = kb * 1024.0
		gb = mb * 1024.0
	)
	f := float64(size)
	switch {
	case f >= gb:
		return fmt.Sprintf("%.1f GB", f/gb)
	case f >= mb:
		return fmt.Sprintf("%.1f MB", f/mb)
	case f >= kb:
		return fmt.Sprintf("%.1f KB", f/kb)
	default:
		return fmt.Sprintf("%d B", size)
	}
}

func formatCounter(counter uint32, format string) string {
	if format == "" {
		return strconv.FormatUint(uint64(counter), 10)
	}
	width, err := strconv.Atoi(format)
	if err != nil {
		return strconv.FormatUint(uint64(counter), 10)
	}
	return fmt.Sprintf("%0*d", width, counter)
}

func formatRandom(format string) string {
	random := strings.ReplaceAll(uuid.NewString(), "-", "")
	if format == "" {
		return random
	}
	n, err := strconv.Atoi(format)
	if err != nil || n > len(random) {
		return random
	}
	return random[:n]
}
