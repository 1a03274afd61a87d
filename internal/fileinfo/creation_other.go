//go:build !darwin

package fileinfo

import (
	"os"
	"time"
)

// Linux's statx birth time isn't exposed through os.FileInfo.Sys(); follow
// the original's fallback to last-modification time on these platforms too.
func platformCreationTime(meta os.FileInfo) (time.Time, bool) {
	return time.Time{}, false
}
