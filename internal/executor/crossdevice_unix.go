//go:build !windows

package executor

import (
	"errors"
	"syscall"
)

// isCrossDeviceError reports whether err is EXDEV — os.Rename across
// filesystem boundaries (§4.4's "cross-device error").
func isCrossDeviceError(err error) bool {
	var errno syscall.Errno
	return errors.As(err, &errno) && errno == syscall.EXDEV
}
