//go:build windows

package executor

import (
	"errors"
	"syscall"
)

// windowsNotSameDevice is ERROR_NOT_SAME_DEVICE, returned by MoveFile when
// source and destination are on different volumes (§4.4's "Windows 17").
const windowsNotSameDevice = 17

func isCrossDeviceError(err error) bool {
	var errno syscall.Errno
	return errors.As(err, &errno) && uintptr(errno) == windowsNotSameDevice
}
