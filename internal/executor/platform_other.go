//go:build !darwin && !linux && !windows

package executor

import (
	"fmt"
	"os/exec"
)

func openPath(path string) error {
	return exec.Command("xdg-open", path).Run()
}

func revealInFileManager(path string) error {
	return exec.Command("xdg-open", parentDir(path)).Run()
}

func openWithApplication(application, path string) error {
	return exec.Command(application, path).Run()
}

type osNotifier struct{}

// NewOSNotifier returns a no-op-on-failure Notifier for platforms with no
// standardized notification daemon in this codebase's supported set.
func NewOSNotifier() Notifier { return osNotifier{} }

func (osNotifier) Notify(title, message string) error {
	if err := exec.Command("notify-send", title, message).Run(); err != nil {
		return fmt.Errorf("no supported notification backend: %w", err)
	}
	return nil
}
