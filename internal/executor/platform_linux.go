//go:build linux

package executor

import "os/exec"

func openPath(path string) error {
	return exec.Command("xdg-open", path).Run()
}

func revealInFileManager(path string) error {
	// No universal "reveal" verb across Linux file managers; xdg-open on
	// the parent directory is the closest portable equivalent.
	return exec.Command("xdg-open", parentDir(path)).Run()
}

func openWithApplication(application, path string) error {
	return exec.Command(application, path).Run()
}

type osNotifier struct{}

// NewOSNotifier returns the platform Notifier: notify-send, the
// freedesktop.org notification-spec CLI every major Linux desktop ships.
func NewOSNotifier() Notifier { return osNotifier{} }

func (osNotifier) Notify(title, message string) error {
	return exec.Command("notify-send", title, message).Run()
}
