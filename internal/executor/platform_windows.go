//go:build windows

package executor

import "os/exec"

func openPath(path string) error {
	return exec.Command("cmd", "/C", "start", "", path).Run()
}

func revealInFileManager(path string) error {
	return exec.Command("explorer", "/select,", path).Run()
}

func openWithApplication(application, path string) error {
	return exec.Command(application, path).Run()
}

type osNotifier struct{}

// NewOSNotifier returns the platform Notifier: a PowerShell-hosted
// BurntToast-less balloon tip via the WinForms NotifyIcon API — no pack
// repo or named ecosystem library wraps Windows toast notifications, and
// PowerShell ships with every supported Windows version.
func NewOSNotifier() Notifier { return osNotifier{} }

func (osNotifier) Notify(title, message string) error {
	script := `
Add-Type -AssemblyName System.Windows.Forms
$n = New-Object System.Windows.Forms.NotifyIcon
$n.Icon = [System.Drawing.SystemIcons]::Information
$n.Visible = $true
$n.ShowBalloonTip(5000, "` + title + `", "` + message + `", [System.Windows.Forms.ToolTipIcon]::Information)
Start-Sleep -Seconds 6
$n.Dispose()
`
	return exec.Command("powershell", "-NoProfile", "-Command", script).Run()
}
