package executor

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"

	"github.com/filedispatch/agent/internal/domain"
	"github.com/filedispatch/agent/internal/engine"
)

// TrashPath moves a file to the platform trash. Exported so the
// housekeeping package's Duplicate Detector and Incomplete-Download
// Cleaner (§4.7, §4.8) can reuse the same platform trash convention as
// the Delete action instead of duplicating it.
func TrashPath(path string) error { return trashPath(path) }

// runTrash implements Delete (§4.4): move to OS trash via the
// platform-specific trashPath.
func (x *Executor) runTrash(currentPath string) engine.ActionOutcome {
	action := domain.Action{Kind: domain.ActionDelete}
	if err := trashPath(currentPath); err != nil {
		return errOutcome(action, currentPath, fmt.Errorf("trashing: %w", err))
	}
	return engine.ActionOutcome{
		Action:  action,
		Status:  domain.StatusSuccess,
		Details: &domain.ActionDetails{SourcePath: currentPath},
	}
}

// runDeletePermanently implements DeletePermanently (§4.4): unconditional
// recursive removal, bypassing trash entirely.
func (x *Executor) runDeletePermanently(currentPath string) engine.ActionOutcome {
	action := domain.Action{Kind: domain.ActionDeletePermanently}
	if err := os.RemoveAll(currentPath); err != nil {
		return errOutcome(action, currentPath, fmt.Errorf("permanently deleting: %w", err))
	}
	return engine.ActionOutcome{
		Action:  action,
		Status:  domain.StatusSuccess,
		Details: &domain.ActionDetails{SourcePath: currentPath},
	}
}

// runScript implements RunScript (§4.4): spawn via the platform shell
// with FILE_PATH=current_path; success iff exit 0. Grounded on the same
// sh -c / cmd /C dispatch internal/condition uses for ShellScript
// conditions.
func (x *Executor) runScript(ctx context.Context, action domain.Action, currentPath string) engine.ActionOutcome {
	shell, flag := "sh", "-c"
	if runtime.GOOS == "windows" {
		shell, flag = "cmd", "/C"
	}

	cmd := exec.CommandContext(ctx, shell, flag, action.Command)
	cmd.Env = append(os.Environ(), "FILE_PATH="+currentPath)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return errOutcome(action, currentPath, fmt.Errorf("script failed: %w: %s", err, output))
	}
	return engine.ActionOutcome{
		Action:  action,
		Status:  domain.StatusSuccess,
		Details: &domain.ActionDetails{SourcePath: currentPath, Metadata: map[string]string{"output": string(output)}},
	}
}

const notifyTitle = "filedispatch"

// runNotify implements Notify (§4.4): skipped if notifications are
// disabled in settings, otherwise posts a desktop notification with a
// fixed title.
func (x *Executor) runNotify(action domain.Action, info domain.FileInfo, captures map[string]string) engine.ActionOutcome {
	if !x.settings().ShowNotifications {
		return skipOutcome(action, info.Path, "notifications disabled")
	}
	message := x.pattern.Resolve(action.Message, info, captures)
	if err := x.notifier.Notify(notifyTitle, message); err != nil {
		return errOutcome(action, info.Path, fmt.Errorf("posting notification: %w", err))
	}
	return engine.ActionOutcome{
		Action:  action,
		Status:  domain.StatusSuccess,
		Details: &domain.ActionDetails{SourcePath: info.Path, Metadata: map[string]string{"message": message}},
	}
}

// runOpen implements Open (§4.4): opens currentPath with the OS default
// association. Non-mutating.
func (x *Executor) runOpen(currentPath string) engine.ActionOutcome {
	action := domain.Action{Kind: domain.ActionOpen}
	if err := openPath(currentPath); err != nil {
		return errOutcome(action, currentPath, err)
	}
	return engine.ActionOutcome{Action: action, Status: domain.StatusSuccess, Details: &domain.ActionDetails{SourcePath: currentPath}}
}

// runShowInFileManager implements ShowInFileManager (§4.4). Non-mutating.
func (x *Executor) runShowInFileManager(currentPath string) engine.ActionOutcome {
	action := domain.Action{Kind: domain.ActionShowInFileManager}
	if err := revealInFileManager(currentPath); err != nil {
		return errOutcome(action, currentPath, err)
	}
	return engine.ActionOutcome{Action: action, Status: domain.StatusSuccess, Details: &domain.ActionDetails{SourcePath: currentPath}}
}

// runOpenWith implements OpenWith (§4.4): spawns the named application
// with currentPath as its argument. Non-mutating.
func (x *Executor) runOpenWith(action domain.Action, currentPath string) engine.ActionOutcome {
	if err := openWithApplication(action.Application, currentPath); err != nil {
		return errOutcome(action, currentPath, err)
	}
	return engine.ActionOutcome{Action: action, Status: domain.StatusSuccess, Details: &domain.ActionDetails{SourcePath: currentPath}}
}

// runMakePdfSearchable implements MakePdfSearchable (§4.4, detailed in
// §4.10) by delegating to the content package's OCR-backed rewrite.
func (x *Executor) runMakePdfSearchable(ctx context.Context, action domain.Action, currentPath string) engine.ActionOutcome {
	output := action.OutputPath
	if output == "" {
		output = currentPath
	}
	skipped, err := x.pdf.MakeSearchable(ctx, currentPath, output, action.Overwrite, action.SkipIfText)
	if err != nil {
		return errOutcome(action, currentPath, err)
	}
	if skipped {
		return skipOutcome(action, currentPath, "already contains extractable text")
	}
	return engine.ActionOutcome{
		Action:  action,
		Status:  domain.StatusSuccess,
		Details: &domain.ActionDetails{SourcePath: currentPath, DestinationPath: output},
	}
}
