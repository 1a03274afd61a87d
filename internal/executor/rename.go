package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/filedispatch/agent/internal/domain"
	"github.com/filedispatch/agent/internal/engine"
)

// runRename implements Rename (§4.4): the pattern resolves against the
// file's directory to produce a sibling name, sharing Move's conflict
// policy (minus skip_duplicates, which Rename has no use for).
func (x *Executor) runRename(action domain.Action, currentPath string, info domain.FileInfo, captures map[string]string) (engine.ActionOutcome, string) {
	dir := filepath.Dir(currentPath)
	newName := x.pattern.Resolve(action.Pattern, info, captures)
	dest := filepath.Join(dir, newName)

	final, skip, reason, err := x.prepareDestination(dest, action.OnConflict, false)
	if err != nil {
		return errOutcome(action, currentPath, err), ""
	}
	if skip {
		return skipOutcome(action, currentPath, reason), currentPath
	}

	if isCaseOnlyRename(currentPath, final) {
		if err := caseOnlyRename(currentPath, final); err != nil {
			return errOutcome(action, currentPath, err), ""
		}
		return engine.ActionOutcome{
			Action:  action,
			Status:  domain.StatusSuccess,
			Details: &domain.ActionDetails{SourcePath: currentPath, DestinationPath: final},
		}, final
	}

	if err := renameOrCopyDelete(currentPath, final); err != nil {
		return errOutcome(action, currentPath, err), ""
	}

	return engine.ActionOutcome{
		Action:  action,
		Status:  domain.StatusSuccess,
		Details: &domain.ActionDetails{SourcePath: currentPath, DestinationPath: final},
	}, final
}

// isCaseOnlyRename reports whether src and dst differ only in case — the
// one case os.Rename silently no-ops on case-insensitive filesystems
// (Windows, and HFS+/APFS in their default configuration).
func isCaseOnlyRename(src, dst string) bool {
	if runtime.GOOS != "windows" && runtime.GOOS != "darwin" {
		return false
	}
	return src != dst && strings.EqualFold(src, dst)
}

// caseOnlyRename forces a case change on a case-insensitive filesystem by
// routing through an intermediate name (§4.4: "*.rename_tmp").
func caseOnlyRename(src, dst string) error {
	tmp := dst + ".rename_tmp"
	if err := os.Rename(src, tmp); err != nil {
		return fmt.Errorf("renaming to intermediate name: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		return fmt.Errorf("renaming intermediate name to final case: %w", err)
	}
	return nil
}
