package executor

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/filedispatch/agent/internal/domain"
	"github.com/filedispatch/agent/internal/engine"
	"github.com/otiai10/copy"
)

// runMoveLike implements Move and SortIntoSubfolder (§4.4): both resolve a
// destination template, append the full name when the destination is an
// existing directory (or always, for SortIntoSubfolder), run
// prepare_destination, then rename-or-copy-delete the file there.
func (x *Executor) runMoveLike(action domain.Action, currentPath string, info domain.FileInfo, captures map[string]string, alwaysAppendName bool) (engine.ActionOutcome, string) {
	dest := expandTilde(x.pattern.Resolve(action.Destination, info, captures))

	appendName := alwaysAppendName
	if !appendName {
		if st, err := os.Stat(dest); err == nil && st.IsDir() {
			appendName = true
		}
	}
	if appendName {
		dest = filepath.Join(dest, info.FullName)
	}

	final, skip, reason, err := x.prepareDestination(dest, action.OnConflict, action.SkipDuplicates)
	if err != nil {
		return errOutcome(action, currentPath, err), ""
	}
	if skip {
		return skipOutcome(action, currentPath, reason), currentPath
	}

	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return errOutcome(action, currentPath, fmt.Errorf("creating parent directories: %w", err)), ""
	}

	if err := renameOrCopyDelete(currentPath, final); err != nil {
		return errOutcome(action, currentPath, err), ""
	}

	return engine.ActionOutcome{
		Action: action,
		Status: domain.StatusSuccess,
		Details: &domain.ActionDetails{
			SourcePath:      currentPath,
			DestinationPath: final,
		},
	}, final
}

// runCopy streams a copy to the resolved destination; unlike Move, the
// current path is unchanged because the source still exists.
func (x *Executor) runCopy(action domain.Action, currentPath string, info domain.FileInfo, captures map[string]string) (engine.ActionOutcome, string) {
	dest := expandTilde(x.pattern.Resolve(action.Destination, info, captures))

	if st, err := os.Stat(dest); err == nil && st.IsDir() {
		dest = filepath.Join(dest, info.FullName)
	}

	final, skip, reason, err := x.prepareDestination(dest, action.OnConflict, action.SkipDuplicates)
	if err != nil {
		return errOutcome(action, currentPath, err), ""
	}
	if skip {
		return skipOutcome(action, currentPath, reason), ""
	}

	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return errOutcome(action, currentPath, fmt.Errorf("creating parent directories: %w", err)), ""
	}

	if err := copy.Copy(currentPath, final); err != nil {
		return errOutcome(action, currentPath, fmt.Errorf("copying: %w", err)), ""
	}

	return engine.ActionOutcome{
		Action: action,
		Status: domain.StatusSuccess,
		Details: &domain.ActionDetails{
			SourcePath:      currentPath,
			DestinationPath: final,
		},
	}, ""
}

// prepareDestination implements §4.4's prepare_destination: if dest
// exists, apply the conflict policy; otherwise dest is returned unchanged.
func (x *Executor) prepareDestination(dest string, policy domain.ConflictPolicy, skipDuplicates bool) (final string, skip bool, reason string, err error) {
	if _, statErr := os.Lstat(dest); statErr != nil {
		return dest, false, "", nil
	}

	if skipDuplicates {
		return "", true, "destination already exists", nil
	}

	switch policy {
	case domain.ConflictSkip:
		return "", true, "destination already exists", nil
	case domain.ConflictReplace:
		if err := os.RemoveAll(dest); err != nil {
			return "", false, "", fmt.Errorf("removing existing destination: %w", err)
		}
		return dest, false, "", nil
	case domain.ConflictRename:
		return findAvailableName(dest), false, "", nil
	default:
		return "", true, "destination already exists", nil
	}
}

// findAvailableName finds the first "{stem} (N){ext}" that does not exist,
// for N = 1, 2, ... (§4.4).
func findAvailableName(dest string) string {
	dir := filepath.Dir(dest)
	base := filepath.Base(dest)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for n := 1; ; n++ {
		candidate := filepath.Join(dir, fmt.Sprintf("%s (%d)%s", stem, n, ext))
		if _, err := os.Lstat(candidate); err != nil {
			return candidate
		}
	}
}

// renameOrCopyDelete attempts an atomic rename; on a cross-device error
// (EXDEV, or ERROR_NOT_SAME_DEVICE=17 on Windows) it falls back to
// copying the tree then removing the source (§4.4).
func renameOrCopyDelete(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !isCrossDeviceError(err) {
		return fmt.Errorf("moving %s to %s: %w", src, dst, err)
	}

	if err := copy.Copy(src, dst); err != nil {
		return fmt.Errorf("cross-device copy fallback: %w", err)
	}
	if err := os.RemoveAll(src); err != nil {
		return fmt.Errorf("removing source after cross-device copy: %w", err)
	}
	return nil
}
