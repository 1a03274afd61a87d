// Package control implements the rule/folder control surface (§ SUPPLEMENTED
// FEATURES): the set of operations the original exposed as Tauri commands
// (commands/folders.rs, commands/rules.rs, commands/run.rs, commands/undo.rs,
// commands/logs.rs, commands/settings.rs), shipped here as an HTTP API served
// over a local address and driven by the filedispatchctl CLI, modeled on the
// teacher's daemon.go admin endpoints and cmd/srvrmgr subcommand dispatch.
package control

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/filedispatch/agent/internal/domain"
	"github.com/filedispatch/agent/internal/store"
)

// ErrNotUndoable is returned for an UndoEntry whose action type is not one
// of move/rename/copy — §6 Undo semantics: "otherwise: fail with 'Action is
// not undoable'."
var ErrNotUndoable = errors.New("action is not undoable")

// ApplyUndo reverses the effect of a successful Move/Rename/Copy action and
// deletes the UndoEntry on success, exactly as §6 Undo semantics specifies:
//
//   - move/rename: fail if the current path is gone; fail if the original
//     path already exists; create the original's parent directories;
//     rename current back to original.
//   - copy: delete the current path (file or tree).
//   - otherwise: ErrNotUndoable.
func ApplyUndo(undos *store.UndoRepo, logs *store.LogRepo, id int64) error {
	entry, err := undos.Get(id)
	if err != nil {
		return fmt.Errorf("loading undo entry %d: %w", id, err)
	}

	var applyErr error
	switch entry.ActionType {
	case domain.UndoMove, domain.UndoRename:
		applyErr = undoMoveOrRename(entry)
	case domain.UndoCopy:
		applyErr = undoCopy(entry)
	default:
		applyErr = ErrNotUndoable
	}

	status := domain.StatusSuccess
	errMsg := ""
	if applyErr != nil {
		status = domain.StatusError
		errMsg = applyErr.Error()
	}
	logs.Append(domain.LogEntry{
		RuleName:   "",
		FilePath:   entry.CurrentPath,
		ActionType: "undo_" + string(entry.ActionType),
		Details: &domain.ActionDetails{
			SourcePath:      entry.CurrentPath,
			DestinationPath: entry.OriginalPath,
		},
		Status: status,
		Error:  errMsg,
	})

	if applyErr != nil {
		return applyErr
	}
	return undos.Delete(id)
}

func undoMoveOrRename(entry domain.UndoEntry) error {
	if _, err := os.Stat(entry.CurrentPath); err != nil {
		return fmt.Errorf("undo source %s is gone: %w", entry.CurrentPath, err)
	}
	if _, err := os.Stat(entry.OriginalPath); err == nil {
		return fmt.Errorf("undo destination %s already exists", entry.OriginalPath)
	}
	if err := os.MkdirAll(filepath.Dir(entry.OriginalPath), 0755); err != nil {
		return fmt.Errorf("creating parent directories for %s: %w", entry.OriginalPath, err)
	}
	return os.Rename(entry.CurrentPath, entry.OriginalPath)
}

func undoCopy(entry domain.UndoEntry) error {
	return os.RemoveAll(entry.CurrentPath)
}
