package control

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/filedispatch/agent/internal/domain"
)

// listFolderFiles enumerates regular file paths under folder.Path up to
// folder.MaxDepth(), the same depth-bounded walk housekeeping's duplicate
// detector uses, for the preview endpoint's "scan the whole folder when no
// explicit paths are given" behavior.
func listFolderFiles(folder domain.Folder) ([]string, error) {
	depth, unlimited := folder.MaxDepth()
	rootDepth := strings.Count(filepath.Clean(folder.Path), string(filepath.Separator))

	var paths []string
	err := filepath.WalkDir(folder.Path, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if path == folder.Path {
				return nil
			}
			if !unlimited {
				pathDepth := strings.Count(filepath.Clean(path), string(filepath.Separator)) - rootDepth
				if pathDepth > depth {
					return filepath.SkipDir
				}
			}
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	return paths, err
}
