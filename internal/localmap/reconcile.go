package localmap

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/rcowham/jamvcs/internal/catalog"
	"github.com/rcowham/jamvcs/internal/textutil"
)

// WorkspaceDir is the hidden directory excluded from both the disk walk
// and reconciliation's empty-directory cleanup. store.Root writes the
// client's own documents (workspace.yaml, the file/folder maps) directly
// under the root directory, not inside WorkspaceDir, so the exclusion
// does not cover them.
const WorkspaceDir = ".jam"

// Env/switch flags for the struct command, grounded verbatim on
// command_show_struct.rs's flag constants.
const (
	EnvRemote = 'r'
	EnvLocal  = 'l'

	SwitchZeroVersion = 'z'
	SwitchUpdated     = 'u'
	SwitchOther       = 'e'
	SwitchMoved       = 'm'
	SwitchHeld        = 'h'
	SwitchOtherLock   = 'g'
	SwitchUntracked   = 'n'
	SwitchRemoved     = 'd'
)

// WalkLocalFiles returns every regular file under root, normalised and
// relative to root, excluding the hidden workspace directory itself.
func WalkLocalFiles(root, workspaceDir string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if strings.HasPrefix(rel, workspaceDir+"/") || rel == workspaceDir {
			return nil
		}
		paths = append(paths, textutil.ProcessPathText(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return paths, nil
}

// RemoteFileLine renders one struct line for a catalog file, per
// build_remote_file_info: returns ("", false) when the file shouldn't be
// displayed under the requested switches.
func RemoteFileLine(file *catalog.VirtualFile, local *LocalFile, localExists bool, callerUUID string, switches string) (string, bool) {
	info := file.Path
	display := false

	showZero := strings.ContainsRune(switches, SwitchZeroVersion)
	showUpdated := strings.ContainsRune(switches, SwitchUpdated)
	showOther := strings.ContainsRune(switches, SwitchOther)
	showMoved := strings.ContainsRune(switches, SwitchMoved)
	showHeld := strings.ContainsRune(switches, SwitchHeld)
	showOtherLock := strings.ContainsRune(switches, SwitchOtherLock)

	switch {
	case file.Real == "":
		if showZero {
			info += " [Empty]"
			display = true
		}
	case local != nil && localExists:
		switch {
		case local.LocalVersion < file.Version && showUpdated:
			info += fmt.Sprintf(" [v%d↓]", local.LocalVersion)
			display = true
		case local.LocalVersion > file.Version && showUpdated:
			info += fmt.Sprintf(" [v%d↑]", local.LocalVersion)
			display = true
		case local.LocalVersion == file.Version && showOther:
			info += fmt.Sprintf(" [v%d]", local.LocalVersion)
			display = true
		}
		if showMoved && local.LocalPath != file.Path {
			info += fmt.Sprintf(" -> %s", strings.ReplaceAll(local.LocalPath, "/", "\\"))
		}
	default:
		if showOther {
			display = true
		}
	}

	if file.State.Locked {
		isHeld := file.State.HolderUUID == callerUUID
		isOtherLock := file.State.HolderUUID != callerUUID
		if isHeld && showHeld {
			if file.LongerLock {
				info += " [HELD]"
			} else {
				info += " [held]"
			}
			display = true
		}
		if isOtherLock && showOtherLock {
			if file.LongerLock {
				info += " [LOCKED]"
			} else {
				info += " [locked]"
			}
			display = true
		}
	}

	if !display {
		return "", false
	}
	return info, true
}

// LocalFileLines renders struct lines for on-disk files, per
// get_local_file_info: moved/removed catalog entries, and paths with no
// catalog entry at all (untracked).
func LocalFileLines(fm *FileMap, db *catalog.Database, diskPaths []string, switches string) []string {
	showMoved := strings.ContainsRune(switches, SwitchMoved)
	showRemoved := strings.ContainsRune(switches, SwitchRemoved)
	showUntracked := strings.ContainsRune(switches, SwitchUntracked)

	var lines []string
	for _, path := range diskPaths {
		uuid, tracked := fm.ByLocalPath(path)
		if !tracked {
			if showUntracked {
				lines = append(lines, fmt.Sprintf("%s [Untracked]", path))
			}
			continue
		}

		file, ok := db.FileWithUUID(uuid)
		if !ok || file.Path == path {
			continue
		}

		if file.Path != "" && showMoved {
			lines = append(lines, fmt.Sprintf("%s [Moved] -> %s", path, strings.ReplaceAll(file.Path, "/", "\\")))
		}
		if file.Path == "" && showRemoved {
			lines = append(lines, fmt.Sprintf("%s [Removed] %s", path, uuid))
		}
	}
	return lines
}

// Reconcile renames on-disk files whose tracked local path has drifted from
// the catalog's current path for the same uuid -- the other half of a
// move/commit that another member already synced. Each rename is attempted
// independently: a failure on one file is collected and the rest still run,
// rather than aborting the whole pass. fm is updated in place for every
// file successfully moved.
func Reconcile(root string, fm *FileMap, db *catalog.Database) (moved int, errs []error) {
	for uid, lf := range fm.FilePaths {
		file, ok := db.FileWithUUID(uid)
		if !ok || file.Orphaned() || lf.LocalPath == "" {
			continue
		}

		// LocalPath is normally relative to root, like every other
		// tracked path; an already-absolute value (e.g. a file kept
		// outside the workspace tree) is compared against root in its
		// relative form, and left alone entirely if it doesn't resolve
		// under root at all.
		relLocal := lf.LocalPath
		if filepath.IsAbs(relLocal) {
			rel, err := filepath.Rel(root, relLocal)
			if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
				continue
			}
			relLocal = filepath.ToSlash(rel)
		}
		if relLocal == file.Path {
			continue
		}

		oldAbs := filepath.Join(root, filepath.FromSlash(relLocal))
		if _, err := os.Stat(oldAbs); err != nil {
			continue
		}

		newAbs := filepath.Join(root, filepath.FromSlash(file.Path))
		if err := os.MkdirAll(filepath.Dir(newAbs), 0o755); err != nil {
			errs = append(errs, fmt.Errorf("reconcile %s: %w", file.Path, err))
			continue
		}
		if err := os.Rename(oldAbs, newAbs); err != nil {
			errs = append(errs, fmt.Errorf("reconcile %s: %w", file.Path, err))
			continue
		}

		lf.LocalPath = file.Path
		fm.Set(uid, lf)
		moved++
	}

	removeEmptyDirs(root)
	return moved, errs
}

// removeEmptyDirs prunes every empty directory under root (such as those
// left empty by Reconcile's renames), deepest first so a chain of now-empty parents collapses in one pass.
// Failures (a directory that turned out not to be empty, permission
// errors) are silently skipped -- this is best-effort tidiness, not a
// tracked operation.
func removeEmptyDirs(root string) {
	var dirs []string
	_ = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || !d.IsDir() || path == root {
			return nil
		}
		rel := filepath.ToSlash(strings.TrimPrefix(path, root+string(filepath.Separator)))
		if rel == WorkspaceDir || strings.HasPrefix(rel, WorkspaceDir+"/") {
			return filepath.SkipDir
		}
		dirs = append(dirs, path)
		return nil
	})

	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, dir := range dirs {
		_ = os.Remove(dir)
	}
}
