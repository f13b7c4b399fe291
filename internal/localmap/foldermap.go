package localmap

import (
	"strings"

	"github.com/rcowham/jamvcs/internal/catalog"
	"github.com/rcowham/jamvcs/internal/textutil"
)

// NodeKind discriminates a FolderMap entry.
type NodeKind string

const (
	NodeJump NodeKind = "Jump"
	NodeFile NodeKind = "File"
)

// Node is one entry under a directory prefix in LocalFolderMap: either a
// jump to a child directory, or a file directly inside this directory.
type Node struct {
	Kind NodeKind `yaml:"kind"`
	Path string   `yaml:"path"`
}

// FolderMap is the derived directory index: for every directory prefix
// (including the root, ""), the files and child-directory jumps directly
// inside it. Entirely regenerated from a catalog snapshot on every sync --
// never trusted from disk, per the design note on derived indices.
type FolderMap struct {
	FolderFiles  map[string][]Node `yaml:"folder_files"`
	ShortFileMap map[string]string `yaml:"short_file_map"`
}

// RelPath implements store.Document.
func (f *FolderMap) RelPath() string { return "local_folder_map.yaml" }

// NewFolderMap returns the empty FolderMap store.Load falls back to.
func NewFolderMap() *FolderMap {
	return &FolderMap{FolderFiles: map[string][]Node{}, ShortFileMap: map[string]string{}}
}

// BuildFolderMap derives a FolderMap from a catalog snapshot, grounded on
// the source's `impl From<&Database> for LocalFolderMap`: every file is
// placed under its directory prefix, every ancestor directory is
// collected, and each directory gets one Jump node per direct child
// directory.
func BuildFolderMap(db *catalog.Database) *FolderMap {
	folderFiles := map[string][]Node{}
	allDirs := map[string]bool{"": true}

	for _, file := range db.Files() {
		dir := textutil.DirOf(file.Path)
		folderFiles[dir] = append(folderFiles[dir], Node{Kind: NodeFile, Path: file.Path})

		for current := dir; current != ""; current = parentDir(current) {
			allDirs[current] = true
		}
	}

	for dir := range allDirs {
		if _, ok := folderFiles[dir]; !ok {
			folderFiles[dir] = nil
		}

		for candidate := range allDirs {
			if candidate == dir || !strings.HasPrefix(candidate, dir) {
				continue
			}
			relative := strings.TrimPrefix(candidate, dir)
			if strings.Count(relative, "/") > 1 {
				continue
			}
			if !strings.Contains(relative, "/") && relative != "" {
				continue
			}
			jump := Node{Kind: NodeJump, Path: candidate}
			if !containsNode(folderFiles[dir], jump) {
				folderFiles[dir] = append(folderFiles[dir], jump)
			}
		}
	}

	return &FolderMap{
		FolderFiles:  folderFiles,
		ShortFileMap: buildShortFileMap(db),
	}
}

func containsNode(nodes []Node, n Node) bool {
	for _, existing := range nodes {
		if existing == n {
			return true
		}
	}
	return false
}

func parentDir(dir string) string {
	trimmed := strings.TrimSuffix(dir, "/")
	if idx := strings.LastIndexByte(trimmed, '/'); idx >= 0 {
		return trimmed[:idx+1]
	}
	return ""
}

// buildShortFileMap builds the supplemental `:name` lookup the search
// compiler's comp_short_path_tag relies on: each file's last path segment
// maps to its full path, but only where that short name is unambiguous --
// a collision removes the entry, forcing callers back to the full path.
func buildShortFileMap(db *catalog.Database) map[string]string {
	short := map[string]string{}
	seenAmbiguous := map[string]bool{}

	for _, file := range db.Files() {
		name := file.Path
		if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
			name = name[idx+1:]
		}
		if seenAmbiguous[name] {
			continue
		}
		if existing, ok := short[name]; ok && existing != file.Path {
			delete(short, name)
			seenAmbiguous[name] = true
			continue
		}
		short[name] = file.Path
	}
	return short
}
