package localmap

import (
	"github.com/rcowham/jamvcs/internal/catalog"
	"github.com/rcowham/jamvcs/internal/textutil"
)

// LocalFile tracks one catalog file's state in the client's working tree.
// Completed/CompletedDigest/CompletedCommit record the last path/digest/
// description the client successfully committed, independent of
// LocalVersion/LocalDigest which track the current working-tree state --
// this lets struct distinguish "untouched since commit" from "edited
// again since the last successful commit" without another round trip.
type LocalFile struct {
	LocalPath       string `yaml:"local_path"`
	LocalVersion    uint32 `yaml:"local_version"`
	LocalDigest     string `yaml:"local_digest"`
	Completed       bool   `yaml:"completed"`
	CompletedDigest string `yaml:"completed_digest"`
	CompletedCommit string `yaml:"completed_commit"`
}

// FileMap is the client-side path<->UUID map.
type FileMap struct {
	FilePaths map[string]*LocalFile `yaml:"file_paths"`
	FileUUIDs map[string]string     `yaml:"-"`
}

// RelPath implements store.Document.
func (m *FileMap) RelPath() string { return "local_file_map.yaml" }

// NewFileMap returns the empty FileMap store.Load falls back to.
func NewFileMap() *FileMap {
	return &FileMap{FilePaths: map[string]*LocalFile{}, FileUUIDs: map[string]string{}}
}

// Rebuild regenerates FileUUIDs from FilePaths -- a derived inverse view,
// never trusted from disk, following the same discipline as the
// catalog's VirtualUUIDs.
func (m *FileMap) Rebuild() {
	m.FileUUIDs = make(map[string]string, len(m.FilePaths))
	for uuid, lf := range m.FilePaths {
		m.FileUUIDs[textutil.ProcessPathText(lf.LocalPath)] = uuid
	}
}

// Set records/updates the LocalFile for uuid and keeps FileUUIDs in sync,
// keyed on the same normalised form ByLocalPath looks paths up under.
func (m *FileMap) Set(uuid string, lf *LocalFile) {
	m.FilePaths[uuid] = lf
	m.FileUUIDs[textutil.ProcessPathText(lf.LocalPath)] = uuid
}

// ByUUID looks up the LocalFile tracked for uuid.
func (m *FileMap) ByUUID(uuid string) (*LocalFile, bool) {
	lf, ok := m.FilePaths[uuid]
	return lf, ok
}

// ByLocalPath resolves a normalised on-disk path back to its UUID.
func (m *FileMap) ByLocalPath(path string) (string, bool) {
	uuid, ok := m.FileUUIDs[textutil.ProcessPathText(path)]
	return uuid, ok
}

// SearchToLocal resolves a catalog path to the client's LocalFile for it,
// mirroring LocalFileMap::search_to_local: catalog path -> UUID -> LocalFile.
func (m *FileMap) SearchToLocal(db *catalog.Database, catalogPath string) (*LocalFile, bool) {
	uuid, _, ok := db.FileWithPath(catalogPath)
	if !ok {
		return nil, false
	}
	return m.ByUUID(uuid)
}
