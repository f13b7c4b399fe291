// Package catalog implements the server's authoritative virtual-file
// database: the path<->UUID index, per-file version history, and the
// exclusive lock state machine. This is the single piece of mutable state
// every command operates on, always through Database.WithLock.
package catalog

import (
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/rcowham/jamvcs/internal/textutil"
)

// LockState discriminates a VirtualFile's lock: either Available, or
// Locked by a given member UUID.
type LockState struct {
	Locked     bool   `yaml:"locked"`
	HolderUUID string `yaml:"holder_uuid,omitempty"`
}

// Available reports whether the lock is free.
func (l LockState) Available() bool { return !l.Locked }

// VirtualFile is one logical, path-addressed, versioned artifact.
type VirtualFile struct {
	Path            string            `yaml:"path"`
	Real            string            `yaml:"real"`
	Version         uint32            `yaml:"version"`
	ChangeHistories map[uint32]string `yaml:"change_histories"`
	RealHistories   map[uint32]string `yaml:"real_histories"`
	State           LockState         `yaml:"state"`
	LongerLock      bool              `yaml:"longer_lock"`
}

// newVirtualFile builds the version-0 VirtualFile add() inserts.
func newVirtualFile(path string) *VirtualFile {
	return &VirtualFile{
		Path:            path,
		Real:            "",
		Version:         0,
		ChangeHistories: map[uint32]string{0: "First Version"},
		RealHistories:   map[uint32]string{0: ""},
		State:           LockState{},
	}
}

// Orphaned reports whether the file has been removed from the path index
// but its history retained.
func (f *VirtualFile) Orphaned() bool { return f.Path == "" }

// LockedByOther reports whether the file is locked by someone other than
// uuid.
func (f *VirtualFile) LockedByOther(uuid string) bool {
	return f.State.Locked && f.State.HolderUUID != uuid
}

// HeldBy reports whether uuid currently holds the lock.
func (f *VirtualFile) HeldBy(uuid string) bool {
	return f.State.Locked && f.State.HolderUUID == uuid
}

// releaseIfShort clears the lock unless it is long-term -- the auto
// release policy every mutating operation applies on success.
func (f *VirtualFile) releaseIfShort() {
	if !f.LongerLock {
		f.State = LockState{}
	}
}

// Database is the catalog: every virtual file plus its path index. All
// mutation happens under Mu; callers use WithLock.
type Database struct {
	Mu            sync.Mutex                 `yaml:"-"`
	VirtualFiles  map[string]*VirtualFile     `yaml:"virtual_files"`
	VirtualUUIDs  map[string]string           `yaml:"-"`
}

// CleanHistories drops every orphaned (removed) file's entry entirely,
// and trims each surviving file's change/real history down to just its
// current version. Called right after an archive snapshot has captured
// the full history elsewhere, matching Database::clean_histories.
func (d *Database) CleanHistories() {
	for u, f := range d.VirtualFiles {
		if f.Orphaned() {
			delete(d.VirtualFiles, u)
			continue
		}
		f.ChangeHistories = map[uint32]string{f.Version: f.ChangeHistories[f.Version]}
		f.RealHistories = map[uint32]string{f.Version: f.Real}
	}
}

// RelPath implements store.Document.
func (d *Database) RelPath() string { return "database.yaml" }

// NewDatabase returns an empty catalog.
func NewDatabase() *Database {
	return &Database{
		VirtualFiles: map[string]*VirtualFile{},
		VirtualUUIDs: map[string]string{},
	}
}

// Rebuild regenerates VirtualUUIDs from VirtualFiles. VirtualUUIDs is a
// derived index and is never trusted from disk (it isn't even
// serialized); call this once right after a Database is deserialized.
func (d *Database) Rebuild() {
	d.VirtualUUIDs = make(map[string]string, len(d.VirtualFiles))
	for u, f := range d.VirtualFiles {
		if !f.Orphaned() {
			d.VirtualUUIDs[f.Path] = u
		}
	}
}

// WithLock runs fn with the catalog mutex held. fn must never block on
// network or disk I/O -- only catalog reads/writes belong here (see the
// concurrency design note on holding the lock only across the narrow
// critical section). The one exception is the archive command, which
// writes its history snapshot to disk under the lock so the snapshot and
// the history trim that follows see the same catalog.
func (d *Database) WithLock(fn func(d *Database)) {
	d.Mu.Lock()
	defer d.Mu.Unlock()
	fn(d)
}

// Snapshot deep-copies the catalog under the lock and returns the copy
// with the lock already released -- the "clone under lock, transmit
// unlocked" pattern required before any blocking network send.
func (d *Database) Snapshot() *Database {
	d.Mu.Lock()
	defer d.Mu.Unlock()

	out := NewDatabase()
	for u, f := range d.VirtualFiles {
		clone := *f
		clone.ChangeHistories = cloneHistory(f.ChangeHistories)
		clone.RealHistories = cloneHistory(f.RealHistories)
		out.VirtualFiles[u] = &clone
	}
	out.Rebuild()
	return out
}

func cloneHistory(h map[uint32]string) map[uint32]string {
	out := make(map[uint32]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out
}

// Files returns every non-orphaned VirtualFile, for callers (search
// compiler, struct command) that need to range over live catalog entries.
// Must be called with the lock held or on a Snapshot.
func (d *Database) Files() []*VirtualFile {
	out := make([]*VirtualFile, 0, len(d.VirtualUUIDs))
	for _, u := range d.VirtualUUIDs {
		out = append(out, d.VirtualFiles[u])
	}
	return out
}

// FileWithUUID looks up a file by UUID, including orphans.
func (d *Database) FileWithUUID(u string) (*VirtualFile, bool) {
	f, ok := d.VirtualFiles[u]
	return f, ok
}

// FileWithPath looks up a non-orphaned file by its normalised path.
func (d *Database) FileWithPath(path string) (string, *VirtualFile, bool) {
	u, ok := d.VirtualUUIDs[path]
	if !ok {
		return "", nil, false
	}
	return u, d.VirtualFiles[u], true
}

var (
	// ErrAlreadyExists is returned by Add when path is already indexed.
	ErrAlreadyExists = errors.New("already exists")
	// ErrNotFound is returned when a path/UUID has no corresponding file.
	ErrNotFound = errors.New("not found")
	// ErrLocked is returned when the caller does not hold the required lock.
	ErrLocked = errors.New("locked by another member")
	// ErrInvalidPath is returned for an empty/unnormalisable path.
	ErrInvalidPath = errors.New("invalid path")
	// ErrNoSuchMember is returned when give_locker targets an unknown member.
	ErrNoSuchMember = errors.New("no such member")
	// ErrNoSuchVersion is returned by Rollback for an unknown version.
	ErrNoSuchVersion = errors.New("no such version")
)

// Add creates a new VirtualFile at path. Must be called with the lock held.
func (d *Database) Add(path string) (string, *VirtualFile, error) {
	norm, ok := textutil.NormalizePath(path)
	if !ok {
		return "", nil, ErrInvalidPath
	}
	if _, _, ok := d.FileWithPath(norm); ok {
		return "", nil, ErrAlreadyExists
	}

	u := uuid.NewString()
	f := newVirtualFile(norm)
	d.VirtualFiles[u] = f
	d.VirtualUUIDs[norm] = u
	return u, f, nil
}

// Remove orphans the file at path, provided caller either owns the lock
// or the file is unlocked. Must be called with the lock held.
func (d *Database) Remove(path, callerUUID string) error {
	_, f, ok := d.FileWithPath(path)
	if !ok {
		return ErrNotFound
	}
	if f.State.Locked && f.State.HolderUUID != callerUUID {
		return ErrLocked
	}

	delete(d.VirtualUUIDs, f.Path)
	f.Path = ""
	f.State = LockState{}
	return nil
}

// Move renames oldPath to newPath, by path or by UUID (tried in that
// order, matching the source). Must be called with the lock held.
func (d *Database) Move(oldKey, newPath, callerUUID string) error {
	newNorm, ok := textutil.NormalizePath(newPath)
	if !ok {
		return ErrInvalidPath
	}
	if _, _, exists := d.FileWithPath(newNorm); exists {
		return ErrAlreadyExists
	}

	u, f, ok := d.FileWithPath(oldKey)
	if !ok {
		if vf, exists := d.VirtualFiles[oldKey]; exists {
			u, f = oldKey, vf
		} else {
			return ErrNotFound
		}
	}

	if f.State.Locked && f.State.HolderUUID != callerUUID {
		return ErrLocked
	}

	delete(d.VirtualUUIDs, f.Path)
	f.Path = newNorm
	d.VirtualUUIDs[newNorm] = u
	f.releaseIfShort()
	return nil
}

// Rollback restores a file's current version/content pointer to a
// previously committed version without discarding any history. Must be
// called with the lock held.
func (d *Database) Rollback(path string, toVersion uint32, callerUUID string) error {
	_, f, ok := d.FileWithPath(path)
	if !ok {
		return ErrNotFound
	}
	if f.State.Locked && f.State.HolderUUID != callerUUID {
		return ErrLocked
	}
	real, ok := f.RealHistories[toVersion]
	if !ok {
		return ErrNoSuchVersion
	}

	f.Version = toVersion
	f.Real = real
	f.releaseIfShort()
	return nil
}

// Commit records a new version of path's content. blobID identifies the
// content already written to the blob store by the caller. Must be
// called with the lock held.
func (d *Database) Commit(path, blobID, description, callerUUID string) error {
	_, f, ok := d.FileWithPath(path)
	if !ok {
		return ErrNotFound
	}
	if f.State.Locked && f.State.HolderUUID != callerUUID {
		return ErrLocked
	}

	f.Version++
	f.ChangeHistories[f.Version] = description
	f.RealHistories[f.Version] = blobID
	f.Real = blobID
	f.releaseIfShort()
	return nil
}

// GiveLocker acquires the lock on path for holderUUID. Succeeds
// idempotently if holderUUID already holds it. knownMember reports
// whether holderUUID resolves to a real member -- the caller supplies
// this since Database has no membership table of its own. Must be
// called with the lock held.
func (d *Database) GiveLocker(path, holderUUID string, longer, knownMember bool) error {
	_, f, ok := d.FileWithPath(path)
	if !ok {
		return ErrNotFound
	}
	if f.HeldBy(holderUUID) {
		f.LongerLock = longer
		return nil
	}
	if !f.State.Available() {
		return ErrLocked
	}
	if !knownMember {
		return ErrNoSuchMember
	}

	f.State = LockState{Locked: true, HolderUUID: holderUUID}
	f.LongerLock = longer
	return nil
}

// ThrowLocker unconditionally releases path's lock. The command layer is
// responsible for checking that the caller is the holder before invoking
// this -- Database.ThrowLocker itself performs no ownership check,
// matching the source's "unconditional local reset" semantics.
func (d *Database) ThrowLocker(path string) error {
	_, f, ok := d.FileWithPath(path)
	if !ok {
		return ErrNotFound
	}
	f.State = LockState{}
	f.LongerLock = false
	return nil
}
