package localmap

import (
	"testing"

	"github.com/rcowham/jamvcs/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemoteFileLineEmptyShowsOnlyWithZeroFlag(t *testing.T) {
	f := &catalog.VirtualFile{Path: "a.txt"}

	_, ok := RemoteFileLine(f, nil, false, "me", "")
	assert.False(t, ok)

	line, ok := RemoteFileLine(f, nil, false, "me", "z")
	require.True(t, ok)
	assert.Contains(t, line, "[Empty]")
}

func TestRemoteFileLineVersionDrift(t *testing.T) {
	f := &catalog.VirtualFile{Path: "a.txt", Real: "blob1", Version: 3}
	local := &LocalFile{LocalPath: "a.txt", LocalVersion: 1}

	line, ok := RemoteFileLine(f, local, true, "me", "u")
	require.True(t, ok)
	assert.Contains(t, line, "[v1↓]")
}

func TestRemoteFileLineHeldVsLocked(t *testing.T) {
	f := &catalog.VirtualFile{
		Path:  "a.txt",
		Real:  "blob1",
		State: catalog.LockState{Locked: true, HolderUUID: "me"},
	}

	line, ok := RemoteFileLine(f, nil, false, "me", "h")
	require.True(t, ok)
	assert.Contains(t, line, "[held]")

	line, ok = RemoteFileLine(f, nil, false, "someone-else", "g")
	require.True(t, ok)
	assert.Contains(t, line, "[locked]")
}

func TestLocalFileLinesUntrackedAndRemoved(t *testing.T) {
	db := catalog.NewDatabase()
	uuid, _, err := db.Add("moved.txt")
	require.NoError(t, err)
	require.NoError(t, db.Remove("moved.txt", ""))

	fm := NewFileMap()
	fm.Set(uuid, &LocalFile{LocalPath: "moved.txt"})

	lines := LocalFileLines(fm, db, []string{"moved.txt", "new.txt"}, "dn")
	assert.Contains(t, lines, "new.txt [Untracked]")

	found := false
	for _, l := range lines {
		if l == "moved.txt [Removed] "+uuid {
			found = true
		}
	}
	assert.True(t, found)
}
