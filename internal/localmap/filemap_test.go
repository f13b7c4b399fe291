package localmap

import (
	"testing"

	"github.com/rcowham/jamvcs/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileMapSetAndByUUID(t *testing.T) {
	m := NewFileMap()
	m.Set("u1", &LocalFile{LocalPath: "art/level.png", LocalVersion: 1})

	lf, ok := m.ByUUID("u1")
	require.True(t, ok)
	assert.Equal(t, "art/level.png", lf.LocalPath)
}

func TestFileMapByLocalPathNormalises(t *testing.T) {
	m := NewFileMap()
	m.Set("u1", &LocalFile{LocalPath: "art/level.png"})

	uuid, ok := m.ByLocalPath(`art\level.png`)
	require.True(t, ok)
	assert.Equal(t, "u1", uuid)
}

func TestFileMapRebuild(t *testing.T) {
	m := &FileMap{FilePaths: map[string]*LocalFile{
		"u1": {LocalPath: "a.txt"},
		"u2": {LocalPath: "b.txt"},
	}}
	m.Rebuild()

	uuid, ok := m.ByLocalPath("b.txt")
	require.True(t, ok)
	assert.Equal(t, "u2", uuid)
}

func TestSearchToLocal(t *testing.T) {
	db := catalog.NewDatabase()
	uuid, _, err := db.Add("art/level.png")
	require.NoError(t, err)

	m := NewFileMap()
	m.Set(uuid, &LocalFile{LocalPath: "art/level.png", LocalVersion: 1})

	lf, ok := m.SearchToLocal(db, "art/level.png")
	require.True(t, ok)
	assert.Equal(t, uint32(1), lf.LocalVersion)

	_, ok = m.SearchToLocal(db, "nope.png")
	assert.False(t, ok)
}
