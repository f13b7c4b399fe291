package search

import (
	"testing"

	"github.com/rcowham/jamvcs/internal/catalog"
	"github.com/rcowham/jamvcs/internal/localmap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(db *catalog.Database) Config {
	return Config{
		AllowMultiPath: true,
		FolderMap:      localmap.BuildFolderMap(db),
		Database:       db,
	}
}

func TestCompileFromPlainPath(t *testing.T) {
	db := catalog.NewDatabase()
	ctx, err := CompileFrom(testConfig(db), "art/level.png")
	require.NoError(t, err)
	assert.Equal(t, []string{"art/level.png"}, ctx.FinalPaths)
}

func TestCompileFromShortPathTag(t *testing.T) {
	db := catalog.NewDatabase()
	_, _, err := db.Add("art/level.png")
	require.NoError(t, err)

	ctx, err := CompileFrom(testConfig(db), ":level.png")
	require.NoError(t, err)
	assert.Equal(t, []string{"art/level.png"}, ctx.FinalPaths)
}

func TestCompileFromShortPathTagUnknown(t *testing.T) {
	db := catalog.NewDatabase()
	_, err := CompileFrom(testConfig(db), ":missing.png")
	assert.Error(t, err)
}

func TestCompileFromAliasParamUnresolved(t *testing.T) {
	db := catalog.NewDatabase()
	_, err := CompileFrom(testConfig(db), "myparam?")
	assert.Error(t, err)
}

func TestCompileFromAliasParamResolved(t *testing.T) {
	db := catalog.NewDatabase()
	cfg := testConfig(db)
	cfg.Parameters = func(name string) (string, bool) {
		if name == "myparam" {
			return "art/level.png", true
		}
		return "", false
	}
	ctx, err := CompileFrom(cfg, "myparam?")
	require.NoError(t, err)
	assert.Equal(t, []string{"art/level.png"}, ctx.FinalPaths)
}

func TestCompileFromGlob(t *testing.T) {
	db := catalog.NewDatabase()
	_, _, err := db.Add("art/a.png")
	require.NoError(t, err)
	_, _, err = db.Add("art/b.png")
	require.NoError(t, err)
	_, _, err = db.Add("art/c.txt")
	require.NoError(t, err)

	ctx, err := CompileFrom(testConfig(db), "art/.*png")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"art/a.png", "art/b.png"}, ctx.FinalPaths)
}

func TestCompileFromGlobDisallowed(t *testing.T) {
	db := catalog.NewDatabase()
	cfg := testConfig(db)
	cfg.AllowMultiPath = false
	_, err := CompileFrom(cfg, "art/.*png")
	assert.Error(t, err)
}

func TestCompileToContextRelative(t *testing.T) {
	db := catalog.NewDatabase()
	_, _, err := db.Add("art/level.png")
	require.NoError(t, err)

	from, err := CompileFrom(testConfig(db), "art/level.png")
	require.NoError(t, err)

	to, err := CompileTo(testConfig(db), from, "./renamed.png")
	require.NoError(t, err)
	assert.Equal(t, []string{"art/renamed.png"}, to.FinalPaths)
}

func TestCompileToMultiDirMove(t *testing.T) {
	db := catalog.NewDatabase()
	_, _, err := db.Add("art/a.png")
	require.NoError(t, err)
	_, _, err = db.Add("art/b.png")
	require.NoError(t, err)

	from, err := CompileFrom(testConfig(db), "art/.*png")
	require.NoError(t, err)

	to, err := CompileTo(testConfig(db), from, "backup/")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"backup/a.png", "backup/b.png"}, to.FinalPaths)
}
