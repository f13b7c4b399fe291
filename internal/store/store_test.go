package store

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

type widget struct {
	Name string `yaml:"name"`
}

func (w *widget) RelPath() string { return "widget.yaml" }

func TestLoadMissingWritesDefault(t *testing.T) {
	root := NewRoot(t.TempDir())

	loaded := Load(root, &widget{Name: "default"})
	assert.Equal(t, "default", loaded.Name)

	// Second load should read back the file the first Load wrote.
	again := Load(root, &widget{Name: "ignored"})
	assert.Equal(t, "default", again.Name)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	root := NewRoot(t.TempDir())

	require := assert.New(t)
	require.NoError(Save(root, &widget{Name: "alpha"}))

	got := Load(root, &widget{Name: "unused"})
	require.Equal("alpha", got.Name)
}

func TestLoadCorruptFallsBackToDefault(t *testing.T) {
	root := NewRoot(t.TempDir())
	assert.NoError(t, Save(root, &widget{Name: "alpha"}))

	// Overwrite with unparsable content.
	corrupt := root.Path((&widget{}).RelPath())
	if err := os.WriteFile(corrupt, []byte("not: [valid: yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	got := Load(root, &widget{Name: "fallback"})
	assert.Equal(t, "fallback", got.Name)
}
