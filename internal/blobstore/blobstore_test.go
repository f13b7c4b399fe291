package blobstore

import (
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silentLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestWriteThenRead(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, silentLogger())
	defer s.Close()

	id, err := s.Write([]byte("hello world"))
	require.NoError(t, err)

	content, err := s.Read(id)
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(content))
}

func TestAllocatePathThenClassify(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, silentLogger())
	defer s.Close()

	id, path, err := s.AllocatePath()
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte("plain text content"), 0o644))

	s.ClassifyAsync(id)

	content, err := s.Read(id)
	require.NoError(t, err)
	assert.Equal(t, "plain text content", string(content))
}

func TestReadMissingBlob(t *testing.T) {
	dir := t.TempDir()
	s := New(dir, silentLogger())
	defer s.Close()

	_, err := s.Read("does-not-exist")
	assert.Error(t, err)
}
