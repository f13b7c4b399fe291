package transport

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func silentLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestSendReadMsgRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	logger := silentLogger()
	want := CommandMsg([]string{"view", "docs/a.txt"})

	done := make(chan ClientMessage, 1)
	go func() {
		done <- ReadMsg[ClientMessage](server, logger)
	}()

	SendMsg(client, want, logger)
	got := <-done
	assert.Equal(t, want, got)
}

func TestReadMsgDefaultsOnEOF(t *testing.T) {
	client, server := net.Pipe()
	logger := silentLogger()

	done := make(chan ClientMessage, 1)
	go func() {
		done <- ReadMsg[ClientMessage](server, logger)
	}()
	client.Close()

	got := <-done
	assert.Equal(t, ClientMessage{}, got)
}

func TestLargeTextRoundTrip(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	text := "hello large message"
	errCh := make(chan error, 1)
	go func() {
		errCh <- SendLargeText(client, text, nil)
	}()

	got, err := ReadLargeText(server, nil)
	require.NoError(t, err)
	require.NoError(t, <-errCh)
	assert.Equal(t, text, got)
}

func TestLargeTextRejectsOversize(t *testing.T) {
	// The size check happens before any byte is written, so a nil writer
	// is safe here: Write is never reached.
	err := SendLargeText(nil, string(make([]byte, maxTextSize+1)), nil)
	assert.Error(t, err)
}

func TestSendReceiveFileRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "out", "dst.bin")

	content := make([]byte, fileChunkSize*3+17)
	for i := range content {
		content[i] = byte(i % 251)
	}
	require.NoError(t, os.WriteFile(src, content, 0o644))

	client, server := net.Pipe()

	errCh := make(chan error, 1)
	go func() {
		errCh <- SendFile(client, src, nil)
	}()

	err := ReceiveFile(server, dst, nil)
	require.NoError(t, err)
	require.NoError(t, <-errCh)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestSendFileRejectsEmpty(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "empty.bin")
	require.NoError(t, os.WriteFile(src, nil, 0o644))

	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	err := SendFile(client, src, nil)
	assert.Error(t, err)
}
