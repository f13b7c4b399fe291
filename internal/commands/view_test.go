package commands

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcowham/jamvcs/internal/blobstore"
	"github.com/rcowham/jamvcs/internal/catalog"
	"github.com/rcowham/jamvcs/internal/store"
	"github.com/rcowham/jamvcs/internal/transport"
)

func TestViewRoundTrip(t *testing.T) {
	dir := t.TempDir()
	db := catalog.NewDatabase()
	_, _, err := db.Add("art/level.png")
	require.NoError(t, err)
	require.NoError(t, db.Commit("art/level.png", "blob-1", "first", "m1"))

	blobs := blobstore.New(filepath.Join(dir, "blobs"), silentLogger())
	defer blobs.Close()
	require.NoError(t, os.MkdirAll(blobs.Dir, 0o755))
	require.NoError(t, os.WriteFile(blobs.Path("blob-1"), []byte("pixels"), 0o644))

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		viewCommand{}.Remote(&RemoteContext{
			Conn: server, Args: []string{"view", "art/level.png"}, MemberUUID: "m1",
			DB: db, Blobs: blobs, Logger: silentLogger(),
		})
		close(done)
	}()

	sync := transport.ReadMsg[transport.ServerMessage](client, silentLogger())
	require.Equal(t, transport.SMSync, sync.Kind)
	var snap catalog.Database
	require.NoError(t, transport.ReadLargeMsg(client, &snap, nil))

	transport.SendMsg(client, transport.Ready(), silentLogger())

	destPath := filepath.Join(dir, "downloaded.png")
	require.NoError(t, transport.ReceiveFile(client, destPath, nil))

	doneResp := transport.ReadMsg[transport.ServerMessage](client, silentLogger())
	assert.Equal(t, transport.SMDone, doneResp.Kind)
	<-done

	content, err := os.ReadFile(destPath)
	require.NoError(t, err)
	assert.Equal(t, "pixels", string(content))
}

func TestViewLocalRegistersFileMap(t *testing.T) {
	dir := t.TempDir()
	db := catalog.NewDatabase()
	_, _, err := db.Add("art/level.png")
	require.NoError(t, err)
	require.NoError(t, db.Commit("art/level.png", "blob-1", "first", "m1"))

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	ctx := &LocalContext{
		Conn: client, Args: []string{"view", "art/level.png"}, MemberUUID: "m1",
		Root: store.NewRoot(dir), Logger: silentLogger(),
	}

	require.NoError(t, os.WriteFile(filepath.Join(dir, "serverside.png"), []byte("pixels"), 0o644))

	go func() {
		snap := db.Snapshot()
		transport.SendMsg(server, transport.Sync(), silentLogger())
		_ = transport.SendLargeMsg(server, snap, nil)

		ready := transport.ReadMsg[transport.ClientMessage](server, silentLogger())
		assert.Equal(t, transport.CMReady, ready.Kind)
		_ = transport.SendFile(server, filepath.Join(dir, "serverside.png"), nil)
	}()

	res := viewCommand{}.Local(ctx)
	assert.Empty(t, res.ErrMsg)
	assert.Equal(t, "1", res.Metadata["version"])
}
