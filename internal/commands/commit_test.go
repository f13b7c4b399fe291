package commands

import (
	"bytes"
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcowham/jamvcs/internal/audit"
	"github.com/rcowham/jamvcs/internal/blobstore"
	"github.com/rcowham/jamvcs/internal/catalog"
	"github.com/rcowham/jamvcs/internal/localmap"
	"github.com/rcowham/jamvcs/internal/store"
	"github.com/rcowham/jamvcs/internal/transport"
)

func TestCommitSingleFile(t *testing.T) {
	dir := t.TempDir()
	db := catalog.NewDatabase()
	_, _, err := db.Add("art/level.png")
	require.NoError(t, err)
	require.NoError(t, db.GiveLocker("art/level.png", "m1", false, true))

	srcPath := filepath.Join(dir, "level.png")
	require.NoError(t, os.WriteFile(srcPath, []byte("pixels"), 0o644))

	blobs := blobstore.New(filepath.Join(dir, "blobs"), silentLogger())
	defer blobs.Close()

	var buf bytes.Buffer
	trail := audit.NewTrail(&buf)

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		commitCommand{}.Remote(&RemoteContext{
			Conn: server, Args: []string{"commit", "checkpoint"},
			MemberUUID: "m1", DB: db, Blobs: blobs, Trail: trail, Logger: silentLogger(),
		})
		close(done)
	}()

	sync := transport.ReadMsg[transport.ServerMessage](client, silentLogger())
	require.Equal(t, transport.SMSync, sync.Kind)
	var snap catalog.Database
	require.NoError(t, transport.ReadLargeMsg(client, &snap, nil))

	transport.SendMsg(client, transport.TextMsg("art/level.png"), silentLogger())
	pass := transport.ReadMsg[transport.ServerMessage](client, silentLogger())
	assert.Equal(t, transport.SMPass, pass.Kind)

	require.NoError(t, transport.SendFile(client, srcPath, nil))

	transport.SendMsg(client, transport.Done(), silentLogger())
	<-done

	_, f, ok := db.FileWithPath("art/level.png")
	require.True(t, ok)
	assert.Equal(t, uint32(1), f.Version)
	assert.Contains(t, buf.String(), "@committed@")
}

func TestCommitDeniesWithoutLock(t *testing.T) {
	db := catalog.NewDatabase()
	_, _, err := db.Add("art/level.png")
	require.NoError(t, err)

	blobs := blobstore.New(t.TempDir(), silentLogger())
	defer blobs.Close()

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go commitCommand{}.Remote(&RemoteContext{
		Conn: server, Args: []string{"commit"}, MemberUUID: "m1", DB: db, Blobs: blobs, Logger: silentLogger(),
	})

	sync := transport.ReadMsg[transport.ServerMessage](client, silentLogger())
	require.Equal(t, transport.SMSync, sync.Kind)
	var snap catalog.Database
	require.NoError(t, transport.ReadLargeMsg(client, &snap, nil))

	transport.SendMsg(client, transport.TextMsg("art/level.png"), silentLogger())
	resp := transport.ReadMsg[transport.ServerMessage](client, silentLogger())
	assert.Equal(t, transport.SMDeny, resp.Kind)

	transport.SendMsg(client, transport.Done(), silentLogger())
}

func TestCommitLocalSendsHeldFilesOnly(t *testing.T) {
	dir := t.TempDir()
	db := catalog.NewDatabase()
	_, _, err := db.Add("level.png")
	require.NoError(t, err)
	require.NoError(t, db.GiveLocker("level.png", "m1", false, true))
	_, _, err = db.Add("other.png")
	require.NoError(t, err)

	srcPath := filepath.Join(dir, "level.png")
	require.NoError(t, os.WriteFile(srcPath, []byte("pixels"), 0o644))

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	ctx := &LocalContext{
		Conn: client, Args: []string{"commit"}, MemberUUID: "m1",
		Root: store.NewRoot(dir), Logger: silentLogger(),
	}

	go func() {
		sync := db.Snapshot()
		transport.SendMsg(server, transport.Sync(), silentLogger())
		_ = transport.SendLargeMsg(server, sync, nil)

		msg := transport.ReadMsg[transport.ClientMessage](server, silentLogger())
		assert.Equal(t, "level.png", msg.Text)
		transport.SendMsg(server, transport.Pass(), silentLogger())
		_ = transport.ReceiveFile(server, filepath.Join(dir, "received.png"), nil)

		done := transport.ReadMsg[transport.ClientMessage](server, silentLogger())
		assert.Equal(t, transport.CMDone, done.Kind)
	}()

	// register the local path for the held file so commitCommand.Local
	// can find something to send. srcPath resolves under Root to the same
	// relative name as the catalog path, so the sync reconciliation pass
	// (which renames on drift) leaves it untouched.
	uuid, _, _ := db.FileWithPath("level.png")
	fm := localmap.NewFileMap()
	fm.Set(uuid, &localmap.LocalFile{LocalPath: srcPath})
	require.NoError(t, store.Save(ctx.Root, fm))

	r := commitCommand{}.Local(ctx)
	assert.NotEmpty(t, r.InfoMsg)
}
