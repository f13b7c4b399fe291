package commands

import (
	"bytes"
	"net"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcowham/jamvcs/internal/audit"
	"github.com/rcowham/jamvcs/internal/catalog"
	"github.com/rcowham/jamvcs/internal/transport"
)

func silentLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func TestFileOpAddRemote(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	db := catalog.NewDatabase()
	var buf bytes.Buffer
	trail := audit.NewTrail(&buf)

	ctx := &RemoteContext{
		Conn:       server,
		Args:       []string{"add", "art/level.png"},
		MemberUUID: "member-1",
		DB:         db,
		Trail:      trail,
		Logger:     silentLogger(),
	}

	done := make(chan struct{})
	go func() {
		fileOpCommand{op: opAdd}.Remote(ctx)
		close(done)
	}()

	resp := transport.ReadMsg[transport.ServerMessage](client, silentLogger())
	assert.Equal(t, transport.SMText, resp.Kind)

	sync := transport.ReadMsg[transport.ServerMessage](client, silentLogger())
	assert.Equal(t, transport.SMSync, sync.Kind)

	var snap catalog.Database
	require.NoError(t, transport.ReadLargeMsg(client, &snap, nil))
	snap.Rebuild()
	_, _, ok := snap.FileWithPath("art/level.png")
	assert.True(t, ok)

	<-done
	assert.Contains(t, buf.String(), "@added@")
}

func TestFileOpAddAlreadyExistsDenies(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	db := catalog.NewDatabase()
	_, _, err := db.Add("art/level.png")
	require.NoError(t, err)

	ctx := &RemoteContext{
		Conn:       server,
		Args:       []string{"add", "art/level.png"},
		MemberUUID: "member-1",
		DB:         db,
		Logger:     silentLogger(),
	}

	go fileOpCommand{op: opAdd}.Remote(ctx)

	resp := transport.ReadMsg[transport.ServerMessage](client, silentLogger())
	assert.Equal(t, transport.SMDeny, resp.Kind)
}

func TestFileOpGetThenThrow(t *testing.T) {
	db := catalog.NewDatabase()
	_, _, err := db.Add("art/level.png")
	require.NoError(t, err)

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()
	go func() {
		fileOpCommand{op: opGet}.Remote(&RemoteContext{
			Conn: server, Args: []string{"get", "art/level.png"}, MemberUUID: "m1", DB: db, Logger: silentLogger(),
		})
	}()
	resp := transport.ReadMsg[transport.ServerMessage](client, silentLogger())
	assert.Equal(t, transport.SMText, resp.Kind)
	sync := transport.ReadMsg[transport.ServerMessage](client, silentLogger())
	require.Equal(t, transport.SMSync, sync.Kind)
	var snap catalog.Database
	require.NoError(t, transport.ReadLargeMsg(client, &snap, nil))

	_, f, _ := db.FileWithPath("art/level.png")
	assert.True(t, f.HeldBy("m1"))

	server2, client2 := net.Pipe()
	defer server2.Close()
	defer client2.Close()
	go func() {
		fileOpCommand{op: opThrow}.Remote(&RemoteContext{
			Conn: server2, Args: []string{"throw", "art/level.png"}, MemberUUID: "m1", DB: db, Logger: silentLogger(),
		})
	}()
	resp2 := transport.ReadMsg[transport.ServerMessage](client2, silentLogger())
	assert.Equal(t, transport.SMText, resp2.Kind)
	sync2 := transport.ReadMsg[transport.ServerMessage](client2, silentLogger())
	require.Equal(t, transport.SMSync, sync2.Kind)
	var snap2 catalog.Database
	require.NoError(t, transport.ReadLargeMsg(client2, &snap2, nil))

	assert.True(t, f.State.Available())
}

func TestFileOpMoveRequiresLockOwnership(t *testing.T) {
	db := catalog.NewDatabase()
	_, _, err := db.Add("a.png")
	require.NoError(t, err)
	require.NoError(t, db.GiveLocker("a.png", "other", false, true))

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()
	go fileOpCommand{op: opMove}.Remote(&RemoteContext{
		Conn: server, Args: []string{"move", "a.png", "b.png"}, MemberUUID: "me", DB: db, Logger: silentLogger(),
	})

	resp := transport.ReadMsg[transport.ServerMessage](client, silentLogger())
	assert.Equal(t, transport.SMDeny, resp.Kind)
}
