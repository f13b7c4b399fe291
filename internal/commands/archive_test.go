package commands

import (
	"net"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcowham/jamvcs/internal/catalog"
	"github.com/rcowham/jamvcs/internal/store"
	"github.com/rcowham/jamvcs/internal/workspace"
)

func TestArchiveLeaderSucceeds(t *testing.T) {
	dir := t.TempDir()
	db := catalog.NewDatabase()
	_, _, err := db.Add("art/level.png")
	require.NoError(t, err)

	cmd := NewArchiveCommand(store.NewRoot(dir))
	leader := workspace.NewMember("lead")
	leader.AddDuty(workspace.Leader)

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	done := make(chan struct{})
	go func() {
		cmd.Remote(&RemoteContext{Conn: server, Member: leader, MemberUUID: "lead-uuid", DB: db, Logger: silentLogger()})
		close(done)
	}()

	res := cmd.Local(&LocalContext{Conn: client, Logger: silentLogger()})
	<-done

	assert.Empty(t, res.ErrMsg)
	entries, err := os.ReadDir(filepath.Join(dir, "archive"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "history_0.yaml", entries[0].Name())
}

func TestArchiveNonLeaderDenied(t *testing.T) {
	dir := t.TempDir()
	db := catalog.NewDatabase()

	cmd := NewArchiveCommand(store.NewRoot(dir))
	developer := workspace.NewMember("dev")

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go cmd.Remote(&RemoteContext{Conn: server, Member: developer, MemberUUID: "dev-uuid", DB: db, Logger: silentLogger()})

	res := cmd.Local(&LocalContext{Conn: client, Logger: silentLogger()})
	assert.NotEmpty(t, res.ErrMsg)
}
