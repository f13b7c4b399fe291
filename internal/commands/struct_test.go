package commands

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcowham/jamvcs/internal/catalog"
	"github.com/rcowham/jamvcs/internal/localmap"
	"github.com/rcowham/jamvcs/internal/store"
	"github.com/rcowham/jamvcs/internal/transport"
)

func TestStructRemoteFileListsRemoteOnly(t *testing.T) {
	dir := t.TempDir()
	db := catalog.NewDatabase()
	_, _, err := db.Add("art/level.png")
	require.NoError(t, err)

	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	ctx := &LocalContext{
		Conn: client, Args: []string{"struct", string(localmap.EnvRemote), string(localmap.SwitchZeroVersion)},
		MemberUUID: "m1", Root: store.NewRoot(dir), Logger: silentLogger(),
	}

	go func() {
		snap := db.Snapshot()
		transport.SendMsg(server, transport.Sync(), silentLogger())
		_ = transport.SendLargeMsg(server, snap, nil)
	}()

	res := structCommand{}.Local(ctx)
	require.NotEmpty(t, res.InfoMsg)
	assert.Contains(t, res.InfoMsg[0], "art/level.png")
}

func TestStructRequiresEnvAndSwitches(t *testing.T) {
	ctx := &LocalContext{Args: []string{"struct"}, Logger: silentLogger()}
	res := structCommand{}.Local(ctx)
	assert.NotEmpty(t, res.ErrMsg)
}
