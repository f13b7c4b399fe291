// Package commands implements the dispatch registry: one entry per
// command name, each able to run the client-side half (compile a search
// expression, drive the wire protocol) or the server-side half (mutate
// the catalog under lock, reply). Grounded on jam_command.rs's
// CommandRegistry/Command trait and the individual command_*.rs files
// under cli/src/service/commands.
package commands

import (
	"net"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/rcowham/jamvcs/internal/audit"
	"github.com/rcowham/jamvcs/internal/blobstore"
	"github.com/rcowham/jamvcs/internal/catalog"
	"github.com/rcowham/jamvcs/internal/localmap"
	"github.com/rcowham/jamvcs/internal/result"
	"github.com/rcowham/jamvcs/internal/store"
	"github.com/rcowham/jamvcs/internal/workspace"
)

// RemoteContext bundles what a server-side command handler needs: the
// connection, the already-tokenized argv, the caller's identity, and the
// shared server state. DB mutations happen inside DB.WithLock, called by
// the handler itself so the critical section is no bigger than it needs
// to be.
type RemoteContext struct {
	Conn       net.Conn
	Args       []string
	MemberUUID string
	Member     *workspace.Member
	DB         *catalog.Database
	Blobs      *blobstore.Store
	Trail      *audit.Trail
	Logger     *logrus.Logger
	// Dirty carries a catalog-mutated signal to the persister task. It is
	// shared by every connection's RemoteContext, so a send only needs to
	// wake whichever persister is listening -- markDirty never blocks.
	Dirty chan<- struct{}
}

// markDirty signals the persister after a command mutates the catalog,
// per the dispatch contract that a mutation is persisted once the command
// returns. The channel is capacity 1 and the send is non-blocking: a
// pending signal already covers whatever mutation is about to be added.
func markDirty(ctx *RemoteContext) {
	if ctx.Dirty == nil {
		return
	}
	select {
	case ctx.Dirty <- struct{}{}:
	default:
	}
}

// LocalContext bundles what a client-side command handler needs. Root
// is the workspace directory the persisted local file map and folder
// map live under; handlers load it on demand via FileMap() rather than
// every caller threading its own copy through.
type LocalContext struct {
	Conn       net.Conn
	Args       []string
	MemberUUID string
	Debug      bool
	Root       store.Root
	Logger     *logrus.Logger
}

// FileMap loads the client's persisted local file map from Root,
// defaulting to an empty map the first time a workspace is used.
func (c *LocalContext) FileMap() *localmap.FileMap {
	fm := store.Load(c.Root, localmap.NewFileMap())
	fm.Rebuild()
	return fm
}

// Command is one dispatchable operation, split into its client and
// server halves exactly as jam_command.rs's Command trait does.
type Command interface {
	Local(ctx *LocalContext) *result.Result
	Remote(ctx *RemoteContext)
}

// Registry maps a lowercased command name to its implementation.
type Registry map[string]Command

// NewRegistry returns the full set of commands this server/client pair
// supports. workspaceRoot backs the archive command's snapshot directory.
func NewRegistry(workspaceRoot store.Root) Registry {
	return Registry{
		"add":        fileOpCommand{op: opAdd},
		"remove":     fileOpCommand{op: opRemove},
		"move":       fileOpCommand{op: opMove},
		"get":        fileOpCommand{op: opGet},
		"get_longer": fileOpCommand{op: opGetLonger},
		"throw":      fileOpCommand{op: opThrow},
		"rollback":   fileOpCommand{op: opRollback},
		"commit":     commitCommand{},
		"view":       viewCommand{},
		"update":     updateCommand{},
		"struct":     structCommand{},
		"archive":    NewArchiveCommand(workspaceRoot),
	}
}

// Dispatch runs args[0]'s remote handler, matched after trimming and
// lowercasing, or denies an unknown command.
func (r Registry) Dispatch(ctx *RemoteContext) {
	if len(ctx.Args) == 0 {
		return
	}
	cmd, ok := r[strings.ToLower(strings.TrimSpace(ctx.Args[0]))]
	if !ok {
		ctx.Logger.WithField("command", ctx.Args[0]).Warn("unknown command")
		deny(ctx, "Unknown command")
		return
	}
	cmd.Remote(ctx)
}
