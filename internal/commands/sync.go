package commands

import (
	"github.com/pkg/errors"

	"github.com/rcowham/jamvcs/internal/catalog"
	"github.com/rcowham/jamvcs/internal/localmap"
	"github.com/rcowham/jamvcs/internal/store"
	"github.com/rcowham/jamvcs/internal/transport"
)

// syncRemote sends an SMSync frame followed by a YAML snapshot of db.
// Every remote handler that mutates the catalog calls this right after,
// mirroring database_sync.rs's sync_remote: clients only ever learn the
// new state through a full resync, never a diff.
func syncRemote(ctx *RemoteContext, db *catalog.Database) {
	transport.SendMsg(ctx.Conn, transport.ServerMessage{Kind: transport.SMSync}, ctx.Logger)
	if err := transport.SendLargeMsg(ctx.Conn, db.Snapshot(), nil); err != nil {
		ctx.Logger.WithError(err).Error("failed to sync catalog to client")
	}
}

// syncLocal is the client-side counterpart: every syncRemote call starts
// with an SMSync control frame, so syncLocal consumes that itself before
// reading the large catalog payload that follows it. Callers only need to
// have already read whatever reply (SMText/SMDeny/...) preceded the sync.
// Every sync also reconciles the local file map against the freshly
// synced catalog, so a file another member moved or committed under a new
// path follows on disk here too, no matter which command triggered the
// sync.
func syncLocal(ctx *LocalContext) (*catalog.Database, error) {
	sync := transport.ReadMsg[transport.ServerMessage](ctx.Conn, ctx.Logger)
	if sync.Kind != transport.SMSync {
		return nil, errors.Errorf("expected sync frame, got %q", sync.Kind)
	}

	db := catalog.NewDatabase()
	if err := transport.ReadLargeMsg(ctx.Conn, db, nil); err != nil {
		return nil, err
	}
	db.Rebuild()

	fm := ctx.FileMap()
	if moved, errs := localmap.Reconcile(ctx.Root.Dir, fm, db); moved > 0 || len(errs) > 0 {
		if err := store.Save(ctx.Root, fm); err != nil {
			ctx.Logger.WithError(err).Warn("failed to persist reconciled local file map")
		}
		for _, err := range errs {
			ctx.Logger.WithError(err).Warn("failed to reconcile local file")
		}
	}

	return db, nil
}
