package commands

import (
	"strconv"

	"github.com/rcowham/jamvcs/internal/localmap"
	"github.com/rcowham/jamvcs/internal/result"
	"github.com/rcowham/jamvcs/internal/store"
)

// updateCommand performs a full catalog resync: the client replaces its
// cached catalog wholesale, rebuilds its folder index from it, and
// reconciles any tracked file whose local path has drifted from the
// catalog's current path for the same uuid. Grounded on
// command_update.rs's UpdateCommand -- on the wire it is the same resync
// every mutating command already triggers, just exposed as its own
// no-argument command for a client that wants to catch up without
// running a mutation.
type updateCommand struct{}

func (c updateCommand) Remote(ctx *RemoteContext) {
	syncRemote(ctx, ctx.DB)
}

func (c updateCommand) Local(ctx *LocalContext) *result.Result {
	r := result.NewResult(ctx.Debug)

	before := map[string]string{}
	for u, lf := range ctx.FileMap().FilePaths {
		before[u] = lf.LocalPath
	}

	db, err := syncLocal(ctx)
	if err != nil {
		r.Err("failed to sync catalog: " + err.Error())
		return r
	}

	folders := localmap.BuildFolderMap(db)
	if err := store.Save(ctx.Root, folders); err != nil {
		r.Warn("failed to persist folder index: " + err.Error())
	}

	// syncLocal already reconciled local paths as a side effect of the
	// sync above: count the files it moved by comparing against the map
	// from before the sync, then re-run Reconcile to retry and report any
	// file it could not move.
	fm := ctx.FileMap()
	moved := 0
	for u, lf := range fm.FilePaths {
		if old, ok := before[u]; ok && old != lf.LocalPath {
			moved++
		}
	}
	retried, errs := localmap.Reconcile(ctx.Root.Dir, fm, db)
	if retried > 0 {
		moved += retried
		if err := store.Save(ctx.Root, fm); err != nil {
			r.Warn("failed to persist local file map: " + err.Error())
		}
	}
	for _, err := range errs {
		r.Warn("reconcile: " + err.Error())
	}

	r.Log("Catalog updated (" + strconv.Itoa(len(db.VirtualUUIDs)) + " files, " + strconv.Itoa(moved) + " reconciled)")
	return r
}
