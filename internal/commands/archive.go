package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rcowham/jamvcs/internal/audit"
	"github.com/rcowham/jamvcs/internal/catalog"
	"github.com/rcowham/jamvcs/internal/identity"
	"github.com/rcowham/jamvcs/internal/result"
	"github.com/rcowham/jamvcs/internal/store"
	"github.com/rcowham/jamvcs/internal/workspace"
)

// archiveCommand writes numbered history_N.yaml snapshots under the
// workspace root, set by the server entrypoint at startup.
type archiveCommand struct {
	Dir store.Root
}

// NewArchiveCommand builds the archive command bound to a workspace
// root -- history_N.yaml files live under root.Dir/archive.
func NewArchiveCommand(r store.Root) Command {
	return archiveCommand{Dir: r}
}

func (c archiveCommand) Local(ctx *LocalContext) *result.Result {
	r := result.NewResult(ctx.Debug)
	if !identity.VerifyClient(ctx.Conn, ctx.Logger) {
		r.Err("You are not the leader and cannot execute this command.")
		return r
	}
	r.Log("Archive Success.")
	return r
}

func (c archiveCommand) Remote(ctx *RemoteContext) {
	if !identity.VerifyDuty(ctx.Conn, ctx.Member, workspace.Leader, ctx.Logger) {
		return
	}

	path := c.nextArchivePath()

	// Snapshot() takes its own lock, so it cannot be called from inside
	// WithLock: the history save and the trim happen back to back under
	// one critical section instead, built directly off db's live maps.
	ctx.DB.WithLock(func(db *catalog.Database) {
		if err := store.SaveAt(path, db); err != nil {
			ctx.Logger.WithError(err).Error("failed to write archive snapshot")
			return
		}
		db.CleanHistories()
	})
	markDirty(ctx)

	if ctx.Trail != nil {
		_ = ctx.Trail.Record(audit.Archived, "", ctx.MemberUUID, path)
	}
}

// nextArchivePath finds the first unused history_N.yaml filename under
// the archive directory, matching command_archive.rs's loop.
func (c archiveCommand) nextArchivePath() string {
	dir := c.Dir.Path("archive")
	for i := 0; ; i++ {
		candidate := filepath.Join(dir, fmt.Sprintf("history_%d.yaml", i))
		if _, err := os.Stat(candidate); err != nil {
			return candidate
		}
	}
}
