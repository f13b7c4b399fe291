package commands

import (
	"fmt"
	"os"

	"github.com/rcowham/jamvcs/internal/audit"
	"github.com/rcowham/jamvcs/internal/catalog"
	"github.com/rcowham/jamvcs/internal/localmap"
	"github.com/rcowham/jamvcs/internal/result"
	"github.com/rcowham/jamvcs/internal/store"
	"github.com/rcowham/jamvcs/internal/transport"
)

// fileOp names one of the single-file catalog mutations grouped under
// command_file.rs's FileOperationCommand.
type fileOp int

const (
	opAdd fileOp = iota
	opRemove
	opMove
	opGet
	opGetLonger
	opThrow
	opRollback
)

// fileOpCommand implements Command for every op that just needs "find
// the file, check the lock, mutate, sync" -- add/remove/move/get/
// get_longer/throw/rollback, grounded on command_file.rs's single match
// over args[1].
type fileOpCommand struct {
	op fileOp
}

func (c fileOpCommand) Remote(ctx *RemoteContext) {
	if len(ctx.Args) < 2 {
		deny(ctx, "Insufficient arguments")
		return
	}
	rawInput := ctx.Args[1]

	var (
		ok       bool
		text     string
		record   audit.Action
		detail   string
		resolved = rawInput
	)

	ctx.DB.WithLock(func(db *catalog.Database) {
		// opAdd names a path that may not exist in the catalog yet, so it
		// resolves through the compiler too (aliases and short-path tags
		// still apply) but tolerates zero matches instead of erroring.
		input, err := resolveOnePath(db, rawInput)
		if err != nil {
			if c.op != opAdd {
				return
			}
			input = rawInput
		}
		resolved = input

		switch c.op {
		case opAdd:
			if _, _, exists := db.FileWithPath(input); exists {
				return
			}
			if _, _, err := db.Add(input); err != nil {
				return
			}
			ok, text, record = true, fmt.Sprintf("Created virtual file '%s'", input), audit.Added

		case opRemove:
			if !lockAvailable(db, input, ctx.MemberUUID) {
				return
			}
			if err := db.Remove(input, ctx.MemberUUID); err != nil {
				return
			}
			ok, text, record = true, fmt.Sprintf("Removed virtual file '%s'", input), audit.Removed

		case opMove:
			if len(ctx.Args) < 3 {
				return
			}
			from, dest, err := resolveMove(db, rawInput, ctx.Args[2])
			if err != nil {
				return
			}
			input, resolved = from, from
			if !lockAvailable(db, input, ctx.MemberUUID) {
				return
			}
			if err := db.Move(input, dest, ctx.MemberUUID); err != nil {
				return
			}
			ok, text, record, detail = true, fmt.Sprintf("Moved '%s' to '%s'", input, dest), audit.Moved, dest

		case opGet, opGetLonger:
			longer := c.op == opGetLonger
			if err := db.GiveLocker(input, ctx.MemberUUID, longer, true); err != nil {
				return
			}
			action := "lock"
			if longer {
				action = "long-term lock"
			}
			ok, text, record = true, fmt.Sprintf("Acquired %s on '%s'", action, input), audit.Locked

		case opThrow:
			_, f, found := db.FileWithPath(input)
			if !found || !f.HeldBy(ctx.MemberUUID) {
				return
			}
			if err := db.ThrowLocker(input); err != nil {
				return
			}
			ok, text, record = true, fmt.Sprintf("Released lock on '%s'", input), audit.Unlocked

		case opRollback:
			if len(ctx.Args) < 3 {
				return
			}
			version := parseVersion(ctx.Args[2])
			if !lockAvailable(db, input, ctx.MemberUUID) {
				return
			}
			if err := db.Rollback(input, version, ctx.MemberUUID); err != nil {
				return
			}
			ok, text, record, detail = true, fmt.Sprintf("Rolled back '%s' to v%d", input, version), audit.RolledBack, ctx.Args[2]
		}
	})

	if !ok {
		deny(ctx, fmt.Sprintf("Failed to perform operation on '%s'", resolved))
		return
	}
	markDirty(ctx)

	transport.SendMsg(ctx.Conn, transport.ServerMessage{Kind: transport.SMText, Text: text}, ctx.Logger)
	syncRemote(ctx, ctx.DB)
	if ctx.Trail != nil {
		if err := ctx.Trail.Record(record, resolved, ctx.MemberUUID, detail); err != nil {
			ctx.Logger.WithError(err).Warn("failed to write audit record")
		}
	}
}

func (c fileOpCommand) Local(ctx *LocalContext) *result.Result {
	r := result.NewResult(ctx.Debug)
	resp := transport.ReadMsg[transport.ServerMessage](ctx.Conn, ctx.Logger)

	switch resp.Kind {
	case transport.SMText:
		r.Log(resp.Text)
		db, err := syncLocal(ctx)
		if err != nil {
			r.Warn("failed to sync catalog after command: " + err.Error())
			return r
		}
		if c.op == opAdd && len(ctx.Args) >= 2 {
			c.registerAddedFile(ctx, db, ctx.Args[1], r)
		}
	case transport.SMDeny:
		r.Err(resp.Deny)
	default:
		r.Err("No result")
	}
	return r
}

// registerAddedFile mirrors command_file.rs's post-add local handling: if
// a file already sits at the added path on disk, record it in the local
// file map immediately; otherwise tell the member where to save it.
func (c fileOpCommand) registerAddedFile(ctx *LocalContext, db *catalog.Database, rawInput string, r *result.Result) {
	input, err := resolveOnePath(db, rawInput)
	if err != nil {
		input = rawInput
	}
	uuid, file, found := db.FileWithPath(input)
	if !found {
		return
	}
	if _, err := os.Stat(input); err != nil {
		r.Log("Virtual file created but missing locally.")
		r.Log("Save completed file to: " + input)
		return
	}
	fm := ctx.FileMap()
	fm.Set(uuid, &localmap.LocalFile{
		LocalPath:    input,
		LocalVersion: file.Version,
		LocalDigest:  localmap.FileDigest(input),
	})
	if err := store.Save(ctx.Root, fm); err != nil {
		r.Warn("failed to persist local file map: " + err.Error())
	}
}

func lockAvailable(db *catalog.Database, path, callerUUID string) bool {
	_, f, ok := db.FileWithPath(path)
	if !ok {
		return false
	}
	return !f.State.Locked || f.State.HolderUUID == callerUUID
}

func parseVersion(s string) uint32 {
	var v uint32
	_, _ = fmt.Sscanf(s, "%d", &v)
	return v
}

func deny(ctx *RemoteContext, reason string) {
	transport.SendMsg(ctx.Conn, transport.ServerMessage{Kind: transport.SMDeny, Deny: reason}, ctx.Logger)
}
