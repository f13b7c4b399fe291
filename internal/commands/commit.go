package commands

import (
	"os"
	"strconv"
	"time"

	"github.com/rcowham/jamvcs/internal/audit"
	"github.com/rcowham/jamvcs/internal/catalog"
	"github.com/rcowham/jamvcs/internal/localmap"
	"github.com/rcowham/jamvcs/internal/result"
	"github.com/rcowham/jamvcs/internal/transport"
)

const commitIdleTimeout = 60 * time.Second

// commitCommand is the long-lived, multi-file commit loop: the client
// sends Text(path) for each file it wants to upload, the server replies
// Pass/Deny per file and streams the content, until the client sends
// Done. Grounded on command_commit.rs's CommitCommand.
type commitCommand struct{}

func (c commitCommand) Remote(ctx *RemoteContext) {
	description := "Update"
	if len(ctx.Args) > 1 {
		description = ctx.Args[1]
	}

	syncRemote(ctx, ctx.DB)

	for {
		if deadline, ok := ctx.Conn.(interface{ SetReadDeadline(time.Time) error }); ok {
			_ = deadline.SetReadDeadline(time.Now().Add(commitIdleTimeout))
		}

		msg := transport.ReadMsg[transport.ClientMessage](ctx.Conn, ctx.Logger)
		// ReadMsg yields an empty Kind on EOF, a read error or the idle
		// deadline, so that ends the loop just like an explicit Done.
		if msg.Kind == "" || msg.Kind == transport.CMUnknown || msg.Kind == transport.CMDone {
			return
		}
		if msg.Kind != transport.CMText {
			continue
		}

		path := msg.Text
		if !c.canCommit(ctx, path) {
			transport.SendMsg(ctx.Conn, transport.ServerMessage{Kind: transport.SMDeny, Deny: "Lock mismatch"}, ctx.Logger)
			continue
		}

		blobID, blobPath, err := ctx.Blobs.AllocatePath()
		if err != nil {
			transport.SendMsg(ctx.Conn, transport.ServerMessage{Kind: transport.SMDeny, Deny: "Cannot allocate blob"}, ctx.Logger)
			continue
		}

		transport.SendMsg(ctx.Conn, transport.Pass(), ctx.Logger)
		if err := transport.ReceiveFile(ctx.Conn, blobPath, nil); err != nil {
			transport.SendMsg(ctx.Conn, transport.ServerMessage{Kind: transport.SMDeny, Deny: "Invalid request"}, ctx.Logger)
			continue
		}
		ctx.Blobs.ClassifyAsync(blobID)

		var commitErr error
		ctx.DB.WithLock(func(db *catalog.Database) {
			commitErr = db.Commit(path, blobID, description, ctx.MemberUUID)
		})
		if commitErr != nil {
			ctx.Logger.WithField("path", path).WithError(commitErr).Warn("commit record failed after file transfer")
			continue
		}
		markDirty(ctx)
		ctx.Logger.WithField("path", path).Info("file committed")
		if ctx.Trail != nil {
			_ = ctx.Trail.Record(audit.Committed, path, ctx.MemberUUID, description)
		}
	}
}

// canCommit reports whether ctx.MemberUUID currently holds path's lock.
func (c commitCommand) canCommit(ctx *RemoteContext, path string) bool {
	var held bool
	ctx.DB.WithLock(func(db *catalog.Database) {
		_, f, ok := db.FileWithPath(path)
		held = ok && f.HeldBy(ctx.MemberUUID)
	})
	return held
}

func (c commitCommand) Local(ctx *LocalContext) *result.Result {
	r := result.NewResult(ctx.Debug)

	db, err := syncLocal(ctx)
	if err != nil {
		r.Err("failed to sync catalog: " + err.Error())
		return r
	}

	fm := ctx.FileMap()

	var committed, failed int
	for uuid, f := range db.VirtualFiles {
		if f.Orphaned() || !f.HeldBy(ctx.MemberUUID) {
			continue
		}

		localPath := f.Path
		var localVersion uint32
		var localDigest string
		if local, ok := fm.ByUUID(uuid); ok && local.LocalPath != "" {
			localPath = local.LocalPath
			localVersion = local.LocalVersion
			localDigest = local.LocalDigest
		}

		// Eligible only if the file actually sits on disk. A never-committed
		// (version 0) file is then always eligible; any other file also
		// needs the member to be on the catalog's version and its content
		// to differ from the digest recorded in the local file map.
		if _, err := os.Stat(localPath); err != nil {
			continue
		}
		if f.Version != 0 && localVersion != f.Version {
			continue
		}
		if f.Version != 0 && localmap.FileDigest(localPath) == localDigest {
			continue
		}

		transport.SendMsg(ctx.Conn, transport.TextMsg(f.Path), ctx.Logger)
		resp := transport.ReadMsg[transport.ServerMessage](ctx.Conn, ctx.Logger)
		if resp.Kind != transport.SMPass {
			failed++
			continue
		}
		if err := transport.SendFile(ctx.Conn, localPath, nil); err != nil {
			failed++
			continue
		}
		committed++
	}

	transport.SendMsg(ctx.Conn, transport.Done(), ctx.Logger)

	switch {
	case committed == 0 && failed == 0:
		r.Err("No files committed.")
	case failed == 0:
		r.Log("Commited " + strconv.Itoa(committed) + " files")
	default:
		r.Warn("Commited " + strconv.Itoa(committed) + " files, failed " + strconv.Itoa(failed))
	}
	return r
}
