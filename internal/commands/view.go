package commands

import (
	"strconv"

	"github.com/rcowham/jamvcs/internal/catalog"
	"github.com/rcowham/jamvcs/internal/localmap"
	"github.com/rcowham/jamvcs/internal/result"
	"github.com/rcowham/jamvcs/internal/store"
	"github.com/rcowham/jamvcs/internal/transport"
)

// viewCommand downloads a file's current server-side content, grounded
// on command_view.rs: the server always resyncs first, then waits for
// the client's Ready/NotReady before streaming the blob.
type viewCommand struct{}

func (c viewCommand) Remote(ctx *RemoteContext) {
	syncRemote(ctx, ctx.DB)

	if len(ctx.Args) < 2 {
		return
	}
	rawPath := ctx.Args[1]

	ready := transport.ReadMsg[transport.ClientMessage](ctx.Conn, ctx.Logger)
	if ready.Kind != transport.CMReady {
		return
	}

	var blobID string
	ctx.DB.WithLock(func(db *catalog.Database) {
		path, err := resolveOnePath(db, rawPath)
		if err != nil {
			return
		}
		if _, f, ok := db.FileWithPath(path); ok {
			blobID = f.Real
		}
	})

	if blobID == "" {
		transport.SendMsg(ctx.Conn, transport.ServerMessage{Kind: transport.SMDeny, Deny: "File not found"}, ctx.Logger)
		return
	}

	if err := transport.SendFile(ctx.Conn, ctx.Blobs.Path(blobID), nil); err != nil {
		transport.SendMsg(ctx.Conn, transport.ServerMessage{Kind: transport.SMDeny, Deny: err.Error()}, ctx.Logger)
		return
	}
	transport.SendMsg(ctx.Conn, transport.ServerMessage{Kind: transport.SMDone}, ctx.Logger)
}

func (c viewCommand) Local(ctx *LocalContext) *result.Result {
	r := result.NewResult(ctx.Debug)

	db, err := syncLocal(ctx)
	if err != nil {
		r.Err("failed to sync catalog: " + err.Error())
		return r
	}
	if len(ctx.Args) < 2 {
		r.Err("missing search argument")
		return r
	}

	path, err := resolveOnePath(db, ctx.Args[1])
	if err != nil {
		transport.SendMsg(ctx.Conn, transport.NotReady(), ctx.Logger)
		r.Err(err.Error())
		return r
	}
	uuid, file, found := db.FileWithPath(path)
	if !found {
		transport.SendMsg(ctx.Conn, transport.NotReady(), ctx.Logger)
		r.Err("file not found: " + path)
		return r
	}

	fm := ctx.FileMap()
	localPath := path
	if local, ok := fm.ByUUID(uuid); ok && local.LocalPath != "" {
		localPath = local.LocalPath
	}

	transport.SendMsg(ctx.Conn, transport.Ready(), ctx.Logger)

	if err := transport.ReceiveFile(ctx.Conn, localPath, nil); err != nil {
		r.Err("File download failed: " + err.Error())
		return r
	}

	fm.Set(uuid, &localmap.LocalFile{
		LocalPath:    localPath,
		LocalVersion: file.Version,
		LocalDigest:  localmap.FileDigest(localPath),
	})
	if err := store.Save(ctx.Root, fm); err != nil {
		r.Warn("failed to persist local file map: " + err.Error())
	}

	r.Log("File download completed")
	r.SetMetadata("version", strconv.FormatUint(uint64(file.Version), 10))
	return r
}
