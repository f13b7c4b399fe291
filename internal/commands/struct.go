package commands

import (
	"strings"

	"github.com/rcowham/jamvcs/internal/catalog"
	"github.com/rcowham/jamvcs/internal/localmap"
	"github.com/rcowham/jamvcs/internal/result"
	"github.com/rcowham/jamvcs/internal/transport"
)

// structCommand renders the client's view of the workspace, combining
// remote catalog state and on-disk state under a single set of env/
// switch flags. Grounded on command_show_struct.rs's
// ShowFileStructCommand; the remote half is just a resync, all the
// filtering happens client-side.
type structCommand struct{}

func (c structCommand) Remote(ctx *RemoteContext) {
	syncRemote(ctx, ctx.DB)
}

func (c structCommand) Local(ctx *LocalContext) *result.Result {
	r := result.NewResult(ctx.Debug)
	if len(ctx.Args) < 3 {
		r.Err("usage: struct <env> <switches>")
		return r
	}
	env := ctx.Args[1]
	switches := ctx.Args[2]

	db, err := syncLocal(ctx)
	if err != nil {
		r.Err("failed to sync catalog: " + err.Error())
		return r
	}

	fm := ctx.FileMap()
	var lines []string

	if strings.ContainsRune(env, localmap.EnvRemote) {
		for _, file := range db.Files() {
			if file.Orphaned() {
				continue
			}
			local, _ := fm.ByUUID(fileUUID(db, file))
			line, ok := localmap.RemoteFileLine(file, local, local != nil, ctx.MemberUUID, switches)
			if ok {
				lines = append(lines, line)
			}
		}
	}

	if strings.ContainsRune(env, localmap.EnvLocal) {
		diskPaths, walkErr := localmap.WalkLocalFiles(".", localmap.WorkspaceDir)
		if walkErr == nil {
			lines = append(lines, localmap.LocalFileLines(fm, db, diskPaths, switches)...)
		}
	}

	for _, line := range lines {
		r.Log(line)
	}
	return r
}

func fileUUID(db *catalog.Database, file *catalog.VirtualFile) string {
	uuid, _, _ := db.FileWithPath(file.Path)
	return uuid
}
