package commands

import (
	"fmt"

	"github.com/rcowham/jamvcs/internal/catalog"
	"github.com/rcowham/jamvcs/internal/localmap"
	"github.com/rcowham/jamvcs/internal/search"
)

// resolveOnePath runs a search expression through the compiler against db,
// requiring it resolve to exactly one catalog path. Every fileOpCommand and
// viewCommand argument names a single target, never a batch, so ambiguity
// or a zero-match glob is an error rather than a silent pick.
func resolveOnePath(db *catalog.Database, input string) (string, error) {
	ctx, err := search.CompileFrom(searchConfig(db), input)
	if err != nil {
		return "", err
	}
	switch len(ctx.FinalPaths) {
	case 0:
		return "", fmt.Errorf("no file matches %q", input)
	case 1:
		return ctx.FinalPaths[0], nil
	default:
		return "", fmt.Errorf("%q matches %d files, expected one", input, len(ctx.FinalPaths))
	}
}

// resolveMove resolves both halves of a move expression: the source via
// CompileFrom, the destination via CompileTo continuing from the source's
// context, mirroring from.next_with_string(to_search) in the source.
func resolveMove(db *catalog.Database, fromInput, toInput string) (string, string, error) {
	cfg := searchConfig(db)

	from, err := search.CompileFrom(cfg, fromInput)
	if err != nil {
		return "", "", err
	}
	if len(from.FinalPaths) != 1 {
		return "", "", fmt.Errorf("%q matches %d files, expected one", fromInput, len(from.FinalPaths))
	}

	to, err := search.CompileTo(cfg, from, toInput)
	if err != nil {
		return "", "", err
	}
	if len(to.FinalPaths) != 1 {
		return "", "", fmt.Errorf("%q matches %d destinations, expected one", toInput, len(to.FinalPaths))
	}
	return from.FinalPaths[0], to.FinalPaths[0], nil
}

// searchConfig builds a Config from a catalog snapshot, usable on either
// the server's locked live database or a client's synced copy -- BuildFolderMap
// needs only a *catalog.Database, never client-only state.
func searchConfig(db *catalog.Database) search.Config {
	return search.Config{FolderMap: localmap.BuildFolderMap(db), Database: db}
}
