// Package search implements the client's search-expression compiler: the
// small pipeline that turns a raw argument like "./art/*.png/" into one or
// more catalog paths, resolving parameter aliases, short-path tags,
// context-relative prefixes and glob-style multi-file matches along the
// way. Grounded on param_comp/comp.rs and param_comp/data.rs.
package search

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rcowham/jamvcs/internal/catalog"
	"github.com/rcowham/jamvcs/internal/localmap"
	"github.com/rcowham/jamvcs/internal/textutil"
)

// ParameterLookup resolves a "xxx?" alias to its stored value. The spec
// excludes parameter key/value storage as a feature surface, but the
// compiler still needs to consume whatever backs it; callers with no
// parameter store wire in a lookup that always returns (\"\", false).
type ParameterLookup func(name string) (string, bool)

// Config bundles the read-only inputs one compile pass needs.
type Config struct {
	AllowMultiPath bool
	FolderMap      *localmap.FolderMap
	Database       *catalog.Database
	Parameters     ParameterLookup
}

// Context is the compiler's working state, threaded through each stage.
type Context struct {
	Input      string
	Ctx        string
	FinalPaths []string
}

// NewContext starts a compile from a raw argument.
func NewContext(input string) Context {
	return Context{Input: input}
}

// Error reports a compile-stage failure (invalid alias, bad regex,
// multi-path disallowed, unknown short path).
type Error struct {
	Msg string
}

func (e *Error) Error() string { return e.Msg }

func errf(format string, args ...interface{}) error {
	return &Error{Msg: fmt.Sprintf(format, args...)}
}

// CompileFrom runs the FROM-side pipeline: alias -> short-path -> glob ->
// final. Used when resolving a search expression to an existing catalog
// path (the source of a move, the target of get/rollback/commit, etc).
func CompileFrom(cfg Config, input string) (Context, error) {
	ctx := NewContext(input)

	ctx, err := compAliasParamTag(cfg, ctx)
	if err != nil {
		return ctx, err
	}
	ctx, err = compShortPathTag(cfg, ctx)
	if err != nil {
		return ctx, err
	}
	ctx, err = compMultiFileRegexTag(cfg, ctx)
	if err != nil {
		return ctx, err
	}
	return compFinal(ctx), nil
}

// CompileTo runs the TO-side pipeline: context-relative -> multi-result
// extraction -> final. Used when resolving a search expression as the
// destination of a move, continuing from the FROM side's context and
// final paths (mirroring from.next_with_string(to_search) in the source).
func CompileTo(cfg Config, from Context, toInput string) (Context, error) {
	ctx := from
	ctx.Input = toInput

	ctx, err := compContextPathTag(ctx)
	if err != nil {
		return ctx, err
	}
	ctx, err = compExtractMultiResults(cfg, ctx)
	if err != nil {
		return ctx, err
	}
	return compFinal(ctx), nil
}

// compFinal falls back to treating the input itself as the sole result
// when no stage produced any final paths.
func compFinal(ctx Context) Context {
	if len(ctx.FinalPaths) == 0 {
		return Context{
			Ctx:        dirPrefix(ctx.Input),
			FinalPaths: []string{ctx.Input},
		}
	}
	return ctx
}

// compAliasParamTag resolves a trailing "?" as a parameter alias.
func compAliasParamTag(cfg Config, ctx Context) (Context, error) {
	if !strings.HasSuffix(ctx.Input, "?") {
		return ctx, nil
	}
	name := strings.TrimSuffix(ctx.Input, "?")
	if cfg.Parameters == nil {
		return ctx, errf("Parameter %q not found", name)
	}
	value, ok := cfg.Parameters(name)
	if !ok {
		return ctx, errf("Parameter %q not found", name)
	}
	ctx.Input = value
	return ctx, nil
}

// compShortPathTag resolves a leading ":" as a FolderMap short-path tag.
func compShortPathTag(cfg Config, ctx Context) (Context, error) {
	if !strings.HasPrefix(ctx.Input, ":") {
		return ctx, nil
	}
	name := strings.TrimPrefix(ctx.Input, ":")
	full, ok := cfg.FolderMap.ShortFileMap[name]
	if !ok {
		return ctx, errf("Incorrect short path.")
	}
	ctx.Input = full
	ctx.Ctx = dirPrefix(full)
	ctx.FinalPaths = []string{full}
	return ctx, nil
}

// compMultiFileRegexTag treats the last path segment as a regex when it
// contains "*", matching against files in the current context directory.
func compMultiFileRegexTag(cfg Config, ctx Context) (Context, error) {
	segments := strings.Split(ctx.Input, "/")
	regexStr := segments[len(segments)-1]
	if !strings.Contains(regexStr, "*") {
		return ctx, nil
	}

	re, err := regexp.Compile(regexStr)
	if err != nil {
		return ctx, errf("Failed to parse the regular expression %q.", regexStr)
	}

	ctx.Ctx = dirPrefix(ctx.Input)
	if !cfg.AllowMultiPath {
		return ctx, errf("Multiple paths not allowed.")
	}

	ctx.FinalPaths = nil
	for _, file := range filesInDir(cfg.Database, ctx.Ctx) {
		name := file.Path
		if idx := strings.LastIndexByte(name, '/'); idx >= 0 {
			name = name[idx+1:]
		}
		if re.MatchString(name) {
			ctx.FinalPaths = append(ctx.FinalPaths, file.Path)
		}
	}
	return ctx, nil
}

// compContextPathTag expands a leading "./" into the current context
// directory.
func compContextPathTag(ctx Context) (Context, error) {
	if !strings.HasPrefix(ctx.Input, "./") {
		return ctx, nil
	}
	rest := strings.TrimPrefix(ctx.Input, "./")
	full := ctx.Ctx + rest
	ctx.Input = full
	ctx.Ctx = dirPrefix(full)
	return ctx, nil
}

// compExtractMultiResults materialises one TO path per FROM result when
// the input names a directory (trailing "/"), reparenting each result's
// relative tail under the new directory.
func compExtractMultiResults(cfg Config, ctx Context) (Context, error) {
	if !strings.HasSuffix(ctx.Input, "/") {
		ctx.FinalPaths = nil
		return ctx, nil
	}
	if !cfg.AllowMultiPath {
		return ctx, nil
	}

	prefix := dirPrefix(ctx.Ctx)
	var output []string
	for _, finalPath := range ctx.FinalPaths {
		rel := strings.TrimPrefix(finalPath, prefix)
		if rel == finalPath && prefix != "" {
			continue
		}
		output = append(output, ctx.Input+rel)
	}
	ctx.FinalPaths = output
	ctx.Ctx = dirPrefix(ctx.Input)
	return ctx, nil
}

func dirPrefix(path string) string {
	if idx := strings.LastIndexByte(path, '/'); idx >= 0 {
		return path[:idx+1]
	}
	return ""
}

func filesInDir(db *catalog.Database, dir string) []*catalog.VirtualFile {
	dir = textutil.ProcessPathText(dir)
	prefix := ""
	if strings.TrimSpace(dir) != "" {
		prefix = dir + "/"
	}
	var result []*catalog.VirtualFile
	for _, file := range db.Files() {
		if !strings.HasPrefix(file.Path, prefix) {
			continue
		}
		if strings.Contains(strings.TrimPrefix(file.Path, prefix), "/") {
			continue
		}
		result = append(result, file)
	}
	return result
}
