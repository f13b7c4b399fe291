// Package result implements the per-command result envelope: info/warn/err
// message streams, a metadata map, and a terminal state used both for
// human-readable CLI output and machine-parseable debug output.
package result

import (
	"encoding/json"
	"fmt"

	"github.com/rcowham/jamvcs/internal/textutil"
)

// State is the envelope's terminal classification.
type State string

const (
	Query   State = "Query"
	Fail    State = "Fail"
	Success State = "Success"
)

// QueryFormat renders one info line given the raw text and the number of
// remaining lines still to be rendered (0 on the last line).
type QueryFormat func(raw string, remaining int) string

// LineByLineCompressed is the default Query formatter: one line per
// message, text passed through unchanged, no trailing newline on the
// last line.
func LineByLineCompressed(raw string, remaining int) string {
	if remaining == 0 {
		return raw
	}
	return raw + "\n"
}

// LineByLine renders raw verbatim, one per line.
func LineByLine(raw string, remaining int) string {
	if remaining == 0 {
		return raw
	}
	return raw + "\n"
}

// Direct renders raw with no separator at all.
func Direct(raw string, _ int) string { return raw }

// Comma renders a comma-separated list.
func Comma(raw string, remaining int) string {
	if remaining == 0 {
		return raw
	}
	return raw + ", "
}

// CommaQuoted renders a comma-separated, quoted list.
func CommaQuoted(raw string, remaining int) string {
	if remaining == 0 {
		return fmt.Sprintf("%q", raw)
	}
	return fmt.Sprintf("%q, ", raw)
}

// Result is the envelope a command builds up over its lifetime.
type Result struct {
	ErrMsg     []string          `json:"ErrMsg"`
	WarnMsg    []string          `json:"WarnMsg"`
	InfoMsg    []string          `json:"InfoMsg"`
	Metadata   map[string]string `json:"Metadata"`
	ResultType State             `json:"ResultType"`

	queryFormat QueryFormat
	debug       bool
}

// NewResult starts a Success-classified envelope; Err() downgrades it to
// Fail the moment the first error is logged.
func NewResult(debug bool) *Result {
	return &Result{
		Metadata:    map[string]string{},
		ResultType:  Success,
		queryFormat: LineByLineCompressed,
		debug:       debug,
	}
}

// NewQuery starts a Query-classified envelope that renders its info
// stream with format instead of the terminal Ok/Fail summary.
func NewQuery(debug bool, format QueryFormat) *Result {
	r := NewResult(debug)
	r.ResultType = Query
	r.queryFormat = format
	return r
}

// Log appends an info message.
func (r *Result) Log(msg string) {
	r.InfoMsg = append(r.InfoMsg, msg)
}

// Warn appends a warning message.
func (r *Result) Warn(msg string) {
	r.WarnMsg = append(r.WarnMsg, msg)
}

// Err appends an error message and, unless this is a Query envelope,
// downgrades the terminal state to Fail.
func (r *Result) Err(msg string) {
	r.ErrMsg = append(r.ErrMsg, msg)
	if r.ResultType != Query {
		r.ResultType = Fail
	}
}

// SetMetadata records a normalised key/value pair.
func (r *Result) SetMetadata(key, val string) {
	r.Metadata[textutil.ProcessIDText(key)] = val
}

// HasResult reports whether any message stream is non-empty.
func (r *Result) HasResult() bool {
	return len(r.InfoMsg) > 0 || len(r.WarnMsg) > 0 || len(r.ErrMsg) > 0
}

// Combine merges other into r. Returns an error if either side is a Query
// envelope -- queries cannot be combined with terminal results.
func (r *Result) Combine(other *Result) error {
	if r.ResultType == Query || other.ResultType == Query {
		return errCannotCombineQuery
	}
	if other.ResultType == Fail {
		r.ResultType = Fail
	}
	r.InfoMsg = append(r.InfoMsg, other.InfoMsg...)
	r.WarnMsg = append(r.WarnMsg, other.WarnMsg...)
	r.ErrMsg = append(r.ErrMsg, other.ErrMsg...)
	for k, v := range other.Metadata {
		r.Metadata[k] = v
	}
	return nil
}

// CombineUnchecked merges other into r if other is non-nil, ignoring any
// combine error (mirrors the source's best-effort combine_unchecked).
func (r *Result) CombineUnchecked(other *Result) {
	if other != nil {
		_ = r.Combine(other)
	}
}

var errCannotCombineQuery = fmt.Errorf("cannot combine a Query result")

// Render produces the final text this result should print: in debug mode
// a single serialized JSON line, otherwise the human-readable rendering
// (streamed info for Query, a terminal summary otherwise).
func (r *Result) Render() string {
	if r.debug {
		return r.renderDebug()
	}
	switch r.ResultType {
	case Query:
		return r.renderQuery()
	case Fail:
		return fmt.Sprintf("[ Fail ] (%d errs, %d warns)", len(r.ErrMsg), len(r.WarnMsg))
	default:
		if len(r.WarnMsg) > 0 {
			return fmt.Sprintf("[ Done ] (%d warns)", len(r.WarnMsg))
		}
		return "[  Ok  ]"
	}
}

func (r *Result) renderDebug() string {
	if r.ResultType == Query {
		data, err := json.Marshal(struct {
			Query    []string          `json:"Query"`
			Metadata map[string]string `json:"Metadata"`
		}{Query: r.InfoMsg, Metadata: r.Metadata})
		if err != nil {
			return "query:{}"
		}
		return "query:" + string(data)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return "result:{}"
	}
	return "result:" + string(data)
}

func (r *Result) renderQuery() string {
	var out string
	remaining := len(r.InfoMsg) - 1
	for _, info := range r.InfoMsg {
		out += r.queryFormat(info, remaining)
		remaining--
	}
	return out
}

// ExitCode returns the process exit code this result implies: 0 for
// Success/Query, non-zero for Fail.
func (r *Result) ExitCode() int {
	if r.ResultType == Fail {
		return 1
	}
	return 0
}
