// Package audit implements the server's append-only audit trail: one
// line per catalog mutation (add, commit, remove, move, rollback, lock
// changes, archive snapshots), written in arrival order so the history of
// a workspace can be replayed or inspected after the fact. Adapted from
// the teacher's journal.Journal -- same "create once, append sequentially
// numbered records to a writer" shape, but recording catalog events
// instead of Perforce journal records.
package audit

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Action names one kind of catalog event. Kept as plain strings rather
// than an enum so new command types don't require touching this package.
type Action string

const (
	Added      Action = "added"
	Committed  Action = "committed"
	Removed    Action = "removed"
	Moved      Action = "moved"
	RolledBack Action = "rolledback"
	Locked     Action = "locked"
	Unlocked   Action = "unlocked"
	Archived   Action = "archived"
)

// Trail is the append-only writer: one Trail per server process, shared
// across connections behind its own mutex (catalog mutations already
// happen under Database's lock, but the audit write is a separate,
// cheaper critical section so a slow disk never holds up the catalog).
type Trail struct {
	mu  sync.Mutex
	w   io.Writer
	seq uint64
}

// Open creates (or appends to) the audit log file at path.
func Open(path string) (*Trail, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "opening audit log %s", path)
	}
	return &Trail{w: f}, nil
}

// NewTrail wraps an arbitrary writer, mainly for tests.
func NewTrail(w io.Writer) *Trail {
	return &Trail{w: w}
}

// Record appends one line: sequence number, action, path, actor uuid,
// timestamp, and an optional detail (e.g. a commit description or a
// move's destination path).
func (t *Trail) Record(action Action, path, actorUUID, detail string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.seq++
	_, err := fmt.Fprintf(t.w, "@rec@ @%d@ @%s@ @%s@ @%s@ %d @%s@\n",
		t.seq, action, path, actorUUID, time.Now().Unix(), detail)
	if err != nil {
		return errors.Wrap(err, "writing audit record")
	}
	return nil
}

// Close releases the underlying writer if it implements io.Closer.
func (t *Trail) Close() error {
	if closer, ok := t.w.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
