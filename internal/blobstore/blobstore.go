// Package blobstore implements the server's content-addressed blob
// storage: committed file content is written under "database/<blob-id>",
// downloads read it back, and the archive command leaves history blobs
// in place indefinitely (no GC is required by the spec).
package blobstore

import (
	"os"
	"path/filepath"

	"github.com/alitto/pond"
	"github.com/google/uuid"
	"github.com/h2non/filetype"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Store is the blob directory under the server's workspace root.
type Store struct {
	Dir    string
	logger *logrus.Logger
	pool   *pond.WorkerPool
}

// New returns a Store rooted at dir ("<root>/database"), with a small
// worker pool used to classify newly committed blobs concurrently with
// the caller moving on to acknowledge the commit.
func New(dir string, logger *logrus.Logger) *Store {
	return &Store{
		Dir:    dir,
		logger: logger,
		pool:   pond.New(4, 64),
	}
}

// Close waits for queued classification work to finish and shuts the pool down.
func (s *Store) Close() {
	s.pool.StopAndWait()
}

// NewBlobID allocates a fresh content identifier for an about-to-be-
// written blob.
func NewBlobID() string {
	return uuid.NewString()
}

// Path returns the on-disk path for blobID.
func (s *Store) Path(blobID string) string {
	return filepath.Join(s.Dir, blobID)
}

// Write persists content under a freshly allocated blob ID and returns it.
// Classification (text vs. binary, used for log messages and future
// struct-command extensibility) happens asynchronously on the worker pool
// so it never delays the caller's response to the client.
func (s *Store) Write(content []byte) (string, error) {
	blobID := NewBlobID()
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "creating blob directory %s", s.Dir)
	}
	if err := os.WriteFile(s.Path(blobID), content, 0o644); err != nil {
		return "", errors.Wrapf(err, "writing blob %s", blobID)
	}

	s.pool.Submit(func(id string, sample []byte) func() {
		return func() {
			kind := classify(sample)
			s.logger.WithFields(logrus.Fields{"blob": id, "kind": kind}).Debug("blob classified")
		}
	}(blobID, firstBytes(content)))

	return blobID, nil
}

// AllocatePath reserves a fresh blob ID and returns its on-disk path,
// before any content exists there -- used by the streamed commit path,
// where the caller writes content directly via transport.ReceiveFile
// rather than handing Write a complete []byte.
func (s *Store) AllocatePath() (blobID, path string, err error) {
	blobID = NewBlobID()
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", "", errors.Wrapf(err, "creating blob directory %s", s.Dir)
	}
	return blobID, s.Path(blobID), nil
}

// ClassifyAsync queues blobID's classification on the worker pool, for
// callers (like AllocatePath's) that wrote content without going through
// Write.
func (s *Store) ClassifyAsync(blobID string) {
	s.pool.Submit(func(id string) func() {
		return func() {
			content, err := os.ReadFile(s.Path(id))
			if err != nil {
				return
			}
			kind := classify(firstBytes(content))
			s.logger.WithFields(logrus.Fields{"blob": id, "kind": kind}).Debug("blob classified")
		}
	}(blobID))
}

// Read returns blobID's content.
func (s *Store) Read(blobID string) ([]byte, error) {
	data, err := os.ReadFile(s.Path(blobID))
	if err != nil {
		return nil, errors.Wrapf(err, "reading blob %s", blobID)
	}
	return data, nil
}

func firstBytes(content []byte) []byte {
	const sniffLen = 261
	if len(content) > sniffLen {
		return content[:sniffLen]
	}
	return content
}

func classify(sample []byte) string {
	kind, err := filetype.Match(sample)
	if err != nil || kind == filetype.Unknown {
		return "binary-or-text"
	}
	return kind.MIME.Value
}
