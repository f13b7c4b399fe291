package transport

import (
	"encoding/binary"
	"io"
	"net"
	"os"
	"time"

	"github.com/pkg/errors"
)

const (
	fileTransferVersion   = 1
	fileChunkSize         = 8 * 1024
	ackTimeout            = 10 * time.Second
	progressByteThreshold = 256 * 1024
	progressInterval      = 350 * time.Millisecond
	ackByte               = byte(0x01)
)

// SendFile streams the content of path to conn: an 8-byte version header
// (==1), an 8-byte size header, then the file in fileChunkSize chunks.
// Rejects zero-length files. Blocks for a single-byte ACK after the last
// chunk, failing the transfer if it does not arrive within ackTimeout.
func SendFile(conn net.Conn, path string, progress func(sent, total int64)) error {
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrapf(err, "opening %s", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.Wrapf(err, "stat %s", path)
	}
	total := info.Size()
	if total == 0 {
		return errors.New("refusing to transfer a zero-length file")
	}

	header := make([]byte, 16)
	binary.BigEndian.PutUint64(header[0:8], fileTransferVersion)
	binary.BigEndian.PutUint64(header[8:16], uint64(total))
	if _, err := conn.Write(header); err != nil {
		return errors.Wrap(err, "writing file header")
	}

	var sent, lastReportedSent int64
	lastReport := time.Now()
	buf := make([]byte, fileChunkSize)
	for sent < total {
		n, err := f.Read(buf)
		if n > 0 {
			if _, werr := conn.Write(buf[:n]); werr != nil {
				return errors.Wrap(werr, "writing file chunk")
			}
			sent += int64(n)
			if progress != nil && (sent-lastReportedSent >= progressByteThreshold || time.Since(lastReport) >= progressInterval) {
				progress(sent, total)
				lastReport = time.Now()
				lastReportedSent = sent
			}
		}
		if err != nil {
			if err == io.EOF {
				break
			}
			return errors.Wrap(err, "reading local file")
		}
	}
	if progress != nil {
		progress(total, total)
	}

	_ = conn.SetReadDeadline(time.Now().Add(ackTimeout))
	defer conn.SetReadDeadline(time.Time{})

	ack := make([]byte, 1)
	if _, err := io.ReadFull(conn, ack); err != nil {
		return errors.Wrap(err, "waiting for transfer ack")
	}
	if ack[0] != ackByte {
		return errors.New("unexpected ack byte")
	}
	return nil
}

// ReceiveFile is the receive side of SendFile: it reads the header,
// streams the payload to destPath, fsyncs before acking, and removes the
// output file if the payload cannot be fully received, fsynced or closed.
func ReceiveFile(conn net.Conn, destPath string, progress func(received, total int64)) error {
	header := make([]byte, 16)
	if _, err := io.ReadFull(conn, header); err != nil {
		return errors.Wrap(err, "reading file header")
	}
	version := binary.BigEndian.Uint64(header[0:8])
	if version != fileTransferVersion {
		return errors.Errorf("unsupported file transfer version %d", version)
	}
	total := int64(binary.BigEndian.Uint64(header[8:16]))
	if total == 0 {
		return errors.New("refusing to receive a zero-length file")
	}

	if err := os.MkdirAll(parentDir(destPath), 0o755); err != nil {
		return errors.Wrapf(err, "creating directory for %s", destPath)
	}

	f, err := os.Create(destPath)
	if err != nil {
		return errors.Wrapf(err, "creating %s", destPath)
	}

	if err := receiveInto(conn, f, total, progress); err != nil {
		f.Close()
		os.Remove(destPath)
		return err
	}

	if err := fsync(f); err != nil {
		f.Close()
		os.Remove(destPath)
		return errors.Wrap(err, "fsyncing received file")
	}
	if err := f.Close(); err != nil {
		os.Remove(destPath)
		return errors.Wrap(err, "closing received file")
	}

	if _, err := conn.Write([]byte{ackByte}); err != nil {
		return errors.Wrap(err, "sending ack")
	}
	return nil
}

func receiveInto(conn net.Conn, f *os.File, total int64, progress func(received, total int64)) error {
	var received, lastReportedReceived int64
	lastReport := time.Now()
	buf := make([]byte, fileChunkSize)
	for received < total {
		remaining := total - received
		n := int64(len(buf))
		if remaining < n {
			n = remaining
		}
		read, err := io.ReadFull(conn, buf[:n])
		if err != nil {
			return errors.Wrap(err, "reading file chunk")
		}
		if _, err := f.Write(buf[:read]); err != nil {
			return errors.Wrap(err, "writing local file")
		}
		received += int64(read)
		if progress != nil && (received >= total || received-lastReportedReceived >= progressByteThreshold || time.Since(lastReport) >= progressInterval) {
			progress(received, total)
			lastReport = time.Now()
			lastReportedReceived = received
		}
	}
	return nil
}

func parentDir(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return "."
}
