package transport

import (
	"encoding/binary"
	"encoding/json"
	"io"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

const (
	readChunkSize  = 128
	maxTextSize    = 100 * 1024 * 1024
	largeChunkSize = 16 * 1024
)

// SendMsg JSON-encodes v and writes it to w in one shot. Any serialize or
// write failure is logged and swallowed -- matching the source's send_msg,
// which never propagates an error to the caller (a send failure degrades
// the connection, it doesn't change program control flow).
func SendMsg(w io.Writer, v interface{}, logger *logrus.Logger) {
	data, err := json.Marshal(v)
	if err != nil {
		logger.WithError(err).Error("failed to serialize message")
		return
	}
	if _, err := w.Write(data); err != nil {
		logger.WithError(err).Warn("failed to send message")
	}
}

// ReadMsg reads from r in small bounded chunks, attempting to parse the
// accumulated buffer as JSON after every chunk, and returns the first
// successful parse. On EOF or an unrecoverable parse error it returns the
// zero value of T -- ReadMsg never returns an error. For ClientMessage and
// ServerMessage that zero value carries an empty Kind, not CMUnknown or
// SMUnknown, so callers treat "" as the end of the stream.
func ReadMsg[T any](r io.Reader, logger *logrus.Logger) T {
	var zero, out T
	var buf []byte
	chunk := make([]byte, readChunkSize)

	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			if jsonErr := json.Unmarshal(buf, &out); jsonErr == nil {
				return out
			}
			// Still-incomplete JSON is expected while more bytes arrive;
			// any other parse failure falls through to the final default.
		}
		if err != nil {
			if err != io.EOF {
				logger.WithError(err).Warn("connection closed before complete message received")
			}
			return zero
		}
		if n == 0 {
			return zero
		}
	}
}

// SendLargeText writes an 8-byte big-endian size header followed by text
// in largeChunkSize chunks, reporting progress via the optional callback
// (sent, total). Enforces the 100MiB hard cap.
func SendLargeText(w io.Writer, text string, progress func(sent, total int64)) error {
	payload := []byte(text)
	total := int64(len(payload))
	if total > maxTextSize {
		return errors.Errorf("message too large: %d bytes exceeds %d byte limit", total, maxTextSize)
	}

	header := make([]byte, 8)
	binary.BigEndian.PutUint64(header, uint64(total))
	if _, err := w.Write(header); err != nil {
		return errors.Wrap(err, "writing size header")
	}

	var sent int64
	for sent < total {
		end := sent + largeChunkSize
		if end > total {
			end = total
		}
		n, err := w.Write(payload[sent:end])
		if err != nil {
			return errors.Wrap(err, "writing chunk")
		}
		sent += int64(n)
		if progress != nil {
			progress(sent, total)
		}
	}
	return nil
}

// ReadLargeText is the receive side of SendLargeText.
func ReadLargeText(r io.Reader, progress func(received, total int64)) (string, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return "", errors.Wrap(err, "reading size header")
	}
	total := int64(binary.BigEndian.Uint64(header))
	if total > maxTextSize {
		return "", errors.Errorf("message too large: %d bytes exceeds %d byte limit", total, maxTextSize)
	}

	buf := make([]byte, total)
	var received int64
	for received < total {
		end := received + largeChunkSize
		if end > total {
			end = total
		}
		n, err := io.ReadFull(r, buf[received:end])
		if err != nil {
			return "", errors.Wrap(err, "reading chunk")
		}
		received += int64(n)
		if progress != nil {
			progress(received, total)
		}
	}
	return string(buf), nil
}

// SendLargeMsg YAML-serializes v and transmits it as a large text message
// -- used for the catalog Sync payload.
func SendLargeMsg(w io.Writer, v interface{}, progress func(sent, total int64)) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshaling large message")
	}
	return SendLargeText(w, string(data), progress)
}

// ReadLargeMsg is the receive side of SendLargeMsg.
func ReadLargeMsg(r io.Reader, v interface{}, progress func(received, total int64)) error {
	text, err := ReadLargeText(r, progress)
	if err != nil {
		return err
	}
	return errors.Wrap(yaml.Unmarshal([]byte(text), v), "unmarshaling large message")
}
