//go:build !windows

package transport

import (
	"os"

	"golang.org/x/sys/unix"
)

// fsync flushes f's content to stable storage before the receiver acks a
// completed file transfer (§4.2: "flushes and fsyncs before ACKing").
func fsync(f *os.File) error {
	return unix.Fsync(int(f.Fd()))
}
