package rio

import (
	"errors"
	"net"

	"golang.org/x/sys/unix"
)

var (
	// ErrClosed is returned by reads on a Reader whose buffer was released.
	ErrClosed = errors.New("rio: reader closed")
)

// IsInterrupted reports whether err is a system call interrupted by a signal.
// Such errors are retried in place and never surfaced to callers.
func IsInterrupted(err error) bool {
	return errors.Is(err, unix.EINTR)
}

// IsBrokenPipe reports whether err means the peer went away: the write side
// hit EPIPE, the connection was reset, or it was already closed locally.
func IsBrokenPipe(err error) bool {
	return errors.Is(err, unix.EPIPE) ||
		errors.Is(err, unix.ECONNRESET) ||
		errors.Is(err, net.ErrClosed)
}

// IsTimeout reports whether err is a deadline expiry on a connection.
func IsTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
