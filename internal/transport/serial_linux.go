//go:build linux

package transport

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// PollTimeout is how long a single Read call is allowed to block while
// waiting for bytes from the reader. The protocol codec builds its own
// longer waits and liveness guard on top of repeated polls at this
// granularity.
const PollTimeout = 100 * 1_000_000 // 100ms in nanoseconds

// Serial is a Transport backed by a POSIX tty device, configured 8N1
// with no flow control per the reader's wire contract.
type Serial struct {
	fd     int
	closed bool
}

// OpenSerial opens path and configures it for raw 8N1 communication at
// baud. baud is looked up against the standard termios speed constants;
// non-standard rates (the 8515 board's 512000) are programmed with the
// Linux BOTHER/ispeed-ospeed extension.
func OpenSerial(path string, baud int) (*Serial, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_NOCTTY, 0)
	if err != nil {
		return nil, fmt.Errorf("gbcr: open %s: %w", path, err)
	}

	t, err := unix.IoctlGetTermios(fd, ioctlGetTermios)
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("gbcr: get termios: %w", err)
	}

	configureRaw(t, baud)

	if err := unix.IoctlSetTermios(fd, ioctlSetTermios, t); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("gbcr: set termios: %w", err)
	}

	return &Serial{fd: fd}, nil
}

// configureRaw puts t into raw mode: no echo, no signal generation, no
// canonical line buffering, no parity, one stop bit, 8 data bits, no
// flow control. VMIN=0/VTIME=1 makes every read return after at most
// 100ms even with no data available, which is how the transport's poll
// timeout is realized at the syscall level.
func configureRaw(t *unix.Termios, baud int) {
	t.Iflag &^= unix.IGNBRK | unix.BRKINT | unix.PARMRK | unix.ISTRIP |
		unix.INLCR | unix.IGNCR | unix.ICRNL | unix.IXON
	t.Oflag &^= unix.OPOST
	t.Lflag &^= unix.ECHO | unix.ECHONL | unix.ICANON | unix.ISIG | unix.IEXTEN
	t.Cflag &^= unix.CSIZE | unix.PARENB | unix.CSTOPB | unix.CRTSCTS
	t.Cflag |= unix.CS8 | unix.CLOCAL | unix.CREAD

	t.Cc[unix.VMIN] = 0
	t.Cc[unix.VTIME] = 1 // deciseconds

	setBaud(t, baud)
}

func (s *Serial) Write(p []byte) error {
	for len(p) > 0 {
		n, err := unix.Write(s.fd, p)
		if err != nil {
			return fmt.Errorf("gbcr: write: %w", err)
		}
		p = p[n:]
	}
	return nil
}

func (s *Serial) Read(p []byte) (int, error) {
	n, err := unix.Read(s.fd, p)
	if err != nil {
		return 0, fmt.Errorf("gbcr: read: %w", err)
	}
	return n, nil
}

func (s *Serial) Drain() error {
	buf := make([]byte, 4096)
	for {
		n, err := unix.Read(s.fd, buf)
		if err != nil || n == 0 {
			return nil
		}
	}
}

func (s *Serial) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return unix.Close(s.fd)
}
