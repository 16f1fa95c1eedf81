//go:build linux

package transport

import "golang.org/x/sys/unix"

const (
	ioctlGetTermios = unix.TCGETS
	ioctlSetTermios = unix.TCSETS
)

var standardBauds = map[int]uint32{
	9600:    unix.B9600,
	19200:   unix.B19200,
	38400:   unix.B38400,
	57600:   unix.B57600,
	115200:  unix.B115200,
	230400:  unix.B230400,
	460800:  unix.B460800,
	921600:  unix.B921600,
}

// setBaud programs t for baud. Standard rates use the fixed Bxxxxx
// termios constants; the 8515 board's 512000 baud has no POSIX constant,
// so it is programmed via the Linux BOTHER extension with explicit
// input/output speeds.
func setBaud(t *unix.Termios, baud int) {
	if b, ok := standardBauds[baud]; ok {
		t.Ispeed = b
		t.Ospeed = b
		t.Cflag &^= unix.CBAUD
		t.Cflag |= b
		return
	}

	t.Cflag &^= unix.CBAUD
	t.Cflag |= unix.BOTHER
	t.Ispeed = uint32(baud)
	t.Ospeed = uint32(baud)
}
