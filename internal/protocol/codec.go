// Package protocol implements the fixed 8-character ASCII command codec
// spoken with the cartridge reader's firmware: command framing, echo
// confirmation, length-delimited payloads and the liveness guard that
// protects every exchange from a wedged link.
package protocol

import (
	"fmt"

	"github.com/gbcart/reader/internal/gbcrerr"
	"github.com/gbcart/reader/internal/transport"
	"github.com/gbcart/reader/pkg/log"
)

const (
	// CmdLen is the fixed width of every command frame.
	CmdLen = 8

	// maxStalledPolls is the liveness guard: once a read has observed the
	// same byte count this many consecutive polls, the link is declared
	// dead.
	maxStalledPolls = 100

	// maxEchoRetries bounds how many times a command is sent while its
	// echo keeps mismatching: after that many mismatched echoes the
	// exchange gives up with ErrProtocolMismatch.
	maxEchoRetries = 5
)

// Command payload lengths, per the wire-protocol command table.
const (
	HeaderLen    = 0x150
	SectorLen    = 0x1000
	BoardInfoLen = 16
	CompTimeLen  = 32
	ChipIDLen    = 2
	ErasePollLen = 2
	RAMSmallLen  = 2048
	RAMHalfLen   = 4096
	FlashBlkLen  = 256
)

// Codec speaks the fixed-width command protocol over a Transport. It
// owns no cartridge or session semantics; it is purely the wire layer.
type Codec struct {
	t   transport.Transport
	log log.Logger
}

func New(t transport.Transport, logger log.Logger) *Codec {
	if logger == nil {
		logger = log.NewNullLogger()
	}
	return &Codec{t: t, log: logger}
}

// Exchange sends an 8-byte command, waits for its echo (retrying from
// scratch on mismatch), and reads back respLen payload bytes.
func (c *Codec) Exchange(cmd string, respLen int) ([]byte, error) {
	if len(cmd) != CmdLen {
		return nil, fmt.Errorf("gbcr: malformed command %q", cmd)
	}

	for attempt := 0; ; attempt++ {
		if err := c.t.Write([]byte(cmd)); err != nil {
			return nil, fmt.Errorf("%w: %v", gbcrerr.ErrTransport, err)
		}

		echo, err := c.readN(CmdLen)
		if err != nil {
			return nil, err
		}

		if string(echo) != cmd {
			c.log.Warnf("echo mismatch: sent %q, got %q", cmd, echo)
			if attempt+1 >= maxEchoRetries {
				return nil, fmt.Errorf("%w: after %d attempts", gbcrerr.ErrProtocolMismatch, attempt+1)
			}
			continue
		}

		if respLen == 0 {
			return nil, nil
		}

		payload, err := c.readN(respLen)
		if err != nil {
			return nil, err
		}
		return payload, nil
	}
}

// Send is Exchange for commands with no payload response.
func (c *Codec) Send(cmd string) error {
	_, err := c.Exchange(cmd, 0)
	return err
}

// StreamWrite writes a host->device payload immediately following a
// command's echo, for RMWR*/WRST commands.
func (c *Codec) StreamWrite(data []byte) error {
	if err := c.t.Write(data); err != nil {
		return fmt.Errorf("%w: %v", gbcrerr.ErrTransport, err)
	}
	return nil
}

// Drain discards any stray bytes left buffered after a streamed write,
// as required after WRST.
func (c *Codec) Drain() error {
	if err := c.t.Drain(); err != nil {
		return fmt.Errorf("%w: %v", gbcrerr.ErrTransport, err)
	}
	return nil
}

// readN accumulates exactly n bytes from the transport, polling in the
// transport's own read granularity and tripping the liveness guard if no
// progress is observed for maxStalledPolls consecutive polls.
func (c *Codec) readN(n int) ([]byte, error) {
	buf := make([]byte, 0, n)
	stalled := 0

	for len(buf) < n {
		chunk := make([]byte, n-len(buf))
		read, err := c.t.Read(chunk)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", gbcrerr.ErrTransport, err)
		}

		if read == 0 {
			stalled++
			if stalled >= maxStalledPolls {
				return nil, fmt.Errorf("%w: no progress after %d polls", gbcrerr.ErrTimeout, stalled)
			}
			continue
		}

		stalled = 0
		buf = append(buf, chunk[:read]...)
	}

	return buf, nil
}
