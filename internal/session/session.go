// Package session implements the device session: board identification,
// firmware version comparison and the exclusive-hold-with-guaranteed-
// epilogue lifecycle that every long-running job runs under.
package session

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/gbcart/reader/internal/gbcrerr"
	"github.com/gbcart/reader/internal/protocol"
	"github.com/gbcart/reader/internal/transport"
	"github.com/gbcart/reader/pkg/log"
	"github.com/hashicorp/go-multierror"
	"github.com/tevino/abool"
)

// Chipset names recognised in the board id string.
const (
	ChipsetAVR  = "AVR"
	Chipset8515 = "8515"
)

// BaudRate returns the baud rate a session should use for chipset,
// selected by the caller before opening the transport.
func BaudRate(chipset string) (int, error) {
	switch chipset {
	case ChipsetAVR:
		return 115200, nil
	case Chipset8515:
		return 512000, nil
	default:
		return 0, fmt.Errorf("%w: unknown chipset %q", gbcrerr.ErrUnsupportedDevice, chipset)
	}
}

var compileTimeRE = regexp.MustCompile(`([A-Za-z]{3}\s+[0-9]+\s+[0-9]{4}).*(\d{2}:\d{2}:\d{2})`)

// Session is bound to exactly one opened Transport. It is safe to use
// from a single goroutine at a time; long jobs hold it exclusively via
// RunExclusive.
type Session struct {
	Codec *protocol.Codec

	Chipset              string
	Major, Minor, Patch  int

	log    log.Logger
	t      transport.Transport
	opened *abool.AtomicBool
}

// Open wraps an already-opened Transport, queries READINFO and parses
// the board id. The caller is responsible for having selected the right
// baud rate for the target chipset before opening the transport.
func Open(t transport.Transport, logger log.Logger) (*Session, error) {
	if logger == nil {
		logger = log.NewNullLogger()
	}

	s := &Session{
		Codec:  protocol.New(t, logger),
		log:    logger,
		t:      t,
		opened: abool.NewBool(true),
	}

	raw, err := s.Codec.ReadInfo()
	if err != nil {
		return nil, err
	}

	if err := s.parseBoardInfo(raw); err != nil {
		return nil, err
	}

	return s, nil
}

// parseBoardInfo decodes "GBCR-<CHIP>-V<major>.<minor>.<patch>\0".
func (s *Session) parseBoardInfo(raw []byte) error {
	str := string(bytes.TrimRight(raw, "\x00"))
	parts := strings.Split(str, "-")
	if len(parts) != 3 || parts[0] != "GBCR" {
		return fmt.Errorf("%w: unparseable board id %q", gbcrerr.ErrUnsupportedDevice, str)
	}

	chipset := parts[1]
	if chipset != ChipsetAVR && chipset != Chipset8515 {
		return fmt.Errorf("%w: unknown chipset %q", gbcrerr.ErrUnsupportedDevice, chipset)
	}

	version := strings.TrimPrefix(parts[2], "V")
	nums := strings.SplitN(version, ".", 3)
	if len(nums) != 3 {
		return fmt.Errorf("%w: unparseable version %q", gbcrerr.ErrUnsupportedDevice, parts[2])
	}

	major, err1 := strconv.Atoi(nums[0])
	minor, err2 := strconv.Atoi(nums[1])
	patch, err3 := strconv.Atoi(nums[2])
	if err1 != nil || err2 != nil || err3 != nil {
		return fmt.Errorf("%w: unparseable version %q", gbcrerr.ErrUnsupportedDevice, parts[2])
	}

	s.Chipset = chipset
	s.Major, s.Minor, s.Patch = major, minor, patch
	return nil
}

// FirmwareGE reports whether the session's firmware version is greater
// than or equal to major.minor.patch.
func (s *Session) FirmwareGE(major, minor, patch int) bool {
	if s.Major != major {
		return s.Major > major
	}
	if s.Minor != minor {
		return s.Minor > minor
	}
	return s.Patch >= patch
}

// CompileTime issues COMPTIME and extracts a human-readable date/time
// for display purposes only.
func (s *Session) CompileTime() string {
	raw, err := s.Codec.ReadCompileTime()
	if err != nil {
		return "Unknown compile time"
	}

	match := compileTimeRE.FindStringSubmatch(string(raw))
	if match == nil {
		s.log.Debugf("cannot identify compile time from %q", raw)
		return "Unknown compile time"
	}
	return match[1] + " " + match[2]
}

// Close releases the underlying Transport. Close is safe to call more
// than once.
func (s *Session) Close() error {
	if !s.opened.SetToIf(true, false) {
		return nil
	}
	return s.t.Close()
}

// RunExclusive runs fn while holding the session's Transport exclusively,
// guaranteeing the cartridge-quiescent epilogue (RAM disabled, session
// closed) on every exit path, including panics recovered elsewhere up
// the stack. Errors from fn, from disabling RAM and from closing the
// session are all preserved and combined.
func (s *Session) RunExclusive(fn func(*Session) error) (err error) {
	var result *multierror.Error

	defer func() {
		if ramErr := s.Codec.SetRAM(false); ramErr != nil {
			result = multierror.Append(result, fmt.Errorf("ram disable: %w", ramErr))
		}
		if closeErr := s.Close(); closeErr != nil {
			result = multierror.Append(result, fmt.Errorf("close: %w", closeErr))
		}
		err = result.ErrorOrNil()
	}()

	if runErr := fn(s); runErr != nil {
		result = multierror.Append(result, runErr)
	}

	return nil
}
