package session

import (
	"errors"
	"testing"

	"github.com/gbcart/reader/internal/gbcrerr"
	"github.com/gbcart/reader/internal/transport"
	"github.com/stretchr/testify/require"
)

// avrInfoHandler answers READINFO like an AVR board on firmware 2.0.0 and
// RAMOFF00/RAMON000 like any board with RAM control wired up. Any other
// command is left unanswered.
func avrInfoHandler(cmd []byte) (echo, payload []byte, ok bool) {
	switch string(cmd) {
	case "READINFO":
		return cmd, append([]byte("GBCR-AVR-V2.0.0"), 0x00), true
	case "RAMOFF00", "RAMON000":
		return cmd, nil, true
	default:
		return nil, nil, false
	}
}

// TestOpen_S1_ParsesBoardID covers scenario S1: the reader echoes
// READINFO then 16 bytes "GBCR-AVR-V2.0.0\0", and the session reports
// chipset AVR, version (2, 0, 0).
func TestOpen_S1_ParsesBoardID(t *testing.T) {
	fake := transport.NewFake(avrInfoHandler)

	s, err := Open(fake, nil)
	require.NoError(t, err)

	require.Equal(t, ChipsetAVR, s.Chipset)
	require.Equal(t, 2, s.Major)
	require.Equal(t, 0, s.Minor)
	require.Equal(t, 0, s.Patch)
	require.True(t, s.FirmwareGE(2, 0, 0))
	require.False(t, s.FirmwareGE(2, 0, 1))
}

func TestOpen_RejectsUnparseableBoardID(t *testing.T) {
	fake := transport.NewFake(func(cmd []byte) ([]byte, []byte, bool) {
		if string(cmd) == "READINFO" {
			return cmd, make([]byte, 16), true // all zero bytes, trims to ""
		}
		return nil, nil, false
	})

	_, err := Open(fake, nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, gbcrerr.ErrUnsupportedDevice))
}

func TestOpen_RejectsUnknownChipset(t *testing.T) {
	fake := transport.NewFake(func(cmd []byte) ([]byte, []byte, bool) {
		if string(cmd) == "READINFO" {
			return cmd, append([]byte("GBCR-ZX80-V1.0.0"), 0x00), true
		}
		return nil, nil, false
	})

	_, err := Open(fake, nil)
	require.Error(t, err)
	require.True(t, errors.Is(err, gbcrerr.ErrUnsupportedDevice))
}

// TestRunExclusive_ErrorPathStillDisablesRAMAndCloses covers testable
// property 8: on any error path, set_ram(false) is called and the
// Transport is closed.
func TestRunExclusive_ErrorPathStillDisablesRAMAndCloses(t *testing.T) {
	fake := transport.NewFake(avrInfoHandler)

	s, err := Open(fake, nil)
	require.NoError(t, err)

	boom := errors.New("boom")
	runErr := s.RunExclusive(func(*Session) error {
		return boom
	})

	require.Error(t, runErr)
	require.ErrorContains(t, runErr, "boom")

	var sawRAMOff bool
	for _, w := range fake.Written() {
		if string(w) == "RAMOFF00" {
			sawRAMOff = true
		}
	}
	require.True(t, sawRAMOff, "RunExclusive must disable RAM on the error path")

	// Close is idempotent; RunExclusive's epilogue already closed the
	// session, so a second call must be a harmless no-op.
	require.NoError(t, s.Close())
}

// TestRunExclusive_SuccessPathAlsoDisablesRAMAndCloses covers the same
// epilogue guarantee on the non-error path.
func TestRunExclusive_SuccessPathAlsoDisablesRAMAndCloses(t *testing.T) {
	fake := transport.NewFake(avrInfoHandler)

	s, err := Open(fake, nil)
	require.NoError(t, err)

	var ran bool
	err = s.RunExclusive(func(*Session) error {
		ran = true
		return nil
	})
	require.NoError(t, err)
	require.True(t, ran)

	var sawRAMOff bool
	for _, w := range fake.Written() {
		if string(w) == "RAMOFF00" {
			sawRAMOff = true
		}
	}
	require.True(t, sawRAMOff)
}

// TestRunExclusive_CombinesJobAndEpilogueErrors ensures a failing fn and
// a failing RAM-disable are both surfaced rather than one masking the
// other.
func TestRunExclusive_CombinesJobAndEpilogueErrors(t *testing.T) {
	fake := transport.NewFake(func(cmd []byte) ([]byte, []byte, bool) {
		switch string(cmd) {
		case "READINFO":
			return cmd, append([]byte("GBCR-AVR-V2.0.0"), 0x00), true
		case "RAMOFF00":
			return nil, nil, false // device never answers, trips the liveness guard
		default:
			return nil, nil, false
		}
	})

	s, err := Open(fake, nil)
	require.NoError(t, err)

	boom := errors.New("boom")
	runErr := s.RunExclusive(func(*Session) error {
		return boom
	})

	require.Error(t, runErr)
	require.ErrorContains(t, runErr, "boom")
	require.True(t, errors.Is(runErr, gbcrerr.ErrTimeout))
}
