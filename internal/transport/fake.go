package transport

import "sync"

// Fake is an in-memory Transport driven by a scripted device handler,
// used to exercise the codec and orchestrators without real hardware.
// Handler receives each 8-byte command as it is echoed and returns the
// payload (if any) the device would send back; returning ok=false
// simulates a device that never responds (drives the liveness guard).
type Fake struct {
	mu      sync.Mutex
	Handler func(cmd []byte) (echo []byte, payload []byte, ok bool)

	outbound []byte // bytes queued for the caller to Read
	written  [][]byte
	streamed []byte
}

func NewFake(handler func(cmd []byte) (echo []byte, payload []byte, ok bool)) *Fake {
	return &Fake{Handler: handler}
}

// Written returns every byte slice passed to Write, in order.
func (f *Fake) Written() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.written
}

func (f *Fake) Write(p []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cp := append([]byte(nil), p...)
	f.written = append(f.written, cp)

	if len(p) == 8 {
		// a command frame; run the handler and queue its response
		echo, payload, ok := f.Handler(cp)
		if !ok {
			return nil
		}
		f.outbound = append(f.outbound, echo...)
		f.outbound = append(f.outbound, payload...)
		return nil
	}

	// a streamed host->device payload; remember it for inspection
	f.streamed = append(f.streamed, cp...)
	return nil
}

func (f *Fake) Read(p []byte) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.outbound) == 0 {
		return 0, nil // simulate a 100ms poll finding nothing
	}

	n := copy(p, f.outbound)
	f.outbound = f.outbound[n:]
	return n, nil
}

func (f *Fake) Drain() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outbound = nil
	return nil
}

func (f *Fake) Close() error { return nil }

// StreamedBytes returns everything written outside of 8-byte command
// frames, i.e. host-streamed RAM/flash payloads.
func (f *Fake) StreamedBytes() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.streamed
}

