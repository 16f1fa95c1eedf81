// Package stream bridges job progress events to a browser-based GUI
// collaborator over a websocket, since the GUI itself is out of scope
// for the core (see the flash/dump/ramio job orchestrators).
package stream

import (
	"encoding/binary"
	"net/http"
	"sync"

	"github.com/gbcart/reader/pkg/log"
	"github.com/gorilla/websocket"
)

// Message kinds sent to connected clients. A message is one byte of
// kind followed by a 4-byte big-endian unit index.
const (
	kindStart byte = iota
	kindDone
	kindChecksum // final status byte follows the index: 1 == valid
)

// Hub fans job progress out to every connected GUI client. The zero
// value is not usable; construct with NewHub.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan []byte
	register   chan *client
	unregister chan *client

	log log.Logger

	mu sync.Mutex
}

// NewHub returns a Hub ready to Run. A nil logger discards diagnostics.
func NewHub(logger log.Logger) *Hub {
	if logger == nil {
		logger = log.NewNullLogger()
	}
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan []byte, 64),
		register:   make(chan *client),
		unregister: make(chan *client),
		log:        logger,
	}
}

// Run drives the hub's registration and broadcast loop. It blocks and
// should be started in its own goroutine.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
		case msg := <-h.broadcast:
			h.mu.Lock()
			for c := range h.clients {
				select {
				case c.send <- msg:
				default:
					delete(h.clients, c)
					close(c.send)
				}
			}
			h.mu.Unlock()
		}
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Handler upgrades incoming connections and starts their write pump.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		c := &client{hub: h, conn: conn, send: make(chan []byte, 256)}
		h.register <- c
		go c.writePump()
		go c.readPump()
	}
}

func (h *Hub) encode(kind byte, index int) []byte {
	buf := make([]byte, 5)
	buf[0] = kind
	binary.BigEndian.PutUint32(buf[1:], uint32(index))
	return buf
}

// Start implements progress.Sink.
func (h *Hub) Start(index int) {
	select {
	case h.broadcast <- h.encode(kindStart, index):
	default:
	}
}

// Done implements progress.Sink.
func (h *Hub) Done(index int) {
	select {
	case h.broadcast <- h.encode(kindDone, index):
	default:
	}
}

// Checksum broadcasts the dump job's final global-checksum status.
func (h *Hub) Checksum(valid bool) {
	buf := h.encode(kindChecksum, 0)
	if valid {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	select {
	case h.broadcast <- buf:
	default:
	}
}
