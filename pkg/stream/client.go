package stream

import (
	"net"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sys/unix"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			c.hub.log.Debugf("gui client rtt=%s", c.rtt())
		}
	}
}

// readPump discards any message the GUI sends (the protocol is
// server-to-client only) but must run so gorilla/websocket processes
// control frames and notices a closed connection.
func (c *client) readPump() {
	defer func() {
		c.hub.unregister <- c
	}()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// rtt reports the underlying TCP connection's smoothed round-trip time,
// for diagnosing a slow GUI client. Returns 0 if the connection isn't a
// plain TCP socket (e.g. behind a proxy terminating TLS).
func (c *client) rtt() time.Duration {
	tcpConn, ok := c.conn.UnderlyingConn().(*net.TCPConn)
	if !ok {
		return 0
	}

	raw, err := tcpConn.SyscallConn()
	if err != nil {
		return 0
	}

	var info *unix.TCPInfo
	ctrlErr := raw.Control(func(fd uintptr) {
		info, err = unix.GetsockoptTCPInfo(int(fd), unix.IPPROTO_TCP, unix.TCP_INFO)
	})
	if ctrlErr != nil || err != nil || info == nil {
		return 0
	}
	return time.Duration(info.Rtt) * time.Microsecond
}
