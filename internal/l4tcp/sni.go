package l4tcp

import (
	"crypto/tls"
	"errors"
	"net"
)

// errSNIPeeked is returned deliberately from GetConfigForClient once the
// ClientHello has been parsed, aborting the handshake before any bytes are
// sent back to the client — TrafficCop never terminates TLS for a
// passthrough TCP router, it only needs to read the SNI extension to route.
var errSNIPeeked = errors.New("l4tcp: sni captured, aborting fake handshake")

// peekConn records every byte net.Conn.Read returns so the bytes consumed
// by the abandoned TLS handshake can be replayed to whichever upstream the
// SNI match picks.
type peekConn struct {
	net.Conn
	recorded []byte
}

func (c *peekConn) Read(b []byte) (int, error) {
	n, err := c.Conn.Read(b)
	if n > 0 {
		c.recorded = append(c.recorded, b[:n]...)
	}
	return n, err
}

func (c *peekConn) Write([]byte) (int, error) {
	return 0, errors.New("l4tcp: peekConn does not support writes")
}

// peekSNI performs a throwaway TLS handshake against conn, capturing the
// ClientHello's ServerName before intentionally failing, then returns the
// SNI and the raw bytes read so far so the caller can replay them verbatim
// to the real upstream connection.
func peekSNI(conn net.Conn) (sni string, replay []byte, err error) {
	pc := &peekConn{Conn: conn}
	srv := tls.Server(pc, &tls.Config{
		GetConfigForClient: func(hello *tls.ClientHelloInfo) (*tls.Config, error) {
			sni = hello.ServerName
			return nil, errSNIPeeked
		},
	})
	handshakeErr := srv.Handshake()
	if !errors.Is(handshakeErr, errSNIPeeked) {
		return "", pc.recorded, handshakeErr
	}
	return sni, pc.recorded, nil
}

// replayConn prefixes a net.Conn's Read stream with bytes already consumed
// by peekSNI, so the rest of the connection reads exactly as if no peek had
// happened.
type replayConn struct {
	net.Conn
	buf []byte
}

func newReplayConn(conn net.Conn, buf []byte) net.Conn {
	if len(buf) == 0 {
		return conn
	}
	return &replayConn{Conn: conn, buf: buf}
}

func (c *replayConn) Read(b []byte) (int, error) {
	if len(c.buf) > 0 {
		n := copy(b, c.buf)
		c.buf = c.buf[n:]
		if len(c.buf) == 0 {
			c.buf = nil
		}
		return n, nil
	}
	return c.Conn.Read(b)
}
