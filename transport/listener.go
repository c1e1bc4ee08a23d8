package transport

import (
	"net"
)

// Listener is an implementation of net.Listener which executes the
// responder side of the handshake on every accepted connection before
// handing it out.
type Listener struct {
	cfg *Config

	tcp *net.TCPListener
}

// A compile-time assertion to ensure that Listener meets the net.Listener
// interface.
var _ net.Listener = (*Listener)(nil)

// NewListener binds a TCP listener on listenAddr that enforces the
// encrypted transport scheme on every accepted connection.
func NewListener(cfg *Config, listenAddr string) (*Listener, error) {
	addr, err := net.ResolveTCPAddr("tcp", listenAddr)
	if err != nil {
		return nil, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return nil, err
	}

	return &Listener{
		cfg: cfg,
		tcp: l,
	}, nil
}

// Accept waits for the next connection and runs the responder handshake
// on it under the default timeout. A connection whose handshake fails is
// closed and the failure returned; the listener itself stays usable.
//
// Part of the net.Listener interface.
func (l *Listener) Accept() (net.Conn, error) {
	conn, err := l.tcp.Accept()
	if err != nil {
		return nil, err
	}

	c := &Conn{
		conn:    conn,
		machine: NewMachine(l.cfg),
	}
	if err := c.handshake(l.cfg, false, DefaultHandshakeTimeout); err != nil {
		conn.Close()
		log.Debugf("Handshake with %v failed: %v",
			conn.RemoteAddr(), err)
		return nil, err
	}

	return c, nil
}

// Close closes the listener. Any blocked Accept operations will be
// unblocked and return errors.
//
// Part of the net.Listener interface.
func (l *Listener) Close() error {
	return l.tcp.Close()
}

// Addr returns the listener's network address.
//
// Part of the net.Listener interface.
func (l *Listener) Addr() net.Addr {
	return l.tcp.Addr()
}
