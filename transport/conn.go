package transport

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/tezlink/tezlink/codec"
	"github.com/tezlink/tezlink/tzcrypto"
	"github.com/tezlink/tezlink/wire"
)

// DefaultHandshakeTimeout bounds connection establishment: both the
// unencrypted exchange and the encrypted metadata/ack round trips must
// finish within it. A timeout is reported like any other handshake
// failure and the attempt is never retried internally.
const DefaultHandshakeTimeout = 10 * time.Second

// Conn is an implementation of net.Conn which enforces the authenticated
// key exchange and encrypted chunking scheme after initial TCP
// establishment. Stream reads and writes via Read/Write transparently
// cross chunk boundaries; message-oriented callers use ReadNextMessage
// and WriteMessage instead.
type Conn struct {
	conn net.Conn

	machine *Machine

	// readBuf holds plaintext handed out by stream Reads.
	readBuf bytes.Buffer

	// msgBuf reassembles logical messages that span chunks.
	msgBuf []byte

	remoteMeta *wire.Metadata
}

// A compile-time assertion to ensure that Conn meets the net.Conn
// interface.
var _ net.Conn = (*Conn)(nil)

// Dial establishes an encrypted, authenticated connection to the peer at
// address, running the complete handshake under the given timeout. On any
// handshake failure the TCP connection is closed and the error returned;
// nothing is retried.
func Dial(cfg *Config, address string, timeout time.Duration) (*Conn, error) {
	if timeout <= 0 {
		timeout = DefaultHandshakeTimeout
	}

	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, err
	}

	c := &Conn{
		conn:    conn,
		machine: NewMachine(cfg),
	}
	if err := c.handshake(cfg, true, timeout); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

// handshake drives the full connection establishment over the underlying
// socket: connection messages in the clear, then metadata and ack over
// the freshly keyed channel. The initiator speaks first on each round.
func (c *Conn) handshake(cfg *Config, initiator bool,
	timeout time.Duration) error {

	if err := c.conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return err
	}

	sendConn := func() error {
		frame, err := c.machine.GenConnMsg()
		if err != nil {
			return err
		}
		_, err = c.conn.Write(frame)
		return err
	}
	recvConn := func() error {
		var header [lengthHeaderSize]byte
		if _, err := io.ReadFull(c.conn, header[:]); err != nil {
			return err
		}
		payload := make([]byte, binary.BigEndian.Uint16(header[:]))
		if _, err := io.ReadFull(c.conn, payload); err != nil {
			return err
		}
		return c.machine.RecvConnMsg(payload)
	}

	first, second := sendConn, recvConn
	if !initiator {
		first, second = recvConn, sendConn
	}
	if err := first(); err != nil {
		return err
	}
	if err := second(); err != nil {
		return err
	}

	// The channel is keyed; exchange metadata.
	meta, err := wire.EncodeMetadata(&cfg.Metadata)
	if err != nil {
		return err
	}
	if err := c.writeChunk(meta); err != nil {
		return err
	}
	remoteMetaRaw, err := c.machine.ReadMessage(c.conn)
	if err != nil {
		return err
	}
	remoteMeta, err := wire.DecodeMetadata(remoteMetaRaw)
	if err != nil {
		return err
	}
	c.remoteMeta = remoteMeta

	// Finally the ack round. We always accept at this layer; policy
	// refusals (too many connections, already connected) belong to the
	// peer manager driving us.
	ack, err := wire.EncodeAck(wire.AckOK{})
	if err != nil {
		return err
	}
	if err := c.writeChunk(ack); err != nil {
		return err
	}
	remoteAckRaw, err := c.machine.ReadMessage(c.conn)
	if err != nil {
		return err
	}
	remoteAck, err := wire.DecodeAck(remoteAckRaw)
	if err != nil {
		return err
	}

	switch a := remoteAck.(type) {
	case wire.AckOK:

	case wire.Nack:
		return &RejectedError{
			Motive:         a.Motive,
			PotentialPeers: a.PotentialPeers,
		}
	case wire.NackV0:
		return &RejectedError{Motive: wire.NackNoMotive}
	default:
		return fmt.Errorf("%w: unexpected ack variant",
			ErrCryptoFailure)
	}

	if err := c.conn.SetDeadline(time.Time{}); err != nil {
		return err
	}

	log.Debugf("Handshake with %v complete: peer=%v, version=%v",
		c.conn.RemoteAddr(), c.RemotePeerID(), c.machine.Version())

	return nil
}

// writeChunk encrypts one chunk payload and pushes it onto the wire.
func (c *Conn) writeChunk(p []byte) error {
	if err := c.machine.WriteMessage(p); err != nil {
		return err
	}
	_, err := c.machine.Flush(c.conn)
	return err
}

// ReadNextMessage reads chunks off the wire until the reassembly buffer
// holds the complete logical message its length prefix declares, then
// decodes and returns it. Any codec failure other than awaiting more
// bytes is fatal to the connection.
func (c *Conn) ReadNextMessage() (wire.Message, error) {
	for {
		total, err := wire.MessageLength(c.msgBuf)
		switch {
		case err == nil && len(c.msgBuf) >= total:
			msg, n, err := wire.ReadMessage(c.msgBuf)
			if err != nil {
				return nil, err
			}
			c.msgBuf = c.msgBuf[n:]

			log.Tracef("Received %v from %v: %v", msg.MsgType(),
				c.conn.RemoteAddr(), spewLogClosure(msg))
			return msg, nil

		case err != nil && !errors.Is(err, codec.ErrTruncated):
			return nil, err
		}

		plaintext, err := c.machine.ReadMessage(c.conn)
		if err != nil {
			return nil, err
		}
		c.msgBuf = append(c.msgBuf, plaintext...)
	}
}

// WriteMessage serializes msg into its logical frame and writes it out,
// split across as many chunks as the frame requires.
func (c *Conn) WriteMessage(msg wire.Message) error {
	frame, err := wire.WriteMessage(msg)
	if err != nil {
		return err
	}

	log.Tracef("Sending %v to %v: %v", msg.MsgType(),
		c.conn.RemoteAddr(), spewLogClosure(msg))

	for len(frame) > 0 {
		chunk := frame
		if len(chunk) > MaxPlaintextSize {
			chunk = chunk[:MaxPlaintextSize]
		}
		if err := c.writeChunk(chunk); err != nil {
			return err
		}
		frame = frame[len(chunk):]
	}
	return nil
}

// Read reads data from the connection. To reconcile the chunk
// abstraction of the encrypted channel with the stream abstraction of
// TCP, an intermediate buffer holds any plaintext beyond what the caller
// asked for.
//
// Part of the net.Conn interface.
func (c *Conn) Read(b []byte) (int, error) {
	// An empty chunk is legal on the wire and carries no plaintext, so
	// keep reading until something lands in the buffer.
	for c.readBuf.Len() == 0 {
		plaintext, err := c.machine.ReadMessage(c.conn)
		if err != nil {
			return 0, err
		}
		if _, err := c.readBuf.Write(plaintext); err != nil {
			return 0, err
		}
	}
	return c.readBuf.Read(b)
}

// Write writes data to the connection, fragmenting as needed to respect
// the maximum chunk payload.
//
// Part of the net.Conn interface.
func (c *Conn) Write(b []byte) (int, error) {
	written := 0
	for written < len(b) {
		chunk := b[written:]
		if len(chunk) > MaxPlaintextSize {
			chunk = chunk[:MaxPlaintextSize]
		}
		if err := c.writeChunk(chunk); err != nil {
			return written, err
		}
		written += len(chunk)
	}
	return written, nil
}

// Close closes the connection. Session state dies with it; nonces are
// never reused across connections.
//
// Part of the net.Conn interface.
func (c *Conn) Close() error {
	return c.conn.Close()
}

// LocalAddr returns the local network address.
//
// Part of the net.Conn interface.
func (c *Conn) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

// RemoteAddr returns the remote network address.
//
// Part of the net.Conn interface.
func (c *Conn) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}

// SetDeadline sets the read and write deadlines associated with the
// connection.
//
// Part of the net.Conn interface.
func (c *Conn) SetDeadline(t time.Time) error {
	return c.conn.SetDeadline(t)
}

// SetReadDeadline sets the deadline for future Read calls.
//
// Part of the net.Conn interface.
func (c *Conn) SetReadDeadline(t time.Time) error {
	return c.conn.SetReadDeadline(t)
}

// SetWriteDeadline sets the deadline for future Write calls.
//
// Part of the net.Conn interface.
func (c *Conn) SetWriteDeadline(t time.Time) error {
	return c.conn.SetWriteDeadline(t)
}

// RemotePub returns the peer's session public key.
func (c *Conn) RemotePub() tzcrypto.PublicKey {
	return c.machine.RemoteConnMsg().PublicKey
}

// RemotePeerID returns the peer's identity hash.
func (c *Conn) RemotePeerID() tzcrypto.PeerID {
	return c.RemotePub().PeerID()
}

// RemoteMetadata returns the peer's connection metadata.
func (c *Conn) RemoteMetadata() wire.Metadata {
	return *c.remoteMeta
}

// Version returns the protocol version negotiated with the peer.
func (c *Conn) Version() wire.Version {
	return c.machine.Version()
}
