// Package transport implements the authenticated encryption layer that
// wraps every peer connection: an unencrypted connection-message exchange
// with proof-of-work and version negotiation, session-key derivation from
// an X25519 key agreement, and chunked AEAD framing with strictly
// increasing per-direction nonces.
package transport

import (
	"bytes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/tezlink/tezlink/tzcrypto"
	"github.com/tezlink/tezlink/wire"
)

const (
	// lengthHeaderSize is the number of bytes used to prefix encode the
	// length of a chunk's ciphertext.
	lengthHeaderSize = 2

	// macSize is the length in bytes of the tags generated by poly1305.
	macSize = 16

	// maxChunkSize is the largest ciphertext (including tag) that fits
	// behind the two byte length header.
	maxChunkSize = 65535

	// MaxPlaintextSize is the largest plaintext a single chunk can
	// carry.
	MaxPlaintextSize = maxChunkSize - macSize

	// sessionKeyInfo seeds the HKDF expansion of the shared secret.
	sessionKeyInfo = "tezlink p2p session keys"
)

// ErrCryptoFailure is the terminal failure class of this layer: an
// authentication tag mismatch, a rejected proof of work, or a failed
// version negotiation. A connection that produced it must be closed; the
// session state is never reused.
var ErrCryptoFailure = errors.New("transport: cryptographic failure")

// ErrBadProofOfWork signals that the peer's stamp does not clear the
// configured difficulty.
var ErrBadProofOfWork = fmt.Errorf("%w: proof of work below difficulty",
	ErrCryptoFailure)

// ErrNoCommonVersion signals that the two version lists do not intersect.
var ErrNoCommonVersion = fmt.Errorf("%w: no common protocol version",
	ErrCryptoFailure)

// ErrMaxMessageLengthExceeded is returned when a single chunk payload
// exceeds what the framing can carry.
var ErrMaxMessageLengthExceeded = errors.New("transport: chunk payload " +
	"exceeds maximum")

// ErrHandshakeOutOfOrder signals a Machine method called in the wrong
// handshake state. This is a local usage error.
var ErrHandshakeOutOfOrder = errors.New("transport: handshake operation " +
	"out of order")

// RejectedError is returned when the peer answers the handshake with a
// Nack. It carries the motive and any alternative peers the refuser
// advertised.
type RejectedError struct {
	// Motive is the refusal reason, NackNoMotive for a bare refusal.
	Motive wire.NackMotive

	// PotentialPeers lists addresses the refuser suggested instead.
	PotentialPeers []string
}

// Error returns a human readable description of the refusal.
func (e *RejectedError) Error() string {
	return fmt.Sprintf("transport: connection rejected: %v", e.Motive)
}

// handshakeState tracks a Machine through connection establishment.
type handshakeState int

const (
	stateStart handshakeState = iota
	stateKeysExchanged
	stateVersionNegotiated
	stateSessionKeysDerived
	stateEstablished
	stateFailed
)

// cipherState owns one direction of a session: the 32 byte session key
// and the strictly increasing nonce counter fed into the AEAD. A nonce
// value is consumed exactly once; decryption failure leaves the counter
// untouched since the connection is torn down anyway.
type cipherState struct {
	nonce     uint64
	secretKey [32]byte
	aead      cipher.AEAD
}

// InitializeKey arms the cipher state with a fresh session key, resetting
// the nonce counter to zero.
func (c *cipherState) InitializeKey(key [32]byte) error {
	c.secretKey = key
	c.nonce = 0

	aead, err := chacha20poly1305.New(c.secretKey[:])
	if err != nil {
		return err
	}
	c.aead = aead
	return nil
}

// nonceBytes renders the current counter as the 96 bit AEAD nonce: four
// zero bytes followed by the little-endian counter.
func (c *cipherState) nonceBytes() [chacha20poly1305.NonceSize]byte {
	var nonce [chacha20poly1305.NonceSize]byte
	binary.LittleEndian.PutUint64(nonce[4:], c.nonce)
	return nonce
}

// Encrypt seals plaintext under the current nonce, appending to dst, then
// advances the counter.
func (c *cipherState) Encrypt(dst, plaintext []byte) []byte {
	nonce := c.nonceBytes()
	out := c.aead.Seal(dst, nonce[:], plaintext, nil)
	c.nonce++
	return out
}

// Decrypt opens ciphertext under the current nonce, appending to dst. The
// counter advances only on success.
func (c *cipherState) Decrypt(dst, ciphertext []byte) ([]byte, error) {
	nonce := c.nonceBytes()
	out, err := c.aead.Open(dst, nonce[:], ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoFailure, err)
	}
	c.nonce++
	return out, nil
}

// Config carries everything a Machine needs to run the handshake.
type Config struct {
	// PublicKey and SecretKey are the node's long-term X25519 identity
	// pair.
	PublicKey tzcrypto.PublicKey
	SecretKey tzcrypto.SecretKey

	// PoWStamp is the stamp mined over PublicKey.
	PoWStamp tzcrypto.PoWStamp

	// PoWDifficulty is the number of leading zero bits required of the
	// peer's proof of work.
	PoWDifficulty int

	// Versions lists the protocol versions this node speaks.
	Versions []wire.Version

	// Port is the advertised listening port, zero when not listening.
	Port uint16

	// Metadata is the connection metadata sent once keys are live.
	Metadata wire.Metadata
}

// Machine is the per-connection handshake and encryption state machine.
// It performs no network I/O of its own: the caller feeds it bytes and
// writes out what it produces. A Machine is not safe for concurrent use;
// the send and receive paths must each have a single owner.
type Machine struct {
	state handshakeState

	cfg *Config

	// localNonce is this connection's random nonce, drawn when the
	// connection message is generated.
	localNonce tzcrypto.Nonce

	sentConn bool

	// remote is the peer's connection message, kept for key derivation
	// and for callers that inspect the peer's identity.
	remote *wire.ConnectionMessage

	// version is the negotiated protocol version.
	version wire.Version

	sendCipher cipherState
	recvCipher cipherState

	// pending holds ciphertext framed and awaiting Flush. A short write
	// leaves the tail here so a later Flush can resume.
	pending bytes.Buffer

	// nextChunkLen carries the ciphertext length between ReadHeader and
	// ReadBody.
	nextChunkLen uint16
}

// NewMachine creates a handshake machine in the Start state.
func NewMachine(cfg *Config) *Machine {
	return &Machine{
		state: stateStart,
		cfg:   cfg,
	}
}

// GenConnMsg produces this side's unencrypted connection message frame:
// two bytes of big-endian payload length followed by the payload. It may
// be called exactly once.
func (m *Machine) GenConnMsg() ([]byte, error) {
	if m.state != stateStart && m.state != stateKeysExchanged {
		return nil, ErrHandshakeOutOfOrder
	}
	if m.sentConn {
		return nil, ErrHandshakeOutOfOrder
	}

	nonce, err := tzcrypto.GenerateNonce()
	if err != nil {
		m.state = stateFailed
		return nil, err
	}
	m.localNonce = nonce

	frame, err := wire.EncodeConnectionMessage(&wire.ConnectionMessage{
		Port:      m.cfg.Port,
		PublicKey: m.cfg.PublicKey,
		PoWStamp:  m.cfg.PoWStamp,
		Nonce:     m.localNonce,
		Versions:  m.cfg.Versions,
	})
	if err != nil {
		m.state = stateFailed
		return nil, err
	}

	m.sentConn = true
	if m.remote != nil {
		return frame, m.completeKeyExchange()
	}
	return frame, nil
}

// RecvConnMsg consumes the peer's connection message payload (without the
// two byte length prefix). The proof of work is checked before anything
// else is trusted. Once both sides' messages are in, the version is
// negotiated and the session keys derived.
func (m *Machine) RecvConnMsg(payload []byte) error {
	if m.state != stateStart || m.remote != nil {
		return ErrHandshakeOutOfOrder
	}

	remote, err := wire.DecodeConnectionMessage(payload)
	if err != nil {
		m.state = stateFailed
		return err
	}

	if !tzcrypto.CheckProofOfWork(
		remote.PublicKey, remote.PoWStamp, m.cfg.PoWDifficulty,
	) {
		m.state = stateFailed
		return ErrBadProofOfWork
	}

	if remote.PublicKey == m.cfg.PublicKey {
		// Either a self-dial or a replay of our own message.
		m.state = stateFailed
		return fmt.Errorf("%w: peer presented our own key",
			ErrCryptoFailure)
	}

	m.remote = remote
	if m.sentConn {
		return m.completeKeyExchange()
	}
	return nil
}

// completeKeyExchange runs once both connection messages are in: version
// negotiation, then session-key derivation.
func (m *Machine) completeKeyExchange() error {
	m.state = stateKeysExchanged

	version, ok := wire.SelectVersion(m.cfg.Versions, m.remote.Versions)
	if !ok {
		m.state = stateFailed
		return ErrNoCommonVersion
	}
	m.version = version
	m.state = stateVersionNegotiated

	if err := m.deriveSessionKeys(); err != nil {
		m.state = stateFailed
		return err
	}
	m.state = stateSessionKeysDerived

	// Nothing further gates the encrypted channel at this layer; the
	// metadata and ack exchange rides on it.
	m.state = stateEstablished
	return nil
}

// deriveSessionKeys expands the X25519 shared secret into the two
// directional keys. The expansion is salted with the BLAKE2b digest of
// the two public keys in lexicographic order, so both sides compute the
// same 64 byte block; the side holding the smaller key sends with the
// first half. Swap in the network's reference vectors here when wiring a
// new target network.
func (m *Machine) deriveSessionKeys() error {
	secret, err := tzcrypto.SharedSecret(
		m.cfg.SecretKey, m.remote.PublicKey,
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCryptoFailure, err)
	}

	local, remote := m.cfg.PublicKey, m.remote.PublicKey
	lo, hi := local, remote
	localIsLow := bytes.Compare(local[:], remote[:]) < 0
	if !localIsLow {
		lo, hi = remote, local
	}

	salt, err := blake2b.New256(nil)
	if err != nil {
		return err
	}
	salt.Write(lo[:])
	salt.Write(hi[:])

	var keys [2 * tzcrypto.KeySize]byte
	expand := hkdf.New(
		sha256.New, secret[:], salt.Sum(nil), []byte(sessionKeyInfo),
	)
	if _, err := io.ReadFull(expand, keys[:]); err != nil {
		return err
	}

	var keyA, keyB [tzcrypto.KeySize]byte
	copy(keyA[:], keys[:tzcrypto.KeySize])
	copy(keyB[:], keys[tzcrypto.KeySize:])

	sendKey, recvKey := keyA, keyB
	if !localIsLow {
		sendKey, recvKey = keyB, keyA
	}

	if err := m.sendCipher.InitializeKey(sendKey); err != nil {
		return err
	}
	return m.recvCipher.InitializeKey(recvKey)
}

// Version returns the negotiated protocol version.
func (m *Machine) Version() wire.Version {
	return m.version
}

// RemoteConnMsg returns the peer's connection message.
func (m *Machine) RemoteConnMsg() *wire.ConnectionMessage {
	return m.remote
}

// Established reports whether the session keys are live.
func (m *Machine) Established() bool {
	return m.state == stateEstablished
}

// WriteMessage encrypts and frames one chunk payload into the internal
// buffer. The ciphertext is not written out until Flush; callers that
// need back-to-back chunks call WriteMessage/Flush in pairs.
func (m *Machine) WriteMessage(p []byte) error {
	if m.state != stateEstablished {
		return ErrHandshakeOutOfOrder
	}
	if len(p) > MaxPlaintextSize {
		return ErrMaxMessageLengthExceeded
	}

	var header [lengthHeaderSize]byte
	binary.BigEndian.PutUint16(header[:], uint16(len(p)+macSize))
	m.pending.Write(header[:])

	m.pending.Write(m.sendCipher.Encrypt(nil, p))
	return nil
}

// Flush writes any buffered ciphertext to w, returning the number of
// bytes written. A timeout mid-write leaves the remainder buffered, and a
// subsequent Flush resumes where the last one stopped so no framed bytes
// are dropped or repeated.
func (m *Machine) Flush(w io.Writer) (int, error) {
	n, err := m.pending.WriteTo(w)
	return int(n), err
}

// ReadHeader consumes a chunk length header from r and remembers the
// ciphertext length for the matching ReadBody call.
func (m *Machine) ReadHeader(r io.Reader) (uint16, error) {
	if m.state != stateEstablished {
		return 0, ErrHandshakeOutOfOrder
	}

	var header [lengthHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, err
	}

	chunkLen := binary.BigEndian.Uint16(header[:])
	if chunkLen < macSize {
		return 0, fmt.Errorf("%w: chunk of %d bytes is shorter than "+
			"its tag", ErrCryptoFailure, chunkLen)
	}

	m.nextChunkLen = chunkLen
	return chunkLen, nil
}

// ReadBody consumes and decrypts the ciphertext announced by the previous
// ReadHeader, returning the chunk's plaintext.
func (m *Machine) ReadBody(r io.Reader) ([]byte, error) {
	ciphertext := make([]byte, m.nextChunkLen)
	if _, err := io.ReadFull(r, ciphertext); err != nil {
		return nil, err
	}

	return m.recvCipher.Decrypt(nil, ciphertext)
}

// ReadMessage reads one complete chunk from r and returns its plaintext.
func (m *Machine) ReadMessage(r io.Reader) ([]byte, error) {
	if _, err := m.ReadHeader(r); err != nil {
		return nil, err
	}
	return m.ReadBody(r)
}
