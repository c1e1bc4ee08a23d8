package transport

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tezlink/tezlink/tzcrypto"
	"github.com/tezlink/tezlink/wire"
)

var testVersions = []wire.Version{{
	Name:       "TEZOS_MAINNET",
	DDBVersion: 1,
	P2PVersion: 1,
}}

// newTestConfig builds a handshake config with a fresh key pair. The
// proof-of-work difficulty is zero so no mining happens in tests that are
// not about the proof of work.
func newTestConfig(t *testing.T, versions []wire.Version) *Config {
	t.Helper()

	pk, sk, err := tzcrypto.GeneratePair(nil)
	require.NoError(t, err)

	return &Config{
		PublicKey: pk,
		SecretKey: sk,
		Versions:  versions,
	}
}

// exchangeConnMessages runs the unencrypted handshake round between two
// machines, a speaking first.
func exchangeConnMessages(t *testing.T, a, b *Machine) {
	t.Helper()

	frameA, err := a.GenConnMsg()
	require.NoError(t, err)
	frameB, err := b.GenConnMsg()
	require.NoError(t, err)

	require.NoError(t, a.RecvConnMsg(frameB[lengthHeaderSize:]))
	require.NoError(t, b.RecvConnMsg(frameA[lengthHeaderSize:]))

	require.True(t, a.Established())
	require.True(t, b.Established())
}

// TestSessionKeysCross asserts the two sides derive mirrored session
// keys: everything one sends, the other decrypts, in both directions and
// across multiple chunks.
func TestSessionKeysCross(t *testing.T) {
	t.Parallel()

	a := NewMachine(newTestConfig(t, testVersions))
	b := NewMachine(newTestConfig(t, testVersions))
	exchangeConnMessages(t, a, b)

	payloads := [][]byte{
		[]byte("first"),
		[]byte("second"),
		bytes.Repeat([]byte{0xab}, MaxPlaintextSize),
	}

	var wireBuf bytes.Buffer
	for _, p := range payloads {
		require.NoError(t, a.WriteMessage(p))
		_, err := a.Flush(&wireBuf)
		require.NoError(t, err)
	}
	for _, p := range payloads {
		got, err := b.ReadMessage(&wireBuf)
		require.NoError(t, err)
		require.Equal(t, p, got)
	}

	// And the reverse direction, which runs on the other key.
	require.NoError(t, b.WriteMessage([]byte("reply")))
	_, err := b.Flush(&wireBuf)
	require.NoError(t, err)

	got, err := a.ReadMessage(&wireBuf)
	require.NoError(t, err)
	require.Equal(t, []byte("reply"), got)
}

// TestNegotiatedVersion asserts both sides settle on the same version.
func TestNegotiatedVersion(t *testing.T) {
	t.Parallel()

	versionsA := []wire.Version{
		{Name: "TEZOS_MAINNET", DDBVersion: 1, P2PVersion: 1},
		{Name: "TEZOS_MAINNET", DDBVersion: 2, P2PVersion: 1},
	}
	versionsB := []wire.Version{
		{Name: "TEZOS_MAINNET", DDBVersion: 2, P2PVersion: 1},
	}

	a := NewMachine(newTestConfig(t, versionsA))
	b := NewMachine(newTestConfig(t, versionsB))
	exchangeConnMessages(t, a, b)

	require.Equal(t, versionsB[0], a.Version())
	require.Equal(t, versionsB[0], b.Version())
}

// TestNoCommonVersionFailsHandshake asserts disjoint version lists kill
// the handshake once both messages are in.
func TestNoCommonVersionFailsHandshake(t *testing.T) {
	t.Parallel()

	a := NewMachine(newTestConfig(t, testVersions))
	b := NewMachine(newTestConfig(t, []wire.Version{{
		Name: "TEZOS_SANDBOX", DDBVersion: 1, P2PVersion: 1,
	}}))

	frameA, err := a.GenConnMsg()
	require.NoError(t, err)
	frameB, err := b.GenConnMsg()
	require.NoError(t, err)

	require.ErrorIs(t, a.RecvConnMsg(frameB[lengthHeaderSize:]),
		ErrNoCommonVersion)
	require.ErrorIs(t, b.RecvConnMsg(frameA[lengthHeaderSize:]),
		ErrNoCommonVersion)
	require.False(t, a.Established())
}

// TestProofOfWorkEnforced asserts a peer whose stamp does not clear the
// local difficulty is refused before anything else happens.
func TestProofOfWorkEnforced(t *testing.T) {
	t.Parallel()

	a := NewMachine(newTestConfig(t, testVersions))

	cfgB := newTestConfig(t, testVersions)
	cfgB.PoWDifficulty = 64
	b := NewMachine(cfgB)

	frameA, err := a.GenConnMsg()
	require.NoError(t, err)

	err = b.RecvConnMsg(frameA[lengthHeaderSize:])
	require.ErrorIs(t, err, ErrBadProofOfWork)
	require.ErrorIs(t, err, ErrCryptoFailure)
}

// TestOwnKeyRejected asserts a peer presenting our own public key is
// refused; the key agreement would otherwise degenerate.
func TestOwnKeyRejected(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t, testVersions)
	a := NewMachine(cfg)
	b := NewMachine(cfg)

	frameB, err := b.GenConnMsg()
	require.NoError(t, err)

	require.ErrorIs(t, a.RecvConnMsg(frameB[lengthHeaderSize:]),
		ErrCryptoFailure)
}

// TestTamperedCiphertextRejected flips one ciphertext bit and expects the
// authentication tag to catch it.
func TestTamperedCiphertextRejected(t *testing.T) {
	t.Parallel()

	a := NewMachine(newTestConfig(t, testVersions))
	b := NewMachine(newTestConfig(t, testVersions))
	exchangeConnMessages(t, a, b)

	require.NoError(t, a.WriteMessage([]byte("payload")))
	var wireBuf bytes.Buffer
	_, err := a.Flush(&wireBuf)
	require.NoError(t, err)

	tampered := wireBuf.Bytes()
	tampered[len(tampered)-1] ^= 0x01

	_, err = b.ReadMessage(bytes.NewReader(tampered))
	require.ErrorIs(t, err, ErrCryptoFailure)
}

// TestReplayRejected asserts a recorded chunk cannot be replayed: the
// receive nonce has moved on.
func TestReplayRejected(t *testing.T) {
	t.Parallel()

	a := NewMachine(newTestConfig(t, testVersions))
	b := NewMachine(newTestConfig(t, testVersions))
	exchangeConnMessages(t, a, b)

	require.NoError(t, a.WriteMessage([]byte("once")))
	var wireBuf bytes.Buffer
	_, err := a.Flush(&wireBuf)
	require.NoError(t, err)
	recorded := append([]byte(nil), wireBuf.Bytes()...)

	_, err = b.ReadMessage(&wireBuf)
	require.NoError(t, err)

	_, err = b.ReadMessage(bytes.NewReader(recorded))
	require.ErrorIs(t, err, ErrCryptoFailure)
}

// TestChunkSizeEnforced asserts one chunk cannot carry more than the
// framing allows.
func TestChunkSizeEnforced(t *testing.T) {
	t.Parallel()

	a := NewMachine(newTestConfig(t, testVersions))
	b := NewMachine(newTestConfig(t, testVersions))
	exchangeConnMessages(t, a, b)

	err := a.WriteMessage(make([]byte, MaxPlaintextSize+1))
	require.ErrorIs(t, err, ErrMaxMessageLengthExceeded)
}

// TestUndersizedChunkRejected asserts a length header smaller than the
// authentication tag is refused without reading a body.
func TestUndersizedChunkRejected(t *testing.T) {
	t.Parallel()

	a := NewMachine(newTestConfig(t, testVersions))
	b := NewMachine(newTestConfig(t, testVersions))
	exchangeConnMessages(t, a, b)

	_, err := b.ReadMessage(bytes.NewReader([]byte{0x00, 0x05}))
	require.ErrorIs(t, err, ErrCryptoFailure)
}

// TestHandshakeOrderEnforced asserts the machine refuses operations out
// of sequence.
func TestHandshakeOrderEnforced(t *testing.T) {
	t.Parallel()

	m := NewMachine(newTestConfig(t, testVersions))

	// The encrypted channel is not up yet.
	require.ErrorIs(t, m.WriteMessage([]byte("early")),
		ErrHandshakeOutOfOrder)
	_, err := m.ReadHeader(bytes.NewReader([]byte{0x00, 0x20}))
	require.ErrorIs(t, err, ErrHandshakeOutOfOrder)

	// The connection message goes out exactly once.
	_, err = m.GenConnMsg()
	require.NoError(t, err)
	_, err = m.GenConnMsg()
	require.ErrorIs(t, err, ErrHandshakeOutOfOrder)
}

// TestFlushResumable asserts a failed write leaves the remaining
// ciphertext buffered, and a later flush picks up exactly where the
// previous one stopped.
func TestFlushResumable(t *testing.T) {
	t.Parallel()

	a := NewMachine(newTestConfig(t, testVersions))
	b := NewMachine(newTestConfig(t, testVersions))
	exchangeConnMessages(t, a, b)

	require.NoError(t, a.WriteMessage([]byte("split write")))

	// Drain the pending ciphertext through a writer that gives up after
	// a few bytes each time, the way a deadlined socket does.
	var wireBuf bytes.Buffer
	choke := &chokeWriter{w: &wireBuf, n: 3}
	for {
		_, err := a.Flush(choke)
		if err == nil {
			break
		}
		require.ErrorIs(t, err, errChoked)
	}

	got, err := b.ReadMessage(&wireBuf)
	require.NoError(t, err)
	require.Equal(t, []byte("split write"), got)
}

var errChoked = errors.New("write choked")

// chokeWriter passes through at most n bytes per Write and fails the
// call when asked for more.
type chokeWriter struct {
	w io.Writer
	n int
}

func (c *chokeWriter) Write(p []byte) (int, error) {
	if len(p) <= c.n {
		return c.w.Write(p)
	}
	n, err := c.w.Write(p[:c.n])
	if err != nil {
		return n, err
	}
	return n, errChoked
}
