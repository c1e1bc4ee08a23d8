package tzcrypto

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/curve25519"
)

// KeySize is the size of the X25519 keys and derived session keys.
const KeySize = 32

// NonceSize is the size of the random nonce carried in a connection
// message.
const NonceSize = 24

// PublicKey is an X25519 public key used for the per-connection key
// exchange.
type PublicKey [KeySize]byte

// SecretKey is the matching X25519 secret key.
type SecretKey [KeySize]byte

// Nonce is the random per-connection value carried in a connection
// message.
type Nonce [NonceSize]byte

// String returns the hex form of the public key.
func (p PublicKey) String() string {
	return hex.EncodeToString(p[:])
}

// PeerID derives the peer identity from the public key: its 16 byte
// BLAKE2b digest.
func (p PublicKey) PeerID() PeerID {
	h, _ := blake2b.New(PeerIDSize, nil)
	h.Write(p[:])

	var id PeerID
	copy(id[:], h.Sum(nil))
	return id
}

// Public derives the public key matching the secret key.
func (s SecretKey) Public() (PublicKey, error) {
	pkBytes, err := curve25519.X25519(s[:], curve25519.Basepoint)
	if err != nil {
		return PublicKey{}, err
	}

	var pk PublicKey
	copy(pk[:], pkBytes)
	return pk, nil
}

// NewPublicKey builds a PublicKey from raw bytes.
func NewPublicKey(b []byte) (PublicKey, error) {
	var p PublicKey
	err := copyExact(p[:], b, "public key")
	return p, err
}

// ParsePublicKey parses a hex encoded public key.
func ParsePublicKey(s string) (PublicKey, error) {
	raw, err := hex.DecodeString(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("tzcrypto: invalid public "+
			"key hex: %w", err)
	}
	return NewPublicKey(raw)
}

// GeneratePair produces a fresh X25519 key pair from the given entropy
// source, defaulting to crypto/rand when nil.
func GeneratePair(r io.Reader) (PublicKey, SecretKey, error) {
	if r == nil {
		r = rand.Reader
	}

	var sk SecretKey
	if _, err := io.ReadFull(r, sk[:]); err != nil {
		return PublicKey{}, SecretKey{}, err
	}

	pk, err := sk.Public()
	if err != nil {
		return PublicKey{}, SecretKey{}, err
	}
	return pk, sk, nil
}

// SharedSecret runs the X25519 agreement between a local secret key and a
// remote public key. Both sides of a connection derive the same value.
func SharedSecret(sk SecretKey, pk PublicKey) ([KeySize]byte, error) {
	var secret [KeySize]byte

	out, err := curve25519.X25519(sk[:], pk[:])
	if err != nil {
		return secret, err
	}

	copy(secret[:], out)
	return secret, nil
}

// GenerateNonce draws a random connection nonce.
func GenerateNonce() (Nonce, error) {
	var n Nonce
	_, err := io.ReadFull(rand.Reader, n[:])
	return n, err
}
