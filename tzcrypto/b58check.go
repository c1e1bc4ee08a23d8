// Package tzcrypto holds the hash and key value types exchanged on the
// wire, their checksummed base58 textual forms, and the proof-of-work
// primitive used during connection establishment.
package tzcrypto

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcutil/base58"
)

// ErrChecksumMismatch signals that the trailing four checksum bytes of a
// base58 string do not match its payload. The string is corrupted or was
// never a valid encoding.
var ErrChecksumMismatch = errors.New("tzcrypto: invalid checksum")

// ErrUnknownPrefix signals that a base58 string decoded cleanly but does
// not start with the prefix required for the requested kind.
var ErrUnknownPrefix = errors.New("tzcrypto: unknown prefix")

// b58CheckEncode renders payload with the given kind prefix and a trailing
// four byte double-SHA256 checksum.
func b58CheckEncode(prefix, payload []byte) string {
	data := make([]byte, 0, len(prefix)+len(payload)+4)
	data = append(data, prefix...)
	data = append(data, payload...)

	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])

	return base58.Encode(append(data, second[:4]...))
}

// b58CheckDecode parses a checksummed base58 string, validates the
// checksum, strips the expected kind prefix and asserts the payload
// length. The checksum is verified before the prefix so corrupted text is
// reported as such rather than as the wrong kind.
func b58CheckDecode(s string, prefix []byte, payloadLen int) ([]byte, error) {
	decoded := base58.Decode(s)
	if len(decoded) < len(prefix)+payloadLen+4 {
		return nil, fmt.Errorf("tzcrypto: base58 payload too short: %w",
			ErrChecksumMismatch)
	}

	data, checksum := decoded[:len(decoded)-4], decoded[len(decoded)-4:]

	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	if !bytes.Equal(second[:4], checksum) {
		return nil, ErrChecksumMismatch
	}

	if !bytes.HasPrefix(data, prefix) {
		return nil, ErrUnknownPrefix
	}

	payload := data[len(prefix):]
	if len(payload) != payloadLen {
		return nil, fmt.Errorf("tzcrypto: payload of %d bytes, want "+
			"%d: %w", len(payload), payloadLen, ErrUnknownPrefix)
	}

	return payload, nil
}
