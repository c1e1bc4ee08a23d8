package tzcrypto

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"io"
	"math/bits"

	"golang.org/x/crypto/blake2b"
)

// PoWStampSize is the size of the proof-of-work stamp carried in a
// connection message.
const PoWStampSize = 24

// DefaultPoWDifficulty is the number of leading zero bits the default
// network expects of BLAKE2b(public key ‖ stamp).
const DefaultPoWDifficulty = 26

// PoWStamp is a value mined so that the hash of the public key followed by
// the stamp clears a difficulty target. It deters trivial connection spam:
// minting an identity costs work, verifying one costs a single hash.
type PoWStamp [PoWStampSize]byte

// NewPoWStamp builds a PoWStamp from raw bytes.
func NewPoWStamp(b []byte) (PoWStamp, error) {
	var s PoWStamp
	err := copyExact(s[:], b, "proof-of-work stamp")
	return s, err
}

// powDigest hashes the material covered by the proof of work.
func powDigest(pk PublicKey, stamp PoWStamp) [32]byte {
	var buf [KeySize + PoWStampSize]byte
	copy(buf[:KeySize], pk[:])
	copy(buf[KeySize:], stamp[:])
	return blake2b.Sum256(buf[:])
}

// leadingZeroBits counts the zero bits at the front of the digest.
func leadingZeroBits(digest [32]byte) int {
	n := 0
	for _, b := range digest {
		if b == 0 {
			n += 8
			continue
		}
		n += bits.LeadingZeros8(b)
		break
	}
	return n
}

// CheckProofOfWork reports whether the stamp clears the difficulty target
// for the given public key.
func CheckProofOfWork(pk PublicKey, stamp PoWStamp, difficulty int) bool {
	return leadingZeroBits(powDigest(pk, stamp)) >= difficulty
}

// MinePoWStamp searches for a stamp clearing the difficulty target for the
// given public key. The search starts from a random point and increments a
// counter in the stamp's trailing bytes, checking ctx between attempts so
// a caller can abandon the mine.
func MinePoWStamp(ctx context.Context, pk PublicKey,
	difficulty int) (PoWStamp, error) {

	var stamp PoWStamp
	if _, err := io.ReadFull(rand.Reader, stamp[:]); err != nil {
		return PoWStamp{}, err
	}

	counter := binary.BigEndian.Uint64(stamp[PoWStampSize-8:])
	for i := 0; ; i++ {
		// Poll for cancellation every few thousand attempts; a
		// select per hash would dominate the loop.
		if i&0xfff == 0 {
			select {
			case <-ctx.Done():
				return PoWStamp{}, ctx.Err()
			default:
			}
		}

		binary.BigEndian.PutUint64(stamp[PoWStampSize-8:], counter)
		if CheckProofOfWork(pk, stamp, difficulty) {
			return stamp, nil
		}
		counter++
	}
}
