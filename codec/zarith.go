package codec

import (
	"fmt"
	"math/big"
)

// Zarith variable-length integers pack seven value bits per byte, least
// significant group first, with the high bit of each byte acting as a
// continuation flag. The signed form additionally reserves bit six of the
// first byte for the sign, leaving that byte with six value bits.

// N returns the codec for an arbitrary-precision non-negative integer.
func N() Codec[*big.Int] {
	return codecFns[*big.Int]{
		write: writeN,
		read:  readN,
	}
}

// Z returns the codec for an arbitrary-precision signed integer.
func Z() Codec[*big.Int] {
	return codecFns[*big.Int]{
		write: writeZ,
		read:  readZ,
	}
}

func writeN(w *Writer, v *big.Int) error {
	if v == nil || v.Sign() < 0 {
		return fmt.Errorf("%w: natural must be non-negative",
			ErrSchemaMismatch)
	}

	n := new(big.Int).Set(v)
	for {
		var b byte
		if len(n.Bits()) > 0 {
			b = byte(n.Bits()[0] & 0x7f)
		}
		n.Rsh(n, 7)
		if n.Sign() != 0 {
			w.WriteByte(b | 0x80)
			continue
		}
		w.WriteByte(b)
		return nil
	}
}

func readN(r *Reader) (*big.Int, error) {
	v := new(big.Int)
	shift := uint(0)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}

		group := new(big.Int).SetUint64(uint64(b & 0x7f))
		v.Or(v, group.Lsh(group, shift))

		if b&0x80 == 0 {
			// A zero final byte after at least one prior byte
			// means the value could have been encoded shorter.
			if b == 0 && shift > 0 {
				return nil, fmt.Errorf("%w: non-canonical "+
					"natural", ErrMalformed)
			}
			return v, nil
		}
		shift += 7
	}
}

func writeZ(w *Writer, v *big.Int) error {
	if v == nil {
		return fmt.Errorf("%w: nil integer", ErrSchemaMismatch)
	}

	n := new(big.Int).Abs(v)

	// First byte: continuation flag, sign bit, six value bits.
	var b byte
	if len(n.Bits()) > 0 {
		b = byte(n.Bits()[0] & 0x3f)
	}
	if v.Sign() < 0 {
		b |= 0x40
	}
	n.Rsh(n, 6)

	if n.Sign() == 0 {
		w.WriteByte(b)
		return nil
	}
	w.WriteByte(b | 0x80)

	for {
		g := byte(n.Bits()[0] & 0x7f)
		n.Rsh(n, 7)
		if n.Sign() != 0 {
			w.WriteByte(g | 0x80)
			continue
		}
		w.WriteByte(g)
		return nil
	}
}

func readZ(r *Reader) (*big.Int, error) {
	first, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	v := new(big.Int).SetUint64(uint64(first & 0x3f))
	negative := first&0x40 != 0
	shift := uint(6)

	if first&0x80 != 0 {
		for {
			b, err := r.ReadByte()
			if err != nil {
				return nil, err
			}

			group := new(big.Int).SetUint64(uint64(b & 0x7f))
			v.Or(v, group.Lsh(group, shift))

			if b&0x80 == 0 {
				if b == 0 {
					return nil, fmt.Errorf("%w: "+
						"non-canonical integer",
						ErrMalformed)
				}
				break
			}
			shift += 7
		}
	}

	if negative {
		if v.Sign() == 0 {
			return nil, fmt.Errorf("%w: negative zero",
				ErrMalformed)
		}
		v.Neg(v)
	}
	return v, nil
}
