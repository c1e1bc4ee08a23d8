// Package codec implements the schema-driven binary format used on the
// peer-to-peer wire. A layout is described once as a tree of Codec
// descriptors; the same descriptor drives both serialization and a
// bounds-checked parse of untrusted input. Descriptors are immutable and
// safe for concurrent use.
package codec

import (
	"fmt"
	"math"
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// Codec describes the wire layout of values of type T. Implementations are
// stateless: Write serializes a value onto a cursor and Read parses one off
// a cursor, leaving the cursor just past the consumed bytes.
type Codec[T any] interface {
	// Write serializes v onto w. The only failure mode is
	// ErrSchemaMismatch: the value cannot be represented by this layout.
	Write(w *Writer, v T) error

	// Read parses a value off r. Failures wrap ErrBoundsExceeded,
	// ErrMalformed or ErrTruncated.
	Read(r *Reader) (T, error)
}

// codecFns adapts a pair of closures into a Codec.
type codecFns[T any] struct {
	write func(*Writer, T) error
	read  func(*Reader) (T, error)
}

func (c codecFns[T]) Write(w *Writer, v T) error {
	return c.write(w, v)
}

func (c codecFns[T]) Read(r *Reader) (T, error) {
	return c.read(r)
}

// Encode serializes v with c and returns the produced bytes.
func Encode[T any](c Codec[T], v T) ([]byte, error) {
	w := NewWriter()
	if err := c.Write(w, v); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Decode parses a value of c's layout from the front of buf, returning the
// value and the number of bytes consumed.
func Decode[T any](c Codec[T], buf []byte) (T, int, error) {
	r := NewReader(buf)
	v, err := c.Read(r)
	if err != nil {
		var zero T
		return zero, 0, err
	}
	return v, r.Offset(), nil
}

// DecodeAll is Decode with the additional requirement that buf is consumed
// exactly; trailing bytes are ErrMalformed.
func DecodeAll[T any](c Codec[T], buf []byte) (T, error) {
	v, n, err := Decode(c, buf)
	if err != nil {
		var zero T
		return zero, err
	}
	if n != len(buf) {
		var zero T
		return zero, fmt.Errorf("%w: %d trailing bytes", ErrMalformed,
			len(buf)-n)
	}
	return v, nil
}

// Uint8 returns the codec for a single unsigned byte.
func Uint8() Codec[uint8] {
	return codecFns[uint8]{
		write: func(w *Writer, v uint8) error {
			w.WriteByte(v)
			return nil
		},
		read: func(r *Reader) (uint8, error) {
			return r.ReadByte()
		},
	}
}

// Int8 returns the codec for a single signed byte.
func Int8() Codec[int8] {
	return codecFns[int8]{
		write: func(w *Writer, v int8) error {
			w.WriteByte(byte(v))
			return nil
		},
		read: func(r *Reader) (int8, error) {
			b, err := r.ReadByte()
			return int8(b), err
		},
	}
}

// Uint16 returns the codec for a big-endian unsigned 16-bit integer.
func Uint16() Codec[uint16] {
	return codecFns[uint16]{
		write: func(w *Writer, v uint16) error {
			w.WriteUint16(v)
			return nil
		},
		read: func(r *Reader) (uint16, error) {
			return r.ReadUint16()
		},
	}
}

// Int16 returns the codec for a big-endian signed 16-bit integer.
func Int16() Codec[int16] {
	return codecFns[int16]{
		write: func(w *Writer, v int16) error {
			w.WriteUint16(uint16(v))
			return nil
		},
		read: func(r *Reader) (int16, error) {
			v, err := r.ReadUint16()
			return int16(v), err
		},
	}
}

// Int31 returns the codec for a 31-bit signed integer carried in four
// bytes. Values outside [-2^30, 2^30) do not fit the layout.
func Int31() Codec[int32] {
	const (
		min = -1 << 30
		max = 1<<30 - 1
	)
	return codecFns[int32]{
		write: func(w *Writer, v int32) error {
			if v < min || v > max {
				return fmt.Errorf("%w: %d outside int31 range",
					ErrSchemaMismatch, v)
			}
			w.WriteUint32(uint32(v))
			return nil
		},
		read: func(r *Reader) (int32, error) {
			u, err := r.ReadUint32()
			if err != nil {
				return 0, err
			}
			v := int32(u)
			if v < min || v > max {
				return 0, fmt.Errorf("%w: %d outside int31 "+
					"range", ErrMalformed, v)
			}
			return v, nil
		},
	}
}

// Int32 returns the codec for a big-endian signed 32-bit integer.
func Int32() Codec[int32] {
	return codecFns[int32]{
		write: func(w *Writer, v int32) error {
			w.WriteUint32(uint32(v))
			return nil
		},
		read: func(r *Reader) (int32, error) {
			v, err := r.ReadUint32()
			return int32(v), err
		},
	}
}

// Uint32 returns the codec for a big-endian unsigned 32-bit integer.
func Uint32() Codec[uint32] {
	return codecFns[uint32]{
		write: func(w *Writer, v uint32) error {
			w.WriteUint32(v)
			return nil
		},
		read: func(r *Reader) (uint32, error) {
			return r.ReadUint32()
		},
	}
}

// Int63 returns the codec for a 63-bit signed integer carried in eight
// bytes. Values outside [-2^62, 2^62) do not fit the layout.
func Int63() Codec[int64] {
	const (
		min = -1 << 62
		max = 1<<62 - 1
	)
	return codecFns[int64]{
		write: func(w *Writer, v int64) error {
			if v < min || v > max {
				return fmt.Errorf("%w: %d outside int63 range",
					ErrSchemaMismatch, v)
			}
			w.WriteUint64(uint64(v))
			return nil
		},
		read: func(r *Reader) (int64, error) {
			u, err := r.ReadUint64()
			if err != nil {
				return 0, err
			}
			v := int64(u)
			if v < min || v > max {
				return 0, fmt.Errorf("%w: %d outside int63 "+
					"range", ErrMalformed, v)
			}
			return v, nil
		},
	}
}

// Int64 returns the codec for a big-endian signed 64-bit integer.
func Int64() Codec[int64] {
	return codecFns[int64]{
		write: func(w *Writer, v int64) error {
			w.WriteUint64(uint64(v))
			return nil
		},
		read: func(r *Reader) (int64, error) {
			v, err := r.ReadUint64()
			return int64(v), err
		},
	}
}

// Float64 returns the codec for a big-endian IEEE 754 double.
func Float64() Codec[float64] {
	return codecFns[float64]{
		write: func(w *Writer, v float64) error {
			w.WriteUint64(math.Float64bits(v))
			return nil
		},
		read: func(r *Reader) (float64, error) {
			u, err := r.ReadUint64()
			return math.Float64frombits(u), err
		},
	}
}

// Bool returns the codec for a boolean carried as 0xff or 0x00. Any other
// byte is malformed.
func Bool() Codec[bool] {
	return codecFns[bool]{
		write: func(w *Writer, v bool) error {
			if v {
				w.WriteByte(0xff)
			} else {
				w.WriteByte(0x00)
			}
			return nil
		},
		read: func(r *Reader) (bool, error) {
			b, err := r.ReadByte()
			if err != nil {
				return false, err
			}
			switch b {
			case 0xff:
				return true, nil
			case 0x00:
				return false, nil
			default:
				return false, fmt.Errorf("%w: invalid boolean "+
					"byte %#02x", ErrMalformed, b)
			}
		},
	}
}

// readLength reads a four byte length prefix and rejects it against max
// before any payload byte is touched. A negative max disables the cap.
func readLength(r *Reader, max int) (int, error) {
	u, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	if u > math.MaxInt32 {
		return 0, fmt.Errorf("%w: length prefix %d", ErrMalformed, u)
	}
	n := int(u)
	if max >= 0 && n > max {
		return 0, &BoundsError{Declared: n, Max: max}
	}
	return n, nil
}

// String returns the codec for a length-prefixed UTF-8 string holding at
// most max bytes. A negative max leaves the string unbounded.
func String(max int) Codec[string] {
	return codecFns[string]{
		write: func(w *Writer, v string) error {
			if max >= 0 && len(v) > max {
				return fmt.Errorf("%w: string of %d bytes, "+
					"maximum %d", ErrSchemaMismatch,
					len(v), max)
			}
			w.WriteUint32(uint32(len(v)))
			w.WriteBytes([]byte(v))
			return nil
		},
		read: func(r *Reader) (string, error) {
			n, err := readLength(r, max)
			if err != nil {
				return "", err
			}
			b, err := r.ReadBytes(n)
			if err != nil {
				return "", err
			}
			return string(b), nil
		},
	}
}

// Bytes returns the codec for a length-prefixed byte sequence holding at
// most max bytes. A negative max leaves it unbounded.
func Bytes(max int) Codec[[]byte] {
	return codecFns[[]byte]{
		write: func(w *Writer, v []byte) error {
			if max >= 0 && len(v) > max {
				return fmt.Errorf("%w: %d bytes, maximum %d",
					ErrSchemaMismatch, len(v), max)
			}
			w.WriteUint32(uint32(len(v)))
			w.WriteBytes(v)
			return nil
		},
		read: func(r *Reader) ([]byte, error) {
			n, err := readLength(r, max)
			if err != nil {
				return nil, err
			}
			return r.ReadBytes(n)
		},
	}
}

// FixedBytes returns the codec for exactly n raw bytes with no prefix.
func FixedBytes(n int) Codec[[]byte] {
	return codecFns[[]byte]{
		write: func(w *Writer, v []byte) error {
			if len(v) != n {
				return fmt.Errorf("%w: got %d bytes, layout "+
					"requires %d", ErrSchemaMismatch,
					len(v), n)
			}
			w.WriteBytes(v)
			return nil
		},
		read: func(r *Reader) ([]byte, error) {
			return r.ReadBytes(n)
		},
	}
}

// TailBytes returns the codec for a raw byte sequence that fills the
// remainder of its enclosing sized container.
func TailBytes() Codec[[]byte] {
	return codecFns[[]byte]{
		write: func(w *Writer, v []byte) error {
			w.WriteBytes(v)
			return nil
		},
		read: func(r *Reader) ([]byte, error) {
			return r.ReadBytes(r.Remaining())
		},
	}
}

// Dynamic wraps c in a four byte length-prefixed sub-buffer. On decode the
// nested value must consume the declared region exactly.
func Dynamic[T any](c Codec[T]) Codec[T] {
	return DynamicMax(-1, c)
}

// DynamicMax is Dynamic with a cap on the declared length, rejected before
// the payload is read or allocated.
func DynamicMax[T any](max int, c Codec[T]) Codec[T] {
	return codecFns[T]{
		write: func(w *Writer, v T) error {
			off := w.Reserve(4)
			if err := c.Write(w, v); err != nil {
				return err
			}
			n := w.Len() - off - 4
			if max >= 0 && n > max {
				return fmt.Errorf("%w: dynamic payload of %d "+
					"bytes, maximum %d", ErrSchemaMismatch,
					n, max)
			}
			w.PatchUint32(off, uint32(n))
			return nil
		},
		read: func(r *Reader) (T, error) {
			var zero T
			n, err := readLength(r, max)
			if err != nil {
				return zero, err
			}
			if err := r.PushLimit(n); err != nil {
				return zero, err
			}
			v, err := c.Read(r)
			if err != nil {
				return zero, err
			}
			if err := r.PopLimit(); err != nil {
				return zero, err
			}
			return v, nil
		},
	}
}

// Sized constrains c to exactly n bytes of wire representation.
func Sized[T any](n int, c Codec[T]) Codec[T] {
	return codecFns[T]{
		write: func(w *Writer, v T) error {
			before := w.Len()
			if err := c.Write(w, v); err != nil {
				return err
			}
			if got := w.Len() - before; got != n {
				return fmt.Errorf("%w: sized layout wrote %d "+
					"bytes, requires %d", ErrSchemaMismatch,
					got, n)
			}
			return nil
		},
		read: func(r *Reader) (T, error) {
			var zero T
			if err := r.PushLimit(n); err != nil {
				return zero, err
			}
			v, err := c.Read(r)
			if err != nil {
				return zero, err
			}
			if err := r.PopLimit(); err != nil {
				return zero, err
			}
			return v, nil
		},
	}
}

// List returns the codec for a sequence of elem values. The sequence
// carries no element count: it runs to the end of its enclosing bound. A
// non-negative max caps the number of elements; decoding fails as soon as
// the cap is crossed, before further elements are parsed.
func List[T any](max int, elem Codec[T]) Codec[[]T] {
	return codecFns[[]T]{
		write: func(w *Writer, v []T) error {
			if max >= 0 && len(v) > max {
				return fmt.Errorf("%w: list of %d elements, "+
					"maximum %d", ErrSchemaMismatch,
					len(v), max)
			}
			for _, e := range v {
				if err := elem.Write(w, e); err != nil {
					return err
				}
			}
			return nil
		},
		read: func(r *Reader) ([]T, error) {
			var out []T
			for r.Remaining() > 0 {
				if max >= 0 && len(out) == max {
					return nil, &BoundsError{
						Declared: max + 1,
						Max:      max,
					}
				}
				before := r.Remaining()
				e, err := elem.Read(r)
				if err != nil {
					return nil, err
				}
				if r.Remaining() == before {
					return nil, fmt.Errorf("%w: list "+
						"element consumed no bytes",
						ErrMalformed)
				}
				out = append(out, e)
			}
			return out, nil
		},
	}
}

// Option wraps c in a single presence byte: 0x01 followed by the payload,
// or a lone 0x00.
func Option[T any](c Codec[T]) Codec[fn.Option[T]] {
	return codecFns[fn.Option[T]]{
		write: func(w *Writer, v fn.Option[T]) error {
			var err error
			v.WhenSome(func(inner T) {
				w.WriteByte(0x01)
				err = c.Write(w, inner)
			})
			if v.IsNone() {
				w.WriteByte(0x00)
			}
			return err
		},
		read: func(r *Reader) (fn.Option[T], error) {
			b, err := r.ReadByte()
			if err != nil {
				return fn.None[T](), err
			}
			switch b {
			case 0x00:
				return fn.None[T](), nil
			case 0x01:
				v, err := c.Read(r)
				if err != nil {
					return fn.None[T](), err
				}
				return fn.Some(v), nil
			default:
				return fn.None[T](), fmt.Errorf("%w: invalid "+
					"option byte %#02x", ErrMalformed, b)
			}
		},
	}
}

// Conv derives a codec for T from a codec for its wire representation U.
// The from projection validates as it converts, so decoders reject values
// that parse but do not form a valid T.
func Conv[T, U any](c Codec[U], to func(T) (U, error),
	from func(U) (T, error)) Codec[T] {

	return codecFns[T]{
		write: func(w *Writer, v T) error {
			u, err := to(v)
			if err != nil {
				return err
			}
			return c.Write(w, u)
		},
		read: func(r *Reader) (T, error) {
			var zero T
			u, err := c.Read(r)
			if err != nil {
				return zero, err
			}
			return from(u)
		},
	}
}

// Lazy defers construction of a codec until first use, memoizing the
// result. Self-referential layouts must be expressed through Lazy so the
// descriptor tree can be built without the cycle recursing at init time.
func Lazy[T any](mk func() Codec[T]) Codec[T] {
	var (
		once sync.Once
		c    Codec[T]
	)
	resolve := func() Codec[T] {
		once.Do(func() {
			c = mk()
		})
		return c
	}
	return codecFns[T]{
		write: func(w *Writer, v T) error {
			return resolve().Write(w, v)
		},
		read: func(r *Reader) (T, error) {
			return resolve().Read(r)
		},
	}
}
