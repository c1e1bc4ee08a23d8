package codec

import (
	"encoding/binary"
	"fmt"
	"math"
)

// maxNestingDepth bounds how deeply containers and union payloads may nest
// while decoding. Recursive layouts parse by recursion, so without a cap a
// peer could drive stack growth with a run of nesting bytes.
const maxNestingDepth = 100

// Writer is a position-tracked write cursor over a growing byte buffer. All
// multi-byte integers are written big-endian, matching the wire format.
// Writes into memory cannot fail, so none of the write primitives return an
// error; encoders only fail on schema mismatches.
type Writer struct {
	buf []byte
}

// NewWriter returns an empty write cursor.
func NewWriter() *Writer {
	return &Writer{}
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns the accumulated buffer. The slice aliases the cursor's
// internal storage and is invalidated by further writes.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// WriteByte appends a single byte.
func (w *Writer) WriteByte(b byte) {
	w.buf = append(w.buf, b)
}

// WriteBytes appends p verbatim.
func (w *Writer) WriteBytes(p []byte) {
	w.buf = append(w.buf, p...)
}

// WriteUint16 appends v as two big-endian bytes.
func (w *Writer) WriteUint16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

// WriteUint32 appends v as four big-endian bytes.
func (w *Writer) WriteUint32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

// WriteUint64 appends v as eight big-endian bytes.
func (w *Writer) WriteUint64(v uint64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, v)
}

// Reserve appends n zero bytes and returns their offset so the caller can
// patch them later. Used for length prefixes whose value is only known once
// the payload has been written.
func (w *Writer) Reserve(n int) int {
	off := len(w.buf)
	for i := 0; i < n; i++ {
		w.buf = append(w.buf, 0)
	}
	return off
}

// PatchUint32 overwrites four previously reserved bytes at off with v.
func (w *Writer) PatchUint32(off int, v uint32) {
	binary.BigEndian.PutUint32(w.buf[off:off+4], v)
}

// Reader is a bounded read cursor over a byte slice. A stack of limits
// models nested sized containers: reads never cross the innermost limit,
// failing ErrTruncated instead, and popping a limit asserts the container
// was consumed exactly.
type Reader struct {
	buf    []byte
	off    int
	limit  int
	limits []int
	depth  int
}

// NewReader returns a read cursor over buf bounded by its length.
func NewReader(buf []byte) *Reader {
	return &Reader{
		buf:   buf,
		limit: len(buf),
	}
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the number of bytes left before the innermost limit.
func (r *Reader) Remaining() int {
	return r.limit - r.off
}

// ReadByte consumes and returns a single byte.
func (r *Reader) ReadByte() (byte, error) {
	if r.off >= r.limit {
		return 0, ErrTruncated
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

// ReadBytes consumes n bytes and returns them as a fresh slice that does not
// alias the input buffer.
func (r *Reader) ReadBytes(n int) ([]byte, error) {
	if n < 0 {
		return nil, ErrMalformed
	}
	if r.Remaining() < n {
		return nil, ErrTruncated
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:r.off+n])
	r.off += n
	return out, nil
}

// ReadUint16 consumes two bytes as a big-endian uint16.
func (r *Reader) ReadUint16() (uint16, error) {
	if r.Remaining() < 2 {
		return 0, ErrTruncated
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

// ReadUint32 consumes four bytes as a big-endian uint32.
func (r *Reader) ReadUint32() (uint32, error) {
	if r.Remaining() < 4 {
		return 0, ErrTruncated
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, nil
}

// ReadUint64 consumes eight bytes as a big-endian uint64.
func (r *Reader) ReadUint64() (uint64, error) {
	if r.Remaining() < 8 {
		return 0, ErrTruncated
	}
	v := binary.BigEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

// PushLimit narrows the cursor to the next n bytes. It fails ErrTruncated if
// fewer than n bytes remain under the current limit.
func (r *Reader) PushLimit(n int) error {
	if n < 0 || n > math.MaxInt32 {
		return ErrMalformed
	}
	if r.Remaining() < n {
		return ErrTruncated
	}
	if err := r.pushDepth(); err != nil {
		return err
	}
	r.limits = append(r.limits, r.limit)
	r.limit = r.off + n
	return nil
}

// pushDepth claims one level of nesting, failing once the cap is reached.
func (r *Reader) pushDepth() error {
	if r.depth >= maxNestingDepth {
		return fmt.Errorf("%w: nesting deeper than %d levels",
			ErrBoundsExceeded, maxNestingDepth)
	}
	r.depth++
	return nil
}

// popDepth releases one level of nesting.
func (r *Reader) popDepth() {
	r.depth--
}

// PopLimit restores the enclosing limit. Unconsumed bytes inside the sized
// region are a structural error: the layout declared more content than it
// described.
func (r *Reader) PopLimit() error {
	n := len(r.limits)
	if n == 0 {
		return fmt.Errorf("%w: no sized region open", ErrSchemaMismatch)
	}
	if r.off != r.limit {
		return ErrMalformed
	}
	r.limit = r.limits[n-1]
	r.limits = r.limits[:n-1]
	r.popDepth()
	return nil
}
