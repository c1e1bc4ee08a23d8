package codec

import (
	"errors"
	"fmt"
)

// ErrSchemaMismatch signals that a value handed to an encoder does not fit
// the layout it was declared with. This is a programming error on the local
// side, never something a remote peer can trigger.
var ErrSchemaMismatch = errors.New("codec: value does not match its encoding")

// ErrBoundsExceeded signals that a length prefix read off the wire declares
// more bytes or elements than the container's configured maximum. The input
// is presumed hostile; the caller should drop the connection.
var ErrBoundsExceeded = errors.New("codec: declared length exceeds maximum")

// ErrMalformed signals structurally invalid input: an unknown union tag, a
// non-canonical varint, trailing garbage inside a sized container, and the
// like. Same disposition as ErrBoundsExceeded.
var ErrMalformed = errors.New("codec: malformed input")

// ErrTruncated signals that fewer bytes were available than the layout
// requires. If the transport may still deliver more data the caller can
// retry the decode with a longer buffer; otherwise it should be treated as
// ErrMalformed.
var ErrTruncated = errors.New("codec: truncated input")

// BoundsError carries the offending declared length alongside the limit it
// broke. It unwraps to ErrBoundsExceeded.
type BoundsError struct {
	// Declared is the length read from the wire.
	Declared int

	// Max is the configured maximum the declared length exceeded.
	Max int
}

// Error returns a human readable description of the violation.
func (e *BoundsError) Error() string {
	return fmt.Sprintf("codec: declared length %d exceeds maximum %d",
		e.Declared, e.Max)
}

// Unwrap maps a BoundsError onto the ErrBoundsExceeded sentinel.
func (e *BoundsError) Unwrap() error {
	return ErrBoundsExceeded
}

// IsPeerFault returns true if err indicates bad input from the remote side
// rather than a local defect.
func IsPeerFault(err error) bool {
	return errors.Is(err, ErrBoundsExceeded) ||
		errors.Is(err, ErrMalformed) ||
		errors.Is(err, ErrTruncated)
}
