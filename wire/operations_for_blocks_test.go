package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tezlink/tezlink/codec"
	"github.com/tezlink/tezlink/tzcrypto"
)

// TestPathRoundTrip round-trips a multi-level audit path through the
// recursive union.
func TestPathRoundTrip(t *testing.T) {
	t.Parallel()

	path := Path(PathLeft{
		Path: PathRight{
			Left: tzcrypto.OperationListListHash{0x01},
			Path: PathLeft{
				Path:  PathOp{},
				Right: tzcrypto.OperationListListHash{0x02},
			},
		},
		Right: tzcrypto.OperationListListHash{0x03},
	})

	enc, err := codec.Encode(pathCodec, path)
	require.NoError(t, err)

	// left, right, left, op, then the three sibling hashes trailing
	// their respective steps.
	require.Equal(t, byte(0xf0), enc[0])

	dec, err := codec.DecodeAll(pathCodec, enc)
	require.NoError(t, err)
	require.Equal(t, path, dec)
}

// TestPathLeafEncoding pins the leaf to a single byte.
func TestPathLeafEncoding(t *testing.T) {
	t.Parallel()

	enc, err := codec.Encode(pathCodec, Path(PathOp{}))
	require.NoError(t, err)
	require.Equal(t, []byte{0x00}, enc)
}

// TestPathRejectsUnknownStep asserts undeclared step tags fail the parse.
func TestPathRejectsUnknownStep(t *testing.T) {
	t.Parallel()

	_, err := codec.DecodeAll(pathCodec, []byte{0x42})
	require.ErrorIs(t, err, codec.ErrMalformed)
}

// TestPathDepthBounded feeds a run of left-step tags long enough to cross
// the decoder's nesting cap. Without the cap each step would add a stack
// frame under attacker control.
func TestPathDepthBounded(t *testing.T) {
	t.Parallel()

	deep := make([]byte, 200)
	for i := range deep {
		deep[i] = 0xf0
	}

	_, err := codec.DecodeAll(pathCodec, deep)
	require.ErrorIs(t, err, codec.ErrBoundsExceeded)
}

// TestOperationHashesBounded asserts the per-pass hash list cap is
// enforced from the length prefix.
func TestOperationHashesBounded(t *testing.T) {
	t.Parallel()

	// Frame a delivery carrying one hash more than the cap. The decoder
	// must give up as soon as the cap is crossed, well before the final
	// element.
	overflow := (MaxOperationsPerPass + 1) * tzcrypto.OperationHashSize

	w := codec.NewWriter()
	w.WriteBytes(make([]byte, tzcrypto.BlockHashSize)) // hash
	w.WriteByte(0)                                     // validation pass
	w.WriteUint32(uint32(overflow))
	w.WriteBytes(make([]byte, overflow))
	w.WriteByte(0x00) // leaf path

	r := codec.NewReader(w.Bytes())
	var msg OperationHashesForBlock
	err := msg.Decode(r)
	require.ErrorIs(t, err, codec.ErrBoundsExceeded)
}
