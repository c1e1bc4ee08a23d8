package codec

import (
	"testing"

	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

// TestPrimitiveRoundTrips round-trips randomly drawn values through every
// fixed-width primitive layout.
func TestPrimitiveRoundTrips(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(rt *rapid.T) {
		roundTrip(rt, Uint8(), rapid.Uint8().Draw(rt, "u8"))
		roundTrip(rt, Int8(), rapid.Int8().Draw(rt, "i8"))
		roundTrip(rt, Uint16(), rapid.Uint16().Draw(rt, "u16"))
		roundTrip(rt, Int16(), rapid.Int16().Draw(rt, "i16"))
		roundTrip(rt, Int32(), rapid.Int32().Draw(rt, "i32"))
		roundTrip(rt, Uint32(), rapid.Uint32().Draw(rt, "u32"))
		roundTrip(rt, Int64(), rapid.Int64().Draw(rt, "i64"))
		roundTrip(rt, Bool(), rapid.Bool().Draw(rt, "bool"))
		roundTrip(rt, Int31(), rapid.Int32Range(
			-1<<30, 1<<30-1,
		).Draw(rt, "i31"))
		roundTrip(rt, Int63(), rapid.Int64Range(
			-1<<62, 1<<62-1,
		).Draw(rt, "i63"))
		roundTrip(rt, String(-1), rapid.String().Draw(rt, "str"))
	})
}

func roundTrip[T any](t *rapid.T, c Codec[T], v T) {
	enc, err := Encode(c, v)
	require.NoError(t, err)

	dec, err := DecodeAll(c, enc)
	require.NoError(t, err)
	require.Equal(t, v, dec)
}

// TestInt31Range asserts both directions reject values outside the 31-bit
// range even though the wire carries four full bytes.
func TestInt31Range(t *testing.T) {
	t.Parallel()

	_, err := Encode(Int31(), int32(1<<30))
	require.ErrorIs(t, err, ErrSchemaMismatch)

	// 0x7fffffff parses as a 32-bit value but not a 31-bit one.
	_, err = DecodeAll(Int31(), []byte{0x7f, 0xff, 0xff, 0xff})
	require.ErrorIs(t, err, ErrMalformed)
}

// TestInt63Range asserts both directions reject values outside the 63-bit
// range even though the wire carries eight full bytes.
func TestInt63Range(t *testing.T) {
	t.Parallel()

	_, err := Encode(Int63(), int64(1<<62))
	require.ErrorIs(t, err, ErrSchemaMismatch)

	// 0x7fffffffffffffff parses as a 64-bit value but not a 63-bit one.
	_, err = DecodeAll(Int63(), []byte{
		0x7f, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
	})
	require.ErrorIs(t, err, ErrMalformed)
}

// TestBoolRejectsInvalidByte asserts that only the two canonical boolean
// bytes parse.
func TestBoolRejectsInvalidByte(t *testing.T) {
	t.Parallel()

	_, err := DecodeAll(Bool(), []byte{0x01})
	require.ErrorIs(t, err, ErrMalformed)
}

// TestStringBoundsCheckedBeforePayload asserts that an oversized length
// prefix is rejected from the prefix alone, before any payload is read.
// The input deliberately carries fewer bytes than the prefix declares: a
// decoder that touched the payload first would report truncation instead.
func TestStringBoundsCheckedBeforePayload(t *testing.T) {
	t.Parallel()

	w := NewWriter()
	w.WriteUint32(1 << 30)

	_, err := DecodeAll(String(16), w.Bytes())
	require.ErrorIs(t, err, ErrBoundsExceeded)

	var boundsErr *BoundsError
	require.ErrorAs(t, err, &boundsErr)
	require.Equal(t, 1<<30, boundsErr.Declared)
	require.Equal(t, 16, boundsErr.Max)
}

// TestStringEncoderEnforcesMax asserts the bound also applies when
// encoding, as a schema mismatch.
func TestStringEncoderEnforcesMax(t *testing.T) {
	t.Parallel()

	_, err := Encode(String(4), "hello")
	require.ErrorIs(t, err, ErrSchemaMismatch)
}

// TestDynamicExactConsumption asserts that a sized container whose
// content stops short of the declared length is structurally invalid.
func TestDynamicExactConsumption(t *testing.T) {
	t.Parallel()

	// Declare four bytes but describe only two.
	w := NewWriter()
	w.WriteUint32(4)
	w.WriteUint16(7)
	w.WriteUint16(9)

	_, err := DecodeAll(Dynamic(Uint16()), w.Bytes())
	require.ErrorIs(t, err, ErrMalformed)
}

// TestDynamicTruncated asserts that a declared length running past the
// end of input reports truncation, so stream callers can wait for more
// bytes.
func TestDynamicTruncated(t *testing.T) {
	t.Parallel()

	w := NewWriter()
	w.WriteUint32(8)
	w.WriteUint16(7)

	_, err := DecodeAll(Dynamic(Uint16()), w.Bytes())
	require.ErrorIs(t, err, ErrTruncated)
}

// TestDynamicMaxRejectsPrefix asserts the cap applies to the declared
// length itself.
func TestDynamicMaxRejectsPrefix(t *testing.T) {
	t.Parallel()

	w := NewWriter()
	w.WriteUint32(100)

	_, err := DecodeAll(DynamicMax(10, TailBytes()), w.Bytes())
	require.ErrorIs(t, err, ErrBoundsExceeded)
}

// TestListRunsToEnclosingBound asserts that lists carry no count of their
// own and fill whatever region encloses them.
func TestListRunsToEnclosingBound(t *testing.T) {
	t.Parallel()

	c := Dynamic(List(-1, Uint16()))

	enc, err := Encode(c, []uint16{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, []byte{
		0x00, 0x00, 0x00, 0x06,
		0x00, 0x01, 0x00, 0x02, 0x00, 0x03,
	}, enc)

	dec, err := DecodeAll(c, enc)
	require.NoError(t, err)
	require.Equal(t, []uint16{1, 2, 3}, dec)
}

// TestListCapEnforcedMidDecode asserts the element cap fires as soon as
// it is crossed rather than after the whole region is parsed.
func TestListCapEnforcedMidDecode(t *testing.T) {
	t.Parallel()

	_, err := DecodeAll(List(2, Uint8()), []byte{1, 2, 3})
	require.ErrorIs(t, err, ErrBoundsExceeded)
}

// TestListRejectsZeroWidthElements asserts an unbounded list over an
// element layout that consumes no bytes fails instead of looping forever,
// since the enclosing bound never shrinks.
func TestListRejectsZeroWidthElements(t *testing.T) {
	t.Parallel()

	empty := Struct[struct{}]()

	_, err := DecodeAll(List(-1, empty), []byte{0x00})
	require.ErrorIs(t, err, ErrMalformed)
}

// TestOptionLayout checks the presence byte framing and that anything
// other than 0x00/0x01 is rejected.
func TestOptionLayout(t *testing.T) {
	t.Parallel()

	c := Option(Uint16())

	enc, err := Encode(c, fn.Some(uint16(0x0102)))
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x01, 0x02}, enc)

	enc, err = Encode(c, fn.None[uint16]())
	require.NoError(t, err)
	require.Equal(t, []byte{0x00}, enc)

	dec, err := DecodeAll(c, []byte{0x01, 0x01, 0x02})
	require.NoError(t, err)
	require.Equal(t, fn.Some(uint16(0x0102)), dec)

	_, err = DecodeAll(c, []byte{0x02, 0x00, 0x00})
	require.ErrorIs(t, err, ErrMalformed)
}

type testPoint struct {
	X int32
	Y int32
	T string
}

var testPointCodec = Struct[testPoint](
	Field("x", Int32(), func(p *testPoint) *int32 { return &p.X }),
	Field("y", Int32(), func(p *testPoint) *int32 { return &p.Y }),
	Field("tag", String(8), func(p *testPoint) *string { return &p.T }),
)

// TestStructRoundTrip round-trips a small object layout and checks that
// field failures carry the field name.
func TestStructRoundTrip(t *testing.T) {
	t.Parallel()

	p := testPoint{X: -4, Y: 9, T: "origin"}

	enc, err := Encode(testPointCodec, p)
	require.NoError(t, err)

	dec, err := DecodeAll(testPointCodec, enc)
	require.NoError(t, err)
	require.Equal(t, p, dec)

	_, err = Encode(testPointCodec, testPoint{T: "too long for max"})
	require.ErrorIs(t, err, ErrSchemaMismatch)
	require.Contains(t, err.Error(), `field "tag"`)
}

// testShape is a two-variant union used by the union tests.
type testShape interface {
	shape()
}

type testCircle struct {
	Radius uint16
}

type testSquare struct {
	Side uint16
}

func (testCircle) shape() {}
func (testSquare) shape() {}

var testShapeCodec = Union[testShape](1,
	Case(0x00, "circle", Uint16(),
		func(r uint16) testShape { return testCircle{Radius: r} },
		func(s testShape) (uint16, bool) {
			c, ok := s.(testCircle)
			return c.Radius, ok
		}),
	Case(0x01, "square", Uint16(),
		func(r uint16) testShape { return testSquare{Side: r} },
		func(s testShape) (uint16, bool) {
			c, ok := s.(testSquare)
			return c.Side, ok
		}),
)

// TestUnionDispatch checks tag dispatch in both directions plus the
// failure modes: unknown tags off the wire and values matching no case.
func TestUnionDispatch(t *testing.T) {
	t.Parallel()

	enc, err := Encode(testShapeCodec, testShape(testSquare{Side: 3}))
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x00, 0x03}, enc)

	dec, err := DecodeAll(testShapeCodec, enc)
	require.NoError(t, err)
	require.Equal(t, testShape(testSquare{Side: 3}), dec)

	dec, err = DecodeAll(testShapeCodec, []byte{0x00, 0x00, 0x07})
	require.NoError(t, err)
	require.Equal(t, testShape(testCircle{Radius: 7}), dec)

	_, err = DecodeAll(testShapeCodec, []byte{0x42, 0x00, 0x00})
	require.ErrorIs(t, err, ErrMalformed)

	_, err = Encode(testShapeCodec, testShape(nil))
	require.ErrorIs(t, err, ErrSchemaMismatch)
}

// TestUnionConstructionPanics asserts that invalid union declarations
// fail loudly at construction.
func TestUnionConstructionPanics(t *testing.T) {
	t.Parallel()

	dup := Case(0x00, "dup", Uint16(),
		func(r uint16) testShape { return testCircle{Radius: r} },
		func(s testShape) (uint16, bool) { return 0, false })

	require.Panics(t, func() {
		Union[testShape](1, dup, dup)
	})
	require.Panics(t, func() {
		Union[testShape](3, dup)
	})
	require.Panics(t, func() {
		Union[testShape](1, Case(0x1ff, "wide", Uint16(),
			func(r uint16) testShape { return testCircle{Radius: r} },
			func(s testShape) (uint16, bool) { return 0, false }))
	})
}

// TestSizedEnforcesWidth asserts Sized constrains both directions to the
// declared byte width.
func TestSizedEnforcesWidth(t *testing.T) {
	t.Parallel()

	c := Sized(2, TailBytes())

	enc, err := Encode(c, []byte{0xaa, 0xbb})
	require.NoError(t, err)
	require.Equal(t, []byte{0xaa, 0xbb}, enc)

	_, err = Encode(c, []byte{0xaa})
	require.ErrorIs(t, err, ErrSchemaMismatch)
}

// testNode is a recursive union: a branch holds two child nodes, a leaf
// terminates.
type testNode interface {
	node()
}

type testBranch struct {
	Left  testNode
	Right testNode
}

type testLeaf struct{}

func (testBranch) node() {}
func (testLeaf) node()   {}

var testNodeCodec Codec[testNode]

func init() {
	recurse := Lazy(func() Codec[testNode] { return testNodeCodec })
	testNodeCodec = Union[testNode](1,
		Case(0x00, "leaf", Sized(0, TailBytes()),
			func([]byte) testNode { return testLeaf{} },
			func(n testNode) ([]byte, bool) {
				_, ok := n.(testLeaf)
				return nil, ok
			}),
		Case(0x01, "branch", Struct[testBranch](
			Field("left", recurse, func(b *testBranch) *testNode {
				return &b.Left
			}),
			Field("right", recurse, func(b *testBranch) *testNode {
				return &b.Right
			}),
		),
			func(b testBranch) testNode { return b },
			func(n testNode) (testBranch, bool) {
				b, ok := n.(testBranch)
				return b, ok
			}),
	)
}

// TestLazyBreaksRecursion round-trips a self-referential layout expressed
// through Lazy.
func TestLazyBreaksRecursion(t *testing.T) {
	t.Parallel()

	tree := testNode(testBranch{
		Left:  testBranch{Left: testLeaf{}, Right: testLeaf{}},
		Right: testLeaf{},
	})

	enc, err := Encode(testNodeCodec, tree)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x01, 0x00, 0x00, 0x00}, enc)

	dec, err := DecodeAll(testNodeCodec, enc)
	require.NoError(t, err)
	require.Equal(t, tree, dec)
}

// TestNestingDepthGuard feeds a run of branch tags deep enough to recurse
// past the nesting cap. The decode must fail on the bound, not on the
// eventual truncation, so hostile input cannot drive stack growth.
func TestNestingDepthGuard(t *testing.T) {
	t.Parallel()

	deep := make([]byte, maxNestingDepth+50)
	for i := range deep {
		deep[i] = 0x01
	}

	_, err := DecodeAll(testNodeCodec, deep)
	require.ErrorIs(t, err, ErrBoundsExceeded)
}
