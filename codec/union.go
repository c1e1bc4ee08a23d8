package codec

import "fmt"

// UnionCase describes one variant of a tagged union: its discriminant
// value, a name for diagnostics, and the projection between the variant's
// payload type and the union's Go representation.
type UnionCase[T any] interface {
	caseTag() uint16
	caseName() string
	tryWrite(w *Writer, v T) (bool, error)
	readCase(r *Reader) (T, error)
}

type unionCase[T, V any] struct {
	tag  uint16
	name string
	c    Codec[V]
	inj  func(V) T
	prj  func(T) (V, bool)
}

func (u *unionCase[T, V]) caseTag() uint16 {
	return u.tag
}

func (u *unionCase[T, V]) caseName() string {
	return u.name
}

func (u *unionCase[T, V]) tryWrite(w *Writer, v T) (bool, error) {
	payload, ok := u.prj(v)
	if !ok {
		return false, nil
	}
	return true, u.c.Write(w, payload)
}

func (u *unionCase[T, V]) readCase(r *Reader) (T, error) {
	payload, err := u.c.Read(r)
	if err != nil {
		var zero T
		return zero, err
	}
	return u.inj(payload), nil
}

// Case declares a union variant with discriminant tag and payload layout
// c. inj lifts a decoded payload into the union type; prj recovers the
// payload from a union value, reporting whether the value is this variant.
func Case[T, V any](tag uint16, name string, c Codec[V], inj func(V) T,
	prj func(T) (V, bool)) UnionCase[T] {

	return &unionCase[T, V]{
		tag:  tag,
		name: name,
		c:    c,
		inj:  inj,
		prj:  prj,
	}
}

// Union returns the codec for a tagged union dispatching on a big-endian
// discriminant of tagSize bytes (1 or 2). Discriminants must be unique;
// duplicate or oversized declarations panic at construction time since
// descriptors are built once at process start. Decoding an unregistered
// discriminant is ErrMalformed.
func Union[T any](tagSize int, cases ...UnionCase[T]) Codec[T] {
	if tagSize != 1 && tagSize != 2 {
		panic(fmt.Sprintf("codec: invalid union tag size %d", tagSize))
	}

	byTag := make(map[uint16]UnionCase[T], len(cases))
	for _, c := range cases {
		if tagSize == 1 && c.caseTag() > 0xff {
			panic(fmt.Sprintf("codec: tag %#x of case %q does "+
				"not fit one byte", c.caseTag(), c.caseName()))
		}
		if _, ok := byTag[c.caseTag()]; ok {
			panic(fmt.Sprintf("codec: duplicate union tag %#x",
				c.caseTag()))
		}
		byTag[c.caseTag()] = c
	}

	writeTag := func(w *Writer, tag uint16) {
		if tagSize == 1 {
			w.WriteByte(byte(tag))
		} else {
			w.WriteUint16(tag)
		}
	}
	readTag := func(r *Reader) (uint16, error) {
		if tagSize == 1 {
			b, err := r.ReadByte()
			return uint16(b), err
		}
		return r.ReadUint16()
	}

	return codecFns[T]{
		write: func(w *Writer, v T) error {
			for _, c := range cases {
				writeTag(w, c.caseTag())
				ok, err := c.tryWrite(w, v)
				if ok {
					return err
				}
				// Not this variant: drop the tag again.
				w.buf = w.buf[:len(w.buf)-tagSize]
			}
			return fmt.Errorf("%w: value matches no union case",
				ErrSchemaMismatch)
		},
		read: func(r *Reader) (T, error) {
			var zero T
			if err := r.pushDepth(); err != nil {
				return zero, err
			}
			defer r.popDepth()

			tag, err := readTag(r)
			if err != nil {
				return zero, err
			}
			c, ok := byTag[tag]
			if !ok {
				return zero, fmt.Errorf("%w: unknown union "+
					"tag %#x", ErrMalformed, tag)
			}
			return c.readCase(r)
		},
	}
}
