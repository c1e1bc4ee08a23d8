package codec

import "fmt"

// StructField binds one named wire field of an object layout to a location
// inside the Go struct T. Fields are declared once, in wire order, via
// Field and assembled with Struct.
type StructField[T any] interface {
	fieldName() string
	writeField(w *Writer, v *T) error
	readField(r *Reader, v *T) error
}

type structField[T, F any] struct {
	name string
	c    Codec[F]
	proj func(*T) *F
}

func (f *structField[T, F]) fieldName() string {
	return f.name
}

func (f *structField[T, F]) writeField(w *Writer, v *T) error {
	return f.c.Write(w, *f.proj(v))
}

func (f *structField[T, F]) readField(r *Reader, v *T) error {
	fv, err := f.c.Read(r)
	if err != nil {
		return err
	}
	*f.proj(v) = fv
	return nil
}

// Field declares a named object field of layout c located at proj within
// the enclosing struct. The projection returns a pointer so the same
// declaration serves both directions.
func Field[T, F any](name string, c Codec[F], proj func(*T) *F) StructField[T] {
	return &structField[T, F]{
		name: name,
		c:    c,
		proj: proj,
	}
}

// Struct returns the codec for an object layout: the declared fields in
// declaration order, with no padding or framing of its own. Field errors
// are annotated with the field name.
func Struct[T any](fields ...StructField[T]) Codec[T] {
	return codecFns[T]{
		write: func(w *Writer, v T) error {
			for _, f := range fields {
				if err := f.writeField(w, &v); err != nil {
					return fmt.Errorf("field %q: %w",
						f.fieldName(), err)
				}
			}
			return nil
		},
		read: func(r *Reader) (T, error) {
			var v T
			for _, f := range fields {
				if err := f.readField(r, &v); err != nil {
					return v, fmt.Errorf("field %q: %w",
						f.fieldName(), err)
				}
			}
			return v, nil
		},
	}
}
