package wire

import (
	"github.com/tezlink/tezlink/codec"
)

// Limits on peer address advertisements. A point is a "host:port" string.
const (
	MaxPointLength     = 255
	MaxAdvertisePoints = 100
)

// pointCodec carries one peer address as a length-prefixed string.
var pointCodec = codec.String(MaxPointLength)

// Advertise shares addresses of known peers with the remote side.
type Advertise struct {
	// Points are the advertised "host:port" addresses.
	Points []string
}

// A compile time check to ensure Advertise implements the wire.Message
// interface.
var _ Message = (*Advertise)(nil)

var advertiseCodec = codec.Struct[Advertise](
	codec.Field("id", codec.List(MaxAdvertisePoints, pointCodec),
		func(m *Advertise) *[]string { return &m.Points }),
)

// Encode serializes the advertisement payload.
//
// This is part of the wire.Message interface.
func (m *Advertise) Encode(w *codec.Writer) error {
	return advertiseCodec.Write(w, *m)
}

// Decode parses the advertisement payload.
//
// This is part of the wire.Message interface.
func (m *Advertise) Decode(r *codec.Reader) error {
	v, err := advertiseCodec.Read(r)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MsgType returns the discriminant of the advertisement message.
//
// This is part of the wire.Message interface.
func (m *Advertise) MsgType() MessageType {
	return MsgAdvertise
}
