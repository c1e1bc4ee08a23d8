package wire

import (
	"github.com/tezlink/tezlink/codec"
	"github.com/tezlink/tezlink/tzcrypto"
)

// Disconnect announces that the sender is about to close the connection.
// It carries no payload.
type Disconnect struct{}

// A compile time check to ensure Disconnect implements the wire.Message
// interface.
var _ Message = (*Disconnect)(nil)

// Encode serializes the empty payload.
//
// This is part of the wire.Message interface.
func (m *Disconnect) Encode(w *codec.Writer) error {
	return nil
}

// Decode parses the empty payload.
//
// This is part of the wire.Message interface.
func (m *Disconnect) Decode(r *codec.Reader) error {
	return nil
}

// MsgType returns the discriminant of the disconnect notice.
//
// This is part of the wire.Message interface.
func (m *Disconnect) MsgType() MessageType {
	return MsgDisconnect
}

// Bootstrap asks the receiver to advertise peers worth connecting to. It
// carries no payload; the expected reply is an Advertise message.
type Bootstrap struct{}

// A compile time check to ensure Bootstrap implements the wire.Message
// interface.
var _ Message = (*Bootstrap)(nil)

// Encode serializes the empty payload.
//
// This is part of the wire.Message interface.
func (m *Bootstrap) Encode(w *codec.Writer) error {
	return nil
}

// Decode parses the empty payload.
//
// This is part of the wire.Message interface.
func (m *Bootstrap) Decode(r *codec.Reader) error {
	return nil
}

// MsgType returns the discriminant of the bootstrap request.
//
// This is part of the wire.Message interface.
func (m *Bootstrap) MsgType() MessageType {
	return MsgBootstrap
}

// Deactivate announces that the sender stops serving data for the named
// chain.
type Deactivate struct {
	// ChainID names the deactivated chain.
	ChainID tzcrypto.ChainID
}

// A compile time check to ensure Deactivate implements the wire.Message
// interface.
var _ Message = (*Deactivate)(nil)

var deactivateCodec = codec.Struct[Deactivate](
	codec.Field("deactivate", tzcrypto.ChainIDCodec(),
		func(m *Deactivate) *tzcrypto.ChainID { return &m.ChainID }),
)

// Encode serializes the deactivation notice.
//
// This is part of the wire.Message interface.
func (m *Deactivate) Encode(w *codec.Writer) error {
	return deactivateCodec.Write(w, *m)
}

// Decode parses the deactivation notice.
//
// This is part of the wire.Message interface.
func (m *Deactivate) Decode(r *codec.Reader) error {
	v, err := deactivateCodec.Read(r)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MsgType returns the discriminant of the deactivation notice.
//
// This is part of the wire.Message interface.
func (m *Deactivate) MsgType() MessageType {
	return MsgDeactivate
}
