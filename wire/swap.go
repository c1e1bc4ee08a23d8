package wire

import (
	"github.com/tezlink/tezlink/codec"
	"github.com/tezlink/tezlink/tzcrypto"
)

// SwapRequest proposes a connection swap: the sender offers to introduce
// the receiver to the peer at Point in exchange for dropping one of its
// own slots.
type SwapRequest struct {
	// Point is the "host:port" address of the offered peer.
	Point string

	// PeerID identifies the offered peer.
	PeerID tzcrypto.PeerID
}

// A compile time check to ensure SwapRequest implements the wire.Message
// interface.
var _ Message = (*SwapRequest)(nil)

// swapCodec is shared by the request and the acknowledgement; the two
// messages differ only in their discriminant.
var swapCodec = codec.Struct[swapPayload](
	codec.Field("point", pointCodec,
		func(p *swapPayload) *string { return &p.Point }),
	codec.Field("peer_id", tzcrypto.PeerIDCodec(),
		func(p *swapPayload) *tzcrypto.PeerID { return &p.PeerID }),
)

type swapPayload struct {
	Point  string
	PeerID tzcrypto.PeerID
}

// Encode serializes the swap request payload.
//
// This is part of the wire.Message interface.
func (m *SwapRequest) Encode(w *codec.Writer) error {
	return swapCodec.Write(w, swapPayload{m.Point, m.PeerID})
}

// Decode parses the swap request payload.
//
// This is part of the wire.Message interface.
func (m *SwapRequest) Decode(r *codec.Reader) error {
	p, err := swapCodec.Read(r)
	if err != nil {
		return err
	}
	m.Point, m.PeerID = p.Point, p.PeerID
	return nil
}

// MsgType returns the discriminant of the swap request.
//
// This is part of the wire.Message interface.
func (m *SwapRequest) MsgType() MessageType {
	return MsgSwapRequest
}

// SwapAck accepts a previously received swap request.
type SwapAck struct {
	// Point is the "host:port" address of the peer given in exchange.
	Point string

	// PeerID identifies that peer.
	PeerID tzcrypto.PeerID
}

// A compile time check to ensure SwapAck implements the wire.Message
// interface.
var _ Message = (*SwapAck)(nil)

// Encode serializes the swap acknowledgement payload.
//
// This is part of the wire.Message interface.
func (m *SwapAck) Encode(w *codec.Writer) error {
	return swapCodec.Write(w, swapPayload{m.Point, m.PeerID})
}

// Decode parses the swap acknowledgement payload.
//
// This is part of the wire.Message interface.
func (m *SwapAck) Decode(r *codec.Reader) error {
	p, err := swapCodec.Read(r)
	if err != nil {
		return err
	}
	m.Point, m.PeerID = p.Point, p.PeerID
	return nil
}

// MsgType returns the discriminant of the swap acknowledgement.
//
// This is part of the wire.Message interface.
func (m *SwapAck) MsgType() MessageType {
	return MsgSwapAck
}
