package wire

import (
	"github.com/tezlink/tezlink/codec"
)

// MaxNackPeers caps the list of alternative peers a Nack may advertise.
const MaxNackPeers = 100

// NackMotive explains why a peer refused a connection.
type NackMotive int16

// The defined refusal motives.
const (
	NackNoMotive                       NackMotive = 0
	NackTooManyConnections             NackMotive = 1
	NackUnknownChainName               NackMotive = 2
	NackDeprecatedP2PVersion           NackMotive = 3
	NackDeprecatedDistributedDBVersion NackMotive = 4
	NackAlreadyConnected               NackMotive = 5
)

// String returns a human readable description of the motive.
func (m NackMotive) String() string {
	switch m {
	case NackNoMotive:
		return "no motive"
	case NackTooManyConnections:
		return "too many connections"
	case NackUnknownChainName:
		return "unknown chain name"
	case NackDeprecatedP2PVersion:
		return "deprecated p2p version"
	case NackDeprecatedDistributedDBVersion:
		return "deprecated distributed db version"
	case NackAlreadyConnected:
		return "already connected"
	default:
		return "unknown motive"
	}
}

// Ack is the final handshake message: either an acceptance or one of the
// two refusal forms.
type Ack interface {
	isAck()
}

// AckOK accepts the connection.
type AckOK struct{}

func (AckOK) isAck() {}

// NackV0 refuses the connection without a motive. Kept for peers that
// predate motivated refusals.
type NackV0 struct{}

func (NackV0) isAck() {}

// Nack refuses the connection with a motive and, optionally, a list of
// alternative peers worth dialing instead.
type Nack struct {
	// Motive is the refusal reason.
	Motive NackMotive

	// PotentialPeers lists addresses of peers that may accept a
	// connection in the refuser's place.
	PotentialPeers []string
}

func (Nack) isAck() {}

var nackCodec = codec.Struct[Nack](
	codec.Field("motive", codec.Conv(codec.Int16(),
		func(m NackMotive) (int16, error) { return int16(m), nil },
		func(v int16) (NackMotive, error) { return NackMotive(v), nil },
	), func(n *Nack) *NackMotive { return &n.Motive }),
	codec.Field("potential_peers_to_connect",
		codec.Dynamic(codec.List(MaxNackPeers, pointCodec)),
		func(n *Nack) *[]string { return &n.PotentialPeers }),
)

var ackCodec = codec.Union[Ack](1,
	codec.Case(0x00, "ack", codec.Struct[AckOK](),
		func(v AckOK) Ack { return v },
		func(a Ack) (AckOK, bool) {
			v, ok := a.(AckOK)
			return v, ok
		}),
	codec.Case(0x01, "nack", nackCodec,
		func(v Nack) Ack { return v },
		func(a Ack) (Nack, bool) {
			v, ok := a.(Nack)
			return v, ok
		}),
	codec.Case(0xff, "nack_v0", codec.Struct[NackV0](),
		func(v NackV0) Ack { return v },
		func(a Ack) (NackV0, bool) {
			v, ok := a.(NackV0)
			return v, ok
		}),
)

// EncodeAck serializes an acceptance or refusal.
func EncodeAck(a Ack) ([]byte, error) {
	return codec.Encode(ackCodec, a)
}

// DecodeAck parses an acceptance or refusal, requiring exact consumption.
func DecodeAck(payload []byte) (Ack, error) {
	return codec.DecodeAll(ackCodec, payload)
}
