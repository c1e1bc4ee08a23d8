package wire

import (
	"github.com/lightningnetwork/lnd/fn/v2"

	"github.com/tezlink/tezlink/codec"
	"github.com/tezlink/tezlink/tzcrypto"
)

// Limits on protocol payloads.
const (
	// MaxGetProtocols caps the hashes in one protocol request.
	MaxGetProtocols = 10

	// MaxProtocolComponents caps the source components of one protocol.
	MaxProtocolComponents = 256

	// MaxComponentNameLength bounds a component's module name.
	MaxComponentNameLength = 256

	// MaxComponentSourceSize bounds a component's interface or
	// implementation source text.
	MaxComponentSourceSize = 1 << 20
)

// Component is one source module of an economic protocol: its name, an
// optional interface, and the implementation.
type Component struct {
	// Name is the module name.
	Name string

	// Interface is the module's interface source, when present.
	Interface fn.Option[string]

	// Implementation is the module's implementation source.
	Implementation string
}

var componentCodec = codec.Struct[Component](
	codec.Field("name", codec.String(MaxComponentNameLength),
		func(c *Component) *string { return &c.Name }),
	codec.Field("interface",
		codec.Option(codec.String(MaxComponentSourceSize)),
		func(c *Component) *fn.Option[string] { return &c.Interface }),
	codec.Field("implementation", codec.String(MaxComponentSourceSize),
		func(c *Component) *string { return &c.Implementation }),
)

// ProtocolData is a complete economic protocol: the environment revision
// it expects and its source components.
type ProtocolData struct {
	// ExpectedEnvVersion is the protocol environment revision.
	ExpectedEnvVersion int16

	// Components are the protocol's source modules.
	Components []Component
}

var protocolDataCodec = codec.Struct[ProtocolData](
	codec.Field("expected_env_version", codec.Int16(),
		func(p *ProtocolData) *int16 { return &p.ExpectedEnvVersion }),
	codec.Field("components", codec.Dynamic(codec.List(
		MaxProtocolComponents, componentCodec,
	)), func(p *ProtocolData) *[]Component { return &p.Components }),
)

// GetProtocols requests the named protocols.
type GetProtocols struct {
	// Hashes names the requested protocols.
	Hashes []tzcrypto.ProtocolHash
}

// A compile time check to ensure GetProtocols implements the wire.Message
// interface.
var _ Message = (*GetProtocols)(nil)

var getProtocolsCodec = codec.Struct[GetProtocols](
	codec.Field("get_protocols", codec.List(
		MaxGetProtocols, tzcrypto.ProtocolHashCodec(),
	), func(m *GetProtocols) *[]tzcrypto.ProtocolHash {
		return &m.Hashes
	}),
)

// Encode serializes the protocol request.
//
// This is part of the wire.Message interface.
func (m *GetProtocols) Encode(w *codec.Writer) error {
	return getProtocolsCodec.Write(w, *m)
}

// Decode parses the protocol request.
//
// This is part of the wire.Message interface.
func (m *GetProtocols) Decode(r *codec.Reader) error {
	v, err := getProtocolsCodec.Read(r)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MsgType returns the discriminant of the protocol request.
//
// This is part of the wire.Message interface.
func (m *GetProtocols) MsgType() MessageType {
	return MsgGetProtocols
}

// Protocol delivers one requested protocol.
type Protocol struct {
	// Proto is the delivered protocol.
	Proto ProtocolData
}

// A compile time check to ensure Protocol implements the wire.Message
// interface.
var _ Message = (*Protocol)(nil)

var protocolMsgCodec = codec.Struct[Protocol](
	codec.Field("protocol", codec.Dynamic(protocolDataCodec),
		func(m *Protocol) *ProtocolData { return &m.Proto }),
)

// Encode serializes the protocol delivery.
//
// This is part of the wire.Message interface.
func (m *Protocol) Encode(w *codec.Writer) error {
	return protocolMsgCodec.Write(w, *m)
}

// Decode parses the protocol delivery.
//
// This is part of the wire.Message interface.
func (m *Protocol) Decode(r *codec.Reader) error {
	v, err := protocolMsgCodec.Read(r)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MsgType returns the discriminant of the protocol delivery.
//
// This is part of the wire.Message interface.
func (m *Protocol) MsgType() MessageType {
	return MsgProtocol
}
