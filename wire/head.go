package wire

import (
	"github.com/tezlink/tezlink/codec"
	"github.com/tezlink/tezlink/tzcrypto"
)

// MaxMempoolOperations caps each operation hash list in a mempool
// snapshot.
const MaxMempoolOperations = 4096

// Mempool is a snapshot of the sender's pending operations, split into
// those already validated against the head and those still waiting.
type Mempool struct {
	// KnownValid lists operations validated against the current head,
	// in application order.
	KnownValid []tzcrypto.OperationHash

	// Pending lists operations not yet validated.
	Pending []tzcrypto.OperationHash
}

var mempoolCodec = codec.Struct[Mempool](
	codec.Field("known_valid", codec.Dynamic(codec.List(
		MaxMempoolOperations, tzcrypto.OperationHashCodec(),
	)), func(m *Mempool) *[]tzcrypto.OperationHash {
		return &m.KnownValid
	}),
	codec.Field("pending", codec.Dynamic(codec.List(
		MaxMempoolOperations, tzcrypto.OperationHashCodec(),
	)), func(m *Mempool) *[]tzcrypto.OperationHash {
		return &m.Pending
	}),
)

// GetCurrentHead asks for the peer's current head and mempool for the
// named chain.
type GetCurrentHead struct {
	// ChainID names the queried chain.
	ChainID tzcrypto.ChainID
}

// A compile time check to ensure GetCurrentHead implements the
// wire.Message interface.
var _ Message = (*GetCurrentHead)(nil)

var getCurrentHeadCodec = codec.Struct[GetCurrentHead](
	codec.Field("chain_id", tzcrypto.ChainIDCodec(),
		func(m *GetCurrentHead) *tzcrypto.ChainID { return &m.ChainID }),
)

// Encode serializes the head request.
//
// This is part of the wire.Message interface.
func (m *GetCurrentHead) Encode(w *codec.Writer) error {
	return getCurrentHeadCodec.Write(w, *m)
}

// Decode parses the head request.
//
// This is part of the wire.Message interface.
func (m *GetCurrentHead) Decode(r *codec.Reader) error {
	v, err := getCurrentHeadCodec.Read(r)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MsgType returns the discriminant of the head request.
//
// This is part of the wire.Message interface.
func (m *GetCurrentHead) MsgType() MessageType {
	return MsgGetCurrentHead
}

// CurrentHead announces the sender's head block together with a mempool
// snapshot.
type CurrentHead struct {
	// ChainID names the described chain.
	ChainID tzcrypto.ChainID

	// Header is the head block header.
	Header BlockHeaderData

	// Mempool is the snapshot of pending operations. Peers that
	// requested mempool silence receive empty lists.
	Mempool Mempool
}

// A compile time check to ensure CurrentHead implements the wire.Message
// interface.
var _ Message = (*CurrentHead)(nil)

var currentHeadCodec = codec.Struct[CurrentHead](
	codec.Field("chain_id", tzcrypto.ChainIDCodec(),
		func(m *CurrentHead) *tzcrypto.ChainID { return &m.ChainID }),
	codec.Field("current_block_header", blockHeaderCodec,
		func(m *CurrentHead) *BlockHeaderData { return &m.Header }),
	codec.Field("current_mempool", mempoolCodec,
		func(m *CurrentHead) *Mempool { return &m.Mempool }),
)

// Encode serializes the head announcement.
//
// This is part of the wire.Message interface.
func (m *CurrentHead) Encode(w *codec.Writer) error {
	return currentHeadCodec.Write(w, *m)
}

// Decode parses the head announcement.
//
// This is part of the wire.Message interface.
func (m *CurrentHead) Decode(r *codec.Reader) error {
	v, err := currentHeadCodec.Read(r)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MsgType returns the discriminant of the head announcement.
//
// This is part of the wire.Message interface.
func (m *CurrentHead) MsgType() MessageType {
	return MsgCurrentHead
}
