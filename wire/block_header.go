package wire

import (
	"github.com/tezlink/tezlink/codec"
	"github.com/tezlink/tezlink/tzcrypto"
)

// Limits on block header payloads.
const (
	// MaxGetBlockHeaders caps the hashes in one header request.
	MaxGetBlockHeaders = 10

	// MaxFitnessElements and MaxFitnessElementSize bound the fitness
	// vector, whose elements are short protocol-defined byte strings.
	MaxFitnessElements    = 16
	MaxFitnessElementSize = 256

	// MaxProtocolDataSize bounds the opaque protocol-specific part of a
	// header.
	MaxProtocolDataSize = 1 << 16
)

// BlockHeaderData is the shell view of a block header: the fields every
// protocol version shares, followed by the opaque protocol-specific
// remainder.
type BlockHeaderData struct {
	// Level is the block's height above genesis.
	Level int32

	// Proto is the ordinal of the protocol the block was baked under.
	Proto uint8

	// Predecessor is the hash of the preceding block.
	Predecessor tzcrypto.BlockHash

	// Timestamp is seconds since the Unix epoch.
	Timestamp int64

	// ValidationPass is the number of validation passes of the block's
	// operations.
	ValidationPass uint8

	// OperationsHash commits to the block's operation lists.
	OperationsHash tzcrypto.OperationListListHash

	// Fitness is the chain-selection score vector.
	Fitness [][]byte

	// Context is the hash of the ledger context the block produces.
	Context tzcrypto.ContextHash

	// ProtocolData is the protocol-specific remainder, opaque at this
	// layer.
	ProtocolData []byte
}

// Hash computes the block hash of the serialized header.
func (h *BlockHeaderData) Hash() (tzcrypto.BlockHash, error) {
	raw, err := codec.Encode(blockHeaderDataCodec, *h)
	if err != nil {
		return tzcrypto.BlockHash{}, err
	}
	return tzcrypto.HashBlock(raw), nil
}

// blockHeaderDataCodec lays out the shell header fields. ProtocolData runs
// to the end of the enclosing frame, so the codec only appears behind a
// Dynamic wrapper (blockHeaderCodec) or directly under a message frame.
var blockHeaderDataCodec = codec.Struct[BlockHeaderData](
	codec.Field("level", codec.Int32(),
		func(h *BlockHeaderData) *int32 { return &h.Level }),
	codec.Field("proto", codec.Uint8(),
		func(h *BlockHeaderData) *uint8 { return &h.Proto }),
	codec.Field("predecessor", tzcrypto.BlockHashCodec(),
		func(h *BlockHeaderData) *tzcrypto.BlockHash {
			return &h.Predecessor
		}),
	codec.Field("timestamp", codec.Int64(),
		func(h *BlockHeaderData) *int64 { return &h.Timestamp }),
	codec.Field("validation_pass", codec.Uint8(),
		func(h *BlockHeaderData) *uint8 { return &h.ValidationPass }),
	codec.Field("operations_hash", tzcrypto.OperationListListHashCodec(),
		func(h *BlockHeaderData) *tzcrypto.OperationListListHash {
			return &h.OperationsHash
		}),
	codec.Field("fitness", codec.Dynamic(codec.List(
		MaxFitnessElements, codec.Bytes(MaxFitnessElementSize),
	)), func(h *BlockHeaderData) *[][]byte { return &h.Fitness }),
	codec.Field("context", tzcrypto.ContextHashCodec(),
		func(h *BlockHeaderData) *tzcrypto.ContextHash {
			return &h.Context
		}),
	codec.Field("protocol_data", codec.TailBytes(),
		func(h *BlockHeaderData) *[]byte { return &h.ProtocolData }),
)

// blockHeaderCodec is the framed form used wherever a header is embedded
// alongside other fields.
var blockHeaderCodec = codec.DynamicMax(
	MaxProtocolDataSize+1024, blockHeaderDataCodec,
)

// GetBlockHeaders requests the headers of the named blocks.
type GetBlockHeaders struct {
	// Hashes names the requested blocks.
	Hashes []tzcrypto.BlockHash
}

// A compile time check to ensure GetBlockHeaders implements the
// wire.Message interface.
var _ Message = (*GetBlockHeaders)(nil)

var getBlockHeadersCodec = codec.Struct[GetBlockHeaders](
	codec.Field("get_block_headers", codec.List(
		MaxGetBlockHeaders, tzcrypto.BlockHashCodec(),
	), func(m *GetBlockHeaders) *[]tzcrypto.BlockHash {
		return &m.Hashes
	}),
)

// Encode serializes the header request.
//
// This is part of the wire.Message interface.
func (m *GetBlockHeaders) Encode(w *codec.Writer) error {
	return getBlockHeadersCodec.Write(w, *m)
}

// Decode parses the header request.
//
// This is part of the wire.Message interface.
func (m *GetBlockHeaders) Decode(r *codec.Reader) error {
	v, err := getBlockHeadersCodec.Read(r)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MsgType returns the discriminant of the header request.
//
// This is part of the wire.Message interface.
func (m *GetBlockHeaders) MsgType() MessageType {
	return MsgGetBlockHeaders
}

// BlockHeader delivers one requested block header.
type BlockHeader struct {
	// Header is the delivered header.
	Header BlockHeaderData
}

// A compile time check to ensure BlockHeader implements the wire.Message
// interface.
var _ Message = (*BlockHeader)(nil)

var blockHeaderMsgCodec = codec.Struct[BlockHeader](
	codec.Field("block_header", blockHeaderCodec,
		func(m *BlockHeader) *BlockHeaderData { return &m.Header }),
)

// Encode serializes the header delivery.
//
// This is part of the wire.Message interface.
func (m *BlockHeader) Encode(w *codec.Writer) error {
	return blockHeaderMsgCodec.Write(w, *m)
}

// Decode parses the header delivery.
//
// This is part of the wire.Message interface.
func (m *BlockHeader) Decode(r *codec.Reader) error {
	v, err := blockHeaderMsgCodec.Read(r)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MsgType returns the discriminant of the header delivery.
//
// This is part of the wire.Message interface.
func (m *BlockHeader) MsgType() MessageType {
	return MsgBlockHeader
}
