package wire

import (
	"github.com/tezlink/tezlink/codec"
	"github.com/tezlink/tezlink/tzcrypto"
)

// Limits on per-pass operation payloads.
const (
	// MaxOperationsForBlocksRequests caps the (block, pass) pairs in one
	// request.
	MaxOperationsForBlocksRequests = 100

	// MaxOperationsPerPass caps the operations or hashes delivered for
	// one validation pass.
	MaxOperationsPerPass = 4096
)

// Path is the merkle audit path tying one validation pass's operation list
// to the operations hash committed in a block header. It is a recursive
// shape: interior steps carry the sibling hash on the other side, the leaf
// marks the audited list.
type Path interface {
	isPath()
}

// PathLeft descends into the left child; Right is the sibling hash.
type PathLeft struct {
	// Path continues toward the audited list.
	Path Path

	// Right is the right sibling's hash.
	Right tzcrypto.OperationListListHash
}

func (PathLeft) isPath() {}

// PathRight descends into the right child; Left is the sibling hash.
type PathRight struct {
	// Left is the left sibling's hash.
	Left tzcrypto.OperationListListHash

	// Path continues toward the audited list.
	Path Path
}

func (PathRight) isPath() {}

// PathOp is the leaf of an audit path.
type PathOp struct{}

func (PathOp) isPath() {}

// pathCodec is assigned in init rather than in its declaration: the left
// and right cases contain the path itself, and the knot is tied with a
// Lazy node that resolves the variable on first use.
var pathCodec codec.Codec[Path]

func init() {
	recurse := codec.Lazy(func() codec.Codec[Path] {
		return pathCodec
	})

	leftCodec := codec.Struct[PathLeft](
		codec.Field("path", recurse,
			func(p *PathLeft) *Path { return &p.Path }),
		codec.Field("right", tzcrypto.OperationListListHashCodec(),
			func(p *PathLeft) *tzcrypto.OperationListListHash {
				return &p.Right
			}),
	)
	rightCodec := codec.Struct[PathRight](
		codec.Field("left", tzcrypto.OperationListListHashCodec(),
			func(p *PathRight) *tzcrypto.OperationListListHash {
				return &p.Left
			}),
		codec.Field("path", recurse,
			func(p *PathRight) *Path { return &p.Path }),
	)

	pathCodec = codec.Union[Path](1,
		codec.Case(0xf0, "left", leftCodec,
			func(v PathLeft) Path { return v },
			func(p Path) (PathLeft, bool) {
				v, ok := p.(PathLeft)
				return v, ok
			}),
		codec.Case(0x0f, "right", rightCodec,
			func(v PathRight) Path { return v },
			func(p Path) (PathRight, bool) {
				v, ok := p.(PathRight)
				return v, ok
			}),
		codec.Case(0x00, "op", codec.Struct[PathOp](),
			func(v PathOp) Path { return v },
			func(p Path) (PathOp, bool) {
				v, ok := p.(PathOp)
				return v, ok
			}),
	)
}

// OperationsForBlocksRequest names one validation pass of one block.
type OperationsForBlocksRequest struct {
	// Hash names the block.
	Hash tzcrypto.BlockHash

	// ValidationPass selects the operation list within the block.
	ValidationPass int8
}

var operationsForBlocksRequestCodec = codec.Struct[OperationsForBlocksRequest](
	codec.Field("hash", tzcrypto.BlockHashCodec(),
		func(q *OperationsForBlocksRequest) *tzcrypto.BlockHash {
			return &q.Hash
		}),
	codec.Field("validation_pass", codec.Int8(),
		func(q *OperationsForBlocksRequest) *int8 {
			return &q.ValidationPass
		}),
)

var operationsForBlocksRequestListCodec = codec.List(
	MaxOperationsForBlocksRequests, operationsForBlocksRequestCodec,
)

// GetOperationHashesForBlocks requests the operation hashes of the named
// validation passes.
type GetOperationHashesForBlocks struct {
	// Requests names the wanted (block, pass) pairs.
	Requests []OperationsForBlocksRequest
}

// A compile time check to ensure GetOperationHashesForBlocks implements
// the wire.Message interface.
var _ Message = (*GetOperationHashesForBlocks)(nil)

// Encode serializes the hash batch request.
//
// This is part of the wire.Message interface.
func (m *GetOperationHashesForBlocks) Encode(w *codec.Writer) error {
	return operationsForBlocksRequestListCodec.Write(w, m.Requests)
}

// Decode parses the hash batch request.
//
// This is part of the wire.Message interface.
func (m *GetOperationHashesForBlocks) Decode(r *codec.Reader) error {
	v, err := operationsForBlocksRequestListCodec.Read(r)
	if err != nil {
		return err
	}
	m.Requests = v
	return nil
}

// MsgType returns the discriminant of the hash batch request.
//
// This is part of the wire.Message interface.
func (m *GetOperationHashesForBlocks) MsgType() MessageType {
	return MsgGetOperationHashesForBlock
}

// OperationHashesForBlock delivers the operation hashes of one validation
// pass together with the audit path anchoring them in the block header.
type OperationHashesForBlock struct {
	// Hash names the block.
	Hash tzcrypto.BlockHash

	// ValidationPass selects the operation list within the block.
	ValidationPass int8

	// Hashes are the operation hashes of the pass, in list order.
	Hashes []tzcrypto.OperationHash

	// Path anchors the list in the header's operations hash.
	Path Path
}

// A compile time check to ensure OperationHashesForBlock implements the
// wire.Message interface.
var _ Message = (*OperationHashesForBlock)(nil)

var operationHashesForBlockCodec = codec.Struct[OperationHashesForBlock](
	codec.Field("hash", tzcrypto.BlockHashCodec(),
		func(m *OperationHashesForBlock) *tzcrypto.BlockHash {
			return &m.Hash
		}),
	codec.Field("validation_pass", codec.Int8(),
		func(m *OperationHashesForBlock) *int8 {
			return &m.ValidationPass
		}),
	codec.Field("operation_hashes", codec.Dynamic(codec.List(
		MaxOperationsPerPass, tzcrypto.OperationHashCodec(),
	)), func(m *OperationHashesForBlock) *[]tzcrypto.OperationHash {
		return &m.Hashes
	}),
	codec.Field("operation_hashes_path",
		codec.Lazy(func() codec.Codec[Path] { return pathCodec }),
		func(m *OperationHashesForBlock) *Path { return &m.Path }),
)

// Encode serializes the hash batch delivery.
//
// This is part of the wire.Message interface.
func (m *OperationHashesForBlock) Encode(w *codec.Writer) error {
	return operationHashesForBlockCodec.Write(w, *m)
}

// Decode parses the hash batch delivery.
//
// This is part of the wire.Message interface.
func (m *OperationHashesForBlock) Decode(r *codec.Reader) error {
	v, err := operationHashesForBlockCodec.Read(r)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MsgType returns the discriminant of the hash batch delivery.
//
// This is part of the wire.Message interface.
func (m *OperationHashesForBlock) MsgType() MessageType {
	return MsgOperationHashesForBlock
}

// GetOperationsForBlocks requests the full operations of the named
// validation passes.
type GetOperationsForBlocks struct {
	// Requests names the wanted (block, pass) pairs.
	Requests []OperationsForBlocksRequest
}

// A compile time check to ensure GetOperationsForBlocks implements the
// wire.Message interface.
var _ Message = (*GetOperationsForBlocks)(nil)

// Encode serializes the operations batch request.
//
// This is part of the wire.Message interface.
func (m *GetOperationsForBlocks) Encode(w *codec.Writer) error {
	return operationsForBlocksRequestListCodec.Write(w, m.Requests)
}

// Decode parses the operations batch request.
//
// This is part of the wire.Message interface.
func (m *GetOperationsForBlocks) Decode(r *codec.Reader) error {
	v, err := operationsForBlocksRequestListCodec.Read(r)
	if err != nil {
		return err
	}
	m.Requests = v
	return nil
}

// MsgType returns the discriminant of the operations batch request.
//
// This is part of the wire.Message interface.
func (m *GetOperationsForBlocks) MsgType() MessageType {
	return MsgGetOperationsForBlocks
}

// OperationsForBlock delivers the operations of one validation pass
// together with the audit path anchoring them in the block header.
type OperationsForBlock struct {
	// Hash names the block.
	Hash tzcrypto.BlockHash

	// ValidationPass selects the operation list within the block.
	ValidationPass int8

	// Path anchors the list in the header's operations hash.
	Path Path

	// Operations are the operations of the pass, in list order.
	Operations []OperationData
}

// A compile time check to ensure OperationsForBlock implements the
// wire.Message interface.
var _ Message = (*OperationsForBlock)(nil)

var operationsForBlockCodec = codec.Struct[OperationsForBlock](
	codec.Field("hash", tzcrypto.BlockHashCodec(),
		func(m *OperationsForBlock) *tzcrypto.BlockHash {
			return &m.Hash
		}),
	codec.Field("validation_pass", codec.Int8(),
		func(m *OperationsForBlock) *int8 {
			return &m.ValidationPass
		}),
	codec.Field("operations_path",
		codec.Lazy(func() codec.Codec[Path] { return pathCodec }),
		func(m *OperationsForBlock) *Path { return &m.Path }),
	codec.Field("operations", codec.List(
		MaxOperationsPerPass, operationCodec,
	), func(m *OperationsForBlock) *[]OperationData {
		return &m.Operations
	}),
)

// Encode serializes the operations batch delivery.
//
// This is part of the wire.Message interface.
func (m *OperationsForBlock) Encode(w *codec.Writer) error {
	return operationsForBlockCodec.Write(w, *m)
}

// Decode parses the operations batch delivery.
//
// This is part of the wire.Message interface.
func (m *OperationsForBlock) Decode(r *codec.Reader) error {
	v, err := operationsForBlockCodec.Read(r)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MsgType returns the discriminant of the operations batch delivery.
//
// This is part of the wire.Message interface.
func (m *OperationsForBlock) MsgType() MessageType {
	return MsgOperationsForBlock
}
