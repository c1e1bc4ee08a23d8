package wire

import (
	"github.com/tezlink/tezlink/codec"
	"github.com/tezlink/tezlink/tzcrypto"
)

// Limits on operation payloads.
const (
	// MaxGetOperations caps the hashes in one operation request.
	MaxGetOperations = 100

	// MaxOperationDataSize bounds the opaque protocol-specific part of
	// an operation.
	MaxOperationDataSize = 1 << 16
)

// OperationData is the shell view of an operation: the branch it is
// anchored to plus the protocol-specific remainder.
type OperationData struct {
	// Branch is the block hash the operation commits to.
	Branch tzcrypto.BlockHash

	// Data is the protocol-specific remainder, opaque at this layer.
	Data []byte
}

// Hash computes the operation hash of the serialized operation.
func (o *OperationData) Hash() (tzcrypto.OperationHash, error) {
	raw, err := codec.Encode(operationDataCodec, *o)
	if err != nil {
		return tzcrypto.OperationHash{}, err
	}
	return tzcrypto.HashOperation(raw), nil
}

// operationDataCodec lays out an operation. Data runs to the end of the
// enclosing frame, so embedding sites use operationCodec.
var operationDataCodec = codec.Struct[OperationData](
	codec.Field("branch", tzcrypto.BlockHashCodec(),
		func(o *OperationData) *tzcrypto.BlockHash { return &o.Branch }),
	codec.Field("data", codec.TailBytes(),
		func(o *OperationData) *[]byte { return &o.Data }),
)

// operationCodec is the framed form used wherever an operation is embedded
// alongside other fields.
var operationCodec = codec.DynamicMax(
	MaxOperationDataSize+tzcrypto.BlockHashSize, operationDataCodec,
)

// GetOperations requests the named operations.
type GetOperations struct {
	// Hashes names the requested operations.
	Hashes []tzcrypto.OperationHash
}

// A compile time check to ensure GetOperations implements the wire.Message
// interface.
var _ Message = (*GetOperations)(nil)

var getOperationsCodec = codec.Struct[GetOperations](
	codec.Field("get_operations", codec.List(
		MaxGetOperations, tzcrypto.OperationHashCodec(),
	), func(m *GetOperations) *[]tzcrypto.OperationHash {
		return &m.Hashes
	}),
)

// Encode serializes the operation request.
//
// This is part of the wire.Message interface.
func (m *GetOperations) Encode(w *codec.Writer) error {
	return getOperationsCodec.Write(w, *m)
}

// Decode parses the operation request.
//
// This is part of the wire.Message interface.
func (m *GetOperations) Decode(r *codec.Reader) error {
	v, err := getOperationsCodec.Read(r)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MsgType returns the discriminant of the operation request.
//
// This is part of the wire.Message interface.
func (m *GetOperations) MsgType() MessageType {
	return MsgGetOperations
}

// Operation delivers one requested operation.
type Operation struct {
	// Op is the delivered operation.
	Op OperationData
}

// A compile time check to ensure Operation implements the wire.Message
// interface.
var _ Message = (*Operation)(nil)

var operationMsgCodec = codec.Struct[Operation](
	codec.Field("operation", operationCodec,
		func(m *Operation) *OperationData { return &m.Op }),
)

// Encode serializes the operation delivery.
//
// This is part of the wire.Message interface.
func (m *Operation) Encode(w *codec.Writer) error {
	return operationMsgCodec.Write(w, *m)
}

// Decode parses the operation delivery.
//
// This is part of the wire.Message interface.
func (m *Operation) Decode(r *codec.Reader) error {
	v, err := operationMsgCodec.Read(r)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MsgType returns the discriminant of the operation delivery.
//
// This is part of the wire.Message interface.
func (m *Operation) MsgType() MessageType {
	return MsgOperation
}
