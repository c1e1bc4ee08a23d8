// Package wire defines the peer-to-peer message catalog: every message
// shape the distributed database protocol exchanges after connection
// establishment, plus the three handshake-phase messages. Each message
// binds a Go struct to its wire layout through a codec descriptor built
// once at package init.
package wire

import (
	"fmt"

	"github.com/tezlink/tezlink/codec"
)

// MessageType is the 2 byte big-endian discriminant that selects a message
// shape inside the top-level union. The handshake-phase messages
// (ConnectionMessage, Metadata, Ack) are not members of the union and
// carry no discriminant.
type MessageType uint16

// The message types of the distributed database protocol.
const (
	MsgDisconnect                 MessageType = 0x01
	MsgBootstrap                  MessageType = 0x02
	MsgAdvertise                  MessageType = 0x03
	MsgSwapRequest                MessageType = 0x04
	MsgSwapAck                    MessageType = 0x05
	MsgGetCurrentBranch           MessageType = 0x10
	MsgCurrentBranch              MessageType = 0x11
	MsgDeactivate                 MessageType = 0x12
	MsgGetCurrentHead             MessageType = 0x13
	MsgCurrentHead                MessageType = 0x14
	MsgGetBlockHeaders            MessageType = 0x20
	MsgBlockHeader                MessageType = 0x21
	MsgGetOperations              MessageType = 0x30
	MsgOperation                  MessageType = 0x31
	MsgGetProtocols               MessageType = 0x40
	MsgProtocol                   MessageType = 0x41
	MsgGetOperationHashesForBlock MessageType = 0x50
	MsgOperationHashesForBlock    MessageType = 0x51
	MsgGetOperationsForBlocks     MessageType = 0x60
	MsgOperationsForBlock         MessageType = 0x61
)

// String returns the wire name of the message type.
func (t MessageType) String() string {
	switch t {
	case MsgDisconnect:
		return "Disconnect"
	case MsgBootstrap:
		return "Bootstrap"
	case MsgAdvertise:
		return "Advertise"
	case MsgSwapRequest:
		return "SwapRequest"
	case MsgSwapAck:
		return "SwapAck"
	case MsgGetCurrentBranch:
		return "GetCurrentBranch"
	case MsgCurrentBranch:
		return "CurrentBranch"
	case MsgDeactivate:
		return "Deactivate"
	case MsgGetCurrentHead:
		return "GetCurrentHead"
	case MsgCurrentHead:
		return "CurrentHead"
	case MsgGetBlockHeaders:
		return "GetBlockHeaders"
	case MsgBlockHeader:
		return "BlockHeader"
	case MsgGetOperations:
		return "GetOperations"
	case MsgOperation:
		return "Operation"
	case MsgGetProtocols:
		return "GetProtocols"
	case MsgProtocol:
		return "Protocol"
	case MsgGetOperationHashesForBlock:
		return "GetOperationHashesForBlocks"
	case MsgOperationHashesForBlock:
		return "OperationHashesForBlock"
	case MsgGetOperationsForBlocks:
		return "GetOperationsForBlocks"
	case MsgOperationsForBlock:
		return "OperationsForBlock"
	default:
		return "<unknown>"
	}
}

// MaxMessageSize caps the serialized size of a single logical message,
// including its 4 byte length prefix and 2 byte discriminant.
const MaxMessageSize = 1 << 20

// Message is a peer-to-peer message that participates in the top-level
// union.
type Message interface {
	// Encode serializes the message payload (without discriminant or
	// framing) onto w.
	Encode(w *codec.Writer) error

	// Decode parses the message payload off r. The reader is bounded to
	// the message's declared frame.
	Decode(r *codec.Reader) error

	// MsgType returns the discriminant identifying this message inside
	// the top-level union.
	MsgType() MessageType
}

// makeEmptyMessage creates a fresh zero message of the concrete type bound
// to the discriminant. An unregistered discriminant is a malformed stream:
// the peer speaks a protocol we do not, and the connection should be torn
// down by the caller.
func makeEmptyMessage(msgType MessageType) (Message, error) {
	switch msgType {
	case MsgDisconnect:
		return &Disconnect{}, nil
	case MsgBootstrap:
		return &Bootstrap{}, nil
	case MsgAdvertise:
		return &Advertise{}, nil
	case MsgSwapRequest:
		return &SwapRequest{}, nil
	case MsgSwapAck:
		return &SwapAck{}, nil
	case MsgGetCurrentBranch:
		return &GetCurrentBranch{}, nil
	case MsgCurrentBranch:
		return &CurrentBranch{}, nil
	case MsgDeactivate:
		return &Deactivate{}, nil
	case MsgGetCurrentHead:
		return &GetCurrentHead{}, nil
	case MsgCurrentHead:
		return &CurrentHead{}, nil
	case MsgGetBlockHeaders:
		return &GetBlockHeaders{}, nil
	case MsgBlockHeader:
		return &BlockHeader{}, nil
	case MsgGetOperations:
		return &GetOperations{}, nil
	case MsgOperation:
		return &Operation{}, nil
	case MsgGetProtocols:
		return &GetProtocols{}, nil
	case MsgProtocol:
		return &Protocol{}, nil
	case MsgGetOperationHashesForBlock:
		return &GetOperationHashesForBlocks{}, nil
	case MsgOperationHashesForBlock:
		return &OperationHashesForBlock{}, nil
	case MsgGetOperationsForBlocks:
		return &GetOperationsForBlocks{}, nil
	case MsgOperationsForBlock:
		return &OperationsForBlock{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown message type %#04x",
			codec.ErrMalformed, uint16(msgType))
	}
}

// WriteMessage serializes msg as a complete logical frame: a 4 byte
// big-endian length covering the 2 byte discriminant and the payload.
func WriteMessage(msg Message) ([]byte, error) {
	w := codec.NewWriter()

	lenOff := w.Reserve(4)
	w.WriteUint16(uint16(msg.MsgType()))
	if err := msg.Encode(w); err != nil {
		return nil, fmt.Errorf("encode %v: %w", msg.MsgType(), err)
	}

	if w.Len() > MaxMessageSize {
		return nil, fmt.Errorf("%w: message of %d bytes exceeds "+
			"maximum %d", codec.ErrSchemaMismatch, w.Len(),
			MaxMessageSize)
	}
	w.PatchUint32(lenOff, uint32(w.Len()-4))

	return w.Bytes(), nil
}

// ReadMessage parses one complete logical frame from the front of buf and
// returns the decoded message along with the number of bytes consumed.
// ErrTruncated means buf does not yet hold the whole frame and the caller
// may retry once more bytes arrive; every other failure is fatal to the
// connection.
func ReadMessage(buf []byte) (Message, int, error) {
	r := codec.NewReader(buf)

	length, err := r.ReadUint32()
	if err != nil {
		return nil, 0, err
	}
	if length < 2 || length > MaxMessageSize-4 {
		return nil, 0, fmt.Errorf("%w: message length %d",
			codec.ErrMalformed, length)
	}
	if err := r.PushLimit(int(length)); err != nil {
		return nil, 0, err
	}

	rawType, err := r.ReadUint16()
	if err != nil {
		return nil, 0, err
	}

	msg, err := makeEmptyMessage(MessageType(rawType))
	if err != nil {
		return nil, 0, err
	}
	if err := msg.Decode(r); err != nil {
		return nil, 0, fmt.Errorf("decode %v: %w", msg.MsgType(), err)
	}
	if err := r.PopLimit(); err != nil {
		return nil, 0, fmt.Errorf("decode %v: %w", msg.MsgType(), err)
	}

	return msg, r.Offset(), nil
}

// MessageLength inspects the 4 byte length prefix at the front of buf and
// returns the total frame size it declares. It fails ErrTruncated when buf
// holds fewer than four bytes, letting the chunk reassembly loop know to
// wait for more input.
func MessageLength(buf []byte) (int, error) {
	r := codec.NewReader(buf)
	length, err := r.ReadUint32()
	if err != nil {
		return 0, err
	}
	if length < 2 || length > MaxMessageSize-4 {
		return 0, fmt.Errorf("%w: message length %d",
			codec.ErrMalformed, length)
	}
	return int(length) + 4, nil
}
