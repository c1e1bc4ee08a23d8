package wire

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tezlink/tezlink/codec"
	"github.com/tezlink/tezlink/tzcrypto"
)

func testBlockHash(fill byte) tzcrypto.BlockHash {
	var h tzcrypto.BlockHash
	for i := range h {
		h[i] = fill
	}
	return h
}

func testOperationHash(fill byte) tzcrypto.OperationHash {
	var h tzcrypto.OperationHash
	for i := range h {
		h[i] = fill
	}
	return h
}

func testHeader() BlockHeaderData {
	return BlockHeaderData{
		Level:          128342,
		Proto:          4,
		Predecessor:    testBlockHash(0x11),
		Timestamp:      1600000000,
		ValidationPass: 4,
		OperationsHash: tzcrypto.OperationListListHash{0x22},
		Fitness:        [][]byte{{0x01}, {0x00, 0x00, 0xab, 0xcd}},
		Context:        tzcrypto.ContextHash{0x33},
		ProtocolData:   []byte{0xde, 0xad, 0xbe, 0xef},
	}
}

// TestMessageRoundTrip frames and re-parses one instance of every message
// in the catalog.
func TestMessageRoundTrip(t *testing.T) {
	t.Parallel()

	chainID := tzcrypto.ChainID{0x7a, 0x06, 0xa7, 0x70}

	msgs := []Message{
		&Disconnect{},
		&Bootstrap{},
		&Advertise{Points: []string{
			"95.217.154.132:9732", "[::1]:9732",
		}},
		&SwapRequest{
			Point:  "10.0.0.7:9732",
			PeerID: tzcrypto.PeerID{0x01, 0x02},
		},
		&SwapAck{
			Point:  "10.0.0.8:9732",
			PeerID: tzcrypto.PeerID{0x03, 0x04},
		},
		&GetCurrentBranch{ChainID: chainID},
		&CurrentBranch{
			ChainID: chainID,
			Locator: BlockLocator{
				Header: testHeader(),
				History: []tzcrypto.BlockHash{
					testBlockHash(0x44),
					testBlockHash(0x55),
				},
			},
		},
		&Deactivate{ChainID: chainID},
		&GetCurrentHead{ChainID: chainID},
		&CurrentHead{
			ChainID: chainID,
			Header:  testHeader(),
			Mempool: Mempool{
				KnownValid: []tzcrypto.OperationHash{
					testOperationHash(0x66),
				},
				Pending: []tzcrypto.OperationHash{
					testOperationHash(0x77),
					testOperationHash(0x88),
				},
			},
		},
		&GetBlockHeaders{Hashes: []tzcrypto.BlockHash{
			testBlockHash(0x99),
		}},
		&BlockHeader{Header: testHeader()},
		&GetOperations{Hashes: []tzcrypto.OperationHash{
			testOperationHash(0xaa),
		}},
		&Operation{Op: OperationData{
			Branch: testBlockHash(0xbb),
			Data:   []byte{0x01, 0x02, 0x03},
		}},
		&GetProtocols{Hashes: []tzcrypto.ProtocolHash{
			{0xcc},
		}},
		&Protocol{Proto: ProtocolData{
			ExpectedEnvVersion: 2,
			Components: []Component{{
				Name:           "main",
				Implementation: "let () = ()",
			}},
		}},
		&GetOperationHashesForBlocks{
			Requests: []OperationsForBlocksRequest{
				{Hash: testBlockHash(0xdd), ValidationPass: 3},
			},
		},
		&OperationHashesForBlock{
			Hash:           testBlockHash(0xee),
			ValidationPass: 1,
			Hashes: []tzcrypto.OperationHash{
				testOperationHash(0x10),
			},
			Path: PathLeft{
				Path:  PathOp{},
				Right: tzcrypto.OperationListListHash{0x20},
			},
		},
		&GetOperationsForBlocks{
			Requests: []OperationsForBlocksRequest{
				{Hash: testBlockHash(0xff), ValidationPass: 0},
			},
		},
		&OperationsForBlock{
			Hash:           testBlockHash(0x12),
			ValidationPass: 2,
			Path: PathRight{
				Left: tzcrypto.OperationListListHash{0x30},
				Path: PathOp{},
			},
			Operations: []OperationData{{
				Branch: testBlockHash(0x13),
				Data:   []byte{0x04, 0x05},
			}},
		},
	}

	for _, msg := range msgs {
		frame, err := WriteMessage(msg)
		require.NoError(t, err, "encode %v", msg.MsgType())

		decoded, n, err := ReadMessage(frame)
		require.NoError(t, err, "decode %v", msg.MsgType())
		require.Equal(t, len(frame), n)
		require.Equal(t, msg, decoded, "round trip %v", msg.MsgType())
	}
}

// TestReadMessageUnknownType asserts an unregistered discriminant is
// malformed input.
func TestReadMessageUnknownType(t *testing.T) {
	t.Parallel()

	w := codec.NewWriter()
	w.WriteUint32(2)
	w.WriteUint16(0x7777)

	_, _, err := ReadMessage(w.Bytes())
	require.ErrorIs(t, err, codec.ErrMalformed)
}

// TestReadMessageTrailingBytes asserts bytes between the end of the
// payload and the declared frame length are structural corruption.
func TestReadMessageTrailingBytes(t *testing.T) {
	t.Parallel()

	w := codec.NewWriter()
	w.WriteUint32(3)
	w.WriteUint16(uint16(MsgDisconnect))
	w.WriteByte(0x00)

	_, _, err := ReadMessage(w.Bytes())
	require.ErrorIs(t, err, codec.ErrMalformed)
}

// TestReadMessagePartialFrame asserts an incomplete frame reports
// truncation, the retryable failure.
func TestReadMessagePartialFrame(t *testing.T) {
	t.Parallel()

	frame, err := WriteMessage(&GetCurrentBranch{
		ChainID: tzcrypto.ChainID{1, 2, 3, 4},
	})
	require.NoError(t, err)

	for cut := 0; cut < len(frame); cut++ {
		_, _, err := ReadMessage(frame[:cut])
		require.Error(t, err, "cut at %d", cut)
	}
}

// TestMessageLength checks frame length extraction and its failure modes.
func TestMessageLength(t *testing.T) {
	t.Parallel()

	frame, err := WriteMessage(&Bootstrap{})
	require.NoError(t, err)

	total, err := MessageLength(frame)
	require.NoError(t, err)
	require.Equal(t, len(frame), total)

	_, err = MessageLength(frame[:3])
	require.ErrorIs(t, err, codec.ErrTruncated)

	// A declared length beyond the cap is rejected without waiting for
	// the payload.
	w := codec.NewWriter()
	w.WriteUint32(MaxMessageSize)
	_, err = MessageLength(w.Bytes())
	require.ErrorIs(t, err, codec.ErrMalformed)
}

// TestWriteMessageEnforcesCap asserts oversized messages are refused at
// encode time.
func TestWriteMessageEnforcesCap(t *testing.T) {
	t.Parallel()

	// A protocol component can legally carry close to a megabyte of
	// source, which overflows the frame cap together with the framing
	// overhead.
	big := &Protocol{Proto: ProtocolData{
		Components: []Component{{
			Name:           "huge",
			Implementation: string(bytes.Repeat([]byte{'x'}, MaxMessageSize)),
		}},
	}}

	_, err := WriteMessage(big)
	require.Error(t, err)
}

// TestMessageTypeStrings spot-checks the discriminant names used in logs.
func TestMessageTypeStrings(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Disconnect", MsgDisconnect.String())
	require.Equal(t, "CurrentHead", MsgCurrentHead.String())
	require.Equal(t, "OperationsForBlock", MsgOperationsForBlock.String())
	require.Equal(t, "<unknown>", MessageType(0x9999).String())
}
