package tzcrypto

import (
	"fmt"

	"golang.org/x/crypto/blake2b"
)

// Sizes of the raw hash payloads carried on the wire.
const (
	ChainIDSize               = 4
	BlockHashSize             = 32
	ContextHashSize           = 32
	OperationHashSize         = 32
	OperationListListHashSize = 32
	ProtocolHashSize          = 32
	PeerIDSize                = 16
)

// Base58 kind prefixes. Each fixes both the textual prefix characters and
// the payload length, e.g. a 32 byte payload behind blockHashPrefix always
// renders as "B...".
var (
	chainIDPrefix               = []byte{87, 82, 0}    // Net
	blockHashPrefix             = []byte{1, 52}        // B
	contextHashPrefix           = []byte{79, 199}      // Co
	operationHashPrefix         = []byte{5, 116}       // o
	operationListListHashPrefix = []byte{29, 159, 109} // LLo
	protocolHashPrefix          = []byte{2, 170}       // P
	peerIDPrefix                = []byte{153, 103}     // id
)

func copyExact(dst, src []byte, what string) error {
	if len(src) != len(dst) {
		return fmt.Errorf("tzcrypto: invalid %s length %d, want %d",
			what, len(src), len(dst))
	}
	copy(dst, src)
	return nil
}

// ChainID identifies a chain. It is derived from the genesis block hash.
type ChainID [ChainIDSize]byte

// String returns the checksummed base58 form ("Net...").
func (c ChainID) String() string {
	return b58CheckEncode(chainIDPrefix, c[:])
}

// NewChainID builds a ChainID from raw bytes.
func NewChainID(b []byte) (ChainID, error) {
	var c ChainID
	err := copyExact(c[:], b, "chain id")
	return c, err
}

// ParseChainID parses the checksummed base58 form.
func ParseChainID(s string) (ChainID, error) {
	raw, err := b58CheckDecode(s, chainIDPrefix, ChainIDSize)
	if err != nil {
		return ChainID{}, err
	}
	return NewChainID(raw)
}

// BlockHash is the BLAKE2b hash of a block header.
type BlockHash [BlockHashSize]byte

// String returns the checksummed base58 form ("B...").
func (h BlockHash) String() string {
	return b58CheckEncode(blockHashPrefix, h[:])
}

// NewBlockHash builds a BlockHash from raw bytes.
func NewBlockHash(b []byte) (BlockHash, error) {
	var h BlockHash
	err := copyExact(h[:], b, "block hash")
	return h, err
}

// ParseBlockHash parses the checksummed base58 form.
func ParseBlockHash(s string) (BlockHash, error) {
	raw, err := b58CheckDecode(s, blockHashPrefix, BlockHashSize)
	if err != nil {
		return BlockHash{}, err
	}
	return NewBlockHash(raw)
}

// ContextHash is the hash of a ledger context tree.
type ContextHash [ContextHashSize]byte

// String returns the checksummed base58 form ("Co...").
func (h ContextHash) String() string {
	return b58CheckEncode(contextHashPrefix, h[:])
}

// NewContextHash builds a ContextHash from raw bytes.
func NewContextHash(b []byte) (ContextHash, error) {
	var h ContextHash
	err := copyExact(h[:], b, "context hash")
	return h, err
}

// ParseContextHash parses the checksummed base58 form.
func ParseContextHash(s string) (ContextHash, error) {
	raw, err := b58CheckDecode(s, contextHashPrefix, ContextHashSize)
	if err != nil {
		return ContextHash{}, err
	}
	return NewContextHash(raw)
}

// OperationHash is the BLAKE2b hash of an operation.
type OperationHash [OperationHashSize]byte

// String returns the checksummed base58 form ("o...").
func (h OperationHash) String() string {
	return b58CheckEncode(operationHashPrefix, h[:])
}

// NewOperationHash builds an OperationHash from raw bytes.
func NewOperationHash(b []byte) (OperationHash, error) {
	var h OperationHash
	err := copyExact(h[:], b, "operation hash")
	return h, err
}

// ParseOperationHash parses the checksummed base58 form.
func ParseOperationHash(s string) (OperationHash, error) {
	raw, err := b58CheckDecode(s, operationHashPrefix, OperationHashSize)
	if err != nil {
		return OperationHash{}, err
	}
	return NewOperationHash(raw)
}

// OperationListListHash is the root of the per-block merkle forest of
// operation lists.
type OperationListListHash [OperationListListHashSize]byte

// String returns the checksummed base58 form ("LLo...").
func (h OperationListListHash) String() string {
	return b58CheckEncode(operationListListHashPrefix, h[:])
}

// NewOperationListListHash builds an OperationListListHash from raw bytes.
func NewOperationListListHash(b []byte) (OperationListListHash, error) {
	var h OperationListListHash
	err := copyExact(h[:], b, "operation list list hash")
	return h, err
}

// ParseOperationListListHash parses the checksummed base58 form.
func ParseOperationListListHash(s string) (OperationListListHash, error) {
	raw, err := b58CheckDecode(
		s, operationListListHashPrefix, OperationListListHashSize,
	)
	if err != nil {
		return OperationListListHash{}, err
	}
	return NewOperationListListHash(raw)
}

// ProtocolHash identifies an economic protocol version.
type ProtocolHash [ProtocolHashSize]byte

// String returns the checksummed base58 form ("P...").
func (h ProtocolHash) String() string {
	return b58CheckEncode(protocolHashPrefix, h[:])
}

// NewProtocolHash builds a ProtocolHash from raw bytes.
func NewProtocolHash(b []byte) (ProtocolHash, error) {
	var h ProtocolHash
	err := copyExact(h[:], b, "protocol hash")
	return h, err
}

// ParseProtocolHash parses the checksummed base58 form.
func ParseProtocolHash(s string) (ProtocolHash, error) {
	raw, err := b58CheckDecode(s, protocolHashPrefix, ProtocolHashSize)
	if err != nil {
		return ProtocolHash{}, err
	}
	return NewProtocolHash(raw)
}

// PeerID is the 16 byte BLAKE2b hash of a peer's session public key and
// serves as the peer's stable identity.
type PeerID [PeerIDSize]byte

// String returns the checksummed base58 form ("id...").
func (p PeerID) String() string {
	return b58CheckEncode(peerIDPrefix, p[:])
}

// NewPeerID builds a PeerID from raw bytes.
func NewPeerID(b []byte) (PeerID, error) {
	var p PeerID
	err := copyExact(p[:], b, "peer id")
	return p, err
}

// ParsePeerID parses the checksummed base58 form.
func ParsePeerID(s string) (PeerID, error) {
	raw, err := b58CheckDecode(s, peerIDPrefix, PeerIDSize)
	if err != nil {
		return PeerID{}, err
	}
	return NewPeerID(raw)
}

// HashBlock computes the BlockHash of serialized header bytes.
func HashBlock(header []byte) BlockHash {
	return BlockHash(blake2b.Sum256(header))
}

// HashOperation computes the OperationHash of serialized operation bytes.
func HashOperation(op []byte) OperationHash {
	return OperationHash(blake2b.Sum256(op))
}
