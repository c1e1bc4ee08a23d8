package wire

import (
	"github.com/tezlink/tezlink/codec"
	"github.com/tezlink/tezlink/tzcrypto"
)

// MaxLocatorHistory caps the predecessor samples in a block locator.
const MaxLocatorHistory = 200

// GetCurrentBranch asks for the peer's view of the named chain: its head
// and a sparse history for ancestor discovery.
type GetCurrentBranch struct {
	// ChainID names the queried chain.
	ChainID tzcrypto.ChainID
}

// A compile time check to ensure GetCurrentBranch implements the
// wire.Message interface.
var _ Message = (*GetCurrentBranch)(nil)

var getCurrentBranchCodec = codec.Struct[GetCurrentBranch](
	codec.Field("chain_id", tzcrypto.ChainIDCodec(),
		func(m *GetCurrentBranch) *tzcrypto.ChainID {
			return &m.ChainID
		}),
)

// Encode serializes the branch request.
//
// This is part of the wire.Message interface.
func (m *GetCurrentBranch) Encode(w *codec.Writer) error {
	return getCurrentBranchCodec.Write(w, *m)
}

// Decode parses the branch request.
//
// This is part of the wire.Message interface.
func (m *GetCurrentBranch) Decode(r *codec.Reader) error {
	v, err := getCurrentBranchCodec.Read(r)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MsgType returns the discriminant of the branch request.
//
// This is part of the wire.Message interface.
func (m *GetCurrentBranch) MsgType() MessageType {
	return MsgGetCurrentBranch
}

// BlockLocator is a head header plus a sparse sample of predecessor
// hashes, dense near the head and exponentially thinning toward genesis.
type BlockLocator struct {
	// Header is the head block of the branch.
	Header BlockHeaderData

	// History samples the head's ancestry.
	History []tzcrypto.BlockHash
}

var blockLocatorCodec = codec.Struct[BlockLocator](
	codec.Field("current_head", blockHeaderCodec,
		func(l *BlockLocator) *BlockHeaderData { return &l.Header }),
	codec.Field("history", codec.List(
		MaxLocatorHistory, tzcrypto.BlockHashCodec(),
	), func(l *BlockLocator) *[]tzcrypto.BlockHash {
		return &l.History
	}),
)

// CurrentBranch delivers the sender's view of a chain as a block locator.
type CurrentBranch struct {
	// ChainID names the described chain.
	ChainID tzcrypto.ChainID

	// Locator is the sender's current branch.
	Locator BlockLocator
}

// A compile time check to ensure CurrentBranch implements the wire.Message
// interface.
var _ Message = (*CurrentBranch)(nil)

var currentBranchCodec = codec.Struct[CurrentBranch](
	codec.Field("chain_id", tzcrypto.ChainIDCodec(),
		func(m *CurrentBranch) *tzcrypto.ChainID { return &m.ChainID }),
	codec.Field("current_branch", blockLocatorCodec,
		func(m *CurrentBranch) *BlockLocator { return &m.Locator }),
)

// Encode serializes the branch delivery.
//
// This is part of the wire.Message interface.
func (m *CurrentBranch) Encode(w *codec.Writer) error {
	return currentBranchCodec.Write(w, *m)
}

// Decode parses the branch delivery.
//
// This is part of the wire.Message interface.
func (m *CurrentBranch) Decode(r *codec.Reader) error {
	v, err := currentBranchCodec.Read(r)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// MsgType returns the discriminant of the branch delivery.
//
// This is part of the wire.Message interface.
func (m *CurrentBranch) MsgType() MessageType {
	return MsgCurrentBranch
}
