package tzcrypto

import (
	"github.com/tezlink/tezlink/codec"
)

// Wire codecs for the fixed-size value types. Each is a plain projection
// over the raw bytes; the checksummed base58 form never appears on the
// wire, only in logs, RPC and configuration.

func fixedCodec[T any](size int, fromBytes func([]byte) (T, error),
	toBytes func(T) []byte) codec.Codec[T] {

	return codec.Conv(
		codec.FixedBytes(size),
		func(v T) ([]byte, error) {
			return toBytes(v), nil
		},
		fromBytes,
	)
}

// ChainIDCodec returns the wire codec for a ChainID.
func ChainIDCodec() codec.Codec[ChainID] {
	return fixedCodec(ChainIDSize, NewChainID,
		func(v ChainID) []byte { return v[:] })
}

// BlockHashCodec returns the wire codec for a BlockHash.
func BlockHashCodec() codec.Codec[BlockHash] {
	return fixedCodec(BlockHashSize, NewBlockHash,
		func(v BlockHash) []byte { return v[:] })
}

// ContextHashCodec returns the wire codec for a ContextHash.
func ContextHashCodec() codec.Codec[ContextHash] {
	return fixedCodec(ContextHashSize, NewContextHash,
		func(v ContextHash) []byte { return v[:] })
}

// OperationHashCodec returns the wire codec for an OperationHash.
func OperationHashCodec() codec.Codec[OperationHash] {
	return fixedCodec(OperationHashSize, NewOperationHash,
		func(v OperationHash) []byte { return v[:] })
}

// OperationListListHashCodec returns the wire codec for an
// OperationListListHash.
func OperationListListHashCodec() codec.Codec[OperationListListHash] {
	return fixedCodec(OperationListListHashSize, NewOperationListListHash,
		func(v OperationListListHash) []byte { return v[:] })
}

// ProtocolHashCodec returns the wire codec for a ProtocolHash.
func ProtocolHashCodec() codec.Codec[ProtocolHash] {
	return fixedCodec(ProtocolHashSize, NewProtocolHash,
		func(v ProtocolHash) []byte { return v[:] })
}

// PeerIDCodec returns the wire codec for a PeerID.
func PeerIDCodec() codec.Codec[PeerID] {
	return fixedCodec(PeerIDSize, NewPeerID,
		func(v PeerID) []byte { return v[:] })
}

// PublicKeyCodec returns the wire codec for an X25519 public key.
func PublicKeyCodec() codec.Codec[PublicKey] {
	return fixedCodec(KeySize, NewPublicKey,
		func(v PublicKey) []byte { return v[:] })
}

// PoWStampCodec returns the wire codec for a proof-of-work stamp.
func PoWStampCodec() codec.Codec[PoWStamp] {
	return fixedCodec(PoWStampSize, NewPoWStamp,
		func(v PoWStamp) []byte { return v[:] })
}

// NonceCodec returns the wire codec for a connection nonce.
func NonceCodec() codec.Codec[Nonce] {
	return fixedCodec(NonceSize, func(b []byte) (Nonce, error) {
		var n Nonce
		err := copyExact(n[:], b, "nonce")
		return n, err
	}, func(v Nonce) []byte { return v[:] })
}
