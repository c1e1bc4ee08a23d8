package wire

import (
	"github.com/tezlink/tezlink/codec"
)

// Metadata is the first encrypted message on a freshly keyed connection.
// It advertises connection-scoped feature flags; neither flag affects the
// codec or transport layers themselves.
type Metadata struct {
	// DisableMempool asks the peer not to relay mempool operations.
	DisableMempool bool

	// PrivateNode asks the peer not to advertise this address.
	PrivateNode bool
}

var metadataCodec = codec.Struct[Metadata](
	codec.Field("disable_mempool", codec.Bool(),
		func(m *Metadata) *bool { return &m.DisableMempool }),
	codec.Field("private_node", codec.Bool(),
		func(m *Metadata) *bool { return &m.PrivateNode }),
)

// EncodeMetadata serializes m.
func EncodeMetadata(m *Metadata) ([]byte, error) {
	return codec.Encode(metadataCodec, *m)
}

// DecodeMetadata parses a metadata payload, requiring exact consumption.
func DecodeMetadata(payload []byte) (*Metadata, error) {
	m, err := codec.DecodeAll(metadataCodec, payload)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
