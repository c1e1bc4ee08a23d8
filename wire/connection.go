package wire

import (
	"fmt"

	"github.com/tezlink/tezlink/codec"
	"github.com/tezlink/tezlink/tzcrypto"
)

// Limits on the version list carried in a connection message.
const (
	MaxVersionNameLength  = 64
	MaxAdvertisedVersions = 16
)

// Version names one protocol version a peer is willing to speak: a network
// name plus the distributed database and peer-to-peer layer revisions.
type Version struct {
	// Name is the network identifier, e.g. "TEZOS_MAINNET".
	Name string

	// DDBVersion is the distributed database protocol revision.
	DDBVersion uint16

	// P2PVersion is the transport layer revision.
	P2PVersion uint16
}

// String returns a compact human readable rendering of the version.
func (v Version) String() string {
	return fmt.Sprintf("%s (ddb=%d, p2p=%d)", v.Name, v.DDBVersion,
		v.P2PVersion)
}

// Supports reports whether the two versions name the same network. Only
// same-network versions are comparable.
func (v Version) Supports(other Version) bool {
	return v.Name == other.Name
}

// Compare orders two same-network versions, preferring the higher
// distributed database revision and breaking ties on the transport
// revision.
func (v Version) Compare(other Version) int {
	if v.DDBVersion != other.DDBVersion {
		if v.DDBVersion < other.DDBVersion {
			return -1
		}
		return 1
	}
	switch {
	case v.P2PVersion < other.P2PVersion:
		return -1
	case v.P2PVersion > other.P2PVersion:
		return 1
	default:
		return 0
	}
}

// SelectVersion picks the highest protocol version present in both lists.
// Versions are compared only within the same network name. The boolean is
// false when the lists share no version, which is fatal to the handshake.
func SelectVersion(local, remote []Version) (Version, bool) {
	var (
		best  Version
		found bool
	)
	for _, l := range local {
		for _, r := range remote {
			if l != r {
				continue
			}
			if !found || best.Compare(l) < 0 {
				best = l
				found = true
			}
		}
	}
	return best, found
}

var versionCodec = codec.Struct[Version](
	codec.Field("name", codec.String(MaxVersionNameLength),
		func(v *Version) *string { return &v.Name }),
	codec.Field("distributed_db_version", codec.Uint16(),
		func(v *Version) *uint16 { return &v.DDBVersion }),
	codec.Field("p2p_version", codec.Uint16(),
		func(v *Version) *uint16 { return &v.P2PVersion }),
)

// ConnectionMessage is the first and only unencrypted message on a
// connection. It carries everything the peers need to authenticate the
// exchange and derive session keys: the ephemeral public key, a random
// nonce, the proof-of-work stamp over the key, and the version list.
type ConnectionMessage struct {
	// Port is the TCP port the sender accepts connections on, zero when
	// the sender is not listening.
	Port uint16

	// PublicKey is the sender's X25519 session public key.
	PublicKey tzcrypto.PublicKey

	// PoWStamp proves work was spent minting the public key.
	PoWStamp tzcrypto.PoWStamp

	// Nonce is the sender's random per-connection value.
	Nonce tzcrypto.Nonce

	// Versions lists every protocol version the sender can speak.
	Versions []Version
}

var connectionMessageCodec = codec.Struct[ConnectionMessage](
	codec.Field("port", codec.Uint16(),
		func(m *ConnectionMessage) *uint16 { return &m.Port }),
	codec.Field("public_key", tzcrypto.PublicKeyCodec(),
		func(m *ConnectionMessage) *tzcrypto.PublicKey {
			return &m.PublicKey
		}),
	codec.Field("proof_of_work_stamp", tzcrypto.PoWStampCodec(),
		func(m *ConnectionMessage) *tzcrypto.PoWStamp {
			return &m.PoWStamp
		}),
	codec.Field("message_nonce", tzcrypto.NonceCodec(),
		func(m *ConnectionMessage) *tzcrypto.Nonce { return &m.Nonce }),
	codec.Field("versions", codec.List(MaxAdvertisedVersions, versionCodec),
		func(m *ConnectionMessage) *[]Version { return &m.Versions }),
)

// EncodeConnectionMessage serializes m into its unencrypted wire frame: a
// 2 byte big-endian length followed by the payload. The frame doubles as
// the transcript input for session-key derivation, so both sides hash
// exactly the bytes that crossed the wire.
func EncodeConnectionMessage(m *ConnectionMessage) ([]byte, error) {
	payload, err := codec.Encode(connectionMessageCodec, *m)
	if err != nil {
		return nil, err
	}

	w := codec.NewWriter()
	w.WriteUint16(uint16(len(payload)))
	w.WriteBytes(payload)
	return w.Bytes(), nil
}

// DecodeConnectionMessage parses the payload of an unencrypted connection
// frame, without the 2 byte length prefix.
func DecodeConnectionMessage(payload []byte) (*ConnectionMessage, error) {
	m, err := codec.DecodeAll(connectionMessageCodec, payload)
	if err != nil {
		return nil, err
	}
	return &m, nil
}
