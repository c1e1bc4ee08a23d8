// Package identity manages the node's long-term peer identity: an X25519
// key pair and the proof-of-work stamp mined over its public key,
// persisted as an identity.json file.
package identity

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/tezlink/tezlink/tzcrypto"
)

// Identity is a node's long-term identity. The secret key never leaves
// the identity file and the process.
type Identity struct {
	// PeerID is the identity hash of the public key.
	PeerID tzcrypto.PeerID

	// PublicKey and SecretKey are the X25519 identity pair.
	PublicKey tzcrypto.PublicKey
	SecretKey tzcrypto.SecretKey

	// PoWStamp is the stamp mined over PublicKey.
	PoWStamp tzcrypto.PoWStamp
}

// identityFile is the on-disk JSON layout. The field names and encodings
// match the identity.json files other node implementations produce.
type identityFile struct {
	PeerID    string `json:"peer_id"`
	PublicKey string `json:"public_key"`
	SecretKey string `json:"secret_key"`
	PoWStamp  string `json:"proof_of_work_stamp"`
}

// Generate mines a fresh identity at the given proof-of-work difficulty.
// Mining is CPU bound and can take a while at realistic difficulties;
// cancel ctx to abandon it.
func Generate(ctx context.Context, difficulty int) (*Identity, error) {
	pk, sk, err := tzcrypto.GeneratePair(nil)
	if err != nil {
		return nil, err
	}

	stamp, err := tzcrypto.MinePoWStamp(ctx, pk, difficulty)
	if err != nil {
		return nil, err
	}

	return &Identity{
		PeerID:    pk.PeerID(),
		PublicKey: pk,
		SecretKey: sk,
		PoWStamp:  stamp,
	}, nil
}

// Load reads an identity file and checks its internal consistency: the
// recorded peer id must match the public key, and the public key must
// match the secret key.
func Load(path string) (*Identity, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f identityFile
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("identity: parse %s: %w", path, err)
	}

	pk, err := tzcrypto.ParsePublicKey(f.PublicKey)
	if err != nil {
		return nil, err
	}

	skRaw, err := hex.DecodeString(f.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("identity: invalid secret key hex: %w",
			err)
	}
	if len(skRaw) != tzcrypto.KeySize {
		return nil, fmt.Errorf("identity: secret key of %d bytes, "+
			"want %d", len(skRaw), tzcrypto.KeySize)
	}
	var sk tzcrypto.SecretKey
	copy(sk[:], skRaw)

	derived, err := sk.Public()
	if err != nil {
		return nil, err
	}
	if derived != pk {
		return nil, fmt.Errorf("identity: public key does not match " +
			"secret key")
	}

	stampRaw, err := hex.DecodeString(f.PoWStamp)
	if err != nil {
		return nil, fmt.Errorf("identity: invalid stamp hex: %w", err)
	}
	stamp, err := tzcrypto.NewPoWStamp(stampRaw)
	if err != nil {
		return nil, err
	}

	peerID, err := tzcrypto.ParsePeerID(f.PeerID)
	if err != nil {
		return nil, err
	}
	if peerID != pk.PeerID() {
		return nil, fmt.Errorf("identity: peer id %v does not match "+
			"public key", peerID)
	}

	return &Identity{
		PeerID:    peerID,
		PublicKey: pk,
		SecretKey: sk,
		PoWStamp:  stamp,
	}, nil
}

// Validate checks that the identity's stamp clears the given difficulty.
// An identity mined for an easier network fails against a harder one.
func (id *Identity) Validate(difficulty int) error {
	if !tzcrypto.CheckProofOfWork(id.PublicKey, id.PoWStamp, difficulty) {
		return fmt.Errorf("identity: proof of work below difficulty "+
			"%d", difficulty)
	}
	return nil
}

// Save writes the identity to path with owner-only permissions.
func (id *Identity) Save(path string) error {
	f := identityFile{
		PeerID:    id.PeerID.String(),
		PublicKey: hex.EncodeToString(id.PublicKey[:]),
		SecretKey: hex.EncodeToString(id.SecretKey[:]),
		PoWStamp:  hex.EncodeToString(id.PoWStamp[:]),
	}

	raw, err := json.MarshalIndent(&f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(raw, '\n'), 0600)
}
