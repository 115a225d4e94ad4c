package gamecrypto

import "github.com/decred/dcrd/dcrec/secp256k1/v4"

// EncryptedPreimage is a preimage masked by the hash of a signature
// point: enc = preimage XOR SHA256(serialize_compressed(P)).
type EncryptedPreimage [32]byte

// EncryptPreimage masks preimage under the signature point for the
// verdict in which the encrypting player loses, so that only whoever
// learns the oracle's signature for that verdict can recover it.
func EncryptPreimage(p Preimage, point *secp256k1.PublicKey) EncryptedPreimage {
	mask := PointHash(point)
	var enc EncryptedPreimage
	for i := range enc {
		enc[i] = p[i] ^ mask[i]
	}
	return enc
}

// DecryptPreimage reverses EncryptPreimage given the same signature
// point. The caller must independently verify the result hashes to
// the expected payment hash; a wrong point silently yields garbage.
func DecryptPreimage(enc EncryptedPreimage, point *secp256k1.PublicKey) Preimage {
	mask := PointHash(point)
	var p Preimage
	for i := range p {
		p[i] = enc[i] ^ mask[i]
	}
	return p
}
