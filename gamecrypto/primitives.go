// Package gamecrypto implements the cryptographic primitives of the
// wager protocol: preimages and payment hashes, commit-reveal
// commitments, oracle signature points, and the XOR preimage
// encryption bound to those points.
package gamecrypto

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
)

// Preimage is the 32-byte secret backing a hold invoice's payment
// hash. Never log this value; Preimage intentionally has no String
// method that exposes its bytes.
type Preimage [32]byte

// String redacts the preimage so an accidental %v/%s in a log call
// cannot leak it.
func (p Preimage) String() string {
	return "Preimage(redacted)"
}

// Salt is the 32-byte randomness mixed into a commit-reveal commitment.
type Salt [32]byte

// String redacts the salt for the same reason as Preimage.
func (s Salt) String() string {
	return "Salt(redacted)"
}

// Hash is a 32-byte SHA-256 digest, used for payment hashes and
// commitments alike.
type Hash [32]byte

func (h Hash) Bytes() []byte { return h[:] }

func (h Hash) String() string {
	return fmt.Sprintf("%x", h[:])
}

// RandomPreimage draws 32 uniformly random bytes from a cryptographic
// RNG.
func RandomPreimage() (Preimage, error) {
	var p Preimage
	if _, err := rand.Read(p[:]); err != nil {
		return Preimage{}, fmt.Errorf("random preimage: %w", err)
	}
	return p, nil
}

// RandomSalt draws 32 uniformly random bytes.
func RandomSalt() (Salt, error) {
	var s Salt
	if _, err := rand.Read(s[:]); err != nil {
		return Salt{}, fmt.Errorf("random salt: %w", err)
	}
	return s, nil
}

// PaymentHash computes SHA256(preimage).
func PaymentHash(p Preimage) Hash {
	sum := sha256.Sum256(p[:])
	return Hash(sum)
}

// VerifyPreimage reports whether preimage hashes to the given payment
// hash, using a constant-time comparison of the recomputed digest.
func VerifyPreimage(hash Hash, p Preimage) bool {
	got := PaymentHash(p)
	return subtle.ConstantTimeCompare(got[:], hash[:]) == 1
}

// Commit computes SHA256(actionBytes || salt).
func Commit(actionBytes []byte, salt Salt) Hash {
	h := sha256.New()
	h.Write(actionBytes)
	h.Write(salt[:])
	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

// VerifyCommit recomputes the commitment from actionBytes and salt and
// compares it against commit in constant time relative to the digest
// length.
func VerifyCommit(actionBytes []byte, salt Salt, commit Hash) bool {
	got := Commit(actionBytes, salt)
	return subtle.ConstantTimeCompare(got[:], commit[:]) == 1
}
