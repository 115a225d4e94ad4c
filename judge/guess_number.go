package judge

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
)

// OracleSecret is the oracle's secret number and the nonce blinding
// its commitment, generated once at game creation and revealed only
// alongside the verdict.
type OracleSecret struct {
	Secret uint8
	Nonce  [32]byte
}

// GenerateOracleSecret picks a secret in [0, rangeMax] and a random
// nonce, ready to be committed to with Commitment.
func GenerateOracleSecret(rangeMax uint8) (OracleSecret, error) {
	var s OracleSecret
	var nonce [32]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return s, fmt.Errorf("generate oracle secret nonce: %w", err)
	}

	buf := make([]byte, 1)
	if _, err := rand.Read(buf); err != nil {
		return s, fmt.Errorf("generate oracle secret: %w", err)
	}
	// rangeMax+1 as a uint8 wraps to 0 when rangeMax is 255, which is
	// an in-range "whole byte" cap; widen before the modulus.
	s.Secret = uint8(uint16(buf[0]) % (uint16(rangeMax) + 1))
	s.Nonce = nonce
	return s, nil
}

// Commitment returns SHA256(secret_byte || nonce), published to both
// players before either submits a guess.
func (s OracleSecret) Commitment() [32]byte {
	h := sha256.New()
	h.Write([]byte{s.Secret})
	h.Write(s.Nonce[:])
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// VerifyOracleSecret checks that secret opens commitment.
func VerifyOracleSecret(secret OracleSecret, commitment [32]byte) bool {
	got := secret.Commitment()
	return got == commitment
}

// JudgeGuessNumber resolves a closest-to-secret-number round: whichever
// guess has the smaller absolute distance to secret wins; equal
// distance is a draw.
func JudgeGuessNumber(a, b uint8, secret OracleSecret) Result {
	da := distance(a, secret.Secret)
	db := distance(b, secret.Secret)
	switch {
	case da < db:
		return AWins
	case db < da:
		return BWins
	default:
		return Draw
	}
}

func distance(guess, secret uint8) int {
	d := int(guess) - int(secret)
	if d < 0 {
		return -d
	}
	return d
}
