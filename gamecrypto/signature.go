package gamecrypto

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// VerdictTag is the fixed ASCII byte sequence mixed into a signature
// point's challenge hash. These exact strings are part of the wire
// contract: changing them invalidates every signature point already
// issued for outstanding games.
type VerdictTag string

const (
	TagAWins VerdictTag = "A wins"
	TagBWins VerdictTag = "B wins"
	TagDraw  VerdictTag = "Draw"
)

// GameID is the 16-byte UUIDv4 identifying a game session.
type GameID [16]byte

// Keypair is an oracle's long-term secp256k1 Schnorr keypair.
type Keypair struct {
	priv *secp256k1.PrivateKey
	Pub  *secp256k1.PublicKey
}

// GenerateKeypair creates a fresh oracle keypair.
func GenerateKeypair() (*Keypair, error) {
	sk, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate keypair: %w", err)
	}
	return &Keypair{priv: sk, Pub: sk.PubKey()}, nil
}

// KeypairFromScalar rebuilds a keypair from a raw 32-byte scalar,
// primarily for deterministic tests.
func KeypairFromScalar(b [32]byte) *Keypair {
	sk := secp256k1.PrivKeyFromBytes(b[:])
	return &Keypair{priv: sk, Pub: sk.PubKey()}
}

func (k *Keypair) scalar() secp256k1.ModNScalar {
	var s secp256k1.ModNScalar
	skBytes := k.priv.Serialize()
	s.SetByteSlice(skBytes[:])
	return s
}

// DeriveNonce deterministically derives this game's per-game nonce
// r and commitment point R = r*G from the oracle's private key and
// the game id, per the design note in the spec requiring r to never
// be chosen such that reuse across games is possible. r is normalized
// to even-Y, matching the compact signature encoding used by
// SignVerdict/VerifyVerdict.
func (k *Keypair) DeriveNonce(gameID GameID) (secp256k1.ModNScalar, *secp256k1.PublicKey) {
	h := sha256.New()
	h.Write([]byte("fiber-game/nonce/v1"))
	skBytes := k.priv.Serialize()
	h.Write(skBytes[:])
	h.Write(gameID[:])
	sum := h.Sum(nil)

	var r secp256k1.ModNScalar
	r.SetByteSlice(sum)
	if r.IsZero() {
		var one secp256k1.ModNScalar
		one.SetInt(1)
		r.Add(&one)
	}

	R := pubFromScalar(r)
	if R.SerializeCompressed()[0] == 0x03 {
		var neg secp256k1.ModNScalar
		neg.NegateVal(&r)
		r = neg
		R = pubFromScalar(r)
	}
	return r, R
}

func pubFromScalar(s secp256k1.ModNScalar) *secp256k1.PublicKey {
	b := s.Bytes()
	return secp256k1.PrivKeyFromBytes(b[:]).PubKey()
}

// addPoints returns A+B as an affine public key.
func addPoints(a, b *secp256k1.PublicKey) (*secp256k1.PublicKey, error) {
	var aj, bj, sum secp256k1.JacobianPoint
	a.AsJacobian(&aj)
	b.AsJacobian(&bj)
	secp256k1.AddNonConst(&aj, &bj, &sum)
	if sum.Z.IsZero() {
		return nil, fmt.Errorf("point addition yields point at infinity")
	}
	sum.ToAffine()
	return secp256k1.NewPublicKey(&sum.X, &sum.Y), nil
}

// scalarMult returns s*P as an affine public key.
func scalarMult(s secp256k1.ModNScalar, p *secp256k1.PublicKey) *secp256k1.PublicKey {
	var pj, out secp256k1.JacobianPoint
	p.AsJacobian(&pj)
	secp256k1.ScalarMultNonConst(&s, &pj, &out)
	out.ToAffine()
	return secp256k1.NewPublicKey(&out.X, &out.Y)
}

// Challenge computes H(R || O || game_id || tag), reduced mod the
// curve order, the same hash domain used by both SignaturePoint and
// the Schnorr signing/verification equation.
func Challenge(R, O *secp256k1.PublicKey, gameID GameID, tag VerdictTag) secp256k1.ModNScalar {
	h := sha256.New()
	h.Write(R.SerializeCompressed())
	h.Write(O.SerializeCompressed())
	h.Write(gameID[:])
	h.Write([]byte(tag))
	sum := h.Sum(nil)

	var e secp256k1.ModNScalar
	e.SetByteSlice(sum)
	return e
}

// SignaturePoint computes P = R + H(R||O||game_id||tag)*O, the curve
// point at which the oracle's future Schnorr signature for this
// verdict lands. Players can compute this without the oracle's secret.
func SignaturePoint(R, O *secp256k1.PublicKey, gameID GameID, tag VerdictTag) (*secp256k1.PublicKey, error) {
	e := Challenge(R, O, gameID, tag)
	eO := scalarMult(e, O)
	return addPoints(R, eO)
}

// PointHash computes H(serialize_compressed(P)), the XOR mask used by
// EncryptPreimage/DecryptPreimage.
func PointHash(p *secp256k1.PublicKey) [32]byte {
	return sha256.Sum256(p.SerializeCompressed())
}

// Signature is the compact 64-byte EC-Schnorr encoding: the signed
// verdict's Rx (32 bytes, even-Y) followed by s (32 bytes).
type Signature [64]byte

// SignVerdict signs verdict tag for gameID, reusing the per-game nonce
// r (and its commitment point R, already normalized to even-Y by
// DeriveNonce) so that the revealed s satisfies s*G ==
// SignaturePoint(R, O, gameID, tag).
func (k *Keypair) SignVerdict(r secp256k1.ModNScalar, R *secp256k1.PublicKey, gameID GameID, tag VerdictTag) Signature {
	e := Challenge(R, k.Pub, gameID, tag)
	x := k.scalar()

	var ex secp256k1.ModNScalar
	ex.Mul2(&e, &x)

	var s secp256k1.ModNScalar
	s.Set(&r)
	s.Add(&ex)

	var sig Signature
	rComp := R.SerializeCompressed()
	copy(sig[:32], rComp[1:33])
	sBytes := s.Bytes()
	copy(sig[32:], sBytes[:])
	return sig
}

// VerifyVerdict reconstructs R from the signature's even-Y x-only
// coordinate, recomputes the challenge over (R, O, gameID, tag), and
// checks s*G == R + e*O.
func VerifyVerdict(O *secp256k1.PublicKey, gameID GameID, tag VerdictTag, sig Signature) (bool, error) {
	rBytes := append([]byte{0x02}, sig[:32]...)
	R, err := secp256k1.ParsePubKey(rBytes)
	if err != nil {
		return false, fmt.Errorf("parse signature R: %w", err)
	}

	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(sig[32:]); overflow {
		return false, fmt.Errorf("signature scalar overflow")
	}

	lhs := pubFromScalar(s)
	point, err := SignaturePoint(R, O, gameID, tag)
	if err != nil {
		return false, fmt.Errorf("recompute signature point: %w", err)
	}
	return bytes.Equal(lhs.SerializeCompressed(), point.SerializeCompressed()), nil
}

// SignatureR returns the even-Y commitment point embedded in sig, the
// R to use when recovering a signature point for decryption.
func SignatureR(sig Signature) (*secp256k1.PublicKey, error) {
	rBytes := append([]byte{0x02}, sig[:32]...)
	return secp256k1.ParsePubKey(rBytes)
}

// SignatureScalar extracts s from sig.
func SignatureScalar(sig Signature) (secp256k1.ModNScalar, error) {
	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(sig[32:]); overflow {
		return s, fmt.Errorf("signature scalar overflow")
	}
	return s, nil
}
