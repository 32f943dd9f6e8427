package smp

import (
	"crypto"
	"crypto/aes"
	"crypto/elliptic"
	"crypto/rand"
	"fmt"

	"github.com/aead/cmac"
	"github.com/wsddn/go-ecdh"
)

// keyExchange wraps the P-256 ECDH keypair used for LE Secure
// Connections' public key exchange (Core Spec Vol 3 Part H §2.3.5.6).
// wsddn/go-ecdh's NewEllipticECDH front-ends crypto/elliptic the same
// way it fronts Curve25519, so the rest of the pairing state machine
// never touches elliptic.Curve directly.
type keyExchange struct {
	curve ecdh.ECDH
	priv  crypto.PrivateKey
	pub   crypto.PublicKey
}

func newKeyExchange() (*keyExchange, error) {
	curve := ecdh.NewEllipticECDH(elliptic.P256())
	priv, pub, err := curve.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("smp: generating ECDH keypair: %w", err)
	}
	return &keyExchange{curve: curve, priv: priv, pub: pub}, nil
}

// PublicKeyBytes returns this side's public key in the wire format the
// Pairing Public Key PDU carries (two concatenated 32-byte coordinates).
func (k *keyExchange) PublicKeyBytes() []byte { return k.curve.Marshal(k.pub) }

// SharedSecret computes the DHKey from the peer's marshalled public key.
func (k *keyExchange) SharedSecret(peerPub []byte) ([]byte, error) {
	pub, ok := k.curve.Unmarshal(peerPub)
	if !ok {
		return nil, fmt.Errorf("smp: malformed peer public key (%d bytes)", len(peerPub))
	}
	return k.curve.GenerateSharedSecret(k.priv, pub)
}

// aesCMAC computes the AES-CMAC of msg under a 128-bit key, used
// throughout SMP's confirm-value and key-derivation functions (f4, f5,
// f6, g2 in Core Spec Vol 3 Part H §2.2.7-2.2.9). Callers pass the
// 16-byte inputs those functions already assembled; this helper only
// owns the MAC primitive itself.
func aesCMAC(key, msg []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	h, err := cmac.New(block)
	if err != nil {
		return nil, err
	}
	if _, err := h.Write(msg); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// c1ConfirmValue computes the LE legacy pairing confirm value c1(k, r,
// preq, pres, iat, ia, rat, ra) per Core Spec Vol 3 Part H §2.2.3, with
// p1 and p2 already assembled by the caller: AES-CMAC(tk, r XOR p1),
// XORed with p2, then AES-CMAC(tk, ...) again. Nothing in this package
// calls it; Pair sends no confirm value when Secure Connections is off.
func c1ConfirmValue(tk, r, p1, p2 []byte) ([]byte, error) {
	xored := make([]byte, 16)
	for i := range xored {
		xored[i] = r[i] ^ p1[i]
	}
	mac, err := aesCMAC(tk, xored)
	if err != nil {
		return nil, err
	}
	for i := range mac {
		mac[i] ^= p2[i]
	}
	return aesCMAC(tk, mac)
}

// f4ConfirmValue computes the Secure Connections confirm value
// f4(U, V, X, Z) = AES-CMAC_X(U || V || Z), Core Spec Vol 3 Part H
// §2.2.6.
func f4ConfirmValue(u, v, x []byte, z byte) ([]byte, error) {
	msg := make([]byte, 0, len(u)+len(v)+1)
	msg = append(msg, u...)
	msg = append(msg, v...)
	msg = append(msg, z)
	return aesCMAC(x, msg)
}
