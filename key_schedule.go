// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tls

import (
	"crypto/ecdh"
	"crypto/hmac"
	"hash"
	"io"

	"github.com/cloudflare/circl/kem"
	"github.com/cloudflare/circl/kem/mlkem/mlkem768"
	"golang.org/x/crypto/curve25519"

	"github.com/jesiegel1/mbedtls/errors"
	"github.com/jesiegel1/mbedtls/internal/tls13"
)

// mlkemScheme is the ML-KEM-768 instantiation backing the X25519MLKEM768
// hybrid group.
var mlkemScheme = mlkem768.Scheme()

// trafficKey derives an AEAD key and IV from a traffic secret per
// RFC 8446, Section 7.3.
func (c *cipherSuiteTLS13) trafficKey(trafficSecret []byte) (key, iv []byte, err error) {
	key, err = tls13.ExpandLabel(c.hash, trafficSecret, "key", nil, c.keyLen)
	if err != nil {
		return nil, nil, err
	}
	iv, err = tls13.ExpandLabel(c.hash, trafficSecret, "iv", nil, aeadNonceLength)
	if err != nil {
		return nil, nil, err
	}
	return key, iv, nil
}

// finishedHash computes the verify_data for a Finished message over the given
// transcript, keyed by the base traffic secret.
func (c *cipherSuiteTLS13) finishedHash(baseKey []byte, transcript hash.Hash) ([]byte, error) {
	finishedKey, err := tls13.ExpandLabel(c.hash, baseKey, "finished", nil, c.hash().Size())
	if err != nil {
		return nil, err
	}
	verifyData := hmac.New(c.hash, finishedKey)
	verifyData.Write(transcript.Sum(nil))
	zeroSlice(finishedKey)
	return verifyData.Sum(nil), nil
}

// nextTrafficSecret generates the next traffic secret for a KeyUpdate per
// RFC 8446, Section 7.2.
func (c *cipherSuiteTLS13) nextTrafficSecret(trafficSecret []byte) ([]byte, error) {
	return tls13.ExpandLabel(c.hash, trafficSecret, "traffic upd", nil, c.hash().Size())
}

// A keyExchange holds one ephemeral key pair for a key_share entry.
// X25519 uses the scalar implementation from x/crypto directly, the NIST
// curves go through crypto/ecdh, and X25519MLKEM768 pairs the X25519 scalar
// with an ML-KEM-768 decapsulation key.
type keyExchange struct {
	group CurveID

	// ecdhKey is set for the NIST curves.
	ecdhKey *ecdh.PrivateKey

	// x25519Scalar and x25519Public are set for X25519 and X25519MLKEM768.
	x25519Scalar []byte
	x25519Public []byte

	// mlkemDecap and mlkemEncap are set for X25519MLKEM768.
	mlkemDecap kem.PrivateKey
	mlkemEncap []byte
}

// generateKeyExchange creates an ephemeral key pair on the given curve.
func generateKeyExchange(rand io.Reader, curveID CurveID) (*keyExchange, error) {
	if curveID == X25519 || curveID == X25519MLKEM768 {
		scalar := make([]byte, curve25519.ScalarSize)
		if _, err := io.ReadFull(rand, scalar); err != nil {
			return nil, errors.New("failed to generate X25519 scalar").Base(err).AtError()
		}
		public, err := curve25519.X25519(scalar, curve25519.Basepoint)
		if err != nil {
			return nil, errors.New("failed to compute X25519 public key").Base(err).AtError()
		}
		kx := &keyExchange{
			group:        curveID,
			x25519Scalar: scalar,
			x25519Public: public,
		}
		if curveID == X25519MLKEM768 {
			seed := make([]byte, mlkemScheme.SeedSize())
			if _, err := io.ReadFull(rand, seed); err != nil {
				return nil, errors.New("failed to generate ML-KEM seed").Base(err).AtError()
			}
			encapKey, decapKey := mlkemScheme.DeriveKeyPair(seed)
			zeroSlice(seed)
			encap, err := encapKey.MarshalBinary()
			if err != nil {
				return nil, errors.New("failed to encode ML-KEM encapsulation key").Base(err).AtError()
			}
			kx.mlkemDecap = decapKey
			kx.mlkemEncap = encap
		}
		return kx, nil
	}
	curve, ok := curveForCurveID(curveID)
	if !ok {
		return nil, errors.New("unsupported key exchange group ", uint16(curveID)).AtError()
	}
	key, err := curve.GenerateKey(rand)
	if err != nil {
		return nil, errors.New("failed to generate ephemeral key").Base(err).AtError()
	}
	return &keyExchange{group: curveID, ecdhKey: key}, nil
}

// publicBytes returns the key_share wire encoding of the public key. For
// X25519MLKEM768 that is the ML-KEM encapsulation key followed by the X25519
// point.
func (k *keyExchange) publicBytes() []byte {
	switch k.group {
	case X25519:
		return k.x25519Public
	case X25519MLKEM768:
		out := make([]byte, 0, len(k.mlkemEncap)+len(k.x25519Public))
		out = append(out, k.mlkemEncap...)
		return append(out, k.x25519Public...)
	}
	return k.ecdhKey.PublicKey().Bytes()
}

// sharedSecret completes the exchange against the peer's public key. Peer
// keys that are malformed or degenerate yield an error, never a zero-value
// secret. For X25519MLKEM768 the peer value is the ML-KEM ciphertext followed
// by the server's X25519 point, and the secret is the ML-KEM shared key
// followed by the X25519 shared key.
func (k *keyExchange) sharedSecret(peerPublic []byte) ([]byte, error) {
	switch k.group {
	case X25519:
		secret, err := curve25519.X25519(k.x25519Scalar, peerPublic)
		if err != nil {
			return nil, errors.New("invalid X25519 peer public key").Base(err).AtError()
		}
		return secret, nil
	case X25519MLKEM768:
		ctSize := mlkemScheme.CiphertextSize()
		if len(peerPublic) != ctSize+curve25519.PointSize {
			return nil, errors.New("invalid X25519MLKEM768 server key share").AtError()
		}
		mlkemShared, err := mlkemScheme.Decapsulate(k.mlkemDecap, peerPublic[:ctSize])
		if err != nil {
			return nil, errors.New("ML-KEM decapsulation failed").Base(err).AtError()
		}
		ecdhShared, err := curve25519.X25519(k.x25519Scalar, peerPublic[ctSize:])
		if err != nil {
			return nil, errors.New("invalid X25519 peer public key").Base(err).AtError()
		}
		return append(mlkemShared, ecdhShared...), nil
	}
	curve, _ := curveForCurveID(k.group)
	peerKey, err := curve.NewPublicKey(peerPublic)
	if err != nil {
		return nil, errors.New("invalid peer public key").Base(err).AtError()
	}
	secret, err := k.ecdhKey.ECDH(peerKey)
	if err != nil {
		return nil, errors.New("key exchange failed").Base(err).AtError()
	}
	return secret, nil
}

// Zeroize scrubs the private scalar and drops the decapsulation key.
// crypto/ecdh keys do not expose their scalar, so they are only released.
func (k *keyExchange) Zeroize() {
	if k == nil {
		return
	}
	zeroSlice(k.x25519Scalar)
	k.ecdhKey = nil
	k.mlkemDecap = nil
}

func curveForCurveID(id CurveID) (ecdh.Curve, bool) {
	switch id {
	case CurveP256:
		return ecdh.P256(), true
	case CurveP384:
		return ecdh.P384(), true
	case CurveP521:
		return ecdh.P521(), true
	default:
		return nil, false
	}
}
