// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tls

import (
	"bytes"
	"crypto/rand"
	"testing"

	"golang.org/x/crypto/curve25519"
)

func TestTrafficKeyLengths(t *testing.T) {
	t.Parallel()

	for _, suite := range cipherSuitesTLS13 {
		t.Run(CipherSuiteName(suite.id), func(t *testing.T) {
			t.Parallel()
			secret := make([]byte, suite.hash().Size())
			key, iv, err := suite.trafficKey(secret)
			if err != nil {
				t.Fatalf("trafficKey: %v", err)
			}
			if len(key) != suite.keyLen {
				t.Errorf("key length = %d, want %d", len(key), suite.keyLen)
			}
			if len(iv) != aeadNonceLength {
				t.Errorf("iv length = %d, want %d", len(iv), aeadNonceLength)
			}
		})
	}
}

func TestNextTrafficSecret(t *testing.T) {
	t.Parallel()

	suite := cipherSuiteTLS13ByID(TLS_AES_128_GCM_SHA256)
	secret := make([]byte, suite.hash().Size())
	for i := range secret {
		secret[i] = byte(i)
	}
	next, err := suite.nextTrafficSecret(secret)
	if err != nil {
		t.Fatalf("nextTrafficSecret: %v", err)
	}
	if len(next) != len(secret) {
		t.Fatalf("rotated secret length = %d, want %d", len(next), len(secret))
	}
	if bytes.Equal(next, secret) {
		t.Error("rotated secret equals its predecessor")
	}
	// The rotation must be deterministic.
	again, err := suite.nextTrafficSecret(secret)
	if err != nil {
		t.Fatalf("nextTrafficSecret: %v", err)
	}
	if !bytes.Equal(next, again) {
		t.Error("rotation is not deterministic")
	}
}

func TestFinishedHashDependsOnTranscript(t *testing.T) {
	t.Parallel()

	suite := cipherSuiteTLS13ByID(TLS_AES_128_GCM_SHA256)
	baseKey := make([]byte, suite.hash().Size())

	tr1 := suite.hash()
	tr1.Write([]byte("one"))
	tr2 := suite.hash()
	tr2.Write([]byte("two"))

	v1, err := suite.finishedHash(baseKey, tr1)
	if err != nil {
		t.Fatalf("finishedHash: %v", err)
	}
	v2, err := suite.finishedHash(baseKey, tr2)
	if err != nil {
		t.Fatalf("finishedHash: %v", err)
	}
	if len(v1) != suite.hash().Size() {
		t.Errorf("verify_data length = %d, want %d", len(v1), suite.hash().Size())
	}
	if bytes.Equal(v1, v2) {
		t.Error("verify_data identical for different transcripts")
	}
}

func TestKeyExchangeRoundTrip(t *testing.T) {
	t.Parallel()

	for _, group := range []CurveID{X25519, CurveP256, CurveP384, CurveP521} {
		t.Run(group.String(), func(t *testing.T) {
			t.Parallel()
			alice, err := generateKeyExchange(rand.Reader, group)
			if err != nil {
				t.Fatalf("generateKeyExchange: %v", err)
			}
			bob, err := generateKeyExchange(rand.Reader, group)
			if err != nil {
				t.Fatalf("generateKeyExchange: %v", err)
			}
			s1, err := alice.sharedSecret(bob.publicBytes())
			if err != nil {
				t.Fatalf("sharedSecret: %v", err)
			}
			s2, err := bob.sharedSecret(alice.publicBytes())
			if err != nil {
				t.Fatalf("sharedSecret: %v", err)
			}
			if !bytes.Equal(s1, s2) {
				t.Error("shared secrets disagree")
			}
			if len(s1) == 0 {
				t.Error("empty shared secret")
			}
		})
	}
}

func TestKeyExchangeRejectsBadPeerKey(t *testing.T) {
	t.Parallel()

	for _, group := range []CurveID{X25519, CurveP256} {
		t.Run(group.String(), func(t *testing.T) {
			t.Parallel()
			kx, err := generateKeyExchange(rand.Reader, group)
			if err != nil {
				t.Fatalf("generateKeyExchange: %v", err)
			}
			if _, err := kx.sharedSecret([]byte{0x04, 0x01}); err == nil {
				t.Error("truncated peer key accepted")
			}
			if group == X25519 {
				// The all-zero point is degenerate and must be rejected.
				if _, err := kx.sharedSecret(make([]byte, 32)); err == nil {
					t.Error("low order X25519 peer key accepted")
				}
			}
		})
	}
}

func TestHybridKeyExchangeRoundTrip(t *testing.T) {
	t.Parallel()

	client, err := generateKeyExchange(rand.Reader, X25519MLKEM768)
	if err != nil {
		t.Fatalf("generateKeyExchange: %v", err)
	}
	pub := client.publicBytes()
	if want := mlkemScheme.PublicKeySize() + curve25519.PointSize; len(pub) != want {
		t.Fatalf("key share length = %d, want %d", len(pub), want)
	}

	// Peer side: encapsulate against the ML-KEM key and complete X25519.
	encapKey, err := mlkemScheme.UnmarshalBinaryPublicKey(pub[:mlkemScheme.PublicKeySize()])
	if err != nil {
		t.Fatalf("UnmarshalBinaryPublicKey: %v", err)
	}
	ciphertext, mlkemShared, err := mlkemScheme.Encapsulate(encapKey)
	if err != nil {
		t.Fatalf("Encapsulate: %v", err)
	}
	peerScalar := make([]byte, curve25519.ScalarSize)
	if _, err := rand.Read(peerScalar); err != nil {
		t.Fatal(err)
	}
	peerPoint, err := curve25519.X25519(peerScalar, curve25519.Basepoint)
	if err != nil {
		t.Fatal(err)
	}
	ecdhShared, err := curve25519.X25519(peerScalar, pub[mlkemScheme.PublicKeySize():])
	if err != nil {
		t.Fatal(err)
	}

	serverShare := append(append([]byte{}, ciphertext...), peerPoint...)
	got, err := client.sharedSecret(serverShare)
	if err != nil {
		t.Fatalf("sharedSecret: %v", err)
	}
	want := append(append([]byte{}, mlkemShared...), ecdhShared...)
	if !bytes.Equal(got, want) {
		t.Error("hybrid shared secrets disagree")
	}
}

func TestHybridKeyExchangeRejectsBadShare(t *testing.T) {
	t.Parallel()

	client, err := generateKeyExchange(rand.Reader, X25519MLKEM768)
	if err != nil {
		t.Fatalf("generateKeyExchange: %v", err)
	}
	short := make([]byte, mlkemScheme.CiphertextSize())
	if _, err := client.sharedSecret(short); err == nil {
		t.Error("truncated hybrid share accepted")
	}
}

func TestKeyExchangeZeroize(t *testing.T) {
	t.Parallel()

	kx, err := generateKeyExchange(rand.Reader, X25519)
	if err != nil {
		t.Fatalf("generateKeyExchange: %v", err)
	}
	kx.Zeroize()
	if !bytes.Equal(kx.x25519Scalar, make([]byte, len(kx.x25519Scalar))) {
		t.Error("scalar not scrubbed")
	}
}

func TestUnsupportedGroup(t *testing.T) {
	t.Parallel()

	if _, err := generateKeyExchange(rand.Reader, CurveID(0x9999)); err == nil {
		t.Error("unknown group accepted")
	}
}
