// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tls

import (
	"bytes"
	"crypto/sha256"
	"crypto/sha512"
	"testing"
)

func TestTranscriptSelect(t *testing.T) {
	t.Parallel()

	msg := []byte{typeClientHello, 0, 0, 3, 1, 2, 3}

	for _, tc := range []struct {
		name  string
		suite uint16
		want  func([]byte) []byte
	}{
		{"SHA256", TLS_AES_128_GCM_SHA256, func(b []byte) []byte {
			s := sha256.Sum256(b)
			return s[:]
		}},
		{"SHA384", TLS_AES_256_GCM_SHA384, func(b []byte) []byte {
			s := sha512.Sum384(b)
			return s[:]
		}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tr := newTranscript()
			tr.Update(msg)
			if _, err := tr.Snapshot(); err == nil {
				t.Fatal("Snapshot before Select should fail")
			}
			if _, err := tr.Clone(); err == nil {
				t.Fatal("Clone before Select should fail")
			}
			suite := cipherSuiteTLS13ByID(tc.suite)
			if err := tr.Select(suite); err != nil {
				t.Fatalf("Select: %v", err)
			}
			if err := tr.Select(suite); err == nil {
				t.Fatal("second Select should fail")
			}
			got, err := tr.Snapshot()
			if err != nil {
				t.Fatalf("Snapshot: %v", err)
			}
			if want := tc.want(msg); !bytes.Equal(got, want) {
				t.Errorf("transcript hash = %x, want %x", got, want)
			}
		})
	}
}

func TestTranscriptCloneIndependence(t *testing.T) {
	t.Parallel()

	tr := newTranscript()
	tr.Update([]byte("first message"))
	if err := tr.Select(cipherSuiteTLS13ByID(TLS_AES_128_GCM_SHA256)); err != nil {
		t.Fatalf("Select: %v", err)
	}
	snap1, err := tr.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	clone, err := tr.Clone()
	if err != nil {
		t.Fatalf("Clone: %v", err)
	}
	// Advancing the clone must not affect the live transcript.
	clone.Write([]byte("divergence"))
	snap2, err := tr.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if !bytes.Equal(snap1, snap2) {
		t.Error("live transcript changed after writing to a clone")
	}
	if bytes.Equal(clone.Sum(nil), snap2) {
		t.Error("clone did not diverge from the live transcript")
	}
}

func TestTranscriptResetForHelloRetry(t *testing.T) {
	t.Parallel()

	ch1 := []byte{typeClientHello, 0, 0, 5, 'h', 'e', 'l', 'l', 'o'}

	for _, tc := range []struct {
		name  string
		suite uint16
	}{
		{"SHA256", TLS_AES_128_GCM_SHA256},
		{"SHA384", TLS_AES_256_GCM_SHA384},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			suite := cipherSuiteTLS13ByID(tc.suite)

			tr := newTranscript()
			tr.Update(ch1)
			if err := tr.ResetForHelloRetry(suite); err != nil {
				t.Fatalf("ResetForHelloRetry: %v", err)
			}
			got, err := tr.Snapshot()
			if err != nil {
				t.Fatalf("Snapshot: %v", err)
			}

			// Direct construction of the synthetic message_hash message.
			inner := suite.hash()
			inner.Write(ch1)
			chHash := inner.Sum(nil)
			outer := suite.hash()
			outer.Write([]byte{typeMessageHash, 0, 0, uint8(len(chHash))})
			outer.Write(chHash)

			if want := outer.Sum(nil); !bytes.Equal(got, want) {
				t.Errorf("retry transcript = %x, want %x", got, want)
			}
		})
	}
}

func TestTranscriptResetAfterSelect(t *testing.T) {
	t.Parallel()

	suite := cipherSuiteTLS13ByID(TLS_AES_128_GCM_SHA256)
	tr := newTranscript()
	if err := tr.Select(suite); err != nil {
		t.Fatalf("Select: %v", err)
	}
	if err := tr.ResetForHelloRetry(suite); err == nil {
		t.Fatal("ResetForHelloRetry after Select should fail")
	}
}

func TestTranscriptReplayInto(t *testing.T) {
	t.Parallel()

	msgs := [][]byte{
		{typeClientHello, 0, 0, 2, 0xaa, 0xbb},
		{typeServerHello, 0, 0, 1, 0xcc},
	}
	tr := newTranscript()
	for _, m := range msgs {
		tr.Update(m)
	}

	replayed := sha512.New384()
	tr.replayInto(replayed)

	direct := sha512.New384()
	for _, m := range msgs {
		direct.Write(m)
	}

	if !bytes.Equal(replayed.Sum(nil), direct.Sum(nil)) {
		t.Error("replayInto does not reproduce the buffered transcript")
	}
}

func TestCloneHashStateCarries(t *testing.T) {
	t.Parallel()

	h := sha256.New()
	h.Write([]byte("prefix"))
	c, err := cloneHash(h)
	if err != nil {
		t.Fatalf("cloneHash: %v", err)
	}
	h.Write([]byte("suffix"))
	c.Write([]byte("suffix"))
	if !bytes.Equal(h.Sum(nil), c.Sum(nil)) {
		t.Error("cloned hash diverged from original on identical input")
	}
}
