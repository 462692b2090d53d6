// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tls

import (
	"crypto/sha256"
	"crypto/sha512"
	"encoding"
	"hash"

	"github.com/jesiegel1/mbedtls/errors"
)

// transcript maintains the running handshake transcript hash. Until the
// server commits to a cipher suite the negotiated hash is unknown, so every
// supported hash runs in parallel; Select drops all but the winner.
//
// The raw messages written before Select or ResetForHelloRetry are also
// buffered, so that PSK binder computation, which uses the PSK's own hash,
// can replay them into a fresh context (replayInto). A HelloRetryRequest
// rebuilds the transcript from the running hash of ClientHello1.
type transcript struct {
	hashes   map[uint16]hash.Hash // keyed by cipher suite hash; see transcriptHashKey
	selected hash.Hash
	buffered []byte // raw messages written before Select
}

// Hash algorithm keys for the parallel contexts.
const (
	transcriptSHA256 uint16 = 256
	transcriptSHA384 uint16 = 384
)

func transcriptHashKey(suite *cipherSuiteTLS13) uint16 {
	if suite.hash().Size() == sha512.Size384 {
		return transcriptSHA384
	}
	return transcriptSHA256
}

func newTranscript() *transcript {
	return &transcript{
		hashes: map[uint16]hash.Hash{
			transcriptSHA256: sha256.New(),
			transcriptSHA384: sha512.New384(),
		},
	}
}

// Update appends the serialized handshake message (including its four byte
// header) to the transcript.
func (t *transcript) Update(msg []byte) {
	if t.selected != nil {
		t.selected.Write(msg)
		return
	}
	for _, h := range t.hashes {
		h.Write(msg)
	}
	t.buffered = append(t.buffered, msg...)
}

// Select commits to the negotiated suite's hash. Further updates feed only
// that context. A second Select returns an error.
func (t *transcript) Select(suite *cipherSuiteTLS13) error {
	if t.selected != nil {
		return errors.New("transcript hash already selected").AtError()
	}
	h, ok := t.hashes[transcriptHashKey(suite)]
	if !ok {
		return errors.New("unsupported transcript hash").AtError()
	}
	t.selected = h
	t.hashes = nil
	t.buffered = nil
	return nil
}

// Snapshot returns the transcript hash over everything written so far. It is
// an error to call Snapshot before Select.
func (t *transcript) Snapshot() ([]byte, error) {
	if t.selected == nil {
		return nil, errors.New("transcript hash not yet selected").AtError()
	}
	return t.selected.Sum(nil), nil
}

// Clone returns an independent copy of the selected hash context, for
// derivations that must not advance the live transcript.
func (t *transcript) Clone() (hash.Hash, error) {
	if t.selected == nil {
		return nil, errors.New("transcript hash not yet selected").AtError()
	}
	return cloneHash(t.selected)
}

// ResetForHelloRetry replaces the transcript contents with the synthetic
// message_hash message required after a HelloRetryRequest:
//
//	Hash(message_hash || 00 00 || Hash.length || Hash(ClientHello1))
//
// The suite is the one the HelloRetryRequest committed to; the transcript is
// selected as a side effect.
func (t *transcript) ResetForHelloRetry(suite *cipherSuiteTLS13) error {
	if t.selected != nil {
		return errors.New("transcript already selected at retry").AtError()
	}
	h, ok := t.hashes[transcriptHashKey(suite)]
	if !ok {
		return errors.New("unsupported transcript hash").AtError()
	}
	chHash := h.Sum(nil)
	fresh := suite.hash()
	fresh.Write(hrrTranscriptHeader(len(chHash)))
	fresh.Write(chHash)
	t.selected = fresh
	t.hashes = nil
	t.buffered = nil
	return nil
}

// replayInto writes the buffered pre-selection messages into a fresh hash
// context. Used for PSK binder computation, which is pinned to the PSK's
// own hash independently of the eventual negotiated suite.
func (t *transcript) replayInto(h hash.Hash) {
	h.Write(t.buffered)
}

// cloneHash copies a hash context via its binary marshaling. All stdlib
// hashes implement encoding.BinaryMarshaler.
func cloneHash(in hash.Hash) (hash.Hash, error) {
	marshaler, ok := in.(encoding.BinaryMarshaler)
	if !ok {
		return nil, errors.New("transcript hash does not support cloning").AtError()
	}
	state, err := marshaler.MarshalBinary()
	if err != nil {
		return nil, errors.New("failed to marshal hash state").Base(err).AtError()
	}
	out := newHashLike(in)
	unmarshaler, ok := out.(encoding.BinaryUnmarshaler)
	if !ok {
		return nil, errors.New("transcript hash does not support cloning").AtError()
	}
	if err := unmarshaler.UnmarshalBinary(state); err != nil {
		return nil, errors.New("failed to unmarshal hash state").Base(err).AtError()
	}
	return out, nil
}

func newHashLike(in hash.Hash) hash.Hash {
	if in.Size() == sha512.Size384 {
		return sha512.New384()
	}
	return sha256.New()
}
