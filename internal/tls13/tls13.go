// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package tls13 implements the TLS 1.3 key schedule as specified in
// RFC 8446, Section 7.1.
//
// The schedule is a three-stage HKDF tree. Each stage is represented by an
// opaque secret type (EarlySecret, HandshakeSecret, MasterSecret) that only
// exposes the derivations RFC 8446 defines from that stage, so a caller
// cannot pull a traffic secret out of the wrong point of the tree.
package tls13

import (
	"errors"
	"hash"

	"github.com/jesiegel1/mbedtls/internal/byteorder"
	"github.com/jesiegel1/mbedtls/internal/hkdf"
)

// ErrLabelTooLong is returned when the label (including the "tls13 " prefix)
// or the context passed to ExpandLabel exceeds 255 bytes.
var ErrLabelTooLong = errors.New("tls13: label or context too long")

// ErrSecretLengthMismatch is returned when a pre-computed secret does not
// match the hash output size.
var ErrSecretLengthMismatch = errors.New("tls13: secret length does not match hash size")

// ExpandLabel implements HKDF-Expand-Label from RFC 8446, Section 7.1.
func ExpandLabel[H hash.Hash](h func() H, secret []byte, label string, context []byte, length int) ([]byte, error) {
	if len("tls13 ")+len(label) > 255 || len(context) > 255 {
		return nil, ErrLabelTooLong
	}
	hkdfLabel := make([]byte, 0, 2+1+len("tls13 ")+len(label)+1+len(context))
	hkdfLabel = byteorder.BEAppendUint16(hkdfLabel, uint16(length))
	hkdfLabel = append(hkdfLabel, byte(len("tls13 ")+len(label)))
	hkdfLabel = append(hkdfLabel, "tls13 "...)
	hkdfLabel = append(hkdfLabel, label...)
	hkdfLabel = append(hkdfLabel, byte(len(context)))
	hkdfLabel = append(hkdfLabel, context...)
	return hkdf.Expand(h, secret, string(hkdfLabel), length)
}

func extract[H hash.Hash](h func() H, newSecret, currentSecret []byte) ([]byte, error) {
	if newSecret == nil {
		newSecret = make([]byte, h().Size())
	}
	return hkdf.Extract(h, newSecret, currentSecret)
}

func deriveSecret[H hash.Hash](h func() H, secret []byte, label string, transcript hash.Hash) ([]byte, error) {
	if transcript == nil {
		transcript = h()
	}
	return ExpandLabel(h, secret, label, transcript.Sum(nil), transcript.Size())
}

const (
	externalBinderLabel           = "ext binder"
	resumptionBinderLabel         = "res binder"
	clientEarlyTrafficLabel       = "c e traffic"
	clientHandshakeTrafficLabel   = "c hs traffic"
	serverHandshakeTrafficLabel   = "s hs traffic"
	clientApplicationTrafficLabel = "c ap traffic"
	serverApplicationTrafficLabel = "s ap traffic"
	earlyExporterLabel            = "e exp master"
	exporterLabel                 = "exp master"
	resumptionLabel               = "res master"
)

// EarlySecret is the output of the first Extract stage. The PSK input may be
// nil, in which case the stage degenerates to Extract(0, 0^H) as mandated for
// handshakes without a pre-shared key.
type EarlySecret struct {
	secret []byte
	hash   func() hash.Hash
}

func NewEarlySecret[H hash.Hash](h func() H, psk []byte) (*EarlySecret, error) {
	secret, err := extract(h, psk, nil)
	if err != nil {
		return nil, err
	}
	return &EarlySecret{
		secret: secret,
		hash:   func() hash.Hash { return h() },
	}, nil
}

// NewEarlySecretFromSecret reconstructs an EarlySecret stage from an
// already-extracted secret, for callers that persist the raw value.
func NewEarlySecretFromSecret[H hash.Hash](h func() H, secret []byte) (*EarlySecret, error) {
	if len(secret) != h().Size() {
		return nil, ErrSecretLengthMismatch
	}
	return &EarlySecret{
		secret: secret,
		hash:   func() hash.Hash { return h() },
	}, nil
}

// Secret returns the raw stage secret, or nil for a nil receiver.
func (s *EarlySecret) Secret() []byte {
	if s == nil {
		return nil
	}
	return s.secret
}

// ResumptionBinderKey derives the binder_key for PSKs provisioned through a
// NewSessionTicket.
func (s *EarlySecret) ResumptionBinderKey() ([]byte, error) {
	return deriveSecret(s.hash, s.secret, resumptionBinderLabel, nil)
}

// ExternalBinderKey derives the binder_key for out-of-band PSKs.
func (s *EarlySecret) ExternalBinderKey() ([]byte, error) {
	return deriveSecret(s.hash, s.secret, externalBinderLabel, nil)
}

// ClientEarlyTrafficSecret derives the client_early_traffic_secret from the
// early secret and the transcript up to the ClientHello.
func (s *EarlySecret) ClientEarlyTrafficSecret(transcript hash.Hash) ([]byte, error) {
	return deriveSecret(s.hash, s.secret, clientEarlyTrafficLabel, transcript)
}

// HandshakeSecret is the output of the second Extract stage, mixing in the
// (EC)DHE shared secret. sharedSecret may be nil for psk_ke handshakes.
type HandshakeSecret struct {
	secret []byte
	hash   func() hash.Hash
}

func (s *EarlySecret) HandshakeSecret(sharedSecret []byte) (*HandshakeSecret, error) {
	derived, err := deriveSecret(s.hash, s.secret, "derived", nil)
	if err != nil {
		return nil, err
	}
	secret, err := extract(s.hash, sharedSecret, derived)
	if err != nil {
		return nil, err
	}
	return &HandshakeSecret{
		secret: secret,
		hash:   s.hash,
	}, nil
}

// ClientHandshakeTrafficSecret derives the client_handshake_traffic_secret
// from the handshake secret and the transcript up to the ServerHello.
func (s *HandshakeSecret) ClientHandshakeTrafficSecret(transcript hash.Hash) ([]byte, error) {
	return deriveSecret(s.hash, s.secret, clientHandshakeTrafficLabel, transcript)
}

// ServerHandshakeTrafficSecret derives the server_handshake_traffic_secret
// from the handshake secret and the transcript up to the ServerHello.
func (s *HandshakeSecret) ServerHandshakeTrafficSecret(transcript hash.Hash) ([]byte, error) {
	return deriveSecret(s.hash, s.secret, serverHandshakeTrafficLabel, transcript)
}

// MasterSecret is the output of the final Extract stage.
type MasterSecret struct {
	secret []byte
	hash   func() hash.Hash
}

func (s *HandshakeSecret) MasterSecret() (*MasterSecret, error) {
	derived, err := deriveSecret(s.hash, s.secret, "derived", nil)
	if err != nil {
		return nil, err
	}
	secret, err := extract(s.hash, nil, derived)
	if err != nil {
		return nil, err
	}
	return &MasterSecret{
		secret: secret,
		hash:   s.hash,
	}, nil
}

// NewMasterSecretFromSecret reconstructs a MasterSecret stage from an
// already-extracted secret.
func NewMasterSecretFromSecret[H hash.Hash](h func() H, secret []byte) (*MasterSecret, error) {
	if len(secret) != h().Size() {
		return nil, ErrSecretLengthMismatch
	}
	return &MasterSecret{
		secret: secret,
		hash:   func() hash.Hash { return h() },
	}, nil
}

// Secret returns the raw stage secret, or nil for a nil receiver.
func (s *MasterSecret) Secret() []byte {
	if s == nil {
		return nil
	}
	return s.secret
}

// ClientApplicationTrafficSecret derives client_application_traffic_secret_0
// from the master secret and the transcript up to the server Finished.
func (s *MasterSecret) ClientApplicationTrafficSecret(transcript hash.Hash) ([]byte, error) {
	return deriveSecret(s.hash, s.secret, clientApplicationTrafficLabel, transcript)
}

// ServerApplicationTrafficSecret derives server_application_traffic_secret_0
// from the master secret and the transcript up to the server Finished.
func (s *MasterSecret) ServerApplicationTrafficSecret(transcript hash.Hash) ([]byte, error) {
	return deriveSecret(s.hash, s.secret, serverApplicationTrafficLabel, transcript)
}

// ResumptionMasterSecret derives the resumption_master_secret from the master
// secret and the transcript up to the client Finished.
func (s *MasterSecret) ResumptionMasterSecret(transcript hash.Hash) ([]byte, error) {
	return deriveSecret(s.hash, s.secret, resumptionLabel, transcript)
}

// ExporterMasterSecret holds either the exporter_master_secret or the
// early_exporter_master_secret and implements the RFC 8446, Section 7.5
// exporter interface on top of it.
type ExporterMasterSecret struct {
	secret []byte
	hash   func() hash.Hash
}

// ExporterMasterSecret derives the exporter_master_secret from the master
// secret and the transcript up to the server Finished.
func (s *MasterSecret) ExporterMasterSecret(transcript hash.Hash) (*ExporterMasterSecret, error) {
	secret, err := deriveSecret(s.hash, s.secret, exporterLabel, transcript)
	if err != nil {
		return nil, err
	}
	return &ExporterMasterSecret{
		secret: secret,
		hash:   s.hash,
	}, nil
}

// EarlyExporterMasterSecret derives the early_exporter_master_secret from the
// early secret and the transcript up to the ClientHello.
func (s *EarlySecret) EarlyExporterMasterSecret(transcript hash.Hash) (*ExporterMasterSecret, error) {
	secret, err := deriveSecret(s.hash, s.secret, earlyExporterLabel, transcript)
	if err != nil {
		return nil, err
	}
	return &ExporterMasterSecret{
		secret: secret,
		hash:   s.hash,
	}, nil
}

func (s *ExporterMasterSecret) Exporter(label string, context []byte, length int) ([]byte, error) {
	secret, err := deriveSecret(s.hash, s.secret, label, nil)
	if err != nil {
		return nil, err
	}
	h := s.hash()
	h.Write(context)
	return ExpandLabel(s.hash, secret, "exporter", h.Sum(nil), length)
}

// TestingOnlyExporterSecret exposes the raw exporter secret for tests.
func TestingOnlyExporterSecret(s *ExporterMasterSecret) []byte {
	return s.secret
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Zeroize overwrites the stage secret in place. The receiver must not be used
// for further derivations afterwards.
func (s *EarlySecret) Zeroize() {
	if s != nil {
		zero(s.secret)
	}
}

func (s *HandshakeSecret) Zeroize() {
	if s != nil {
		zero(s.secret)
	}
}

func (s *MasterSecret) Zeroize() {
	if s != nil {
		zero(s.secret)
	}
}

func (s *ExporterMasterSecret) Zeroize() {
	if s != nil {
		zero(s.secret)
	}
}
