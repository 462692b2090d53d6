// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tls

import (
	"bytes"
	"encoding/binary"
	"reflect"
	"testing"

	"golang.org/x/crypto/cryptobyte"
)

func testClientHello() *clientHelloMsg {
	random := make([]byte, 32)
	for i := range random {
		random[i] = byte(i)
	}
	return &clientHelloMsg{
		vers:               VersionTLS12,
		random:             random,
		sessionId:          bytes.Repeat([]byte{0x42}, 32),
		cipherSuites:       []uint16{TLS_AES_128_GCM_SHA256, TLS_CHACHA20_POLY1305_SHA256},
		compressionMethods: []uint8{0},
		serverName:         "example.com",
		maxFragmentLength:  MaxFragment2048,
		supportedCurves:    []CurveID{X25519, CurveP256},
		supportedSignatureAlgorithms: []SignatureScheme{
			ECDSAWithP256AndSHA256, PSSWithSHA256, Ed25519,
		},
		alpnProtocols:      []string{"h2", "http/1.1"},
		supportedVersions:  []uint16{VersionTLS13},
		keyShares:          []keyShare{{group: X25519, data: bytes.Repeat([]byte{0x11}, 32)}},
		earlyData:          true,
		compressedCertAlgs: []uint16{CertCompressionBrotli, CertCompressionZstd},
		pskModes:           []uint8{pskModeDHE},
		pskIdentities: []pskIdentity{
			{label: []byte("ticket-label"), obfuscatedTicketAge: 0xdeadbeef},
		},
		pskBinders: [][]byte{bytes.Repeat([]byte{0xab}, 32)},
	}
}

func roundTrip(t *testing.T, in, out handshakeMessage) {
	t.Helper()
	raw, err := in.marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !out.unmarshal(raw) {
		t.Fatalf("unmarshal failed for %x", raw)
	}
	clearRaw(in)
	clearRaw(out)
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", out, in)
	}
}

func clearRaw(m handshakeMessage) {
	v := reflect.ValueOf(m).Elem()
	if f := v.FieldByName("raw"); f.IsValid() {
		f.Set(reflect.Zero(f.Type()))
	}
}

func TestClientHelloRoundTrip(t *testing.T) {
	t.Parallel()
	roundTrip(t, testClientHello(), &clientHelloMsg{})
}

func TestClientHelloPreSharedKeyLast(t *testing.T) {
	t.Parallel()

	raw, err := testClientHello().marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// Walk the extension block and record the order.
	s := cryptobyte.String(raw)
	var sessionId, compressions cryptobyte.String
	var suites, extensions cryptobyte.String
	if !s.Skip(4+2+32) ||
		!s.ReadUint8LengthPrefixed(&sessionId) ||
		!s.ReadUint16LengthPrefixed(&suites) ||
		!s.ReadUint8LengthPrefixed(&compressions) ||
		!s.ReadUint16LengthPrefixed(&extensions) || !s.Empty() {
		t.Fatal("failed to parse ClientHello framing")
	}
	var last uint16
	for !extensions.Empty() {
		var ext uint16
		var extData cryptobyte.String
		if !extensions.ReadUint16(&ext) ||
			!extensions.ReadUint16LengthPrefixed(&extData) {
			t.Fatal("failed to parse extension")
		}
		last = ext
	}
	if last != extensionPreSharedKey {
		t.Errorf("last extension = %d, want pre_shared_key (%d)", last, extensionPreSharedKey)
	}
}

func TestClientHelloBinders(t *testing.T) {
	t.Parallel()

	hello := testClientHello()
	full, err := hello.marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	partial, err := hello.marshalWithoutBinders()
	if err != nil {
		t.Fatalf("marshalWithoutBinders: %v", err)
	}
	wantTrim := 2 + 1 + len(hello.pskBinders[0])
	if len(full)-len(partial) != wantTrim {
		t.Errorf("binder section length = %d, want %d", len(full)-len(partial), wantTrim)
	}
	if !bytes.HasPrefix(full, partial) {
		t.Error("marshalWithoutBinders is not a prefix of the full message")
	}

	if err := hello.updateBinders([][]byte{bytes.Repeat([]byte{0xcd}, 32)}); err != nil {
		t.Fatalf("updateBinders: %v", err)
	}
	updated, err := hello.marshal()
	if err != nil {
		t.Fatalf("marshal after updateBinders: %v", err)
	}
	if len(updated) != len(full) {
		t.Errorf("message length changed after binder update: %d != %d", len(updated), len(full))
	}
	if bytes.Equal(updated, full) {
		t.Error("binder update did not change the serialization")
	}

	if err := hello.updateBinders([][]byte{make([]byte, 48)}); err == nil {
		t.Error("binder length change accepted")
	}
	if err := hello.updateBinders(nil); err == nil {
		t.Error("binder count change accepted")
	}
}

func TestClientHelloRejectsDuplicateExtension(t *testing.T) {
	t.Parallel()

	hello := testClientHello()
	hello.pskIdentities = nil
	hello.pskBinders = nil
	raw, err := hello.marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	// Append a second early_data extension and fix up the two length
	// fields that cover it.
	dup := []byte{byte(extensionEarlyData >> 8), byte(extensionEarlyData), 0, 0}
	tampered := append(bytes.Clone(raw), dup...)
	grow := func(b []byte, delta int) {
		n := (int(b[0])<<16 | int(b[1])<<8 | int(b[2])) + delta
		b[0], b[1], b[2] = byte(n>>16), byte(n>>8), byte(n)
	}
	grow(tampered[1:4], len(dup)) // handshake body
	extBlockOff := 4 + 2 + 32 + 1 + len(hello.sessionId) + 2 + 2*len(hello.cipherSuites) + 1 + len(hello.compressionMethods)
	extLen := binary.BigEndian.Uint16(tampered[extBlockOff:]) + uint16(len(dup))
	binary.BigEndian.PutUint16(tampered[extBlockOff:], extLen)

	if new(clientHelloMsg).unmarshal(tampered) {
		t.Error("duplicate extension accepted")
	}
}

func TestClientHelloRejectsTrailingBytes(t *testing.T) {
	t.Parallel()

	raw, err := testClientHello().marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	tampered := append(bytes.Clone(raw), 0x00)
	n := (int(tampered[1])<<16 | int(tampered[2])<<8 | int(tampered[3])) + 1
	tampered[1], tampered[2], tampered[3] = byte(n>>16), byte(n>>8), byte(n)
	if new(clientHelloMsg).unmarshal(tampered) {
		t.Error("trailing bytes accepted")
	}
}

func TestServerHelloRoundTrip(t *testing.T) {
	t.Parallel()

	roundTrip(t, &serverHelloMsg{
		vers:                    VersionTLS12,
		random:                  bytes.Repeat([]byte{0x55}, 32),
		sessionId:               bytes.Repeat([]byte{0x42}, 32),
		cipherSuite:             TLS_AES_256_GCM_SHA384,
		supportedVersion:        VersionTLS13,
		serverShare:             keyShare{group: X25519, data: bytes.Repeat([]byte{0x22}, 32)},
		selectedIdentityPresent: true,
		selectedIdentity:        0,
	}, &serverHelloMsg{})
}

func TestServerHelloHelloRetryForm(t *testing.T) {
	t.Parallel()

	roundTrip(t, &serverHelloMsg{
		vers:             VersionTLS12,
		random:           helloRetryRequestRandom,
		sessionId:        bytes.Repeat([]byte{0x42}, 32),
		cipherSuite:      TLS_AES_128_GCM_SHA256,
		supportedVersion: VersionTLS13,
		selectedGroup:    CurveP256,
		cookie:           []byte("opaque server cookie"),
	}, &serverHelloMsg{})
}

func TestEncryptedExtensionsRoundTrip(t *testing.T) {
	t.Parallel()

	roundTrip(t, &encryptedExtensionsMsg{
		alpnProtocol:      "h2",
		earlyData:         true,
		maxFragmentLength: MaxFragment4096,
	}, &encryptedExtensionsMsg{})
}

func eeWire(exts []byte) []byte {
	msg := make([]byte, 0, 6+len(exts))
	msg = append(msg, typeEncryptedExtensions, 0, 0, byte(2+len(exts)))
	msg = append(msg, byte(len(exts)>>8), byte(len(exts)))
	return append(msg, exts...)
}

func TestEncryptedExtensionsRejectsDuplicate(t *testing.T) {
	t.Parallel()

	earlyData := []byte{byte(extensionEarlyData >> 8), byte(extensionEarlyData), 0, 0}
	wire := eeWire(append(bytes.Clone(earlyData), earlyData...))
	if new(encryptedExtensionsMsg).unmarshal(wire) {
		t.Error("duplicate extension accepted")
	}
}

func TestEncryptedExtensionsRejectsUnknownExtension(t *testing.T) {
	t.Parallel()

	// key_share is not permitted in EncryptedExtensions.
	wire := eeWire([]byte{byte(extensionKeyShare >> 8), byte(extensionKeyShare), 0, 0})
	if new(encryptedExtensionsMsg).unmarshal(wire) {
		t.Error("forbidden extension accepted")
	}
}

func TestNewSessionTicketRoundTrip(t *testing.T) {
	t.Parallel()

	roundTrip(t, &newSessionTicketMsgTLS13{
		lifetime:     7200,
		ageAdd:       0x12345678,
		nonce:        []byte{0, 0, 0, 1},
		label:        []byte("opaque ticket"),
		maxEarlyData: 16384,
	}, &newSessionTicketMsgTLS13{})
}

func TestCertificateRequestRoundTrip(t *testing.T) {
	t.Parallel()

	roundTrip(t, &certificateRequestMsgTLS13{
		certificateRequestContext:    []byte{},
		ocspStapling:                 true,
		scts:                         true,
		supportedSignatureAlgorithms: []SignatureScheme{ECDSAWithP256AndSHA256, PSSWithSHA256},
		certificateAuthorities:       [][]byte{[]byte("ca-dn-1"), []byte("ca-dn-2")},
	}, &certificateRequestMsgTLS13{})
}

func TestCertificateMsgRoundTrip(t *testing.T) {
	t.Parallel()

	roundTrip(t, &certificateMsgTLS13{
		certificateRequestContext: []byte{},
		certificates: []certificateEntry{
			{
				data:       []byte("leaf certificate der"),
				ocspStaple: []byte("ocsp response"),
				sctList:    [][]byte{[]byte("sct one"), []byte("sct two")},
			},
			{data: []byte("intermediate der")},
		},
		ocspStapling: true,
		scts:         true,
	}, &certificateMsgTLS13{})
}

func TestCertificateMsgRejectsEmptyEntry(t *testing.T) {
	t.Parallel()

	var b cryptobyte.Builder
	b.AddUint8(typeCertificate)
	b.AddUint24LengthPrefixed(func(b *cryptobyte.Builder) {
		b.AddUint8LengthPrefixed(func(b *cryptobyte.Builder) {})
		b.AddUint24LengthPrefixed(func(b *cryptobyte.Builder) {
			b.AddUint24LengthPrefixed(func(b *cryptobyte.Builder) {}) // zero length cert_data
			b.AddUint16LengthPrefixed(func(b *cryptobyte.Builder) {})
		})
	})
	raw, err := b.Bytes()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if new(certificateMsgTLS13).unmarshal(raw) {
		t.Error("empty certificate entry accepted")
	}
}

func TestCompressedCertificateRoundTrip(t *testing.T) {
	t.Parallel()

	roundTrip(t, &compressedCertificateMsg{
		algorithm:                    CertCompressionBrotli,
		uncompressedLength:           1234,
		compressedCertificateMessage: []byte("compressed bytes"),
	}, &compressedCertificateMsg{})
}

func TestCertificateVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	in := &certificateVerifyMsg{
		hasSignatureAlgorithm: true,
		signatureAlgorithm:    ECDSAWithP256AndSHA256,
		signature:             []byte("asn1 signature bytes"),
	}
	out := &certificateVerifyMsg{hasSignatureAlgorithm: true}
	roundTrip(t, in, out)
}

func TestFinishedRoundTrip(t *testing.T) {
	t.Parallel()

	roundTrip(t, &finishedMsg{
		verifyData: bytes.Repeat([]byte{0x77}, 32),
	}, &finishedMsg{})
}

func TestKeyUpdateRoundTrip(t *testing.T) {
	t.Parallel()

	for _, requested := range []bool{false, true} {
		in := &keyUpdateMsg{updateRequested: requested}
		raw, err := in.marshal()
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		out := new(keyUpdateMsg)
		if !out.unmarshal(raw) {
			t.Fatalf("unmarshal failed for %x", raw)
		}
		if out.updateRequested != requested {
			t.Errorf("updateRequested = %v, want %v", out.updateRequested, requested)
		}
	}
	// request_update values other than 0 and 1 are invalid.
	if new(keyUpdateMsg).unmarshal([]byte{typeKeyUpdate, 0, 0, 1, 2}) {
		t.Error("invalid request_update value accepted")
	}
}

func TestEndOfEarlyData(t *testing.T) {
	t.Parallel()

	raw, err := new(endOfEarlyDataMsg).marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !bytes.Equal(raw, []byte{typeEndOfEarlyData, 0, 0, 0}) {
		t.Errorf("EndOfEarlyData wire form = %x", raw)
	}
	if !new(endOfEarlyDataMsg).unmarshal(raw) {
		t.Error("unmarshal failed")
	}
	if new(endOfEarlyDataMsg).unmarshal(append(raw, 0)) {
		t.Error("EndOfEarlyData with a body accepted")
	}
}
