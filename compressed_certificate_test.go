// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tls

import (
	"bytes"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

func testCertificateMsgWire(t *testing.T) []byte {
	t.Helper()
	msg := &certificateMsgTLS13{
		certificateRequestContext: []byte{},
		certificates: []certificateEntry{
			{data: bytes.Repeat([]byte("leaf certificate der "), 20)},
			{data: bytes.Repeat([]byte("intermediate der "), 20)},
		},
	}
	raw, err := msg.marshal()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return raw
}

func compressBody(t *testing.T, alg uint16, body []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	switch alg {
	case CertCompressionBrotli:
		w := brotli.NewWriter(&buf)
		if _, err := w.Write(body); err != nil {
			t.Fatalf("brotli write: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("brotli close: %v", err)
		}
	case CertCompressionZstd:
		w, err := zstd.NewWriter(&buf)
		if err != nil {
			t.Fatalf("zstd writer: %v", err)
		}
		if _, err := w.Write(body); err != nil {
			t.Fatalf("zstd write: %v", err)
		}
		if err := w.Close(); err != nil {
			t.Fatalf("zstd close: %v", err)
		}
	default:
		t.Fatalf("unknown algorithm %d", alg)
	}
	return buf.Bytes()
}

func TestDecompressCertificateMsg(t *testing.T) {
	t.Parallel()

	wire := testCertificateMsgWire(t)
	body := wire[4:] // strip the handshake header, per RFC 8879, Section 4

	algNames := map[uint16]string{
		CertCompressionBrotli: "brotli",
		CertCompressionZstd:   "zstd",
	}
	for _, alg := range []uint16{CertCompressionBrotli, CertCompressionZstd} {
		t.Run(algNames[alg], func(t *testing.T) {
			t.Parallel()
			compressed := &compressedCertificateMsg{
				algorithm:                    alg,
				uncompressedLength:           uint32(len(body)),
				compressedCertificateMessage: compressBody(t, alg, body),
			}
			certMsg, raw, err := decompressCertificateMsg(compressed, []uint16{CertCompressionBrotli, CertCompressionZstd})
			if err != nil {
				t.Fatalf("decompressCertificateMsg: %v", err)
			}
			if !bytes.Equal(raw, wire) {
				t.Error("reframed message differs from the original Certificate wire form")
			}
			if len(certMsg.certificates) != 2 {
				t.Errorf("certificate count = %d, want 2", len(certMsg.certificates))
			}
		})
	}
}

func TestDecompressCertificateMsgRejectsUnofferedAlgorithm(t *testing.T) {
	t.Parallel()

	wire := testCertificateMsgWire(t)
	body := wire[4:]
	compressed := &compressedCertificateMsg{
		algorithm:                    CertCompressionZstd,
		uncompressedLength:           uint32(len(body)),
		compressedCertificateMessage: compressBody(t, CertCompressionZstd, body),
	}
	if _, _, err := decompressCertificateMsg(compressed, []uint16{CertCompressionBrotli}); err == nil {
		t.Error("unoffered algorithm accepted")
	}
}

func TestDecompressCertificateMsgRejectsLengthLies(t *testing.T) {
	t.Parallel()

	wire := testCertificateMsgWire(t)
	body := wire[4:]
	payload := compressBody(t, CertCompressionBrotli, body)
	offered := []uint16{CertCompressionBrotli}

	t.Run("declared too short", func(t *testing.T) {
		t.Parallel()
		m := &compressedCertificateMsg{
			algorithm:                    CertCompressionBrotli,
			uncompressedLength:           uint32(len(body) - 1),
			compressedCertificateMessage: payload,
		}
		if _, _, err := decompressCertificateMsg(m, offered); err == nil {
			t.Error("stream longer than declared length accepted")
		}
	})

	t.Run("declared too long", func(t *testing.T) {
		t.Parallel()
		m := &compressedCertificateMsg{
			algorithm:                    CertCompressionBrotli,
			uncompressedLength:           uint32(len(body) + 1),
			compressedCertificateMessage: payload,
		}
		if _, _, err := decompressCertificateMsg(m, offered); err == nil {
			t.Error("stream shorter than declared length accepted")
		}
	})

	t.Run("declared over cap", func(t *testing.T) {
		t.Parallel()
		m := &compressedCertificateMsg{
			algorithm:                    CertCompressionBrotli,
			uncompressedLength:           maxUncompressedCertMsg + 1,
			compressedCertificateMessage: payload,
		}
		if _, _, err := decompressCertificateMsg(m, offered); err == nil {
			t.Error("oversized declared length accepted")
		}
	})
}

func TestDecompressCertificateMsgRejectsGarbage(t *testing.T) {
	t.Parallel()

	m := &compressedCertificateMsg{
		algorithm:                    CertCompressionZstd,
		uncompressedLength:           64,
		compressedCertificateMessage: []byte("not a zstd stream"),
	}
	if _, _, err := decompressCertificateMsg(m, []uint16{CertCompressionZstd}); err == nil {
		t.Error("garbage payload accepted")
	}
}
