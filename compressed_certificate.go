// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tls

import (
	"bytes"
	"io"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"

	"github.com/jesiegel1/mbedtls/errors"
)

// maxUncompressedCertMsg bounds the declared uncompressed size of a
// CompressedCertificate message so a hostile peer cannot force a huge
// allocation.
const maxUncompressedCertMsg = 1 << 24

// decompressCertificateMsg inflates a CompressedCertificate message into the
// equivalent Certificate message, reframed with the standard handshake
// header so it can be parsed like a normal message. The transcript covers
// the CompressedCertificate message as received, not this reframed form.
//
// The compressed payload must inflate to exactly the declared length.
func decompressCertificateMsg(m *compressedCertificateMsg, offered []uint16) (*certificateMsgTLS13, []byte, error) {
	algOffered := false
	for _, alg := range offered {
		if alg == m.algorithm {
			algOffered = true
		}
	}
	if !algOffered {
		return nil, nil, errors.New("server chose unoffered certificate compression algorithm ", m.algorithm).AtError()
	}
	if m.uncompressedLength > maxUncompressedCertMsg {
		return nil, nil, errors.New("declared uncompressed certificate length too large").AtError()
	}

	var reader io.Reader
	compressed := bytes.NewReader(m.compressedCertificateMessage)
	switch m.algorithm {
	case CertCompressionBrotli:
		reader = brotli.NewReader(compressed)
	case CertCompressionZstd:
		zr, err := zstd.NewReader(compressed)
		if err != nil {
			return nil, nil, errors.New("failed to initialize zstd reader").Base(err).AtError()
		}
		defer zr.Close()
		reader = zr
	default:
		return nil, nil, errors.New("unsupported certificate compression algorithm ", m.algorithm).AtError()
	}

	body := make([]byte, m.uncompressedLength)
	if _, err := io.ReadFull(reader, body); err != nil {
		return nil, nil, errors.New("certificate decompression failed").Base(err).AtError()
	}
	// One byte past the declared length must not decompress.
	var extra [1]byte
	if n, _ := reader.Read(extra[:]); n != 0 {
		return nil, nil, errors.New("certificate decompressed past its declared length").AtError()
	}

	raw := make([]byte, 0, 4+len(body))
	raw = append(raw, typeCertificate, uint8(len(body)>>16), uint8(len(body)>>8), uint8(len(body)))
	raw = append(raw, body...)

	certMsg := new(certificateMsgTLS13)
	if !certMsg.unmarshal(raw) {
		return nil, nil, errors.New("failed to parse decompressed certificate message").AtError()
	}
	return certMsg, raw, nil
}
