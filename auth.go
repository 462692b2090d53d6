// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tls

import (
	"bytes"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"fmt"
	"hash"

	"github.com/jesiegel1/mbedtls/errors"
)

// signaturePadding is the repeated-0x20 prefix of the TLS 1.3 signed
// message. See RFC 8446, Section 4.4.3.
var signaturePadding = []byte{
	0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20,
	0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20,
	0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20,
	0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20,
	0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20,
	0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20,
	0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20,
	0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20, 0x20,
}

const (
	serverSignatureContext = "TLS 1.3, server CertificateVerify\x00"
	clientSignatureContext = "TLS 1.3, client CertificateVerify\x00"
)

type signatureType uint8

const (
	signatureRSAPSS signatureType = iota + 1
	signatureECDSA
	signatureEd25519
)

// signedMessage builds the content covered by a TLS 1.3 CertificateVerify
// signature: 64 spaces, the context string, a NUL and the transcript hash.
func signedMessage(sigHash crypto.Hash, context string, transcript hash.Hash) []byte {
	if sigHash == directSigning {
		b := &bytes.Buffer{}
		b.Write(signaturePadding)
		fmt.Fprintf(b, "%s", context)
		b.Write(transcript.Sum(nil))
		return b.Bytes()
	}
	h := sigHash.New()
	h.Write(signaturePadding)
	fmt.Fprintf(h, "%s", context)
	h.Write(transcript.Sum(nil))
	return h.Sum(nil)
}

// directSigning identifies Ed25519, which signs the full message without
// pre-hashing.
var directSigning crypto.Hash = 0

// typeAndHashFromSignatureScheme returns the signature algorithm and hash
// function for a given scheme.
func typeAndHashFromSignatureScheme(signatureAlgorithm SignatureScheme) (sigType signatureType, sigHash crypto.Hash, err error) {
	switch signatureAlgorithm {
	case PSSWithSHA256, PSSWithSHA384, PSSWithSHA512:
		sigType = signatureRSAPSS
	case ECDSAWithP256AndSHA256, ECDSAWithP384AndSHA384, ECDSAWithP521AndSHA512:
		sigType = signatureECDSA
	case Ed25519:
		sigType = signatureEd25519
	default:
		return 0, 0, errors.New("unsupported signature algorithm ", uint16(signatureAlgorithm)).AtError()
	}
	switch signatureAlgorithm {
	case PSSWithSHA256, ECDSAWithP256AndSHA256:
		sigHash = crypto.SHA256
	case PSSWithSHA384, ECDSAWithP384AndSHA384:
		sigHash = crypto.SHA384
	case PSSWithSHA512, ECDSAWithP521AndSHA512:
		sigHash = crypto.SHA512
	case Ed25519:
		sigHash = directSigning
	default:
		return 0, 0, errors.New("unsupported signature algorithm ", uint16(signatureAlgorithm)).AtError()
	}
	return sigType, sigHash, nil
}

// verifyHandshakeSignature checks a CertificateVerify signature against the
// signed content.
func verifyHandshakeSignature(sigType signatureType, pubkey crypto.PublicKey, hashFunc crypto.Hash, signed, sig []byte) error {
	switch sigType {
	case signatureECDSA:
		pubKey, ok := pubkey.(*ecdsa.PublicKey)
		if !ok {
			return errors.New("expected an ECDSA public key, got ", fmt.Sprintf("%T", pubkey)).AtError()
		}
		if !ecdsa.VerifyASN1(pubKey, signed, sig) {
			return errors.New("ECDSA verification failure").AtError()
		}
	case signatureEd25519:
		pubKey, ok := pubkey.(ed25519.PublicKey)
		if !ok {
			return errors.New("expected an Ed25519 public key, got ", fmt.Sprintf("%T", pubkey)).AtError()
		}
		if !ed25519.Verify(pubKey, signed, sig) {
			return errors.New("Ed25519 verification failure").AtError()
		}
	case signatureRSAPSS:
		pubKey, ok := pubkey.(*rsa.PublicKey)
		if !ok {
			return errors.New("expected an RSA public key, got ", fmt.Sprintf("%T", pubkey)).AtError()
		}
		signOpts := &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: hashFunc}
		if err := rsa.VerifyPSS(pubKey, hashFunc, signed, sig, signOpts); err != nil {
			return errors.New("RSA-PSS verification failure").Base(err).AtError()
		}
	default:
		return errors.New("internal error: unknown signature type").AtError()
	}
	return nil
}

// signatureSchemesForCertificate returns the schemes a certificate's key can
// produce, intersected with any restriction on the certificate itself.
func signatureSchemesForCertificate(cert *Certificate) []SignatureScheme {
	signer, ok := cert.PrivateKey.(crypto.Signer)
	if !ok {
		return nil
	}
	var schemes []SignatureScheme
	switch pub := signer.Public().(type) {
	case *ecdsa.PublicKey:
		switch pub.Curve.Params().Name {
		case "P-256":
			schemes = []SignatureScheme{ECDSAWithP256AndSHA256}
		case "P-384":
			schemes = []SignatureScheme{ECDSAWithP384AndSHA384}
		case "P-521":
			schemes = []SignatureScheme{ECDSAWithP521AndSHA512}
		}
	case *rsa.PublicKey:
		schemes = []SignatureScheme{PSSWithSHA256, PSSWithSHA384, PSSWithSHA512}
	case ed25519.PublicKey:
		schemes = []SignatureScheme{Ed25519}
	}
	if len(cert.SupportedSignatureAlgorithms) > 0 {
		var filtered []SignatureScheme
		for _, s := range schemes {
			if isSupportedSignatureAlgorithm(s, cert.SupportedSignatureAlgorithms) {
				filtered = append(filtered, s)
			}
		}
		schemes = filtered
	}
	return schemes
}

// selectSignatureScheme picks the first scheme requested by the peer that
// the certificate can produce.
func selectSignatureScheme(cert *Certificate, peerAlgs []SignatureScheme) (SignatureScheme, error) {
	supported := signatureSchemesForCertificate(cert)
	for _, preferredAlg := range peerAlgs {
		if isSupportedSignatureAlgorithm(preferredAlg, supported) {
			return preferredAlg, nil
		}
	}
	return 0, errors.New("peer doesn't support any of the certificate's signature algorithms").AtWarning()
}

func isSupportedSignatureAlgorithm(sigAlg SignatureScheme, supportedSignatureAlgorithms []SignatureScheme) bool {
	for _, s := range supportedSignatureAlgorithms {
		if s == sigAlg {
			return true
		}
	}
	return false
}
