// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tls

import (
	"crypto/rand"
	"crypto/x509"
	"io"
	"runtime"
	"time"
)

const (
	VersionTLS12 = 0x0303
	VersionTLS13 = 0x0304
)

const (
	maxPlaintext               = 16384  // maximum plaintext payload length
	maxHandshake               = 65536  // maximum handshake message length
	maxHandshakeCertificateMsg = 262144 // maximum certificate message length
)

// TLS record types.
type recordType uint8

const (
	recordTypeChangeCipherSpec recordType = 20
	recordTypeAlert            recordType = 21
	recordTypeHandshake        recordType = 22
	recordTypeApplicationData  recordType = 23
)

// TLS handshake message types.
const (
	typeClientHello           uint8 = 1
	typeServerHello           uint8 = 2
	typeNewSessionTicket      uint8 = 4
	typeEndOfEarlyData        uint8 = 5
	typeEncryptedExtensions   uint8 = 8
	typeCertificate           uint8 = 11
	typeCertificateRequest    uint8 = 13
	typeCertificateVerify     uint8 = 15
	typeFinished              uint8 = 20
	typeKeyUpdate             uint8 = 24
	typeCompressedCertificate uint8 = 25
	typeMessageHash           uint8 = 254
)

// TLS extension numbers.
const (
	extensionServerName              uint16 = 0
	extensionMaxFragmentLength       uint16 = 1
	extensionStatusRequest           uint16 = 5
	extensionSupportedCurves         uint16 = 10
	extensionSignatureAlgorithms     uint16 = 13
	extensionALPN                    uint16 = 16
	extensionSCT                     uint16 = 18
	extensionPadding                 uint16 = 21
	extensionExtendedMasterSecret    uint16 = 23
	extensionCompressCertificate     uint16 = 27
	extensionSessionTicket           uint16 = 35
	extensionPreSharedKey            uint16 = 41
	extensionEarlyData               uint16 = 42
	extensionSupportedVersions       uint16 = 43
	extensionCookie                  uint16 = 44
	extensionPSKModes                uint16 = 45
	extensionCertificateAuthorities  uint16 = 47
	extensionSignatureAlgorithmsCert uint16 = 50
	extensionKeyShare                uint16 = 51
	extensionRenegotiationInfo       uint16 = 0xff01
)

// TLS CertificateStatusType (RFC 3546).
const statusTypeOCSP uint8 = 1

// max_fragment_length codes (RFC 6066, Section 4).
const (
	MaxFragment512  uint8 = 1
	MaxFragment1024 uint8 = 2
	MaxFragment2048 uint8 = 3
	MaxFragment4096 uint8 = 4
)

// Certificate compression algorithm IDs (RFC 8879).
const (
	CertCompressionZlib   uint16 = 1
	CertCompressionBrotli uint16 = 2
	CertCompressionZstd   uint16 = 3
)

// CurveID is the type of a TLS identifier for a key exchange group.
type CurveID uint16

const (
	CurveP256 CurveID = 23
	CurveP384 CurveID = 24
	CurveP521 CurveID = 25
	X25519    CurveID = 29

	// X25519MLKEM768 is the hybrid post-quantum group combining X25519 with
	// ML-KEM-768, as registered by draft-ietf-tls-ecdhe-mlkem.
	X25519MLKEM768 CurveID = 4588
)

func (c CurveID) String() string {
	switch c {
	case CurveP256:
		return "P-256"
	case CurveP384:
		return "P-384"
	case CurveP521:
		return "P-521"
	case X25519:
		return "X25519"
	case X25519MLKEM768:
		return "X25519MLKEM768"
	default:
		return "unknown"
	}
}

// keyShare is a TLS 1.3 KeyShareEntry.
type keyShare struct {
	group CurveID
	data  []byte
}

// TLS 1.3 PSK Key Exchange Modes. See RFC 8446, Section 4.2.9.
const (
	pskModePlain uint8 = 0
	pskModeDHE   uint8 = 1
)

// TLS 1.3 PSK identity.
type pskIdentity struct {
	label               []byte
	obfuscatedTicketAge uint32
}

// SignatureScheme identifies a signature algorithm supported by TLS. See
// RFC 8446, Section 4.2.3.
type SignatureScheme uint16

const (
	PKCS1WithSHA256 SignatureScheme = 0x0401
	PKCS1WithSHA384 SignatureScheme = 0x0501
	PKCS1WithSHA512 SignatureScheme = 0x0601

	PSSWithSHA256 SignatureScheme = 0x0804
	PSSWithSHA384 SignatureScheme = 0x0805
	PSSWithSHA512 SignatureScheme = 0x0806

	ECDSAWithP256AndSHA256 SignatureScheme = 0x0403
	ECDSAWithP384AndSHA384 SignatureScheme = 0x0503
	ECDSAWithP521AndSHA512 SignatureScheme = 0x0603

	Ed25519 SignatureScheme = 0x0807
)

// helloRetryRequestRandom is the magic SHA-256 of "HelloRetryRequest" that a
// server places in the random field to signal a HelloRetryRequest.
var helloRetryRequestRandom = []byte{
	0xCF, 0x21, 0xAD, 0x74, 0xE5, 0x9A, 0x61, 0x11,
	0xBE, 0x1D, 0x8C, 0x02, 0x1E, 0x65, 0xB8, 0x91,
	0xC2, 0xA2, 0x11, 0x16, 0x7A, 0xBB, 0x8C, 0x5E,
	0x07, 0x9E, 0x09, 0xE2, 0xC8, 0xA8, 0x33, 0x9C,
}

const (
	// downgradeCanaryTLS12 and downgradeCanaryTLS11 are the magic values a
	// TLS 1.3 server writes into the last eight bytes of the ServerHello
	// random when negotiating a lower version. See RFC 8446, Section 4.1.3.
	downgradeCanaryTLS12 = "DOWNGRD\x01"
	downgradeCanaryTLS11 = "DOWNGRD\x00"
)

// ClientAuthMode declares the client's policy for server-requested
// certificate authentication.
type ClientAuthMode int

const (
	// ClientAuthNone is the default. When the server requests a
	// certificate it behaves like ClientAuthOptional: a matching configured
	// certificate is sent, and an empty Certificate message otherwise.
	ClientAuthNone ClientAuthMode = iota
	// ClientAuthOptional sends a certificate if one in the configuration
	// matches the request, and an empty Certificate message otherwise.
	ClientAuthOptional
	// ClientAuthRequired fails the handshake if no configured certificate
	// matches the server's request.
	ClientAuthRequired
)

// PSKMode selects which psk_key_exchange_modes the client offers.
type PSKMode int

const (
	// PSKModeDHE offers psk_dhe_ke only. This is the default.
	PSKModeDHE PSKMode = iota
	// PSKModePlain offers psk_ke only.
	PSKModePlain
	// PSKModeBoth offers both psk_dhe_ke and psk_ke.
	PSKModeBoth
)

// Certificate is a client certificate chain plus its private key.
type Certificate struct {
	Certificate [][]byte
	// PrivateKey must implement crypto.Signer with a supported public key
	// type (RSA, ECDSA or Ed25519).
	PrivateKey interface{}
	// SupportedSignatureAlgorithms restricts the schemes the key may sign
	// with. If empty, schemes are inferred from the key type.
	SupportedSignatureAlgorithms []SignatureScheme
	Leaf                         *x509.Certificate
}

// Config carries the client-side handshake policy. A Config may be reused
// across connections but must not be modified once in use.
type Config struct {
	// Rand provides entropy for nonces and ephemeral keys. Nil means
	// crypto/rand.Reader.
	Rand io.Reader

	// Time returns the current time for ticket age and certificate
	// validity computations. Nil means time.Now.
	Time func() time.Time

	// ServerName is the name sent in the server_name extension and used
	// to verify the server certificate.
	ServerName string

	// RootCAs defines the set of trusted root authorities. Nil means the
	// host's root set.
	RootCAs *x509.CertPool

	// InsecureSkipVerify disables server certificate chain and host name
	// verification. The CertificateVerify signature is still checked.
	InsecureSkipVerify bool

	// VerifyPeerCertificate, if set, is called after normal certificate
	// verification with the raw peer chain and any verified chains.
	VerifyPeerCertificate func(rawCerts [][]byte, verifiedChains [][]*x509.Certificate) error

	// Certificates holds the chains offered for client authentication.
	Certificates []Certificate

	// ClientAuth selects the policy applied when the server sends a
	// CertificateRequest.
	ClientAuth ClientAuthMode

	// MinVersion and MaxVersion bound the offered protocol versions.
	// Zero means TLS 1.3 for both; this client never completes a
	// handshake below TLS 1.3.
	MinVersion uint16
	MaxVersion uint16

	// CipherSuites lists the offered TLS 1.3 suites in preference order.
	// Nil means all supported suites.
	CipherSuites []uint16

	// CurvePreferences lists the key exchange groups to offer, most
	// preferred first. Nil means X25519, P-256, P-384.
	CurvePreferences []CurveID

	// ALPNProtocols lists the application protocols to offer.
	ALPNProtocols []string

	// MaxFragmentLength, if nonzero, offers the max_fragment_length
	// extension with the given RFC 6066 code (MaxFragment512 through
	// MaxFragment4096). Record-size enforcement is up to the transport.
	MaxFragmentLength uint8

	// Session, if set, is offered for resumption via the pre_shared_key
	// extension.
	Session *Session

	// PSKMode selects the psk_key_exchange_modes sent when a Session is
	// offered.
	PSKMode PSKMode

	// EarlyData requests 0-RTT when the offered Session permits it.
	EarlyData bool

	// DisableCompatibilityMode suppresses the dummy ChangeCipherSpec and
	// the non-empty legacy_session_id.
	DisableCompatibilityMode bool

	// CertCompressionAlgs lists the compress_certificate algorithms to
	// offer. Nil means brotli and zstd.
	CertCompressionAlgs []uint16

	// KeyLogWriter optionally receives NSS-format key log lines for
	// external decryption tooling. Writing to it compromises security.
	KeyLogWriter io.Writer
}

func (c *Config) rand() io.Reader {
	if c.Rand != nil {
		return c.Rand
	}
	return rand.Reader
}

func (c *Config) now() time.Time {
	if c.Time != nil {
		return c.Time()
	}
	return time.Now()
}

func (c *Config) supportedVersions() []uint16 {
	min, max := c.MinVersion, c.MaxVersion
	if min == 0 {
		min = VersionTLS13
	}
	if max == 0 {
		max = VersionTLS13
	}
	var versions []uint16
	for v := max; v >= min; v-- {
		versions = append(versions, v)
	}
	return versions
}

func (c *Config) cipherSuites() []uint16 {
	if len(c.CipherSuites) > 0 {
		return c.CipherSuites
	}
	return defaultCipherSuitesTLS13
}

func (c *Config) curvePreferences() []CurveID {
	if len(c.CurvePreferences) > 0 {
		return c.CurvePreferences
	}
	return defaultCurvePreferences
}

func (c *Config) certCompressionAlgs() []uint16 {
	if c.CertCompressionAlgs != nil {
		return c.CertCompressionAlgs
	}
	return []uint16{CertCompressionBrotli, CertCompressionZstd}
}

var defaultCurvePreferences = []CurveID{X25519, CurveP256, CurveP384}

// supportedSignatureAlgorithms is the full set of schemes this client can
// verify in a server CertificateVerify, in offer order.
var supportedSignatureAlgorithms = []SignatureScheme{
	ECDSAWithP256AndSHA256,
	Ed25519,
	ECDSAWithP384AndSHA384,
	ECDSAWithP521AndSHA512,
	PSSWithSHA256,
	PSSWithSHA384,
	PSSWithSHA512,
}

// zeroSlice overwrites b with zeros. Used to scrub key material once a
// secret leaves scope.
func zeroSlice(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(b)
}

// hrrTranscriptHeader returns the synthetic message_hash header that replaces
// the ClientHello1 in the transcript after a HelloRetryRequest.
func hrrTranscriptHeader(chHashLen int) []byte {
	return []byte{typeMessageHash, 0, 0, uint8(chHashLen)}
}
