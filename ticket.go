// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tls

import (
	"crypto/x509"
	"time"
)

// maxSessionTicketLifetime is the upper bound RFC 8446, Section 4.6.1 puts
// on ticket_lifetime.
const maxSessionTicketLifetime = 7 * 24 * time.Hour

// Session is the resumable state captured from a completed handshake plus
// one NewSessionTicket. Offering it on a later connection enables PSK
// resumption and, when the ticket permits, early data.
type Session struct {
	// CipherSuite is the suite of the original connection. The PSK it
	// carries is bound to this suite's hash.
	CipherSuite uint16

	// ALPN is the application protocol negotiated on the original
	// connection. Early data is only offered when the new connection
	// requests the same protocol.
	ALPN string

	// PeerCertificates is the server chain from the original connection.
	PeerCertificates []*x509.Certificate

	// MaxEarlyData is the early data limit from the ticket. Zero means
	// the ticket does not permit early data.
	MaxEarlyData uint32

	secret     []byte // PSK derived from resumption_master_secret and the ticket nonce
	label      []byte // opaque ticket identity presented to the server
	lifetime   time.Duration
	ageAdd     uint32
	receivedAt time.Time
}

// usableAt reports whether the ticket may be offered at the given time. A
// clock that appears to have run backwards invalidates the ticket, since an
// honest age can no longer be computed.
func (s *Session) usableAt(now time.Time) bool {
	if s == nil || len(s.secret) == 0 || len(s.label) == 0 {
		return false
	}
	age := now.Sub(s.receivedAt)
	if age < 0 {
		return false
	}
	return age < s.lifetime
}

// obfuscatedTicketAge computes the ticket age in milliseconds, masked by
// ticket_age_add modulo 2^32 as RFC 8446, Section 4.2.11 requires.
func (s *Session) obfuscatedTicketAge(now time.Time) uint32 {
	ticketAge := uint32(now.Sub(s.receivedAt).Milliseconds())
	return ticketAge + s.ageAdd
}

// Zeroize scrubs the resumption secret. The session must not be offered
// afterwards.
func (s *Session) Zeroize() {
	if s == nil {
		return
	}
	zeroSlice(s.secret)
	s.secret = nil
}

// sessionFromTicket assembles a Session from a NewSessionTicket message and
// the connection state it arrived on. Tickets with a zero or excessive
// lifetime are rejected by the caller before this point.
func sessionFromTicket(msg *newSessionTicketMsgTLS13, psk []byte, suite uint16, alpn string, peerCerts []*x509.Certificate, receivedAt time.Time) *Session {
	lifetime := time.Duration(msg.lifetime) * time.Second
	if lifetime > maxSessionTicketLifetime {
		lifetime = maxSessionTicketLifetime
	}
	label := make([]byte, len(msg.label))
	copy(label, msg.label)
	return &Session{
		CipherSuite:      suite,
		ALPN:             alpn,
		PeerCertificates: peerCerts,
		MaxEarlyData:     msg.maxEarlyData,
		secret:           psk,
		label:            label,
		lifetime:         lifetime,
		ageAdd:           msg.ageAdd,
		receivedAt:       receivedAt,
	}
}
