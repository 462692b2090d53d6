// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tls

import (
	"bytes"
	"testing"
	"time"
)

func testSession(receivedAt time.Time, lifetime time.Duration) *Session {
	return &Session{
		CipherSuite: TLS_AES_128_GCM_SHA256,
		secret:      bytes.Repeat([]byte{0x5a}, 32),
		label:       []byte("ticket"),
		lifetime:    lifetime,
		ageAdd:      0x11223344,
		receivedAt:  receivedAt,
	}
}

func TestSessionUsableAt(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		s    *Session
		at   time.Time
		want bool
	}{
		{"fresh", testSession(base, time.Hour), base.Add(time.Minute), true},
		{"at issue", testSession(base, time.Hour), base, true},
		{"expired", testSession(base, time.Hour), base.Add(2 * time.Hour), false},
		{"exactly at lifetime", testSession(base, time.Hour), base.Add(time.Hour), false},
		{"clock ran backwards", testSession(base, time.Hour), base.Add(-time.Second), false},
		{"nil session", nil, base, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := tc.s.usableAt(tc.at); got != tc.want {
				t.Errorf("usableAt = %v, want %v", got, tc.want)
			}
		})
	}

	t.Run("zeroized", func(t *testing.T) {
		t.Parallel()
		s := testSession(base, time.Hour)
		s.Zeroize()
		if s.usableAt(base.Add(time.Minute)) {
			t.Error("zeroized session still usable")
		}
	})
}

func TestObfuscatedTicketAge(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	s := testSession(base, time.Hour)
	got := s.obfuscatedTicketAge(base.Add(1500 * time.Millisecond))
	if want := uint32(1500) + s.ageAdd; got != want {
		t.Errorf("obfuscated age = %d, want %d", got, want)
	}

	// The sum wraps modulo 2^32.
	s.ageAdd = 0xffffffff
	got = s.obfuscatedTicketAge(base.Add(2 * time.Millisecond))
	if want := uint32(1); got != want {
		t.Errorf("wrapped obfuscated age = %d, want %d", got, want)
	}
}

func TestSessionFromTicketCapsLifetime(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	msg := &newSessionTicketMsgTLS13{
		lifetime:     uint32((30 * 24 * time.Hour).Seconds()),
		ageAdd:       7,
		nonce:        []byte{0},
		label:        []byte("ticket"),
		maxEarlyData: 1024,
	}
	s := sessionFromTicket(msg, bytes.Repeat([]byte{1}, 32), TLS_AES_128_GCM_SHA256, "h2", nil, base)
	if s.lifetime != maxSessionTicketLifetime {
		t.Errorf("lifetime = %v, want capped at %v", s.lifetime, maxSessionTicketLifetime)
	}
	if s.MaxEarlyData != 1024 {
		t.Errorf("MaxEarlyData = %d, want 1024", s.MaxEarlyData)
	}
	if s.ALPN != "h2" {
		t.Errorf("ALPN = %q, want h2", s.ALPN)
	}
	// The label must be an independent copy.
	msg.label[0] = 'X'
	if s.label[0] == 'X' {
		t.Error("session label aliases the message buffer")
	}
}

func TestSessionZeroize(t *testing.T) {
	t.Parallel()

	s := testSession(time.Now(), time.Hour)
	s.Zeroize()
	if s.secret != nil {
		t.Error("secret not dropped")
	}
	s.Zeroize() // must be safe to repeat
	var nilSession *Session
	nilSession.Zeroize() // and on a nil receiver
}
