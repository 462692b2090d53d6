// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tls

import (
	"strings"
	"testing"
)

func TestValidateServerName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		hostname string
		ok       bool
	}{
		{"simple", "example.com", true},
		{"subdomain", "www.example.com", true},
		{"trailing dot", "example.com.", true},
		{"single label", "localhost", true},
		{"digits in label", "123.example.com", true},
		{"hyphenated", "my-host.example.com", true},
		{"punycode", "xn--bcher-kva.example.com", true},
		{"empty", "", false},
		{"consecutive dots", "a..example.com", false},
		{"leading hyphen", "-host.example.com", false},
		{"trailing hyphen", "host-.example.com", false},
		{"underscore", "my_host.example.com", false},
		{"space", "my host.example.com", false},
		{"ipv4 literal", "192.0.2.1", false},
		{"ipv6 literal", "2001:db8::1", false},
		{"bracketed ipv6", "[2001:db8::1]", false},
		{"label too long", strings.Repeat("a", 64) + ".example.com", false},
		{"name too long", strings.Repeat("a.", 127) + "example.com", false},
		{"bare punycode prefix", "xn--.example.com", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := validateServerName(tc.hostname)
			if tc.ok && err != nil {
				t.Errorf("validateServerName(%q) = %v, want nil", tc.hostname, err)
			}
			if !tc.ok && err == nil {
				t.Errorf("validateServerName(%q) = nil, want error", tc.hostname)
			}
		})
	}
}

func TestNormalizeServerName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		hostname string
		want     string
		ok       bool
	}{
		{"lowercases", "EXAMPLE.com", "example.com", true},
		{"strips trailing dot", "example.com.", "example.com", true},
		{"idn to punycode", "bücher.example", "xn--bcher-kva.example", true},
		{"already ascii", "example.com", "example.com", true},
		{"ip literal rejected", "192.0.2.1", "", false},
		{"empty rejected", "", "", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, err := normalizeServerName(tc.hostname)
			if tc.ok {
				if err != nil {
					t.Fatalf("normalizeServerName(%q): %v", tc.hostname, err)
				}
				if got != tc.want {
					t.Errorf("normalizeServerName(%q) = %q, want %q", tc.hostname, got, tc.want)
				}
				return
			}
			if err == nil {
				t.Errorf("normalizeServerName(%q) = %q, want error", tc.hostname, got)
			}
		})
	}
}

func TestClientHelloCarriesNormalizedServerName(t *testing.T) {
	t.Parallel()

	c, err := Client(&fakeTransport{}, &Config{
		ServerName:         "EXAMPLE.com.",
		InsecureSkipVerify: true,
	})
	if err != nil {
		t.Fatalf("Client: %v", err)
	}
	if _, err := c.Step(); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if c.hello.serverName != "example.com" {
		t.Errorf("server_name = %q, want %q", c.hello.serverName, "example.com")
	}
}

func TestClientRejectsInvalidServerName(t *testing.T) {
	t.Parallel()

	c, err := Client(&fakeTransport{}, &Config{
		ServerName:         "192.0.2.7",
		InsecureSkipVerify: true,
	})
	if err != nil {
		t.Fatalf("Client: %v", err)
	}
	if err := stepUntilErr(t, c); err == nil {
		t.Error("IP literal server name accepted")
	}
}
