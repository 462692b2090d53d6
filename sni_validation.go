// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tls

import (
	"net"
	"strings"

	"golang.org/x/net/idna"

	"github.com/jesiegel1/mbedtls/errors"
)

// Hostname limits from RFC 1035, Section 2.3.4.
const (
	maxHostnameLength = 253
	maxLabelLength    = 63
)

// validateServerName checks that a hostname is acceptable for the server_name
// extension per RFC 6066, Section 3: a sequence of dot-separated LDH labels,
// no IP literals, no empty labels, each label at most 63 octets and the whole
// name at most 253.
func validateServerName(hostname string) error {
	if hostname == "" {
		return errors.New("empty server name").AtError()
	}
	hostname = strings.TrimSuffix(hostname, ".")
	if len(hostname) > maxHostnameLength {
		return errors.New("server name exceeds ", maxHostnameLength, " octets").AtError()
	}
	if isIPAddress(hostname) {
		return errors.New("IP literals are not permitted in server_name").AtError()
	}
	for _, label := range strings.Split(hostname, ".") {
		if err := validateHostnameLabel(label); err != nil {
			return errors.New("invalid server name ", hostname).Base(err).AtError()
		}
	}
	return nil
}

func validateHostnameLabel(label string) error {
	if label == "" {
		return errors.New("empty label").AtError()
	}
	if len(label) > maxLabelLength {
		return errors.New("label exceeds ", maxLabelLength, " octets").AtError()
	}
	if label[0] == '-' || label[len(label)-1] == '-' {
		return errors.New("label begins or ends with a hyphen").AtError()
	}
	for i := 0; i < len(label); i++ {
		c := label[i]
		ldh := (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') ||
			(c >= '0' && c <= '9') || c == '-'
		if !ldh {
			return errors.New("invalid character at position ", i).AtError()
		}
	}
	// An A-label carries at least one encoded character after the prefix.
	if len(label) < 5 && strings.HasPrefix(strings.ToLower(label), "xn--") {
		return errors.New("truncated A-label").AtError()
	}
	return nil
}

func isIPAddress(s string) bool {
	if len(s) > 2 && s[0] == '[' && s[len(s)-1] == ']' {
		s = s[1 : len(s)-1]
	}
	if idx := strings.LastIndex(s, "%"); idx > 0 {
		s = s[:idx]
	}
	return net.ParseIP(s) != nil
}

// normalizeServerName lowercases the hostname, strips a trailing dot, and
// converts U-labels to their A-label (Punycode) form. The result is what goes
// on the wire and what the server certificate is verified against.
func normalizeServerName(hostname string) (string, error) {
	hostname = strings.ToLower(strings.TrimSuffix(hostname, "."))
	ascii, err := idna.Lookup.ToASCII(hostname)
	if err != nil {
		// Names idna refuses to map keep the caller's spelling and still
		// go through validation below.
		ascii = hostname
	}
	if err := validateServerName(ascii); err != nil {
		return "", err
	}
	return ascii, nil
}
