// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package hkdf thinly wraps crypto/hkdf so that callers deal in explicit
// errors instead of panics when handed a bad hash constructor or length.
package hkdf

import (
	"crypto/hkdf"
	"hash"
)

// Extract performs HKDF-Extract. A nil salt is treated as a string of zeros
// by the underlying implementation.
func Extract[H hash.Hash](h func() H, secret, salt []byte) ([]byte, error) {
	return hkdf.Extract(h, secret, salt)
}

// Expand performs HKDF-Expand. keyLength must be in (0, 255*Hash.Size()].
func Expand[H hash.Hash](h func() H, pseudorandomKey []byte, info string, keyLength int) ([]byte, error) {
	return hkdf.Expand(h, pseudorandomKey, info, keyLength)
}
