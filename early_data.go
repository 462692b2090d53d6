// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tls

// EarlyDataStatus tracks the fate of a 0-RTT offer across the handshake.
type EarlyDataStatus int

const (
	// EarlyDataNone means no early data was offered.
	EarlyDataNone EarlyDataStatus = iota
	// EarlyDataOffered means the ClientHello carried the early_data
	// extension and the verdict is still pending.
	EarlyDataOffered
	// EarlyDataRejected means the server declined the offer, either
	// explicitly or by a HelloRetryRequest.
	EarlyDataRejected
	// EarlyDataAccepted means EncryptedExtensions confirmed the offer.
	EarlyDataAccepted
)

func (s EarlyDataStatus) String() string {
	switch s {
	case EarlyDataNone:
		return "none"
	case EarlyDataOffered:
		return "offered"
	case EarlyDataRejected:
		return "rejected"
	case EarlyDataAccepted:
		return "accepted"
	default:
		return "unknown"
	}
}
