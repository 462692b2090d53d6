// Copyright 2009 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tls

import (
	"github.com/jesiegel1/mbedtls/errors"
)

// ErrWantRead and ErrWantWrite are the transport backpressure signals. A
// Transport returns them when it cannot make progress without more inbound
// bytes or more outbound buffer space. The handshake surfaces them through
// Step without losing state, so the caller can retry the same Step later.
var (
	ErrWantRead  = errors.New("transport: want read").AtInfo()
	ErrWantWrite = errors.New("transport: want write").AtInfo()
)

// Direction distinguishes the two traffic directions of a connection.
type Direction int

const (
	DirectionRead Direction = iota
	DirectionWrite
)

func (d Direction) String() string {
	if d == DirectionRead {
		return "read"
	}
	return "write"
}

// KeyEpoch identifies which stage of the key schedule a traffic key belongs
// to. Epochs only ever advance.
type KeyEpoch int

const (
	EpochInitial KeyEpoch = iota
	EpochEarlyData
	EpochHandshake
	EpochApplication
)

func (e KeyEpoch) String() string {
	switch e {
	case EpochInitial:
		return "initial"
	case EpochEarlyData:
		return "early data"
	case EpochHandshake:
		return "handshake"
	case EpochApplication:
		return "application"
	default:
		return "unknown"
	}
}

// Transport is the record layer the handshake engine drives. The engine
// speaks whole handshake messages; fragmentation, coalescing, record
// protection and sequence numbers are the transport's concern.
//
// All methods may return ErrWantRead or ErrWantWrite to signal that the
// operation should be retried once the underlying I/O can progress. Any
// other error is treated as fatal by the engine.
type Transport interface {
	// ReadHandshakeMessage returns the next complete inbound handshake
	// message, including its four byte header. The transport must
	// reassemble messages split across records and must reject records
	// that change type mid-message.
	ReadHandshakeMessage() ([]byte, error)

	// WriteHandshakeMessage queues a complete outbound handshake message,
	// including its four byte header.
	WriteHandshakeMessage(msg []byte) error

	// WriteChangeCipherSpec queues the compatibility change_cipher_spec
	// record.
	WriteChangeCipherSpec() error

	// InstallKeys switches one direction of the connection to a new
	// epoch's AEAD key and IV. The suite identifies the AEAD algorithm.
	// Implementations must reset the record sequence number to zero.
	InstallKeys(dir Direction, epoch KeyEpoch, suite uint16, key, iv []byte) error

	// SendAlert queues a fatal alert for transmission. Best effort: the
	// engine does not retry a failed alert.
	SendAlert(a uint8) error
}
