// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package wsframe encodes and decodes single WebSocket frames (RFC 6455
// §5.2) exchanged as discrete byte messages over the host's streaming
// socket. The host delivers each client frame as one message, so the
// codec works on whole frames rather than on a byte stream.
//
// Server frames are always FIN and never masked. Client frames may be
// masked; Decode returns the unmasked payload.
package wsframe

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Opcode identifies the frame type (low four bits of the first byte).
type Opcode byte

// Opcodes defined by RFC 6455.
const (
	OpContinuation Opcode = 0x0
	OpText         Opcode = 0x1
	OpBinary       Opcode = 0x2
	OpClose        Opcode = 0x8
	OpPing         Opcode = 0x9
	OpPong         Opcode = 0xA
)

func (o Opcode) String() string {
	switch o {
	case OpContinuation:
		return "continuation"
	case OpText:
		return "text"
	case OpBinary:
		return "binary"
	case OpClose:
		return "close"
	case OpPing:
		return "ping"
	case OpPong:
		return "pong"
	default:
		return fmt.Sprintf("opcode(0x%x)", byte(o))
	}
}

const (
	finBit  = 0x80
	maskBit = 0x80

	// Length markers in the low seven bits of the second byte.
	length16 = 126
	length64 = 127

	maskKeyLength = 4
)

// MaxPayloadLength bounds inbound frames. Notifications and client
// messages are small; anything near this is a broken or hostile peer.
const MaxPayloadLength = 16 * 1024 * 1024

var (
	// ErrShortFrame is returned when a frame ends before its header,
	// extended length or masking key is complete.
	ErrShortFrame = errors.New("wsframe: frame shorter than its header")

	// ErrLengthMismatch is returned when the declared payload length
	// differs from the number of payload bytes present.
	ErrLengthMismatch = errors.New("wsframe: declared length does not match payload")

	// ErrPayloadTooLarge is returned when the declared payload length
	// exceeds MaxPayloadLength.
	ErrPayloadTooLarge = errors.New("wsframe: payload too large")
)

// Frame is a decoded WebSocket frame.
type Frame struct {
	Opcode Opcode
	Fin    bool
	Masked bool

	// Length is the declared payload length from the header.
	Length uint64

	// Payload is the unmasked application data.
	Payload []byte
}

// Encode returns a single FIN frame with the given opcode and payload.
// The length uses the shortest of the three encodings: one byte below
// 126, 0x7e plus a big-endian uint16 below 65536, else 0x7f plus a
// big-endian uint64.
func Encode(opcode Opcode, payload []byte) []byte {
	length := len(payload)

	var frame []byte
	switch {
	case length < length16:
		frame = make([]byte, 2, 2+length)
		frame[1] = byte(length)
	case length < 1<<16:
		frame = make([]byte, 4, 4+length)
		frame[1] = length16
		binary.BigEndian.PutUint16(frame[2:4], uint16(length))
	default:
		frame = make([]byte, 10, 10+length)
		frame[1] = length64
		binary.BigEndian.PutUint64(frame[2:10], uint64(length))
	}
	frame[0] = finBit | byte(opcode)
	return append(frame, payload...)
}

// EncodeText returns a FIN text frame carrying payload. The first byte
// is always 0x81.
func EncodeText(payload []byte) []byte {
	return Encode(OpText, payload)
}

// Ping returns an empty ping frame: 0x89 0x00.
func Ping() []byte {
	return Encode(OpPing, nil)
}

// Decode parses a complete frame. The declared length must match the
// bytes that follow the header exactly. A masked payload is unmasked
// into a fresh slice; the input is not modified.
func Decode(data []byte) (Frame, error) {
	if len(data) < 2 {
		return Frame{}, fmt.Errorf("%w: %d bytes", ErrShortFrame, len(data))
	}

	frame := Frame{
		Opcode: Opcode(data[0] & 0x0f),
		Fin:    data[0]&finBit != 0,
		Masked: data[1]&maskBit != 0,
	}

	offset := 2
	switch marker := data[1] & 0x7f; marker {
	case length16:
		if len(data) < offset+2 {
			return Frame{}, fmt.Errorf("%w: missing 16-bit length", ErrShortFrame)
		}
		frame.Length = uint64(binary.BigEndian.Uint16(data[offset:]))
		offset += 2
	case length64:
		if len(data) < offset+8 {
			return Frame{}, fmt.Errorf("%w: missing 64-bit length", ErrShortFrame)
		}
		frame.Length = binary.BigEndian.Uint64(data[offset:])
		offset += 8
	default:
		frame.Length = uint64(marker)
	}

	if frame.Length > MaxPayloadLength {
		return Frame{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrPayloadTooLarge, frame.Length, MaxPayloadLength)
	}

	var maskKey []byte
	if frame.Masked {
		if len(data) < offset+maskKeyLength {
			return Frame{}, fmt.Errorf("%w: missing masking key", ErrShortFrame)
		}
		maskKey = data[offset : offset+maskKeyLength]
		offset += maskKeyLength
	}

	body := data[offset:]
	if uint64(len(body)) != frame.Length {
		return Frame{}, fmt.Errorf("%w: header says %d, got %d", ErrLengthMismatch, frame.Length, len(body))
	}

	frame.Payload = make([]byte, len(body))
	copy(frame.Payload, body)
	if frame.Masked {
		for i := range frame.Payload {
			frame.Payload[i] ^= maskKey[i%maskKeyLength]
		}
	}
	return frame, nil
}
