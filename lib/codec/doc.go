// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the grain's standard CBOR encoding
// configuration.
//
// The grain uses two serialization formats with a clear boundary:
//
//   - JSON for anything the browser sees: notification payloads pushed
//     over the streaming socket.
//   - CBOR for everything else: saved reference files on disk, the
//     powerbox descriptor envelope carried by POST requests, and the
//     host RPC wire envelopes.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2): sorted
// map keys, smallest integer encoding, no indefinite-length items. The
// same SavedReference always produces the same file bytes.
//
// For buffer-oriented operations (reference files, descriptors):
//
//	data, err := codec.Marshal(value)
//	err = codec.Unmarshal(data, &value)
//
// For stream-oriented operations (host sockets):
//
//	encoder := codec.NewEncoder(conn)
//	decoder := codec.NewDecoder(conn)
//
// Types that are only ever CBOR carry `cbor` struct tags. Never put
// both `cbor` and `json` tags on the same field.
package codec
