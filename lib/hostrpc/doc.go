// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package hostrpc connects the grain to its host platform over Unix
// sockets carrying CBOR.
//
// The host calls into the grain through a [Server]: each connection
// carries one CBOR request map with an "action" field and receives one
// [Response] envelope. Actions registered with [Server.HandleStream]
// keep the connection open after the envelope and exchange
// [Message] values in both directions until either side closes; the
// streaming socket between a browser and the grain runs over one of
// these.
//
// The grain calls into the host through a [Client] using the same
// envelope. Capabilities the host hands out are opaque string handles
// that the grain passes back verbatim.
//
// Sessions opened by the host are named with ULIDs allocated by a
// [Sessions] table.
package hostrpc
