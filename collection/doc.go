// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package collection implements the collections grain: a shared list of
// saved references to other grains, kept live in every open browser tab.
//
// The package is organized around the grain's data flow:
//
//   - store.go: the durable token-keyed reference store and its
//     subscriber registry
//   - subscriber.go: per-subscriber ordered outboxes for notification
//     fan-out
//   - notification.go: the JSON notification payloads pushed to browsers
//   - connection.go, heartbeat.go: the server side of one streaming
//     socket, with ping/pong liveness checking
//   - claim.go, descriptor.go: the claim → metadata → icon → mint →
//     insert chain behind POST token/<claim>
//   - view.go, session.go, path.go: the view and web session surfaces
//     the host platform calls
//   - static.go, description.go: static assets and generated content
//
// The host platform's transport is abstracted behind the Platform,
// Capability, Icon and Stream interfaces; cmd/collections-grain binds
// them to the host sockets.
package collection
