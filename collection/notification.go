// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collection

import (
	"encoding/json"
	"strconv"
)

// Notification is a change pushed to every subscriber. The set of
// variants is closed: Insert, Remove, CanWrite and Description.
type Notification interface {
	// payload returns the value marshaled as the notification's JSON.
	payload() any
}

// Insert announces a saved reference. Sent on every insert and once
// per stored reference when a subscriber connects.
type Insert struct {
	Token     string
	Reference SavedReference
}

// Remove announces that a reference was deleted.
type Remove struct {
	Token string
}

// CanWrite tells a subscriber whether its session may modify the
// collection. Sent only on connect.
type CanWrite bool

// Description carries the collection description text.
type Description string

type insertData struct {
	Title string `json:"title"`
	// DateAdded is a decimal string; the browser client has always
	// received it that way.
	DateAdded string `json:"date_added"`
	AddedBy   string `json:"added_by"`
}

type insertBody struct {
	Token string     `json:"token"`
	Data  insertData `json:"data"`
}

type tokenBody struct {
	Token string `json:"token"`
}

func (n Insert) payload() any {
	return map[string]insertBody{"insert": {
		Token: n.Token,
		Data: insertData{
			Title:     n.Reference.Title,
			DateAdded: strconv.FormatUint(n.Reference.DateAdded, 10),
			AddedBy:   n.Reference.AddedBy,
		},
	}}
}

func (n Remove) payload() any {
	return map[string]tokenBody{"remove": {Token: n.Token}}
}

func (n CanWrite) payload() any {
	return map[string]bool{"canWrite": bool(n)}
}

func (n Description) payload() any {
	return map[string]string{"description": string(n)}
}

// MarshalNotification returns the JSON text of n.
func MarshalNotification(n Notification) ([]byte, error) {
	return json.Marshal(n.payload())
}
