// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collection

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// WebSessionType is the only session type NewSession accepts.
const WebSessionType = "web-session"

// ErrUnsupportedSessionType is returned by NewSession for any session
// type other than WebSessionType.
var ErrUnsupportedSessionType = errors.New("unsupported session type")

// PermissionWrite is the index of the write permission in
// UserInfo.Permissions and RoleDef.Permissions.
const PermissionWrite = 0

// PermissionDef declares a permission the grain understands.
type PermissionDef struct {
	Name  string `cbor:"name"`
	Title string `cbor:"title"`
}

// RoleDef is a named bundle of permissions offered when sharing.
type RoleDef struct {
	Title       string `cbor:"title"`
	VerbPhrase  string `cbor:"verbPhrase"`
	Permissions []bool `cbor:"permissions"`
}

// ViewInfo is what the grain tells the platform about its sharing
// model.
type ViewInfo struct {
	Permissions []PermissionDef `cbor:"permissions"`
	Roles       []RoleDef       `cbor:"roles"`
}

// DefaultViewInfo declares one permission, write, and two roles:
// editors have it and viewers do not.
func DefaultViewInfo() ViewInfo {
	return ViewInfo{
		Permissions: []PermissionDef{{Name: "write", Title: "write"}},
		Roles: []RoleDef{
			{Title: "editor", VerbPhrase: "can edit", Permissions: []bool{true}},
			{Title: "viewer", VerbPhrase: "can view", Permissions: []bool{false}},
		},
	}
}

// UserInfo identifies the user a session is opened for.
type UserInfo struct {
	IdentityID  []byte `cbor:"identityId"`
	Permissions []bool `cbor:"permissions"`
}

// ViewConfig configures NewView.
type ViewConfig struct {
	Store    *Store
	Platform Platform
	Static   *StaticContent

	// HeartbeatTimeout bounds how long a streaming client may leave a
	// ping unanswered. Zero means DefaultHeartbeatTimeout.
	HeartbeatTimeout time.Duration

	Logger *slog.Logger
}

// View is the grain's entry point: it describes the sharing model and
// opens sessions.
type View struct {
	store            *Store
	claimer          *Claimer
	static           *StaticContent
	heartbeatTimeout time.Duration
	logger           *slog.Logger
}

// NewView returns a View over config.Store.
func NewView(config ViewConfig) *View {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &View{
		store:            config.Store,
		claimer:          NewClaimer(config.Platform, config.Store, config.Logger),
		static:           config.Static,
		heartbeatTimeout: config.HeartbeatTimeout,
		logger:           config.Logger,
	}
}

// ViewInfo returns the grain's sharing model.
func (v *View) ViewInfo() ViewInfo {
	return DefaultViewInfo()
}

// NewSession opens a web session for user.
func (v *View) NewSession(sessionType string, user UserInfo) (*Session, error) {
	if sessionType != WebSessionType {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedSessionType, sessionType)
	}
	canWrite := len(user.Permissions) > PermissionWrite && user.Permissions[PermissionWrite]
	return &Session{
		view:     v,
		canWrite: canWrite,
		identity: hex.EncodeToString(user.IdentityID),
	}, nil
}
