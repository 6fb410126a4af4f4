// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collection

import (
	"context"
	"fmt"
	"log/slog"
)

// SaveLabel labels every reference the grain asks the platform to mint.
const SaveLabel = "[save label chosen by collections app]"

// Platform is the host platform API the grain calls.
type Platform interface {
	// Claim exchanges a one-time claim token for a live capability.
	Claim(ctx context.Context, claimToken string) (Capability, error)

	// Mint saves capability and returns a durable token that can be
	// exchanged for it later.
	Mint(ctx context.Context, capability Capability, label string) ([]byte, error)
}

// Capability is a live reference to another grain's view.
type Capability interface {
	Metadata(ctx context.Context) (Metadata, error)
}

// Metadata describes the grain behind a capability.
type Metadata struct {
	AppTitle string
	Icon     Icon
}

// Icon is a static asset served by the platform.
type Icon interface {
	Resolve(ctx context.Context) (IconLocation, error)
}

// IconLocation is where the platform serves an icon.
type IconLocation struct {
	Protocol string
	HostPath string
}

// URL returns protocol://hostPath.
func (l IconLocation) URL() string {
	return l.Protocol + "://" + l.HostPath
}

// Claimer turns a claim token and its powerbox descriptor into a saved
// reference: claim, read metadata, resolve the icon, mint a durable
// token, insert. Each step runs once; the first failure ends the chain
// and nothing is persisted.
type Claimer struct {
	platform Platform
	store    *Store
	logger   *slog.Logger
}

// NewClaimer returns a Claimer that saves into store.
func NewClaimer(platform Platform, store *Store, logger *slog.Logger) *Claimer {
	return &Claimer{platform: platform, store: store, logger: logger}
}

// Claim runs the chain for a claim token posted by identity. It
// returns the token of the new reference. A malformed descriptor
// fails with ErrMalformedDescriptor before any remote call; remote
// failures are *RemoteCallError.
func (c *Claimer) Claim(ctx context.Context, claimToken string, descriptor []byte, identity string) (string, error) {
	title, err := DescriptorTitle(descriptor)
	if err != nil {
		return "", err
	}

	capability, err := c.platform.Claim(ctx, claimToken)
	if err != nil {
		return "", &RemoteCallError{Step: StepClaim, Err: err}
	}

	metadata, err := capability.Metadata(ctx)
	if err != nil {
		return "", &RemoteCallError{Step: StepMetadata, Err: err}
	}
	if metadata.Icon == nil {
		return "", &RemoteCallError{Step: StepMetadata, Err: fmt.Errorf("no icon in view metadata")}
	}

	location, err := metadata.Icon.Resolve(ctx)
	if err != nil {
		return "", &RemoteCallError{Step: StepIcon, Err: err}
	}
	if location.Protocol != "http" && location.Protocol != "https" {
		return "", &RemoteCallError{Step: StepIcon, Err: fmt.Errorf("unsupported icon protocol %q", location.Protocol)}
	}

	c.logger.Info("claimed capability",
		"title", title,
		"app_title", metadata.AppTitle,
		"icon_url", location.URL(),
	)

	rawToken, err := c.platform.Mint(ctx, capability, SaveLabel)
	if err != nil {
		return "", &RemoteCallError{Step: StepMint, Err: err}
	}

	token, err := c.store.Insert(rawToken, title, identity)
	if err != nil {
		return "", fmt.Errorf("saving reference: %w", err)
	}
	return token, nil
}
