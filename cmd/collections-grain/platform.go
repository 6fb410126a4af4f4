// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"

	"github.com/bureau-foundation/collections/collection"
	"github.com/bureau-foundation/collections/lib/hostrpc"
)

// platform implements collection.Platform over the host's platform
// socket. Capabilities and icons are opaque handles issued by the host.
type platform struct {
	client *hostrpc.Client
}

func newPlatform(client *hostrpc.Client) *platform {
	return &platform{client: client}
}

type platformCapability struct {
	client *hostrpc.Client
	handle string
}

type platformIcon struct {
	client *hostrpc.Client
	handle string
}

func (p *platform) Claim(ctx context.Context, claimToken string) (collection.Capability, error) {
	var result struct {
		Capability string `cbor:"capability"`
	}
	if err := p.client.Call(ctx, "claim_request", map[string]any{"claim_token": claimToken}, &result); err != nil {
		return nil, err
	}
	if result.Capability == "" {
		return nil, fmt.Errorf("claim_request returned no capability")
	}
	return &platformCapability{client: p.client, handle: result.Capability}, nil
}

func (p *platform) Mint(ctx context.Context, capability collection.Capability, label string) ([]byte, error) {
	held, ok := capability.(*platformCapability)
	if !ok {
		return nil, fmt.Errorf("cannot save capability of type %T", capability)
	}
	var result struct {
		Token []byte `cbor:"token"`
	}
	err := p.client.Call(ctx, "save", map[string]any{"capability": held.handle, "label": label}, &result)
	if err != nil {
		return nil, err
	}
	if len(result.Token) == 0 {
		return nil, fmt.Errorf("save returned an empty token")
	}
	return result.Token, nil
}

func (c *platformCapability) Metadata(ctx context.Context) (collection.Metadata, error) {
	var result struct {
		AppTitle string `cbor:"app_title"`
		Icon     string `cbor:"icon"`
	}
	if err := c.client.Call(ctx, "view_info", map[string]any{"capability": c.handle}, &result); err != nil {
		return collection.Metadata{}, err
	}
	metadata := collection.Metadata{AppTitle: result.AppTitle}
	if result.Icon != "" {
		metadata.Icon = &platformIcon{client: c.client, handle: result.Icon}
	}
	return metadata, nil
}

func (i *platformIcon) Resolve(ctx context.Context) (collection.IconLocation, error) {
	var result struct {
		Protocol string `cbor:"protocol"`
		HostPath string `cbor:"host_path"`
	}
	if err := i.client.Call(ctx, "icon_url", map[string]any{"icon": i.handle}, &result); err != nil {
		return collection.IconLocation{}, err
	}
	return collection.IconLocation{Protocol: result.Protocol, HostPath: result.HostPath}, nil
}
