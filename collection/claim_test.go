// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collection

import (
	"context"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/bureau-foundation/collections/lib/codec"
)

// fakePlatform answers the claim chain from fixed values. A non-nil
// error field fails the corresponding step.
type fakePlatform struct {
	claimErr    error
	metadataErr error
	iconErr     error
	mintErr     error

	noIcon   bool
	protocol string
	minted   []byte

	claimed    []string
	mintLabels []string
}

type fakeCapability struct{ platform *fakePlatform }

type fakeIcon struct{ platform *fakePlatform }

func newFakePlatform() *fakePlatform {
	return &fakePlatform{protocol: "https", minted: []byte{0x01}}
}

func (p *fakePlatform) Claim(_ context.Context, claimToken string) (Capability, error) {
	p.claimed = append(p.claimed, claimToken)
	if p.claimErr != nil {
		return nil, p.claimErr
	}
	return fakeCapability{platform: p}, nil
}

func (p *fakePlatform) Mint(_ context.Context, capability Capability, label string) ([]byte, error) {
	if _, ok := capability.(fakeCapability); !ok {
		return nil, errors.New("foreign capability")
	}
	p.mintLabels = append(p.mintLabels, label)
	if p.mintErr != nil {
		return nil, p.mintErr
	}
	return p.minted, nil
}

func (c fakeCapability) Metadata(context.Context) (Metadata, error) {
	if c.platform.metadataErr != nil {
		return Metadata{}, c.platform.metadataErr
	}
	metadata := Metadata{AppTitle: "Notes"}
	if !c.platform.noIcon {
		metadata.Icon = fakeIcon(c)
	}
	return metadata, nil
}

func (i fakeIcon) Resolve(context.Context) (IconLocation, error) {
	if i.platform.iconErr != nil {
		return IconLocation{}, i.platform.iconErr
	}
	return IconLocation{Protocol: i.platform.protocol, HostPath: "static.example.org/icon.svg"}, nil
}

// descriptorText builds base64 descriptor text with one view tag per
// title.
func descriptorText(t *testing.T, titles ...string) []byte {
	t.Helper()
	var descriptor PowerboxDescriptor
	for _, title := range titles {
		value, err := codec.Marshal(ViewTag{Title: title})
		if err != nil {
			t.Fatalf("Marshal tag: %v", err)
		}
		descriptor.Tags = append(descriptor.Tags, PowerboxTag{ID: 15831515641881813735, Value: value})
	}
	raw, err := codec.Marshal(descriptor)
	if err != nil {
		t.Fatalf("Marshal descriptor: %v", err)
	}
	return []byte(base64.StdEncoding.EncodeToString(raw))
}

func TestDescriptorTitle(t *testing.T) {
	t.Parallel()

	raw, err := codec.Marshal(PowerboxDescriptor{Tags: []PowerboxTag{{ID: 1, Value: mustMarshal(t, ViewTag{Title: "Recipes"})}}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	tests := []struct {
		name    string
		content []byte
		want    string
	}{
		{"standard", []byte(base64.StdEncoding.EncodeToString(raw)), "Recipes"},
		{"url safe unpadded", []byte(base64.RawURLEncoding.EncodeToString(raw)), "Recipes"},
		{"trailing newline", []byte(base64.StdEncoding.EncodeToString(raw) + "\n"), "Recipes"},
		{"last tag wins", descriptorText(t, "first", "second"), "second"},
		{"no tags", descriptorText(t), ""},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			got, err := DescriptorTitle(test.content)
			if err != nil {
				t.Fatalf("DescriptorTitle: %v", err)
			}
			if got != test.want {
				t.Errorf("title = %q, want %q", got, test.want)
			}
		})
	}
}

func TestDescriptorTitleMalformed(t *testing.T) {
	t.Parallel()

	badTag, err := codec.Marshal(PowerboxDescriptor{Tags: []PowerboxTag{{ID: 1, Value: codec.RawMessage{0x01}}}})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	for name, content := range map[string][]byte{
		"not base64":   []byte("!!not base64!!"),
		"not cbor":     []byte(base64.StdEncoding.EncodeToString([]byte{0xff, 0xff})),
		"tag not view": []byte(base64.StdEncoding.EncodeToString(badTag)),
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := DescriptorTitle(content); !errors.Is(err, ErrMalformedDescriptor) {
				t.Errorf("error = %v, want ErrMalformedDescriptor", err)
			}
		})
	}
}

func TestClaimSavesReference(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := newTestStore(t)
	stream, _ := store.subscribe(t, ctx)
	platform := newFakePlatform()
	claimer := NewClaimer(platform, store.Store, testLogger())

	token, err := claimer.Claim(ctx, "claim-1", descriptorText(t, "Grocery list"), "a1b2")
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if token != "AQ==" {
		t.Errorf("token = %q, want AQ==", token)
	}
	if len(platform.claimed) != 1 || platform.claimed[0] != "claim-1" {
		t.Errorf("claimed = %v, want [claim-1]", platform.claimed)
	}
	if len(platform.mintLabels) != 1 || platform.mintLabels[0] != SaveLabel {
		t.Errorf("mint labels = %v, want [%s]", platform.mintLabels, SaveLabel)
	}

	reference, ok := store.Lookup(token)
	if !ok {
		t.Fatal("reference not in store after Claim")
	}
	if reference.Title != "Grocery list" || reference.AddedBy != "a1b2" {
		t.Errorf("reference = %+v", reference)
	}

	got := stream.nextText(t)
	if !strings.Contains(got, `"insert"`) || !strings.Contains(got, `"Grocery list"`) {
		t.Errorf("notification = %s, want an insert of the new reference", got)
	}
}

func TestClaimFailures(t *testing.T) {
	t.Parallel()

	upstream := errors.New("upstream said no")
	tests := []struct {
		name     string
		setup    func(*fakePlatform)
		wantStep string
		minted   bool
	}{
		{"claim", func(p *fakePlatform) { p.claimErr = upstream }, StepClaim, false},
		{"metadata", func(p *fakePlatform) { p.metadataErr = upstream }, StepMetadata, false},
		{"missing icon", func(p *fakePlatform) { p.noIcon = true }, StepMetadata, false},
		{"icon", func(p *fakePlatform) { p.iconErr = upstream }, StepIcon, false},
		{"icon protocol", func(p *fakePlatform) { p.protocol = "ftp" }, StepIcon, false},
		{"mint", func(p *fakePlatform) { p.mintErr = upstream }, StepMint, true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			store := newTestStore(t)
			platform := newFakePlatform()
			test.setup(platform)

			_, err := NewClaimer(platform, store.Store, testLogger()).
				Claim(context.Background(), "claim", descriptorText(t, "x"), "ff")

			var remote *RemoteCallError
			if !errors.As(err, &remote) {
				t.Fatalf("error = %v, want *RemoteCallError", err)
			}
			if remote.Step != test.wantStep {
				t.Errorf("step = %q, want %q", remote.Step, test.wantStep)
			}
			if (len(platform.mintLabels) > 0) != test.minted {
				t.Errorf("mint called = %v, want %v", len(platform.mintLabels) > 0, test.minted)
			}
			if entries := store.Entries(); len(entries) != 0 {
				t.Errorf("store has %d entries after failed claim", len(entries))
			}
		})
	}
}

func TestClaimMalformedDescriptorMakesNoCalls(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)
	platform := newFakePlatform()

	_, err := NewClaimer(platform, store.Store, testLogger()).
		Claim(context.Background(), "claim", []byte("%%%"), "ff")
	if !errors.Is(err, ErrMalformedDescriptor) {
		t.Fatalf("error = %v, want ErrMalformedDescriptor", err)
	}
	if len(platform.claimed) != 0 {
		t.Errorf("claim called %d times for a malformed descriptor", len(platform.claimed))
	}
}

func mustMarshal(t *testing.T, v any) codec.RawMessage {
	t.Helper()
	data, err := codec.Marshal(v)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	return data
}
