// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collection

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// descriptionMarkdown renders descriptions. Raw HTML in the source is
// omitted from the output (goldmark's default without WithUnsafe).
var descriptionMarkdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
)

// RenderDescription converts description markdown to an HTML fragment.
func RenderDescription(text string) ([]byte, error) {
	var buffer bytes.Buffer
	if err := descriptionMarkdown.Convert([]byte(text), &buffer); err != nil {
		return nil, fmt.Errorf("rendering description: %w", err)
	}
	return buffer.Bytes(), nil
}
