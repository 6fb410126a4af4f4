// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collection

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/zeebo/blake3"
)

// StaticContent serves files from the read-only package root and the
// grain's writable var directory.
//
// The package root holds the precompressed bundles script.js.gz and
// style.css.gz and the client/ tree. A bundle without its .gz file is
// compressed on first request and cached until its modification time
// changes.
type StaticContent struct {
	root         string
	varDirectory string
	logger       *slog.Logger

	mu         sync.Mutex
	compressed map[string]compressedBundle
}

type compressedBundle struct {
	modTime time.Time
	size    int64
	body    []byte
}

// NewStaticContent returns a StaticContent rooted at root, listing and
// serving user files from varDirectory.
func NewStaticContent(root, varDirectory string, logger *slog.Logger) *StaticContent {
	return &StaticContent{
		root:         root,
		varDirectory: varDirectory,
		logger:       logger,
		compressed:   make(map[string]compressedBundle),
	}
}

// Bundle serves a gzip-encoded top-level bundle such as script.js.
func (s *StaticContent) Bundle(name, mimeType string) (Response, error) {
	body, err := os.ReadFile(filepath.Join(s.root, name+".gz"))
	if err == nil {
		return newContent(mimeType, body, "gzip"), nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s.gz: %w", name, err)
	}

	body, err = s.compressBundle(name)
	if errors.Is(err, fs.ErrNotExist) {
		return notFound(), nil
	}
	if err != nil {
		return nil, err
	}
	return newContent(mimeType, body, "gzip"), nil
}

func (s *StaticContent) compressBundle(name string) ([]byte, error) {
	path := filepath.Join(s.root, name)
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.compressed[name]; ok && cached.modTime.Equal(info.ModTime()) && cached.size == info.Size() {
		return cached.body, nil
	}

	source, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	var buffer bytes.Buffer
	writer, err := gzip.NewWriterLevel(&buffer, gzip.BestCompression)
	if err != nil {
		return nil, fmt.Errorf("compressing %s: %w", name, err)
	}
	if _, err := writer.Write(source); err != nil {
		return nil, fmt.Errorf("compressing %s: %w", name, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("compressing %s: %w", name, err)
	}

	s.logger.Info("compressed bundle without prebuilt .gz",
		"name", name,
		"source_bytes", len(source),
		"compressed_bytes", buffer.Len(),
	)
	s.compressed[name] = compressedBundle{modTime: info.ModTime(), size: info.Size(), body: buffer.Bytes()}
	return buffer.Bytes(), nil
}

// ClientFile serves client/<relative> with the given content type.
func (s *StaticContent) ClientFile(relative, mimeType string) (Response, error) {
	return readContent(filepath.Join(s.root, "client", relative), mimeType)
}

// IsClientDirectory reports whether client/<relative> is a directory.
func (s *StaticContent) IsClientDirectory(relative string) bool {
	info, err := os.Stat(filepath.Join(s.root, "client", relative))
	return err == nil && info.IsDir()
}

// VarFile serves a file from the var directory. User content is always
// application/octet-stream so that uploaded HTML cannot run as the
// grain's origin.
func (s *StaticContent) VarFile(relative string) (Response, error) {
	return readContent(filepath.Join(s.varDirectory, relative), "application/octet-stream")
}

// VarListing lists the var directory, one name per line.
func (s *StaticContent) VarListing() (Response, error) {
	entries, err := os.ReadDir(s.varDirectory)
	if err != nil {
		return nil, fmt.Errorf("listing var directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		names = append(names, entry.Name())
	}
	sort.Strings(names)
	return newContent("text/plain; charset=UTF-8", []byte(strings.Join(names, "\n")), ""), nil
}

func readContent(path, mimeType string) (Response, error) {
	body, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return notFound(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return newContent(mimeType, body, ""), nil
}

func newContent(mimeType string, body []byte, encoding string) *Content {
	return &Content{
		MimeType:   mimeType,
		Body:       body,
		Encoding:   encoding,
		StatusCode: http.StatusOK,
		ETag:       entityTag(body),
	}
}

// entityTag is the quoted hex of the first 16 bytes of the body's
// BLAKE3 digest.
func entityTag(body []byte) string {
	digest := blake3.Sum256(body)
	return `"` + hex.EncodeToString(digest[:16]) + `"`
}

func notFound() *ClientError {
	return &ClientError{StatusCode: http.StatusNotFound}
}

// ContentType infers a content type from a file name's extension.
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html":
		return "text/html; charset=UTF-8"
	case ".js":
		return "text/javascript; charset=UTF-8"
	case ".css":
		return "text/css; charset=UTF-8"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".svg":
		return "image/svg+xml; charset=UTF-8"
	case ".txt":
		return "text/plain; charset=UTF-8"
	default:
		return "application/octet-stream"
	}
}
