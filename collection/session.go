// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collection

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	claimPrefix     = "token/"
	referencePrefix = "sturdyref/"
)

// shellHTML is the page served at the grain root; the client bundle
// renders everything into #main.
const shellHTML = `<!DOCTYPE html><html><head>` +
	`<link rel="stylesheet" type="text/css" href="style.css">` +
	`<script type="text/javascript" src="script.js" async></script>` +
	`</head><body><div id="main"></div></body></html>`

// Session is one user's web session. Request failures the user can act
// on come back as *ClientError responses; a non-nil error means the
// grain itself failed (usually disk I/O).
type Session struct {
	view     *View
	canWrite bool
	identity string
}

// CanWrite reports whether the session holds the write permission.
func (s *Session) CanWrite() bool { return s.canWrite }

// Identity returns the hex identity id of the session's user.
func (s *Session) Identity() string { return s.identity }

// Get serves the client shell, bundles, client files, the var
// directory and the rendered description.
func (s *Session) Get(ctx context.Context, path string) (Response, error) {
	if response := checkPath(path); response != nil {
		return response, nil
	}
	static := s.view.static

	switch {
	case path == "":
		return &Content{MimeType: "text/html; charset=UTF-8", Body: []byte(shellHTML), StatusCode: http.StatusOK}, nil
	case path == "script.js":
		return static.Bundle("script.js", "text/javascript; charset=UTF-8")
	case path == "style.css":
		return static.Bundle("style.css", "text/css; charset=UTF-8")
	case path == "description":
		body, err := RenderDescription(s.view.store.Description())
		if err != nil {
			return nil, err
		}
		return &Content{MimeType: "text/html; charset=UTF-8", Body: body, StatusCode: http.StatusOK}, nil
	case path == "var" || path == "var/":
		return static.VarListing()
	case strings.HasPrefix(path, "var/"):
		return static.VarFile(strings.TrimPrefix(path, "var/"))
	case strings.HasSuffix(path, "/"):
		return static.ClientFile(path+"index.html", "text/html; charset=UTF-8")
	case static.IsClientDirectory(path):
		return &Redirect{Location: path + "/", Permanent: true, SwitchToGet: true}, nil
	default:
		return static.ClientFile(path, ContentType(path))
	}
}

// Post handles token/<claim>: the body is the base64 powerbox
// descriptor for the claimed capability.
func (s *Session) Post(ctx context.Context, path string, content []byte) (Response, error) {
	if response := checkPath(path); response != nil {
		return response, nil
	}
	claimToken, ok := strings.CutPrefix(path, claimPrefix)
	if !ok {
		return notFound(), nil
	}
	if claimToken == "" {
		return &ClientError{StatusCode: http.StatusBadRequest, Description: "missing claim token"}, nil
	}

	token, err := s.view.claimer.Claim(ctx, claimToken, content, s.identity)
	if err != nil {
		s.view.logger.Warn("claim failed", "identity", s.identity, "error", err)
		return &ClientError{StatusCode: http.StatusBadRequest, Description: "error: " + err.Error()}, nil
	}
	return &Content{MimeType: "text/plain; charset=UTF-8", Body: []byte(token), StatusCode: http.StatusOK}, nil
}

// Put handles description updates. Requires write permission.
func (s *Session) Put(ctx context.Context, path string, content []byte) (Response, error) {
	if response := checkPath(path); response != nil {
		return response, nil
	}
	if !s.canWrite {
		return &ClientError{StatusCode: http.StatusForbidden}, nil
	}
	if path != "description" {
		return notFound(), nil
	}

	if err := s.view.store.UpdateDescription(content); err != nil {
		if errors.Is(err, ErrInvalidText) {
			return &ClientError{StatusCode: http.StatusBadRequest, Description: err.Error()}, nil
		}
		return nil, err
	}
	return &NoContent{}, nil
}

// Delete handles sturdyref/<token>. Requires write permission.
func (s *Session) Delete(ctx context.Context, path string) (Response, error) {
	if response := checkPath(path); response != nil {
		return response, nil
	}
	token, ok := strings.CutPrefix(path, referencePrefix)
	if !ok {
		return &ClientError{
			StatusCode:  http.StatusBadRequest,
			Description: "DELETE only supported under " + referencePrefix,
		}, nil
	}
	if !s.canWrite {
		return &ClientError{StatusCode: http.StatusForbidden}, nil
	}

	if err := s.view.store.Remove(token); err != nil {
		if errors.Is(err, ErrInvalidToken) {
			return &ClientError{StatusCode: http.StatusBadRequest, Description: err.Error()}, nil
		}
		return nil, err
	}
	return &NoContent{}, nil
}

// OpenWebSocket subscribes client to the collection. The returned
// connection receives the client's frames; it lives until ctx ends or
// the connection is torn down.
func (s *Session) OpenWebSocket(ctx context.Context, client Stream) *Connection {
	connection := Connect(ctx, s.view.store, client, s.canWrite, s.view.heartbeatTimeout)
	s.view.logger.Info("streaming connection opened",
		"subscriber_id", connection.ID(),
		"identity", s.identity,
		"can_write", s.canWrite,
	)
	return connection
}

func checkPath(path string) *ClientError {
	if err := CheckCanonicalPath(path); err != nil {
		return &ClientError{StatusCode: http.StatusBadRequest, Description: fmt.Sprint(err)}
	}
	return nil
}
