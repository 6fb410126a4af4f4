// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collection

import (
	"errors"
	"testing"
)

func TestCheckCanonicalPath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		path      string
		canonical bool
	}{
		{"", true},
		{"a/b/c", true},
		{"var/", true},
		{"client/img/", true},
		{"sturdyref/AQI=", true},
		{"a/../b", false},
		{"./x", false},
		{"a//b", false},
		{"..", false},
		{"a/.", false},
		{"a//", false},
		{"var/..", false},
	}
	for _, test := range tests {
		err := CheckCanonicalPath(test.path)
		if test.canonical && err != nil {
			t.Errorf("CheckCanonicalPath(%q) = %v, want nil", test.path, err)
		}
		if !test.canonical && !errors.Is(err, ErrNonCanonicalPath) {
			t.Errorf("CheckCanonicalPath(%q) = %v, want ErrNonCanonicalPath", test.path, err)
		}
	}
}
