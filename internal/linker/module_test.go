// SPDX-License-Identifier: MPL-2.0

package linker

import (
	"errors"
	"testing"

	"github.com/opencontainers/go-digest"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{"json", "json"},
		{"json.mmod", "json"},
		{"JSON.MMOD", "JSON"},
		{"json, version=2.0, culture=neutral", "json"},
		{" json.mmod , token=abc", "json"},
		{"org.motoi.core", "org.motoi.core"},
		{".mmod", ".mmod"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPayloadLoader(t *testing.T) {
	t.Parallel()

	m, err := PayloadLoader{}.Load("json", "a.marc!includes/json.mmod", []byte("payload"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if m.Digest != digest.FromString("payload") {
		t.Errorf("Digest = %s", m.Digest)
	}
	if err := m.Digest.Validate(); err != nil {
		t.Errorf("Digest.Validate() = %v", err)
	}

	if _, err := (PayloadLoader{}).Load("x", "o", nil); !errors.Is(err, ErrEmptyPayload) {
		t.Errorf("empty payload error = %v", err)
	}
}
