// Package testutil holds helpers shared by package tests.
package testutil

import (
	"bytes"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"gopkg.in/dnaeon/go-vcr.v2/cassette"
	"gopkg.in/dnaeon/go-vcr.v2/recorder"
)

// VCROption tunes request matching.
type VCROption func(*vcrOptions)

type vcrOptions struct {
	matchBody bool
}

// MatchBody also requires the recorded request body to equal the live one.
func MatchBody() VCROption {
	return func(o *vcrOptions) { o.matchBody = true }
}

// NewVCRRecorder creates a recorder replaying testdata/fixtures/<name>.yaml.
// Set VCR_MODE=record to re-record against live endpoints.
func NewVCRRecorder(t *testing.T, cassetteName string, opts ...VCROption) (*recorder.Recorder, func()) {
	t.Helper()

	var o vcrOptions
	for _, opt := range opts {
		opt(&o)
	}

	mode := recorder.ModeReplaying
	if os.Getenv("VCR_MODE") == "record" {
		mode = recorder.ModeRecording
	}

	cassettePath := filepath.Join("testdata", "fixtures", cassetteName)

	r, err := recorder.NewAsMode(cassettePath, mode, nil)
	if err != nil {
		t.Fatalf("Failed to create VCR recorder: %v", err)
	}

	r.SetMatcher(func(r *http.Request, i cassette.Request) bool {
		if r.Method != i.Method || r.URL.String() != i.URL {
			return false
		}
		if !o.matchBody {
			return true
		}
		return requestBody(r) == i.Body
	})

	// Cleanup function
	cleanup := func() {
		if err := r.Stop(); err != nil {
			t.Errorf("Failed to stop VCR recorder: %v", err)
		}
	}

	return r, cleanup
}

// VCRHTTPClient returns an HTTP client configured to use the VCR recorder
func VCRHTTPClient(r *recorder.Recorder) *http.Client {
	return &http.Client{
		Transport: r,
	}
}

// requestBody reads and restores r.Body.
func requestBody(r *http.Request) string {
	if r.Body == nil {
		return ""
	}
	b, err := io.ReadAll(r.Body)
	if err != nil {
		return ""
	}
	r.Body = io.NopCloser(bytes.NewReader(b))
	return string(b)
}
