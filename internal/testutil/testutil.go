// Package testutil provides common test utilities and helpers for PromptCanvas tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/BTreeMap/PromptCanvas/internal/artifact"
	"github.com/BTreeMap/PromptCanvas/internal/models"
)

// Source is a scriptable artifact.Source. The zero value succeeds with
// "https://img.test/{id}" URLs.
type Source struct {
	mu       sync.Mutex
	name     string
	url      string
	err      error
	gate     chan struct{}
	started  chan struct{}
	requests []artifact.Request
}

// NewSource creates a Source reporting the given name ("test" when empty).
func NewSource(name string) *Source {
	return &Source{name: name}
}

// Name implements artifact.Source.
func (s *Source) Name() string {
	if s.name == "" {
		return "test"
	}
	return s.name
}

// SetURL makes every generation return url.
func (s *Source) SetURL(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.url = url
}

// SetError makes every generation fail with err; nil restores success.
func (s *Source) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// Block makes generations wait until the returned release function is called.
// The returned channel receives once per generation that reaches the gate.
func (s *Source) Block() (started <-chan struct{}, release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gate = make(chan struct{})
	s.started = make(chan struct{}, 16)
	gate := s.gate
	var once sync.Once
	return s.started, func() { once.Do(func() { close(gate) }) }
}

// Requests returns the requests seen so far.
func (s *Source) Requests() []artifact.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]artifact.Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// Generate implements artifact.Source.
func (s *Source) Generate(ctx context.Context, req artifact.Request) (artifact.Image, error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	gate, started := s.gate, s.started
	s.mu.Unlock()

	if gate != nil {
		started <- struct{}{}
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return artifact.Image{}, s.err
	}
	if s.url != "" {
		return artifact.Image{URL: s.url}, nil
	}
	return artifact.Image{URL: "https://img.test/" + req.ID}, nil
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
// A string body is sent verbatim.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody []byte
	switch b := body.(type) {
	case nil:
	case string:
		reqBody = []byte(b)
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = data
	}
	return httptest.NewRequest(method, url, bytes.NewReader(reqBody))
}

// DecodeAPIResponse decodes the JSON envelope written to rr.
func DecodeAPIResponse(t *testing.T, rr *httptest.ResponseRecorder) models.APIResponse {
	t.Helper()
	var resp models.APIResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode JSON response: %v (body: %s)", err, rr.Body.String())
	}
	return resp
}

// DecodeResult re-marshals resp.Result into out.
func DecodeResult(t *testing.T, resp models.APIResponse, out interface{}) {
	t.Helper()
	data, err := json.Marshal(resp.Result)
	if err != nil {
		t.Fatalf("failed to marshal result: %v", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		t.Fatalf("failed to decode result: %v", err)
	}
}
