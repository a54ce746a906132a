// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockTransport returns canned responses keyed by request path.
type mockTransport struct {
	responses map[string]*http.Response
	err       error
	requests  []string
}

func (m *mockTransport) Do(req *http.Request) (*http.Response, error) {
	m.requests = append(m.requests, req.URL.EscapedPath())
	if m.err != nil {
		return nil, m.err
	}
	if resp, ok := m.responses[req.URL.Path]; ok {
		return resp, nil
	}
	return jsonResponse(http.StatusNotFound, `{"message": "Not Found"}`), nil
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     http.Header{"Content-Type": []string{"application/json"}},
	}
}

func pypiBody(name, version string, releases ...string) string {
	rel := make([]string, 0, len(releases))
	for _, r := range releases {
		rel = append(rel, fmt.Sprintf("%q: []", r))
	}
	return fmt.Sprintf(`{
		"info": {"name": %q, "version": %q, "author": "someone", "license": "MIT"},
		"releases": {%s}
	}`, name, version, strings.Join(rel, ","))
}

func TestClient_Lookup_Success(t *testing.T) {
	mock := &mockTransport{responses: map[string]*http.Response{
		"/pypi/numpy/json": jsonResponse(http.StatusOK, pypiBody("numpy", "1.24.3", "1.24.3", "1.24.2", "1.23.0")),
	}}
	client := NewClient("https://registry.test", WithHTTPClient(mock))

	info, err := client.Lookup(context.Background(), "numpy")
	require.NoError(t, err)
	assert.Equal(t, "numpy", info.Name)
	assert.Equal(t, "1.24.3", info.LatestVersion)
	assert.Len(t, info.Versions, 3)
	assert.Equal(t, "MIT", info.License)
}

func TestClient_Lookup_NotFound(t *testing.T) {
	mock := &mockTransport{responses: map[string]*http.Response{}}
	client := NewClient("https://registry.test", WithHTTPClient(mock))

	_, err := client.Lookup(context.Background(), "nonexistent-package-xyz")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestClient_Lookup_ServerError(t *testing.T) {
	mock := &mockTransport{responses: map[string]*http.Response{
		"/pypi/flaky/json": jsonResponse(http.StatusBadGateway, `upstream unavailable`),
	}}
	client := NewClient("https://registry.test", WithHTTPClient(mock))

	_, err := client.Lookup(context.Background(), "flaky")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound), "server errors must be distinct from not-found")
}

func TestClient_Lookup_TransportError(t *testing.T) {
	mock := &mockTransport{err: errors.New("connection refused")}
	client := NewClient("https://registry.test", WithHTTPClient(mock))

	_, err := client.Lookup(context.Background(), "numpy")
	require.Error(t, err)
}

func TestClient_Lookup_MissingVersion(t *testing.T) {
	mock := &mockTransport{responses: map[string]*http.Response{
		"/pypi/broken/json": jsonResponse(http.StatusOK, `{"info": {"name": "broken"}, "releases": {}}`),
	}}
	client := NewClient("https://registry.test", WithHTTPClient(mock))

	_, err := client.Lookup(context.Background(), "broken")
	require.Error(t, err)
}

func TestClient_Lookup_EscapesName(t *testing.T) {
	mock := &mockTransport{responses: map[string]*http.Response{}}
	client := NewClient("https://registry.test", WithHTTPClient(mock))

	_, _ = client.Lookup(context.Background(), "weird name")
	require.Len(t, mock.requests, 1)
	assert.NotContains(t, mock.requests[0], " ")
}

func TestNewClient_Defaults(t *testing.T) {
	client := NewClient("")
	assert.Equal(t, DefaultBaseURL, client.baseURL)
	assert.NotNil(t, client.http)
	assert.NotNil(t, client.limiter)
}
