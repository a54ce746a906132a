// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package registry implements a read-only client for the PyPI JSON
// metadata API.
//
// Absence of a package on the registry is an expected outcome, not an
// exceptional one; it is reported as ErrNotFound so callers can treat
// it as a terminal per-package condition without retrying.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"golang.org/x/time/rate"

	"github.com/AleutianAI/depscout/services/resolver/datatypes"
)

// DefaultBaseURL is the public PyPI instance.
const DefaultBaseURL = "https://pypi.org"

// ErrNotFound is returned when the registry has no package by the
// requested name. Not retried.
var ErrNotFound = errors.New("package not found on registry")

// HTTPClient allows injecting mock HTTP clients for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// pypiResponse mirrors the subset of the PyPI JSON API we consume.
type pypiResponse struct {
	Info struct {
		Name    string `json:"name"`
		Version string `json:"version"`
		Author  string `json:"author"`
		License string `json:"license"`
	} `json:"info"`
	Releases map[string][]json.RawMessage `json:"releases"`
}

// Client queries a PyPI-compatible registry for package metadata.
//
// Outbound calls go through a token-bucket rate limiter so a large
// requirement set cannot hammer the upstream registry. The client is
// safe for concurrent use.
type Client struct {
	baseURL string
	http    HTTPClient
	limiter *rate.Limiter
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Used by tests
// to inject a mock transport.
func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) { c.http = hc }
}

// WithRateLimit overrides the default outbound rate limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), burst) }
}

// NewClient creates a registry client for the given base URL.
// An empty baseURL selects the public PyPI instance.
func NewClient(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(10), 5),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup fetches registry metadata for one package name.
//
// Returns ErrNotFound when the registry answers 404. Any other
// non-200 status or transport failure is a lookup error the caller
// may surface as a warning.
func (c *Client) Lookup(ctx context.Context, name string) (*datatypes.PackageInfo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter wait: %w", err)
	}

	endpoint := fmt.Sprintf("%s/pypi/%s/json", c.baseURL, url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build registry request for %q: %w", name, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry request for %q: %w", name, err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			slog.Warn("Failed to close registry response body", "package", name, "error", cerr)
		}
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("registry returned status %d for %q", resp.StatusCode, name)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, fmt.Errorf("read registry response for %q: %w", name, err)
	}

	var parsed pypiResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode registry response for %q: %w", name, err)
	}
	if parsed.Info.Version == "" {
		return nil, fmt.Errorf("registry response for %q has no version", name)
	}

	versions := make([]string, 0, len(parsed.Releases))
	for v := range parsed.Releases {
		versions = append(versions, v)
	}
	sort.Strings(versions)

	return &datatypes.PackageInfo{
		Name:          parsed.Info.Name,
		LatestVersion: parsed.Info.Version,
		Versions:      versions,
		Author:        parsed.Info.Author,
		License:       parsed.Info.License,
	}, nil
}
