// Copyright 2025 The Tarifa Authors
// SPDX-License-Identifier: Apache-2.0

// Package httputils builds the outbound HTTP client shared by the pricing client
// and the map loader probe.
package httputils

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"strings"
	"time"
)

// ClientOptions configures NewClient.
type ClientOptions struct {
	// UserAgent is sent on every request. Empty keeps Go's default.
	UserAgent string

	// Timeout bounds a whole exchange. Zero means no timeout.
	Timeout time.Duration

	// Trace receives a dump of every exchange when not nil.
	Trace io.Writer

	// TraceBody includes response bodies in the dump.
	TraceBody bool

	// Transport is the innermost round tripper, http.DefaultTransport when nil.
	Transport http.RoundTripper
}

// NewClient returns an http.Client whose transport appends the configured headers
// and, optionally, traces each exchange.
func NewClient(options ClientOptions) *http.Client {
	base := options.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	var rt http.RoundTripper = &LoggingRoundTripper{
		Transport: base,
		Writer:    options.Trace,
		DumpBody:  options.TraceBody,
	}

	if options.UserAgent != "" {
		rt = &AppendRequestHeadersRoundTripper{
			Transport: rt,
			Headers:   map[string]string{"User-Agent": options.UserAgent},
		}
	}

	return &http.Client{
		Timeout:   options.Timeout,
		Transport: rt,
	}
}

// LoggingRoundTripper dumps each request and response to Writer.
// A nil Writer turns it into a pass-through.
type LoggingRoundTripper struct {
	Transport http.RoundTripper
	Writer    io.Writer
	DumpBody  bool
}

// abbreviate prefixes and trims dump lines so a large body does not flood the log.
func abbreviate(lines []string, prefix rune) []string {
	const maxLines, maxChars = 256, 512

	if len(lines) > maxLines {
		lines = append(lines[:maxLines], "…")
	}

	for i, line := range lines {
		line = fmt.Sprintf("%c %s", prefix, line)
		if len(line) > maxChars {
			line = line[:maxChars] + "…"
		}

		lines[i] = line
	}

	return lines
}

func (t *LoggingRoundTripper) write(lines []string) error {
	_, err := fmt.Fprint(t.Writer, strings.Join(append(lines, ""), "\n"))

	return err
}

func (t *LoggingRoundTripper) dumpRequest(req *http.Request) error {
	// request bodies here are small JSON payloads, always worth seeing
	dump, err := httputil.DumpRequestOut(req, true)
	if err != nil {
		return fmt.Errorf("tracing HTTP request: %w", err)
	}

	return t.write(abbreviate(strings.Split(string(dump), "\n"), '>'))
}

func (t *LoggingRoundTripper) dumpResponse(resp *http.Response, duration time.Duration) error {
	dump, err := httputil.DumpResponse(resp, t.DumpBody)
	if err != nil {
		return fmt.Errorf("tracing HTTP response: %w", err)
	}

	lines := append(
		[]string{fmt.Sprintf("RESPONSE: [%v]", duration.Round(time.Millisecond))},
		strings.Split(string(dump), "\n")...,
	)

	return t.write(abbreviate(lines, '<'))
}

// RoundTrip implements the http.RoundTripper interface.
func (t *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.Writer == nil {
		return t.Transport.RoundTrip(req)
	}

	if err := t.dumpRequest(req); err != nil {
		return nil, err
	}

	start := time.Now()

	resp, err := t.Transport.RoundTrip(req)
	if err != nil {
		fmt.Fprintf(t.Writer, "< FAILED: [%v] %v\n", time.Since(start).Round(time.Millisecond), err)

		return nil, err
	}

	if err := t.dumpResponse(resp, time.Since(start)); err != nil {
		resp.Body.Close()

		return nil, err
	}

	return resp, nil
}

// AppendRequestHeadersRoundTripper adds headers to the request.
type AppendRequestHeadersRoundTripper struct {
	Transport http.RoundTripper
	Headers   map[string]string
}

// RoundTrip implements the http.RoundTripper interface.
func (t *AppendRequestHeadersRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrippers must not modify the caller's request
	req = req.Clone(req.Context())
	for k, v := range t.Headers {
		req.Header.Set(k, v)
	}

	return t.Transport.RoundTrip(req)
}
