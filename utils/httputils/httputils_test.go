// Copyright 2025 The Tarifa Authors
// SPDX-License-Identifier: Apache-2.0

package httputils

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingRoundTripper remembers the last request and answers with a canned response.
type recordingRoundTripper struct {
	lastRequest *http.Request
	body        string
	err         error
}

func (d *recordingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	d.lastRequest = req
	if d.err != nil {
		return nil, d.err
	}

	return &http.Response{
		Status:     "200 OK",
		StatusCode: http.StatusOK,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(d.body)),
		Request:    req,
	}, nil
}

func TestLoggingRoundTripper(t *testing.T) {
	var logBuffer bytes.Buffer

	lt := &LoggingRoundTripper{
		Transport: &recordingRoundTripper{body: `{"base":300}`},
		Writer:    &logBuffer,
		DumpBody:  true,
	}

	req, err := http.NewRequest(http.MethodPost, "http://example.com/route", strings.NewReader(`{"src_lat":51.1}`))
	require.NoError(t, err)

	resp, err := lt.RoundTrip(req)
	require.NoError(t, err)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"base":300}`, string(body), "body must still be readable after the dump")

	logContent := logBuffer.String()
	assert.Contains(t, logContent, "> POST /route")
	assert.Contains(t, logContent, `> {"src_lat":51.1}`)
	assert.Contains(t, logContent, "< RESPONSE: [")
	assert.Contains(t, logContent, `{"base":300}`)
}

func TestLoggingRoundTripperFailure(t *testing.T) {
	var logBuffer bytes.Buffer

	lt := &LoggingRoundTripper{
		Transport: &recordingRoundTripper{err: errors.New("connection refused")},
		Writer:    &logBuffer,
	}

	req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	require.NoError(t, err)

	_, err = lt.RoundTrip(req)
	require.Error(t, err)
	assert.Contains(t, logBuffer.String(), "< FAILED: [")
	assert.Contains(t, logBuffer.String(), "connection refused")
}

func TestLoggingRoundTripperWithoutWriter(t *testing.T) {
	inner := &recordingRoundTripper{}
	lt := &LoggingRoundTripper{Transport: inner}

	req, err := http.NewRequest(http.MethodGet, "http://example.com/", nil)
	require.NoError(t, err)

	_, err = lt.RoundTrip(req)
	require.NoError(t, err)
	assert.Same(t, req, inner.lastRequest)
}

func TestAppendRequestHeadersRoundTripper(t *testing.T) {
	dummy := &recordingRoundTripper{}
	atr := &AppendRequestHeadersRoundTripper{
		Transport: dummy,
		Headers:   map[string]string{"X-Test-Header": "TestValue"},
	}

	req, err := http.NewRequest(http.MethodPost, "http://example.org", nil)
	require.NoError(t, err)

	_, err = atr.RoundTrip(req)
	require.NoError(t, err)

	require.NotNil(t, dummy.lastRequest)
	assert.Equal(t, "TestValue", dummy.lastRequest.Header.Get("X-Test-Header"))
	assert.Empty(t, req.Header.Get("X-Test-Header"), "original request must not be modified")
}

func TestAbbreviate(t *testing.T) {
	lines := make([]string, 300)
	lines[0] = strings.Repeat("x", 600)

	got := abbreviate(lines, '>')
	assert.Len(t, got, 257)
	assert.True(t, strings.HasSuffix(got[0], "…"))
	assert.True(t, strings.HasPrefix(got[0], "> x"))
	assert.Equal(t, "> …", got[256])
}

func TestNewClient(t *testing.T) {
	var gotAgent string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAgent = r.UserAgent()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	var trace bytes.Buffer

	client := NewClient(ClientOptions{
		UserAgent: "tarifa/test",
		Timeout:   5 * time.Second,
		Trace:     &trace,
	})
	assert.Equal(t, 5*time.Second, client.Timeout)

	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "tarifa/test", gotAgent)
	assert.Contains(t, trace.String(), "User-Agent: tarifa/test")
}
