// Copyright 2025 The Tarifa Authors
// SPDX-License-Identifier: Apache-2.0

package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const referenceBody = `{"base":300.0,"rate":150.0,"demand":0.8,"distance":1200.5,"congestion":0.6}`

var referenceRequest = Request{SrcLng: 71.4, SrcLat: 51.1, DstLng: 71.5, DstLat: 51.2}

func TestClientQuote(t *testing.T) {
	var (
		gotMethod      string
		gotContentType string
		gotBody        map[string]float64
	)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")

		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, referenceBody)
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/route", srv.Client())
	assert.Equal(t, srv.URL+"/route", client.Endpoint())

	resp, err := client.Quote(context.Background(), referenceRequest)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotContentType)

	wantBody := map[string]float64{"src_lng": 71.4, "src_lat": 51.1, "dst_lng": 71.5, "dst_lat": 51.2}
	if diff := cmp.Diff(wantBody, gotBody); diff != "" {
		t.Errorf("request body mismatch (-want +got):\n%s", diff)
	}

	want := &Response{Base: 300.0, Rate: 150.0, Demand: 0.8, Distance: 1200.5, Congestion: 0.6}
	if diff := cmp.Diff(want, resp); diff != "" {
		t.Errorf("response mismatch (-want +got):\n%s", diff)
	}

	assert.Equal(t, int64(589), resp.Price())
}

func TestClientQuoteDecodesPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"base":1,"rate":2,"demand":3,"distance":4,"congestion":0,
			"path":[{"lat":51.1,"lng":71.4,"type":"start"},{"lat":51.2,"lng":71.5,"type":"end"}]}`)
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL, srv.Client()).Quote(context.Background(), referenceRequest)
	require.NoError(t, err)

	want := []PathPoint{
		{Lat: 51.1, Lng: 71.4, Type: "start"},
		{Lat: 51.2, Lng: 71.5, Type: "end"},
	}
	if diff := cmp.Diff(want, resp.Path); diff != "" {
		t.Errorf("path mismatch (-want +got):\n%s", diff)
	}
}

func TestClientQuoteFailures(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		body       string
		wantType   ErrorType
		wantStatus int
	}{
		{"server error", http.StatusInternalServerError, `{"error":"boom"}`, ErrorTypeStatus, 500},
		{"not found", http.StatusNotFound, `{"error":"No path found between the given points"}`, ErrorTypeStatus, 404},
		{"bad request", http.StatusBadRequest, ``, ErrorTypeStatus, 400},
		{"html body", http.StatusOK, `<html>ngrok</html>`, ErrorTypeDecode, 200},
		{"empty body", http.StatusOK, ``, ErrorTypeDecode, 200},
		{"missing fields", http.StatusOK, `{"base":300,"rate":150}`, ErrorTypeDecode, 200},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			resp, err := NewClient(srv.URL, srv.Client()).Quote(context.Background(), referenceRequest)
			require.Error(t, err)
			assert.Nil(t, resp)

			var pErr *Error
			require.ErrorAs(t, err, &pErr)
			assert.Equal(t, tc.wantType, pErr.Type)
			assert.Equal(t, tc.wantStatus, pErr.StatusCode)
		})
	}
}

func TestClientQuoteMissingFieldsNamed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"base":300,"rate":150,"demand":1}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, srv.Client()).Quote(context.Background(), referenceRequest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "distance, congestion")
}

func TestClientQuoteConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, nil).Quote(context.Background(), referenceRequest)
	require.Error(t, err)

	var pErr *Error
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, ErrorTypeTransport, pErr.Type)
	assert.Zero(t, pErr.StatusCode)
}

func TestClientQuoteCanceled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	_, err := NewClient(srv.URL, srv.Client()).Quote(ctx, referenceRequest)
	require.Error(t, err)
	assert.True(t, IsCanceled(err))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestClientQuoteTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	httpClient := srv.Client()
	httpClient.Timeout = 50 * time.Millisecond

	_, err := NewClient(srv.URL, httpClient).Quote(context.Background(), referenceRequest)
	require.Error(t, err)

	var pErr *Error
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, ErrorTypeTransport, pErr.Type)
	assert.False(t, IsCanceled(err))
}
