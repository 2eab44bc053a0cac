// Copyright 2025 The Tarifa Authors
// SPDX-License-Identifier: Apache-2.0

package mapview

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jcodagnone/tarifa/spatial"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitDefaults(t *testing.T) {
	h := New(Options{LoaderURL: DefaultLoaderURL, ContainerID: DefaultContainerID})
	defer h.Close()

	assert.Nil(t, h.Map(), "nothing is loaded before Init")

	m, err := h.Init(context.Background())
	require.NoError(t, err)

	assert.Equal(t, spatial.Point{Lat: 51.095, Lng: 71.4}, m.Center)
	assert.Equal(t, 12, m.Zoom)
	assert.Same(t, m, h.Map())
	assert.Equal(t,
		`window.DG && DG.then(function () { DG.map("map", {center: [51.095, 71.4], zoom: 12}); });`,
		string(m.Script()))
}

func TestInitMissingPrerequisites(t *testing.T) {
	tests := []struct {
		name string
		opts Options
		want error
	}{
		{"no loader", Options{ContainerID: "map"}, ErrNoLoader},
		{"no container", Options{LoaderURL: DefaultLoaderURL}, ErrNoContainer},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := New(tc.opts)

			m, err := h.Init(context.Background())
			assert.ErrorIs(t, err, tc.want)
			assert.Nil(t, m)
			assert.Nil(t, h.Map())
		})
	}
}

func TestInitRunsOnce(t *testing.T) {
	var hits atomic.Int32

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("var DG = {};"))
	}))
	defer srv.Close()

	h := New(Options{LoaderURL: srv.URL, ContainerID: "map", Probe: true, Client: srv.Client()})

	var wg sync.WaitGroup

	maps := make([]*Map, 8)

	for i := range maps {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			m, err := h.Init(context.Background())
			assert.NoError(t, err)

			maps[i] = m
		}(i)
	}

	wg.Wait()

	assert.Equal(t, int32(1), hits.Load())

	for _, m := range maps {
		assert.Same(t, maps[0], m)
	}
}

func TestProbeFailureLeavesMapBlank(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	h := New(Options{LoaderURL: srv.URL, ContainerID: "map", Probe: true, Client: srv.Client()})

	_, err := h.Init(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Nil(t, h.Map())
}

func TestCloseIsFinal(t *testing.T) {
	h := New(Options{LoaderURL: DefaultLoaderURL, ContainerID: "map"})

	_, err := h.Init(context.Background())
	require.NoError(t, err)

	require.NoError(t, h.Close())
	assert.Nil(t, h.Map())

	_, err = h.Init(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestCloseBeforeInit(t *testing.T) {
	h := New(Options{LoaderURL: DefaultLoaderURL, ContainerID: "map"})
	require.NoError(t, h.Close())

	_, err := h.Init(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
	assert.Nil(t, h.Map())
}
