// Copyright 2025 The Tarifa Authors
// SPDX-License-Identifier: Apache-2.0

// Package mapview owns the decorative map that sits behind the estimator page.
// The map is bootstrapped once per server and carries no data to pricing.
package mapview

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"log"
	"net/http"
	"sync"

	"github.com/jcodagnone/tarifa/spatial"
)

const (
	// DefaultLoaderURL is the 2GIS loader that defines the DG global.
	DefaultLoaderURL = "https://maps.api.2gis.ru/2.0/loader.js?pkg=full"
	// DefaultContainerID is the id of the element the map mounts on.
	DefaultContainerID = "map"
	// DefaultZoom is the initial zoom level.
	DefaultZoom = 12
)

// DefaultCenter is Astana.
var DefaultCenter = spatial.Point{Lat: 51.095, Lng: 71.4}

var (
	ErrNoLoader    = errors.New("map loader URL not configured")
	ErrNoContainer = errors.New("map container not configured")
	ErrClosed      = errors.New("map handle closed")
)

// Options configures a Handle. Zero Center and Zoom fall back to the defaults.
type Options struct {
	LoaderURL   string
	ContainerID string
	Center      spatial.Point
	Zoom        int
	// Probe fetches LoaderURL once during Init and fails when it is unreachable.
	Probe  bool
	Client *http.Client
}

// Map is an initialized map ready to be rendered.
type Map struct {
	LoaderURL   string
	ContainerID string
	Center      spatial.Point
	Zoom        int
}

// Script returns the inline script that mounts the map once DG is ready.
func (m *Map) Script() template.JS {
	container, _ := json.Marshal(m.ContainerID)

	return template.JS(fmt.Sprintf(
		`window.DG && DG.then(function () { DG.map(%s, {center: [%g, %g], zoom: %d}); });`,
		container, m.Center.Lat, m.Center.Lng, m.Zoom,
	))
}

// Handle is the owned map resource. Init runs at most once and Close is final.
type Handle struct {
	opts Options

	once sync.Once
	done chan struct{}

	mu     sync.Mutex
	m      *Map
	err    error
	closed bool
}

// New creates a handle. Nothing is loaded until Init.
func New(opts Options) *Handle {
	if opts.Center == (spatial.Point{}) {
		opts.Center = DefaultCenter
	}

	if opts.Zoom == 0 {
		opts.Zoom = DefaultZoom
	}

	if opts.Client == nil {
		opts.Client = http.DefaultClient
	}

	return &Handle{opts: opts, done: make(chan struct{})}
}

// Init bootstraps the map. Only the first call does any work; later calls wait
// for it and return the same result.
func (h *Handle) Init(ctx context.Context) (*Map, error) {
	h.once.Do(func() {
		defer close(h.done)

		m, err := h.bootstrap(ctx)

		h.mu.Lock()
		defer h.mu.Unlock()

		if h.closed {
			h.err = ErrClosed

			return
		}

		h.m, h.err = m, err
	})

	<-h.done

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil, ErrClosed
	}

	return h.m, h.err
}

// Start runs Init in the background. Failures are logged and leave the page
// without a map.
func (h *Handle) Start(ctx context.Context) {
	go func() {
		m, err := h.Init(ctx)
		if err != nil {
			log.Printf("⚠️  Map unavailable, background left blank: %v", err)

			return
		}

		log.Printf("🗺️  Map ready at %s zoom %d", m.Center, m.Zoom)
	}()
}

// Map returns the initialized map, or nil when it is not ready, failed or closed.
func (h *Handle) Map() *Map {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return nil
	}

	return h.m
}

// Close releases the map. A closed handle never initializes again.
func (h *Handle) Close() error {
	h.mu.Lock()
	h.closed = true
	h.m = nil
	h.mu.Unlock()

	// an Init that never ran must not run later
	h.once.Do(func() { close(h.done) })

	return nil
}

func (h *Handle) bootstrap(ctx context.Context) (*Map, error) {
	if h.opts.LoaderURL == "" {
		return nil, ErrNoLoader
	}

	if h.opts.ContainerID == "" {
		return nil, ErrNoContainer
	}

	if h.opts.Probe {
		if err := h.probe(ctx); err != nil {
			return nil, err
		}
	}

	return &Map{
		LoaderURL:   h.opts.LoaderURL,
		ContainerID: h.opts.ContainerID,
		Center:      h.opts.Center,
		Zoom:        h.opts.Zoom,
	}, nil
}

func (h *Handle) probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.opts.LoaderURL, nil)
	if err != nil {
		return fmt.Errorf("creating loader request: %w", err)
	}

	resp, err := h.opts.Client.Do(req)
	if err != nil {
		return fmt.Errorf("fetching map loader: %w", err)
	}
	defer resp.Body.Close()

	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("fetching map loader: unexpected status %d", resp.StatusCode)
	}

	return nil
}
