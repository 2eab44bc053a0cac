// Copyright 2025 The Tarifa Authors
// SPDX-License-Identifier: Apache-2.0

// Package web serves the PriceEstimator page and its JSON API.
package web

import (
	"context"
	"embed"
	"errors"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jcodagnone/tarifa/estimator"
	"github.com/jcodagnone/tarifa/mapview"
	"github.com/jcodagnone/tarifa/pricing"
)

//go:embed templates/*.html
var templates embed.FS

// SessionCookie carries the estimator session id.
const SessionCookie = "tarifa_session"

// Options configures a Server. Zero values fall back to the defaults below.
type Options struct {
	Listen string
	// Refresh is how often a Loading page reloads itself.
	Refresh time.Duration
	// SessionTTL drops sessions idle for longer.
	SessionTTL time.Duration
	// ShutdownTimeout bounds the graceful shutdown.
	ShutdownTimeout time.Duration
	// ContainerID is the id of the map mount element.
	ContainerID string
}

const (
	DefaultListen          = "localhost:8080"
	defaultRefresh         = time.Second
	defaultSessionTTL      = 30 * time.Minute
	defaultShutdownTimeout = 5 * time.Second
)

type Server struct {
	store  *estimator.Store
	quoter pricing.Quoter
	maps   *mapview.Handle
	opts   Options
}

// NewServer wires the page to store. quoter backs the synchronous JSON API and maps
// may be nil when no background map is wanted.
func NewServer(store *estimator.Store, quoter pricing.Quoter, maps *mapview.Handle, opts Options) *Server {
	if opts.Listen == "" {
		opts.Listen = DefaultListen
	}

	if opts.Refresh <= 0 {
		opts.Refresh = defaultRefresh
	}

	if opts.SessionTTL <= 0 {
		opts.SessionTTL = defaultSessionTTL
	}

	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = defaultShutdownTimeout
	}

	if opts.ContainerID == "" {
		opts.ContainerID = mapview.DefaultContainerID
	}

	return &Server{store: store, quoter: quoter, maps: maps, opts: opts}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.Default()
	r.SetHTMLTemplate(template.Must(template.New("").ParseFS(templates, "templates/*.html")))

	r.GET("/", s.index)
	r.POST("/calculate", s.calculate)
	r.POST("/next", s.next)
	r.GET("/api/state", s.state)
	r.POST("/api/quote", s.quote)
	r.GET("/health", s.health)

	return r
}

// Run serves until ctx is done, then shuts the server down and releases the
// session store and the map.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opts.Listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if s.maps != nil {
		s.maps.Start(ctx)
	}

	go s.sweep(ctx)

	errCh := make(chan error, 1)

	go func() {
		log.Printf("🚀 Listening on http://%s", s.opts.Listen)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}

		close(errCh)
	}()

	var serveErr error

	select {
	case serveErr = <-errCh:
	case <-ctx.Done():
		log.Println("🛑 Shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.opts.ShutdownTimeout)
	defer cancel()

	s.store.Close()

	errs := []error{serveErr}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}

	if s.maps != nil {
		errs = append(errs, s.maps.Close())
	}

	return errors.Join(errs...)
}

func (s *Server) sweep(ctx context.Context) {
	ticker := time.NewTicker(s.opts.SessionTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.store.Sweep(s.opts.SessionTTL); n > 0 {
				log.Printf("🧹 Dropped %d idle sessions", n)
			}
		}
	}
}

type pageData struct {
	View        estimator.View
	Map         *mapview.Map
	Formula     string
	Refresh     int
	ContainerID string
}

func (s *Server) index(ctx *gin.Context) {
	session, ok := s.session(ctx)
	if !ok {
		return
	}

	data := pageData{
		View:        session.View(),
		Formula:     pricing.Formula,
		Refresh:     max(1, int(s.opts.Refresh/time.Second)),
		ContainerID: s.opts.ContainerID,
	}

	if s.maps != nil {
		data.Map = s.maps.Map()
	}

	ctx.Header("Cache-Control", "no-store")
	ctx.HTML(http.StatusOK, "index.html", data)
}

func (s *Server) calculate(ctx *gin.Context) {
	session, ok := s.session(ctx)
	if !ok {
		return
	}

	var fields estimator.Fields
	if err := ctx.ShouldBind(&fields); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	session.SetFields(fields)
	session.Start(context.WithoutCancel(ctx.Request.Context()))

	ctx.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) next(ctx *gin.Context) {
	session, ok := s.session(ctx)
	if !ok {
		return
	}

	session.Next()

	ctx.Redirect(http.StatusSeeOther, "/")
}

func (s *Server) state(ctx *gin.Context) {
	session, ok := s.session(ctx)
	if !ok {
		return
	}

	ctx.JSON(http.StatusOK, session.View())
}

func (s *Server) quote(ctx *gin.Context) {
	var fields estimator.Fields
	if err := ctx.ShouldBindJSON(&fields); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})

		return
	}

	req, err := fields.Parse()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})

		return
	}

	resp, err := s.quoter.Quote(ctx.Request.Context(), req)
	if err == nil && resp == nil {
		err = &pricing.Error{Type: pricing.ErrorTypeDecode, Message: "empty pricing response"}
	}

	if err != nil {
		log.Printf("⚠️  Pricing request failed: %v", err)
		ctx.JSON(http.StatusBadGateway, gin.H{"error": pricing.FailureMessage})

		return
	}

	ctx.JSON(http.StatusOK, pricing.NewQuote(req, *resp))
}

func (s *Server) health(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// session resolves the caller's session, issuing a cookie for new ones. It writes
// the error response itself and reports false when there is no session.
func (s *Server) session(ctx *gin.Context) (*estimator.Session, bool) {
	id, _ := ctx.Cookie(SessionCookie)

	session, created, err := s.store.GetOrCreate(id)
	if err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})

		return nil, false
	}

	if created {
		http.SetCookie(ctx.Writer, &http.Cookie{
			Name:     SessionCookie,
			Value:    session.ID(),
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}

	return session, true
}
