// Copyright 2025 The Tarifa Authors
// SPDX-License-Identifier: Apache-2.0

package estimator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/jcodagnone/tarifa/pricing"
)

// ErrSuperseded is returned by Calculate when a later submission replaced it
// before it settled. Its outcome is discarded.
var ErrSuperseded = errors.New("calculation superseded by a newer submission")

// ErrSessionClosed is returned by Calculate after Close.
var ErrSessionClosed = errors.New("session closed")

// Outcome describes a settled pricing request.
type Outcome struct {
	SessionID string
	Fields    Fields
	Request   pricing.Request
	Quote     *pricing.Quote // nil on failure
	Err       error
	At        time.Time
}

// Recorder receives every settled outcome except abandoned requests.
// Implementations must be safe for concurrent use.
type Recorder interface {
	Record(ctx context.Context, outcome Outcome) error
}

// Session is the state of one PriceEstimator page.
type Session struct {
	id       string
	quoter   pricing.Quoter
	recorder Recorder
	now      func() time.Time

	mu         sync.Mutex
	fields     Fields
	state      State
	generation uint64
	cancel     context.CancelFunc
	lastSeen   time.Time
	closed     bool

	inflight sync.WaitGroup
}

// NewSession creates a session in the Form state. recorder may be nil.
func NewSession(id string, quoter pricing.Quoter, recorder Recorder) *Session {
	return &Session{
		id:       id,
		quoter:   quoter,
		recorder: recorder,
		now:      time.Now,
		state:    Form{},
		lastSeen: time.Now(),
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// SetFields replaces the four coordinate fields. No validation happens here.
func (s *Session) SetFields(fields Fields) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fields = fields
	s.touch()
}

// SetField updates one coordinate field by its form name.
func (s *Session) SetField(name, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()

	return s.fields.set(name, value)
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// View returns a rendering snapshot.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()

	return newView(s.state, s.fields)
}

// Next leaves the Result state and returns to the Form, keeping the fields.
// It reports whether a transition happened.
func (s *Session) Next() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.touch()

	if _, ok := s.state.(Result); !ok {
		return false
	}

	s.state = Form{}

	return true
}

// Calculate validates the fields, issues one pricing request and waits for it to
// settle. On return the session is never Loading unless a newer submission took
// over, in which case ErrSuperseded is returned.
//
// Invalid fields leave the session Failed and no request is sent. Any pricing
// failure leaves it Failed with pricing.FailureMessage; the detail is returned.
// A closed session returns ErrSessionClosed without changing state.
func (s *Session) Calculate(ctx context.Context) error {
	run, err := s.begin(ctx, false)
	if err != nil {
		return err
	}

	return run()
}

// Start is the asynchronous form of Calculate. The session is Loading (or Failed
// on invalid input) when Start returns; the returned channel is closed once the
// request settles.
func (s *Session) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})

	run, err := s.begin(ctx, true)
	if err != nil {
		close(done)

		return done
	}

	go func() {
		defer s.inflight.Done()
		defer close(done)

		_ = run()
	}()

	return done
}

// Close abandons the in-flight request, if any, and refuses new ones. The session
// settles as Failed.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	if s.cancel != nil {
		s.cancel()
	}
}

// Wait blocks until every request started with Start has settled.
func (s *Session) Wait() {
	s.inflight.Wait()
}

// begin moves the session to Loading and returns the function performing the
// request. A previous in-flight request is canceled and its result discarded.
// Tracked requests are joined by Wait.
func (s *Session) begin(ctx context.Context, tracked bool) (func() error, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSessionClosed
	}

	s.touch()

	req, err := s.fields.Parse()
	if err != nil {
		s.supersede()
		s.state = Failed{Message: fmt.Sprintf("Invalid coordinates: %v.", err)}

		return nil, err
	}

	gen := s.supersede()
	callCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = Loading{}
	fields := s.fields

	if tracked {
		s.inflight.Add(1)
	}

	return func() error {
		defer cancel()

		resp, err := s.quoter.Quote(callCtx, req)
		if err == nil && resp == nil {
			err = &pricing.Error{Type: pricing.ErrorTypeDecode, Message: "empty pricing response"}
		}

		return s.settle(ctx, gen, fields, req, resp, err)
	}, nil
}

// supersede cancels the in-flight request and starts a new generation.
// Callers hold s.mu.
func (s *Session) supersede() uint64 {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}

	s.generation++

	return s.generation
}

func (s *Session) settle(
	ctx context.Context,
	gen uint64,
	fields Fields,
	req pricing.Request,
	resp *pricing.Response,
	err error,
) error {
	outcome := Outcome{
		SessionID: s.id,
		Fields:    fields,
		Request:   req,
		Err:       err,
		At:        s.now(),
	}

	s.mu.Lock()

	if gen != s.generation {
		s.mu.Unlock()

		return ErrSuperseded
	}

	s.cancel = nil

	if err != nil {
		log.Printf("⚠️  Pricing request failed (session %s): %v", s.id, err)
		s.state = Failed{Message: pricing.FailureMessage}
	} else {
		quote := pricing.NewQuote(req, *resp)
		outcome.Quote = &quote
		s.state = Result{Quote: quote}
	}

	s.mu.Unlock()

	// abandoned requests say nothing about the pricing service
	if s.recorder != nil && !pricing.IsCanceled(err) {
		if rerr := s.recorder.Record(context.WithoutCancel(ctx), outcome); rerr != nil {
			log.Printf("⚠️  Recording outcome (session %s): %v", s.id, rerr)
		}
	}

	return err
}

func (s *Session) touch() {
	s.lastSeen = s.now()
}

// idleSince reports when the session was last used and whether it is Loading.
func (s *Session) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, loading := s.state.(Loading)

	return s.lastSeen, loading
}
