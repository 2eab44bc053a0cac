// Copyright 2025 The Tarifa Authors
// SPDX-License-Identifier: Apache-2.0

package journal

import (
	"context"

	"github.com/jcodagnone/tarifa/estimator"
)

// Recorder stores estimator outcomes in a Repository.
type Recorder struct {
	repo Repository
}

func NewRecorder(repo Repository) *Recorder {
	return &Recorder{repo: repo}
}

// Record implements estimator.Recorder.
func (r *Recorder) Record(ctx context.Context, outcome estimator.Outcome) error {
	return r.repo.Save(ctx, NewEntry(outcome))
}

// NewEntry converts a settled outcome into a journal entry.
func NewEntry(outcome estimator.Outcome) *Entry {
	e := &Entry{
		SessionID:   outcome.SessionID,
		CreatedAt:   outcome.At.UTC(),
		Source:      outcome.Request.Source(),
		Destination: outcome.Request.Destination(),
		Outcome:     OutcomeFailed,
	}

	if outcome.Err != nil {
		e.Error = outcome.Err.Error()
	}

	if q := outcome.Quote; q != nil {
		e.Outcome = OutcomeOK
		e.Base = q.Response.Base
		e.Rate = q.Response.Rate
		e.Demand = q.Response.Demand
		e.Distance = q.Response.Distance
		e.Congestion = q.Response.Congestion
		e.Price = q.Price
	}

	return e
}
