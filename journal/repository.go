// Copyright 2025 The Tarifa Authors
// SPDX-License-Identifier: Apache-2.0

// Package journal keeps a duckdb record of every settled price calculation.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jcodagnone/tarifa/spatial"
	"github.com/uber/h3-go/v4"
)

// CellResolution is the H3 resolution used to bucket trip origins.
const CellResolution = 8

// Outcomes stored in the journal.
const (
	OutcomeOK     = "ok"
	OutcomeFailed = "failed"
)

// Entry is one journal row.
type Entry struct {
	ID          int64
	SessionID   string
	CreatedAt   time.Time
	Source      spatial.Point
	Destination spatial.Point
	Outcome     string
	Error       string
	Base        float64
	Rate        float64
	Demand      float64
	Distance    float64
	Congestion  float64
	Price       int64
	// StraightLine is the haversine distance between the two points, in meters.
	StraightLine float64
	OriginCell   int64
}

// CellStat aggregates successful quotes whose origin falls in one H3 cell.
type CellStat struct {
	Cell     string
	Center   spatial.Point
	Quotes   int
	AvgPrice float64
	MinPrice int64
	MaxPrice int64
}

// Repository defines the journal database operations.
type Repository interface {
	// CreateSchema creates the quotes table.
	CreateSchema() error
	// Save stores entry and sets its ID.
	Save(ctx context.Context, entry *Entry) error
	// Recent returns the latest entries, newest first.
	Recent(limit int) ([]*Entry, error)
	// CellSummary returns the busiest origin cells.
	CellSummary(limit int) ([]*CellStat, error)
}

type sqlRepository struct {
	db *sql.DB
}

func NewSQLRepository(db *sql.DB) Repository {
	return &sqlRepository{db: db}
}

func (r *sqlRepository) CreateSchema() error {
	_, err := r.db.Exec(`
		CREATE SEQUENCE IF NOT EXISTS quotes_seq START 1;

		CREATE TABLE IF NOT EXISTS quotes (
			id BIGINT PRIMARY KEY DEFAULT nextval('quotes_seq'),
			session_id VARCHAR NOT NULL,
			created_at TIMESTAMP NOT NULL,
			src_lat DOUBLE NOT NULL,
			src_lng DOUBLE NOT NULL,
			dst_lat DOUBLE NOT NULL,
			dst_lng DOUBLE NOT NULL,
			outcome VARCHAR NOT NULL,
			error VARCHAR NOT NULL DEFAULT '',
			base DOUBLE,
			rate DOUBLE,
			demand DOUBLE,
			distance DOUBLE,
			congestion DOUBLE,
			price BIGINT,
			straight_line DOUBLE NOT NULL,
			origin_cell BIGINT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_quotes_origin_cell ON quotes(origin_cell);
	`)
	if err != nil {
		return fmt.Errorf("creating quotes table: %w", err)
	}

	return nil
}

func (r *sqlRepository) Save(ctx context.Context, entry *Entry) error {
	if entry.OriginCell == 0 {
		if err := entry.computeCell(); err != nil {
			return err
		}
	}

	if entry.StraightLine == 0 {
		entry.StraightLine = entry.Source.HaversineDistance(&entry.Destination)
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	err := r.db.QueryRowContext(ctx, `
		INSERT INTO quotes (
			session_id, created_at,
			src_lat, src_lng, dst_lat, dst_lng,
			outcome, error,
			base, rate, demand, distance, congestion, price,
			straight_line, origin_cell
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`,
		entry.SessionID, entry.CreatedAt,
		entry.Source.Lat, entry.Source.Lng, entry.Destination.Lat, entry.Destination.Lng,
		entry.Outcome, entry.Error,
		entry.Base, entry.Rate, entry.Demand, entry.Distance, entry.Congestion, entry.Price,
		entry.StraightLine, entry.OriginCell,
	).Scan(&entry.ID)
	if err != nil {
		return fmt.Errorf("saving quote: %w", err)
	}

	return nil
}

func (r *sqlRepository) Recent(limit int) ([]*Entry, error) {
	rows, err := r.db.Query(`
		SELECT
			id, session_id, created_at,
			src_lat, src_lng, dst_lat, dst_lng,
			outcome, error,
			base, rate, demand, distance, congestion, price,
			straight_line, origin_cell
		FROM quotes
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying quotes: %w", err)
	}
	defer rows.Close()

	var entries []*Entry

	for rows.Next() {
		var e Entry

		if err := rows.Scan(
			&e.ID, &e.SessionID, &e.CreatedAt,
			&e.Source.Lat, &e.Source.Lng, &e.Destination.Lat, &e.Destination.Lng,
			&e.Outcome, &e.Error,
			&e.Base, &e.Rate, &e.Demand, &e.Distance, &e.Congestion, &e.Price,
			&e.StraightLine, &e.OriginCell,
		); err != nil {
			return nil, fmt.Errorf("scanning quote: %w", err)
		}

		entries = append(entries, &e)
	}

	return entries, rows.Err()
}

func (r *sqlRepository) CellSummary(limit int) ([]*CellStat, error) {
	rows, err := r.db.Query(`
		SELECT origin_cell, COUNT(*), AVG(price), MIN(price), MAX(price)
		FROM quotes
		WHERE outcome = ?
		GROUP BY origin_cell
		ORDER BY COUNT(*) DESC, origin_cell
		LIMIT ?
	`, OutcomeOK, limit)
	if err != nil {
		return nil, fmt.Errorf("querying cell summary: %w", err)
	}
	defer rows.Close()

	var stats []*CellStat

	for rows.Next() {
		var (
			cell int64
			s    CellStat
		)

		if err := rows.Scan(&cell, &s.Quotes, &s.AvgPrice, &s.MinPrice, &s.MaxPrice); err != nil {
			return nil, fmt.Errorf("scanning cell summary: %w", err)
		}

		c := h3.Cell(cell)
		s.Cell = c.String()

		center, err := h3.CellToLatLng(c)
		if err != nil {
			return nil, fmt.Errorf("locating cell %s: %w", s.Cell, err)
		}

		s.Center = spatial.Point{Lat: center.Lat, Lng: center.Lng}
		stats = append(stats, &s)
	}

	return stats, rows.Err()
}

func (e *Entry) computeCell() error {
	cell, err := h3.LatLngToCell(h3.NewLatLng(e.Source.Lat, e.Source.Lng), CellResolution)
	if err != nil {
		return fmt.Errorf("error converting to h3 cell at res %d: %w", CellResolution, err)
	}

	e.OriginCell = int64(cell)

	return nil
}
