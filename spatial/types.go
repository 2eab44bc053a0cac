// Copyright 2025 The Tarifa Authors
//
// SPDX-License-Identifier: Apache-2.0
package spatial

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

const earthRadius = 6371e3 // meters

// ErrInvalidCoordinate is returned when a latitude or longitude cannot be used.
var ErrInvalidCoordinate = errors.New("invalid coordinate")

// Point represents a geographical point with latitude and longitude.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// String returns a string representation of the Point.
func (p Point) String() string {
	return fmt.Sprintf("POINT(%f %f)", p.Lng, p.Lat)
}

// CoordinateError tells which field failed to parse and why.
type CoordinateError struct {
	Field string
	Value string
	Err   error
}

func (e *CoordinateError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *CoordinateError) Unwrap() error {
	return ErrInvalidCoordinate
}

// ParseCoordinate turns user supplied latitude and longitude text into a Point.
// Empty text, non numeric text, NaN, infinities and out of range values are rejected.
func ParseCoordinate(lat, lng string) (Point, error) {
	la, err := parseAxis("latitude", lat, 90)
	if err != nil {
		return Point{}, err
	}

	ln, err := parseAxis("longitude", lng, 180)
	if err != nil {
		return Point{}, err
	}

	return Point{Lat: la, Lng: ln}, nil
}

func parseAxis(field, text string, limit float64) (float64, error) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, &CoordinateError{Field: field, Value: text, Err: errors.New("empty")}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &CoordinateError{Field: field, Value: text, Err: errors.New("not a number")}
	}

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &CoordinateError{Field: field, Value: text, Err: errors.New("not a finite number")}
	}

	if v < -limit || v > limit {
		return 0, &CoordinateError{Field: field, Value: text, Err: fmt.Errorf("out of range [-%g, %g]", limit, limit)}
	}

	return v, nil
}

// HaversineDistance calculates the distance between two points on Earth in meters.
func (p *Point) HaversineDistance(other *Point) float64 {
	lat1 := p.Lat * math.Pi / 180
	lat2 := other.Lat * math.Pi / 180
	dLat := (other.Lat - p.Lat) * math.Pi / 180
	dLng := (other.Lng - p.Lng) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}
