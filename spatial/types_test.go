// Copyright 2025 The Tarifa Authors
// SPDX-License-Identifier: Apache-2.0

package spatial

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCoordinate(t *testing.T) {
	tests := []struct {
		name    string
		lat     string
		lng     string
		want    Point
		wantErr string
	}{
		{"plain", "51.1", "71.4", Point{Lat: 51.1, Lng: 71.4}, ""},
		{"spaces", " 51.2 ", "\t71.5", Point{Lat: 51.2, Lng: 71.5}, ""},
		{"negative", "-34.88", "-56.15", Point{Lat: -34.88, Lng: -56.15}, ""},
		{"bounds", "90", "-180", Point{Lat: 90, Lng: -180}, ""},
		{"empty latitude", "", "71.4", Point{}, "latitude"},
		{"text longitude", "51.1", "abc", Point{}, "longitude"},
		{"nan", "NaN", "71.4", Point{}, "latitude"},
		{"infinity", "51.1", "Inf", Point{}, "longitude"},
		{"latitude out of range", "91", "71.4", Point{}, "latitude"},
		{"longitude out of range", "51.1", "180.5", Point{}, "longitude"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseCoordinate(tc.lat, tc.lng)
			if tc.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, tc.want, got)

				return
			}

			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidCoordinate))

			var coordErr *CoordinateError
			require.ErrorAs(t, err, &coordErr)
			assert.Equal(t, tc.wantErr, coordErr.Field)
		})
	}
}

func TestHaversineDistance(t *testing.T) {
	a := &Point{Lat: 51.1, Lng: 71.4}
	b := &Point{Lat: 51.2, Lng: 71.5}

	d := a.HaversineDistance(b)
	assert.InDelta(t, 13126, d, 25)
	assert.InDelta(t, d, b.HaversineDistance(a), 1e-9)
	assert.Zero(t, a.HaversineDistance(a))
}

func TestPointString(t *testing.T) {
	assert.Equal(t, "POINT(71.400000 51.095000)", Point{Lat: 51.095, Lng: 71.4}.String())
}
