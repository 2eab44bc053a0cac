// Copyright 2025 The Tarifa Authors
// SPDX-License-Identifier: Apache-2.0

// Package estimator holds the PriceEstimator view state and the controller that
// moves it between Form, Loading, Result and Failed.
package estimator

import (
	"errors"
	"fmt"

	"github.com/jcodagnone/tarifa/pricing"
	"github.com/jcodagnone/tarifa/spatial"
)

// Mode names the view that is rendered.
type Mode string

// The four mutually exclusive view modes.
const (
	ModeForm    Mode = "form"
	ModeLoading Mode = "loading"
	ModeResult  Mode = "result"
	ModeError   Mode = "error"
)

// State is one of Form, Loading, Result or Failed.
type State interface {
	Mode() Mode
	isState()
}

// Form is the initial state: fields are editable and Calculate is available.
type Form struct{}

// Loading means a pricing request is in flight.
type Loading struct{}

// Result holds a successful quote. Fields are hidden behind the breakdown.
type Result struct {
	Quote pricing.Quote
}

// Failed shows Message over the form. Calculate is available to retry.
type Failed struct {
	Message string
}

func (Form) Mode() Mode    { return ModeForm }
func (Loading) Mode() Mode { return ModeLoading }
func (Result) Mode() Mode  { return ModeResult }
func (Failed) Mode() Mode  { return ModeError }

func (Form) isState()    {}
func (Loading) isState() {}
func (Result) isState()  {}
func (Failed) isState()  {}

// Field names as they appear in the HTML form.
const (
	FieldLatA = "latA"
	FieldLonA = "lonA"
	FieldLatB = "latB"
	FieldLonB = "lonB"
)

// ErrUnknownField is returned by SetField for a name that is not a coordinate field.
var ErrUnknownField = errors.New("unknown field")

// Fields is the raw text of the four coordinate inputs.
type Fields struct {
	LatA string `json:"latA" form:"latA"`
	LonA string `json:"lonA" form:"lonA"`
	LatB string `json:"latB" form:"latB"`
	LonB string `json:"lonB" form:"lonB"`
}

func (f *Fields) set(name, value string) error {
	switch name {
	case FieldLatA:
		f.LatA = value
	case FieldLonA:
		f.LonA = value
	case FieldLatB:
		f.LatB = value
	case FieldLonB:
		f.LonB = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}

	return nil
}

// Parse validates the four fields and builds the pricing request.
func (f Fields) Parse() (pricing.Request, error) {
	src, err := spatial.ParseCoordinate(f.LatA, f.LonA)
	if err != nil {
		return pricing.Request{}, fmt.Errorf("point A %w", err)
	}

	dst, err := spatial.ParseCoordinate(f.LatB, f.LonB)
	if err != nil {
		return pricing.Request{}, fmt.Errorf("point B %w", err)
	}

	return pricing.NewRequest(src, dst), nil
}

// View is an immutable snapshot used for rendering. At most one of Loading,
// Error and Result is set.
type View struct {
	Mode    Mode           `json:"mode"`
	Fields  Fields         `json:"fields"`
	Loading bool           `json:"loading"`
	Error   string         `json:"error,omitempty"`
	Result  *pricing.Quote `json:"result,omitempty"`
}

func newView(state State, fields Fields) View {
	v := View{Mode: state.Mode(), Fields: fields}

	switch s := state.(type) {
	case Loading:
		v.Loading = true
	case Failed:
		v.Error = s.Message
	case Result:
		q := s.Quote
		v.Result = &q
	}

	return v
}
