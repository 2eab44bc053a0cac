// Copyright 2025 The Tarifa Authors
// SPDX-License-Identifier: Apache-2.0

package pricing

import "github.com/jcodagnone/tarifa/spatial"

// Request is the body sent to the pricing service.
type Request struct {
	SrcLng float64 `json:"src_lng"`
	SrcLat float64 `json:"src_lat"`
	DstLng float64 `json:"dst_lng"`
	DstLat float64 `json:"dst_lat"`
}

// NewRequest builds the request for a trip from src to dst.
func NewRequest(src, dst spatial.Point) Request {
	return Request{
		SrcLng: src.Lng,
		SrcLat: src.Lat,
		DstLng: dst.Lng,
		DstLat: dst.Lat,
	}
}

// Source returns the trip origin.
func (r Request) Source() spatial.Point {
	return spatial.Point{Lat: r.SrcLat, Lng: r.SrcLng}
}

// Destination returns the trip destination.
func (r Request) Destination() spatial.Point {
	return spatial.Point{Lat: r.DstLat, Lng: r.DstLng}
}

// PathPoint is one node of the route the service priced.
type PathPoint struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Type string  `json:"type"` // start, stop, end
}

// Response is the pricing breakdown returned by the service.
type Response struct {
	Base       float64     `json:"base"`
	Rate       float64     `json:"rate"`
	Demand     float64     `json:"demand"`
	Distance   float64     `json:"distance"`
	Congestion float64     `json:"congestion"`
	Path       []PathPoint `json:"path,omitempty"`
}

// Price returns the total derived from the breakdown.
func (r Response) Price() int64 {
	return ComputePrice(r.Base, r.Demand, r.Rate, r.Distance, r.Congestion)
}

// Quote is a settled, successful pricing exchange.
type Quote struct {
	Request  Request  `json:"request"`
	Response Response `json:"response"`
	Price    int64    `json:"price"`
}

// NewQuote bundles a response with its derived price.
func NewQuote(req Request, resp Response) Quote {
	return Quote{Request: req, Response: resp, Price: resp.Price()}
}
