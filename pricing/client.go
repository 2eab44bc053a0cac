// Copyright 2025 The Tarifa Authors
// SPDX-License-Identifier: Apache-2.0

// Package pricing talks to the external pricing service and derives the total
// price from the breakdown it returns.
package pricing

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultEndpoint is the route pricing service the estimator was built against.
const DefaultEndpoint = "https://1dd77389effe.ngrok-free.app/route"

const maxBodyBytes = 1 << 20

// Quoter prices a trip. Client is the production implementation.
type Quoter interface {
	Quote(ctx context.Context, req Request) (*Response, error)
}

// Client posts trips to a fixed pricing endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
}

var _ Quoter = (*Client)(nil)

// NewClient creates a client for endpoint. A nil httpClient uses http.DefaultClient.
func NewClient(endpoint string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{endpoint: endpoint, httpClient: httpClient}
}

// Endpoint returns the URL requests are sent to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// wireResponse mirrors Response with pointers so absent fields can be told apart
// from zeros.
type wireResponse struct {
	Base       *float64    `json:"base"`
	Rate       *float64    `json:"rate"`
	Demand     *float64    `json:"demand"`
	Distance   *float64    `json:"distance"`
	Congestion *float64    `json:"congestion"`
	Path       []PathPoint `json:"path"`
}

func (w *wireResponse) toResponse() (*Response, error) {
	var missing []string

	pick := func(name string, v *float64) float64 {
		if v == nil {
			missing = append(missing, name)

			return 0
		}

		return *v
	}

	resp := &Response{
		Base:       pick("base", w.Base),
		Rate:       pick("rate", w.Rate),
		Demand:     pick("demand", w.Demand),
		Distance:   pick("distance", w.Distance),
		Congestion: pick("congestion", w.Congestion),
		Path:       w.Path,
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing fields: %s", strings.Join(missing, ", "))
	}

	return resp, nil
}

// Quote sends req and decodes the breakdown. Every failure is an *Error.
// No timeout is applied beyond the one configured on the http.Client or ctx.
func (c *Client) Quote(ctx context.Context, req Request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, &Error{Type: ErrorTypeUnknown, Message: "encoding pricing request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Type: ErrorTypeUnknown, Message: "building pricing request", Err: err}
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

		return nil, ClassifyStatus(resp.StatusCode)
	}

	var wire wireResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&wire); err != nil {
		if ctx.Err() != nil {
			return nil, transportError(ctx.Err())
		}

		return nil, &Error{Type: ErrorTypeDecode, StatusCode: resp.StatusCode, Message: "decoding pricing response", Err: err}
	}

	out, err := wire.toResponse()
	if err != nil {
		return nil, &Error{Type: ErrorTypeDecode, StatusCode: resp.StatusCode, Message: "decoding pricing response", Err: err}
	}

	return out, nil
}
