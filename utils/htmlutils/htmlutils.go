// Copyright 2025 The Tarifa Authors
// SPDX-License-Identifier: Apache-2.0

// Package htmlutils provides utility functions for inspecting rendered pages.
package htmlutils

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// Text returns the text content of n with whitespace collapsed to single spaces.
func Text(n *html.Node) string {
	sb := strings.Builder{}
	writeText(n, &sb)

	return sb.String()
}

func writeText(n *html.Node, sb *strings.Builder) {
	if n.Type == html.TextNode {
		for _, word := range strings.Fields(n.Data) {
			if sb.Len() != 0 {
				sb.WriteByte(' ')
			}

			sb.WriteString(word)
		}

		return
	}

	// script and style bodies are not visible text
	if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
		return
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		writeText(child, sb)
	}
}

// Attr returns the value of the attribute key of n, or "".
func Attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if strings.EqualFold(a.Key, key) {
			return a.Val
		}
	}

	return ""
}

// ElementByID returns the first element below n whose id is id, or nil.
func ElementByID(n *html.Node, id string) *html.Node {
	if n.Type == html.ElementNode && Attr(n, "id") == id {
		return n
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := ElementByID(child, id); found != nil {
			return found
		}
	}

	return nil
}

// Elements returns every element below n named tag, in document order.
func Elements(n *html.Node, tag string) []*html.Node {
	var out []*html.Node

	if n.Type == html.ElementNode && strings.EqualFold(n.Data, tag) {
		out = append(out, n)
	}

	for child := n.FirstChild; child != nil; child = child.NextSibling {
		out = append(out, Elements(child, tag)...)
	}

	return out
}

// Validates that response seems to be an HTML response.
func hasHTMLContentType(media string) bool {
	const expectedMedia = "text/html"

	return strings.EqualFold(
		expectedMedia,
		media[0:min(len(media), len(expectedMedia))],
	)
}

// AsReader converts an HTTP response body to an io.Reader with the correct charset.
func AsReader(resp *http.Response) (io.Reader, error) {
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	media := resp.Header.Get("Content-Type")
	if !hasHTMLContentType(media) {
		return nil, fmt.Errorf("media type is %s", media)
	}

	rr, err := charset.NewReader(resp.Body, media)
	if err != nil {
		return nil, err
	}

	return rr, nil
}

// AsNode parses an io.Reader as an HTML node.
func AsNode(r io.Reader) (*html.Node, error) {
	n, err := html.Parse(r)
	if nil != err {
		return nil, fmt.Errorf("parsing body as HTML: %w", err)
	}

	return n, nil
}
