/* SPDX-License-Identifier: BSD-2-Clause */

package httpfile

import (
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/sync/singleflight"
)

// Response is the normalized result of one range fetch, reduced to the
// few fields the File cares about. Header values stay in string form;
// the caller parses what it needs.
type Response struct {
	URL           string // final URL after any redirects
	ContentLength string // from HEAD or whole-body responses
	ContentRange  string // "bytes start-end/total", partial responses only
	ETag          string
	Body          []byte // empty for HEAD
}

// Fetcher performs exactly one HTTP request with an optional Range
// header. An empty rangeSpec sends no Range header; an empty method
// means GET. Implementations must surface a server's rejection of
// range semantics (HTTP 501) as ErrUnsupportedRange so that Open can
// fall back; every other non-2xx outcome is fatal to the caller.
type Fetcher interface {
	Fetch(url, rangeSpec, method string) (*Response, error)
}

// FetcherFunc adapts a plain function to the Fetcher interface.
type FetcherFunc func(url, rangeSpec, method string) (*Response, error)

func (fn FetcherFunc) Fetch(url, rangeSpec, method string) (*Response, error) {
	return fn(url, rangeSpec, method)
}

// ClientFetcher is the low-level transport: every fetch rides its own
// connection, nothing is pooled or shared. It is the right choice for
// one-shot use where holding idle connections is waste.
type ClientFetcher struct {
	Client *http.Client // optional; a keep-alive-free client when nil
}

func (c *ClientFetcher) Fetch(url, rangeSpec, method string) (*Response, error) {
	client := c.Client
	if client == nil {
		client = &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	}
	return doFetch(client, url, rangeSpec, method)
}

// SessionFetcher is the pooled transport: one *http.Client with its
// connection pool serves every fetch, and identical in-flight fetches
// from concurrent callers collapse into a single request. A
// SessionFetcher may be shared between many Files; the Files
// themselves remain single-caller.
type SessionFetcher struct {
	client *http.Client
	group  singleflight.Group
}

// NewSessionFetcher wraps client, or http.DefaultClient when nil.
func NewSessionFetcher(client *http.Client) *SessionFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &SessionFetcher{client: client}
}

func (s *SessionFetcher) Fetch(url, rangeSpec, method string) (*Response, error) {
	key := method + " " + url + " " + rangeSpec
	v, err, _ := s.group.Do(key, func() (any, error) {
		return doFetch(s.client, url, rangeSpec, method)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Response), nil
}

// doFetch is the shared request/response plumbing behind both
// fetchers: build the request, run it, map the status code per the
// Fetcher error contract, and flatten the response.
func doFetch(client *http.Client, url, rangeSpec, method string) (*Response, error) {
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		return nil, err
	}
	if rangeSpec != "" {
		req.Header.Set("Range", rangeSpec)
	}
	logRequest(req)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	logResponse(resp)

	switch {
	case resp.StatusCode == http.StatusNotImplemented:
		return nil, fmt.Errorf("httpfile: %s %s: %w", method, url, ErrUnsupportedRange)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &StatusError{URL: url, Status: resp.Status, Code: resp.StatusCode}
	}

	var body []byte
	if method != http.MethodHead {
		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
	}

	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}
	return &Response{
		URL:           finalURL,
		ContentLength: resp.Header.Get("Content-Length"),
		ContentRange:  resp.Header.Get("Content-Range"),
		ETag:          strings.TrimSpace(resp.Header.Get("ETag")),
		Body:          body,
	}, nil
}
