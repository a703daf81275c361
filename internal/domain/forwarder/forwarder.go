// Package forwarder issues the outbound request against the host named by
// the caller and streams the response back, rewriting Host and stripping
// XDR's own control headers. Each upstream host is wrapped in its own
// circuit breaker so a consistently failing upstream trips open instead of
// being hammered request after request — the breaker never retries a given
// request, it only short-circuits future ones.
package forwarder

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// ErrUpstreamUnavailable is returned when the upstream could not be reached
// in time, whether because of a connect/read timeout or an open breaker.
var ErrUpstreamUnavailable = errors.New("forwarder: upstream unavailable")

var strippedHeaders = []string{"X-Agent-Id", "X-Upstream-Host", "X-Simulate-Payment", "Host"}

// Request is the inbound request translated into forwarder terms.
type Request struct {
	Method       string
	UpstreamHost string
	Path         string
	RawQuery     string
	Header       http.Header
	Body         []byte
}

// Response is the upstream's response, fully buffered so it can be streamed
// back to the client without holding the upstream connection open.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Config configures a Forwarder.
type Config struct {
	// UseHTTP selects plain http instead of the default https; intended for
	// local development against a plaintext upstream.
	UseHTTP bool
	// Timeout bounds the full round trip (connect + read). Defaults to 30s.
	Timeout time.Duration
}

// Forwarder issues outbound requests, one gobreaker.CircuitBreaker per
// upstream host created lazily on first use.
type Forwarder struct {
	cfg    Config
	client *http.Client

	breakersMu sync.Mutex
	breakers   map[string]*gobreaker.CircuitBreaker
}

// New builds a Forwarder. A zero Config selects https and a 30s timeout.
func New(cfg Config) *Forwarder {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Forwarder{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		breakers: make(map[string]*gobreaker.CircuitBreaker),
	}
}

func (f *Forwarder) breakerFor(host string) *gobreaker.CircuitBreaker {
	f.breakersMu.Lock()
	defer f.breakersMu.Unlock()

	if b, ok := f.breakers[host]; ok {
		return b
	}

	b := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "forwarder:" + host,
		MaxRequests: 1,
		Interval:    0,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	f.breakers[host] = b

	return b
}

// Forward issues req against req.UpstreamHost and returns the buffered
// response. On a connect/read timeout, or when the host's breaker is open,
// it returns ErrUpstreamUnavailable. It never retries.
func (f *Forwarder) Forward(ctx context.Context, req Request) (Response, error) {
	breaker := f.breakerFor(req.UpstreamHost)

	result, err := breaker.Execute(func() (any, error) {
		return f.doForward(ctx, req)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return Response{}, ErrUpstreamUnavailable
		}

		return Response{}, err
	}

	return result.(Response), nil
}

func (f *Forwarder) doForward(ctx context.Context, req Request) (Response, error) {
	scheme := "https"
	if f.cfg.UseHTTP {
		scheme = "http"
	}

	url := scheme + "://" + req.UpstreamHost + req.Path
	if req.RawQuery != "" {
		url += "?" + req.RawQuery
	}

	outReq, err := http.NewRequestWithContext(ctx, req.Method, url, bytes.NewReader(req.Body))
	if err != nil {
		return Response{}, err
	}

	outReq.Header = cloneHeaderWithout(req.Header, strippedHeaders)
	outReq.Host = req.UpstreamHost

	resp, err := f.client.Do(outReq)
	if err != nil {
		return Response{}, ErrUpstreamUnavailable
	}

	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, ErrUpstreamUnavailable
	}

	return Response{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: body}, nil
}

func cloneHeaderWithout(h http.Header, strip []string) http.Header {
	out := h.Clone()
	if out == nil {
		out = make(http.Header)
	}

	for _, s := range strip {
		out.Del(strings.TrimSpace(s))
	}

	return out
}
