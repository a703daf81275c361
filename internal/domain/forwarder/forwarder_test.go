package forwarder

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForward_PreservesMethodPathQueryBodyAndStripsControlHeaders(t *testing.T) {
	var gotMethod, gotPath, gotQuery, gotHost, gotBody string

	var hadAgentHeader bool

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotHost = r.Host
		_, hadAgentHeader = r.Header["X-Agent-Id"]

		buf, _ := io.ReadAll(r.Body)
		gotBody = string(buf)

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("echo"))
	}))
	defer upstream.Close()

	host := upstream.Listener.Addr().String()

	f := New(Config{UseHTTP: true})

	hdr := http.Header{}
	hdr.Set("X-Agent-Id", "a1")
	hdr.Set("Content-Type", "application/json")

	resp, err := f.Forward(context.Background(), Request{
		Method:       http.MethodPost,
		UpstreamHost: host,
		Path:         "/v1/x",
		RawQuery:     "q=1",
		Header:       hdr,
		Body:         []byte(`{"a":1}`),
	})

	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "echo", string(resp.Body))
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/v1/x", gotPath)
	assert.Equal(t, "q=1", gotQuery)
	assert.Equal(t, host, gotHost)
	assert.False(t, hadAgentHeader)
	assert.Equal(t, `{"a":1}`, gotBody)
}

func TestForward_TimeoutReturnsUpstreamUnavailable(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer upstream.Close()

	f := New(Config{UseHTTP: true, Timeout: 5 * time.Millisecond})

	_, err := f.Forward(context.Background(), Request{
		Method:       http.MethodGet,
		UpstreamHost: upstream.Listener.Addr().String(),
		Path:         "/",
		Header:       http.Header{},
	})

	require.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestForward_UnreachableHostReturnsUpstreamUnavailable(t *testing.T) {
	f := New(Config{UseHTTP: true, Timeout: 200 * time.Millisecond})

	_, err := f.Forward(context.Background(), Request{
		Method:       http.MethodGet,
		UpstreamHost: "127.0.0.1:1",
		Path:         "/",
		Header:       http.Header{},
	})

	require.ErrorIs(t, err, ErrUpstreamUnavailable)
}
