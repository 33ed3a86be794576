package probe

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

func newProber() *HTTPProber {
	return NewHTTPProber(&http.Client{}, 1024)
}

func TestHTTPCapturesResponse(t *testing.T) {
	var gotBody, gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)
		gotHeader = r.Header.Get("X-Probe")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	resp, err := newProber().Do(context.Background(), HTTPRequest{
		Method:  http.MethodPost,
		URL:     srv.URL,
		Header:  http.Header{"X-Probe": []string{"1"}},
		Body:    `{"ping":1}`,
		Timeout: 2 * time.Second,
	})
	require.NoError(t, err)

	assert.Equal(t, Established, resp.Status)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "201 - Created", resp.Message)
	assert.Equal(t, "application/json", resp.ContentType())
	assert.Equal(t, `{"ok":true}`, resp.Body)
	assert.Equal(t, `{"ping":1}`, gotBody)
	assert.Equal(t, "1", gotHeader)
	assert.GreaterOrEqual(t, resp.ResponseTime, int64(0))
}

func TestHTTPDoesNotJudgeStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	resp, err := newProber().Do(context.Background(), HTTPRequest{URL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "503 - Service Unavailable", resp.Message)
}

func TestHTTPRedirectCap(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) { http.Redirect(w, r, "/b", http.StatusFound) })
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) { http.Redirect(w, r, "/c", http.StatusFound) })
	mux.HandleFunc("/c", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := newProber().Do(context.Background(), HTTPRequest{URL: srv.URL + "/a", Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, resp.StatusCode)

	resp, err = newProber().Do(context.Background(), HTTPRequest{URL: srv.URL + "/a", Timeout: time.Second, MaxRedirects: 2})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPTimeoutIsFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(300 * time.Millisecond)
	}))
	defer srv.Close()

	_, err := newProber().Do(context.Background(), HTTPRequest{URL: srv.URL, Timeout: 50 * time.Millisecond})
	require.Error(t, err)

	f := AsFailure(err)
	assert.Equal(t, Refused, f.Status)
	assert.Equal(t, 500, f.Code)
	assert.Equal(t, "Http monitor error: request timed out", f.Message)
}

func TestHTTPBodyIsCapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(make([]byte, 4096))
	}))
	defer srv.Close()

	resp, err := newProber().Do(context.Background(), HTTPRequest{URL: srv.URL, Timeout: time.Second})
	require.NoError(t, err)
	assert.Len(t, resp.Body, 1024)
}
