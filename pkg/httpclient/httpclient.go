package httpclient

import (
	"net"
	"net/http"
	"time"
)

// NewHttpClient builds the client shared by HTTP probes. Keep-alives are off so every probe
// measures a full connection. Per-request deadlines come from the probe context.
func NewHttpClient() *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           dialer.DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DisableKeepAlives:     true,

		MaxIdleConns:    100,
		IdleConnTimeout: 90 * time.Second,
	}

	return &http.Client{
		Transport: transport,
	}
}
