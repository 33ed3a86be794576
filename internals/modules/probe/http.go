package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

type HTTPRequest struct {
	Method       string
	URL          string
	Header       http.Header
	Body         string
	Timeout      time.Duration
	MaxRedirects int
}

type HTTPResponse struct {
	Outcome
	StatusCode int
	Header     http.Header
	Body       string
	ReqHeader  http.Header
}

func (r HTTPResponse) ContentType() string {
	return r.Header.Get("Content-Type")
}

// HTTPProber issues one request per call on a shared transport.
type HTTPProber struct {
	client       *http.Client
	maxBodyBytes int64
}

func NewHTTPProber(client *http.Client, maxBodyBytes int64) *HTTPProber {
	if maxBodyBytes <= 0 {
		maxBodyBytes = 1 << 20
	}
	return &HTTPProber{
		client:       client,
		maxBodyBytes: maxBodyBytes,
	}
}

// Do never judges the status code. A redirect past the cap yields the last 3xx response.
func (p *HTTPProber) Do(ctx context.Context, in HTTPRequest) (HTTPResponse, error) {
	start := time.Now()

	method := in.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if in.Body != "" {
		body = strings.NewReader(in.Body)
	}

	req, err := http.NewRequestWithContext(ctx, method, in.URL, body)
	if err != nil {
		return HTTPResponse{}, refused(start, 500, "Http monitor error: invalid request", err)
	}
	if in.Header != nil {
		req.Header = in.Header.Clone()
	}

	client := *p.client
	client.Timeout = in.Timeout
	client.CheckRedirect = func(_ *http.Request, via []*http.Request) error {
		if len(via) > in.MaxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	}

	resp, err := client.Do(req)
	if err != nil {
		return HTTPResponse{ReqHeader: req.Header}, refused(start, 500, "Http monitor error: "+classifyError(err), err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, p.maxBodyBytes))
	if err != nil {
		return HTTPResponse{ReqHeader: req.Header}, refused(start, resp.StatusCode, "Http monitor error: "+classifyError(err), err)
	}

	return HTTPResponse{
		Outcome:    established(start, resp.StatusCode, fmt.Sprintf("%d - %s", resp.StatusCode, statusText(resp))),
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       string(data),
		ReqHeader:  req.Header,
	}, nil
}

func statusText(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		return http.StatusText(resp.StatusCode)
	}
	return text
}

func classifyError(err error) string {

	if errors.Is(err, context.DeadlineExceeded) {
		return "request timed out"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "dns lookup failed"
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "request timed out"
		}
		return "network error"
	}

	if errors.Is(err, context.Canceled) {
		return "request cancelled"
	}

	return "request failed"
}
