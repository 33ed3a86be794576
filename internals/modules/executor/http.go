package executor

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"uptimer/internals/modules/heartbeat"
	"uptimer/internals/modules/monitor"
	"uptimer/internals/modules/probe"

	"github.com/samber/lo"
)

const (
	msgInvalidBody    = "Your JSON body is invalid"
	msgInvalidHeaders = "Your headers are invalid"
	msgHTTPAssertion  = "Failed http response assertion"
)

type httpChecker struct {
	prober *probe.HTTPProber
}

func (c httpChecker) Check(ctx context.Context, m monitor.Monitor) (heartbeat.Heartbeat, bool) {
	codes, err := m.ExpectedCodes()
	if err != nil {
		return configFailure("Invalid status code assertion"), false
	}
	maxRT, err := m.MaxResponseTime()
	if err != nil {
		return configFailure("Invalid response time assertion"), false
	}
	types, err := m.ContentTypes()
	if err != nil {
		return configFailure("Invalid content type assertion"), false
	}

	req, msg := buildRequest(m)
	if msg != "" {
		return configFailure(msg), false
	}

	resp, err := c.prober.Do(ctx, req)
	if err != nil {
		f := probe.AsFailure(err)
		return heartbeat.Heartbeat{
			Code:         f.Code,
			Message:      f.Message,
			ResponseTime: f.ResponseTime,
			ReqHeaders:   encodeHeader(redactCredentials(resp.ReqHeader)),
			ReqBody:      m.Body,
		}, false
	}

	hb := heartbeat.Heartbeat{
		Code:         resp.Code,
		Message:      resp.Message,
		ResponseTime: resp.ResponseTime,
		ReqHeaders:   encodeHeader(redactCredentials(resp.ReqHeader)),
		ResHeaders:   encodeHeader(resp.Header),
		ReqBody:      m.Body,
		ResBody:      resp.Body,
	}

	ok := codeAccepted(codes, resp.StatusCode) &&
		(maxRT <= 0 || resp.ResponseTime <= maxRT) &&
		contentTypeAccepted(types, resp.ContentType())
	if !ok {
		hb.Message = msgHTTPAssertion
		hb.Code = 500
	}
	return hb, ok
}

// buildRequest returns a failure message instead of a request when the monitor config is unusable.
func buildRequest(m monitor.Monitor) (probe.HTTPRequest, string) {
	header := http.Header{}
	header.Set("Accept", "text/html,application/json")

	if strings.TrimSpace(m.Headers) != "" {
		var extra map[string]any
		if err := json.Unmarshal([]byte(m.Headers), &extra); err != nil || extra == nil {
			return probe.HTTPRequest{}, msgInvalidHeaders
		}
		for k, v := range extra {
			if v == nil {
				continue
			}
			header.Set(k, fmt.Sprint(v))
		}
	}

	if m.Body != "" {
		if !json.Valid([]byte(m.Body)) {
			return probe.HTTPRequest{}, msgInvalidBody
		}
		header.Set("Content-Type", "application/json")
	}

	switch m.AuthMethod {
	case monitor.AuthBasic:
		creds := base64.StdEncoding.EncodeToString([]byte(m.Username + ":" + m.Password))
		header.Set("Authorization", "Basic "+creds)
	case monitor.AuthToken:
		header.Set("Authorization", "Bearer "+m.BearerToken)
	}

	return probe.HTTPRequest{
		Method:       strings.ToUpper(m.Method),
		URL:          m.URL,
		Header:       header,
		Body:         m.Body,
		Timeout:      seconds(m.Timeout),
		MaxRedirects: m.Redirects,
	}, ""
}

// codeAccepted falls back to any 2xx when no codes are configured.
func codeAccepted(codes []int, code int) bool {
	if len(codes) == 0 {
		return code >= 200 && code < 300
	}
	return lo.Contains(codes, code)
}

func contentTypeAccepted(types []string, got string) bool {
	if len(types) == 0 {
		return true
	}
	if lo.Contains(types, got) {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(got)
	return err == nil && lo.Contains(types, mediaType)
}

// redactCredentials drops auth headers so heartbeats never persist monitor secrets.
func redactCredentials(h http.Header) http.Header {
	if h == nil {
		return nil
	}
	out := h.Clone()
	out.Del("Authorization")
	out.Del("Proxy-Authorization")
	return out
}

func encodeHeader(h http.Header) string {
	if len(h) == 0 {
		return ""
	}
	flat := make(map[string]string, len(h))
	for k := range h {
		flat[strings.ToLower(k)] = h.Get(k)
	}
	b, err := json.Marshal(flat)
	if err != nil {
		return ""
	}
	return string(b)
}

func configFailure(msg string) heartbeat.Heartbeat {
	return heartbeat.Heartbeat{
		Code:    500,
		Message: msg,
	}
}
