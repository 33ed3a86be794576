package probe

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"math"
	"net"
	"net/url"
	"strings"
	"time"

	"uptimer/pkg/apperror"
)

const DefaultTLSTimeout = 5 * time.Second

// Certificate classes.
const (
	CertDanger       = "danger"
	CertExpiringSoon = "expiring soon"
	CertSuccess      = "success"
)

type CertSubject struct {
	Org        string `json:"org"`
	CommonName string `json:"common_name"`
	SANs       string `json:"sans"`
}

type CertIssuer struct {
	Org        string `json:"org"`
	CommonName string `json:"common_name"`
	Country    string `json:"country"`
}

type CertValidity struct {
	ValidFrom       string `json:"validFrom"`
	ValidTo         string `json:"validTo"`
	DaysLeft        int    `json:"daysLeft"`
	BackgroundClass string `json:"backgroundClass"`
}

// SSLInfo is the certificate snapshot stored on an SSL monitor.
type SSLInfo struct {
	Host     string       `json:"host"`
	Type     string       `json:"type"`
	Reason   string       `json:"reason,omitempty"`
	ValidFor []string     `json:"validFor"`
	Subject  CertSubject  `json:"subject"`
	Issuer   CertIssuer   `json:"issuer"`
	Info     CertValidity `json:"info"`
}

// CertChecker fetches a server certificate with a fresh handshake and verifies it separately.
type CertChecker struct {
	RootCAs *x509.CertPool // nil means system roots
	Timeout time.Duration
	Now     func() time.Time
}

// Check returns the snapshot even when verification fails, together with the error.
func (c CertChecker) Check(ctx context.Context, rawURL string) (SSLInfo, error) {
	const op string = "probe.tls.check"

	if !strings.HasPrefix(rawURL, "https://") {
		return SSLInfo{}, apperror.Newf(apperror.InvalidHost, op, "Host %s is invalid", rawURL)
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return SSLInfo{}, apperror.Newf(apperror.InvalidHost, op, "Host %s is invalid", rawURL)
	}

	host := u.Hostname()
	port := u.Port()
	if port == "" {
		port = "443"
	}

	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTLSTimeout
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		Config: &tls.Config{
			ServerName:         host,
			InsecureSkipVerify: true, // verified below against the chosen roots
			ClientSessionCache: nil,
		},
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := dialer.DialContext(dialCtx, "tcp", net.JoinHostPort(host, port))
	if err != nil {
		return SSLInfo{Host: host, Type: CertDanger, Reason: err.Error()}, fmt.Errorf("tls handshake with %s: %w", host, err)
	}
	state := conn.(*tls.Conn).ConnectionState()
	_ = conn.Close()

	if len(state.PeerCertificates) == 0 {
		err := errors.New("no peer certificate presented")
		return SSLInfo{Host: host, Type: CertDanger, Reason: err.Error()}, err
	}

	leaf := state.PeerCertificates[0]
	intermediates := x509.NewCertPool()
	for _, cert := range state.PeerCertificates[1:] {
		intermediates.AddCert(cert)
	}

	checkedAt := now()
	_, verifyErr := leaf.Verify(x509.VerifyOptions{
		DNSName:       host,
		Roots:         c.RootCAs,
		Intermediates: intermediates,
		CurrentTime:   checkedAt,
	})
	authorized := verifyErr == nil

	daysLeft := DaysRemaining(checkedAt, leaf.NotAfter)
	typ, background := Classify(authorized, daysLeft)

	validFor, rawSANs := subjectAltNames(leaf)
	info := SSLInfo{
		Host:     host,
		Type:     typ,
		ValidFor: validFor,
		Subject: CertSubject{
			Org:        first(leaf.Subject.Organization),
			CommonName: leaf.Subject.CommonName,
			SANs:       rawSANs,
		},
		Issuer: CertIssuer{
			Org:        first(leaf.Issuer.Organization),
			CommonName: leaf.Issuer.CommonName,
			Country:    first(leaf.Issuer.Country),
		},
		Info: CertValidity{
			ValidFrom:       leaf.NotBefore.UTC().Format(time.RFC3339),
			ValidTo:         leaf.NotAfter.UTC().Format(time.RFC3339),
			DaysLeft:        daysLeft,
			BackgroundClass: background,
		},
	}

	if !authorized {
		info.Reason = verifyErr.Error()
		return info, fmt.Errorf("certificate for %s not authorized: %w", host, verifyErr)
	}
	return info, nil
}

// DaysRemaining rounds the distance to notAfter in days, negative once expired.
func DaysRemaining(now, notAfter time.Time) int {
	diff := notAfter.Sub(now)
	days := int(math.Round(math.Abs(diff.Hours()) / 24))
	if diff < 0 {
		return -days
	}
	return days
}

// Classify maps verification and days left to the snapshot type and its background class.
func Classify(authorized bool, daysLeft int) (string, string) {
	switch {
	case !authorized, daysLeft <= 30:
		return CertDanger, "danger"
	case daysLeft < 60:
		return CertExpiringSoon, "warning"
	default:
		return CertSuccess, "success"
	}
}

func subjectAltNames(cert *x509.Certificate) ([]string, string) {
	names := make([]string, 0, len(cert.DNSNames)+len(cert.IPAddresses))
	raw := make([]string, 0, cap(names))
	for _, dns := range cert.DNSNames {
		names = append(names, dns)
		raw = append(raw, "DNS:"+dns)
	}
	for _, ip := range cert.IPAddresses {
		names = append(names, ip.String())
		raw = append(raw, "IP Address:"+ip.String())
	}
	return names, strings.Join(raw, ", ")
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
