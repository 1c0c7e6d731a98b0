// Package httpclient is the HTTP client used by network knowledge providers.
// It bounds every request by a timeout and a request rate, and refuses
// URLs that point at private or loopback addresses unless told otherwise.
package httpclient

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/teranos/mapknowledge/errors"
	"github.com/teranos/mapknowledge/version"
)

// DefaultTimeout bounds a provider request when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// maxBody caps how much of a response body is decoded.
const maxBody = 64 << 20

// Options configure a Client. Zero values select the defaults.
type Options struct {
	Timeout           time.Duration
	RequestsPerSecond float64 // <= 0 means unlimited
	MaxRedirects      int     // default 10
	AllowPrivate      bool    // permit loopback and private addresses (tests, local mirrors)
	Header            http.Header
}

// Client is a rate limited HTTP client with SSRF protection.
type Client struct {
	http         *http.Client
	limiter      *rate.Limiter
	header       http.Header
	allowPrivate bool
	maxRedirects int
}

// Status is returned for non-2xx responses.
type Status struct {
	Code int
	URL  string
}

func (s *Status) Error() string {
	return http.StatusText(s.Code) + " from " + s.URL
}

// New builds a client from opts.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	maxRedirects := opts.MaxRedirects
	if maxRedirects <= 0 {
		maxRedirects = 10
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}

	c := &Client{
		limiter:      rate.NewLimiter(limit, 1),
		header:       opts.Header.Clone(),
		allowPrivate: opts.AllowPrivate,
		maxRedirects: maxRedirects,
	}
	c.http = &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= c.maxRedirects {
				return errors.Newf("stopped after %d redirects", c.maxRedirects)
			}
			return errors.Wrap(c.validateURL(req.URL), "redirect blocked")
		},
	}

	if !c.allowPrivate {
		dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
		c.http.Transport = &http.Transport{
			DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
				host, _, err := net.SplitHostPort(addr)
				if err != nil {
					return nil, errors.Wrap(err, "invalid address")
				}
				ips, err := net.DefaultResolver.LookupIP(ctx, "ip", host)
				if err != nil {
					return nil, errors.Wrapf(err, "failed to resolve host %q", host)
				}
				for _, ip := range ips {
					if isPrivateIP(ip) {
						return nil, errors.Newf("private IP address blocked: %s", ip)
					}
				}
				return dialer.DialContext(ctx, network, addr)
			},
			MaxIdleConns:        16,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		}
	}
	return c
}

// GetJSON fetches rawURL and decodes a 2xx JSON body into v. A non-2xx
// response returns a *Status error and leaves v untouched.
func (c *Client) GetJSON(ctx context.Context, rawURL string, v interface{}) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return errors.Wrap(err, "invalid URL")
	}
	if err := c.validateURL(u); err != nil {
		return errors.Wrap(err, "request blocked")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return errors.Wrap(err, "rate limit")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	for k, vals := range c.header {
		for _, val := range vals {
			req.Header.Add(k, val)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "mapknowledge/"+version.Get().Version)

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "GET %s", redact(u))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBody))
		return errors.WithStack(&Status{Code: resp.StatusCode, URL: redact(u)})
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBody)).Decode(v); err != nil {
		return errors.Wrapf(err, "decode response from %s", redact(u))
	}
	return nil
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var s *Status
	if errors.As(err, &s) {
		return s.Code
	}
	return 0
}

func (c *Client) validateURL(u *url.URL) error {
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return errors.Newf("scheme %q not allowed", u.Scheme)
	}
	// http://evil.com@localhost/ style confusion
	if u.User != nil {
		return errors.New("URL contains user info")
	}

	hostname := u.Hostname()
	if hostname == "" {
		return errors.New("URL missing hostname")
	}
	if c.allowPrivate {
		return nil
	}
	if isLocalhost(hostname) {
		return errors.New("localhost access blocked")
	}
	if ip := net.ParseIP(hostname); ip != nil && isPrivateIP(ip) {
		return errors.Newf("private IP address blocked: %s", hostname)
	}
	return nil
}

// redact drops the query string, which may carry an API key.
func redact(u *url.URL) string {
	c := *u
	c.RawQuery = ""
	return c.String()
}

var privateBlocks = []net.IPNet{
	{IP: net.IPv4(10, 0, 0, 0), Mask: net.CIDRMask(8, 32)},
	{IP: net.IPv4(172, 16, 0, 0), Mask: net.CIDRMask(12, 32)},
	{IP: net.IPv4(192, 168, 0, 0), Mask: net.CIDRMask(16, 32)},
	{IP: net.IPv4(127, 0, 0, 0), Mask: net.CIDRMask(8, 32)},
	{IP: net.IPv4(169, 254, 0, 0), Mask: net.CIDRMask(16, 32)},
	{IP: net.IPv4(0, 0, 0, 0), Mask: net.CIDRMask(8, 32)},
	{IP: net.IPv4(224, 0, 0, 0), Mask: net.CIDRMask(4, 32)},
	{IP: net.IPv4(240, 0, 0, 0), Mask: net.CIDRMask(4, 32)},
}

func isPrivateIP(ip net.IP) bool {
	if ip4 := ip.To4(); ip4 != nil {
		for _, block := range privateBlocks {
			if block.Contains(ip4) {
				return true
			}
		}
		return false
	}
	if ip.IsLoopback() || ip.IsLinkLocalUnicast() || ip.IsMulticast() || ip.IsUnspecified() {
		return true
	}
	// fc00::/7 unique local
	return len(ip) == net.IPv6len && ip[0]&0xfe == 0xfc
}

func isLocalhost(hostname string) bool {
	hostname = strings.ToLower(hostname)
	return hostname == "localhost" ||
		hostname == "localhost.localdomain" ||
		strings.HasSuffix(hostname, ".localhost")
}
