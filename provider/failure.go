package provider

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/teranos/mapknowledge/errors"
	"github.com/teranos/mapknowledge/internal/httpclient"
)

// FailureClass names the kind of a provider failure without the request it
// happened on, so one outage maps to one class however many entities hit it.
func FailureClass(err error) string {
	if err == nil {
		return ""
	}
	if code := httpclient.StatusCode(err); code != 0 {
		return "HTTP " + strconv.Itoa(code) + " " + http.StatusText(code)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return "host lookup failed"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "timeout"
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return "connection failed"
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return "invalid response"
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return "transport error"
	}
	return errors.UnwrapAll(err).Error()
}
