package provider

import (
	"context"
	"encoding/json"
	"net"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/teranos/mapknowledge/errors"
	"github.com/teranos/mapknowledge/internal/httpclient"
)

func TestFailureClass(t *testing.T) {
	status := func(code int, entity string) error {
		return errors.WrapProviderUnavailable(
			errors.WithStack(&httpclient.Status{Code: code, URL: "http://sckan/production/knowledge/" + entity}),
			"scicrunch")
	}
	var decoded map[string]any
	syntaxErr := json.Unmarshal([]byte("{"), &decoded)

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"status", status(503, "UBERON:1"), "HTTP 503 Service Unavailable"},
		{"deadline", errors.Wrap(context.DeadlineExceeded, "GET http://sckan/build"), "timeout"},
		{"canceled", errors.Wrap(context.Canceled, "rate limit"), "canceled"},
		{"dns", &url.Error{Op: "Get", URL: "http://sckan/a", Err: &net.DNSError{Name: "sckan", Err: "no such host"}}, "host lookup failed"},
		{"dial", &url.Error{Op: "Get", URL: "http://sckan/a", Err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}}, "connection failed"},
		{"decode", errors.Wrapf(syntaxErr, "decode response from %s", "http://sckan/a"), "invalid response"},
		{"other", errors.WrapProviderUnavailable(errors.New("snapshot closed"), "npo"), "snapshot closed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FailureClass(tt.err))
		})
	}

	assert.Equal(t, FailureClass(status(503, "UBERON:1")), FailureClass(status(503, "UBERON:2")))
	assert.NotEqual(t, FailureClass(status(503, "UBERON:1")), FailureClass(status(502, "UBERON:1")))
}
