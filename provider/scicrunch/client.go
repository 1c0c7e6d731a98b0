// Package scicrunch is a registry provider backed by the SciCrunch SCKAN
// knowledge API.
package scicrunch

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/mapknowledge/errors"
	"github.com/teranos/mapknowledge/internal/httpclient"
	"github.com/teranos/mapknowledge/knowledge"
	"github.com/teranos/mapknowledge/logger"
	"github.com/teranos/mapknowledge/provider"
)

const (
	// DefaultEndpoint is the public SciCrunch SCKAN API.
	DefaultEndpoint = "https://scicrunch.org/api/1/sckan-scigraph"

	Production = "production"
	Staging    = "staging"
)

// Options configure a Client.
type Options struct {
	Endpoint          string
	Release           string // Production or Staging
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64

	// AllowPrivate permits endpoints on loopback or private addresses.
	AllowPrivate bool
}

// Client is a provider.RegistryProvider over HTTP.
type Client struct {
	base   string
	apiKey string
	http   *httpclient.Client
	logger *zap.SugaredLogger
}

var _ provider.RegistryProvider = (*Client)(nil)

// New validates opts and returns a client. No request is made.
func New(opts Options, log *zap.SugaredLogger) (*Client, error) {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if _, err := url.ParseRequestURI(endpoint); err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "scicrunch endpoint %q", endpoint), errors.ErrInvalidConfig)
	}

	release := opts.Release
	switch release {
	case "":
		release = Production
	case Production, Staging:
	default:
		return nil, errors.WithHint(
			errors.Mark(errors.Newf("unknown scicrunch release %q", release), errors.ErrInvalidConfig),
			"Use 'production' or 'staging'")
	}

	return &Client{
		base:   strings.TrimSuffix(endpoint, "/") + "/" + release,
		apiKey: opts.APIKey,
		http: httpclient.New(httpclient.Options{
			Timeout:           opts.Timeout,
			RequestsPerSecond: opts.RequestsPerSecond,
			AllowPrivate:      opts.AllowPrivate,
		}),
		logger: logger.OrNop(log),
	}, nil
}

func (c *Client) Name() string { return "scicrunch" }

// Knowledge fetches the record for entity. An entity SciCrunch does not know
// yields a bare stub.
func (c *Client) Knowledge(ctx context.Context, entity string) (*knowledge.Record, error) {
	return c.record(ctx, "knowledge", entity)
}

// ConnectivityMetadata fetches phenotype, taxon and related fields for a
// connectivity path.
func (c *Client) ConnectivityMetadata(ctx context.Context, entity string) (*knowledge.Record, error) {
	return c.record(ctx, "connectivity", entity)
}

// Build returns the release date of the SCKAN build being served.
func (c *Client) Build(ctx context.Context) (provider.RegistryBuild, bool, error) {
	var build provider.RegistryBuild
	err := c.http.GetJSON(ctx, c.url("build"), &build)
	if httpclient.StatusCode(err) == http.StatusNotFound {
		return provider.RegistryBuild{}, false, nil
	}
	if err != nil {
		return provider.RegistryBuild{}, false, errors.WrapProviderUnavailable(err, c.Name())
	}
	return build, build.Released != "", nil
}

func (c *Client) Close() error { return nil }

func (c *Client) record(ctx context.Context, kind, entity string) (*knowledge.Record, error) {
	var rec knowledge.Record
	err := c.http.GetJSON(ctx, c.url(kind, entity), &rec)
	if httpclient.StatusCode(err) == http.StatusNotFound {
		c.logger.Debugw("Entity unknown to SciCrunch", logger.FieldEntity, entity)
		return knowledge.Stub(entity), nil
	}
	if err != nil {
		return nil, errors.WrapProviderUnavailable(err, c.Name())
	}
	rec.ID = entity
	return &rec, nil
}

func (c *Client) url(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, p := range parts {
		escaped[i] = url.PathEscape(p)
	}
	u := c.base + "/" + strings.Join(escaped, "/")
	if c.apiKey != "" {
		u += "?" + url.Values{"api_key": {c.apiKey}}.Encode()
	}
	return u
}
