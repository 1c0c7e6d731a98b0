package scicrunch

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/mapknowledge/errors"
)

func newSKANServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/production/knowledge/UBERON:0001759", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k3y", r.URL.Query().Get("api_key"))
		_, _ = w.Write([]byte(`{"id": "ignored", "label": "vagus nerve", "synonyms": ["CN-X"]}`))
	})
	mux.HandleFunc("/production/knowledge/ilxtr:neuron-type-aacar-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"label": "aacar 1", "connectivity": [[["UBERON:1", []], ["UBERON:2", []]]]}`))
	})
	mux.HandleFunc("/production/connectivity/ilxtr:neuron-type-aacar-1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"taxons": ["NCBITaxon:10116"], "phenotypes": ["ilxtr:ParasympatheticPhenotype"]}`))
	})
	mux.HandleFunc("/production/knowledge/UBERON:broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})
	mux.HandleFunc("/production/build", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"released": "2024-09-21T00:00:00Z"}`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestClient(t *testing.T, endpoint string) *Client {
	t.Helper()
	c, err := New(Options{
		Endpoint:     endpoint,
		APIKey:       "k3y",
		Timeout:      5 * time.Second,
		AllowPrivate: true,
	}, zaptest.NewLogger(t).Sugar())
	require.NoError(t, err)
	return c
}

func TestClient_Knowledge(t *testing.T) {
	c := newTestClient(t, newSKANServer(t).URL)
	ctx := t.Context()

	rec, err := c.Knowledge(ctx, "UBERON:0001759")
	require.NoError(t, err)
	assert.Equal(t, "UBERON:0001759", rec.ID)
	assert.Equal(t, "vagus nerve", rec.Label)
	assert.Contains(t, rec.Extra, "synonyms")

	t.Run("unknown entity is a stub", func(t *testing.T) {
		rec, err := c.Knowledge(ctx, "UBERON:9999999")
		require.NoError(t, err)
		assert.Equal(t, "UBERON:9999999", rec.ID)
		assert.False(t, rec.HasKnowledge())
	})

	t.Run("server error is provider unavailable", func(t *testing.T) {
		_, err := c.Knowledge(ctx, "UBERON:broken")
		require.Error(t, err)
		assert.True(t, errors.IsProviderUnavailable(err))
		assert.NotContains(t, err.Error(), "k3y")
	})
}

func TestClient_ConnectivityMetadata(t *testing.T) {
	c := newTestClient(t, newSKANServer(t).URL)

	rec, err := c.Knowledge(t.Context(), "ilxtr:neuron-type-aacar-1")
	require.NoError(t, err)
	require.True(t, rec.HasConnectivity())

	meta, err := c.ConnectivityMetadata(t.Context(), "ilxtr:neuron-type-aacar-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"NCBITaxon:10116"}, meta.Taxons)
	assert.Equal(t, []string{"ilxtr:ParasympatheticPhenotype"}, meta.Phenotypes)
}

func TestClient_Build(t *testing.T) {
	c := newTestClient(t, newSKANServer(t).URL)

	build, ok, err := c.Build(t.Context())
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "sckan-2024-09-21", build.Source())
}

func TestClient_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	c := newTestClient(t, endpoint)
	_, err := c.Knowledge(t.Context(), "UBERON:0001759")
	require.Error(t, err)
	assert.True(t, errors.IsProviderUnavailable(err))

	_, _, err = c.Build(t.Context())
	assert.True(t, errors.IsProviderUnavailable(err))
}

func TestNew_RejectsBadOptions(t *testing.T) {
	_, err := New(Options{Release: "nightly"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))

	_, err = New(Options{Endpoint: "not a url"}, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidConfig))

	c, err := New(Options{Release: Staging}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultEndpoint+"/staging", c.base)
}
