package geocode

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/deppfellow/travelease-inquiry/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *bytes.Buffer) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	cfg := config.GeocodingConfig{
		Enabled:   true,
		BaseURL:   srv.URL + "/search",
		UserAgent: "TravelEaseInquiry/test",
		Timeout:   200 * time.Millisecond,
	}
	return NewClient(cfg, &logger, WithHTTPClient(srv.Client())), &buf
}

func TestVerifyConfirmed(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "São Paulo, BR", r.URL.Query().Get("q"))
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "TravelEaseInquiry/test", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`[{"lat":"-23.55","lon":"-46.63","display_name":"São Paulo"}]`))
	})

	assert.Equal(t, Confirmed, client.Verify(context.Background(), "São Paulo, BR"))
}

func TestVerifyNotFound(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	assert.Equal(t, NotFound, client.Verify(context.Background(), "Atlantis"))
}

func TestVerifyUnavailable(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"server error": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		},
		"malformed body": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html>rate limited</html>`))
		},
		"timeout": func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		},
	}

	for name, handler := range tests {
		t.Run(name, func(t *testing.T) {
			client, logs := newTestClient(t, handler)
			client.http.Timeout = 50 * time.Millisecond

			assert.Equal(t, Unavailable, client.Verify(context.Background(), "Paris"))
			assert.Contains(t, logs.String(), `"level":"warn"`)
		})
	}
}

func TestVerifyDisabled(t *testing.T) {
	logger := zerolog.Nop()
	client := NewClient(config.GeocodingConfig{Enabled: false, BaseURL: "http://127.0.0.1:1"}, &logger)

	assert.Equal(t, Confirmed, client.Verify(context.Background(), "anything"))
}

func TestVerifyCanceledContext(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Equal(t, Unavailable, client.Verify(ctx, "Paris"))
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "confirmed", Confirmed.String())
	assert.Equal(t, "not_found", NotFound.String())
	assert.Equal(t, "unavailable", Unavailable.String())
}
