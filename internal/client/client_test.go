package client

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/findologic/plugin-shopware-5-sub000/internal/domain"
	"github.com/findologic/plugin-shopware-5-sub000/internal/query"
	apperrors "github.com/findologic/plugin-shopware-5-sub000/pkg/errors"
	"github.com/findologic/plugin-shopware-5-sub000/pkg/httpclient"
)

const testShopkey = "ABCDEF0123456789ABCDEF0123456789"

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := httpclient.DefaultConfig()
	cfg.MaxRetries = 0
	cb := httpclient.NewBreaker(httpclient.New(cfg), httpclient.DefaultBreakerConfig(t.Name()), testLogger())
	return New(cb, server.URL+"/ps/shop/", testShopkey, 200*time.Millisecond, testLogger()), server
}

func TestClient_Search(t *testing.T) {
	var gotPath, gotQuery string
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("query")
		_, _ = w.Write([]byte(`<searchResult/>`))
	})

	b := query.NewSearchBuilder(domain.ShopContext{Shopkey: testShopkey}, query.Config{}).SetQuery("shirt")
	body, err := c.Search(context.Background(), b)

	require.NoError(t, err)
	assert.Equal(t, `<searchResult/>`, string(body))
	assert.Equal(t, "/ps/shop/index.php", gotPath)
	assert.Equal(t, "shirt", gotQuery)
}

func TestClient_SearchUpstreamError(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{"server error", http.StatusInternalServerError},
		{"forbidden", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			b := query.NewNavigationBuilder(domain.ShopContext{Shopkey: testShopkey}, query.Config{})
			_, err := c.Search(context.Background(), b)

			require.Error(t, err)
			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, "SERVICE_UNAVAILABLE", appErr.Code)
			assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
		})
	}
}

func TestClient_Alive(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		want    bool
	}{
		{
			name: "alive",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/ps/shop/alivetest.php", r.URL.Path)
				assert.Equal(t, testShopkey, r.URL.Query().Get("shopkey"))
				_, _ = w.Write([]byte("alive\n"))
			},
			want: true,
		},
		{
			name: "unexpected body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte("maintenance"))
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusServiceUnavailable)
			},
		},
		{
			name: "too slow",
			handler: func(w http.ResponseWriter, r *http.Request) {
				select {
				case <-time.After(time.Second):
				case <-r.Context().Done():
				}
				_, _ = w.Write([]byte("alive"))
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newTestClient(t, tt.handler)
			assert.Equal(t, tt.want, c.Alive(context.Background()))
		})
	}
}

func TestClient_Ping(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("down"))
	})
	assert.Error(t, c.Ping(context.Background()))
}

func TestClient_RequestURL(t *testing.T) {
	c, server := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	b := query.NewNavigationBuilder(domain.ShopContext{Shopkey: testShopkey}, query.Config{})

	assert.Equal(t,
		server.URL+"/ps/shop/selector.php?shopkey="+testShopkey+"&outputAdapter=XML_2.0",
		c.RequestURL(b))
}
