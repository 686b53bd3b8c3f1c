package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestTitleFetcher_Fetch(t *testing.T) {
	ctx := context.Background()
	fetcher := NewTitleFetcher(zap.NewNop())

	t.Run("extracts page title", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "MinLink Bot 1.0", r.Header.Get("User-Agent"))
			if r.Method == http.MethodHead {
				return
			}
			_, _ = w.Write([]byte(`<html><head><title>  Example Page  </title></head><body></body></html>`))
		}))
		defer srv.Close()

		title := fetcher.Fetch(ctx, srv.URL)
		require.NotNil(t, title)
		assert.Equal(t, "Example Page", *title)
	})

	t.Run("handles title tag with attributes", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<TITLE lang="en">Shouting Title</TITLE>`))
		}))
		defer srv.Close()

		title := fetcher.Fetch(ctx, srv.URL)
		require.NotNil(t, title)
		assert.Equal(t, "Shouting Title", *title)
	})

	t.Run("caps overly long titles", func(t *testing.T) {
		long := strings.Repeat("a", 500)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<title>" + long + "</title>"))
		}))
		defer srv.Close()

		title := fetcher.Fetch(ctx, srv.URL)
		require.NotNil(t, title)
		assert.Len(t, *title, 200)
	})

	t.Run("returns nil when page has no title", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html><body>no head here</body></html>`))
		}))
		defer srv.Close()

		assert.Nil(t, fetcher.Fetch(ctx, srv.URL))
	})

	t.Run("returns nil on non-2xx probe", func(t *testing.T) {
		var gotGet bool
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				gotGet = true
			}
			w.WriteHeader(http.StatusForbidden)
		}))
		defer srv.Close()

		assert.Nil(t, fetcher.Fetch(ctx, srv.URL))
		assert.False(t, gotGet, "GET should not follow a failed probe")
	})

	t.Run("returns nil on unreachable host", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		assert.Nil(t, fetcher.Fetch(ctx, srv.URL))
	})
}
