package verifier

import (
	"MinLink-Backend/internal/config"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestTurnstile(verifyURL string) *Turnstile {
	cfg := &config.Turnstile{
		SecretKey: "test-secret",
		VerifyURL: verifyURL,
		Timeout:   2 * time.Second,
	}
	return NewTurnstile(cfg, zap.NewNop())
}

func TestTurnstile_Verify(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "test-secret", r.PostFormValue("secret"))
			assert.Equal(t, "token-123", r.PostFormValue("response"))
			assert.Equal(t, "198.51.100.1", r.PostFormValue("remoteip"))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"success": true}`))
		}))
		defer srv.Close()

		ok, err := newTestTurnstile(srv.URL).Verify(context.Background(), "token-123", "198.51.100.1")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("rejected token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"success": false, "error-codes": ["invalid-input-response"]}`))
		}))
		defer srv.Close()

		ok, err := newTestTurnstile(srv.URL).Verify(context.Background(), "bad-token", "198.51.100.1")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("malformed response body", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("not json"))
		}))
		defer srv.Close()

		ok, err := newTestTurnstile(srv.URL).Verify(context.Background(), "token", "198.51.100.1")
		require.Error(t, err)
		assert.False(t, ok)
	})

	t.Run("unreachable endpoint", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		srv.Close()

		ok, err := newTestTurnstile(srv.URL).Verify(context.Background(), "token", "198.51.100.1")
		require.Error(t, err)
		assert.False(t, ok)
	})
}
