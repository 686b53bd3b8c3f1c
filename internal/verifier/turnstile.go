package verifier

import (
	"MinLink-Backend/internal/config"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"
)

// ChallengeVerifier decides whether a client-supplied challenge token proves
// the client passed the bot check.
type ChallengeVerifier interface {
	Verify(ctx context.Context, token, ip string) (bool, error)
}

// Turnstile verifies tokens against the Cloudflare Turnstile siteverify API.
type Turnstile struct {
	secretKey string
	verifyURL string
	client    *http.Client
	log       *zap.Logger
}

func NewTurnstile(cfg *config.Turnstile, log *zap.Logger) *Turnstile {
	return &Turnstile{
		secretKey: cfg.SecretKey,
		verifyURL: cfg.VerifyURL,
		client:    &http.Client{Timeout: cfg.Timeout},
		log:       log,
	}
}

type siteverifyResponse struct {
	Success    bool     `json:"success"`
	ErrorCodes []string `json:"error-codes"`
}

// Verify posts the token to the siteverify endpoint. Any transport or decode
// failure is returned as an error; the caller treats it the same as a failed
// challenge.
func (t *Turnstile) Verify(ctx context.Context, token, ip string) (bool, error) {
	form := url.Values{
		"secret":   {t.secretKey},
		"response": {token},
		"remoteip": {ip},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("failed to build siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("siteverify request failed: %w", err)
	}
	defer resp.Body.Close()

	var result siteverifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return false, fmt.Errorf("failed to decode siteverify response: %w", err)
	}

	if !result.Success {
		t.log.Debug("challenge verification rejected",
			zap.String("ip", ip),
			zap.Strings("error_codes", result.ErrorCodes))
	}

	return result.Success, nil
}
