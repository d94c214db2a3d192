// Package faucet wraps the external faucet providers behind the uniform
// FaucetAdapter surface. Each provider speaks its own request and response
// dialect; the adapters normalize both into domain.ClaimResult.
//
// None of the adapters retry. A faucet claim is not idempotent upstream, so
// a retry after an unclear failure could pay a user twice. Timeouts that
// occur after the request may have been delivered resolve as ambiguous and
// are left to reconciliation.
package faucet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"crypto-faucet-gateway/internal/core/domain"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const maxResponseBytes = 1 << 20 // 1MB

// httpCore is the shared transport for all faucet adapters: one POST per
// claim, a hard per-call timeout, and a polite outbound rate limit per
// provider.
type httpCore struct {
	endpoint    string
	apiKey      string
	client      *http.Client
	limiter     *rate.Limiter
	callTimeout time.Duration
	log         zerolog.Logger
}

func newHTTPCore(endpoint, apiKey string, callTimeout time.Duration, ratePerMinute int, log zerolog.Logger) httpCore {
	if callTimeout <= 0 {
		callTimeout = 10 * time.Second
	}
	limit := rate.Inf
	if ratePerMinute > 0 {
		limit = rate.Limit(float64(ratePerMinute) / 60.0)
	}
	return httpCore{
		endpoint:    endpoint,
		apiKey:      apiKey,
		client:      &http.Client{Timeout: callTimeout},
		limiter:     rate.NewLimiter(limit, 1),
		callTimeout: callTimeout,
		log:         log,
	}
}

// post sends one claim request. On failure the returned ClaimResult is
// non-nil and fully classified; on success the raw body is handed back for
// provider-specific parsing.
func (c *httpCore) post(ctx context.Context, payload any) ([]byte, *domain.ClaimResult) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, failure(domain.ErrorKindExternalFaucet, fmt.Sprintf("rate limit wait: %v", err), false)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, failure(domain.ErrorKindExternalFaucet, fmt.Sprintf("encode request: %v", err), false)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, failure(domain.ErrorKindExternalFaucet, fmt.Sprintf("build request: %v", err), false)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		// A timeout may have fired after the request left the socket; the
		// upstream could still have processed it. Only errors that provably
		// happened before delivery are safe to call unambiguous.
		if isTimeout(err) {
			c.log.Warn().Err(err).Str("endpoint", c.endpoint).Msg("faucet call timed out, outcome unknown")
			return nil, failure(domain.ErrorKindAmbiguous, fmt.Sprintf("request timed out after %s", c.callTimeout), true)
		}
		return nil, failure(domain.ErrorKindExternalFaucet, fmt.Sprintf("faucet request: %v", err), false)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		// The upstream accepted the request; losing the response body leaves
		// the outcome unknown.
		return nil, failure(domain.ErrorKindAmbiguous, fmt.Sprintf("read response: %v", err), true)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, failure(domain.ErrorKindExternalFaucet, fmt.Sprintf("faucet returned status %d", resp.StatusCode), false)
	}
	return raw, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func failure(kind domain.ErrorKind, detail string, ambiguous bool) *domain.ClaimResult {
	return &domain.ClaimResult{
		Outcome:     domain.ClaimOutcomeFailure,
		ErrorKind:   kind,
		ErrorDetail: detail,
		Ambiguous:   ambiguous,
	}
}

func success(amount float64, externalRef string) domain.ClaimResult {
	return domain.ClaimResult{
		Outcome:     domain.ClaimOutcomeSuccess,
		Amount:      domain.RoundAmount(amount),
		ExternalRef: externalRef,
	}
}

func rejected(detail string) domain.ClaimResult {
	if detail == "" {
		detail = "faucet rejected the claim"
	}
	return domain.ClaimResult{
		Outcome:     domain.ClaimOutcomeFailure,
		ErrorKind:   domain.ErrorKindExternalFaucet,
		ErrorDetail: detail,
	}
}

func malformed(err error) domain.ClaimResult {
	return domain.ClaimResult{
		Outcome:     domain.ClaimOutcomeFailure,
		ErrorKind:   domain.ErrorKindExternalFaucet,
		ErrorDetail: fmt.Sprintf("decode response: %v", err),
	}
}
