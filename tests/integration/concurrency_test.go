package integration

import (
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestConcurrentClaims_DistinctRequestIDs fires concurrent claims for the
// same (user, faucet) with different request ids. The per-pair critical
// section must let exactly one through; the rest land on the cooldown.
func TestConcurrentClaims_DistinctRequestIDs(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	token := registerAndLogin(t, app, "racer")
	bindWallet(t, app, token, "bitcoin", "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4")

	concurrency := 10

	var wg sync.WaitGroup
	statuses := make([]int, concurrency)
	errCodes := make([]string, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			status, body := doClaimRaw(t, app, token, "bitcoin", "race-"+string(rune('a'+idx)))
			statuses[idx] = status
			if code, ok := body["error_code"].(string); ok {
				errCodes[idx] = code
			}
		}(i)
	}
	wg.Wait()

	var created, cooldown int
	for i, status := range statuses {
		switch status {
		case http.StatusCreated:
			created++
		case http.StatusTooManyRequests:
			cooldown++
			assert.Equal(t, "CLM_001", errCodes[i])
		default:
			t.Errorf("unexpected status %d for request %d", status, i)
		}
	}

	assert.Equal(t, 1, created, "exactly one concurrent claim may dispatch")
	assert.Equal(t, concurrency-1, cooldown, "losers must see the cooldown")
	assert.Equal(t, 1, app.claimRepo.count(), "ledger must hold exactly one record")
}

// TestConcurrentClaims_SameRequestID fires concurrent claims that all carry
// the same request id. Idempotency guarantees they all resolve to the same
// recorded claim and the upstream is dispatched at most once.
func TestConcurrentClaims_SameRequestID(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	token := registerAndLogin(t, app, "replayer")
	bindWallet(t, app, token, "bitcoin", "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4")

	concurrency := 20

	var wg sync.WaitGroup
	claimIDs := make([]string, concurrency)

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			status, data := doClaim(t, app, token, "bitcoin", "same-order-001")
			assert.Equal(t, http.StatusCreated, status)
			if id, ok := data["id"].(string); ok {
				claimIDs[idx] = id
			}
		}(i)
	}
	wg.Wait()

	unique := make(map[string]struct{})
	for _, id := range claimIDs {
		unique[id] = struct{}{}
	}

	assert.Len(t, unique, 1, "all replays must return the same claim")
	assert.Equal(t, 1, app.claimRepo.count(), "ledger must hold exactly one record")
}

// TestConcurrentClaims_IndependentFaucets verifies the critical section is
// scoped per (user, faucet): claims against different faucets do not
// serialize into each other's cooldowns.
func TestConcurrentClaims_IndependentFaucets(t *testing.T) {
	app := newTestApp(t)
	defer app.close()

	token := registerAndLogin(t, app, "multifaucet")
	bindWallet(t, app, token, "bitcoin", "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4")
	bindWallet(t, app, token, "ethereum", "0x71C7656EC7ab88b098defB751B7401B5f6d8976F")

	var wg sync.WaitGroup
	results := make([]int, 2)

	for i, faucetType := range []string{"bitcoin", "ethereum"} {
		wg.Add(1)
		go func(idx int, ft string) {
			defer wg.Done()
			status, _ := doClaimRaw(t, app, token, ft, "cross-001")
			results[idx] = status
		}(i, faucetType)
	}
	wg.Wait()

	assert.Equal(t, http.StatusCreated, results[0], "bitcoin claim should complete")
	assert.Equal(t, http.StatusCreated, results[1], "ethereum claim should complete")
	assert.Equal(t, 2, app.claimRepo.count())
}
