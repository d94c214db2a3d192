package handler

import (
	"fmt"
	"sort"

	"crypto-faucet-gateway/internal/adapter/http/dto"
	"crypto-faucet-gateway/internal/core/domain"
	"crypto-faucet-gateway/internal/core/ports"
	"crypto-faucet-gateway/pkg/apperror"
	"crypto-faucet-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// PriceHandler exposes the oracle's current quote and the faucet catalog.
type PriceHandler struct {
	oracle  ports.PriceOracle
	asset   string
	faucets []domain.Faucet
}

// NewPriceHandler creates a new PriceHandler. The catalog is sorted once at
// construction; faucet reference data never changes at runtime.
func NewPriceHandler(oracle ports.PriceOracle, asset string, faucets []domain.Faucet) *PriceHandler {
	sorted := make([]domain.Faucet, len(faucets))
	copy(sorted, faucets)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })
	return &PriceHandler{oracle: oracle, asset: asset, faucets: sorted}
}

// GetPrice handles GET /api/v1/price?asset=. The asset defaults to the
// oracle's configured one. A stale quote is still served, flagged as stale;
// only a never-fetched price is an error.
func (h *PriceHandler) GetPrice(c *gin.Context) {
	asset := c.Query("asset")
	if asset == "" {
		asset = h.asset
	}

	quote := h.oracle.CurrentQuote(asset)
	if quote == nil {
		if asset != h.asset {
			response.Error(c, apperror.ErrNotFound(fmt.Sprintf("price for asset %q", asset)))
			return
		}
		response.Error(c, apperror.ErrPriceUnavailable())
		return
	}
	response.OK(c, dto.FromQuote(quote))
}

// ListFaucets handles GET /api/v1/faucets.
func (h *PriceHandler) ListFaucets(c *gin.Context) {
	items := make([]dto.FaucetResponse, 0, len(h.faucets))
	for _, f := range h.faucets {
		items = append(items, dto.FromFaucet(f))
	}
	response.OK(c, items)
}
