package handler

import (
	"crypto-faucet-gateway/internal/adapter/http/dto"
	"crypto-faucet-gateway/internal/adapter/http/middleware"
	"crypto-faucet-gateway/internal/core/ports"
	"crypto-faucet-gateway/pkg/apperror"
	"crypto-faucet-gateway/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles payout wallet endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// Bind handles PUT /api/v1/wallets — bind or replace the payout address for
// one cryptocurrency.
func (h *WalletHandler) Bind(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.WalletBindRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	binding, err := h.walletSvc.Bind(c.Request.Context(), userID, req.Cryptocurrency, req.Address, c.ClientIP())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, dto.FromWalletBinding(binding))
}

// List handles GET /api/v1/wallets.
func (h *WalletHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	bindings, err := h.walletSvc.List(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.WalletResponse, 0, len(bindings))
	for i := range bindings {
		items = append(items, dto.FromWalletBinding(&bindings[i]))
	}
	response.OK(c, items)
}
