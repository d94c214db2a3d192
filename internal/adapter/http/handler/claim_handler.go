package handler

import (
	"strconv"

	"crypto-faucet-gateway/internal/adapter/http/dto"
	"crypto-faucet-gateway/internal/adapter/http/middleware"
	"crypto-faucet-gateway/internal/core/ports"
	"crypto-faucet-gateway/pkg/apperror"
	"crypto-faucet-gateway/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ClaimHandler handles claim dispatch and history endpoints.
type ClaimHandler struct {
	claimSvc     ports.ClaimService
	reportingSvc ports.ReportingService
}

// NewClaimHandler creates a new ClaimHandler.
func NewClaimHandler(claimSvc ports.ClaimService, reportingSvc ports.ReportingService) *ClaimHandler {
	return &ClaimHandler{claimSvc: claimSvc, reportingSvc: reportingSvc}
}

// Dispatch handles POST /api/v1/claims. A client-supplied request_id makes
// the call idempotent; retries with the same id replay the recorded outcome
// instead of hitting the faucet again.
func (h *ClaimHandler) Dispatch(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	var req dto.ClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&req)

	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	rec, err := h.claimSvc.ProcessClaim(c.Request.Context(), ports.ClaimRequest{
		UserID:        userID,
		FaucetType:    req.FaucetType,
		RequestID:     requestID,
		WalletAddress: req.WalletAddress,
		ClientIP:      c.ClientIP(),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, dto.FromClaimRecord(rec))
}

// List handles GET /api/v1/claims — the user's claim history with earnings.
func (h *ClaimHandler) List(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, apperror.ErrInvalidToken())
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, apperror.Validation("limit must be an integer"))
			return
		}
		limit = n
	}

	history, err := h.reportingSvc.GetUserClaims(c.Request.Context(), userID, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.ClaimResponse, 0, len(history.Claims))
	for i := range history.Claims {
		items = append(items, dto.FromClaimRecord(&history.Claims[i]))
	}

	response.OK(c, dto.ClaimListResponse{
		Items: items,
		Summary: dto.EarningsSummaryResponse{
			TotalClaims:    history.Summary.TotalClaims,
			TotalUSDEarned: history.Summary.TotalUSDEarned,
			ClaimsToday:    history.Summary.ClaimsToday,
		},
	})
}
