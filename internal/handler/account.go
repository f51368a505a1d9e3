package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/1dlvb/async-bank-app/internal/model"
	"github.com/1dlvb/async-bank-app/internal/service"
)

// AccountHandler handles account-related endpoints
type AccountHandler struct {
	accounts *service.AccountService
	log      *zap.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts *service.AccountService, log *zap.Logger) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		log:      log,
	}
}

// CreateAccountRequest represents the request body for creating an account
type CreateAccountRequest struct {
	Owner   string          `json:"owner" binding:"required"`
	Balance decimal.Decimal `json:"balance"`
}

// Create handles POST /v1/accounts
func (h *AccountHandler) Create(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_REQUEST",
			"message": "Invalid request body: " + err.Error(),
		})
		return
	}

	account, err := h.accounts.Create(c.Request.Context(), req.Owner, req.Balance)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, account)
}

// Get handles GET /v1/accounts/:id
func (h *AccountHandler) Get(c *gin.Context) {
	account, err := h.accounts.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, account)
}

// UpdateBalances handles POST /v1/accounts/balances (sequential)
func (h *AccountHandler) UpdateBalances(c *gin.Context) {
	var updates []model.BalanceUpdate
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_REQUEST",
			"message": "Invalid request body: " + err.Error(),
		})
		return
	}

	start := time.Now()
	err := h.accounts.UpdateBalances(c.Request.Context(), updates)
	h.log.Info("sequential balance update completed",
		zap.Int("count", len(updates)),
		zap.Duration("elapsed", time.Since(start)))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// UpdateBalancesAsync handles POST /v1/accounts/balances/async (concurrent)
func (h *AccountHandler) UpdateBalancesAsync(c *gin.Context) {
	var updates []model.BalanceUpdate
	if err := c.ShouldBindJSON(&updates); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_REQUEST",
			"message": "Invalid request body: " + err.Error(),
		})
		return
	}

	start := time.Now()
	err := h.accounts.UpdateBalancesConcurrent(c.Request.Context(), updates)
	h.log.Info("concurrent balance update completed",
		zap.Int("count", len(updates)),
		zap.Duration("elapsed", time.Since(start)))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
