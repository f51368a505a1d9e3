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

// TransferHandler handles transfer-related endpoints
type TransferHandler struct {
	transfers *service.TransferService
	log       *zap.Logger
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(transfers *service.TransferService, log *zap.Logger) *TransferHandler {
	return &TransferHandler{
		transfers: transfers,
		log:       log,
	}
}

// TransferRequest represents the request body for a single transfer
type TransferRequest struct {
	FromAccountID string          `json:"from_account_id" binding:"required"`
	ToAccountID   string          `json:"to_account_id" binding:"required"`
	Amount        decimal.Decimal `json:"amount" binding:"required"`
}

// Create handles POST /v1/transfers
func (h *TransferHandler) Create(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_REQUEST",
			"message": "Invalid request body: " + err.Error(),
		})
		return
	}

	tx, err := h.transfers.Transfer(c.Request.Context(), req.FromAccountID, req.ToAccountID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, tx)
}

// Safe handles POST /v1/transfers/safe
func (h *TransferHandler) Safe(c *gin.Context) {
	var req TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_REQUEST",
			"message": "Invalid request body: " + err.Error(),
		})
		return
	}

	if err := h.transfers.SafeTransfer(c.Request.Context(), req.FromAccountID, req.ToAccountID, req.Amount); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Batch handles POST /v1/transfers/batch (sequential)
func (h *TransferHandler) Batch(c *gin.Context) {
	requests, ok := h.bindBatch(c)
	if !ok {
		return
	}

	start := time.Now()
	err := h.transfers.ProcessAll(c.Request.Context(), requests)
	h.log.Info("sequential transfer processing completed",
		zap.Int("count", len(requests)),
		zap.Duration("elapsed", time.Since(start)))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// BatchAsync handles POST /v1/transfers/batch/async (concurrent)
func (h *TransferHandler) BatchAsync(c *gin.Context) {
	requests, ok := h.bindBatch(c)
	if !ok {
		return
	}

	start := time.Now()
	err := h.transfers.ProcessAllConcurrent(c.Request.Context(), requests)
	h.log.Info("concurrent transfer processing completed",
		zap.Int("count", len(requests)),
		zap.Duration("elapsed", time.Since(start)))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *TransferHandler) bindBatch(c *gin.Context) ([]model.TransferRequest, bool) {
	var body []TransferRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_REQUEST",
			"message": "Invalid request body: " + err.Error(),
		})
		return nil, false
	}

	requests := make([]model.TransferRequest, 0, len(body))
	for _, r := range body {
		requests = append(requests, model.TransferRequest{
			FromAccountID: r.FromAccountID,
			ToAccountID:   r.ToAccountID,
			Amount:        r.Amount,
		})
	}
	return requests, true
}
