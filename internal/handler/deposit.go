package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/1dlvb/async-bank-app/internal/service"
)

const defaultStatisticsRate = 10

// DepositHandler handles deposit-related endpoints
type DepositHandler struct {
	deposits *service.DepositService
	log      *zap.Logger
}

// NewDepositHandler creates a new deposit handler
func NewDepositHandler(deposits *service.DepositService, log *zap.Logger) *DepositHandler {
	return &DepositHandler{
		deposits: deposits,
		log:      log,
	}
}

// OpenDepositRequest represents the request body for opening a deposit
type OpenDepositRequest struct {
	AccountID string  `json:"account_id" binding:"required"`
	Balance   float64 `json:"balance"`
	Rate      float64 `json:"rate" binding:"required"`
}

// StatisticsBatchRequest represents the request body for batch statistics
type StatisticsBatchRequest struct {
	DepositIDs []string `json:"deposit_ids" binding:"required"`
}

// Create handles POST /v1/deposits
func (h *DepositHandler) Create(c *gin.Context) {
	var req OpenDepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_REQUEST",
			"message": "Invalid request body: " + err.Error(),
		})
		return
	}

	deposit, err := h.deposits.CreateDeposit(c.Request.Context(), req.AccountID, req.Balance, req.Rate)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, deposit)
}

// Get handles GET /v1/deposits/:id
func (h *DepositHandler) Get(c *gin.Context) {
	deposit, err := h.deposits.GetDeposit(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, deposit)
}

// Statistics handles GET /v1/deposits/:id/statistics?rate=&year=
func (h *DepositHandler) Statistics(c *gin.Context) {
	rate, year, ok := h.parseStatisticsParams(c)
	if !ok {
		return
	}

	start := time.Now()
	calculations, err := h.deposits.CalculationsByDateAndRate(
		c.Request.Context(), asOfDate(year), rate, c.Param("id"))
	h.log.Info("statistics completed",
		zap.Duration("elapsed", time.Since(start)))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, calculations)
}

// StatisticsBatch handles POST /v1/deposits/statistics?rate=&year= (sequential)
func (h *DepositHandler) StatisticsBatch(c *gin.Context) {
	h.statisticsBatch(c, false)
}

// StatisticsBatchAsync handles POST /v1/deposits/statistics/async (concurrent)
func (h *DepositHandler) StatisticsBatchAsync(c *gin.Context) {
	h.statisticsBatch(c, true)
}

func (h *DepositHandler) statisticsBatch(c *gin.Context, concurrent bool) {
	var req StatisticsBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_REQUEST",
			"message": "Invalid request body: " + err.Error(),
		})
		return
	}
	rate, year, ok := h.parseStatisticsParams(c)
	if !ok {
		return
	}

	start := time.Now()
	var (
		calculations map[string]map[string]string
		err          error
	)
	if concurrent {
		calculations, err = h.deposits.CalculationsForDepositsConcurrent(
			c.Request.Context(), asOfDate(year), rate, req.DepositIDs)
	} else {
		calculations, err = h.deposits.CalculationsForDeposits(
			c.Request.Context(), asOfDate(year), rate, req.DepositIDs)
	}
	h.log.Info("batch statistics completed",
		zap.Bool("concurrent", concurrent),
		zap.Int("count", len(req.DepositIDs)),
		zap.Duration("elapsed", time.Since(start)))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, calculations)
}

// Volatility handles GET /v1/volatility?iterations=&mode=
func (h *DepositHandler) Volatility(c *gin.Context) {
	iterations := 1000
	if raw := c.Query("iterations"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_ARGUMENT",
				"message": "iterations must be a non-negative integer",
			})
			return
		}
		iterations = parsed
	}

	now := time.Now().UnixMilli()
	mode := c.DefaultQuery("mode", "sequential")

	start := time.Now()
	var volatility float64
	switch mode {
	case "sequential":
		volatility = h.deposits.Volatility(now, iterations)
	case "batched":
		volatility = h.deposits.VolatilityBatched(now, iterations)
	case "perfactor":
		volatility = h.deposits.VolatilityPerFactor(now, iterations)
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_ARGUMENT",
			"message": "mode must be one of: sequential, batched, perfactor",
		})
		return
	}
	h.log.Info("volatility computed",
		zap.String("mode", mode),
		zap.Int("iterations", iterations),
		zap.Duration("elapsed", time.Since(start)))

	c.JSON(http.StatusOK, gin.H{
		"mode":       mode,
		"iterations": iterations,
		"volatility": volatility,
	})
}

func (h *DepositHandler) parseStatisticsParams(c *gin.Context) (rate float64, year int, ok bool) {
	rate = defaultStatisticsRate
	if raw := c.Query("rate"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"code":    "INVALID_ARGUMENT",
				"message": "rate must be a number",
			})
			return 0, 0, false
		}
		rate = parsed
	}

	yearRaw := c.Query("year")
	if yearRaw == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_ARGUMENT",
			"message": "year query parameter is required",
		})
		return 0, 0, false
	}
	parsed, err := strconv.Atoi(yearRaw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":    "INVALID_ARGUMENT",
			"message": "year must be an integer",
		})
		return 0, 0, false
	}
	return rate, parsed, true
}

// asOfDate anchors a projection year to January 1st, matching how
// statistics horizons are expressed by callers.
func asOfDate(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}
