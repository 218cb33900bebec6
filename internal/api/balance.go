package api

import (
	"net/http"

	"github.com/punkmap/questledger/internal/service"
	"github.com/punkmap/questledger/pkg/auth"
	"github.com/punkmap/questledger/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type balanceRoutes struct {
	ledger service.QuestLedgerServiceI
	a      *auth.CallerAuth
}

func NewBalanceRoutes(handler *gin.RouterGroup, ledger service.QuestLedgerServiceI, a *auth.CallerAuth) {
	r := &balanceRoutes{ledger: ledger, a: a}
	h := handler.Group("/balance")
	h.Use(a.CallerAuthMiddleware())
	{
		h.GET("", r.GetBalance)
		h.POST("/deposit", r.Deposit)
	}
}

func (r *balanceRoutes) GetBalance(c *gin.Context) {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	amount, err := r.ledger.GetBalance(c.Request.Context(), caller)
	if err != nil {
		logger.Logger().Error("failed to get balance", zap.String("account", caller), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get balance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"account": caller, "amount": amount})
}

type DepositRequest struct {
	Amount uint64 `json:"amount" binding:"required"`
}

func (r *balanceRoutes) Deposit(c *gin.Context) {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := r.ledger.Deposit(c.Request.Context(), caller, req.Amount); err != nil {
		logger.Logger().Error("failed to deposit", zap.String("account", caller), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to deposit"})
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}
