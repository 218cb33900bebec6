package api

import (
	"errors"
	"net/http"

	"github.com/punkmap/questledger/internal/model"
	"github.com/punkmap/questledger/internal/service"
	"github.com/punkmap/questledger/pkg/auth"
	"github.com/punkmap/questledger/pkg/logger"
	"github.com/punkmap/questledger/pkg/token"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type questRoutes struct {
	ledger service.QuestLedgerServiceI
	a      *auth.CallerAuth
}

func NewQuestRoutes(handler *gin.RouterGroup, ledger service.QuestLedgerServiceI, a *auth.CallerAuth) {
	r := &questRoutes{ledger: ledger, a: a}
	h := handler.Group("/quests")
	h.Use(a.CallerAuthMiddleware())
	{
		h.POST("", r.CreateQuest)
		h.GET("/:quest_id", r.GetQuest)
		h.GET("/:quest_id/status", r.GetQuestStatus)
		h.GET("/:quest_id/completions/:hero", r.GetHeroCompletions)
		h.POST("/:quest_id/completions", r.CompleteQuest)
		h.POST("/:quest_id/proofs", r.SubmitProofs)
		h.POST("/:quest_id/refund", r.RequestRefund)
		h.PUT("/:quest_id/reclaiming", r.ApproveReclaiming)
		h.POST("/:quest_id/reclaims", r.ReclaimLostProofs)
	}
}

// ledgerErrorResponse maps a ledger error kind to an HTTP status. Callers
// need to tell "rule violated" apart from "not yet eligible", so the error
// string is returned verbatim.
func ledgerErrorResponse(c *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, service.ErrQuestNotFound),
		errors.Is(err, service.ErrTokenNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrQuestAlreadyExists),
		errors.Is(err, service.ErrQuestNotInProgress),
		errors.Is(err, service.ErrSupplyExhausted),
		errors.Is(err, service.ErrRepeatLimitReached),
		errors.Is(err, service.ErrAttemptIndexBad),
		errors.Is(err, service.ErrProofAlreadyPending),
		errors.Is(err, service.ErrNoPendingProof),
		errors.Is(err, service.ErrDuplicateProof),
		errors.Is(err, service.ErrRefundTooEarly),
		errors.Is(err, service.ErrReclaimNotApproved),
		errors.Is(err, service.ErrOverflow):
		status = http.StatusConflict
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrInsufficientFunds):
		status = http.StatusPaymentRequired
	case errors.Is(err, service.ErrInvalidQuestID),
		errors.Is(err, service.ErrInvalidWindow),
		errors.Is(err, service.ErrWrongPayment),
		errors.Is(err, token.ErrOutOfRange):
		status = http.StatusBadRequest
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

type CreateQuestRequest struct {
	ID                  string `json:"id" binding:"required"`
	RewardPerCompletion uint64 `json:"reward_per_completion"`
	StartTime           int64  `json:"start_time"`
	EndTime             int64  `json:"end_time"`
	SupplyLimit         uint64 `json:"supply_limit"`
	RepeatLimit         uint64 `json:"repeat_limit"`
	MetadataRef         string `json:"metadata_ref"`
}

type QuestResponse struct {
	ID                  string `json:"id"`
	Ordinal             uint64 `json:"ordinal"`
	RewardPerCompletion uint64 `json:"reward_per_completion"`
	StartTime           int64  `json:"start_time"`
	EndTime             int64  `json:"end_time"`
	SupplyLimit         uint64 `json:"supply_limit"`
	RepeatLimit         uint64 `json:"repeat_limit"`
	MetadataRef         string `json:"metadata_ref"`
	Owner               string `json:"owner"`
	CompletionCount     uint64 `json:"completion_count"`
	ReclaimApproved     bool   `json:"reclaim_approved"`
}

func questResponse(q *model.Quest) QuestResponse {
	return QuestResponse{
		ID:                  q.ID,
		Ordinal:             q.Ordinal,
		RewardPerCompletion: q.RewardPerCompletion,
		StartTime:           q.StartTime,
		EndTime:             q.EndTime,
		SupplyLimit:         q.SupplyLimit,
		RepeatLimit:         q.RepeatLimit,
		MetadataRef:         q.MetadataRef,
		Owner:               q.Owner,
		CompletionCount:     q.CompletionCount,
		ReclaimApproved:     q.ReclaimApproved,
	}
}

func (r *questRoutes) CreateQuest(c *gin.Context) {
	log := logger.Logger()

	caller, ok := auth.CallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CreateQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind create quest request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	quest := &model.Quest{
		ID:                  req.ID,
		RewardPerCompletion: req.RewardPerCompletion,
		StartTime:           req.StartTime,
		EndTime:             req.EndTime,
		SupplyLimit:         req.SupplyLimit,
		RepeatLimit:         req.RepeatLimit,
		MetadataRef:         req.MetadataRef,
		Owner:               caller,
	}

	if err := r.ledger.CreateQuest(c.Request.Context(), quest); err != nil {
		log.Error("failed to create quest", zap.String("quest_id", req.ID), zap.Error(err))
		ledgerErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusCreated, questResponse(quest))
}

func (r *questRoutes) GetQuest(c *gin.Context) {
	quest, err := r.ledger.GetQuest(c.Request.Context(), c.Param("quest_id"))
	if err != nil {
		ledgerErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, questResponse(quest))
}

func (r *questRoutes) GetQuestStatus(c *gin.Context) {
	inProgress, err := r.ledger.QuestInProgress(c.Request.Context(), c.Param("quest_id"))
	if err != nil {
		ledgerErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"in_progress": inProgress})
}

func (r *questRoutes) GetHeroCompletions(c *gin.Context) {
	count, err := r.ledger.HeroCompletions(c.Request.Context(), c.Param("quest_id"), c.Param("hero"))
	if err != nil {
		ledgerErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"hero": c.Param("hero"), "completions": count})
}

type CompleteQuestRequest struct {
	AttemptIndex uint64 `json:"attempt_index"`
	Hero         string `json:"hero" binding:"required"`
	ProofRef     string `json:"proof_ref"`
}

func (r *questRoutes) CompleteQuest(c *gin.Context) {
	log := logger.Logger()

	caller, ok := auth.CallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req CompleteQuestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind completion request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	questID := c.Param("quest_id")
	tokenID, err := r.ledger.CompleteQuest(c.Request.Context(), questID, req.AttemptIndex, req.Hero, req.ProofRef, caller)
	if err != nil {
		log.Error("failed to complete quest",
			zap.String("quest_id", questID),
			zap.String("hero", req.Hero),
			zap.Error(err))
		ledgerErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token_id": uint64(tokenID)})
}

type SubmitProofsRequest struct {
	ProofRef string `json:"proof_ref" binding:"required"`
	Payment  uint64 `json:"payment"`
}

func (r *questRoutes) SubmitProofs(c *gin.Context) {
	log := logger.Logger()

	caller, ok := auth.CallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req SubmitProofsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Error("failed to bind proof submission", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	questID := c.Param("quest_id")
	if err := r.ledger.SubmitProofs(c.Request.Context(), questID, req.ProofRef, caller, req.Payment); err != nil {
		log.Error("failed to submit proof",
			zap.String("quest_id", questID),
			zap.String("hero", caller),
			zap.Error(err))
		ledgerErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{})
}

func (r *questRoutes) RequestRefund(c *gin.Context) {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	questID := c.Param("quest_id")
	if err := r.ledger.RequestRefund(c.Request.Context(), questID, caller); err != nil {
		logger.Logger().Error("failed to refund proof",
			zap.String("quest_id", questID),
			zap.String("hero", caller),
			zap.Error(err))
		ledgerErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}

type ApproveReclaimingRequest struct {
	Approved *bool `json:"approved" binding:"required"`
}

func (r *questRoutes) ApproveReclaiming(c *gin.Context) {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req ApproveReclaimingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	questID := c.Param("quest_id")
	if err := r.ledger.ApproveReclaiming(c.Request.Context(), questID, *req.Approved, caller); err != nil {
		logger.Logger().Error("failed to set reclaim approval",
			zap.String("quest_id", questID),
			zap.Error(err))
		ledgerErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}

type ReclaimRequest struct {
	Hero string `json:"hero" binding:"required"`
}

func (r *questRoutes) ReclaimLostProofs(c *gin.Context) {
	caller, ok := auth.CallerFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	var req ReclaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	questID := c.Param("quest_id")
	if err := r.ledger.ReclaimLostProofs(c.Request.Context(), questID, req.Hero, caller); err != nil {
		logger.Logger().Error("failed to reclaim proof",
			zap.String("quest_id", questID),
			zap.String("hero", req.Hero),
			zap.Error(err))
		ledgerErrorResponse(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{})
}
