package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/punkmap/questledger/internal/service"
	"github.com/punkmap/questledger/pkg/auth"
	"github.com/punkmap/questledger/pkg/logger"
	"github.com/punkmap/questledger/pkg/token"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type tokenRoutes struct {
	ledger service.QuestLedgerServiceI
	a      *auth.CallerAuth
}

func NewTokenRoutes(handler *gin.RouterGroup, ledger service.QuestLedgerServiceI, a *auth.CallerAuth) {
	r := &tokenRoutes{ledger: ledger, a: a}
	h := handler.Group("/tokens")
	h.Use(a.CallerAuthMiddleware())
	{
		h.GET("/:token_id", r.GetHeroToken)
	}
}

type HeroTokenResponse struct {
	TokenID  uint64    `json:"token_id"`
	QuestID  string    `json:"quest_id"`
	Hero     string    `json:"hero"`
	ProofRef string    `json:"proof_ref"`
	MintedAt time.Time `json:"minted_at"`

	// Fields unpacked from the token id itself.
	Data     uint64 `json:"data"`
	Ordinal  uint64 `json:"ordinal"`
	Category uint64 `json:"category"`
	Version  uint64 `json:"version"`
}

func (r *tokenRoutes) GetHeroToken(c *gin.Context) {
	log := logger.Logger()

	id, err := strconv.ParseUint(c.Param("token_id"), 10, 64)
	if err != nil {
		log.Error("failed to parse token_id", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid token_id"})
		return
	}

	t, err := r.ledger.GetHeroToken(c.Request.Context(), id)
	if err != nil {
		ledgerErrorResponse(c, err)
		return
	}

	packed := token.ID(t.TokenID)
	c.JSON(http.StatusOK, HeroTokenResponse{
		TokenID:  t.TokenID,
		QuestID:  t.QuestID,
		Hero:     t.Hero,
		ProofRef: t.ProofRef,
		MintedAt: t.MintedAt,
		Data:     packed.Data(),
		Ordinal:  packed.Ordinal(),
		Category: packed.Category(),
		Version:  packed.Version(),
	})
}
