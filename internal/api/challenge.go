package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dietvite/backend/internal/service"
	"github.com/dietvite/backend/internal/types"
)

type ChallengeHandler struct {
	challengeService service.IChallengeService
}

func NewChallengeHandler(challengeService service.IChallengeService) *ChallengeHandler {
	return &ChallengeHandler{challengeService: challengeService}
}

// RegisterRoutes mounts the challenge endpoints; queryLimit guards POST /query
func (h *ChallengeHandler) RegisterRoutes(router *gin.RouterGroup, queryLimit gin.HandlerFunc) {
	challenge := router.Group("/challenge")
	{
		challenge.GET("", h.Get)
		challenge.POST("/reset", h.Reset)
		if queryLimit != nil {
			challenge.POST("/query", queryLimit, h.Query)
		} else {
			challenge.POST("/query", h.Query)
		}
		challenge.GET("/gaps", h.Gaps)
		challenge.GET("/diet-suggestions", h.Suggestions)
		challenge.GET("/review", h.Review)
		challenge.GET("/missed", h.Missed)
		challenge.GET("/score", h.Score)
	}
}

func (h *ChallengeHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	challenge, err := h.challengeService.Get(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, challenge)
}

func (h *ChallengeHandler) Reset(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req types.ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "time_frame must be between 1 and 365"})
		return
	}

	challenge, err := h.challengeService.Reset(c.Request.Context(), userID, req.TimeFrame)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, challenge)
}

func (h *ChallengeHandler) Query(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var req types.QueryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query is required"})
		return
	}

	result, err := h.challengeService.LogQuery(c.Request.Context(), userID, req.Query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *ChallengeHandler) Gaps(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	gaps, err := h.challengeService.Gaps(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"gap_sheet": gaps})
}

func (h *ChallengeHandler) Suggestions(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	advice, err := h.challengeService.Suggestions(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, advice)
}

func (h *ChallengeHandler) Review(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	advice, err := h.challengeService.Review(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, advice)
}

func (h *ChallengeHandler) Missed(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	report, err := h.challengeService.MissedDays(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (h *ChallengeHandler) Score(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	score, err := h.challengeService.Score(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, score)
}
