package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

func (s *Server) AdminStats(c *gin.Context) {
	ctx := c.Request.Context()

	byTier, err := s.usersvc.CountByTier(ctx)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	dayStart, _ := s.ledger.DayWindow(s.clk.Now())
	activity, err := s.records.Stats(ctx, dayStart)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users_by_tier": byTier,
		"activity":      activity,
	})
}

type setTierRequest struct {
	Tier string `json:"tier" binding:"required"`
}

func (s *Server) SetUserTier(c *gin.Context) {
	var req setTierRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	usr, err := s.usersvc.SetTier(c.Request.Context(), c.Param("external_id"), strings.TrimSpace(req.Tier))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, usr)
}

type setSinkRequest struct {
	SinkRef *string `json:"sink_ref"`
}

func (s *Server) SetUserSink(c *gin.Context) {
	var req setSinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	usr, err := s.usersvc.SetSinkRef(c.Request.Context(), c.Param("external_id"), req.SinkRef)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, usr)
}

type setTemplateRequest struct {
	Fields []string `json:"fields"`
}

func (s *Server) SetUserTemplate(c *gin.Context) {
	var req setTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	usr, err := s.usersvc.SetTemplate(c.Request.Context(), c.Param("external_id"), req.Fields)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, usr)
}

type setPromptRequest struct {
	Prompt *string `json:"prompt"`
}

func (s *Server) SetUserPrompt(c *gin.Context) {
	var req setPromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	usr, err := s.usersvc.SetCustomPrompt(c.Request.Context(), c.Param("external_id"), req.Prompt)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, usr)
}
