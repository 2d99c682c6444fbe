package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type batchRequest struct {
	ExternalID string `json:"external_id" binding:"required"`
}

func (s *Server) OpenBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ExternalID) == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	sess, err := s.ingestsvc.OpenBatch(c.Request.Context(), req.ExternalID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (s *Server) CloseBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ExternalID) == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	result, err := s.ingestsvc.CloseBatch(c.Request.Context(), req.ExternalID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) DiscardBatch(c *gin.Context) {
	var req batchRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.ExternalID) == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	if err := s.ingestsvc.DiscardBatch(c.Request.Context(), req.ExternalID); err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"discarded": true})
}
