package server

import (
	"encoding/base64"
	"net/http"
	"strings"

	activitydomain "github.com/basangdata/ingestd/internal/activity/domain"
	ingestdomain "github.com/basangdata/ingestd/internal/ingest/domain"
	"github.com/gin-gonic/gin"
)

type unitPayload struct {
	Type        string `json:"type" binding:"required"`
	Text        string `json:"text"`
	ImageMIME   string `json:"image_mime"`
	ImageBase64 string `json:"image_base64"`
}

type submitUnitRequest struct {
	ExternalID string      `json:"external_id" binding:"required"`
	Username   *string     `json:"username"`
	Unit       unitPayload `json:"unit" binding:"required"`
}

type submitDocumentRequest struct {
	ExternalID string        `json:"external_id" binding:"required"`
	Username   *string       `json:"username"`
	Pages      []unitPayload `json:"pages" binding:"required"`
}

func (s *Server) SubmitUnit(c *gin.Context) {
	var req submitUnitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	unit, err := decodeUnit(req.Unit)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.ingestsvc.SubmitUnit(c.Request.Context(), ingestdomain.SubmitRequest{
		ExternalID: req.ExternalID,
		Username:   req.Username,
		Unit:       unit,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) SubmitDocument(c *gin.Context) {
	var req submitDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Pages) == 0 {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	pages := make([]ingestdomain.UnitInput, 0, len(req.Pages))
	for _, p := range req.Pages {
		unit, err := decodeUnit(p)
		if err != nil {
			AbortWithError(c, err)
			return
		}
		unit.Type = activitydomain.UnitDocumentPage
		pages = append(pages, unit)
	}

	// One document per user at a time; the allocator's prefix split
	// assumes quota is not moving under it from a sibling document.
	token, ok, err := s.limiter.TryLockDocument(c.Request.Context(), req.ExternalID)
	if err == nil && !ok {
		AbortWithError(c, ErrRateLimited)
		return
	}
	if err == nil && token != "" {
		defer s.limiter.ReleaseDocument(c.Request.Context(), req.ExternalID, token)
	}

	result, err := s.ingestsvc.SubmitDocument(c.Request.Context(), ingestdomain.DocumentRequest{
		ExternalID: req.ExternalID,
		Username:   req.Username,
		Pages:      pages,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) GetUsage(c *gin.Context) {
	externalID := strings.TrimSpace(c.Param("external_id"))
	if externalID == "" {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	view, err := s.ingestsvc.Usage(c.Request.Context(), externalID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) ListTiers(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tiers": s.policy.All()})
}

func decodeUnit(p unitPayload) (ingestdomain.UnitInput, error) {
	unitType := activitydomain.UnitType(p.Type)
	switch unitType {
	case activitydomain.UnitImage, activitydomain.UnitDocumentPage:
		if p.ImageBase64 == "" {
			return ingestdomain.UnitInput{}, ErrInvalidRequest
		}
		data, err := base64.StdEncoding.DecodeString(p.ImageBase64)
		if err != nil {
			return ingestdomain.UnitInput{}, ErrInvalidRequest
		}
		mime := p.ImageMIME
		if mime == "" {
			mime = "image/jpeg"
		}
		return ingestdomain.UnitInput{
			Type:      unitType,
			ImageMIME: mime,
			ImageData: data,
		}, nil
	case activitydomain.UnitText:
		if strings.TrimSpace(p.Text) == "" {
			return ingestdomain.UnitInput{}, ErrInvalidRequest
		}
		return ingestdomain.UnitInput{
			Type: unitType,
			Text: p.Text,
		}, nil
	default:
		return ingestdomain.UnitInput{}, ErrInvalidRequest
	}
}
