// Package domain defines the ingestion orchestration contract.
package domain

import (
	"context"

	activitydomain "github.com/basangdata/ingestd/internal/activity/domain"
	batchdomain "github.com/basangdata/ingestd/internal/batch/domain"
	"github.com/basangdata/ingestd/internal/extract"
	quotadomain "github.com/basangdata/ingestd/internal/quota/domain"
	"github.com/bwmarrin/snowflake"
)

// UnitInput is one submittable item. Text and image payloads are mutually
// exclusive; documents arrive as a page slice, each page one unit.
type UnitInput struct {
	Type      activitydomain.UnitType `json:"type"`
	Text      string                  `json:"text,omitempty"`
	ImageMIME string                  `json:"image_mime,omitempty"`
	ImageData []byte                  `json:"image_data,omitempty"`
}

type SubmitRequest struct {
	ExternalID string    `json:"external_id"`
	Username   *string   `json:"username,omitempty"`
	Unit       UnitInput `json:"unit"`
}

// UnitResult reports one admitted attempt. Records is populated inline when
// delivery to the sink failed, so the caller still receives the data the
// attempt paid for.
type UnitResult struct {
	RecordID  snowflake.ID     `json:"record_id"`
	Used      int              `json:"used"`
	Limit     int              `json:"limit"`
	Extracted int              `json:"extracted"`
	Batched   bool             `json:"batched"`
	Delivered bool             `json:"delivered"`
	Records   []extract.Record `json:"records,omitempty"`
}

type DocumentRequest struct {
	ExternalID string      `json:"external_id"`
	Username   *string     `json:"username,omitempty"`
	Pages      []UnitInput `json:"pages"`
}

// PageResult is the per-page outcome inside a document submission. Err is a
// stable error code string, empty on success. Records is populated inline
// when delivery failed, mirroring UnitResult.
type PageResult struct {
	Page      int              `json:"page"`
	Extracted int              `json:"extracted"`
	Batched   bool             `json:"batched,omitempty"`
	Delivered bool             `json:"delivered"`
	Records   []extract.Record `json:"records,omitempty"`
	Err       string           `json:"error,omitempty"`
}

// DocumentResult reports partial admission: when the remaining quota covers
// only a prefix of the pages, the rest are skipped without consuming
// anything.
type DocumentResult struct {
	UnitsProcessed int          `json:"units_processed"`
	UnitsSkipped   int          `json:"units_skipped"`
	Extracted      int          `json:"extracted"`
	Pages          []PageResult `json:"pages"`
}

type UsageView struct {
	ExternalID string            `json:"external_id"`
	Tier       string            `json:"tier"`
	Usage      quotadomain.Usage `json:"usage"`
}

type Service interface {
	SubmitUnit(ctx context.Context, req SubmitRequest) (*UnitResult, error)
	SubmitDocument(ctx context.Context, req DocumentRequest) (*DocumentResult, error)
	Usage(ctx context.Context, externalID string) (*UsageView, error)
	OpenBatch(ctx context.Context, externalID string) (*batchdomain.Session, error)
	CloseBatch(ctx context.Context, externalID string) (*batchdomain.Result, error)
	DiscardBatch(ctx context.Context, externalID string) error
}
