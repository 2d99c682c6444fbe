package service

import (
	"context"
	"errors"

	activitydomain "github.com/basangdata/ingestd/internal/activity/domain"
	"github.com/basangdata/ingestd/internal/allocator"
	batchdomain "github.com/basangdata/ingestd/internal/batch/domain"
	"github.com/basangdata/ingestd/internal/config"
	"github.com/basangdata/ingestd/internal/extract"
	"github.com/basangdata/ingestd/internal/inference"
	ingestdomain "github.com/basangdata/ingestd/internal/ingest/domain"
	"github.com/basangdata/ingestd/internal/metrics"
	quotadomain "github.com/basangdata/ingestd/internal/quota/domain"
	sinkdomain "github.com/basangdata/ingestd/internal/sink/domain"
	"github.com/basangdata/ingestd/internal/tier"
	userdomain "github.com/basangdata/ingestd/internal/user/domain"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type ServiceParam struct {
	fx.In

	Log       *zap.Logger
	Cfg       config.Config
	Policy    *tier.Policy
	Users     userdomain.Service
	Ledger    quotadomain.Ledger
	Inference inference.Client
	Sink      sinkdomain.Sink
	Batch     batchdomain.Manager
	GenID     *snowflake.Node
	Metrics   *metrics.Metrics `optional:"true"`
}

// Service drives a unit through reserve, infer, extract, deliver, complete.
// Quota is the gate, not the undo log: once Reserve admits a unit the
// attempt is paid for whatever happens downstream.
type Service struct {
	log       *zap.Logger
	cfg       config.Config
	policy    *tier.Policy
	users     userdomain.Service
	ledger    quotadomain.Ledger
	inference inference.Client
	sink      sinkdomain.Sink
	batch     batchdomain.Manager
	genID     *snowflake.Node
	metrics   *metrics.Metrics
}

func NewService(p ServiceParam) ingestdomain.Service {
	return &Service{
		log:       p.Log.Named("ingest.service"),
		cfg:       p.Cfg,
		policy:    p.Policy,
		users:     p.Users,
		ledger:    p.Ledger,
		inference: p.Inference,
		sink:      p.Sink,
		batch:     p.Batch,
		genID:     p.GenID,
		metrics:   p.Metrics,
	}
}

func (s *Service) SubmitUnit(ctx context.Context, req ingestdomain.SubmitRequest) (*ingestdomain.UnitResult, error) {
	usr, t, err := s.resolve(ctx, req.ExternalID, req.Username)
	if err != nil {
		return nil, err
	}

	res, err := s.ledger.Reserve(ctx, usr.ID, t, req.Unit.Type)
	if err != nil {
		return nil, err
	}

	records, err := s.process(ctx, usr, req.Unit)
	if err != nil {
		s.completeFailure(ctx, res.RecordID, req.Unit.Type, err)
		return nil, err
	}

	out := &ingestdomain.UnitResult{
		RecordID:  res.RecordID,
		Used:      res.Used,
		Limit:     res.Limit,
		Extracted: len(records),
	}
	s.deliver(ctx, usr, t, records, out)
	s.completeSuccess(ctx, res.RecordID, req.Unit.Type, len(records))
	return out, nil
}

// SubmitDocument admits as many pages as the remaining quota covers. The
// allocator decides the split up front; each admitted page still goes
// through Reserve, so a concurrent submission can only shrink the
// processed prefix, never overrun the limit.
func (s *Service) SubmitDocument(ctx context.Context, req ingestdomain.DocumentRequest) (*ingestdomain.DocumentResult, error) {
	usr, t, err := s.resolve(ctx, req.ExternalID, req.Username)
	if err != nil {
		return nil, err
	}

	total := len(req.Pages)
	remaining, err := s.ledger.Remaining(ctx, usr.ID, t, total)
	if err != nil {
		return nil, err
	}
	toProcess, skipped := allocator.Allocate(remaining, total)
	if toProcess == 0 {
		usage, uerr := s.ledger.UsedToday(ctx, usr.ID, t)
		if uerr != nil {
			return nil, uerr
		}
		return nil, &quotadomain.DeniedError{Used: usage.Used, Limit: usage.Limit}
	}

	result := &ingestdomain.DocumentResult{UnitsSkipped: skipped}
	for i := 0; i < toProcess; i++ {
		page := req.Pages[i]
		pageRes := ingestdomain.PageResult{Page: i + 1}

		res, err := s.ledger.Reserve(ctx, usr.ID, t, page.Type)
		if err != nil {
			var denied *quotadomain.DeniedError
			if errors.As(err, &denied) {
				result.UnitsSkipped += toProcess - i
				break
			}
			return nil, err
		}

		records, err := s.process(ctx, usr, page)
		if err != nil {
			s.completeFailure(ctx, res.RecordID, page.Type, err)
			pageRes.Err = errorCode(err)
			result.Pages = append(result.Pages, pageRes)
			result.UnitsProcessed++
			continue
		}

		out := &ingestdomain.UnitResult{}
		s.deliver(ctx, usr, t, records, out)
		s.completeSuccess(ctx, res.RecordID, page.Type, len(records))

		pageRes.Extracted = len(records)
		pageRes.Batched = out.Batched
		pageRes.Delivered = out.Delivered
		pageRes.Records = out.Records
		result.Pages = append(result.Pages, pageRes)
		result.UnitsProcessed++
		result.Extracted += len(records)
	}
	return result, nil
}

func (s *Service) Usage(ctx context.Context, externalID string) (*ingestdomain.UsageView, error) {
	usr, t, err := s.lookup(ctx, externalID)
	if err != nil {
		return nil, err
	}
	usage, err := s.ledger.UsedToday(ctx, usr.ID, t)
	if err != nil {
		return nil, err
	}
	return &ingestdomain.UsageView{
		ExternalID: usr.ExternalID,
		Tier:       t.Name,
		Usage:      usage,
	}, nil
}

func (s *Service) OpenBatch(ctx context.Context, externalID string) (*batchdomain.Session, error) {
	usr, t, err := s.lookup(ctx, externalID)
	if err != nil {
		return nil, err
	}
	if !t.BatchCapable {
		return nil, batchdomain.ErrNotEligible
	}
	sess, err := s.batch.Open(ctx, usr.ID, s.template(usr))
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *Service) CloseBatch(ctx context.Context, externalID string) (*batchdomain.Result, error) {
	usr, _, err := s.lookup(ctx, externalID)
	if err != nil {
		return nil, err
	}
	res, err := s.batch.Close(ctx, usr.ID)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (s *Service) DiscardBatch(ctx context.Context, externalID string) error {
	usr, _, err := s.lookup(ctx, externalID)
	if err != nil {
		return err
	}
	return s.batch.Discard(ctx, usr.ID)
}

// process runs inference and extraction for one unit. Transport failures
// get a bounded retry; extraction failures do not, the model already
// answered.
func (s *Service) process(ctx context.Context, usr *userdomain.User, unit ingestdomain.UnitInput) ([]extract.Record, error) {
	template := s.template(usr)
	req := inference.Request{
		Prompt:    inference.BuildPrompt(usr.CustomPrompt, template),
		Text:      unit.Text,
		ImageMIME: unit.ImageMIME,
		ImageData: unit.ImageData,
	}

	var raw string
	var err error
	for attempt := 0; attempt <= s.cfg.Inference.MaxRetries; attempt++ {
		raw, err = s.inference.Infer(ctx, req)
		if err == nil || !inference.IsRetryable(err) || ctx.Err() != nil {
			break
		}
		s.log.Warn("inference retry",
			zap.String("user_id", usr.ExternalID),
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	if err != nil {
		return nil, err
	}

	records, err := extract.Extract(raw, template)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// deliver routes records to the user's open batch session if one exists,
// otherwise to the resolved sink. A sink failure does not fail the attempt;
// the records ride back to the caller inline instead.
func (s *Service) deliver(ctx context.Context, usr *userdomain.User, t tier.Tier, records []extract.Record, out *ingestdomain.UnitResult) {
	if len(records) == 0 {
		out.Delivered = true
		return
	}

	if s.batch.IsOpen(usr.ID) {
		rows := make([][]string, 0, len(records))
		for _, rec := range records {
			rows = append(rows, rec.Row())
		}
		err := s.batch.Append(ctx, usr.ID, rows)
		if err == nil {
			out.Batched = true
			out.Delivered = true
			return
		}
		s.log.Error("batch append failed, falling through to sink",
			zap.String("user_id", usr.ExternalID),
			zap.Error(err),
		)
	}

	ref := s.sinkRef(usr, t)
	sinkRows := make([]sinkdomain.Row, 0, len(records))
	for _, rec := range records {
		values := make(map[string]any, len(rec.Fields))
		for _, f := range rec.Fields {
			values[f] = rec.Values[f]
		}
		sinkRows = append(sinkRows, sinkdomain.Row{
			ID:     s.genID.Generate(),
			UserID: usr.ID,
			Fields: rec.Fields,
			Values: values,
		})
	}
	if err := s.sink.AppendRows(ctx, ref, sinkRows); err != nil {
		s.log.Error("sink delivery failed, returning records inline",
			zap.String("user_id", usr.ExternalID),
			zap.String("sink_ref", ref),
			zap.Error(err),
		)
		out.Records = records
		return
	}
	out.Delivered = true
}

func (s *Service) resolve(ctx context.Context, externalID string, username *string) (*userdomain.User, tier.Tier, error) {
	usr, _, err := s.users.GetOrCreate(ctx, userdomain.GetOrCreateRequest{
		ExternalID: externalID,
		Username:   username,
	})
	if err != nil {
		return nil, tier.Tier{}, err
	}
	t, err := s.policy.Lookup(usr.Tier)
	if err != nil {
		return nil, tier.Tier{}, err
	}
	return usr, t, nil
}

func (s *Service) lookup(ctx context.Context, externalID string) (*userdomain.User, tier.Tier, error) {
	usr, err := s.users.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, tier.Tier{}, err
	}
	t, err := s.policy.Lookup(usr.Tier)
	if err != nil {
		return nil, tier.Tier{}, err
	}
	return usr, t, nil
}

func (s *Service) template(usr *userdomain.User) []string {
	if len(usr.Template) > 0 {
		return usr.Template
	}
	return extract.DefaultTemplate()
}

func (s *Service) sinkRef(usr *userdomain.User, t tier.Tier) string {
	if t.OwnSink && usr.SinkRef != nil && *usr.SinkRef != "" {
		return *usr.SinkRef
	}
	return s.cfg.DefaultSinkRef
}

func (s *Service) completeSuccess(ctx context.Context, recordID snowflake.ID, unit activitydomain.UnitType, extracted int) {
	if err := s.ledger.CompleteSuccess(ctx, recordID, extracted); err != nil {
		s.log.Error("complete success failed", zap.String("record_id", recordID.String()), zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.UnitsTotal.WithLabelValues(string(unit), string(activitydomain.OutcomeAccepted)).Inc()
		s.metrics.RecordsExtracted.Add(float64(extracted))
	}
}

func (s *Service) completeFailure(ctx context.Context, recordID snowflake.ID, unit activitydomain.UnitType, cause error) {
	if err := s.ledger.CompleteFailure(ctx, recordID, cause.Error()); err != nil {
		s.log.Error("complete failure failed", zap.String("record_id", recordID.String()), zap.Error(err))
	}
	if s.metrics != nil {
		s.metrics.UnitsTotal.WithLabelValues(string(unit), string(activitydomain.OutcomeFailed)).Inc()
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, inference.ErrTimeout):
		return "inference_timeout"
	case errors.Is(err, inference.ErrTransport):
		return "inference_transport_error"
	case errors.Is(err, extract.ErrNoStructureFound):
		return "extraction_no_structure_found"
	case errors.Is(err, extract.ErrMalformedAfterRepair):
		return "extraction_malformed_after_repair"
	case errors.Is(err, extract.ErrEmptyResult):
		return "extraction_empty_result"
	default:
		return "internal_error"
	}
}
