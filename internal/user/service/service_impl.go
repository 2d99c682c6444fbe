package service

import (
	"context"
	"strings"
	"time"

	"github.com/basangdata/ingestd/internal/config"
	"github.com/basangdata/ingestd/internal/tier"
	userdomain "github.com/basangdata/ingestd/internal/user/domain"
	"github.com/basangdata/ingestd/pkg/db"
	"github.com/basangdata/ingestd/pkg/repository"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB     *gorm.DB
	Log    *zap.Logger
	GenID  *snowflake.Node
	Cfg    config.Config
	Policy *tier.Policy
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	users  repository.Repository[userdomain.User]
	policy *tier.Policy
	admins map[string]struct{}
}

func NewService(p ServiceParam) userdomain.Service {
	admins := make(map[string]struct{}, len(p.Cfg.AdminUserIDs))
	for _, id := range p.Cfg.AdminUserIDs {
		admins[id] = struct{}{}
	}
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("user.service"),
		genID:  p.GenID,
		users:  repository.ProvideStore[userdomain.User](p.DB),
		policy: p.Policy,
		admins: admins,
	}
}

func (s *Service) GetOrCreate(ctx context.Context, req userdomain.GetOrCreateRequest) (*userdomain.User, bool, error) {
	externalID := strings.TrimSpace(req.ExternalID)
	if externalID == "" {
		return nil, false, userdomain.ErrInvalidExternalID
	}

	existing, err := s.users.FindOne(ctx, &userdomain.User{ExternalID: externalID})
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		if _, isAdmin := s.admins[externalID]; isAdmin && existing.Tier != "admin" {
			if err := s.users.Updates(ctx, &userdomain.User{ExternalID: externalID}, map[string]any{
				"tier":       "admin",
				"updated_at": time.Now().UTC(),
			}); err != nil {
				return nil, false, err
			}
			existing.Tier = "admin"
			s.log.Info("user promoted to admin tier", zap.String("external_id", externalID))
		}
		return existing, false, nil
	}

	tierName := "free"
	if _, isAdmin := s.admins[externalID]; isAdmin {
		tierName = "admin"
	}

	now := time.Now().UTC()
	created := &userdomain.User{
		ID:         s.genID.Generate(),
		ExternalID: externalID,
		Username:   req.Username,
		Tier:       tierName,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.users.Create(ctx, created); err != nil {
		// Concurrent first contact: someone else won the insert.
		if db.IsDuplicateKeyErr(err) {
			existing, ferr := s.users.FindOne(ctx, &userdomain.User{ExternalID: externalID})
			if ferr != nil {
				return nil, false, ferr
			}
			if existing != nil {
				return existing, false, nil
			}
		}
		return nil, false, err
	}

	s.log.Info("user registered",
		zap.String("external_id", externalID),
		zap.String("tier", tierName),
	)
	return created, true, nil
}

func (s *Service) GetByExternalID(ctx context.Context, externalID string) (*userdomain.User, error) {
	u, err := s.users.FindOne(ctx, &userdomain.User{ExternalID: strings.TrimSpace(externalID)})
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, userdomain.ErrNotFound
	}
	return u, nil
}

func (s *Service) SetTier(ctx context.Context, externalID, tierName string) (*userdomain.User, error) {
	tierName = strings.ToLower(strings.TrimSpace(tierName))
	if _, err := s.policy.Lookup(tierName); err != nil {
		return nil, err
	}
	return s.update(ctx, externalID, map[string]any{"tier": tierName})
}

func (s *Service) SetSinkRef(ctx context.Context, externalID string, sinkRef *string) (*userdomain.User, error) {
	return s.update(ctx, externalID, map[string]any{"sink_ref": sinkRef})
}

func (s *Service) SetTemplate(ctx context.Context, externalID string, fields []string) (*userdomain.User, error) {
	for _, f := range fields {
		if strings.TrimSpace(f) == "" {
			return nil, userdomain.ErrInvalidTemplate
		}
	}
	var value any
	if len(fields) > 0 {
		value = datatypes.NewJSONSlice(fields)
	}
	return s.update(ctx, externalID, map[string]any{"template": value})
}

func (s *Service) SetCustomPrompt(ctx context.Context, externalID string, prompt *string) (*userdomain.User, error) {
	return s.update(ctx, externalID, map[string]any{"custom_prompt": prompt})
}

func (s *Service) CountByTier(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Tier  string
		Count int64
	}
	var rows []row
	err := s.db.WithContext(ctx).
		Model(&userdomain.User{}).
		Select("tier, count(*) as count").
		Group("tier").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.Tier] = r.Count
	}
	return out, nil
}

func (s *Service) update(ctx context.Context, externalID string, values map[string]any) (*userdomain.User, error) {
	u, err := s.GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, err
	}
	values["updated_at"] = time.Now().UTC()
	if err := s.users.Updates(ctx, &userdomain.User{ExternalID: u.ExternalID}, values); err != nil {
		return nil, err
	}
	return s.GetByExternalID(ctx, externalID)
}
