package tier

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var ErrUnknownTier = errors.New("unknown_tier")

// Policy is the live tier table. Reads go through an atomic snapshot so a
// reload never races a Lookup.
type Policy struct {
	current atomic.Value // holds map[string]Tier
	log     *zap.Logger
}

// NewPolicy builds a Policy from the YAML file at path, falling back to the
// built-in defaults when the file is absent. When a file is present it is
// watched and hot-reloaded; an invalid update is ignored, not applied.
func NewPolicy(path string, log *zap.Logger) (*Policy, error) {
	p := &Policy{log: log.Named("tier.policy")}
	p.current.Store(index(Defaults()))

	if path == "" {
		return p, nil
	}

	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		return p, nil
	}

	tiers, err := decode(v)
	if err != nil {
		return nil, err
	}
	p.current.Store(index(tiers))

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := decode(v)
		if err != nil {
			p.log.Warn("tier policy reload ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		p.current.Store(index(updated))
		p.log.Info("tier policy reloaded", zap.String("file", e.Name), zap.Int("tiers", len(updated)))
	})

	return p, nil
}

// Lookup resolves a tier by name.
func (p *Policy) Lookup(name string) (Tier, error) {
	tiers := p.current.Load().(map[string]Tier)
	t, ok := tiers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Tier{}, ErrUnknownTier
	}
	return t, nil
}

// All returns the current tier table, for the admin surface.
func (p *Policy) All() []Tier {
	tiers := p.current.Load().(map[string]Tier)
	out := make([]Tier, 0, len(tiers))
	for _, t := range tiers {
		out = append(out, t)
	}
	return out
}

func decode(v *viper.Viper) ([]Tier, error) {
	var tiers []Tier
	if err := v.UnmarshalKey("tiers", &tiers); err != nil {
		return nil, err
	}
	if err := validate(tiers); err != nil {
		return nil, err
	}
	return tiers, nil
}

func validate(tiers []Tier) error {
	if len(tiers) == 0 {
		return errors.New("tiers cannot be empty")
	}
	seen := make(map[string]struct{}, len(tiers))
	for _, t := range tiers {
		name := strings.ToLower(strings.TrimSpace(t.Name))
		if name == "" {
			return errors.New("tier name cannot be empty")
		}
		if _, dup := seen[name]; dup {
			return errors.New("duplicate tier name: " + name)
		}
		seen[name] = struct{}{}
		if t.DailyLimit < 0 && t.DailyLimit != UnlimitedLimit {
			return errors.New("tier daily limit must be >= 0 or the unlimited sentinel")
		}
	}
	return nil
}

func index(tiers []Tier) map[string]Tier {
	out := make(map[string]Tier, len(tiers))
	for _, t := range tiers {
		out[strings.ToLower(strings.TrimSpace(t.Name))] = t
	}
	return out
}
