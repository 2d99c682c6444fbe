// Package tier maps tier names to daily unit limits and capability flags.
package tier

// UnlimitedLimit marks a tier with no daily cap.
const UnlimitedLimit = -1

// Tier is a named quota class. Loaded at startup (and on policy file
// reload); never mutated in place.
type Tier struct {
	Name         string `mapstructure:"name" json:"name"`
	DailyLimit   int    `mapstructure:"dailyLimit" json:"daily_limit"`
	OwnSink      bool   `mapstructure:"ownSink" json:"own_sink"`
	BatchCapable bool   `mapstructure:"batchCapable" json:"batch_capable"`
}

func (t Tier) Unlimited() bool {
	return t.DailyLimit == UnlimitedLimit
}

// Defaults mirrors the launch tier table. The policy file can override it
// or add tiers without any ledger change.
func Defaults() []Tier {
	return []Tier{
		{Name: "free", DailyLimit: 5},
		{Name: "silver", DailyLimit: 50, OwnSink: true},
		{Name: "gold", DailyLimit: 150, OwnSink: true, BatchCapable: true},
		{Name: "platinum", DailyLimit: 300, OwnSink: true, BatchCapable: true},
		{Name: "admin", DailyLimit: UnlimitedLimit, OwnSink: true, BatchCapable: true},
	}
}
