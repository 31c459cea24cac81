// Package rank maps point totals to rank tiers and progress toward the next tier.
package rank

import "github.com/pkg/errors"

// Tier is a named band of point totals.
type Tier string

const (
	Bronze  Tier = "bronze"
	Silver  Tier = "silver"
	Gold    Tier = "gold"
	Diamond Tier = "diamond"
)

var ErrUnknownTier = errors.New("unknown rank tier")

type tierInfo struct {
	tier  Tier
	lower int // inclusive
	name  string
	icon  string
}

// ordered by strictly increasing lower bound; the first bound must be 0
var tiers = []tierInfo{
	{tier: Bronze, lower: 0, name: "Đồng", icon: "🥉"},
	{tier: Silver, lower: 50, name: "Bạc", icon: "🥈"},
	{tier: Gold, lower: 100, name: "Vàng", icon: "🥇"},
	{tier: Diamond, lower: 200, name: "Kim Cương", icon: "💎"},
}

// Tiers returns all tiers, lowest first.
func Tiers() []Tier {
	all := make([]Tier, 0, len(tiers))
	for _, t := range tiers {
		all = append(all, t.tier)
	}
	return all
}

// ParseTier returns the Tier named s.
func ParseTier(s string) (Tier, error) {
	for _, t := range tiers {
		if string(t.tier) == s {
			return t.tier, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownTier, "%q", s)
}

func (t Tier) index() int {
	for i, info := range tiers {
		if info.tier == t {
			return i
		}
	}
	return -1
}

func (t Tier) info() tierInfo {
	if i := t.index(); i >= 0 {
		return tiers[i]
	}
	return tierInfo{tier: t, name: string(t)}
}

// Name returns the display name of the tier.
func (t Tier) Name() string { return t.info().name }

// Icon returns the tier's emoji.
func (t Tier) Icon() string { return t.info().icon }

// LowerBound returns the smallest point total belonging to the tier.
func (t Tier) LowerBound() int { return t.info().lower }

// Next returns the tier right above t, false if t is the top tier.
func (t Tier) Next() (Tier, bool) {
	i := t.index()
	if i < 0 || i+1 >= len(tiers) {
		return "", false
	}
	return tiers[i+1].tier, true
}

// Higher reports whether t ranks strictly above other.
func (t Tier) Higher(other Tier) bool {
	return t.index() > other.index()
}

// IsTop reports whether t is the highest tier.
func (t Tier) IsTop() bool {
	return t.index() == len(tiers)-1
}

// TierOf returns the tier points belongs to. Negative totals are bronze.
func TierOf(points int) Tier {
	for i := len(tiers) - 1; i > 0; i-- {
		if points >= tiers[i].lower {
			return tiers[i].tier
		}
	}
	return tiers[0].tier
}

// Progress describes how far a total is from the next tier.
type Progress struct {
	Percent      int    `json:"percent"`   // [0, 100]
	Remaining    int    `json:"remaining"` // points left to the next tier; 0 at the top tier
	NextTier     *Tier  `json:"next_tier"`
	NextTierName string `json:"next_tier_name,omitempty"`
}

// ProgressOf returns the progress of points toward the next tier.
// Percent is rounded half up and clamped to [0, 100], so negative totals report 0%.
func ProgressOf(points int) Progress {
	tier := TierOf(points)
	next, ok := tier.Next()
	if !ok {
		return Progress{Percent: 100}
	}

	span := next.LowerBound() - tier.LowerBound()
	progress := points - tier.LowerBound()
	if progress < 0 {
		progress = 0
	}
	percent := (200*progress + span) / (2 * span)
	if percent > 100 {
		percent = 100
	}

	return Progress{
		Percent:      percent,
		Remaining:    next.LowerBound() - points,
		NextTier:     &next,
		NextTierName: next.Name(),
	}
}

// Promoted reports whether going from before to after points moves to a strictly higher tier.
func Promoted(before, after int) bool {
	return TierOf(after).Higher(TierOf(before))
}
