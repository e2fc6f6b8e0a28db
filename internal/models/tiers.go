package models

import "strings"

// Tier display names
const (
	TierGold    = "Gold"
	TierSilver  = "Silver"
	TierBronze  = "Bronze"
	TierUnknown = "Unknown"
)

// TierNames lists every tier rollup the aggregate table keeps.
var TierNames = []string{TierGold, TierSilver, TierBronze, TierUnknown}

// TierInfo maps a stored tier type to its display name and redemption rate
type TierInfo struct {
	Type string  `yaml:"type"`
	Name string  `yaml:"name"`
	Rate float64 `yaml:"rate"`
}

// TierCatalog is the loyalty tier lookup plus the wallet titles counted as earnings
type TierCatalog struct {
	Tiers         []TierInfo `yaml:"tiers"`
	UnknownRate   float64    `yaml:"unknown_rate"`
	EarningTitles []string   `yaml:"earning_titles"`
	AddedToWallet string     `yaml:"added_to_wallet_title"`
}

// DefaultTierCatalog returns the built-in tiers and earning titles.
func DefaultTierCatalog() *TierCatalog {
	return &TierCatalog{
		Tiers: []TierInfo{
			{Type: "GOLD", Name: TierGold, Rate: 1.00},
			{Type: "SILVER", Name: TierSilver, Rate: 0.70},
			{Type: "BRONZE", Name: TierBronze, Rate: 0.40},
		},
		UnknownRate: 0.40,
		EarningTitles: []string{
			"signup bonus",
			"referral",
			"referral reward",
			"referral order completed",
			"referral order is completed",
			"loyalty cashback",
		},
		AddedToWallet: "added to wallet",
	}
}

// ByType resolves a stored tier type (case-insensitive) to its info.
// Unrecognized types map to Unknown.
func (c *TierCatalog) ByType(tierType string) TierInfo {
	t := strings.ToUpper(strings.TrimSpace(tierType))
	for _, info := range c.Tiers {
		if info.Type == t {
			return info
		}
	}
	// Stored types are sometimes decorated, e.g. "GOLD_MEMBER".
	if t != "" {
		for _, info := range c.Tiers {
			if strings.Contains(t, info.Type) {
				return info
			}
		}
	}
	return TierInfo{Type: t, Name: TierUnknown, Rate: c.UnknownRate}
}

// RateFor returns the redemption rate for a tier display name.
func (c *TierCatalog) RateFor(name string) float64 {
	for _, info := range c.Tiers {
		if info.Name == name {
			return info.Rate
		}
	}
	return c.UnknownRate
}

// IsEarningTitle reports whether a normalized transaction title counts as an earning.
func (c *TierCatalog) IsEarningTitle(title string) bool {
	for _, t := range c.EarningTitles {
		if t == title {
			return true
		}
	}
	return false
}
