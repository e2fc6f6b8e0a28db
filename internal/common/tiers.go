package common

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"loyalty-analytics-go/internal/models"

	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// LoadTierCatalog reads the tier catalog YAML. An empty path yields the
// built-in catalog; sections missing from the file keep their defaults.
func LoadTierCatalog(tiersFile string) (*models.TierCatalog, error) {
	catalog := models.DefaultTierCatalog()
	if tiersFile == "" {
		return catalog, nil
	}

	var tiersPath string
	if filepath.IsAbs(tiersFile) {
		tiersPath = tiersFile
	} else {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		tiersPath = filepath.Join(wd, tiersFile)
	}

	data, err := os.ReadFile(tiersPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", tiersFile, err)
	}

	var parsed models.TierCatalog
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", tiersFile, err)
	}

	for i, tier := range parsed.Tiers {
		if tier.Type == "" {
			return nil, fmt.Errorf("tier at index %d missing type", i)
		}
		if tier.Name == "" {
			return nil, fmt.Errorf("tier at index %d missing name", i)
		}
		if tier.Rate < 0 {
			return nil, fmt.Errorf("tier %s has negative rate", tier.Type)
		}
		parsed.Tiers[i].Type = strings.ToUpper(tier.Type)
	}

	if len(parsed.Tiers) > 0 {
		catalog.Tiers = parsed.Tiers
	}
	if parsed.UnknownRate > 0 {
		catalog.UnknownRate = parsed.UnknownRate
	}
	if len(parsed.EarningTitles) > 0 {
		catalog.EarningTitles = make([]string, len(parsed.EarningTitles))
		for i, t := range parsed.EarningTitles {
			catalog.EarningTitles[i] = strings.ToLower(strings.TrimSpace(t))
		}
	}
	if parsed.AddedToWallet != "" {
		catalog.AddedToWallet = strings.ToLower(strings.TrimSpace(parsed.AddedToWallet))
	}

	zap.L().Info("Loaded tier catalog",
		zap.String("file", tiersFile),
		zap.Int("tier_count", len(catalog.Tiers)),
		zap.Int("earning_title_count", len(catalog.EarningTitles)))
	return catalog, nil
}
