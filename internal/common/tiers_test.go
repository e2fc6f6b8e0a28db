package common

import (
	"os"
	"path/filepath"
	"testing"

	"loyalty-analytics-go/internal/models"
)

func TestLoadTierCatalogDefaults(t *testing.T) {
	catalog, err := LoadTierCatalog("")
	if err != nil {
		t.Fatalf("LoadTierCatalog failed: %v", err)
	}
	if got := catalog.ByType("silver"); got.Name != models.TierSilver || got.Rate != 0.70 {
		t.Errorf("silver = %+v", got)
	}
}

func TestLoadTierCatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiers.yaml")
	content := `tiers:
  - type: platinum
    name: Platinum
    rate: 1.2
  - type: GOLD
    name: Gold
    rate: 1.0
unknown_rate: 0.3
earning_titles:
  - "  Signup Bonus "
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write tiers file: %v", err)
	}

	catalog, err := LoadTierCatalog(path)
	if err != nil {
		t.Fatalf("LoadTierCatalog failed: %v", err)
	}
	if got := catalog.ByType("PLATINUM"); got.Name != "Platinum" || got.Rate != 1.2 {
		t.Errorf("platinum = %+v", got)
	}
	if got := catalog.ByType("BRONZE"); got.Name != models.TierUnknown || got.Rate != 0.3 {
		t.Errorf("bronze should be unknown once tiers are replaced, got %+v", got)
	}
	if !catalog.IsEarningTitle("signup bonus") {
		t.Error("earning titles should be normalized")
	}
	if catalog.AddedToWallet != "added to wallet" {
		t.Errorf("added to wallet title = %q", catalog.AddedToWallet)
	}
}

func TestLoadTierCatalogInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiers.yaml")
	if err := os.WriteFile(path, []byte("tiers:\n  - name: Gold\n"), 0o600); err != nil {
		t.Fatalf("write tiers file: %v", err)
	}
	if _, err := LoadTierCatalog(path); err == nil {
		t.Fatal("expected an error for a tier without a type")
	}
	if _, err := LoadTierCatalog(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
