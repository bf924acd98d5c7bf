package refdata

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ghltech15/fault-watch-sub001/internal/config"
	"github.com/ghltech15/fault-watch-sub001/internal/domain"
)

// Set is the hand-entered reference data behind every derived figure:
// alleged bank positions, countdown targets, the cascade table, and the
// contagion weights. Loaded once at startup from versioned YAML files so
// the inputs to every "insolvency" claim stay auditable.
type Set struct {
	Banks      BankFile
	Countdowns []domain.Countdown
	Cascade    []domain.CascadeThreshold
	Weights    ContagionWeights
}

// BankFile carries the positions plus the provenance header that is
// echoed into API responses.
type BankFile struct {
	Version    string                `yaml:"version" json:"version"`
	AsOf       time.Time             `yaml:"as_of" json:"as_of"`
	Provenance string                `yaml:"provenance" json:"provenance,omitempty"`
	Positions  []domain.BankPosition `yaml:"positions" json:"positions"`
}

type countdownFile struct {
	Countdowns []domain.Countdown `yaml:"countdowns"`
}

type cascadeFile struct {
	Stages  []domain.CascadeThreshold `yaml:"stages"`
	Weights *ContagionWeights         `yaml:"contagion_weights"`
}

// ContagionWeights are the fixed weights of the contagion score. They
// must sum to 1.
type ContagionWeights struct {
	CreditStress  float64 `yaml:"credit_stress" json:"credit_stress"`
	Liquidity     float64 `yaml:"liquidity" json:"liquidity"`
	Delinquencies float64 `yaml:"delinquencies" json:"delinquencies"`
	ComexStatus   float64 `yaml:"comex_status" json:"comex_status"`
}

// DefaultWeights apply when the cascade file carries no override.
var DefaultWeights = ContagionWeights{
	CreditStress:  0.35,
	Liquidity:     0.25,
	Delinquencies: 0.20,
	ComexStatus:   0.20,
}

// Load reads and validates all seed files named by cfg.
func Load(cfg config.RefdataConfig) (*Set, error) {
	set := &Set{Weights: DefaultWeights}

	if err := readYAML(cfg.BanksFile, &set.Banks); err != nil {
		return nil, fmt.Errorf("load bank positions: %w", err)
	}
	if err := validateBanks(set.Banks); err != nil {
		return nil, err
	}

	var cds countdownFile
	if err := readYAML(cfg.CountdownsFile, &cds); err != nil {
		return nil, fmt.Errorf("load countdowns: %w", err)
	}
	set.Countdowns = cds.Countdowns

	var cas cascadeFile
	if err := readYAML(cfg.CascadeFile, &cas); err != nil {
		return nil, fmt.Errorf("load cascade table: %w", err)
	}
	set.Cascade = cas.Stages
	sort.Slice(set.Cascade, func(i, j int) bool { return set.Cascade[i].Price < set.Cascade[j].Price })
	if err := validateCascade(set.Cascade); err != nil {
		return nil, err
	}
	if cas.Weights != nil {
		set.Weights = *cas.Weights
	}
	if err := validateWeights(set.Weights); err != nil {
		return nil, err
	}

	return set, nil
}

func readYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, v)
}

func validateBanks(f BankFile) error {
	if f.Version == "" {
		return fmt.Errorf("bank positions file has no version; derived figures must be traceable")
	}
	seen := make(map[string]bool, len(f.Positions))
	for _, b := range f.Positions {
		if b.BankID == "" {
			return fmt.Errorf("bank position without bank_id")
		}
		if seen[b.BankID] {
			return fmt.Errorf("duplicate bank_id %q", b.BankID)
		}
		seen[b.BankID] = true
		if b.ShortOunces < 0 || b.Tier1Capital <= 0 || b.EntryPrice < 0 {
			return fmt.Errorf("bank %q: negative or zero-capital position", b.BankID)
		}
	}
	return nil
}

func validateCascade(stages []domain.CascadeThreshold) error {
	if len(stages) == 0 {
		return fmt.Errorf("cascade table is empty")
	}
	for i := 1; i < len(stages); i++ {
		if stages[i].Stage <= stages[i-1].Stage {
			return fmt.Errorf("cascade stages must be strictly increasing with price")
		}
	}
	return nil
}

func validateWeights(w ContagionWeights) error {
	sum := w.CreditStress + w.Liquidity + w.Delinquencies + w.ComexStatus
	if sum < 0.999 || sum > 1.001 {
		return fmt.Errorf("contagion weights sum to %.3f, want 1", sum)
	}
	return nil
}
