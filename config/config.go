// Package config loads and validates the timing and stake invariants
// shared by the oracle and player engines.
package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the core's external configuration surface, per spec §6.
type Config struct {
	Stake              int64         `toml:"stake"`
	RevealTimeout      time.Duration `toml:"reveal_timeout"`
	CommitTimeout      time.Duration `toml:"commit_timeout"`
	HoldInvoiceExpiry  time.Duration `toml:"hold_invoice_expiry"`
	SettlementSlack    time.Duration `toml:"settlement_slack"`
	GuessNumberRangeMax uint8        `toml:"guess_number_range_max"`
}

// Default returns the spec's documented defaults: 5 minute reveal
// timeout, 2 minute commit timeout, 1 hour hold-invoice expiry, 30
// second settlement slack, [0,99] guess range.
func Default() Config {
	return Config{
		Stake:               1,
		RevealTimeout:       5 * time.Minute,
		CommitTimeout:       2 * time.Minute,
		HoldInvoiceExpiry:   time.Hour,
		SettlementSlack:     30 * time.Second,
		GuessNumberRangeMax: 99,
	}
}

// Load reads and validates a TOML config file, starting from Default()
// so that any field the file does not set keeps its default value; a
// field the file sets to zero stays zero and fails validation.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate enforces the stake and timing invariants required by §6:
// hold_invoice_expiry must outlast the full commit+reveal+settlement
// window, or a legitimately slow settlement could be cancelled out
// from under a winner who has already decrypted the preimage.
func (c Config) Validate() error {
	if c.Stake < 1 {
		return fmt.Errorf("stake must be >= 1 smallest unit, got %d", c.Stake)
	}
	if c.RevealTimeout <= 0 {
		return fmt.Errorf("reveal_timeout must be positive")
	}
	if c.CommitTimeout <= 0 {
		return fmt.Errorf("commit_timeout must be positive")
	}
	if c.SettlementSlack <= 0 {
		return fmt.Errorf("settlement_slack must be positive")
	}
	required := c.CommitTimeout + c.RevealTimeout + c.SettlementSlack
	if c.HoldInvoiceExpiry <= required {
		return fmt.Errorf("hold_invoice_expiry (%s) must exceed commit_timeout+reveal_timeout+settlement_slack (%s)",
			c.HoldInvoiceExpiry, required)
	}
	if c.GuessNumberRangeMax == 0 {
		return fmt.Errorf("guess_number_range_max must be >= 1")
	}
	return nil
}
