package config

import "fmt"

// Validate checks runtime node config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if cfg.Network != Mainnet && cfg.Network != Testnet {
		return fmt.Errorf("network must be %q or %q", Mainnet, Testnet)
	}
	if cfg.DataDir == "" {
		return fmt.Errorf("datadir must not be empty")
	}
	if cfg.PreValidators < 0 {
		return fmt.Errorf("validate.workers must be >= 0 (0 selects max(1, NumCPU-1))")
	}
	switch cfg.Log.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	return nil
}

// ValidateParams checks a parameter set for obviously inconsistent values
// before it is used to build or validate blocks.
func ValidateParams(p *Params) error {
	if p == nil {
		return fmt.Errorf("params is nil")
	}
	if p.DifficultyStarting == 0 {
		return fmt.Errorf("difficulty_starting must be > 0")
	}
	if p.DifficultyEpoch == 0 {
		return fmt.Errorf("difficulty_epoch must be > 0")
	}
	if p.DifficultyDelay >= p.DifficultyEpoch {
		return fmt.Errorf("difficulty_delay must be < difficulty_epoch")
	}
	if p.BlockTimeTarget == 0 {
		return fmt.Errorf("block_time_target must be > 0")
	}
	if p.NumberOfHeads == 0 {
		return fmt.Errorf("number_of_heads (K) must be > 0")
	}
	if p.VDFIPSStarting == 0 {
		return fmt.Errorf("vdf_ips_starting must be > 0")
	}
	return nil
}
