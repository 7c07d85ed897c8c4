package config

import "github.com/spacetimechain/consensus-core/pkg/types"

// DefaultMainnet returns the default node configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network: Mainnet,
		DataDir: DefaultDataDir(),
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default node configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	return cfg
}

// Default returns the default node configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	default:
		return DefaultMainnet()
	}
}

// DefaultMainnetParams returns the mainnet consensus parameters. Numeric
// defaults for MaxCoinAmount and BlockCostMax are pinned to the values
// original_source/tests/test_cost_calculation.py exercises; the rest match
// the constant names spec.md §6 requires every component to consult.
func DefaultMainnetParams() *Params {
	return &Params{
		DifficultyStarting:   1_000_000,
		DifficultyEpoch:      2048,
		DifficultyDelay:      256,
		DifficultyWarpFactor: 4,
		DifficultyFactor:     3,
		BlockTimeTarget:      600,
		MinBlockTime:         75,
		VDFIPSStarting:       15_000_000,
		IPSFactor:            3,
		DiscriminantSizeBits: 1024,
		NumberOfTimestamps:   11,
		MaxFutureTime:        7200,
		NumberOfHeads:        3,
		CoinbaseFreezePeriod: 200,
		MaxCoinAmount:        types.MaxCoinAmount,
		BlockCostMax:         6000,
		TxPerSec:             20,
		MempoolBlockBuffer:   10,
		GenesisTimestamp:     1386325540,
	}
}

// DefaultTestnetParams returns the testnet consensus parameters: shorter
// epochs and a lower starting difficulty so a local chain advances quickly.
func DefaultTestnetParams() *Params {
	p := DefaultMainnetParams()
	p.DifficultyStarting = 5
	p.DifficultyEpoch = 12
	p.DifficultyDelay = 3
	p.DifficultyWarpFactor = 4
	p.DifficultyFactor = 3
	p.BlockTimeTarget = 10
	p.MinBlockTime = 5
	p.VDFIPSStarting = 100
	p.CoinbaseFreezePeriod = 20
	return p
}
