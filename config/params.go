package config

import "github.com/spacetimechain/consensus-core/pkg/types"

// Params is the immutable set of consensus tunables consulted by every
// other component (spec §2 component A, §6). Once loaded it must not be
// mutated at runtime; tests may construct overrides freely.
type Params struct {
	// Retargeting (spec §4.2).
	DifficultyStarting  uint64
	DifficultyEpoch      uint64
	DifficultyDelay      uint64
	DifficultyWarpFactor uint64
	DifficultyFactor     uint64
	BlockTimeTarget      uint64
	MinBlockTime         uint64
	VDFIPSStarting       uint64
	IPSFactor            uint64
	DiscriminantSizeBits uint32

	// Block validation (spec §4.3).
	NumberOfTimestamps uint64
	MaxFutureTime      uint64

	// Fork-choice (spec §4.1).
	NumberOfHeads uint64 // K, the tip cap

	// Transaction validation (spec §4.4).
	CoinbaseFreezePeriod uint64
	MaxCoinAmount        uint64
	BlockCostMax         uint64

	// Mempool sizing (spec §6).
	TxPerSec           uint64
	MempoolBlockBuffer uint64

	// GenesisChallenge seeds the height-0 proof-of-space challenge_hash.
	GenesisChallenge types.Hash
	GenesisTimestamp uint64
}

// MempoolSize derives the per-tip mempool capacity: TX_PER_SEC *
// BLOCK_TIME_TARGET * MEMPOOL_BLOCK_BUFFER.
func (p *Params) MempoolSize() uint64 {
	return p.TxPerSec * p.BlockTimeTarget * p.MempoolBlockBuffer
}

// BlockReward returns the total block reward at the given height. The
// sampled parameters do not specify a halving schedule, so a constant
// reward is used; callers that need halving can override this by deriving
// their own schedule from height.
func (p *Params) BlockReward(height uint64) uint64 {
	const baseReward = 1_750_000_000 // 1.75e9, matches chia's original genesis reward scale
	return baseReward
}

// CoinbaseAmount returns 7/8 of the block reward, paid to the pool key.
func (p *Params) CoinbaseAmount(height uint64) uint64 {
	return p.BlockReward(height) * 7 / 8
}

// FeeBase returns floor(block_reward/8), the fees-coin base before
// transaction fees are added.
func (p *Params) FeeBase(height uint64) uint64 {
	return p.BlockReward(height) / 8
}
