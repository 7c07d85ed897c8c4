package tx

import "github.com/spacetimechain/consensus-core/pkg/types"

// ConditionOpcode names a condition a puzzle attached to its output coins.
type ConditionOpcode uint8

const (
	// OpAggSigMe requires the block's aggregated signature to include a
	// signature by PublicKey over H(Message ‖ coin_name).
	OpAggSigMe ConditionOpcode = iota
	// OpCreateCoin declares an addition: {puzzle_hash, amount}.
	OpCreateCoin
	// OpReserveFee declares a minimum fee the spend contributes.
	OpReserveFee
	// OpAssertBlockIndexExceeds defers the spend until height > Args[0].
	OpAssertBlockIndexExceeds
	// OpAssertBlockAgeExceeds defers the spend until the spent coin is older
	// than Args[0] blocks.
	OpAssertBlockAgeExceeds
)

// Condition is one parsed output of evaluating a puzzle against its solution.
type Condition struct {
	Opcode ConditionOpcode
	Args   [][]byte
}

// NPC ("name puzzle conditions") is the result of evaluating one coin spend:
// which coin, under which puzzle hash, produced which conditions.
type NPC struct {
	CoinName   types.Hash
	PuzzleHash types.Hash
	Conditions []Condition
}
