package mempool

import (
	"fmt"

	"github.com/spacetimechain/consensus-core/pkg/tx"
)

// DefaultMaxCoinSpends bounds a single spend bundle's coin-spend count.
// This is node policy, not a consensus rule: a stricter or looser node
// can set its own Policy without affecting what the chain accepts in a
// block (only BlockCostMax, a consensus rule, does that).
const DefaultMaxCoinSpends = 1000

// Policy defines spend-bundle acceptance rules enforced before a bundle
// reaches txvalidate.Validate, so obviously oversized junk never pays for
// an NPC evaluation.
type Policy struct {
	MaxCoinSpends int // Maximum CoinSpends entries per bundle.
}

// DefaultPolicy returns a policy with sensible defaults.
func DefaultPolicy() *Policy {
	return &Policy{MaxCoinSpends: DefaultMaxCoinSpends}
}

// Check validates a spend bundle against policy rules. Manager.AddSpendBundle
// runs this first, before trying any pool, so an oversized bundle never pays
// for an NPC evaluation.
func (p *Policy) Check(sb *tx.SpendBundle) error {
	if p.MaxCoinSpends > 0 && len(sb.CoinSpends) > p.MaxCoinSpends {
		return fmt.Errorf("spend bundle too large: %d coin spends, max %d", len(sb.CoinSpends), p.MaxCoinSpends)
	}
	return nil
}
