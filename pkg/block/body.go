package block

import (
	"encoding/binary"

	"github.com/spacetimechain/consensus-core/pkg/crypto"
	"github.com/spacetimechain/consensus-core/pkg/tx"
	"github.com/spacetimechain/consensus-core/pkg/types"
)

// Body is the transactional content of a block.
type Body struct {
	// Coinbase is the 7/8 block-reward coin paid to the pool puzzle hash.
	Coinbase types.Coin `json:"coinbase"`
	// CoinbaseSignature is the pool key's Schnorr/secp256k1 signature over Coinbase's
	// coin name (unfinished-validation step 3).
	CoinbaseSignature []byte `json:"coinbase_signature"`
	// FeesCoin pays block_reward/8 plus the sum of transaction fees to the
	// pool puzzle hash.
	FeesCoin types.Coin `json:"fees_coin"`
	// SpendBundle is nil when the block carries no transactions.
	SpendBundle *tx.SpendBundle `json:"spend_bundle,omitempty"`
	// AggregatedSignature is nil exactly when SpendBundle is nil.
	AggregatedSignature []byte `json:"aggregated_signature,omitempty"`
}

// Hash returns H(body), referenced by HeaderData.BodyHash.
func (b Body) Hash() types.Hash {
	buf := make([]byte, 0, 128)
	buf = append(buf, b.Coinbase.ParentCoinID[:]...)
	buf = append(buf, b.Coinbase.PuzzleHash[:]...)
	buf = binary.BigEndian.AppendUint64(buf, b.Coinbase.Amount)
	buf = append(buf, b.CoinbaseSignature...)
	buf = append(buf, b.FeesCoin.ParentCoinID[:]...)
	buf = append(buf, b.FeesCoin.PuzzleHash[:]...)
	buf = binary.BigEndian.AppendUint64(buf, b.FeesCoin.Amount)
	if b.SpendBundle != nil {
		name := b.SpendBundle.Name()
		buf = append(buf, name[:]...)
	}
	return crypto.Hash(buf)
}

// HasTransactions reports whether the body carries a spend bundle.
func (b Body) HasTransactions() bool {
	return b.SpendBundle != nil
}
