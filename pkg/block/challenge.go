package block

import (
	"encoding/binary"

	"github.com/spacetimechain/consensus-core/pkg/crypto"
	"github.com/spacetimechain/consensus-core/pkg/types"
)

// Challenge is the per-block accounting record chained through
// H(prev.challenge): it pins which proof-of-space and proof-of-time this
// block embeds and carries the running weight/iteration totals checked by
// finished-validation steps 15-16.
type Challenge struct {
	ProofOfSpaceHash types.Hash `json:"proof_of_space_hash"`
	ProofOfTimeHash  types.Hash `json:"proof_of_time_hash"`
	TotalWeight      uint64     `json:"total_weight"`
	TotalIters       uint64     `json:"total_iters"`
}

// Hash returns H(challenge), the value the next block's proof of space and
// proof of time must reference as their challenge_hash.
func (c Challenge) Hash() types.Hash {
	buf := make([]byte, 0, 32*2+16)
	buf = append(buf, c.ProofOfSpaceHash[:]...)
	buf = append(buf, c.ProofOfTimeHash[:]...)
	buf = binary.BigEndian.AppendUint64(buf, c.TotalWeight)
	buf = binary.BigEndian.AppendUint64(buf, c.TotalIters)
	return crypto.Hash(buf)
}
