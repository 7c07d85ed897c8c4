// Package validate implements the block validator of spec §4.3: the
// unfinished checks (everything except VDF/challenge continuity) and the
// finished checks (difficulty/iteration accounting and transaction rules).
// Steps that are pure functions of a single candidate block are split out
// as PreValidate so callers can run them on a worker pool (spec §5), then
// feed the result into ValidateBlock to avoid redundant work.
//
// Grounded on the teacher's pkg/block/validate.go checklist structure and
// internal/consensus/{poa,pow}.go worker-pool pre-validation, generalized
// from single-tip PoA/PoW rules to the PoSpace/VDF checklist of spec §4.3.
package validate

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"sync"

	"github.com/spacetimechain/consensus-core/config"
	"github.com/spacetimechain/consensus-core/internal/chainerr"
	"github.com/spacetimechain/consensus-core/internal/retarget"
	"github.com/spacetimechain/consensus-core/internal/txvalidate"
	"github.com/spacetimechain/consensus-core/pkg/block"
	"github.com/spacetimechain/consensus-core/pkg/crypto"
	"github.com/spacetimechain/consensus-core/pkg/proofs"
	"github.com/spacetimechain/consensus-core/pkg/types"
)

// ChainIndex is the read-only header-arena view the validator needs; it is
// a superset of retarget.HeaderIndex so the same concrete chain state can
// satisfy both without adapter types.
type ChainIndex interface {
	retarget.HeaderIndex
}

// PreValidationResult holds the outcome of the four single-block checks
// (spec §4.3 steps 1, 4, 9, 13) that may run on a worker pool ahead of
// serial validation.
type PreValidationResult struct {
	ProofOfSpaceHashOK bool
	HarvesterSigOK     bool
	Quality            types.Hash
	QualityOK          bool
	ProofOfTimeOK      bool
}

// PreValidate runs the single-block checks of spec §4.3 steps 1, 4, 9, 13.
// It touches no chain state and is safe to call concurrently on distinct
// blocks.
func PreValidate(b *block.FullBlock, p *config.Params, pos proofs.PoSpaceVerifier, vdf proofs.VDFVerifier) PreValidationResult {
	var r PreValidationResult

	r.ProofOfSpaceHashOK = proofs.HashProofOfSpace(b.ProofOfSpace) == b.Header.Data.ProofOfSpaceHash
	r.HarvesterSigOK = crypto.VerifySignature(b.Header.Data.Hash().Bytes(), b.Header.HarvesterSig, b.ProofOfSpace.PlotPublicKey)

	quality, ok := pos.VerifyAndGetQuality(b.ProofOfSpace.ChallengeHash, b.ProofOfSpace)
	r.Quality, r.QualityOK = quality, ok

	r.ProofOfTimeOK = vdf.Verify(p.DiscriminantSizeBits, b.ProofOfTime)
	return r
}

// PreValidateBatch dispatches PreValidate over blocks on a worker pool
// sized max(1, NumCPU-1), per spec §5. Results are returned in the same
// order as blocks.
func PreValidateBatch(blocks []*block.FullBlock, p *config.Params, pos proofs.PoSpaceVerifier, vdf proofs.VDFVerifier) []PreValidationResult {
	results := make([]PreValidationResult, len(blocks))
	workers := runtime.NumCPU() - 1
	if workers < 1 {
		workers = 1
	}
	if workers > len(blocks) {
		workers = len(blocks)
	}
	if workers == 0 {
		return results
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = PreValidate(blocks[i], p, pos, vdf)
			}
		}()
	}
	for i := range blocks {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}

// TxDeps bundles the collaborators step 18 needs to run transaction
// validation against the tip the candidate block extends.
type TxDeps struct {
	Lookup txvalidate.UnspentLookup
	Interp proofs.ConditionInterpreter
	Agg    proofs.Aggregator
}

// Result is what a successfully validated block contributes to chain state:
// the difficulty/iteration totals for its HeaderSummary and the unspent-set
// diff from its transactions (if any).
type Result struct {
	Difficulty    uint64
	IPS           uint64
	NumberOfIters uint64
	TxAdditions   map[types.Hash]types.Unspent
	TxRemovals    []types.Hash
}

// ValidateBlock runs the full unfinished+finished checklist of spec §4.3
// against a candidate block extending idx's knowledge of its parent. pre
// is the result of a prior PreValidate/PreValidateBatch call covering
// steps 1, 4, 9 and 13; callers on the single-block path call PreValidate
// inline, callers pre-validating a batch share one PreValidateBatch result.
func ValidateBlock(idx ChainIndex, p *config.Params, b *block.FullBlock, now uint64, pre *PreValidationResult, tx *TxDeps) (*Result, error) {
	if pre == nil {
		return nil, fmt.Errorf("validate: PreValidationResult required")
	}
	genesis := b.IsGenesis()

	// Step 1: H(proof_of_space) == header.data.proof_of_space_hash.
	if !pre.ProofOfSpaceHashOK {
		return nil, chainerr.New(chainerr.CodeBadProofOfSpace, "hash mismatch")
	}

	// Step 2: H(body) == header.data.body_hash.
	if b.Body.Hash() != b.Header.Data.BodyHash {
		return nil, chainerr.New(chainerr.CodeBadHeight, "body hash mismatch")
	}

	// Step 3: pool key signs coinbase.name().
	coinbaseName := crypto.CoinName(b.Body.Coinbase)
	if !crypto.VerifySignature(coinbaseName.Bytes(), b.Body.CoinbaseSignature, b.ProofOfSpace.PoolPublicKey) {
		return nil, chainerr.New(chainerr.CodeBadPoolSignature, "")
	}

	// Step 4: plot key signs H(header.data).
	if !pre.HarvesterSigOK {
		return nil, chainerr.New(chainerr.CodeBadHarvesterSignature, "")
	}

	var prev *block.HeaderSummary
	if !genesis {
		// Step 5: prev_header_hash is known.
		var ok bool
		prev, ok = idx.Summary(b.Header.Data.PrevHeaderHash)
		if !ok {
			return nil, chainerr.New(chainerr.CodeUnknownParent, "")
		}
	}

	// Step 6: timestamp window.
	if err := checkTimestamp(idx, p, b, prev, now); err != nil {
		return nil, err
	}

	// Step 7: filter hash, reserved no-op.

	// Step 8: challenge continuity.
	if genesis {
		if b.ProofOfSpace.ChallengeHash != b.ProofOfTime.ChallengeHash {
			return nil, chainerr.New(chainerr.CodeBadProofOfSpace, "genesis challenge mismatch")
		}
	} else if b.ProofOfSpace.ChallengeHash != prev.ChallengeDigest {
		return nil, chainerr.New(chainerr.CodeBadProofOfSpace, "challenge discontinuity")
	}

	// Step 9: PoSpace quality.
	if !pre.QualityOK {
		return nil, chainerr.New(chainerr.CodeBadProofOfSpace, "quality rejected")
	}
	quality := pre.Quality

	// Step 10: height continuity.
	wantHeight := uint64(0)
	if !genesis {
		wantHeight = prev.Height + 1
	}
	if b.Header.Data.Height != wantHeight {
		return nil, chainerr.Newf(chainerr.CodeBadHeight, "got %d, want %d", b.Header.Data.Height, wantHeight)
	}

	// --- finished checks ---

	var difficulty, ips uint64
	var err error
	if genesis {
		difficulty, ips = p.DifficultyStarting, p.VDFIPSStarting
	} else {
		difficulty, err = retarget.NextDifficulty(idx, p, prev.HeaderHash)
		if err != nil {
			return nil, fmt.Errorf("validate: next_difficulty: %w", err)
		}
		ips, err = retarget.NextIPS(idx, p, prev.HeaderHash)
		if err != nil {
			return nil, fmt.Errorf("validate: next_ips: %w", err)
		}
	}

	numberOfIters := DeriveIterations(quality, b.ProofOfSpace.Size, difficulty, ips, p.MinBlockTime)
	if numberOfIters != b.ProofOfTime.NumIterations {
		return nil, chainerr.Newf(chainerr.CodeBadProofOfTime, "iterations %d, want %d", b.ProofOfTime.NumIterations, numberOfIters)
	}

	// Step 13: VDF validity.
	if !pre.ProofOfTimeOK {
		return nil, chainerr.New(chainerr.CodeBadProofOfTime, "")
	}

	// Step 14: VDF challenge continuity.
	if b.ProofOfTime.ChallengeHash != b.ProofOfSpace.ChallengeHash {
		return nil, chainerr.New(chainerr.CodeBadProofOfTime, "challenge discontinuity")
	}

	// Steps 15-16: weight/iteration totals.
	prevWeight, prevIters := uint64(0), uint64(0)
	if !genesis {
		prevWeight, prevIters = prev.Weight, prev.TotalIters
	}
	if b.Challenge.TotalWeight != prevWeight+difficulty {
		return nil, chainerr.New(chainerr.CodeInvalidWeight, "total_weight mismatch")
	}
	if b.Challenge.TotalIters != prevIters+numberOfIters {
		return nil, chainerr.New(chainerr.CodeInvalidWeight, "total_iters mismatch")
	}

	// Steps 17-18: coinbase amount and transaction validation.
	res := &Result{Difficulty: difficulty, IPS: ips, NumberOfIters: numberOfIters}
	feeBase := p.FeeBase(b.Header.Data.Height)
	if b.Body.Coinbase.Amount != p.CoinbaseAmount(b.Header.Data.Height) {
		return nil, chainerr.New(chainerr.CodeBadCoinbaseAmount, "")
	}

	if b.Body.SpendBundle == nil {
		if b.Body.AggregatedSignature != nil {
			return nil, chainerr.New(chainerr.CodeBadAggregateSignature, "aggregate signature without transactions")
		}
		if b.Body.FeesCoin.Amount != feeBase {
			return nil, chainerr.New(chainerr.CodeBadCoinbaseAmount, "")
		}
		return res, nil
	}

	if genesis {
		return nil, fmt.Errorf("validate: genesis block cannot carry a spend bundle")
	}
	if tx == nil {
		return nil, fmt.Errorf("validate: block carries transactions but no TxDeps supplied")
	}
	tipHash := types.Hash{}
	if prev != nil {
		tipHash = prev.HeaderHash
	}
	txResult, err := txvalidate.Validate(b.Body.SpendBundle, wantHeight-1, tipHash, nil, tx.Lookup, tx.Interp, tx.Agg, txvalidate.Params{
		CoinbaseFreezePeriod: p.CoinbaseFreezePeriod,
		MaxCoinAmount:        p.MaxCoinAmount,
		BlockCostMax:         p.BlockCostMax,
	})
	if err != nil {
		return nil, err
	}
	if b.Body.FeesCoin.Amount != feeBase+txResult.Fees {
		return nil, chainerr.New(chainerr.CodeBadCoinbaseAmount, "")
	}
	res.TxAdditions = txResult.Additions
	res.TxRemovals = txResult.RemovalNames
	return res, nil
}

func checkTimestamp(idx ChainIndex, p *config.Params, b *block.FullBlock, prev *block.HeaderSummary, now uint64) error {
	if b.Header.Data.Timestamp > now+p.MaxFutureTime {
		return chainerr.New(chainerr.CodeFutureTimestamp, "")
	}
	if prev == nil {
		return nil
	}
	samples := lastTimestamps(idx, prev, p.NumberOfTimestamps)
	if len(samples) == 0 {
		return nil
	}
	var sum uint64
	for _, t := range samples {
		sum += t
	}
	mean := sum / uint64(len(samples))
	if b.Header.Data.Timestamp < mean {
		return chainerr.New(chainerr.CodeTimestampTooClose, "")
	}
	return nil
}

// lastTimestamps walks prev_header_hash back up to n steps starting at
// start (inclusive), collecting timestamps for the mean check of step 6.
func lastTimestamps(idx ChainIndex, start *block.HeaderSummary, n uint64) []uint64 {
	out := make([]uint64, 0, n)
	cur := start
	for uint64(len(out)) < n {
		out = append(out, cur.Timestamp)
		if cur.Height == 0 {
			break
		}
		next, ok := idx.Summary(cur.PrevHeaderHash)
		if !ok {
			break
		}
		cur = next
	}
	return out
}

// DeriveIterations derives the required VDF iteration count from a
// proof-of-space quality, plot size, difficulty, VDF speed and the minimum
// block time (spec §4.3 step 12). The exact arithmetic is left open by the
// spec ("derive number_of_iters"); this implementation rewards larger plots
// and lower quality distance with fewer iterations, floors the result at
// min_block_time seconds of VDF work, and is a pure, deterministic function
// so every node computes the identical value (documented open-question
// resolution, DESIGN.md).
func DeriveIterations(quality types.Hash, size uint8, difficulty, ips, minBlockTime uint64) uint64 {
	// Top 16 bits of the quality string give a bounded distance measure
	// without risking overflow once multiplied against difficulty and ips.
	qualityDistance := binary.BigEndian.Uint64(quality[:8]) >> 48

	sizeFactor := uint64(size)
	if sizeFactor == 0 {
		sizeFactor = 1
	}
	perUnitDifficulty := difficulty / sizeFactor
	if perUnitDifficulty == 0 {
		perUnitDifficulty = 1
	}

	iters := perUnitDifficulty * (qualityDistance + 1) * ips
	minIters := minBlockTime * ips
	if iters < minIters {
		return minIters
	}
	return iters
}
