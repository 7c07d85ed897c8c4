// Package chainerr defines the error taxonomy consensus validation reports
// and the outcome codes receive_block returns, so callers can branch on
// category without string-matching error text (spec §7).
package chainerr

import "fmt"

// Code identifies the category of a validation failure.
type Code uint8

const (
	// CodeUnknown is the zero value; never returned deliberately.
	CodeUnknown Code = iota

	// Header / proof errors.
	CodeBadProofOfSpace
	CodeBadProofOfTime
	CodeBadDifficulty
	CodeBadTimestamp
	CodeBadPrevHeaderHash
	CodeBadHeight
	CodeBadHarvesterSignature
	CodeBadPoolSignature
	CodeFutureTimestamp
	CodeTimestampTooClose

	// Body / transaction errors.
	CodeBadCoinbaseAmount
	CodeBadCoinbaseSignature
	CodeBadAggregateSignature
	CodeDoubleSpend
	CodeUnknownUnspent
	CodeAssertionFailed
	CodeCostExceeded
	CodeBadPuzzleHash
	CodeCoinAmountExceedsMax
	CodeCoinbaseNotMatured
	CodeMinusCoinValue

	// Chain-structure errors.
	CodeUnknownParent
	CodeAlreadyHaveBlock
	CodeInvalidWeight
)

var names = map[Code]string{
	CodeUnknown:               "unknown",
	CodeBadProofOfSpace:       "bad proof of space",
	CodeBadProofOfTime:        "bad proof of time",
	CodeBadDifficulty:         "bad difficulty",
	CodeBadTimestamp:          "bad timestamp",
	CodeBadPrevHeaderHash:     "bad prev header hash",
	CodeBadHeight:             "bad height",
	CodeBadHarvesterSignature: "bad harvester signature",
	CodeBadPoolSignature:      "bad pool signature",
	CodeFutureTimestamp:       "timestamp too far in the future",
	CodeTimestampTooClose:     "timestamp below mean of last timestamps",
	CodeBadCoinbaseAmount:     "bad coinbase reward amount",
	CodeBadCoinbaseSignature:  "bad coinbase signature",
	CodeBadAggregateSignature: "bad aggregate signature",
	CodeDoubleSpend:           "double spend",
	CodeUnknownUnspent:        "spend of unknown coin",
	CodeAssertionFailed:       "condition assertion failed",
	CodeCostExceeded:          "block cost exceeds maximum",
	CodeBadPuzzleHash:         "puzzle hash mismatch",
	CodeCoinAmountExceedsMax:  "coin amount exceeds maximum",
	CodeCoinbaseNotMatured:    "coinbase spent before freeze period elapsed",
	CodeMinusCoinValue:        "spend bundle does not balance (negative net value)",
	CodeUnknownParent:         "unknown previous header hash",
	CodeAlreadyHaveBlock:      "block already known",
	CodeInvalidWeight:         "block weight does not match cumulative difficulty",
}

func (c Code) String() string {
	if s, ok := names[c]; ok {
		return s
	}
	return "unrecognized error code"
}

// Error wraps a Code with a human-readable detail, so log lines and API
// responses keep both the stable code and the free-form context.
type Error struct {
	Code   Code
	Detail string
}

func (e *Error) Error() string {
	if e.Detail == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Detail)
}

// New constructs an Error for the given code.
func New(code Code, detail string) *Error {
	return &Error{Code: code, Detail: detail}
}

// Newf constructs an Error with a formatted detail.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Detail: fmt.Sprintf(format, args...)}
}

// ReceiveBlockResult is the outcome of Chain.ReceiveBlock (spec §4.1).
type ReceiveBlockResult uint8

const (
	ResultAddedToHead ReceiveBlockResult = iota
	ResultAddedAsOrphan
	ResultAlreadyHaveBlock
	ResultInvalidBlock
	ResultDisconnectedBlock
)

func (r ReceiveBlockResult) String() string {
	switch r {
	case ResultAddedToHead:
		return "added to head"
	case ResultAddedAsOrphan:
		return "added as orphan"
	case ResultAlreadyHaveBlock:
		return "already have block"
	case ResultInvalidBlock:
		return "invalid block"
	case ResultDisconnectedBlock:
		return "disconnected block"
	default:
		return "unknown result"
	}
}
