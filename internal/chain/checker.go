// Package chain holds one balance checker per supported currency. A
// checker queries an explorer or node API for the funds currently
// sitting on an address and never touches the data model.
//
// Confirmation counts are an estimate, not a chain-depth query: once a
// funding transaction is confirmed the checker reports a fixed number
// of confirmations. This mirrors the behaviour of the explorer APIs the
// service was built against.
package chain

import (
	"context"

	"github.com/shopspring/decimal"
)

// Confirmation estimates reported once a funding transaction is
// confirmed on the respective chain.
const (
	BtcConfirmationEstimate uint64 = 6
	EthConfirmationEstimate uint64 = 12
)

type Checker interface {
	// Check returns the observed state of the address. Transport and
	// parse failures are captured in the Result instead of an error
	// return; the caller retries on its next tick, Check itself never
	// retries.
	Check(ctx context.Context, address string) Result
}

// Result is the outcome of a single address check. A failed Result
// carries no observation at all.
type Result struct {
	Balance       decimal.Decimal
	Confirmations uint64
	TxHash        string
	Err           error
}

func Failure(err error) Result {
	return Result{Err: err}
}

func (r Result) Failed() bool {
	return r.Err != nil
}
