package chain

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/coinharbor/deposit-monitor/internal/utils"
)

// BalanceReader is the part of ethclient.Client the ether checker needs.
type BalanceReader interface {
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// EthereumChecker reads the native ether balance of an address from a
// node RPC endpoint. Node APIs cannot list transactions per address, so
// no tx hash evidence is reported for ether deposits.
type EthereumChecker struct {
	Client BalanceReader
}

func NewEthereumChecker(client BalanceReader) *EthereumChecker {
	return &EthereumChecker{Client: client}
}

func (c *EthereumChecker) Check(ctx context.Context, address string) Result {
	newctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	wei, err := c.Client.BalanceAt(newctx, common.HexToAddress(address), nil)
	if err != nil {
		return Failure(fmt.Errorf("ethereum: balance at: %w", err))
	}

	res := Result{Balance: utils.FromWei(wei)}
	if wei.Sign() > 0 {
		res.Confirmations = EthConfirmationEstimate
	}
	return res
}
