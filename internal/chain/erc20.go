package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/coinharbor/deposit-monitor/internal/utils"
)

// https://etherscan.io/address/0xdac17f958d2ee523a2206206994597c13d831ec7
const UsdtContractAddress = "0xdac17f958d2ee523a2206206994597c13d831ec7"

const erc20ABI = `[{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"}]`

var erc20Abi = func() abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		panic(fmt.Sprintf("invalid erc20 abi: %s", err))
	}
	return parsed
}()

// ContractCaller is the part of ethclient.Client the token checker needs.
type ContractCaller interface {
	CallContract(ctx context.Context, call ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// TokenChecker reads an ERC-20 balance with an eth_call against the
// token contract.
type TokenChecker struct {
	Client   ContractCaller
	Contract common.Address
	Decimals int32
}

func NewUsdtChecker(client ContractCaller) *TokenChecker {
	return &TokenChecker{
		Client:   client,
		Contract: common.HexToAddress(UsdtContractAddress),
		Decimals: utils.UsdtDecimals,
	}
}

func (c *TokenChecker) Check(ctx context.Context, address string) Result {
	newctx, cancel := context.WithTimeout(ctx, time.Second*10)
	defer cancel()

	input, err := erc20Abi.Pack("balanceOf", common.HexToAddress(address))
	if err != nil {
		return Failure(fmt.Errorf("erc20: pack balanceOf: %w", err))
	}

	output, err := c.Client.CallContract(newctx, ethereum.CallMsg{To: &c.Contract, Data: input}, nil)
	if err != nil {
		return Failure(fmt.Errorf("erc20: call contract: %w", err))
	}

	values, err := erc20Abi.Unpack("balanceOf", output)
	if err != nil {
		return Failure(fmt.Errorf("erc20: unpack balanceOf: %w", err))
	}
	raw, ok := values[0].(*big.Int)
	if !ok {
		return Failure(fmt.Errorf("erc20: unexpected balanceOf output %T", values[0]))
	}

	res := Result{Balance: utils.FromBaseUnits(raw, c.Decimals)}
	if raw.Sign() > 0 {
		res.Confirmations = EthConfirmationEstimate
	}
	return res
}
