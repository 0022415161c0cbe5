package utils

import (
	"math/big"

	"github.com/shopspring/decimal"
)

const (
	BtcDecimals  = 8
	EthDecimals  = 18
	UsdtDecimals = 6
)

// FromSatoshi converts a satoshi amount into BTC.
func FromSatoshi(sat int64) decimal.Decimal {
	return decimal.New(sat, -BtcDecimals)
}

// FromWei converts a wei amount into ether.
func FromWei(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -EthDecimals)
}

// FromBaseUnits converts a raw token amount into its readable form.
func FromBaseUnits(raw *big.Int, decimals int32) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -decimals)
}
