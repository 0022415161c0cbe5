package utils

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestFromSatoshi(t *testing.T) {
	type args struct {
		sat int64
	}
	tests := []struct {
		name string
		args args
		want string
	}{
		{"case 1", args{100000000}, "1"},
		{"case 2", args{1000000}, "0.01"},
		{"case 3", args{1}, "0.00000001"},
		{"case 4", args{0}, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, _ := decimal.NewFromString(tt.want)
			if got := FromSatoshi(tt.args.sat); !got.Equal(want) {
				t.Errorf("FromSatoshi() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFromWei(t *testing.T) {
	type args struct {
		wei *big.Int
	}
	tests := []struct {
		name string
		args args
		want string
	}{
		{"case 1", args{big.NewInt(1e18)}, "1"},
		{"case 2", args{big.NewInt(1e17)}, "0.1"},
		{"case 3", args{big.NewInt(1e16)}, "0.01"},
		{"case 4", args{nil}, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, _ := decimal.NewFromString(tt.want)
			if got := FromWei(tt.args.wei); !got.Equal(want) {
				t.Errorf("FromWei() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFromBaseUnits(t *testing.T) {
	type args struct {
		raw      *big.Int
		decimals int32
	}
	tests := []struct {
		name string
		args args
		want string
	}{
		{"usdt 1", args{big.NewInt(1000000), UsdtDecimals}, "1"},
		{"usdt 2", args{big.NewInt(2500000), UsdtDecimals}, "2.5"},
		{"zero", args{nil, UsdtDecimals}, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want, _ := decimal.NewFromString(tt.want)
			if got := FromBaseUnits(tt.args.raw, tt.args.decimals); !got.Equal(want) {
				t.Errorf("FromBaseUnits() = %v, want %v", got, tt.want)
			}
		})
	}
}
