package chain

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitcoinCheckerConfirmedFunds(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/address/bc1qtest":
			fmt.Fprint(w, `{"chain_stats":{"funded_txo_sum":1500000,"spent_txo_sum":500000,"tx_count":2},"mempool_stats":{"funded_txo_sum":0,"spent_txo_sum":0,"tx_count":0}}`)
		case "/address/bc1qtest/txs":
			fmt.Fprint(w, `[{"txid":"feedbeef"},{"txid":"cafebabe"}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	checker := NewBitcoinChecker(server.URL, "")
	res := checker.Check(context.Background(), "bc1qtest")

	require.False(t, res.Failed())
	assert.True(t, res.Balance.Equal(decimal.RequireFromString("0.01")), "got %s", res.Balance)
	assert.Equal(t, BtcConfirmationEstimate, res.Confirmations)
	assert.Equal(t, "feedbeef", res.TxHash)
}

func TestBitcoinCheckerMempoolOnly(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/address/bc1qpending":
			fmt.Fprint(w, `{"chain_stats":{"funded_txo_sum":0,"spent_txo_sum":0,"tx_count":0},"mempool_stats":{"funded_txo_sum":2000000,"spent_txo_sum":0,"tx_count":1}}`)
		case "/address/bc1qpending/txs":
			fmt.Fprint(w, `[{"txid":"0ddba11"}]`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	checker := NewBitcoinChecker(server.URL, "")
	res := checker.Check(context.Background(), "bc1qpending")

	require.False(t, res.Failed())
	assert.True(t, res.Balance.Equal(decimal.RequireFromString("0.02")), "got %s", res.Balance)
	assert.Zero(t, res.Confirmations, "mempool funds are unconfirmed")
	assert.Equal(t, "0ddba11", res.TxHash)
}

func TestBitcoinCheckerEmptyAddress(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"chain_stats":{"funded_txo_sum":0,"spent_txo_sum":0,"tx_count":0},"mempool_stats":{"funded_txo_sum":0,"spent_txo_sum":0,"tx_count":0}}`)
	}))
	defer server.Close()

	checker := NewBitcoinChecker(server.URL, "")
	res := checker.Check(context.Background(), "bc1qempty")

	require.False(t, res.Failed())
	assert.True(t, res.Balance.IsZero())
	assert.Zero(t, res.Confirmations)
	assert.Empty(t, res.TxHash)
}

func TestBitcoinCheckerServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer server.Close()

	checker := NewBitcoinChecker(server.URL, "")
	res := checker.Check(context.Background(), "bc1qtest")

	assert.True(t, res.Failed())
	assert.True(t, res.Balance.IsZero())
}

func TestBitcoinCheckerMalformedResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>not json</html>`)
	}))
	defer server.Close()

	checker := NewBitcoinChecker(server.URL, "")
	res := checker.Check(context.Background(), "bc1qtest")

	assert.True(t, res.Failed())
}

func TestBitcoinCheckerSendsApiKey(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"chain_stats":{"funded_txo_sum":0,"spent_txo_sum":0,"tx_count":0},"mempool_stats":{"funded_txo_sum":0,"spent_txo_sum":0,"tx_count":0}}`)
	}))
	defer server.Close()

	checker := NewBitcoinChecker(server.URL, "sekret")
	res := checker.Check(context.Background(), "bc1qtest")

	require.False(t, res.Failed())
	assert.Equal(t, "Bearer sekret", gotAuth)
}
