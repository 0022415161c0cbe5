package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coinharbor/deposit-monitor/internal/utils"
)

// BitcoinChecker reads address state from an esplora-style block
// explorer (blockstream.info and compatible hosts).
type BitcoinChecker struct {
	Endpoint string
	ApiKey   string
	Client   *http.Client
}

func NewBitcoinChecker(endpoint, apiKey string) *BitcoinChecker {
	return &BitcoinChecker{
		Endpoint: endpoint,
		ApiKey:   apiKey,
		Client:   &http.Client{Timeout: time.Second * 15},
	}
}

type btcTxoStats struct {
	FundedTxoSum int64 `json:"funded_txo_sum"`
	SpentTxoSum  int64 `json:"spent_txo_sum"`
	TxCount      int64 `json:"tx_count"`
}

type btcAddressInfo struct {
	ChainStats   btcTxoStats `json:"chain_stats"`
	MempoolStats btcTxoStats `json:"mempool_stats"`
}

type btcTx struct {
	Txid string `json:"txid"`
}

func (c *BitcoinChecker) Check(ctx context.Context, address string) Result {
	var info btcAddressInfo
	if err := c.getJSON(ctx, "/address/"+address, &info); err != nil {
		return Failure(fmt.Errorf("bitcoin: address info: %w", err))
	}

	confirmed := info.ChainStats.FundedTxoSum - info.ChainStats.SpentTxoSum
	unconfirmed := info.MempoolStats.FundedTxoSum - info.MempoolStats.SpentTxoSum

	res := Result{Balance: utils.FromSatoshi(confirmed + unconfirmed)}
	if info.ChainStats.TxCount > 0 {
		// a confirmed funding tx is treated as fully buried
		res.Confirmations = BtcConfirmationEstimate
	}

	if info.ChainStats.TxCount > 0 || info.MempoolStats.TxCount > 0 {
		// best effort: the balance observation stands even if the tx
		// listing is unavailable
		var txs []btcTx
		if err := c.getJSON(ctx, "/address/"+address+"/txs", &txs); err == nil && len(txs) > 0 {
			res.TxHash = txs[0].Txid
		}
	}
	return res
}

func (c *BitcoinChecker) getJSON(ctx context.Context, path string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint+path, nil)
	if err != nil {
		return fmt.Errorf("create req: %w", err)
	}
	req.Header.Add("Accept", "application/json")
	if c.ApiKey != "" {
		req.Header.Add("Authorization", "Bearer "+c.ApiKey)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return fmt.Errorf("do req: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
