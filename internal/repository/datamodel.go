package repository

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

type Currency string

const (
	CurrencyBTC  Currency = "BTC"
	CurrencyETH  Currency = "ETH"
	CurrencyUSDT Currency = "USDT"
)

func (c Currency) Valid() bool {
	switch c {
	case CurrencyBTC, CurrencyETH, CurrencyUSDT:
		return true
	default:
		return false
	}
}

type DepositStatus string

const (
	DepositStatusPending    DepositStatus = "pending"
	DepositStatusPartial    DepositStatus = "partial"
	DepositStatusConfirming DepositStatus = "confirming"
	DepositStatusCompleted  DepositStatus = "completed"
	DepositStatusFailed     DepositStatus = "failed"
	DepositStatusExpired    DepositStatus = "expired"
)

// status moves forward only; expired is reachable from every non-terminal status
var depositTransitions = map[DepositStatus][]DepositStatus{
	DepositStatusPending:    {DepositStatusPartial, DepositStatusConfirming, DepositStatusCompleted, DepositStatusFailed, DepositStatusExpired},
	DepositStatusPartial:    {DepositStatusConfirming, DepositStatusCompleted, DepositStatusFailed, DepositStatusExpired},
	DepositStatusConfirming: {DepositStatusCompleted, DepositStatusFailed, DepositStatusExpired},
}

func (s DepositStatus) Terminal() bool {
	switch s {
	case DepositStatusCompleted, DepositStatusFailed, DepositStatusExpired:
		return true
	default:
		return false
	}
}

func (s DepositStatus) CanTransitionTo(next DepositStatus) bool {
	for _, allowed := range depositTransitions[s] {
		if next == allowed {
			return true
		}
	}
	return false
}

type Deposit struct {
	Id                    string          `db:"id"`
	UserId                string          `db:"user_id"`
	Currency              Currency        `db:"currency"`
	DepositAddress        string          `db:"deposit_address"`
	TransactionHash       sql.NullString  `db:"transaction_hash"`
	ExpectedAmount        decimal.Decimal `db:"expected_amount"`
	CurrentBalance        decimal.Decimal `db:"current_balance"`
	Confirmations         uint64          `db:"confirmations"`
	RequiredConfirmations uint64          `db:"required_confirmations"`
	Status                DepositStatus   `db:"status"`
	CreatedAt             time.Time       `db:"created_at"`
	ExpiresAt             time.Time       `db:"expires_at"`
	LastCheckedAt         sql.NullTime    `db:"last_checked_at"`
	CompletedAt           sql.NullTime    `db:"completed_at"`
}

type MonitoringConfig struct {
	Currency              Currency `db:"currency"`
	RequiredConfirmations uint64   `db:"required_confirmations"`
	PollIntervalSeconds   uint64   `db:"poll_interval_seconds"`
	Enabled               bool     `db:"enabled"`
}

const (
	FundTransactionTypeDeposit    = "deposit"
	FundTransactionStatusComplete = "completed"
)

type FundTransaction struct {
	Id              string          `db:"id"`
	UserId          string          `db:"user_id"`
	Type            string          `db:"type"`
	Amount          decimal.Decimal `db:"amount"`
	Currency        Currency        `db:"currency"`
	Status          string          `db:"status"`
	Reference       string          `db:"reference"`
	TransactionHash sql.NullString  `db:"transaction_hash"`
	CreatedAt       time.Time       `db:"created_at"`
}

type Balance struct {
	UserId   string          `db:"user_id"`
	Currency Currency        `db:"currency"`
	Amount   decimal.Decimal `db:"amount"`
}
