package repository

import (
	"context"
	"database/sql"
	"fmt"
)

func (s Store) GetDeposit(ctx context.Context, id string) (*Deposit, error) {
	const query = "SELECT * FROM `deposits` WHERE `id`=?;"

	var dep Deposit
	if err := s.db.GetContext(ctx, &dep, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("GetDeposit: %w", err)
	}
	return &dep, nil
}

// ListActiveDeposits returns every deposit that has not reached a
// terminal status yet.
func (s Store) ListActiveDeposits(ctx context.Context) ([]*Deposit, error) {
	const query = "SELECT * FROM `deposits` WHERE `status` IN (?,?,?);"

	var deposits []*Deposit
	err := s.db.SelectContext(ctx, &deposits, query,
		DepositStatusPending, DepositStatusPartial, DepositStatusConfirming)
	if err != nil {
		return nil, fmt.Errorf("ListActiveDeposits: %w", err)
	}
	return deposits, nil
}

// UpdateObservation persists the latest checker observation together with
// the (possibly unchanged) status. The credit path never goes through
// here, see CreditDeposit.
func (s Store) UpdateObservation(ctx context.Context, dep *Deposit) error {
	const query = "UPDATE `deposits` SET `status`=?,`current_balance`=?,`confirmations`=?,`transaction_hash`=?,`last_checked_at`=? WHERE `id`=?;"

	res, err := s.db.ExecContext(ctx, query,
		dep.Status, dep.CurrentBalance, dep.Confirmations, dep.TransactionHash, dep.LastCheckedAt, dep.Id)
	if err != nil {
		return fmt.Errorf("UpdateObservation: %w", err)
	}
	if count, _ := res.RowsAffected(); count > 1 {
		return fmt.Errorf("UpdateObservation: affected row length should be at most 1")
	}
	return nil
}

func (s Store) GetMonitoringConfig(ctx context.Context, currency Currency) (*MonitoringConfig, error) {
	const query = "SELECT * FROM `monitoring_configs` WHERE `currency`=?;"

	var cfg MonitoringConfig
	if err := s.db.GetContext(ctx, &cfg, query, currency); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("GetMonitoringConfig: %w", err)
	}
	return &cfg, nil
}
