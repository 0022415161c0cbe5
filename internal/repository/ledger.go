package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// CreditDeposit marks the deposit completed, appends the fund
// transaction and increases the user balance in one database
// transaction. The status update is guarded so a deposit can only be
// credited once: if another writer completed it first, the whole
// transaction is rolled back and ErrAlreadyCredited is returned.
func (s Store) CreditDeposit(ctx context.Context, dep *Deposit) (err error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("CreditDeposit: begin tx: %w", err)
	}

	defer func() {
		if err == nil {
			return
		}
		if rollbackError := tx.Rollback(); rollbackError != nil {
			logrus.Errorf("CreditDeposit: rollback: %s", rollbackError)
		}
	}()

	const completeQuery = "UPDATE `deposits` SET `status`=?,`current_balance`=?,`confirmations`=?,`transaction_hash`=?,`last_checked_at`=?,`completed_at`=? WHERE `id`=? AND `status`<>?;"
	res, err := tx.ExecContext(ctx, completeQuery,
		DepositStatusCompleted, dep.CurrentBalance, dep.Confirmations,
		dep.TransactionHash, dep.LastCheckedAt, dep.CompletedAt,
		dep.Id, DepositStatusCompleted)
	if err != nil {
		return fmt.Errorf("CreditDeposit: complete deposit: %w", err)
	}
	if count, _ := res.RowsAffected(); count != 1 {
		err = ErrAlreadyCredited
		return err
	}

	const insertFundTxQuery = "INSERT INTO `fund_transactions` (`id`,`user_id`,`type`,`amount`,`currency`,`status`,`reference`,`transaction_hash`) VALUES (?,?,?,?,?,?,?,?);"
	fundTxId := uuid.NewString()
	_, err = tx.ExecContext(ctx, insertFundTxQuery,
		fundTxId, dep.UserId, FundTransactionTypeDeposit, dep.CurrentBalance,
		dep.Currency, FundTransactionStatusComplete, dep.Id, dep.TransactionHash)
	if err != nil {
		return fmt.Errorf("CreditDeposit: insert fund transaction: %w", err)
	}

	const upsertBalanceQuery = "INSERT INTO `balances` (`user_id`,`currency`,`amount`) VALUES (?,?,?) ON DUPLICATE KEY UPDATE `amount`=`amount`+VALUES(`amount`);"
	if _, err = tx.ExecContext(ctx, upsertBalanceQuery, dep.UserId, dep.Currency, dep.CurrentBalance); err != nil {
		return fmt.Errorf("CreditDeposit: upsert balance: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("CreditDeposit: commit: %w", err)
	}

	logrus.Infof("Credit: %s %s to user %s [ Deposit %s FundTx %s ]",
		dep.CurrentBalance, dep.Currency, dep.UserId, dep.Id, fundTxId)
	return nil
}
