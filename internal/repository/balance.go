package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

// GetBalance returns the account's ledger balance. Accounts with no row
// have a zero balance.
func (r *Repository) GetBalance(ctx context.Context, account string) (uint64, error) {
	query, args, err := squirrel.
		Select("amount").
		From("balances").
		Where(squirrel.Eq{"account": account}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var amount uint64
	err = r.db.GetContext(ctx, &amount, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get balance: %w", err)
	}

	return amount, nil
}

// Deposit credits the account outside any escrow flow.
func (r *Repository) Deposit(ctx context.Context, account string, amount uint64) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		return creditBalance(ctx, tx, account, amount)
	})
}

func creditBalance(ctx context.Context, tx *sqlx.Tx, account string, amount uint64) error {
	query, args, err := squirrel.
		Insert("balances").
		Columns("account", "amount").
		Values(account, amount).
		Suffix("ON CONFLICT (account) DO UPDATE SET amount = balances.amount + EXCLUDED.amount").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to credit balance: %w", err)
	}

	return nil
}

// debitBalance subtracts amount from the account, failing with
// ErrInsufficientFunds when the balance does not cover it. A zero debit
// always succeeds, even for an account with no balance row yet.
func debitBalance(ctx context.Context, tx *sqlx.Tx, account string, amount uint64) error {
	if amount == 0 {
		return nil
	}

	query, args, err := squirrel.
		Update("balances").
		Set("amount", squirrel.Expr("amount - ?", amount)).
		Where(squirrel.And{
			squirrel.Eq{"account": account},
			squirrel.GtOrEq{"amount": amount},
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to debit balance: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrInsufficientFunds
	}

	return nil
}
