package postgres

import (
	"context"
	"fmt"
	"log/slog"
)

// Profiles and books are owned by the storefront; they are created here only
// so a fresh database can run the payment flows end to end.
var migrations = []string{
	`CREATE EXTENSION IF NOT EXISTS pgcrypto`,
	`CREATE TABLE IF NOT EXISTS profiles (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		account_type TEXT NOT NULL CHECK (account_type IN ('seller', 'buyer')),
		name TEXT,
		phone TEXT,
		balance NUMERIC(14, 2) NOT NULL DEFAULT 0 CHECK (balance >= 0),
		total_withdrawn NUMERIC(14, 2) NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS books (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		seller_id UUID NOT NULL REFERENCES profiles(id),
		title TEXT NOT NULL,
		price NUMERIC(14, 2) NOT NULL DEFAULT 0 CHECK (price >= 0),
		sales BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS purchases (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		book_id UUID NOT NULL REFERENCES books(id),
		buyer_id UUID REFERENCES profiles(id),
		buyer_phone TEXT,
		amount NUMERIC(14, 2) NOT NULL CHECK (amount >= 0),
		transaction_id TEXT NOT NULL UNIQUE,
		payment_method TEXT NOT NULL CHECK (payment_method IN ('mobile_money', 'balance', 'free')),
		payment_status TEXT NOT NULL CHECK (payment_status IN ('pending', 'completed', 'failed')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_purchases_buyer ON purchases (buyer_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_purchases_book ON purchases (book_id)`,
	`CREATE TABLE IF NOT EXISTS deposits (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		buyer_id UUID NOT NULL REFERENCES profiles(id),
		phone TEXT NOT NULL,
		amount NUMERIC(14, 2) NOT NULL CHECK (amount > 0),
		transaction_id TEXT NOT NULL UNIQUE,
		payment_status TEXT NOT NULL CHECK (payment_status IN ('pending', 'completed', 'failed')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_deposits_buyer ON deposits (buyer_id, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS withdrawals (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		seller_id UUID NOT NULL REFERENCES profiles(id),
		amount NUMERIC(14, 2) NOT NULL CHECK (amount > 0),
		fee NUMERIC(14, 2) NOT NULL,
		net_amount NUMERIC(14, 2) NOT NULL,
		phone TEXT NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('pending', 'approved', 'completed', 'rejected')),
		admin_notes TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_withdrawals_status ON withdrawals (status, created_at)`,
	`CREATE TABLE IF NOT EXISTS platform_revenue (
		id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
		source TEXT NOT NULL CHECK (source IN ('purchase', 'withdrawal')),
		reference TEXT NOT NULL,
		amount NUMERIC(14, 2) NOT NULL CHECK (amount >= 0),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

func Migrate(ctx context.Context, q Querier) error {
	for i, stmt := range migrations {
		if _, err := q.ExecContext(ctx, stmt); err != nil {
			slog.Error("migration failed", "step", i, "error", err)
			return fmt.Errorf("migration step %d: %w", i, err)
		}
	}
	slog.Info("schema is up to date", "steps", len(migrations))
	return nil
}
