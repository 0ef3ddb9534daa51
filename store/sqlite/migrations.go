package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the escrow store (SQLite).
var Migrations = migrate.NewGroup("escrow")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_escrow_accounts",
			Version: "20250101000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS escrow_accounts (
    id                  TEXT PRIMARY KEY,
    depositor           TEXT NOT NULL,
    beneficiary         TEXT NOT NULL,
    arbiter             TEXT NOT NULL DEFAULT '',
    asset               TEXT NOT NULL,
    decimals            INTEGER NOT NULL DEFAULT 0,
    vault               TEXT NOT NULL,
    total_amount        TEXT NOT NULL DEFAULT '0',
    funded_amount       TEXT NOT NULL DEFAULT '0',
    released_amount     TEXT NOT NULL DEFAULT '0',
    refunded_amount     TEXT NOT NULL DEFAULT '0',
    locked_amount       TEXT NOT NULL DEFAULT '0',
    accumulated_dust    TEXT NOT NULL DEFAULT '0',
    schedule            TEXT NOT NULL,
    authority           TEXT NOT NULL,
    pause               TEXT NOT NULL DEFAULT '{}',
    status              TEXT NOT NULL DEFAULT 'initialized',
    expires_at          TIMESTAMP,
    last_operation_slot TEXT NOT NULL DEFAULT '0',
    version             INTEGER NOT NULL DEFAULT 0,
    metadata            TEXT NOT NULL DEFAULT '{}',
    created_at          TIMESTAMP NOT NULL DEFAULT (datetime('now')),
    updated_at          TIMESTAMP NOT NULL DEFAULT (datetime('now'))
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_escrow_accounts_vault ON escrow_accounts (vault);
CREATE INDEX IF NOT EXISTS idx_escrow_accounts_depositor ON escrow_accounts (depositor, created_at);
CREATE INDEX IF NOT EXISTS idx_escrow_accounts_beneficiary ON escrow_accounts (beneficiary, created_at);
CREATE INDEX IF NOT EXISTS idx_escrow_accounts_status ON escrow_accounts (status);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS escrow_accounts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_escrow_transfers",
			Version: "20250101000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS escrow_transfers (
    id         TEXT PRIMARY KEY,
    account_id TEXT NOT NULL,
    kind       TEXT NOT NULL,
    asset      TEXT NOT NULL,
    amount     TEXT NOT NULL,
    from_addr  TEXT NOT NULL DEFAULT '',
    to_addr    TEXT NOT NULL DEFAULT '',
    signer     TEXT NOT NULL DEFAULT '',
    reference  TEXT NOT NULL DEFAULT '',
    slot       TEXT NOT NULL DEFAULT '0',
    metadata   TEXT NOT NULL DEFAULT '{}',
    created_at TIMESTAMP NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_escrow_transfers_account ON escrow_transfers (account_id, created_at);
CREATE INDEX IF NOT EXISTS idx_escrow_transfers_kind ON escrow_transfers (account_id, kind);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS escrow_transfers`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_escrow_config",
			Version: "20250101000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS escrow_config (
    id                       TEXT PRIMARY KEY,
    admin                    TEXT NOT NULL,
    min_escrow_amount        TEXT NOT NULL DEFAULT '1',
    max_escrow_duration_secs INTEGER NOT NULL,
    max_pause_resume_count   INTEGER NOT NULL DEFAULT 3,
    halted                   INTEGER NOT NULL DEFAULT 0,
    allow_custom             INTEGER NOT NULL DEFAULT 0,
    require_preset_duration  INTEGER NOT NULL DEFAULT 0,
    version                  INTEGER NOT NULL DEFAULT 1,
    created_at               TIMESTAMP NOT NULL DEFAULT (datetime('now')),
    updated_at               TIMESTAMP NOT NULL DEFAULT (datetime('now'))
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS escrow_config`)
				return err
			},
		},
	)
}
