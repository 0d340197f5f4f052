package sqlite

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the tierledger store (SQLite).
var Migrations = migrate.NewGroup("tierledger")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_tierledger_accounts",
			Version: "20260301000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tierledger_accounts (
    user_id     INTEGER PRIMARY KEY,
    points      INTEGER NOT NULL DEFAULT 0 CHECK (points >= 0),
    level       INTEGER NOT NULL DEFAULT 0 CHECK (level BETWEEN 0 AND 3),
    start_date  TEXT,
    expiry_date TEXT,
    version     INTEGER NOT NULL DEFAULT 0,
    created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tierledger_accounts`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tierledger_items",
			Version: "20260301000002",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tierledger_items (
    id         TEXT PRIMARY KEY,
    path       TEXT NOT NULL,
    handle     TEXT NOT NULL DEFAULT '',
    size       INTEGER,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tierledger_items_path ON tierledger_items (path);
CREATE INDEX IF NOT EXISTS idx_tierledger_items_handle ON tierledger_items (handle) WHERE handle != '';
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tierledger_items`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tierledger_deliveries",
			Version: "20260301000003",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tierledger_deliveries (
    user_id    INTEGER NOT NULL,
    item_id    TEXT NOT NULL,
    day        TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_id, item_id)
);

CREATE INDEX IF NOT EXISTS idx_tierledger_deliveries_day ON tierledger_deliveries (user_id, day);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tierledger_deliveries`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tierledger_feedback",
			Version: "20260301000004",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tierledger_feedback (
    user_id    INTEGER NOT NULL,
    item_id    TEXT NOT NULL,
    value      INTEGER NOT NULL CHECK (value IN (-1, 1)),
    day        TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    PRIMARY KEY (user_id, item_id)
);

CREATE INDEX IF NOT EXISTS idx_tierledger_feedback_likes ON tierledger_feedback (value, day);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tierledger_feedback`)
				return err
			},
		},
		&migrate.Migration{
			Name:    "create_tierledger_receipts",
			Version: "20260301000005",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tierledger_receipts (
    id              TEXT PRIMARY KEY,
    user_id         INTEGER NOT NULL,
    kind            TEXT NOT NULL,
    previous_level  INTEGER NOT NULL DEFAULT 0,
    new_level       INTEGER NOT NULL,
    days            INTEGER NOT NULL,
    previous_expiry TEXT,
    new_expiry      TEXT NOT NULL,
    points_charged  INTEGER NOT NULL DEFAULT 0,
    credited        INTEGER NOT NULL DEFAULT 0,
    balance_after   INTEGER NOT NULL DEFAULT 0,
    created_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at      TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_tierledger_receipts_user ON tierledger_receipts (user_id, created_at);
`)
				return err
			},
			Down: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `DROP TABLE IF EXISTS tierledger_receipts`)
				return err
			},
		},
	)
}
