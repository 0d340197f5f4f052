package postgres

import (
	"context"

	"github.com/xraph/grove/migrate"
)

// Migrations is the grove migration group for the tierledger store.
var Migrations = migrate.NewGroup("tierledger")

func init() {
	Migrations.MustRegister(
		&migrate.Migration{
			Name:    "create_tierledger_accounts",
			Version: "20260301000001",
			Up: func(ctx context.Context, exec migrate.Executor) error {
				_, err := exec.Exec(ctx, `
CREATE TABLE IF NOT EXISTS tierledger_accounts (
    user_id     BIGINT PRIMARY KEY,
    points      BIGINT NOT NULL DEFAULT 0 CHECK (points >= 0),
    level       SMALLINT NOT NULL DEFAULT 0 CHECK (level BETWEEN 0 AND 3),
    start_date  DATE,
    expiry_date DATE,
    version     BIGINT NOT NULL DEFAULT 0,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
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
    size       BIGINT,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_tierledger_items_path ON tierledger_items (path);
CREATE INDEX IF NOT EXISTS idx_tierledger_items_handle ON tierledger_items (handle) WHERE handle <> '';
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
    user_id    BIGINT NOT NULL,
    item_id    TEXT NOT NULL REFERENCES tierledger_items(id) ON DELETE CASCADE,
    day        DATE NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
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
    user_id    BIGINT NOT NULL,
    item_id    TEXT NOT NULL REFERENCES tierledger_items(id) ON DELETE CASCADE,
    value      SMALLINT NOT NULL CHECK (value IN (-1, 1)),
    day        DATE NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    PRIMARY KEY (user_id, item_id)
);

CREATE INDEX IF NOT EXISTS idx_tierledger_feedback_likes ON tierledger_feedback (day) WHERE value = 1;
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
    user_id         BIGINT NOT NULL,
    kind            TEXT NOT NULL,
    previous_level  SMALLINT NOT NULL DEFAULT 0,
    new_level       SMALLINT NOT NULL,
    days            INT NOT NULL,
    previous_expiry DATE,
    new_expiry      DATE NOT NULL,
    points_charged  BIGINT NOT NULL DEFAULT 0,
    credited        BIGINT NOT NULL DEFAULT 0,
    balance_after   BIGINT NOT NULL DEFAULT 0,
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_tierledger_receipts_user ON tierledger_receipts (user_id, created_at DESC);
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
