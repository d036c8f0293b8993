package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgLockNotAvailable is the SQLSTATE raised when lock_timeout expires.
const pgLockNotAvailable = "55P03"

// PostgresLedger persists ledger state in PostgreSQL. Each Post runs in one
// transaction holding a row lock on the account, so the balance update, the
// log append and the idempotency claim commit or roll back together. The
// unique key on processed_events enforces at-most-once at the storage layer
// on top of the application-level claim.
type PostgresLedger struct {
	db       *pgxpool.Pool
	lockWait time.Duration
}

// NewPostgres constructs a Postgres-backed ledger.
func NewPostgres(db *pgxpool.Pool, lockWait time.Duration) *PostgresLedger {
	if lockWait <= 0 {
		lockWait = defaultLockWait
	}
	return &PostgresLedger{db: db, lockWait: lockWait}
}

// EnsureSchema creates the ledger tables when they do not exist yet.
func (l *PostgresLedger) EnsureSchema(ctx context.Context) error {
	const ddl = `
        CREATE TABLE IF NOT EXISTS accounts (
            id      TEXT PRIMARY KEY,
            balance BIGINT NOT NULL DEFAULT 0 CHECK (balance >= 0)
        );
        CREATE TABLE IF NOT EXISTS transactions (
            id           BIGSERIAL PRIMARY KEY,
            account_id   TEXT NOT NULL REFERENCES accounts (id),
            amount       BIGINT NOT NULL,
            kind         TEXT NOT NULL,
            external_ref TEXT NOT NULL DEFAULT '',
            metadata     JSONB,
            created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
        );
        CREATE INDEX IF NOT EXISTS transactions_account_created_idx
            ON transactions (account_id, created_at);
        CREATE TABLE IF NOT EXISTS processed_events (
            event          TEXT NOT NULL,
            external_ref   TEXT NOT NULL,
            account_id     TEXT NOT NULL,
            transaction_id BIGINT,
            balance_after  BIGINT,
            created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
            PRIMARY KEY (event, external_ref)
        );`
	if _, err := l.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("%w: ensure schema: %v", ErrStorage, err)
	}
	return nil
}

// Balance returns the stored balance, 0 for a never-seen account.
func (l *PostgresLedger) Balance(ctx context.Context, accountID string) (int64, error) {
	var balance int64
	err := l.db.QueryRow(ctx, `SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: read balance: %v", ErrStorage, err)
	}
	return balance, nil
}

func (l *PostgresLedger) Post(ctx context.Context, p Posting) (Receipt, error) {
	if err := p.validate(); err != nil {
		return Receipt{}, err
	}

	tx, err := l.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: begin: %v", ErrStorage, err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	lockMillis := l.lockWait.Milliseconds()
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", lockMillis)); err != nil {
		return Receipt{}, fmt.Errorf("%w: set lock timeout: %v", ErrStorage, err)
	}

	// Lazy provisioning before taking the row lock.
	if _, err := tx.Exec(ctx,
		`INSERT INTO accounts (id, balance) VALUES ($1, 0) ON CONFLICT (id) DO NOTHING`,
		p.AccountID); err != nil {
		return Receipt{}, fmt.Errorf("%w: provision account: %v", ErrStorage, err)
	}

	var balance int64
	if err := tx.QueryRow(ctx,
		`SELECT balance FROM accounts WHERE id = $1 FOR UPDATE`, p.AccountID).Scan(&balance); err != nil {
		return Receipt{}, mapPgError("lock account", err)
	}

	claimed := p.Event != ""
	if claimed {
		cmd, err := tx.Exec(ctx,
			`INSERT INTO processed_events (event, external_ref, account_id)
             VALUES ($1, $2, $3) ON CONFLICT (event, external_ref) DO NOTHING`,
			p.Event, p.ExternalRef, p.AccountID)
		if err != nil {
			return Receipt{}, mapPgError("claim event", err)
		}
		if cmd.RowsAffected() == 0 {
			receipt, err := l.existingOutcome(ctx, tx, p.Event, p.ExternalRef)
			if err != nil {
				return Receipt{}, err
			}
			return receipt, ErrDuplicateEvent
		}
	}

	if balance+p.Amount < 0 {
		// Rolls back the claim together with everything else.
		return Receipt{}, ErrInsufficientFunds
	}

	var metadata []byte
	if len(p.Metadata) > 0 {
		metadata, err = json.Marshal(p.Metadata)
		if err != nil {
			return Receipt{}, fmt.Errorf("%w: encode metadata: %v", ErrInvalidArgument, err)
		}
	}

	var txID int64
	if err := tx.QueryRow(ctx,
		`INSERT INTO transactions (account_id, amount, kind, external_ref, metadata)
         VALUES ($1, $2, $3, $4, $5) RETURNING id`,
		p.AccountID, p.Amount, string(p.Kind), p.ExternalRef, metadata).Scan(&txID); err != nil {
		return Receipt{}, mapPgError("append transaction", err)
	}

	newBalance := balance + p.Amount
	if _, err := tx.Exec(ctx,
		`UPDATE accounts SET balance = $1 WHERE id = $2`, newBalance, p.AccountID); err != nil {
		return Receipt{}, mapPgError("update balance", err)
	}

	if claimed {
		if _, err := tx.Exec(ctx,
			`UPDATE processed_events SET transaction_id = $1, balance_after = $2
             WHERE event = $3 AND external_ref = $4`,
			txID, newBalance, p.Event, p.ExternalRef); err != nil {
			return Receipt{}, mapPgError("finalize claim", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Receipt{}, mapPgError("commit", err)
	}
	return Receipt{TransactionID: txID, Balance: newBalance}, nil
}

// existingOutcome reads the terminal outcome of an already-claimed event. A
// claim without a transaction id belongs to an in-flight delivery; the
// duplicate still must not be applied.
func (l *PostgresLedger) existingOutcome(ctx context.Context, tx pgx.Tx, event, ref string) (Receipt, error) {
	var txID, balanceAfter *int64
	if err := tx.QueryRow(ctx,
		`SELECT transaction_id, balance_after FROM processed_events
         WHERE event = $1 AND external_ref = $2`, event, ref).Scan(&txID, &balanceAfter); err != nil {
		return Receipt{}, mapPgError("read claim", err)
	}
	var receipt Receipt
	if txID != nil {
		receipt.TransactionID = *txID
	}
	if balanceAfter != nil {
		receipt.Balance = *balanceAfter
	}
	return receipt, nil
}

func (l *PostgresLedger) Entries(ctx context.Context, accountID string, limit int, beforeID int64) ([]Transaction, error) {
	limit = clampLimit(limit)

	rows, err := l.db.Query(ctx,
		`SELECT id, account_id, amount, kind, external_ref, metadata, created_at
         FROM transactions
         WHERE account_id = $1 AND ($2 = 0 OR id < $2)
         ORDER BY id DESC
         LIMIT $3`, accountID, beforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: list transactions: %v", ErrStorage, err)
	}
	defer rows.Close()

	var out []Transaction
	for rows.Next() {
		var (
			record   Transaction
			kind     string
			metadata []byte
		)
		if err := rows.Scan(&record.ID, &record.AccountID, &record.Amount, &kind,
			&record.ExternalRef, &metadata, &record.CreatedAt); err != nil {
			return nil, fmt.Errorf("%w: scan transaction: %v", ErrStorage, err)
		}
		record.Kind = Kind(kind)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &record.Metadata); err != nil {
				return nil, fmt.Errorf("%w: decode metadata: %v", ErrStorage, err)
			}
		}
		record.CreatedAt = record.CreatedAt.UTC()
		out = append(out, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list transactions: %v", ErrStorage, err)
	}
	return out, nil
}

func mapPgError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable {
		return ErrLockTimeout
	}
	return fmt.Errorf("%w: %s: %v", ErrStorage, op, err)
}
