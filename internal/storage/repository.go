// Package storage is the SQLite-backed document store.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"tracker/internal/auth"
	"tracker/internal/core"
	"tracker/internal/ledger"
	"tracker/internal/log"

	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		logger: logger.WithComponent(log.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Append implements ledger.TransactionWriter. The row gets a
// server-assigned created_at and starts with archive_status pending.
func (r *SQLiteRepository) Append(ctx context.Context, tx core.Transaction) (string, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (user_id, title, amount_cents, type, category, tx_date, note, image_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.UserID, tx.Title, tx.Amount.Cents, string(tx.Type), tx.Category,
		dateColumn(tx.Date), tx.Note, tx.ImageURL, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("insert transaction: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("last insert id: %w", err)
	}

	r.logger.InfoContext(ctx, "transaction saved",
		log.FieldTransactionID, id,
		log.FieldUserID, tx.UserID,
		log.FieldAmountCents, tx.Amount.Cents,
		log.FieldType, string(tx.Type))

	return strconv.FormatInt(id, 10), nil
}

// ListForUser implements ledger.TransactionLister. The query carries no
// ORDER BY; callers sort by normalized date.
func (r *SQLiteRepository) ListForUser(ctx context.Context, userID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, title, amount_cents, type, category, tx_date, note, image_url, created_at
		FROM transactions WHERE user_id = ?`, userID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return out, nil
}

// Get returns one record by identifier.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, title, amount_cents, type, category, tx_date, note, image_url, created_at
		FROM transactions WHERE id = ?`, id)
	return scanTransaction(row)
}

func (r *SQLiteRepository) Profile(ctx context.Context, userID string) (ledger.Profile, error) {
	var p ledger.Profile
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, display_name FROM users WHERE id = ?`, userID).
		Scan(&p.UserID, &p.Email, &p.DisplayName)
	if err != nil {
		return ledger.Profile{}, fmt.Errorf("load profile %s: %w", userID, err)
	}
	return p, nil
}

// UserByEmail implements auth.UserSource.
func (r *SQLiteRepository) UserByEmail(ctx context.Context, email string) (auth.Credentials, error) {
	var c auth.Credentials
	err := r.db.QueryRowContext(ctx,
		`SELECT id, email, display_name, password_hash FROM users WHERE email = ?`, email).
		Scan(&c.UserID, &c.Email, &c.DisplayName, &c.PasswordHash)
	if err != nil {
		return auth.Credentials{}, fmt.Errorf("load user by email: %w", err)
	}
	return c, nil
}

// CreateUser registers a login account with an already-hashed password.
func (r *SQLiteRepository) CreateUser(ctx context.Context, creds auth.Credentials) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, email, display_name, password_hash)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(email) DO NOTHING`,
		creds.UserID, creds.Email, creds.DisplayName, creds.PasswordHash)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// PendingArchiveRecord is the minimal payload for an archive queue message.
type PendingArchiveRecord struct {
	ID        string
	Version   int64
	CreatedAt time.Time
}

// PendingArchive returns records not yet written to the archive store,
// oldest first, up to limit.
func (r *SQLiteRepository) PendingArchive(ctx context.Context, limit int) ([]PendingArchiveRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, version, created_at FROM transactions
		WHERE archive_status = 'pending'
		ORDER BY created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list pending archive: %w", err)
	}
	defer rows.Close()

	var out []PendingArchiveRecord
	for rows.Next() {
		var rec PendingArchiveRecord
		var id int64
		if err := rows.Scan(&id, &rec.Version, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pending archive: %w", err)
		}
		rec.ID = strconv.FormatInt(id, 10)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending archive: %w", err)
	}
	return out, nil
}

// MarkArchived records a successful archive write.
func (r *SQLiteRepository) MarkArchived(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET archive_status = 'archived', archived_at = ? WHERE id = ?`,
		time.Now().UTC(), id); err != nil {
		return fmt.Errorf("mark archived: %w", err)
	}
	r.logger.InfoContext(ctx, "transaction archived", log.FieldTransactionID, id)
	return nil
}

// MarkArchiveError flags a failed archive attempt; the record stays
// pending so the sweep retries it.
func (r *SQLiteRepository) MarkArchiveError(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `
		UPDATE transactions SET archive_attempts = archive_attempts + 1 WHERE id = ?`,
		id); err != nil {
		return fmt.Errorf("mark archive error: %w", err)
	}
	r.logger.WarnContext(ctx, "transaction archive attempt failed", log.FieldTransactionID, id)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx     core.Transaction
		id     int64
		txType string
		date   sql.NullString
	)
	err := row.Scan(&id, &tx.UserID, &tx.Title, &tx.Amount.Cents, &txType,
		&tx.Category, &date, &tx.Note, &tx.ImageURL, &tx.CreatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	tx.ID = strconv.FormatInt(id, 10)
	tx.Type = core.TransactionType(txType)
	if date.Valid {
		tx.Date = core.DateFromString(date.String)
	} else {
		tx.Date = core.NoDate()
	}
	return tx, nil
}

// dateColumn normalizes the heterogeneous date union to RFC3339 text, or
// NULL when the date is absent or unresolvable.
func dateColumn(d core.DateValue) any {
	t, ok := d.Resolve()
	if !ok {
		return nil
	}
	return t.UTC().Format(time.RFC3339Nano)
}
