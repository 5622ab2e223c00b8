package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/DanHalford/HIBP-Breach-Notifier/internal/domain/breach"
	"github.com/DanHalford/HIBP-Breach-Notifier/internal/migration"
)

// Store is the SQLite-backed breach record store. One row per
// (email, breach name) pair; rows are insert-only.
type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening breach database: %w", err)
	}

	return &Store{db: db}, nil
}

// EnsureSchema brings the database up to the current schema. Idempotent.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if err := migration.Up(s.db); err != nil {
		return fmt.Errorf("migrating breach database: %w", err)
	}
	return nil
}

// Exists reports whether a record with the identity key is already stored.
func (s *Store) Exists(ctx context.Context, email, name string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM breaches WHERE email = ? AND name = ?)",
		email, name,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking for existing breach: %w", err)
	}
	return exists, nil
}

// Insert stores the record unless its (email, name) pair is already present.
// The conflict clause makes check-and-insert a single statement, so a
// duplicate is reported as inserted=false rather than a constraint error.
func (s *Store) Insert(ctx context.Context, rec *breach.Record) (bool, error) {
	classes, err := json.Marshal(rec.DataClasses)
	if err != nil {
		return false, fmt.Errorf("encoding data classes: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO breaches (id, email, name, title, domain, breach_date,
		                      added_date, modified_date, pwn_count, description,
		                      logo_path, data_classes, is_verified, is_fabricated,
		                      is_sensitive, is_retired, is_spam_list, is_malware)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (email, name) DO NOTHING
	`, rec.ID, rec.Email, rec.Name, rec.Title, rec.Domain, rec.BreachDate,
		rec.AddedDate.Format(time.RFC3339), rec.ModifiedDate.Format(time.RFC3339),
		rec.PwnCount, rec.Description, rec.LogoPath, string(classes),
		rec.IsVerified, rec.IsFabricated, rec.IsSensitive, rec.IsRetired,
		rec.IsSpamList, rec.IsMalware)
	if err != nil {
		return false, fmt.Errorf("inserting breach record: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading insert result: %w", err)
	}
	return n > 0, nil
}

// Count returns the number of stored breach records.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM breaches").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting breach records: %w", err)
	}
	return count, nil
}

// Get returns one stored record by identity key, or breach.ErrNoBreaches if
// the pair is unknown. Used by tests and the reset confirmation output.
func (s *Store) Get(ctx context.Context, email, name string) (*breach.Record, error) {
	var (
		rec      breach.Record
		added    string
		modified string
		classes  string
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, name, title, domain, breach_date, added_date,
		       modified_date, pwn_count, description, logo_path, data_classes,
		       is_verified, is_fabricated, is_sensitive, is_retired,
		       is_spam_list, is_malware
		FROM breaches
		WHERE email = ? AND name = ?
	`, email, name).Scan(&rec.ID, &rec.Email, &rec.Name, &rec.Title, &rec.Domain,
		&rec.BreachDate, &added, &modified, &rec.PwnCount, &rec.Description,
		&rec.LogoPath, &classes, &rec.IsVerified, &rec.IsFabricated,
		&rec.IsSensitive, &rec.IsRetired, &rec.IsSpamList, &rec.IsMalware)

	if err == sql.ErrNoRows {
		return nil, breach.ErrNoBreaches
	}
	if err != nil {
		return nil, fmt.Errorf("reading breach record: %w", err)
	}

	if err := json.Unmarshal([]byte(classes), &rec.DataClasses); err != nil {
		return nil, fmt.Errorf("decoding data classes: %w", err)
	}
	rec.AddedDate, _ = time.Parse(time.RFC3339, added)
	rec.ModifiedDate, _ = time.Parse(time.RFC3339, modified)

	return &rec, nil
}

// Reset deletes every stored breach record.
func (s *Store) Reset(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM breaches"); err != nil {
		return fmt.Errorf("resetting breach store: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
