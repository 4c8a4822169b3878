package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/infinex-exchange/wallet.addressbook/internal/addressbook/models"
	"github.com/infinex-exchange/wallet.addressbook/pkg/pagination"
	"github.com/infinex-exchange/wallet.addressbook/pkg/platform/sentinel"
	"github.com/infinex-exchange/wallet.addressbook/pkg/platform/tx"
)

//go:embed schema.sql
var schemaSQL string

// uniqueViolation is the Postgres error code for unique constraint failures.
const uniqueViolation = "23505"

// Postgres persists address book entries in PostgreSQL.
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// EnsureSchema creates the withdrawal_adbk table and its unique indexes.
func (s *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure addressbook schema: %w", err)
	}
	return nil
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// q returns the ambient transaction when the caller opened one, otherwise
// the pooled connection.
func (s *Postgres) q(ctx context.Context) querier {
	if sqlTx, ok := tx.From(ctx); ok {
		return sqlTx
	}
	return s.db
}

func (s *Postgres) Insert(ctx context.Context, e *models.AddressBookEntry) (int64, error) {
	var id int64
	err := s.q(ctx).QueryRowContext(ctx, `
		INSERT INTO withdrawal_adbk (uid, netid, address, name, memo)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING adbkid
	`, e.OwnerID, e.NetworkID, e.Address, e.Name, nullString(e.Memo)).Scan(&id)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return 0, fmt.Errorf("insert entry: %w", sentinel.ErrConflict)
		}
		return 0, fmt.Errorf("insert entry: %w", err)
	}
	return id, nil
}

func (s *Postgres) FindByID(ctx context.Context, id int64) (*models.AddressBookEntry, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT adbkid, uid, netid, address, name, memo
		FROM withdrawal_adbk
		WHERE adbkid = $1
	`, id)
	return scanEntry(row)
}

func (s *Postgres) List(ctx context.Context, f models.Filter, w pagination.Window) ([]*models.AddressBookEntry, bool, error) {
	var (
		where []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.OwnerID != nil {
		where = append(where, "uid = "+arg(*f.OwnerID))
	}
	if f.NetworkID != nil {
		where = append(where, "netid = "+arg(*f.NetworkID))
	}
	if f.Search != "" {
		p := arg("%" + f.Search + "%")
		where = append(where, "(name ILIKE "+p+" OR address ILIKE "+p+")")
	}

	query := `SELECT adbkid, uid, netid, address, name, memo FROM withdrawal_adbk`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	// One probe row past the window decides the "more" flag.
	query += " ORDER BY adbkid ASC LIMIT " + arg(w.Limit+1) + " OFFSET " + arg(w.Offset)

	rows, err := s.q(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.AddressBookEntry
	for rows.Next() {
		e, err := scanEntryRows(rows)
		if err != nil {
			return nil, false, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("list entries: %w", err)
	}

	more := len(entries) > w.Limit
	if more {
		entries = entries[:w.Limit]
	}
	return entries, more, nil
}

func (s *Postgres) FindConflicts(ctx context.Context, ownerID int64, networkID, name, address string, memo *string) (*models.AddressBookEntry, error) {
	rows, err := s.q(ctx).QueryContext(ctx, `
		SELECT adbkid, uid, netid, address, name, memo
		FROM withdrawal_adbk
		WHERE uid = $1 AND netid = $2
		AND (
			name = $3
			OR (address = $4 AND memo IS NOT DISTINCT FROM $5)
		)
		FOR UPDATE
	`, ownerID, networkID, name, address, nullString(memo))
	if err != nil {
		return nil, fmt.Errorf("find conflicts: %w", err)
	}
	defer rows.Close()

	// All colliding rows stay locked until the transaction ends. A name
	// collision takes precedence over an address collision in the result.
	var conflict *models.AddressBookEntry
	for rows.Next() {
		e, err := scanEntryRows(rows)
		if err != nil {
			return nil, err
		}
		if conflict == nil || e.Name == name {
			conflict = e
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find conflicts: %w", err)
	}
	if conflict == nil {
		return nil, sentinel.ErrNotFound
	}
	return conflict, nil
}

func (s *Postgres) FindByIDForUpdate(ctx context.Context, id int64) (*models.AddressBookEntry, error) {
	row := s.q(ctx).QueryRowContext(ctx, `
		SELECT adbkid, uid, netid, address, name, memo
		FROM withdrawal_adbk
		WHERE adbkid = $1
		FOR UPDATE
	`, id)
	return scanEntry(row)
}

func (s *Postgres) NameTaken(ctx context.Context, ownerID int64, networkID, name string, excludeID int64) (bool, error) {
	var one int
	err := s.q(ctx).QueryRowContext(ctx, `
		SELECT 1
		FROM withdrawal_adbk
		WHERE uid = $1 AND netid = $2 AND name = $3 AND adbkid != $4
		FOR UPDATE
	`, ownerID, networkID, name, excludeID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check name taken: %w", err)
	}
	return true, nil
}

func (s *Postgres) UpdateName(ctx context.Context, id int64, name string) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		UPDATE withdrawal_adbk SET name = $1 WHERE adbkid = $2
	`, name, id)
	if err != nil {
		return fmt.Errorf("update name: %w", err)
	}
	return requireAffected(res, "update name")
}

func (s *Postgres) Delete(ctx context.Context, id int64) error {
	res, err := s.q(ctx).ExecContext(ctx, `
		DELETE FROM withdrawal_adbk WHERE adbkid = $1
	`, id)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return requireAffected(res, "delete entry")
}

func requireAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row *sql.Row) (*models.AddressBookEntry, error) {
	e, err := scanEntryRows(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	return e, err
}

func scanEntryRows(r rowScanner) (*models.AddressBookEntry, error) {
	var (
		e    models.AddressBookEntry
		memo sql.NullString
	)
	if err := r.Scan(&e.ID, &e.OwnerID, &e.NetworkID, &e.Address, &e.Name, &memo); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan entry: %w", err)
	}
	if memo.Valid {
		e.Memo = &memo.String
	}
	return &e, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
