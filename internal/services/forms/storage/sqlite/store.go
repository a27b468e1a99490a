// Package sqlite provides a SQLite-backed forms journal.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/louisbranch/formledger/internal/ledger"
	sqlitemigrate "github.com/louisbranch/formledger/internal/platform/storage/sqlitemigrate"
	"github.com/louisbranch/formledger/internal/services/forms/domain"
	"github.com/louisbranch/formledger/internal/services/forms/storage"
	"github.com/louisbranch/formledger/internal/services/forms/storage/filter"
	"github.com/louisbranch/formledger/internal/services/forms/storage/sqlite/migrations"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

// MaxPageSize caps one ListEntries page.
const MaxPageSize = 500

const entryColumns = `seq, tx_digest, event_seq, event_type, form_id, author, voter, occurred_at, recorded_at`

// Store persists the journal in SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite journal and applies embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlitemigrate.ApplyMigrations(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// AppendEntry inserts one entry and returns it with its sequence number and
// record time. An event already journaled returns storage.ErrAlreadyExists.
func (s *Store) AppendEntry(ctx context.Context, entry storage.Entry) (storage.Entry, error) {
	if err := ctx.Err(); err != nil {
		return storage.Entry{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Entry{}, fmt.Errorf("storage is not configured")
	}
	entry.TxDigest = strings.TrimSpace(entry.TxDigest)
	entry.EventSeq = strings.TrimSpace(entry.EventSeq)
	if entry.TxDigest == "" || entry.EventSeq == "" {
		return storage.Entry{}, fmt.Errorf("event id is required")
	}
	if _, ok := domain.ParseEventType(string(entry.Type)); !ok {
		return storage.Entry{}, fmt.Errorf("unknown event type %q", entry.Type)
	}
	formID, err := ledger.NormalizeID(entry.FormID)
	if err != nil {
		return storage.Entry{}, fmt.Errorf("form id: %w", err)
	}
	entry.FormID = formID
	if entry.Author, err = normalizeOptional(entry.Author); err != nil {
		return storage.Entry{}, fmt.Errorf("author: %w", err)
	}
	if entry.Voter, err = normalizeOptional(entry.Voter); err != nil {
		return storage.Entry{}, fmt.Errorf("voter: %w", err)
	}
	entry.RecordedAt = s.now().UTC()
	if entry.OccurredAt.IsZero() {
		entry.OccurredAt = entry.RecordedAt
	}

	res, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO journal_entries (
		   tx_digest,
		   event_seq,
		   event_type,
		   form_id,
		   author,
		   voter,
		   occurred_at,
		   recorded_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.TxDigest,
		entry.EventSeq,
		string(entry.Type),
		entry.FormID,
		entry.Author,
		entry.Voter,
		toMillis(entry.OccurredAt),
		toMillis(entry.RecordedAt),
	)
	if err != nil {
		if isEntryUniqueViolation(err) {
			return storage.Entry{}, storage.ErrAlreadyExists
		}
		return storage.Entry{}, fmt.Errorf("append journal entry: %w", err)
	}
	entry.Seq, err = res.LastInsertId()
	if err != nil {
		return storage.Entry{}, fmt.Errorf("append journal entry: %w", err)
	}
	entry.OccurredAt = fromMillis(toMillis(entry.OccurredAt))
	entry.RecordedAt = fromMillis(toMillis(entry.RecordedAt))
	return entry, nil
}

// GetEntry returns one entry by sequence number.
func (s *Store) GetEntry(ctx context.Context, seq int64) (storage.Entry, error) {
	if err := ctx.Err(); err != nil {
		return storage.Entry{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Entry{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE seq = ?`, seq)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Entry{}, storage.ErrNotFound
		}
		return storage.Entry{}, fmt.Errorf("get journal entry: %w", err)
	}
	return entry, nil
}

// LastEntry returns the most recently appended entry.
func (s *Store) LastEntry(ctx context.Context) (storage.Entry, error) {
	if err := ctx.Err(); err != nil {
		return storage.Entry{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.Entry{}, fmt.Errorf("storage is not configured")
	}
	row := s.sqlDB.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM journal_entries ORDER BY seq DESC LIMIT 1`)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.Entry{}, storage.ErrNotFound
		}
		return storage.Entry{}, fmt.Errorf("get last journal entry: %w", err)
	}
	return entry, nil
}

// ListEntries returns one page of entries matching the query filter, in
// append order. The page token is the sequence number of the last entry of
// the previous page.
func (s *Store) ListEntries(ctx context.Context, query storage.EntryQuery) (storage.EntryPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.EntryPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.EntryPage{}, fmt.Errorf("storage is not configured")
	}
	pageSize := query.PageSize
	if pageSize <= 0 {
		return storage.EntryPage{}, fmt.Errorf("page size must be greater than zero")
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	cond, err := filter.ParseEntryFilter(query.Filter)
	if err != nil {
		return storage.EntryPage{}, fmt.Errorf("invalid filter: %w", err)
	}
	clauses := []string{}
	params := []any{}
	if cond.Clause != "" {
		clauses = append(clauses, cond.Clause)
		params = append(params, cond.Params...)
	}
	if token := strings.TrimSpace(query.PageToken); token != "" {
		after, err := strconv.ParseInt(token, 10, 64)
		if err != nil || after < 0 {
			return storage.EntryPage{}, fmt.Errorf("invalid page token %q", token)
		}
		clauses = append(clauses, "seq > ?")
		params = append(params, after)
	}
	stmt := `SELECT ` + entryColumns + ` FROM journal_entries`
	if len(clauses) > 0 {
		stmt += ` WHERE ` + strings.Join(clauses, " AND ")
	}
	stmt += ` ORDER BY seq ASC LIMIT ?`
	params = append(params, pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, stmt, params...)
	if err != nil {
		return storage.EntryPage{}, fmt.Errorf("list journal entries: %w", err)
	}
	defer rows.Close()

	page := storage.EntryPage{Entries: make([]storage.Entry, 0, pageSize)}
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return storage.EntryPage{}, fmt.Errorf("list journal entries: %w", err)
		}
		page.Entries = append(page.Entries, entry)
	}
	if err := rows.Err(); err != nil {
		return storage.EntryPage{}, fmt.Errorf("list journal entries: %w", err)
	}
	if len(page.Entries) > pageSize {
		page.Entries = page.Entries[:pageSize]
		page.NextPageToken = strconv.FormatInt(page.Entries[pageSize-1].Seq, 10)
	}
	return page, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (storage.Entry, error) {
	var entry storage.Entry
	var eventType string
	var occurredAt int64
	var recordedAt int64
	if err := row.Scan(
		&entry.Seq,
		&entry.TxDigest,
		&entry.EventSeq,
		&eventType,
		&entry.FormID,
		&entry.Author,
		&entry.Voter,
		&occurredAt,
		&recordedAt,
	); err != nil {
		return storage.Entry{}, err
	}
	entry.Type = domain.EventType(eventType)
	entry.OccurredAt = fromMillis(occurredAt)
	entry.RecordedAt = fromMillis(recordedAt)
	return entry, nil
}

func normalizeOptional(id string) (string, error) {
	if strings.TrimSpace(id) == "" {
		return "", nil
	}
	return ledger.NormalizeID(id)
}

func isEntryUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "journal_entries.")
}

var _ storage.JournalStore = (*Store)(nil)
