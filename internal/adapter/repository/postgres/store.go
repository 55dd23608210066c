// Package postgres provides a snapshot store that keeps the registry in a Postgres table.
package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

// insertBatchSize keeps one INSERT well under the 65535 bind parameter limit.
const insertBatchSize = 1000

type urlDB struct {
	ShortCode  string     `db:"short_code"`
	LongURL    string     `db:"long_url"`
	Note       string     `db:"note"`
	VisitCount int64      `db:"visit_count"`
	LastVisit  *time.Time `db:"last_visit"`
}

func (u *urlDB) toEntity() entity.URLEntry {
	return entity.URLEntry{
		ShortCode:  u.ShortCode,
		LongURL:    u.LongURL,
		Note:       u.Note,
		VisitCount: uint64(u.VisitCount),
		LastVisit:  u.LastVisit,
	}
}

func fromEntity(e entity.URLEntry) urlDB {
	return urlDB{
		ShortCode:  e.ShortCode,
		LongURL:    e.LongURL,
		Note:       e.Note,
		VisitCount: int64(e.VisitCount),
		LastVisit:  e.LastVisit,
	}
}

// Store persists full registry snapshots into the url_entries table.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Load reads every row. A missing table is reported as an empty store.
func (s *Store) Load(ctx context.Context) (map[string]entity.URLEntry, error) {
	const op = "adapter.repository.postgres.Store.Load"
	const query = `SELECT short_code, long_url, note, visit_count, last_visit FROM url_entries`

	entries := make(map[string]entity.URLEntry)

	var rows []urlDB
	if err := s.db.SelectContext(ctx, &rows, query); err != nil {
		if isUndefinedTableError(err) {
			return entries, nil
		}

		return entries, fmt.Errorf("%s: %w: failed to select from url_entries table: %w", op, entity.ErrStoreUnreadable, err)
	}

	for i := range rows {
		entries[rows[i].ShortCode] = rows[i].toEntity()
	}

	return entries, nil
}

// Save replaces the table contents with entries inside a single transaction.
func (s *Store) Save(ctx context.Context, entries map[string]entity.URLEntry) error {
	const op = "adapter.repository.postgres.Store.Save"

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: %w: failed to begin transaction: %w", op, entity.ErrStoreWriteFailed, err)
	}
	defer tx.Rollback()

	if err := replaceAll(ctx, tx, entries); err != nil {
		return fmt.Errorf("%s: %w: %w", op, entity.ErrStoreWriteFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: %w: failed to commit transaction: %w", op, entity.ErrStoreWriteFailed, err)
	}

	return nil
}

func replaceAll(ctx context.Context, tx *sqlx.Tx, entries map[string]entity.URLEntry) error {
	const deleteQuery = `DELETE FROM url_entries`
	const insertQuery = `INSERT INTO url_entries (short_code, long_url, note, visit_count, last_visit)
		VALUES (:short_code, :long_url, :note, :visit_count, :last_visit)`

	if _, err := tx.ExecContext(ctx, deleteQuery); err != nil {
		return fmt.Errorf("failed to clear url_entries table: %w", err)
	}

	rows := make([]urlDB, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, fromEntity(e))
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].ShortCode < rows[j].ShortCode
	})

	for start := 0; start < len(rows); start += insertBatchSize {
		end := min(start+insertBatchSize, len(rows))

		if _, err := tx.NamedExecContext(ctx, insertQuery, rows[start:end]); err != nil {
			return fmt.Errorf("failed to insert into url_entries table: %w", err)
		}
	}

	return nil
}
