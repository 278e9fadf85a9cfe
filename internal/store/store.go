// Package store persists normalized sales tables as revocable batches and
// serves the aggregate queries behind the KPI endpoints. It runs on
// database/sql so the same transaction code works against Postgres in
// production and SQLite in tests.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"salesdash/internal/ingest"
)

// ErrNoBatches signals an undo request with nothing to undo.
var ErrNoBatches = errors.New("no batches to undo")

// LoadMode selects how an upload interacts with previously persisted data.
type LoadMode string

const (
	// ModeAdd appends the new batch next to existing data.
	ModeAdd LoadMode = "add"
	// ModeReplace purges all prior batches before inserting the new one.
	ModeReplace LoadMode = "replace"
)

// ParseMode validates the user-supplied mode flag. "append" is accepted as
// an alias of "add"; empty input defaults to "add".
func ParseMode(raw string) (LoadMode, error) {
	switch raw {
	case "", "add", "append":
		return ModeAdd, nil
	case "replace":
		return ModeReplace, nil
	}
	return "", fmt.Errorf("invalid mode %q", raw)
}

// Store wraps the sales database.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS batches (
		id         TEXT PRIMARY KEY,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id       TEXT PRIMARY KEY,
		date     DATE,
		customer TEXT,
		product  TEXT,
		amount   DOUBLE PRECISION NOT NULL DEFAULT 0,
		margin   DOUBLE PRECISION NOT NULL DEFAULT 0,
		discount DOUBLE PRECISION NOT NULL DEFAULT 0,
		quantity BIGINT NOT NULL DEFAULT 0 CHECK (quantity >= 0),
		batch_id TEXT NOT NULL REFERENCES batches(id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_batch_id ON sales(batch_id)`,
	`CREATE INDEX IF NOT EXISTS idx_sales_customer ON sales(customer)`,
	`CREATE TABLE IF NOT EXISTS upload_history (
		batch_id   TEXT PRIMARY KEY REFERENCES batches(id),
		filename   TEXT NOT NULL,
		mode       TEXT NOT NULL,
		row_count  BIGINT NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
}

// InitSchema creates the tables when they do not exist yet.
func (s *Store) InitSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// LoadResult reports a committed batch load.
type LoadResult struct {
	BatchID string
	Rows    int
}

// LoadBatch persists a normalized table as one atomic batch. Replace mode
// deletes all prior sales, history entries and batches inside the same
// transaction. Any failure rolls the whole batch back.
func (s *Store) LoadBatch(ctx context.Context, tbl *ingest.Table, filename string, mode LoadMode) (LoadResult, error) {
	batchID := uuid.New().String()
	now := time.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return LoadResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback is a no-op after commit

	if mode == ModeReplace {
		for _, stmt := range []string{
			`DELETE FROM sales`,
			`DELETE FROM upload_history`,
			`DELETE FROM batches`,
		} {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return LoadResult{}, fmt.Errorf("purge previous data: %w", err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO batches (id, created_at) VALUES ($1, $2)`,
		batchID, now,
	); err != nil {
		return LoadResult{}, fmt.Errorf("insert batch: %w", err)
	}

	for _, rec := range tbl.Rows {
		var date interface{}
		if !rec.Date.IsZero() {
			date = rec.Date
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sales (id, date, customer, product, amount, margin, discount, quantity, batch_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			uuid.New().String(), date, nullEmpty(rec.Customer), nullEmpty(rec.Product),
			rec.Amount, rec.Margin, rec.Discount, rec.Quantity, batchID,
		); err != nil {
			return LoadResult{}, fmt.Errorf("insert sale: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO upload_history (batch_id, filename, mode, row_count, created_at) VALUES ($1, $2, $3, $4, $5)`,
		batchID, filename, string(mode), len(tbl.Rows), now,
	); err != nil {
		return LoadResult{}, fmt.Errorf("insert upload history: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return LoadResult{}, fmt.Errorf("commit batch: %w", err)
	}
	return LoadResult{BatchID: batchID, Rows: len(tbl.Rows)}, nil
}

// UndoResult reports a completed undo.
type UndoResult struct {
	BatchID string
	Rows    int64
}

// UndoLastBatch deletes the most recently created batch together with its
// rows and history entry. Returns ErrNoBatches when nothing is persisted.
func (s *Store) UndoLastBatch(ctx context.Context) (UndoResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return UndoResult{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var batchID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM batches ORDER BY created_at DESC, id DESC LIMIT 1`,
	).Scan(&batchID)
	if err == sql.ErrNoRows {
		return UndoResult{}, ErrNoBatches
	}
	if err != nil {
		return UndoResult{}, fmt.Errorf("find latest batch: %w", err)
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM sales WHERE batch_id = $1`, batchID)
	if err != nil {
		return UndoResult{}, fmt.Errorf("delete batch rows: %w", err)
	}
	rows, _ := res.RowsAffected()
	if _, err := tx.ExecContext(ctx, `DELETE FROM upload_history WHERE batch_id = $1`, batchID); err != nil {
		return UndoResult{}, fmt.Errorf("delete upload history: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM batches WHERE id = $1`, batchID); err != nil {
		return UndoResult{}, fmt.Errorf("delete batch: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return UndoResult{}, fmt.Errorf("commit undo: %w", err)
	}
	return UndoResult{BatchID: batchID, Rows: rows}, nil
}

// Totals holds the local aggregates behind the basic KPI payload.
type Totals struct {
	Turnover      float64
	Margin        float64
	DiscountTotal float64 // amount-weighted: sum(amount * discount)
	Orders        int
}

// Totals computes the local KPI aggregates over all persisted sales.
func (s *Store) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(amount), 0),
		       COALESCE(SUM(margin), 0),
		       COALESCE(SUM(amount * discount), 0),
		       COUNT(*)
		FROM sales`,
	).Scan(&t.Turnover, &t.Margin, &t.DiscountTotal, &t.Orders)
	if err != nil {
		return Totals{}, fmt.Errorf("kpi totals: %w", err)
	}
	return t, nil
}

// GroupTotal is one group's summed amount for ABC classification.
type GroupTotal struct {
	Name  string
	Value float64
}

var groupColumns = map[string]string{
	ingest.DimCustomer: "customer",
	ingest.DimProduct:  "product",
}

// GroupTotals sums amount per value of the given dimension. Only persisted
// dimensions (customer, product) are valid.
func (s *Store) GroupTotals(ctx context.Context, dimension string) ([]GroupTotal, error) {
	col, ok := groupColumns[dimension]
	if !ok {
		return nil, fmt.Errorf("unknown grouping dimension %q", dimension)
	}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT %s, COALESCE(SUM(amount), 0) FROM sales GROUP BY %s`, col, col,
	))
	if err != nil {
		return nil, fmt.Errorf("group totals: %w", err)
	}
	defer rows.Close()

	var out []GroupTotal
	for rows.Next() {
		var name sql.NullString
		var g GroupTotal
		if err := rows.Scan(&name, &g.Value); err != nil {
			return nil, fmt.Errorf("scan group total: %w", err)
		}
		g.Name = name.String
		out = append(out, g)
	}
	return out, rows.Err()
}

// HistoryEntry is one audit record per batch.
type HistoryEntry struct {
	BatchID   string    `json:"batch_id"`
	Filename  string    `json:"filename"`
	Mode      string    `json:"mode"`
	RowCount  int64     `json:"row_count"`
	CreatedAt time.Time `json:"created_at"`
}

// History lists upload history entries, newest first.
func (s *Store) History(ctx context.Context) ([]HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT batch_id, filename, mode, row_count, created_at
		FROM upload_history
		ORDER BY created_at DESC, batch_id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list upload history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.BatchID, &h.Filename, &h.Mode, &h.RowCount, &h.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan upload history: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// BatchCount returns the number of live batches.
func (s *Store) BatchCount(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM batches`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count batches: %w", err)
	}
	return n, nil
}

func nullEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
