package store

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteStore opens an acquisition database: one SQLite file per
// instrumented run, one table per device dataset, rowid order as row order.
//
// The connection is configured with:
//   - WAL mode, so independent read calls can run concurrently
//   - NORMAL synchronous mode
//   - 5-second busy timeout for lock contention
//
// The store never writes; acquisition databases are produced upstream by the
// DAQ export and treated as immutable here.
type SQLiteStore struct {
	db    *sql.DB
	path  string
	sugar *zap.SugaredLogger
}

// Open opens the acquisition database at path.
func Open(path string, logger *zap.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// SQLite serves one statement per connection; a small pool is enough
	// for a synchronous reader.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	sugar := logger.Sugar()
	sugar.Debugw("opened acquisition database", "path", path)
	return &SQLiteStore{db: db, path: path, sugar: sugar}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.path }

// Datasets lists the dataset table names in the database, sorted.
func (s *SQLiteStore) Datasets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list datasets: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Dataset opens one dataset table as a RecordStore. The table's columns and
// row count are resolved once; the dataset is then valid for the life of the
// store.
func (s *SQLiteStore) Dataset(ctx context.Context, tbl string) (*SQLiteDataset, error) {
	cols, err := s.tableColumns(ctx, tbl)
	if err != nil {
		return nil, err
	}
	if len(cols) == 0 {
		return nil, fmt.Errorf("dataset %q not found in %s", tbl, s.path)
	}

	var rows int64
	q := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, quoteIdent(tbl))
	if err := s.db.QueryRowContext(ctx, q).Scan(&rows); err != nil {
		return nil, fmt.Errorf("count rows of %q: %w", tbl, err)
	}

	s.sugar.Debugw("opened dataset", "table", tbl, "rows", rows, "columns", len(cols))
	return &SQLiteDataset{
		store: s,
		table: tbl,
		name:  filepath.Base(s.path) + ":" + tbl,
		rows:  rows,
		cols:  cols,
	}, nil
}

func (s *SQLiteStore) tableColumns(ctx context.Context, tbl string) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, quoteIdent(tbl)))
	if err != nil {
		return nil, fmt.Errorf("table info for %q: %w", tbl, err)
	}
	defer rows.Close()

	cols := make(map[string]bool)
	for rows.Next() {
		var (
			cid       int
			name, typ string
			notnull   int
			dflt      sql.NullString
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk); err != nil {
			return nil, err
		}
		cols[name] = true
	}
	return cols, rows.Err()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %q: %w", pragma, err)
		}
	}
	return nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// SQLiteDataset is one dataset table exposed as a RecordStore. Row index i
// maps to rowid i+1.
type SQLiteDataset struct {
	store *SQLiteStore
	table string
	name  string
	rows  int64
	cols  map[string]bool
}

// Name implements RecordStore.
func (d *SQLiteDataset) Name() string { return d.name }

// NumRows implements RecordStore.
func (d *SQLiteDataset) NumRows() int64 { return d.rows }

// HasColumn implements RecordStore.
func (d *SQLiteDataset) HasColumn(name string) bool { return d.cols[name] }

// Table returns the underlying table name.
func (d *SQLiteDataset) Table() string { return d.table }

// maxBoundParams stays under SQLite's default host-parameter limit.
const maxBoundParams = 500

func (d *SQLiteDataset) checkRead(col string, idx []int64) error {
	if !d.cols[col] {
		return fmt.Errorf("%s: %q: %w", d.name, col, ErrUnknownColumn)
	}
	for _, i := range idx {
		if i < 0 || i >= d.rows {
			return fmt.Errorf("%s: %q: row %d of %d: %w", d.name, col, i, d.rows, ErrIndexOutOfRange)
		}
	}
	return nil
}

// readAt runs scan once per result row, in rowid order, over the ascending
// unique index list.
func (d *SQLiteDataset) readAt(ctx context.Context, col string, idx []int64, scan func(*sql.Rows) error) error {
	if err := d.checkRead(col, idx); err != nil {
		return err
	}
	for off := 0; off < len(idx); off += maxBoundParams {
		end := off + maxBoundParams
		if end > len(idx) {
			end = len(idx)
		}
		chunk := idx[off:end]

		placeholders := strings.Repeat("?,", len(chunk))
		placeholders = placeholders[:len(placeholders)-1]
		q := fmt.Sprintf(`SELECT %s FROM %s WHERE rowid IN (%s) ORDER BY rowid`,
			quoteIdent(col), quoteIdent(d.table), placeholders)

		args := make([]any, len(chunk))
		for n, i := range chunk {
			args[n] = i + 1
		}

		rows, err := d.store.db.QueryContext(ctx, q, args...)
		if err != nil {
			return fmt.Errorf("%s: read %q: %w", d.name, col, err)
		}
		got := 0
		for rows.Next() {
			if err := scan(rows); err != nil {
				rows.Close()
				return err
			}
			got++
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return err
		}
		rows.Close()
		if got != len(chunk) {
			return fmt.Errorf("%s: read %q: got %d of %d rows: %w",
				d.name, col, got, len(chunk), ErrIndexOutOfRange)
		}
	}
	return nil
}

// ReadInt64 implements RecordStore.
func (d *SQLiteDataset) ReadInt64(ctx context.Context, col string, idx []int64) ([]int64, error) {
	out := make([]int64, 0, len(idx))
	err := d.readAt(ctx, col, idx, func(rows *sql.Rows) error {
		var v sql.NullInt64
		if err := rows.Scan(&v); err != nil {
			return fmt.Errorf("%s: %q: %w", d.name, col, err)
		}
		if !v.Valid {
			return fmt.Errorf("%s: %q: NULL entry: %w", d.name, col, ErrPartialColumn)
		}
		out = append(out, v.Int64)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadUint64 implements RecordStore.
func (d *SQLiteDataset) ReadUint64(ctx context.Context, col string, idx []int64) ([]uint64, error) {
	signed, err := d.ReadInt64(ctx, col, idx)
	if err != nil {
		return nil, err
	}
	out := make([]uint64, len(signed))
	for n, v := range signed {
		out[n] = uint64(v)
	}
	return out, nil
}

// ReadFloat64 implements RecordStore.
func (d *SQLiteDataset) ReadFloat64(ctx context.Context, col string, idx []int64) ([]float64, error) {
	out := make([]float64, 0, len(idx))
	err := d.readAt(ctx, col, idx, func(rows *sql.Rows) error {
		var v sql.NullFloat64
		if err := rows.Scan(&v); err != nil {
			return fmt.Errorf("%s: %q: %w", d.name, col, err)
		}
		if !v.Valid {
			return fmt.Errorf("%s: %q: NULL entry: %w", d.name, col, ErrPartialColumn)
		}
		out = append(out, v.Float64)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadString implements RecordStore.
func (d *SQLiteDataset) ReadString(ctx context.Context, col string, idx []int64) ([]string, error) {
	out := make([]string, 0, len(idx))
	err := d.readAt(ctx, col, idx, func(rows *sql.Rows) error {
		var v sql.NullString
		if err := rows.Scan(&v); err != nil {
			return fmt.Errorf("%s: %q: %w", d.name, col, err)
		}
		if !v.Valid {
			return fmt.Errorf("%s: %q: NULL entry: %w", d.name, col, ErrPartialColumn)
		}
		out = append(out, v.String)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ReadKeySpan implements RecordStore.
func (d *SQLiteDataset) ReadKeySpan(ctx context.Context, col string, start, count, stride int64) ([]int64, error) {
	if count <= 0 {
		return nil, nil
	}
	if stride < 1 {
		stride = 1
	}
	last := start + (count-1)*stride
	if err := d.checkRead(col, []int64{start, last}); err != nil {
		return nil, err
	}

	q := fmt.Sprintf(
		`SELECT %s FROM %s WHERE rowid >= ? AND rowid <= ? AND (rowid - ?) %% ? = 0 ORDER BY rowid`,
		quoteIdent(col), quoteIdent(d.table))
	rows, err := d.store.db.QueryContext(ctx, q, start+1, last+1, start+1, stride)
	if err != nil {
		return nil, fmt.Errorf("%s: span read %q: %w", d.name, col, err)
	}
	defer rows.Close()

	out := make([]int64, 0, count)
	for rows.Next() {
		var v sql.NullInt64
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("%s: %q: %w", d.name, col, err)
		}
		if !v.Valid {
			return nil, fmt.Errorf("%s: %q: NULL entry: %w", d.name, col, ErrPartialColumn)
		}
		out = append(out, v.Int64)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if int64(len(out)) != count {
		return nil, fmt.Errorf("%s: span read %q: got %d of %d rows: %w",
			d.name, col, len(out), count, ErrIndexOutOfRange)
	}
	return out, nil
}
